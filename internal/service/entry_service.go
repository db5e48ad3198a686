package service

import (
	"context"
	"time"

	"github.com/mshaw/timevault/internal/domain"
	"github.com/mshaw/timevault/internal/repository"
)

// EntryService is the time entry ledger. Durations are normalized on every
// write (minutes and end time derive from each other), and edits to billed
// or locked entries are refused at the persistence layer.
type EntryService interface {
	// Log records a new entry. Either minutes or an end time must be set;
	// the other is derived.
	Log(ctx context.Context, entry *domain.TimeEntry) error

	// Update rewrites an entry. Fails with LockedEntryError if an invoice
	// has claimed it.
	Update(ctx context.Context, entry *domain.TimeEntry) error

	// Delete removes an entry. Fails with LockedEntryError if an invoice
	// has claimed it.
	Delete(ctx context.Context, id string) error

	Get(ctx context.Context, id string) (*domain.TimeEntry, error)
	List(ctx context.Context, clientID *string, start, end *time.Time, includeBilled bool) ([]*domain.TimeEntry, error)
}

type entryService struct {
	entryRepo  repository.TimeEntryRepository
	clientRepo repository.ClientRepository
	rateRepo   repository.BillingRateRepository
}

// NewEntryService creates a new entry service
func NewEntryService(
	entryRepo repository.TimeEntryRepository,
	clientRepo repository.ClientRepository,
	rateRepo repository.BillingRateRepository,
) EntryService {
	return &entryService{
		entryRepo:  entryRepo,
		clientRepo: clientRepo,
		rateRepo:   rateRepo,
	}
}

func (s *entryService) Log(ctx context.Context, entry *domain.TimeEntry) error {
	if err := s.checkReferences(ctx, entry); err != nil {
		return err
	}

	if err := entry.NormalizeDuration(); err != nil {
		return err
	}
	if entry.Date.IsZero() {
		entry.Date = entry.StartTime
	}

	return s.entryRepo.Create(ctx, entry)
}

func (s *entryService) Update(ctx context.Context, entry *domain.TimeEntry) error {
	if err := s.checkReferences(ctx, entry); err != nil {
		return err
	}

	if err := entry.NormalizeDuration(); err != nil {
		return err
	}

	return s.entryRepo.Update(ctx, entry)
}

func (s *entryService) checkReferences(ctx context.Context, entry *domain.TimeEntry) error {
	if entry.ClientID != nil {
		if _, err := s.clientRepo.GetByID(ctx, *entry.ClientID); err != nil {
			return err
		}
	}
	if entry.BillingRateID != nil {
		if _, err := s.rateRepo.GetByID(ctx, *entry.BillingRateID); err != nil {
			return err
		}
	}
	return nil
}

func (s *entryService) Delete(ctx context.Context, id string) error {
	return s.entryRepo.Delete(ctx, id)
}

func (s *entryService) Get(ctx context.Context, id string) (*domain.TimeEntry, error) {
	return s.entryRepo.GetByID(ctx, id)
}

func (s *entryService) List(ctx context.Context, clientID *string, start, end *time.Time, includeBilled bool) ([]*domain.TimeEntry, error) {
	return s.entryRepo.List(ctx, clientID, start, end, includeBilled)
}
