package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mshaw/timevault/internal/domain"
	"github.com/mshaw/timevault/internal/repository"
)

var (
	ErrTimerAlreadyRunning = errors.New("timer is already running")
	ErrTimerNotRunning     = errors.New("timer is not running")
	ErrTimerNotPaused      = errors.New("timer is not paused")
	ErrNoActiveTimer       = errors.New("no active timer")
)

// TimerService manages the timer state machine
type TimerService interface {
	// GetState returns the current timer state (idle, running, paused)
	GetState(ctx context.Context) (domain.TimerState, error)

	// GetActiveTimer returns the current active timer, or nil if idle
	GetActiveTimer(ctx context.Context) (*domain.ActiveTimer, error)

	// Start creates a new timer (only from Idle state)
	Start(ctx context.Context, clientID, ticketID *string, description string) error

	// Pause pauses the running timer (only from Running state)
	Pause(ctx context.Context) error

	// Resume resumes a paused timer (only from Paused state)
	Resume(ctx context.Context) error

	// Stop stops the timer and creates a time entry (from Running or
	// Paused). The entry picks up the default billing rate when one is set.
	Stop(ctx context.Context) (*domain.TimeEntry, error)

	// Discard discards the active timer without creating an entry
	Discard(ctx context.Context) error

	// ElapsedDuration returns the elapsed time of the active timer
	ElapsedDuration(ctx context.Context) (time.Duration, error)

	// RecoverFromCrash checks for an existing timer on startup
	RecoverFromCrash(ctx context.Context) error
}

type timerService struct {
	timerRepo  repository.TimerRepository
	entryRepo  repository.TimeEntryRepository
	clientRepo repository.ClientRepository
	rateRepo   repository.BillingRateRepository
}

// NewTimerService creates a new timer service
func NewTimerService(
	timerRepo repository.TimerRepository,
	entryRepo repository.TimeEntryRepository,
	clientRepo repository.ClientRepository,
	rateRepo repository.BillingRateRepository,
) TimerService {
	return &timerService{
		timerRepo:  timerRepo,
		entryRepo:  entryRepo,
		clientRepo: clientRepo,
		rateRepo:   rateRepo,
	}
}

func (s *timerService) GetState(ctx context.Context) (domain.TimerState, error) {
	timer, err := s.timerRepo.Get(ctx)
	if err != nil {
		return "", err
	}
	if timer == nil {
		return domain.TimerStateIdle, nil
	}
	return timer.State(), nil
}

func (s *timerService) GetActiveTimer(ctx context.Context) (*domain.ActiveTimer, error) {
	return s.timerRepo.Get(ctx)
}

func (s *timerService) Start(ctx context.Context, clientID, ticketID *string, description string) error {
	if strings.TrimSpace(description) == "" {
		return &domain.ValidationError{Field: "description", Message: "description is required"}
	}

	// Verify the client exists before tracking time against it
	if clientID != nil {
		if _, err := s.clientRepo.GetByID(ctx, *clientID); err != nil {
			return err
		}
	}

	existingTimer, err := s.timerRepo.Get(ctx)
	if err != nil {
		return err
	}
	if existingTimer != nil {
		return ErrTimerAlreadyRunning
	}

	timer := domain.NewActiveTimer(clientID, description)
	timer.TicketID = ticketID
	return s.timerRepo.Save(ctx, timer)
}

func (s *timerService) Pause(ctx context.Context) error {
	timer, err := s.timerRepo.Get(ctx)
	if err != nil {
		return err
	}
	if timer == nil {
		return ErrNoActiveTimer
	}

	if timer.State() != domain.TimerStateRunning {
		return ErrTimerNotRunning
	}

	timer.Pause()
	return s.timerRepo.Save(ctx, timer)
}

func (s *timerService) Resume(ctx context.Context) error {
	timer, err := s.timerRepo.Get(ctx)
	if err != nil {
		return err
	}
	if timer == nil {
		return ErrNoActiveTimer
	}

	if timer.State() != domain.TimerStatePaused {
		return ErrTimerNotPaused
	}

	timer.Resume()
	return s.timerRepo.Save(ctx, timer)
}

func (s *timerService) Stop(ctx context.Context) (*domain.TimeEntry, error) {
	timer, err := s.timerRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if timer == nil {
		return nil, ErrNoActiveTimer
	}

	// New entries from the timer bill at the default rate when one exists
	var rateID *string
	defaultRate, err := s.rateRepo.GetDefault(ctx)
	if err != nil {
		return nil, err
	}
	if defaultRate != nil {
		rateID = &defaultRate.ID
	}

	entry := timer.ToTimeEntry(rateID)
	if err := s.entryRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.timerRepo.Delete(ctx); err != nil {
		return nil, err
	}

	return entry, nil
}

func (s *timerService) Discard(ctx context.Context) error {
	timer, err := s.timerRepo.Get(ctx)
	if err != nil {
		return err
	}
	if timer == nil {
		return ErrNoActiveTimer
	}

	return s.timerRepo.Delete(ctx)
}

func (s *timerService) ElapsedDuration(ctx context.Context) (time.Duration, error) {
	timer, err := s.timerRepo.Get(ctx)
	if err != nil {
		return 0, err
	}
	if timer == nil {
		return 0, ErrNoActiveTimer
	}

	return timer.Elapsed(), nil
}

func (s *timerService) RecoverFromCrash(ctx context.Context) error {
	// The timer row persists across restarts; nothing to repair. Callers
	// surface the recovered timer to the user.
	_, err := s.timerRepo.Get(ctx)
	return err
}
