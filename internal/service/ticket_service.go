package service

import (
	"context"

	"github.com/mshaw/timevault/internal/domain"
	"github.com/mshaw/timevault/internal/repository"
)

// TicketService manages tickets, their workflow statuses, and ticket addons.
type TicketService interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Get(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, clientID *string) ([]*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error

	Statuses(ctx context.Context) ([]*domain.TicketStatus, error)
	SaveStatus(ctx context.Context, status *domain.TicketStatus) error
	DeleteStatus(ctx context.Context, id string) error

	// AddAddon attaches a flat-amount billable item to a ticket. It stays
	// available for invoicing until an invoice consumes it.
	AddAddon(ctx context.Context, addon *domain.TicketAddon) error
	AddonsForTicket(ctx context.Context, ticketID string) ([]*domain.TicketAddon, error)
}

type ticketService struct {
	ticketRepo repository.TicketRepository
	clientRepo repository.ClientRepository
}

// NewTicketService creates a new ticket service
func NewTicketService(ticketRepo repository.TicketRepository, clientRepo repository.ClientRepository) TicketService {
	return &ticketService{ticketRepo: ticketRepo, clientRepo: clientRepo}
}

func (s *ticketService) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ClientID != nil {
		if _, err := s.clientRepo.GetByID(ctx, *ticket.ClientID); err != nil {
			return err
		}
	}

	// New tickets without an explicit status land in the default one
	if ticket.StatusID == "" {
		statuses, err := s.ticketRepo.ListStatuses(ctx)
		if err != nil {
			return err
		}
		for _, st := range statuses {
			if st.IsDefault {
				ticket.StatusID = st.ID
				break
			}
		}
	}

	return s.ticketRepo.Create(ctx, ticket)
}

func (s *ticketService) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.ticketRepo.GetByID(ctx, id)
}

func (s *ticketService) List(ctx context.Context, clientID *string) ([]*domain.Ticket, error) {
	return s.ticketRepo.List(ctx, clientID)
}

func (s *ticketService) Update(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ClientID != nil {
		if _, err := s.clientRepo.GetByID(ctx, *ticket.ClientID); err != nil {
			return err
		}
	}
	return s.ticketRepo.Update(ctx, ticket)
}

func (s *ticketService) Statuses(ctx context.Context) ([]*domain.TicketStatus, error) {
	return s.ticketRepo.ListStatuses(ctx)
}

func (s *ticketService) SaveStatus(ctx context.Context, status *domain.TicketStatus) error {
	if status.ID == "" {
		return s.ticketRepo.CreateStatus(ctx, status)
	}
	return s.ticketRepo.UpdateStatus(ctx, status)
}

func (s *ticketService) DeleteStatus(ctx context.Context, id string) error {
	return s.ticketRepo.DeleteStatus(ctx, id)
}

func (s *ticketService) AddAddon(ctx context.Context, addon *domain.TicketAddon) error {
	if _, err := s.ticketRepo.GetByID(ctx, addon.TicketID); err != nil {
		return err
	}
	return s.ticketRepo.CreateAddon(ctx, addon)
}

func (s *ticketService) AddonsForTicket(ctx context.Context, ticketID string) ([]*domain.TicketAddon, error) {
	return s.ticketRepo.AddonsForTicket(ctx, ticketID)
}
