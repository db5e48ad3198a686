package domain

import (
	"strings"
	"time"
)

// TicketStatus is a workflow state for tickets. At most one status is the
// default for new tickets; the repository flips the flag transactionally.
type TicketStatus struct {
	ID        string
	Name      string
	Color     string
	IsDefault bool
	IsClosed  bool
	SortOrder int
}

// Validate returns an error if the status is invalid
func (s *TicketStatus) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &ValidationError{Field: "name", Message: "status name is required"}
	}
	return nil
}

type Ticket struct {
	ID        string
	Title     string
	ClientID  *string
	StatusID  string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTicket creates a new ticket in the given status
func NewTicket(title, statusID string) *Ticket {
	now := time.Now()
	return &Ticket{
		Title:     strings.TrimSpace(title),
		StatusID:  statusID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate returns an error if the ticket is invalid
func (t *Ticket) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return &ValidationError{Field: "title", Message: "ticket title is required"}
	}
	if t.StatusID == "" {
		return &ValidationError{Field: "statusId", Message: "ticket status is required"}
	}
	return nil
}

// TicketAddon is a flat-amount billable item attached to a ticket. Unbilled
// addons for a client subtree are offered alongside time entries when
// generating an invoice, and marked billed by it.
type TicketAddon struct {
	ID          string
	TicketID    string
	Description string
	Amount      float64 // unit price
	Cost        float64 // unit cost
	Billed      bool
	CreatedAt   time.Time
}

// Validate returns an error if the addon is invalid
func (a *TicketAddon) Validate() error {
	if a.TicketID == "" {
		return &ValidationError{Field: "ticketId", Message: "ticket is required"}
	}
	if strings.TrimSpace(a.Description) == "" {
		return &ValidationError{Field: "description", Message: "description is required"}
	}
	if a.Amount < 0 {
		return &ValidationError{Field: "amount", Message: "amount cannot be negative"}
	}
	return nil
}
