package repository

import (
	"context"
	"time"

	"github.com/mshaw/timevault/internal/domain"
)

// ClientRepository manages client persistence, including each client's
// billing rate overrides.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	GetByID(ctx context.Context, id string) (*domain.Client, error)
	GetByName(ctx context.Context, name string) (*domain.Client, error)
	// List returns all clients with their overrides populated, the flat
	// snapshot the hierarchy walks operate on.
	List(ctx context.Context, includeArchived bool) ([]*domain.Client, error)
	Update(ctx context.Context, client *domain.Client) error
	Archive(ctx context.Context, id string) error
	Unarchive(ctx context.Context, id string) error
	// ReplaceOverrides swaps a client's full override set in one transaction.
	ReplaceOverrides(ctx context.Context, clientID string, overrides []*domain.RateOverride) error
}

// BillingRateRepository manages billing rates. Writes that set IsDefault
// clear the previous default inside the same transaction.
type BillingRateRepository interface {
	Create(ctx context.Context, rate *domain.BillingRate) error
	GetByID(ctx context.Context, id string) (*domain.BillingRate, error)
	GetDefault(ctx context.Context) (*domain.BillingRate, error)
	List(ctx context.Context) ([]*domain.BillingRate, error)
	Update(ctx context.Context, rate *domain.BillingRate) error
	// Delete refuses to remove the default rate.
	Delete(ctx context.Context, id string) error
}

// TimeEntryRepository manages time entry persistence. Update and Delete are
// guarded: they refuse billed or locked entries at the SQL level so a racing
// invoice cannot be outrun.
type TimeEntryRepository interface {
	Create(ctx context.Context, entry *domain.TimeEntry) error
	GetByID(ctx context.Context, id string) (*domain.TimeEntry, error)
	Update(ctx context.Context, entry *domain.TimeEntry) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, clientID *string, start, end *time.Time, includeBilled bool) ([]*domain.TimeEntry, error)
	// UnbilledForClients returns billable, unbilled entries for any of the
	// given clients, most recent date first (creation order breaks ties).
	UnbilledForClients(ctx context.Context, clientIDs []string) ([]*domain.TimeEntry, error)
	IsLocked(ctx context.Context, id string) (bool, error)
}

// TicketRepository manages tickets, their statuses, and ticket addons.
type TicketRepository interface {
	CreateStatus(ctx context.Context, status *domain.TicketStatus) error
	UpdateStatus(ctx context.Context, status *domain.TicketStatus) error
	ListStatuses(ctx context.Context) ([]*domain.TicketStatus, error)
	// DeleteStatus refuses to remove the default status.
	DeleteStatus(ctx context.Context, id string) error

	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, clientID *string) ([]*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error

	CreateAddon(ctx context.Context, addon *domain.TicketAddon) error
	AddonsForTicket(ctx context.Context, ticketID string) ([]*domain.TicketAddon, error)
	// UnbilledAddonsForClients returns unbilled ticket addons whose ticket
	// belongs to any of the given clients.
	UnbilledAddonsForClients(ctx context.Context, clientIDs []string) ([]*domain.TicketAddon, error)
}

// InvoiceRepository manages invoice persistence. The multi-row operations
// (generation, addon reconciliation, detach, delete) each run in a single
// transaction so callers never observe a half-applied invoice.
type InvoiceRepository interface {
	// CreateWithItems persists a generated invoice atomically: the invoice
	// row, its addon rows, marking each entry billed and locked with its
	// snapshotted rate, and flagging consumed ticket addons as billed. An
	// entry already claimed by another invoice aborts the whole
	// transaction. An empty invoice number is allocated from settings
	// inside the transaction.
	CreateWithItems(ctx context.Context, invoice *domain.Invoice, billedRates map[string]float64, ticketAddonIDs []string) error

	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	List(ctx context.Context, clientID *string, from, to *time.Time) ([]*domain.Invoice, error)
	UpdateTotals(ctx context.Context, invoiceID string, totals domain.Totals) error
	// ReplaceAddons reconciles the invoice's addon rows against the given
	// list and writes the new totals, all in one transaction.
	ReplaceAddons(ctx context.Context, invoiceID string, addons []*domain.InvoiceAddon, totals domain.Totals) error
	// DetachEntry releases one entry back to unbilled and writes the new
	// totals, in one transaction.
	DetachEntry(ctx context.Context, invoiceID, entryID string, totals domain.Totals) error
	// Delete removes a draft invoice, releasing its entries and ticket
	// addons and deleting its addon rows.
	Delete(ctx context.Context, invoiceID string) error
	MarkSent(ctx context.Context, invoiceID string) error
}

// SettingsRepository manages the typed key/value settings rows.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (*domain.Setting, error)
	List(ctx context.Context) ([]*domain.Setting, error)
	Set(ctx context.Context, key, value string) error
}

// TimerRepository manages the active timer state (singleton)
type TimerRepository interface {
	Get(ctx context.Context) (*domain.ActiveTimer, error) // Returns nil if no active timer
	Save(ctx context.Context, timer *domain.ActiveTimer) error
	Delete(ctx context.Context) error
}
