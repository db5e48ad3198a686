package service

import (
	"context"
	"time"

	"github.com/mshaw/timevault/internal/domain"
	"github.com/mshaw/timevault/internal/repository"
)

// GenerateInput describes an invoice to generate: which client, which of
// its subtree's unbilled entries, which unbilled ticket addons to roll in,
// and any free-form addon lines.
type GenerateInput struct {
	ClientID       string
	EntryIDs       []string
	TicketAddonIDs []string
	ExtraAddons    []*domain.InvoiceAddon
	InvoiceNumber  string    // allocated from settings when empty
	Date           time.Time // defaults to now
}

// UnbilledWork is everything billable for a client subtree that no invoice
// has claimed yet.
type UnbilledWork struct {
	Entries []*domain.TimeEntry
	Addons  []*domain.TicketAddon
}

// InvoiceService manages the invoice lifecycle: collecting unbilled work
// for a client subtree, pricing it through the hierarchy's rate overrides,
// generating the invoice atomically, and guarding edits after it is sent.
type InvoiceService interface {
	// UnbilledForClient returns unbilled entries and ticket addons for the
	// client and all of its descendants, most recent entries first.
	UnbilledForClient(ctx context.Context, clientID string) (*UnbilledWork, error)

	// Preview prices an invoice without persisting anything. The returned
	// invoice has no ID or number and nothing is locked.
	Preview(ctx context.Context, input GenerateInput) (*domain.Invoice, error)

	// Generate creates the invoice and locks its entries in one
	// transaction. Any entry already claimed elsewhere aborts the whole
	// generation.
	Generate(ctx context.Context, input GenerateInput) (*domain.Invoice, error)

	Get(ctx context.Context, id string) (*domain.Invoice, error)
	List(ctx context.Context, clientID *string, from, to *time.Time) ([]*domain.Invoice, error)

	// UpdateAddons reconciles the draft's addon lines against the given
	// list and recomputes totals. Addons with "temp-" ids are created,
	// known ids updated, and missing ones removed.
	UpdateAddons(ctx context.Context, invoiceID string, addons []*domain.InvoiceAddon) (*domain.Invoice, error)

	// DetachEntry releases one entry from a draft back to unbilled and
	// recomputes totals.
	DetachEntry(ctx context.Context, invoiceID, entryID string) (*domain.Invoice, error)

	// RecalculateTotals reprices a draft's lines (entry amounts keep their
	// snapshotted rates) and writes fresh totals.
	RecalculateTotals(ctx context.Context, invoiceID string) (*domain.Invoice, error)

	// Delete removes a draft invoice and releases its entries and ticket
	// addons. Sent invoices cannot be deleted.
	Delete(ctx context.Context, invoiceID string) error

	// MarkSent finalizes an invoice. The transition is one-way; a sent
	// invoice only accepts MarkSent again as a no-op.
	MarkSent(ctx context.Context, invoiceID string) error
}

type invoiceService struct {
	invoiceRepo   repository.InvoiceRepository
	entryRepo     repository.TimeEntryRepository
	clientRepo    repository.ClientRepository
	rateRepo      repository.BillingRateRepository
	ticketRepo    repository.TicketRepository
	settingsRepo  repository.SettingsRepository
	allowRateless bool
}

// NewInvoiceService creates a new invoice service. allowRateless controls
// whether entries without any billing rate may be invoiced at zero.
func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	entryRepo repository.TimeEntryRepository,
	clientRepo repository.ClientRepository,
	rateRepo repository.BillingRateRepository,
	ticketRepo repository.TicketRepository,
	settingsRepo repository.SettingsRepository,
	allowRateless bool,
) InvoiceService {
	return &invoiceService{
		invoiceRepo:   invoiceRepo,
		entryRepo:     entryRepo,
		clientRepo:    clientRepo,
		rateRepo:      rateRepo,
		ticketRepo:    ticketRepo,
		settingsRepo:  settingsRepo,
		allowRateless: allowRateless,
	}
}

func (s *invoiceService) loadBook(ctx context.Context) (*rateBook, error) {
	return loadRateBook(ctx, s.clientRepo, s.rateRepo, s.settingsRepo, s.allowRateless)
}

func (s *invoiceService) UnbilledForClient(ctx context.Context, clientID string) (*UnbilledWork, error) {
	clients, err := s.clientRepo.List(ctx, true)
	if err != nil {
		return nil, err
	}

	subtree, err := domain.Subtree(clients, clientID)
	if err != nil {
		return nil, err
	}
	if subtree == nil {
		return nil, &domain.NotFoundError{Resource: "client", ID: clientID}
	}

	ids := make([]string, len(subtree))
	for i, c := range subtree {
		ids[i] = c.ID
	}

	entries, err := s.entryRepo.UnbilledForClients(ctx, ids)
	if err != nil {
		return nil, err
	}
	addons, err := s.ticketRepo.UnbilledAddonsForClients(ctx, ids)
	if err != nil {
		return nil, err
	}

	return &UnbilledWork{Entries: entries, Addons: addons}, nil
}

// buildInvoice prices the requested work and assembles an unpersisted
// invoice, the per-entry rate snapshots, and the consumed ticket addon ids.
func (s *invoiceService) buildInvoice(ctx context.Context, input GenerateInput, book *rateBook) (*domain.Invoice, map[string]float64, []string, error) {
	subtree, err := domain.Subtree(book.clients, input.ClientID)
	if err != nil {
		return nil, nil, nil, err
	}
	if subtree == nil {
		return nil, nil, nil, &domain.NotFoundError{Resource: "client", ID: input.ClientID}
	}
	inSubtree := make(map[string]bool, len(subtree))
	for _, c := range subtree {
		inSubtree[c.ID] = true
	}

	var totals domain.Totals
	billedRates := make(map[string]float64, len(input.EntryIDs))
	entries := make([]*domain.TimeEntry, 0, len(input.EntryIDs))

	for _, entryID := range input.EntryIDs {
		entry, err := s.entryRepo.GetByID(ctx, entryID)
		if err != nil {
			return nil, nil, nil, err
		}
		if entry.IsLocked() || entry.InvoiceID != nil {
			return nil, nil, nil, &domain.LockedEntryError{EntryID: entryID}
		}
		if !entry.Billable {
			return nil, nil, nil, &domain.ValidationError{Field: "entryIds", Message: "entry " + entryID + " is not billable"}
		}
		if entry.ClientID == nil || !inSubtree[*entry.ClientID] {
			return nil, nil, nil, &domain.ValidationError{Field: "entryIds", Message: "entry " + entryID + " does not belong to the invoice client"}
		}

		c, err := book.chargeEntry(entry)
		if err != nil {
			return nil, nil, nil, err
		}
		totals.Add(c.Totals)
		billedRates[entry.ID] = c.Rate
		entries = append(entries, entry)
	}

	addons := make([]*domain.InvoiceAddon, 0, len(input.TicketAddonIDs)+len(input.ExtraAddons))

	if len(input.TicketAddonIDs) > 0 {
		subtreeIDs := make([]string, len(subtree))
		for i, c := range subtree {
			subtreeIDs[i] = c.ID
		}
		available, err := s.ticketRepo.UnbilledAddonsForClients(ctx, subtreeIDs)
		if err != nil {
			return nil, nil, nil, err
		}
		byID := make(map[string]*domain.TicketAddon, len(available))
		for _, a := range available {
			byID[a.ID] = a
		}

		for _, addonID := range input.TicketAddonIDs {
			ta, ok := byID[addonID]
			if !ok {
				return nil, nil, nil, &domain.ValidationError{Field: "ticketAddonIds", Message: "ticket addon " + addonID + " is unknown, already billed, or outside the client subtree"}
			}
			id := ta.ID
			addons = append(addons, &domain.InvoiceAddon{
				Description:   ta.Description,
				Amount:        ta.Amount,
				Cost:          ta.Cost,
				Quantity:      1,
				Profit:        ta.Amount - ta.Cost,
				TicketAddonID: &id,
			})
		}
	}

	for _, addon := range input.ExtraAddons {
		if err := addon.Validate(); err != nil {
			return nil, nil, nil, err
		}
		t := addon.Totals()
		addon.Profit = t.Profit
		addons = append(addons, addon)
	}

	for _, addon := range addons {
		totals.Add(addon.Totals())
	}

	invoice := domain.NewInvoice(input.InvoiceNumber, input.ClientID)
	if !input.Date.IsZero() {
		invoice.Date = input.Date
	}
	invoice.SetTotals(totals)
	invoice.Entries = entries
	invoice.Addons = addons

	return invoice, billedRates, input.TicketAddonIDs, nil
}

func (s *invoiceService) Preview(ctx context.Context, input GenerateInput) (*domain.Invoice, error) {
	book, err := s.loadBook(ctx)
	if err != nil {
		return nil, err
	}

	invoice, _, _, err := s.buildInvoice(ctx, input, book)
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *invoiceService) Generate(ctx context.Context, input GenerateInput) (*domain.Invoice, error) {
	if len(input.EntryIDs) == 0 && len(input.TicketAddonIDs) == 0 && len(input.ExtraAddons) == 0 {
		return nil, &domain.ValidationError{Field: "entryIds", Message: "an invoice needs at least one entry or addon"}
	}

	book, err := s.loadBook(ctx)
	if err != nil {
		return nil, err
	}

	invoice, billedRates, ticketAddonIDs, err := s.buildInvoice(ctx, input, book)
	if err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.CreateWithItems(ctx, invoice, billedRates, ticketAddonIDs); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *invoiceService) Get(ctx context.Context, id string) (*domain.Invoice, error) {
	return s.invoiceRepo.GetByID(ctx, id)
}

func (s *invoiceService) List(ctx context.Context, clientID *string, from, to *time.Time) ([]*domain.Invoice, error) {
	return s.invoiceRepo.List(ctx, clientID, from, to)
}

// draftTotals reprices an invoice's current lines: entries from their
// snapshotted rates, addons from quantity times unit price.
func draftTotals(invoice *domain.Invoice, addons []*domain.InvoiceAddon, book *rateBook) (domain.Totals, error) {
	var totals domain.Totals
	for _, entry := range invoice.Entries {
		t, err := book.billedTotals(entry)
		if err != nil {
			return domain.Totals{}, err
		}
		totals.Add(t)
	}
	for _, addon := range addons {
		totals.Add(addon.Totals())
	}
	return totals, nil
}

func (s *invoiceService) UpdateAddons(ctx context.Context, invoiceID string, addons []*domain.InvoiceAddon) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.CanEdit() {
		return nil, &domain.SentInvoiceError{InvoiceID: invoiceID}
	}

	for _, addon := range addons {
		if err := addon.Validate(); err != nil {
			return nil, err
		}
		addon.Profit = addon.Totals().Profit
	}

	book, err := s.loadBook(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := draftTotals(invoice, addons, book)
	if err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.ReplaceAddons(ctx, invoiceID, addons, totals); err != nil {
		return nil, err
	}
	return s.invoiceRepo.GetByID(ctx, invoiceID)
}

func (s *invoiceService) DetachEntry(ctx context.Context, invoiceID, entryID string) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.CanEdit() {
		return nil, &domain.SentInvoiceError{InvoiceID: invoiceID}
	}

	remaining := make([]*domain.TimeEntry, 0, len(invoice.Entries))
	found := false
	for _, entry := range invoice.Entries {
		if entry.ID == entryID {
			found = true
			continue
		}
		remaining = append(remaining, entry)
	}
	if !found {
		return nil, &domain.NotFoundError{Resource: "time entry", ID: entryID}
	}
	invoice.Entries = remaining

	book, err := s.loadBook(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := draftTotals(invoice, invoice.Addons, book)
	if err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.DetachEntry(ctx, invoiceID, entryID, totals); err != nil {
		return nil, err
	}
	return s.invoiceRepo.GetByID(ctx, invoiceID)
}

func (s *invoiceService) RecalculateTotals(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.CanEdit() {
		return nil, &domain.SentInvoiceError{InvoiceID: invoiceID}
	}

	book, err := s.loadBook(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := draftTotals(invoice, invoice.Addons, book)
	if err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.UpdateTotals(ctx, invoiceID, totals); err != nil {
		return nil, err
	}
	invoice.SetTotals(totals)
	return invoice, nil
}

func (s *invoiceService) Delete(ctx context.Context, invoiceID string) error {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if !invoice.CanEdit() {
		return &domain.SentInvoiceError{InvoiceID: invoiceID}
	}
	return s.invoiceRepo.Delete(ctx, invoiceID)
}

func (s *invoiceService) MarkSent(ctx context.Context, invoiceID string) error {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice.Sent {
		return nil
	}
	return s.invoiceRepo.MarkSent(ctx, invoiceID)
}
