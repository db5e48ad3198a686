package service

import (
	"context"
	"time"

	"github.com/mshaw/timevault/internal/domain"
)

// hand-rolled mocks for the repository interfaces

type mockClientRepo struct {
	clients []*domain.Client
}

func (m *mockClientRepo) Create(ctx context.Context, client *domain.Client) error { return nil }
func (m *mockClientRepo) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	for _, c := range m.clients {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, &domain.NotFoundError{Resource: "client", ID: id}
}
func (m *mockClientRepo) GetByName(ctx context.Context, name string) (*domain.Client, error) {
	for _, c := range m.clients {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, &domain.NotFoundError{Resource: "client", ID: name}
}
func (m *mockClientRepo) List(ctx context.Context, includeArchived bool) ([]*domain.Client, error) {
	return m.clients, nil
}
func (m *mockClientRepo) Update(ctx context.Context, client *domain.Client) error { return nil }
func (m *mockClientRepo) Archive(ctx context.Context, id string) error            { return nil }
func (m *mockClientRepo) Unarchive(ctx context.Context, id string) error          { return nil }
func (m *mockClientRepo) ReplaceOverrides(ctx context.Context, clientID string, overrides []*domain.RateOverride) error {
	return nil
}

type mockRateRepo struct {
	rates []*domain.BillingRate
}

func (m *mockRateRepo) Create(ctx context.Context, rate *domain.BillingRate) error { return nil }
func (m *mockRateRepo) GetByID(ctx context.Context, id string) (*domain.BillingRate, error) {
	for _, r := range m.rates {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, &domain.NotFoundError{Resource: "billing rate", ID: id}
}
func (m *mockRateRepo) GetDefault(ctx context.Context) (*domain.BillingRate, error) {
	for _, r := range m.rates {
		if r.IsDefault {
			return r, nil
		}
	}
	return nil, nil
}
func (m *mockRateRepo) List(ctx context.Context) ([]*domain.BillingRate, error) {
	return m.rates, nil
}
func (m *mockRateRepo) Update(ctx context.Context, rate *domain.BillingRate) error { return nil }
func (m *mockRateRepo) Delete(ctx context.Context, id string) error                { return nil }

type mockEntryRepo struct {
	entries map[string]*domain.TimeEntry
	created []*domain.TimeEntry
}

func (m *mockEntryRepo) Create(ctx context.Context, entry *domain.TimeEntry) error {
	m.created = append(m.created, entry)
	return nil
}
func (m *mockEntryRepo) GetByID(ctx context.Context, id string) (*domain.TimeEntry, error) {
	if e, ok := m.entries[id]; ok {
		return e, nil
	}
	return nil, &domain.NotFoundError{Resource: "time entry", ID: id}
}
func (m *mockEntryRepo) Update(ctx context.Context, entry *domain.TimeEntry) error {
	existing, ok := m.entries[entry.ID]
	if !ok {
		return &domain.NotFoundError{Resource: "time entry", ID: entry.ID}
	}
	if existing.IsLocked() {
		return &domain.LockedEntryError{EntryID: entry.ID}
	}
	m.entries[entry.ID] = entry
	return nil
}
func (m *mockEntryRepo) Delete(ctx context.Context, id string) error {
	existing, ok := m.entries[id]
	if !ok {
		return &domain.NotFoundError{Resource: "time entry", ID: id}
	}
	if existing.IsLocked() {
		return &domain.LockedEntryError{EntryID: id}
	}
	delete(m.entries, id)
	return nil
}
func (m *mockEntryRepo) List(ctx context.Context, clientID *string, start, end *time.Time, includeBilled bool) ([]*domain.TimeEntry, error) {
	out := make([]*domain.TimeEntry, 0)
	for _, e := range m.entries {
		if !includeBilled && e.Billed {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
func (m *mockEntryRepo) UnbilledForClients(ctx context.Context, clientIDs []string) ([]*domain.TimeEntry, error) {
	want := make(map[string]bool, len(clientIDs))
	for _, id := range clientIDs {
		want[id] = true
	}
	out := make([]*domain.TimeEntry, 0)
	for _, e := range m.entries {
		if e.Billable && !e.Billed && e.InvoiceID == nil && e.ClientID != nil && want[*e.ClientID] {
			out = append(out, e)
		}
	}
	return out, nil
}
func (m *mockEntryRepo) IsLocked(ctx context.Context, id string) (bool, error) {
	e, ok := m.entries[id]
	if !ok {
		return false, &domain.NotFoundError{Resource: "time entry", ID: id}
	}
	return e.IsLocked(), nil
}

type mockTicketRepo struct {
	tickets  map[string]*domain.Ticket
	statuses []*domain.TicketStatus
	addons   []*domain.TicketAddon
}

func (m *mockTicketRepo) CreateStatus(ctx context.Context, status *domain.TicketStatus) error {
	return nil
}
func (m *mockTicketRepo) UpdateStatus(ctx context.Context, status *domain.TicketStatus) error {
	return nil
}
func (m *mockTicketRepo) ListStatuses(ctx context.Context) ([]*domain.TicketStatus, error) {
	return m.statuses, nil
}
func (m *mockTicketRepo) DeleteStatus(ctx context.Context, id string) error { return nil }
func (m *mockTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	return nil
}
func (m *mockTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if t, ok := m.tickets[id]; ok {
		return t, nil
	}
	return nil, &domain.NotFoundError{Resource: "ticket", ID: id}
}
func (m *mockTicketRepo) List(ctx context.Context, clientID *string) ([]*domain.Ticket, error) {
	return nil, nil
}
func (m *mockTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error { return nil }
func (m *mockTicketRepo) CreateAddon(ctx context.Context, addon *domain.TicketAddon) error {
	m.addons = append(m.addons, addon)
	return nil
}
func (m *mockTicketRepo) AddonsForTicket(ctx context.Context, ticketID string) ([]*domain.TicketAddon, error) {
	out := make([]*domain.TicketAddon, 0)
	for _, a := range m.addons {
		if a.TicketID == ticketID {
			out = append(out, a)
		}
	}
	return out, nil
}
func (m *mockTicketRepo) UnbilledAddonsForClients(ctx context.Context, clientIDs []string) ([]*domain.TicketAddon, error) {
	want := make(map[string]bool, len(clientIDs))
	for _, id := range clientIDs {
		want[id] = true
	}
	out := make([]*domain.TicketAddon, 0)
	for _, a := range m.addons {
		if a.Billed {
			continue
		}
		t, ok := m.tickets[a.TicketID]
		if !ok || t.ClientID == nil || !want[*t.ClientID] {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

type mockSettingsRepo struct {
	values map[string]string
}

func (m *mockSettingsRepo) Get(ctx context.Context, key string) (*domain.Setting, error) {
	if v, ok := m.values[key]; ok {
		return &domain.Setting{Key: key, Value: v}, nil
	}
	return nil, &domain.NotFoundError{Resource: "setting", ID: key}
}
func (m *mockSettingsRepo) List(ctx context.Context) ([]*domain.Setting, error) { return nil, nil }
func (m *mockSettingsRepo) Set(ctx context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

// mockInvoiceRepo mimics the transactional claim semantics of the SQL
// implementation: CreateWithItems refuses any entry that is already billed,
// locked, or attached to an invoice, and on success flips all of them.
type mockInvoiceRepo struct {
	invoices map[string]*domain.Invoice
	entries  map[string]*domain.TimeEntry

	replacedAddons []*domain.InvoiceAddon
	replacedTotals domain.Totals
	detached       []string
	deleted        []string
	sent           []string
}

func newMockInvoiceRepo(entries map[string]*domain.TimeEntry) *mockInvoiceRepo {
	return &mockInvoiceRepo{
		invoices: make(map[string]*domain.Invoice),
		entries:  entries,
	}
}

func (m *mockInvoiceRepo) CreateWithItems(ctx context.Context, invoice *domain.Invoice, billedRates map[string]float64, ticketAddonIDs []string) error {
	for _, e := range invoice.Entries {
		stored, ok := m.entries[e.ID]
		if !ok || stored.IsLocked() || stored.InvoiceID != nil {
			return &domain.LockedEntryError{EntryID: e.ID}
		}
		if _, ok := billedRates[e.ID]; !ok {
			return &domain.ConsistencyError{Message: "no billed rate for entry " + e.ID}
		}
	}

	if invoice.ID == "" {
		invoice.ID = "inv-" + invoice.InvoiceNumber
	}
	if invoice.InvoiceNumber == "" {
		invoice.InvoiceNumber = "INV-1001"
	}

	for _, e := range invoice.Entries {
		stored := m.entries[e.ID]
		rate := billedRates[e.ID]
		stored.Billed = true
		stored.Locked = true
		stored.InvoiceID = &invoice.ID
		stored.BilledRate = &rate
		e.Billed = true
		e.Locked = true
		e.InvoiceID = &invoice.ID
		e.BilledRate = &rate
	}

	m.invoices[invoice.ID] = invoice
	return nil
}

func (m *mockInvoiceRepo) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	if inv, ok := m.invoices[id]; ok {
		return inv, nil
	}
	return nil, &domain.NotFoundError{Resource: "invoice", ID: id}
}

func (m *mockInvoiceRepo) List(ctx context.Context, clientID *string, from, to *time.Time) ([]*domain.Invoice, error) {
	out := make([]*domain.Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		out = append(out, inv)
	}
	return out, nil
}

func (m *mockInvoiceRepo) UpdateTotals(ctx context.Context, invoiceID string, totals domain.Totals) error {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return &domain.NotFoundError{Resource: "invoice", ID: invoiceID}
	}
	inv.SetTotals(totals)
	return nil
}

func (m *mockInvoiceRepo) ReplaceAddons(ctx context.Context, invoiceID string, addons []*domain.InvoiceAddon, totals domain.Totals) error {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return &domain.NotFoundError{Resource: "invoice", ID: invoiceID}
	}
	m.replacedAddons = addons
	m.replacedTotals = totals
	inv.Addons = addons
	inv.SetTotals(totals)
	return nil
}

func (m *mockInvoiceRepo) DetachEntry(ctx context.Context, invoiceID, entryID string, totals domain.Totals) error {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return &domain.NotFoundError{Resource: "invoice", ID: invoiceID}
	}
	if stored, ok := m.entries[entryID]; ok {
		stored.Billed = false
		stored.Locked = false
		stored.InvoiceID = nil
		stored.BilledRate = nil
	}
	m.detached = append(m.detached, entryID)
	inv.SetTotals(totals)
	return nil
}

func (m *mockInvoiceRepo) Delete(ctx context.Context, invoiceID string) error {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return &domain.NotFoundError{Resource: "invoice", ID: invoiceID}
	}
	for _, e := range inv.Entries {
		if stored, ok := m.entries[e.ID]; ok {
			stored.Billed = false
			stored.Locked = false
			stored.InvoiceID = nil
			stored.BilledRate = nil
		}
	}
	delete(m.invoices, invoiceID)
	m.deleted = append(m.deleted, invoiceID)
	return nil
}

func (m *mockInvoiceRepo) MarkSent(ctx context.Context, invoiceID string) error {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return &domain.NotFoundError{Resource: "invoice", ID: invoiceID}
	}
	inv.Sent = true
	m.sent = append(m.sent, invoiceID)
	return nil
}
