package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/mshaw/timevault/internal/domain"
)

func sp(s string) *string { return &s }

// fixture: one rate at $100/hr with $50/hr cost; client-a overrides it to a
// fixed $80, client-b sits under client-a, client-c has a 50% override, and
// client-d has no override anywhere.
func testFixture() (*mockClientRepo, *mockRateRepo, *mockEntryRepo, *mockTicketRepo, *mockSettingsRepo) {
	rate := &domain.BillingRate{ID: "rate-1", Name: "Standard", Rate: 100, Cost: 50, IsDefault: true}

	clientA := &domain.Client{ID: "client-a", Name: "Alpha", Type: domain.ClientTypeBusiness,
		Overrides: []*domain.RateOverride{
			{ID: "ov-1", ClientID: "client-a", BaseRateID: "rate-1", Type: domain.OverrideFixed, Value: 80},
		}}
	clientB := &domain.Client{ID: "client-b", Name: "Alpha Sub", Type: domain.ClientTypeIndividual, ParentID: sp("client-a")}
	clientC := &domain.Client{ID: "client-c", Name: "Gamma", Type: domain.ClientTypeBusiness,
		Overrides: []*domain.RateOverride{
			{ID: "ov-2", ClientID: "client-c", BaseRateID: "rate-1", Type: domain.OverridePercentage, Value: 50},
		}}
	clientD := &domain.Client{ID: "client-d", Name: "Delta", Type: domain.ClientTypeBusiness}

	clients := &mockClientRepo{clients: []*domain.Client{clientA, clientB, clientC, clientD}}
	rates := &mockRateRepo{rates: []*domain.BillingRate{rate}}
	entries := &mockEntryRepo{entries: make(map[string]*domain.TimeEntry)}
	tickets := &mockTicketRepo{tickets: make(map[string]*domain.Ticket)}
	settings := &mockSettingsRepo{values: map[string]string{
		domain.SettingInvoicePrefix:     "INV",
		domain.SettingNextInvoiceNumber: "1001",
		domain.SettingDefaultHourlyCost: "50",
	}}
	return clients, rates, entries, tickets, settings
}

func testEntry(id, clientID string, minutes int) *domain.TimeEntry {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Duration(minutes) * time.Minute)
	return &domain.TimeEntry{
		ID:            id,
		Description:   "development work",
		StartTime:     start,
		EndTime:       &end,
		Minutes:       minutes,
		Date:          start,
		ClientID:      sp(clientID),
		BillingRateID: sp("rate-1"),
		Billable:      true,
		CreatedAt:     start,
		UpdatedAt:     start,
	}
}

func newTestInvoiceService(allowRateless bool) (InvoiceService, *mockInvoiceRepo, *mockEntryRepo, *mockTicketRepo) {
	clients, rates, entries, tickets, settings := testFixture()
	invoices := newMockInvoiceRepo(entries.entries)
	svc := NewInvoiceService(invoices, entries, clients, rates, tickets, settings, allowRateless)
	return svc, invoices, entries, tickets
}

func TestGenerate_FixedOverrideEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc, _, entries, _ := newTestInvoiceService(true)

	entry := testEntry("entry-1", "client-a", 120)
	entries.entries[entry.ID] = entry

	invoice, err := svc.Generate(ctx, GenerateInput{ClientID: "client-a", EntryIDs: []string{"entry-1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if invoice.TotalMinutes != 120 {
		t.Errorf("expected 120 total minutes, got %d", invoice.TotalMinutes)
	}
	if math.Abs(invoice.TotalAmount-160) > 1e-6 {
		t.Errorf("expected amount 160, got %v", invoice.TotalAmount)
	}
	if math.Abs(invoice.TotalCost-100) > 1e-6 {
		t.Errorf("expected cost 100, got %v", invoice.TotalCost)
	}
	if math.Abs(invoice.TotalProfit-60) > 1e-6 {
		t.Errorf("expected profit 60, got %v", invoice.TotalProfit)
	}

	if !entry.Billed || !entry.Locked {
		t.Errorf("expected entry billed and locked, got billed=%v locked=%v", entry.Billed, entry.Locked)
	}
	if entry.BilledRate == nil || *entry.BilledRate != 80 {
		t.Errorf("expected billed rate snapshot 80, got %v", entry.BilledRate)
	}
	if entry.InvoiceID == nil || *entry.InvoiceID != invoice.ID {
		t.Errorf("expected entry attached to invoice %s", invoice.ID)
	}
}

func TestGenerate_PercentageOverride(t *testing.T) {
	ctx := context.Background()
	svc, _, entries, _ := newTestInvoiceService(true)

	entry := testEntry("entry-1", "client-c", 120)
	entries.entries[entry.ID] = entry

	invoice, err := svc.Generate(ctx, GenerateInput{ClientID: "client-c", EntryIDs: []string{"entry-1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 50% of $100/hr for 2 hours
	if math.Abs(invoice.TotalAmount-100) > 1e-6 {
		t.Errorf("expected amount 100, got %v", invoice.TotalAmount)
	}
	if entry.BilledRate == nil || *entry.BilledRate != 50 {
		t.Errorf("expected billed rate 50, got %v", entry.BilledRate)
	}
}

func TestGenerate_InheritedOverride(t *testing.T) {
	ctx := context.Background()
	svc, _, entries, _ := newTestInvoiceService(true)

	// client-b has no override of its own; client-a's fixed $80 applies
	entry := testEntry("entry-1", "client-b", 60)
	entries.entries[entry.ID] = entry

	invoice, err := svc.Generate(ctx, GenerateInput{ClientID: "client-a", EntryIDs: []string{"entry-1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(invoice.TotalAmount-80) > 1e-6 {
		t.Errorf("expected amount 80 from inherited override, got %v", invoice.TotalAmount)
	}
}

func TestGenerate_FallbackToBaseRate(t *testing.T) {
	ctx := context.Background()
	svc, _, entries, _ := newTestInvoiceService(true)

	entry := testEntry("entry-1", "client-d", 60)
	entries.entries[entry.ID] = entry

	invoice, err := svc.Generate(ctx, GenerateInput{ClientID: "client-d", EntryIDs: []string{"entry-1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(invoice.TotalAmount-100) > 1e-6 {
		t.Errorf("expected base rate amount 100, got %v", invoice.TotalAmount)
	}
}

func TestGenerate_DoubleBillRejected(t *testing.T) {
	ctx := context.Background()
	svc, invoices, entries, _ := newTestInvoiceService(true)

	entry := testEntry("entry-1", "client-a", 120)
	entries.entries[entry.ID] = entry

	if _, err := svc.Generate(ctx, GenerateInput{ClientID: "client-a", EntryIDs: []string{"entry-1"}}); err != nil {
		t.Fatalf("first generation failed: %v", err)
	}

	_, err := svc.Generate(ctx, GenerateInput{ClientID: "client-a", EntryIDs: []string{"entry-1"}})
	var lockErr *domain.LockedEntryError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected LockedEntryError, got %v", err)
	}
	if len(invoices.invoices) != 1 {
		t.Errorf("expected exactly one invoice, got %d", len(invoices.invoices))
	}
}

func TestGenerate_EntryOutsideSubtreeRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, entries, _ := newTestInvoiceService(true)

	// client-d is not in client-a's subtree
	entry := testEntry("entry-1", "client-d", 60)
	entries.entries[entry.ID] = entry

	_, err := svc.Generate(ctx, GenerateInput{ClientID: "client-a", EntryIDs: []string{"entry-1"}})
	var valErr *domain.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestGenerate_RatelessRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, entries, _ := newTestInvoiceService(false)

	// The default rate existing does not save a rateless entry
	entry := testEntry("entry-1", "client-d", 60)
	entry.BillingRateID = nil
	entries.entries[entry.ID] = entry

	_, err := svc.Generate(ctx, GenerateInput{ClientID: "client-d", EntryIDs: []string{"entry-1"}})
	var valErr *domain.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError for rateless entry, got %v", err)
	}
}

func TestGenerate_RatelessAllowedBillsAtZero(t *testing.T) {
	ctx := context.Background()
	svc, _, entries, _ := newTestInvoiceService(true)

	// An entry with no billing rate bills at zero even though a default
	// rate is configured; the default is never substituted in.
	entry := testEntry("entry-1", "client-d", 60)
	entry.BillingRateID = nil
	entries.entries[entry.ID] = entry

	invoice, err := svc.Generate(ctx, GenerateInput{ClientID: "client-d", EntryIDs: []string{"entry-1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if invoice.TotalAmount != 0 {
		t.Errorf("expected zero amount, got %v", invoice.TotalAmount)
	}
	if entry.BilledRate == nil || *entry.BilledRate != 0 {
		t.Errorf("expected billed rate snapshot 0, got %v", entry.BilledRate)
	}
	// cost still accrues at the default hourly cost setting
	if math.Abs(invoice.TotalCost-50) > 1e-6 {
		t.Errorf("expected cost 50, got %v", invoice.TotalCost)
	}
}

func TestGenerate_RatelessMixedWithRated(t *testing.T) {
	ctx := context.Background()
	svc, _, entries, _ := newTestInvoiceService(true)

	rated := testEntry("entry-1", "client-d", 60)
	rateless := testEntry("entry-2", "client-d", 60)
	rateless.BillingRateID = nil
	entries.entries[rated.ID] = rated
	entries.entries[rateless.ID] = rateless

	invoice, err := svc.Generate(ctx, GenerateInput{ClientID: "client-d", EntryIDs: []string{"entry-1", "entry-2"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only the rated hour bills; the rateless hour contributes minutes and
	// cost but no amount.
	if math.Abs(invoice.TotalAmount-100) > 1e-6 {
		t.Errorf("expected amount 100, got %v", invoice.TotalAmount)
	}
	if invoice.TotalMinutes != 120 {
		t.Errorf("expected 120 minutes, got %d", invoice.TotalMinutes)
	}
	if math.Abs(invoice.TotalCost-100) > 1e-6 {
		t.Errorf("expected cost 100, got %v", invoice.TotalCost)
	}
}

func TestGenerate_TicketAddonIncluded(t *testing.T) {
	ctx := context.Background()
	svc, _, entries, tickets := newTestInvoiceService(true)

	entry := testEntry("entry-1", "client-a", 120)
	entries.entries[entry.ID] = entry

	tickets.tickets["ticket-1"] = &domain.Ticket{ID: "ticket-1", Title: "Support", ClientID: sp("client-a"), StatusID: "status-open"}
	tickets.addons = append(tickets.addons, &domain.TicketAddon{
		ID: "ta-1", TicketID: "ticket-1", Description: "Domain renewal", Amount: 25, Cost: 10,
	})

	invoice, err := svc.Generate(ctx, GenerateInput{
		ClientID:       "client-a",
		EntryIDs:       []string{"entry-1"},
		TicketAddonIDs: []string{"ta-1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(invoice.TotalAmount-185) > 1e-6 {
		t.Errorf("expected amount 185 (160 entry + 25 addon), got %v", invoice.TotalAmount)
	}
	if math.Abs(invoice.TotalCost-110) > 1e-6 {
		t.Errorf("expected cost 110, got %v", invoice.TotalCost)
	}
	if len(invoice.Addons) != 1 {
		t.Fatalf("expected 1 addon line, got %d", len(invoice.Addons))
	}
	if invoice.Addons[0].TicketAddonID == nil || *invoice.Addons[0].TicketAddonID != "ta-1" {
		t.Errorf("expected addon line linked to ticket addon ta-1")
	}
}

func TestGenerate_UnknownTicketAddonRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, entries, _ := newTestInvoiceService(true)

	entry := testEntry("entry-1", "client-a", 60)
	entries.entries[entry.ID] = entry

	_, err := svc.Generate(ctx, GenerateInput{
		ClientID:       "client-a",
		EntryIDs:       []string{"entry-1"},
		TicketAddonIDs: []string{"nope"},
	})
	var valErr *domain.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestUpdateAddons_RecomputesTotals(t *testing.T) {
	ctx := context.Background()
	svc, invoices, entries, _ := newTestInvoiceService(true)

	entry := testEntry("entry-1", "client-a", 120)
	entries.entries[entry.ID] = entry

	invoice, err := svc.Generate(ctx, GenerateInput{ClientID: "client-a", EntryIDs: []string{"entry-1"}})
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	updated, err := svc.UpdateAddons(ctx, invoice.ID, []*domain.InvoiceAddon{
		{ID: "temp-1", Description: "Rush fee", Amount: 40, Cost: 0, Quantity: 2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// entry 160/100 plus addon 2 x 40
	if math.Abs(updated.TotalAmount-240) > 1e-6 {
		t.Errorf("expected amount 240, got %v", updated.TotalAmount)
	}
	if math.Abs(updated.TotalProfit-140) > 1e-6 {
		t.Errorf("expected profit 140, got %v", updated.TotalProfit)
	}
	if math.Abs(invoices.replacedTotals.Amount-240) > 1e-6 {
		t.Errorf("expected repository totals 240, got %v", invoices.replacedTotals.Amount)
	}

	// totals invariant: stored totals match a fresh sum over lines
	var check domain.Totals
	for _, e := range updated.Entries {
		hours := e.Hours()
		amount := hours * *e.BilledRate
		cost := hours * 50
		check.Add(domain.Totals{Minutes: e.Minutes, Amount: amount, Cost: cost, Profit: amount - cost})
	}
	for _, a := range updated.Addons {
		check.Add(a.Totals())
	}
	if err := updated.CheckTotals(check); err != nil {
		t.Errorf("totals invariant violated: %v", err)
	}
}

func TestUpdateAddons_SentInvoiceRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, entries, _ := newTestInvoiceService(true)

	entry := testEntry("entry-1", "client-a", 60)
	entries.entries[entry.ID] = entry

	invoice, err := svc.Generate(ctx, GenerateInput{ClientID: "client-a", EntryIDs: []string{"entry-1"}})
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}
	if err := svc.MarkSent(ctx, invoice.ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}

	_, err = svc.UpdateAddons(ctx, invoice.ID, nil)
	var sentErr *domain.SentInvoiceError
	if !errors.As(err, &sentErr) {
		t.Fatalf("expected SentInvoiceError, got %v", err)
	}
}

func TestDetachEntry_ReleasesAndRecomputes(t *testing.T) {
	ctx := context.Background()
	svc, invoices, entries, _ := newTestInvoiceService(true)

	e1 := testEntry("entry-1", "client-a", 120)
	e2 := testEntry("entry-2", "client-a", 60)
	entries.entries[e1.ID] = e1
	entries.entries[e2.ID] = e2

	invoice, err := svc.Generate(ctx, GenerateInput{ClientID: "client-a", EntryIDs: []string{"entry-1", "entry-2"}})
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	updated, err := svc.DetachEntry(ctx, invoice.ID, "entry-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.TotalMinutes != 120 {
		t.Errorf("expected 120 minutes after detach, got %d", updated.TotalMinutes)
	}
	if math.Abs(updated.TotalAmount-160) > 1e-6 {
		t.Errorf("expected amount 160 after detach, got %v", updated.TotalAmount)
	}
	if len(invoices.detached) != 1 || invoices.detached[0] != "entry-2" {
		t.Errorf("expected entry-2 detached, got %v", invoices.detached)
	}
	if e2.Billed || e2.Locked || e2.InvoiceID != nil {
		t.Errorf("expected entry-2 released, got billed=%v locked=%v", e2.Billed, e2.Locked)
	}
}

func TestDetachEntry_SentInvoiceRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, entries, _ := newTestInvoiceService(true)

	entry := testEntry("entry-1", "client-a", 60)
	entries.entries[entry.ID] = entry

	invoice, err := svc.Generate(ctx, GenerateInput{ClientID: "client-a", EntryIDs: []string{"entry-1"}})
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}
	if err := svc.MarkSent(ctx, invoice.ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}

	_, err = svc.DetachEntry(ctx, invoice.ID, "entry-1")
	var sentErr *domain.SentInvoiceError
	if !errors.As(err, &sentErr) {
		t.Fatalf("expected SentInvoiceError, got %v", err)
	}
}

func TestDelete_DraftReleasesEntries(t *testing.T) {
	ctx := context.Background()
	svc, invoices, entries, _ := newTestInvoiceService(true)

	entry := testEntry("entry-1", "client-a", 60)
	entries.entries[entry.ID] = entry

	invoice, err := svc.Generate(ctx, GenerateInput{ClientID: "client-a", EntryIDs: []string{"entry-1"}})
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	if err := svc.Delete(ctx, invoice.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Billed || entry.Locked || entry.InvoiceID != nil {
		t.Errorf("expected entry released after delete")
	}
	if len(invoices.invoices) != 0 {
		t.Errorf("expected invoice removed")
	}
}

func TestDelete_SentInvoiceRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, entries, _ := newTestInvoiceService(true)

	entry := testEntry("entry-1", "client-a", 60)
	entries.entries[entry.ID] = entry

	invoice, err := svc.Generate(ctx, GenerateInput{ClientID: "client-a", EntryIDs: []string{"entry-1"}})
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}
	if err := svc.MarkSent(ctx, invoice.ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}

	err = svc.Delete(ctx, invoice.ID)
	var sentErr *domain.SentInvoiceError
	if !errors.As(err, &sentErr) {
		t.Fatalf("expected SentInvoiceError, got %v", err)
	}
}

func TestMarkSent_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc, invoices, entries, _ := newTestInvoiceService(true)

	entry := testEntry("entry-1", "client-a", 60)
	entries.entries[entry.ID] = entry

	invoice, err := svc.Generate(ctx, GenerateInput{ClientID: "client-a", EntryIDs: []string{"entry-1"}})
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	if err := svc.MarkSent(ctx, invoice.ID); err != nil {
		t.Fatalf("first mark sent failed: %v", err)
	}
	if err := svc.MarkSent(ctx, invoice.ID); err != nil {
		t.Fatalf("second mark sent should be a no-op, got %v", err)
	}
	if len(invoices.sent) != 1 {
		t.Errorf("expected one repository MarkSent call, got %d", len(invoices.sent))
	}
}

func TestUnbilledForClient_CoversSubtree(t *testing.T) {
	ctx := context.Background()
	svc, _, entries, _ := newTestInvoiceService(true)

	e1 := testEntry("entry-1", "client-a", 60)
	e2 := testEntry("entry-2", "client-b", 30) // child of client-a
	e3 := testEntry("entry-3", "client-d", 45) // unrelated
	entries.entries[e1.ID] = e1
	entries.entries[e2.ID] = e2
	entries.entries[e3.ID] = e3

	work, err := svc.UnbilledForClient(ctx, "client-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(work.Entries) != 2 {
		t.Errorf("expected 2 entries from the subtree, got %d", len(work.Entries))
	}
	for _, e := range work.Entries {
		if e.ID == "entry-3" {
			t.Errorf("entry-3 does not belong to client-a's subtree")
		}
	}
}

func TestGenerate_EmptyInputRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestInvoiceService(true)

	_, err := svc.Generate(ctx, GenerateInput{ClientID: "client-a"})
	var valErr *domain.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError for empty invoice, got %v", err)
	}
}
