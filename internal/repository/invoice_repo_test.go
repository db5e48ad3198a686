package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mshaw/timevault/internal/db"
	"github.com/mshaw/timevault/internal/domain"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"), "test-key")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.RunMigrations(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return database
}

// seedSentInvoice inserts a client, a sent invoice, its addon line, and a
// locked entry attached to it.
func seedSentInvoice(t *testing.T, database *db.DB) {
	t.Helper()
	stmts := []string{
		`INSERT INTO clients (id, name, created_at, updated_at)
		 VALUES ('client-1', 'Acme', '2026-03-02T00:00:00Z', '2026-03-02T00:00:00Z')`,
		`INSERT INTO invoices (id, invoice_number, client_id, date, total_minutes, total_amount, sent, created_at, updated_at)
		 VALUES ('inv-1', 'INV-1001', 'client-1', '2026-03-02T00:00:00Z', 60, 100, 1, '2026-03-02T00:00:00Z', '2026-03-02T00:00:00Z')`,
		`INSERT INTO invoice_addons (id, invoice_id, description, amount, quantity)
		 VALUES ('addon-1', 'inv-1', 'Domain renewal', 20, 1)`,
		`INSERT INTO time_entries (id, description, start_time, minutes, date, client_id, billed, locked, invoice_id, billed_rate, created_at, updated_at)
		 VALUES ('entry-1', 'work', '2026-03-02T09:00:00Z', 60, '2026-03-02T00:00:00Z', 'client-1', 1, 1, 'inv-1', 100, '2026-03-02T00:00:00Z', '2026-03-02T00:00:00Z')`,
	}
	for _, stmt := range stmts {
		if _, err := database.Exec(stmt); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
}

// The store itself refuses edits to a sent invoice, so a MarkSent racing a
// caller that read the invoice as a draft cannot slip a write through.

func TestReplaceAddons_SentInvoiceGuardedInStore(t *testing.T) {
	database := openTestDB(t)
	seedSentInvoice(t, database)
	repo := NewInvoiceRepo(database)
	ctx := context.Background()

	err := repo.ReplaceAddons(ctx, "inv-1", nil, domain.Totals{Minutes: 60, Amount: 100})
	var sentErr *domain.SentInvoiceError
	if !errors.As(err, &sentErr) {
		t.Fatalf("expected SentInvoiceError, got %v", err)
	}

	var addons int
	if err := database.QueryRow("SELECT COUNT(*) FROM invoice_addons WHERE invoice_id = 'inv-1'").Scan(&addons); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if addons != 1 {
		t.Errorf("expected addon line untouched, got %d rows", addons)
	}
}

func TestDetachEntry_SentInvoiceGuardedInStore(t *testing.T) {
	database := openTestDB(t)
	seedSentInvoice(t, database)
	repo := NewInvoiceRepo(database)
	ctx := context.Background()

	err := repo.DetachEntry(ctx, "inv-1", "entry-1", domain.Totals{})
	var sentErr *domain.SentInvoiceError
	if !errors.As(err, &sentErr) {
		t.Fatalf("expected SentInvoiceError, got %v", err)
	}

	entry, err := NewEntryRepo(database).GetByID(ctx, "entry-1")
	if err != nil {
		t.Fatalf("failed to reload entry: %v", err)
	}
	if !entry.Locked || entry.InvoiceID == nil {
		t.Errorf("expected entry to stay attached, got locked=%v invoiceID=%v", entry.Locked, entry.InvoiceID)
	}
}

func TestDelete_SentInvoiceGuardedInStore(t *testing.T) {
	database := openTestDB(t)
	seedSentInvoice(t, database)
	repo := NewInvoiceRepo(database)
	ctx := context.Background()

	err := repo.Delete(ctx, "inv-1")
	var sentErr *domain.SentInvoiceError
	if !errors.As(err, &sentErr) {
		t.Fatalf("expected SentInvoiceError, got %v", err)
	}

	if _, err := repo.GetByID(ctx, "inv-1"); err != nil {
		t.Fatalf("expected invoice to survive, got %v", err)
	}
}

func TestReplaceAddons_DraftReconciles(t *testing.T) {
	database := openTestDB(t)
	seedSentInvoice(t, database)
	if _, err := database.Exec("UPDATE invoices SET sent = 0 WHERE id = 'inv-1'"); err != nil {
		t.Fatalf("failed to reopen invoice: %v", err)
	}
	repo := NewInvoiceRepo(database)
	ctx := context.Background()

	// One temp line to create; the seeded addon-1 is absent, so it goes.
	addons := []*domain.InvoiceAddon{
		{ID: "temp-1", Description: "Rush fee", Amount: 40, Quantity: 1, Profit: 40},
	}
	if err := repo.ReplaceAddons(ctx, "inv-1", addons, domain.Totals{Minutes: 60, Amount: 140, Profit: 40}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	invoice, err := repo.GetByID(ctx, "inv-1")
	if err != nil {
		t.Fatalf("failed to reload invoice: %v", err)
	}
	if len(invoice.Addons) != 1 {
		t.Fatalf("expected 1 addon line, got %d", len(invoice.Addons))
	}
	if invoice.Addons[0].Description != "Rush fee" {
		t.Errorf("expected reconciled addon, got %q", invoice.Addons[0].Description)
	}
	if domain.IsTempID(invoice.Addons[0].ID) {
		t.Errorf("expected a persisted id, got %q", invoice.Addons[0].ID)
	}
	if invoice.TotalAmount != 140 {
		t.Errorf("expected totals written, got %v", invoice.TotalAmount)
	}
}
