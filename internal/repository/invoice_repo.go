package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mshaw/timevault/internal/db"
	"github.com/mshaw/timevault/internal/domain"
)

// InvoiceRepo is a SQLite implementation of InvoiceRepository
type InvoiceRepo struct {
	db *db.DB
}

// NewInvoiceRepo creates a new InvoiceRepo
func NewInvoiceRepo(database *db.DB) *InvoiceRepo {
	return &InvoiceRepo{db: database}
}

const invoiceColumns = `id, invoice_number, client_id, date, total_minutes, total_amount,
	       total_cost, total_profit, sent, created_at, updated_at`

// CreateWithItems persists a generated invoice atomically. Entry locking
// uses a guarded UPDATE: an entry claimed by another invoice between the
// caller's read and this write matches zero rows, which aborts the whole
// transaction, so an invoice never exists without its entries locked and no
// entry is ever locked without its invoice.
func (r *InvoiceRepo) CreateWithItems(ctx context.Context, invoice *domain.Invoice, billedRates map[string]float64, ticketAddonIDs []string) error {
	if invoice.ID == "" {
		invoice.ID = newID()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Allocate an invoice number from settings when the caller did not
	// supply one, inside the same transaction as the insert that uses it.
	if invoice.InvoiceNumber == "" {
		number, err := nextInvoiceNumber(ctx, tx)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number
	}

	if err := invoice.Validate(); err != nil {
		return fmt.Errorf("invalid invoice: %w", err)
	}

	insertInvoice := `
		INSERT INTO invoices (
			id, invoice_number, client_id, date, total_minutes, total_amount,
			total_cost, total_profit, sent, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, insertInvoice,
		invoice.ID,
		invoice.InvoiceNumber,
		invoice.ClientID,
		invoice.Date.Format(timeLayout),
		invoice.TotalMinutes,
		invoice.TotalAmount,
		invoice.TotalCost,
		invoice.TotalProfit,
		invoice.Sent,
		invoice.CreatedAt.Format(timeLayout),
		invoice.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	for _, addon := range invoice.Addons {
		if addon.ID == "" || domain.IsTempID(addon.ID) {
			addon.ID = newID()
		}
		addon.InvoiceID = invoice.ID
		if err := insertAddon(ctx, tx, addon); err != nil {
			return err
		}
	}

	// Claim every entry for this invoice. The guard refuses entries that
	// are already billed, locked, or attached elsewhere.
	claim, err := tx.PrepareContext(ctx, `
		UPDATE time_entries
		SET billed = 1, locked = 1, invoice_id = ?, billed_rate = ?, updated_at = ?
		WHERE id = ? AND billed = 0 AND locked = 0 AND invoice_id IS NULL
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare entry claim: %w", err)
	}
	defer claim.Close()

	updateTime := formatTime()
	for _, entry := range invoice.Entries {
		rate, ok := billedRates[entry.ID]
		if !ok {
			return &domain.ConsistencyError{Message: "no billed rate computed for entry " + entry.ID}
		}

		result, err := claim.ExecContext(ctx, invoice.ID, rate, updateTime, entry.ID)
		if err != nil {
			return fmt.Errorf("failed to lock entry %s: %w", entry.ID, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected for entry %s: %w", entry.ID, err)
		}
		if rows == 0 {
			return &domain.LockedEntryError{EntryID: entry.ID}
		}

		entry.Billed = true
		entry.Locked = true
		entry.InvoiceID = &invoice.ID
		entry.BilledRate = &rate
	}

	// Consume ticket addons that were rolled into this invoice.
	for _, addonID := range ticketAddonIDs {
		result, err := tx.ExecContext(ctx,
			"UPDATE ticket_addons SET billed = 1 WHERE id = ? AND billed = 0", addonID)
		if err != nil {
			return fmt.Errorf("failed to mark ticket addon %s billed: %w", addonID, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected for ticket addon %s: %w", addonID, err)
		}
		if rows == 0 {
			return &domain.ValidationError{Field: "ticketAddonId", Message: "ticket addon " + addonID + " is missing or already billed"}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// nextInvoiceNumber reads and increments the invoice numbering settings
func nextInvoiceNumber(ctx context.Context, tx *sql.Tx) (string, error) {
	var prefix, next string
	err := tx.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = ?", domain.SettingInvoicePrefix).Scan(&prefix)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to read invoice prefix: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = ?", domain.SettingNextInvoiceNumber).Scan(&next)
	if err != nil {
		return "", fmt.Errorf("failed to read next invoice number: %w", err)
	}

	seq, err := strconv.Atoi(next)
	if err != nil {
		return "", fmt.Errorf("next invoice number %q is not numeric: %w", next, err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE settings SET value = ? WHERE key = ?", strconv.Itoa(seq+1), domain.SettingNextInvoiceNumber)
	if err != nil {
		return "", fmt.Errorf("failed to advance invoice number: %w", err)
	}

	if prefix == "" {
		return strconv.Itoa(seq), nil
	}
	return fmt.Sprintf("%s-%d", prefix, seq), nil
}

func insertAddon(ctx context.Context, tx *sql.Tx, addon *domain.InvoiceAddon) error {
	if err := addon.Validate(); err != nil {
		return fmt.Errorf("invalid invoice addon: %w", err)
	}

	query := `
		INSERT INTO invoice_addons (id, invoice_id, description, amount, cost, quantity, profit, ticket_addon_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := tx.ExecContext(ctx, query,
		addon.ID,
		addon.InvoiceID,
		addon.Description,
		addon.Amount,
		addon.Cost,
		addon.Quantity,
		addon.Profit,
		nullStr(addon.TicketAddonID),
	)
	if err != nil {
		return fmt.Errorf("failed to create invoice addon: %w", err)
	}
	return nil
}

// GetByID retrieves an invoice with its entries, addons, and client
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	query := "SELECT " + invoiceColumns + " FROM invoices WHERE id = ?"

	invoice, err := scanInvoice(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "invoice", ID: id}
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if err := r.loadRelated(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// List retrieves invoices with optional client and date filters, most
// recent first
func (r *InvoiceRepo) List(ctx context.Context, clientID *string, from, to *time.Time) ([]*domain.Invoice, error) {
	query := "SELECT " + invoiceColumns + " FROM invoices WHERE 1=1"
	args := make([]interface{}, 0)

	if clientID != nil {
		query += " AND client_id = ?"
		args = append(args, *clientID)
	}
	if from != nil {
		query += " AND date >= ?"
		args = append(args, from.Format(timeLayout))
	}
	if to != nil {
		query += " AND date <= ?"
		args = append(args, to.Format(timeLayout))
	}

	query += " ORDER BY date DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]*domain.Invoice, 0)
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

// UpdateTotals overwrites an invoice's total fields
func (r *InvoiceRepo) UpdateTotals(ctx context.Context, invoiceID string, totals domain.Totals) error {
	query := `
		UPDATE invoices
		SET total_minutes = ?, total_amount = ?, total_cost = ?, total_profit = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		totals.Minutes, totals.Amount, totals.Cost, totals.Profit, formatTime(), invoiceID)
	if err != nil {
		return fmt.Errorf("failed to update invoice totals: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.NotFoundError{Resource: "invoice", ID: invoiceID}
	}
	return nil
}

// requireDraft rejects edits to a sent invoice from inside the transaction,
// so a MarkSent racing the caller's earlier read cannot slip an edit through.
func requireDraft(ctx context.Context, tx *sql.Tx, invoiceID string) error {
	var sent bool
	err := tx.QueryRowContext(ctx, "SELECT sent FROM invoices WHERE id = ?", invoiceID).Scan(&sent)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Resource: "invoice", ID: invoiceID}
	}
	if err != nil {
		return fmt.Errorf("failed to check invoice state: %w", err)
	}
	if sent {
		return &domain.SentInvoiceError{InvoiceID: invoiceID}
	}
	return nil
}

// ReplaceAddons reconciles the invoice's addon rows against the given list
// and writes the new totals, all in one transaction. Addons with "temp-"
// ids are created, existing ids are updated in place, and rows missing from
// the list are deleted.
func (r *InvoiceRepo) ReplaceAddons(ctx context.Context, invoiceID string, addons []*domain.InvoiceAddon, totals domain.Totals) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireDraft(ctx, tx, invoiceID); err != nil {
		return err
	}

	// Delete rows that are not in the new list.
	keep := make([]interface{}, 0, len(addons)+1)
	keep = append(keep, invoiceID)
	for _, a := range addons {
		if !domain.IsTempID(a.ID) && a.ID != "" {
			keep = append(keep, a.ID)
		}
	}
	del := "DELETE FROM invoice_addons WHERE invoice_id = ?"
	if len(keep) > 1 {
		del += " AND id NOT IN (" + placeholders(len(keep)-1) + ")"
	}
	if _, err := tx.ExecContext(ctx, del, keep...); err != nil {
		return fmt.Errorf("failed to delete removed addons: %w", err)
	}

	for _, addon := range addons {
		addon.InvoiceID = invoiceID
		if domain.IsTempID(addon.ID) || addon.ID == "" {
			addon.ID = newID()
			if err := insertAddon(ctx, tx, addon); err != nil {
				return err
			}
			continue
		}

		if err := addon.Validate(); err != nil {
			return fmt.Errorf("invalid invoice addon: %w", err)
		}
		update := `
			UPDATE invoice_addons
			SET description = ?, amount = ?, cost = ?, quantity = ?, profit = ?, ticket_addon_id = ?
			WHERE id = ? AND invoice_id = ?
		`
		result, err := tx.ExecContext(ctx, update,
			addon.Description, addon.Amount, addon.Cost, addon.Quantity, addon.Profit,
			nullStr(addon.TicketAddonID), addon.ID, invoiceID)
		if err != nil {
			return fmt.Errorf("failed to update addon %s: %w", addon.ID, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected for addon %s: %w", addon.ID, err)
		}
		if rows == 0 {
			return &domain.NotFoundError{Resource: "invoice addon", ID: addon.ID}
		}
	}

	if err := updateTotalsTx(ctx, tx, invoiceID, totals); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DetachEntry releases one entry back to unbilled and writes the new totals
func (r *InvoiceRepo) DetachEntry(ctx context.Context, invoiceID, entryID string, totals domain.Totals) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireDraft(ctx, tx, invoiceID); err != nil {
		return err
	}

	release := `
		UPDATE time_entries
		SET billed = 0, locked = 0, invoice_id = NULL, billed_rate = NULL, updated_at = ?
		WHERE id = ? AND invoice_id = ?
	`
	result, err := tx.ExecContext(ctx, release, formatTime(), entryID, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to release entry %s: %w", entryID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.NotFoundError{Resource: "time entry", ID: entryID}
	}

	if err := updateTotalsTx(ctx, tx, invoiceID, totals); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete removes a draft invoice, releasing its entries and ticket addons
// and deleting its addon rows, all in one transaction.
func (r *InvoiceRepo) Delete(ctx context.Context, invoiceID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireDraft(ctx, tx, invoiceID); err != nil {
		return err
	}

	release := `
		UPDATE time_entries
		SET billed = 0, locked = 0, invoice_id = NULL, billed_rate = NULL, updated_at = ?
		WHERE invoice_id = ?
	`
	if _, err := tx.ExecContext(ctx, release, formatTime(), invoiceID); err != nil {
		return fmt.Errorf("failed to release entries: %w", err)
	}

	// Ticket addons consumed by this invoice become billable again.
	releaseAddons := `
		UPDATE ticket_addons
		SET billed = 0
		WHERE id IN (SELECT ticket_addon_id FROM invoice_addons WHERE invoice_id = ? AND ticket_addon_id IS NOT NULL)
	`
	if _, err := tx.ExecContext(ctx, releaseAddons, invoiceID); err != nil {
		return fmt.Errorf("failed to release ticket addons: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM invoice_addons WHERE invoice_id = ?", invoiceID); err != nil {
		return fmt.Errorf("failed to delete invoice addons: %w", err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM invoices WHERE id = ?", invoiceID)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.NotFoundError{Resource: "invoice", ID: invoiceID}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// MarkSent finalizes an invoice. The transition is one-way.
func (r *InvoiceRepo) MarkSent(ctx context.Context, invoiceID string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE invoices SET sent = 1, updated_at = ? WHERE id = ?", formatTime(), invoiceID)
	if err != nil {
		return fmt.Errorf("failed to mark invoice sent: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.NotFoundError{Resource: "invoice", ID: invoiceID}
	}
	return nil
}

func updateTotalsTx(ctx context.Context, tx *sql.Tx, invoiceID string, totals domain.Totals) error {
	query := `
		UPDATE invoices
		SET total_minutes = ?, total_amount = ?, total_cost = ?, total_profit = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := tx.ExecContext(ctx, query,
		totals.Minutes, totals.Amount, totals.Cost, totals.Profit, formatTime(), invoiceID)
	if err != nil {
		return fmt.Errorf("failed to update invoice totals: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.NotFoundError{Resource: "invoice", ID: invoiceID}
	}
	return nil
}

// loadRelated populates Entries, Addons, and Client on an invoice
func (r *InvoiceRepo) loadRelated(ctx context.Context, invoice *domain.Invoice) error {
	entryQuery := "SELECT " + entryColumns + " FROM time_entries WHERE invoice_id = ? ORDER BY date DESC, created_at DESC"
	rows, err := r.db.QueryContext(ctx, entryQuery, invoice.ID)
	if err != nil {
		return fmt.Errorf("failed to load invoice entries: %w", err)
	}
	defer rows.Close()

	invoice.Entries = make([]*domain.TimeEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return fmt.Errorf("failed to scan invoice entry: %w", err)
		}
		invoice.Entries = append(invoice.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating invoice entries: %w", err)
	}

	addonQuery := `
		SELECT id, invoice_id, description, amount, cost, quantity, profit, ticket_addon_id
		FROM invoice_addons
		WHERE invoice_id = ?
		ORDER BY rowid
	`
	addonRows, err := r.db.QueryContext(ctx, addonQuery, invoice.ID)
	if err != nil {
		return fmt.Errorf("failed to load invoice addons: %w", err)
	}
	defer addonRows.Close()

	invoice.Addons = make([]*domain.InvoiceAddon, 0)
	for addonRows.Next() {
		addon := &domain.InvoiceAddon{}
		var ticketAddonID sql.NullString
		err := addonRows.Scan(
			&addon.ID,
			&addon.InvoiceID,
			&addon.Description,
			&addon.Amount,
			&addon.Cost,
			&addon.Quantity,
			&addon.Profit,
			&ticketAddonID,
		)
		if err != nil {
			return fmt.Errorf("failed to scan invoice addon: %w", err)
		}
		addon.TicketAddonID = strPtr(ticketAddonID)
		invoice.Addons = append(invoice.Addons, addon)
	}
	if err := addonRows.Err(); err != nil {
		return fmt.Errorf("error iterating invoice addons: %w", err)
	}

	clientQuery := "SELECT " + clientColumns + " FROM clients WHERE id = ?"
	client, err := scanClient(r.db.QueryRowContext(ctx, clientQuery, invoice.ClientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil // dangling client reference; leave Client nil
		}
		return fmt.Errorf("failed to load invoice client: %w", err)
	}
	invoice.Client = client

	return nil
}

// scanInvoice parses an invoice row
func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	invoice := &domain.Invoice{}
	var date, createdAt, updatedAt string

	err := row.Scan(
		&invoice.ID,
		&invoice.InvoiceNumber,
		&invoice.ClientID,
		&date,
		&invoice.TotalMinutes,
		&invoice.TotalAmount,
		&invoice.TotalCost,
		&invoice.TotalProfit,
		&invoice.Sent,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if invoice.Date, err = parseTime(date); err != nil {
		return nil, fmt.Errorf("failed to parse date: %w", err)
	}
	if invoice.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if invoice.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return invoice, nil
}
