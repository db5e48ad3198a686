package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mshaw/timevault/internal/db"
	"github.com/mshaw/timevault/internal/domain"
)

// EntryRepo is a SQLite implementation of TimeEntryRepository
type EntryRepo struct {
	db *db.DB
}

// NewEntryRepo creates a new EntryRepo
func NewEntryRepo(database *db.DB) *EntryRepo {
	return &EntryRepo{db: database}
}

const entryColumns = `id, description, start_time, end_time, minutes, date, client_id, ticket_id,
	       billing_rate_id, billable, billed, locked, invoice_id, billed_rate, created_at, updated_at`

// Create inserts a new time entry into the database
func (r *EntryRepo) Create(ctx context.Context, entry *domain.TimeEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid time entry: %w", err)
	}
	if entry.ID == "" {
		entry.ID = newID()
	}

	query := `
		INSERT INTO time_entries (
			id, description, start_time, end_time, minutes, date, client_id, ticket_id,
			billing_rate_id, billable, billed, locked, invoice_id, billed_rate, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Description,
		entry.StartTime.Format(timeLayout),
		nullTime(entry.EndTime),
		entry.Minutes,
		entry.Date.Format(timeLayout),
		nullStr(entry.ClientID),
		nullStr(entry.TicketID),
		nullStr(entry.BillingRateID),
		entry.Billable,
		entry.Billed,
		entry.Locked,
		nullStr(entry.InvoiceID),
		nullFloat(entry.BilledRate),
		entry.CreatedAt.Format(timeLayout),
		entry.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create time entry: %w", err)
	}
	return nil
}

// GetByID retrieves a time entry by ID
func (r *EntryRepo) GetByID(ctx context.Context, id string) (*domain.TimeEntry, error) {
	query := "SELECT " + entryColumns + " FROM time_entries WHERE id = ?"

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "time entry", ID: id}
		}
		return nil, fmt.Errorf("failed to get time entry: %w", err)
	}
	return entry, nil
}

// Update updates an unbilled time entry. The guard is in the statement
// itself: a billed or locked row never matches, so a concurrent invoice
// cannot be outrun between a read and this write.
func (r *EntryRepo) Update(ctx context.Context, entry *domain.TimeEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid time entry: %w", err)
	}

	query := `
		UPDATE time_entries
		SET description = ?, start_time = ?, end_time = ?, minutes = ?, date = ?,
		    client_id = ?, ticket_id = ?, billing_rate_id = ?, billable = ?, updated_at = ?
		WHERE id = ? AND billed = 0 AND locked = 0
	`

	entry.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		entry.Description,
		entry.StartTime.Format(timeLayout),
		nullTime(entry.EndTime),
		entry.Minutes,
		entry.Date.Format(timeLayout),
		nullStr(entry.ClientID),
		nullStr(entry.TicketID),
		nullStr(entry.BillingRateID),
		entry.Billable,
		entry.UpdatedAt.Format(timeLayout),
		entry.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update time entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return r.guardError(ctx, entry.ID)
	}
	return nil
}

// Delete removes an unbilled time entry
func (r *EntryRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM time_entries WHERE id = ? AND billed = 0 AND locked = 0", id)
	if err != nil {
		return fmt.Errorf("failed to delete time entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return r.guardError(ctx, id)
	}
	return nil
}

// guardError distinguishes a missing entry from a locked one after a guarded
// statement matched no rows.
func (r *EntryRepo) guardError(ctx context.Context, id string) error {
	locked, err := r.IsLocked(ctx, id)
	if err != nil {
		return err
	}
	if locked {
		return &domain.LockedEntryError{EntryID: id}
	}
	return &domain.NotFoundError{Resource: "time entry", ID: id}
}

// List retrieves time entries with optional filters, most recent date first
func (r *EntryRepo) List(ctx context.Context, clientID *string, start, end *time.Time, includeBilled bool) ([]*domain.TimeEntry, error) {
	query := "SELECT " + entryColumns + " FROM time_entries WHERE 1=1"
	args := make([]interface{}, 0)

	if clientID != nil {
		query += " AND client_id = ?"
		args = append(args, *clientID)
	}
	if start != nil {
		query += " AND date >= ?"
		args = append(args, start.Format(timeLayout))
	}
	if end != nil {
		query += " AND date <= ?"
		args = append(args, end.Format(timeLayout))
	}
	if !includeBilled {
		query += " AND billed = 0"
	}

	query += " ORDER BY date DESC, created_at DESC"

	return r.queryEntries(ctx, query, args...)
}

// UnbilledForClients retrieves billable, unbilled entries for any of the
// given clients, most recent date first with creation order breaking ties
func (r *EntryRepo) UnbilledForClients(ctx context.Context, clientIDs []string) ([]*domain.TimeEntry, error) {
	if len(clientIDs) == 0 {
		return []*domain.TimeEntry{}, nil
	}

	query := "SELECT " + entryColumns + `
		FROM time_entries
		WHERE billable = 1
		  AND billed = 0
		  AND invoice_id IS NULL
		  AND client_id IN (` + placeholders(len(clientIDs)) + `)
		ORDER BY date DESC, created_at DESC
	`

	args := make([]interface{}, len(clientIDs))
	for i, id := range clientIDs {
		args[i] = id
	}
	return r.queryEntries(ctx, query, args...)
}

// IsLocked checks if a time entry is billed or locked by an invoice
func (r *EntryRepo) IsLocked(ctx context.Context, id string) (bool, error) {
	var billed, locked bool
	query := "SELECT billed, locked FROM time_entries WHERE id = ?"

	err := r.db.QueryRowContext(ctx, query, id).Scan(&billed, &locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, &domain.NotFoundError{Resource: "time entry", ID: id}
		}
		return false, fmt.Errorf("failed to check lock status: %w", err)
	}

	return billed || locked, nil
}

func (r *EntryRepo) queryEntries(ctx context.Context, query string, args ...interface{}) ([]*domain.TimeEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query time entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.TimeEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time entries: %w", err)
	}
	return entries, nil
}

// scanEntry parses a time entry row
func scanEntry(row rowScanner) (*domain.TimeEntry, error) {
	entry := &domain.TimeEntry{}
	var startTime, date, createdAt, updatedAt string
	var endTime, clientID, ticketID, billingRateID, invoiceID sql.NullString
	var billedRate sql.NullFloat64

	err := row.Scan(
		&entry.ID,
		&entry.Description,
		&startTime,
		&endTime,
		&entry.Minutes,
		&date,
		&clientID,
		&ticketID,
		&billingRateID,
		&entry.Billable,
		&entry.Billed,
		&entry.Locked,
		&invoiceID,
		&billedRate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if entry.StartTime, err = parseTime(startTime); err != nil {
		return nil, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if endTime.Valid {
		t, err := parseTime(endTime.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse end_time: %w", err)
		}
		entry.EndTime = &t
	}
	if entry.Date, err = parseTime(date); err != nil {
		return nil, fmt.Errorf("failed to parse date: %w", err)
	}

	entry.ClientID = strPtr(clientID)
	entry.TicketID = strPtr(ticketID)
	entry.BillingRateID = strPtr(billingRateID)
	entry.InvoiceID = strPtr(invoiceID)
	entry.BilledRate = floatPtr(billedRate)

	if entry.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if entry.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return entry, nil
}
