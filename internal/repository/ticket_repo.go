package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mshaw/timevault/internal/db"
	"github.com/mshaw/timevault/internal/domain"
)

// TicketRepo is a SQLite implementation of TicketRepository
type TicketRepo struct {
	db *db.DB
}

// NewTicketRepo creates a new TicketRepo
func NewTicketRepo(database *db.DB) *TicketRepo {
	return &TicketRepo{db: database}
}

const statusColumns = "id, name, color, is_default, is_closed, sort_order"
const ticketColumns = "id, title, client_id, status_id, notes, created_at, updated_at"
const ticketAddonColumns = "id, ticket_id, description, amount, cost, billed, created_at"

// CreateStatus inserts a new ticket status, clearing the previous default in
// the same transaction when this one is flagged as default.
func (r *TicketRepo) CreateStatus(ctx context.Context, status *domain.TicketStatus) error {
	if err := status.Validate(); err != nil {
		return fmt.Errorf("invalid ticket status: %w", err)
	}
	if status.ID == "" {
		status.ID = newID()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if status.IsDefault {
		if _, err := tx.ExecContext(ctx, "UPDATE ticket_statuses SET is_default = 0 WHERE is_default = 1"); err != nil {
			return fmt.Errorf("failed to clear previous default: %w", err)
		}
	}

	query := `
		INSERT INTO ticket_statuses (id, name, color, is_default, is_closed, sort_order)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		status.ID, status.Name, status.Color, status.IsDefault, status.IsClosed, status.SortOrder)
	if err != nil {
		return fmt.Errorf("failed to create ticket status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateStatus updates a ticket status, clearing any other default in the
// same transaction when this one becomes the default.
func (r *TicketRepo) UpdateStatus(ctx context.Context, status *domain.TicketStatus) error {
	if err := status.Validate(); err != nil {
		return fmt.Errorf("invalid ticket status: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if status.IsDefault {
		if _, err := tx.ExecContext(ctx, "UPDATE ticket_statuses SET is_default = 0 WHERE is_default = 1 AND id != ?", status.ID); err != nil {
			return fmt.Errorf("failed to clear previous default: %w", err)
		}
	}

	query := `
		UPDATE ticket_statuses
		SET name = ?, color = ?, is_default = ?, is_closed = ?, sort_order = ?
		WHERE id = ?
	`
	result, err := tx.ExecContext(ctx, query,
		status.Name, status.Color, status.IsDefault, status.IsClosed, status.SortOrder, status.ID)
	if err != nil {
		return fmt.Errorf("failed to update ticket status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.NotFoundError{Resource: "ticket status", ID: status.ID}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListStatuses retrieves all ticket statuses in sort order
func (r *TicketRepo) ListStatuses(ctx context.Context) ([]*domain.TicketStatus, error) {
	query := "SELECT " + statusColumns + " FROM ticket_statuses ORDER BY sort_order, name"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket statuses: %w", err)
	}
	defer rows.Close()

	statuses := make([]*domain.TicketStatus, 0)
	for rows.Next() {
		status := &domain.TicketStatus{}
		var color sql.NullString
		if err := rows.Scan(&status.ID, &status.Name, &color, &status.IsDefault, &status.IsClosed, &status.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan ticket status: %w", err)
		}
		status.Color = color.String
		statuses = append(statuses, status)
	}
	return statuses, rows.Err()
}

// DeleteStatus removes a ticket status. The default status cannot be deleted.
func (r *TicketRepo) DeleteStatus(ctx context.Context, id string) error {
	var isDefault bool
	err := r.db.QueryRowContext(ctx, "SELECT is_default FROM ticket_statuses WHERE id = ?", id).Scan(&isDefault)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.NotFoundError{Resource: "ticket status", ID: id}
		}
		return fmt.Errorf("failed to get ticket status: %w", err)
	}
	if isDefault {
		return &domain.ValidationError{Field: "isDefault", Message: "cannot delete the default ticket status"}
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM ticket_statuses WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete ticket status: %w", err)
	}
	return nil
}

// Create inserts a new ticket into the database
func (r *TicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := ticket.Validate(); err != nil {
		return fmt.Errorf("invalid ticket: %w", err)
	}
	if ticket.ID == "" {
		ticket.ID = newID()
	}

	query := `
		INSERT INTO tickets (id, title, client_id, status_id, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		ticket.ID,
		ticket.Title,
		nullStr(ticket.ClientID),
		ticket.StatusID,
		ticket.Notes,
		ticket.CreatedAt.Format(timeLayout),
		ticket.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

// GetByID retrieves a ticket by ID
func (r *TicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := "SELECT " + ticketColumns + " FROM tickets WHERE id = ?"

	ticket, err := scanTicket(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "ticket", ID: id}
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return ticket, nil
}

// List retrieves tickets, optionally filtered by client, newest first
func (r *TicketRepo) List(ctx context.Context, clientID *string) ([]*domain.Ticket, error) {
	query := "SELECT " + ticketColumns + " FROM tickets"
	args := make([]interface{}, 0)

	if clientID != nil {
		query += " WHERE client_id = ?"
		args = append(args, *clientID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]*domain.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

// Update updates an existing ticket
func (r *TicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	if err := ticket.Validate(); err != nil {
		return fmt.Errorf("invalid ticket: %w", err)
	}

	query := `
		UPDATE tickets
		SET title = ?, client_id = ?, status_id = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		ticket.Title,
		nullStr(ticket.ClientID),
		ticket.StatusID,
		ticket.Notes,
		formatTime(),
		ticket.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.NotFoundError{Resource: "ticket", ID: ticket.ID}
	}
	return nil
}

// CreateAddon inserts a new ticket addon
func (r *TicketRepo) CreateAddon(ctx context.Context, addon *domain.TicketAddon) error {
	if err := addon.Validate(); err != nil {
		return fmt.Errorf("invalid ticket addon: %w", err)
	}
	if addon.ID == "" {
		addon.ID = newID()
	}

	query := `
		INSERT INTO ticket_addons (id, ticket_id, description, amount, cost, billed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		addon.ID,
		addon.TicketID,
		addon.Description,
		addon.Amount,
		addon.Cost,
		addon.Billed,
		addon.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create ticket addon: %w", err)
	}
	return nil
}

// AddonsForTicket retrieves all addons attached to a ticket
func (r *TicketRepo) AddonsForTicket(ctx context.Context, ticketID string) ([]*domain.TicketAddon, error) {
	query := "SELECT " + ticketAddonColumns + " FROM ticket_addons WHERE ticket_id = ? ORDER BY created_at"
	return r.queryAddons(ctx, query, ticketID)
}

// UnbilledAddonsForClients retrieves unbilled ticket addons whose ticket
// belongs to any of the given clients
func (r *TicketRepo) UnbilledAddonsForClients(ctx context.Context, clientIDs []string) ([]*domain.TicketAddon, error) {
	if len(clientIDs) == 0 {
		return []*domain.TicketAddon{}, nil
	}

	query := `
		SELECT a.id, a.ticket_id, a.description, a.amount, a.cost, a.billed, a.created_at
		FROM ticket_addons a
		JOIN tickets t ON t.id = a.ticket_id
		WHERE a.billed = 0
		  AND t.client_id IN (` + placeholders(len(clientIDs)) + `)
		ORDER BY a.created_at
	`

	args := make([]interface{}, len(clientIDs))
	for i, id := range clientIDs {
		args[i] = id
	}
	return r.queryAddons(ctx, query, args...)
}

func (r *TicketRepo) queryAddons(ctx context.Context, query string, args ...interface{}) ([]*domain.TicketAddon, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticket addons: %w", err)
	}
	defer rows.Close()

	addons := make([]*domain.TicketAddon, 0)
	for rows.Next() {
		addon := &domain.TicketAddon{}
		var createdAt string
		err := rows.Scan(&addon.ID, &addon.TicketID, &addon.Description, &addon.Amount, &addon.Cost, &addon.Billed, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket addon: %w", err)
		}
		if addon.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		addons = append(addons, addon)
	}
	return addons, rows.Err()
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	ticket := &domain.Ticket{}
	var createdAt, updatedAt string
	var clientID, notes sql.NullString

	err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&clientID,
		&ticket.StatusID,
		&notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	ticket.ClientID = strPtr(clientID)
	ticket.Notes = notes.String

	if ticket.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if ticket.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return ticket, nil
}
