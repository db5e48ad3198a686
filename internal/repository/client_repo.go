package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mshaw/timevault/internal/db"
	"github.com/mshaw/timevault/internal/domain"
)

// ClientRepo is a SQLite implementation of ClientRepository
type ClientRepo struct {
	db *db.DB
}

// NewClientRepo creates a new ClientRepo
func NewClientRepo(database *db.DB) *ClientRepo {
	return &ClientRepo{db: database}
}

const clientColumns = "id, name, type, parent_id, email, notes, rate, is_archived, created_at, updated_at"

// Create inserts a new client into the database
func (r *ClientRepo) Create(ctx context.Context, client *domain.Client) error {
	if err := client.Validate(); err != nil {
		return fmt.Errorf("invalid client: %w", err)
	}
	if client.ID == "" {
		client.ID = newID()
	}

	query := `
		INSERT INTO clients (id, name, type, parent_id, email, notes, rate, is_archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		client.ID,
		client.Name,
		string(client.Type),
		nullStr(client.ParentID),
		client.Email,
		client.Notes,
		client.Rate,
		client.IsArchived,
		client.CreatedAt.Format(timeLayout),
		client.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	return nil
}

// GetByID retrieves a client by ID, with its rate overrides
func (r *ClientRepo) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	query := "SELECT " + clientColumns + " FROM clients WHERE id = ?"

	client, err := scanClient(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "client", ID: id}
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	if err := r.loadOverrides(ctx, []*domain.Client{client}); err != nil {
		return nil, err
	}
	return client, nil
}

// GetByName retrieves a client by name, with its rate overrides
func (r *ClientRepo) GetByName(ctx context.Context, name string) (*domain.Client, error) {
	query := "SELECT " + clientColumns + " FROM clients WHERE name = ?"

	client, err := scanClient(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "client", ID: name}
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	if err := r.loadOverrides(ctx, []*domain.Client{client}); err != nil {
		return nil, err
	}
	return client, nil
}

// List retrieves all clients with their overrides populated
func (r *ClientRepo) List(ctx context.Context, includeArchived bool) ([]*domain.Client, error) {
	query := "SELECT " + clientColumns + ` FROM clients WHERE is_archived = 0 OR ? = 1 ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]*domain.Client, 0)
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clients: %w", err)
	}

	if err := r.loadOverrides(ctx, clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// Update updates an existing client
func (r *ClientRepo) Update(ctx context.Context, client *domain.Client) error {
	if err := client.Validate(); err != nil {
		return fmt.Errorf("invalid client: %w", err)
	}

	query := `
		UPDATE clients
		SET name = ?, type = ?, parent_id = ?, email = ?, notes = ?, rate = ?, is_archived = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		client.Name,
		string(client.Type),
		nullStr(client.ParentID),
		client.Email,
		client.Notes,
		client.Rate,
		client.IsArchived,
		formatTime(),
		client.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.NotFoundError{Resource: "client", ID: client.ID}
	}

	return nil
}

// Archive marks a client as archived
func (r *ClientRepo) Archive(ctx context.Context, id string) error {
	return r.setArchived(ctx, id, true)
}

// Unarchive marks a client as active
func (r *ClientRepo) Unarchive(ctx context.Context, id string) error {
	return r.setArchived(ctx, id, false)
}

func (r *ClientRepo) setArchived(ctx context.Context, id string, archived bool) error {
	query := `UPDATE clients SET is_archived = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, archived, formatTime(), id)
	if err != nil {
		return fmt.Errorf("failed to archive client: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.NotFoundError{Resource: "client", ID: id}
	}

	return nil
}

// ReplaceOverrides swaps a client's full override set in one transaction
func (r *ClientRepo) ReplaceOverrides(ctx context.Context, clientID string, overrides []*domain.RateOverride) error {
	for _, o := range overrides {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("invalid override: %w", err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM client_rate_overrides WHERE client_id = ?", clientID); err != nil {
		return fmt.Errorf("failed to clear overrides: %w", err)
	}

	insert := `
		INSERT INTO client_rate_overrides (id, client_id, base_rate_id, override_type, value)
		VALUES (?, ?, ?, ?, ?)
	`
	for _, o := range overrides {
		if o.ID == "" {
			o.ID = newID()
		}
		o.ClientID = clientID
		if _, err := tx.ExecContext(ctx, insert, o.ID, clientID, o.BaseRateID, string(o.Type), o.Value); err != nil {
			return fmt.Errorf("failed to insert override for rate %s: %w", o.BaseRateID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClient(row rowScanner) (*domain.Client, error) {
	client := &domain.Client{}
	var clientType, createdAt, updatedAt string
	var parentID, email, notes sql.NullString

	err := row.Scan(
		&client.ID,
		&client.Name,
		&clientType,
		&parentID,
		&email,
		&notes,
		&client.Rate,
		&client.IsArchived,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	client.Type = domain.ClientType(clientType)
	client.ParentID = strPtr(parentID)
	client.Email = email.String
	client.Notes = notes.String

	if client.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if client.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return client, nil
}

// loadOverrides populates Overrides on each client in one query
func (r *ClientRepo) loadOverrides(ctx context.Context, clients []*domain.Client) error {
	if len(clients) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Client, len(clients))
	args := make([]interface{}, 0, len(clients))
	for _, c := range clients {
		byID[c.ID] = c
		args = append(args, c.ID)
	}

	query := `
		SELECT id, client_id, base_rate_id, override_type, value
		FROM client_rate_overrides
		WHERE client_id IN (` + placeholders(len(clients)) + `)
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load overrides: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		o := &domain.RateOverride{}
		var overrideType string
		if err := rows.Scan(&o.ID, &o.ClientID, &o.BaseRateID, &overrideType, &o.Value); err != nil {
			return fmt.Errorf("failed to scan override: %w", err)
		}
		o.Type = domain.OverrideType(overrideType)
		if c, ok := byID[o.ClientID]; ok {
			c.Overrides = append(c.Overrides, o)
		}
	}
	return rows.Err()
}
