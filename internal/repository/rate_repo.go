package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mshaw/timevault/internal/db"
	"github.com/mshaw/timevault/internal/domain"
)

// RateRepo is a SQLite implementation of BillingRateRepository
type RateRepo struct {
	db *db.DB
}

// NewRateRepo creates a new RateRepo
func NewRateRepo(database *db.DB) *RateRepo {
	return &RateRepo{db: database}
}

const rateColumns = "id, name, rate, cost, is_default, created_at, updated_at"

// Create inserts a new billing rate. If the rate is flagged as default, the
// previous default is cleared in the same transaction so there is never a
// window with two defaults.
func (r *RateRepo) Create(ctx context.Context, rate *domain.BillingRate) error {
	if err := rate.Validate(); err != nil {
		return fmt.Errorf("invalid billing rate: %w", err)
	}
	if rate.ID == "" {
		rate.ID = newID()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if rate.IsDefault {
		if _, err := tx.ExecContext(ctx, "UPDATE billing_rates SET is_default = 0 WHERE is_default = 1"); err != nil {
			return fmt.Errorf("failed to clear previous default: %w", err)
		}
	}

	query := `
		INSERT INTO billing_rates (id, name, rate, cost, is_default, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		rate.ID,
		rate.Name,
		rate.Rate,
		rate.Cost,
		rate.IsDefault,
		rate.CreatedAt.Format(timeLayout),
		rate.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create billing rate: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a billing rate by ID
func (r *RateRepo) GetByID(ctx context.Context, id string) (*domain.BillingRate, error) {
	query := "SELECT " + rateColumns + " FROM billing_rates WHERE id = ?"

	rate, err := scanRate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "billing rate", ID: id}
		}
		return nil, fmt.Errorf("failed to get billing rate: %w", err)
	}
	return rate, nil
}

// GetDefault retrieves the default billing rate, or nil when none is set
func (r *RateRepo) GetDefault(ctx context.Context) (*domain.BillingRate, error) {
	query := "SELECT " + rateColumns + " FROM billing_rates WHERE is_default = 1"

	rate, err := scanRate(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get default billing rate: %w", err)
	}
	return rate, nil
}

// List retrieves all billing rates ordered by name
func (r *RateRepo) List(ctx context.Context) ([]*domain.BillingRate, error) {
	query := "SELECT " + rateColumns + " FROM billing_rates ORDER BY name"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list billing rates: %w", err)
	}
	defer rows.Close()

	rates := make([]*domain.BillingRate, 0)
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan billing rate: %w", err)
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}

// Update updates an existing billing rate, clearing any other default in the
// same transaction when this one becomes the default.
func (r *RateRepo) Update(ctx context.Context, rate *domain.BillingRate) error {
	if err := rate.Validate(); err != nil {
		return fmt.Errorf("invalid billing rate: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if rate.IsDefault {
		if _, err := tx.ExecContext(ctx, "UPDATE billing_rates SET is_default = 0 WHERE is_default = 1 AND id != ?", rate.ID); err != nil {
			return fmt.Errorf("failed to clear previous default: %w", err)
		}
	}

	query := `
		UPDATE billing_rates
		SET name = ?, rate = ?, cost = ?, is_default = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := tx.ExecContext(ctx, query,
		rate.Name,
		rate.Rate,
		rate.Cost,
		rate.IsDefault,
		formatTime(),
		rate.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update billing rate: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.NotFoundError{Resource: "billing rate", ID: rate.ID}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete removes a billing rate. The default rate cannot be deleted.
func (r *RateRepo) Delete(ctx context.Context, id string) error {
	rate, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rate.IsDefault {
		return &domain.ValidationError{Field: "isDefault", Message: "cannot delete the default billing rate"}
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM billing_rates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete billing rate: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.NotFoundError{Resource: "billing rate", ID: id}
	}
	return nil
}

func scanRate(row rowScanner) (*domain.BillingRate, error) {
	rate := &domain.BillingRate{}
	var createdAt, updatedAt string

	err := row.Scan(
		&rate.ID,
		&rate.Name,
		&rate.Rate,
		&rate.Cost,
		&rate.IsDefault,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rate.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rate.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return rate, nil
}
