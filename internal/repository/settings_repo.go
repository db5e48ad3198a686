package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mshaw/timevault/internal/db"
	"github.com/mshaw/timevault/internal/domain"
)

// SettingsRepo is a SQLite implementation of SettingsRepository
type SettingsRepo struct {
	db *db.DB
}

// NewSettingsRepo creates a new SettingsRepo
func NewSettingsRepo(database *db.DB) *SettingsRepo {
	return &SettingsRepo{db: database}
}

const settingColumns = "key, value, category, label, description, type"

// Get retrieves a setting by key
func (r *SettingsRepo) Get(ctx context.Context, key string) (*domain.Setting, error) {
	query := "SELECT " + settingColumns + " FROM settings WHERE key = ?"

	setting, err := scanSetting(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "setting", ID: key}
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return setting, nil
}

// List retrieves all settings grouped by category
func (r *SettingsRepo) List(ctx context.Context) ([]*domain.Setting, error) {
	query := "SELECT " + settingColumns + " FROM settings ORDER BY category, key"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	settings := make([]*domain.Setting, 0)
	for rows.Next() {
		setting, err := scanSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, setting)
	}
	return settings, rows.Err()
}

// Set updates the value of an existing setting
func (r *SettingsRepo) Set(ctx context.Context, key, value string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE settings SET value = ? WHERE key = ?", value, key)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.NotFoundError{Resource: "setting", ID: key}
	}
	return nil
}

func scanSetting(row rowScanner) (*domain.Setting, error) {
	setting := &domain.Setting{}
	var label, description sql.NullString

	err := row.Scan(
		&setting.Key,
		&setting.Value,
		&setting.Category,
		&label,
		&description,
		&setting.Type,
	)
	if err != nil {
		return nil, err
	}

	setting.Label = label.String
	setting.Description = description.String
	return setting, nil
}
