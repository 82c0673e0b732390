package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	cashdrawer "pos-hardware/internal/cashdrawer/domain"
)

// DBTX is the subset of database/sql used by the repository.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	defaultSettingsTable = "app_settings"
	settingsKey          = "cash_drawer"
)

// SettingsRepository stores the drawer settings as a single JSON blob
// under one configuration key.
type SettingsRepository struct {
	db    DBTX
	table string
}

// NewSettingsRepository constructs a repository.
func NewSettingsRepository(db DBTX, opts ...SettingsOption) *SettingsRepository {
	repo := &SettingsRepository{db: db, table: defaultSettingsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// SettingsOption configures the repository.
type SettingsOption func(*SettingsRepository)

// WithSettingsTable overrides the default table name.
func WithSettingsTable(table string) SettingsOption {
	return func(repo *SettingsRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Load reads the stored settings blob, or nil when none is stored.
func (r *SettingsRepository) Load(ctx context.Context) (*cashdrawer.Settings, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("settings repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT value
FROM %s
WHERE key = $1
LIMIT 1`, r.table)

	var blob []byte
	if err := r.db.QueryRowContext(ctx, query, settingsKey).Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var settings cashdrawer.Settings
	if err := json.Unmarshal(blob, &settings); err != nil {
		return nil, fmt.Errorf("settings repo: decode blob: %w", err)
	}
	return &settings, nil
}

// Save upserts the full settings object.
func (r *SettingsRepository) Save(ctx context.Context, settings cashdrawer.Settings) error {
	if r == nil || r.db == nil {
		return errors.New("settings repo: nil db")
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	blob, err := json.Marshal(settings)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (key, value)
VALUES ($1, $2)
ON CONFLICT (key)
DO UPDATE SET
	value = EXCLUDED.value,
	updated_at = NOW()`, r.table)

	_, err = r.db.ExecContext(ctx, query, settingsKey, blob)
	return err
}
