package postgres

import (
	"context"
	"errors"
	"fmt"

	devices "pos-hardware/internal/devices/domain"
)

const defaultHealthLogTable = "device_health_logs"

// HealthLogRepository appends to the immutable health check log.
type HealthLogRepository struct {
	db    DBTX
	table string
}

// NewHealthLogRepository constructs a repository.
func NewHealthLogRepository(db DBTX, opts ...HealthLogOption) *HealthLogRepository {
	repo := &HealthLogRepository{db: db, table: defaultHealthLogTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// HealthLogOption configures the repository.
type HealthLogOption func(*HealthLogRepository)

// WithHealthLogTable overrides the default table name.
func WithHealthLogTable(table string) HealthLogOption {
	return func(repo *HealthLogRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Append inserts one log entry. Entries are append-only and never updated.
func (r *HealthLogRepository) Append(ctx context.Context, entry devices.HealthLogEntry) error {
	if r == nil || r.db == nil {
		return errors.New("health log repo: nil db")
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	device_id,
	status,
	error_message,
	checked_at
) VALUES (
	$1, $2, $3, $4
)`, r.table)

	_, err := r.db.ExecContext(
		ctx,
		query,
		entry.DeviceID,
		string(entry.Status),
		entry.ErrorMessage,
		entry.CheckedAt.UTC(),
	)
	return err
}
