package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	devices "pos-hardware/internal/devices/domain"
)

// DBTX is the subset of database/sql used by the repositories.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const defaultDevicesTable = "devices"

// DeviceRepository is a Postgres implementation of the device registry.
type DeviceRepository struct {
	db    DBTX
	table string
}

// NewDeviceRepository constructs a repository.
func NewDeviceRepository(db DBTX, opts ...DeviceOption) *DeviceRepository {
	repo := &DeviceRepository{db: db, table: defaultDevicesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// DeviceOption configures the repository.
type DeviceOption func(*DeviceRepository)

// WithDeviceTable overrides the default table name.
func WithDeviceTable(table string) DeviceOption {
	return func(repo *DeviceRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads a device by id.
func (r *DeviceRepository) Get(ctx context.Context, id string) (*devices.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	if id == "" {
		return nil, errors.New("device repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, name, role, ip_address, status, last_seen, health_check_interval_seconds, created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	device, err := scanDevice(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return device, nil
}

// ListAll loads the full registry, ordered by id.
func (r *DeviceRepository) ListAll(ctx context.Context) ([]devices.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, name, role, ip_address, status, last_seen, health_check_interval_seconds, created_at, updated_at
FROM %s
ORDER BY id ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []devices.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *device)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateStatus writes the current-state cache fields of a device. The zero
// seenAt preserves the stored last_seen.
func (r *DeviceRepository) UpdateStatus(ctx context.Context, id string, status devices.DeviceStatus, seenAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("device repo: nil db")
	}
	if id == "" {
		return errors.New("device repo: empty id")
	}
	if status == "" {
		return errors.New("device repo: empty status")
	}

	seen := sql.NullTime{Time: seenAt.UTC(), Valid: !seenAt.IsZero()}
	query := fmt.Sprintf(`
UPDATE %s
SET status = $2,
	last_seen = COALESCE($3, last_seen),
	updated_at = NOW()
WHERE id = $1`, r.table)

	result, err := r.db.ExecContext(ctx, query, id, string(status), seen)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return errors.New("device repo: unknown device " + id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*devices.Device, error) {
	var (
		device          devices.Device
		role            string
		status          string
		ipAddress       sql.NullString
		lastSeen        sql.NullTime
		intervalSeconds int64
	)
	if err := row.Scan(
		&device.ID,
		&device.Name,
		&role,
		&ipAddress,
		&status,
		&lastSeen,
		&intervalSeconds,
		&device.CreatedAt,
		&device.UpdatedAt,
	); err != nil {
		return nil, err
	}
	device.Role = devices.NormalizeRole(role)
	device.Status = devices.DeviceStatus(status)
	device.IPAddress = ipAddress.String
	if lastSeen.Valid {
		device.LastSeen = lastSeen.Time.UTC()
	}
	device.CheckInterval = time.Duration(intervalSeconds) * time.Second
	device.CreatedAt = device.CreatedAt.UTC()
	device.UpdatedAt = device.UpdatedAt.UTC()
	return &device, nil
}
