package devices

import (
	"context"
	"errors"
	"time"
)

// DeviceRole identifies the kind of peripheral a device is.
type DeviceRole string

const (
	RolePrinter    DeviceRole = "PRINTER"
	RoleKDS        DeviceRole = "KDS"
	RoleNFCScanner DeviceRole = "NFC_SCANNER"
	RoleOther      DeviceRole = "OTHER"
)

// NormalizeRole validates a role string, mapping unknown roles to OTHER.
func NormalizeRole(value string) DeviceRole {
	switch DeviceRole(value) {
	case RolePrinter, RoleKDS, RoleNFCScanner:
		return DeviceRole(value)
	default:
		return RoleOther
	}
}

// DeviceStatus is the current health state of a device.
type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusOffline DeviceStatus = "offline"
	StatusError   DeviceStatus = "error"
)

// Device represents a physical or virtual peripheral in the registry.
type Device struct {
	ID            string
	Name          string
	Role          DeviceRole
	IPAddress     string
	Status        DeviceStatus
	LastSeen      time.Time
	CheckInterval time.Duration
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate checks device invariants.
func (d Device) Validate() error {
	if d.ID == "" {
		return errors.New("device: empty id")
	}
	if d.Role == "" {
		return errors.New("device: empty role")
	}
	if d.CheckInterval < 0 {
		return errors.New("device: negative check interval")
	}
	return nil
}

// HealthLogEntry is one row of the append-only health check log.
type HealthLogEntry struct {
	DeviceID     string
	Status       DeviceStatus
	ErrorMessage string
	CheckedAt    time.Time
}

// Validate checks log entry invariants.
func (e HealthLogEntry) Validate() error {
	if e.DeviceID == "" {
		return errors.New("health log: empty device id")
	}
	if e.Status == "" {
		return errors.New("health log: empty status")
	}
	if e.CheckedAt.IsZero() {
		return errors.New("health log: zero checked_at")
	}
	return nil
}

// DeviceRepository manages device persistence.
type DeviceRepository interface {
	Get(ctx context.Context, id string) (*Device, error)
	ListAll(ctx context.Context) ([]Device, error)
	// UpdateStatus writes the device's current status. A non-zero seenAt
	// also refreshes last_seen; the zero time leaves last_seen untouched.
	// last_seen means "the device itself was last observed", so a status
	// transition alone must never count as a sighting.
	UpdateStatus(ctx context.Context, id string, status DeviceStatus, seenAt time.Time) error
}

// HealthLogRepository appends health check log entries.
type HealthLogRepository interface {
	Append(ctx context.Context, entry HealthLogEntry) error
}
