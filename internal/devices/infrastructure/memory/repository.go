package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	devices "pos-hardware/internal/devices/domain"
)

// Repository is an in-memory device registry and health log for tests
// and demo wiring. It implements both repository interfaces.
type Repository struct {
	mu      sync.RWMutex
	devices map[string]devices.Device
	log     []devices.HealthLogEntry
}

// NewRepository constructs a repository.
func NewRepository() *Repository {
	return &Repository{
		devices: make(map[string]devices.Device),
	}
}

// Put registers or replaces a device.
func (r *Repository) Put(device devices.Device) error {
	if err := device.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[device.ID] = device
	return nil
}

// Get loads a device by id; nil when absent.
func (r *Repository) Get(ctx context.Context, id string) (*devices.Device, error) {
	_ = ctx
	if id == "" {
		return nil, errors.New("memory repo: empty id")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	device, ok := r.devices[id]
	if !ok {
		return nil, nil
	}
	return &device, nil
}

// ListAll returns the registry ordered by id.
func (r *Repository) ListAll(ctx context.Context) ([]devices.Device, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]devices.Device, 0, len(r.devices))
	for _, device := range r.devices {
		result = append(result, device)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// UpdateStatus writes status and, for a non-zero seenAt, last_seen.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status devices.DeviceStatus, seenAt time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.devices[id]
	if !ok {
		return errors.New("memory repo: unknown device " + id)
	}
	device.Status = status
	if !seenAt.IsZero() {
		device.LastSeen = seenAt
	}
	device.UpdatedAt = time.Now().UTC()
	r.devices[id] = device
	return nil
}

// Append records a health log entry.
func (r *Repository) Append(ctx context.Context, entry devices.HealthLogEntry) error {
	_ = ctx
	if err := entry.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, entry)
	return nil
}

// LogEntries returns a copy of the appended log.
func (r *Repository) LogEntries() []devices.HealthLogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]devices.HealthLogEntry(nil), r.log...)
}
