package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	devices "pos-hardware/internal/devices/domain"
	"pos-hardware/internal/observability/metrics"
)

// TransitionNotifier receives device status transitions.
type TransitionNotifier interface {
	NotifyTransition(ctx context.Context, device devices.Device, from, to devices.DeviceStatus, message string)
}

// Monitor supervises the device registry with one independent periodic
// check per device.
type Monitor struct {
	repo     devices.DeviceRepository
	logs     devices.HealthLogRepository
	checks   *CheckSet
	clock    Clock
	cfg      Config
	notifier TransitionNotifier
	logger   *log.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// MonitorOption configures the monitor.
type MonitorOption func(*Monitor)

// WithNotifier attaches a status transition notifier.
func WithNotifier(notifier TransitionNotifier) MonitorOption {
	return func(m *Monitor) {
		m.notifier = notifier
	}
}

// WithClock overrides the monitor clock.
func WithClock(clock Clock) MonitorOption {
	return func(m *Monitor) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewMonitor constructs a device health monitor.
func NewMonitor(repo devices.DeviceRepository, logs devices.HealthLogRepository, checks *CheckSet, cfg Config, logger *log.Logger, opts ...MonitorOption) (*Monitor, error) {
	if repo == nil {
		return nil, errors.New("monitor: nil device repository")
	}
	if logs == nil {
		return nil, errors.New("monitor: nil health log repository")
	}
	if checks == nil {
		return nil, errors.New("monitor: nil check set")
	}
	if logger == nil {
		logger = log.Default()
	}
	m := &Monitor{
		repo:   repo,
		logs:   logs,
		checks: checks,
		clock:  SystemClock{},
		cfg:    cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start reads the registry and installs one periodic check per device.
// It is idempotent: a second call while running is a no-op. Registry changes
// are picked up only on a fresh Start after Stop.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	registry, err := m.repo.ListAll(ctx)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("monitor: read registry: %w", err)
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	for _, device := range registry {
		go m.supervise(runCtx, device.ID, m.intervalFor(device))
	}
	m.logger.Printf("monitor: started, devices=%d", len(registry))
	return nil
}

// Stop cancels every per-device timer. In-flight checks are not awaited; a
// check that completes after Stop finds its context cancelled and cannot
// resurrect a timer.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.cancel()
	m.cancel = nil
	m.running = false
	m.logger.Printf("monitor: stopped")
}

// Running reports whether the monitor loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Heartbeat unconditionally marks a device online and refreshes last_seen.
// It is triggered by the device itself and may race a periodic check for the
// same device; last write wins.
func (m *Monitor) Heartbeat(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return errors.New("monitor: empty device id")
	}
	now := m.clock.Now()
	if err := m.repo.UpdateStatus(ctx, deviceID, devices.StatusOnline, now); err != nil {
		return fmt.Errorf("monitor: heartbeat %s: %w", deviceID, err)
	}
	metrics.SetDeviceUp(deviceID, true)
	return nil
}

func (m *Monitor) intervalFor(device devices.Device) time.Duration {
	if device.CheckInterval > 0 {
		return device.CheckInterval
	}
	return m.cfg.DefaultInterval
}

func (m *Monitor) supervise(ctx context.Context, deviceID string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkOnce(ctx, deviceID)
		}
	}
}

// checkOnce runs a single role-dispatched check. Failures never propagate:
// connectivity failures map to offline, unexpected errors to error status.
func (m *Monitor) checkOnce(ctx context.Context, deviceID string) {
	start := m.clock.Now()

	device, err := m.repo.Get(ctx, deviceID)
	if err != nil {
		m.logger.Printf("monitor: load device %s: %v", deviceID, err)
		return
	}
	if device == nil {
		return
	}

	result := m.safeCheck(ctx, *device)

	if ctx.Err() != nil {
		return
	}

	// The device row is a current-state cache: write only on transition.
	// last_seen moves only when the check observed the device; an offline or
	// error transition preserves it, otherwise a dead self-reporting device
	// would look freshly seen and flap back online next check.
	var seenAt time.Time
	if result.Seen {
		seenAt = m.clock.Now()
	}
	if result.Status != device.Status {
		if err := m.repo.UpdateStatus(ctx, device.ID, result.Status, seenAt); err != nil {
			m.logger.Printf("monitor: update status %s: %v", device.ID, err)
		}
		if m.notifier != nil && (result.Status == devices.StatusOffline || result.Status == devices.StatusError) {
			m.notifier.NotifyTransition(ctx, *device, device.Status, result.Status, result.Message)
		}
	}

	// The log is complete: one entry per check regardless of transitions.
	entry := devices.HealthLogEntry{
		DeviceID:     device.ID,
		Status:       result.Status,
		ErrorMessage: result.Message,
		CheckedAt:    m.clock.Now(),
	}
	if err := m.logs.Append(ctx, entry); err != nil {
		m.logger.Printf("monitor: append health log %s: %v", device.ID, err)
	}

	metrics.ObserveHealthCheck(string(device.Role), string(result.Status), m.clock.Now().Sub(start))
	metrics.SetDeviceUp(device.ID, result.Status == devices.StatusOnline)
}

func (m *Monitor) safeCheck(ctx context.Context, device devices.Device) (result CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			result = CheckResult{Status: devices.StatusError, Message: fmt.Sprintf("check panic: %v", r)}
		}
	}()
	return m.checks.Run(ctx, device)
}
