package application

import (
	"context"
	"net/http"
	"time"

	devices "pos-hardware/internal/devices/domain"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// CheckResult is the outcome of one health check. Seen marks outcomes that
// prove the device itself was observed; only those may refresh last_seen.
// Freshness checks merely read last_seen and never set it.
type CheckResult struct {
	Status  devices.DeviceStatus
	Message string
	Seen    bool
}

// CapabilityFunc reports whether a local runtime capability is present.
type CapabilityFunc func() bool

// CheckSet dispatches role-specific health checks.
type CheckSet struct {
	cfg    Config
	clock  Clock
	client *http.Client
	nfc    CapabilityFunc
}

// NewCheckSet constructs role-dispatched checks.
func NewCheckSet(cfg Config, clock Clock, nfc CapabilityFunc) *CheckSet {
	if clock == nil {
		clock = SystemClock{}
	}
	if nfc == nil {
		available := cfg.NFCAvailable
		nfc = func() bool { return available }
	}
	return &CheckSet{
		cfg:   cfg,
		clock: clock,
		// The probe timeout is enforced per request via context; the client
		// timeout is a backstop for misconfigured contexts.
		client: &http.Client{Timeout: cfg.ProbeTimeout + time.Second},
		nfc:    nfc,
	}
}

// Run executes the check matching the device role.
func (s *CheckSet) Run(ctx context.Context, device devices.Device) CheckResult {
	switch device.Role {
	case devices.RolePrinter:
		return s.checkPrinter(ctx, device)
	case devices.RoleKDS:
		return s.checkFreshness(device, s.cfg.KDSFreshness)
	case devices.RoleNFCScanner:
		return s.checkNFC()
	default:
		return s.checkFreshness(device, s.cfg.DefaultFreshness)
	}
}

// checkPrinter issues a best-effort reachability probe against the printer's
// embedded web server. Any HTTP response counts as online; the status code is
// irrelevant for reachability.
func (s *CheckSet) checkPrinter(ctx context.Context, device devices.Device) CheckResult {
	if device.IPAddress == "" {
		return CheckResult{Status: devices.StatusOffline, Message: "no ip address assigned"}
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, "http://"+device.IPAddress+"/", nil)
	if err != nil {
		return CheckResult{Status: devices.StatusError, Message: err.Error()}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return CheckResult{Status: devices.StatusOffline, Message: err.Error()}
	}
	defer resp.Body.Close()
	return CheckResult{Status: devices.StatusOnline, Seen: true}
}

// checkFreshness marks a self-reporting device online while its last heartbeat
// is within the threshold.
func (s *CheckSet) checkFreshness(device devices.Device, threshold time.Duration) CheckResult {
	if device.LastSeen.IsZero() {
		return CheckResult{Status: devices.StatusOffline, Message: "never seen"}
	}
	age := s.clock.Now().Sub(device.LastSeen)
	if age < threshold {
		return CheckResult{Status: devices.StatusOnline}
	}
	return CheckResult{Status: devices.StatusOffline, Message: "last seen " + age.Truncate(time.Second).String() + " ago"}
}

// checkNFC is a local capability test, not a reachability test.
func (s *CheckSet) checkNFC() CheckResult {
	if s.nfc() {
		return CheckResult{Status: devices.StatusOnline, Seen: true}
	}
	return CheckResult{Status: devices.StatusOffline, Message: "nfc capability not available"}
}
