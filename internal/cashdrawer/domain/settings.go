package cashdrawer

import (
	"context"
	"errors"
)

// CommandProfile is the drawer-kick command dialect sent to the print bridge.
type CommandProfile string

const (
	ProfileAuto  CommandProfile = "AUTO"
	ProfileESCP  CommandProfile = "ESC_P"
	ProfilePulse CommandProfile = "PULSE"
)

// NormalizeProfile validates a profile string.
func NormalizeProfile(value string) (CommandProfile, bool) {
	switch CommandProfile(value) {
	case ProfileAuto, ProfileESCP, ProfilePulse:
		return CommandProfile(value), true
	default:
		return "", false
	}
}

// AutoOpenEvent names a payment event that may trigger an automatic open.
type AutoOpenEvent string

const (
	EventCashInitiated AutoOpenEvent = "cash_initiated"
	EventCashCompleted AutoOpenEvent = "cash_completed"
)

// Settings is the process-wide cash drawer configuration. It is persisted
// externally as a single JSON blob and updated rarely through admin actions.
type Settings struct {
	Enabled                        bool           `json:"enabled"`
	PrinterName                    string         `json:"printerName"`
	KickMode                       int            `json:"kickMode"`
	T1                             int            `json:"t1"`
	T2                             int            `json:"t2"`
	CommandProfile                 CommandProfile `json:"commandProfile"`
	AutoOpenOnCashInitiated        bool           `json:"autoOpenOnCashInitiated"`
	AutoOpenOnCashCompleted        bool           `json:"autoOpenOnCashCompleted"`
	RequireManagerPinForManualOpen bool           `json:"requireManagerPinForManualOpen"`
}

// DefaultSettings returns the in-code defaults merged under stored overrides.
func DefaultSettings() Settings {
	return Settings{
		Enabled:        true,
		KickMode:       0,
		T1:             25,
		T2:             250,
		CommandProfile: ProfileAuto,
	}
}

// Validate checks settings invariants.
func (s Settings) Validate() error {
	if s.KickMode != 0 && s.KickMode != 1 {
		return errors.New("cash drawer: kick mode must be 0 or 1")
	}
	if s.T1 < 0 || s.T2 < 0 {
		return errors.New("cash drawer: negative pulse timing")
	}
	if _, ok := NormalizeProfile(string(s.CommandProfile)); !ok {
		return errors.New("cash drawer: invalid command profile")
	}
	return nil
}

// SettingsPatch is a partial settings update; nil fields are left unchanged.
type SettingsPatch struct {
	Enabled                        *bool   `json:"enabled,omitempty"`
	PrinterName                    *string `json:"printerName,omitempty"`
	KickMode                       *int    `json:"kickMode,omitempty"`
	T1                             *int    `json:"t1,omitempty"`
	T2                             *int    `json:"t2,omitempty"`
	CommandProfile                 *string `json:"commandProfile,omitempty"`
	AutoOpenOnCashInitiated        *bool   `json:"autoOpenOnCashInitiated,omitempty"`
	AutoOpenOnCashCompleted        *bool   `json:"autoOpenOnCashCompleted,omitempty"`
	RequireManagerPinForManualOpen *bool   `json:"requireManagerPinForManualOpen,omitempty"`
}

// Apply merges the patch over the given settings.
func (p SettingsPatch) Apply(base Settings) Settings {
	if p.Enabled != nil {
		base.Enabled = *p.Enabled
	}
	if p.PrinterName != nil {
		base.PrinterName = *p.PrinterName
	}
	if p.KickMode != nil {
		base.KickMode = *p.KickMode
	}
	if p.T1 != nil {
		base.T1 = *p.T1
	}
	if p.T2 != nil {
		base.T2 = *p.T2
	}
	if p.CommandProfile != nil {
		base.CommandProfile = CommandProfile(*p.CommandProfile)
	}
	if p.AutoOpenOnCashInitiated != nil {
		base.AutoOpenOnCashInitiated = *p.AutoOpenOnCashInitiated
	}
	if p.AutoOpenOnCashCompleted != nil {
		base.AutoOpenOnCashCompleted = *p.AutoOpenOnCashCompleted
	}
	if p.RequireManagerPinForManualOpen != nil {
		base.RequireManagerPinForManualOpen = *p.RequireManagerPinForManualOpen
	}
	return base
}

// KickCommand is the descriptor handed to the external print bridge.
// A NoOp command is inert: it is never sent, the caller falls back to
// manual drawer payout.
type KickCommand struct {
	NoOp        bool           `json:"noOp"`
	PrinterName string         `json:"printerName,omitempty"`
	Profile     CommandProfile `json:"profile,omitempty"`
	KickMode    int            `json:"kickMode"`
	T1          int            `json:"t1"`
	T2          int            `json:"t2"`
}

// SettingsRepository persists the settings blob under one configuration key.
type SettingsRepository interface {
	// Load returns the stored settings, or nil when nothing is stored yet.
	Load(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, settings Settings) error
}
