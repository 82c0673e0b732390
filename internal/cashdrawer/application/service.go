package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	cashdrawer "pos-hardware/internal/cashdrawer/domain"
)

// Service holds the cash drawer policy: settings lifecycle, auto-open
// decisions and kick command resolution.
type Service struct {
	repo cashdrawer.SettingsRepository

	mu       sync.RWMutex
	settings cashdrawer.Settings
	loaded   bool
}

// NewService constructs a cash drawer service.
func NewService(repo cashdrawer.SettingsRepository) (*Service, error) {
	if repo == nil {
		return nil, errors.New("cash drawer: nil settings repository")
	}
	return &Service{repo: repo}, nil
}

// GetSettings returns the current settings, loading stored overrides over
// the in-code defaults on first use.
func (s *Service) GetSettings(ctx context.Context) (cashdrawer.Settings, error) {
	s.mu.RLock()
	if s.loaded {
		settings := s.settings
		s.mu.RUnlock()
		return settings, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.settings, nil
	}
	settings := cashdrawer.DefaultSettings()
	stored, err := s.repo.Load(ctx)
	if err != nil {
		return cashdrawer.Settings{}, fmt.Errorf("cash drawer: load settings: %w", err)
	}
	if stored != nil {
		settings = *stored
	}
	s.settings = settings
	s.loaded = true
	return settings, nil
}

// UpdateSettings merges a partial update over the current settings and
// re-persists the full object; never a silent partial write.
func (s *Service) UpdateSettings(ctx context.Context, patch cashdrawer.SettingsPatch) (cashdrawer.Settings, error) {
	if _, err := s.GetSettings(ctx); err != nil {
		return cashdrawer.Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	merged := patch.Apply(s.settings)
	if err := merged.Validate(); err != nil {
		return cashdrawer.Settings{}, err
	}
	if err := s.repo.Save(ctx, merged); err != nil {
		return cashdrawer.Settings{}, fmt.Errorf("cash drawer: save settings: %w", err)
	}
	s.settings = merged
	return merged, nil
}

// ShouldAutoOpen is a pure predicate over the auto-open flags and the
// payment event; it does not talk to hardware.
func ShouldAutoOpen(settings cashdrawer.Settings, event cashdrawer.AutoOpenEvent) bool {
	if !settings.Enabled {
		return false
	}
	switch event {
	case cashdrawer.EventCashInitiated:
		return settings.AutoOpenOnCashInitiated
	case cashdrawer.EventCashCompleted:
		return settings.AutoOpenOnCashCompleted
	default:
		return false
	}
}

// ResolveKickCommand translates the command profile and pulse timings into
// the descriptor handed to the print bridge. Deterministic and
// side-effect-free; a drawer without an assigned printer yields an inert
// no-op command so callers can fall back to manual payout.
func ResolveKickCommand(settings cashdrawer.Settings) cashdrawer.KickCommand {
	if !settings.Enabled || settings.PrinterName == "" {
		return cashdrawer.KickCommand{NoOp: true}
	}
	profile := settings.CommandProfile
	if _, ok := cashdrawer.NormalizeProfile(string(profile)); !ok {
		// AUTO lets the bridge pick a dialect for the named printer.
		profile = cashdrawer.ProfileAuto
	}
	return cashdrawer.KickCommand{
		PrinterName: settings.PrinterName,
		Profile:     profile,
		KickMode:    settings.KickMode,
		T1:          settings.T1,
		T2:          settings.T2,
	}
}
