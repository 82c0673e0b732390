package bridge

import (
	"sync"
	"time"
)

// SnapshotStore caches the latest hopper_level report. Each report
// replaces the snapshot wholesale; last write wins.
type SnapshotStore struct {
	mu        sync.RWMutex
	hoppers   []HopperLevel
	updatedAt time.Time
}

// NewSnapshotStore constructs an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Attach subscribes the store to hopper_level events on the bridge.
func (s *SnapshotStore) Attach(b Bridge) Subscription {
	return b.On(EventHopperLevel, func(payload any) {
		if levels, ok := payload.(HopperLevelPayload); ok {
			s.Update(levels.Hoppers, time.Now().UTC())
		}
	})
}

// Update replaces the snapshot.
func (s *SnapshotStore) Update(hoppers []HopperLevel, at time.Time) {
	copied := append([]HopperLevel(nil), hoppers...)
	s.mu.Lock()
	s.hoppers = copied
	s.updatedAt = at
	s.mu.Unlock()
}

// Snapshot returns a copy of the latest levels and when they arrived.
// The zero time means no report has been received yet.
func (s *SnapshotStore) Snapshot() ([]HopperLevel, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]HopperLevel(nil), s.hoppers...), s.updatedAt
}
