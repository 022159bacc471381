package system

import (
	"time"

	coresys "github.com/stormvale/server/internal/core/system"
	"github.com/stormvale/server/internal/world"
)

// CleanupSystem flushes the deferred object removal queue at tick end.
// Phase 4 (Cleanup).
type CleanupSystem struct {
	m *world.Map
}

func NewCleanupSystem(m *world.Map) *CleanupSystem {
	return &CleanupSystem{m: m}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.m.DrainRemovals()
}
