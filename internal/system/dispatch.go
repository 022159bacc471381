package system

import (
	"time"

	"github.com/stormvale/server/internal/core/event"
	coresys "github.com/stormvale/server/internal/core/system"
)

// DispatchSystem rotates the event bus and delivers last tick's events to
// their subscribers. Phase 0 (PreUpdate) so every other system sees a stable
// front buffer for the whole tick.
type DispatchSystem struct {
	bus *event.Bus
}

func NewDispatchSystem(bus *event.Bus) *DispatchSystem {
	return &DispatchSystem{bus: bus}
}

func (s *DispatchSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *DispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
