package system

import (
	"time"

	coresys "github.com/stormvale/server/internal/core/system"
	"github.com/stormvale/server/internal/world"
)

// ObjectUpdateSystem drives every resident object's lifecycle state machine
// once per tick. Phase 1 (Update).
type ObjectUpdateSystem struct {
	m *world.Map
}

func NewObjectUpdateSystem(m *world.Map) *ObjectUpdateSystem {
	return &ObjectUpdateSystem{m: m}
}

func (s *ObjectUpdateSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ObjectUpdateSystem) Update(dt time.Duration) {
	// Update may queue removals but never mutates the object list itself;
	// removals are drained in the cleanup phase.
	for _, obj := range s.m.Objects() {
		obj.Update(dt)
	}
}
