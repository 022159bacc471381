package system

import "time"

// Phase defines execution ordering within a single simulation tick.
type Phase int

const (
	PhasePreUpdate  Phase = iota // 0: dispatch last tick's events
	PhaseUpdate                  // 1: object lifecycle updates
	PhasePostUpdate              // 2: respawn recreation, visibility
	PhasePersist                 // 3: batch save of dirty spawn records
	PhaseCleanup                 // 4: destroy queued instances
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
