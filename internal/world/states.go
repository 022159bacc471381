package world

import (
	"fmt"
	"time"
)

// LootState is the lifecycle activation state of an object.
type LootState int32

const (
	StateNotReady        LootState = iota // arming / initializing, not interactable
	StateReady                            // interactable, idle
	StateActivated                        // mid-interaction
	StateJustDeactivated                  // transient: decide despawn / reset / respawn
)

func (s LootState) String() string {
	switch s {
	case StateNotReady:
		return "not_ready"
	case StateReady:
		return "ready"
	case StateActivated:
		return "activated"
	case StateJustDeactivated:
		return "just_deactivated"
	}
	return fmt.Sprintf("loot_state(%d)", int32(s))
}

// VisualState is the client-visible pose of an object: open/closed for doors
// and buttons, moving/stopped for transports.
type VisualState int32

const (
	VisualActive    VisualState = iota // open / triggered
	VisualReady                        // closed / armed (rest pose)
	VisualActiveAlt                    // alternative triggered pose

	// Transport poses. VisualTransportStopped+k = stopped at stop frame k.
	VisualTransportActive  VisualState = 24
	VisualTransportStopped VisualState = 25
)

// MaxTransportStopFrames bounds the stop-frame table length.
const MaxTransportStopFrames = 9

// StoppedAtFrame returns the visual state for "stopped at stop frame k".
func StoppedAtFrame(k int) VisualState {
	return VisualTransportStopped + VisualState(k)
}

// DestructibleState is the structural sub-state of a destructible building.
type DestructibleState int32

const (
	DestructibleIntact DestructibleState = iota
	DestructibleDamaged
	DestructibleDestroyed
	DestructibleRebuilding
)

func (s DestructibleState) String() string {
	switch s {
	case DestructibleIntact:
		return "intact"
	case DestructibleDamaged:
		return "damaged"
	case DestructibleDestroyed:
		return "destroyed"
	case DestructibleRebuilding:
		return "rebuilding"
	}
	return fmt.Sprintf("destructible_state(%d)", int32(s))
}

// NeverRespawn is the interval used for self-referential linked respawns:
// long enough to never elapse in practice.
const NeverRespawn = 7 * 24 * time.Hour

// transportToggleInterval is the fixed period of the transport visual bit.
const transportToggleInterval = 20 * time.Second

// defaultTrapCooldown applies when a trap template declares no cooldown.
const defaultTrapCooldown = 4 * time.Second

// bombArmTime is the fixed arming delay of self-detonating (charges == 2)
// traps.
const bombArmTime = 10 * time.Second
