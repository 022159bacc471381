package world

import "math"

// Actor is the minimal view of a unit the object lifecycle needs: identity,
// position, grouping and a few interaction gates. Combat, inventory and
// movement live elsewhere.
type Actor struct {
	ID       int64
	Name     string
	X, Y     float64
	Facing   float64
	MapID    int32
	GroupID  int64 // 0 = ungrouped
	Level    int32
	IsPlayer bool
	InCombat bool
	Hostile  bool // unfriendly to trap owners; stands in for faction checks

	// Channeling tracks the spell an actor is currently channeling
	// (summoning rituals, fishing). 0 = none.
	Channeling int32

	// FishSkill is the actor's fishing proficiency for bobber rolls.
	FishSkill int32
}

// DistanceTo returns the 2D euclidean distance between the actor and a point.
func (a *Actor) DistanceTo(x, y float64) float64 {
	dx := a.X - x
	dy := a.Y - y
	return math.Sqrt(dx*dx + dy*dy)
}
