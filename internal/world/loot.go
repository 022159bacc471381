package world

import (
	"time"

	"github.com/google/uuid"
)

// LootKind selects which loot table family fills a container.
type LootKind int32

const (
	LootChest LootKind = iota
	LootFishing
	LootFishingJunk
)

// Loot is the per-instance loot container. Table resolution is a content
// concern; the lifecycle only tracks fill state, roll bookkeeping and
// recipient rights.
type Loot struct {
	LootID   int32
	Kind     LootKind
	Filled   bool
	RollID    uuid.UUID     // group loot roll session, uuid.Nil = no roll open
	RollTimer time.Duration // remaining roll countdown
	ItemsLeft int32
}

// Fill marks the container generated for the given table.
func (l *Loot) Fill(lootID int32, kind LootKind) {
	l.LootID = lootID
	l.Kind = kind
	l.Filled = true
}

// OpenRoll starts a group loot roll session with a countdown and returns
// its id.
func (l *Loot) OpenRoll(countdown time.Duration) uuid.UUID {
	l.RollID = uuid.New()
	l.RollTimer = countdown
	return l.RollID
}

// CloseRoll ends the roll session, if any.
func (l *Loot) CloseRoll() {
	l.RollID = uuid.Nil
	l.RollTimer = 0
}

// Clear empties the container.
func (l *Loot) Clear() {
	*l = Loot{}
}
