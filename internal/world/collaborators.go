package world

import (
	"time"

	"github.com/google/uuid"

	"github.com/stormvale/server/internal/data"
)

// ObjectAI is the decision-script hook surface for a single object.
// Implementations live outside the lifecycle core (lua scripts, tests).
type ObjectAI interface {
	// UpdateAI runs once per tick before lifecycle processing.
	UpdateAI(diff time.Duration)
	// GossipHello fires on Use before any per-kind behavior; returning true
	// consumes the interaction.
	GossipHello(actor *Actor) bool
	OnLootStateChanged(state LootState, actorID int64)
	OnStateChanged(state VisualState)
	Reset()
	EventInform(eventID int32, invokerID int64)
	Damaged(instigatorID int64, eventID int32)
	Destroyed(instigatorID int64, eventID int32)
}

// NopAI is the default hook implementation for unscripted objects.
type NopAI struct{}

func (NopAI) UpdateAI(time.Duration)                {}
func (NopAI) GossipHello(*Actor) bool               { return false }
func (NopAI) OnLootStateChanged(LootState, int64)   {}
func (NopAI) OnStateChanged(VisualState)            {}
func (NopAI) Reset()                                {}
func (NopAI) EventInform(int32, int64)              {}
func (NopAI) Damaged(int64, int32)                  {}
func (NopAI) Destroyed(int64, int32)                {}

// SpellDispatcher resolves and enqueues spell effects on behalf of objects.
// Casts are deferred by the implementation; an unknown spell id is an error
// the caller logs and swallows.
type SpellDispatcher interface {
	Cast(casterObjectID, originalCasterID, targetActorID int64, spellID int32) error
}

// Client message ids carried by Notifier.Message.
const (
	MsgFishNotHooked int32 = iota + 1
	MsgFishEscaped
	MsgChairOccupied
	MsgAlreadyUsed
)

// Notifier pushes state changes to nearby clients. The wire format is not
// this package's concern.
type Notifier interface {
	DespawnAnim(obj *Object)
	DestroyForNearby(obj *Object)
	UpdateVisibility(obj *Object)
	// ForceStateUpdate resends state fields even when values are unchanged
	// (transport visual toggle).
	ForceStateUpdate(obj *Object)
	CustomAnim(obj *Object, progress uint8)
	ShowPage(actorID int64, obj *Object, pageID int32)
	ShowGossip(actorID int64, obj *Object, gossipID int32)
	SendLoot(actorID int64, obj *Object, lootKind LootKind)
	Message(actorID int64, messageID int32)
	SeatActor(actorID int64, x, y float64, height int32)
	StartCinematic(actorID int64, obj *Object)
}

// NopNotifier drops all notifications (headless maps and tests).
type NopNotifier struct{}

func (NopNotifier) DespawnAnim(*Object)                  {}
func (NopNotifier) DestroyForNearby(*Object)             {}
func (NopNotifier) UpdateVisibility(*Object)             {}
func (NopNotifier) ForceStateUpdate(*Object)             {}
func (NopNotifier) CustomAnim(*Object, uint8)            {}
func (NopNotifier) ShowPage(int64, *Object, int32)       {}
func (NopNotifier) ShowGossip(int64, *Object, int32)     {}
func (NopNotifier) SendLoot(int64, *Object, LootKind)    {}
func (NopNotifier) Message(int64, int32)                 {}
func (NopNotifier) SeatActor(int64, float64, float64, int32) {}
func (NopNotifier) StartCinematic(int64, *Object)        {}

// PoolSource answers pool membership questions. Pool-member spawns delegate
// "should exist now" decisions to the pool instead of self-respawning.
type PoolSource interface {
	PoolOf(spawnID int64) int32 // 0 = not pooled
	NotifyPoolUpdate(poolID int32, spawnID int64)
}

// NoPools is the default PoolSource: nothing is pooled.
type NoPools struct{}

func (NoPools) PoolOf(int64) int32            { return 0 }
func (NoPools) NotifyPoolUpdate(int32, int64) {}

// GroupRegistry ends group loot rolls when the roll countdown expires.
type GroupRegistry interface {
	EndRoll(groupID int64, rollID uuid.UUID)
}

// NoGroups ignores roll lifecycle calls.
type NoGroups struct{}

func (NoGroups) EndRoll(int64, uuid.UUID) {}

// ObjectiveHook is the battleground-objective collaborator.
type ObjectiveHook interface {
	// TriggerBuff fires when a battleground trap (zero radius, 3 s cooldown)
	// hits an actor.
	TriggerBuff(objectID, actorID int64)
	// GateDestroyed fires when a destructible structure reaches Destroyed.
	GateDestroyed(instigatorID, objectID int64)
	// UseFlag handles flag stands, flag drops and capture points; returns
	// false when the actor may not interact.
	UseFlag(actorID int64, obj *Object, kind data.Kind) bool
}

// NoObjectives permits nothing and observes nothing.
type NoObjectives struct{}

func (NoObjectives) TriggerBuff(int64, int64)                   {}
func (NoObjectives) GateDestroyed(int64, int64)                 {}
func (NoObjectives) UseFlag(int64, *Object, data.Kind) bool     { return false }
