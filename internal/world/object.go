package world

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/stormvale/server/internal/core/event"
	"github.com/stormvale/server/internal/data"
)

// Object is one materialized world-object instance: a door, chest, trap,
// transport platform and so on. All methods must be called from the map's
// game loop goroutine.
type Object struct {
	id       int64
	spawnID  int64 // 0 for summoned objects
	tmpl     *data.ObjectTemplate
	m        *Map
	ai       ObjectAI
	behavior kindBehavior // per-kind hooks, resolved from the kind tag

	x, y     float64
	facing   float64
	rotation [4]float64
	phaseID  int32

	ownerID int64 // summoning actor, 0 for world spawns
	spellID int32 // spell that summoned this object

	lootState       LootState
	lootStateActor  int64
	visualState     VisualState
	prevVisualState VisualState // rest pose a door or button returns to
	flags           uint32

	chairSlots map[int32]int64 // seat slot → occupying actor

	respawnTime      time.Time     // zero = alive, no pending respawn
	respawnDelay     time.Duration // configured delay between activations
	respawn          respawnPolicy // scheduling strategy, selected at load
	spawnedByDefault bool

	readyTime   time.Time // state timer: trap arming, autoclose, cooldown
	restockTime time.Time // fishing hole refill instant

	despawnDelay       time.Duration // >0 = forced despawn countdown
	despawnRespawnTime time.Duration // respawn override carried by a pending despawn

	useCount    int32
	uniqueUsers map[int64]struct{}

	loot               *Loot
	lootRecipient      int64
	lootRecipientGroup int64

	// transport path cursor
	pathProgress  time.Duration
	stopFrame     int
	stoppedTime   time.Duration // path time accrued while parked at a frame
	visualToggle  time.Duration
	transportOpen bool

	// destructible sub-state
	health       int32
	animProgress uint8 // health as a percentage, mirrored to clients
	destructible DestructibleState

	// ritual bookkeeping
	ritualOwner  int64
	ritualCaster map[int64]struct{}

	linkedTrapID int64 // companion trap spawned alongside this object

	inWorld bool
	dirty   bool
}

func (m *Map) newObject(tmpl *data.ObjectTemplate) *Object {
	obj := &Object{
		id:               m.NextObjectID(),
		tmpl:             tmpl,
		m:                m,
		ai:               NopAI{},
		lootState:        StateNotReady,
		visualState:      VisualReady,
		prevVisualState:  VisualReady,
		flags:            tmpl.Flags,
		respawn:          asyncRespawnPolicy{},
		spawnedByDefault: true,
		uniqueUsers:      make(map[int64]struct{}),
	}
	obj.behavior = kindBehaviors[tmpl.Kind]
	if m.AIFactory != nil {
		if ai := m.AIFactory(obj); ai != nil {
			obj.ai = ai
		}
	}
	return obj
}

// CreateObject materializes a new object instance from a template, validating
// kind and position. The object is not yet added to the map.
func (m *Map) CreateObject(kindID int32, x, y, facing float64, rotation [4]float64) (*Object, error) {
	tmpl := m.Tables.Get(kindID)
	if tmpl == nil {
		return nil, fmt.Errorf("create object: unknown kind id %d", kindID)
	}
	if !tmpl.Instantiable() {
		return nil, fmt.Errorf("create object: kind id %d (%s) is not instantiable", kindID, tmpl.Kind)
	}
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return nil, fmt.Errorf("create object: kind id %d at invalid position (%f, %f)", kindID, x, y)
	}

	obj := m.newObject(tmpl)
	obj.x, obj.y, obj.facing = x, y, facing
	obj.rotation = rotation

	if init := obj.behavior.init; init != nil {
		init(obj)
	}
	return obj, nil
}

// SummonObject creates a spell-summoned object owned by an actor, despawning
// after the given lifetime. Summoned objects never respawn.
func (m *Map) SummonObject(kindID int32, x, y, facing float64, ownerID int64, spellID int32, lifetime time.Duration) (*Object, error) {
	obj, err := m.CreateObject(kindID, x, y, facing, [4]float64{})
	if err != nil {
		return nil, err
	}
	obj.ownerID = ownerID
	obj.spellID = spellID
	obj.spawnedByDefault = false
	obj.respawnDelay = 0
	// summoned objects poll their own lifetime; there is no spawn record for
	// the respawn system to recreate them from
	obj.respawn = legacyRespawnPolicy{}
	if lifetime > 0 {
		obj.respawnTime = m.Now().Add(lifetime)
	}
	if err := m.AddToMap(obj); err != nil {
		return nil, err
	}
	obj.spawnLinkedTrap()
	return obj, nil
}

// SpawnFromRecord materializes a world spawn point. In asynchronous respawn
// mode an object with a pending respawn instant stays unmaterialized and is
// recreated by the respawn system when due; in compatibility mode the object
// always enters the world and polls its own respawn timer.
func (m *Map) SpawnFromRecord(rec *SpawnRecord) (*Object, error) {
	tmpl := m.Tables.Get(rec.KindID)
	if tmpl == nil {
		return nil, fmt.Errorf("spawn %d: unknown kind id %d", rec.SpawnID, rec.KindID)
	}

	compat := rec.CompatibilityMode
	if rec.RespawnSecs < 0 && !compat {
		// despawned-by-default spawns cannot be recreated asynchronously:
		// there is no respawn instant to schedule from
		m.log.Warn("spawned-by-default=false forces compatibility respawn mode",
			zap.Int64("spawn_id", rec.SpawnID), zap.Int32("kind_id", rec.KindID))
		compat = true
	}

	pending := m.RespawnTime(rec.SpawnID)
	if !compat && !pending.IsZero() && pending.After(m.Now()) {
		// respawn system will recreate it when due
		return nil, nil
	}

	obj := m.newObject(tmpl)
	obj.spawnID = rec.SpawnID
	obj.x, obj.y, obj.facing = rec.X, rec.Y, rec.Facing
	obj.rotation = rec.Rotation
	obj.phaseID = rec.PhaseID
	obj.spawnedByDefault = rec.SpawnedByDefault()
	obj.respawnDelay = time.Duration(rec.RespawnDelay()) * time.Second
	if compat {
		obj.respawn = legacyRespawnPolicy{}
	}
	if !pending.IsZero() {
		obj.respawnTime = pending
	}
	if !obj.spawnedByDefault {
		// hidden until an external trigger raises a visibility window
		obj.respawnTime = time.Time{}
	}

	if restore := obj.behavior.restore; restore != nil {
		restore(obj, rec)
	} else {
		obj.visualState = rec.VisualState
		obj.prevVisualState = rec.VisualState
	}

	if err := m.AddToMap(obj); err != nil {
		return nil, err
	}
	obj.spawnLinkedTrap()
	return obj, nil
}

// spawnLinkedTrap materializes the companion trap declared by the template,
// owned by the same summoner. Failures are logged, not fatal: the host
// object works without its trap.
func (o *Object) spawnLinkedTrap() {
	linkedKind := o.tmpl.LinkedTrapKind()
	if linkedKind == 0 {
		return
	}
	trap, err := o.m.CreateObject(linkedKind, o.x, o.y, o.facing, o.rotation)
	if err != nil {
		o.m.log.Warn("linked trap creation failed",
			zap.Int32("kind_id", o.tmpl.KindID), zap.Int32("trap_kind_id", linkedKind), zap.Error(err))
		return
	}
	trap.ownerID = o.ownerID
	trap.spellID = o.spellID
	trap.spawnedByDefault = o.spawnedByDefault
	if err := o.m.AddToMap(trap); err != nil {
		o.m.log.Warn("linked trap add failed", zap.Int32("trap_kind_id", linkedKind), zap.Error(err))
		return
	}
	o.linkedTrapID = trap.id
}

// LinkedTrap returns the resident companion trap, or nil.
func (o *Object) LinkedTrap() *Object {
	if o.linkedTrapID == 0 {
		return nil
	}
	return o.m.Object(o.linkedTrapID)
}

// --- accessors ---

func (o *Object) ID() int64                     { return o.id }
func (o *Object) SpawnID() int64                { return o.spawnID }
func (o *Object) Template() *data.ObjectTemplate { return o.tmpl }
func (o *Object) Kind() data.Kind               { return o.tmpl.Kind }
func (o *Object) Position() (x, y float64)      { return o.x, o.y }
func (o *Object) Facing() float64               { return o.facing }
func (o *Object) OwnerID() int64                { return o.ownerID }
func (o *Object) SpellID() int32                { return o.spellID }
func (o *Object) AI() ObjectAI                  { return o.ai }
func (o *Object) Map() *Map                     { return o.m }
func (o *Object) InWorld() bool                 { return o.inWorld }

func (o *Object) LootState() LootState          { return o.lootState }
func (o *Object) AnimProgress() uint8           { return o.animProgress }
func (o *Object) VisualState() VisualState      { return o.visualState }
func (o *Object) Loot() *Loot                   { return o.loot }
func (o *Object) UseCount() int32               { return o.useCount }
func (o *Object) RespawnTime() time.Time        { return o.respawnTime }
func (o *Object) RespawnDelay() time.Duration   { return o.respawnDelay }
func (o *Object) SpawnedByDefault() bool        { return o.spawnedByDefault }

// CompatibilityMode reports whether the legacy resident-polling respawn
// policy governs this object.
func (o *Object) CompatibilityMode() bool {
	_, ok := o.respawn.(legacyRespawnPolicy)
	return ok
}

func (o *Object) IsTransport() bool {
	return o.tmpl.Kind == data.KindTransport
}

func (o *Object) IsDestructible() bool {
	return o.tmpl.Kind == data.KindDestructible
}

// IsSpawned reports whether the instance is currently alive. For
// spawned-by-default objects a future respawn instant means "down, waiting".
// For despawned-by-default objects the instant is a raised visibility
// window: set means visible, zero means hidden.
func (o *Object) IsSpawned() bool {
	if o.respawnDelay == 0 {
		return true
	}
	if o.spawnedByDefault {
		return o.respawnTime.IsZero() || !o.respawnTime.After(o.m.Now())
	}
	return !o.respawnTime.IsZero()
}

// --- flags ---

func (o *Object) HasFlag(f uint32) bool { return o.flags&f != 0 }

func (o *Object) SetFlag(f uint32) {
	if o.flags&f != f {
		o.flags |= f
		o.m.Notifier.ForceStateUpdate(o)
	}
}

func (o *Object) ClearFlag(f uint32) {
	if o.flags&f != 0 {
		o.flags &^= f
		o.m.Notifier.ForceStateUpdate(o)
	}
}

// --- state mutators ---

// SetLootState moves the activation state machine, informs the AI hook and
// publishes the transition for the interaction audit log. Collision follows
// the loot state for everything except doors and buttons, whose collision is
// tied to the visual pose instead.
func (o *Object) SetLootState(state LootState, actorID int64) {
	o.lootState = state
	o.lootStateActor = actorID
	o.ai.OnLootStateChanged(state, actorID)
	event.Emit(o.m.Bus, event.ObjectStateChanged{
		ObjectID: o.id, SpawnID: o.spawnID, State: int32(state), ActorID: actorID,
	})

	if o.tmpl.Kind == data.KindDoor || o.tmpl.Kind == data.KindButton {
		return
	}
	o.m.SetCollision(o, state == StateReady || state == StateActivated)
}

// SetVisualState changes the visual pose and informs the AI hook. Door and
// button collision follows the pose: closed blocks, open does not.
func (o *Object) SetVisualState(state VisualState) {
	o.visualState = state
	o.ai.OnStateChanged(state)
	o.m.Notifier.ForceStateUpdate(o)

	if o.tmpl.Kind == data.KindDoor || o.tmpl.Kind == data.KindButton {
		o.m.SetCollision(o, state == VisualReady)
	}
}

// --- respawn bookkeeping ---

// SetRespawnTime overrides the pending respawn: positive delays schedule a
// respawn instant and become the new configured delay, zero or negative
// clears both.
func (o *Object) SetRespawnTime(delay time.Duration) {
	if delay > 0 {
		o.respawnTime = o.m.Now().Add(delay)
		o.respawnDelay = delay
	} else {
		o.respawnTime = time.Time{}
		o.respawnDelay = 0
	}
	if !o.respawnTime.IsZero() && !o.spawnedByDefault {
		o.m.Notifier.UpdateVisibility(o)
	}
}

// Respawn collapses a pending respawn instant to now, making the object
// eligible on the next tick. No-op for despawned-by-default spawns.
func (o *Object) Respawn() {
	if o.spawnedByDefault && o.respawnTime.After(o.m.Now()) {
		o.respawnTime = o.m.Now()
		o.m.RemoveRespawnTime(o.spawnID, true)
	}
}

// Refresh re-announces a spawned object to nearby observers. Objects waiting
// on a respawn instant are left alone.
func (o *Object) Refresh() {
	if !o.respawnTime.IsZero() && o.spawnedByDefault {
		return
	}
	if o.IsSpawned() {
		o.m.Notifier.UpdateVisibility(o)
	}
}

// SaveRespawnTime journals the pending respawn instant so it survives a map
// reload. Despawned-by-default spawns journal their raised window instead.
func (o *Object) SaveRespawnTime() {
	if o.spawnID == 0 {
		return
	}
	if o.respawnTime.IsZero() || !o.respawnTime.After(o.m.Now()) {
		return
	}
	o.m.SaveRespawnTime(o.spawnID, o.respawnTime, o.m.Respawn.SaveImmediately)
}

// --- use bookkeeping ---

// AddUse counts one activation.
func (o *Object) AddUse() { o.useCount++ }

// AddUniqueUse counts one activation per distinct actor: ritual circles and
// meeting stones care about who, not how often.
func (o *Object) AddUniqueUse(actorID int64) {
	o.uniqueUsers[actorID] = struct{}{}
	o.useCount = int32(len(o.uniqueUsers))
}

// HasUniqueUser reports whether the actor already activated this object.
func (o *Object) HasUniqueUser(actorID int64) bool {
	_, ok := o.uniqueUsers[actorID]
	return ok
}

// SetLootRecipient pins loot to the opening actor and their group. A nil
// actor clears the pin.
func (o *Object) SetLootRecipient(a *Actor) {
	if a == nil {
		o.lootRecipient = 0
		o.lootRecipientGroup = 0
		return
	}
	o.lootRecipient = a.ID
	o.lootRecipientGroup = a.GroupID
}

// LootRecipient returns the pinned opener and group ids.
func (o *Object) LootRecipient() (actorID, groupID int64) {
	return o.lootRecipient, o.lootRecipientGroup
}

// IsLootAllowedFor reports whether the actor may take this object's loot.
// Unpinned loot is open to everyone.
func (o *Object) IsLootAllowedFor(a *Actor) bool {
	if o.lootRecipient == 0 && o.lootRecipientGroup == 0 {
		return true
	}
	if a.ID == o.lootRecipient {
		return true
	}
	return a.GroupID != 0 && a.GroupID == o.lootRecipientGroup
}

// --- persistence ---

// MarkDirty queues the object for the next persistence sweep.
func (o *Object) MarkDirty() { o.dirty = true }

// Dirty reports and clears the persistence flag.
func (o *Object) Dirty() bool { return o.dirty }

// ClearDirty resets the persistence flag after a successful save.
func (o *Object) ClearDirty() { o.dirty = false }

// SpawnRecord snapshots the instance into its durable spawn form.
func (o *Object) ToSpawnRecord() *SpawnRecord {
	secs := int32(o.respawnDelay / time.Second)
	if !o.spawnedByDefault {
		secs = -secs
	}
	rec := &SpawnRecord{
		SpawnID:           o.spawnID,
		KindID:            o.tmpl.KindID,
		MapID:             o.m.ID,
		X:                 o.x,
		Y:                 o.y,
		Facing:            o.facing,
		Rotation:          o.rotation,
		RespawnSecs:       secs,
		VisualState:       o.visualState,
		PhaseID:           o.phaseID,
		CompatibilityMode: o.CompatibilityMode(),
	}
	if tp := o.tmpl.Transport; o.IsTransport() && tp != nil && tp.PeriodMs > 0 {
		period := time.Duration(tp.PeriodMs) * time.Millisecond
		rec.AnimProgress = uint8(o.pathProgress * 100 / period)
	} else if o.IsDestructible() {
		rec.AnimProgress = o.animProgress
	}
	return rec
}

// SaveToDB writes the spawn record through the durable store. Summoned
// objects have no spawn point and are skipped.
func (o *Object) SaveToDB(ctx context.Context) error {
	if o.spawnID == 0 || o.m.Store == nil {
		return nil
	}
	if err := o.m.Store.SaveSpawnRecord(ctx, o.ToSpawnRecord()); err != nil {
		return fmt.Errorf("save spawn %d: %w", o.spawnID, err)
	}
	o.ClearDirty()
	return nil
}

// DeleteFromDB removes the spawn point permanently: the spawn row, its
// journaled respawn instant and its linked-respawn pairing.
func (o *Object) DeleteFromDB(ctx context.Context) error {
	if o.spawnID == 0 || o.m.Store == nil {
		return nil
	}
	o.m.RemoveRespawnTime(o.spawnID, true)
	o.m.RemoveLinkedRespawn(o.spawnID)
	if err := o.m.Store.DeleteSpawnRecord(ctx, o.spawnID); err != nil {
		return fmt.Errorf("delete spawn %d: %w", o.spawnID, err)
	}
	return nil
}
