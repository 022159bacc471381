package world

import (
	"time"

	"go.uber.org/zap"

	"github.com/stormvale/server/internal/core/event"
)

// fishingBobberSplash is how long before the bobber's expiry it splashes and
// becomes catchable.
const fishingBobberSplash = 5 * time.Second

// respawnPolicy decides how a deactivated spawn waits out its respawn delay.
// Selected once when the object is created or loaded.
type respawnPolicy interface {
	// poll runs the Ready-state respawn check. Returns false when the object
	// must skip its Ready upkeep this tick.
	poll(o *Object, now time.Time) bool
	// retire parks the object after its respawn instant has been journaled.
	retire(o *Object)
}

// legacyRespawnPolicy keeps the instance resident and polls its in-object
// respawn timer every Ready tick.
type legacyRespawnPolicy struct{}

func (legacyRespawnPolicy) poll(o *Object, now time.Time) bool {
	if !o.respawnTime.IsZero() && !o.respawnTime.After(now) {
		return o.tryCompatRespawn(now)
	}
	return true
}

func (legacyRespawnPolicy) retire(o *Object) {
	// stays resident, hidden until the timer elapses in poll
	o.m.Notifier.DestroyForNearby(o)
}

// asyncRespawnPolicy removes the instance from the world; the respawn system
// recreates it from its spawn record when the journaled instant elapses.
type asyncRespawnPolicy struct{}

func (asyncRespawnPolicy) poll(*Object, time.Time) bool { return true }

func (asyncRespawnPolicy) retire(o *Object) { o.m.QueueRemoval(o) }

// Update advances the object's lifecycle by one tick. An object that
// finishes arming transitions NotReady→Ready and runs the Ready step within
// the same tick; the transition loop is bounded to that one extra step.
func (o *Object) Update(diff time.Duration) {
	o.ai.UpdateAI(diff)

	if o.despawnDelay > 0 {
		if o.despawnDelay > diff {
			o.despawnDelay -= diff
		} else {
			o.despawnDelay = 0
			o.DespawnOrUnsummon(0, o.despawnRespawnTime)
			return
		}
	}

	if o.IsTransport() {
		o.updateTransport(diff)
	}

	for step := 0; step < 2; step++ {
		switch o.lootState {
		case StateNotReady:
			if !o.updateNotReady() {
				return
			}
			continue // re-dispatch on the state arming produced

		case StateReady:
			o.updateReady()

		case StateActivated:
			o.updateActivated(diff)

		case StateJustDeactivated:
			o.updateJustDeactivated()
		}
		return
	}
}

// updateNotReady finishes arming via the kind's arm hook. Returns false when
// the object must stay in NotReady for this tick.
func (o *Object) updateNotReady() bool {
	if arm := o.behavior.arm; arm != nil {
		return arm(o, o.m.Now())
	}
	o.lootState = StateReady
	return true
}

// updateReady polls the legacy in-object respawn timer, then runs the kind's
// idle hook; kinds without one exhaust their charges.
func (o *Object) updateReady() {
	now := o.m.Now()

	if !o.respawn.poll(o, now) {
		return
	}

	if !o.IsSpawned() {
		return
	}

	if idle := o.behavior.idle; idle != nil {
		idle(o, now)
		return
	}
	if max := o.tmpl.Charges(); max > 0 && o.useCount >= max {
		o.useCount = 0
		o.SetLootState(StateJustDeactivated, 0)
	}
}

// tryCompatRespawn handles an elapsed compatibility-mode respawn instant.
// Returns false when the respawn was deferred (linked master still dead) or
// consumed the object (expired bobber, despawn-window close).
func (o *Object) tryCompatRespawn(now time.Time) bool {
	if master := o.m.LinkedRespawnTarget(o.spawnID); master != 0 {
		if master == o.spawnID {
			// self-linked: only a script may bring it back
			o.SetRespawnTime(NeverRespawn)
			o.SaveRespawnTime()
			return false
		}
		if linked := o.m.RespawnTime(master); !linked.IsZero() && linked.After(now) {
			// master still dead: follow its instant plus a spread
			o.respawnTime = linked.Add(o.m.RespawnJitter())
			o.SaveRespawnTime()
			return false
		}
	}

	o.respawnTime = time.Time{}
	if o.spawnID != 0 {
		o.m.RemoveRespawnTime(o.spawnID, o.m.Respawn.SaveImmediately)
	}
	o.useCount = 0
	o.uniqueUsers = make(map[int64]struct{})

	if reappear := o.behavior.reappear; reappear != nil && !reappear(o, now) {
		return false
	}

	if !o.spawnedByDefault {
		// raised window closed: drop back out of the world
		o.SetLootState(StateJustDeactivated, 0)
		return false
	}

	if poolID := o.m.Pool.PoolOf(o.spawnID); poolID != 0 {
		o.m.Pool.NotifyPoolUpdate(poolID, o.spawnID)
	} else {
		o.m.Notifier.UpdateVisibility(o)
	}
	event.Emit(o.m.Bus, event.ObjectSpawned{ObjectID: o.id, KindID: o.tmpl.KindID, SpawnID: o.spawnID})
	return true
}

// updateArmedTrap searches for a victim, or detonates bombs when armed.
func (o *Object) updateArmedTrap(now time.Time) {
	tp := o.tmpl.Trap
	if tp == nil {
		return
	}
	if now.Before(o.readyTime) {
		return
	}
	if tp.Charges == 2 {
		// bomb: no victim needed
		o.SetLootState(StateActivated, 0)
		return
	}

	radius := tp.Radius
	if radius <= 0 {
		return
	}
	var target *Actor
	if o.ownerID != 0 {
		// summoned trap: fires on units hostile to its owner
		target = o.m.NearestActor(o.x, o.y, radius, func(a *Actor) bool {
			return a.Hostile && a.ID != o.ownerID
		})
	} else {
		// world trap: fires on any player
		target = o.m.NearestActor(o.x, o.y, radius, func(a *Actor) bool {
			return a.IsPlayer
		})
	}
	if target != nil {
		o.SetLootState(StateActivated, target.ID)
	}
}

// updateActivated resolves the mid-interaction phase via the kind's active
// hook: auto-closing doors and goobers, trap firing, chest roll timers.
func (o *Object) updateActivated(diff time.Duration) {
	if active := o.behavior.active; active != nil {
		active(o, o.m.Now(), diff)
	}
}

// fireTrap delivers the trap's payload after it tripped.
func (o *Object) fireTrap(now time.Time) {
	tp := o.tmpl.Trap
	if tp == nil {
		return
	}
	if tp.Charges == 2 {
		if tp.SpellID != 0 {
			o.CastSpell(0, tp.SpellID)
		}
		o.SetLootState(StateJustDeactivated, 0)
		return
	}

	victim := o.lootStateActor
	if victim == 0 || o.m.Actor(victim) == nil {
		return
	}
	if tp.SpellID != 0 {
		o.CastSpell(victim, tp.SpellID)
	}
	cooldown := defaultTrapCooldown
	if tp.CooldownSec > 0 {
		cooldown = time.Duration(tp.CooldownSec) * time.Second
	}
	o.readyTime = now.Add(cooldown)
	switch tp.Charges {
	case 1:
		o.SetLootState(StateJustDeactivated, 0)
	case 0:
		o.SetLootState(StateReady, 0)
	}

	// battleground buff pads declare no radius and a three second cooldown
	if tp.Radius == 0 && tp.CooldownSec == 3 {
		if a := o.m.Actor(victim); a != nil && a.IsPlayer {
			o.m.Objectives.TriggerBuff(o.id, victim)
		}
	}
}

// updateJustDeactivated decides the object's fate after its interaction
// ended: reset in place, start a despawn, or schedule a respawn.
func (o *Object) updateJustDeactivated() {
	if trap := o.LinkedTrap(); trap != nil {
		o.linkedTrapID = 0
		trap.DespawnOrUnsummon(0, 0)
	}

	if deactivate := o.behavior.deactivate; deactivate != nil && !deactivate(o) {
		return
	}

	if o.loot != nil {
		o.loot.Clear()
	}

	// spell-spawned containers that are not consumed on loot reset where
	// they stand while their lifetime lasts; world spawns always fall
	// through to a scheduled respawn
	if o.ownerID != 0 || o.spellID != 0 {
		if o.behavior.resetsInPlace && !o.respawnTime.IsZero() && !o.tmpl.IsDespawnAtAction() {
			o.SetLootRecipient(nil)
			o.SetLootState(StateReady, 0)
			o.m.Notifier.UpdateVisibility(o)
			return
		}
		o.SetRespawnTime(0)
		o.Delete()
		return
	}

	o.SetLootState(StateNotReady, 0)

	if o.tmpl.IsDespawnAtAction() {
		o.m.Notifier.DespawnAnim(o)
		if flags, ok := o.overrideFlags(); ok {
			o.flags = flags
		}
	}

	if o.respawnDelay == 0 {
		return
	}

	if !o.spawnedByDefault {
		o.respawnTime = time.Time{}
		if o.spawnID != 0 {
			o.m.Notifier.DestroyForNearby(o)
		} else {
			o.Delete()
		}
		return
	}

	delay := o.m.ScaleRespawnDelay(o.respawnDelay)
	o.respawnTime = o.m.Now().Add(delay)
	o.SaveRespawnTime()
	o.respawn.retire(o)
}

// DespawnOrUnsummon removes the object from the world, now or after a delay.
// Competing delayed despawns merge earliest-wins. forceRespawn overrides the
// journaled respawn delay for world spawns; summoned objects just die.
func (o *Object) DespawnOrUnsummon(delay, forceRespawn time.Duration) {
	if delay > 0 {
		if o.despawnDelay == 0 || o.despawnDelay > delay {
			o.despawnDelay = delay
			o.despawnRespawnTime = forceRespawn
		}
		return
	}

	if o.spawnID != 0 {
		respawnDelay := o.respawnDelay
		if forceRespawn > 0 {
			respawnDelay = forceRespawn
		}
		if respawnDelay > 0 && o.spawnedByDefault {
			o.m.SaveRespawnTime(o.spawnID, o.m.Now().Add(o.m.ScaleRespawnDelay(respawnDelay)), o.m.Respawn.SaveImmediately)
		}
	}
	o.Delete()
}

// Delete tears the instance down: companion cascade, despawn animation, pose
// reset, flag reset from overrides, and removal (via the owning pool when the
// spawn belongs to one).
func (o *Object) Delete() {
	if trap := o.LinkedTrap(); trap != nil {
		o.linkedTrapID = 0
		trap.DespawnOrUnsummon(0, 0)
	}

	o.SetLootState(StateNotReady, 0)
	o.m.Notifier.DespawnAnim(o)

	if !o.IsTransport() {
		o.SetVisualState(VisualReady)
	}
	if flags, ok := o.overrideFlags(); ok {
		o.flags = flags
	}

	if poolID := o.m.Pool.PoolOf(o.spawnID); poolID != 0 {
		o.m.Pool.NotifyPoolUpdate(poolID, o.spawnID)
	}
	o.m.QueueRemoval(o)
}

// overrideFlags resolves the effective flag override for this object:
// per-spawn override first, then the template addon.
func (o *Object) overrideFlags() (uint32, bool) {
	if ov := o.m.Tables.Override(o.spawnID, o.tmpl.KindID); ov != nil {
		return ov.Flags, true
	}
	return 0, false
}

// CastSpell dispatches a spell from this object. For summoned objects the
// summoner is the original caster so threat and procs attribute correctly.
// Unknown spells are logged and swallowed; the lifecycle must not stall on a
// bad data row.
func (o *Object) CastSpell(targetID int64, spellID int32) {
	if o.m.Spells == nil {
		return
	}
	if err := o.m.Spells.Cast(o.id, o.ownerID, targetID, spellID); err != nil {
		o.m.log.Warn("object spell cast failed",
			zap.Int64("object_id", o.id),
			zap.Int32("kind_id", o.tmpl.KindID),
			zap.Int32("spell_id", spellID),
			zap.Error(err))
	}
}
