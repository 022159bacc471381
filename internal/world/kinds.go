package world

import (
	"time"

	"github.com/google/uuid"

	"github.com/stormvale/server/internal/data"
)

// kindBehavior groups the per-kind hooks the lifecycle machine and the
// interaction entry point call. The behavior is resolved once at construction
// from the descriptor's kind tag; the state machine itself never branches on
// kinds, which also lets each kind's handlers be tested in isolation.
type kindBehavior struct {
	// init runs kind-specific field setup right after construction.
	init func(*Object)

	// use runs the actor-initiated interaction. nil means the kind rejects
	// interaction outright.
	use func(*Object, *Actor) error

	// arm finishes NotReady arming. Returning false keeps the object in
	// NotReady for this tick. nil arms instantly.
	arm func(*Object, time.Time) bool

	// idle runs Ready-state upkeep each tick. nil falls back to charge
	// exhaustion.
	idle func(*Object, time.Time)

	// reappear runs when an in-object respawn instant elapses, before the
	// object becomes visible again. Returning false means the respawn was
	// consumed instead (the object moved on to another state).
	reappear func(*Object, time.Time) bool

	// restore rehydrates kind-specific fields from a spawn record. nil
	// restores the recorded pose.
	restore func(*Object, *SpawnRecord)

	// active resolves the Activated phase each tick.
	active func(*Object, time.Time, time.Duration)

	// deactivate runs kind-specific teardown at the head of JustDeactivated.
	// Returning false stops further fate processing.
	deactivate func(*Object) bool

	// resetsInPlace: a deactivated spell-spawned instance with lifetime left
	// returns to Ready where it stands instead of being torn down. Never
	// applies to world spawns, which always fall through to a respawn.
	resetsInPlace bool
}

// kindBehaviors maps a kind tag to its behavior hooks. Kinds absent here run
// the default lifecycle and have no interaction.
var kindBehaviors = map[data.Kind]kindBehavior{
	data.KindDoor: {
		init:     initDoorOrButton,
		use:      useDoor,
		reappear: reappearDoorOrButton,
		active:   activeDoorOrButton,
	},
	data.KindButton: {
		init:     initDoorOrButton,
		use:      useButton,
		reappear: reappearDoorOrButton,
		active:   activeDoorOrButton,
	},
	data.KindQuestGiver: {use: (*Object).useQuestGiver},
	data.KindChest: {
		use:           (*Object).useChest,
		arm:           armChest,
		active:        activeChest,
		resetsInPlace: true,
	},
	data.KindGeneric:    {use: useNothing},
	data.KindSpellFocus: {use: useNothing},
	data.KindMailbox:    {use: useNothing},
	data.KindTrap: {
		use:    useTrapTrip,
		arm:    armTrap,
		idle:   (*Object).updateArmedTrap,
		active: activeTrap,
	},
	data.KindChair: {use: (*Object).useChair},
	data.KindGoober: {
		use:        (*Object).useGoober,
		active:     activeGoober,
		deactivate: deactivateGoober,
	},
	data.KindTransport: {
		init:    initTransport,
		use:     (*Object).useTransport,
		restore: restoreTransport,
	},
	data.KindCamera: {use: useCamera},
	data.KindFishingNode: {
		use:      (*Object).useFishingNode,
		arm:      armFishingNode,
		reappear: reappearFishingNode,
	},
	data.KindRitual:       {use: (*Object).useRitual},
	data.KindSpellCaster:  {use: (*Object).useSpellCaster},
	data.KindMeetingStone: {use: (*Object).useMeetingStone},
	data.KindFlagStand:    {use: (*Object).useFlag},
	data.KindFlagDrop:     {use: (*Object).useFlag},
	data.KindCapturePoint: {use: (*Object).useFlag},
	data.KindFishingHole: {
		init:     initFishingHole,
		use:      (*Object).useFishingHole,
		restore:  restoreFishingHole,
		reappear: reappearFishingHole,
	},
	data.KindBarberChair:  {use: (*Object).useChair},
	data.KindDestructible: {init: initDestructible, restore: restoreDestructible},
}

// --- construction ---

func initDoorOrButton(o *Object) {
	if o.tmpl.Door != nil && o.tmpl.Door.StartOpen {
		o.visualState = VisualActive
		o.prevVisualState = VisualActive
	}
}

func initTransport(o *Object) {
	o.visualState = VisualTransportActive
	o.transportOpen = true
	if tp := o.tmpl.Transport; tp != nil && tp.StartFrame > 0 {
		o.SetTransportState(StoppedAtFrame(int(tp.StartFrame) - 1))
	}
}

func initFishingHole(o *Object) {
	o.loot = &Loot{Kind: LootFishing}
	if fh := o.tmpl.FishingHole; fh != nil {
		o.loot.LootID = fh.LootID
		o.loot.ItemsLeft = o.m.randRange(fh.MinRestock, fh.MaxRestock)
	}
}

func initDestructible(o *Object) {
	o.health = o.tmpl.Destructible.MaxHealth
	o.animProgress = 100
	o.destructible = DestructibleIntact
}

// --- spawn-record rehydration ---

func restoreDestructible(o *Object, _ *SpawnRecord) { initDestructible(o) }

func restoreFishingHole(o *Object, _ *SpawnRecord) { initFishingHole(o) }

func restoreTransport(o *Object, rec *SpawnRecord) {
	o.visualState = VisualTransportActive
	o.transportOpen = true
	// anim progress is a percentage of the path period
	if tp := o.tmpl.Transport; tp != nil && tp.PeriodMs > 0 {
		period := time.Duration(tp.PeriodMs) * time.Millisecond
		o.pathProgress = period * time.Duration(rec.AnimProgress) / 100
	}
	if rec.VisualState >= VisualTransportStopped {
		o.SetTransportState(rec.VisualState)
	}
}

// --- interaction wrappers for kinds without a dedicated handler method ---

func useNothing(*Object, *Actor) error { return nil }

func useDoor(o *Object, a *Actor) error {
	o.UseDoorOrButton(0, false, a.ID)
	return nil
}

func useButton(o *Object, a *Actor) error {
	o.UseDoorOrButton(0, false, a.ID)
	o.TriggerLinkedTrap(a.ID)
	return nil
}

// useTrapTrip is the direct trip path for traps: the payload fires on the
// caller within the same call, unlike the proximity path which resolves over
// the Ready/Activated ticks.
func useTrapTrip(o *Object, a *Actor) error {
	if o.lootState != StateReady {
		return ErrNotReady
	}
	tp := o.tmpl.Trap
	if tp == nil {
		return nil
	}
	if tp.SpellID != 0 {
		o.CastSpell(a.ID, tp.SpellID)
	}
	cooldown := defaultTrapCooldown
	if tp.CooldownSec > 0 {
		cooldown = time.Duration(tp.CooldownSec) * time.Second
	}
	o.readyTime = o.m.Now().Add(cooldown)
	if tp.Charges != 0 {
		o.SetLootState(StateJustDeactivated, a.ID)
	}
	// battleground buff pads declare no radius and a three second cooldown
	if tp.Radius == 0 && tp.CooldownSec == 3 && a.IsPlayer {
		o.m.Objectives.TriggerBuff(o.id, a.ID)
	}
	return nil
}

func useCamera(o *Object, a *Actor) error {
	o.m.Notifier.StartCinematic(a.ID, o)
	return nil
}

// --- arming (NotReady) ---

func armTrap(o *Object, now time.Time) bool {
	tp := o.tmpl.Trap
	if tp != nil && tp.Charges == 2 {
		// self-detonating: fixed arm time regardless of template delay
		o.readyTime = now.Add(bombArmTime)
	} else if tp != nil && tp.StartDelaySec > 0 {
		o.readyTime = now.Add(time.Duration(tp.StartDelaySec) * time.Second)
	}
	o.SetLootState(StateReady, 0)
	return true
}

// armFishingNode splashes the bobber shortly before it expires; the node is
// catchable from then on.
func armFishingNode(o *Object, now time.Time) bool {
	if now.Before(o.respawnTime.Add(-fishingBobberSplash)) {
		return false
	}
	o.SetVisualState(VisualActive)
	o.flags = data.FlagNoDespawn
	o.m.Notifier.CustomAnim(o, 0)
	o.lootState = StateReady
	return true
}

func armChest(o *Object, now time.Time) bool {
	if !o.restockTime.IsZero() {
		if now.Before(o.restockTime) {
			return false
		}
		o.restockTime = time.Time{}
		if o.loot != nil {
			o.loot.Clear()
		}
		o.m.Notifier.ForceStateUpdate(o)
	}
	o.lootState = StateReady
	return true
}

// --- respawn reappearance ---

// reappearFishingNode: the bobber expired unscathed.
func reappearFishingNode(o *Object, _ time.Time) bool {
	o.m.Notifier.Message(o.ownerID, MsgFishNotHooked)
	o.lootState = StateJustDeactivated
	return false
}

func reappearDoorOrButton(o *Object, _ time.Time) bool {
	if o.visualState != VisualReady {
		o.resetDoorOrButton()
	}
	return true
}

func reappearFishingHole(o *Object, _ time.Time) bool {
	if fh := o.tmpl.FishingHole; fh != nil && o.loot != nil {
		o.loot.ItemsLeft = o.m.randRange(fh.MinRestock, fh.MaxRestock)
	}
	return true
}

// --- Activated phase ---

func activeDoorOrButton(o *Object, now time.Time, _ time.Duration) {
	if !o.readyTime.IsZero() && !now.Before(o.readyTime) {
		o.resetDoorOrButton()
	}
}

func activeGoober(o *Object, now time.Time, _ time.Duration) {
	if !now.Before(o.readyTime) {
		o.ClearFlag(data.FlagInUse)
		o.SetLootState(StateJustDeactivated, 0)
		o.readyTime = time.Time{}
	}
}

func activeChest(o *Object, _ time.Time, diff time.Duration) {
	if o.loot != nil && o.loot.RollID != uuid.Nil {
		if o.loot.RollTimer > diff {
			o.loot.RollTimer -= diff
		} else {
			o.m.Groups.EndRoll(o.lootRecipientGroup, o.loot.RollID)
			o.loot.CloseRoll()
		}
	}
}

func activeTrap(o *Object, now time.Time, _ time.Duration) {
	o.fireTrap(now)
}

// --- deactivation ---

// deactivateGoober casts the goober's spell on every unique user, restores
// the rest pose, and honors a no-despawn flag override.
func deactivateGoober(o *Object) bool {
	if g := o.tmpl.Goober; g != nil && g.SpellID != 0 {
		for actorID := range o.uniqueUsers {
			o.CastSpell(actorID, g.SpellID)
		}
		o.uniqueUsers = make(map[int64]struct{})
		o.useCount = 0
	}
	if o.tmpl.AutoCloseMs() > 0 || o.HasFlag(data.FlagLocked) {
		o.SetVisualState(VisualReady)
	}
	if flags, ok := o.overrideFlags(); ok && flags&data.FlagNoDespawn != 0 {
		return false
	}
	return true
}
