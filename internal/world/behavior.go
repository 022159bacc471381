package world

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/stormvale/server/internal/data"
)

// Interaction failures surfaced to callers. Handlers return these unwrapped
// so the dispatch layer can map them to client responses.
var (
	ErrNotReady     = errors.New("object is not ready")
	ErrOnCooldown   = errors.New("object is on cooldown")
	ErrNotOwner     = errors.New("object belongs to another actor")
	ErrOccupied     = errors.New("no free seat")
	ErrOutOfRange   = errors.New("actor is out of range")
	ErrNotPermitted = errors.New("actor may not use this object")
)

// groupLootRollCountdown is how long a group loot roll stays open.
const groupLootRollCountdown = 60 * time.Second

// Use runs the actor-initiated interaction for this object. A scripted
// gossip hook may consume the interaction before any per-kind behavior; a
// consumed interaction does not arm the per-entity cooldown.
func (o *Object) Use(a *Actor) error {
	if o.ai.GossipHello(a) {
		return nil
	}

	if cd := o.tmpl.Cooldown(); cd > 0 {
		now := o.m.Now()
		if now.Before(o.readyTime) {
			return ErrOnCooldown
		}
		o.readyTime = now.Add(time.Duration(cd) * time.Second)
	}

	if use := o.behavior.use; use != nil {
		return use(o, a)
	}
	return fmt.Errorf("kind %s has no interaction", o.tmpl.Kind)
}

// --- doors and buttons ---

// UseDoorOrButton activates a door or button: open pose, in-use flag and an
// auto-close countdown. closeDelay overrides the template's auto-close time.
func (o *Object) UseDoorOrButton(closeDelay time.Duration, alternative bool, actorID int64) {
	if o.lootState != StateReady {
		return
	}
	o.SetLootState(StateActivated, actorID)
	o.SwitchDoorOrButton(true, alternative)

	autoClose := time.Duration(o.tmpl.AutoCloseMs()) * time.Millisecond
	if closeDelay > 0 {
		autoClose = closeDelay
	}
	if autoClose > 0 {
		o.readyTime = o.m.Now().Add(autoClose)
	} else {
		o.readyTime = time.Time{}
	}
}

// resetDoorOrButton returns a door or button to its rest pose.
func (o *Object) resetDoorOrButton() {
	if o.lootState == StateReady || o.lootState == StateJustDeactivated {
		return
	}
	o.ClearFlag(data.FlagInUse)
	o.SetVisualState(o.prevVisualState)
	o.SetLootState(StateJustDeactivated, 0)
	o.readyTime = time.Time{}
}

// ResetDoorOrButton is the scripted reset entry point.
func (o *Object) ResetDoorOrButton() { o.resetDoorOrButton() }

// SwitchDoorOrButton toggles the pose, remembering the rest pose so reset
// can restore a door that started open.
func (o *Object) SwitchDoorOrButton(activate, alternative bool) {
	if activate {
		o.SetFlag(data.FlagInUse)
	} else {
		o.ClearFlag(data.FlagInUse)
	}
	if o.visualState == VisualReady || o.visualState == VisualActive {
		o.prevVisualState = o.visualState
	}
	switch {
	case alternative:
		o.SetVisualState(VisualActiveAlt)
	case o.visualState == VisualReady:
		o.SetVisualState(VisualActive)
	default:
		o.SetVisualState(VisualReady)
	}
}

// TriggerLinkedTrap fires the companion trap at the target, if one is
// resident nearby.
func (o *Object) TriggerLinkedTrap(targetID int64) {
	trap := o.LinkedTrap()
	if trap == nil {
		if linkedKind := o.tmpl.LinkedTrapKind(); linkedKind != 0 {
			trap = o.m.NearestObjectOfKind(linkedKind, o.x, o.y, linkedTrapSearchRange)
		}
	}
	if trap == nil || trap.tmpl.Kind != data.KindTrap {
		return
	}
	if trap.tmpl.Trap != nil && trap.tmpl.Trap.SpellID != 0 {
		trap.CastSpell(targetID, trap.tmpl.Trap.SpellID)
	}
	trap.ai.EventInform(0, targetID)
}

// linkedTrapSearchRange bounds the fallback scan for database-placed
// companion traps.
const linkedTrapSearchRange = 10.0

// --- per-kind handlers ---

func (o *Object) useQuestGiver(a *Actor) error {
	if !a.IsPlayer {
		return ErrNotPermitted
	}
	gossipID := int32(0)
	if o.tmpl.QuestGiver != nil {
		gossipID = o.tmpl.QuestGiver.GossipID
	}
	o.m.Notifier.ShowGossip(a.ID, o, gossipID)
	return nil
}

func (o *Object) useChest(a *Actor) error {
	if !a.IsPlayer {
		return ErrNotPermitted
	}
	if o.lootState != StateReady {
		return ErrNotReady
	}
	cp := o.tmpl.Chest
	if cp == nil {
		return fmt.Errorf("chest kind %d has no chest params", o.tmpl.KindID)
	}

	if o.loot == nil {
		o.loot = &Loot{}
	}
	if !o.loot.Filled {
		o.loot.Fill(cp.LootID, LootChest)
		o.SetLootRecipient(a)
		if cp.GroupLootRules && a.GroupID != 0 {
			o.loot.OpenRoll(groupLootRollCountdown)
		}
	} else if !o.IsLootAllowedFor(a) {
		return ErrNotPermitted
	}

	o.AddUse()
	o.SetLootState(StateActivated, a.ID)
	o.m.Notifier.SendLoot(a.ID, o, LootChest)
	o.TriggerLinkedTrap(a.ID)
	return nil
}

// useChair seats the actor at the nearest free slot. Slots spread evenly
// along the object's width, orthogonal to its facing.
func (o *Object) useChair(a *Actor) error {
	cp := o.tmpl.Chair
	slots, height := int32(1), int32(0)
	if cp != nil {
		if cp.Slots > 0 {
			slots = cp.Slots
		}
		height = cp.Height
	}
	if o.chairSlots == nil {
		o.chairSlots = make(map[int32]int64, slots)
	}

	bestSlot := int32(-1)
	bestDist := math.Inf(1)
	var bestX, bestY float64
	for i := int32(0); i < slots; i++ {
		if occupant, taken := o.chairSlots[i]; taken && occupant != a.ID {
			continue
		}
		sx, sy := o.slotPosition(i, slots)
		if d := a.DistanceTo(sx, sy); d < bestDist {
			bestSlot, bestDist = i, d
			bestX, bestY = sx, sy
		}
	}
	if bestSlot < 0 {
		return ErrOccupied
	}

	o.chairSlots[bestSlot] = a.ID
	o.m.Notifier.SeatActor(a.ID, bestX, bestY, height)
	o.SetLootState(StateActivated, a.ID)
	return nil
}

// slotPosition returns the world position of seat slot i of n.
func (o *Object) slotPosition(i, n int32) (float64, float64) {
	if n <= 1 {
		return o.x, o.y
	}
	width := o.tmpl.Size
	if width <= 0 {
		width = 1
	}
	// perpendicular axis to the facing direction
	step := width / float64(n-1)
	offset := (float64(i) - float64(n-1)/2) * step
	return o.x + math.Cos(o.facing+math.Pi/2)*offset,
		o.y + math.Sin(o.facing+math.Pi/2)*offset
}

// StandUp frees any seat the actor holds on this object.
func (o *Object) StandUp(actorID int64) {
	for slot, occupant := range o.chairSlots {
		if occupant == actorID {
			delete(o.chairSlots, slot)
		}
	}
}

func (o *Object) useGoober(a *Actor) error {
	if o.lootState != StateReady {
		return ErrNotReady
	}
	gp := o.tmpl.Goober
	if gp == nil {
		return fmt.Errorf("goober kind %d has no goober params", o.tmpl.KindID)
	}

	if a.IsPlayer {
		if gp.EventID != 0 {
			o.ai.EventInform(gp.EventID, a.ID)
		}
		if gp.PageID != 0 {
			o.m.Notifier.ShowPage(a.ID, o, gp.PageID)
		} else if gp.GossipID != 0 {
			o.m.Notifier.ShowGossip(a.ID, o, gp.GossipID)
		}
		if gp.CustomAnim {
			o.m.Notifier.CustomAnim(o, 0)
		} else {
			o.SetVisualState(VisualActive)
		}
	}

	o.AddUniqueUse(a.ID)
	o.SetFlag(data.FlagInUse)
	o.SetLootState(StateActivated, a.ID)
	o.readyTime = o.m.Now().Add(time.Duration(o.tmpl.AutoCloseMs()) * time.Millisecond)
	o.TriggerLinkedTrap(a.ID)
	return nil
}

// useTransport toggles an elevator between moving and stopped at the stop
// frame it is closest to.
func (o *Object) useTransport(_ *Actor) error {
	tp := o.tmpl.Transport
	if tp == nil || len(tp.StopFrames) == 0 {
		return ErrNotPermitted
	}
	if o.visualState == VisualTransportActive {
		o.SetTransportState(StoppedAtFrame(o.nearestStopFrame()))
	} else {
		o.SetTransportState(VisualTransportActive)
	}
	return nil
}

// useFishingNode resolves the catch attempt: only the caster may reel in,
// and only after the bobber splashed.
func (o *Object) useFishingNode(a *Actor) error {
	if a.ID != o.ownerID {
		return ErrNotOwner
	}

	switch o.lootState {
	case StateReady:
		// splash happened; roll skill against the pull
		chance := a.FishSkill
		if chance < 5 {
			chance = 5
		} else if chance > 95 {
			chance = 95
		}
		roll := o.m.randRange(1, 100)
		if roll > chance {
			// fish got away; bobber is spent
			o.SetLootState(StateJustDeactivated, a.ID)
			o.m.Notifier.Message(a.ID, MsgFishEscaped)
			return nil
		}

		if hole := o.nearbyFishingHole(); hole != nil {
			// school catch counts against the hole's stock
			o.SetLootState(StateActivated, a.ID)
			if err := hole.useFishingHole(a); err != nil {
				return err
			}
		} else {
			o.SetLootState(StateActivated, a.ID)
			o.m.Notifier.SendLoot(a.ID, o, LootFishing)
		}
		return nil

	case StateNotReady:
		// reeled in too early
		o.SetLootState(StateJustDeactivated, a.ID)
		o.m.Notifier.Message(a.ID, MsgFishNotHooked)
		return nil
	}
	return ErrNotReady
}

// nearbyFishingHole finds an active fishing school in catch range of the
// bobber.
func (o *Object) nearbyFishingHole() *Object {
	var found *Object
	for _, other := range o.m.objectList {
		if other.tmpl.Kind != data.KindFishingHole || !other.IsSpawned() {
			continue
		}
		fh := other.tmpl.FishingHole
		if fh == nil {
			continue
		}
		dx, dy := other.x-o.x, other.y-o.y
		if dx*dx+dy*dy <= fh.Radius*fh.Radius {
			found = other
			break
		}
	}
	return found
}

// useRitual accumulates distinct channelers and fires the ritual spell once
// enough have joined.
func (o *Object) useRitual(a *Actor) error {
	rp := o.tmpl.Ritual
	if rp == nil {
		return fmt.Errorf("ritual kind %d has no ritual params", o.tmpl.KindID)
	}
	owner := o.m.Actor(o.ownerID)
	if owner == nil {
		return ErrNotOwner
	}
	if rp.CastersGrouped && (a.GroupID == 0 || a.GroupID != owner.GroupID) {
		return ErrNotPermitted
	}
	if o.HasUniqueUser(a.ID) {
		o.m.Notifier.Message(a.ID, MsgAlreadyUsed)
		return nil
	}

	if rp.AnimSpellID != 0 {
		o.CastSpell(a.ID, rp.AnimSpellID)
		a.Channeling = rp.AnimSpellID
	}
	o.AddUniqueUse(a.ID)

	if o.useCount < rp.Casters {
		return nil
	}

	// enough channelers: the owner (or the circle itself when persistent)
	// completes the ritual
	casterID := o.ownerID
	if rp.Persistent {
		casterID = 0
	}
	if rp.SpellID != 0 {
		if casterID != 0 && o.m.Spells != nil {
			if err := o.m.Spells.Cast(o.id, casterID, o.lootStateActor, rp.SpellID); err != nil {
				o.m.log.Warn("ritual spell cast failed",
					zap.Int32("spell_id", rp.SpellID), zap.Error(err))
			}
		} else if casterID == 0 {
			o.CastSpell(0, rp.SpellID)
		}
	}
	if rp.CasterTargetSpell != 0 && rp.CasterTargets > 0 {
		fired := int32(0)
		for actorID := range o.uniqueUsers {
			if fired >= rp.CasterTargets {
				break
			}
			o.CastSpell(actorID, rp.CasterTargetSpell)
			fired++
		}
	}

	if rp.Persistent {
		o.uniqueUsers = make(map[int64]struct{})
		o.useCount = 0
		return nil
	}
	o.SetLootState(StateJustDeactivated, a.ID)
	return nil
}

func (o *Object) useSpellCaster(a *Actor) error {
	sp := o.tmpl.SpellCaster
	if sp == nil {
		return fmt.Errorf("spellcaster kind %d has no spellcaster params", o.tmpl.KindID)
	}
	if sp.PartyOnly {
		owner := o.m.Actor(o.ownerID)
		if owner == nil || a.GroupID == 0 || a.GroupID != owner.GroupID {
			return ErrNotPermitted
		}
	}
	if sp.SpellID != 0 {
		o.CastSpell(a.ID, sp.SpellID)
	}
	o.AddUse()
	if sp.Charges > 0 && o.useCount >= sp.Charges {
		o.SetLootState(StateJustDeactivated, a.ID)
	}
	return nil
}

func (o *Object) useMeetingStone(a *Actor) error {
	mp := o.tmpl.MeetingStone
	if mp == nil {
		return fmt.Errorf("meetingstone kind %d has no meetingstone params", o.tmpl.KindID)
	}
	if mp.MaxLevel > 0 && a.Level > mp.MaxLevel {
		return ErrNotPermitted
	}
	if a.GroupID == 0 {
		return ErrNotPermitted
	}
	if mp.SpellID != 0 {
		o.CastSpell(a.ID, mp.SpellID)
	}
	return nil
}

func (o *Object) useFlag(a *Actor) error {
	if !o.m.Objectives.UseFlag(a.ID, o, o.tmpl.Kind) {
		return ErrNotPermitted
	}
	if fp := o.tmpl.Flag; fp != nil {
		if fp.PickupSpellID != 0 {
			o.CastSpell(a.ID, fp.PickupSpellID)
		}
		if fp.EventID != 0 {
			o.ai.EventInform(fp.EventID, a.ID)
		}
	}
	o.SetLootState(StateActivated, a.ID)
	return nil
}

func (o *Object) useFishingHole(a *Actor) error {
	if o.loot == nil || !o.IsSpawned() {
		return ErrNotReady
	}
	o.m.Notifier.SendLoot(a.ID, o, LootFishing)
	o.loot.ItemsLeft--
	o.AddUse()
	if o.loot.ItemsLeft <= 0 {
		// school exhausted; respawns restocked
		o.SetLootState(StateJustDeactivated, a.ID)
	}
	return nil
}
