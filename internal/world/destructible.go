package world

import (
	"github.com/stormvale/server/internal/core/event"
	"github.com/stormvale/server/internal/data"
)

// Health returns the destructible's current health; 0 for other kinds.
func (o *Object) Health() int32 { return o.health }

// DestructibleState returns the structural sub-state.
func (o *Object) DestructibleState() DestructibleState { return o.destructible }

// ModifyHealth applies damage (negative) or repair (positive) and derives
// the resulting structural state from the template thresholds. Damage to an
// already destroyed structure is ignored.
func (o *Object) ModifyHealth(change int32, instigatorID int64, spellID int32) {
	dp := o.tmpl.Destructible
	if dp == nil || dp.MaxHealth == 0 || change == 0 {
		return
	}
	if change < 0 && o.health == 0 {
		return
	}

	switch {
	case o.health+change <= 0:
		o.health = 0
	case o.health+change >= dp.MaxHealth:
		o.health = dp.MaxHealth
	default:
		o.health += change
	}
	o.animProgress = uint8(int64(o.health) * 100 / int64(dp.MaxHealth))

	if change < 0 {
		o.ai.Damaged(instigatorID, spellID)
		event.Emit(o.m.Bus, event.ObjectDamaged{
			ObjectID: o.id, InstigatorID: instigatorID, EventID: spellID,
		})
	}

	var next DestructibleState
	switch {
	case o.health == 0:
		next = DestructibleDestroyed
	case o.health <= dp.DamagedThreshold:
		next = DestructibleDamaged
	default:
		next = DestructibleIntact
	}
	if next != o.destructible {
		o.SetDestructibleState(next, instigatorID, false)
	} else {
		o.m.Notifier.ForceStateUpdate(o)
	}
}

// SetDestructibleState forces a structural transition, adjusting flags,
// health, collision and AI/objective notifications. Only a destroyed
// structure stops blocking movement. setHealth realigns health with the new
// state (used by scripted transitions that bypass ModifyHealth).
func (o *Object) SetDestructibleState(state DestructibleState, instigatorID int64, setHealth bool) {
	dp := o.tmpl.Destructible
	if dp == nil {
		return
	}

	switch state {
	case DestructibleIntact:
		o.ClearFlag(data.FlagDamaged | data.FlagDestroyed)
		if setHealth {
			o.health = dp.MaxHealth
		}

	case DestructibleDamaged:
		o.ai.Damaged(instigatorID, dp.DamagedEventID)
		if dp.DamagedEventID != 0 {
			o.ai.EventInform(dp.DamagedEventID, instigatorID)
		}
		o.SetFlag(data.FlagDamaged)
		o.ClearFlag(data.FlagDestroyed)
		if setHealth {
			o.health = dp.DamagedThreshold
		}

	case DestructibleDestroyed:
		o.ai.Destroyed(instigatorID, dp.DestroyedEventID)
		if dp.DestroyedEventID != 0 {
			o.ai.EventInform(dp.DestroyedEventID, instigatorID)
		}
		o.m.Objectives.GateDestroyed(instigatorID, o.id)
		o.ClearFlag(data.FlagDamaged)
		o.SetFlag(data.FlagDestroyed)
		o.health = 0
		event.Emit(o.m.Bus, event.ObjectDestroyed{
			ObjectID: o.id, InstigatorID: instigatorID, EventID: dp.DestroyedEventID,
		})

	case DestructibleRebuilding:
		if dp.RebuildingEventID != 0 {
			o.ai.EventInform(dp.RebuildingEventID, instigatorID)
		}
		o.ClearFlag(data.FlagDamaged | data.FlagDestroyed)
		o.health = dp.MaxHealth
	}

	if dp.MaxHealth > 0 {
		o.animProgress = uint8(int64(o.health) * 100 / int64(dp.MaxHealth))
	}
	o.destructible = state
	o.m.SetCollision(o, state != DestructibleDestroyed)
	o.m.Notifier.ForceStateUpdate(o)
}

// CurrentDisplayID resolves the display model for the structural state.
func (o *Object) CurrentDisplayID() int32 {
	dp := o.tmpl.Destructible
	if dp == nil {
		return o.tmpl.DisplayID
	}
	switch o.destructible {
	case DestructibleDamaged:
		if dp.DamagedDisplayID != 0 {
			return dp.DamagedDisplayID
		}
	case DestructibleDestroyed:
		if dp.DestroyedDisplayID != 0 {
			return dp.DestroyedDisplayID
		}
	case DestructibleRebuilding:
		if dp.RebuildDisplayID != 0 {
			return dp.RebuildDisplayID
		}
	}
	return o.tmpl.DisplayID
}
