package world

import (
	"testing"
	"time"

	"github.com/stormvale/server/internal/data"
)

func destructibleTemplate(kindID int32) *data.ObjectTemplate {
	return &data.ObjectTemplate{
		KindID:    kindID,
		Kind:      data.KindDestructible,
		DisplayID: 1000,
		Destructible: &data.DestructibleParams{
			MaxHealth:          100,
			DamagedThreshold:   30,
			DamagedEventID:     11,
			DestroyedEventID:   12,
			DamagedDisplayID:   1001,
			DestroyedDisplayID: 1002,
		},
	}
}

func TestDestructibleThresholds(t *testing.T) {
	m, _ := newTestMap(t, destructibleTemplate(700))
	hooks := &spyObjectives{}
	m.Objectives = hooks
	obj := mustSpawn(t, m, 700)

	if obj.Health() != 100 || obj.DestructibleState() != DestructibleIntact {
		t.Fatalf("spawned with health %d state %s, want intact at full health",
			obj.Health(), obj.DestructibleState())
	}

	obj.ModifyHealth(-50, 7, 99)
	if obj.Health() != 50 {
		t.Errorf("health = %d, want 50", obj.Health())
	}
	if obj.DestructibleState() != DestructibleIntact {
		t.Errorf("state = %s, want intact above the damage threshold", obj.DestructibleState())
	}

	obj.ModifyHealth(-25, 7, 99)
	if obj.DestructibleState() != DestructibleDamaged {
		t.Fatalf("state = %s, want damaged at %d health", obj.DestructibleState(), obj.Health())
	}
	if !obj.HasFlag(data.FlagDamaged) {
		t.Error("damaged structure should carry the damaged flag")
	}
	if obj.CurrentDisplayID() != 1001 {
		t.Errorf("display = %d, want the damaged model", obj.CurrentDisplayID())
	}

	obj.ModifyHealth(-100, 7, 99)
	if obj.Health() != 0 || obj.DestructibleState() != DestructibleDestroyed {
		t.Fatalf("health %d state %s, want destroyed at zero", obj.Health(), obj.DestructibleState())
	}
	if obj.HasFlag(data.FlagDamaged) || !obj.HasFlag(data.FlagDestroyed) {
		t.Error("destroyed structure should swap damaged flag for destroyed")
	}
	if obj.CurrentDisplayID() != 1002 {
		t.Errorf("display = %d, want the destroyed model", obj.CurrentDisplayID())
	}
	if len(hooks.gates) != 1 || hooks.gates[0] != obj.ID() {
		t.Errorf("gate notifications = %v, want one for object %d", hooks.gates, obj.ID())
	}

	// corpses ignore further damage
	obj.ModifyHealth(-10, 7, 99)
	if obj.Health() != 0 {
		t.Errorf("health = %d after hitting a destroyed structure, want 0", obj.Health())
	}
}

func TestDestructibleRepairAndRebuild(t *testing.T) {
	m, _ := newTestMap(t, destructibleTemplate(700))
	obj := mustSpawn(t, m, 700)

	obj.ModifyHealth(-80, 7, 0)
	if obj.DestructibleState() != DestructibleDamaged {
		t.Fatalf("state = %s, want damaged", obj.DestructibleState())
	}

	obj.ModifyHealth(60, 0, 0)
	if obj.Health() != 80 || obj.DestructibleState() != DestructibleIntact {
		t.Errorf("health %d state %s after repair, want intact at 80", obj.Health(), obj.DestructibleState())
	}

	// repair never overshoots the template maximum
	obj.ModifyHealth(500, 0, 0)
	if obj.Health() != 100 {
		t.Errorf("health = %d, want clamped to 100", obj.Health())
	}

	obj.ModifyHealth(-100, 7, 0)
	obj.SetDestructibleState(DestructibleRebuilding, 0, false)
	if obj.Health() != 100 {
		t.Errorf("health = %d, rebuilding should restore full health", obj.Health())
	}
	if obj.HasFlag(data.FlagDamaged) || obj.HasFlag(data.FlagDestroyed) {
		t.Error("rebuilding should clear structural flags")
	}
	if obj.DestructibleState() != DestructibleRebuilding {
		t.Errorf("state = %s, want rebuilding", obj.DestructibleState())
	}
}

func TestDestructibleScriptedTransitionRealignsHealth(t *testing.T) {
	m, _ := newTestMap(t, destructibleTemplate(700))
	obj := mustSpawn(t, m, 700)

	obj.SetDestructibleState(DestructibleDamaged, 7, true)
	if obj.Health() != 30 {
		t.Errorf("health = %d, want realigned to the damage threshold", obj.Health())
	}
	obj.SetDestructibleState(DestructibleIntact, 0, true)
	if obj.Health() != 100 {
		t.Errorf("health = %d, want realigned to max", obj.Health())
	}
}

func TestDestructibleCollisionAndAnimProgress(t *testing.T) {
	m, _ := newTestMap(t, destructibleTemplate(700))
	obj := mustSpawn(t, m, 700)

	if !m.CollisionEnabled(obj) {
		t.Fatal("intact structure must block movement")
	}
	if obj.AnimProgress() != 100 {
		t.Fatalf("anim progress = %d, want 100 at full health", obj.AnimProgress())
	}

	obj.ModifyHealth(-50, 7, 0)
	if obj.AnimProgress() != 50 {
		t.Errorf("anim progress = %d, want 50 at half health", obj.AnimProgress())
	}
	if !m.CollisionEnabled(obj) {
		t.Error("damaged structure must still block movement")
	}

	obj.ModifyHealth(-100, 7, 0)
	if obj.DestructibleState() != DestructibleDestroyed {
		t.Fatalf("state = %s, want destroyed", obj.DestructibleState())
	}
	if m.CollisionEnabled(obj) {
		t.Error("destroyed structure must stop blocking movement")
	}
	if obj.AnimProgress() != 0 {
		t.Errorf("anim progress = %d, want 0 when destroyed", obj.AnimProgress())
	}

	obj.SetDestructibleState(DestructibleRebuilding, 0, false)
	if !m.CollisionEnabled(obj) {
		t.Error("rebuilding structure must block movement again")
	}
	if obj.AnimProgress() != 100 {
		t.Errorf("anim progress = %d, want 100 after the rebuild restores health", obj.AnimProgress())
	}
}

func TestDestructibleDamageInformsAI(t *testing.T) {
	m, _ := newTestMap(t, destructibleTemplate(700))
	recorder := &recordingAI{}
	m.AIFactory = func(*Object) ObjectAI { return recorder }
	obj := mustSpawn(t, m, 700)

	obj.ModifyHealth(-80, 7, 99)
	if len(recorder.damaged) == 0 {
		t.Error("damage should reach the AI hook")
	}
	obj.ModifyHealth(-100, 7, 99)
	if len(recorder.destroyed) == 0 {
		t.Error("destruction should reach the AI hook")
	}
}

// recordingAI captures hook invocations for assertions.
type recordingAI struct {
	NopAI
	damaged   []int64
	destroyed []int64
	events    []int32
}

func (r *recordingAI) Damaged(instigatorID int64, _ int32) {
	r.damaged = append(r.damaged, instigatorID)
}
func (r *recordingAI) Destroyed(instigatorID int64, _ int32) {
	r.destroyed = append(r.destroyed, instigatorID)
}
func (r *recordingAI) EventInform(eventID int32, _ int64) {
	r.events = append(r.events, eventID)
}

func TestDestructibleNeverDespawns(t *testing.T) {
	m, _ := newTestMap(t, destructibleTemplate(700))
	obj := mustSpawn(t, m, 700)
	if obj.Template().DespawnPossibility() {
		t.Error("destructible structures must not be despawnable")
	}
	obj.Update(100 * time.Millisecond)
	if obj.LootState() != StateReady {
		t.Errorf("state = %s, want ready", obj.LootState())
	}
}
