package world

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stormvale/server/internal/data"
)

func TestUseCooldownGatesInteraction(t *testing.T) {
	tmpl := &data.ObjectTemplate{KindID: 550, Kind: data.KindGeneric, CooldownSec: 10}
	m, clk := newTestMap(t, tmpl)
	obj := mustSpawn(t, m, 550)
	obj.Update(100 * time.Millisecond)

	a := &Actor{ID: 7, IsPlayer: true}
	if err := obj.Use(a); err != nil {
		t.Fatalf("first use: %v", err)
	}
	if err := obj.Use(a); err != ErrOnCooldown {
		t.Fatalf("second use: got %v, want ErrOnCooldown", err)
	}
	clk.Advance(10 * time.Second)
	if err := obj.Use(a); err != nil {
		t.Fatalf("use after cooldown: %v", err)
	}
}

// gossipAI consumes interactions while consume is set.
type gossipAI struct {
	NopAI
	consume bool
}

func (g *gossipAI) GossipHello(*Actor) bool { return g.consume }

func TestGossipConsumedUseKeepsCooldownCold(t *testing.T) {
	tmpl := &data.ObjectTemplate{KindID: 551, Kind: data.KindGeneric, CooldownSec: 10}
	m, _ := newTestMap(t, tmpl)
	ai := &gossipAI{consume: true}
	m.AIFactory = func(*Object) ObjectAI { return ai }
	obj := mustSpawn(t, m, 551)
	obj.Update(100 * time.Millisecond)

	a := &Actor{ID: 7, IsPlayer: true}
	if err := obj.Use(a); err != nil {
		t.Fatalf("scripted use: %v", err)
	}

	// the script swallowed the interaction, so the cooldown never armed
	ai.consume = false
	if err := obj.Use(a); err != nil {
		t.Fatalf("use after the script released the interaction: %v", err)
	}
	if err := obj.Use(a); err != ErrOnCooldown {
		t.Fatalf("third use: got %v, want ErrOnCooldown", err)
	}
}

func TestChestOpenPinsLootRecipient(t *testing.T) {
	m, _ := newTestMap(t, chestTemplate(150, false))
	notif := &spyNotifier{}
	m.Notifier = notif
	obj := mustSpawn(t, m, 150)
	obj.Update(100 * time.Millisecond)

	opener := &Actor{ID: 7, GroupID: 9, IsPlayer: true}
	if err := obj.Use(opener); err != nil {
		t.Fatalf("open chest: %v", err)
	}
	if obj.LootState() != StateActivated {
		t.Fatalf("state = %s, want activated", obj.LootState())
	}
	if obj.Loot() == nil || !obj.Loot().Filled {
		t.Fatal("opening should fill the loot container")
	}
	actorID, groupID := obj.LootRecipient()
	if actorID != 7 || groupID != 9 {
		t.Errorf("recipient = (%d, %d), want (7, 9)", actorID, groupID)
	}
	if len(notif.lootSends) != 1 || notif.lootSends[0].kind != LootChest {
		t.Errorf("loot sends = %v, want one chest window", notif.lootSends)
	}

	if !obj.IsLootAllowedFor(opener) {
		t.Error("opener must keep loot rights")
	}
	if !obj.IsLootAllowedFor(&Actor{ID: 8, GroupID: 9}) {
		t.Error("group member must share loot rights")
	}
	if obj.IsLootAllowedFor(&Actor{ID: 9, GroupID: 3}) {
		t.Error("stranger must not have loot rights")
	}
	if obj.IsLootAllowedFor(&Actor{ID: 10}) {
		t.Error("ungrouped stranger must not have loot rights")
	}
}

func TestChestGroupRollCloses(t *testing.T) {
	tmpl := chestTemplate(151, false)
	tmpl.Chest.GroupLootRules = true
	m, clk := newTestMap(t, tmpl)
	groups := &spyGroups{}
	m.Groups = groups
	obj := mustSpawn(t, m, 151)
	obj.Update(100 * time.Millisecond)

	if err := obj.Use(&Actor{ID: 7, GroupID: 9, IsPlayer: true}); err != nil {
		t.Fatalf("open chest: %v", err)
	}
	rollID := obj.Loot().RollID
	if rollID == uuid.Nil {
		t.Fatal("group open should start a loot roll")
	}

	clk.Advance(61 * time.Second)
	obj.Update(61 * time.Second)
	if obj.Loot().RollID != uuid.Nil {
		t.Error("roll should be closed after the countdown")
	}
	if len(groups.endedRolls) != 1 || groups.endedRolls[0].groupID != 9 || groups.endedRolls[0].rollID != rollID {
		t.Errorf("ended rolls = %v, want roll %v for group 9", groups.endedRolls, rollID)
	}
}

func TestChairSeatsNearestFreeSlot(t *testing.T) {
	tmpl := &data.ObjectTemplate{
		KindID: 520,
		Kind:   data.KindChair,
		Size:   2,
		Chair:  &data.ChairParams{Slots: 2, Height: 1},
	}
	m, _ := newTestMap(t, tmpl)
	notif := &spyNotifier{}
	m.Notifier = notif
	obj := mustSpawn(t, m, 520)
	obj.Update(100 * time.Millisecond)

	first := &Actor{ID: 1, IsPlayer: true, Y: -0.9}
	second := &Actor{ID: 2, IsPlayer: true, Y: 0.9}
	third := &Actor{ID: 3, IsPlayer: true}

	if err := obj.Use(first); err != nil {
		t.Fatalf("seat first: %v", err)
	}
	if err := obj.Use(second); err != nil {
		t.Fatalf("seat second: %v", err)
	}
	if err := obj.Use(third); err != ErrOccupied {
		t.Fatalf("third sit: got %v, want ErrOccupied", err)
	}
	if len(notif.seats) != 2 {
		t.Fatalf("got %d seat placements, want 2", len(notif.seats))
	}
	if notif.seats[0].y >= 0 || notif.seats[1].y <= 0 {
		t.Errorf("seat slots = %+v, want opposite ends of the bench", notif.seats)
	}
	if notif.seats[0].height != 1 {
		t.Errorf("seat height = %d, want 1", notif.seats[0].height)
	}

	obj.StandUp(1)
	if err := obj.Use(third); err != nil {
		t.Errorf("sit after stand-up: %v", err)
	}
}

func TestRitualFiresWhenEnoughChannelers(t *testing.T) {
	tmpl := &data.ObjectTemplate{
		KindID: 500,
		Kind:   data.KindRitual,
		Ritual: &data.RitualParams{Casters: 2, SpellID: 77, AnimSpellID: 70, CastersGrouped: true},
	}
	m, _ := newTestMap(t, tmpl)
	caster := &spyCaster{}
	notif := &spyNotifier{}
	m.Spells = caster
	m.Notifier = notif

	owner := &Actor{ID: 1, GroupID: 9, IsPlayer: true}
	m.AddActor(owner)
	obj := mustSpawn(t, m, 500)
	obj.ownerID = owner.ID
	obj.Update(100 * time.Millisecond)

	if err := obj.Use(&Actor{ID: 2, GroupID: 3, IsPlayer: true}); err != ErrNotPermitted {
		t.Fatalf("outsider join: got %v, want ErrNotPermitted", err)
	}

	if err := obj.Use(owner); err != nil {
		t.Fatalf("owner joins: %v", err)
	}
	if owner.Channeling != 70 {
		t.Errorf("owner channeling = %d, want the ritual visual", owner.Channeling)
	}
	if obj.LootState() == StateJustDeactivated {
		t.Fatal("ritual completed with a single channeler")
	}

	// a repeat join is refused politely, not counted twice
	if err := obj.Use(owner); err != nil {
		t.Fatalf("repeat join: %v", err)
	}
	if len(notif.messages) != 1 || notif.messages[0].msgID != MsgAlreadyUsed {
		t.Errorf("messages = %v, want already-used", notif.messages)
	}
	if obj.UseCount() != 1 {
		t.Errorf("use count = %d, want 1", obj.UseCount())
	}

	member := &Actor{ID: 3, GroupID: 9, IsPlayer: true}
	if err := obj.Use(member); err != nil {
		t.Fatalf("member joins: %v", err)
	}
	var fired bool
	for _, c := range caster.calls {
		if c.spellID == 77 && c.originalCasterID == owner.ID {
			fired = true
		}
	}
	if !fired {
		t.Errorf("ritual spell never fired by the owner, casts = %v", caster.calls)
	}
	if obj.LootState() != StateJustDeactivated {
		t.Errorf("state = %s, want just_deactivated after completion", obj.LootState())
	}
}

func TestPersistentRitualResets(t *testing.T) {
	tmpl := &data.ObjectTemplate{
		KindID: 501,
		Kind:   data.KindRitual,
		Ritual: &data.RitualParams{Casters: 1, SpellID: 77, Persistent: true},
	}
	m, _ := newTestMap(t, tmpl)
	caster := &spyCaster{}
	m.Spells = caster

	owner := &Actor{ID: 1, IsPlayer: true}
	m.AddActor(owner)
	obj := mustSpawn(t, m, 501)
	obj.ownerID = owner.ID
	obj.Update(100 * time.Millisecond)

	if err := obj.Use(owner); err != nil {
		t.Fatalf("channel: %v", err)
	}
	if len(caster.calls) != 1 || caster.calls[0].spellID != 77 {
		t.Fatalf("casts = %v, want the ritual spell", caster.calls)
	}
	if obj.LootState() == StateJustDeactivated {
		t.Error("persistent ritual should not deactivate")
	}
	if obj.UseCount() != 0 {
		t.Errorf("use count = %d, want 0 after reset", obj.UseCount())
	}
}

func TestSpellCasterChargesExhaust(t *testing.T) {
	tmpl := &data.ObjectTemplate{
		KindID:      510,
		Kind:        data.KindSpellCaster,
		SpellCaster: &data.SpellCasterParams{SpellID: 88, Charges: 2},
	}
	m, _ := newTestMap(t, tmpl)
	caster := &spyCaster{}
	m.Spells = caster
	obj := mustSpawn(t, m, 510)
	obj.Update(100 * time.Millisecond)

	a := &Actor{ID: 7, IsPlayer: true}
	if err := obj.Use(a); err != nil {
		t.Fatalf("first cast: %v", err)
	}
	if obj.LootState() == StateJustDeactivated {
		t.Fatal("deactivated with a charge remaining")
	}
	if err := obj.Use(a); err != nil {
		t.Fatalf("second cast: %v", err)
	}
	if len(caster.calls) != 2 {
		t.Errorf("got %d casts, want 2", len(caster.calls))
	}
	if obj.LootState() != StateJustDeactivated {
		t.Errorf("state = %s, want just_deactivated once charges run out", obj.LootState())
	}
}

func TestSpellCasterPartyOnly(t *testing.T) {
	tmpl := &data.ObjectTemplate{
		KindID:      511,
		Kind:        data.KindSpellCaster,
		SpellCaster: &data.SpellCasterParams{SpellID: 88, PartyOnly: true},
	}
	m, _ := newTestMap(t, tmpl)
	owner := &Actor{ID: 1, GroupID: 9, IsPlayer: true}
	m.AddActor(owner)
	obj := mustSpawn(t, m, 511)
	obj.ownerID = owner.ID
	obj.Update(100 * time.Millisecond)

	if err := obj.Use(&Actor{ID: 2, GroupID: 3, IsPlayer: true}); err != ErrNotPermitted {
		t.Errorf("outsider: got %v, want ErrNotPermitted", err)
	}
	if err := obj.Use(&Actor{ID: 3, GroupID: 9, IsPlayer: true}); err != nil {
		t.Errorf("party member: %v", err)
	}
}

func TestMeetingStoneGates(t *testing.T) {
	tmpl := &data.ObjectTemplate{
		KindID:       560,
		Kind:         data.KindMeetingStone,
		MeetingStone: &data.MeetingStoneParams{SpellID: 23598, MaxLevel: 60},
	}
	m, _ := newTestMap(t, tmpl)
	caster := &spyCaster{}
	m.Spells = caster
	obj := mustSpawn(t, m, 560)
	obj.Update(100 * time.Millisecond)

	if err := obj.Use(&Actor{ID: 1, Level: 70, GroupID: 9, IsPlayer: true}); err != ErrNotPermitted {
		t.Errorf("over-level: got %v, want ErrNotPermitted", err)
	}
	if err := obj.Use(&Actor{ID: 2, Level: 30, IsPlayer: true}); err != ErrNotPermitted {
		t.Errorf("ungrouped: got %v, want ErrNotPermitted", err)
	}
	if err := obj.Use(&Actor{ID: 3, Level: 30, GroupID: 9, IsPlayer: true}); err != nil {
		t.Errorf("eligible actor: %v", err)
	}
	if len(caster.calls) != 1 || caster.calls[0].spellID != 23598 {
		t.Errorf("casts = %v, want one summon", caster.calls)
	}
}

func TestFlagStandDelegatesToObjectives(t *testing.T) {
	tmpl := &data.ObjectTemplate{
		KindID: 530,
		Kind:   data.KindFlagStand,
		Flag:   &data.FlagParams{PickupSpellID: 44},
	}
	m, _ := newTestMap(t, tmpl)
	caster := &spyCaster{}
	hooks := &spyObjectives{}
	m.Spells = caster
	m.Objectives = hooks
	obj := mustSpawn(t, m, 530)
	obj.Update(100 * time.Millisecond)

	a := &Actor{ID: 7, IsPlayer: true}
	if err := obj.Use(a); err != ErrNotPermitted {
		t.Fatalf("denied pickup: got %v, want ErrNotPermitted", err)
	}

	hooks.allowFlag = true
	if err := obj.Use(a); err != nil {
		t.Fatalf("allowed pickup: %v", err)
	}
	if len(caster.calls) != 1 || caster.calls[0].spellID != 44 {
		t.Errorf("casts = %v, want the pickup aura", caster.calls)
	}
	if obj.LootState() != StateActivated {
		t.Errorf("state = %s, want activated while carried", obj.LootState())
	}
}

func TestCameraStartsCinematic(t *testing.T) {
	tmpl := &data.ObjectTemplate{KindID: 540, Kind: data.KindCamera}
	m, _ := newTestMap(t, tmpl)
	notif := &spyNotifier{}
	m.Notifier = notif
	obj := mustSpawn(t, m, 540)
	obj.Update(100 * time.Millisecond)

	if err := obj.Use(&Actor{ID: 7, IsPlayer: true}); err != nil {
		t.Fatalf("use camera: %v", err)
	}
	if len(notif.cinematics) != 1 || notif.cinematics[0] != 7 {
		t.Errorf("cinematics = %v, want [7]", notif.cinematics)
	}
}

func TestButtonTriggersNearbyCompanionTrap(t *testing.T) {
	trapTmpl := &data.ObjectTemplate{
		KindID: 205,
		Kind:   data.KindTrap,
		Trap:   &data.TrapParams{SpellID: 44, Radius: 3},
	}
	buttonTmpl := &data.ObjectTemplate{
		KindID: 110,
		Kind:   data.KindButton,
		Door:   &data.DoorParams{AutoCloseMs: 1000, LinkedTrapID: 205},
	}
	m, _ := newTestMap(t, buttonTmpl, trapTmpl)
	caster := &spyCaster{}
	m.Spells = caster

	// database-placed companion: found by proximity, not by the spawn link
	trap := mustSpawn(t, m, 205)
	trap.Update(100 * time.Millisecond)
	button := mustSpawn(t, m, 110)
	button.Update(100 * time.Millisecond)

	a := &Actor{ID: 7, IsPlayer: true}
	if err := button.Use(a); err != nil {
		t.Fatalf("press button: %v", err)
	}
	if len(caster.calls) != 1 {
		t.Fatalf("got %d casts, want the companion trap payload", len(caster.calls))
	}
	if got := caster.calls[0]; got.casterObjectID != trap.ID() || got.targetActorID != 7 || got.spellID != 44 {
		t.Errorf("trap cast = %+v, want spell 44 from trap %d at actor 7", got, trap.ID())
	}
}

func TestSpawnRecordCreatesLinkedTrap(t *testing.T) {
	trapTmpl := &data.ObjectTemplate{
		KindID: 205,
		Kind:   data.KindTrap,
		Trap:   &data.TrapParams{SpellID: 44, Radius: 3},
	}
	buttonTmpl := &data.ObjectTemplate{
		KindID: 110,
		Kind:   data.KindButton,
		Door:   &data.DoorParams{LinkedTrapID: 205},
	}
	m, _ := newTestMap(t, buttonTmpl, trapTmpl)

	button, err := m.SpawnFromRecord(&SpawnRecord{
		SpawnID: 30, KindID: 110, MapID: 1, RespawnSecs: 0, CompatibilityMode: true,
		VisualState: VisualReady,
	})
	if err != nil {
		t.Fatalf("spawn button: %v", err)
	}
	if m.ObjectCount() != 2 {
		t.Fatalf("object count = %d, want the button plus its trap", m.ObjectCount())
	}
	trap := button.LinkedTrap()
	if trap == nil {
		t.Fatal("spawned button should hold its companion trap")
	}
	if trap.Kind() != data.KindTrap {
		t.Errorf("companion kind = %s, want trap", trap.Kind())
	}
}
