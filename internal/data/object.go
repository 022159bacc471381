package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Kind is the behavioral type tag of a world object template.
type Kind int32

const (
	KindDoor Kind = iota
	KindButton
	KindQuestGiver
	KindChest
	KindGeneric
	KindTrap
	KindChair
	KindSpellFocus
	KindGoober
	KindTransport
	KindCamera
	KindMapObjTransport // pseudo-kind, built by the transport path builder, never spawned directly
	KindFishingNode
	KindRitual
	KindMailbox
	KindSpellCaster
	KindMeetingStone
	KindFlagStand
	KindFishingHole
	KindFlagDrop
	KindCapturePoint
	KindBarberChair
	KindDestructible

	kindMax
)

// KindValid reports whether k is a known kind tag.
func KindValid(k Kind) bool { return k >= 0 && k < kindMax }

func (k Kind) String() string {
	names := [...]string{
		"door", "button", "questgiver", "chest", "generic", "trap", "chair",
		"spellfocus", "goober", "transport", "camera", "mapobjtransport",
		"fishingnode", "ritual", "mailbox", "spellcaster", "meetingstone",
		"flagstand", "fishinghole", "flagdrop", "capturepoint", "barberchair",
		"destructible",
	}
	if !KindValid(k) {
		return fmt.Sprintf("kind(%d)", int32(k))
	}
	return names[k]
}

// Object flag bits mirrored into client state.
const (
	FlagInUse     uint32 = 0x0001 // mid-interaction, not clickable
	FlagLocked    uint32 = 0x0002
	FlagNoDespawn uint32 = 0x0020 // never despawns after deactivation
	FlagDamaged   uint32 = 0x0200
	FlagDestroyed uint32 = 0x0400
)

// DoorParams also covers buttons; both reset to a remembered rest state.
type DoorParams struct {
	StartOpen      bool   `yaml:"start_open"`
	AutoCloseMs    uint32 `yaml:"auto_close_ms"`
	NoDamageImmune bool   `yaml:"no_damage_immune"`
	LinkedTrapID   int32  `yaml:"linked_trap_id"`
}

type QuestGiverParams struct {
	GossipID int32 `yaml:"gossip_id"`
}

type ChestParams struct {
	LootID          int32 `yaml:"loot_id"`
	Charges         int32 `yaml:"charges"` // max opens before deactivation, 0 = unlimited
	GroupLootRules  bool  `yaml:"group_loot_rules"`
	DespawnAtAction bool  `yaml:"despawn_at_action"` // consumed when looted
	LinkedTrapID    int32 `yaml:"linked_trap_id"`
}

// TrapParams: Charges 0 = re-triggerable, 1 = single-shot, 2 = self-detonating
// bomb (no target needed, fixed 10 s arm time).
type TrapParams struct {
	SpellID       int32   `yaml:"spell_id"`
	Charges       int32   `yaml:"charges"`
	CooldownSec   int32   `yaml:"cooldown_sec"`
	StartDelaySec int32   `yaml:"start_delay_sec"`
	Radius        float64 `yaml:"radius"`
	Stealthed     bool    `yaml:"stealthed"`
}

type ChairParams struct {
	Slots  int32 `yaml:"slots"`
	Height int32 `yaml:"height"`
}

type GooberParams struct {
	SpellID      int32  `yaml:"spell_id"`
	PageID       int32  `yaml:"page_id"`
	GossipID     int32  `yaml:"gossip_id"`
	EventID      int32  `yaml:"event_id"`
	QuestID      int32  `yaml:"quest_id"`
	AutoCloseMs  uint32 `yaml:"auto_close_ms"`
	CustomAnim   bool   `yaml:"custom_anim"`
	Consumable   bool   `yaml:"consumable"`
	LinkedTrapID int32  `yaml:"linked_trap_id"`
}

// TransportParams describes a periodic elevator-style path. StopFrames are
// path offsets (ms) of each floor arrival, ordered. StartFrame 0 means the
// transport starts moving; k > 0 means it starts stopped at frame k-1.
type TransportParams struct {
	PeriodMs   uint32   `yaml:"period_ms"`
	StopFrames []uint32 `yaml:"stop_frames"`
	StartFrame int32    `yaml:"start_frame"`
}

type RitualParams struct {
	Casters           int32 `yaml:"casters"` // unique participants required
	SpellID           int32 `yaml:"spell_id"`
	AnimSpellID       int32 `yaml:"anim_spell_id"`
	CasterTargetSpell int32 `yaml:"caster_target_spell"`
	CasterTargets     int32 `yaml:"caster_targets"`
	Persistent        bool  `yaml:"persistent"` // resets instead of deactivating
	CastersGrouped    bool  `yaml:"casters_grouped"`
}

type SpellCasterParams struct {
	SpellID   int32 `yaml:"spell_id"`
	Charges   int32 `yaml:"charges"`
	PartyOnly bool  `yaml:"party_only"`
}

type MeetingStoneParams struct {
	SpellID  int32 `yaml:"spell_id"`
	MaxLevel int32 `yaml:"max_level"`
}

type FlagParams struct {
	PickupSpellID int32 `yaml:"pickup_spell_id"`
	EventID       int32 `yaml:"event_id"`
	NoDespawn     bool  `yaml:"no_despawn"`
}

type FishingHoleParams struct {
	Radius     float64 `yaml:"radius"`
	LootID     int32   `yaml:"loot_id"`
	MinRestock int32   `yaml:"min_restock"`
	MaxRestock int32   `yaml:"max_restock"`
}

type CapturePointParams struct {
	SpellVisualID  int32 `yaml:"spell_visual_id"`
	ContestEventID int32 `yaml:"contest_event_id"`
}

// DestructibleParams: thresholds are data-driven (no hardcoded health).
type DestructibleParams struct {
	MaxHealth          int32 `yaml:"max_health"`
	DamagedThreshold   int32 `yaml:"damaged_threshold"` // health at or below which the structure shows damage
	DamagedEventID     int32 `yaml:"damaged_event_id"`
	DestroyedEventID   int32 `yaml:"destroyed_event_id"`
	RebuildingEventID  int32 `yaml:"rebuilding_event_id"`
	DamagedDisplayID   int32 `yaml:"damaged_display_id"`
	DestroyedDisplayID int32 `yaml:"destroyed_display_id"`
	RebuildDisplayID   int32 `yaml:"rebuild_display_id"`
}

// ObjectTemplate holds the immutable per-kind behavior parameters.
// Shared by all instances of the kind; never mutated after load.
type ObjectTemplate struct {
	KindID      int32   `yaml:"kind_id"`
	Kind        Kind    `yaml:"kind"`
	Name        string  `yaml:"name"`
	DisplayID   int32   `yaml:"display_id"`
	Size        float64 `yaml:"size"`
	Faction     int32   `yaml:"faction"`
	Flags       uint32  `yaml:"flags"`
	CooldownSec int32   `yaml:"cooldown_sec"` // per-entity use cooldown
	ScriptName  string  `yaml:"script"`       // lua AI hook table, empty = no script

	Door         *DoorParams         `yaml:"door,omitempty"`
	QuestGiver   *QuestGiverParams   `yaml:"questgiver,omitempty"`
	Chest        *ChestParams        `yaml:"chest,omitempty"`
	Trap         *TrapParams         `yaml:"trap,omitempty"`
	Chair        *ChairParams        `yaml:"chair,omitempty"`
	Goober       *GooberParams       `yaml:"goober,omitempty"`
	Transport    *TransportParams    `yaml:"transport,omitempty"`
	Ritual       *RitualParams       `yaml:"ritual,omitempty"`
	SpellCaster  *SpellCasterParams  `yaml:"spellcaster,omitempty"`
	MeetingStone *MeetingStoneParams `yaml:"meetingstone,omitempty"`
	Flag         *FlagParams         `yaml:"flag,omitempty"`
	FishingHole  *FishingHoleParams  `yaml:"fishinghole,omitempty"`
	CapturePoint *CapturePointParams `yaml:"capturepoint,omitempty"`
	Destructible *DestructibleParams `yaml:"destructible,omitempty"`
}

// Cooldown returns the per-entity use cooldown in seconds, 0 = none.
func (t *ObjectTemplate) Cooldown() int32 { return t.CooldownSec }

// Charges returns the maximum use count before the object deactivates,
// 0 = unlimited.
func (t *ObjectTemplate) Charges() int32 {
	switch t.Kind {
	case KindChest:
		if t.Chest != nil {
			return t.Chest.Charges
		}
	case KindSpellCaster:
		if t.SpellCaster != nil {
			return t.SpellCaster.Charges
		}
	}
	return 0
}

// AutoCloseMs returns the self-reset delay for doors, buttons and goobers.
func (t *ObjectTemplate) AutoCloseMs() uint32 {
	switch t.Kind {
	case KindDoor, KindButton:
		if t.Door != nil {
			return t.Door.AutoCloseMs
		}
	case KindGoober:
		if t.Goober != nil {
			return t.Goober.AutoCloseMs
		}
	}
	return 0
}

// LinkedTrapKind returns the kind id of the companion trap created alongside
// this object, 0 = none.
func (t *ObjectTemplate) LinkedTrapKind() int32 {
	switch t.Kind {
	case KindDoor, KindButton:
		if t.Door != nil {
			return t.Door.LinkedTrapID
		}
	case KindChest:
		if t.Chest != nil {
			return t.Chest.LinkedTrapID
		}
	case KindGoober:
		if t.Goober != nil {
			return t.Goober.LinkedTrapID
		}
	}
	return 0
}

// IsDespawnAtAction reports whether the object is consumed by interaction
// (looted chests, one-shot goobers).
func (t *ObjectTemplate) IsDespawnAtAction() bool {
	switch t.Kind {
	case KindChest:
		return t.Chest != nil && t.Chest.DespawnAtAction
	case KindGoober:
		return t.Goober != nil && t.Goober.Consumable
	}
	return false
}

// DespawnPossibility reports whether the object can ever leave the world
// once placed. Doors, buttons and flag stands reset instead of despawning.
func (t *ObjectTemplate) DespawnPossibility() bool {
	switch t.Kind {
	case KindDoor, KindButton, KindFlagStand, KindTransport, KindDestructible:
		return false
	}
	return true
}

// Instantiable reports whether the kind may be spawned through Create.
func (t *ObjectTemplate) Instantiable() bool {
	return t.Kind != KindMapObjTransport
}

// ObjectAddon carries template-level presentation overrides.
type ObjectAddon struct {
	KindID        int32  `yaml:"kind_id"`
	Faction       int32  `yaml:"faction"`
	Flags         uint32 `yaml:"flags"`
	WorldEffectID int32  `yaml:"world_effect_id"`
}

// SpawnOverride carries per-spawn-point overrides; takes precedence over the
// template addon when both exist.
type SpawnOverride struct {
	SpawnID       int64  `yaml:"spawn_id"`
	Faction       int32  `yaml:"faction"`
	Flags         uint32 `yaml:"flags"`
	WorldEffectID int32  `yaml:"world_effect_id"`
}

type objectListFile struct {
	Objects []ObjectTemplate `yaml:"objects"`
}

type addonListFile struct {
	Addons    []ObjectAddon   `yaml:"addons"`
	Overrides []SpawnOverride `yaml:"overrides"`
}

// ObjectTable is the read-only descriptor repository, indexed by kind id.
type ObjectTable struct {
	templates map[int32]*ObjectTemplate
	addons    map[int32]*ObjectAddon
	overrides map[int64]*SpawnOverride
}

// NewObjectTable builds a table from in-memory templates. Templates with an
// out-of-range kind tag are rejected, same as the YAML loader.
func NewObjectTable(tmpls ...*ObjectTemplate) (*ObjectTable, error) {
	t := &ObjectTable{
		templates: make(map[int32]*ObjectTemplate, len(tmpls)),
		addons:    make(map[int32]*ObjectAddon),
		overrides: make(map[int64]*SpawnOverride),
	}
	for _, tmpl := range tmpls {
		if !KindValid(tmpl.Kind) {
			return nil, fmt.Errorf("object template %d: out-of-range kind tag %d", tmpl.KindID, tmpl.Kind)
		}
		t.templates[tmpl.KindID] = tmpl
	}
	return t, nil
}

// LoadObjectTable loads object templates from a YAML file.
func LoadObjectTable(path string) (*ObjectTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read object_list: %w", err)
	}
	var f objectListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse object_list: %w", err)
	}
	t := &ObjectTable{
		templates: make(map[int32]*ObjectTemplate, len(f.Objects)),
		addons:    make(map[int32]*ObjectAddon),
		overrides: make(map[int64]*SpawnOverride),
	}
	for i := range f.Objects {
		tmpl := &f.Objects[i]
		if !KindValid(tmpl.Kind) {
			return nil, fmt.Errorf("object template %d: out-of-range kind tag %d", tmpl.KindID, tmpl.Kind)
		}
		t.templates[tmpl.KindID] = tmpl
	}
	return t, nil
}

// LoadAddons loads template addons and per-spawn overrides into the table.
func (t *ObjectTable) LoadAddons(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // addons are optional
		}
		return fmt.Errorf("read object_addons: %w", err)
	}
	var f addonListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse object_addons: %w", err)
	}
	for i := range f.Addons {
		a := &f.Addons[i]
		t.addons[a.KindID] = a
	}
	for i := range f.Overrides {
		o := &f.Overrides[i]
		t.overrides[o.SpawnID] = o
	}
	return nil
}

// Get returns an object template by kind id, or nil if not found.
func (t *ObjectTable) Get(kindID int32) *ObjectTemplate {
	return t.templates[kindID]
}

// Addon returns the template-level addon for a kind id, or nil.
func (t *ObjectTable) Addon(kindID int32) *ObjectAddon {
	return t.addons[kindID]
}

// Override resolves presentation overrides for a spawn point: the per-spawn
// override wins over the template addon.
func (t *ObjectTable) Override(spawnID int64, kindID int32) *SpawnOverride {
	if o := t.overrides[spawnID]; o != nil {
		return o
	}
	if a := t.addons[kindID]; a != nil {
		return &SpawnOverride{Faction: a.Faction, Flags: a.Flags, WorldEffectID: a.WorldEffectID}
	}
	return nil
}

// Count returns the number of loaded templates.
func (t *ObjectTable) Count() int {
	return len(t.templates)
}
