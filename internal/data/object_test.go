package data

import (
	"os"
	"path/filepath"
	"testing"
)

const testObjectList = `
objects:
  - kind_id: 100
    kind: 0
    name: "Test Gate"
    display_id: 4000
    door:
      auto_close_ms: 10000
      linked_trap_id: 200
  - kind_id: 150
    kind: 3
    name: "Test Chest"
    cooldown_sec: 5
    chest:
      loot_id: 5001
      charges: 2
      despawn_at_action: true
  - kind_id: 300
    kind: 8
    name: "Test Rune"
    script: "test_rune"
    goober:
      auto_close_ms: 3000
      consumable: true
`

const testAddons = `
addons:
  - kind_id: 150
    faction: 35
    flags: 2
overrides:
  - spawn_id: 9001
    faction: 14
    flags: 32
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadObjectTable(t *testing.T) {
	table, err := LoadObjectTable(writeTemp(t, "object_list.yaml", testObjectList))
	if err != nil {
		t.Fatalf("load object table: %v", err)
	}
	if table.Count() != 3 {
		t.Fatalf("count = %d, want 3", table.Count())
	}

	door := table.Get(100)
	if door == nil || door.Kind != KindDoor {
		t.Fatalf("template 100 = %+v, want a door", door)
	}
	if door.AutoCloseMs() != 10000 {
		t.Errorf("auto close = %d, want 10000", door.AutoCloseMs())
	}
	if door.LinkedTrapKind() != 200 {
		t.Errorf("linked trap = %d, want 200", door.LinkedTrapKind())
	}

	chest := table.Get(150)
	if chest.Charges() != 2 {
		t.Errorf("chest charges = %d, want 2", chest.Charges())
	}
	if chest.Cooldown() != 5 {
		t.Errorf("chest cooldown = %d, want 5", chest.Cooldown())
	}
	if !chest.IsDespawnAtAction() {
		t.Error("chest should be consumed at action")
	}

	goober := table.Get(300)
	if goober.ScriptName != "test_rune" {
		t.Errorf("script = %q, want test_rune", goober.ScriptName)
	}
	if !goober.IsDespawnAtAction() {
		t.Error("consumable goober should be consumed at action")
	}

	if table.Get(9999) != nil {
		t.Error("unknown kind id should return nil")
	}
}

func TestLoadObjectTableRejectsBadKind(t *testing.T) {
	path := writeTemp(t, "object_list.yaml", `
objects:
  - kind_id: 1
    kind: 99
    name: "Broken"
`)
	if _, err := LoadObjectTable(path); err == nil {
		t.Fatal("out-of-range kind tag should fail the load")
	}
}

func TestNewObjectTableRejectsBadKind(t *testing.T) {
	if _, err := NewObjectTable(&ObjectTemplate{KindID: 1, Kind: Kind(99)}); err == nil {
		t.Fatal("out-of-range kind tag should be rejected")
	}
}

func TestOverridePrecedence(t *testing.T) {
	table, err := LoadObjectTable(writeTemp(t, "object_list.yaml", testObjectList))
	if err != nil {
		t.Fatalf("load object table: %v", err)
	}
	if err := table.LoadAddons(writeTemp(t, "object_addons.yaml", testAddons)); err != nil {
		t.Fatalf("load addons: %v", err)
	}

	// per-spawn override wins
	if ov := table.Override(9001, 150); ov == nil || ov.Faction != 14 || ov.Flags != 32 {
		t.Errorf("override for spawn 9001 = %+v, want the per-spawn row", ov)
	}
	// unknown spawn falls back to the template addon
	if ov := table.Override(1, 150); ov == nil || ov.Faction != 35 || ov.Flags != 2 {
		t.Errorf("override for spawn 1 = %+v, want the template addon", ov)
	}
	// neither registered
	if ov := table.Override(1, 100); ov != nil {
		t.Errorf("override for kind 100 = %+v, want none", ov)
	}

	if a := table.Addon(150); a == nil || a.Faction != 35 {
		t.Errorf("addon for kind 150 = %+v", a)
	}
}

func TestLoadAddonsMissingFileIsOptional(t *testing.T) {
	table, err := LoadObjectTable(writeTemp(t, "object_list.yaml", testObjectList))
	if err != nil {
		t.Fatalf("load object table: %v", err)
	}
	if err := table.LoadAddons(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Errorf("missing addon file should be skipped, got %v", err)
	}
}

func TestTemplateKindPredicates(t *testing.T) {
	cases := []struct {
		kind            Kind
		despawnPossible bool
		instantiable    bool
	}{
		{KindDoor, false, true},
		{KindButton, false, true},
		{KindFlagStand, false, true},
		{KindTransport, false, true},
		{KindDestructible, false, true},
		{KindChest, true, true},
		{KindTrap, true, true},
		{KindMapObjTransport, true, false},
	}
	for _, tc := range cases {
		tmpl := &ObjectTemplate{Kind: tc.kind}
		if got := tmpl.DespawnPossibility(); got != tc.despawnPossible {
			t.Errorf("%s: despawn possibility = %v, want %v", tc.kind, got, tc.despawnPossible)
		}
		if got := tmpl.Instantiable(); got != tc.instantiable {
			t.Errorf("%s: instantiable = %v, want %v", tc.kind, got, tc.instantiable)
		}
	}
}

func TestKindString(t *testing.T) {
	if KindDoor.String() != "door" || KindDestructible.String() != "destructible" {
		t.Error("kind names are out of sync with the enum")
	}
	if got := Kind(99).String(); got != "kind(99)" {
		t.Errorf("unknown kind string = %q", got)
	}
	if KindValid(Kind(99)) {
		t.Error("kind 99 should be invalid")
	}
}
