package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/stormvale/server/internal/world"
)

// Engine wraps a single gopher-lua VM for object AI scripts.
// Single-goroutine access only (game loop). Hot-reload planned via atomic swap.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory. Scripts register AI tables under the object_ai global, keyed by
// the template's script name.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.SetGlobal("object_ai", vm.NewTable())

	e := &Engine{vm: vm, log: log}

	// Load core scripts first, then object scripts
	corePath := filepath.Join(scriptsDir, "core")
	if err := e.loadDir(corePath); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load core scripts: %w", err)
	}
	objectsPath := filepath.Join(scriptsDir, "objects")
	if err := e.loadDir(objectsPath); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load object scripts: %w", err)
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Close shuts down the VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// Factory returns a world.AIFactory binding templates with a script name to
// their lua AI table. Templates without a script (or with a script that was
// never registered) get no AI.
func (e *Engine) Factory() world.AIFactory {
	return func(obj *world.Object) world.ObjectAI {
		name := obj.Template().ScriptName
		if name == "" {
			return nil
		}
		registry, ok := e.vm.GetGlobal("object_ai").(*lua.LTable)
		if !ok {
			return nil
		}
		hooks, ok := registry.RawGetString(name).(*lua.LTable)
		if !ok {
			e.log.Warn("object script not registered",
				zap.String("script", name), zap.Int32("kind_id", obj.Template().KindID))
			return nil
		}
		return &scriptAI{e: e, obj: obj, hooks: hooks}
	}
}

// scriptAI adapts one lua hook table to world.ObjectAI. Hooks are optional;
// missing entries are skipped without cost beyond a table lookup.
type scriptAI struct {
	e     *Engine
	obj   *world.Object
	hooks *lua.LTable
}

// selfTable packs the object identity the way every hook receives it.
func (s *scriptAI) selfTable() *lua.LTable {
	vm := s.e.vm
	t := vm.NewTable()
	t.RawSetString("id", lua.LNumber(s.obj.ID()))
	t.RawSetString("spawn_id", lua.LNumber(s.obj.SpawnID()))
	t.RawSetString("kind_id", lua.LNumber(s.obj.Template().KindID))
	t.RawSetString("kind", lua.LString(s.obj.Template().Kind.String()))
	x, y := s.obj.Position()
	t.RawSetString("x", lua.LNumber(x))
	t.RawSetString("y", lua.LNumber(y))
	t.RawSetString("loot_state", lua.LString(s.obj.LootState().String()))
	return t
}

// call invokes one named hook with args, returning its first result. Errors
// are logged and swallowed: a broken script must not stall the tick.
func (s *scriptAI) call(hook string, nret int, args ...lua.LValue) lua.LValue {
	fn := s.hooks.RawGetString(hook)
	if fn == lua.LNil {
		return lua.LNil
	}
	vm := s.e.vm
	callArgs := append([]lua.LValue{s.selfTable()}, args...)
	if err := vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    nret,
		Protect: true,
	}, callArgs...); err != nil {
		s.e.log.Error("lua object hook error",
			zap.String("hook", hook),
			zap.Int32("kind_id", s.obj.Template().KindID),
			zap.Error(err))
		return lua.LNil
	}
	if nret == 0 {
		return lua.LNil
	}
	result := vm.Get(-1)
	vm.Pop(nret)
	return result
}

func (s *scriptAI) UpdateAI(diff time.Duration) {
	s.call("on_update", 0, lua.LNumber(diff.Milliseconds()))
}

func (s *scriptAI) GossipHello(actor *world.Actor) bool {
	result := s.call("on_gossip_hello", 1, lua.LNumber(actor.ID))
	return lua.LVAsBool(result)
}

func (s *scriptAI) OnLootStateChanged(state world.LootState, actorID int64) {
	s.call("on_loot_state", 0, lua.LString(state.String()), lua.LNumber(actorID))
}

func (s *scriptAI) OnStateChanged(state world.VisualState) {
	s.call("on_go_state", 0, lua.LNumber(state))
}

func (s *scriptAI) Reset() {
	s.call("on_reset", 0)
}

func (s *scriptAI) EventInform(eventID int32, invokerID int64) {
	s.call("on_event", 0, lua.LNumber(eventID), lua.LNumber(invokerID))
}

func (s *scriptAI) Damaged(instigatorID int64, eventID int32) {
	s.call("on_damaged", 0, lua.LNumber(instigatorID), lua.LNumber(eventID))
}

func (s *scriptAI) Destroyed(instigatorID int64, eventID int32) {
	s.call("on_destroyed", 0, lua.LNumber(instigatorID), lua.LNumber(eventID))
}
