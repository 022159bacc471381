package world

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/stormvale/server/internal/config"
	"github.com/stormvale/server/internal/core/event"
	"github.com/stormvale/server/internal/data"
)

// AIFactory builds the AI hook for a freshly created object. Returning nil
// falls back to NopAI.
type AIFactory func(obj *Object) ObjectAI

// Map owns every materialized object instance on one game map and the
// map-local respawn journal. Single-goroutine access only (game loop):
// exclusive, serialized Update/Use per tick is guaranteed by the caller.
type Map struct {
	ID  int32
	log *zap.Logger

	// Clock is the time source for all lifecycle timers; overridable in
	// tests for deterministic scheduling.
	Clock func() time.Time

	Tables     *data.ObjectTable
	Store      SpawnStore     // nil = no durable spawn records
	Journal    RespawnJournal // nil = map-memory journaling only
	Notifier   Notifier
	Pool       PoolSource
	Groups     GroupRegistry
	Objectives ObjectiveHook
	Spells     SpellDispatcher // nil = every cast fails resolution
	Bus        *event.Bus
	AIFactory  AIFactory
	Respawn    config.RespawnConfig

	objects    map[int64]*Object
	objectList []*Object
	bySpawnID  map[int64]*Object
	nextID     int64

	actors map[int64]*Actor

	models  map[int64]*spatialModel
	removal []*Object

	respawnTimes  map[int64]time.Time // spawnID → respawn instant (map memory)
	linkedRespawn map[int64]int64     // spawnID → master spawnID

	rng *rand.Rand
}

// spatialModel is the coarse collision entry for one object.
type spatialModel struct {
	enabled bool
}

func NewMap(id int32, tables *data.ObjectTable, log *zap.Logger) *Map {
	return &Map{
		ID:            id,
		log:           log,
		Clock:         time.Now,
		Tables:        tables,
		Notifier:      NopNotifier{},
		Pool:          NoPools{},
		Groups:        NoGroups{},
		Objectives:    NoObjectives{},
		objects:       make(map[int64]*Object),
		bySpawnID:     make(map[int64]*Object),
		actors:        make(map[int64]*Actor),
		models:        make(map[int64]*spatialModel),
		respawnTimes:  make(map[int64]time.Time),
		linkedRespawn: make(map[int64]int64),
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Now returns the current simulation time.
func (m *Map) Now() time.Time { return m.Clock() }

// NextObjectID allocates a runtime object id, unique within the map.
func (m *Map) NextObjectID() int64 {
	m.nextID++
	return m.nextID
}

// Logger exposes the map logger to owned objects.
func (m *Map) Logger() *zap.Logger { return m.log }

// randRange returns a uniform value in [lo, hi].
func (m *Map) randRange(lo, hi int32) int32 {
	if hi <= lo {
		return lo
	}
	return lo + m.rng.Int31n(hi-lo+1)
}

// --- object registry ---

// AddToMap registers an object: id lookup, spawn-id lookup, spatial model,
// visibility. Idempotent for already-resident objects.
func (m *Map) AddToMap(obj *Object) error {
	if obj == nil {
		return fmt.Errorf("add to map: nil object")
	}
	if obj.inWorld {
		m.Notifier.UpdateVisibility(obj)
		return nil
	}
	m.objects[obj.id] = obj
	m.objectList = append(m.objectList, obj)
	if obj.spawnID != 0 {
		m.bySpawnID[obj.spawnID] = obj
	}
	m.RegisterSpatialModel(obj)
	obj.inWorld = true
	m.Notifier.UpdateVisibility(obj)
	if m.Bus != nil {
		event.Emit(m.Bus, event.ObjectSpawned{ObjectID: obj.id, KindID: obj.tmpl.KindID, SpawnID: obj.spawnID})
	}
	return nil
}

// RemoveFromMap unregisters an object from all lookup structures. The
// instance itself is destroyed by the cleanup system.
func (m *Map) RemoveFromMap(obj *Object) {
	if !obj.inWorld {
		return
	}
	m.UnregisterSpatialModel(obj)
	delete(m.objects, obj.id)
	if obj.spawnID != 0 && m.bySpawnID[obj.spawnID] == obj {
		delete(m.bySpawnID, obj.spawnID)
	}
	// swap-delete from the iteration list
	for i, o := range m.objectList {
		if o == obj {
			m.objectList[i] = m.objectList[len(m.objectList)-1]
			m.objectList = m.objectList[:len(m.objectList)-1]
			break
		}
	}
	obj.inWorld = false
}

// QueueRemoval defers instance destruction to the cleanup phase of the
// current tick. Safe to call from inside Update.
func (m *Map) QueueRemoval(obj *Object) {
	for _, o := range m.removal {
		if o == obj {
			return
		}
	}
	m.removal = append(m.removal, obj)
}

// DrainRemovals removes and returns all queued objects. Called once per tick
// by the cleanup system.
func (m *Map) DrainRemovals() []*Object {
	if len(m.removal) == 0 {
		return nil
	}
	out := m.removal
	m.removal = nil
	for _, obj := range out {
		m.RemoveFromMap(obj)
	}
	return out
}

// Object returns a resident object by runtime id.
func (m *Map) Object(id int64) *Object { return m.objects[id] }

// BySpawnID returns the resident object for a spawn point, or nil.
func (m *Map) BySpawnID(spawnID int64) *Object { return m.bySpawnID[spawnID] }

// Objects returns the live object list for tick iteration.
func (m *Map) Objects() []*Object { return m.objectList }

// ObjectCount returns the number of resident objects.
func (m *Map) ObjectCount() int { return len(m.objects) }

// NearestObjectOfKind returns the closest resident object of the given kind
// id within radius of a point, or nil.
func (m *Map) NearestObjectOfKind(kindID int32, x, y, radius float64) *Object {
	var best *Object
	bestSq := radius * radius
	for _, o := range m.objectList {
		if o.tmpl.KindID != kindID {
			continue
		}
		dx, dy := o.x-x, o.y-y
		if d := dx*dx + dy*dy; d <= bestSq {
			best = o
			bestSq = d
		}
	}
	return best
}

// --- actors ---

// AddActor registers an actor on the map.
func (m *Map) AddActor(a *Actor) { m.actors[a.ID] = a }

// RemoveActor removes an actor from the map.
func (m *Map) RemoveActor(id int64) { delete(m.actors, id) }

// Actor returns an actor by id, or nil.
func (m *Map) Actor(id int64) *Actor { return m.actors[id] }

// ActorsInRange collects actors within radius of a point that match the
// filter. A nil filter matches everyone.
func (m *Map) ActorsInRange(x, y, radius float64, filter func(*Actor) bool) []*Actor {
	var out []*Actor
	for _, a := range m.actors {
		if a.DistanceTo(x, y) > radius {
			continue
		}
		if filter != nil && !filter(a) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// NearestActor returns the actor closest to a point within radius matching
// the filter, or nil.
func (m *Map) NearestActor(x, y, radius float64, filter func(*Actor) bool) *Actor {
	var best *Actor
	bestDist := radius
	for _, a := range m.actors {
		d := a.DistanceTo(x, y)
		if d > bestDist {
			continue
		}
		if filter != nil && !filter(a) {
			continue
		}
		best = a
		bestDist = d
	}
	return best
}

// --- spatial model (coarse collision) ---

// RegisterSpatialModel inserts the object's collision model; collision
// starts enabled unless the object is in a pose that disables it.
func (m *Map) RegisterSpatialModel(obj *Object) {
	if _, ok := m.models[obj.id]; ok {
		return
	}
	m.models[obj.id] = &spatialModel{enabled: obj.visualState == VisualReady || obj.IsTransport()}
}

// UnregisterSpatialModel removes the object's collision model.
func (m *Map) UnregisterSpatialModel(obj *Object) {
	delete(m.models, obj.id)
}

// SetCollision toggles the object's collision model, if registered.
func (m *Map) SetCollision(obj *Object, enabled bool) {
	if mod, ok := m.models[obj.id]; ok {
		mod.enabled = enabled
	}
}

// CollisionEnabled reports whether the object currently blocks movement.
func (m *Map) CollisionEnabled(obj *Object) bool {
	mod, ok := m.models[obj.id]
	return ok && mod.enabled
}

// --- respawn journal ---

// RespawnTime returns the journaled respawn instant for a spawn point, or
// the zero time.
func (m *Map) RespawnTime(spawnID int64) time.Time {
	return m.respawnTimes[spawnID]
}

// SaveRespawnTime journals a respawn instant in map memory and, when persist
// is set, writes it through to the durable journal. Write failures are
// logged; the in-memory instant stays correct.
func (m *Map) SaveRespawnTime(spawnID int64, at time.Time, persist bool) {
	m.respawnTimes[spawnID] = at
	if !persist || m.Journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Journal.SaveRespawnTime(ctx, m.ID, spawnID, at); err != nil {
		m.log.Warn("save respawn time failed",
			zap.Int64("spawn_id", spawnID), zap.Error(err))
	}
}

// RemoveRespawnTime drops the journaled instant for a spawn point.
func (m *Map) RemoveRespawnTime(spawnID int64, persist bool) {
	delete(m.respawnTimes, spawnID)
	if !persist || m.Journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Journal.RemoveRespawnTime(ctx, m.ID, spawnID); err != nil {
		m.log.Warn("remove respawn time failed",
			zap.Int64("spawn_id", spawnID), zap.Error(err))
	}
}

// LoadRespawnTimes primes map memory from the durable journal at map load,
// dropping instants that already elapsed.
func (m *Map) LoadRespawnTimes(ctx context.Context) error {
	if m.Journal == nil {
		return nil
	}
	times, err := m.Journal.LoadRespawnTimes(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("load respawn times: %w", err)
	}
	now := m.Now()
	for spawnID, at := range times {
		if at.After(now) {
			m.respawnTimes[spawnID] = at
		}
	}
	return nil
}

// LoadSpawns materializes every spawn record of this map from the durable
// store: respawn journal first so pending spawns stay down, then linked
// respawn pairs, then the objects themselves.
func (m *Map) LoadSpawns(ctx context.Context) error {
	if m.Store == nil {
		return nil
	}
	if err := m.LoadRespawnTimes(ctx); err != nil {
		return err
	}
	links, err := m.Store.LoadLinkedRespawns(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("load linked respawns: %w", err)
	}
	for slave, master := range links {
		m.linkedRespawn[slave] = master
	}

	recs, err := m.Store.LoadSpawnRecords(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("load spawn records: %w", err)
	}
	loaded := 0
	for _, rec := range recs {
		obj, err := m.SpawnFromRecord(rec)
		if err != nil {
			m.log.Warn("spawn record skipped",
				zap.Int64("spawn_id", rec.SpawnID), zap.Error(err))
			continue
		}
		if obj != nil {
			loaded++
		}
	}
	m.log.Info("map spawns loaded",
		zap.Int32("map_id", m.ID),
		zap.Int("records", len(recs)),
		zap.Int("resident", loaded))
	return nil
}

// DueRespawns returns spawn ids whose journaled respawn instant has elapsed
// and that have no resident instance (asynchronous-mode recreation input).
func (m *Map) DueRespawns() []int64 {
	now := m.Now()
	var due []int64
	for spawnID, at := range m.respawnTimes {
		if at.After(now) {
			continue
		}
		if m.bySpawnID[spawnID] != nil {
			continue
		}
		due = append(due, spawnID)
	}
	return due
}

// --- linked respawns ---

// SetLinkedRespawn declares that a spawn point may only respawn after its
// master's respawn instant has elapsed.
func (m *Map) SetLinkedRespawn(spawnID, masterSpawnID int64) {
	m.linkedRespawn[spawnID] = masterSpawnID
}

// LinkedRespawnTarget returns the master spawn id for a slave, or 0.
func (m *Map) LinkedRespawnTarget(spawnID int64) int64 {
	return m.linkedRespawn[spawnID]
}

// RemoveLinkedRespawn drops a slave's linked-respawn pairing.
func (m *Map) RemoveLinkedRespawn(spawnID int64) {
	delete(m.linkedRespawn, spawnID)
}

// RespawnJitter returns the random pad added after a linked master's respawn
// instant so slaves don't all pop at once.
func (m *Map) RespawnJitter() time.Duration {
	return time.Duration(m.randRange(5, 60)) * time.Second
}

// ScaleRespawnDelay applies the dynamic respawn scaling policy to a delay.
func (m *Map) ScaleRespawnDelay(delay time.Duration) time.Duration {
	if m.Respawn.ScalingMode == 0 || m.Respawn.ScalingRate <= 0 {
		return delay
	}
	return time.Duration(float64(delay) * m.Respawn.ScalingRate)
}
