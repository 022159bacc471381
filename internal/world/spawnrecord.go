package world

import (
	"context"
	"time"
)

// SpawnRecord is the persisted placement of one object instance.
// RespawnSecs is sign-encoded: >= 0 means the object is spawned by default
// with that respawn interval; negative means it must be triggered explicitly
// and |RespawnSecs| is the interval used once triggered.
type SpawnRecord struct {
	SpawnID      int64
	KindID       int32
	MapID        int32
	X, Y         float64
	Facing       float64
	Rotation     [4]float64 // packed quaternion components
	RespawnSecs  int32
	AnimProgress uint8
	VisualState  VisualState
	ArtVariant   uint8
	Difficulties []int32
	PhaseID      int32
	PoolID       int32
	// CompatibilityMode forces the legacy respawn scheduler for this spawn
	// group even when the map runs in asynchronous mode.
	CompatibilityMode bool
}

// SpawnedByDefault reports whether the record places the object at map load.
func (r *SpawnRecord) SpawnedByDefault() bool { return r.RespawnSecs >= 0 }

// RespawnDelay returns the unsigned respawn interval.
func (r *SpawnRecord) RespawnDelay() int32 {
	if r.RespawnSecs < 0 {
		return -r.RespawnSecs
	}
	return r.RespawnSecs
}

// SpawnStore is the durable spawn-record contract this core consumes.
type SpawnStore interface {
	LoadSpawnRecords(ctx context.Context, mapID int32) ([]*SpawnRecord, error)
	LoadSpawnRecord(ctx context.Context, spawnID int64) (*SpawnRecord, error)
	SaveSpawnRecord(ctx context.Context, rec *SpawnRecord) error
	DeleteSpawnRecord(ctx context.Context, spawnID int64) error
	// LoadLinkedRespawns returns slave → master spawn-id pairs for the map.
	LoadLinkedRespawns(ctx context.Context, mapID int32) (map[int64]int64, error)
}

// RespawnJournal persists respawn instants across restarts. Writes are
// best-effort: the in-memory instant stays authoritative when a write fails.
type RespawnJournal interface {
	SaveRespawnTime(ctx context.Context, mapID int32, spawnID int64, at time.Time) error
	RemoveRespawnTime(ctx context.Context, mapID int32, spawnID int64) error
	LoadRespawnTimes(ctx context.Context, mapID int32) (map[int64]time.Time, error)
}
