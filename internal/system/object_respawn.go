package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	coresys "github.com/stormvale/server/internal/core/system"
	"github.com/stormvale/server/internal/world"
)

// ObjectRespawnSystem recreates asynchronously-despawned objects whose
// journaled respawn instant has elapsed. Compatibility-mode spawns never
// appear here: they stay resident and poll their own timer. Phase 2
// (PostUpdate), after lifecycle updates so a spawn scheduled this tick is
// recreated next tick at the earliest.
type ObjectRespawnSystem struct {
	m   *world.Map
	log *zap.Logger
}

func NewObjectRespawnSystem(m *world.Map, log *zap.Logger) *ObjectRespawnSystem {
	return &ObjectRespawnSystem{m: m, log: log}
}

func (s *ObjectRespawnSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *ObjectRespawnSystem) Update(_ time.Duration) {
	due := s.m.DueRespawns()
	if len(due) == 0 {
		return
	}
	now := s.m.Now()

	for _, spawnID := range due {
		// respawn dependencies gate recreation exactly like the legacy path
		if master := s.m.LinkedRespawnTarget(spawnID); master != 0 {
			if master == spawnID {
				s.m.SaveRespawnTime(spawnID, now.Add(world.NeverRespawn), s.m.Respawn.SaveImmediately)
				continue
			}
			if linked := s.m.RespawnTime(master); !linked.IsZero() && linked.After(now) {
				s.m.SaveRespawnTime(spawnID, linked.Add(s.m.RespawnJitter()), s.m.Respawn.SaveImmediately)
				continue
			}
		}

		if poolID := s.m.Pool.PoolOf(spawnID); poolID != 0 {
			s.m.RemoveRespawnTime(spawnID, true)
			s.m.Pool.NotifyPoolUpdate(poolID, spawnID)
			continue
		}

		s.recreate(spawnID)
	}
}

func (s *ObjectRespawnSystem) recreate(spawnID int64) {
	if s.m.Store == nil {
		s.m.RemoveRespawnTime(spawnID, false)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec, err := s.m.Store.LoadSpawnRecord(ctx, spawnID)
	if err != nil {
		s.log.Error("respawn load failed", zap.Int64("spawn_id", spawnID), zap.Error(err))
		// drop the journal entry so a deleted spawn point does not retry
		// forever
		s.m.RemoveRespawnTime(spawnID, true)
		return
	}

	s.m.RemoveRespawnTime(spawnID, true)
	if _, err := s.m.SpawnFromRecord(rec); err != nil {
		s.log.Error("respawn recreate failed", zap.Int64("spawn_id", spawnID), zap.Error(err))
	}
}
