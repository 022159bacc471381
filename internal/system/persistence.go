package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/stormvale/server/internal/core/event"
	coresys "github.com/stormvale/server/internal/core/system"
	"github.com/stormvale/server/internal/persist"
	"github.com/stormvale/server/internal/world"
)

// PersistenceSystem batch-saves dirty spawn records on an interval and
// drains the interaction audit buffer. Phase 3 (Persist).
type PersistenceSystem struct {
	m       *world.Map
	useLog  *persist.UseLogRepo
	log     *zap.Logger
	elapsed time.Duration
	every   time.Duration

	pending []persist.UseLogEntry
}

func NewPersistenceSystem(m *world.Map, useLog *persist.UseLogRepo, bus *event.Bus, log *zap.Logger, every time.Duration) *PersistenceSystem {
	s := &PersistenceSystem{m: m, useLog: useLog, log: log, every: every}
	if bus != nil {
		event.Subscribe(bus, func(ev event.ObjectStateChanged) {
			s.pending = append(s.pending, persist.UseLogEntry{
				ObjectID: ev.ObjectID,
				SpawnID:  ev.SpawnID,
				ActorID:  ev.ActorID,
				State:    ev.State,
			})
		})
	}
	return s
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(dt time.Duration) {
	s.elapsed += dt
	if s.elapsed < s.every {
		return
	}
	s.elapsed = 0
	s.SaveAll(true)
}

// SaveAll persists spawn records and flushes the use log. dirtyOnly=false
// saves everything regardless of dirty flags; used at graceful shutdown.
func (s *PersistenceSystem) SaveAll(dirtyOnly bool) {
	ctx, cancel := context.WithTimeout(context.Background(), persist.OpTimeout)
	defer cancel()

	saved := 0
	for _, obj := range s.m.Objects() {
		if obj.SpawnID() == 0 {
			continue
		}
		if dirtyOnly && !obj.Dirty() {
			continue
		}
		if err := obj.SaveToDB(ctx); err != nil {
			s.log.Error("spawn save failed",
				zap.Int64("spawn_id", obj.SpawnID()), zap.Error(err))
			continue
		}
		saved++
	}

	if s.useLog != nil && len(s.pending) > 0 {
		if err := s.useLog.WriteBatch(ctx, s.pending); err != nil {
			// keep the buffer; next flush retries
			s.log.Error("use log flush failed", zap.Int("entries", len(s.pending)), zap.Error(err))
		} else {
			s.pending = s.pending[:0]
		}
	}

	if saved > 0 {
		s.log.Info("spawn records saved", zap.Int("count", saved))
	}
}
