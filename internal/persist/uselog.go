package persist

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// UseLogEntry records one object interaction for auditing.
type UseLogEntry struct {
	ObjectID int64
	SpawnID  int64
	ActorID  int64
	State    int32
}

type UseLogRepo struct {
	db *DB
}

func NewUseLogRepo(db *DB) *UseLogRepo {
	return &UseLogRepo{db: db}
}

// WriteBatch atomically writes a batch of use-log entries in a single
// transaction. Returns nil on success.
func (r *UseLogRepo) WriteBatch(ctx context.Context, entries []UseLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.InTx(ctx, func(tx pgx.Tx) error {
		for _, e := range entries {
			if _, err := tx.Exec(ctx,
				`INSERT INTO use_log (object_id, spawn_id, actor_id, state)
				 VALUES ($1, $2, $3, $4)`,
				e.ObjectID, e.SpawnID, e.ActorID, e.State,
			); err != nil {
				return fmt.Errorf("use log insert: %w", err)
			}
		}
		return nil
	})
}

// MarkProcessed marks all use-log entries as processed (called during batch
// flush by offline consumers).
func (r *UseLogRepo) MarkProcessed(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE use_log SET processed = TRUE WHERE processed = FALSE`,
	)
	return err
}
