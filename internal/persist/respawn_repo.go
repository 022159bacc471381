package persist

import (
	"context"
	"time"
)

// RespawnRepo implements world.RespawnJournal on Postgres.
type RespawnRepo struct {
	db *DB
}

func NewRespawnRepo(db *DB) *RespawnRepo {
	return &RespawnRepo{db: db}
}

func (r *RespawnRepo) SaveRespawnTime(ctx context.Context, mapID int32, spawnID int64, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO object_respawns (map_id, spawn_id, respawn_time)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (map_id, spawn_id) DO UPDATE SET respawn_time = $3`,
		mapID, spawnID, at,
	)
	return err
}

func (r *RespawnRepo) RemoveRespawnTime(ctx context.Context, mapID int32, spawnID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM object_respawns WHERE map_id = $1 AND spawn_id = $2`,
		mapID, spawnID,
	)
	return err
}

func (r *RespawnRepo) LoadRespawnTimes(ctx context.Context, mapID int32) (map[int64]time.Time, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT spawn_id, respawn_time FROM object_respawns WHERE map_id = $1`, mapID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	times := make(map[int64]time.Time)
	for rows.Next() {
		var spawnID int64
		var at time.Time
		if err := rows.Scan(&spawnID, &at); err != nil {
			return nil, err
		}
		times[spawnID] = at
	}
	return times, rows.Err()
}

// PurgeElapsed drops journal rows whose instant already passed; called at
// server boot so the table does not accumulate stale entries.
func (r *RespawnRepo) PurgeElapsed(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM object_respawns WHERE respawn_time <= NOW()`,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
