package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stormvale/server/internal/world"
)

// SpawnRepo implements world.SpawnStore on Postgres.
type SpawnRepo struct {
	db *DB
}

func NewSpawnRepo(db *DB) *SpawnRepo {
	return &SpawnRepo{db: db}
}

const spawnColumns = `spawn_id, kind_id, map_id, x, y, facing,
	        rot0, rot1, rot2, rot3,
	        respawn_secs, anim_progress, visual_state, art_variant,
	        difficulties, phase_id, pool_id, compat_mode`

func scanSpawn(row pgx.Row) (*world.SpawnRecord, error) {
	var rec world.SpawnRecord
	var animProgress, artVariant int16
	var visualState int32
	if err := row.Scan(
		&rec.SpawnID, &rec.KindID, &rec.MapID, &rec.X, &rec.Y, &rec.Facing,
		&rec.Rotation[0], &rec.Rotation[1], &rec.Rotation[2], &rec.Rotation[3],
		&rec.RespawnSecs, &animProgress, &visualState, &artVariant,
		&rec.Difficulties, &rec.PhaseID, &rec.PoolID, &rec.CompatibilityMode,
	); err != nil {
		return nil, err
	}
	rec.AnimProgress = uint8(animProgress)
	rec.ArtVariant = uint8(artVariant)
	rec.VisualState = world.VisualState(visualState)
	return &rec, nil
}

func (r *SpawnRepo) LoadSpawnRecords(ctx context.Context, mapID int32) ([]*world.SpawnRecord, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+spawnColumns+`
		 FROM object_spawns
		 WHERE map_id = $1
		 ORDER BY spawn_id`, mapID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*world.SpawnRecord
	for rows.Next() {
		rec, err := scanSpawn(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *SpawnRepo) LoadSpawnRecord(ctx context.Context, spawnID int64) (*world.SpawnRecord, error) {
	rec, err := scanSpawn(r.db.Pool.QueryRow(ctx,
		`SELECT `+spawnColumns+`
		 FROM object_spawns
		 WHERE spawn_id = $1`, spawnID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("spawn %d not found", spawnID)
	}
	return rec, err
}

// SaveSpawnRecord replaces the row wholesale: delete then insert in one
// transaction, so partial column drift can never survive a save.
func (r *SpawnRepo) SaveSpawnRecord(ctx context.Context, rec *world.SpawnRecord) error {
	return r.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM object_spawns WHERE spawn_id = $1`, rec.SpawnID,
		); err != nil {
			return fmt.Errorf("save spawn delete: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO object_spawns (
				spawn_id, kind_id, map_id, x, y, facing,
				rot0, rot1, rot2, rot3,
				respawn_secs, anim_progress, visual_state, art_variant,
				difficulties, phase_id, pool_id, compat_mode
			) VALUES (
				$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,
				$11,$12,$13,$14,$15,$16,$17,$18
			)`,
			rec.SpawnID, rec.KindID, rec.MapID, rec.X, rec.Y, rec.Facing,
			rec.Rotation[0], rec.Rotation[1], rec.Rotation[2], rec.Rotation[3],
			rec.RespawnSecs, int16(rec.AnimProgress), int32(rec.VisualState), int16(rec.ArtVariant),
			rec.Difficulties, rec.PhaseID, rec.PoolID, rec.CompatibilityMode,
		); err != nil {
			return fmt.Errorf("save spawn insert: %w", err)
		}
		return nil
	})
}

// DeleteSpawnRecord removes the spawn row and any linked-respawn pairings
// that reference it from either side, atomically.
func (r *SpawnRepo) DeleteSpawnRecord(ctx context.Context, spawnID int64) error {
	return r.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM linked_respawns WHERE spawn_id = $1 OR master_spawn_id = $1`, spawnID,
		); err != nil {
			return fmt.Errorf("delete spawn links: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM object_spawns WHERE spawn_id = $1`, spawnID,
		); err != nil {
			return fmt.Errorf("delete spawn row: %w", err)
		}
		return nil
	})
}

func (r *SpawnRepo) LoadLinkedRespawns(ctx context.Context, mapID int32) (map[int64]int64, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT spawn_id, master_spawn_id FROM linked_respawns WHERE map_id = $1`, mapID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make(map[int64]int64)
	for rows.Next() {
		var slave, master int64
		if err := rows.Scan(&slave, &master); err != nil {
			return nil, err
		}
		links[slave] = master
	}
	return links, rows.Err()
}

// SetLinkedRespawn registers (or clears, with master 0) a respawn dependency.
func (r *SpawnRepo) SetLinkedRespawn(ctx context.Context, mapID int32, spawnID, masterSpawnID int64) error {
	if masterSpawnID == 0 {
		_, err := r.db.Pool.Exec(ctx,
			`DELETE FROM linked_respawns WHERE spawn_id = $1`, spawnID,
		)
		return err
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO linked_respawns (spawn_id, master_spawn_id, map_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (spawn_id) DO UPDATE SET master_spawn_id = $2, map_id = $3`,
		spawnID, masterSpawnID, mapID,
	)
	return err
}
