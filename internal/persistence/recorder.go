// File: internal/persistence/recorder.go
// Project: Starwake battle core
// Description: Host-side recording of tick and summary results to Postgres
// Version: 1.0.0
// Author: Joshua Ferguson
// Created: 2025-01-07

package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/kaspar-vey/starwake/internal/battle"
	"github.com/kaspar-vey/starwake/internal/errors"
	"github.com/kaspar-vey/starwake/internal/metrics"
)

// Recorder writes battle.TickResult and battle.BattleSummary values to
// Postgres. It lives outside the battle package entirely: the simulator
// never imports persistence, and knows nothing about how — or whether —
// its results are recorded.
type Recorder struct {
	db *DB
}

// NewRecorder wraps db for battle recording.
func NewRecorder(db *DB) *Recorder {
	return &Recorder{db: db}
}

// Migrate applies the battle-recording schema.
func (r *Recorder) Migrate(ctx context.Context, migrationsPath string) error {
	return r.db.RunMigrations(ctx, migrationsPath)
}

// BeginBattle inserts the row marking a battle's start.
func (r *Recorder) BeginBattle(ctx context.Context, battleID uuid.UUID) error {
	op := func() error {
		_, err := r.db.ExecContext(ctx, `INSERT INTO battles (id) VALUES ($1) ON CONFLICT DO NOTHING`, battleID)
		return err
	}
	if err := errors.Retry(ctx, op, errors.DefaultRetryConfig(), errors.IsTransientError); err != nil {
		metrics.Global().IncrementRecorderErrors()
		return fmt.Errorf("begin battle %s: %w", battleID, err)
	}
	return nil
}

// RecordTick persists a single tick's result within one transaction, so a
// tick row and its weapon-fire rows never appear half-written to a reader.
func (r *Recorder) RecordTick(ctx context.Context, battleID uuid.UUID, result battle.TickResult) error {
	op := func() error {
		return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO battle_ticks (battle_id, tick, moved_count, damaged_count, destroyed_count, shots_fired)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (battle_id, tick) DO NOTHING`,
				battleID, result.Tick, len(result.Moved), len(result.Damaged), len(result.Destroyed), len(result.WeaponsFired))
			if err != nil {
				return fmt.Errorf("insert battle_ticks: %w", err)
			}

			for _, fire := range result.WeaponsFired {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO battle_weapon_fires (battle_id, tick, attacker_id, target_id, weapon_type, impact_time_ms)
					VALUES ($1, $2, $3, $4, $5, $6)`,
					battleID, result.Tick, fire.AttackerID, fire.TargetID, fire.WeaponType, fire.ImpactTimeMs)
				if err != nil {
					return fmt.Errorf("insert battle_weapon_fires: %w", err)
				}
			}

			for _, destroyedID := range result.Destroyed {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO battle_destructions (battle_id, tick, unit_id) VALUES ($1, $2, $3)`,
					battleID, result.Tick, destroyedID)
				if err != nil {
					return fmt.Errorf("insert battle_destructions: %w", err)
				}
			}

			return nil
		})
	}

	if err := errors.Retry(ctx, op, errors.DefaultRetryConfig(), errors.IsTransientError); err != nil {
		metrics.Global().IncrementRecorderErrors()
		return fmt.Errorf("record tick %d for battle %s: %w", result.Tick, battleID, err)
	}
	metrics.Global().IncrementRecorderWrites()
	return nil
}

// RecordSummary persists the terminal rollup of a finished battle and
// marks the battle's ended_at timestamp.
func (r *Recorder) RecordSummary(ctx context.Context, summary battle.BattleSummary) error {
	tallies, err := json.Marshal(summary.FactionTallies)
	if err != nil {
		return fmt.Errorf("marshal faction tallies: %w", err)
	}

	op := func() error {
		return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO battle_summaries (battle_id, ended_at_tick, winner_faction, stalemated_at, faction_tallies)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (battle_id) DO UPDATE SET
					ended_at_tick = EXCLUDED.ended_at_tick,
					winner_faction = EXCLUDED.winner_faction,
					stalemated_at = EXCLUDED.stalemated_at,
					faction_tallies = EXCLUDED.faction_tallies`,
				summary.BattleID, summary.EndedAtTick, summary.Winner, summary.StalematedAt, tallies)
			if err != nil {
				return fmt.Errorf("insert battle_summaries: %w", err)
			}

			_, err = tx.ExecContext(ctx, `UPDATE battles SET ended_at = now() WHERE id = $1`, summary.BattleID)
			return err
		})
	}

	if err := errors.Retry(ctx, op, errors.DefaultRetryConfig(), errors.IsTransientError); err != nil {
		metrics.Global().IncrementRecorderErrors()
		return fmt.Errorf("record summary for battle %s: %w", summary.BattleID, err)
	}
	metrics.Global().IncrementRecorderWrites()
	return nil
}
