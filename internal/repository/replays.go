// Package repository persists replay logs in PostgreSQL.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/game"
)

const schema = `
CREATE TABLE IF NOT EXISTS replays (
	match_id       TEXT PRIMARY KEY,
	scenario       TEXT NOT NULL,
	seed           BIGINT NOT NULL,
	initial_hash   TEXT NOT NULL,
	final_hash     TEXT NOT NULL,
	ticks          INTEGER NOT NULL,
	commands       JSONB NOT NULL,
	format_version INTEGER NOT NULL,
	recorded_at    TIMESTAMPTZ NOT NULL
)`

// ReplayRepository is a game.ReplayStore backed by a pgx pool.
type ReplayRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ game.ReplayStore = (*ReplayRepository)(nil)

// Connect opens a pool for dsn, checks it and makes sure the replays table
// exists.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*ReplayRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &ReplayRepository{pool: pool, logger: logger}
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

// Close releases the pool.
func (r *ReplayRepository) Close() {
	r.pool.Close()
}

// EnsureSchema creates the replays table if needed.
func (r *ReplayRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create replays table: %w", err)
	}
	return nil
}

// SaveReplay upserts log by match id.
func (r *ReplayRepository) SaveReplay(ctx context.Context, log *game.ReplayLog) error {
	if log == nil || log.MatchID == "" {
		return errors.New("replay log has no match id")
	}
	commands, err := encodeCommands(log.Commands)
	if err != nil {
		return err
	}
	recordedAt := log.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO replays (match_id, scenario, seed, initial_hash, final_hash, ticks, commands, format_version, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (match_id) DO UPDATE SET
			scenario = EXCLUDED.scenario,
			seed = EXCLUDED.seed,
			initial_hash = EXCLUDED.initial_hash,
			final_hash = EXCLUDED.final_hash,
			ticks = EXCLUDED.ticks,
			commands = EXCLUDED.commands,
			format_version = EXCLUDED.format_version,
			recorded_at = EXCLUDED.recorded_at`,
		log.MatchID, log.Scenario, int64(log.Seed), log.InitialHash, log.FinalHash,
		log.Ticks, commands, game.ReplayFormatVersion, recordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save replay %s: %w", log.MatchID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit replay %s: %w", log.MatchID, err)
	}

	r.logger.Debug("replay saved",
		zap.String("match_id", log.MatchID),
		zap.Int("commands", len(log.Commands)),
	)
	return nil
}

// LoadReplay fetches a stored log; unknown ids wrap game.ErrReplayNotFound.
func (r *ReplayRepository) LoadReplay(ctx context.Context, matchID string) (*game.ReplayLog, error) {
	var (
		log      game.ReplayLog
		seed     int64
		commands []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT match_id, scenario, seed, initial_hash, final_hash, ticks, commands, format_version, recorded_at
		FROM replays WHERE match_id = $1`, matchID,
	).Scan(&log.MatchID, &log.Scenario, &seed, &log.InitialHash, &log.FinalHash,
		&log.Ticks, &commands, &log.FormatVersion, &log.RecordedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", game.ErrReplayNotFound, matchID)
		}
		return nil, fmt.Errorf("failed to load replay %s: %w", matchID, err)
	}
	if log.FormatVersion != game.ReplayFormatVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", log.FormatVersion)
	}

	log.Seed = uint64(seed)
	if log.Commands, err = decodeCommands(commands); err != nil {
		return nil, fmt.Errorf("replay %s: %w", matchID, err)
	}
	return &log, nil
}

// ListReplays returns the most recent match ids for scenario, newest first.
func (r *ReplayRepository) ListReplays(ctx context.Context, scenario string, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT match_id FROM replays
		WHERE scenario = $1
		ORDER BY recorded_at DESC, match_id
		LIMIT $2`, scenario, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list replays: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan replays: %w", err)
	}
	return ids, nil
}

func encodeCommands(cmds []game.CommandRecord) ([]byte, error) {
	if cmds == nil {
		cmds = []game.CommandRecord{}
	}
	data, err := json.Marshal(cmds)
	if err != nil {
		return nil, fmt.Errorf("failed to encode commands: %w", err)
	}
	return data, nil
}

func decodeCommands(data []byte) ([]game.CommandRecord, error) {
	var cmds []game.CommandRecord
	if err := json.Unmarshal(data, &cmds); err != nil {
		return nil, fmt.Errorf("failed to decode commands: %w", err)
	}
	for i, rec := range cmds {
		if _, err := rec.Command(); err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
	}
	return cmds, nil
}
