// internal/database/actions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/daifugo/internal/cache"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id         UUID PRIMARY KEY,
	status     TEXT NOT NULL,
	start_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS game_actions (
	game_id        UUID NOT NULL REFERENCES games(id),
	action_index   INT NOT NULL,
	actor_id       UUID NOT NULL,
	action_type    TEXT NOT NULL,
	action_payload JSONB NOT NULL,
	action_time    BIGINT NOT NULL,
	PRIMARY KEY (game_id, action_index)
);
`

// Game status values stored in games.status.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusAbandoned  = "abandoned"
)

// finalStatus maps the actions that end a game to the status they leave it in.
var finalStatus = map[string]string{
	"game_stop":   StatusCompleted,
	"game_cancel": StatusCancelled,
}

// ActionStore writes game action history to Postgres.
type ActionStore struct {
	Pool *pgxpool.Pool
}

// NewActionStore wraps an open pool.
func NewActionStore(pool *pgxpool.Pool) *ActionStore {
	return &ActionStore{Pool: pool}
}

// EnsureSchema creates the history tables if they do not exist.
func (s *ActionStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveActions inserts a batch of records in a single transaction.
func (s *ActionStore) SaveActions(ctx context.Context, records []cache.GameActionRecord) error {
	err := pgx.BeginTxFunc(ctx, s.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertGameActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertGameActionTx: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx save actions: %w", err)
	}
	return nil
}

// MarkAbandoned flags a game that is still in progress as abandoned.
func (s *ActionStore) MarkAbandoned(ctx context.Context, gameID uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, s.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE games
			SET status = $2, end_time = NOW()
			WHERE id = $1 AND status = $3
		`
		_, err := tx.Exec(ctx, q, gameID, StatusAbandoned, StatusInProgress)
		return err
	})
}

// insertGameActionTx inserts a single action record and upserts its game row.
// Actions that end a game also finalize the row.
func insertGameActionTx(ctx context.Context, tx pgx.Tx, rec cache.GameActionRecord) error {
	upsertGameQ := `
		INSERT INTO games (id, status, start_time)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID, StatusInProgress); err != nil {
		return err
	}

	jsonPayload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO game_actions (
			game_id, action_index, actor_id, action_type, action_payload, action_time
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id, action_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, actionInsertQ,
		rec.GameID, rec.ActionIndex, rec.ActorID, rec.ActionType, jsonPayload, rec.Timestamp,
	)
	if err != nil {
		return err
	}

	if status, ok := finalStatus[rec.ActionType]; ok {
		finalizeQ := `
			UPDATE games
			SET status = $2, end_time = NOW()
			WHERE id = $1 AND status = $3
		`
		if _, err := tx.Exec(ctx, finalizeQ, rec.GameID, status, StatusInProgress); err != nil {
			return err
		}
	}
	return nil
}
