package quota

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a single quota_states table. The
// conditional update is a plain versioned UPDATE, so row-level atomicity in
// Postgres gives the CAS semantics without explicit locking.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("quota: pgx pool is required")
	}
	return &PostgresStore{pool: pool}
}

const createQuotaStatesTable = `
CREATE TABLE IF NOT EXISTS quota_states (
	user_id          TEXT PRIMARY KEY,
	daily_count      INTEGER NOT NULL DEFAULT 0,
	monthly_count    INTEGER NOT NULL DEFAULT 0,
	daily_reset_at   TIMESTAMPTZ NOT NULL,
	monthly_reset_at TIMESTAMPTZ NOT NULL,
	version          BIGINT NOT NULL DEFAULT 1
)`

// InitSchema creates the backing table if it does not exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createQuotaStatesTable); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (State, error) {
	var state State
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, daily_count, monthly_count, daily_reset_at, monthly_reset_at, version
		 FROM quota_states WHERE user_id = $1`, userID,
	).Scan(&state.UserID, &state.DailyCount, &state.MonthlyCount,
		&state.DailyResetAt, &state.MonthlyResetAt, &state.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return State{}, ErrStateNotFound
		}
		return State{}, errors.Join(ErrStoreUnavailable, err)
	}
	return state, nil
}

func (s *PostgresStore) Save(ctx context.Context, state State) error {
	if state.Version == 0 {
		// First write for this user. ON CONFLICT DO NOTHING turns a racing
		// creation into a version conflict the ledger retries.
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO quota_states (user_id, daily_count, monthly_count, daily_reset_at, monthly_reset_at, version)
			 VALUES ($1, $2, $3, $4, $5, 1)
			 ON CONFLICT (user_id) DO NOTHING`,
			state.UserID, state.DailyCount, state.MonthlyCount,
			state.DailyResetAt, state.MonthlyResetAt)
		if err != nil {
			return errors.Join(ErrStoreUnavailable, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrVersionConflict
		}
		return nil
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE quota_states
		 SET daily_count = $2, monthly_count = $3, daily_reset_at = $4, monthly_reset_at = $5, version = version + 1
		 WHERE user_id = $1 AND version = $6`,
		state.UserID, state.DailyCount, state.MonthlyCount,
		state.DailyResetAt, state.MonthlyResetAt, state.Version)
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}
