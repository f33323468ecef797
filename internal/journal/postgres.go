package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore writes turn logs through a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects, pings and ensures the turn_logs table exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create turn_logs: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Append inserts entries in one transaction. Replayed entries are ignored.
func (s *PostgresStore) Append(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`INSERT INTO turn_logs (match_id, seq, round, actor_id, action_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
			ON CONFLICT (match_id, seq) DO NOTHING`,
			e.MatchID, e.Seq, e.Round, e.ActorID, e.ActionType, payloadText(e.Payload), e.CreatedAt.UTC())
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert turn logs: %w", err)
	}
	return tx.Commit(ctx)
}

// List returns a match's entries in seq order.
func (s *PostgresStore) List(ctx context.Context, matchID string) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `SELECT match_id, seq, round, actor_id, action_type, payload::text, created_at
		FROM turn_logs WHERE match_id = $1 ORDER BY seq`, matchID)
	if err != nil {
		return nil, fmt.Errorf("query turn logs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			payload string
		)
		if err := rows.Scan(&e.MatchID, &e.Seq, &e.Round, &e.ActorID, &e.ActionType, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn log: %w", err)
		}
		e.Payload = []byte(payload)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
