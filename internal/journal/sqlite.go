package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore writes turn logs to a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens path and ensures the turn_logs table exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create turn_logs: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Append inserts entries in one transaction. Replayed entries are ignored.
func (s *SQLiteStore) Append(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO turn_logs
		(match_id, seq, round, actor_id, action_type, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.MatchID, e.Seq, e.Round, e.ActorID, e.ActionType,
			payloadText(e.Payload), e.CreatedAt.UTC().UnixMilli()); err != nil {
			return fmt.Errorf("insert %s/%d: %w", e.MatchID, e.Seq, err)
		}
	}
	return tx.Commit()
}

// List returns a match's entries in seq order.
func (s *SQLiteStore) List(ctx context.Context, matchID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT match_id, seq, round, actor_id, action_type, payload, created_at
		FROM turn_logs WHERE match_id = ? ORDER BY seq`, matchID)
	if err != nil {
		return nil, fmt.Errorf("query turn logs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			payload string
			millis  int64
		)
		if err := rows.Scan(&e.MatchID, &e.Seq, &e.Round, &e.ActorID, &e.ActionType, &payload, &millis); err != nil {
			return nil, fmt.Errorf("scan turn log: %w", err)
		}
		e.Payload = []byte(payload)
		e.CreatedAt = time.UnixMilli(millis).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
