// Package journal appends the actions each match applied to a turn log.
// The log is an outbound sink; matches never read it back.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Entry is one applied action.
type Entry struct {
	MatchID    string          `json:"match_id"`
	Seq        int64           `json:"seq"`
	Round      int             `json:"round"`
	ActorID    string          `json:"actor_id"`
	ActionType string          `json:"action_type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Store persists entries.
type Store interface {
	Append(ctx context.Context, entries ...Entry) error
	List(ctx context.Context, matchID string) ([]Entry, error)
	Close() error
}

const postgresSchema = `CREATE TABLE IF NOT EXISTS turn_logs (
	match_id    TEXT        NOT NULL,
	seq         BIGINT      NOT NULL,
	round       INTEGER     NOT NULL,
	actor_id    TEXT        NOT NULL,
	action_type TEXT        NOT NULL,
	payload     JSONB       NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (match_id, seq)
)`

// created_at is unix milliseconds.
const sqliteSchema = `CREATE TABLE IF NOT EXISTS turn_logs (
	match_id    TEXT    NOT NULL,
	seq         INTEGER NOT NULL,
	round       INTEGER NOT NULL,
	actor_id    TEXT    NOT NULL,
	action_type TEXT    NOT NULL,
	payload     TEXT    NOT NULL,
	created_at  INTEGER NOT NULL,
	PRIMARY KEY (match_id, seq)
)`

// Open selects a store by driver name: postgres, sqlite, or none/empty.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "none":
		return NopStore{}, nil
	case "postgres":
		return OpenPostgres(ctx, dsn)
	case "sqlite":
		return OpenSQLite(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown journal driver %q", driver)
	}
}

// NopStore discards everything.
type NopStore struct{}

func (NopStore) Append(context.Context, ...Entry) error          { return nil }
func (NopStore) List(context.Context, string) ([]Entry, error) { return nil, nil }
func (NopStore) Close() error                                    { return nil }

func payloadText(p json.RawMessage) string {
	if len(p) == 0 {
		return "{}"
	}
	return string(p)
}
