package match

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kubeclash/clash-server-go/internal/game"
	"github.com/kubeclash/clash-server-go/internal/game/rules"
	"github.com/kubeclash/clash-server-go/internal/journal"
)

// Replay rebuilds a match from its turn log.
func Replay(ctx context.Context, store journal.Store, matchID string, opts game.Options) (*game.Match, error) {
	entries, err := store.List(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("list turn log: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrMatchNotFound
	}
	return ReplayEntries(entries, opts)
}

// ReplayEntries rebuilds a match from turn log entries ordered by seq. The
// first entry must be the start entry carrying the match setup, and seq
// numbers must have no gaps.
func ReplayEntries(entries []journal.Entry, opts game.Options) (*game.Match, error) {
	if len(entries) == 0 || entries[0].ActionType != string(game.StepStart) {
		return nil, fmt.Errorf("turn log does not begin with a start entry")
	}
	var setup game.Setup
	if err := json.Unmarshal(entries[0].Payload, &setup); err != nil {
		return nil, fmt.Errorf("decode match setup: %w", err)
	}

	steps := make([]game.Action, 0, len(entries)-1)
	prev := entries[0].Seq
	for _, e := range entries[1:] {
		if e.Seq != prev+1 {
			return nil, fmt.Errorf("turn log of %s has a gap after seq %d", e.MatchID, prev)
		}
		prev = e.Seq

		var payload game.Payload
		if len(e.Payload) > 0 {
			if err := json.Unmarshal(e.Payload, &payload); err != nil {
				return nil, fmt.Errorf("decode payload at seq %d: %w", e.Seq, err)
			}
		}
		steps = append(steps, game.Action{
			MatchID: e.MatchID,
			ActorID: e.ActorID,
			Type:    rules.ActionType(e.ActionType),
			Payload: payload,
		})
	}
	return game.Replay(setup, steps, opts)
}
