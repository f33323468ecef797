// Package chaos implements the automated opponent of solo and co-op
// matches. The strategy only asks for the reveal; the engine decides what
// the revealed card does.
package chaos

import (
	"github.com/kubeclash/clash-server-go/internal/game"
	"github.com/kubeclash/clash-server-go/internal/game/rules"
)

// Monkey emits chaos_reveal whenever a match is waiting on it.
type Monkey struct{}

// New returns the Chaos Monkey strategy.
func New() *Monkey {
	return &Monkey{}
}

// ActorID implements game.Strategy.
func (*Monkey) ActorID() string {
	return game.ChaosActorID
}

// Next implements game.Strategy.
func (*Monkey) Next(view game.PlayerView) (game.Action, bool) {
	if view.Status.Terminal() || !view.ChaosPending || !view.Mode.Automated() {
		return game.Action{}, false
	}
	return game.Action{
		MatchID: view.MatchID,
		ActorID: game.ChaosActorID,
		Type:    rules.ActionChaosReveal,
	}, true
}
