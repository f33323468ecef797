package chaos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kubeclash/clash-server-go/internal/game"
	"github.com/kubeclash/clash-server-go/internal/game/rules"
)

func TestMonkeyOnlyActsWhenPending(t *testing.T) {
	m, _, err := game.NewMatch("solo-1", []game.Participant{{PlayerID: "p1"}}, game.Options{
		Mode:   game.ModeSolo,
		Seed:   3,
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	monkey := New()
	assert.Equal(t, game.ChaosActorID, monkey.ActorID())

	_, ok := monkey.Next(m.ViewFor(monkey.ActorID()))
	assert.False(t, ok)

	for i := 0; !m.ChaosPending(); i++ {
		require.Less(t, i, 16)
		_, err := m.Apply(game.Action{ActorID: "p1", Type: rules.ActionPass})
		require.NoError(t, err)
	}

	a, ok := monkey.Next(m.ViewFor(monkey.ActorID()))
	require.True(t, ok)
	assert.Equal(t, rules.ActionChaosReveal, a.Type)
	assert.Equal(t, "solo-1", a.MatchID)

	_, err = m.Apply(a)
	require.NoError(t, err)
	assert.False(t, m.ChaosPending())
}

func TestMonkeyIgnoresCompetitiveMatches(t *testing.T) {
	view := game.PlayerView{PublicView: game.PublicView{
		Mode:         game.ModeCompetitive,
		Status:       game.StatusActive,
		ChaosPending: true,
	}}
	_, ok := New().Next(view)
	assert.False(t, ok)
}
