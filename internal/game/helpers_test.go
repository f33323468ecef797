package game

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kubeclash/clash-server-go/internal/game/rules"
)

const testSeed = 42

func newTestMatch(t *testing.T, mode Mode, players ...string) *Match {
	t.Helper()
	participants := make([]Participant, 0, len(players))
	for _, id := range players {
		participants = append(participants, Participant{PlayerID: id, DisplayName: id})
	}
	m, res, err := NewMatch("match-1", participants, Options{
		Mode:   mode,
		Seed:   testSeed,
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Events)
	return m
}

// relocate pulls an instance of catalogID out of the draw pile, discard
// pile, Commons Row or a hand, in that order, so tests can stage it
// elsewhere without breaking conservation.
func relocate(t *testing.T, m *Match, catalogID string) *CardInstance {
	t.Helper()
	take := func(cards []*CardInstance) ([]*CardInstance, *CardInstance) {
		for i, ci := range cards {
			if ci.Card.ID == catalogID {
				return append(cards[:i], cards[i+1:]...), ci
			}
		}
		return cards, nil
	}
	var ci *CardInstance
	if m.deck.draw, ci = take(m.deck.draw); ci != nil {
		return ci
	}
	if m.deck.discard, ci = take(m.deck.discard); ci != nil {
		return ci
	}
	if m.commons, ci = take(m.commons); ci != nil {
		return ci
	}
	for _, b := range m.players {
		if b.Hand, ci = take(b.Hand); ci != nil {
			return ci
		}
	}
	t.Fatalf("no free copy of %s", catalogID)
	return nil
}

func give(t *testing.T, m *Match, playerID, catalogID string) *CardInstance {
	t.Helper()
	ci := relocate(t, m, catalogID)
	b := m.Player(playerID)
	b.Hand = append(b.Hand, ci)
	return ci
}

func deploy(t *testing.T, m *Match, playerID, catalogID string) *CardInstance {
	t.Helper()
	ci := relocate(t, m, catalogID)
	m.Player(playerID).place(ci)
	return ci
}

func toTop(t *testing.T, m *Match, catalogID string) *CardInstance {
	t.Helper()
	ci := relocate(t, m, catalogID)
	m.deck.draw = append(m.deck.draw, ci)
	return ci
}

func act(t *testing.T, m *Match, actor string, typ rules.ActionType, payload Payload) Result {
	t.Helper()
	res, err := m.Apply(Action{MatchID: m.ID(), ActorID: actor, Type: typ, Payload: payload})
	require.NoError(t, err, "%s by %s", typ, actor)
	requireConserved(t, m)
	return res
}

func pass(t *testing.T, m *Match, actor string) Result {
	t.Helper()
	return act(t, m, actor, rules.ActionPass, Payload{})
}

func requireRejected(t *testing.T, m *Match, a Action, code ErrorCode) {
	t.Helper()
	before := m.Checksum()
	_, err := m.Apply(a)
	require.Error(t, err)
	verr, ok := AsValidation(err)
	require.True(t, ok, "expected a validation error, got %v", err)
	require.Equal(t, code, verr.Code, verr.Message)
	require.Equal(t, before, m.Checksum(), "rejected %s mutated the match", a.Type)
	require.Equal(t, StatusActive, m.Status())
}

func requireConserved(t *testing.T, m *Match) {
	t.Helper()
	c := m.Count()
	require.Equal(t, m.TotalCards(), c.Total(), "card count %+v", c)
}

// toPhase passes the active player forward until phase is reached.
func toPhase(t *testing.T, m *Match, phase rules.Phase) {
	t.Helper()
	actor := m.ActivePlayer()
	for i := 0; m.Phase() != phase; i++ {
		require.Less(t, i, 8, "never reached %s", phase)
		require.Equal(t, actor, m.ActivePlayer(), "turn passed before reaching %s", phase)
		pass(t, m, actor)
	}
}

func eventTypes(events []rules.Event) []rules.EventType {
	out := make([]rules.EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}
