package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kubeclash/clash-server-go/internal/game"
	"github.com/kubeclash/clash-server-go/internal/game/catalog"
	"github.com/kubeclash/clash-server-go/internal/game/chaos"
	"github.com/kubeclash/clash-server-go/internal/game/counters"
	"github.com/kubeclash/clash-server-go/internal/game/rules"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return cat
}

func hand(t *testing.T, cat *catalog.Catalog, ids ...string) []game.CardView {
	t.Helper()
	out := make([]game.CardView, 0, len(ids))
	for i, id := range ids {
		c, ok := cat.Get(id)
		require.True(t, ok, id)
		out = append(out, game.CardView{
			InstanceID: id + "#" + string(rune('a'+i)),
			CardID:     c.ID,
			Name:       c.Name,
			Type:       c.Type,
			Cost:       c.Cost,
		})
	}
	return out
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindBalanced, k)

	k, err = ParseKind(" Saboteur ")
	require.NoError(t, err)
	assert.Equal(t, KindSaboteur, k)

	_, err = ParseKind("turtle")
	assert.Error(t, err)
}

func TestResponsePrefersCancel(t *testing.T) {
	cat := testCatalog(t)
	b := New("p2", KindBalanced, cat)
	view := game.PlayerView{
		PublicView: game.PublicView{
			MatchID:        "m",
			Status:         game.StatusActive,
			Phase:          game.PhaseSnapshot{ActivePlayer: "p1", Gate: rules.GateInterrupt.String()},
			Players:        []game.BoardView{{PlayerID: "p1"}, {PlayerID: "p2", Resources: 2}},
			Window:         &rules.InterruptWindow{ID: "m-w1", AttackerID: "p1", TargetID: "p2"},
			AllowedActions: []rules.ActionType{rules.ActionPlayResponse, rules.ActionPass, rules.ActionWindowTimeout},
		},
		ViewerID: "p2",
		Hand:     hand(t, cat, "on_call_engineer", "circuit_breaker", "rollback"),
	}

	a, ok := b.Next(view)
	require.True(t, ok)
	assert.Equal(t, rules.ActionPlayResponse, a.Type)
	assert.Equal(t, view.Hand[2].InstanceID, a.Payload.CardID, "cheapest cancelling response")

	view.Players[1].Resources = 0
	a, ok = b.Next(view)
	require.True(t, ok)
	assert.Equal(t, view.Hand[0].InstanceID, a.Payload.CardID, "free response when nothing cancels")

	view.Hand = nil
	a, ok = b.Next(view)
	require.True(t, ok)
	assert.Equal(t, rules.ActionPass, a.Type)

	view.Window.TargetID = "p3"
	_, ok = b.Next(view)
	assert.False(t, ok, "not our window")
}

func TestAttackTargetSelection(t *testing.T) {
	cat := testCatalog(t)
	view := game.PlayerView{
		PublicView: game.PublicView{
			MatchID: "m",
			Status:  game.StatusActive,
			Phase:   game.PhaseSnapshot{ActivePlayer: "p1", Phase: rules.PhaseSabotage, Gate: rules.GatePhase.String()},
			Players: []game.BoardView{
				{PlayerID: "p1", Seat: 0, Resources: 5, Resilience: 6},
				{PlayerID: "p2", Seat: 1, SLO: 6, Resilience: 6},
				{PlayerID: "p3", Seat: 2, SLO: 2, Resilience: 1, Incidents: []counters.Incident{{ID: "p3-inc-1", Damage: 1}}},
				{PlayerID: "p4", Seat: 3, SLO: 9, Resilience: 6, Eliminated: true},
			},
			AllowedActions: []rules.ActionType{rules.ActionPlayAttack, rules.ActionPass},
		},
		ViewerID: "p1",
		Hand:     hand(t, cat, "budget_freeze"),
	}

	a, ok := New("p1", KindSaboteur, cat).Next(view)
	require.True(t, ok)
	assert.Equal(t, rules.ActionPlayAttack, a.Type)
	assert.Equal(t, "p2", a.Payload.TargetID, "highest SLO among live opponents")

	a, ok = New("p1", KindBuilder, cat).Next(view)
	require.True(t, ok)
	assert.Equal(t, rules.ActionPass, a.Type, "builders only attack to finish")

	view.Hand = hand(t, cat, "zombie_pod_swarm")
	a, ok = New("p1", KindBuilder, cat).Next(view)
	require.True(t, ok)
	assert.Equal(t, rules.ActionPlayAttack, a.Type)
	assert.Equal(t, "p3", a.Payload.TargetID, "knockout beats SLO")
}

func TestDeployRespectsPrerequisites(t *testing.T) {
	cat := testCatalog(t)
	view := game.PlayerView{
		PublicView: game.PublicView{
			MatchID:        "m",
			Status:         game.StatusActive,
			Phase:          game.PhaseSnapshot{ActivePlayer: "p1", Phase: rules.PhaseDeploy, Gate: rules.GatePhase.String()},
			Players:        []game.BoardView{{PlayerID: "p1", Resources: 10}},
			AllowedActions: []rules.ActionType{rules.ActionPlayCard, rules.ActionBuyCard, rules.ActionPass},
		},
		ViewerID: "p1",
		Hand:     hand(t, cat, "batch_job", "rollback", "worker_node"),
	}

	a, ok := New("p1", KindBuilder, cat).Next(view)
	require.True(t, ok)
	assert.Equal(t, rules.ActionPlayCard, a.Type)
	assert.Equal(t, view.Hand[2].InstanceID, a.Payload.CardID, "workload cannot be hosted yet")
}

// drive plays a match to completion with strategies only; every action they
// pick must be accepted.
func drive(t *testing.T, m *game.Match, strategies map[string]game.Strategy, steps int) {
	t.Helper()
	for i := 0; i < steps && !m.Status().Terminal(); i++ {
		var actor string
		switch m.Gate() {
		case rules.GateChaosReveal:
			actor = game.ChaosActorID
		case rules.GateInterrupt:
			actor = m.Window().TargetID
		default:
			actor = m.ActivePlayer()
		}
		s := strategies[actor]
		require.NotNil(t, s, "no strategy for %s", actor)
		a, ok := s.Next(m.ViewFor(actor))
		require.True(t, ok, "%s had nothing to do in %s", actor, m.Phase())
		_, err := m.Apply(a)
		require.NoError(t, err, "%s", a)
		require.Equal(t, m.TotalCards(), m.Count().Total())
	}
}

func TestBotsPlayCompetitiveMatch(t *testing.T) {
	cat := testCatalog(t)
	for _, seed := range []uint64{1, 2, 3} {
		m, _, err := game.NewMatch("", []game.Participant{{PlayerID: "a"}, {PlayerID: "b"}, {PlayerID: "c"}}, game.Options{
			Mode:    game.ModeCompetitive,
			Seed:    seed,
			Catalog: cat,
			Logger:  zaptest.NewLogger(t),
		})
		require.NoError(t, err)
		strategies := map[string]game.Strategy{
			"a": New("a", KindBuilder, cat),
			"b": New("b", KindSaboteur, cat),
			"c": New("c", KindBalanced, cat),
		}
		drive(t, m, strategies, 2000)
		assert.True(t, m.Status().Terminal() || m.Round() > 5, "seed %d stalled", seed)
	}
}

func TestBotsPlayCoopMatch(t *testing.T) {
	cat := testCatalog(t)
	m, _, err := game.NewMatch("", []game.Participant{{PlayerID: "a"}, {PlayerID: "b"}}, game.Options{
		Mode:    game.ModeCoop,
		Seed:    11,
		Catalog: cat,
		Logger:  zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	strategies := map[string]game.Strategy{
		"a":               New("a", KindBalanced, cat),
		"b":               New("b", KindBuilder, cat),
		game.ChaosActorID: chaos.New(),
	}
	drive(t, m, strategies, 2000)
	assert.True(t, m.Status().Terminal() || m.Round() > 5)
}
