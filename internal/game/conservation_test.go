package game

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kubeclash/clash-server-go/internal/game/rules"
)

var randomActionTypes = []rules.ActionType{
	rules.ActionPlayCard,
	rules.ActionBuyCard,
	rules.ActionDiscardForResource,
	rules.ActionRemoveIncident,
	rules.ActionPayRepair,
	rules.ActionPlayAttack,
	rules.ActionPlayResponse,
	rules.ActionPass,
	rules.ActionChaosReveal,
	rules.ActionWindowTimeout,
	"tap_land",
}

// expectedActor is whoever the match is waiting on.
func expectedActor(m *Match) string {
	switch m.Gate() {
	case rules.GateChaosReveal:
		return ChaosActorID
	case rules.GateInterrupt:
		return m.Window().TargetID
	default:
		return m.ActivePlayer()
	}
}

func pick[T any](rng *rand.Rand, items []T, fallback T) T {
	if len(items) == 0 {
		return fallback
	}
	return items[rng.IntN(len(items))]
}

// randomAction builds an action that is often illegal: a random actor,
// type and payload drawn from whatever is on the table.
func randomAction(rng *rand.Rand, m *Match) Action {
	players := m.Players()
	actors := []string{expectedActor(m), ChaosActorID, SystemActorID, "ghost"}
	var cards, played, incidents, targets []string
	for _, b := range players {
		actors = append(actors, b.PlayerID)
		targets = append(targets, b.PlayerID)
		for _, ci := range b.Hand {
			cards = append(cards, ci.ID)
		}
		for _, ci := range b.Played() {
			played = append(played, ci.ID)
		}
		for _, inc := range b.Incidents.Incidents() {
			incidents = append(incidents, inc.ID)
		}
	}
	for _, ci := range m.Commons() {
		cards = append(cards, ci.ID)
	}

	a := Action{
		MatchID: m.ID(),
		ActorID: pick(rng, actors, ""),
		Type:    pick(rng, randomActionTypes, rules.ActionPass),
	}
	if rng.IntN(3) == 0 {
		// Favour the seat that can make progress.
		a.ActorID = expectedActor(m)
	}
	a.Payload.CardID = pick(rng, cards, "")
	if rng.IntN(2) == 0 {
		a.Payload.TargetID = pick(rng, targets, "")
	}
	if rng.IntN(4) == 0 {
		a.Payload.TargetCardID = pick(rng, played, "")
	}
	a.Payload.IncidentID = pick(rng, incidents, "")
	if w := m.Window(); w != nil && rng.IntN(2) == 0 {
		a.Payload.WindowID = w.ID
	}
	return a
}

func TestRandomPlayConservesCardsAndRejectsAtomically(t *testing.T) {
	setups := []struct {
		mode    Mode
		players int
	}{
		{ModeCompetitive, 2},
		{ModeCompetitive, 3},
		{ModeCompetitive, 4},
		{ModeSolo, 1},
		{ModeCoop, 2},
		{ModeCoop, 4},
	}

	for _, setup := range setups {
		for seed := uint64(1); seed <= 8; seed++ {
			t.Run(fmt.Sprintf("%s-%d-seed%d", setup.mode, setup.players, seed), func(t *testing.T) {
				participants := make([]Participant, 0, setup.players)
				for i := 1; i <= setup.players; i++ {
					participants = append(participants, Participant{PlayerID: fmt.Sprintf("p%d", i)})
				}
				m, _, err := NewMatch("random", participants, Options{Mode: setup.mode, Seed: seed})
				require.NoError(t, err)
				rng := rand.New(rand.NewPCG(seed, uint64(setup.players)))

				for step := 0; step < 600 && !m.Status().Terminal(); step++ {
					before := m.Checksum()
					var err error
					var a Action
					switch roll := rng.IntN(100); {
					case roll == 0:
						a = Action{ActorID: pick(rng, participants, Participant{}).PlayerID, Type: "leave"}
						_, err = m.Leave(a.ActorID)
					case roll < 30:
						a = Action{MatchID: m.ID(), ActorID: expectedActor(m), Type: rules.ActionPass}
						if m.Gate() == rules.GateChaosReveal {
							a.Type = rules.ActionChaosReveal
						}
						_, err = m.Apply(a)
					default:
						a = randomAction(rng, m)
						_, err = m.Apply(a)
					}

					if err != nil {
						_, ok := AsValidation(err)
						require.True(t, ok, "step %d %s faulted: %v", step, a, err)
						require.Equal(t, before, m.Checksum(), "step %d: rejected %s changed the match", step, a)
					}
					require.NotEqual(t, StatusFaulted, m.Status())
					c := m.Count()
					require.Equal(t, m.TotalCards(), c.Total(), "step %d after %s: %+v", step, a, c)
				}
			})
		}
	}
}
