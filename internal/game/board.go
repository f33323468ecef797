package game

import (
	"github.com/kubeclash/clash-server-go/internal/game/catalog"
	"github.com/kubeclash/clash-server-go/internal/game/counters"
)

// CardInstance is one physical copy of a catalog card within a match.
type CardInstance struct {
	ID   string
	Card *catalog.Card
}

// PlayerBoard is one player's mutable state.
type PlayerBoard struct {
	PlayerID    string
	DisplayName string
	Seat        int

	Infrastructure []*CardInstance
	Workloads      []*CardInstance
	Extensions     []*CardInstance
	Hand           []*CardInstance

	Resources  int
	Resilience int
	SLO        int
	Incidents  *counters.Ledger
	Eliminated bool
	Left       bool
}

func newPlayerBoard(p Participant, seat int) *PlayerBoard {
	return &PlayerBoard{
		PlayerID:    p.PlayerID,
		DisplayName: p.DisplayName,
		Seat:        seat,
		Resources:   StartingResources,
		Resilience:  BaseResilience,
		Incidents:   counters.NewLedger(p.PlayerID),
	}
}

// Counts returns how many cards of each type the player has in play.
func (b *PlayerBoard) Counts() map[catalog.CardType]int {
	counts := make(map[catalog.CardType]int)
	for _, ci := range b.Played() {
		counts[ci.Card.Type]++
	}
	return counts
}

// ResilienceMax is the base resilience plus two per Node in play.
func (b *PlayerBoard) ResilienceMax() int {
	return BaseResilience + ResiliencePerNode*b.Counts()[catalog.TypeNode]
}

// Played returns every card in play across all zones.
func (b *PlayerBoard) Played() []*CardInstance {
	out := make([]*CardInstance, 0, b.PlayedCount())
	out = append(out, b.Infrastructure...)
	out = append(out, b.Workloads...)
	out = append(out, b.Extensions...)
	return out
}

// PlayedCount is the number of cards in play.
func (b *PlayerBoard) PlayedCount() int {
	return len(b.Infrastructure) + len(b.Workloads) + len(b.Extensions)
}

// PlayedCard finds a card in play by instance id.
func (b *PlayerBoard) PlayedCard(id string) *CardInstance {
	for _, ci := range b.Played() {
		if ci.ID == id {
			return ci
		}
	}
	return nil
}

// HandCard finds a card in hand by instance id and returns its index.
func (b *PlayerBoard) HandCard(id string) (*CardInstance, int) {
	for i, ci := range b.Hand {
		if ci.ID == id {
			return ci, i
		}
	}
	return nil, -1
}

func (b *PlayerBoard) takeFromHand(idx int) *CardInstance {
	ci := b.Hand[idx]
	b.Hand = append(b.Hand[:idx], b.Hand[idx+1:]...)
	return ci
}

func (b *PlayerBoard) place(ci *CardInstance) {
	switch {
	case ci.Card.Type.IsInfrastructure():
		b.Infrastructure = append(b.Infrastructure, ci)
	case ci.Card.Type == catalog.TypeWorkload:
		b.Workloads = append(b.Workloads, ci)
	default:
		b.Extensions = append(b.Extensions, ci)
	}
}

// retire empties every zone and returns the cards that were in play.
func (b *PlayerBoard) retire() (hand, played []*CardInstance) {
	hand, played = b.Hand, b.Played()
	b.Hand = nil
	b.Infrastructure = nil
	b.Workloads = nil
	b.Extensions = nil
	b.Incidents.Clear()
	return hand, played
}

// CanHostWorkloads reports the universal Workload gate: at least one
// ControlPlane and two Nodes in play.
func CanHostWorkloads(counts map[catalog.CardType]int) bool {
	return counts[catalog.TypeControlPlane] >= 1 && counts[catalog.TypeNode] >= 2
}

// CheckPrerequisites validates the capability gates for deploying card
// given the per-type counts of the player's cards in play.
func CheckPrerequisites(card *catalog.Card, counts map[catalog.CardType]int) error {
	if card.Type == catalog.TypeWorkload && !CanHostWorkloads(counts) {
		return reject(CodePrerequisiteUnmet, "%s needs a ControlPlane and two Nodes in play", card.Name)
	}
	if !card.Prerequisite.Satisfied(counts) {
		return reject(CodePrerequisiteUnmet, "%s: %s", card.Name, card.Prerequisite)
	}
	return nil
}
