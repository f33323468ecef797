package game

import (
	"fmt"

	"github.com/kubeclash/clash-server-go/internal/game/catalog"
	"github.com/kubeclash/clash-server-go/internal/game/rules"
)

// CardCount tallies every zone a card instance can occupy.
type CardCount struct {
	Deck     int `json:"deck"`
	Discard  int `json:"discard"`
	Hands    int `json:"hands"`
	Played   int `json:"played"`
	Commons  int `json:"commons"`
	Retired  int `json:"retired"`
	InFlight int `json:"in_flight"`
}

// Total sums every zone.
func (c CardCount) Total() int {
	return c.Deck + c.Discard + c.Hands + c.Played + c.Commons + c.Retired + c.InFlight
}

// Count tallies the current location of every card instance.
func (m *Match) Count() CardCount {
	c := CardCount{
		Deck:    m.deck.Len(),
		Discard: m.deck.DiscardLen(),
		Commons: len(m.commons),
		Retired: len(m.retired),
	}
	for _, b := range m.players {
		c.Hands += len(b.Hand)
		c.Played += b.PlayedCount()
	}
	if m.inFlight != nil {
		c.InFlight = 1
	}
	return c
}

// checkInvariants verifies the state after every applied action.
func (m *Match) checkInvariants() error {
	if c := m.Count(); c.Total() != m.totalCards {
		return &InvariantViolation{
			Invariant: "card_conservation",
			Detail:    fmt.Sprintf("%+v sums to %d, want %d", c, c.Total(), m.totalCards),
		}
	}
	if len(m.commons) > CommonsRowSize {
		return &InvariantViolation{Invariant: "commons_row", Detail: fmt.Sprintf("%d cards in the row", len(m.commons))}
	}
	for _, b := range m.players {
		if b.Resources < 0 {
			return &InvariantViolation{Invariant: "resources", Detail: fmt.Sprintf("%s has %d resources", b.PlayerID, b.Resources)}
		}
		if b.SLO < 0 {
			return &InvariantViolation{Invariant: "slo", Detail: fmt.Sprintf("%s has %d SLO", b.PlayerID, b.SLO)}
		}
		if limit := b.ResilienceMax(); !b.Eliminated && b.Resilience > limit {
			return &InvariantViolation{
				Invariant: "resilience_bound",
				Detail:    fmt.Sprintf("%s has resilience %d over max %d", b.PlayerID, b.Resilience, limit),
			}
		}
		if len(b.Workloads) > 0 && !CanHostWorkloads(b.Counts()) {
			return &InvariantViolation{Invariant: "workload_hosting", Detail: fmt.Sprintf("%s runs workloads without capacity", b.PlayerID)}
		}
		for _, ci := range b.Workloads {
			if ci.Card.Type != catalog.TypeWorkload {
				return &InvariantViolation{Invariant: "zones", Detail: fmt.Sprintf("%s in the workload zone", ci.ID)}
			}
		}
		if b.Eliminated && (len(b.Hand) > 0 || b.PlayedCount() > 0) {
			return &InvariantViolation{Invariant: "elimination", Detail: fmt.Sprintf("%s still holds cards", b.PlayerID)}
		}
	}
	if m.windows.IsOpen() != (m.inFlight != nil) {
		return &InvariantViolation{Invariant: "window_in_flight", Detail: "open window and in-flight attack disagree"}
	}
	if m.status == StatusActive && m.Gate() == rules.GatePhase {
		if b := m.active(); b == nil || b.Eliminated {
			return &InvariantViolation{Invariant: "active_player", Detail: fmt.Sprintf("active seat %q cannot act", m.turn.ActivePlayer())}
		}
	}
	return nil
}
