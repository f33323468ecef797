package game

import (
	"fmt"

	"github.com/kubeclash/clash-server-go/internal/game/catalog"
	"github.com/kubeclash/clash-server-go/internal/game/effects"
	"github.com/kubeclash/clash-server-go/internal/game/rules"
)

func (m *Match) active() *PlayerBoard {
	return m.byID[m.turn.ActivePlayer()]
}

// startTurn opens the active player's Refresh.
func (m *Match) startTurn() {
	b := m.active()
	evt := rules.NewEvent(rules.EventTurnStarted, b.PlayerID, "", "")
	evt.Amount = m.turn.Round()
	m.emit(evt)
	m.phaseChanged()
	m.onPhaseEntered()
}

func (m *Match) phaseChanged() {
	evt := rules.NewEvent(rules.EventPhaseChanged, m.turn.ActivePlayer(), "", "")
	evt.Data = m.turn.CurrentPhase().String()
	evt.Amount = m.turn.Round()
	m.emit(evt)
}

// advance moves to the next phase and runs any automatic work it carries.
func (m *Match) advance() {
	m.turn.AdvancePhase()
	m.phaseChanged()
	m.onPhaseEntered()
}

func (m *Match) onPhaseEntered() {
	if m.status.Terminal() {
		return
	}
	phase := m.turn.CurrentPhase()
	if phase == rules.PhaseRefresh && m.active().Incidents.Len() == 0 {
		// Nothing to remove, so the mandatory part runs at once.
		m.completeRefresh()
		return
	}
	if !phase.Automatic() {
		return
	}
	if phase == rules.PhaseIncidents {
		m.resolveIncidents()
		m.advance()
		return
	}
	m.runEnd()
}

// completeRefresh performs the mandatory part of Refresh: draw up to five,
// gain two resources, fire "each Refresh" instructions. Then Plan begins.
func (m *Match) completeRefresh() {
	b := m.active()
	for len(b.Hand) < HandRefillSize {
		if !m.drawInto(b) {
			break
		}
	}
	effectHost{m}.GainResources(b.PlayerID, RefreshGain)
	for _, ci := range b.Played() {
		instrs := ci.Card.RefreshInstructions()
		if len(instrs) == 0 {
			continue
		}
		ctx := effects.Context{ActorID: b.PlayerID, SourceCardID: ci.ID}
		if _, err := m.interp.Apply(effectHost{m}, ctx, instrs); err != nil {
			m.fail(fmt.Errorf("refresh instructions of %s: %w", ci.ID, err))
		}
	}
	m.advance()
}

func (m *Match) resolveIncidents() {
	b := m.active()
	if b.Incidents.Len() == 0 {
		return
	}
	damage := b.Incidents.TotalDamage()
	b.Resilience -= damage
	m.emit(rules.NewEventWithAmount(rules.EventIncidentsResolved, b.PlayerID, "", "", b.Incidents.Len()))
	m.emit(rules.NewEventWithAmount(rules.EventResilienceChanged, b.PlayerID, "", "", -damage))
}

func (m *Match) removeIncident(a Action) error {
	b := m.active()
	id := a.Payload.IncidentID
	if id == "" {
		incidents := b.Incidents.Incidents()
		if len(incidents) == 0 {
			return reject(CodeIncidentNotFound, "no incidents to remove")
		}
		id = incidents[0].ID
	}
	inc, ok := b.Incidents.Remove(id)
	if !ok {
		return reject(CodeIncidentNotFound, "incident %q not on your board", id)
	}
	evt := rules.NewEvent(rules.EventIncidentRemoved, b.PlayerID, inc.TargetID, inc.SourceID)
	evt.Data = inc.ID
	m.emit(evt)
	m.completeRefresh()
	return nil
}

func (m *Match) discardForResource(a Action) error {
	b := m.active()
	_, idx := b.HandCard(a.Payload.CardID)
	if idx < 0 {
		return reject(CodeCardNotFound, "card %q not in hand", a.Payload.CardID)
	}
	ci := b.takeFromHand(idx)
	m.deck.Discard(ci)
	m.emit(rules.NewEvent(rules.EventCardDiscarded, b.PlayerID, "", ci.ID))
	effectHost{m}.GainResources(b.PlayerID, 1)
	return nil
}

func (m *Match) playCard(a Action) error {
	b := m.active()
	ci, idx := b.HandCard(a.Payload.CardID)
	if ci == nil {
		return reject(CodeCardNotFound, "card %q not in hand", a.Payload.CardID)
	}
	card := ci.Card
	if card.Type == catalog.TypeAttack || card.Type == catalog.TypeResponse {
		return reject(CodeInvalidCardType, "%s cannot be deployed", card.Type)
	}
	if b.Resources < card.Cost {
		return reject(CodeInsufficientResources, "%s costs %d, you have %d", card.Name, card.Cost, b.Resources)
	}
	if err := CheckPrerequisites(card, b.Counts()); err != nil {
		return err
	}

	b.takeFromHand(idx)
	m.spend(b, card.Cost, ci.ID)
	b.place(ci)
	played := rules.NewEvent(rules.EventCardPlayed, b.PlayerID, "", ci.ID)
	played.Data = card.ID
	m.emit(played)

	switch card.Type {
	case catalog.TypeNode:
		if b.Resilience < b.ResilienceMax() {
			b.Resilience++
			m.emit(rules.NewEventWithAmount(rules.EventResilienceChanged, b.PlayerID, "", ci.ID, 1))
		}
	case catalog.TypeWorkload:
		b.SLO += card.SLO
		m.emit(rules.NewEventWithAmount(rules.EventSLOChanged, b.PlayerID, "", ci.ID, card.SLO))
	}

	if instrs := card.PlayInstructions(); len(instrs) > 0 {
		ctx := effects.Context{ActorID: b.PlayerID, SourceCardID: ci.ID}
		if _, err := m.interp.Apply(effectHost{m}, ctx, instrs); err != nil {
			return fmt.Errorf("apply %s: %w", ci.ID, err)
		}
	}
	return nil
}

func (m *Match) spend(b *PlayerBoard, amount int, sourceID string) {
	if amount <= 0 {
		return
	}
	b.Resources -= amount
	m.emit(rules.NewEventWithAmount(rules.EventResourcesSpent, b.PlayerID, "", sourceID, amount))
}

func (m *Match) payRepair(a Action) error {
	b := m.active()
	if a.Payload.IncidentID == "" {
		return reject(CodeIncidentNotFound, "incident_id is required")
	}
	inc, ok := b.Incidents.Get(a.Payload.IncidentID)
	if !ok {
		return reject(CodeIncidentNotFound, "incident %q not on your board", a.Payload.IncidentID)
	}
	cost := m.repairCost(b, inc.TargetID)
	if b.Resources < cost {
		return reject(CodeInsufficientResources, "repair costs %d, you have %d", cost, b.Resources)
	}

	m.spend(b, cost, inc.ID)
	b.Incidents.Remove(inc.ID)
	evt := rules.NewEventWithAmount(rules.EventRepairPaid, b.PlayerID, inc.TargetID, inc.SourceID, cost)
	evt.Data = inc.ID
	m.emit(evt)
	return nil
}

// repairCost is the card's custom cost, 2 for a ControlPlane, else 1.
// Markers on the board itself cost 1.
func (m *Match) repairCost(b *PlayerBoard, cardID string) int {
	if cardID == "" {
		return 1
	}
	if ci := b.PlayedCard(cardID); ci != nil {
		return ci.Card.Repair()
	}
	return 1
}

func (m *Match) pass() error {
	switch m.turn.CurrentPhase() {
	case rules.PhaseRefresh:
		m.completeRefresh()
	case rules.PhaseStabilize:
		m.checkpoint()
		if !m.status.Terminal() {
			m.advance()
		}
	default:
		m.advance()
	}
	return nil
}

// runEnd trims the hand, refills the Commons Row and hands the turn over.
func (m *Match) runEnd() {
	b := m.active()
	for len(b.Hand) > HandLimit {
		ci := b.takeFromHand(len(b.Hand) - 1)
		m.deck.Discard(ci)
		m.emit(rules.NewEvent(rules.EventCardDiscarded, b.PlayerID, "", ci.ID))
	}
	m.refillCommons()
	m.passTurn()
}

// passTurn hands the turn to the next live seat. In automated modes the
// round boundary parks the match until the Chaos Monkey reveals.
func (m *Match) passTurn() {
	_, wrapped := m.turn.EndTurn()
	if wrapped {
		m.emit(rules.NewEventWithAmount(rules.EventRoundStarted, "", "", "", m.turn.Round()))
		if m.mode.Automated() {
			m.chaosPending = true
			m.emit(rules.NewEventWithAmount(rules.EventChaosPending, ChaosActorID, "", "", m.turn.Round()))
			return
		}
	}
	m.startTurn()
}

// resumeTurn continues after a round-boundary reveal.
func (m *Match) resumeTurn() {
	if m.status.Terminal() {
		return
	}
	if m.active().Eliminated {
		m.passTurn()
		return
	}
	m.startTurn()
}
