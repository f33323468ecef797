package game

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kubeclash/clash-server-go/internal/game/catalog"
	"github.com/kubeclash/clash-server-go/internal/game/effects"
	"github.com/kubeclash/clash-server-go/internal/game/rules"
	"github.com/kubeclash/clash-server-go/internal/game/targeting"
)

// FindPlayerForTarget implements targeting.TargetGameStateAccessor.
func (m *Match) FindPlayerForTarget(playerID string) (targeting.TargetPlayerInfo, bool) {
	b := m.byID[playerID]
	if b == nil {
		return targeting.TargetPlayerInfo{}, false
	}
	return targetInfo(b), true
}

// FindCardForTarget implements targeting.TargetGameStateAccessor.
func (m *Match) FindCardForTarget(cardID string) (targeting.TargetCardInfo, bool) {
	for _, b := range m.players {
		if ci := b.PlayedCard(cardID); ci != nil {
			return targeting.TargetCardInfo{
				ID:           ci.ID,
				Name:         ci.Card.Name,
				Type:         string(ci.Card.Type),
				ControllerID: b.PlayerID,
			}, true
		}
	}
	return targeting.TargetCardInfo{}, false
}

func targetInfo(b *PlayerBoard) targeting.TargetPlayerInfo {
	return targeting.TargetPlayerInfo{
		PlayerID:   b.PlayerID,
		Seat:       b.Seat,
		SLO:        b.SLO,
		Resilience: b.Resilience,
		Eliminated: b.Eliminated,
		Left:       b.Left,
	}
}

func (m *Match) targetInfos() []targeting.TargetPlayerInfo {
	out := make([]targeting.TargetPlayerInfo, 0, len(m.players))
	for _, b := range m.players {
		out = append(out, targetInfo(b))
	}
	return out
}

// Opponents lists who playerID may attack, in seat order.
func (m *Match) Opponents(playerID string) []string {
	var ids []string
	for _, p := range targeting.Opponents(playerID, m.targetInfos()) {
		ids = append(ids, p.PlayerID)
	}
	return ids
}

// playAttack pays for an Attack and opens the interrupt window. Its
// instructions wait for the target's answer or the timeout.
func (m *Match) playAttack(a Action) error {
	b := m.active()
	ci, idx := b.HandCard(a.Payload.CardID)
	if ci == nil {
		return reject(CodeCardNotFound, "card %q not in hand", a.Payload.CardID)
	}
	if ci.Card.Type != catalog.TypeAttack {
		return reject(CodeInvalidCardType, "%s is not an Attack", ci.Card.Name)
	}
	if b.Resources < ci.Card.Cost {
		return reject(CodeInsufficientResources, "%s costs %d, you have %d", ci.Card.Name, ci.Card.Cost, b.Resources)
	}
	sel := targeting.TargetSelection{
		AttackerID:   b.PlayerID,
		TargetID:     a.Payload.TargetID,
		TargetCardID: a.Payload.TargetCardID,
	}
	if err := targeting.NewTargetValidator(m).ValidateSelection(sel); err != nil {
		return reject(CodeInvalidTarget, "%v", err)
	}

	b.takeFromHand(idx)
	m.spend(b, ci.Card.Cost, ci.ID)
	return m.openWindow(b.PlayerID, sel.TargetID, ci, sel.TargetCardID, false)
}

func (m *Match) openWindow(attackerID, targetID string, ci *CardInstance, targetCardID string, chaos bool) error {
	w, err := m.windows.Open(attackerID, targetID, ci.ID, targetCardID, chaos)
	if err != nil {
		return &InvariantViolation{Invariant: "single_window", Detail: "attack declared while a window is open", Err: err}
	}
	m.inFlight = ci
	m.opened = w

	declared := rules.NewEvent(rules.EventAttackDeclared, attackerID, targetID, ci.ID)
	declared.Data = ci.Card.ID
	if targetCardID != "" {
		declared.Metadata = map[string]string{"target_card_id": targetCardID}
	}
	m.emit(declared)
	opened := rules.NewEvent(rules.EventWindowOpened, attackerID, targetID, ci.ID)
	opened.Data = w.ID
	m.emit(opened)

	m.logger.Debug("interrupt window opened",
		zap.String("window_id", w.ID),
		zap.String("attacker_id", attackerID),
		zap.String("target_id", targetID),
		zap.String("card_id", ci.ID))
	return nil
}

// playResponse answers the open window. The Response resolves first and is
// discarded; a cancelling Response skips the Attack's instructions.
func (m *Match) playResponse(a Action) error {
	w := m.windows.Active()
	b := m.byID[a.ActorID]
	ci, idx := b.HandCard(a.Payload.CardID)
	if ci == nil {
		return reject(CodeCardNotFound, "card %q not in hand", a.Payload.CardID)
	}
	if ci.Card.Type != catalog.TypeResponse {
		return reject(CodeInvalidCardType, "%s is not a Response", ci.Card.Name)
	}
	if b.Resources < ci.Card.Cost {
		return reject(CodeInsufficientResources, "%s costs %d, you have %d", ci.Card.Name, ci.Card.Cost, b.Resources)
	}

	b.takeFromHand(idx)
	m.spend(b, ci.Card.Cost, ci.ID)
	played := rules.NewEvent(rules.EventResponsePlayed, b.PlayerID, w.AttackerID, ci.ID)
	played.Data = ci.Card.ID
	m.emit(played)

	ctx := effects.Context{ActorID: b.PlayerID, SourceCardID: ci.ID}
	out, err := m.interp.Apply(effectHost{m}, ctx, ci.Card.PlayInstructions())
	if err != nil {
		return fmt.Errorf("apply response %s: %w", ci.ID, err)
	}
	m.deck.Discard(ci)
	m.emit(rules.NewEvent(rules.EventCardDiscarded, b.PlayerID, "", ci.ID))
	return m.resolveAttack(out.Cancelled)
}

// resolveAttack closes the open window, applying the in-flight Attack
// unless it was cancelled or its target is gone.
func (m *Match) resolveAttack(cancelled bool) error {
	w := m.windows.Active()
	ci := m.inFlight
	if w == nil || ci == nil {
		return &InvariantViolation{Invariant: "window_in_flight", Detail: "resolve without an open attack"}
	}

	target := m.byID[w.TargetID]
	switch {
	case cancelled:
		m.emit(rules.NewEvent(rules.EventAttackCancelled, w.AttackerID, w.TargetID, ci.ID))
	case target == nil || target.Eliminated:
		evt := rules.NewEvent(rules.EventAttackCancelled, w.AttackerID, w.TargetID, ci.ID)
		evt.Data = "target_gone"
		m.emit(evt)
	default:
		ctx := effects.Context{
			ActorID:      w.AttackerID,
			TargetID:     w.TargetID,
			TargetCardID: w.TargetCardID,
			SourceCardID: ci.ID,
		}
		out, err := m.interp.Apply(effectHost{m}, ctx, ci.Card.PlayInstructions())
		if err != nil {
			return fmt.Errorf("resolve attack %s: %w", ci.ID, err)
		}
		evt := rules.NewEventWithAmount(rules.EventAttackResolved, w.AttackerID, w.TargetID, ci.ID, len(out.Applied))
		evt.Data = ci.Card.ID
		m.emit(evt)
	}

	if err := m.closeWindow(w); err != nil {
		return err
	}
	if w.Chaos {
		m.resumeTurn()
		return nil
	}
	m.advance()
	return nil
}

// closeWindow discards the in-flight Attack and closes w.
func (m *Match) closeWindow(w *rules.InterruptWindow) error {
	ci := m.inFlight
	m.inFlight = nil
	m.deck.Discard(ci)
	m.emit(rules.NewEvent(rules.EventCardDiscarded, w.AttackerID, "", ci.ID))
	if err := m.windows.Close(w.ID); err != nil {
		return &InvariantViolation{Invariant: "window_in_flight", Detail: "close window", Err: err}
	}
	m.closed = w.ID
	closed := rules.NewEvent(rules.EventWindowClosed, w.AttackerID, w.TargetID, ci.ID)
	closed.Data = w.ID
	m.emit(closed)
	return nil
}

// chaosReveal flips the top of the deck at the round boundary. Attacks are
// played by the Chaos Monkey at no cost; anything else is discarded.
func (m *Match) chaosReveal() error {
	m.chaosPending = false
	card := m.drawTop()
	if card == nil {
		evt := rules.NewEvent(rules.EventResourceExhausted, ChaosActorID, "", "")
		evt.Data = "deck_exhausted"
		m.emit(evt)
		m.resumeTurn()
		return nil
	}

	revealed := rules.NewEvent(rules.EventChaosRevealed, ChaosActorID, "", card.ID)
	revealed.Data = card.Card.ID
	m.emit(revealed)

	if card.Card.Type != catalog.TypeAttack {
		m.deck.Discard(card)
		m.emit(rules.NewEvent(rules.EventCardDiscarded, ChaosActorID, "", card.ID))
		m.resumeTurn()
		return nil
	}

	targetID, ok := targeting.ChaosTarget(m.targetInfos())
	if !ok {
		m.deck.Discard(card)
		m.emit(rules.NewEvent(rules.EventCardDiscarded, ChaosActorID, "", card.ID))
		m.resumeTurn()
		return nil
	}
	return m.openWindow(ChaosActorID, targetID, card, "", true)
}
