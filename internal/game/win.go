package game

import (
	"go.uber.org/zap"

	"github.com/kubeclash/clash-server-go/internal/game/rules"
)

// checkpoint runs the Win Evaluator for the active player at the end of
// Stabilize. Resilience exactly zero neither eliminates nor wins.
func (m *Match) checkpoint() {
	b := m.active()
	switch {
	case b.Resilience < 0:
		m.eliminate(b, "resilience")
		m.checkSurvivors()
	case b.SLO >= m.threshold && b.Resilience > 0:
		m.declareWinner(b.PlayerID, "slo_threshold")
	}
}

// checkSurvivors applies the last-one-standing rule. Against the Chaos
// Monkey, losing every human seat hands it the win.
func (m *Match) checkSurvivors() {
	if m.status.Terminal() {
		return
	}
	remaining := m.turn.Remaining()
	switch {
	case m.mode.Automated():
		if len(remaining) == 0 {
			m.declareWinner(ChaosActorID, "all_eliminated")
		}
	case len(remaining) == 1:
		m.declareWinner(remaining[0], "last_standing")
	case len(remaining) == 0:
		m.status = StatusFinished
		evt := rules.NewEvent(rules.EventMatchFinished, "", "", "")
		evt.Data = "no_survivors"
		m.emit(evt)
	}
}

// eliminate discards the hand, retires every card in play and clears the
// player's incidents.
func (m *Match) eliminate(b *PlayerBoard, reason string) {
	hand, played := b.retire()
	m.deck.Discard(hand...)
	m.retired = append(m.retired, played...)
	b.Eliminated = true
	m.turn.Eliminate(b.PlayerID)

	evt := rules.NewEventWithAmount(rules.EventPlayerEliminated, b.PlayerID, "", "", len(played))
	evt.Data = reason
	m.emit(evt)
	m.logger.Info("player eliminated",
		zap.String("player_id", b.PlayerID),
		zap.String("reason", reason),
		zap.Int("resilience", b.Resilience))
}

func (m *Match) declareWinner(playerID, reason string) {
	m.winner = playerID
	m.status = StatusFinished
	won := rules.NewEvent(rules.EventWinnerDeclared, playerID, "", "")
	won.Data = reason
	m.emit(won)
	finished := rules.NewEvent(rules.EventMatchFinished, playerID, "", "")
	finished.Data = reason
	m.emit(finished)
	m.logger.Info("winner declared",
		zap.String("player_id", playerID),
		zap.String("reason", reason),
		zap.Int("round", m.turn.Round()))
}

// Leave forfeits a seat after the match has started. The player is
// eliminated at once and play continues from wherever they stood.
func (m *Match) Leave(playerID string) (Result, error) {
	if m.status.Terminal() {
		return Result{}, reject(CodeMatchOver, "match is %s", m.status)
	}
	if err := m.checkSeat(playerID); err != nil {
		return Result{}, err
	}
	b := m.byID[playerID]

	m.begin()
	wasActive := playerID == m.turn.ActivePlayer()
	gate := m.Gate()
	w := m.windows.Active()
	involved := w != nil && (w.AttackerID == playerID || w.TargetID == playerID)

	b.Left = true
	m.emit(rules.NewEvent(rules.EventPlayerLeft, playerID, "", ""))
	if involved {
		fizzled := rules.NewEvent(rules.EventAttackCancelled, w.AttackerID, w.TargetID, w.CardID)
		fizzled.Data = "player_left"
		m.emit(fizzled)
		if err := m.closeWindow(w); err != nil {
			return m.fault(err), err
		}
	}
	m.eliminate(b, "left")
	m.checkSurvivors()

	if !m.status.Terminal() {
		switch {
		case involved && w.Chaos:
			m.resumeTurn()
		case involved && w.TargetID == playerID:
			m.advance()
		case wasActive && (gate == rules.GatePhase || involved):
			m.refillCommons()
			m.passTurn()
		}
	}

	if err := m.checkInvariants(); err != nil {
		return m.fault(err), err
	}
	return m.commit(), nil
}
