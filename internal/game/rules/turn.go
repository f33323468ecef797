package rules

import (
	"fmt"
	"strings"
)

// Phase represents one of the seven phases of a player's turn.
type Phase int

const (
	PhaseRefresh Phase = iota
	PhasePlan
	PhaseDeploy
	PhaseIncidents
	PhaseSabotage
	PhaseStabilize
	PhaseEnd
)

var phaseNames = map[Phase]string{
	PhaseRefresh:   "REFRESH",
	PhasePlan:      "PLAN",
	PhaseDeploy:    "DEPLOY",
	PhaseIncidents: "INCIDENTS",
	PhaseSabotage:  "SABOTAGE",
	PhaseStabilize: "STABILIZE",
	PhaseEnd:       "END",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// MarshalText renders the phase by name so JSON views stay readable.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name produced by MarshalText.
func (p *Phase) UnmarshalText(text []byte) error {
	name := strings.ToUpper(strings.TrimSpace(string(text)))
	for phase, candidate := range phaseNames {
		if candidate == name {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(text))
}

// Automatic reports whether the phase resolves without player input.
func (p Phase) Automatic() bool {
	return p == PhaseIncidents || p == PhaseEnd
}

// turnSequence is the fixed phase order of a single turn.
var turnSequence = []Phase{
	PhaseRefresh,
	PhasePlan,
	PhaseDeploy,
	PhaseIncidents,
	PhaseSabotage,
	PhaseStabilize,
	PhaseEnd,
}

// Phases returns the turn structure in order.
func Phases() []Phase {
	out := make([]Phase, len(turnSequence))
	copy(out, turnSequence)
	return out
}

// TurnManager tracks seating order, the active player, the current phase
// and the round counter. Eliminated players keep their seat but are skipped.
type TurnManager struct {
	order       []string
	eliminated  map[string]bool
	activeIndex int
	orderIndex  int
	round       int
}

// NewTurnManager creates a turn manager at round 1, Refresh phase, with the
// first seat active.
func NewTurnManager(order []string) *TurnManager {
	seats := make([]string, 0, len(order))
	for _, id := range order {
		seats = append(seats, strings.TrimSpace(id))
	}
	return &TurnManager{
		order:      seats,
		eliminated: make(map[string]bool),
		round:      1,
	}
}

// CurrentPhase returns the phase currently in progress.
func (tm *TurnManager) CurrentPhase() Phase {
	return turnSequence[tm.orderIndex]
}

// Round returns the current round number (1-based).
func (tm *TurnManager) Round() int {
	return tm.round
}

// ActivePlayer returns the player who currently has the turn.
func (tm *TurnManager) ActivePlayer() string {
	if len(tm.order) == 0 {
		return ""
	}
	return tm.order[tm.activeIndex]
}

// Order returns a copy of the seating order.
func (tm *TurnManager) Order() []string {
	out := make([]string, len(tm.order))
	copy(out, tm.order)
	return out
}

// Seat returns the seat index of playerID or -1.
func (tm *TurnManager) Seat(playerID string) int {
	for i, id := range tm.order {
		if id == playerID {
			return i
		}
	}
	return -1
}

// Eliminate marks a seat as skipped for the rest of the match.
func (tm *TurnManager) Eliminate(playerID string) {
	tm.eliminated[playerID] = true
}

// IsEliminated reports whether the seat has been eliminated.
func (tm *TurnManager) IsEliminated(playerID string) bool {
	return tm.eliminated[playerID]
}

// Remaining returns the non-eliminated players in seating order.
func (tm *TurnManager) Remaining() []string {
	out := make([]string, 0, len(tm.order))
	for _, id := range tm.order {
		if !tm.eliminated[id] {
			out = append(out, id)
		}
	}
	return out
}

// AdvancePhase moves to the next phase within the current turn. It does not
// wrap past End; use EndTurn to hand the turn over.
func (tm *TurnManager) AdvancePhase() Phase {
	if tm.orderIndex < len(turnSequence)-1 {
		tm.orderIndex++
	}
	return tm.CurrentPhase()
}

// EndTurn passes the turn to the next non-eliminated seat and resets the
// phase to Refresh. wrapped is true when the hand-over completed a round,
// in which case the round counter has been incremented.
func (tm *TurnManager) EndTurn() (next string, wrapped bool) {
	tm.orderIndex = 0
	if len(tm.order) == 0 {
		return "", false
	}
	idx := tm.activeIndex
	for i := 0; i < len(tm.order); i++ {
		idx++
		if idx >= len(tm.order) {
			idx = 0
			wrapped = true
		}
		if !tm.eliminated[tm.order[idx]] {
			break
		}
	}
	tm.activeIndex = idx
	if wrapped {
		tm.round++
	}
	return tm.order[idx], wrapped
}
