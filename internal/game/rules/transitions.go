package rules

import "strings"

// ActionType names a player or system action submitted to a match.
type ActionType string

const (
	ActionPlayCard           ActionType = "play_card"
	ActionBuyCard            ActionType = "buy_card"
	ActionDiscardForResource ActionType = "discard_for_resource"
	ActionRemoveIncident     ActionType = "remove_incident"
	ActionPayRepair          ActionType = "pay_repair"
	ActionPlayAttack         ActionType = "play_attack"
	ActionPlayResponse       ActionType = "play_response"
	ActionPass               ActionType = "pass"

	// Internal actions, never accepted from a transport.
	ActionChaosReveal   ActionType = "chaos_reveal"
	ActionWindowTimeout ActionType = "window_timeout"
)

var publicActions = []ActionType{
	ActionPlayCard,
	ActionBuyCard,
	ActionDiscardForResource,
	ActionRemoveIncident,
	ActionPayRepair,
	ActionPlayAttack,
	ActionPlayResponse,
	ActionPass,
}

// PublicActions lists the action types a client may submit.
func PublicActions() []ActionType {
	return append([]ActionType(nil), publicActions...)
}

// AllActions lists every action type including internal ones.
func AllActions() []ActionType {
	return append(PublicActions(), ActionChaosReveal, ActionWindowTimeout)
}

// ParseActionType resolves a client supplied action name. Internal action
// types are rejected.
func ParseActionType(s string) (ActionType, bool) {
	candidate := ActionType(strings.ToLower(strings.TrimSpace(s)))
	for _, a := range publicActions {
		if a == candidate {
			return a, true
		}
	}
	return "", false
}

// IsInternal reports whether the action may only originate inside the engine.
func (a ActionType) IsInternal() bool {
	return a == ActionChaosReveal || a == ActionWindowTimeout
}

// Gate identifies which table decides legality for the next action.
type Gate int

const (
	// GatePhase defers to the active player's current phase.
	GatePhase Gate = iota
	// GateInterrupt is an open response window after an Attack.
	GateInterrupt
	// GateChaosReveal waits for the Chaos Monkey at a round boundary.
	GateChaosReveal
)

func (g Gate) String() string {
	switch g {
	case GatePhase:
		return "PHASE"
	case GateInterrupt:
		return "INTERRUPT"
	case GateChaosReveal:
		return "CHAOS_REVEAL"
	default:
		return "UNKNOWN"
	}
}

// phaseTransitions enumerates what the active player may submit per phase.
// Anything absent is rejected. Incidents and End are automatic and accept
// nothing.
var phaseTransitions = map[Phase]map[ActionType]bool{
	PhaseRefresh: {
		ActionRemoveIncident: true,
		ActionPass:           true,
	},
	PhasePlan: {
		ActionDiscardForResource: true,
		ActionPass:               true,
	},
	PhaseDeploy: {
		ActionPlayCard: true,
		ActionBuyCard:  true,
		ActionPass:     true,
	},
	PhaseIncidents: {},
	PhaseSabotage: {
		ActionPlayAttack: true,
		ActionPass:       true,
	},
	PhaseStabilize: {
		ActionPayRepair: true,
		ActionPass:      true,
	},
	PhaseEnd: {},
}

var gateTransitions = map[Gate]map[ActionType]bool{
	GateInterrupt: {
		ActionPlayResponse:  true,
		ActionPass:          true,
		ActionWindowTimeout: true,
	},
	GateChaosReveal: {
		ActionChaosReveal: true,
	},
}

// Allowed consults the transition tables for a (phase, gate, action) triple.
func Allowed(phase Phase, gate Gate, action ActionType) bool {
	if gate != GatePhase {
		return gateTransitions[gate][action]
	}
	return phaseTransitions[phase][action]
}

// AllowedActions returns the accepted action types for the given state in
// a stable order.
func AllowedActions(phase Phase, gate Gate) []ActionType {
	var out []ActionType
	for _, a := range AllActions() {
		if Allowed(phase, gate, a) {
			out = append(out, a)
		}
	}
	return out
}
