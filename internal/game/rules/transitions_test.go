package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTableIsExhaustive(t *testing.T) {
	expected := map[Phase][]ActionType{
		PhaseRefresh:   {ActionRemoveIncident, ActionPass},
		PhasePlan:      {ActionDiscardForResource, ActionPass},
		PhaseDeploy:    {ActionPlayCard, ActionBuyCard, ActionPass},
		PhaseIncidents: nil,
		PhaseSabotage:  {ActionPlayAttack, ActionPass},
		PhaseStabilize: {ActionPayRepair, ActionPass},
		PhaseEnd:       nil,
	}

	for _, phase := range Phases() {
		allowed := make(map[ActionType]bool)
		for _, a := range expected[phase] {
			allowed[a] = true
		}
		for _, action := range AllActions() {
			assert.Equal(t, allowed[action], Allowed(phase, GatePhase, action),
				"phase %s action %s", phase, action)
		}
	}
}

func TestInterruptGateIgnoresPhase(t *testing.T) {
	for _, phase := range Phases() {
		for _, action := range AllActions() {
			want := action == ActionPlayResponse || action == ActionPass || action == ActionWindowTimeout
			assert.Equal(t, want, Allowed(phase, GateInterrupt, action), "phase %s action %s", phase, action)

			want = action == ActionChaosReveal
			assert.Equal(t, want, Allowed(phase, GateChaosReveal, action), "phase %s action %s", phase, action)
		}
	}
}

func TestInternalActionsNeverAllowedByPhase(t *testing.T) {
	for _, phase := range Phases() {
		assert.False(t, Allowed(phase, GatePhase, ActionChaosReveal))
		assert.False(t, Allowed(phase, GatePhase, ActionWindowTimeout))
		assert.False(t, Allowed(phase, GatePhase, ActionPlayResponse))
	}
}

func TestParseActionType(t *testing.T) {
	a, ok := ParseActionType(" Play_Card ")
	require.True(t, ok)
	assert.Equal(t, ActionPlayCard, a)

	_, ok = ParseActionType("chaos_reveal")
	assert.False(t, ok, "internal actions must not parse")

	_, ok = ParseActionType("tap_land")
	assert.False(t, ok)

	assert.True(t, ActionWindowTimeout.IsInternal())
	assert.False(t, ActionPass.IsInternal())
	assert.Len(t, PublicActions(), 8)
}

func TestAllowedActions(t *testing.T) {
	assert.Equal(t, []ActionType{ActionPlayCard, ActionBuyCard, ActionPass}, AllowedActions(PhaseDeploy, GatePhase))
	assert.Empty(t, AllowedActions(PhaseEnd, GatePhase))
	assert.Equal(t, []ActionType{ActionChaosReveal}, AllowedActions(PhaseRefresh, GateChaosReveal))
}
