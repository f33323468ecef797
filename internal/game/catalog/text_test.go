package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubeclash/clash-server-go/internal/game/effects"
)

func TestCompileText(t *testing.T) {
	cases := []struct {
		text string
		want []effects.Instruction
	}{
		{"", nil},
		{"Gain 2 resources.", []effects.Instruction{effects.GainResource(2)}},
		{"Draw a card", []effects.Instruction{effects.DrawCard(1)}},
		{"Place an incident on the target.", []effects.Instruction{effects.AddIncident(effects.ScopeTarget, 1)}},
		{"Steal 3 resources from target; Target loses 1 SLO", []effects.Instruction{
			effects.StealResource(3),
			effects.ReduceSLO(effects.ScopeTarget, 1),
		}},
		{"Remove two incidents from your board.", []effects.Instruction{effects.RemoveIncident(effects.ScopeSelf, 2)}},
		{"Target removes 1 incident.", []effects.Instruction{effects.RemoveIncident(effects.ScopeTarget, 1)}},
		{"Cancel target attack. Draw 1 card.", []effects.Instruction{effects.Cancel(), effects.DrawCard(1)}},
		{"Each Refresh: Gain 1 resource.", []effects.Instruction{effects.GainResource(1).OnRefresh()}},
		{"EACH REFRESH, remove 1 incident", []effects.Instruction{effects.RemoveIncident(effects.ScopeSelf, 1).OnRefresh()}},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got, err := CompileText(tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCompileTextRejectsUnmapped(t *testing.T) {
	for _, text := range []string{
		"Destroy target node.",
		"Gain 0 resources.",
		"Gain many resources.",
		"Draw 1 card. Then shuffle your deck.",
	} {
		_, err := CompileText(text)
		assert.Error(t, err, text)
	}
}
