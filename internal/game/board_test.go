package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubeclash/clash-server-go/internal/game/catalog"
)

func TestCheckPrerequisites(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	card := func(id string) *catalog.Card {
		c, ok := cat.Get(id)
		require.True(t, ok, id)
		return c
	}
	hosting := map[catalog.CardType]int{catalog.TypeNode: 2, catalog.TypeControlPlane: 1}

	cases := []struct {
		name   string
		card   string
		counts map[catalog.CardType]int
		ok     bool
	}{
		{"node needs nothing", "worker_node", nil, true},
		{"workload on empty board", "batch_job", nil, false},
		{"workload with one node", "batch_job", map[catalog.CardType]int{catalog.TypeNode: 1, catalog.TypeControlPlane: 3}, false},
		{"workload without control plane", "batch_job", map[catalog.CardType]int{catalog.TypeNode: 5}, false},
		{"workload hosted", "batch_job", hosting, true},
		{"workload missing its own prerequisite", "stateful_database", hosting, false},
		{"ml pipeline needs three nodes", "ml_training_pipeline", map[catalog.CardType]int{catalog.TypeNode: 3, catalog.TypeControlPlane: 1}, true},
		{"storage needs a node", "persistent_volume", nil, false},
		{"automation with nodes", "cluster_autoscaler", map[catalog.CardType]int{catalog.TypeNode: 2}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckPrerequisites(card(tc.card), tc.counts)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			verr, ok := AsValidation(err)
			require.True(t, ok)
			assert.Equal(t, CodePrerequisiteUnmet, verr.Code)
		})
	}
}

func TestBoardZones(t *testing.T) {
	b := newPlayerBoard(Participant{PlayerID: "p1"}, 0)
	cat, err := catalog.Default()
	require.NoError(t, err)
	for _, id := range []string{"worker_node", "batch_job", "ci_cd_pipeline", "rollback"} {
		c, _ := cat.Get(id)
		b.place(&CardInstance{ID: id + "#1", Card: c})
	}
	assert.Len(t, b.Infrastructure, 1)
	assert.Len(t, b.Workloads, 1)
	assert.Len(t, b.Extensions, 2)
	assert.Equal(t, 4, b.PlayedCount())
	assert.Equal(t, BaseResilience+ResiliencePerNode, b.ResilienceMax())
	assert.NotNil(t, b.PlayedCard("batch_job#1"))

	hand, played := b.retire()
	assert.Empty(t, hand)
	assert.Len(t, played, 4)
	assert.Zero(t, b.PlayedCount())
}
