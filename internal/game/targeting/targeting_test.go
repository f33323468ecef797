package targeting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubState struct {
	players map[string]TargetPlayerInfo
	cards   map[string]TargetCardInfo
}

func (s stubState) FindPlayerForTarget(id string) (TargetPlayerInfo, bool) {
	p, ok := s.players[id]
	return p, ok
}

func (s stubState) FindCardForTarget(id string) (TargetCardInfo, bool) {
	c, ok := s.cards[id]
	return c, ok
}

func newStub() stubState {
	return stubState{
		players: map[string]TargetPlayerInfo{
			"alice": {PlayerID: "alice", Seat: 0},
			"bob":   {PlayerID: "bob", Seat: 1},
			"carol": {PlayerID: "carol", Seat: 2, Eliminated: true},
			"dave":  {PlayerID: "dave", Seat: 3, Left: true},
		},
		cards: map[string]TargetCardInfo{
			"worker_node#1": {ID: "worker_node#1", Name: "Worker Node", ControllerID: "bob"},
		},
	}
}

func TestValidateSelection(t *testing.T) {
	tv := NewTargetValidator(newStub())

	require.NoError(t, tv.ValidateSelection(TargetSelection{AttackerID: "alice", TargetID: "bob"}))
	require.NoError(t, tv.ValidateSelection(TargetSelection{AttackerID: "alice", TargetID: "bob", TargetCardID: "worker_node#1"}))

	for name, sel := range map[string]TargetSelection{
		"missing":      {AttackerID: "alice"},
		"self":         {AttackerID: "alice", TargetID: "alice"},
		"unknown":      {AttackerID: "alice", TargetID: "erin"},
		"eliminated":   {AttackerID: "alice", TargetID: "carol"},
		"left":         {AttackerID: "alice", TargetID: "dave"},
		"card absent":  {AttackerID: "alice", TargetID: "bob", TargetCardID: "worker_node#2"},
		"wrong holder": {AttackerID: "bob", TargetID: "alice", TargetCardID: "worker_node#1"},
	} {
		assert.Error(t, tv.ValidateSelection(sel), name)
	}

	var nilValidator *TargetValidator
	assert.Error(t, nilValidator.ValidateSelection(TargetSelection{}))
}

func TestChaosTargetOrdering(t *testing.T) {
	players := []TargetPlayerInfo{
		{PlayerID: "a", Seat: 0, SLO: 4, Resilience: 5},
		{PlayerID: "b", Seat: 1, SLO: 6, Resilience: 5},
		{PlayerID: "c", Seat: 2, SLO: 6, Resilience: 3},
		{PlayerID: "d", Seat: 3, SLO: 9, Resilience: 1, Eliminated: true},
	}
	id, ok := ChaosTarget(players)
	require.True(t, ok)
	assert.Equal(t, "c", id, "ties on SLO fall to the lowest resilience")

	players[2].Resilience = 5
	id, _ = ChaosTarget(players)
	assert.Equal(t, "b", id, "remaining ties fall to seat order")

	_, ok = ChaosTarget([]TargetPlayerInfo{{PlayerID: "x", Left: true}})
	assert.False(t, ok)
}

func TestOpponents(t *testing.T) {
	players := []TargetPlayerInfo{
		{PlayerID: "c", Seat: 2},
		{PlayerID: "a", Seat: 0},
		{PlayerID: "b", Seat: 1, Eliminated: true},
	}
	opp := Opponents("a", players)
	require.Len(t, opp, 1)
	assert.Equal(t, "c", opp[0].PlayerID)
	assert.Equal(t, TargetTypeCard, TargetSelection{TargetCardID: "x"}.Kind())
	assert.Equal(t, TargetTypePlayer, TargetSelection{}.Kind())
}
