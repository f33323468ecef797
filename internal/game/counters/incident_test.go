package counters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerAddAndRemove(t *testing.T) {
	l := NewLedger("alice")

	added := l.Add("", "ddos_burst#1", 0, 2)
	require.Len(t, added, 2)
	assert.Equal(t, "alice-inc-1", added[0].ID)
	assert.Equal(t, "alice-inc-2", added[1].ID)
	assert.Equal(t, 1, added[0].Damage, "damage floors at 1")
	assert.True(t, added[0].OnBoard())

	l.Add("control_plane#1", "supply_chain_compromise#1", 2, 1)
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, 4, l.TotalDamage())
	assert.Equal(t, 1, l.CountOn("control_plane#1"))
	assert.Equal(t, 2, l.CountOn(""))

	inc, ok := l.Remove("alice-inc-2")
	require.True(t, ok)
	assert.Equal(t, "ddos_burst#1", inc.SourceID)
	_, ok = l.Remove("alice-inc-2")
	assert.False(t, ok)

	_, ok = l.Get("alice-inc-3")
	assert.True(t, ok)
}

func TestLedgerRemoveOldest(t *testing.T) {
	l := NewLedger("bob")
	l.Add("", "a", 1, 3)

	removed := l.RemoveOldest(2)
	require.Len(t, removed, 2)
	assert.Equal(t, "bob-inc-1", removed[0].ID)
	assert.Equal(t, 1, l.Len())

	removed = l.RemoveOldest(5)
	assert.Len(t, removed, 1)
	assert.Zero(t, l.Len())
	assert.Nil(t, l.RemoveOldest(1))
}

func TestLedgerIDsStayUniqueAfterClear(t *testing.T) {
	l := NewLedger("carol")
	l.Add("", "a", 1, 2)
	assert.Equal(t, 2, l.Clear())

	added := l.Add("", "b", 1, 1)
	assert.Equal(t, "carol-inc-3", added[0].ID)
}

