package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowManagerLifecycle(t *testing.T) {
	wm := NewWindowManager("m1")
	assert.False(t, wm.IsOpen())

	w, err := wm.Open("alice", "bob", "ddos_burst#1", "", false)
	require.NoError(t, err)
	assert.Equal(t, "m1-w1", w.ID)
	assert.True(t, wm.IsOpen())
	assert.True(t, wm.IsCurrent("m1-w1"))

	_, err = wm.Open("alice", "carol", "ddos_burst#2", "", false)
	assert.Error(t, err, "second window must not open while one is active")

	assert.Error(t, wm.Close("m1-w9"))
	require.NoError(t, wm.Close(w.ID))
	assert.False(t, wm.IsOpen())
	assert.False(t, wm.IsCurrent("m1-w1"), "closed window id is stale")
	assert.Error(t, wm.Close(w.ID))

	w2, err := wm.Open("chaos-monkey", "alice", "rogue_cronjob#1", "", true)
	require.NoError(t, err)
	assert.Equal(t, "m1-w2", w2.ID)
	assert.True(t, w2.Chaos)
	assert.Equal(t, 1, wm.Closed())
}
