package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubeclash/clash-server-go/internal/random"
)

func testCards(n int) []*CardInstance {
	cards := make([]*CardInstance, 0, n)
	for i := 1; i <= n; i++ {
		cards = append(cards, &CardInstance{ID: fmt.Sprintf("card#%d", i)})
	}
	return cards
}

func TestDeckDrawReshufflesDiscard(t *testing.T) {
	d := newDeck(testCards(3), random.New(9))
	require.Equal(t, 3, d.Len())

	var drawn []*CardInstance
	for i := 0; i < 3; i++ {
		c, reshuffled := d.Draw()
		require.NotNil(t, c)
		assert.False(t, reshuffled)
		drawn = append(drawn, c)
	}
	c, _ := d.Draw()
	assert.Nil(t, c, "both piles empty")
	assert.True(t, d.Exhausted())

	d.Discard(drawn[0], nil, drawn[1])
	assert.Equal(t, 2, d.DiscardLen())
	c, reshuffled := d.Draw()
	require.NotNil(t, c)
	assert.True(t, reshuffled)
	assert.Zero(t, d.DiscardLen())
	assert.Equal(t, 1, d.Len())
}

func TestDeckShuffleIsSeeded(t *testing.T) {
	a := newDeck(testCards(20), random.New(5))
	b := newDeck(testCards(20), random.New(5))
	c := newDeck(testCards(20), random.New(6))
	assert.Equal(t, a.order(), b.order())
	assert.NotEqual(t, a.order(), c.order())
	assert.ElementsMatch(t, a.order(), c.order())
}
