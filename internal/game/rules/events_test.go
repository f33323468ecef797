package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusFiltersByType(t *testing.T) {
	bus := NewEventBus()
	attacks, refreshGains := 0, 0
	bus.On(func(Event) { attacks++ }, EventAttackDeclared)
	bus.On(func(Event) { refreshGains++ }, EventResourcesGained, EventResourcesStolen)

	bus.Publish(
		NewEvent(EventAttackDeclared, "alice", "bob", "ddos_burst#1"),
		NewEventWithAmount(EventResourcesGained, "alice", "", "", 2),
		NewEvent(EventCardDrawn, "alice", "", "worker_node#1"),
		NewEventWithAmount(EventResourcesStolen, "bob", "alice", "", 1),
	)
	assert.Equal(t, 1, attacks)
	assert.Equal(t, 2, refreshGains)
}

func TestEventBusDeliversInOrder(t *testing.T) {
	bus := NewEventBus()
	var seen []string
	bus.On(func(e Event) { seen = append(seen, "first:"+string(e.Type)) })
	bus.On(func(e Event) { seen = append(seen, "second:"+string(e.Type)) })
	bus.On(nil)

	bus.Publish(
		NewEvent(EventCardPlayed, "alice", "", "node#1"),
		NewEvent(EventCardBought, "alice", "", "node#2"),
	)
	assert.Equal(t, []string{
		"first:CARD_PLAYED", "second:CARD_PLAYED",
		"first:CARD_BOUGHT", "second:CARD_BOUGHT",
	}, seen)
}
