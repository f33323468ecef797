package rules

import "time"

// EventType indicates the category of a match event.
type EventType string

const (
	// Match lifecycle events
	EventMatchStarted     EventType = "MATCH_STARTED"
	EventMatchFinished    EventType = "MATCH_FINISHED"
	EventMatchAborted     EventType = "MATCH_ABORTED"
	EventMatchFaulted     EventType = "MATCH_FAULTED"
	EventPlayerLeft       EventType = "PLAYER_LEFT"
	EventPlayerEliminated EventType = "PLAYER_ELIMINATED"
	EventWinnerDeclared   EventType = "WINNER_DECLARED"

	// Turn events
	EventTurnStarted  EventType = "TURN_STARTED"
	EventPhaseChanged EventType = "PHASE_CHANGED"
	EventRoundStarted EventType = "ROUND_STARTED"

	// Card movement events
	EventCardDrawn       EventType = "CARD_DRAWN"
	EventCardPlayed      EventType = "CARD_PLAYED"
	EventCardBought      EventType = "CARD_BOUGHT"
	EventCardDiscarded   EventType = "CARD_DISCARDED"
	EventDeckReshuffled  EventType = "DECK_RESHUFFLED"
	EventCommonsRefilled EventType = "COMMONS_REFILLED"

	// Resource and board events
	EventResourcesGained   EventType = "RESOURCES_GAINED"
	EventResourcesSpent    EventType = "RESOURCES_SPENT"
	EventResourcesStolen   EventType = "RESOURCES_STOLEN"
	EventResilienceChanged EventType = "RESILIENCE_CHANGED"
	EventSLOChanged        EventType = "SLO_CHANGED"
	EventIncidentAdded     EventType = "INCIDENT_ADDED"
	EventIncidentRemoved   EventType = "INCIDENT_REMOVED"
	EventIncidentsResolved EventType = "INCIDENTS_RESOLVED"
	EventRepairPaid        EventType = "REPAIR_PAID"

	// Sabotage events
	EventAttackDeclared  EventType = "ATTACK_DECLARED"
	EventWindowOpened    EventType = "WINDOW_OPENED"
	EventWindowClosed    EventType = "WINDOW_CLOSED"
	EventResponsePlayed  EventType = "RESPONSE_PLAYED"
	EventAttackCancelled EventType = "ATTACK_CANCELLED"
	EventAttackResolved  EventType = "ATTACK_RESOLVED"

	// Chaos Monkey events
	EventChaosPending  EventType = "CHAOS_PENDING"
	EventChaosRevealed EventType = "CHAOS_REVEALED"

	// Resource exhaustion is reported, never raised.
	EventResourceExhausted EventType = "RESOURCE_EXHAUSTED"
)

// Event is a single observable change produced while applying an action.
type Event struct {
	Type      EventType         `json:"type"`
	ID        string            `json:"id"`
	PlayerID  string            `json:"player_id,omitempty"`
	TargetID  string            `json:"target_id,omitempty"`
	SourceID  string            `json:"source_id,omitempty"`
	Amount    int               `json:"amount,omitempty"`
	Data      string            `json:"data,omitempty"`
	Private   bool              `json:"-"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Listener reacts to a published event.
type Listener func(Event)

type subscription struct {
	types    map[EventType]bool
	listener Listener
}

func (s subscription) wants(t EventType) bool {
	return len(s.types) == 0 || s.types[t]
}

// EventBus delivers each applied action's events to in-process observers
// such as the simulator's counters. It lives inside a Match and shares its
// single-writer discipline, so it takes no locks.
type EventBus struct {
	subs []subscription
}

// NewEventBus returns an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// On registers listener for the given event types, or for every event when
// none are named. Listeners run in registration order.
func (bus *EventBus) On(listener Listener, types ...EventType) {
	if listener == nil {
		return
	}
	sub := subscription{listener: listener}
	if len(types) > 0 {
		sub.types = make(map[EventType]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}
	bus.subs = append(bus.subs, sub)
}

// Publish delivers events in order; each event reaches every interested
// listener before the next one is sent.
func (bus *EventBus) Publish(events ...Event) {
	for _, e := range events {
		for _, sub := range bus.subs {
			if sub.wants(e.Type) {
				sub.listener(e)
			}
		}
	}
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, playerID, targetID, sourceID string) Event {
	return Event{
		Type:      eventType,
		PlayerID:  playerID,
		TargetID:  targetID,
		SourceID:  sourceID,
		Timestamp: time.Now(),
	}
}

// NewEventWithAmount creates a new event with an amount value.
func NewEventWithAmount(eventType EventType, playerID, targetID, sourceID string, amount int) Event {
	evt := NewEvent(eventType, playerID, targetID, sourceID)
	evt.Amount = amount
	return evt
}
