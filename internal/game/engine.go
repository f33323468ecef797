package game

import (
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kubeclash/clash-server-go/internal/game/rules"
)

// Result describes what one accepted action changed.
type Result struct {
	Events []rules.Event
	// Affected lists the players whose boards changed, in seat order.
	Affected []string
	// Window is set when the action opened an interrupt window.
	Window *rules.InterruptWindow
	// Closed is the id of a window the action closed.
	Closed string
}

// Apply validates and applies one action. A *ValidationError leaves the
// match untouched. Any other error means the match is now faulted.
func (m *Match) Apply(a Action) (Result, error) {
	if m.status.Terminal() {
		return Result{}, reject(CodeMatchOver, "match is %s", m.status)
	}
	if !knownAction(a.Type) {
		return Result{}, reject(CodeUnknownAction, "unknown action type %q", a.Type)
	}
	if a.Type == rules.ActionWindowTimeout && !m.windows.IsCurrent(a.Payload.WindowID) {
		return Result{}, reject(CodeWindowClosed, "window %q is not open", a.Payload.WindowID)
	}
	gate := m.Gate()
	phase := m.turn.CurrentPhase()
	if !rules.Allowed(phase, gate, a.Type) {
		return Result{}, reject(CodeWrongPhase, "%s not allowed during %s (%s)", a.Type, phase, gate)
	}
	if err := m.authorize(a, gate); err != nil {
		return Result{}, err
	}

	m.begin()
	err := m.dispatch(a, gate)
	if err == nil {
		err = m.err
	}
	if err != nil {
		if _, ok := AsValidation(err); ok {
			m.discard()
			return Result{}, err
		}
		return m.fault(err), err
	}
	if err := m.checkInvariants(); err != nil {
		return m.fault(err), err
	}

	m.logger.Debug("action applied",
		zap.String("player_id", a.ActorID),
		zap.String("action_type", string(a.Type)),
		zap.String("phase", m.turn.CurrentPhase().String()),
		zap.Int("events", len(m.pending)))
	return m.commit(), nil
}

func knownAction(t rules.ActionType) bool {
	for _, known := range rules.AllActions() {
		if known == t {
			return true
		}
	}
	return false
}

func (m *Match) authorize(a Action, gate rules.Gate) error {
	switch gate {
	case rules.GateChaosReveal:
		if a.ActorID != ChaosActorID {
			return reject(CodeNotYourTurn, "only the Chaos Monkey may act at the round boundary")
		}
		return nil
	case rules.GateInterrupt:
		if a.Type == rules.ActionWindowTimeout {
			if a.ActorID != SystemActorID {
				return reject(CodeNotYourTurn, "window timeouts are issued by the system")
			}
			return nil
		}
		if err := m.checkSeat(a.ActorID); err != nil {
			return err
		}
		if w := m.windows.Active(); a.ActorID != w.TargetID {
			return reject(CodeNotYourTurn, "only %s may answer window %s", w.TargetID, w.ID)
		}
		return nil
	default:
		if err := m.checkSeat(a.ActorID); err != nil {
			return err
		}
		if a.ActorID != m.turn.ActivePlayer() {
			return reject(CodeNotYourTurn, "it is %s's turn", m.turn.ActivePlayer())
		}
		return nil
	}
}

func (m *Match) checkSeat(playerID string) error {
	b := m.byID[playerID]
	if b == nil {
		return reject(CodeUnknownPlayer, "player %q is not seated", playerID)
	}
	if m.turn.IsEliminated(playerID) {
		return reject(CodeEliminated, "player %s has been eliminated", playerID)
	}
	return nil
}

func (m *Match) dispatch(a Action, gate rules.Gate) error {
	switch a.Type {
	case rules.ActionRemoveIncident:
		return m.removeIncident(a)
	case rules.ActionDiscardForResource:
		return m.discardForResource(a)
	case rules.ActionPlayCard:
		return m.playCard(a)
	case rules.ActionBuyCard:
		return m.buyCard(a)
	case rules.ActionPlayAttack:
		return m.playAttack(a)
	case rules.ActionPayRepair:
		return m.payRepair(a)
	case rules.ActionPlayResponse:
		return m.playResponse(a)
	case rules.ActionWindowTimeout:
		return m.resolveAttack(false)
	case rules.ActionChaosReveal:
		return m.chaosReveal()
	case rules.ActionPass:
		if gate == rules.GateInterrupt {
			return m.resolveAttack(false)
		}
		return m.pass()
	}
	return reject(CodeUnknownAction, "unknown action type %q", a.Type)
}

// Abort ends the match with no winner.
func (m *Match) Abort(reason string) (Result, error) {
	if m.status.Terminal() {
		return Result{}, reject(CodeMatchOver, "match is %s", m.status)
	}
	m.begin()
	m.status = StatusAborted
	evt := rules.NewEvent(rules.EventMatchAborted, "", "", "")
	evt.Data = reason
	m.emit(evt)
	m.logger.Info("match aborted", zap.String("reason", reason))
	return m.commit(), nil
}

func (m *Match) fault(err error) Result {
	m.discard()
	m.status = StatusFaulted
	m.begin()
	evt := rules.NewEvent(rules.EventMatchFaulted, "", "", "")
	evt.Data = err.Error()
	m.emit(evt)
	m.logger.Error("match faulted", zap.Error(err))
	return m.commit()
}

// fail records a logic defect found while applying automatic steps. The
// current action then faults the match.
func (m *Match) fail(err error) {
	if m.err == nil {
		m.err = err
	}
}

func (m *Match) begin() {
	m.err = nil
	m.pending = m.pending[:0]
	m.touched = make(map[string]bool)
	m.opened = nil
	m.closed = ""
}

func (m *Match) discard() {
	m.pending = m.pending[:0]
	m.touched = nil
	m.opened = nil
	m.closed = ""
}

// commit publishes the pending events and returns the action's result.
func (m *Match) commit() Result {
	res := Result{
		Events: append([]rules.Event(nil), m.pending...),
		Window: m.opened,
		Closed: m.closed,
	}
	for id := range m.touched {
		res.Affected = append(res.Affected, id)
	}
	sort.Slice(res.Affected, func(i, j int) bool {
		return m.turn.Seat(res.Affected[i]) < m.turn.Seat(res.Affected[j])
	})
	m.events.Publish(res.Events...)
	m.discard()
	return res
}

func (m *Match) emit(evt rules.Event) {
	evt.ID = uuid.NewString()
	if evt.Metadata == nil {
		evt.Metadata = map[string]string{}
	}
	evt.Metadata["match_id"] = m.id
	m.pending = append(m.pending, evt)
	if _, ok := m.byID[evt.PlayerID]; ok {
		m.touch(evt.PlayerID)
	}
	if _, ok := m.byID[evt.TargetID]; ok {
		m.touch(evt.TargetID)
	}
}

func (m *Match) touch(playerID string) {
	if m.touched != nil {
		m.touched[playerID] = true
	}
}

// effectHost adapts the match to effects.Host. Players the match does not
// seat, such as the Chaos Monkey, receive nothing.
type effectHost struct {
	m *Match
}

func (h effectHost) live(playerID string) *PlayerBoard {
	b := h.m.byID[playerID]
	if b == nil || b.Eliminated {
		return nil
	}
	return b
}

func (h effectHost) GainResources(playerID string, n int) int {
	b := h.live(playerID)
	if b == nil || n <= 0 {
		return 0
	}
	b.Resources += n
	h.m.emit(rules.NewEventWithAmount(rules.EventResourcesGained, playerID, "", "", n))
	return n
}

func (h effectHost) StealResources(fromID, toID string, n int) int {
	from := h.live(fromID)
	if from == nil {
		return 0
	}
	n = min(n, from.Resources)
	if n <= 0 {
		return 0
	}
	from.Resources -= n
	if to := h.live(toID); to != nil {
		to.Resources += n
	}
	h.m.emit(rules.NewEventWithAmount(rules.EventResourcesStolen, toID, fromID, "", n))
	return n
}

func (h effectHost) AddIncidents(playerID, targetCardID, sourceCardID string, n int) int {
	b := h.live(playerID)
	if b == nil || n <= 0 {
		return 0
	}
	if targetCardID != "" && b.PlayedCard(targetCardID) == nil {
		targetCardID = ""
	}
	damage := 1
	if src, ok := h.m.instances[sourceCardID]; ok {
		damage = src.Card.Damage()
	}
	for _, inc := range b.Incidents.Add(targetCardID, sourceCardID, damage, n) {
		evt := rules.NewEventWithAmount(rules.EventIncidentAdded, playerID, inc.TargetID, sourceCardID, inc.Damage)
		evt.Data = inc.ID
		h.m.emit(evt)
	}
	return n
}

func (h effectHost) RemoveIncidents(playerID string, n int) int {
	b := h.live(playerID)
	if b == nil {
		return 0
	}
	removed := b.Incidents.RemoveOldest(n)
	for _, inc := range removed {
		evt := rules.NewEvent(rules.EventIncidentRemoved, playerID, inc.TargetID, inc.SourceID)
		evt.Data = inc.ID
		h.m.emit(evt)
	}
	return len(removed)
}

func (h effectHost) ReduceSLO(playerID string, n int) int {
	b := h.live(playerID)
	if b == nil {
		return 0
	}
	n = min(n, b.SLO)
	if n <= 0 {
		return 0
	}
	b.SLO -= n
	h.m.emit(rules.NewEventWithAmount(rules.EventSLOChanged, playerID, "", "", -n))
	return n
}

func (h effectHost) DrawCards(playerID string, n int) int {
	b := h.live(playerID)
	if b == nil {
		return 0
	}
	drawn := 0
	for i := 0; i < n; i++ {
		if !h.m.drawInto(b) {
			break
		}
		drawn++
	}
	return drawn
}

// drawTop takes the top card of the deck, announcing a reshuffle of the
// discard pile. It returns nil once both piles are empty.
func (m *Match) drawTop() *CardInstance {
	if m.deck.Exhausted() {
		return nil
	}
	card, reshuffled := m.deck.Draw()
	if reshuffled {
		m.emit(rules.NewEventWithAmount(rules.EventDeckReshuffled, "", "", "", m.deck.Len()+1))
	}
	return card
}

// drawInto moves the top card of the deck into b's hand. It reports false
// when the deck and discard pile are both empty.
func (m *Match) drawInto(b *PlayerBoard) bool {
	card := m.drawTop()
	if card == nil {
		evt := rules.NewEvent(rules.EventResourceExhausted, b.PlayerID, "", "")
		evt.Data = "deck_exhausted"
		m.emit(evt)
		return false
	}
	b.Hand = append(b.Hand, card)

	evt := rules.NewEvent(rules.EventCardDrawn, b.PlayerID, "", card.ID)
	evt.Data = card.Card.ID
	evt.Private = true
	m.emit(evt)
	return true
}
