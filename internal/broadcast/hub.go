package broadcast

import (
	"sync"

	"go.uber.org/zap"
)

// Subscription receives updates for one viewer of one match.
type Subscription struct {
	MatchID  string
	ViewerID string

	hub  *Hub
	send chan Update
}

// Updates is closed when the subscription ends: on Close, when the match
// is removed, or when the subscriber falls too far behind.
func (s *Subscription) Updates() <-chan Update {
	return s.send
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Hub tracks subscribers per match.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	logger *zap.Logger
}

// NewHub creates a hub whose subscribers buffer up to buffer updates.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers viewerID for matchID. An empty viewer is a spectator.
func (h *Hub) Subscribe(matchID, viewerID string) *Subscription {
	sub := &Subscription{
		MatchID:  matchID,
		ViewerID: viewerID,
		hub:      h,
		send:     make(chan Update, h.buffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[matchID] == nil {
		h.subs[matchID] = make(map[*Subscription]struct{})
	}
	h.subs[matchID][sub] = struct{}{}
	return sub
}

// Publish delivers f to every subscriber of its match without blocking.
// Subscribers whose buffer is full are dropped; they must resubscribe and
// resynchronise from a fresh view. A terminal frame is the last one: every
// subscription of the match is closed right after it is queued.
func (h *Hub) Publish(f Frame) {
	var slow []*Subscription
	h.mu.RLock()
	for sub := range h.subs[f.MatchID] {
		select {
		case sub.send <- f.For(sub.ViewerID):
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.logger.Warn("dropping slow subscriber",
			zap.String("match_id", sub.MatchID),
			zap.String("viewer_id", sub.ViewerID),
			zap.Int64("seq", f.Seq),
		)
		h.remove(sub)
	}
	if f.View.Status.Terminal() {
		h.CloseMatch(f.MatchID)
	}
}

// CloseMatch ends every subscription of matchID.
func (h *Hub) CloseMatch(matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[matchID] {
		close(sub.send)
	}
	delete(h.subs, matchID)
}

// Subscribers counts the live subscriptions of matchID.
func (h *Hub) Subscribers(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[matchID])
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.subs[sub.MatchID]
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.send)
	if len(subs) == 0 {
		delete(h.subs, sub.MatchID)
	}
}
