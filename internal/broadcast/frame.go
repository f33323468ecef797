// Package broadcast fans committed match results out to subscribers. Each
// subscriber receives its own projection: public boards for everyone, a
// hand only for its owner, private events only for the player they concern.
package broadcast

import (
	"github.com/kubeclash/clash-server-go/internal/game"
	"github.com/kubeclash/clash-server-go/internal/game/rules"
)

// Frame is everything a match actor publishes after committing one action.
// It is built inside the actor and never mutated afterwards.
type Frame struct {
	MatchID  string
	Seq      int64
	Events   []rules.Event
	Affected []string
	View     game.PublicView
	Hands    map[string][]game.CardView
}

// Update is the per-viewer message sent to a subscriber.
type Update struct {
	MatchID        string                 `json:"match_id"`
	Seq            int64                  `json:"seq"`
	ViewerID       string                 `json:"viewer_id,omitempty"`
	Phase          game.PhaseSnapshot     `json:"phase"`
	Status         game.Status            `json:"status"`
	Winner         string                 `json:"winner,omitempty"`
	Events         []rules.Event          `json:"events"`
	Boards         []game.BoardView       `json:"boards"`
	Hand           []game.CardView        `json:"hand,omitempty"`
	Commons        []game.CardView        `json:"commons"`
	DeckCount      int                    `json:"deck_count"`
	DiscardCount   int                    `json:"discard_count"`
	Window         *rules.InterruptWindow `json:"window,omitempty"`
	ChaosPending   bool                   `json:"chaos_pending,omitempty"`
	AllowedActions []rules.ActionType     `json:"allowed_actions"`
}

// Terminal reports whether the update closes the match.
func (u Update) Terminal() bool {
	return u.Status.Terminal()
}

// For projects the frame for viewerID. An empty viewer is a spectator.
func (f Frame) For(viewerID string) Update {
	u := Update{
		MatchID:        f.MatchID,
		Seq:            f.Seq,
		ViewerID:       viewerID,
		Phase:          f.View.Phase,
		Status:         f.View.Status,
		Winner:         f.View.Winner,
		Events:         make([]rules.Event, 0, len(f.Events)),
		Boards:         make([]game.BoardView, 0, len(f.Affected)),
		Commons:        f.View.Commons,
		DeckCount:      f.View.DeckCount,
		DiscardCount:   f.View.DiscardCount,
		Window:         f.View.Window,
		ChaosPending:   f.View.ChaosPending,
		AllowedActions: f.View.AllowedActions,
	}
	u.Events = append(u.Events, VisibleEvents(f.Events, viewerID)...)
	affected := make(map[string]bool, len(f.Affected))
	for _, id := range f.Affected {
		affected[id] = true
	}
	for _, b := range f.View.Players {
		if affected[b.PlayerID] {
			u.Boards = append(u.Boards, b)
		}
	}
	if hand, ok := f.Hands[viewerID]; ok {
		u.Hand = hand
	}
	return u
}

// VisibleEvents drops the private events that do not concern viewerID.
func VisibleEvents(events []rules.Event, viewerID string) []rules.Event {
	out := make([]rules.Event, 0, len(events))
	for _, e := range events {
		if e.Private && e.PlayerID != viewerID {
			continue
		}
		out = append(out, e)
	}
	return out
}

// NewFrame builds a frame from a committed result and the match's state
// right after it. It must run on the goroutine that owns m.
func NewFrame(m *game.Match, seq int64, res game.Result) Frame {
	f := Frame{
		MatchID:  m.ID(),
		Seq:      seq,
		Events:   res.Events,
		Affected: res.Affected,
		View:     m.Public(),
		Hands:    make(map[string][]game.CardView, len(res.Affected)),
	}
	for _, id := range res.Affected {
		f.Hands[id] = m.HandView(id)
	}
	return f
}
