package game

import (
	"github.com/kubeclash/clash-server-go/internal/game/catalog"
	"github.com/kubeclash/clash-server-go/internal/game/counters"
	"github.com/kubeclash/clash-server-go/internal/game/rules"
)

// CardView is the public face of a card instance.
type CardView struct {
	InstanceID string           `json:"instance_id"`
	CardID     string           `json:"card_id"`
	Name       string           `json:"name"`
	Type       catalog.CardType `json:"type"`
	Cost       int              `json:"cost"`
	SLO        int              `json:"slo,omitempty"`
}

func cardView(ci *CardInstance) CardView {
	return CardView{
		InstanceID: ci.ID,
		CardID:     ci.Card.ID,
		Name:       ci.Card.Name,
		Type:       ci.Card.Type,
		Cost:       ci.Card.Cost,
		SLO:        ci.Card.SLO,
	}
}

func cardViews(cards []*CardInstance) []CardView {
	out := make([]CardView, 0, len(cards))
	for _, ci := range cards {
		out = append(out, cardView(ci))
	}
	return out
}

// BoardView is the public projection of a PlayerBoard. Hands are reduced
// to a count.
type BoardView struct {
	PlayerID       string              `json:"player_id"`
	DisplayName    string              `json:"display_name"`
	Seat           int                 `json:"seat"`
	Infrastructure []CardView          `json:"infrastructure"`
	Workloads      []CardView          `json:"workloads"`
	Extensions     []CardView          `json:"extensions"`
	HandCount      int                 `json:"hand_count"`
	Resources      int                 `json:"resources"`
	Resilience     int                 `json:"resilience"`
	ResilienceMax  int                 `json:"resilience_max"`
	SLO            int                 `json:"slo"`
	Incidents      []counters.Incident `json:"incidents"`
	Eliminated     bool                `json:"eliminated,omitempty"`
	Left           bool                `json:"left,omitempty"`
}

// PhaseSnapshot identifies where the match stands.
type PhaseSnapshot struct {
	ActivePlayer string      `json:"active_player"`
	Phase        rules.Phase `json:"phase"`
	Round        int         `json:"round"`
	Gate         string      `json:"gate"`
}

// PublicView is what any observer may see. Deck contents are never
// revealed, only counts.
type PublicView struct {
	MatchID        string                 `json:"match_id"`
	Mode           Mode                   `json:"mode"`
	Status         Status                 `json:"status"`
	Phase          PhaseSnapshot          `json:"phase"`
	Players        []BoardView            `json:"players"`
	Commons        []CardView             `json:"commons"`
	DeckCount      int                    `json:"deck_count"`
	DiscardCount   int                    `json:"discard_count"`
	RetiredCount   int                    `json:"retired_count"`
	Winner         string                 `json:"winner,omitempty"`
	Threshold      int                    `json:"threshold"`
	Window         *rules.InterruptWindow `json:"window,omitempty"`
	ChaosPending   bool                   `json:"chaos_pending,omitempty"`
	AllowedActions []rules.ActionType     `json:"allowed_actions"`
}

// PlayerView adds the viewer's own hand to the public view.
type PlayerView struct {
	PublicView
	ViewerID string     `json:"viewer_id"`
	Hand     []CardView `json:"hand"`
}

// Snapshot returns the current phase snapshot.
func (m *Match) Snapshot() PhaseSnapshot {
	return PhaseSnapshot{
		ActivePlayer: m.turn.ActivePlayer(),
		Phase:        m.turn.CurrentPhase(),
		Round:        m.turn.Round(),
		Gate:         m.Gate().String(),
	}
}

// Board projects one player's board.
func (m *Match) Board(playerID string) (BoardView, bool) {
	b := m.byID[playerID]
	if b == nil {
		return BoardView{}, false
	}
	return BoardView{
		PlayerID:       b.PlayerID,
		DisplayName:    b.DisplayName,
		Seat:           b.Seat,
		Infrastructure: cardViews(b.Infrastructure),
		Workloads:      cardViews(b.Workloads),
		Extensions:     cardViews(b.Extensions),
		HandCount:      len(b.Hand),
		Resources:      b.Resources,
		Resilience:     b.Resilience,
		ResilienceMax:  b.ResilienceMax(),
		SLO:            b.SLO,
		Incidents:      b.Incidents.Incidents(),
		Eliminated:     b.Eliminated,
		Left:           b.Left,
	}, true
}

// Public builds the spectator projection.
func (m *Match) Public() PublicView {
	v := PublicView{
		MatchID:        m.id,
		Mode:           m.mode,
		Status:         m.status,
		Phase:          m.Snapshot(),
		Commons:        cardViews(m.commons),
		DeckCount:      m.deck.Len(),
		DiscardCount:   m.deck.DiscardLen(),
		RetiredCount:   len(m.retired),
		Winner:         m.winner,
		Threshold:      m.threshold,
		ChaosPending:   m.chaosPending,
		AllowedActions: m.AllowedActions(),
	}
	if w := m.windows.Active(); w != nil {
		copied := *w
		v.Window = &copied
	}
	for _, b := range m.players {
		bv, _ := m.Board(b.PlayerID)
		v.Players = append(v.Players, bv)
	}
	return v
}

// ViewFor returns the public view plus viewerID's hand. Unknown viewers
// get an empty hand.
func (m *Match) ViewFor(viewerID string) PlayerView {
	return PlayerView{PublicView: m.Public(), ViewerID: viewerID, Hand: m.HandView(viewerID)}
}

// HandView lists playerID's hand; empty for unknown players.
func (m *Match) HandView(playerID string) []CardView {
	b := m.byID[playerID]
	if b == nil {
		return []CardView{}
	}
	return cardViews(b.Hand)
}
