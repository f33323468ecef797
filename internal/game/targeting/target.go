// Package targeting validates attack targets and picks targets for the
// automated opponent.
package targeting

import "sort"

// TargetType represents the kind of object an Attack may name.
type TargetType string

const (
	// TargetTypePlayer targets an opponent's board
	TargetTypePlayer TargetType = "PLAYER"
	// TargetTypeCard targets a card in play on the opponent's board
	TargetTypeCard TargetType = "CARD"
)

// TargetPlayerInfo provides information about a player for target validation.
type TargetPlayerInfo struct {
	PlayerID   string
	Seat       int
	SLO        int
	Resilience int
	Eliminated bool
	Left       bool
}

// Targetable reports whether the player may be attacked at all.
func (p TargetPlayerInfo) Targetable() bool {
	return !p.Eliminated && !p.Left
}

// TargetCardInfo provides information about a card in play.
type TargetCardInfo struct {
	ID           string
	Name         string
	Type         string
	ControllerID string
}

// TargetSelection is an attacker's choice of target.
type TargetSelection struct {
	AttackerID   string
	TargetID     string
	TargetCardID string
}

// Kind reports whether the selection names a card or only a board.
func (ts TargetSelection) Kind() TargetType {
	if ts.TargetCardID != "" {
		return TargetTypeCard
	}
	return TargetTypePlayer
}

// Opponents returns the targetable players other than attackerID in seat order.
func Opponents(attackerID string, players []TargetPlayerInfo) []TargetPlayerInfo {
	var out []TargetPlayerInfo
	for _, p := range players {
		if p.PlayerID != attackerID && p.Targetable() {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out
}

// ChaosTarget picks the automated opponent's victim: highest SLO, then
// lowest resilience, then earliest seat.
func ChaosTarget(players []TargetPlayerInfo) (string, bool) {
	var best *TargetPlayerInfo
	for i := range players {
		p := &players[i]
		if !p.Targetable() {
			continue
		}
		if best == nil || better(*p, *best) {
			best = p
		}
	}
	if best == nil {
		return "", false
	}
	return best.PlayerID, true
}

func better(a, b TargetPlayerInfo) bool {
	if a.SLO != b.SLO {
		return a.SLO > b.SLO
	}
	if a.Resilience != b.Resilience {
		return a.Resilience < b.Resilience
	}
	return a.Seat < b.Seat
}
