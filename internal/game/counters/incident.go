// Package counters tracks incident markers placed on a player's board or on
// individual cards in play.
package counters

import "fmt"

// Incident is a single marker. TargetID is the card instance it sits on, or
// empty when it sits on the board itself.
type Incident struct {
	ID       string `json:"id"`
	TargetID string `json:"target_id,omitempty"`
	SourceID string `json:"source_id,omitempty"`
	Damage   int    `json:"damage"`
}

// OnBoard reports whether the marker sits on the board rather than a card.
func (i Incident) OnBoard() bool {
	return i.TargetID == ""
}

// Ledger is the ordered set of incidents on one player's board.
type Ledger struct {
	owner   string
	next    int
	entries []Incident
}

// NewLedger creates an empty ledger; marker ids are prefixed with owner.
func NewLedger(owner string) *Ledger {
	return &Ledger{owner: owner}
}

// Add places count markers, each dealing damage (minimum 1), and returns
// the markers created.
func (l *Ledger) Add(targetID, sourceID string, damage, count int) []Incident {
	if count <= 0 {
		return nil
	}
	if damage <= 0 {
		damage = 1
	}
	added := make([]Incident, 0, count)
	for i := 0; i < count; i++ {
		l.next++
		inc := Incident{
			ID:       fmt.Sprintf("%s-inc-%d", l.owner, l.next),
			TargetID: targetID,
			SourceID: sourceID,
			Damage:   damage,
		}
		l.entries = append(l.entries, inc)
		added = append(added, inc)
	}
	return added
}

// Get looks up a marker by id.
func (l *Ledger) Get(id string) (Incident, bool) {
	for _, inc := range l.entries {
		if inc.ID == id {
			return inc, true
		}
	}
	return Incident{}, false
}

// Remove deletes the marker with the given id.
func (l *Ledger) Remove(id string) (Incident, bool) {
	for i, inc := range l.entries {
		if inc.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return inc, true
		}
	}
	return Incident{}, false
}

// RemoveOldest deletes up to n markers, oldest first, and returns them.
func (l *Ledger) RemoveOldest(n int) []Incident {
	if n <= 0 || len(l.entries) == 0 {
		return nil
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}
	removed := append([]Incident(nil), l.entries[:n]...)
	l.entries = append(l.entries[:0], l.entries[n:]...)
	return removed
}

// Len returns the number of markers.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// CountOn returns how many markers sit on targetID ("" for the board).
func (l *Ledger) CountOn(targetID string) int {
	n := 0
	for _, inc := range l.entries {
		if inc.TargetID == targetID {
			n++
		}
	}
	return n
}

// TotalDamage sums the damage of every marker.
func (l *Ledger) TotalDamage() int {
	total := 0
	for _, inc := range l.entries {
		total += inc.Damage
	}
	return total
}

// Incidents returns a copy of the markers in placement order.
func (l *Ledger) Incidents() []Incident {
	return append([]Incident(nil), l.entries...)
}

// Clear removes every marker and returns how many were removed.
func (l *Ledger) Clear() int {
	n := len(l.entries)
	l.entries = l.entries[:0]
	return n
}

