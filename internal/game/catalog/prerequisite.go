package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// Prerequisite is a capability gate: the player must control at least Count
// cards of Type. The zero value means no requirement.
type Prerequisite struct {
	Type  CardType `json:"type,omitempty"`
	Count int      `json:"count,omitempty"`
}

// None reports whether the prerequisite is empty.
func (p Prerequisite) None() bool {
	return p.Type == "" || p.Count <= 0
}

// Satisfied checks the gate against per-type counts of cards in play.
func (p Prerequisite) Satisfied(counts map[CardType]int) bool {
	if p.None() {
		return true
	}
	return counts[p.Type] >= p.Count
}

func (p Prerequisite) String() string {
	if p.None() {
		return ""
	}
	if p.Count == 1 {
		return fmt.Sprintf("Requires %s", p.Type)
	}
	return fmt.Sprintf("Requires %d %ss", p.Count, p.Type)
}

var prerequisitePattern = regexp.MustCompile(`^requires?\s+(?:(\d+|a|an|one|two|three|four)\s+)?(.+?)\.?$`)

// ParsePrerequisite reads descriptors such as "Requires 2 Nodes" or
// "requires Networking". Empty, "-" and "none" mean no requirement.
func ParsePrerequisite(s string) (Prerequisite, error) {
	text := strings.ToLower(strings.TrimSpace(s))
	switch text {
	case "", "-", "—", "none":
		return Prerequisite{}, nil
	}
	m := prerequisitePattern.FindStringSubmatch(text)
	if m == nil {
		return Prerequisite{}, fmt.Errorf("unrecognised prerequisite %q", s)
	}
	count := 1
	if m[1] != "" {
		n, err := parseCount(m[1])
		if err != nil {
			return Prerequisite{}, fmt.Errorf("prerequisite %q: %w", s, err)
		}
		count = n
	}
	name := strings.TrimSpace(m[2])
	t, err := ParseCardType(name)
	if err != nil && strings.HasSuffix(name, "s") {
		t, err = ParseCardType(strings.TrimSuffix(name, "s"))
	}
	if err != nil {
		return Prerequisite{}, fmt.Errorf("prerequisite %q: %w", s, err)
	}
	return Prerequisite{Type: t, Count: count}, nil
}
