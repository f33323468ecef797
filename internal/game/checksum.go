package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Checksum computes a deterministic digest of the full match state,
// hidden zones included. Two matches built from the same seed and fed the
// same actions produce the same checksum; a rejected action leaves it
// unchanged.
func (m *Match) Checksum() string {
	sum := sha256.Sum256([]byte(m.deterministicRepresentation()))
	return hex.EncodeToString(sum[:])
}

// deterministicRepresentation renders state that is independent of event
// ids and timestamps.
func (m *Match) deterministicRepresentation() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "MATCH:%s|%s|%s|%d|%s|%s|%d|%t|%s\n",
		m.id,
		m.mode,
		m.status,
		m.turn.Round(),
		m.turn.ActivePlayer(),
		m.turn.CurrentPhase(),
		m.threshold,
		m.chaosPending,
		m.winner,
	)

	for _, b := range m.players {
		fmt.Fprintf(&buf, "PLAYER:%s|%d|%d|%d|%d|%t|%t\n",
			b.PlayerID,
			b.Seat,
			b.Resources,
			b.Resilience,
			b.SLO,
			b.Eliminated,
			b.Left,
		)
		fmt.Fprintf(&buf, "  HAND:%s\n", instanceIDs(b.Hand))
		fmt.Fprintf(&buf, "  INFRA:%s\n", instanceIDs(b.Infrastructure))
		fmt.Fprintf(&buf, "  WORK:%s\n", instanceIDs(b.Workloads))
		fmt.Fprintf(&buf, "  EXT:%s\n", instanceIDs(b.Extensions))
		for _, inc := range b.Incidents.Incidents() {
			fmt.Fprintf(&buf, "  INC:%s|%s|%s|%d\n", inc.ID, inc.TargetID, inc.SourceID, inc.Damage)
		}
	}

	fmt.Fprintf(&buf, "DECK:%s\n", strings.Join(m.deck.order(), ","))
	fmt.Fprintf(&buf, "DISCARD:%s\n", strings.Join(m.deck.discardIDs(), ","))
	fmt.Fprintf(&buf, "COMMONS:%s\n", instanceIDs(m.commons))
	fmt.Fprintf(&buf, "RETIRED:%s\n", instanceIDs(m.retired))

	if w := m.windows.Active(); w != nil {
		fmt.Fprintf(&buf, "WINDOW:%s|%s|%s|%s|%s|%t\n", w.ID, w.AttackerID, w.TargetID, w.CardID, w.TargetCardID, w.Chaos)
	}
	if m.inFlight != nil {
		fmt.Fprintf(&buf, "INFLIGHT:%s\n", m.inFlight.ID)
	}
	fmt.Fprintf(&buf, "WINDOWS_CLOSED:%d\n", m.windows.Closed())
	return buf.String()
}

func instanceIDs(cards []*CardInstance) string {
	ids := make([]string, 0, len(cards))
	for _, ci := range cards {
		ids = append(ids, ci.ID)
	}
	return strings.Join(ids, ",")
}
