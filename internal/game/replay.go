package game

import (
	"fmt"

	"github.com/kubeclash/clash-server-go/internal/game/rules"
)

// Pseudo action types for turn log entries that do not go through Apply.
const (
	StepStart rules.ActionType = "start"
	StepLeave rules.ActionType = "leave"
	StepAbort rules.ActionType = "abort"
)

// Setup is everything needed to deal a match again: seats, mode and seed.
type Setup struct {
	MatchID      string        `json:"match_id"`
	Mode         Mode          `json:"mode"`
	Seed         uint64        `json:"seed"`
	Participants []Participant `json:"participants"`
}

// Setup returns the match's opening configuration.
func (m *Match) Setup() Setup {
	participants := make([]Participant, 0, len(m.players))
	for _, b := range m.players {
		participants = append(participants, Participant{PlayerID: b.PlayerID, DisplayName: b.DisplayName})
	}
	return Setup{
		MatchID:      m.id,
		Mode:         m.mode,
		Seed:         m.seed,
		Participants: participants,
	}
}

// Replay deals a match from setup and re-applies steps in order. Because
// shuffles and chaos reveals draw only from the seeded source, the result
// has the same Checksum as the match that was recorded.
//
// The match built so far is returned alongside any error.
func Replay(setup Setup, steps []Action, opts Options) (*Match, error) {
	if setup.Seed == 0 {
		return nil, fmt.Errorf("replay %s: setup carries no seed", setup.MatchID)
	}
	opts.Mode = setup.Mode
	opts.Seed = setup.Seed
	m, _, err := NewMatch(setup.MatchID, setup.Participants, opts)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", setup.MatchID, err)
	}

	for i, a := range steps {
		var err error
		switch a.Type {
		case StepLeave:
			_, err = m.Leave(a.ActorID)
		case StepAbort:
			_, err = m.Abort("replayed abort")
		default:
			_, err = m.Apply(a)
		}
		if err != nil {
			return m, fmt.Errorf("replay %s step %d (%s): %w", setup.MatchID, i+1, a, err)
		}
	}
	return m, nil
}
