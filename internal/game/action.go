package game

import (
	"fmt"
	"strings"

	"github.com/kubeclash/clash-server-go/internal/game/rules"
)

// Mode selects competitive play or play against the Chaos Monkey.
type Mode string

const (
	ModeCompetitive Mode = "competitive"
	ModeSolo        Mode = "solo"
	ModeCoop        Mode = "coop"
)

// ParseMode resolves a mode name; empty means competitive.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeCompetitive:
		return ModeCompetitive, nil
	case ModeSolo:
		return ModeSolo, nil
	case ModeCoop, "co-op":
		return ModeCoop, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Automated reports whether the Chaos Monkey takes part.
func (m Mode) Automated() bool {
	return m == ModeSolo || m == ModeCoop
}

// Status is the lifecycle state of a match.
type Status string

const (
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
	StatusAborted  Status = "aborted"
	StatusFaulted  Status = "faulted"
)

// Terminal reports whether the match accepts no further actions.
func (s Status) Terminal() bool {
	return s != StatusActive
}

// Reserved actor ids.
const (
	ChaosActorID  = "chaos-monkey"
	SystemActorID = "system"
)

// Payload carries the arguments of an action. Unused keys stay empty.
type Payload struct {
	CardID       string `json:"card_id,omitempty"`
	TargetID     string `json:"target_id,omitempty"`
	TargetCardID string `json:"target_card_id,omitempty"`
	IncidentID   string `json:"incident_id,omitempty"`
	WindowID     string `json:"window_id,omitempty"`
}

// Action is one inbound message for a match.
type Action struct {
	MatchID string           `json:"match_id"`
	ActorID string           `json:"actor_id"`
	Type    rules.ActionType `json:"action_type"`
	Payload Payload          `json:"payload"`
}

func (a Action) String() string {
	return fmt.Sprintf("%s by %s", a.Type, a.ActorID)
}
