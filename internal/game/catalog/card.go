// Package catalog loads the static card table and compiles each card's
// authored effect text into the closed effect vocabulary.
package catalog

import (
	"fmt"
	"strings"

	"github.com/kubeclash/clash-server-go/internal/game/effects"
)

// CardType is one of the nine card families.
type CardType string

const (
	TypeNode         CardType = "Node"
	TypeControlPlane CardType = "ControlPlane"
	TypeStorage      CardType = "Storage"
	TypeNetworking   CardType = "Networking"
	TypeWorkload     CardType = "Workload"
	TypeAutomation   CardType = "Automation"
	TypeUpgrade      CardType = "Upgrade"
	TypeAttack       CardType = "Attack"
	TypeResponse     CardType = "Response"
)

var cardTypes = []CardType{
	TypeNode,
	TypeControlPlane,
	TypeStorage,
	TypeNetworking,
	TypeWorkload,
	TypeAutomation,
	TypeUpgrade,
	TypeAttack,
	TypeResponse,
}

// Types lists every card type in rulebook order.
func Types() []CardType {
	return append([]CardType(nil), cardTypes...)
}

// ParseCardType accepts the canonical names plus the spaced "Control Plane"
// spelling used in printed cards. Matching ignores case and spacing.
func ParseCardType(s string) (CardType, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	for _, t := range cardTypes {
		if strings.ToLower(string(t)) == key {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown card type %q", s)
}

// IsInfrastructure reports whether the type occupies an infrastructure slot.
func (t CardType) IsInfrastructure() bool {
	switch t {
	case TypeNode, TypeControlPlane, TypeStorage, TypeNetworking:
		return true
	}
	return false
}

// IsPersistent reports whether cards of this type stay in play once deployed.
func (t CardType) IsPersistent() bool {
	return t != TypeAttack && t != TypeResponse
}

// Card is an immutable catalog entry.
type Card struct {
	ID             string
	Name           string
	Type           CardType
	Cost           int
	SLO            int
	Quantity       int
	Prerequisite   Prerequisite
	RepairCost     int
	IncidentDamage int
	Text           string
	Instructions   []effects.Instruction
}

// PlayInstructions returns the instructions fired when the card is played.
func (c *Card) PlayInstructions() []effects.Instruction {
	return effects.Filter(c.Instructions, effects.TriggerPlay)
}

// RefreshInstructions returns the passive instructions fired each Refresh.
func (c *Card) RefreshInstructions() []effects.Instruction {
	return effects.Filter(c.Instructions, effects.TriggerRefresh)
}

// Cancels reports whether the card cancels an incoming Attack.
func (c *Card) Cancels() bool {
	return effects.HasCancel(c.Instructions)
}

// Repair returns the price to clear one incident sitting on this card.
func (c *Card) Repair() int {
	if c.RepairCost > 0 {
		return c.RepairCost
	}
	if c.Type == TypeControlPlane {
		return 2
	}
	return 1
}

// Damage returns the resilience loss per incident this card places.
func (c *Card) Damage() int {
	if c.IncidentDamage > 0 {
		return c.IncidentDamage
	}
	return 1
}

func (c *Card) String() string {
	return fmt.Sprintf("%s (%s, cost %d)", c.Name, c.Type, c.Cost)
}
