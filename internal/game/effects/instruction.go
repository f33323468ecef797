package effects

import (
	"fmt"
	"strings"
)

// Op is one verb of the closed effect vocabulary. Card text is compiled into
// these at catalog load time; nothing else is ever interpreted.
type Op string

const (
	OpGainResource   Op = "gain_resource"
	OpAddIncident    Op = "add_incident"
	OpStealResource  Op = "steal_resource"
	OpReduceSLO      Op = "reduce_slo"
	OpDrawCard       Op = "draw_card"
	OpRemoveIncident Op = "remove_incident"
	OpCancel         Op = "cancel"
)

var opNames = map[Op]string{
	OpGainResource:   "GainResource",
	OpAddIncident:    "AddIncident",
	OpStealResource:  "StealResource",
	OpReduceSLO:      "ReduceSLO",
	OpDrawCard:       "DrawCard",
	OpRemoveIncident: "RemoveIncident",
	OpCancel:         "Cancel",
}

// Scope selects which player an instruction affects.
type Scope string

const (
	ScopeSelf   Scope = "self"
	ScopeTarget Scope = "target"
)

// Trigger selects when an instruction fires.
type Trigger string

const (
	// TriggerPlay fires when the card is played or an Attack resolves.
	TriggerPlay Trigger = "play"
	// TriggerRefresh fires during its controller's Refresh while the card is in play.
	TriggerRefresh Trigger = "refresh"
)

// Instruction is a single compiled effect.
type Instruction struct {
	Op      Op      `json:"op" jsonschema:"enum=gain_resource,enum=add_incident,enum=steal_resource,enum=reduce_slo,enum=draw_card,enum=remove_incident,enum=cancel"`
	Scope   Scope   `json:"scope,omitempty" jsonschema:"enum=self,enum=target"`
	Amount  int     `json:"amount,omitempty"`
	Trigger Trigger `json:"trigger,omitempty" jsonschema:"enum=play,enum=refresh"`
}

func GainResource(n int) Instruction {
	return Instruction{Op: OpGainResource, Scope: ScopeSelf, Amount: n, Trigger: TriggerPlay}
}

func AddIncident(scope Scope, n int) Instruction {
	return Instruction{Op: OpAddIncident, Scope: scope, Amount: n, Trigger: TriggerPlay}
}

func StealResource(n int) Instruction {
	return Instruction{Op: OpStealResource, Scope: ScopeTarget, Amount: n, Trigger: TriggerPlay}
}

func ReduceSLO(scope Scope, n int) Instruction {
	return Instruction{Op: OpReduceSLO, Scope: scope, Amount: n, Trigger: TriggerPlay}
}

func DrawCard(n int) Instruction {
	return Instruction{Op: OpDrawCard, Scope: ScopeSelf, Amount: n, Trigger: TriggerPlay}
}

func RemoveIncident(scope Scope, n int) Instruction {
	return Instruction{Op: OpRemoveIncident, Scope: scope, Amount: n, Trigger: TriggerPlay}
}

func Cancel() Instruction {
	return Instruction{Op: OpCancel, Trigger: TriggerPlay}
}

// OnRefresh returns a copy of the instruction that fires during Refresh.
func (i Instruction) OnRefresh() Instruction {
	i.Trigger = TriggerRefresh
	return i
}

// Normalize fills in default scope and trigger for hand-authored entries.
func (i Instruction) Normalize() Instruction {
	if i.Trigger == "" {
		i.Trigger = TriggerPlay
	}
	if i.Scope == "" {
		switch i.Op {
		case OpAddIncident, OpStealResource, OpReduceSLO:
			i.Scope = ScopeTarget
		case OpCancel:
		default:
			i.Scope = ScopeSelf
		}
	}
	return i
}

// Validate checks the instruction against the vocabulary.
func (i Instruction) Validate() error {
	if _, ok := opNames[i.Op]; !ok {
		return fmt.Errorf("unknown effect op %q", i.Op)
	}
	switch i.Trigger {
	case TriggerPlay, TriggerRefresh:
	default:
		return fmt.Errorf("%s: unknown trigger %q", i, i.Trigger)
	}
	if i.Op == OpCancel {
		if i.Trigger != TriggerPlay {
			return fmt.Errorf("%s: cancel only fires on play", i)
		}
		return nil
	}
	if i.Amount <= 0 {
		return fmt.Errorf("%s: amount must be positive", i)
	}
	switch i.Scope {
	case ScopeSelf, ScopeTarget:
	default:
		return fmt.Errorf("%s: unknown scope %q", i, i.Scope)
	}
	switch i.Op {
	case OpGainResource, OpDrawCard:
		if i.Scope != ScopeSelf {
			return fmt.Errorf("%s: only applies to self", i)
		}
	case OpStealResource:
		if i.Scope != ScopeTarget {
			return fmt.Errorf("%s: only applies to a target", i)
		}
	}
	if i.Trigger == TriggerRefresh && i.Scope == ScopeTarget {
		return fmt.Errorf("%s: refresh effects cannot have a target", i)
	}
	return nil
}

func (i Instruction) String() string {
	name, ok := opNames[i.Op]
	if !ok {
		name = string(i.Op)
	}
	if i.Op == OpCancel {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	b.WriteString("(")
	if i.Scope != "" {
		b.WriteString(string(i.Scope))
		b.WriteString(",")
	}
	fmt.Fprintf(&b, "%d)", i.Amount)
	if i.Trigger == TriggerRefresh {
		b.WriteString("@refresh")
	}
	return b.String()
}

// Filter returns the instructions that fire on trigger.
func Filter(instructions []Instruction, trigger Trigger) []Instruction {
	var out []Instruction
	for _, i := range instructions {
		if i.Trigger == trigger {
			out = append(out, i)
		}
	}
	return out
}

// HasCancel reports whether any instruction cancels an incoming Attack.
func HasCancel(instructions []Instruction) bool {
	for _, i := range instructions {
		if i.Op == OpCancel {
			return true
		}
	}
	return false
}

