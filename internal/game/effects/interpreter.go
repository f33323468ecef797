package effects

import (
	"fmt"

	"go.uber.org/zap"
)

// Host is the mutable match surface instructions are applied against. Each
// method returns the amount actually applied after clamping; players the
// host does not know (such as the Chaos Monkey) receive nothing.
type Host interface {
	GainResources(playerID string, n int) int
	StealResources(fromID, toID string, n int) int
	AddIncidents(playerID, targetCardID, sourceCardID string, n int) int
	RemoveIncidents(playerID string, n int) int
	ReduceSLO(playerID string, n int) int
	DrawCards(playerID string, n int) int
}

// Context binds scopes to concrete players for one application.
type Context struct {
	ActorID      string
	TargetID     string
	TargetCardID string
	SourceCardID string
}

// Applied records the effect of a single instruction.
type Applied struct {
	Instruction Instruction `json:"instruction"`
	PlayerID    string      `json:"player_id,omitempty"`
	Amount      int         `json:"amount"`
}

// Outcome summarises an application.
type Outcome struct {
	Cancelled bool
	Applied   []Applied
}

// Interpreter applies compiled instruction lists. It holds no match state.
type Interpreter struct {
	logger *zap.Logger
}

// NewInterpreter creates an interpreter.
func NewInterpreter(logger *zap.Logger) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{logger: logger}
}

// Apply validates every instruction, then applies them in order. Nothing is
// applied when validation fails.
func (in *Interpreter) Apply(host Host, ctx Context, instructions []Instruction) (Outcome, error) {
	var out Outcome
	if host == nil {
		return out, fmt.Errorf("effect host is nil")
	}
	for _, instr := range instructions {
		if err := instr.Validate(); err != nil {
			return out, err
		}
		if instr.Scope == ScopeTarget && ctx.TargetID == "" {
			return out, fmt.Errorf("%s requires a target", instr)
		}
	}

	for _, instr := range instructions {
		recipient := ctx.ActorID
		if instr.Scope == ScopeTarget {
			recipient = ctx.TargetID
		}

		applied := Applied{Instruction: instr, PlayerID: recipient}
		switch instr.Op {
		case OpGainResource:
			applied.Amount = host.GainResources(recipient, instr.Amount)
		case OpAddIncident:
			cardID := ""
			if instr.Scope == ScopeTarget {
				cardID = ctx.TargetCardID
			}
			applied.Amount = host.AddIncidents(recipient, cardID, ctx.SourceCardID, instr.Amount)
		case OpStealResource:
			applied.Amount = host.StealResources(recipient, ctx.ActorID, instr.Amount)
		case OpReduceSLO:
			applied.Amount = host.ReduceSLO(recipient, instr.Amount)
		case OpDrawCard:
			applied.Amount = host.DrawCards(recipient, instr.Amount)
		case OpRemoveIncident:
			applied.Amount = host.RemoveIncidents(recipient, instr.Amount)
		case OpCancel:
			out.Cancelled = true
			applied.PlayerID = ""
		}
		out.Applied = append(out.Applied, applied)

		in.logger.Debug("effect applied",
			zap.String("instruction", instr.String()),
			zap.String("player_id", applied.PlayerID),
			zap.String("source_id", ctx.SourceCardID),
			zap.Int("amount", applied.Amount))
	}
	return out, nil
}
