package targeting

import "fmt"

// TargetValidator validates that selected targets are legal.
type TargetValidator struct {
	gameState TargetGameStateAccessor
}

// TargetGameStateAccessor provides access to match state needed for target validation.
type TargetGameStateAccessor interface {
	// FindPlayerForTarget finds player info by ID
	FindPlayerForTarget(playerID string) (TargetPlayerInfo, bool)
	// FindCardForTarget finds a card in play by instance ID
	FindCardForTarget(cardID string) (TargetCardInfo, bool)
}

// NewTargetValidator creates a new target validator.
func NewTargetValidator(gameState TargetGameStateAccessor) *TargetValidator {
	return &TargetValidator{
		gameState: gameState,
	}
}

// ValidateSelection checks an Attack's target: a non-eliminated opponent and,
// optionally, one of that opponent's cards in play.
func (tv *TargetValidator) ValidateSelection(sel TargetSelection) error {
	if tv == nil || tv.gameState == nil {
		return fmt.Errorf("target validator not initialized")
	}
	if sel.TargetID == "" {
		return fmt.Errorf("attack requires a target player")
	}
	if sel.TargetID == sel.AttackerID {
		return fmt.Errorf("cannot target yourself")
	}

	player, ok := tv.gameState.FindPlayerForTarget(sel.TargetID)
	if !ok {
		return fmt.Errorf("target %s not found", sel.TargetID)
	}
	if !player.Targetable() {
		return fmt.Errorf("target player %s has left or been eliminated", sel.TargetID)
	}

	if sel.Kind() == TargetTypeCard {
		card, ok := tv.gameState.FindCardForTarget(sel.TargetCardID)
		if !ok {
			return fmt.Errorf("target card %s is not in play", sel.TargetCardID)
		}
		if card.ControllerID != sel.TargetID {
			return fmt.Errorf("target card %s is not controlled by %s", card.Name, sel.TargetID)
		}
	}
	return nil
}
