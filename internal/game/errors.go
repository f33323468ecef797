package game

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a rejected action.
type ErrorCode string

const (
	CodeUnknownAction         ErrorCode = "unknown_action"
	CodeWrongPhase            ErrorCode = "wrong_phase"
	CodeNotYourTurn           ErrorCode = "not_your_turn"
	CodeUnknownPlayer         ErrorCode = "unknown_player"
	CodeEliminated            ErrorCode = "eliminated"
	CodeInsufficientResources ErrorCode = "insufficient_resources"
	CodePrerequisiteUnmet     ErrorCode = "prerequisite_unmet"
	CodeInvalidTarget         ErrorCode = "invalid_target"
	CodeCardNotFound          ErrorCode = "card_not_found"
	CodeInvalidCardType       ErrorCode = "invalid_card_type"
	CodeIncidentNotFound      ErrorCode = "incident_not_found"
	CodeWindowClosed          ErrorCode = "window_closed"
	CodeMatchOver             ErrorCode = "match_over"
	CodeInvalidSetup          ErrorCode = "invalid_setup"
)

// ValidationError is a rejected action. The match state is untouched.
type ValidationError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func reject(code ErrorCode, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// InvariantViolation signals a logic defect. The match is faulted and
// accepts no further actions.
type InvariantViolation struct {
	Invariant string
	Detail    string
	Err       error
}

func (e *InvariantViolation) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invariant %s violated: %s: %v", e.Invariant, e.Detail, e.Err)
	}
	return fmt.Sprintf("invariant %s violated: %s", e.Invariant, e.Detail)
}

func (e *InvariantViolation) Unwrap() error {
	return e.Err
}

// AsValidation extracts a ValidationError from err.
func AsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// AsInvariant extracts an InvariantViolation from err.
func AsInvariant(err error) (*InvariantViolation, bool) {
	var ierr *InvariantViolation
	if errors.As(err, &ierr) {
		return ierr, true
	}
	return nil, false
}
