package server

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kubeclash/clash-server-go/internal/game"
	"github.com/kubeclash/clash-server-go/internal/match"
)

// ErrorBody is the transport neutral form of a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorBody classifies err for clients. Validation codes pass through
// unchanged; everything else gets a coarse code.
func errorBody(err error) ErrorBody {
	if verr, ok := game.AsValidation(err); ok {
		return ErrorBody{Code: string(verr.Code), Message: verr.Message}
	}
	if _, ok := game.AsInvariant(err); ok {
		return ErrorBody{Code: "internal", Message: "match faulted"}
	}
	switch {
	case errors.Is(err, match.ErrMatchNotFound):
		return ErrorBody{Code: "match_not_found", Message: err.Error()}
	case errors.Is(err, match.ErrPlayerNotFound):
		return ErrorBody{Code: "player_not_found", Message: err.Error()}
	case errors.Is(err, match.ErrQueueFull), errors.Is(err, match.ErrTooManyMatches):
		return ErrorBody{Code: "busy", Message: err.Error()}
	case errors.Is(err, match.ErrMatchStarted), errors.Is(err, match.ErrNotStarted),
		errors.Is(err, match.ErrAlreadyJoined), errors.Is(err, match.ErrSeatsFull):
		return ErrorBody{Code: "invalid_state", Message: err.Error()}
	case errors.Is(err, match.ErrStopped):
		return ErrorBody{Code: "unavailable", Message: err.Error()}
	}
	return ErrorBody{Code: "internal", Message: err.Error()}
}

var invalidArgument = map[game.ErrorCode]bool{
	game.CodeUnknownAction:    true,
	game.CodeUnknownPlayer:    true,
	game.CodeInvalidTarget:    true,
	game.CodeCardNotFound:     true,
	game.CodeInvalidCardType:  true,
	game.CodeIncidentNotFound: true,
	game.CodeInvalidSetup:     true,
}

// toStatus maps domain errors onto gRPC status codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	if verr, ok := game.AsValidation(err); ok {
		if invalidArgument[verr.Code] {
			return status.Error(codes.InvalidArgument, verr.Error())
		}
		return status.Error(codes.FailedPrecondition, verr.Error())
	}
	if _, ok := game.AsInvariant(err); ok {
		return status.Error(codes.Internal, "match faulted")
	}
	switch {
	case errors.Is(err, match.ErrMatchNotFound), errors.Is(err, match.ErrPlayerNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, match.ErrAlreadyJoined):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, match.ErrMatchStarted), errors.Is(err, match.ErrNotStarted), errors.Is(err, match.ErrSeatsFull):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, match.ErrQueueFull), errors.Is(err, match.ErrTooManyMatches):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, match.ErrStopped):
		return status.Error(codes.Unavailable, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
