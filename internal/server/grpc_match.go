package server

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kubeclash/clash-server-go/internal/bot"
	"github.com/kubeclash/clash-server-go/internal/broadcast"
	"github.com/kubeclash/clash-server-go/internal/game"
	"github.com/kubeclash/clash-server-go/internal/game/rules"
	"github.com/kubeclash/clash-server-go/internal/match"
)

type createMatchRequest struct {
	Mode string `json:"mode"`
}

type seatRequest struct {
	MatchID     string `json:"match_id"`
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	// Bot seats a computer player of the named strategy instead of a human.
	Bot string `json:"bot"`
}

type matchRequest struct {
	MatchID  string `json:"match_id"`
	PlayerID string `json:"player_id"`
	Reason   string `json:"reason"`
}

type actionRequest struct {
	MatchID    string       `json:"match_id"`
	PlayerID   string       `json:"player_id"`
	ActionType string       `json:"action_type"`
	Payload    game.Payload `json:"payload"`
}

// ActionResult is the reply to an accepted action, as seen by its actor.
type ActionResult struct {
	MatchID string                 `json:"match_id"`
	Seq     int64                  `json:"seq"`
	Events  []rules.Event          `json:"events"`
	Window  *rules.InterruptWindow `json:"window,omitempty"`
	Closed  string                 `json:"closed,omitempty"`
}

func newActionResult(matchID, actorID string, seq int64, res game.Result) ActionResult {
	return ActionResult{
		MatchID: matchID,
		Seq:     seq,
		Events:  broadcast.VisibleEvents(res.Events, actorID),
		Window:  res.Window,
		Closed:  res.Closed,
	}
}

// StreamMessage is one message on a subscription: a snapshot first, then
// updates in seq order.
type StreamMessage struct {
	Type   string            `json:"type"`
	Seq    int64             `json:"seq"`
	View   *game.PlayerView  `json:"view,omitempty"`
	Update *broadcast.Update `json:"update,omitempty"`
}

// parseAction validates a client action request.
func parseAction(req actionRequest) (game.Action, error) {
	typ, ok := rules.ParseActionType(req.ActionType)
	if !ok {
		return game.Action{}, &game.ValidationError{Code: game.CodeUnknownAction, Message: "unknown action " + strings.TrimSpace(req.ActionType)}
	}
	return game.Action{
		MatchID: req.MatchID,
		ActorID: req.PlayerID,
		Type:    typ,
		Payload: req.Payload,
	}, nil
}

// CreateMatch opens a lobby.
func (s *clashServer) CreateMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in createMatchRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	mode, err := game.ParseMode(in.Mode)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	id, err := s.matches.Create(mode)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.summary(id)
}

// JoinMatch seats a human or bot player in a lobby.
func (s *clashServer) JoinMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in seatRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if err := required("match_id", in.MatchID); err != nil {
		return nil, err
	}
	if err := required("player_id", in.PlayerID); err != nil {
		return nil, err
	}

	if in.Bot != "" {
		kind, err := bot.ParseKind(in.Bot)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		if err := s.matches.AddBot(in.MatchID, in.PlayerID, kind); err != nil {
			return nil, toStatus(err)
		}
	} else {
		name := in.DisplayName
		if name == "" {
			name = in.PlayerID
		}
		if err := s.matches.Join(in.MatchID, game.Participant{PlayerID: in.PlayerID, DisplayName: name}); err != nil {
			return nil, toStatus(err)
		}
	}
	return s.summary(in.MatchID)
}

// LeaveMatch removes a lobby seat or forfeits a running one.
func (s *clashServer) LeaveMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in matchRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if err := required("match_id", in.MatchID); err != nil {
		return nil, err
	}
	if err := required("player_id", in.PlayerID); err != nil {
		return nil, err
	}
	if _, err := s.matches.Leave(ctx, in.MatchID, in.PlayerID); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("player left match",
		zap.String("match_id", in.MatchID),
		zap.String("player_id", in.PlayerID),
	)
	return s.summary(in.MatchID)
}

// StartMatch deals the opening hands and hands the match to its actor.
func (s *clashServer) StartMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in matchRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if err := required("match_id", in.MatchID); err != nil {
		return nil, err
	}
	if _, err := s.matches.Start(in.MatchID); err != nil {
		return nil, toStatus(err)
	}
	return s.summary(in.MatchID)
}

// SubmitAction queues one player action and waits for the outcome.
func (s *clashServer) SubmitAction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in actionRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if err := required("match_id", in.MatchID); err != nil {
		return nil, err
	}
	if err := required("player_id", in.PlayerID); err != nil {
		return nil, err
	}
	action, err := parseAction(in)
	if err != nil {
		return nil, toStatus(err)
	}
	res, seq, err := s.matches.Submit(ctx, action)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(newActionResult(in.MatchID, in.PlayerID, seq, res))
}

// AbortMatch ends a match with no winner.
func (s *clashServer) AbortMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in matchRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if err := required("match_id", in.MatchID); err != nil {
		return nil, err
	}
	reason := in.Reason
	if reason == "" {
		reason = "aborted"
	}
	if _, err := s.matches.Abort(ctx, in.MatchID, reason); err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]string{"match_id": in.MatchID, "status": string(game.StatusAborted)})
}

// GetView returns the caller's projection of a running match.
func (s *clashServer) GetView(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in matchRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if err := required("match_id", in.MatchID); err != nil {
		return nil, err
	}
	view, seq, err := s.matches.View(ctx, in.MatchID, in.PlayerID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(StreamMessage{Type: "snapshot", Seq: seq, View: &view})
}

// ListMatches summarises every lobby and running match.
func (s *clashServer) ListMatches(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return encode(map[string]any{
		"server_version": s.serverVersion,
		"matches":        s.matches.List(),
	})
}

// Subscribe streams a snapshot followed by every later update for the
// caller. The stream ends after the terminal update.
func (s *clashServer) Subscribe(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	var in matchRequest
	if err := decode(req, &in); err != nil {
		return err
	}
	if err := required("match_id", in.MatchID); err != nil {
		return err
	}
	ctx := stream.Context()

	// Subscribe before the snapshot so no commit falls between the two.
	sub := s.updates.Subscribe(in.MatchID, in.PlayerID)
	defer sub.Close()

	view, seq, err := s.matches.View(ctx, in.MatchID, in.PlayerID)
	if err != nil {
		return toStatus(err)
	}
	msg, err := encode(StreamMessage{Type: "snapshot", Seq: seq, View: &view})
	if err != nil {
		return err
	}
	if err := stream.Send(msg); err != nil {
		return err
	}
	if view.Status.Terminal() {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		case u, ok := <-sub.Updates():
			if !ok {
				return status.Error(codes.Unavailable, "update stream closed, resubscribe")
			}
			if u.Seq <= seq {
				continue
			}
			msg, err := encode(StreamMessage{Type: "update", Seq: u.Seq, Update: &u})
			if err != nil {
				return err
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
			if u.Terminal() {
				return nil
			}
		}
	}
}

func (s *clashServer) summary(matchID string) (*structpb.Struct, error) {
	sum, err := s.matches.Get(matchID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(sum)
}

var _ Registry = (*match.Manager)(nil)
