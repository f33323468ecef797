package server

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kubeclash/clash-server-go/internal/bot"
	"github.com/kubeclash/clash-server-go/internal/broadcast"
	"github.com/kubeclash/clash-server-go/internal/game"
	"github.com/kubeclash/clash-server-go/internal/match"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "clash.v1.MatchService"

// Registry is the part of the match manager the transports use.
type Registry interface {
	Create(mode game.Mode) (string, error)
	Join(matchID string, p game.Participant) error
	AddBot(matchID, playerID string, kind bot.Kind) error
	Start(matchID string) (game.Result, error)
	Submit(ctx context.Context, action game.Action) (game.Result, int64, error)
	View(ctx context.Context, matchID, viewerID string) (game.PlayerView, int64, error)
	Leave(ctx context.Context, matchID, playerID string) (game.Result, error)
	Abort(ctx context.Context, matchID, reason string) (game.Result, error)
	Get(matchID string) (match.Summary, error)
	List() []match.Summary
}

// Subscriber hands out per-viewer update streams.
type Subscriber interface {
	Subscribe(matchID, viewerID string) *broadcast.Subscription
}

// MatchServiceServer is the server API for clash.v1.MatchService. Messages
// are google.protobuf.Struct documents shaped like the JSON envelopes the
// websocket transport uses.
type MatchServiceServer interface {
	CreateMatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	JoinMatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LeaveMatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartMatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AbortMatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetView(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListMatches(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Subscribe(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

// clashServer implements MatchServiceServer on top of the match registry.
type clashServer struct {
	logger        *zap.Logger
	serverVersion string

	matches Registry
	updates Subscriber
}

// NewClashServer creates the gRPC match service.
func NewClashServer(matches Registry, updates Subscriber, serverVersion string, logger *zap.Logger) *clashServer {
	return &clashServer{
		logger:        logger,
		serverVersion: serverVersion,
		matches:       matches,
		updates:       updates,
	}
}

// Register attaches the match service and a health service to gs.
func Register(gs *grpc.Server, srv MatchServiceServer) *health.Server {
	gs.RegisterService(&MatchServiceDesc, srv)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return hs
}

type unaryCall func(MatchServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(MatchServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(MatchServiceServer).Subscribe(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// MatchServiceDesc describes clash.v1.MatchService for grpc.Server.
var MatchServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateMatch", MatchServiceServer.CreateMatch),
		unaryMethod("JoinMatch", MatchServiceServer.JoinMatch),
		unaryMethod("LeaveMatch", MatchServiceServer.LeaveMatch),
		unaryMethod("StartMatch", MatchServiceServer.StartMatch),
		unaryMethod("SubmitAction", MatchServiceServer.SubmitAction),
		unaryMethod("AbortMatch", MatchServiceServer.AbortMatch),
		unaryMethod("GetView", MatchServiceServer.GetView),
		unaryMethod("ListMatches", MatchServiceServer.ListMatches),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "clash/v1/match.proto",
}

// decode copies a Struct request into a typed request via its JSON form.
func decode(in *structpb.Struct, dst any) error {
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}

// encode converts any JSON-serialisable value into a Struct response.
func encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func required(field, value string) error {
	if value == "" {
		return status.Error(codes.InvalidArgument, fmt.Sprintf("%s is required", field))
	}
	return nil
}
