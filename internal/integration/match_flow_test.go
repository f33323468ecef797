package integration

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kubeclash/clash-server-go/internal/broadcast"
	"github.com/kubeclash/clash-server-go/internal/game"
	"github.com/kubeclash/clash-server-go/internal/game/catalog"
	"github.com/kubeclash/clash-server-go/internal/journal"
	"github.com/kubeclash/clash-server-go/internal/match"
	"github.com/kubeclash/clash-server-go/internal/server"
)

type stack struct {
	conn     *grpc.ClientConn
	recorder *journal.Recorder
	store    journal.Store
	catalog  *catalog.Catalog
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))

	cat, err := catalog.Default()
	require.NoError(t, err)
	store, err := journal.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "turns.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	recorder := journal.NewRecorder(store, 1024, logger)

	hub := broadcast.NewHub(256, logger)
	mgr := match.NewManager(match.Config{
		InterruptWindow: time.Second,
		QueueSize:       32,
		Seed:            11,
	}, cat, hub, recorder, logger)
	t.Cleanup(func() { _ = mgr.Shutdown(ctx) })

	gs := grpc.NewServer(grpc.UnaryInterceptor(server.ChainUnaryInterceptors(
		server.RecoveryInterceptor(logger),
		server.LoggingInterceptor(logger),
	)))
	server.Register(gs, server.NewClashServer(mgr, hub, "integration", logger))
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &stack{conn: conn, recorder: recorder, store: store, catalog: cat}
}

func (s *stack) call(t *testing.T, method string, req map[string]any) map[string]any {
	t.Helper()
	in, err := structpb.NewStruct(req)
	require.NoError(t, err)
	out := new(structpb.Struct)
	require.NoError(t, s.conn.Invoke(context.Background(), "/"+server.ServiceName+"/"+method, in, out), method)
	return out.AsMap()
}

// mustAct reports whether the view waits on its viewer.
func mustAct(view map[string]any) bool {
	viewer := view["viewer_id"]
	phase := view["phase"].(map[string]any)
	if w, ok := view["window"].(map[string]any); ok {
		return w["target_id"] == viewer
	}
	return phase["gate"] == "PHASE" && phase["active_player"] == viewer
}

func TestCoopMatchOverGRPCReplaysFromTurnLog(t *testing.T) {
	s := newStack(t)

	created := s.call(t, "CreateMatch", map[string]any{"mode": "coop"})
	id := created["id"].(string)
	s.call(t, "JoinMatch", map[string]any{"match_id": id, "player_id": "alice"})
	s.call(t, "JoinMatch", map[string]any{"match_id": id, "player_id": "bot-1", "bot": "saboteur"})
	s.call(t, "StartMatch", map[string]any{"match_id": id})

	var view map[string]any
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		view = s.call(t, "GetView", map[string]any{"match_id": id, "player_id": "alice"})["view"].(map[string]any)
		if view["status"] != string(game.StatusActive) || view["phase"].(map[string]any)["round"].(float64) > 3 {
			break
		}
		if !mustAct(view) {
			time.Sleep(2 * time.Millisecond)
			continue
		}
		in, err := structpb.NewStruct(map[string]any{"match_id": id, "player_id": "alice", "action_type": "pass"})
		require.NoError(t, err)
		err = s.conn.Invoke(context.Background(), "/"+server.ServiceName+"/SubmitAction", in, new(structpb.Struct))
		// A window can time out between the view and the pass.
		if err != nil {
			require.Equal(t, codes.FailedPrecondition, status.Code(err), err.Error())
		}
	}
	require.NotNil(t, view)

	if view["status"] == string(game.StatusActive) {
		// The match may finish on its own first; that error is fine.
		in, err := structpb.NewStruct(map[string]any{"match_id": id, "reason": "integration"})
		require.NoError(t, err)
		_ = s.conn.Invoke(context.Background(), "/"+server.ServiceName+"/AbortMatch", in, new(structpb.Struct))
	}
	final := s.call(t, "GetView", map[string]any{"match_id": id})["view"].(map[string]any)
	require.NotEqual(t, string(game.StatusActive), final["status"])
	require.NotEqual(t, string(game.StatusFaulted), final["status"])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.recorder.Close(ctx))
	assert.Zero(t, s.recorder.Dropped())

	replayed, err := match.Replay(ctx, s.store, id, game.Options{Catalog: s.catalog})
	require.NoError(t, err)
	assert.Equal(t, final["status"], string(replayed.Status()))
	assert.Equal(t, final["phase"].(map[string]any)["round"], float64(replayed.Round()))

	players := final["players"].([]any)
	require.Len(t, players, 2)
	for _, raw := range players {
		p := raw.(map[string]any)
		b := replayed.Player(p["player_id"].(string))
		require.NotNil(t, b)
		assert.Equal(t, p["slo"], float64(b.SLO), p["player_id"])
		assert.Equal(t, p["resilience"], float64(b.Resilience), p["player_id"])
		assert.Equal(t, p["resources"], float64(b.Resources), p["player_id"])
	}
}
