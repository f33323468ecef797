package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/kubeclash/clash-server-go/internal/config"
	"github.com/kubeclash/clash-server-go/internal/game"
)

func startWebSocket(t *testing.T, env testEnv, cfg config.WebSocketConfig) string {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	srv := httptest.NewServer(NewWebSocketHandler(cfg, env.manager, env.hub, logger))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type wsTestClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, url string) *wsTestClient {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &wsTestClient{t: t, conn: conn}
}

func (c *wsTestClient) send(msg WSMessage) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(msg))
}

func (c *wsTestClient) read() WSMessage {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg WSMessage
	require.NoError(c.t, c.conn.ReadJSON(&msg))
	return msg
}

func (c *wsTestClient) roundTrip(msg WSMessage) WSMessage {
	c.t.Helper()
	c.send(msg)
	return c.read()
}

func TestWebSocketMatchFlow(t *testing.T) {
	url := startWebSocket(t, newTestEnv(t), config.WebSocketConfig{SendBuffer: 16})
	alice, bob := dial(t, url), dial(t, url)

	pong := alice.roundTrip(WSMessage{Type: "ping", RequestID: "r1"})
	assert.Equal(t, "pong", pong.Type)
	assert.Equal(t, "r1", pong.RequestID)

	created := alice.roundTrip(WSMessage{Type: "create", Mode: "competitive"})
	require.Equal(t, "create", created.Type, "%+v", created.Error)
	id := created.MatchID
	require.NotEmpty(t, id)

	joined := alice.roundTrip(WSMessage{Type: "join", MatchID: id, PlayerID: "p1"})
	require.Equal(t, "join", joined.Type, "%+v", joined.Error)
	joined = bob.roundTrip(WSMessage{Type: "join", MatchID: id, PlayerID: "p2"})
	require.Equal(t, "join", joined.Type, "%+v", joined.Error)

	early := bob.roundTrip(WSMessage{Type: "subscribe", MatchID: id})
	require.Equal(t, "error", early.Type)
	assert.Equal(t, "invalid_state", early.Error.Code)

	started := alice.roundTrip(WSMessage{Type: "start", MatchID: id})
	require.Equal(t, "start", started.Type, "%+v", started.Error)

	snap := bob.roundTrip(WSMessage{Type: "subscribe", MatchID: id})
	require.Equal(t, "snapshot", snap.Type, "%+v", snap.Error)
	view := snap.Data.(map[string]any)
	assert.Equal(t, "p2", view["viewer_id"])

	wrong := bob.roundTrip(WSMessage{Type: "action", MatchID: id, ActionType: "pass"})
	require.Equal(t, "error", wrong.Type)
	assert.Equal(t, string(game.CodeNotYourTurn), wrong.Error.Code)

	impostor := alice.roundTrip(WSMessage{Type: "action", MatchID: id, PlayerID: "p2", ActionType: "pass"})
	require.Equal(t, "error", impostor.Type)
	assert.Equal(t, string(game.CodeUnknownPlayer), impostor.Error.Code)

	result := alice.roundTrip(WSMessage{Type: "action", MatchID: id, ActionType: "pass", RequestID: "r2"})
	require.Equal(t, "result", result.Type, "%+v", result.Error)
	assert.Equal(t, "r2", result.RequestID)
	assert.Greater(t, result.Seq, snap.Seq)

	update := bob.read()
	assert.Equal(t, "update", update.Type)
	assert.Equal(t, result.Seq, update.Seq)

	unknown := alice.roundTrip(WSMessage{Type: "shuffle"})
	require.Equal(t, "error", unknown.Type)
	assert.Equal(t, string(game.CodeUnknownAction), unknown.Error.Code)

	internal := alice.roundTrip(WSMessage{Type: "action", MatchID: id, ActionType: "window_timeout"})
	require.Equal(t, "error", internal.Type)
	assert.Equal(t, string(game.CodeUnknownAction), internal.Error.Code)
}

func TestWebSocketViewBindsConnection(t *testing.T) {
	url := startWebSocket(t, newTestEnv(t), config.WebSocketConfig{})
	host, peeker := dial(t, url), dial(t, url)

	id := host.roundTrip(WSMessage{Type: "create"}).MatchID
	require.NotEmpty(t, id)
	require.Equal(t, "join", host.roundTrip(WSMessage{Type: "join", MatchID: id, PlayerID: "p1"}).Type)
	require.Equal(t, "add_bot", host.roundTrip(WSMessage{Type: "add_bot", MatchID: id, PlayerID: "p2", Bot: "builder"}).Type)
	require.Equal(t, "start", host.roundTrip(WSMessage{Type: "start", MatchID: id}).Type)

	spectator := peeker.roundTrip(WSMessage{Type: "view", MatchID: id})
	require.Equal(t, "snapshot", spectator.Type, "%+v", spectator.Error)
	assert.Empty(t, spectator.Data.(map[string]any)["hand"])

	own := peeker.roundTrip(WSMessage{Type: "view", MatchID: id, PlayerID: "p1"})
	require.Equal(t, "snapshot", own.Type, "%+v", own.Error)

	other := peeker.roundTrip(WSMessage{Type: "view", MatchID: id, PlayerID: "p2"})
	require.Equal(t, "error", other.Type)
	assert.Equal(t, string(game.CodeUnknownPlayer), other.Error.Code)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	url := startWebSocket(t, newTestEnv(t), config.WebSocketConfig{AllowedOrigins: []string{"https://clash.example"}})

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://clash.example")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestWebSocketMalformedFrame(t *testing.T) {
	url := startWebSocket(t, newTestEnv(t), config.WebSocketConfig{})
	c := dial(t, url)
	require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg := c.read()
	require.Equal(t, "error", msg.Type)
	assert.Equal(t, "malformed", msg.Error.Code)
}
