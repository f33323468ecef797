package server

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kubeclash/clash-server-go/internal/bot"
	"github.com/kubeclash/clash-server-go/internal/broadcast"
	"github.com/kubeclash/clash-server-go/internal/config"
	"github.com/kubeclash/clash-server-go/internal/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 16 << 10
)

// WSMessage is the envelope for every websocket frame in both directions.
//
// Inbound types: create, join, add_bot, start, leave, abort, subscribe,
// view, action, ping. Outbound types: the inbound type for a reply,
// snapshot, update, pong and error.
type WSMessage struct {
	Type       string        `json:"type"`
	RequestID  string        `json:"request_id,omitempty"`
	MatchID    string        `json:"match_id,omitempty"`
	PlayerID   string        `json:"player_id,omitempty"`
	Mode       string        `json:"mode,omitempty"`
	Bot        string        `json:"bot,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	ActionType string        `json:"action_type,omitempty"`
	Payload    *game.Payload `json:"payload,omitempty"`
	Seq        int64         `json:"seq,omitempty"`
	Data       any           `json:"data,omitempty"`
	Error      *ErrorBody    `json:"error,omitempty"`
}

// WebSocketHandler upgrades HTTP requests and serves one client per
// connection.
type WebSocketHandler struct {
	matches    Registry
	updates    Subscriber
	upgrader   websocket.Upgrader
	sendBuffer int
	logger     *zap.Logger
}

// NewWebSocketHandler builds the websocket endpoint. An empty origin list
// accepts any origin.
func NewWebSocketHandler(cfg config.WebSocketConfig, matches Registry, updates Subscriber, logger *zap.Logger) *WebSocketHandler {
	origins := slices.Clone(cfg.AllowedOrigins)
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = 64
	}
	return &WebSocketHandler{
		matches:    matches,
		updates:    updates,
		sendBuffer: buffer,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				return slices.Contains(origins, r.Header.Get("Origin"))
			},
		},
	}
}

// NewWebSocketServer mounts h at cfg.Path next to a plain health probe.
func NewWebSocketServer(cfg config.WebSocketConfig, h http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, h)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &wsClient{
		handler: h,
		conn:    conn,
		send:    make(chan []byte, h.sendBuffer),
		ctx:     ctx,
		cancel:  cancel,
		logger:  h.logger.With(zap.String("remote", r.RemoteAddr)),
	}
	go c.writePump()
	c.readPump()
}

type wsClient struct {
	handler *WebSocketHandler
	conn    *websocket.Conn
	send    chan []byte
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger

	mu       sync.Mutex
	playerID string
	sub      *broadcast.Subscription
}

func (c *wsClient) close() {
	c.cancel()
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
	_ = c.conn.Close()
}

func (c *wsClient) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.reply(WSMessage{Type: "error", Error: &ErrorBody{Code: "malformed", Message: err.Error()}})
			continue
		}
		c.handle(msg)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.cancel()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		}
	}
}

// reply queues msg without blocking. A client that cannot keep up is
// disconnected.
func (c *wsClient) reply(msg WSMessage) {
	raw, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("encode websocket message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	select {
	case <-c.ctx.Done():
	case c.send <- raw:
	default:
		c.logger.Warn("websocket client too slow, disconnecting")
		c.close()
	}
}

func (c *wsClient) fail(msg WSMessage, err error) {
	body := errorBody(err)
	c.reply(WSMessage{Type: "error", RequestID: msg.RequestID, MatchID: msg.MatchID, Error: &body})
}

// actor resolves who a message speaks for. The first subscribe or join
// binds the connection to a player.
func (c *wsClient) actor(msg WSMessage) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.playerID == "":
		return msg.PlayerID, nil
	case msg.PlayerID == "" || msg.PlayerID == c.playerID:
		return c.playerID, nil
	}
	return "", &game.ValidationError{Code: game.CodeUnknownPlayer, Message: "connection is bound to " + c.playerID}
}

func (c *wsClient) bind(playerID string) {
	if playerID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playerID == "" {
		c.playerID = playerID
	}
}

func (c *wsClient) handle(msg WSMessage) {
	matches := c.handler.matches
	ok := WSMessage{Type: msg.Type, RequestID: msg.RequestID, MatchID: msg.MatchID}

	switch msg.Type {
	case "ping":
		c.reply(WSMessage{Type: "pong", RequestID: msg.RequestID})

	case "create":
		mode, err := game.ParseMode(msg.Mode)
		if err != nil {
			c.fail(msg, &game.ValidationError{Code: game.CodeInvalidSetup, Message: err.Error()})
			return
		}
		id, err := matches.Create(mode)
		if err != nil {
			c.fail(msg, err)
			return
		}
		ok.MatchID = id
		c.summary(ok)

	case "join":
		playerID, err := c.actor(msg)
		if err != nil {
			c.fail(msg, err)
			return
		}
		if err := matches.Join(msg.MatchID, game.Participant{PlayerID: playerID, DisplayName: playerID}); err != nil {
			c.fail(msg, err)
			return
		}
		c.bind(playerID)
		c.summary(ok)

	case "add_bot":
		kind, err := bot.ParseKind(msg.Bot)
		if err != nil {
			c.fail(msg, &game.ValidationError{Code: game.CodeInvalidSetup, Message: err.Error()})
			return
		}
		if err := matches.AddBot(msg.MatchID, msg.PlayerID, kind); err != nil {
			c.fail(msg, err)
			return
		}
		c.summary(ok)

	case "start":
		if _, err := matches.Start(msg.MatchID); err != nil {
			c.fail(msg, err)
			return
		}
		c.summary(ok)

	case "leave":
		playerID, err := c.actor(msg)
		if err != nil {
			c.fail(msg, err)
			return
		}
		if _, err := matches.Leave(c.ctx, msg.MatchID, playerID); err != nil {
			c.fail(msg, err)
			return
		}
		c.reply(ok)

	case "abort":
		reason := msg.Reason
		if reason == "" {
			reason = "aborted"
		}
		if _, err := matches.Abort(c.ctx, msg.MatchID, reason); err != nil {
			c.fail(msg, err)
			return
		}
		c.reply(ok)

	case "view":
		playerID, err := c.actor(msg)
		if err != nil {
			c.fail(msg, err)
			return
		}
		view, seq, err := matches.View(c.ctx, msg.MatchID, playerID)
		if err != nil {
			c.fail(msg, err)
			return
		}
		c.bind(playerID)
		c.reply(WSMessage{Type: "snapshot", RequestID: msg.RequestID, MatchID: msg.MatchID, Seq: seq, Data: view})

	case "subscribe":
		c.subscribe(msg)

	case "action":
		c.submit(msg)

	default:
		c.fail(msg, &game.ValidationError{Code: game.CodeUnknownAction, Message: "unknown message type " + msg.Type})
	}
}

func (c *wsClient) summary(msg WSMessage) {
	sum, err := c.handler.matches.Get(msg.MatchID)
	if err != nil {
		c.fail(msg, err)
		return
	}
	msg.Data = sum
	c.reply(msg)
}

func (c *wsClient) submit(msg WSMessage) {
	playerID, err := c.actor(msg)
	if err != nil {
		c.fail(msg, err)
		return
	}
	req := actionRequest{MatchID: msg.MatchID, PlayerID: playerID, ActionType: msg.ActionType}
	if msg.Payload != nil {
		req.Payload = *msg.Payload
	}
	action, err := parseAction(req)
	if err != nil {
		c.fail(msg, err)
		return
	}
	res, seq, err := c.handler.matches.Submit(c.ctx, action)
	if err != nil {
		c.fail(msg, err)
		return
	}
	c.reply(WSMessage{
		Type:      "result",
		RequestID: msg.RequestID,
		MatchID:   msg.MatchID,
		Seq:       seq,
		Data:      newActionResult(msg.MatchID, playerID, seq, res),
	})
}

// subscribe replaces any previous subscription on this connection. The
// snapshot is queued before the first update so the client sees seq in
// order.
func (c *wsClient) subscribe(msg WSMessage) {
	playerID, err := c.actor(msg)
	if err != nil {
		c.fail(msg, err)
		return
	}
	if _, err := c.handler.matches.Get(msg.MatchID); err != nil {
		c.fail(msg, err)
		return
	}

	sub := c.handler.updates.Subscribe(msg.MatchID, playerID)
	view, seq, err := c.handler.matches.View(c.ctx, msg.MatchID, playerID)
	if err != nil {
		sub.Close()
		c.fail(msg, err)
		return
	}
	c.bind(playerID)

	c.mu.Lock()
	previous := c.sub
	c.sub = sub
	c.mu.Unlock()
	if previous != nil {
		previous.Close()
	}

	c.reply(WSMessage{Type: "snapshot", RequestID: msg.RequestID, MatchID: msg.MatchID, Seq: seq, Data: view})
	if view.Status.Terminal() {
		c.mu.Lock()
		if c.sub == sub {
			c.sub = nil
		}
		c.mu.Unlock()
		sub.Close()
		return
	}
	go c.forward(sub, seq)
}

func (c *wsClient) forward(sub *broadcast.Subscription, after int64) {
	ended := false
	for u := range sub.Updates() {
		if u.Seq <= after {
			continue
		}
		c.reply(WSMessage{Type: "update", MatchID: u.MatchID, Seq: u.Seq, Data: u})
		ended = u.Terminal()
	}

	c.mu.Lock()
	current := c.sub == sub
	if current {
		c.sub = nil
	}
	c.mu.Unlock()
	if current && !ended && c.ctx.Err() == nil {
		c.reply(WSMessage{Type: "error", MatchID: sub.MatchID, Error: &ErrorBody{Code: "resync", Message: "update stream closed, resubscribe"}})
	}
}
