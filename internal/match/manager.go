package match

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kubeclash/clash-server-go/internal/bot"
	"github.com/kubeclash/clash-server-go/internal/game"
	"github.com/kubeclash/clash-server-go/internal/game/catalog"
	"github.com/kubeclash/clash-server-go/internal/game/chaos"
	"github.com/kubeclash/clash-server-go/internal/random"
)

var (
	ErrMatchNotFound  = errors.New("match not found")
	ErrMatchStarted   = errors.New("match already started")
	ErrNotStarted     = errors.New("match not started")
	ErrTooManyMatches = errors.New("too many matches")
	ErrAlreadyJoined  = errors.New("player already joined")
	ErrSeatsFull      = errors.New("no free seats")
	ErrPlayerNotFound = errors.New("player not in match")
)

// StatusLobby marks a match that is still taking seats.
const StatusLobby = "lobby"

// Config holds the manager-wide match settings.
type Config struct {
	InterruptWindow time.Duration
	QueueSize       int
	MaxMatches      int
	// Retention keeps a finished or aborted match readable before it is
	// retired. Zero means one minute.
	Retention time.Duration
	// Seed fixes the base seed; each match derives its own from it. Zero
	// draws a fresh seed per match.
	Seed uint64
}

type seat struct {
	game.Participant
	bot bot.Kind
}

type lobby struct {
	id      string
	mode    game.Mode
	seats   []seat
	created time.Time
}

// Manager is the registry of lobbies and running match actors. It holds no
// game state itself.
type Manager struct {
	cfg       Config
	catalog   *catalog.Catalog
	publisher Publisher
	recorder  Recorder
	logger    *zap.Logger

	mu      sync.RWMutex
	lobbies  map[string]*lobby
	actors   map[string]*Actor
	retiring map[string]*time.Timer
}

// NewManager creates a manager. publisher and recorder may be nil.
func NewManager(cfg Config, cat *catalog.Catalog, publisher Publisher, recorder Recorder, logger *zap.Logger) *Manager {
	if cfg.MaxMatches <= 0 {
		cfg.MaxMatches = 1000
	}
	if cfg.Retention <= 0 {
		cfg.Retention = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:       cfg,
		catalog:   cat,
		publisher: publisher,
		recorder:  recorder,
		logger:    logger,
		lobbies:   make(map[string]*lobby),
		actors:    make(map[string]*Actor),
		retiring:  make(map[string]*time.Timer),
	}
}

func maxSeats(mode game.Mode) int {
	if mode == game.ModeSolo {
		return 1
	}
	return 4
}

// Create opens a lobby and returns its match id.
func (m *Manager) Create(mode game.Mode) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.liveLocked() >= m.cfg.MaxMatches {
		return "", ErrTooManyMatches
	}
	id := uuid.NewString()
	m.lobbies[id] = &lobby{id: id, mode: mode, created: time.Now().UTC()}
	m.logger.Info("match created", zap.String("match_id", id), zap.String("mode", string(mode)))
	return id, nil
}

// liveLocked counts lobbies and matches still in play. Ended matches
// waiting to be retired do not take a slot.
func (m *Manager) liveLocked() int {
	n := len(m.lobbies)
	for _, a := range m.actors {
		if !a.Ended() {
			n++
		}
	}
	return n
}

// Join seats a human player before the match starts.
func (m *Manager) Join(matchID string, p game.Participant) error {
	return m.seat(matchID, seat{Participant: p})
}

// AddBot seats a bot player before the match starts.
func (m *Manager) AddBot(matchID, playerID string, kind bot.Kind) error {
	return m.seat(matchID, seat{Participant: game.Participant{PlayerID: playerID, DisplayName: fmt.Sprintf("%s (%s bot)", playerID, kind)}, bot: kind})
}

func (m *Manager) seat(matchID string, s seat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, err := m.lobbyLocked(matchID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(s.PlayerID) == "" {
		return &game.ValidationError{Code: game.CodeInvalidSetup, Message: "player id is required"}
	}
	for _, existing := range l.seats {
		if existing.PlayerID == s.PlayerID {
			return ErrAlreadyJoined
		}
	}
	if len(l.seats) >= maxSeats(l.mode) {
		return ErrSeatsFull
	}
	l.seats = append(l.seats, s)
	m.logger.Info("player joined",
		zap.String("match_id", matchID),
		zap.String("player_id", s.PlayerID),
		zap.Bool("bot", s.bot != ""),
	)
	return nil
}

func (m *Manager) lobbyLocked(matchID string) (*lobby, error) {
	if l, ok := m.lobbies[matchID]; ok {
		return l, nil
	}
	if _, ok := m.actors[matchID]; ok {
		return nil, ErrMatchStarted
	}
	return nil, ErrMatchNotFound
}

// Start deals the opening hands and hands the match to a new actor.
func (m *Manager) Start(matchID string) (game.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, err := m.lobbyLocked(matchID)
	if err != nil {
		return game.Result{}, err
	}

	participants := make([]game.Participant, 0, len(l.seats))
	var strategies []game.Strategy
	for _, s := range l.seats {
		participants = append(participants, s.Participant)
		if s.bot != "" {
			strategies = append(strategies, bot.New(s.PlayerID, s.bot, m.catalog))
		}
	}
	if l.mode.Automated() {
		strategies = append(strategies, chaos.New())
	}

	var seed uint64
	if m.cfg.Seed != 0 {
		seed = random.Derive(m.cfg.Seed, matchID)
	}
	logger := m.logger.With(zap.String("match_id", matchID))
	g, start, err := game.NewMatch(matchID, participants, game.Options{
		Mode:    l.mode,
		Seed:    seed,
		Catalog: m.catalog,
		Logger:  logger,
	})
	if err != nil {
		return game.Result{}, err
	}

	m.actors[matchID] = NewActor(g, start, ActorOptions{
		InterruptWindow: m.cfg.InterruptWindow,
		QueueSize:       m.cfg.QueueSize,
		Strategies:      strategies,
		Publisher:       m.publisher,
		Recorder:        m.recorder,
		OnEnd:           m.retireLater,
		Logger:          m.logger,
	})
	delete(m.lobbies, matchID)
	logger.Info("match started",
		zap.Int("players", len(participants)),
		zap.Uint64("seed", g.Seed()),
	)
	return start, nil
}

func (m *Manager) actor(matchID string) (*Actor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.actors[matchID]; ok {
		return a, nil
	}
	if _, ok := m.lobbies[matchID]; ok {
		return nil, ErrNotStarted
	}
	return nil, ErrMatchNotFound
}

// Submit routes a client action to its match.
func (m *Manager) Submit(ctx context.Context, action game.Action) (game.Result, int64, error) {
	a, err := m.actor(action.MatchID)
	if err != nil {
		return game.Result{}, 0, err
	}
	return a.Submit(ctx, action)
}

// View returns viewerID's projection of a running match.
func (m *Manager) View(ctx context.Context, matchID, viewerID string) (game.PlayerView, int64, error) {
	a, err := m.actor(matchID)
	if err != nil {
		return game.PlayerView{}, 0, err
	}
	return a.View(ctx, viewerID)
}

// Leave removes a seat from a lobby, or forfeits it in a running match.
func (m *Manager) Leave(ctx context.Context, matchID, playerID string) (game.Result, error) {
	m.mu.Lock()
	if l, ok := m.lobbies[matchID]; ok {
		defer m.mu.Unlock()
		for i, s := range l.seats {
			if s.PlayerID == playerID {
				l.seats = append(l.seats[:i], l.seats[i+1:]...)
				return game.Result{}, nil
			}
		}
		return game.Result{}, ErrPlayerNotFound
	}
	m.mu.Unlock()

	a, err := m.actor(matchID)
	if err != nil {
		return game.Result{}, err
	}
	return a.Leave(ctx, playerID)
}

// Abort ends a running match with no winner, or discards a lobby.
func (m *Manager) Abort(ctx context.Context, matchID, reason string) (game.Result, error) {
	m.mu.Lock()
	if _, ok := m.lobbies[matchID]; ok {
		delete(m.lobbies, matchID)
		m.mu.Unlock()
		return game.Result{}, nil
	}
	m.mu.Unlock()

	a, err := m.actor(matchID)
	if err != nil {
		return game.Result{}, err
	}
	return a.Abort(ctx, reason)
}

// Get summarises one match.
func (m *Manager) Get(matchID string) (Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.lobbies[matchID]; ok {
		return l.summary(), nil
	}
	if a, ok := m.actors[matchID]; ok {
		return a.Summary(), nil
	}
	return Summary{}, ErrMatchNotFound
}

// List summarises every lobby and match, oldest first.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	out := make([]Summary, 0, len(m.lobbies)+len(m.actors))
	for _, l := range m.lobbies {
		out = append(out, l.summary())
	}
	for _, a := range m.actors {
		out = append(out, a.Summary())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// retireLater schedules an ended match for removal once the retention
// period passes. It is called on the actor goroutine, which Remove waits
// for, so the removal runs on the timer's goroutine.
func (m *Manager) retireLater(matchID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.actors[matchID]; !ok {
		return
	}
	m.retiring[matchID] = time.AfterFunc(m.cfg.Retention, func() { m.retire(matchID) })
}

func (m *Manager) retire(matchID string) {
	m.mu.Lock()
	_, ok := m.retiring[matchID]
	m.mu.Unlock()
	if !ok {
		return
	}
	if err := m.Remove(matchID); err != nil {
		return
	}
	m.logger.Info("match retired", zap.String("match_id", matchID))
}

// Remove stops a match's actor and forgets it.
func (m *Manager) Remove(matchID string) error {
	m.mu.Lock()
	a, ok := m.actors[matchID]
	delete(m.actors, matchID)
	_, inLobby := m.lobbies[matchID]
	delete(m.lobbies, matchID)
	if timer, pending := m.retiring[matchID]; pending {
		timer.Stop()
		delete(m.retiring, matchID)
	}
	m.mu.Unlock()

	if !ok {
		if inLobby {
			return nil
		}
		return ErrMatchNotFound
	}
	a.Stop()
	if closer, ok := m.publisher.(interface{ CloseMatch(string) }); ok {
		closer.CloseMatch(matchID)
	}
	return nil
}

// Shutdown stops every actor.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	actors := make([]*Actor, 0, len(m.actors))
	for _, a := range m.actors {
		actors = append(actors, a)
	}
	for _, timer := range m.retiring {
		timer.Stop()
	}
	m.actors = make(map[string]*Actor)
	m.lobbies = make(map[string]*lobby)
	m.retiring = make(map[string]*time.Timer)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for _, a := range actors {
			a.Stop()
		}
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *lobby) summary() Summary {
	players := make([]string, 0, len(l.seats))
	for _, s := range l.seats {
		players = append(players, s.PlayerID)
	}
	return Summary{
		ID:        l.id,
		Mode:      l.mode,
		Status:    StatusLobby,
		Players:   players,
		CreatedAt: l.created,
	}
}
