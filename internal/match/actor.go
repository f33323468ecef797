// Package match runs every live match on its own goroutine. The actor owns
// the match state outright: transports, timers and strategies reach it only
// through its inbox, and it applies one action at a time.
package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kubeclash/clash-server-go/internal/broadcast"
	"github.com/kubeclash/clash-server-go/internal/game"
	"github.com/kubeclash/clash-server-go/internal/game/rules"
	"github.com/kubeclash/clash-server-go/internal/journal"
)

var (
	ErrQueueFull = errors.New("action queue full")
	ErrStopped   = errors.New("match actor stopped")
)

// Publisher receives a frame after every committed action.
type Publisher interface {
	Publish(broadcast.Frame)
}

// Recorder receives a turn log entry after every committed action.
type Recorder interface {
	Record(journal.Entry) bool
}

// maxAutomatedSteps bounds strategy actions between two inbox reads.
const maxAutomatedSteps = 64

type envelopeKind int

const (
	kindAction envelopeKind = iota
	kindTimeout
	kindView
	kindLeave
	kindAbort
)

type envelope struct {
	kind     envelopeKind
	action   game.Action
	playerID string
	reason   string
	reply    chan reply
}

type reply struct {
	result game.Result
	seq    int64
	view   game.PlayerView
	err    error
}

// Summary is a lock-free snapshot of an actor's match for listings.
type Summary struct {
	ID        string    `json:"id"`
	Mode      game.Mode `json:"mode"`
	Status    string    `json:"status"`
	Players   []string  `json:"players"`
	Round     int       `json:"round"`
	Seq       int64     `json:"seq"`
	Winner    string    `json:"winner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Actor serializes all access to one match.
type Actor struct {
	id         string
	match      *game.Match
	window     time.Duration
	inbox      chan envelope
	backlog    []game.Action
	strategies []game.Strategy
	publisher  Publisher
	recorder   Recorder
	onEnd      func(matchID string)
	logger     *zap.Logger
	created    time.Time

	seq         int64
	timer       *time.Timer
	timerWindow string
	ended       bool

	summary  atomic.Pointer[Summary]
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// ActorOptions wires an actor's collaborators. Nil publisher and recorder
// are allowed.
type ActorOptions struct {
	InterruptWindow time.Duration
	QueueSize       int
	Strategies      []game.Strategy
	Publisher       Publisher
	Recorder        Recorder
	// OnEnd is called once, from the actor goroutine, when the match
	// reaches a terminal status. It must not block on the actor.
	OnEnd  func(matchID string)
	Logger *zap.Logger
}

// NewActor takes ownership of m, publishes its opening result and starts
// the actor goroutine. m must not be touched by the caller afterwards.
func NewActor(m *game.Match, start game.Result, opts ActorOptions) *Actor {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.InterruptWindow <= 0 {
		opts.InterruptWindow = 15 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	a := &Actor{
		id:         m.ID(),
		match:      m,
		window:     opts.InterruptWindow,
		inbox:      make(chan envelope, opts.QueueSize),
		strategies: opts.Strategies,
		publisher:  opts.Publisher,
		recorder:   opts.Recorder,
		onEnd:      opts.OnEnd,
		logger:     opts.Logger.With(zap.String("match_id", m.ID())),
		created:    time.Now().UTC(),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	a.committed(game.Action{MatchID: a.id, ActorID: game.SystemActorID, Type: game.StepStart}, start)
	go a.run()
	return a
}

// ID returns the match id.
func (a *Actor) ID() string {
	return a.id
}

// Summary returns the latest snapshot.
func (a *Actor) Summary() Summary {
	return *a.summary.Load()
}

// Ended reports whether the match has reached a terminal status.
func (a *Actor) Ended() bool {
	return game.Status(a.Summary().Status).Terminal()
}

// Done is closed once the actor goroutine exits.
func (a *Actor) Done() <-chan struct{} {
	return a.done
}

// Submit queues a client action and waits for its outcome. Rejections come
// back as *game.ValidationError.
func (a *Actor) Submit(ctx context.Context, action game.Action) (game.Result, int64, error) {
	if action.Type.IsInternal() {
		return game.Result{}, 0, &game.ValidationError{
			Code:    game.CodeUnknownAction,
			Message: fmt.Sprintf("%s cannot be submitted", action.Type),
		}
	}
	if action.MatchID == "" {
		action.MatchID = a.id
	}
	r, err := a.call(ctx, envelope{kind: kindAction, action: action})
	return r.result, r.seq, err
}

// View returns viewerID's projection and the seq it reflects.
func (a *Actor) View(ctx context.Context, viewerID string) (game.PlayerView, int64, error) {
	r, err := a.call(ctx, envelope{kind: kindView, playerID: viewerID})
	return r.view, r.seq, err
}

// Leave forfeits playerID's seat.
func (a *Actor) Leave(ctx context.Context, playerID string) (game.Result, error) {
	r, err := a.call(ctx, envelope{kind: kindLeave, playerID: playerID})
	return r.result, err
}

// Abort ends the match with no winner.
func (a *Actor) Abort(ctx context.Context, reason string) (game.Result, error) {
	r, err := a.call(ctx, envelope{kind: kindAbort, reason: reason})
	return r.result, err
}

// Stop terminates the actor goroutine and waits for it to exit. Queued
// messages are answered with ErrStopped.
func (a *Actor) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
	<-a.done
}

func (a *Actor) call(ctx context.Context, env envelope) (reply, error) {
	env.reply = make(chan reply, 1)
	select {
	case <-a.done:
		return reply{}, ErrStopped
	default:
	}
	select {
	case a.inbox <- env:
	default:
		return reply{}, ErrQueueFull
	}
	select {
	case r := <-env.reply:
		return r, r.err
	case <-a.done:
		return reply{}, ErrStopped
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

func (a *Actor) run() {
	defer close(a.done)
	defer a.disarm()

	a.schedule()
	steps := 0
	for {
		select {
		case <-a.stop:
			return
		default:
		}
		if len(a.backlog) > 0 && steps < maxAutomatedSteps {
			next := a.backlog[0]
			a.backlog = a.backlog[1:]
			a.applyAutomated(next)
			steps++
			continue
		}
		steps = 0
		if len(a.backlog) > 0 {
			// Let queued messages in between long runs of bot play.
			select {
			case env := <-a.inbox:
				a.handle(env)
			default:
			}
			continue
		}
		select {
		case <-a.stop:
			return
		case env := <-a.inbox:
			a.handle(env)
		}
	}
}

func (a *Actor) handle(env envelope) {
	var r reply
	switch env.kind {
	case kindAction, kindTimeout:
		r.result, r.err = a.apply(env.action)
		if env.kind == kindTimeout && r.err != nil {
			a.logger.Debug("stale window timeout ignored",
				zap.String("window_id", env.action.Payload.WindowID),
				zap.Error(r.err))
		}
	case kindView:
		r.view = a.match.ViewFor(env.playerID)
	case kindLeave:
		r.result, r.err = a.match.Leave(env.playerID)
		if r.err == nil {
			a.committed(game.Action{MatchID: a.id, ActorID: env.playerID, Type: game.StepLeave}, r.result)
		}
	case kindAbort:
		r.result, r.err = a.match.Abort(env.reason)
		if r.err == nil {
			a.committed(game.Action{MatchID: a.id, ActorID: game.SystemActorID, Type: game.StepAbort}, r.result)
		}
	}
	r.seq = a.seq
	if env.reply != nil {
		env.reply <- r
	}
}

// apply runs one action through the engine. Faults still produce a result
// that must reach subscribers.
func (a *Actor) apply(action game.Action) (game.Result, error) {
	res, err := a.match.Apply(action)
	if err != nil {
		if _, ok := game.AsValidation(err); ok {
			return res, err
		}
		a.logger.Error("action faulted match", zap.String("action", action.String()), zap.Error(err))
	}
	a.committed(action, res)
	return res, err
}

// applyAutomated applies a strategy action, substituting a pass when the
// engine refuses it so a misjudging bot cannot stall the match.
func (a *Actor) applyAutomated(action game.Action) {
	_, err := a.apply(action)
	if err == nil {
		return
	}
	if _, ok := game.AsValidation(err); !ok || action.Type == rules.ActionPass || action.Type == rules.ActionChaosReveal {
		a.logger.Warn("automated action failed", zap.String("action", action.String()), zap.Error(err))
		return
	}
	a.logger.Warn("automated action rejected, passing instead", zap.String("action", action.String()), zap.Error(err))
	if _, err := a.apply(game.Action{MatchID: a.id, ActorID: action.ActorID, Type: rules.ActionPass}); err != nil {
		a.logger.Warn("fallback pass rejected", zap.String("player_id", action.ActorID), zap.Error(err))
	}
}

// committed runs after every state change: numbering, fan-out, journal,
// timer and strategy scheduling.
func (a *Actor) committed(action game.Action, res game.Result) {
	a.seq++
	if a.publisher != nil {
		a.publisher.Publish(broadcast.NewFrame(a.match, a.seq, res))
	}
	if a.recorder != nil {
		var payload []byte
		if action.Type == game.StepStart {
			payload, _ = json.Marshal(a.match.Setup())
		} else {
			payload, _ = json.Marshal(action.Payload)
		}
		a.recorder.Record(journal.Entry{
			MatchID:    a.id,
			Seq:        a.seq,
			Round:      a.match.Round(),
			ActorID:    action.ActorID,
			ActionType: string(action.Type),
			Payload:    payload,
			CreatedAt:  time.Now().UTC(),
		})
	}

	if res.Closed != "" && res.Closed == a.timerWindow {
		a.disarm()
	}
	if res.Window != nil {
		a.arm(res.Window.ID)
	}
	if a.match.Status().Terminal() {
		a.disarm()
		a.backlog = nil
	}
	a.refreshSummary()
	if a.match.Status().Terminal() && !a.ended {
		a.ended = true
		if a.onEnd != nil {
			a.onEnd(a.id)
		}
	}
	a.schedule()
}

// schedule asks each strategy, in order, for its next action once the
// backlog is empty.
func (a *Actor) schedule() {
	if len(a.backlog) > 0 || a.match.Status().Terminal() {
		return
	}
	for _, s := range a.strategies {
		if action, ok := s.Next(a.match.ViewFor(s.ActorID())); ok {
			if action.MatchID == "" {
				action.MatchID = a.id
			}
			a.backlog = append(a.backlog, action)
			return
		}
	}
}

func (a *Actor) arm(windowID string) {
	a.disarm()
	a.timerWindow = windowID
	timeout := envelope{
		kind: kindTimeout,
		action: game.Action{
			MatchID: a.id,
			ActorID: game.SystemActorID,
			Type:    rules.ActionWindowTimeout,
			Payload: game.Payload{WindowID: windowID},
		},
	}
	a.timer = time.AfterFunc(a.window, func() {
		select {
		case a.inbox <- timeout:
		case <-a.stop:
		}
	})
}

func (a *Actor) disarm() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.timerWindow = ""
}

func (a *Actor) refreshSummary() {
	players := make([]string, 0, 4)
	for _, b := range a.match.Players() {
		players = append(players, b.PlayerID)
	}
	a.summary.Store(&Summary{
		ID:        a.id,
		Mode:      a.match.Mode(),
		Status:    string(a.match.Status()),
		Players:   players,
		Round:     a.match.Round(),
		Seq:       a.seq,
		Winner:    a.match.Winner(),
		CreatedAt: a.created,
	})
}
