// Package sim plays headless bot matches and aggregates balance
// statistics. Matches are driven synchronously; games run in parallel.
package sim

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kubeclash/clash-server-go/internal/bot"
	"github.com/kubeclash/clash-server-go/internal/game"
	"github.com/kubeclash/clash-server-go/internal/game/catalog"
	"github.com/kubeclash/clash-server-go/internal/game/chaos"
	"github.com/kubeclash/clash-server-go/internal/game/rules"
	"github.com/kubeclash/clash-server-go/internal/random"
)

// Config controls a simulation run.
type Config struct {
	Players    int
	Games      int
	MaxRounds  int
	Strategies []bot.Kind
	Mode       game.Mode
	Seed       uint64
	Workers    int
	Catalog    *catalog.Catalog
	Logger     *zap.Logger
}

// GameResult summarises one finished (or abandoned) match.
type GameResult struct {
	Seed       uint64
	Winner     string
	WinnerSeat int
	Rounds     int
	Turns      int
	Attacks    int
	Rejected   int
	Finished   bool
	SLO        []int
	Resilience []int
}

// Report aggregates a run.
type Report struct {
	Games          int
	Wins           []int
	ChaosWins      int
	Unfinished     int
	AvgRounds      float64
	MeanSLO        float64
	MeanResilience float64
	AttackRate     float64
	Rejected       int
	Strategies     []bot.Kind
}

const maxStepsPerRound = 400

func (c *Config) normalize() error {
	if c.Players <= 0 {
		c.Players = 3
	}
	if c.Games <= 0 {
		c.Games = 100
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = 40
	}
	if len(c.Strategies) == 0 {
		c.Strategies = []bot.Kind{bot.KindBuilder, bot.KindBalanced, bot.KindSaboteur}
	}
	if c.Mode == "" {
		c.Mode = game.ModeCompetitive
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Catalog == nil {
		cat, err := catalog.Default()
		if err != nil {
			return fmt.Errorf("load default catalog: %w", err)
		}
		c.Catalog = cat
	}
	if c.Seed == 0 {
		seed, err := random.NewSeed()
		if err != nil {
			return err
		}
		c.Seed = seed
	}
	return nil
}

// Run plays cfg.Games matches and aggregates them. Results are identical for
// identical seeds regardless of worker count.
func Run(ctx context.Context, cfg Config) (Report, []GameResult, error) {
	if err := cfg.normalize(); err != nil {
		return Report{}, nil, err
	}
	results := make([]GameResult, cfg.Games)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := 0; i < cfg.Games; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := Play(cfg, random.Derive(cfg.Seed, fmt.Sprintf("game-%d", i)))
			if err != nil {
				return fmt.Errorf("game %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, nil, err
	}
	return Aggregate(cfg, results), results, nil
}

func seatID(i int) string {
	return fmt.Sprintf("seat-%d", i+1)
}

// Play runs one match with bot seats to completion or to the round limit.
func Play(cfg Config, seed uint64) (GameResult, error) {
	if err := cfg.normalize(); err != nil {
		return GameResult{}, err
	}
	participants := make([]game.Participant, 0, cfg.Players)
	strategies := make(map[string]game.Strategy, cfg.Players+1)
	for i := 0; i < cfg.Players; i++ {
		id := seatID(i)
		kind := cfg.Strategies[i%len(cfg.Strategies)]
		participants = append(participants, game.Participant{PlayerID: id, DisplayName: fmt.Sprintf("%s (%s)", id, kind)})
		strategies[id] = bot.New(id, kind, cfg.Catalog)
	}
	if cfg.Mode.Automated() {
		strategies[game.ChaosActorID] = chaos.New()
	}

	m, _, err := game.NewMatch(fmt.Sprintf("sim-%016x", seed), participants, game.Options{
		Mode:    cfg.Mode,
		Seed:    seed,
		Catalog: cfg.Catalog,
		Logger:  cfg.Logger,
	})
	if err != nil {
		return GameResult{}, err
	}

	res := GameResult{Seed: seed, WinnerSeat: -1}
	m.Events().On(func(e rules.Event) {
		if e.Type == rules.EventAttackDeclared {
			res.Attacks++
		} else {
			res.Turns++
		}
	}, rules.EventAttackDeclared, rules.EventTurnStarted)

	limit := cfg.MaxRounds * maxStepsPerRound * cfg.Players
	for step := 0; !m.Status().Terminal() && m.Round() <= cfg.MaxRounds; step++ {
		if step >= limit {
			return res, fmt.Errorf("match %s made no progress after %d steps", m.ID(), step)
		}
		actor := nextActor(m)
		s, ok := strategies[actor]
		if !ok {
			return res, fmt.Errorf("no strategy for %q", actor)
		}
		a, ok := s.Next(m.ViewFor(actor))
		if !ok {
			return res, fmt.Errorf("%s idle in %s", actor, m.Phase())
		}
		if err := apply(m, a, &res); err != nil {
			return res, err
		}
	}

	if !m.Status().Terminal() {
		if _, err := m.Abort("round_limit"); err != nil {
			return res, err
		}
	}
	res.Finished = m.Status() == game.StatusFinished
	res.Winner = m.Winner()
	res.Rounds = m.Round()
	for _, b := range m.Players() {
		if b.PlayerID == res.Winner {
			res.WinnerSeat = b.Seat
		}
		res.SLO = append(res.SLO, b.SLO)
		res.Resilience = append(res.Resilience, b.Resilience)
	}
	return res, nil
}

func nextActor(m *game.Match) string {
	switch m.Gate() {
	case rules.GateChaosReveal:
		return game.ChaosActorID
	case rules.GateInterrupt:
		return m.Window().TargetID
	default:
		return m.ActivePlayer()
	}
}

// apply submits a strategy action and falls back to pass when the engine
// refuses it, so a misjudged bot cannot stall the match.
func apply(m *game.Match, a game.Action, res *GameResult) error {
	_, err := m.Apply(a)
	if err == nil {
		return nil
	}
	if _, ok := game.AsValidation(err); !ok || a.Type == rules.ActionPass {
		return err
	}
	res.Rejected++
	_, err = m.Apply(game.Action{MatchID: a.MatchID, ActorID: a.ActorID, Type: rules.ActionPass})
	if err != nil {
		return errors.Join(fmt.Errorf("fallback pass for %s", a.ActorID), err)
	}
	return nil
}

// Aggregate folds per-game results into a report.
func Aggregate(cfg Config, results []GameResult) Report {
	rep := Report{
		Games:      len(results),
		Wins:       make([]int, cfg.Players),
		Strategies: cfg.Strategies,
	}
	var rounds, turns, attacks, slo, resilience, samples int
	for _, r := range results {
		switch {
		case !r.Finished:
			rep.Unfinished++
		case r.Winner == game.ChaosActorID:
			rep.ChaosWins++
		case r.WinnerSeat >= 0 && r.WinnerSeat < len(rep.Wins):
			rep.Wins[r.WinnerSeat]++
		}
		rounds += r.Rounds
		turns += r.Turns
		attacks += r.Attacks
		rep.Rejected += r.Rejected
		for i := range r.SLO {
			slo += r.SLO[i]
			resilience += r.Resilience[i]
			samples++
		}
	}
	if rep.Games > 0 {
		rep.AvgRounds = float64(rounds) / float64(rep.Games)
	}
	if samples > 0 {
		rep.MeanSLO = float64(slo) / float64(samples)
		rep.MeanResilience = float64(resilience) / float64(samples)
	}
	if turns > 0 {
		rep.AttackRate = float64(attacks) / float64(turns)
	}
	return rep
}

// String renders the report the way the balance tooling always has.
func (r Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Games: %d\n", r.Games)
	fmt.Fprintf(&sb, "Average rounds: %.2f\n", r.AvgRounds)
	fmt.Fprintf(&sb, "Average SLO per player: %.2f\n", r.MeanSLO)
	fmt.Fprintf(&sb, "Average resilience per player: %.2f\n", r.MeanResilience)
	fmt.Fprintf(&sb, "Attacks per turn: %.2f\n", r.AttackRate)
	for i, wins := range r.Wins {
		kind := bot.KindBalanced
		if len(r.Strategies) > 0 {
			kind = r.Strategies[i%len(r.Strategies)]
		}
		fmt.Fprintf(&sb, "Player %d (%s) wins: %d\n", i+1, kind, wins)
	}
	if r.ChaosWins > 0 {
		fmt.Fprintf(&sb, "Chaos Monkey wins: %d\n", r.ChaosWins)
	}
	fmt.Fprintf(&sb, "Unfinished: %d\n", r.Unfinished)
	if r.Rejected > 0 {
		fmt.Fprintf(&sb, "Rejected bot actions: %d\n", r.Rejected)
	}
	return sb.String()
}
