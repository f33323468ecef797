package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kubeclash/clash-server-go/internal/bot"
	"github.com/kubeclash/clash-server-go/internal/game"
	"github.com/kubeclash/clash-server-go/internal/game/catalog"
	"github.com/kubeclash/clash-server-go/internal/sim"
)

var (
	players     = flag.Int("players", 3, "seats per match")
	games       = flag.Int("games", 100, "matches to play")
	maxRounds   = flag.Int("max-rounds", 40, "abandon a match after this many rounds")
	strategies  = flag.String("strategies", "builder,balanced,saboteur", "comma separated bot strategies, cycled over the seats")
	mode        = flag.String("mode", "competitive", "competitive, solo or coop")
	seed        = flag.Uint64("seed", 0, "base seed; 0 picks one at random")
	workers     = flag.Int("workers", 0, "parallel matches; 0 uses GOMAXPROCS")
	catalogPath = flag.String("catalog", "", "card catalog file; empty uses the built-in catalog")
	verbose     = flag.Bool("v", false, "log match progress")
	perGame     = flag.Bool("per-game", false, "print one line per match")
)

func main() {
	flag.Parse()

	level := zapcore.WarnLevel
	if *verbose {
		level = zapcore.DebugLevel
	}
	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	m, err := game.ParseMode(*mode)
	if err != nil {
		return err
	}
	var kinds []bot.Kind
	for _, name := range strings.Split(*strategies, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		k, err := bot.ParseKind(name)
		if err != nil {
			return err
		}
		kinds = append(kinds, k)
	}

	cat, err := catalog.Default()
	if *catalogPath != "" {
		cat, err = catalog.Load(*catalogPath)
	}
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, results, err := sim.Run(ctx, sim.Config{
		Players:    *players,
		Games:      *games,
		MaxRounds:  *maxRounds,
		Strategies: kinds,
		Mode:       m,
		Seed:       *seed,
		Workers:    *workers,
		Catalog:    cat,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	if *perGame {
		for i, r := range results {
			fmt.Printf("game %d seed=%d winner=%q rounds=%d attacks=%d finished=%t\n",
				i+1, r.Seed, r.Winner, r.Rounds, r.Attacks, r.Finished)
		}
		fmt.Println()
	}
	fmt.Print(report.String())
	return nil
}
