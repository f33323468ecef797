// Command replay rebuilds a recorded match from the turn log and prints its
// final state, so a disputed or faulted match can be inspected offline.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kubeclash/clash-server-go/internal/config"
	"github.com/kubeclash/clash-server-go/internal/game"
	"github.com/kubeclash/clash-server-go/internal/game/catalog"
	"github.com/kubeclash/clash-server-go/internal/journal"
	"github.com/kubeclash/clash-server-go/internal/match"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	matchID    = flag.String("match", "", "match id to replay")
	viewer     = flag.String("viewer", "", "print the view of this player instead of a summary")
)

func main() {
	flag.Parse()
	if *matchID == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -match <id> [-config path] [-viewer player]")
		os.Exit(2)
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if cfg.Journal.Driver == "" || cfg.Journal.Driver == "none" {
		return fmt.Errorf("no turn log configured")
	}

	cat, err := catalog.Default()
	if cfg.Catalog.Path != "" {
		cat, err = catalog.Load(cfg.Catalog.Path)
	}
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	store, err := journal.Open(ctx, cfg.Journal.Driver, cfg.Journal.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	m, err := match.Replay(ctx, store, *matchID, game.Options{Catalog: cat, Logger: zap.NewNop()})
	if m == nil {
		return err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay stopped early: %v\n", err)
	}

	if *viewer != "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(m.ViewFor(*viewer))
	}
	fmt.Printf("match:    %s (%s)\n", m.ID(), m.Mode())
	fmt.Printf("status:   %s\n", m.Status())
	fmt.Printf("round:    %d\n", m.Round())
	if w := m.Winner(); w != "" {
		fmt.Printf("winner:   %s\n", w)
	}
	for _, b := range m.Players() {
		fmt.Printf("  %-16s slo=%-3d resilience=%-3d resources=%d\n", b.PlayerID, b.SLO, b.Resilience, b.Resources)
	}
	fmt.Printf("checksum: %s\n", m.Checksum())
	return nil
}
