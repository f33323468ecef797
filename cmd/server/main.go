package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/kubeclash/clash-server-go/internal/broadcast"
	"github.com/kubeclash/clash-server-go/internal/config"
	"github.com/kubeclash/clash-server-go/internal/game/catalog"
	"github.com/kubeclash/clash-server-go/internal/journal"
	"github.com/kubeclash/clash-server-go/internal/match"
	"github.com/kubeclash/clash-server-go/internal/server"
)

const shutdownTimeout = 15 * time.Second

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting cluster clash server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
	logger.Info("cluster clash server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	logger.Info("card catalog loaded",
		zap.String("version", cat.Version()),
		zap.Int("cards", cat.Size()),
	)

	store, err := journal.Open(ctx, cfg.Journal.Driver, cfg.Journal.DSN)
	if err != nil {
		return fmt.Errorf("open turn log: %w", err)
	}
	defer store.Close()
	recorder := journal.NewRecorder(store, cfg.Journal.Buffer, logger.Named("journal"))
	logger.Info("turn log initialized", zap.String("driver", cfg.Journal.Driver))

	hub := broadcast.NewHub(cfg.Server.WebSocket.SendBuffer, logger.Named("broadcast"))

	manager := match.NewManager(match.Config{
		InterruptWindow: cfg.Match.InterruptWindow,
		QueueSize:       cfg.Match.QueueSize,
		Retention:       cfg.Match.Retention,
		MaxMatches:      cfg.Server.MaxMatches,
		Seed:            cfg.Match.Seed,
	}, cat, hub, recorder, logger.Named("match"))
	logger.Info("match manager initialized",
		zap.Duration("interrupt_window", cfg.Match.InterruptWindow),
		zap.Int("max_matches", cfg.Server.MaxMatches),
	)

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(server.ChainUnaryInterceptors(
			server.RecoveryInterceptor(logger),
			server.LoggingInterceptor(logger),
		)),
		grpc.StreamInterceptor(server.StreamRecoveryInterceptor(logger)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.MaxConcurrentStreams(uint32(cfg.Server.GRPC.MaxConcurrentStreams)),
	)
	health := server.Register(grpcServer, server.NewClashServer(manager, hub, version, logger.Named("grpc")))

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPC.Address, err)
	}

	wsServer := server.NewWebSocketServer(cfg.Server.WebSocket,
		server.NewWebSocketHandler(cfg.Server.WebSocket, manager, hub, logger.Named("websocket")))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		logger.Info("starting WebSocket server",
			zap.String("address", cfg.Server.WebSocket.Address),
			zap.String("path", cfg.Server.WebSocket.Path),
		)
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully...")
		health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := wsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("websocket shutdown", zap.Error(err))
		}
		grpcServer.GracefulStop()
		if err := manager.Shutdown(shutdownCtx); err != nil {
			logger.Warn("match shutdown", zap.Error(err))
		}
		if err := recorder.Close(shutdownCtx); err != nil {
			logger.Warn("turn log flush", zap.Error(err))
		}
		if n := recorder.Dropped(); n > 0 {
			logger.Warn("turn log entries dropped", zap.Int64("count", n))
		}
		return nil
	})

	logger.Info("cluster clash server initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
