package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rdowning07/starter-town-tactics-sub000/internal/config"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/game"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/metrics"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/repository"
	"github.com/rdowning07/starter-town-tactics-sub000/internal/spectator"
)

var (
	configPath = flag.String("config", "", "path to configuration file (defaults apply when empty)")
	verifyID   = flag.String("verify", "", "replay a stored match id against the configured scenario and exit")
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

	logger.Info("starting tactics simulation",
		zap.String("version", version),
		zap.String("config", *configPath),
		zap.String("scenario", cfg.Scenario.Name),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	store, closeStore, err := openStore(ctx, cfg.Replay, logger)
	if err != nil {
		logger.Fatal("failed to open replay store", zap.Error(err))
	}
	defer closeStore()

	if *verifyID != "" {
		if err := verifyReplay(ctx, cfg, store, *verifyID, logger); err != nil {
			logger.Error("replay verification failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	matchID := game.NewMatchID()
	opts := matchOptions{matchID: matchID, store: store}

	if cfg.Metrics.Enabled {
		collector, err := metrics.NewCollector(prometheus.DefaultRegisterer)
		if err != nil {
			logger.Fatal("failed to register metrics", zap.Error(err))
		}
		opts.observer = collector
		srv := serve(cfg.Metrics.Address, "/metrics", collector.Handler(), "metrics", logger)
		defer shutdown(srv, logger)
	}

	if cfg.Spectator.Enabled {
		hub := spectator.NewHub(logger, matchID, cfg.Spectator.SendBuffer)
		go hub.Run(ctx)
		opts.hub = hub
		srv := serve(cfg.Spectator.Address, "/ws", hub, "spectator", logger)
		defer shutdown(srv, logger)
	}

	result, err := runMatch(ctx, cfg, logger, opts)
	if err != nil {
		logger.Error("match failed", zap.Error(err))
		os.Exit(1)
	}

	fmt.Printf("match %s: %s after %d ticks\n", matchID, describe(result.state), result.state.Tick())
	for _, line := range result.state.Snapshot().Objectives {
		fmt.Println(line)
	}
	fmt.Printf("checksum %s\n", result.state.Checksum())

	logger.Info("tactics simulation stopped")
}

func describe(s *game.State) string {
	if s.IsOver() {
		return string(s.Outcome())
	}
	return "unfinished"
}

func openStore(ctx context.Context, cfg config.ReplayConfig, logger *zap.Logger) (game.ReplayStore, func(), error) {
	if !cfg.Enabled {
		return nil, func() {}, nil
	}
	switch cfg.Store {
	case config.StorePostgres:
		connectCtx, cancel := context.WithTimeout(ctx, storeTimeout(cfg))
		defer cancel()
		repo, err := repository.Connect(connectCtx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("replay store initialized", zap.String("store", cfg.Store))
		return repo, repo.Close, nil
	default:
		logger.Info("replay store initialized",
			zap.String("store", cfg.Store),
			zap.String("directory", cfg.Directory),
		)
		return game.NewFileReplayStore(cfg.Directory), func() {}, nil
	}
}

func verifyReplay(ctx context.Context, cfg *config.Config, store game.ReplayStore, matchID string, logger *zap.Logger) error {
	if store == nil {
		return errors.New("replay store is not enabled")
	}
	log, err := store.LoadReplay(ctx, matchID)
	if err != nil {
		return err
	}
	s, err := game.Replay(logger, cfg.Scenario, log)
	if err != nil {
		return err
	}
	fmt.Printf("replay %s verified at tick %d, checksum %s\n", matchID, s.Tick(), s.Checksum())
	return nil
}

func serve(addr, path string, handler http.Handler, name string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("starting "+name+" server", zap.String("address", addr), zap.String("path", path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(name+" server error", zap.Error(err))
		}
	}()
	return srv
}

func shutdown(srv *http.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown error", zap.String("address", srv.Addr), zap.Error(err))
	}
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
