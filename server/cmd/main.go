package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"arena/game"
	"arena/internal/config"
	"arena/server"
	"arena/server/application"
	"arena/server/domain"
	"arena/server/observability"
)

const shutdownTimeout = 10 * time.Second

type Config struct {
	Addr      string   `env:"ADDR" envDefault:"localhost"`
	Port      string   `env:"PORT" envDefault:"9090"`
	ReplicaID string   `env:"ARENA_REPLICA_ID"`
	Room      string   `env:"ARENA_ROOM" envDefault:"default"`
	LogFormat string   `env:"ARENA_LOG_FORMAT" envDefault:"text"`
	LogLevel  string   `env:"ARENA_LOG_LEVEL" envDefault:"info"`
	Origins   []string `env:"ARENA_ORIGINS" envSeparator:","`
	// Replay が true なら起動時に直前のスケジューラウィンドウを再生します。
	Replay bool `env:"ARENA_REPLAY" envDefault:"false"`

	Endpoint domain.EndpointConfig `envPrefix:"ARENA_ENDPOINT_"`
	Game     game.Config           `envPrefix:"ARENA_GAME_"`
}

func main() {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if cfg.ReplicaID == "" {
		cfg.ReplicaID = uuid.NewString()
	}

	logger := newLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.ErrorContext(ctx, "server stopped with error", "err", err)
		os.Exit(1)
	}
	logger.InfoContext(ctx, "server shutdown complete")
}

func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewArenaCollector(reg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	pubsub := domain.NewSimplePubSub()
	defer pubsub.Close()

	roomID := domain.RoomID(cfg.Room)
	roomManager := domain.NewSimpleRoomManager(roomID)

	arena, err := application.NewArena(application.ArenaConfig{
		RoomID:    roomID,
		ReplicaID: cfg.ReplicaID,
		Game:      cfg.Game,
		Replay:    cfg.Replay,
	}, pubsub, metrics, logger)
	if err != nil {
		return fmt.Errorf("arena: %w", err)
	}

	var ready atomic.Bool
	handler := server.Route(server.Routes{
		PubSub:      pubsub,
		RoomManager: roomManager,
		Endpoint:    cfg.Endpoint,
		Origins:     cfg.Origins,
		Ready:       ready.Load,
		Metrics:     metrics.Handler(),
	})
	eg, ctx := errgroup.WithContext(ctx)
	s := server.NewServer(fmt.Sprintf("%s:%s", cfg.Addr, cfg.Port), handler,
		server.WithBaseContext(ctx),
		server.WithErrorLogger(logger),
	)
	eg.Go(func() error {
		return arena.Run(ctx)
	})
	eg.Go(func() error {
		logger.InfoContext(ctx, "server listening", "addr", s.Addr(), "room", roomID, "replicaID", cfg.ReplicaID)
		ready.Store(true)
		if err := s.Serve(); err != nil {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		ready.Store(false)
		logger.Info("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "err", err)
			if err := s.Close(); err != nil {
				logger.Error("forced close failed", "err", err)
			}
		}
		return nil
	})
	return eg.Wait()
}

func newLogger(format, level string) *slog.Logger {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		lv = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lv}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
