package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"arena/game"
	"arena/game/event"
	"arena/server/domain"
	"arena/server/observability"
)

const drainTimeout = 2 * time.Second

// ArenaConfig は 1 ルーム分の構成です。
type ArenaConfig struct {
	RoomID    domain.RoomID
	ReplicaID string
	Game      game.Config
	// Replay が true なら起動時に直前のウィンドウのイベントを生成し直します。
	Replay bool
}

// Arena はルーム・ゲーム・配送を組み立てたものです。
type Arena struct {
	Room       *domain.Room
	Game       *game.Game
	App        *ArenaApplication
	Replicator *Replicator

	replay bool
	logger *slog.Logger
}

func NewArena(cfg ArenaConfig, pubsub domain.PubSub, metrics *observability.ArenaCollector, logger *slog.Logger, opts ...game.Option) (*Arena, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("roomID", cfg.RoomID, "replicaID", cfg.ReplicaID)

	channels := event.NewChannels()
	g, err := game.New(cfg.Game, channels, append([]game.Option{game.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("new game: %w", err)
	}
	app := NewArenaApplication(g, cfg.ReplicaID, metrics, logger)
	room := domain.NewRoom(cfg.RoomID, pubsub, app, domain.WithTickInterval(cfg.Game.TickInterval))

	replicator, err := NewReplicator(pubsub, cfg.RoomID, cfg.ReplicaID, metrics, logger)
	if err != nil {
		return nil, err
	}
	if err := channels.Domain.Register(replicator); err != nil {
		return nil, err
	}
	if err := channels.Client.Register(NewClientSink(room)); err != nil {
		return nil, err
	}
	if metrics != nil {
		g.World().Topics.OnDispatch = metrics.DomainEvent
		g.World().Outbox.OnFlush = metrics.ClientBatch
	}

	return &Arena{
		Room:       room,
		Game:       g,
		App:        app,
		Replicator: replicator,
		replay:     cfg.Replay,
		logger:     logger,
	}, nil
}

// Run はルームを ctx がキャンセルされるまで動かし、最後に未送信のレプリカイベントを送り切ります。
func (a *Arena) Run(ctx context.Context) error {
	// 停止後もキューに残ったイベントを送れるよう、relay は ctx のキャンセルでは止めない
	if err := a.Replicator.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	if a.replay {
		a.Game.Replay(ctx, time.Now().UnixMilli())
	}
	runErr := a.Room.Run(ctx)

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()
	if err := a.Replicator.Stop(stopCtx); err != nil {
		a.logger.WarnContext(ctx, "replicator stop failed", "err", err)
	}
	return runErr
}
