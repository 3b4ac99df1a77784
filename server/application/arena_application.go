package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"arena/game"
	"arena/game/event"
	"arena/server/domain"
	"arena/server/observability"
	"arena/utils"
)

var (
	// ErrInvalidCommand は数値が有限でない、または種別が不明な操作です。
	ErrInvalidCommand = errors.New("invalid command")
)

// ArenaApplication はクライアントの操作をゲームのコマンドへ変換し、
// 他のレプリカからのイベントをゲームへ反映する domain.Application です。
type ArenaApplication struct {
	game      *game.Game
	replicaID string
	metrics   *observability.ArenaCollector
	logger    *slog.Logger
}

func NewArenaApplication(g *game.Game, replicaID string, metrics *observability.ArenaCollector, logger *slog.Logger) *ArenaApplication {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArenaApplication{
		game:      g,
		replicaID: replicaID,
		metrics:   metrics,
		logger:    logger,
	}
}

func (app *ArenaApplication) HandleMessage(ctx context.Context, sessionID domain.SessionID, data []byte) error {
	frame, err := domain.ParseFrame(data)
	if err != nil {
		return err
	}
	if frame.Payload.DataType != domain.DataTypeCommand {
		app.logger.WarnContext(ctx, "unexpected data type in room", "sessionID", sessionID, "dataType", frame.Payload.DataType)
		return nil
	}

	id := sessionID.Entity()
	switch sub := domain.CommandSubType(frame.Payload.SubType); sub {
	case domain.CommandSubTypeJoin:
		cmd, err := domain.ParseJoinCommand(frame.Body)
		if err != nil {
			return err
		}
		app.logger.DebugContext(ctx, "handleCommand:join", "sessionID", sessionID, "name", cmd.Name, "platform", cmd.Platform)
		return app.game.Join(ctx, id, cmd.Name, cmd.Platform)
	case domain.CommandSubTypeSpawn:
		return app.game.Spawn(ctx, id)
	case domain.CommandSubTypeMove:
		cmd, err := domain.ParseMoveCommand(frame.Body)
		if err != nil {
			return err
		}
		dx, dy := float64(cmd.DX), float64(cmd.DY)
		if !utils.Finite(dx, dy) {
			return fmt.Errorf("%w: move (%v, %v)", ErrInvalidCommand, cmd.DX, cmd.DY)
		}
		var angle *float64
		if cmd.HasAngle {
			a := float64(cmd.Angle)
			if !utils.Finite(a) {
				return fmt.Errorf("%w: angle %v", ErrInvalidCommand, cmd.Angle)
			}
			angle = &a
		}
		return app.game.Move(ctx, id, dx, dy, angle)
	case domain.CommandSubTypeFire:
		return app.game.Fire(ctx, id)
	case domain.CommandSubTypeLeave:
		return app.game.Leave(ctx, id)
	case domain.CommandSubTypeDamping:
		cmd, err := domain.ParseDampingCommand(frame.Body)
		if err != nil {
			return err
		}
		c := float64(cmd.Factor)
		if !utils.Finite(c) {
			return fmt.Errorf("%w: damping %v", ErrInvalidCommand, cmd.Factor)
		}
		return app.game.SetDampingFactor(ctx, id, c)
	default:
		return fmt.Errorf("%w: subtype %d", ErrInvalidCommand, sub)
	}
}

// HandleReplica は自分が送ったもの以外のレプリカイベントをゲームへ反映します。
func (app *ArenaApplication) HandleReplica(ctx context.Context, msg domain.Message) error {
	if msg.Origin == app.replicaID {
		app.metrics.Replica("received", "own")
		return nil
	}
	ev, err := event.Unmarshal(msg.Data)
	if err != nil {
		app.metrics.Replica("received", "decode_error")
		return fmt.Errorf("replica from %s: %w", msg.Origin, err)
	}
	app.game.Consume(ctx, ev)
	app.metrics.Replica("received", "applied")
	return nil
}

// SessionLeft は切断したセッションのプレイヤーを退出させます。ゲームに参加していなければ何もしません。
func (app *ArenaApplication) SessionLeft(ctx context.Context, sessionID domain.SessionID) {
	err := app.game.Leave(ctx, sessionID.Entity())
	if err != nil && !errors.Is(err, game.ErrUnknownPlayer) {
		app.logger.WarnContext(ctx, "leave on disconnect failed", "sessionID", sessionID, "err", err)
	}
}

func (app *ArenaApplication) Tick(ctx context.Context, now time.Time) {
	start := time.Now()
	app.game.FixedUpdate(ctx, now.UnixMilli())
	app.metrics.ObserveTick(time.Since(start))

	if app.metrics != nil {
		s := app.game.Stats()
		app.metrics.SetWorld(s.Players, s.Spawned, s.Bolts, s.Effects)
	}
}
