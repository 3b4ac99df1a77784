package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coder/websocket"

	"arena/game/event"
	"arena/internal/config"
	"arena/server/application"
	"arena/server/domain"
)

type Config struct {
	Addr     string        `env:"ADDR" envDefault:"localhost"`
	Port     string        `env:"PORT" envDefault:"9090"`
	BotCount int           `env:"BOT_COUNT" envDefault:"3"`
	Room     string        `env:"BOT_ROOM"`
	Interval time.Duration `env:"BOT_INTERVAL" envDefault:"50ms"`
	Respawn  time.Duration `env:"BOT_RESPAWN" envDefault:"2s"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverURL := fmt.Sprintf("ws://%s:%s/ws", cfg.Addr, cfg.Port)
	slog.Info("starting bots", "count", cfg.BotCount, "server", serverURL)

	var wg sync.WaitGroup
	for i := range cfg.BotCount {
		wg.Go(func() {
			runBot(ctx, cfg, serverURL, i)
		})
	}

	wg.Wait()
	slog.Info("all bots stopped")
}

func runBot(ctx context.Context, cfg Config, serverURL string, id int) {
	logger := slog.With("botID", id)

	for {
		if ctx.Err() != nil {
			return
		}
		err := botSession(ctx, cfg, serverURL, id, logger)
		if err != nil && ctx.Err() == nil {
			logger.Warn("bot session ended, reconnecting", "err", err)
			select {
			case <-ctx.Done():
			case <-time.After(2 * time.Second):
			}
		}
	}
}

// botConn は 1 接続分の送信状態です。書き込みは受信ループと判断ループの両方から行われます。
type botConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
	bot  application.BotInstance
}

func (b *botConn) send(ctx context.Context, dataType domain.DataType, subType uint8, body []byte) error {
	data, err := domain.EncodeFrame(b.bot.SessionID, dataType, subType, body)
	if err != nil {
		return err
	}
	return b.conn.Write(ctx, websocket.MessageBinary, data)
}

func botSession(ctx context.Context, cfg Config, serverURL string, id int, logger *slog.Logger) error {
	conn, _, err := websocket.Dial(ctx, serverURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()
	logger.Info("connected")

	b := &botConn{conn: conn}
	assigned := make(chan struct{})
	readErr := make(chan error, 1)

	// 受信ループ
	go func() {
		readErr <- b.readLoop(ctx, cfg, id, assigned, logger)
	}()

	select {
	case <-assigned:
	case err := <-readErr:
		return err
	case <-ctx.Done():
		return nil
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	var lastSpawn time.Time

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "shutdown")
			return nil
		case err := <-readErr:
			return err
		case now := <-ticker.C:
			b.mu.Lock()
			me := b.bot.Field.Me()
			if me == nil || !me.Spawned {
				b.mu.Unlock()
				if now.Sub(lastSpawn) >= cfg.Respawn {
					lastSpawn = now
					if err := b.send(ctx, domain.DataTypeCommand, uint8(domain.CommandSubTypeSpawn), nil); err != nil {
						return fmt.Errorf("spawn: %w", err)
					}
				}
				continue
			}
			actors, bolts := b.bot.Field.Snapshot(now)
			self := *me
			for _, a := range actors {
				if a.ID == self.ID {
					self = a
				}
			}
			action := b.bot.Controller.Decide(self, actors, bolts, b.bot.Field.Available)
			b.mu.Unlock()

			if err := b.act(ctx, action); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}

func (b *botConn) act(ctx context.Context, action application.BotAction) error {
	if action.DX != 0 || action.DY != 0 || action.Aim {
		move := domain.MoveCommand{DX: float32(action.DX), DY: float32(action.DY), HasAngle: action.Aim, Angle: float32(action.Angle)}
		if err := b.send(ctx, domain.DataTypeCommand, uint8(domain.CommandSubTypeMove), move.Encode()); err != nil {
			return err
		}
	}
	if action.Fire {
		return b.send(ctx, domain.DataTypeCommand, uint8(domain.CommandSubTypeFire), nil)
	}
	return nil
}

func (b *botConn) readLoop(ctx context.Context, cfg Config, id int, assigned chan<- struct{}, logger *slog.Logger) error {
	for {
		_, data, err := b.conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		frame, err := domain.ParseFrame(data)
		if err != nil {
			logger.Debug("invalid frame", "err", err)
			continue
		}

		switch frame.Payload.DataType {
		case domain.DataTypeControl:
			switch domain.ControlSubType(frame.Payload.SubType) {
			case domain.ControlSubTypeAssign:
				sessionID := domain.SessionIDFromBytes(frame.Header.SessionID)
				b.mu.Lock()
				b.bot = application.BotInstance{
					SessionID:  sessionID,
					Field:      application.NewField(sessionID.Entity()),
					Controller: application.NewRuleBotController(nil),
				}
				b.mu.Unlock()
				logger.Info("session assigned", "sessionID", sessionID)
				if err := b.join(ctx, cfg, id); err != nil {
					return err
				}
				if assigned != nil {
					close(assigned)
					assigned = nil
				}
			case domain.ControlSubTypePing:
				if err := b.send(ctx, domain.DataTypeControl, uint8(domain.ControlSubTypePong), nil); err != nil {
					return fmt.Errorf("pong: %w", err)
				}
			case domain.ControlSubTypeKick:
				return errors.New("kicked by server")
			case domain.ControlSubTypeError:
				code, err := domain.ParseErrorPayload(frame.Body)
				if err != nil {
					logger.Debug("undecodable error reply", "err", err)
					continue
				}
				logger.Warn("server rejected frame", "code", code)
			}
		case domain.DataTypeEvent:
			c, err := event.UnmarshalClient(frame.Body)
			if err != nil {
				logger.Debug("undecodable event", "err", err)
				continue
			}
			b.mu.Lock()
			b.bot.Field.Apply(c)
			b.mu.Unlock()
		}
	}
}

// join はルームに入り、プレイヤーとして参加します。
func (b *botConn) join(ctx context.Context, cfg Config, id int) error {
	room := (&domain.JoinPayload{RoomID: domain.RoomID(cfg.Room)}).Encode()
	if err := b.send(ctx, domain.DataTypeControl, uint8(domain.ControlSubTypeJoin), room); err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	cmd := (&domain.JoinCommand{Name: fmt.Sprintf("bot-%d", id), Platform: "bot"}).Encode()
	if err := b.send(ctx, domain.DataTypeCommand, uint8(domain.CommandSubTypeJoin), cmd); err != nil {
		return fmt.Errorf("join game: %w", err)
	}
	return nil
}
