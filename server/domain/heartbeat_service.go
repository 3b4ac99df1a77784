package domain

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// HeartbeatService はクライアントからの入力が途絶えたセッションにだけ ping を送る死活監視です。
// 操作を送り続けているクライアントには ping を送らず、その読み込みを pong の代わりに記録します。
type HeartbeatService struct {
	pingInterval time.Duration
	session      *Session
	writeCh      chan<- []byte
	logger       *slog.Logger

	sent    atomic.Uint64
	skipped atomic.Uint64
}

func NewHeartbeatService(pingInterval time.Duration, session *Session, writeCh chan<- []byte, logger *slog.Logger) *HeartbeatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeartbeatService{
		pingInterval: pingInterval,
		session:      session,
		writeCh:      writeCh,
		logger:       logger,
	}
}

// Run は pingInterval ごとにセッションの読み込みを確認し、静かなセッションへ ping を送ります。
// pingInterval が 0 以下の場合は何もしません。
func (h *HeartbeatService) Run(ctx context.Context) {
	if h.pingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	ping := EncodePingMessage(h.session.ID())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if h.session.ReadWithin(h.pingInterval) {
				h.session.TouchPong()
				h.skipped.Add(1)
				continue
			}
			select {
			case h.writeCh <- ping:
				h.sent.Add(1)
				h.logger.DebugContext(ctx, "heartbeat: ping sent", "sessionID", h.session.ID())
			default:
				h.logger.WarnContext(ctx, "heartbeat: writeCh full, ping dropped", "sessionID", h.session.ID())
			}
		}
	}
}

// Sent は送った ping の数です。
func (h *HeartbeatService) Sent() uint64 { return h.sent.Load() }

// Skipped は入力があったため ping を省いた回数です。
func (h *HeartbeatService) Skipped() uint64 { return h.skipped.Load() }
