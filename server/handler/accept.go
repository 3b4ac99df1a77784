package handler

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	adapterwebsocket "arena/server/adapter/websocket"
	"arena/server/domain"
)

type AcceptHandler struct {
	pubsub      domain.PubSub
	roomManager domain.RoomManager
	cfg         domain.EndpointConfig
	origins     []string
}

// NewAcceptHandler は WebSocket 接続を受け付けるハンドラを返します。
// origins が空の場合は Origin を検査しません。
func NewAcceptHandler(pubsub domain.PubSub, roomManager domain.RoomManager, cfg domain.EndpointConfig, origins ...string) *AcceptHandler {
	return &AcceptHandler{pubsub: pubsub, roomManager: roomManager, cfg: cfg, origins: origins}
}

func (h *AcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: len(h.origins) == 0,
		OriginPatterns:     h.origins,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to accept", "err", err)
		return
	}

	session := domain.NewSession()
	transport := adapterwebsocket.NewTransportFrom(conn)
	connection := domain.NewConnection(session.ID(), transport, domain.WithWriteTimeout(h.cfg.WriteTimeout))
	endpoint, err := domain.NewSessionEndpoint(ctx, session, connection, h.pubsub, h.roomManager, h.cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create session endpoint", "err", err)
		connection.Close(domain.IdleNone)
		return
	}
	slog.DebugContext(ctx, "accepted new connection", "sessionID", session.ID())
	if err := endpoint.Run(); err != nil {
		slog.ErrorContext(ctx, "failed to run session endpoint", "sessionID", session.ID(), "err", err)
		return
	}
	slog.DebugContext(ctx, "connection closed", "sessionID", session.ID(), "reason", session.CloseReason())
}
