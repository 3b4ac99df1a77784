package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server は arena の HTTP/WebSocket サーバーです。
type Server struct {
	HTTP *http.Server
}

type ServerOption func(*http.Server)

// WithBaseContext はリクエストの親 context を ctx にします。
// WebSocket は Shutdown で閉じられないため、ctx のキャンセルでセッションを終わらせます。
func WithBaseContext(ctx context.Context) ServerOption {
	return func(s *http.Server) {
		s.BaseContext = func(net.Listener) context.Context { return ctx }
	}
}

// WithErrorLogger は net/http の内部エラーを logger へ流します。
func WithErrorLogger(logger *slog.Logger) ServerOption {
	return func(s *http.Server) {
		s.ErrorLog = slog.NewLogLogger(logger.Handler(), slog.LevelWarn)
	}
}

func NewServer(addr string, handler http.Handler, opts ...ServerOption) *Server {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	for _, opt := range opts {
		opt(httpServer)
	}
	return &Server{HTTP: httpServer}
}

// Serve は Shutdown か Close で止まるまで待ち受けます。正常な停止では nil を返します。
func (s *Server) Serve() error {
	if err := s.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error { return s.HTTP.Shutdown(ctx) }
func (s *Server) Close() error                       { return s.HTTP.Close() }
func (s *Server) Addr() string                       { return s.HTTP.Addr }
