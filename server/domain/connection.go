package domain

import (
	"context"
	"time"
)

// WebSocket の close コードです。
const (
	StatusNormalClosure   int32 = 1000
	StatusGoingAway       int32 = 1001
	StatusPolicyViolation int32 = 1008
	StatusInternalError   int32 = 1011
)

// Connection はセッションと 1 本の Transport の対応です。書き込みには WriteTimeout が掛かります。
type Connection struct {
	SessionID SessionID
	transport Transport

	writeTimeout time.Duration
}

type ConnectionOption func(*Connection)

// WithWriteTimeout は 1 メッセージの書き込みにかけられる時間を設定します。0 以下なら無制限です。
func WithWriteTimeout(d time.Duration) ConnectionOption {
	return func(c *Connection) { c.writeTimeout = d }
}

func NewConnection(sessionID SessionID, transport Transport, opts ...ConnectionOption) *Connection {
	c := &Connection{
		SessionID: sessionID,
		transport: transport,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Write は WriteTimeout を過ぎた書き込みを打ち切ります。
func (c *Connection) Write(ctx context.Context, data []byte) error {
	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	return c.transport.Write(ctx, data)
}

func (c *Connection) Read(ctx context.Context) ([]byte, error) {
	return c.transport.Read(ctx)
}

// Close は理由に応じた close コードで接続を閉じます。既に閉じている場合のエラーは無視します。
func (c *Connection) Close(reason IdleReason) {
	_ = c.transport.Close(CloseCode(reason), reason.String())
}

// CloseCode は閉じた理由を close コードへ対応づけます。
func CloseCode(reason IdleReason) int32 {
	switch {
	case reason == IdleNone:
		return StatusNormalClosure
	case reason.Has(IdleBroken):
		return StatusInternalError
	case reason.Has(IdlePong):
		return StatusPolicyViolation
	default:
		return StatusGoingAway
	}
}
