package domain

import (
	"context"
	"time"
)

// Application は Room の tick に乗るアプリケーションロジックです。
// 全てのメソッドは Room の単一 goroutine から呼ばれます。
type Application interface {
	// HandleMessage はセッションから届いたメッセージを処理します。
	HandleMessage(ctx context.Context, sessionID SessionID, data []byte) error
	// HandleReplica は他のレプリカから届いたメッセージを処理します。
	HandleReplica(ctx context.Context, msg Message) error
	// SessionLeft はセッションがルームを離れた時に呼ばれます。
	SessionLeft(ctx context.Context, sessionID SessionID)
	Tick(ctx context.Context, now time.Time)
}
