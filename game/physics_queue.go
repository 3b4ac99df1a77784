package game

import (
	"context"
	"fmt"
	"log/slog"
)

// Action は PhysicsQueue で毎 tick 呼ばれる述語です。true を返すと次の tick にも呼ばれます。
type Action func(ctx context.Context, timestamp int64) bool

// PhysicsQueue は時間制限付きの効果を tick ごとに進める自己再登録型のキューです。
// 1 回の FixedUpdate で呼ばれるのは開始時点に積まれていた件数だけで、
// 実行中に追加された Action は次の tick まで実行されません。
type PhysicsQueue struct {
	logger  *slog.Logger
	actions []Action
	spare   []Action
}

func NewPhysicsQueue(logger *slog.Logger) *PhysicsQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &PhysicsQueue{logger: logger}
}

func (q *PhysicsQueue) Enqueue(action Action) {
	q.actions = append(q.actions, action)
}

func (q *PhysicsQueue) Len() int {
	return len(q.actions)
}

func (q *PhysicsQueue) FixedUpdate(ctx context.Context, timestamp int64) {
	batch := q.actions
	q.actions = q.spare[:0]

	for i, action := range batch {
		if q.run(ctx, action, timestamp) {
			q.actions = append(q.actions, action)
		}
		batch[i] = nil
	}
	q.spare = batch[:0]
}

func (q *PhysicsQueue) run(ctx context.Context, action Action, timestamp int64) (requeue bool) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.ErrorContext(ctx, "physics action panicked, dropped", "timestamp", timestamp, "err", fmt.Sprint(r))
			requeue = false
		}
	}()
	return action(ctx, timestamp)
}
