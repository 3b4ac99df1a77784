package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrNoHandler      = errors.New("relay: handler is required")
	ErrAlreadyStarted = errors.New("relay: start called multiple times")
	ErrNotStarted     = errors.New("relay: not started")
	ErrStopped        = errors.New("relay: stopped")
	// ErrQueueFull は TrySubmit でキューに空きがなかった場合のエラーです。
	ErrQueueFull = errors.New("relay: queue full")
)

// Handler はキューから取り出した要素を処理します。
type Handler[T any] func(ctx context.Context, item T) error

// Config は Relay の設定です。
type Config[T any] struct {
	Name      string
	Handler   Handler[T]
	QueueSize int
	Logger    *slog.Logger
}

// Relay は投入された要素を単一の goroutine で順に Handler へ渡します。
// ゲームキューの tick から送信処理を切り離すために使います。
type Relay[T any] struct {
	name    string
	handler Handler[T]
	queue   chan T
	logger  *slog.Logger

	// mu は投入中の送信と Stop によるキューの close を排他します。Submit の待機は stopping で解けます。
	mu       sync.RWMutex
	started  atomic.Bool
	stopped  atomic.Bool
	dropped  atomic.Uint64
	stopping chan struct{}

	done chan struct{}
}

func New[T any](cfg Config[T]) (*Relay[T], error) {
	if cfg.Handler == nil {
		return nil, ErrNoHandler
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1024
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay[T]{
		name:     cfg.Name,
		handler:  cfg.Handler,
		queue:    make(chan T, queueSize),
		logger:   logger,
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start はループを開始します。一度だけ呼べます。
func (r *Relay[T]) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go r.run(ctx)
	return nil
}

func (r *Relay[T]) run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "relay context cancelled, shutting down", "relay", r.name, "err", ctx.Err())
			return
		case item, ok := <-r.queue:
			if !ok {
				r.logger.DebugContext(ctx, "relay queue closed, exiting", "relay", r.name)
				return
			}
			if err := r.handler(ctx, item); err != nil {
				r.logger.WarnContext(ctx, "relay handler error", "relay", r.name, "err", err)
			}
		}
	}
}

// Submit はキューに空きができるまで待って要素を投入します。待っている間に Stop されると ErrStopped を返します。
func (r *Relay[T]) Submit(ctx context.Context, item T) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.accepting(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.stopping:
		return ErrStopped
	case r.queue <- item:
		return nil
	}
}

// TrySubmit は待たずに投入します。キューが満杯なら要素を捨てて ErrQueueFull を返します。
func (r *Relay[T]) TrySubmit(item T) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.accepting(); err != nil {
		return err
	}
	select {
	case r.queue <- item:
		return nil
	default:
		r.dropped.Add(1)
		return ErrQueueFull
	}
}

func (r *Relay[T]) accepting() error {
	if !r.started.Load() {
		return ErrNotStarted
	}
	if r.stopped.Load() {
		return ErrStopped
	}
	return nil
}

// Dropped は TrySubmit で捨てた要素の数です。
func (r *Relay[T]) Dropped() uint64 {
	return r.dropped.Load()
}

// Stop はキューを閉じ、残りを処理し終えるまで待ちます。
func (r *Relay[T]) Stop(ctx context.Context) error {
	if !r.stopped.CompareAndSwap(false, true) {
		return ErrStopped
	}
	close(r.stopping)
	r.mu.Lock()
	close(r.queue)
	r.mu.Unlock()
	if !r.started.Load() {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DrainTimeout は timeout を上限に Stop します。
func (r *Relay[T]) DrainTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return r.Stop(ctx)
}
