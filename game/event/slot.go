package event

import (
	"context"
	"errors"
	"sync/atomic"
)

//go:generate go tool mockgen -destination=./mocks/dispatcher_mock.go -package=mocks . Dispatcher,ClientDispatcher

// Dispatcher はドメインイベントを他のレプリカへ送り出す外部協調者です。
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Domain) error
}

// ClientDispatcher はクライアント向けイベントのバッチを配送する外部協調者です。
type ClientDispatcher interface {
	DispatchClient(ctx context.Context, batch []Client) error
}

// ErrAlreadyRegistered は登録済みのスロットに再登録しようとした場合のエラーです。
var ErrAlreadyRegistered = errors.New("event: dispatcher already registered")

// Slot は値を 1 つだけ登録できるハンドルです。
// 登録は配線の完了時に一度だけ行われ、それまで Load は ok=false を返します。
type Slot[T any] struct {
	name  string
	value atomic.Pointer[T]
}

func NewSlot[T any](name string) *Slot[T] {
	return &Slot[T]{name: name}
}

func (s *Slot[T]) Name() string { return s.name }

func (s *Slot[T]) Register(v T) error {
	if !s.value.CompareAndSwap(nil, &v) {
		return ErrAlreadyRegistered
	}
	return nil
}

func (s *Slot[T]) Load() (T, bool) {
	p := s.value.Load()
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Channels は外向きのディスパッチャ登録点をまとめたものです。
// セットアップ時に生成し、ゲームと配線コードの双方へ明示的に渡します。
type Channels struct {
	Domain *Slot[Dispatcher]
	Client *Slot[ClientDispatcher]
}

func NewChannels() *Channels {
	return &Channels{
		Domain: NewSlot[Dispatcher]("domain"),
		Client: NewSlot[ClientDispatcher]("client"),
	}
}
