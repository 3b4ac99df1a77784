package domain

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// Topic は PubSub の宛先です。
type Topic string

func SessionTopic(id SessionID) Topic  { return Topic("session:" + id.String()) }
func RoomTopic(id RoomID) Topic        { return Topic("room:" + id.String()) }
func RoomControlTopic(id RoomID) Topic { return Topic("room:" + id.String() + ":ctrl") }
func ReplicaTopic(id RoomID) Topic     { return Topic("replica:" + id.String()) }

// Message は PubSub で運ばれる 1 件のメッセージです。
// Origin はレプリカ間メッセージの送信元レプリカで、それ以外では空です。
type Message struct {
	SessionID SessionID
	Origin    string
	Data      []byte
}

// ErrPubSubClosed は Close 後の Publish です。
var ErrPubSubClosed = errors.New("pubsub closed")

// PubSub はセッション・ルーム・レプリカ間のメッセージ配送です。
type PubSub interface {
	Publish(ctx context.Context, topic Topic, msg Message) error
	Subscribe(topic Topic) <-chan Message
	Unsubscribe(topic Topic, ch <-chan Message)
}

// SimplePubSub はプロセス内の PubSub です。
// 購読者のバッファが満杯の場合、そのメッセージは購読者ごとに破棄されます。
type SimplePubSub struct {
	mu     sync.RWMutex
	subs   map[Topic][]chan Message
	buffer int
	closed bool

	dropped atomic.Uint64
}

func NewSimplePubSub() *SimplePubSub {
	return NewSimplePubSubWithBuffer(1024)
}

func NewSimplePubSubWithBuffer(buffer int) *SimplePubSub {
	return &SimplePubSub{
		subs:   make(map[Topic][]chan Message),
		buffer: max(buffer, 0),
	}
}

func (ps *SimplePubSub) Publish(ctx context.Context, topic Topic, msg Message) error {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	if ps.closed {
		return ErrPubSubClosed
	}
	for _, ch := range ps.subs[topic] {
		select {
		case ch <- msg:
		default:
			ps.dropped.Add(1)
			slog.WarnContext(ctx, "pubsub: subscriber full, message dropped", "topic", topic)
		}
	}
	return nil
}

func (ps *SimplePubSub) Subscribe(topic Topic) <-chan Message {
	ch := make(chan Message, ps.buffer)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.closed {
		close(ch)
		return ch
	}
	ps.subs[topic] = append(ps.subs[topic], ch)
	return ch
}

func (ps *SimplePubSub) Unsubscribe(topic Topic, ch <-chan Message) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	subs := ps.subs[topic]
	i := slices.IndexFunc(subs, func(c chan Message) bool { return (<-chan Message)(c) == ch })
	if i < 0 {
		return
	}
	close(subs[i])
	subs = slices.Delete(subs, i, i+1)
	if len(subs) == 0 {
		delete(ps.subs, topic)
		return
	}
	ps.subs[topic] = subs
}

// Subscribers はトピックの購読者数を返します。
func (ps *SimplePubSub) Subscribers(topic Topic) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subs[topic])
}

func (ps *SimplePubSub) Dropped() uint64 {
	return ps.dropped.Load()
}

// Close は全ての購読チャネルを閉じます。
func (ps *SimplePubSub) Close() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.closed {
		return
	}
	ps.closed = true
	for topic, subs := range ps.subs {
		for _, ch := range subs {
			close(ch)
		}
		delete(ps.subs, topic)
	}
}
