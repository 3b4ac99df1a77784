package domain

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

var ErrRoomBusy = errors.New("room send channel is full")

// RoomOption は Room の設定を変更します。
type RoomOption func(*Room)

func WithTickInterval(d time.Duration) RoomOption {
	return func(r *Room) {
		if d > 0 {
			r.tickInterval = d
		}
	}
}

func WithSendBuffer(n int) RoomOption {
	return func(r *Room) {
		if n > 0 {
			r.sendCh = make(chan roomSend, n)
		}
	}
}

func WithRoomClock(clock func() time.Time) RoomOption {
	return func(r *Room) { r.clock = clock }
}

// Room はゲームキューです。1 つの goroutine が固定間隔で
// 制御メッセージ・セッションからのメッセージ・レプリカからのメッセージ・前 tick の送信を順に処理し、
// 最後に Application.Tick を呼びます。Application の状態に触れるのはこの goroutine だけです。
type Room struct {
	ID       RoomID
	sessions map[SessionID]struct{}
	joined   atomic.Int64

	pubsub      PubSub
	application Application // 外部からアプリケーションロジックを注入できる

	sendCh chan roomSend

	tickInterval time.Duration
	clock        func() time.Time
}

func NewRoom(id RoomID, pubsub PubSub, application Application, opts ...RoomOption) *Room {
	r := &Room{
		ID:           id,
		sessions:     make(map[SessionID]struct{}),
		pubsub:       pubsub,
		application:  application,
		sendCh:       make(chan roomSend, 4096),
		tickInterval: time.Second / 60,
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sessions はルームに参加中のセッション数です。どの goroutine からでも呼べます。
func (r *Room) Sessions() int {
	return int(r.joined.Load())
}

func (r *Room) Broadcast(ctx context.Context, data []byte) {
	for sessionID := range r.sessions {
		r.SendTo(ctx, sessionID, data)
	}
}

func (r *Room) SendTo(ctx context.Context, sessionID SessionID, data []byte) {
	if err := r.pubsub.Publish(ctx, SessionTopic(sessionID), Message{Data: data}); err != nil {
		slog.WarnContext(ctx, "room publish failed", "roomID", r.ID, "sessionID", sessionID, "err", err)
	}
}

// EnqueueBroadcast は次の tick で全セッションへ送るデータを積みます。
func (r *Room) EnqueueBroadcast(ctx context.Context, data []byte) error {
	return r.enqueueSend(ctx, roomSend{kind: roomSendBroadcast, data: data})
}

func (r *Room) EnqueueSendTo(ctx context.Context, sessionID SessionID, data []byte) error {
	return r.enqueueSend(ctx, roomSend{kind: roomSendTo, sessionID: sessionID, data: data})
}

func (r *Room) enqueueSend(ctx context.Context, msg roomSend) error {
	select {
	case <-ctx.Done():
		return nil
	case r.sendCh <- msg:
		return nil
	default:
		return ErrRoomBusy
	}
}

// Run は ctx がキャンセルされるか購読が閉じられるまでルームを動かします。
func (r *Room) Run(ctx context.Context) error {
	// room宛のメッセージを購読
	roomTopic := RoomTopic(r.ID)
	msgCh := r.pubsub.Subscribe(roomTopic)
	defer r.pubsub.Unsubscribe(roomTopic, msgCh)

	// room制御用トピックを購読（join/leave）
	ctrlTopic := RoomControlTopic(r.ID)
	ctrlCh := r.pubsub.Subscribe(ctrlTopic)
	defer r.pubsub.Unsubscribe(ctrlTopic, ctrlCh)

	// 他のレプリカからのドメインイベント
	replicaTopic := ReplicaTopic(r.ID)
	replicaCh := r.pubsub.Subscribe(replicaTopic)
	defer r.pubsub.Unsubscribe(replicaTopic, replicaCh)

	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "room started", "roomID", r.ID, "tickInterval", r.tickInterval)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "room stopped", "roomID", r.ID)
			return nil
		case <-ticker.C:
			if !r.tick(ctx, ctrlCh, msgCh, replicaCh) {
				slog.WarnContext(ctx, "room subscription closed", "roomID", r.ID)
				return nil
			}
		}
	}
}

func (r *Room) tick(ctx context.Context, ctrlCh, msgCh, replicaCh <-chan Message) bool {
	// 制御メッセージを処理（join/leave）
CTRL_LOOP:
	for {
		select {
		case ctrl, ok := <-ctrlCh:
			if !ok {
				return false
			}
			r.handleControlMessage(ctx, ctrl)
		default:
			break CTRL_LOOP
		}
	}
	// 受信メッセージを処理
RECEIVE_LOOP:
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return false
			}
			if _, joined := r.sessions[msg.SessionID]; !joined {
				slog.DebugContext(ctx, "message from session outside room dropped", "roomID", r.ID, "sessionID", msg.SessionID)
				continue
			}
			if err := r.application.HandleMessage(ctx, msg.SessionID, msg.Data); err != nil {
				slog.WarnContext(ctx, "room handle message failed", "roomID", r.ID, "sessionID", msg.SessionID, "err", err)
			}
		default:
			break RECEIVE_LOOP
		}
	}
REPLICA_LOOP:
	for {
		select {
		case msg, ok := <-replicaCh:
			if !ok {
				return false
			}
			if err := r.application.HandleReplica(ctx, msg); err != nil {
				slog.WarnContext(ctx, "room handle replica failed", "roomID", r.ID, "origin", msg.Origin, "err", err)
			}
		default:
			break REPLICA_LOOP
		}
	}
	// 送信するデータがあれば送信する このデータは１フレーム前のデータになる
SEND_LOOP:
	for {
		select {
		case msg := <-r.sendCh:
			r.handleSendMessage(ctx, msg)
		default:
			break SEND_LOOP
		}
	}
	r.application.Tick(ctx, r.clock())
	return true
}

// handleControlMessage はjoin/leave制御メッセージを処理します。
func (r *Room) handleControlMessage(ctx context.Context, msg Message) {
	frame, err := ParseFrame(msg.Data)
	if err != nil || frame.Payload.DataType != DataTypeControl {
		slog.WarnContext(ctx, "invalid room control message", "roomID", r.ID, "sessionID", msg.SessionID, "err", err)
		return
	}
	switch ControlSubType(frame.Payload.SubType) {
	case ControlSubTypeJoin:
		if _, ok := r.sessions[msg.SessionID]; ok {
			return
		}
		r.sessions[msg.SessionID] = struct{}{}
		r.joined.Store(int64(len(r.sessions)))
		slog.DebugContext(ctx, "session entered room", "roomID", r.ID, "sessionID", msg.SessionID)
	case ControlSubTypeLeave:
		if _, ok := r.sessions[msg.SessionID]; !ok {
			return
		}
		delete(r.sessions, msg.SessionID)
		r.joined.Store(int64(len(r.sessions)))
		r.application.SessionLeft(ctx, msg.SessionID)
		slog.DebugContext(ctx, "session left room", "roomID", r.ID, "sessionID", msg.SessionID)
	default:
		slog.WarnContext(ctx, "unknown room control subtype", "roomID", r.ID, "subType", frame.Payload.SubType)
	}
}

func (r *Room) handleSendMessage(ctx context.Context, msg roomSend) {
	switch msg.kind {
	case roomSendBroadcast:
		r.Broadcast(ctx, msg.data)
	case roomSendTo:
		r.SendTo(ctx, msg.sessionID, msg.data)
	default:
	}
}

type roomSendKind uint8

const (
	roomSendBroadcast roomSendKind = iota + 1
	roomSendTo
)

type roomSend struct {
	kind      roomSendKind
	sessionID SessionID
	data      []byte
}
