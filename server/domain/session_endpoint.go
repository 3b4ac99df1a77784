package domain

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrBackpressure は書き込みチャネルが満杯の場合に返されるエラーです。
	ErrBackpressure = errors.New("write channel is full, apply backpressure")
	// ErrInitializationFailed はセッションエンドポイントの初期化に失敗した場合に返されるエラーです。
	ErrInitializationFailed = errors.New("failed to initialize session endpoint")
)

// EndpointConfig は接続ごとの死活監視とバッファの設定です。
type EndpointConfig struct {
	PingInterval time.Duration `env:"PING_INTERVAL" envDefault:"10s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"30s"`
	IdleCheck    time.Duration `env:"IDLE_CHECK" envDefault:"1s"`
	WriteBuffer  int           `env:"WRITE_BUFFER" envDefault:"1024"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"5s"`
}

func DefaultEndpointConfig() EndpointConfig {
	return EndpointConfig{
		PingInterval: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
		IdleCheck:    time.Second,
		WriteBuffer:  1024,
		WriteTimeout: 5 * time.Second,
	}
}

// SessionEndpoint は 1 接続の読み書きと、セッションのルーム参加を管理します。
type SessionEndpoint struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    EndpointConfig

	session     *Session
	connection  *Connection
	pubsub      PubSub
	roomManager RoomManager
	roomID      atomic.Pointer[RoomID] // 参加中のルーム。readLoop だけが書き換える

	ctrlCh  chan endpointEvent // 制御用チャネル
	writeCh chan []byte        // 書き込み用チャネル

	// lifecycle
	closed atomic.Bool
}

func NewSessionEndpoint(ctx context.Context, session *Session, connection *Connection, pubsub PubSub, roomManager RoomManager, cfg EndpointConfig) (*SessionEndpoint, error) {
	if session == nil || connection == nil || pubsub == nil || roomManager == nil {
		return nil, ErrInitializationFailed
	}
	if cfg.WriteBuffer <= 0 {
		cfg.WriteBuffer = DefaultEndpointConfig().WriteBuffer
	}
	if cfg.IdleCheck <= 0 {
		cfg.IdleCheck = DefaultEndpointConfig().IdleCheck
	}
	ctx, cancel := context.WithCancel(ctx)
	se := &SessionEndpoint{
		ctx:         ctx,
		cancel:      cancel,
		cfg:         cfg,
		session:     session,
		connection:  connection,
		pubsub:      pubsub,
		roomManager: roomManager,
		ctrlCh:      make(chan endpointEvent, 16),
		writeCh:     make(chan []byte, cfg.WriteBuffer),
	}
	return se, nil
}

// Run は接続が閉じられるまで読み書きを続けます。
func (se *SessionEndpoint) Run() error {
	// 自分宛のメッセージを購読
	sessionTopic := SessionTopic(se.session.ID())
	msgCh := se.pubsub.Subscribe(sessionTopic)
	defer se.pubsub.Unsubscribe(sessionTopic, msgCh)
	defer se.close(IdleNone)

	// セッションID通知を送信
	if err := se.Send(EncodeAssignMessage(se.session.ID())); err != nil {
		return err
	}

	heartbeat := NewHeartbeatService(se.cfg.PingInterval, se.session, se.writeCh, slog.Default())
	eg, ctx := errgroup.WithContext(se.ctx)
	eg.Go(func() error {
		se.ownerLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.readLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.writeLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.subscribeLoop(ctx, msgCh)
		return nil
	})
	eg.Go(func() error {
		heartbeat.Run(ctx)
		return nil
	})
	return eg.Wait()
}

func (se *SessionEndpoint) Send(data []byte) error {
	select {
	case se.writeCh <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (se *SessionEndpoint) Close(ctx context.Context) {
	se.sendCtrlEvent(ctx, endpointEvent{kind: evClose})
}

func (se *SessionEndpoint) ForceClose() {
	se.close(IdleNone)
}

// RoomID は参加中のルームを返します。未参加の場合は空です。
func (se *SessionEndpoint) RoomID() RoomID {
	if id := se.roomID.Load(); id != nil {
		return *id
	}
	return ""
}

// ownerLoop は論理セッションの状態を監視し、必要に応じて接続の管理を行います。
func (se *SessionEndpoint) ownerLoop(ctx context.Context) {
	ticker := time.NewTicker(se.cfg.IdleCheck)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-se.ctrlCh:
			se.handleControlEvent(ctx, ev)
		case <-ticker.C:
			if idle, reason := se.session.IsIdle(se.cfg.IdleTimeout); idle {
				slog.InfoContext(ctx, "session idle", "sessionID", se.session.ID(), "reason", reason)
				se.handleControlEvent(ctx, endpointEvent{kind: evClose, reason: reason})
			}
		}
	}
}

func (se *SessionEndpoint) readLoop(ctx context.Context) {
	for {
		data, err := se.connection.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				se.sendCtrlEvent(ctx, endpointEvent{kind: evReadError, err: err})
			}
			return
		}
		se.session.TouchRead()
		se.handleData(ctx, data)
	}
}

func (se *SessionEndpoint) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-se.writeCh:
			if err := se.connection.Write(ctx, data); err != nil {
				if ctx.Err() == nil {
					se.sendCtrlEvent(ctx, endpointEvent{kind: evWriteError, err: err})
				}
				return
			}
			se.session.TouchWrite()
		}
	}
}

// subscribeLoop はpubsubからのメッセージをwriteChに転送します。
func (se *SessionEndpoint) subscribeLoop(ctx context.Context, msgCh <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			select {
			case se.writeCh <- msg.Data:
			default:
				slog.WarnContext(ctx, "subscribeLoop: writeCh full, message dropped", "sessionID", se.session.ID())
			}
		}
	}
}

func (se *SessionEndpoint) close(reason IdleReason) {
	if !se.closed.CompareAndSwap(false, true) {
		return
	}
	se.leaveRoom(se.ctx)
	se.cancel()
	se.session.Close(reason)
	se.connection.Close(reason)
}

func (se *SessionEndpoint) handleData(ctx context.Context, data []byte) {
	frame, err := ParseFrame(data)
	if err != nil {
		slog.WarnContext(ctx, "failed to parse frame", "sessionID", se.session.ID(), "err", err)
		se.reject(ctx, ErrorCodeMalformedFrame)
		return
	}
	if got := SessionIDFromBytes(frame.Header.SessionID); got != se.session.ID() {
		slog.WarnContext(ctx, "session ID mismatch", "expected", se.session.ID(), "got", got)
		return
	}

	switch frame.Payload.DataType {
	case DataTypeControl:
		se.handleControlMessage(ctx, ControlSubType(frame.Payload.SubType), frame.Body)
	case DataTypeCommand:
		roomID := se.RoomID()
		if roomID.IsEmpty() {
			slog.WarnContext(ctx, "received command before joining a room", "sessionID", se.session.ID())
			se.reject(ctx, ErrorCodeNotInRoom)
			return
		}
		se.publish(ctx, RoomTopic(roomID), data)
	default:
		slog.WarnContext(ctx, "unknown data type", "sessionID", se.session.ID(), "dataType", frame.Payload.DataType)
		se.reject(ctx, ErrorCodeUnsupported)
	}
}

func (se *SessionEndpoint) handleControlMessage(ctx context.Context, subType ControlSubType, body []byte) {
	switch subType {
	case ControlSubTypeJoin:
		payload, err := ParseJoinPayload(body)
		if err != nil {
			slog.WarnContext(ctx, "failed to parse join message", "err", err)
			se.reject(ctx, ErrorCodeMalformedFrame)
			return
		}
		roomID := payload.RoomID
		// RoomIDが空の場合、RoomManagerからデフォルトルームを取得
		if roomID.IsEmpty() {
			roomID, err = se.roomManager.GetRoom(ctx, se.session.ID())
			if err != nil {
				slog.ErrorContext(ctx, "failed to get default room", "sessionID", se.session.ID(), "err", err)
				return
			}
			slog.DebugContext(ctx, "auto-assigned room", "sessionID", se.session.ID(), "roomID", roomID)
		}
		current := se.RoomID()
		if current == roomID {
			return
		}
		if !current.IsEmpty() {
			se.leaveRoom(ctx)
		}
		se.roomID.Store(&roomID)
		se.publish(ctx, RoomControlTopic(roomID), EncodeControlMessage(se.session.ID(), ControlSubTypeJoin))
		slog.InfoContext(ctx, "session joined room", "sessionID", se.session.ID(), "roomID", roomID)
	case ControlSubTypeLeave:
		if se.RoomID().IsEmpty() {
			slog.WarnContext(ctx, "session not in any room, cannot leave", "sessionID", se.session.ID())
			return
		}
		se.leaveRoom(ctx)
	case ControlSubTypePong:
		se.sendCtrlEvent(ctx, endpointEvent{kind: evPong})
	default:
		slog.WarnContext(ctx, "unsupported control subtype", "sessionID", se.session.ID(), "subType", subType)
		se.reject(ctx, ErrorCodeUnsupported)
	}
}

// reject はクライアントへ Error を返します。書き込みが詰まっていれば送りません。
func (se *SessionEndpoint) reject(ctx context.Context, code ErrorCode) {
	if err := se.Send(EncodeErrorMessage(se.session.ID(), code)); err != nil {
		slog.DebugContext(ctx, "error reply dropped", "sessionID", se.session.ID(), "code", code, "err", err)
	}
}

// leaveRoom は参加中のルームに離脱を通知します。未参加なら何もしません。
func (se *SessionEndpoint) leaveRoom(ctx context.Context) {
	id := se.roomID.Swap(nil)
	if id == nil {
		return
	}
	se.publish(ctx, RoomControlTopic(*id), EncodeLeaveMessage(se.session.ID()))
	slog.InfoContext(ctx, "session left room", "sessionID", se.session.ID(), "roomID", *id)
}

func (se *SessionEndpoint) publish(ctx context.Context, topic Topic, data []byte) {
	if err := se.pubsub.Publish(ctx, topic, Message{SessionID: se.session.ID(), Data: data}); err != nil {
		slog.WarnContext(ctx, "publish failed", "sessionID", se.session.ID(), "topic", topic, "err", err)
	}
}

// handleControlEvent は制御チャネルからのイベントを処理し論理セッションの状態を更新する唯一の関数です。
func (se *SessionEndpoint) handleControlEvent(ctx context.Context, ev endpointEvent) {
	switch ev.kind {
	case evClose:
		se.close(ev.reason)
	case evPong:
		se.session.TouchPong()
	case evReadError, evWriteError:
		slog.DebugContext(ctx, "connection broken", "sessionID", se.session.ID(), "event", ev.kind, "err", ev.err)
		se.close(IdleBroken)
	default:
		slog.WarnContext(ctx, "unknown endpoint event kind", "kind", ev.kind)
	}
}

func (se *SessionEndpoint) sendCtrlEvent(ctx context.Context, ev endpointEvent) {
	select {
	case se.ctrlCh <- ev:
	case <-ctx.Done():
	}
}
