package domain_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domain "arena/server/domain"
	"arena/server/domain/mocks"

	"go.uber.org/mock/gomock"
)

var errClosed = errors.New("transport closed")

// pipe は MockTransport の読み書きをチャネルに繋ぎます。
type pipe struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newPipe(ctrl *gomock.Controller) (*pipe, *mocks.MockTransport) {
	p := &pipe{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 64),
		closed: make(chan struct{}),
	}
	tr := mocks.NewMockTransport(ctrl)
	tr.EXPECT().Read(gomock.Any()).DoAndReturn(func(ctx context.Context) ([]byte, error) {
		select {
		case data := <-p.in:
			return data, nil
		case <-p.closed:
			return nil, errClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}).AnyTimes()
	tr.EXPECT().Write(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, data []byte) error {
		select {
		case p.out <- data:
		default:
		}
		return nil
	}).AnyTimes()
	tr.EXPECT().Close(gomock.Any(), gomock.Any()).DoAndReturn(func(code int32, reason string) error {
		p.once.Do(func() { close(p.closed) })
		return nil
	}).MinTimes(1)
	return p, tr
}

func (p *pipe) hangUp() {
	p.once.Do(func() { close(p.closed) })
}

func expectMessage(t *testing.T, ch <-chan domain.Message) domain.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return domain.Message{}
	}
}

func expectSubType(t *testing.T, data []byte, want domain.ControlSubType) {
	t.Helper()
	frame, err := domain.ParseFrame(data)
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}
	if frame.Payload.DataType != domain.DataTypeControl || domain.ControlSubType(frame.Payload.SubType) != want {
		t.Fatalf("payload = %+v, want control/%d", frame.Payload, want)
	}
}

func runEndpoint(t *testing.T, se *domain.SessionEndpoint) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- se.Run() }()
	t.Cleanup(func() {
		se.ForceClose()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("endpoint did not stop")
		}
	})
	return done
}

// 初期化時にリソースが正しくセットアップされることを確認
func TestNewSessionEndpoint_RejectsMissingDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := domain.NewSession()
	c := domain.NewConnection(s.ID(), mocks.NewMockTransport(ctrl))
	rm := mocks.NewMockRoomManager(ctrl)

	if _, err := domain.NewSessionEndpoint(context.Background(), s, c, nil, rm, domain.DefaultEndpointConfig()); err != domain.ErrInitializationFailed {
		t.Errorf("err = %v, want ErrInitializationFailed", err)
	}
	se, err := domain.NewSessionEndpoint(context.Background(), s, c, domain.NewSimplePubSub(), rm, domain.EndpointConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if se == nil {
		t.Fatalf("endpoint is nil")
	}
}

func TestSessionEndpoint_AssignsJoinsAndForwardsCommands(t *testing.T) {
	ctrl := gomock.NewController(t)
	p, tr := newPipe(ctrl)
	ps := domain.NewSimplePubSub()
	rm := mocks.NewMockRoomManager(ctrl)

	s := domain.NewSession()
	rm.EXPECT().GetRoom(gomock.Any(), s.ID()).Return(domain.RoomID("lobby"), nil)

	ctrlCh := ps.Subscribe(domain.RoomControlTopic("lobby"))
	roomCh := ps.Subscribe(domain.RoomTopic("lobby"))

	se, err := domain.NewSessionEndpoint(context.Background(), s, domain.NewConnection(s.ID(), tr), ps, rm, domain.EndpointConfig{PingInterval: 0, IdleTimeout: 0})
	if err != nil {
		t.Fatalf("NewSessionEndpoint failed: %v", err)
	}
	runEndpoint(t, se)

	// 最初に自分のセッションIDが通知される
	select {
	case data := <-p.out:
		expectSubType(t, data, domain.ControlSubTypeAssign)
	case <-time.After(2 * time.Second):
		t.Fatal("no assign message")
	}

	join, _ := domain.EncodeFrame(s.ID(), domain.DataTypeControl, uint8(domain.ControlSubTypeJoin), (&domain.JoinPayload{}).Encode())
	p.in <- join
	msg := expectMessage(t, ctrlCh)
	if msg.SessionID != s.ID() {
		t.Errorf("join from %v, want %v", msg.SessionID, s.ID())
	}
	expectSubType(t, msg.Data, domain.ControlSubTypeJoin)

	fire, _ := domain.EncodeFrame(s.ID(), domain.DataTypeCommand, uint8(domain.CommandSubTypeFire), nil)
	p.in <- fire
	msg = expectMessage(t, roomCh)
	if msg.SessionID != s.ID() {
		t.Errorf("command from %v, want %v", msg.SessionID, s.ID())
	}
	if se.RoomID() != "lobby" {
		t.Errorf("RoomID = %q, want %q", se.RoomID(), "lobby")
	}
}

func TestSessionEndpoint_RejectsFramesWithError(t *testing.T) {
	ctrl := gomock.NewController(t)
	p, tr := newPipe(ctrl)
	s := domain.NewSession()
	se, _ := domain.NewSessionEndpoint(context.Background(), s, domain.NewConnection(s.ID(), tr), domain.NewSimplePubSub(), mocks.NewMockRoomManager(ctrl), domain.EndpointConfig{})
	runEndpoint(t, se)

	nextError := func() domain.ErrorCode {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case data := <-p.out:
				frame, err := domain.ParseFrame(data)
				if err != nil || domain.ControlSubType(frame.Payload.SubType) != domain.ControlSubTypeError {
					continue
				}
				code, err := domain.ParseErrorPayload(frame.Body)
				if err != nil {
					t.Fatalf("ParseErrorPayload failed: %v", err)
				}
				return code
			case <-deadline:
				t.Fatal("no error reply")
				return 0
			}
		}
	}

	fire, _ := domain.EncodeFrame(s.ID(), domain.DataTypeCommand, uint8(domain.CommandSubTypeFire), nil)
	p.in <- fire
	if code := nextError(); code != domain.ErrorCodeNotInRoom {
		t.Errorf("code = %v, want %v", code, domain.ErrorCodeNotInRoom)
	}

	p.in <- []byte{1, 2, 3}
	if code := nextError(); code != domain.ErrorCodeMalformedFrame {
		t.Errorf("code = %v, want %v", code, domain.ErrorCodeMalformedFrame)
	}
}

func TestSessionEndpoint_DropsForeignSessionFrames(t *testing.T) {
	ctrl := gomock.NewController(t)
	p, tr := newPipe(ctrl)
	ps := domain.NewSimplePubSub()
	rm := mocks.NewMockRoomManager(ctrl)

	s := domain.NewSession()
	ctrlCh := ps.Subscribe(domain.RoomControlTopic("lobby"))

	se, _ := domain.NewSessionEndpoint(context.Background(), s, domain.NewConnection(s.ID(), tr), ps, rm, domain.EndpointConfig{})
	runEndpoint(t, se)

	forged, _ := domain.EncodeFrame(domain.NewSessionID(), domain.DataTypeControl, uint8(domain.ControlSubTypeJoin), (&domain.JoinPayload{RoomID: "lobby"}).Encode())
	p.in <- forged
	own, _ := domain.EncodeFrame(s.ID(), domain.DataTypeControl, uint8(domain.ControlSubTypeJoin), (&domain.JoinPayload{RoomID: "lobby"}).Encode())
	p.in <- own

	msg := expectMessage(t, ctrlCh)
	if msg.SessionID != s.ID() {
		t.Errorf("join from %v, want %v", msg.SessionID, s.ID())
	}
	select {
	case extra := <-ctrlCh:
		t.Errorf("unexpected control message %+v", extra)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSessionEndpoint_BrokenConnectionLeavesRoom(t *testing.T) {
	ctrl := gomock.NewController(t)
	p, tr := newPipe(ctrl)
	ps := domain.NewSimplePubSub()
	rm := mocks.NewMockRoomManager(ctrl)

	s := domain.NewSession()
	ctrlCh := ps.Subscribe(domain.RoomControlTopic("lobby"))

	se, _ := domain.NewSessionEndpoint(context.Background(), s, domain.NewConnection(s.ID(), tr), ps, rm, domain.EndpointConfig{})
	done := runEndpoint(t, se)

	join, _ := domain.EncodeFrame(s.ID(), domain.DataTypeControl, uint8(domain.ControlSubTypeJoin), (&domain.JoinPayload{RoomID: "lobby"}).Encode())
	p.in <- join
	expectSubType(t, expectMessage(t, ctrlCh).Data, domain.ControlSubTypeJoin)

	p.hangUp()

	expectSubType(t, expectMessage(t, ctrlCh).Data, domain.ControlSubTypeLeave)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the connection broke")
	}
	if !s.IsClosed() {
		t.Errorf("session not closed")
	}
	if s.CloseReason() != domain.IdleBroken {
		t.Errorf("CloseReason = %v, want %v", s.CloseReason(), domain.IdleBroken)
	}
}

func TestSessionEndpoint_PongKeepsSessionAlive(t *testing.T) {
	ctrl := gomock.NewController(t)
	p, tr := newPipe(ctrl)
	ps := domain.NewSimplePubSub()

	s := domain.NewSession()
	se, _ := domain.NewSessionEndpoint(context.Background(), s, domain.NewConnection(s.ID(), tr), ps, mocks.NewMockRoomManager(ctrl), domain.EndpointConfig{
		PingInterval: 10 * time.Millisecond,
		IdleTimeout:  time.Hour,
		IdleCheck:    5 * time.Millisecond,
	})
	runEndpoint(t, se)

	// assign の後に ping が届く
	deadline := time.After(2 * time.Second)
	for sawPing := false; !sawPing; {
		select {
		case data := <-p.out:
			frame, err := domain.ParseFrame(data)
			if err == nil && domain.ControlSubType(frame.Payload.SubType) == domain.ControlSubTypePing {
				sawPing = true
			}
		case <-deadline:
			t.Fatal("no ping received")
		}
	}

	pong := domain.EncodeControlMessage(s.ID(), domain.ControlSubTypePong)
	p.in <- pong
	time.Sleep(20 * time.Millisecond)
	if s.IsClosed() {
		t.Errorf("session closed, want open")
	}
}
