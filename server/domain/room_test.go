package domain_test

import (
	"context"
	"sync"
	"testing"
	"time"

	domain "arena/server/domain"
)

type recordingApp struct {
	mu       sync.Mutex
	messages []domain.SessionID
	replicas []string
	left     []domain.SessionID
	ticks    int
}

func (a *recordingApp) HandleMessage(ctx context.Context, id domain.SessionID, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, id)
	return nil
}

func (a *recordingApp) HandleReplica(ctx context.Context, msg domain.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.replicas = append(a.replicas, msg.Origin)
	return nil
}

func (a *recordingApp) SessionLeft(ctx context.Context, id domain.SessionID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.left = append(a.left, id)
}

func (a *recordingApp) Tick(ctx context.Context, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ticks++
}

func (a *recordingApp) snapshot() (messages []domain.SessionID, replicas []string, left []domain.SessionID, ticks int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.SessionID(nil), a.messages...), append([]string(nil), a.replicas...), append([]domain.SessionID(nil), a.left...), a.ticks
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startRoom(t *testing.T, ps *domain.SimplePubSub, app domain.Application) *domain.Room {
	t.Helper()
	room := domain.NewRoom("r1", ps, app, domain.WithTickInterval(2*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- room.Run(ctx) }()
	// 購読が揃うまでに publish したメッセージは届かない
	eventually(t, func() bool { return ps.Subscribers(domain.ReplicaTopic("r1")) == 1 })
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run returned %v", err)
		}
	})
	return room
}

func TestRoom_TicksApplication(t *testing.T) {
	app := &recordingApp{}
	startRoom(t, domain.NewSimplePubSub(), app)

	eventually(t, func() bool {
		_, _, _, ticks := app.snapshot()
		return ticks >= 3
	})
}

func TestRoom_RoutesMessagesOnlyFromJoinedSessions(t *testing.T) {
	ps := domain.NewSimplePubSub()
	app := &recordingApp{}
	room := startRoom(t, ps, app)
	ctx := context.Background()

	joined := domain.NewSessionID()
	stranger := domain.NewSessionID()

	_ = ps.Publish(ctx, domain.RoomControlTopic("r1"), domain.Message{SessionID: joined, Data: domain.EncodeControlMessage(joined, domain.ControlSubTypeJoin)})
	eventually(t, func() bool { return room.Sessions() == 1 })

	_ = ps.Publish(ctx, domain.RoomTopic("r1"), domain.Message{SessionID: stranger, Data: []byte("x")})
	_ = ps.Publish(ctx, domain.RoomTopic("r1"), domain.Message{SessionID: joined, Data: []byte("y")})

	eventually(t, func() bool {
		messages, _, _, _ := app.snapshot()
		return len(messages) == 1
	})
	messages, _, _, _ := app.snapshot()
	if messages[0] != joined {
		t.Errorf("message from %v, want %v", messages[0], joined)
	}
}

func TestRoom_LeaveNotifiesApplication(t *testing.T) {
	ps := domain.NewSimplePubSub()
	app := &recordingApp{}
	room := startRoom(t, ps, app)
	ctx := context.Background()
	id := domain.NewSessionID()

	_ = ps.Publish(ctx, domain.RoomControlTopic("r1"), domain.Message{SessionID: id, Data: domain.EncodeControlMessage(id, domain.ControlSubTypeJoin)})
	_ = ps.Publish(ctx, domain.RoomControlTopic("r1"), domain.Message{SessionID: id, Data: domain.EncodeLeaveMessage(id)})
	// 参加していないセッションの離脱は無視される
	other := domain.NewSessionID()
	_ = ps.Publish(ctx, domain.RoomControlTopic("r1"), domain.Message{SessionID: other, Data: domain.EncodeLeaveMessage(other)})

	eventually(t, func() bool {
		_, _, left, _ := app.snapshot()
		return len(left) == 1
	})
	if room.Sessions() != 0 {
		t.Errorf("Sessions = %d, want 0", room.Sessions())
	}
	_, _, left, _ := app.snapshot()
	if left[0] != id {
		t.Errorf("left = %v, want %v", left[0], id)
	}
}

func TestRoom_ForwardsReplicaMessages(t *testing.T) {
	ps := domain.NewSimplePubSub()
	app := &recordingApp{}
	startRoom(t, ps, app)

	_ = ps.Publish(context.Background(), domain.ReplicaTopic("r1"), domain.Message{Origin: "replica-b", Data: []byte{1}})

	eventually(t, func() bool {
		_, replicas, _, _ := app.snapshot()
		return len(replicas) == 1 && replicas[0] == "replica-b"
	})
}

func TestRoom_EnqueuedSendsReachSessions(t *testing.T) {
	ps := domain.NewSimplePubSub()
	app := &recordingApp{}
	room := startRoom(t, ps, app)
	ctx := context.Background()

	a, b := domain.NewSessionID(), domain.NewSessionID()
	chA := ps.Subscribe(domain.SessionTopic(a))
	chB := ps.Subscribe(domain.SessionTopic(b))
	for _, id := range []domain.SessionID{a, b} {
		_ = ps.Publish(ctx, domain.RoomControlTopic("r1"), domain.Message{SessionID: id, Data: domain.EncodeControlMessage(id, domain.ControlSubTypeJoin)})
	}
	eventually(t, func() bool { return room.Sessions() == 2 })

	if err := room.EnqueueBroadcast(ctx, []byte("all")); err != nil {
		t.Fatalf("EnqueueBroadcast failed: %v", err)
	}
	if err := room.EnqueueSendTo(ctx, b, []byte("only-b")); err != nil {
		t.Fatalf("EnqueueSendTo failed: %v", err)
	}

	recv := func(ch <-chan domain.Message) string {
		select {
		case msg := <-ch:
			return string(msg.Data)
		case <-time.After(2 * time.Second):
			return ""
		}
	}
	if got := recv(chA); got != "all" {
		t.Errorf("a received %q, want %q", got, "all")
	}
	if got := recv(chB); got != "all" {
		t.Errorf("b first received %q, want %q", got, "all")
	}
	if got := recv(chB); got != "only-b" {
		t.Errorf("b second received %q, want %q", got, "only-b")
	}
}

func TestRoom_EnqueueFailsWhenBusy(t *testing.T) {
	room := domain.NewRoom("r1", domain.NewSimplePubSub(), &recordingApp{}, domain.WithSendBuffer(1))
	ctx := context.Background()
	if err := room.EnqueueBroadcast(ctx, []byte("1")); err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}
	if err := room.EnqueueBroadcast(ctx, []byte("2")); err != domain.ErrRoomBusy {
		t.Errorf("err = %v, want ErrRoomBusy", err)
	}
}

func TestRoom_StopsWhenPubSubCloses(t *testing.T) {
	ps := domain.NewSimplePubSub()
	room := domain.NewRoom("r1", ps, &recordingApp{}, domain.WithTickInterval(time.Millisecond))
	done := make(chan error, 1)
	go func() { done <- room.Run(context.Background()) }()

	// Subscribe が終わるまで待つ
	eventually(t, func() bool { return ps.Subscribers(domain.ReplicaTopic("r1")) == 1 })
	ps.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("room did not stop after pubsub closed")
	}
}
