package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRelay_DeliversInOrder(t *testing.T) {
	var mu sync.Mutex
	var got []int
	r, err := New(Config[int]{Name: "test", Handler: func(_ context.Context, v int) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, v)
		return nil
	}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for i := range 10 {
		if err := r.Submit(context.Background(), i); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	if err := r.DrainTimeout(time.Second); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d, want %d", i, v, i)
		}
	}
	if len(got) != 10 {
		t.Errorf("len = %d, want 10", len(got))
	}
}

func TestRelay_HandlerErrorDoesNotStop(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	r, _ := New(Config[int]{Handler: func(context.Context, int) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return errors.New("failed")
	}})
	_ = r.Start(context.Background())
	_ = r.Submit(context.Background(), 1)
	_ = r.Submit(context.Background(), 2)
	if err := r.DrainTimeout(time.Second); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRelay_Lifecycle(t *testing.T) {
	if _, err := New(Config[int]{}); !errors.Is(err, ErrNoHandler) {
		t.Fatalf("expected ErrNoHandler, got %v", err)
	}

	r, _ := New(Config[int]{Handler: func(context.Context, int) error { return nil }})
	if err := r.TrySubmit(1); !errors.Is(err, ErrNotStarted) {
		t.Errorf("TrySubmit before Start = %v, want ErrNotStarted", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := r.Start(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
	cancel()
	<-r.done

	if err := r.Stop(context.Background()); err != nil {
		t.Errorf("Stop = %v", err)
	}
	if err := r.Submit(context.Background(), 1); !errors.Is(err, ErrStopped) {
		t.Errorf("Submit after Stop = %v, want ErrStopped", err)
	}
}

func TestRelay_TrySubmitDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	r, _ := New(Config[int]{QueueSize: 1, Handler: func(context.Context, int) error {
		<-block
		return nil
	}})
	_ = r.Start(context.Background())

	_ = r.Submit(context.Background(), 1)
	// 1 件目がハンドラで止まるまで待つ
	deadline := time.Now().Add(time.Second)
	for len(r.queue) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	_ = r.Submit(context.Background(), 2)

	if err := r.TrySubmit(3); !errors.Is(err, ErrQueueFull) {
		t.Errorf("TrySubmit = %v, want ErrQueueFull", err)
	}
	if r.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", r.Dropped())
	}
	close(block)
	if err := r.DrainTimeout(time.Second); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestRelay_StopRacesSubmitters(t *testing.T) {
	r, _ := New(Config[int]{QueueSize: 4, Handler: func(context.Context, int) error { return nil }})
	_ = r.Start(context.Background())

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Go(func() {
			for {
				err := r.TrySubmit(1)
				if errors.Is(err, ErrStopped) {
					return
				}
				if err != nil && !errors.Is(err, ErrQueueFull) {
					errs <- err
					return
				}
			}
		})
	}
	time.Sleep(5 * time.Millisecond)
	if err := r.DrainTimeout(time.Second); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("TrySubmit = %v, want nil, ErrQueueFull or ErrStopped", err)
	}
}

func TestRelay_StopReleasesBlockedSubmit(t *testing.T) {
	block := make(chan struct{})
	r, _ := New(Config[int]{QueueSize: 1, Handler: func(context.Context, int) error {
		<-block
		return nil
	}})
	_ = r.Start(context.Background())

	_ = r.Submit(context.Background(), 1)
	deadline := time.Now().Add(time.Second)
	for len(r.queue) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	_ = r.Submit(context.Background(), 2)

	submitted := make(chan error, 1)
	go func() { submitted <- r.Submit(context.Background(), 3) }()
	time.Sleep(5 * time.Millisecond)

	stopped := make(chan error, 1)
	go func() { stopped <- r.DrainTimeout(time.Second) }()
	select {
	case err := <-submitted:
		if !errors.Is(err, ErrStopped) {
			t.Errorf("blocked Submit = %v, want ErrStopped", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Submit was not released by Stop")
	}
	close(block)
	if err := <-stopped; err != nil {
		t.Errorf("Stop = %v", err)
	}
}
