package game

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"pgregory.net/rapid"
)

type draw struct {
	window int64
	value  uint64
}

func recorder(out *[]draw) Generator {
	return func(_ context.Context, windowStart int64, rng *rand.Rand, _ int64) {
		*out = append(*out, draw{window: windowStart, value: rng.Uint64()})
	}
}

func testScheduler(out *[]draw) *EventScheduler {
	return NewEventScheduler(SchedulerConfig{Window: 3 * time.Minute, ReplayWindows: 3}, recorder(out))
}

func TestEventScheduler_WindowStart(t *testing.T) {
	s := testScheduler(new([]draw))
	hour := int64(5) * hourMillis
	tests := []struct {
		ts   int64
		want int64
	}{
		{hour, hour},
		{hour + 7*60000 + 123, hour + 6*60000},
		{hour + 59*60000, hour + 57*60000},
	}
	for _, tt := range tests {
		if got := s.WindowStart(tt.ts); got != tt.want {
			t.Errorf("WindowStart(%d) = %d, want %d", tt.ts, got, tt.want)
		}
	}
}

func TestEventScheduler_DeterministicPerWindow(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		window := int64(3 * 60000)
		target := rapid.Int64Range(10, 100000).Draw(t, "window") * window
		earlier := rapid.SliceOfN(rapid.Int64Range(0, target-1), 0, 5).Draw(t, "earlier")
		slices.Sort(earlier)

		var warm, cold []draw
		a, b := testScheduler(&warm), testScheduler(&cold)
		for _, ts := range earlier {
			a.FixedUpdate(context.Background(), ts)
		}
		a.FixedUpdate(context.Background(), target+rapid.Int64Range(0, window-1).Draw(t, "offset"))
		b.FixedUpdate(context.Background(), target)

		if got, want := warm[len(warm)-1], cold[len(cold)-1]; got != want {
			t.Fatalf("draw = %+v, want %+v", got, want)
		}
	})
}

func TestEventScheduler_OncePerWindow(t *testing.T) {
	var out []draw
	s := testScheduler(&out)
	for ts := int64(0); ts < 3*60000; ts += 1000 {
		s.FixedUpdate(context.Background(), ts)
	}
	if len(out) != 1 {
		t.Errorf("generated %d times, want 1", len(out))
	}
}

func TestEventScheduler_ReplayOldestFirst(t *testing.T) {
	var replayed, live []draw
	now := 10*hourMillis + 30*60000
	testScheduler(&replayed).Replay(context.Background(), now)

	s := testScheduler(&live)
	for i := int64(3); i >= 1; i-- {
		s.FixedUpdate(context.Background(), now-i*3*60000)
	}
	if !slices.Equal(replayed, live) {
		t.Errorf("replay = %+v, want %+v", replayed, live)
	}
}

func TestBlackholeGenerator_ConsumesRandomBeforeRelevance(t *testing.T) {
	next := func(probability float64, now int64) (uint64, int) {
		cfg := testConfig()
		cfg.Blackhole.Probability = probability
		w := &World{Config: cfg, Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Physics: NewPhysicsQueue(nil)}
		rng := Seeded(0)
		BlackholeGenerator(w)(context.Background(), 0, rng, now)
		return rng.Uint64(), w.Physics.Len()
	}

	skipped, none := next(0, 0)
	expired, stale := next(1, hourMillis)
	spawned, one := next(1, 0)

	if skipped != spawned || expired != spawned {
		t.Error("generator must draw the same amount regardless of the outcome")
	}
	if none != 0 || stale != 0 || one != 1 {
		t.Errorf("enqueued = %d/%d/%d, want 0/0/1", none, stale, one)
	}
}
