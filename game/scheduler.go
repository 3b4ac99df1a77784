package game

import (
	"context"
	"math/rand/v2"
	"time"
)

const hourMillis = int64(time.Hour / time.Millisecond)

// Generator は 1 つのウィンドウで起こる出来事を生成します。
// rng はウィンドウ開始時刻から決まる乱数列で、関連性の判定より先に必要な値を全て引かなければなりません。
type Generator func(ctx context.Context, windowStart int64, rng *rand.Rand, now int64)

// EventScheduler は時刻から決定的に出来事を生成します。
// 時間は 1 時間の中で固定幅のウィンドウに区切られ、ウィンドウごとに開始時刻を種にした乱数で生成します。
// 同じ時刻を見たレプリカは同じ出来事を生成するため、再起動後も Replay で状態を復元できます。
type EventScheduler struct {
	window     int64
	replay     int
	generators []Generator
	current    int64
}

func NewEventScheduler(cfg SchedulerConfig, generators ...Generator) *EventScheduler {
	return &EventScheduler{
		window:     cfg.Window.Milliseconds(),
		replay:     cfg.ReplayWindows,
		generators: generators,
		current:    -1,
	}
}

// WindowStart は timestamp を含むウィンドウの開始時刻です。ウィンドウは毎正時から数えます。
func (s *EventScheduler) WindowStart(timestamp int64) int64 {
	hour := timestamp - timestamp%hourMillis
	return hour + ((timestamp-hour)/s.window)*s.window
}

// FixedUpdate は新しいウィンドウに入った時だけ生成を行います。
func (s *EventScheduler) FixedUpdate(ctx context.Context, timestamp int64) {
	start := s.WindowStart(timestamp)
	if start == s.current {
		return
	}
	s.current = start
	s.generate(ctx, start, timestamp)
}

// Replay は直前の N ウィンドウを古い順に生成し直します。現在のウィンドウは次の FixedUpdate が扱います。
func (s *EventScheduler) Replay(ctx context.Context, now int64) {
	start := s.WindowStart(now)
	for i := s.replay; i >= 1; i-- {
		s.generate(ctx, s.WindowStart(start-int64(i)*s.window), now)
	}
}

func (s *EventScheduler) generate(ctx context.Context, windowStart, now int64) {
	rng := Seeded(windowStart)
	for _, g := range s.generators {
		g(ctx, windowStart, rng, now)
	}
}

// Seeded は時刻を種にした決定的な乱数生成器を返します。
func Seeded(timestamp int64) *rand.Rand {
	seed := uint64(timestamp)
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
