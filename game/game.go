package game

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"arena/game/entity"
	"arena/game/event"
	"arena/game/spatial"
)

var (
	// ErrUnknownPlayer はこのレプリカに接続していないプレイヤーへのコマンドです。
	ErrUnknownPlayer = errors.New("game: unknown player")
	// ErrPlayerLeft は退出済みの ID で参加しようとした場合のエラーです。
	ErrPlayerLeft = errors.New("game: player already left")
)

type options struct {
	logger   *slog.Logger
	clock    func() int64
	seed     uint64
	barriers []*Barrier
	custom   bool
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock はコマンドのイベント時刻に使う時計を差し替えます。
func WithClock(clock func() int64) Option {
	return func(o *options) { o.clock = clock }
}

// WithSeed は出現位置などに使う乱数の種を固定します。
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithBarriers は迷路の代わりに指定した障壁を配置します。
func WithBarriers(barriers ...*Barrier) Option {
	return func(o *options) { o.barriers, o.custom = barriers, true }
}

// Game はシミュレーションの構成ルートです。
// 全ての操作はゲームキューの単一 goroutine から呼ばれなければなりません。
type Game struct {
	world     *World
	scheduler *EventScheduler
	objects   *spatial.Scan[GameObject]
}

func New(cfg Config, channels *event.Channels, opts ...Option) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{
		logger: slog.Default(),
		clock:  wallClock,
		seed:   uint64(time.Now().UnixNano()),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if channels == nil {
		channels = event.NewChannels()
	}

	w := &World{
		Config: cfg,
		Logger: o.logger,
		Clock:  o.clock,
		Rand:   rand.New(rand.NewPCG(o.seed, o.seed>>1)),
	}
	w.Now = o.clock()
	w.Topics = event.NewTopics(channels.Domain, o.logger)
	w.Outbox = NewOutbox(channels.Client, o.logger)

	barriers := o.barriers
	if !o.custom && cfg.World.Maze {
		barriers = Maze()
	}
	w.Barriers = NewBarriers(barriers...)
	w.Players = NewPlayers(w)
	w.Bolts = NewBolts(w)
	w.Scores = NewScoreBoard(w)
	w.Physics = NewPhysicsQueue(o.logger)
	w.Views = NewViews()

	objects := spatial.NewScan(func(obj GameObject) (float64, float64) {
		pos := obj.Position()
		if pos == nil {
			return math.Inf(1), math.Inf(1)
		}
		c := pos.Current()
		return c.X(), c.Y()
	})
	w.Objects = objects

	g := &Game{
		world:     w,
		scheduler: NewEventScheduler(cfg.Scheduler, BlackholeGenerator(w)),
		objects:   objects,
	}

	bindings := []struct {
		topic    event.Topic
		consumer event.Consumer
	}{
		{event.TopicJoin, w.Players.consumeJoin},
		{event.TopicPlayerAction, w.Players.consumeAction},
		{event.TopicBoltLifecycle, w.Bolts.consumeLifecycle},
		{event.TopicBoltAction, w.Bolts.consumeAction},
		{event.TopicScoreControl, w.Scores.consumeControl},
		{event.TopicScoreUpdate, w.Scores.consumeUpdate},
	}
	for _, b := range bindings {
		if err := w.Topics.Bind(b.topic, b.consumer); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Game) World() *World {
	return g.world
}

// FixedUpdate は 1 tick を進めます。
// 障壁・プレイヤー・弾・得点・スケジューラ・物理キューの順に更新し、
// 空間インデックスを作り直してからクライアント向けイベントを送出します。
func (g *Game) FixedUpdate(ctx context.Context, timestamp int64) {
	w := g.world
	w.Now = max(w.Now, timestamp)

	w.Barriers.FixedUpdate(ctx, timestamp)
	w.Players.fixedUpdate(ctx, timestamp)
	w.Bolts.fixedUpdate(ctx, timestamp)
	w.Scores.fixedUpdate(ctx, timestamp)
	g.scheduler.FixedUpdate(ctx, timestamp)
	w.Physics.FixedUpdate(ctx, timestamp)

	g.refresh()
	w.Outbox.Flush(ctx)
}

func (g *Game) refresh() {
	w := g.world
	w.Players.refresh()

	objects := make([]GameObject, 0, w.Players.Len()+w.Bolts.Len())
	for _, p := range w.Players.All() {
		if p.spawned {
			objects = append(objects, p)
		}
	}
	objects = append(objects, w.Bolts.objects()...)
	g.objects.Update(objects)
}

// Consume は他のレプリカから受信したイベントを反映します。
func (g *Game) Consume(ctx context.Context, ev event.Domain) {
	g.world.Topics.Consume(ctx, ev)
}

// Replay は起動直後に直前のウィンドウの出来事を生成し直します。
func (g *Game) Replay(ctx context.Context, now int64) {
	g.scheduler.Replay(ctx, now)
	g.world.Logger.InfoContext(ctx, "scheduler replayed", "effects", g.world.Physics.Len())
}

func (g *Game) now() int64 {
	return max(g.world.Clock(), g.world.Now)
}

// Join はこのレプリカに接続したプレイヤーを参加させます。
func (g *Game) Join(ctx context.Context, id entity.ID, name, platform string) error {
	p := g.world.Players.Attach(id)
	if p == nil {
		return ErrPlayerLeft
	}
	p.Join(ctx, name, platform, g.now())
	return nil
}

func (g *Game) Spawn(ctx context.Context, id entity.ID) error {
	p, err := g.local(id)
	if err != nil {
		return err
	}
	p.Spawn(ctx, g.now())
	return nil
}

// Move は移動入力を受け付けます。angle が nil の場合は向きを変えません。
func (g *Game) Move(ctx context.Context, id entity.ID, dx, dy float64, angle *float64) error {
	p, err := g.local(id)
	if err != nil {
		return err
	}
	p.Steer(dx, dy, angle)
	return nil
}

func (g *Game) Fire(ctx context.Context, id entity.ID) error {
	p, err := g.local(id)
	if err != nil {
		return err
	}
	p.Fire(ctx, g.now())
	return nil
}

func (g *Game) Leave(ctx context.Context, id entity.ID) error {
	p, err := g.local(id)
	if err != nil {
		return err
	}
	p.Leave(ctx)
	return nil
}

func (g *Game) SetDampingFactor(ctx context.Context, id entity.ID, c float64) error {
	p, err := g.local(id)
	if err != nil {
		return err
	}
	p.SetDamping(c)
	return nil
}

func (g *Game) local(id entity.ID) (*Player, error) {
	p, ok := g.world.Players.Get(id)
	if !ok || !p.local {
		return nil, ErrUnknownPlayer
	}
	return p, nil
}

// Stats は計測用の集計値です。
type Stats struct {
	Players int
	Spawned int
	Bolts   int
	Effects int
}

func (g *Game) Stats() Stats {
	w := g.world
	return Stats{
		Players: w.Players.Len(),
		Spawned: w.Players.Spawned(),
		Bolts:   w.Bolts.Len(),
		Effects: w.Physics.Len(),
	}
}
