package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"arena/game/event"
)

// ArenaCollector はゲームキューとイベント配送の Prometheus メトリクスをまとめたものです。
// nil レシーバのメソッド呼び出しは何もしません。
type ArenaCollector struct {
	gatherer prometheus.Gatherer

	TickDuration  prometheus.Histogram
	Players       prometheus.Gauge
	Spawned       prometheus.Gauge
	Bolts         prometheus.Gauge
	Effects       prometheus.Gauge
	DomainEvents  *prometheus.CounterVec
	ClientEvents  *prometheus.CounterVec
	ReplicaEvents *prometheus.CounterVec
}

// NewArenaCollector は reg にメトリクスを登録します。reg が nil の場合はグローバルレジストリを使います。
func NewArenaCollector(reg prometheus.Registerer) (*ArenaCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &ArenaCollector{gatherer: gatherer}
	var err error
	if c.TickDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_tick_duration_seconds",
		Help:    "Time spent in one game tick, including client event flush.",
		Buckets: []float64{0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.032, 0.064},
	})); err != nil {
		return nil, err
	}
	gauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&c.Players, "arena_players", "Players known to this replica."},
		{&c.Spawned, "arena_players_spawned", "Players currently spawned."},
		{&c.Bolts, "arena_bolts", "Live bolts."},
		{&c.Effects, "arena_effects", "Pending physics queue actions."},
	}
	for _, g := range gauges {
		if *g.dst, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: g.name, Help: g.help})); err != nil {
			return nil, err
		}
	}
	if c.DomainEvents, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_domain_events_total",
		Help: "Domain events originated on this replica, labeled by topic and kind.",
	}, []string{"topic", "kind"})); err != nil {
		return nil, err
	}
	if c.ClientEvents, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_client_events_total",
		Help: "Client events flushed, labeled by kind.",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if c.ReplicaEvents, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_replica_events_total",
		Help: "Replicated domain events, labeled by direction and result.",
	}, []string{"direction", "result"})); err != nil {
		return nil, err
	}
	return c, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ArenaCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (c *ArenaCollector) ObserveTick(d time.Duration) {
	if c == nil {
		return
	}
	c.TickDuration.Observe(d.Seconds())
}

func (c *ArenaCollector) SetWorld(players, spawned, bolts, effects int) {
	if c == nil {
		return
	}
	c.Players.Set(float64(players))
	c.Spawned.Set(float64(spawned))
	c.Bolts.Set(float64(bolts))
	c.Effects.Set(float64(effects))
}

// DomainEvent は event.Topics.OnDispatch に渡せます。
func (c *ArenaCollector) DomainEvent(ev event.Domain) {
	if c == nil {
		return
	}
	kind := "tombstone"
	if !ev.IsTombstone() {
		kind = ev.Kind().String()
	}
	c.DomainEvents.WithLabelValues(ev.Topic.String(), kind).Inc()
}

// ClientBatch は game.Outbox.OnFlush に渡せます。
func (c *ArenaCollector) ClientBatch(batch []event.Client) {
	if c == nil {
		return
	}
	for _, ev := range batch {
		c.ClientEvents.WithLabelValues(ev.Kind.String()).Inc()
	}
}

// Replica は "sent"/"received" と結果ごとにレプリカ間イベントを数えます。
func (c *ArenaCollector) Replica(direction, result string) {
	if c == nil {
		return
	}
	c.ReplicaEvents.WithLabelValues(direction, result).Inc()
}

// register は登録済みの同名コレクタがあればそれを再利用します。
func register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	if err := reg.Register(collector); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return collector, err
		}
		existing, ok := are.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		return existing, nil
	}
	return collector, nil
}
