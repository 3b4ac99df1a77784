package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"arena/game/entity"
	"arena/game/event"
)

func newCollector(t *testing.T) (*ArenaCollector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	c, err := NewArenaCollector(reg)
	if err != nil {
		t.Fatalf("NewArenaCollector: %v", err)
	}
	return c, reg
}

func TestDomainEventCountsByTopicAndKind(t *testing.T) {
	c, _ := newCollector(t)
	id := entity.New()

	c.DomainEvent(event.Domain{Topic: event.TopicJoin, Key: id, Payload: event.PlayerJoined{Name: "a"}})
	c.DomainEvent(event.NewTombstone(event.TopicJoin, id))
	c.DomainEvent(event.NewTombstone(event.TopicJoin, id))

	if got := testutil.ToFloat64(c.DomainEvents.WithLabelValues(event.TopicJoin.String(), event.KindPlayerJoined.String())); got != 1 {
		t.Errorf("joined = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.DomainEvents.WithLabelValues(event.TopicJoin.String(), "tombstone")); got != 2 {
		t.Errorf("tombstones = %v, want 2", got)
	}
}

func TestClientBatchAndWorldGauges(t *testing.T) {
	c, _ := newCollector(t)

	c.ClientBatch([]event.Client{
		{Kind: event.ClientPlayerMoved},
		{Kind: event.ClientPlayerMoved},
		{Kind: event.ClientBoltFired},
	})
	c.SetWorld(5, 3, 7, 1)
	c.ObserveTick(2 * time.Millisecond)
	c.Replica("received", "applied")

	if got := testutil.ToFloat64(c.ClientEvents.WithLabelValues(event.ClientPlayerMoved.String())); got != 2 {
		t.Errorf("player-moved = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.Players); got != 5 {
		t.Errorf("players = %v, want 5", got)
	}
	if got := testutil.ToFloat64(c.Bolts); got != 7 {
		t.Errorf("bolts = %v, want 7", got)
	}
	if got := testutil.ToFloat64(c.ReplicaEvents.WithLabelValues("received", "applied")); got != 1 {
		t.Errorf("replica = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.TickDuration); got != 1 {
		t.Errorf("tick histogram series = %d, want 1", got)
	}
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewArenaCollector(reg)
	if err != nil {
		t.Fatalf("first NewArenaCollector: %v", err)
	}
	second, err := NewArenaCollector(reg)
	if err != nil {
		t.Fatalf("second NewArenaCollector: %v", err)
	}
	second.SetWorld(2, 0, 0, 0)
	if got := testutil.ToFloat64(first.Players); got != 2 {
		t.Errorf("players via first = %v, want 2", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *ArenaCollector
	c.ObserveTick(time.Millisecond)
	c.SetWorld(1, 1, 1, 1)
	c.DomainEvent(event.Domain{})
	c.ClientBatch([]event.Client{{Kind: event.ClientBoltFired}})
	c.Replica("sent", "ok")
}

func TestHandlerServesMetrics(t *testing.T) {
	c, _ := newCollector(t)
	c.SetWorld(3, 0, 0, 0)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "arena_players 3") {
		t.Errorf("metrics body missing arena_players 3:\n%s", body)
	}
}
