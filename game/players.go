package game

import (
	"context"
	"fmt"
	"slices"

	"arena/game/entity"
	"arena/game/event"
	"arena/game/spatial"
	"arena/game/vector"
)

// Players はプレイヤーの集合を排他的に所有します。
// 参加と退出は TopicJoin、出現・移動・破壊は TopicPlayerAction のコンシューマからのみ反映されます。
type Players struct {
	world     *World
	byID      map[entity.ID]*Player
	order     []*Player
	graveyard *event.Graveyard
	index     *spatial.Scan[*Player]
}

func NewPlayers(w *World) *Players {
	return &Players{
		world:     w,
		byID:      make(map[entity.ID]*Player),
		graveyard: event.NewGraveyard(w.Config.World.GraveyardTTL),
		index: spatial.NewScan(func(p *Player) (float64, float64) {
			c := p.pos.Current()
			return c.X(), c.Y()
		}),
	}
}

func (ps *Players) Get(id entity.ID) (*Player, bool) {
	p, ok := ps.byID[id]
	return p, ok
}

func (ps *Players) Len() int {
	return len(ps.order)
}

// All は生成順のプレイヤーを返します。
func (ps *Players) All() []*Player {
	return ps.order
}

// Spawned は出現中のプレイヤー数です。
func (ps *Players) Spawned() int {
	n := 0
	for _, p := range ps.order {
		if p.spawned {
			n++
		}
	}
	return n
}

// Buried は退出済みで復活できないプレイヤーかを返します。
func (ps *Players) Buried(id entity.ID) bool {
	return ps.graveyard.Buried(id)
}

// Attach はこのレプリカに接続したプレイヤーを用意します。退出済みの ID なら nil を返します。
func (ps *Players) Attach(id entity.ID) *Player {
	p := ps.getOrCreate(id)
	if p != nil {
		p.local = true
	}
	return p
}

// getOrCreate は最初に参照された時点でプレイヤーを生成します。
func (ps *Players) getOrCreate(id entity.ID) *Player {
	if p, ok := ps.byID[id]; ok {
		return p
	}
	if id.IsNil() || ps.graveyard.Buried(id) {
		return nil
	}
	p := newPlayer(ps.world, id, ps.world.Now)
	ps.byID[id] = p
	ps.order = append(ps.order, p)
	return p
}

func (ps *Players) forget(id entity.ID) {
	if _, ok := ps.byID[id]; !ok {
		return
	}
	delete(ps.byID, id)
	ps.order = slices.DeleteFunc(ps.order, func(p *Player) bool { return p.id == id })
}

// Near は from-to を distance だけ広げた範囲にいる出現中のプレイヤーを返します。
func (ps *Players) Near(from, to vector.Vector2, distance float64) []*Player {
	return ps.index.Search(from.X(), from.Y(), to.X(), to.Y(), distance)
}

func (ps *Players) consumeJoin(ctx context.Context, ev event.Domain) error {
	if ev.IsTombstone() {
		ps.graveyard.Bury(ev.Key, ps.world.Now)
		if p, ok := ps.byID[ev.Key]; ok {
			ps.forget(ev.Key)
			p.spawned = false
			ps.world.Outbox.Broadcast(event.ClientPlayerLeft, ev.Key, nil)
		}
		return nil
	}
	joined, ok := ev.Payload.(event.PlayerJoined)
	if !ok {
		return fmt.Errorf("%w: %s on %s", event.ErrUnknownKind, ev.Kind(), ev.Topic)
	}
	p := ps.getOrCreate(ev.Key)
	if p == nil {
		return nil
	}
	first := !p.joined
	p.applyJoined(ctx, joined)
	if first && p.local && p.joined {
		ps.world.sendSnapshot(p)
	}
	return nil
}

func (ps *Players) consumeAction(ctx context.Context, ev event.Domain) error {
	if ev.IsTombstone() {
		return nil
	}
	p := ps.getOrCreate(ev.Key)
	if p == nil {
		return nil
	}
	switch payload := ev.Payload.(type) {
	case event.PlayerSpawned:
		p.applySpawned(ctx, payload)
	case event.PlayerMoved:
		p.applyMoved(ctx, payload)
	case event.PlayerDestroyed:
		p.applyDestroyed(ctx, payload)
	default:
		return fmt.Errorf("%w: %s on %s", event.ErrUnknownKind, ev.Kind(), ev.Topic)
	}
	return nil
}

func (ps *Players) fixedUpdate(ctx context.Context, timestamp int64) {
	for _, p := range ps.order {
		p.fixedUpdate(ctx, timestamp)
	}
	for _, p := range slices.Clone(ps.order) {
		ps.expungeIfStalled(ctx, p, timestamp)
	}
	ps.graveyard.Sweep(timestamp)
}

// expungeIfStalled は放置されたプレイヤーを取り除きます。
// 接続中のプレイヤーは退出を発行します。参加済みの他レプリカのプレイヤーは所有レプリカの退出を待ち、
// 参加していない複製だけを捨てます。
func (ps *Players) expungeIfStalled(ctx context.Context, p *Player, now int64) {
	if !p.stalled(now) {
		return
	}
	switch {
	case p.local:
		ps.world.Logger.InfoContext(ctx, "expunging stalled player", "player", p.id)
		p.Leave(ctx)
	case !p.joined:
		ps.forget(p.id)
	}
}

func (ps *Players) refresh() {
	spawned := make([]*Player, 0, len(ps.order))
	for _, p := range ps.order {
		if p.spawned {
			spawned = append(spawned, p)
		}
	}
	ps.index.Update(spawned)
}

func (ps *Players) views() []event.PlayerView {
	out := make([]event.PlayerView, 0, len(ps.order))
	for _, p := range ps.order {
		if p.joined {
			out = append(out, p.view())
		}
	}
	return out
}
