package game

import (
	"context"
	"fmt"

	"arena/game/entity"
	"arena/game/event"
	"arena/game/vector"
)

// BoltHandle は世代付きのスロット番号です。スロットが再利用されると古いハンドルは無効になります。
type BoltHandle struct {
	index      uint32
	generation uint32
}

type boltSlot struct {
	generation uint32
	live       bool
	bolt       Bolt
}

// Bolts は弾をスロットアリーナで所有します。
// 枯渇した弾は tick の走査が終わった後にまとめて取り除かれ、スロットは空きリストへ戻ります。
type Bolts struct {
	world     *World
	slots     []*boltSlot
	free      []uint32
	byID      map[entity.ID]BoltHandle
	graveyard *event.Graveyard
}

func NewBolts(w *World) *Bolts {
	return &Bolts{
		world:     w,
		byID:      make(map[entity.ID]BoltHandle),
		graveyard: event.NewGraveyard(w.Config.World.GraveyardTTL),
	}
}

func (bs *Bolts) Len() int {
	return len(bs.byID)
}

// Capacity は確保済みのスロット数です。
func (bs *Bolts) Capacity() int {
	return len(bs.slots)
}

func (bs *Bolts) Get(id entity.ID) (*Bolt, bool) {
	h, ok := bs.byID[id]
	if !ok {
		return nil, false
	}
	return bs.Resolve(h)
}

// Resolve はハンドルが指す弾を返します。スロットが解放・再利用されていれば false です。
func (bs *Bolts) Resolve(h BoltHandle) (*Bolt, bool) {
	if int(h.index) >= len(bs.slots) {
		return nil, false
	}
	s := bs.slots[h.index]
	if !s.live || s.generation != h.generation {
		return nil, false
	}
	return &s.bolt, true
}

func (bs *Bolts) alloc() BoltHandle {
	if n := len(bs.free); n > 0 {
		index := bs.free[n-1]
		bs.free = bs.free[:n-1]
		s := bs.slots[index]
		s.live = true
		return BoltHandle{index: index, generation: s.generation}
	}
	bs.slots = append(bs.slots, &boltSlot{live: true})
	return BoltHandle{index: uint32(len(bs.slots) - 1)}
}

func (bs *Bolts) release(h BoltHandle) {
	s := bs.slots[h.index]
	s.live = false
	s.generation++
	s.bolt = Bolt{}
	bs.free = append(bs.free, h.index)
}

func (bs *Bolts) each(fn func(h BoltHandle, b *Bolt)) {
	for i, s := range bs.slots {
		if s.live {
			fn(BoltHandle{index: uint32(i), generation: s.generation}, &s.bolt)
		}
	}
}

func (bs *Bolts) consumeLifecycle(ctx context.Context, ev event.Domain) error {
	if ev.IsTombstone() {
		bs.graveyard.Bury(ev.Key, bs.world.Now)
		h, ok := bs.byID[ev.Key]
		if !ok {
			return nil
		}
		owner := bs.slots[h.index].bolt.owner
		delete(bs.byID, ev.Key)
		bs.release(h)
		if p, ok := bs.world.Players.Get(owner); ok {
			p.boltExhausted(ctx)
		}
		bs.world.Outbox.Broadcast(event.ClientBoltExhausted, ev.Key, nil)
		return nil
	}
	fired, ok := ev.Payload.(event.BoltFired)
	if !ok {
		return fmt.Errorf("%w: %s on %s", event.ErrUnknownKind, ev.Kind(), ev.Topic)
	}
	bs.fired(ctx, ev.Key, fired)
	return nil
}

// fired は発射イベントから弾を生成します。既に存在する ID や枯渇済みの ID は無視します。
func (bs *Bolts) fired(ctx context.Context, id entity.ID, ev event.BoltFired) {
	if _, ok := bs.byID[id]; ok || bs.graveyard.Buried(id) {
		return
	}
	h := bs.alloc()
	s := bs.slots[h.index]
	s.bolt = Bolt{
		world:  bs.world,
		id:     id,
		owner:  ev.Owner,
		pos:    vector.MustPositionVector(bs.world.Config.Bolt.motion()),
		start:  ev.Start,
		ttl:    ev.TTL,
		synced: ev.Start,
	}
	s.bolt.pos.Reset(vector.FromXY(ev.X, ev.Y), vector.FromXY(ev.VX, ev.VY), ev.Start)
	bs.byID[id] = h

	if p, ok := bs.world.Players.Get(ev.Owner); ok {
		p.boltFired(ctx)
	}
	bs.world.Outbox.Broadcast(event.ClientBoltFired, id, s.bolt.view())
}

func (bs *Bolts) consumeAction(ctx context.Context, ev event.Domain) error {
	if ev.IsTombstone() {
		return nil
	}
	diverted, ok := ev.Payload.(event.BoltDiverted)
	if !ok {
		return fmt.Errorf("%w: %s on %s", event.ErrUnknownKind, ev.Kind(), ev.Topic)
	}
	if b, ok := bs.Get(ev.Key); ok {
		b.applyDiverted(ctx, diverted)
	}
	return nil
}

func (bs *Bolts) fixedUpdate(ctx context.Context, timestamp int64) {
	bs.each(func(_ BoltHandle, b *Bolt) {
		b.fixedUpdate(ctx, timestamp)
	})
	bs.sweep(ctx)
	bs.graveyard.Sweep(timestamp)
}

// sweep は枯渇した弾を tombstone で取り除きます。
// 所有者が接続中の弾と、このレプリカで命中した弾だけが他レプリカへ転送されます。
func (bs *Bolts) sweep(ctx context.Context) {
	var forward, local []entity.ID
	bs.each(func(_ BoltHandle, b *Bolt) {
		if !b.exhausted {
			return
		}
		if b.reason == exhaustHit || b.local() {
			forward = append(forward, b.id)
		} else {
			local = append(local, b.id)
		}
	})
	for _, id := range forward {
		bs.world.Topics.Dispatch(ctx, event.NewTombstone(event.TopicBoltLifecycle, id))
	}
	for _, id := range local {
		bs.world.Topics.Consume(ctx, event.NewTombstone(event.TopicBoltLifecycle, id))
	}
}

// objects は物理効果の対象として弾への世代付き参照を返します。
func (bs *Bolts) objects() []GameObject {
	out := make([]GameObject, 0, len(bs.byID))
	bs.each(func(h BoltHandle, b *Bolt) {
		if !b.exhausted {
			out = append(out, BoltRef{bolts: bs, handle: h})
		}
	})
	return out
}

func (bs *Bolts) views() []event.BoltView {
	out := make([]event.BoltView, 0, len(bs.byID))
	bs.each(func(_ BoltHandle, b *Bolt) {
		if !b.exhausted {
			out = append(out, b.view())
		}
	})
	return out
}

// BoltRef は空間インデックスに置く弾への参照です。
// インデックスが古くスロットが再利用されていた場合、操作は何もしません。
type BoltRef struct {
	bolts  *Bolts
	handle BoltHandle
}

var _ GameObject = BoltRef{}

func (r BoltRef) resolve() (*Bolt, bool) {
	return r.bolts.Resolve(r.handle)
}

func (r BoltRef) ID() entity.ID {
	if b, ok := r.resolve(); ok {
		return b.id
	}
	return entity.Nil
}

func (r BoltRef) Move(ctx context.Context, impulse vector.Vector2) {
	if b, ok := r.resolve(); ok {
		b.Move(ctx, impulse)
	}
}

func (r BoltRef) HazardDestroy(ctx context.Context, timestamp int64) {
	if b, ok := r.resolve(); ok {
		b.HazardDestroy(ctx, timestamp)
	}
}

// Position は参照が無効な場合 nil を返します。
func (r BoltRef) Position() *vector.PositionVector {
	if b, ok := r.resolve(); ok && !b.exhausted {
		return b.pos
	}
	return nil
}

func (r BoltRef) Teleport(ctx context.Context, pos vector.Vector2, timestamp int64) {
	if b, ok := r.resolve(); ok {
		b.Teleport(ctx, pos, timestamp)
	}
}

func (r BoltRef) SupportsDamping() bool { return false }
