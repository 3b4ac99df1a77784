package game

import (
	"context"
	"math/rand/v2"

	"arena/game/entity"
	"arena/game/event"
	"arena/game/vector"
)

const blackholeSalt = 0xb1ac_4b01e

// Blackhole は一定時間ワールドに現れる重力源です。
// 半径内の物体を距離の 3 乗に反比例する強さで引き寄せ、事象の地平面の内側では破壊するか確率的に瞬間移動させます。
type Blackhole struct {
	world  *World
	id     entity.ID
	center vector.Vector2
	start  int64
	end    int64
	rng    *rand.Rand

	active bool
	last   int64
}

func NewBlackhole(w *World, center vector.Vector2, start, end int64) *Blackhole {
	return &Blackhole{
		world:  w,
		id:     entity.FromHalves(uint64(start), blackholeSalt),
		center: center,
		start:  start,
		end:    end,
		rng:    Seeded(start),
	}
}

func (b *Blackhole) ID() entity.ID          { return b.id }
func (b *Blackhole) Center() vector.Vector2 { return b.center }
func (b *Blackhole) Start() int64           { return b.start }
func (b *Blackhole) End() int64             { return b.end }

// Step は PhysicsQueue の Action です。終了時刻を過ぎると表示を取り下げて false を返します。
func (b *Blackhole) Step(ctx context.Context, timestamp int64) bool {
	if timestamp < b.start {
		return true
	}
	if timestamp >= b.end {
		if b.active {
			b.active = false
			b.world.Views.Unregister(b.id)
			b.world.Outbox.Broadcast(event.ClientEffectEnded, b.id, b.view())
		}
		return false
	}
	if !b.active {
		b.active, b.last = true, timestamp
		b.world.Views.Register(b.id, b.view)
		b.world.Outbox.Broadcast(event.ClientEffectStarted, b.id, b.view())
	}
	dt := float64(timestamp-b.last) / 1000
	b.last = timestamp
	b.pull(ctx, timestamp, dt)
	return true
}

func (b *Blackhole) pull(ctx context.Context, timestamp int64, dt float64) {
	cfg := b.world.Config.Blackhole
	cx, cy := b.center.X(), b.center.Y()
	for _, obj := range b.world.Objects.Search(cx, cy, cx, cy, cfg.Radius) {
		pos := obj.Position()
		if pos == nil {
			continue
		}
		offset := b.center.Sub(pos.Current())
		d := offset.Magnitude()
		if d > cfg.Radius {
			continue
		}
		if d <= cfg.EventHorizon {
			if b.rng.Float64() < cfg.TeleportProbability {
				obj.Teleport(ctx, randomPoint(b.rng, cfg.Radius/2), timestamp)
			} else {
				obj.HazardDestroy(ctx, timestamp)
			}
			continue
		}
		if obj.SupportsDamping() {
			if damped, ok := obj.(Damped); ok {
				damped.OverrideDamping(0)
			}
		}
		if dt > 0 {
			obj.Move(ctx, offset.WithMagnitude(cfg.Gravity/(d*d*d)*dt))
		}
	}
}

func (b *Blackhole) view() event.EffectView {
	return event.EffectView{
		ID:     b.id,
		Type:   "blackhole",
		X:      b.center.X(),
		Y:      b.center.Y(),
		Radius: b.world.Config.Blackhole.Radius,
		Start:  b.start,
		End:    b.end,
	}
}

// BlackholeGenerator はウィンドウごとに確率的にブラックホールを出現させます。
// 出現判定と終了済みかの判定は、乱数を全て引いた後に行います。
func BlackholeGenerator(w *World) Generator {
	return func(ctx context.Context, windowStart int64, rng *rand.Rand, now int64) {
		cfg := w.Config.Blackhole
		roll := rng.Float64()
		center := randomPoint(rng, cfg.Radius/2)
		offset := rng.Int64N(w.Config.Scheduler.Window.Milliseconds())

		if roll >= cfg.Probability {
			return
		}
		start := windowStart + offset
		end := start + cfg.Duration - cfg.EndShortening
		if end <= now {
			return
		}
		w.Logger.DebugContext(ctx, "blackhole scheduled", "start", start, "end", end, "center", center.String())
		w.Physics.Enqueue(NewBlackhole(w, center, start, end).Step)
	}
}
