package game

import (
	"context"

	"arena/game/entity"
	"arena/game/event"
	"arena/game/vector"
)

type exhaustReason uint8

const (
	exhaustNone exhaustReason = iota
	exhaustExpired
	exhaustHit
	exhaustHazard
)

// Bolt は飛行中の弾です。枯渇は終端状態で、一度枯渇した弾は再び動きません。
type Bolt struct {
	world *World
	id    entity.ID
	owner entity.ID

	pos   *vector.PositionVector
	start int64
	ttl   int64
	// synced は最後に発射・進路変更イベントを反映した時刻です。
	synced int64

	exhausted bool
	reason    exhaustReason
	diverted  bool
}

var _ GameObject = (*Bolt)(nil)

func (b *Bolt) ID() entity.ID                    { return b.id }
func (b *Bolt) Owner() entity.ID                 { return b.owner }
func (b *Bolt) Start() int64                     { return b.start }
func (b *Bolt) TTL() int64                       { return b.ttl }
func (b *Bolt) Exhausted() bool                  { return b.exhausted }
func (b *Bolt) Position() *vector.PositionVector { return b.pos }
func (b *Bolt) SupportsDamping() bool            { return false }

// ExpiresAt は生存時間が尽きる時刻です。
func (b *Bolt) ExpiresAt() int64 {
	return b.start + b.ttl
}

// local は所有者がこのレプリカに接続しているかを返します。
func (b *Bolt) local() bool {
	p, ok := b.world.Players.Get(b.owner)
	return ok && p.local
}

// Move は外力で速度を変えます。変化は次の tick で進路変更イベントとして発行されます。
func (b *Bolt) Move(ctx context.Context, impulse vector.Vector2) {
	if b.exhausted || impulse.IsZero() {
		return
	}
	b.pos.SetVelocity(b.pos.Velocity().Add(impulse))
	b.diverted = true
}

func (b *Bolt) HazardDestroy(ctx context.Context, timestamp int64) {
	b.exhaust(exhaustHazard)
}

func (b *Bolt) Teleport(ctx context.Context, pos vector.Vector2, timestamp int64) {
	if b.exhausted {
		return
	}
	b.pos.Teleport(pos)
	b.diverted = true
}

func (b *Bolt) exhaust(reason exhaustReason) {
	if b.exhausted {
		return
	}
	b.exhausted, b.reason = true, reason
}

func (b *Bolt) fixedUpdate(ctx context.Context, timestamp int64) {
	if b.exhausted {
		return
	}
	b.pos.Update(timestamp)

	if b.diverted {
		b.diverted = false
		if b.local() && timestamp > b.synced {
			b.divert(ctx, timestamp)
		}
	}
	if b.pos.OutOfBounds() || timestamp >= b.ExpiresAt() {
		b.exhaust(exhaustExpired)
		return
	}

	threshold := b.world.Config.Player.Radius + b.world.Config.Bolt.Radius
	for _, p := range b.world.Players.Near(b.pos.Previous(), b.pos.Current(), threshold) {
		if p.id == b.owner || !p.local || !p.spawned {
			continue
		}
		if _, hit := b.pos.IntersectedWith(p.pos, threshold); hit {
			p.Destroy(ctx, b.owner, timestamp)
			b.exhaust(exhaustHit)
			return
		}
	}
}

// divert は残りの生存時間を timestamp 起点で計算し直して発行します。
func (b *Bolt) divert(ctx context.Context, timestamp int64) {
	remaining := max(0, b.ExpiresAt()-timestamp)
	diverted, err := event.NewBoltDiverted(motionOf(b.pos.Current(), b.pos.Velocity()), timestamp, remaining)
	if err != nil {
		b.world.Logger.WarnContext(ctx, "bolt diversion dropped", "bolt", b.id, "err", err)
		return
	}
	b.world.Topics.Dispatch(ctx, event.Domain{Topic: event.TopicBoltAction, Key: b.id, Payload: diverted})
}

func (b *Bolt) applyDiverted(ctx context.Context, ev event.BoltDiverted) {
	if b.exhausted || ev.Timestamp <= b.synced {
		return
	}
	b.pos.Reset(vector.FromXY(ev.X, ev.Y), vector.FromXY(ev.VX, ev.VY), ev.Timestamp)
	b.start, b.ttl, b.synced = ev.Timestamp, ev.TTL, ev.Timestamp
	b.world.Outbox.Broadcast(event.ClientBoltDiverted, b.id, b.view())
}

func (b *Bolt) view() event.BoltView {
	return event.BoltView{
		ID:     b.id,
		Owner:  b.owner,
		Motion: motionOf(b.pos.Current(), b.pos.Velocity()),
		Start:  b.start,
		TTL:    b.ttl,
	}
}
