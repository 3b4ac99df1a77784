package game

import (
	"context"
	"math"

	"arena/game/entity"
	"arena/game/event"
	"arena/game/vector"
)

// Player はプレイヤーの船です。
// local はこのレプリカにセッションが接続しているかを表し、local な船だけが自身の状態変化をイベントとして発行します。
type Player struct {
	world *World
	id    entity.ID

	name     string
	platform string
	skin     int

	local   bool
	joined  bool
	spawned bool

	pos        *vector.PositionVector
	angle      float64
	tickAngle  float64 // tick 開始時の向き
	angleDirty bool
	forceMoved bool

	bolts int

	damping     float64
	override    float64
	overridden  bool
	createdAt   int64
	joinedAt    int64
	spawnedAt   int64
	destroyedAt int64
	movedAt     int64
}

var _ GameObject = (*Player)(nil)

func newPlayer(w *World, id entity.ID, createdAt int64) *Player {
	return &Player{
		world:     w,
		id:        id,
		pos:       vector.MustPositionVector(w.Config.Player.motion()),
		damping:   w.Config.Player.Damping,
		createdAt: createdAt,
	}
}

func (p *Player) ID() entity.ID                    { return p.id }
func (p *Player) Name() string                     { return p.name }
func (p *Player) Platform() string                 { return p.platform }
func (p *Player) Skin() int                        { return p.skin }
func (p *Player) Local() bool                      { return p.local }
func (p *Player) Joined() bool                     { return p.joined }
func (p *Player) Spawned() bool                    { return p.spawned }
func (p *Player) Angle() float64                   { return p.angle }
func (p *Player) Bolts() int                       { return p.bolts }
func (p *Player) Damping() float64                 { return p.damping }
func (p *Player) Position() *vector.PositionVector { return p.pos }
func (p *Player) SupportsDamping() bool            { return true }

// Join は参加イベントを発行します。
func (p *Player) Join(ctx context.Context, name, platform string, timestamp int64) {
	skin := 0
	if n := p.world.Config.Player.Skins; n > 1 {
		skin = p.world.Rand.IntN(n)
	}
	p.dispatch(ctx, event.TopicJoin, event.PlayerJoined{
		Name:      name,
		Platform:  platform,
		Skin:      skin,
		Timestamp: timestamp,
	})
}

// Spawn は出現位置を決めて出現イベントを発行します。参加済みかつ未出現の場合だけ有効です。
func (p *Player) Spawn(ctx context.Context, timestamp int64) bool {
	if !p.local || !p.joined || p.spawned {
		return false
	}
	at := p.spawnPoint()
	p.dispatch(ctx, event.TopicPlayerAction, event.PlayerSpawned{
		Motion:    motionOf(at, vector.Zero),
		Angle:     -math.Pi / 2,
		Timestamp: timestamp,
	})
	return true
}

func (p *Player) spawnPoint() vector.Vector2 {
	cfg := p.world.Config.Player
	if cfg.SpawnMode == SpawnFixed {
		return vector.FromXY(cfg.SpawnX, cfg.SpawnY)
	}
	clearance := 3 * p.world.Config.World.BarrierThreshold
	for range 8 {
		at := randomPoint(p.world.Rand, cfg.Radius)
		if !p.world.Barriers.Touches(at, clearance) {
			return at
		}
	}
	return randomPoint(p.world.Rand, cfg.Radius)
}

// Steer は移動入力を受け付けます。衝撃は次の tick で速度に加わり、
// 向きの変化は tick 開始時の向きから MaxAngularStep 以内に制限されます。
func (p *Player) Steer(dx, dy float64, angle *float64) {
	if !p.spawned {
		return
	}
	cfg := p.world.Config.Player
	if impulse := vector.FromXY(dx, dy).ClampMagnitude(cfg.MaxImpulse); !impulse.IsZero() {
		p.pos.ScheduleMove(impulse)
	}
	if angle == nil {
		return
	}
	delta := vector.AngleDelta(p.tickAngle, *angle)
	if step := cfg.MaxAngularStep; step > 0 {
		delta = math.Max(-step, math.Min(step, delta))
	}
	if next := vector.NormalizeAngle(p.tickAngle + delta); next != p.angle {
		p.angle = next
		p.angleDirty = true
	}
}

// SetDamping は以降の tick で使う減衰係数を設定します。
func (p *Player) SetDamping(c float64) {
	p.damping = math.Max(p.world.Config.Player.MinDamping, math.Min(0, c))
}

// OverrideDamping は次の 1 tick だけ減衰係数を上書きします。
func (p *Player) OverrideDamping(c float64) {
	p.override, p.overridden = math.Min(0, c), true
}

// Move は外力による衝撃を予約します。
func (p *Player) Move(ctx context.Context, impulse vector.Vector2) {
	if p.spawned {
		p.pos.ScheduleMove(impulse)
	}
}

// Fire は弾の発射イベントを発行します。生存時間は発射方向で最も近い障壁までに短縮されます。
func (p *Player) Fire(ctx context.Context, timestamp int64) bool {
	if !p.local || !p.spawned || p.bolts >= p.world.Config.Player.MaxBolts {
		return false
	}
	cfg := p.world.Config.Bolt

	dir := vector.FromPolar(p.angle, 1)
	launch := dir.Scale(cfg.Speed)
	if cfg.Inertia {
		v := p.pos.Velocity()
		along := v.Project(dir)
		factor := cfg.InertiaSame
		if along.Dot(dir) < 0 {
			factor = cfg.InertiaOpposing
		}
		launch = launch.Add(along.Scale(factor)).Add(v.Reject(dir).Scale(cfg.InertiaReject))
	}
	speed := launch.Magnitude()
	if speed < vector.Epsilon {
		return false
	}

	origin := p.pos.Current()
	ttl := cfg.MaxDuration
	if d, hit := p.world.Barriers.RayDistance(origin, launch, speed*float64(cfg.MaxDuration)/1000); hit {
		ttl = min(ttl, int64(1000*d/speed))
	}
	fired, err := event.NewBoltFired(p.id, motionOf(origin, launch), timestamp, ttl)
	if err != nil {
		p.world.Logger.WarnContext(ctx, "bolt not fired", "player", p.id, "err", err)
		return false
	}
	p.world.Topics.Dispatch(ctx, event.Domain{Topic: event.TopicBoltLifecycle, Key: entity.New(), Payload: fired})
	return true
}

// Destroy は出現中の船を破壊し、攻撃者に得点を与えます。
func (p *Player) Destroy(ctx context.Context, by entity.ID, timestamp int64) bool {
	if !p.local || !p.spawned {
		return false
	}
	p.dispatch(ctx, event.TopicPlayerAction, event.PlayerDestroyed{By: by, Timestamp: timestamp})
	if !by.IsNil() && by != p.id {
		p.world.Topics.Dispatch(ctx, event.Domain{
			Topic: event.TopicScoreControl,
			Key:   by,
			Payload: event.ScoreIncreased{
				Delta:     p.world.Config.Score.KillPoints,
				Victim:    p.id,
				Timestamp: timestamp,
			},
		})
	}
	return true
}

func (p *Player) HazardDestroy(ctx context.Context, timestamp int64) {
	p.Destroy(ctx, entity.Nil, timestamp)
}

// Teleport は位置だけを置き換え、次の tick で移動イベントを発行します。
func (p *Player) Teleport(ctx context.Context, pos vector.Vector2, timestamp int64) {
	if !p.local || !p.spawned {
		return
	}
	p.pos.Teleport(pos)
	p.forceMoved = true
}

// Leave は退出を tombstone として発行します。
func (p *Player) Leave(ctx context.Context) {
	p.world.Topics.Dispatch(ctx, event.NewTombstone(event.TopicJoin, p.id))
	p.world.Topics.Dispatch(ctx, event.NewTombstone(event.TopicScoreControl, p.id))
}

func (p *Player) fixedUpdate(ctx context.Context, timestamp int64) {
	if !p.spawned {
		return
	}
	p.tickAngle = p.angle
	damping := p.damping
	if p.overridden {
		damping, p.overridden = p.override, false
	}
	changed := p.pos.UpdateDamped(timestamp, damping)
	if changed && p.world.Barriers.Reflect(p.pos, p.world.Config.World.BarrierThreshold) {
		changed = true
	}

	if !p.local || timestamp <= p.movedAt {
		return
	}
	if changed || p.angleDirty || p.forceMoved {
		p.angleDirty, p.forceMoved = false, false
		p.dispatch(ctx, event.TopicPlayerAction, event.PlayerMoved{
			Motion:    motionOf(p.pos.Current(), p.pos.Velocity()),
			Angle:     p.angle,
			Timestamp: timestamp,
		})
	}
}

// lastActivity は参加・出現・破壊・生成のうち最も新しい時刻です。
func (p *Player) lastActivity() int64 {
	return max(p.createdAt, p.joinedAt, p.spawnedAt, p.destroyedAt)
}

// stalled は出現しないまま timeout を超えて放置されているかを返します。
func (p *Player) stalled(now int64) bool {
	timeout := p.world.Config.Player.StallTimeout
	return timeout > 0 && !p.spawned && now-p.lastActivity() > timeout
}

func (p *Player) applyJoined(ctx context.Context, ev event.PlayerJoined) {
	if p.joined && ev.Timestamp <= p.joinedAt {
		return
	}
	p.name, p.platform, p.skin = ev.Name, ev.Platform, ev.Skin
	p.joined, p.joinedAt = true, ev.Timestamp
	p.world.Outbox.Broadcast(event.ClientPlayerJoined, p.id, p.view())
}

func (p *Player) applySpawned(ctx context.Context, ev event.PlayerSpawned) {
	if ev.Timestamp <= p.spawnedAt || ev.Timestamp < p.destroyedAt {
		return
	}
	p.spawned, p.spawnedAt = true, ev.Timestamp
	p.movedAt = max(p.movedAt, ev.Timestamp)
	p.pos.Reset(vector.FromXY(ev.X, ev.Y), vector.FromXY(ev.VX, ev.VY), ev.Timestamp)
	p.angle, p.angleDirty, p.forceMoved = ev.Angle, false, false
	p.tickAngle = p.angle
	p.world.Outbox.Broadcast(event.ClientPlayerSpawned, p.id, p.view())
}

func (p *Player) applyMoved(ctx context.Context, ev event.PlayerMoved) {
	if ev.Timestamp <= p.movedAt {
		return
	}
	p.movedAt = ev.Timestamp
	if !p.local {
		p.pos.Reset(vector.FromXY(ev.X, ev.Y), vector.FromXY(ev.VX, ev.VY), ev.Timestamp)
		p.angle = ev.Angle
	}
	p.world.Outbox.Broadcast(event.ClientPlayerMoved, p.id, ev)
}

func (p *Player) applyDestroyed(ctx context.Context, ev event.PlayerDestroyed) {
	if !p.spawned || ev.Timestamp < p.spawnedAt {
		return
	}
	p.spawned, p.destroyedAt = false, ev.Timestamp
	at := p.pos.Current()
	p.world.Outbox.Broadcast(event.ClientPlayerDestroyed, p.id, ev)
	p.world.Physics.Enqueue(NewShockwave(p.world, p.id, at, ev.Timestamp).Step)
}

func (p *Player) boltFired(ctx context.Context) {
	p.bolts++
	p.sendBoltsAvailable()
}

// boltExhausted は飛行中の弾の数を減らし、接続中なら残弾数を本人へ送ります。
func (p *Player) boltExhausted(ctx context.Context) {
	p.bolts = max(0, p.bolts-1)
	p.sendBoltsAvailable()
}

func (p *Player) sendBoltsAvailable() {
	if !p.local {
		return
	}
	p.world.Outbox.Send(p.id, event.ClientBoltsAvailable, p.id, event.BoltsAvailable{
		Count: max(0, p.world.Config.Player.MaxBolts-p.bolts),
	})
}

func (p *Player) dispatch(ctx context.Context, topic event.Topic, payload event.Payload) {
	p.world.Topics.Dispatch(ctx, event.Domain{Topic: topic, Key: p.id, Payload: payload})
}

func (p *Player) view() event.PlayerView {
	return event.PlayerView{
		ID:      p.id,
		Name:    p.name,
		Skin:    p.skin,
		Spawned: p.spawned,
		Motion:  motionOf(p.pos.Current(), p.pos.Velocity()),
		Angle:   p.angle,
	}
}

func motionOf(pos, velocity vector.Vector2) event.Motion {
	return event.Motion{X: pos.X(), Y: pos.Y(), VX: velocity.X(), VY: velocity.Y()}
}
