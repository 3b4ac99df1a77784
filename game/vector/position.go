package vector

import (
	"errors"
	"fmt"
	"math"
)

// Boundary はワールド境界 [0,1] を越えた時の振る舞いです。
type Boundary uint8

const (
	BoundaryIgnore Boundary = iota
	BoundaryClip
	BoundaryBounce
)

func (b Boundary) String() string {
	switch b {
	case BoundaryIgnore:
		return "ignore"
	case BoundaryClip:
		return "clip"
	case BoundaryBounce:
		return "bounce"
	default:
		return fmt.Sprintf("unknown(%d)", b)
	}
}

// DefaultMinMove はこれ未満の速さを 0 とみなす既定値です。
const DefaultMinMove = 1e-4

var (
	// ErrInvalidDamping は減衰係数が正の場合に返されるエラーです。
	ErrInvalidDamping = errors.New("vector: damping coefficient must be <= 0")
	// ErrInvalidMagnitude は最大速度が負の場合に返されるエラーです。
	ErrInvalidMagnitude = errors.New("vector: max magnitude must be >= 0")
)

// Configuration は PositionVector の境界・速度上限・減衰のポリシーです。
type Configuration struct {
	Boundary Boundary
	// MaxMagnitude は速度の上限です。0 は無制限。
	MaxMagnitude float64
	// Damping は f(t)=K·e^(c·t) の c です。0 以下でなければなりません。
	Damping float64
	// MinMove はこれ未満に減衰した速さを 0 に丸める閾値です。0 なら DefaultMinMove。
	MinMove float64
}

func (c Configuration) Validate() error {
	if c.Damping > 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidDamping, c.Damping)
	}
	if c.MaxMagnitude < 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidMagnitude, c.MaxMagnitude)
	}
	return nil
}

func (c Configuration) minMove() float64 {
	if c.MinMove > 0 {
		return c.MinMove
	}
	return DefaultMinMove
}

// PositionVector はエンティティ 1 つが所有する運動状態です。
// 位置は経過時間 × 現在速度で解析的に求めるため、tick レートに速度が依存しません。
// タイムスタンプはミリ秒で、単調増加でない Update は何もしません。
type PositionVector struct {
	cfg Configuration

	previous, current          Vector2
	previousVelocity, velocity Vector2
	scheduled                  Vector2

	previousTimestamp, timestamp int64
}

// NewPositionVector は設定を検証して PositionVector を生成します。
func NewPositionVector(cfg Configuration) (*PositionVector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PositionVector{cfg: cfg}, nil
}

// MustPositionVector は設定が不正な場合 panic します。
func MustPositionVector(cfg Configuration) *PositionVector {
	p, err := NewPositionVector(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *PositionVector) Config() Configuration     { return p.cfg }
func (p *PositionVector) Current() Vector2          { return p.current }
func (p *PositionVector) Previous() Vector2         { return p.previous }
func (p *PositionVector) Velocity() Vector2         { return p.velocity }
func (p *PositionVector) PreviousVelocity() Vector2 { return p.previousVelocity }
func (p *PositionVector) Scheduled() Vector2        { return p.scheduled }
func (p *PositionVector) Timestamp() int64          { return p.timestamp }
func (p *PositionVector) PreviousTimestamp() int64  { return p.previousTimestamp }

// Reset は位置・速度・時刻をまとめて初期化します。予約移動は破棄されます。
func (p *PositionVector) Reset(pos, velocity Vector2, timestamp int64) {
	p.previous, p.current = pos, pos
	p.previousVelocity, p.velocity = velocity, velocity
	p.previousTimestamp, p.timestamp = timestamp, timestamp
	p.scheduled = Zero
}

// Teleport は速度の履歴を変えずに位置だけを置き換えます。
// previous も同じ位置になるため、移動前後の掃引判定は瞬間移動をまたぎません。
func (p *PositionVector) Teleport(pos Vector2) {
	p.previous, p.current = pos, pos
}

// SetCurrent は現在位置だけを置き換えます。反射処理で使います。
func (p *PositionVector) SetCurrent(pos Vector2) {
	p.current = pos
}

// SetVelocity は速度を上限で切り詰めて設定します。
func (p *PositionVector) SetVelocity(v Vector2) {
	p.velocity = v.ClampMagnitude(p.cfg.MaxMagnitude)
}

// ScheduleMove は次の Update で速度に加算される衝撃を積算します。
func (p *PositionVector) ScheduleMove(delta Vector2) {
	p.scheduled = p.scheduled.Add(delta)
}

// Update は設定の減衰係数で timestamp まで状態を進めます。
// 位置または速度が変化した場合 true を返します。
func (p *PositionVector) Update(timestamp int64) bool {
	return p.UpdateDamped(timestamp, p.cfg.Damping)
}

// UpdateDamped は減衰係数 damping を今回の tick に限り上書きして状態を進めます。
func (p *PositionVector) UpdateDamped(timestamp int64, damping float64) bool {
	if timestamp <= p.timestamp {
		return false
	}
	if p.timestamp == 0 {
		// 一度も時刻が設定されていない場合は基準時刻だけ記録する
		p.previousTimestamp, p.timestamp = timestamp, timestamp
		return false
	}
	dt := float64(timestamp-p.timestamp) / 1000

	p.previous, p.previousVelocity, p.previousTimestamp = p.current, p.velocity, p.timestamp
	p.timestamp = timestamp

	if !p.scheduled.IsZero() {
		p.velocity = p.velocity.Add(p.scheduled).ClampMagnitude(p.cfg.MaxMagnitude)
	}
	p.scheduled = Zero

	if !p.velocity.IsZero() {
		p.current = p.current.Add(p.velocity.Scale(dt))
	}
	if damping < 0 && !p.velocity.IsZero() {
		speed := p.velocity.Magnitude() * math.Exp(damping*dt)
		if speed < p.cfg.minMove() {
			p.velocity = Zero
		} else {
			p.velocity = p.velocity.WithMagnitude(speed)
		}
	}
	p.applyBoundary()

	return !p.current.Equal(p.previous, Epsilon) || !p.velocity.Equal(p.previousVelocity, Epsilon)
}

func (p *PositionVector) applyBoundary() {
	switch p.cfg.Boundary {
	case BoundaryClip:
		x, y := p.current.X(), p.current.Y()
		cx, cy := clamp01(x), clamp01(y)
		if cx != x || cy != y {
			p.current = FromXY(cx, cy)
		}
	case BoundaryBounce:
		x, y := p.current.X(), p.current.Y()
		vx, vy := p.velocity.X(), p.velocity.Y()
		nx, nvx := fold(x, vx)
		ny, nvy := fold(y, vy)
		if nx != x || ny != y {
			p.current = FromXY(nx, ny)
		}
		if nvx != vx || nvy != vy {
			p.velocity = FromXY(nvx, nvy)
		}
	default:
	}
}

// fold は境界を越えた分を内側へ折り返し、その軸の速度の符号を内向きにします。
func fold(pos, vel float64) (float64, float64) {
	switch {
	case pos > 1:
		return clamp01(2 - pos), -math.Abs(vel)
	case pos < 0:
		return clamp01(-pos), math.Abs(vel)
	default:
		return pos, vel
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// OutOfBounds は現在位置がワールド [0,1]×[0,1] の外にあるかを返します。
func (p *PositionVector) OutOfBounds() bool {
	x, y := p.current.X(), p.current.Y()
	return x < 0 || x > 1 || y < 0 || y > 1
}

// PositionAt は自身の速度で timestamp 時点の位置を外挿します。
// previous と current の間の時刻は線形補間します。
func (p *PositionVector) PositionAt(timestamp int64) Vector2 {
	switch {
	case timestamp >= p.timestamp:
		dt := float64(timestamp-p.timestamp) / 1000
		return p.current.Add(p.velocity.Scale(dt))
	case timestamp <= p.previousTimestamp:
		dt := float64(timestamp-p.previousTimestamp) / 1000
		return p.previous.Add(p.previousVelocity.Scale(dt))
	default:
		f := float64(timestamp-p.previousTimestamp) / float64(p.timestamp-p.previousTimestamp)
		return p.previous.Add(p.current.Sub(p.previous).Scale(f))
	}
}
