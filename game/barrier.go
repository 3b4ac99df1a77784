package game

import (
	"context"
	"math"

	"arena/game/spatial"
	"arena/game/vector"
)

// Barrier は中心と回転で定義される静的な線分の障壁です。
type Barrier struct {
	Center   vector.Vector2
	Rotation float64
	Length   float64

	From, To vector.Vector2
	// Normal は線分に直交する単位ベクトルです。
	Normal vector.Vector2
}

func NewBarrier(center vector.Vector2, rotation, length float64) *Barrier {
	half := vector.FromPolar(rotation, length/2)
	return &Barrier{
		Center:   center,
		Rotation: rotation,
		Length:   length,
		From:     center.Sub(half),
		To:       center.Add(half),
		Normal:   vector.FromPolar(rotation+math.Pi/2, 1),
	}
}

// Barriers は障壁の集合です。構築後は読み取り専用として共有されます。
type Barriers struct {
	list  []*Barrier
	index *spatial.Scan[*Barrier]
	reach float64
	dirty bool
}

func NewBarriers(list ...*Barrier) *Barriers {
	b := &Barriers{
		index: spatial.NewScan(func(b *Barrier) (float64, float64) {
			return b.Center.X(), b.Center.Y()
		}),
	}
	b.Add(list...)
	b.FixedUpdate(context.Background(), 0)
	return b
}

// Add は障壁を追加します。インデックスへは次の FixedUpdate で反映されます。
func (b *Barriers) Add(list ...*Barrier) {
	for _, barrier := range list {
		b.list = append(b.list, barrier)
		b.reach = math.Max(b.reach, barrier.Length/2)
	}
	b.dirty = b.dirty || len(list) > 0
}

func (b *Barriers) All() []*Barrier {
	return b.list
}

func (b *Barriers) Len() int {
	return len(b.list)
}

func (b *Barriers) FixedUpdate(ctx context.Context, timestamp int64) {
	if !b.dirty {
		return
	}
	b.index.Update(b.list)
	b.dirty = false
}

// Near は from-to を distance だけ広げた範囲に掛かりうる障壁を返します。
func (b *Barriers) Near(from, to vector.Vector2, distance float64) []*Barrier {
	return b.index.Search(from.X(), from.Y(), to.X(), to.Y(), distance+b.reach)
}

// Touches は点 at から distance 以内に障壁があるかを返します。
func (b *Barriers) Touches(at vector.Vector2, distance float64) bool {
	for _, barrier := range b.Near(at, at, distance) {
		if vector.ClosestPointOnSegment(at, barrier.From, barrier.To).DistanceTo(at) <= distance {
			return true
		}
	}
	return false
}

// RayDistance は origin から dir 方向へ maxDistance 以内で最も近い障壁までの距離を返します。
func (b *Barriers) RayDistance(origin, dir vector.Vector2, maxDistance float64) (float64, bool) {
	if maxDistance <= 0 || dir.IsZero() {
		return 0, false
	}
	end := origin.Add(dir.WithMagnitude(maxDistance))
	nearest, hit := maxDistance, false
	for _, barrier := range b.Near(origin, end, 0) {
		if _, t, ok := vector.SegmentIntersection(origin, end, barrier.From, barrier.To); ok {
			if d := t * maxDistance; d < nearest {
				nearest, hit = d, true
			}
		}
	}
	return nearest, hit
}

// Reflect は直前の移動が障壁に当たった場合、速度を法線で反射し、
// 位置を当たった側へ threshold だけ離して戻します。
func (b *Barriers) Reflect(p *vector.PositionVector, threshold float64) bool {
	for _, barrier := range b.Near(p.Previous(), p.Current(), threshold) {
		point, ok := p.IntersectedWithSegment(barrier.From, barrier.To, threshold)
		if !ok {
			continue
		}
		normal := barrier.Normal
		side := p.Previous().Sub(point).Dot(normal)
		if side == 0 {
			side = -p.Velocity().Dot(normal)
		}
		if side < 0 {
			normal = normal.Scale(-1)
		}
		if v := p.Velocity(); v.Dot(normal) < 0 {
			p.SetVelocity(v.Reflect(normal))
		}
		p.SetCurrent(point.Add(normal.Scale(threshold)))
		return true
	}
	return false
}

// Maze はワールド開始時に一度だけ構築される固定の障壁配置です。
func Maze() []*Barrier {
	quarter := math.Pi / 4
	return []*Barrier{
		NewBarrier(vector.FromXY(0.5, 0.5), 0, 0.2),
		NewBarrier(vector.FromXY(0.5, 0.5), math.Pi/2, 0.2),
		NewBarrier(vector.FromXY(0.2, 0.2), quarter, 0.15),
		NewBarrier(vector.FromXY(0.8, 0.2), -quarter, 0.15),
		NewBarrier(vector.FromXY(0.2, 0.8), -quarter, 0.15),
		NewBarrier(vector.FromXY(0.8, 0.8), quarter, 0.15),
		NewBarrier(vector.FromXY(0.5, 0.12), 0, 0.25),
		NewBarrier(vector.FromXY(0.5, 0.88), 0, 0.25),
		NewBarrier(vector.FromXY(0.12, 0.5), math.Pi/2, 0.25),
		NewBarrier(vector.FromXY(0.88, 0.5), math.Pi/2, 0.25),
	}
}
