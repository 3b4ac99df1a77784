package vector

import "math"

// SegmentIntersection は線分 p1-p2 と q1-q2 の交点を返します。
// t は p1 から p2 方向への交点のパラメータ [0,1] です。平行な場合は交差なしとします。
func SegmentIntersection(p1, p2, q1, q2 Vector2) (point Vector2, t float64, ok bool) {
	r := p2.Sub(p1)
	s := q2.Sub(q1)
	denom := r.Cross(s)
	if math.Abs(denom) < Epsilon {
		return Zero, 0, false
	}
	qp := q1.Sub(p1)
	t = qp.Cross(s) / denom
	u := qp.Cross(r) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Zero, 0, false
	}
	return p1.Add(r.Scale(t)), t, true
}

// ClosestPointOnSegment は点 p に最も近い線分 a-b 上の点を返します。
func ClosestPointOnSegment(p, a, b Vector2) Vector2 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 < Epsilon {
		return a
	}
	t := p.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return a.Add(ab.Scale(t))
}

// IntersectedWithSegment は直前の tick の移動 (previous→current) を掃引し、
// 固定線分 from-to と交差する点を返します。
// 交差しない場合でも現在位置が線分から threshold 以内なら線分上の最近点を返します。
func (p *PositionVector) IntersectedWithSegment(from, to Vector2, threshold float64) (Vector2, bool) {
	if !p.previous.Equal(p.current, Epsilon) {
		if point, _, ok := SegmentIntersection(p.previous, p.current, from, to); ok {
			return point, true
		}
	}
	if threshold <= 0 {
		return Zero, false
	}
	closest := ClosestPointOnSegment(p.current, from, to)
	if closest.DistanceTo(p.current) <= threshold {
		return closest, true
	}
	return Zero, false
}

// IntersectedWith は移動する 2 物体の相対運動で衝突を判定します。
// 相手が異なる時刻に更新されている場合、相手自身の速度で自分のサンプル時刻へ位置を合わせてから、
// 区間内の最接近距離を threshold と比較します。衝突時は自分の軌跡上の最接近点を返します。
func (p *PositionVector) IntersectedWith(other *PositionVector, threshold float64) (Vector2, bool) {
	t0, t1 := p.previousTimestamp, p.timestamp
	if t0 == 0 {
		t0 = t1
	}
	a0, a1 := p.previous, p.current
	b0, b1 := other.alignedAt(t0), other.alignedAt(t1)

	r0 := a0.Sub(b0)
	d := a1.Sub(a0).Sub(b1.Sub(b0))
	dd := d.Dot(d)
	t := 0.0
	if dd > Epsilon*Epsilon {
		t = math.Max(0, math.Min(1, -r0.Dot(d)/dd))
	}
	if r0.Add(d.Scale(t)).Magnitude() > threshold {
		return Zero, false
	}
	return a0.Add(a1.Sub(a0).Scale(t)), true
}

func (p *PositionVector) alignedAt(timestamp int64) Vector2 {
	if p.timestamp == 0 || timestamp == 0 {
		return p.current
	}
	return p.PositionAt(timestamp)
}
