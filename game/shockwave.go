package game

import (
	"context"
	"math"

	"arena/game/entity"
	"arena/game/vector"
)

// Shockwave は船の破壊地点から広がる衝撃波です。波面の内側の物体を放物線状に減衰する強さで押し出します。
type Shockwave struct {
	world  *World
	source entity.ID
	center vector.Vector2
	start  int64
	end    int64
	last   int64
}

func NewShockwave(w *World, source entity.ID, center vector.Vector2, start int64) *Shockwave {
	return &Shockwave{
		world:  w,
		source: source,
		center: center,
		start:  start,
		end:    start + w.Config.Shockwave.Duration,
		last:   start,
	}
}

// Front は timestamp 時点の波面の半径です。
func (s *Shockwave) Front(timestamp int64) float64 {
	cfg := s.world.Config.Shockwave
	elapsed := float64(timestamp - s.start + cfg.ElapsedPadding)
	return cfg.Radius * math.Max(0, math.Min(1, elapsed/float64(cfg.Duration)))
}

func (s *Shockwave) Step(ctx context.Context, timestamp int64) bool {
	if timestamp >= s.end {
		return false
	}
	if timestamp <= s.last {
		return true
	}
	dt := float64(timestamp-s.last) / 1000
	s.last = timestamp

	front := s.Front(timestamp)
	if front <= 0 {
		return true
	}
	strength := s.world.Config.Shockwave.Strength
	cx, cy := s.center.X(), s.center.Y()
	for _, obj := range s.world.Objects.Search(cx, cy, cx, cy, front) {
		if obj.ID() == s.source {
			continue
		}
		pos := obj.Position()
		if pos == nil {
			continue
		}
		offset := pos.Current().Sub(s.center)
		d := offset.Magnitude()
		if d >= front || d < vector.Epsilon {
			continue
		}
		falloff := 1 - (d/front)*(d/front)
		obj.Move(ctx, offset.WithMagnitude(strength*falloff*dt))
	}
	return true
}
