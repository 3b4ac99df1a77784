package application

import (
	"math"
	"math/rand/v2"

	"arena/game/vector"
)

const (
	botDangerDist float64 = 0.15 // 弾を避け始める距離
	botNoiseAngle float64 = 0.52 // ±30度 (π/6 ≈ 0.52 rad)
	botFireCone   float64 = 0.2  // 照準がこの角度以内なら撃つ
	botImpulse    float64 = 0.05
	rushChance    float64 = 0.02 // 毎回 2% の確率で突撃
)

// RuleBotController はルールベースのボットAIです。
// ボットごとに異なる個性パラメータを持ちます。
type RuleBotController struct {
	CloseRange float64 // 後退を始める距離
	MidRange   float64 // ストレイフを始める距離
	StrafeSign float64 // +1: 反時計回り, -1: 時計回り
	FireRange  float64

	rng *rand.Rand
}

// NewRuleBotController はランダムな個性を持つボットAIを生成します。
func NewRuleBotController(rng *rand.Rand) *RuleBotController {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	strafeSign := 1.0
	if rng.Float64() < 0.5 {
		strafeSign = -1.0
	}
	return &RuleBotController{
		CloseRange: 0.1 + rng.Float64()*0.1, // 0.1〜0.2
		MidRange:   0.3 + rng.Float64()*0.2, // 0.3〜0.5
		StrafeSign: strafeSign,
		FireRange:  0.6,
		rng:        rng,
	}
}

func (r *RuleBotController) Decide(self Actor, actors []Actor, bolts []Bolt, available int) BotAction {
	if !self.Spawned {
		return BotAction{}
	}
	pos := vector.FromXY(self.X, self.Y)

	// 被弾回避を優先
	if dir, ok := r.evadeBolt(self, pos, bolts); ok {
		return r.move(r.addNoise(dir))
	}

	nearest, ok := r.findNearestEnemy(self, actors)
	if !ok {
		return BotAction{}
	}
	toEnemy := vector.FromXY(nearest.X, nearest.Y).Sub(pos)
	dist := toEnemy.Magnitude()
	if dist < 0.001 {
		return BotAction{}
	}
	n := toEnemy.Normalize()

	var dir vector.Vector2
	switch {
	case r.rng.Float64() < rushChance:
		// ランダム突撃: 距離に関係なく接近
		dir = n
	case dist < r.CloseRange:
		dir = n.Scale(-1)
	case dist < r.MidRange:
		dir = vector.FromXY(-n.Y()*r.StrafeSign, n.X()*r.StrafeSign)
	default:
		dir = n
	}

	action := r.move(r.addNoise(dir))
	action.Aim = true
	action.Angle = toEnemy.Angle()
	action.Fire = available > 0 && dist <= r.FireRange &&
		math.Abs(vector.AngleDelta(self.Angle, action.Angle)) <= botFireCone
	return action
}

func (r *RuleBotController) move(dir vector.Vector2) BotAction {
	impulse := dir.Scale(botImpulse)
	return BotAction{DX: impulse.X(), DY: impulse.Y()}
}

// evadeBolt は自分に向かってくる弾を回避する方向を返します。
func (r *RuleBotController) evadeBolt(self Actor, pos vector.Vector2, bolts []Bolt) (vector.Vector2, bool) {
	closestDist := math.MaxFloat64
	var closest vector.Vector2
	found := false

	for _, b := range bolts {
		if b.Owner == self.ID {
			continue
		}
		away := pos.Sub(vector.FromXY(b.X, b.Y))
		dist := away.Magnitude()
		if dist > botDangerDist {
			continue
		}
		v := vector.FromXY(b.VX, b.VY)
		// 弾が自分に向かっているか確認（内積 > 0）
		if away.Dot(v) <= 0 {
			continue
		}
		if dist < closestDist {
			closestDist = dist
			closest = v
			found = true
		}
	}

	if !found || closest.Magnitude() < 0.001 {
		return vector.Zero, false
	}
	// 弾の進行方向に対して垂直に回避
	return vector.FromXY(-closest.Y(), closest.X()).Normalize(), true
}

// findNearestEnemy は最寄りの生存敵を探します。
func (r *RuleBotController) findNearestEnemy(self Actor, actors []Actor) (Actor, bool) {
	var nearest Actor
	nearestDistSq := math.MaxFloat64
	found := false

	for _, other := range actors {
		if other.ID == self.ID || !other.Spawned {
			continue
		}
		dx, dy := other.X-self.X, other.Y-self.Y
		if distSq := dx*dx + dy*dy; distSq < nearestDistSq {
			nearestDistSq = distSq
			nearest = other
			found = true
		}
	}
	return nearest, found
}

// addNoise は移動方向に ±30度 のランダムノイズを加えます。
func (r *RuleBotController) addNoise(dir vector.Vector2) vector.Vector2 {
	return dir.Rotate((r.rng.Float64()*2 - 1) * botNoiseAngle)
}
