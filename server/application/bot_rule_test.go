package application

import (
	"math"
	"math/rand/v2"
	"testing"

	"arena/game/entity"
)

func newTestBot() *RuleBotController {
	return &RuleBotController{
		CloseRange: 0.1,
		MidRange:   0.3,
		StrafeSign: 1,
		FireRange:  0.6,
		rng:        rand.New(rand.NewPCG(1, 2)),
	}
}

func TestRuleBot_IdleWhenNotSpawned(t *testing.T) {
	bot := newTestBot()
	action := bot.Decide(Actor{ID: entity.New()}, nil, nil, 5)
	if action != (BotAction{}) {
		t.Errorf("action = %+v, want zero", action)
	}
}

func TestRuleBot_AimsAndFiresAtNearestEnemy(t *testing.T) {
	bot := newTestBot()
	self := Actor{ID: entity.New(), Spawned: true, X: 0.5, Y: 0.5}
	near := Actor{ID: entity.New(), Spawned: true, X: 0.9, Y: 0.5}
	far := Actor{ID: entity.New(), Spawned: true, X: 0.5, Y: 0.0}
	dead := Actor{ID: entity.New(), X: 0.55, Y: 0.5}

	action := bot.Decide(self, []Actor{self, far, near, dead}, nil, 1)
	if !action.Aim || math.Abs(action.Angle) > 1e-9 {
		t.Errorf("angle = %v (aim %v), want 0", action.Angle, action.Aim)
	}
	if !action.Fire {
		t.Errorf("Fire = false, want true")
	}
	// 遠距離なので接近する
	if action.DX <= 0 {
		t.Errorf("DX = %v, want > 0", action.DX)
	}
	if mag := math.Hypot(action.DX, action.DY); math.Abs(mag-botImpulse) > 1e-9 {
		t.Errorf("|impulse| = %v, want %v", mag, botImpulse)
	}
}

func TestRuleBot_HoldsFireWithoutBolts(t *testing.T) {
	bot := newTestBot()
	self := Actor{ID: entity.New(), Spawned: true, X: 0.5, Y: 0.5}
	enemy := Actor{ID: entity.New(), Spawned: true, X: 0.7, Y: 0.5}
	if action := bot.Decide(self, []Actor{enemy}, nil, 0); action.Fire {
		t.Errorf("Fire = true, want false")
	}
}

func TestRuleBot_EvadesIncomingBolt(t *testing.T) {
	bot := newTestBot()
	self := Actor{ID: entity.New(), Spawned: true, X: 0.5, Y: 0.5}
	incoming := Bolt{ID: entity.New(), Owner: entity.New(), X: 0.4, Y: 0.5, VX: 0.6}
	own := Bolt{ID: entity.New(), Owner: self.ID, X: 0.45, Y: 0.5, VX: 0.6}

	action := bot.Decide(self, nil, []Bolt{own, incoming}, 3)
	if action.Aim || action.Fire {
		t.Errorf("action = %+v, want pure evasion", action)
	}
	// 弾は +x 方向なので回避は主に y 方向になる (ノイズは ±30度)
	if math.Abs(action.DY) < math.Abs(action.DX) {
		t.Errorf("evasion (%v, %v) not perpendicular to bolt", action.DX, action.DY)
	}
}

func TestRuleBot_IgnoresBoltsMovingAway(t *testing.T) {
	bot := newTestBot()
	self := Actor{ID: entity.New(), Spawned: true, X: 0.5, Y: 0.5}
	leaving := Bolt{ID: entity.New(), Owner: entity.New(), X: 0.6, Y: 0.5, VX: 0.6}

	if action := bot.Decide(self, nil, []Bolt{leaving}, 3); action != (BotAction{}) {
		t.Errorf("action = %+v, want zero", action)
	}
}
