package application

import (
	"math"
	"testing"
	"time"

	"arena/game/entity"
	"arena/game/event"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestField_ApplyTracksPlayers(t *testing.T) {
	self, other := entity.New(), entity.New()
	f := NewField(self)
	f.clock = fixedClock(time.Unix(100, 0))

	f.Apply(event.Client{Kind: event.ClientCurrentView, Payload: event.CurrentView{Players: []event.PlayerView{
		{ID: self, Name: "me", Spawned: true, Motion: event.Motion{X: 0.5, Y: 0.5}},
		{ID: other, Name: "you", Spawned: true, Motion: event.Motion{X: 0.1, Y: 0.1}},
	}}})
	if me := f.Me(); me == nil || me.Name != "me" {
		t.Fatalf("Me = %+v, want me", me)
	}

	f.Apply(event.Client{Kind: event.ClientPlayerMoved, Subject: other, Payload: event.PlayerMoved{Motion: event.Motion{X: 0.2, Y: 0.3, VX: 0.1}, Angle: 1}})
	if a := f.Actors[other]; a.X != 0.2 || a.Y != 0.3 || a.Angle != 1 {
		t.Errorf("moved actor = %+v, want (0.2, 0.3) angle 1", a)
	}

	f.Apply(event.Client{Kind: event.ClientPlayerDestroyed, Subject: other, Payload: event.PlayerDestroyed{By: self}})
	if f.Actors[other].Spawned {
		t.Errorf("destroyed actor still spawned")
	}

	f.Apply(event.Client{Kind: event.ClientPlayerLeft, Subject: other})
	if _, ok := f.Actors[other]; ok {
		t.Errorf("left actor still present")
	}
}

func TestField_ApplyTracksBolts(t *testing.T) {
	self := entity.New()
	f := NewField(self)
	bolt := entity.New()

	f.Apply(event.Client{Kind: event.ClientBoltFired, Subject: bolt, Payload: event.BoltView{ID: bolt, Owner: self, Motion: event.Motion{X: 0.5, Y: 0.5, VX: 0.6}}})
	if _, ok := f.Bolts[bolt]; !ok {
		t.Fatalf("bolt not tracked")
	}
	f.Apply(event.Client{Kind: event.ClientBoltsAvailable, Recipient: self, Payload: event.BoltsAvailable{Count: 3}})
	if f.Available != 3 {
		t.Errorf("Available = %d, want 3", f.Available)
	}
	f.Apply(event.Client{Kind: event.ClientBoltExhausted, Subject: bolt})
	if len(f.Bolts) != 0 {
		t.Errorf("Bolts = %d, want 0", len(f.Bolts))
	}
}

func TestField_SnapshotExtrapolates(t *testing.T) {
	self := entity.New()
	f := NewField(self)
	start := time.Unix(100, 0)
	f.clock = fixedClock(start)

	f.Apply(event.Client{Kind: event.ClientPlayerSpawned, Subject: self, Payload: event.PlayerView{ID: self, Spawned: true, Motion: event.Motion{X: 0.5, Y: 0.5, VX: 0.2, VY: -0.1}}})
	bolt := entity.New()
	f.Apply(event.Client{Kind: event.ClientBoltFired, Subject: bolt, Payload: event.BoltView{ID: bolt, Motion: event.Motion{X: 0, Y: 0, VX: 1}}})

	actors, bolts := f.Snapshot(start.Add(500 * time.Millisecond))
	if len(actors) != 1 || len(bolts) != 1 {
		t.Fatalf("snapshot = %d actors %d bolts, want 1 and 1", len(actors), len(bolts))
	}
	if math.Abs(actors[0].X-0.6) > 1e-9 || math.Abs(actors[0].Y-0.45) > 1e-9 {
		t.Errorf("actor at (%v, %v), want (0.6, 0.45)", actors[0].X, actors[0].Y)
	}
	if math.Abs(bolts[0].X-0.5) > 1e-9 {
		t.Errorf("bolt x = %v, want 0.5", bolts[0].X)
	}
	// 元の状態は変わらない
	if f.Actors[self].X != 0.5 {
		t.Errorf("field mutated by snapshot: x = %v", f.Actors[self].X)
	}
}
