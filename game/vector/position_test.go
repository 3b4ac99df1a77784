package vector

import (
	"errors"
	"math"
	"testing"
)

func TestConfiguration_RejectsPositiveDamping(t *testing.T) {
	_, err := NewPositionVector(Configuration{Damping: 0.5})
	if !errors.Is(err, ErrInvalidDamping) {
		t.Fatalf("expected ErrInvalidDamping, got %v", err)
	}
}

func TestUpdate_ElapsedTimeTimesVelocity(t *testing.T) {
	p := MustPositionVector(Configuration{})
	p.Reset(FromXY(0.1, 0.1), FromXY(0.2, 0), 1000)

	if !p.Update(1500) {
		t.Fatal("Update should report a change")
	}
	if !p.Current().Equal(FromXY(0.2, 0.1), 1e-12) {
		t.Errorf("Current = %v, want (0.2, 0.1)", p.Current())
	}

	// tick を細かく刻んでも同じ位置になる
	q := MustPositionVector(Configuration{})
	q.Reset(FromXY(0.1, 0.1), FromXY(0.2, 0), 1000)
	for ts := int64(1010); ts <= 1500; ts += 10 {
		q.Update(ts)
	}
	if !q.Current().Equal(p.Current(), 1e-9) {
		t.Errorf("stepped Current = %v, want %v", q.Current(), p.Current())
	}
}

func TestUpdate_NonIncreasingTimestampIsNoop(t *testing.T) {
	p := MustPositionVector(Configuration{})
	p.Reset(FromXY(0.5, 0.5), FromXY(0.1, 0), 1000)
	p.Update(2000)
	before := p.Current()

	if p.Update(2000) {
		t.Error("Update with equal timestamp should be a no-op")
	}
	if p.Update(1500) {
		t.Error("Update with older timestamp should be a no-op")
	}
	if !p.Current().Equal(before, 0) {
		t.Errorf("Current changed to %v", p.Current())
	}
	if p.Timestamp() != 2000 || p.PreviousTimestamp() != 1000 {
		t.Errorf("timestamps = (%d, %d), want (1000, 2000)", p.PreviousTimestamp(), p.Timestamp())
	}
}

func TestUpdate_ScheduledMoveAppliedOnceAndClamped(t *testing.T) {
	p := MustPositionVector(Configuration{MaxMagnitude: 0.5})
	p.Reset(FromXY(0.5, 0.5), Zero, 1000)

	p.ScheduleMove(FromXY(0.3, 0))
	p.ScheduleMove(FromXY(0.4, 0))
	p.Update(1100)

	if got := p.Velocity().Magnitude(); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("velocity magnitude = %v, want 0.5", got)
	}
	if !p.Scheduled().IsZero() {
		t.Errorf("Scheduled = %v, want zero", p.Scheduled())
	}

	p.Update(1200)
	if got := p.Velocity().Magnitude(); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("scheduled move applied twice: magnitude = %v", got)
	}
}

func TestUpdate_ExponentialDamping(t *testing.T) {
	p := MustPositionVector(Configuration{Damping: -1})
	p.Reset(Zero, FromXY(1, 0), 1000)

	p.Update(2000)
	if got, want := p.Velocity().Magnitude(), math.Exp(-1); math.Abs(got-want) > 1e-12 {
		t.Errorf("speed = %v, want %v", got, want)
	}
}

func TestUpdate_DampingSnapsToZero(t *testing.T) {
	p := MustPositionVector(Configuration{Damping: -10, MinMove: 0.01})
	p.Reset(FromXY(0.5, 0.5), FromXY(0.02, 0), 1000)

	p.Update(2000)
	if !p.Velocity().IsZero() {
		t.Errorf("velocity = %v, want zero", p.Velocity())
	}
}

func TestUpdate_BounceFlipsVelocityAndFolds(t *testing.T) {
	p := MustPositionVector(Configuration{Boundary: BoundaryBounce})
	p.Reset(FromXY(0.95, 0.5), FromXY(0.2, 0), 1000)

	p.Update(1500)

	if p.Velocity().X() >= 0 {
		t.Errorf("velocity x = %v, want negative", p.Velocity().X())
	}
	if x := p.Current().X(); math.Abs(x-0.95) > 1e-12 {
		t.Errorf("x = %v, want 0.95", x)
	}
	if p.OutOfBounds() {
		t.Error("position should be folded back within bounds")
	}
}

func TestUpdate_ClipClamps(t *testing.T) {
	p := MustPositionVector(Configuration{Boundary: BoundaryClip})
	p.Reset(FromXY(0.1, 0.9), FromXY(-1, 1), 1000)

	p.Update(2000)
	if !p.Current().Equal(FromXY(0, 1), 0) {
		t.Errorf("Current = %v, want (0, 1)", p.Current())
	}
}

func TestUpdate_IgnoreLeavesBounds(t *testing.T) {
	p := MustPositionVector(Configuration{Boundary: BoundaryIgnore})
	p.Reset(FromXY(0.9, 0.5), FromXY(1, 0), 1000)

	p.Update(1500)
	if !p.OutOfBounds() {
		t.Errorf("Current = %v, want out of bounds", p.Current())
	}
}

func TestTeleport_KeepsVelocity(t *testing.T) {
	p := MustPositionVector(Configuration{})
	p.Reset(FromXY(0.1, 0.1), FromXY(0.3, 0), 1000)

	p.Teleport(FromXY(0.8, 0.8))
	if !p.Velocity().Equal(FromXY(0.3, 0), 0) {
		t.Errorf("Velocity = %v, want (0.3, 0)", p.Velocity())
	}
	if !p.Previous().Equal(FromXY(0.8, 0.8), 0) || !p.Current().Equal(FromXY(0.8, 0.8), 0) {
		t.Errorf("positions = %v -> %v, want both (0.8, 0.8)", p.Previous(), p.Current())
	}
}

func TestPositionAt_Extrapolates(t *testing.T) {
	p := MustPositionVector(Configuration{})
	p.Reset(FromXY(0.2, 0.2), FromXY(0.1, 0), 1000)
	p.Update(2000)

	if got := p.PositionAt(3000); !got.Equal(FromXY(0.4, 0.2), 1e-12) {
		t.Errorf("PositionAt(3000) = %v, want (0.4, 0.2)", got)
	}
	if got := p.PositionAt(1500); !got.Equal(FromXY(0.25, 0.2), 1e-12) {
		t.Errorf("PositionAt(1500) = %v, want (0.25, 0.2)", got)
	}
}
