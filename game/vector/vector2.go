package vector

import (
	"fmt"
	"math"
	"sync"
)

// Epsilon は浮動小数点比較に使う許容誤差です。
const Epsilon = 1e-9

// Vector2 は不変の 2 次元ベクトルです。
// 極座標 (angle, magnitude) と直交座標 (x, y) のどちらからでも生成でき、
// もう一方の表現は最初に参照された時に一度だけ計算されキャッシュされます。
// ゼロ値は Zero と等価です。
type Vector2 struct {
	r *repr
}

type repr struct {
	once  sync.Once
	polar bool

	x, y             float64
	angle, magnitude float64
}

// Zero はすべての変更操作を無視する凍結されたゼロベクトルです。
var Zero = Vector2{}

// FromXY は直交座標からベクトルを生成します。
func FromXY(x, y float64) Vector2 {
	if x == 0 && y == 0 {
		return Zero
	}
	return Vector2{r: &repr{x: x, y: y}}
}

// FromPolar は角度 (ラジアン) と大きさからベクトルを生成します。
// 負の大きさは角度を反転して正の大きさに正規化されます。
func FromPolar(angle, magnitude float64) Vector2 {
	if magnitude == 0 {
		return Zero
	}
	if magnitude < 0 {
		magnitude = -magnitude
		angle += math.Pi
	}
	return Vector2{r: &repr{polar: true, angle: NormalizeAngle(angle), magnitude: magnitude}}
}

func (r *repr) resolve() {
	r.once.Do(func() {
		if r.polar {
			r.x = r.magnitude * math.Cos(r.angle)
			r.y = r.magnitude * math.Sin(r.angle)
			return
		}
		r.angle = math.Atan2(r.y, r.x)
		r.magnitude = math.Hypot(r.x, r.y)
	})
}

func (v Vector2) X() float64 {
	if v.r == nil {
		return 0
	}
	if v.r.polar {
		v.r.resolve()
	}
	return v.r.x
}

func (v Vector2) Y() float64 {
	if v.r == nil {
		return 0
	}
	if v.r.polar {
		v.r.resolve()
	}
	return v.r.y
}

// Angle は (-π, π] に正規化された角度を返します。
func (v Vector2) Angle() float64 {
	if v.r == nil {
		return 0
	}
	if !v.r.polar {
		v.r.resolve()
	}
	return v.r.angle
}

func (v Vector2) Magnitude() float64 {
	if v.r == nil {
		return 0
	}
	if !v.r.polar {
		v.r.resolve()
	}
	return v.r.magnitude
}

func (v Vector2) IsZero() bool {
	return v.r == nil || v.Magnitude() < Epsilon
}

func (v Vector2) Add(o Vector2) Vector2 {
	if o.r == nil {
		return v
	}
	if v.r == nil {
		return o
	}
	return FromXY(v.X()+o.X(), v.Y()+o.Y())
}

func (v Vector2) Sub(o Vector2) Vector2 {
	if o.r == nil {
		return v
	}
	return FromXY(v.X()-o.X(), v.Y()-o.Y())
}

// Scale は大きさを k 倍したベクトルを返します。
func (v Vector2) Scale(k float64) Vector2 {
	if v.r == nil {
		return Zero
	}
	if v.r.polar {
		return FromPolar(v.r.angle, v.r.magnitude*k)
	}
	return FromXY(v.r.x*k, v.r.y*k)
}

// Rotate は theta ラジアン回転したベクトルを返します。
func (v Vector2) Rotate(theta float64) Vector2 {
	if v.r == nil {
		return Zero
	}
	return FromPolar(v.Angle()+theta, v.Magnitude())
}

// WithMagnitude は向きを保ったまま大きさを m にしたベクトルを返します。
func (v Vector2) WithMagnitude(m float64) Vector2 {
	if v.r == nil {
		return Zero
	}
	return FromPolar(v.Angle(), m)
}

// WithAngle は大きさを保ったまま向きを angle にしたベクトルを返します。
func (v Vector2) WithAngle(angle float64) Vector2 {
	if v.r == nil {
		return Zero
	}
	return FromPolar(angle, v.Magnitude())
}

// ClampMagnitude は大きさが limit を超える場合に limit へ切り詰めます。limit <= 0 は無制限です。
func (v Vector2) ClampMagnitude(limit float64) Vector2 {
	if limit <= 0 || v.Magnitude() <= limit {
		return v
	}
	return v.WithMagnitude(limit)
}

func (v Vector2) Normalize() Vector2 {
	return v.WithMagnitude(1)
}

func (v Vector2) Dot(o Vector2) float64 {
	return v.X()*o.X() + v.Y()*o.Y()
}

// Cross は 2 次元外積 (z 成分) を返します。
func (v Vector2) Cross(o Vector2) float64 {
	return v.X()*o.Y() - v.Y()*o.X()
}

// Project は onto 方向への射影成分を返します。
func (v Vector2) Project(onto Vector2) Vector2 {
	if onto.IsZero() {
		return Zero
	}
	unit := onto.Normalize()
	return unit.Scale(v.Dot(unit))
}

// Reject は onto に直交する成分を返します。
func (v Vector2) Reject(onto Vector2) Vector2 {
	return v.Sub(v.Project(onto))
}

// Reflect は単位法線 normal に対して反射したベクトルを返します。
func (v Vector2) Reflect(normal Vector2) Vector2 {
	return v.Sub(normal.Scale(2 * v.Dot(normal)))
}

func (v Vector2) DistanceTo(o Vector2) float64 {
	return math.Hypot(v.X()-o.X(), v.Y()-o.Y())
}

// Equal は各成分が tolerance 以内で一致するかを返します。
func (v Vector2) Equal(o Vector2, tolerance float64) bool {
	return math.Abs(v.X()-o.X()) <= tolerance && math.Abs(v.Y()-o.Y()) <= tolerance
}

func (v Vector2) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", v.X(), v.Y())
}

// NormalizeAngle は角度を (-π, π] に正規化します。
func NormalizeAngle(a float64) float64 {
	if a > -math.Pi && a <= math.Pi {
		return a
	}
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// AngleDelta は from から to への最短の符号付き角度差を返します。
func AngleDelta(from, to float64) float64 {
	return NormalizeAngle(to - from)
}
