package game

import (
	"context"

	"arena/game/entity"
	"arena/game/vector"
)

// GameObject は物理効果の対象になるエンティティの能力です。
type GameObject interface {
	ID() entity.ID
	// Move は次の tick で速度に加わる衝撃を与えます。
	Move(ctx context.Context, impulse vector.Vector2)
	// HazardDestroy は攻撃者なしで破壊します。
	HazardDestroy(ctx context.Context, timestamp int64)
	Position() *vector.PositionVector
	Teleport(ctx context.Context, pos vector.Vector2, timestamp int64)
	SupportsDamping() bool
}

// Damped は tick 単位で減衰係数を上書きできる GameObject です。
// SupportsDamping が true の GameObject だけが実装します。
type Damped interface {
	OverrideDamping(c float64)
}
