package game

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"arena/game/entity"
	"arena/game/event"
	"arena/game/spatial"
	"arena/game/vector"
)

// World はシミュレーションの全コンポーネントが共有する文脈です。
// 設定・インデックス・コレクションへの参照をまとめ、構築時に一度だけ組み立てます。
// ゲームキューの単一 goroutine からのみ操作されます。
type World struct {
	Config Config
	Logger *slog.Logger

	Topics *event.Topics
	Outbox *Outbox

	Barriers *Barriers
	Players  *Players
	Bolts    *Bolts
	Scores   *ScoreBoard
	Physics  *PhysicsQueue
	Views    *Views

	// Objects は物理効果の検索対象 (出現中の船と飛行中の弾) です。
	Objects spatial.Index[GameObject]

	// Now は最後に進めた tick の時刻です。
	Now int64
	// Clock はコマンドで発生するイベントのミリ秒時刻です。
	Clock func() int64
	// Rand は出現位置やスキンなど複製不要な乱数に使います。
	Rand *rand.Rand
}

func wallClock() int64 {
	return time.Now().UnixMilli()
}

// randomPoint は境界から margin 以上離れたワールド内の点を返します。
func randomPoint(rng *rand.Rand, margin float64) vector.Vector2 {
	span := 1 - 2*margin
	return vector.FromXY(margin+rng.Float64()*span, margin+rng.Float64()*span)
}

// sendSnapshot は参加したばかりの観測者へ現在のワールドを送ります。
func (w *World) sendSnapshot(p *Player) {
	w.Outbox.Send(p.id, event.ClientCurrentView, p.id, event.CurrentView{
		Players:   w.Players.views(),
		Effects:   w.Views.Effects(),
		Timestamp: w.Now,
	})
	w.Outbox.Send(p.id, event.ClientBoltList, p.id, event.BoltList{
		Bolts:     w.Bolts.views(),
		Timestamp: w.Now,
	})
	p.sendBoltsAvailable()
	if len(w.Scores.ranking) > 0 {
		w.Outbox.Send(p.id, event.ClientScoreUpdated, entity.Nil, w.Scores.current())
	}
}
