package event

import "arena/game/entity"

// Graveyard は tombstone を受けたキーを一定時間記憶します。
// 削除後に遅れて届いた古いイベントで集約が復活しないようにするためのものです。
type Graveyard struct {
	ttl    int64
	buried map[entity.ID]int64
}

// NewGraveyard は ttl ミリ秒だけ削除を記憶する Graveyard を生成します。
func NewGraveyard(ttl int64) *Graveyard {
	return &Graveyard{ttl: ttl, buried: make(map[entity.ID]int64)}
}

func (g *Graveyard) Bury(id entity.ID, at int64) {
	if prev, ok := g.buried[id]; ok && prev >= at {
		return
	}
	g.buried[id] = at
}

func (g *Graveyard) Buried(id entity.ID) bool {
	_, ok := g.buried[id]
	return ok
}

// Sweep は now 時点で ttl を過ぎた記録を破棄します。
func (g *Graveyard) Sweep(now int64) {
	for id, at := range g.buried {
		if now-at > g.ttl {
			delete(g.buried, id)
		}
	}
}

func (g *Graveyard) Len() int {
	return len(g.buried)
}
