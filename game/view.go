package game

import (
	"slices"

	"arena/game/entity"
	"arena/game/event"
)

// Views は新たに参加した観測者へ渡すスナップショットに効果が差し込む表示の登録先です。
type Views struct {
	order  []entity.ID
	render map[entity.ID]func() event.EffectView
}

func NewViews() *Views {
	return &Views{render: make(map[entity.ID]func() event.EffectView)}
}

func (v *Views) Register(id entity.ID, render func() event.EffectView) {
	if _, ok := v.render[id]; !ok {
		v.order = append(v.order, id)
	}
	v.render[id] = render
}

func (v *Views) Unregister(id entity.ID) {
	if _, ok := v.render[id]; !ok {
		return
	}
	delete(v.render, id)
	v.order = slices.DeleteFunc(v.order, func(x entity.ID) bool { return x == id })
}

func (v *Views) Len() int {
	return len(v.order)
}

// Effects は登録順に現在の表示を返します。
func (v *Views) Effects() []event.EffectView {
	out := make([]event.EffectView, 0, len(v.order))
	for _, id := range v.order {
		out = append(out, v.render[id]())
	}
	return out
}
