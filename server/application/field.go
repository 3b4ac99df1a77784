package application

import (
	"slices"
	"time"

	"arena/game/entity"
	"arena/game/event"
)

// Field はクライアントが受信したイベントから組み立てたアリーナの見え方です。ボットが使います。
type Field struct {
	Self      entity.ID
	Actors    map[entity.ID]*Actor
	Bolts     map[entity.ID]*Bolt
	Available int
	Ranking   []event.ScoreEntry

	clock func() time.Time
}

// Actor はフィールド上のプレイヤーを表す構造体です。
type Actor struct {
	ID      entity.ID
	Name    string
	Spawned bool
	X, Y    float64
	VX, VY  float64
	Angle   float64
	seenAt  time.Time
}

// Bolt はフィールド上の弾を表す構造体です。
type Bolt struct {
	ID     entity.ID
	Owner  entity.ID
	X, Y   float64
	VX, VY float64
	seenAt time.Time
}

func NewField(self entity.ID) *Field {
	return &Field{
		Self:   self,
		Actors: make(map[entity.ID]*Actor),
		Bolts:  make(map[entity.ID]*Bolt),
		clock:  time.Now,
	}
}

// Apply はクライアントイベントを 1 件反映します。
func (f *Field) Apply(c event.Client) {
	now := f.clock()
	switch p := c.Payload.(type) {
	case event.PlayerView:
		f.putActor(p, now)
	case event.PlayerMoved:
		a := f.actor(c.Subject)
		a.X, a.Y, a.VX, a.VY, a.Angle = p.X, p.Y, p.VX, p.VY, p.Angle
		a.seenAt = now
	case event.PlayerDestroyed:
		f.actor(c.Subject).Spawned = false
	case event.BoltView:
		f.Bolts[p.ID] = &Bolt{ID: p.ID, Owner: p.Owner, X: p.X, Y: p.Y, VX: p.VX, VY: p.VY, seenAt: now}
	case event.CurrentView:
		for _, v := range p.Players {
			f.putActor(v, now)
		}
	case event.BoltList:
		for _, v := range p.Bolts {
			f.Bolts[v.ID] = &Bolt{ID: v.ID, Owner: v.Owner, X: v.X, Y: v.Y, VX: v.VX, VY: v.VY, seenAt: now}
		}
	case event.BoltsAvailable:
		f.Available = p.Count
	case event.ScoreUpdated:
		f.Ranking = p.Entries
	case nil:
		switch c.Kind {
		case event.ClientPlayerLeft:
			delete(f.Actors, c.Subject)
		case event.ClientBoltExhausted:
			delete(f.Bolts, c.Subject)
		}
	}
}

func (f *Field) putActor(v event.PlayerView, now time.Time) {
	a := f.actor(v.ID)
	a.Name, a.Spawned = v.Name, v.Spawned
	a.X, a.Y, a.VX, a.VY, a.Angle = v.X, v.Y, v.VX, v.VY, v.Angle
	a.seenAt = now
}

func (f *Field) actor(id entity.ID) *Actor {
	a, ok := f.Actors[id]
	if !ok {
		a = &Actor{ID: id}
		f.Actors[id] = a
	}
	return a
}

// Me は自分のプレイヤーを返します。まだ参加していなければ nil です。
func (f *Field) Me() *Actor {
	return f.Actors[f.Self]
}

// Snapshot は now 時点に外挿したプレイヤーと弾を返します。プレイヤーは ID 順です。
func (f *Field) Snapshot(now time.Time) ([]Actor, []Bolt) {
	actors := make([]Actor, 0, len(f.Actors))
	for _, a := range f.Actors {
		c := *a
		c.X, c.Y = extrapolate(a.X, a.Y, a.VX, a.VY, a.seenAt, now)
		actors = append(actors, c)
	}
	slices.SortFunc(actors, func(a, b Actor) int {
		switch {
		case a.ID.Less(b.ID):
			return -1
		case b.ID.Less(a.ID):
			return 1
		}
		return 0
	})
	bolts := make([]Bolt, 0, len(f.Bolts))
	for _, b := range f.Bolts {
		c := *b
		c.X, c.Y = extrapolate(b.X, b.Y, b.VX, b.VY, b.seenAt, now)
		bolts = append(bolts, c)
	}
	return actors, bolts
}

// 速度は 1 秒あたりの移動量
func extrapolate(x, y, vx, vy float64, at, now time.Time) (float64, float64) {
	dt := now.Sub(at).Seconds()
	if dt <= 0 {
		return x, y
	}
	return x + vx*dt, y + vy*dt
}
