package game

import (
	"context"
	"fmt"
	"slices"

	"arena/game/entity"
	"arena/game/event"
)

// scoreEntry は得点と、倒した相手ごとの最後に反映した加点時刻です。
// 同じ相手に対する同時刻以前の加点は重複配送として捨てます。
type scoreEntry struct {
	score int
	last  map[entity.ID]int64
}

// ScoreBoard は得点イベントから導出されるランキングです。
// 上位 N 件だけを ScoreUpdated として発行し、それ以外は含めません。
type ScoreBoard struct {
	world     *World
	scores    map[entity.ID]*scoreEntry
	graveyard *event.Graveyard
	dirty     bool

	ranking   []event.ScoreEntry
	rankingAt int64
}

func NewScoreBoard(w *World) *ScoreBoard {
	return &ScoreBoard{
		world:     w,
		scores:    make(map[entity.ID]*scoreEntry),
		graveyard: event.NewGraveyard(w.Config.World.GraveyardTTL),
	}
}

func (s *ScoreBoard) Score(id entity.ID) int {
	if e, ok := s.scores[id]; ok {
		return e.score
	}
	return 0
}

// Ranking は最後に反映された ScoreUpdated の内容です。
func (s *ScoreBoard) Ranking() []event.ScoreEntry {
	return s.ranking
}

func (s *ScoreBoard) consumeControl(ctx context.Context, ev event.Domain) error {
	if ev.IsTombstone() {
		s.graveyard.Bury(ev.Key, s.world.Now)
		if _, ok := s.scores[ev.Key]; ok {
			delete(s.scores, ev.Key)
			s.dirty = true
		}
		return nil
	}
	inc, ok := ev.Payload.(event.ScoreIncreased)
	if !ok {
		return fmt.Errorf("%w: %s on %s", event.ErrUnknownKind, ev.Kind(), ev.Topic)
	}
	if s.graveyard.Buried(ev.Key) {
		return nil
	}
	e, ok := s.scores[ev.Key]
	if !ok {
		e = &scoreEntry{last: make(map[entity.ID]int64)}
		s.scores[ev.Key] = e
	}
	if last, seen := e.last[inc.Victim]; seen && inc.Timestamp <= last {
		return nil
	}
	e.score += inc.Delta
	e.last[inc.Victim] = inc.Timestamp
	s.dirty = true
	return nil
}

func (s *ScoreBoard) consumeUpdate(ctx context.Context, ev event.Domain) error {
	if ev.IsTombstone() {
		return nil
	}
	update, ok := ev.Payload.(event.ScoreUpdated)
	if !ok {
		return fmt.Errorf("%w: %s on %s", event.ErrUnknownKind, ev.Kind(), ev.Topic)
	}
	if update.Timestamp <= s.rankingAt {
		return nil
	}
	s.ranking, s.rankingAt = update.Entries, update.Timestamp
	s.world.Outbox.Broadcast(event.ClientScoreUpdated, entity.Nil, update)
	return nil
}

// fixedUpdate は得点が変化していればランキングを発行します。
func (s *ScoreBoard) fixedUpdate(ctx context.Context, timestamp int64) {
	s.graveyard.Sweep(timestamp)
	if !s.dirty || timestamp <= s.rankingAt {
		return
	}
	s.dirty = false
	s.world.Topics.Dispatch(ctx, event.Domain{
		Topic:   event.TopicScoreUpdate,
		Key:     entity.Nil,
		Payload: event.ScoreUpdated{Entries: s.top(), Timestamp: timestamp},
	})
}

// top は得点の降順、同点は ID 順に上位 N 件を返します。
func (s *ScoreBoard) top() []event.ScoreEntry {
	entries := make([]event.ScoreEntry, 0, len(s.scores))
	for id, e := range s.scores {
		entry := event.ScoreEntry{Player: id, Score: e.score}
		if p, ok := s.world.Players.Get(id); ok {
			entry.Name = p.name
		}
		entries = append(entries, entry)
	}
	slices.SortFunc(entries, func(a, b event.ScoreEntry) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		if a.Player.Less(b.Player) {
			return -1
		}
		if b.Player.Less(a.Player) {
			return 1
		}
		return 0
	})
	if n := s.world.Config.Score.TopN; len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func (s *ScoreBoard) current() event.ScoreUpdated {
	return event.ScoreUpdated{Entries: s.ranking, Timestamp: s.rankingAt}
}
