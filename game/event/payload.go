package event

import (
	"errors"
	"fmt"

	"arena/game/entity"
)

// Kind はペイロードの型を表します。0 はペイロードなし (tombstone) です。
type Kind uint8

const (
	KindNone Kind = iota
	KindPlayerJoined
	KindPlayerSpawned
	KindPlayerMoved
	KindPlayerDestroyed
	KindBoltFired
	KindBoltDiverted
	KindScoreIncreased
	KindScoreUpdated
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "tombstone"
	case KindPlayerJoined:
		return "player-joined"
	case KindPlayerSpawned:
		return "player-spawned"
	case KindPlayerMoved:
		return "player-moved"
	case KindPlayerDestroyed:
		return "player-destroyed"
	case KindBoltFired:
		return "bolt-fired"
	case KindBoltDiverted:
		return "bolt-diverted"
	case KindScoreIncreased:
		return "score-increased"
	case KindScoreUpdated:
		return "score-updated"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Payload はドメインイベントの型付きペイロードです。
// Time はコンシューマが「新しい場合のみ適用」を判定するためのミリ秒時刻です。
type Payload interface {
	Kind() Kind
	Time() int64
}

// ErrInvalidTTL は負の生存時間で弾を生成しようとした場合のエラーです。
var ErrInvalidTTL = errors.New("event: ttl must be >= 0")

// ValidationError は値の生成時に不変条件を満たさなかったことを表します。
type ValidationError struct {
	Field string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s=%v: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Motion は位置と速度のスナップショットです。
type Motion struct {
	X  float64 `msgpack:"x"`
	Y  float64 `msgpack:"y"`
	VX float64 `msgpack:"vx"`
	VY float64 `msgpack:"vy"`
}

type PlayerJoined struct {
	Name      string `msgpack:"name"`
	Platform  string `msgpack:"platform"`
	Skin      int    `msgpack:"skin"`
	Timestamp int64  `msgpack:"ts"`
}

func (PlayerJoined) Kind() Kind    { return KindPlayerJoined }
func (p PlayerJoined) Time() int64 { return p.Timestamp }

type PlayerSpawned struct {
	Motion
	Angle     float64 `msgpack:"angle"`
	Timestamp int64   `msgpack:"ts"`
}

func (PlayerSpawned) Kind() Kind    { return KindPlayerSpawned }
func (p PlayerSpawned) Time() int64 { return p.Timestamp }

type PlayerMoved struct {
	Motion
	Angle     float64 `msgpack:"angle"`
	Timestamp int64   `msgpack:"ts"`
}

func (PlayerMoved) Kind() Kind    { return KindPlayerMoved }
func (p PlayerMoved) Time() int64 { return p.Timestamp }

type PlayerDestroyed struct {
	By        entity.ID `msgpack:"by"`
	Timestamp int64     `msgpack:"ts"`
}

func (PlayerDestroyed) Kind() Kind    { return KindPlayerDestroyed }
func (p PlayerDestroyed) Time() int64 { return p.Timestamp }

// BoltFired は弾の発射です。Start は発射時刻、TTL は生存ミリ秒です。
type BoltFired struct {
	Owner entity.ID `msgpack:"owner"`
	Motion
	Start int64 `msgpack:"start"`
	TTL   int64 `msgpack:"ttl"`
}

// NewBoltFired は TTL を検証して BoltFired を生成します。
func NewBoltFired(owner entity.ID, motion Motion, start, ttl int64) (BoltFired, error) {
	if ttl < 0 {
		return BoltFired{}, &ValidationError{Field: "ttl", Value: ttl, Err: ErrInvalidTTL}
	}
	return BoltFired{Owner: owner, Motion: motion, Start: start, TTL: ttl}, nil
}

func (BoltFired) Kind() Kind    { return KindBoltFired }
func (p BoltFired) Time() int64 { return p.Start }

// BoltDiverted は飛行中の弾の速度が外力で変わったことを表します。
// TTL は Timestamp を新しい開始時刻とした残り生存ミリ秒です。
type BoltDiverted struct {
	Motion
	Timestamp int64 `msgpack:"ts"`
	TTL       int64 `msgpack:"ttl"`
}

func NewBoltDiverted(motion Motion, timestamp, ttl int64) (BoltDiverted, error) {
	if ttl < 0 {
		return BoltDiverted{}, &ValidationError{Field: "ttl", Value: ttl, Err: ErrInvalidTTL}
	}
	return BoltDiverted{Motion: motion, Timestamp: timestamp, TTL: ttl}, nil
}

func (BoltDiverted) Kind() Kind    { return KindBoltDiverted }
func (p BoltDiverted) Time() int64 { return p.Timestamp }

type ScoreIncreased struct {
	Delta     int       `msgpack:"delta"`
	Victim    entity.ID `msgpack:"victim"`
	Timestamp int64     `msgpack:"ts"`
}

func (ScoreIncreased) Kind() Kind    { return KindScoreIncreased }
func (p ScoreIncreased) Time() int64 { return p.Timestamp }

type ScoreEntry struct {
	Player entity.ID `msgpack:"player"`
	Name   string    `msgpack:"name"`
	Score  int       `msgpack:"score"`
}

// ScoreUpdated は降順に並んだ上位 N 件のランキングです。
type ScoreUpdated struct {
	Entries   []ScoreEntry `msgpack:"entries"`
	Timestamp int64        `msgpack:"ts"`
}

func (ScoreUpdated) Kind() Kind    { return KindScoreUpdated }
func (p ScoreUpdated) Time() int64 { return p.Timestamp }
