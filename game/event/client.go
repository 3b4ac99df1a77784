package event

import (
	"fmt"

	"arena/game/entity"
)

// ClientKind はクライアント向けイベントの種別です。
type ClientKind uint8

const (
	ClientPlayerJoined ClientKind = iota + 1
	ClientPlayerLeft
	ClientPlayerMoved
	ClientPlayerSpawned
	ClientPlayerDestroyed
	ClientBoltFired
	ClientBoltDiverted
	ClientBoltExhausted
	ClientScoreUpdated

	// 以下は単一の受信者に送る指示です。
	ClientCurrentView
	ClientBoltList
	ClientBoltsAvailable
	ClientEffectStarted
	ClientEffectEnded
)

func (k ClientKind) String() string {
	switch k {
	case ClientPlayerJoined:
		return "player-joined"
	case ClientPlayerLeft:
		return "player-left"
	case ClientPlayerMoved:
		return "player-moved"
	case ClientPlayerSpawned:
		return "player-spawned"
	case ClientPlayerDestroyed:
		return "player-destroyed"
	case ClientBoltFired:
		return "bolt-fired"
	case ClientBoltDiverted:
		return "bolt-diverted"
	case ClientBoltExhausted:
		return "bolt-exhausted"
	case ClientScoreUpdated:
		return "score-updated"
	case ClientCurrentView:
		return "current-view"
	case ClientBoltList:
		return "bolt-list"
	case ClientBoltsAvailable:
		return "bolts-available"
	case ClientEffectStarted:
		return "effect-started"
	case ClientEffectEnded:
		return "effect-ended"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Client はクライアントへ送るイベントです。Recipient が Nil の場合はブロードキャストです。
type Client struct {
	Kind      ClientKind
	Recipient entity.ID
	Subject   entity.ID
	Payload   any
}

// Directed は単一の受信者宛てかを返します。
func (c Client) Directed() bool {
	return !c.Recipient.IsNil()
}

// PlayerView は参加時スナップショットに含めるプレイヤーの状態です。
type PlayerView struct {
	ID      entity.ID `msgpack:"id"`
	Name    string    `msgpack:"name"`
	Skin    int       `msgpack:"skin"`
	Spawned bool      `msgpack:"spawned"`
	Motion
	Angle float64 `msgpack:"angle"`
}

type BoltView struct {
	ID    entity.ID `msgpack:"id"`
	Owner entity.ID `msgpack:"owner"`
	Motion
	Start int64 `msgpack:"start"`
	TTL   int64 `msgpack:"ttl"`
}

// EffectView はブラックホールなど一時的な効果の状態です。
type EffectView struct {
	ID     entity.ID `msgpack:"id"`
	Type   string    `msgpack:"type"`
	X      float64   `msgpack:"x"`
	Y      float64   `msgpack:"y"`
	Radius float64   `msgpack:"radius"`
	Start  int64     `msgpack:"start"`
	End    int64     `msgpack:"end"`
}

// CurrentView は新たに参加した観測者へ送るワールドのスナップショットです。
type CurrentView struct {
	Players   []PlayerView `msgpack:"players"`
	Effects   []EffectView `msgpack:"effects"`
	Timestamp int64        `msgpack:"ts"`
}

type BoltList struct {
	Bolts     []BoltView `msgpack:"bolts"`
	Timestamp int64      `msgpack:"ts"`
}

type BoltsAvailable struct {
	Count int `msgpack:"count"`
}
