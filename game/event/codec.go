package event

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"arena/game/entity"
)

// ErrUnknownKind は未知のペイロード種別を復号しようとした場合のエラーです。
var ErrUnknownKind = errors.New("event: unknown payload kind")

type envelope struct {
	Topic   Topic              `msgpack:"t"`
	Key     entity.ID          `msgpack:"k"`
	Kind    Kind               `msgpack:"p"`
	Payload msgpack.RawMessage `msgpack:"d,omitempty"`
}

// Marshal はドメインイベントをレプリカ間転送用のバイト列へ符号化します。
func Marshal(ev Domain) ([]byte, error) {
	env := envelope{Topic: ev.Topic, Key: ev.Key, Kind: ev.Kind()}
	if ev.Payload != nil {
		raw, err := msgpack.Marshal(ev.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", ev.Kind(), err)
		}
		env.Payload = raw
	}
	return msgpack.Marshal(&env)
}

// Unmarshal は Marshal の逆変換です。
func Unmarshal(data []byte) (Domain, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return Domain{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if !env.Topic.Valid() {
		return Domain{}, fmt.Errorf("%w: %d", ErrUnknownTopic, env.Topic)
	}
	ev := Domain{Topic: env.Topic, Key: env.Key}
	if env.Kind == KindNone {
		return ev, nil
	}
	payload, err := decodePayload(env.Kind, env.Payload)
	if err != nil {
		return Domain{}, err
	}
	ev.Payload = payload
	return ev, nil
}

func decodePayload(kind Kind, raw []byte) (Payload, error) {
	switch kind {
	case KindPlayerJoined:
		return decodeAs[PlayerJoined](raw)
	case KindPlayerSpawned:
		return decodeAs[PlayerSpawned](raw)
	case KindPlayerMoved:
		return decodeAs[PlayerMoved](raw)
	case KindPlayerDestroyed:
		return decodeAs[PlayerDestroyed](raw)
	case KindBoltFired:
		p, err := decodeAs[BoltFired](raw)
		if err != nil {
			return nil, err
		}
		return NewBoltFired(p.Owner, p.Motion, p.Start, p.TTL)
	case KindBoltDiverted:
		p, err := decodeAs[BoltDiverted](raw)
		if err != nil {
			return nil, err
		}
		return NewBoltDiverted(p.Motion, p.Timestamp, p.TTL)
	case KindScoreIncreased:
		return decodeAs[ScoreIncreased](raw)
	case KindScoreUpdated:
		return decodeAs[ScoreUpdated](raw)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
}

func decodeAs[T Payload](raw []byte) (T, error) {
	var p T
	if err := msgpack.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("unmarshal %s payload: %w", p.Kind(), err)
	}
	return p, nil
}

type clientEnvelope struct {
	Kind    ClientKind `msgpack:"k"`
	Subject entity.ID  `msgpack:"s"`
	Payload any        `msgpack:"d,omitempty"`
}

// MarshalClient はクライアント向けイベントを本文のバイト列へ符号化します。受信者は含めません。
func MarshalClient(c Client) ([]byte, error) {
	b, err := msgpack.Marshal(&clientEnvelope{Kind: c.Kind, Subject: c.Subject, Payload: c.Payload})
	if err != nil {
		return nil, fmt.Errorf("marshal client %s: %w", c.Kind, err)
	}
	return b, nil
}

type rawClientEnvelope struct {
	Kind    ClientKind         `msgpack:"k"`
	Subject entity.ID          `msgpack:"s"`
	Payload msgpack.RawMessage `msgpack:"d,omitempty"`
}

// UnmarshalClient は MarshalClient の逆変換です。ボットやテストなどクライアント側で使います。
func UnmarshalClient(data []byte) (Client, error) {
	var env rawClientEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return Client{}, fmt.Errorf("unmarshal client envelope: %w", err)
	}
	c := Client{Kind: env.Kind, Subject: env.Subject}
	var err error
	switch env.Kind {
	case ClientPlayerLeft, ClientBoltExhausted:
		return c, nil
	case ClientPlayerJoined, ClientPlayerSpawned:
		c.Payload, err = decodeClient[PlayerView](env.Payload)
	case ClientPlayerMoved:
		c.Payload, err = decodeClient[PlayerMoved](env.Payload)
	case ClientPlayerDestroyed:
		c.Payload, err = decodeClient[PlayerDestroyed](env.Payload)
	case ClientBoltFired, ClientBoltDiverted:
		c.Payload, err = decodeClient[BoltView](env.Payload)
	case ClientScoreUpdated:
		c.Payload, err = decodeClient[ScoreUpdated](env.Payload)
	case ClientCurrentView:
		c.Payload, err = decodeClient[CurrentView](env.Payload)
	case ClientBoltList:
		c.Payload, err = decodeClient[BoltList](env.Payload)
	case ClientBoltsAvailable:
		c.Payload, err = decodeClient[BoltsAvailable](env.Payload)
	case ClientEffectStarted, ClientEffectEnded:
		c.Payload, err = decodeClient[EffectView](env.Payload)
	default:
		return Client{}, fmt.Errorf("%w: client %d", ErrUnknownKind, env.Kind)
	}
	if err != nil {
		return Client{}, err
	}
	return c, nil
}

func decodeClient[T any](raw []byte) (T, error) {
	var v T
	if err := msgpack.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("unmarshal client payload %T: %w", v, err)
	}
	return v, nil
}
