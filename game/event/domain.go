package event

import (
	"fmt"

	"arena/game/entity"
)

// Domain はトピック・キー・ペイロードからなる不変のドメインイベントです。
// Payload が nil のイベントは tombstone で、そのトピックのキーの集約の削除を表します。
type Domain struct {
	Topic   Topic
	Key     entity.ID
	Payload Payload
}

// NewTombstone は削除を表すイベントを生成します。
func NewTombstone(topic Topic, key entity.ID) Domain {
	return Domain{Topic: topic, Key: key}
}

func (e Domain) IsTombstone() bool {
	return e.Payload == nil
}

// Kind はペイロードの型を返します。tombstone の場合 KindNone です。
func (e Domain) Kind() Kind {
	if e.Payload == nil {
		return KindNone
	}
	return e.Payload.Kind()
}

func (e Domain) String() string {
	return fmt.Sprintf("%s/%s/%s", e.Topic, e.Key, e.Kind())
}
