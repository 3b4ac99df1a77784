package event

import "fmt"

// Topic はドメインイベントストリームの論理的な区分です。
// 各トピックはちょうど 1 つのコレクションのコンシューマが所有します。
type Topic uint8

const (
	TopicJoin Topic = iota
	TopicPlayerAction
	TopicBoltLifecycle
	TopicBoltAction
	TopicScoreControl
	TopicScoreUpdate

	topicCount
)

// AllTopics は全トピックを定義順に並べたものです。
var AllTopics = []Topic{
	TopicJoin,
	TopicPlayerAction,
	TopicBoltLifecycle,
	TopicBoltAction,
	TopicScoreControl,
	TopicScoreUpdate,
}

func (t Topic) Valid() bool {
	return t < topicCount
}

func (t Topic) String() string {
	switch t {
	case TopicJoin:
		return "join"
	case TopicPlayerAction:
		return "player-action"
	case TopicBoltLifecycle:
		return "bolt-lifecycle"
	case TopicBoltAction:
		return "bolt-action"
	case TopicScoreControl:
		return "score-control"
	case TopicScoreUpdate:
		return "score-update"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}
