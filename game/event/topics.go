package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrTopicBound はコンシューマが既に紐付けられているトピックへの再登録です。
	ErrTopicBound = errors.New("event: topic already has a consumer")
	// ErrUnknownTopic は定義外のトピックです。
	ErrUnknownTopic = errors.New("event: unknown topic")
)

// Consumer はトピックのイベントを状態へ反映する唯一の関数です。
type Consumer func(ctx context.Context, ev Domain) error

// Topics は各トピックを 1 つのコンシューマへ結び付けます。
// ローカルの変更もレプリカから受信したイベントも、同じコンシューマを通してのみ状態に入ります。
type Topics struct {
	logger    *slog.Logger
	consumers [topicCount]Consumer
	outbound  *Slot[Dispatcher]

	// OnDispatch はイベントがローカルで発生した時に呼ばれます。計測用です。
	OnDispatch func(ev Domain)
}

func NewTopics(outbound *Slot[Dispatcher], logger *slog.Logger) *Topics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Topics{logger: logger, outbound: outbound}
}

func (t *Topics) Bind(topic Topic, consumer Consumer) error {
	if !topic.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownTopic, topic)
	}
	if t.consumers[topic] != nil {
		return fmt.Errorf("%w: %s", ErrTopicBound, topic)
	}
	t.consumers[topic] = consumer
	return nil
}

// Dispatch はローカルで発生したイベントをコンシューマへ適用し、外向きディスパッチャへ転送します。
// ディスパッチャ未登録やコンシューマの失敗はログに残して処理を続けます。
func (t *Topics) Dispatch(ctx context.Context, ev Domain) {
	if t.OnDispatch != nil {
		t.OnDispatch(ev)
	}
	t.consume(ctx, ev)

	if t.outbound == nil {
		return
	}
	d, ok := t.outbound.Load()
	if !ok {
		t.logger.DebugContext(ctx, "domain dispatcher not registered, event not forwarded", "event", ev.String())
		return
	}
	if err := d.Dispatch(ctx, ev); err != nil {
		t.logger.WarnContext(ctx, "domain dispatch failed", "event", ev.String(), "err", err)
	}
}

// Consume は他のレプリカから受信したイベントを適用します。転送はしません。
func (t *Topics) Consume(ctx context.Context, ev Domain) {
	t.consume(ctx, ev)
}

func (t *Topics) consume(ctx context.Context, ev Domain) {
	if !ev.Topic.Valid() {
		t.logger.WarnContext(ctx, "event on unknown topic dropped", "topic", ev.Topic)
		return
	}
	consumer := t.consumers[ev.Topic]
	if consumer == nil {
		t.logger.WarnContext(ctx, "no consumer bound for topic", "topic", ev.Topic)
		return
	}
	if err := invoke(ctx, consumer, ev); err != nil {
		t.logger.ErrorContext(ctx, "consumer failed", "topic", ev.Topic, "key", ev.Key, "kind", ev.Kind(), "err", err)
	}
}

// invoke はコンシューマの panic をエラーに変換し、他のトピックや tick へ波及させません。
func invoke(ctx context.Context, consumer Consumer, ev Domain) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("consumer panic: %v", r)
		}
	}()
	return consumer(ctx, ev)
}
