package application

import (
	"context"
	"fmt"
	"log/slog"

	"arena/game/event"
	"arena/internal/relay"
	"arena/server/domain"
	"arena/server/observability"
)

// Replicator はローカルで発生したドメインイベントを他のレプリカへ送る event.Dispatcher です。
// Dispatch はゲームキューの tick 中に呼ばれるため、符号化だけ行い publish は relay の goroutine に任せます。
type Replicator struct {
	pubsub    domain.PubSub
	topic     domain.Topic
	replicaID string
	relay     *relay.Relay[[]byte]
	metrics   *observability.ArenaCollector
	logger    *slog.Logger
}

func NewReplicator(pubsub domain.PubSub, roomID domain.RoomID, replicaID string, metrics *observability.ArenaCollector, logger *slog.Logger) (*Replicator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Replicator{
		pubsub:    pubsub,
		topic:     domain.ReplicaTopic(roomID),
		replicaID: replicaID,
		metrics:   metrics,
		logger:    logger,
	}
	rl, err := relay.New(relay.Config[[]byte]{
		Name:    "replicator:" + roomID.String(),
		Handler: r.publish,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	r.relay = rl
	return r, nil
}

func (r *Replicator) Start(ctx context.Context) error {
	return r.relay.Start(ctx)
}

// Stop は未送信のイベントを送り切るまで待ちます。
func (r *Replicator) Stop(ctx context.Context) error {
	return r.relay.Stop(ctx)
}

func (r *Replicator) Dispatch(ctx context.Context, ev event.Domain) error {
	data, err := event.Marshal(ev)
	if err != nil {
		r.metrics.Replica("sent", "encode_error")
		return fmt.Errorf("replicate %s: %w", ev, err)
	}
	if err := r.relay.TrySubmit(data); err != nil {
		r.metrics.Replica("sent", "dropped")
		return fmt.Errorf("replicate %s: %w", ev, err)
	}
	return nil
}

func (r *Replicator) publish(ctx context.Context, data []byte) error {
	if err := r.pubsub.Publish(ctx, r.topic, domain.Message{Origin: r.replicaID, Data: data}); err != nil {
		r.metrics.Replica("sent", "publish_error")
		return err
	}
	r.metrics.Replica("sent", "ok")
	return nil
}
