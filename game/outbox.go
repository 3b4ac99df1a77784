package game

import (
	"context"
	"log/slog"

	"arena/game/entity"
	"arena/game/event"
)

// Outbox は tick 中に発生したクライアント向けイベントを溜め、tick の最後にまとめて送ります。
type Outbox struct {
	logger *slog.Logger
	slot   *event.Slot[event.ClientDispatcher]
	batch  []event.Client

	// OnFlush は送出したバッチを受け取ります。計測用です。
	OnFlush func(batch []event.Client)
}

func NewOutbox(slot *event.Slot[event.ClientDispatcher], logger *slog.Logger) *Outbox {
	return &Outbox{logger: logger, slot: slot}
}

func (o *Outbox) Broadcast(kind event.ClientKind, subject entity.ID, payload any) {
	o.batch = append(o.batch, event.Client{Kind: kind, Subject: subject, Payload: payload})
}

func (o *Outbox) Send(recipient entity.ID, kind event.ClientKind, subject entity.ID, payload any) {
	o.batch = append(o.batch, event.Client{Kind: kind, Recipient: recipient, Subject: subject, Payload: payload})
}

func (o *Outbox) Len() int {
	return len(o.batch)
}

// Flush は溜まったイベントを ClientDispatcher へ渡します。未登録の場合は破棄します。
func (o *Outbox) Flush(ctx context.Context) {
	if len(o.batch) == 0 {
		return
	}
	batch := o.batch
	o.batch = nil

	if o.OnFlush != nil {
		o.OnFlush(batch)
	}
	d, ok := o.slot.Load()
	if !ok {
		o.logger.DebugContext(ctx, "client dispatcher not registered, batch dropped", "size", len(batch))
		return
	}
	if err := d.DispatchClient(ctx, batch); err != nil {
		o.logger.WarnContext(ctx, "client dispatch failed", "size", len(batch), "err", err)
	}
}
