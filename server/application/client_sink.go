package application

import (
	"context"
	"errors"
	"fmt"

	"arena/game/event"
	"arena/server/domain"
)

//go:generate go tool mockgen -destination=./mocks/outlet_mock.go -package=mocks . Outlet

// Outlet はクライアントへの送信を受け付ける先です。domain.Room が満たします。
type Outlet interface {
	EnqueueBroadcast(ctx context.Context, data []byte) error
	EnqueueSendTo(ctx context.Context, sessionID domain.SessionID, data []byte) error
}

// ClientSink はクライアント向けイベントのバッチを符号化して Outlet に積む event.ClientDispatcher です。
type ClientSink struct {
	outlet Outlet
}

func NewClientSink(outlet Outlet) *ClientSink {
	return &ClientSink{outlet: outlet}
}

// DispatchClient は 1 件の失敗でバッチ全体を止めず、全ての失敗をまとめて返します。
func (s *ClientSink) DispatchClient(ctx context.Context, batch []event.Client) error {
	var errs []error
	for _, c := range batch {
		if err := s.dispatch(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *ClientSink) dispatch(ctx context.Context, c event.Client) error {
	body, err := event.MarshalClient(c)
	if err != nil {
		return err
	}
	recipient := domain.SessionID(c.Recipient)
	frame, err := domain.EncodeEventMessage(recipient, body)
	if err != nil {
		return fmt.Errorf("frame client %s: %w", c.Kind, err)
	}
	if c.Directed() {
		err = s.outlet.EnqueueSendTo(ctx, recipient, frame)
	} else {
		err = s.outlet.EnqueueBroadcast(ctx, frame)
	}
	if err != nil {
		return fmt.Errorf("enqueue client %s: %w", c.Kind, err)
	}
	return nil
}
