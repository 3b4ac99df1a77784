package application_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"arena/game/entity"
	"arena/game/event"
	"arena/server/application"
	"arena/server/application/mocks"
	"arena/server/domain"
)

func decodeFrame(t *testing.T, data []byte) event.Client {
	t.Helper()
	frame, err := domain.ParseFrame(data)
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}
	if frame.Payload.DataType != domain.DataTypeEvent {
		t.Fatalf("DataType = %d, want %d", frame.Payload.DataType, domain.DataTypeEvent)
	}
	c, err := event.UnmarshalClient(frame.Body)
	if err != nil {
		t.Fatalf("UnmarshalClient failed: %v", err)
	}
	return c
}

func TestClientSink_RoutesDirectedAndBroadcast(t *testing.T) {
	ctrl := gomock.NewController(t)
	outlet := mocks.NewMockOutlet(ctrl)
	sink := application.NewClientSink(outlet)

	player := entity.New()
	recipient := domain.NewSessionID()

	gomock.InOrder(
		outlet.EXPECT().EnqueueBroadcast(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, data []byte) error {
			if c := decodeFrame(t, data); c.Kind != event.ClientPlayerLeft || c.Subject != player {
				t.Errorf("broadcast = %+v, want player left of %v", c, player)
			}
			return nil
		}),
		outlet.EXPECT().EnqueueSendTo(gomock.Any(), recipient, gomock.Any()).DoAndReturn(func(_ context.Context, _ domain.SessionID, data []byte) error {
			c := decodeFrame(t, data)
			if c.Kind != event.ClientBoltsAvailable {
				t.Errorf("Kind = %v, want %v", c.Kind, event.ClientBoltsAvailable)
			}
			if got, ok := c.Payload.(event.BoltsAvailable); !ok || got.Count != 2 {
				t.Errorf("Payload = %+v, want 2 available", c.Payload)
			}
			return nil
		}),
	)

	err := sink.DispatchClient(context.Background(), []event.Client{
		{Kind: event.ClientPlayerLeft, Subject: player},
		{Kind: event.ClientBoltsAvailable, Recipient: recipient.Entity(), Subject: recipient.Entity(), Payload: event.BoltsAvailable{Count: 2}},
	})
	if err != nil {
		t.Fatalf("DispatchClient failed: %v", err)
	}
}

func TestClientSink_ContinuesAfterFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	outlet := mocks.NewMockOutlet(ctrl)
	sink := application.NewClientSink(outlet)

	outlet.EXPECT().EnqueueBroadcast(gomock.Any(), gomock.Any()).Return(domain.ErrRoomBusy).Times(1)
	outlet.EXPECT().EnqueueBroadcast(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	err := sink.DispatchClient(context.Background(), []event.Client{
		{Kind: event.ClientPlayerLeft, Subject: entity.New()},
		{Kind: event.ClientBoltExhausted, Subject: entity.New()},
	})
	if !errors.Is(err, domain.ErrRoomBusy) {
		t.Errorf("err = %v, want ErrRoomBusy", err)
	}
}
