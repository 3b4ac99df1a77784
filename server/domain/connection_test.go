package domain_test

import (
	"context"
	"testing"
	"time"

	domain "arena/server/domain"
	"arena/server/domain/mocks"

	"go.uber.org/mock/gomock"
)

func TestCloseCode(t *testing.T) {
	tests := []struct {
		reason domain.IdleReason
		want   int32
	}{
		{domain.IdleNone, domain.StatusNormalClosure},
		{domain.IdleRead, domain.StatusGoingAway},
		{domain.IdleRead | domain.IdleWrite, domain.StatusGoingAway},
		{domain.IdlePong, domain.StatusPolicyViolation},
		{domain.IdleBroken, domain.StatusInternalError},
		{domain.IdleBroken | domain.IdlePong, domain.StatusInternalError},
	}
	for _, tt := range tests {
		if got := domain.CloseCode(tt.reason); got != tt.want {
			t.Errorf("CloseCode(%v) = %d, want %d", tt.reason, got, tt.want)
		}
	}
}

func TestConnection_WriteAppliesTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)
	tr.EXPECT().Write(gomock.Any(), []byte("x")).DoAndReturn(func(ctx context.Context, data []byte) error {
		deadline, ok := ctx.Deadline()
		if !ok {
			t.Errorf("write context has no deadline")
		} else if time.Until(deadline) > time.Second {
			t.Errorf("deadline in %v, want <= 1s", time.Until(deadline))
		}
		return nil
	})

	c := domain.NewConnection(domain.NewSessionID(), tr, domain.WithWriteTimeout(time.Second))
	if err := c.Write(context.Background(), []byte("x")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

func TestConnection_WriteWithoutTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)
	tr.EXPECT().Write(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, data []byte) error {
		if _, ok := ctx.Deadline(); ok {
			t.Errorf("write context has a deadline, want none")
		}
		return nil
	})

	c := domain.NewConnection(domain.NewSessionID(), tr)
	if err := c.Write(context.Background(), nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

func TestConnection_CloseSendsReason(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)
	tr.EXPECT().Close(domain.StatusGoingAway, "read|write").Return(nil)

	domain.NewConnection(domain.NewSessionID(), tr).Close(domain.IdleRead | domain.IdleWrite)
}
