package domain

import (
	"context"
	"errors"
)

// RoomID はルームの識別子です。
type RoomID string

func (id RoomID) String() string { return string(id) }
func (id RoomID) IsEmpty() bool  { return id == "" }

// ErrNoRoom は割り当て可能なルームがない場合のエラーです。
var ErrNoRoom = errors.New("no room available")

// RoomManager はルーム未指定の参加に対してルームを割り当てます。
type RoomManager interface {
	GetRoom(ctx context.Context, sessionID SessionID) (RoomID, error)
}

// SimpleRoomManager は常に既定のルームを返します。
type SimpleRoomManager struct {
	defaultRoom RoomID
}

func NewSimpleRoomManager(defaultRoom RoomID) *SimpleRoomManager {
	return &SimpleRoomManager{defaultRoom: defaultRoom}
}

func (m *SimpleRoomManager) GetRoom(ctx context.Context, sessionID SessionID) (RoomID, error) {
	if m.defaultRoom.IsEmpty() {
		return "", ErrNoRoom
	}
	return m.defaultRoom, nil
}
