package adapterwebsocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/coder/websocket"

	"arena/server/domain"
)

// ReadLimit はクライアントから受け付ける 1 メッセージの最大バイト数です。
const ReadLimit = 4096

// maxCloseReason は close フレームに載せられる理由文字列の上限です。
const maxCloseReason = 123

// ErrTextMessage はバイナリフレーム以外を受け取ったときのエラーです。
var ErrTextMessage = errors.New("text message on binary protocol")

type wsTransport struct {
	conn *websocket.Conn
}

func NewTransportFrom(conn *websocket.Conn) domain.Transport {
	conn.SetReadLimit(ReadLimit)
	return &wsTransport{conn: conn}
}

func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	typ, data, err := t.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	if typ != websocket.MessageBinary {
		return nil, fmt.Errorf("%w: %d bytes", ErrTextMessage, len(data))
	}
	return data, nil
}

func (t *wsTransport) Write(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, websocket.MessageBinary, data)
}

func (t *wsTransport) Close(code int32, reason string) error {
	if len(reason) > maxCloseReason {
		reason = reason[:maxCloseReason]
	}
	return t.conn.Close(websocket.StatusCode(code), reason)
}
