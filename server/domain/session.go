package domain

import (
	"sync/atomic"
	"time"

	"arena/game/entity"
)

// SessionID はセッションの識別子です。ゲームに参加した場合はそのままプレイヤー ID になります。
type SessionID entity.ID

func NewSessionID() SessionID {
	return SessionID(entity.New())
}

// SessionIDFromBytes はヘッダーに載る 16 バイトからセッション ID を復元します。
func SessionIDFromBytes(b [16]byte) SessionID {
	return SessionID(b)
}

func (id SessionID) Bytes() [16]byte   { return entity.ID(id).Bytes() }
func (id SessionID) String() string    { return entity.ID(id).String() }
func (id SessionID) Entity() entity.ID { return entity.ID(id) }
func (id SessionID) IsEmpty() bool     { return entity.ID(id).IsNil() }

// Session は1接続の論理的な接続状態を表す構造体です。
type Session struct {
	id SessionID

	// activity
	lastRead  atomic.Int64
	lastWrite atomic.Int64
	lastPong  atomic.Int64

	// lifecycle
	closed      atomic.Bool
	closeReason atomic.Uint32
}

func NewSession() *Session {
	s := &Session{id: NewSessionID()}
	now := time.Now().UnixNano()
	s.lastRead.Store(now)
	s.lastWrite.Store(now)
	s.lastPong.Store(now)
	return s
}

func (s *Session) ID() SessionID { return s.id }

func (s *Session) TouchRead()  { s.lastRead.Store(time.Now().UnixNano()) }
func (s *Session) TouchWrite() { s.lastWrite.Store(time.Now().UnixNano()) }
func (s *Session) TouchPong()  { s.lastPong.Store(time.Now().UnixNano()) }

// Close はセッションを閉じます。最初の呼び出しだけが true を返し、理由を記録します。
func (s *Session) Close(reason IdleReason) bool {
	if s.closed.CompareAndSwap(false, true) {
		s.closeReason.Store(uint32(reason))
		return true
	}
	return false
}

func (s *Session) CloseReason() IdleReason {
	return IdleReason(s.closeReason.Load())
}

// IsIdle は読み込み・書き込み・pong のいずれかが timeout を超えて途絶えているかを返します。
func (s *Session) IsIdle(timeout time.Duration) (bool, IdleReason) {
	if timeout <= 0 {
		return false, IdleDisabled
	}
	var reason IdleReason
	if idleSince(s.lastRead.Load(), timeout) {
		reason |= IdleRead
	}
	if idleSince(s.lastWrite.Load(), timeout) {
		reason |= IdleWrite
	}
	if idleSince(s.lastPong.Load(), timeout) {
		reason |= IdlePong
	}
	return reason != IdleNone, reason
}

// ReadWithin は最後の読み込みから d 以内かを返します。
func (s *Session) ReadWithin(d time.Duration) bool {
	return !idleSince(s.lastRead.Load(), d)
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

func idleSince(nano int64, timeout time.Duration) bool {
	return time.Since(time.Unix(0, nano)) > timeout
}
