package entity

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// IDSize は ID のワイヤ表現のバイト数です。
const IDSize = 16

// ErrInvalidID は ID の生成元となる値が不正な場合に返されるエラーです。
var ErrInvalidID = errors.New("entity: invalid id")

// ID はプレイヤーや弾などのエンティティを識別する 128bit の不変値です。
// ワイヤ表現は上位 64bit と下位 64bit をビッグエンディアンで並べた 16 バイトです。
type ID [IDSize]byte

// Nil は未設定を表す ID です。
var Nil ID

// New はランダムな ID を生成します。
func New() ID {
	return ID(uuid.New())
}

// Parse は文字列表現から ID を生成します。
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("%w: %q: %v", ErrInvalidID, s, err)
	}
	return ID(u), nil
}

// MustParse は Parse に失敗した場合 panic します。テストと固定値の定義用です。
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// FromBytes はワイヤ表現から ID を復元します。
func FromBytes(b []byte) (ID, error) {
	if len(b) != IDSize {
		return Nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidID, IDSize, len(b))
	}
	var id ID
	copy(id[:], b)
	return id, nil
}

// FromHalves は上位・下位 64bit から ID を組み立てます。
func FromHalves(hi, lo uint64) ID {
	var id ID
	binary.BigEndian.PutUint64(id[0:8], hi)
	binary.BigEndian.PutUint64(id[8:16], lo)
	return id
}

func (id ID) Hi() uint64 { return binary.BigEndian.Uint64(id[0:8]) }
func (id ID) Lo() uint64 { return binary.BigEndian.Uint64(id[8:16]) }

// Bytes はワイヤ表現を返します。
func (id ID) Bytes() [IDSize]byte {
	return id
}

func (id ID) IsNil() bool {
	return id == Nil
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Less は ID の全順序を定義します。ランキングの同点解決などに使います。
func (id ID) Less(other ID) bool {
	if id.Hi() != other.Hi() {
		return id.Hi() < other.Hi()
	}
	return id.Lo() < other.Lo()
}

func (id ID) MarshalBinary() ([]byte, error) {
	b := make([]byte, IDSize)
	copy(b, id[:])
	return b, nil
}

func (id *ID) UnmarshalBinary(data []byte) error {
	parsed, err := FromBytes(data)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
