package domain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// バイトオーダー: リトルエンディアン
var byteOrder = binary.LittleEndian

const (
	ProtocolVersion   = 1
	HeaderSize        = 25
	PayloadHeaderSize = 2
	FrameOverhead     = HeaderSize + PayloadHeaderSize
)

// Header はメッセージヘッダー (25バイト)
//
//	version    u8      (1)
//	sessionID  [16]byte (16)
//	seq        u16     (2)
//	length     u16     (2)  - ペイロード長
//	timestamp  u32     (4)
type Header struct {
	Version   uint8
	SessionID [16]byte
	Seq       uint16
	Length    uint16
	Timestamp uint32
}

// DataType はメッセージの種別
type DataType uint8

const (
	DataTypeCommand DataType = 1 // クライアント → サーバー: ゲーム操作
	DataTypeControl DataType = 4
	DataTypeEvent   DataType = 6 // サーバー → クライアント: msgpack 符号化したゲームイベント
)

// ControlSubType はcontrolメッセージのサブタイプ
type ControlSubType uint8

const (
	ControlSubTypeJoin   ControlSubType = 1
	ControlSubTypeLeave  ControlSubType = 2
	ControlSubTypeKick   ControlSubType = 3
	ControlSubTypePing   ControlSubType = 4
	ControlSubTypePong   ControlSubType = 5
	ControlSubTypeError  ControlSubType = 6
	ControlSubTypeAssign ControlSubType = 7
)

// CommandSubType はゲーム操作のサブタイプ
type CommandSubType uint8

const (
	CommandSubTypeJoin    CommandSubType = 1
	CommandSubTypeSpawn   CommandSubType = 2
	CommandSubTypeMove    CommandSubType = 3
	CommandSubTypeFire    CommandSubType = 4
	CommandSubTypeLeave   CommandSubType = 5
	CommandSubTypeDamping CommandSubType = 6
)

// PayloadHeader はペイロードヘッダー (2バイト)
//
//	datatype  u8 (1)
//	subtype   u8 (1)
type PayloadHeader struct {
	DataType DataType
	SubType  uint8
}

var (
	ErrInvalidHeaderSize  = errors.New("invalid header size")
	ErrInvalidPayloadSize = errors.New("invalid payload size")
	ErrFrameTooLarge      = errors.New("frame payload exceeds 65535 bytes")
)

// ParseHeader はバイト列からHeaderをパースする
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, ErrInvalidHeaderSize
	}

	var sessionID [16]byte
	copy(sessionID[:], data[1:17])

	return &Header{
		Version:   data[0],
		SessionID: sessionID,
		Seq:       byteOrder.Uint16(data[17:19]),
		Length:    byteOrder.Uint16(data[19:21]),
		Timestamp: byteOrder.Uint32(data[21:25]),
	}, nil
}

// Encode はHeaderをバイト列にエンコードする
func (h *Header) Encode() []byte {
	data := make([]byte, HeaderSize)
	h.put(data)
	return data
}

func (h *Header) put(data []byte) {
	data[0] = h.Version
	copy(data[1:17], h.SessionID[:])
	byteOrder.PutUint16(data[17:19], h.Seq)
	byteOrder.PutUint16(data[19:21], h.Length)
	byteOrder.PutUint32(data[21:25], h.Timestamp)
}

// ParsePayloadHeader はバイト列からPayloadHeaderをパースする
func ParsePayloadHeader(data []byte) (*PayloadHeader, error) {
	if len(data) < PayloadHeaderSize {
		return nil, ErrInvalidPayloadSize
	}

	return &PayloadHeader{
		DataType: DataType(data[0]),
		SubType:  data[1],
	}, nil
}

// Encode はPayloadHeaderをバイト列にエンコードする
func (p *PayloadHeader) Encode() []byte {
	return []byte{byte(p.DataType), p.SubType}
}

// Frame はパース済みのメッセージです。Body はペイロードヘッダー以降のバイト列です。
type Frame struct {
	Header  Header
	Payload PayloadHeader
	Body    []byte
}

// ParseFrame はヘッダーとペイロードヘッダーをまとめてパースする
func ParseFrame(data []byte) (*Frame, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	p, err := ParsePayloadHeader(data[HeaderSize:])
	if err != nil {
		return nil, err
	}
	return &Frame{Header: *h, Payload: *p, Body: data[FrameOverhead:]}, nil
}

// EncodeFrame はヘッダー・ペイロードヘッダー・本文を 1 つのメッセージにする
func EncodeFrame(sessionID SessionID, dataType DataType, subType uint8, body []byte) ([]byte, error) {
	length := PayloadHeaderSize + len(body)
	if length > math.MaxUint16 {
		return nil, ErrFrameTooLarge
	}
	header := Header{
		Version:   ProtocolVersion,
		SessionID: sessionID.Bytes(),
		Length:    uint16(length),
		Timestamp: uint32(time.Now().UnixMilli() & 0xFFFFFFFF),
	}
	data := make([]byte, HeaderSize+length)
	header.put(data)
	data[HeaderSize] = byte(dataType)
	data[HeaderSize+1] = subType
	copy(data[FrameOverhead:], body)
	return data, nil
}

// EncodeControlMessage は本文を持たないcontrolメッセージをエンコードする。
// Assign はセッションID通知、Leave は異常切断時のルーム離脱、Ping は死活確認に使う。
func EncodeControlMessage(sessionID SessionID, subType ControlSubType) []byte {
	data, _ := EncodeFrame(sessionID, DataTypeControl, uint8(subType), nil)
	return data
}

func EncodeAssignMessage(sessionID SessionID) []byte {
	return EncodeControlMessage(sessionID, ControlSubTypeAssign)
}

func EncodeLeaveMessage(sessionID SessionID) []byte {
	return EncodeControlMessage(sessionID, ControlSubTypeLeave)
}

func EncodePingMessage(sessionID SessionID) []byte {
	return EncodeControlMessage(sessionID, ControlSubTypePing)
}

// ErrorCode は Error メッセージの本文 1 バイトで、拒否した理由を表す。
type ErrorCode uint8

const (
	ErrorCodeMalformedFrame ErrorCode = 1
	ErrorCodeNotInRoom      ErrorCode = 2
	ErrorCodeUnsupported    ErrorCode = 3
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeMalformedFrame:
		return "malformed frame"
	case ErrorCodeNotInRoom:
		return "not in room"
	case ErrorCodeUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("error(%d)", uint8(c))
	}
}

var ErrInvalidErrorPayload = errors.New("invalid error payload size")

// EncodeErrorMessage はクライアントの送ったフレームを拒否したことを通知する。
func EncodeErrorMessage(sessionID SessionID, code ErrorCode) []byte {
	data, _ := EncodeFrame(sessionID, DataTypeControl, uint8(ControlSubTypeError), []byte{byte(code)})
	return data
}

func ParseErrorPayload(data []byte) (ErrorCode, error) {
	if len(data) != 1 {
		return 0, ErrInvalidErrorPayload
	}
	return ErrorCode(data[0]), nil
}

// EncodeEventMessage はゲームイベントの本文をクライアント宛てのメッセージにする。
// ブロードキャストの場合 sessionID はゼロ値。
func EncodeEventMessage(sessionID SessionID, body []byte) ([]byte, error) {
	return EncodeFrame(sessionID, DataTypeEvent, 0, body)
}

// JoinPayload はルーム参加メッセージのペイロード
//
//	length  u8
//	roomID  [length]byte - 空の場合は RoomManager が割り当てる
type JoinPayload struct {
	RoomID RoomID
}

var ErrInvalidJoinPayloadSize = errors.New("invalid join payload size")

// ParseJoinPayload はバイト列からJoinPayloadをパースする
func ParseJoinPayload(data []byte) (*JoinPayload, error) {
	s, _, err := readString(data)
	if err != nil {
		return nil, ErrInvalidJoinPayloadSize
	}
	return &JoinPayload{RoomID: RoomID(s)}, nil
}

// Encode はJoinPayloadをバイト列にエンコードする
func (j *JoinPayload) Encode() []byte {
	return appendString(nil, string(j.RoomID))
}

// JoinCommand はゲーム参加の操作
//
//	name      u8 + bytes
//	platform  u8 + bytes
type JoinCommand struct {
	Name     string
	Platform string
}

// MoveCommand は移動入力 (13バイト)
//
//	dx, dy  float32 (8) - 推進入力
//	flags   u8      (1) - bit0: angle が有効
//	angle   float32 (4) - 絶対角度 [rad]
type MoveCommand struct {
	DX, DY   float32
	HasAngle bool
	Angle    float32
}

// DampingCommand は減衰係数の変更 (4バイト)
type DampingCommand struct {
	Factor float32
}

const (
	MoveCommandSize    = 13
	DampingCommandSize = 4

	moveFlagAngle = 1 << 0
)

// エラー定義
var (
	ErrInvalidJoinCommand    = errors.New("invalid join command")
	ErrInvalidMoveCommand    = errors.New("invalid move command size")
	ErrInvalidDampingCommand = errors.New("invalid damping command size")
)

func ParseJoinCommand(data []byte) (*JoinCommand, error) {
	name, n, err := readString(data)
	if err != nil {
		return nil, ErrInvalidJoinCommand
	}
	platform, _, err := readString(data[n:])
	if err != nil {
		return nil, ErrInvalidJoinCommand
	}
	return &JoinCommand{Name: name, Platform: platform}, nil
}

func (c *JoinCommand) Encode() []byte {
	return appendString(appendString(nil, c.Name), c.Platform)
}

func ParseMoveCommand(data []byte) (*MoveCommand, error) {
	if len(data) < MoveCommandSize {
		return nil, ErrInvalidMoveCommand
	}
	return &MoveCommand{
		DX:       math.Float32frombits(byteOrder.Uint32(data[0:4])),
		DY:       math.Float32frombits(byteOrder.Uint32(data[4:8])),
		HasAngle: data[8]&moveFlagAngle != 0,
		Angle:    math.Float32frombits(byteOrder.Uint32(data[9:13])),
	}, nil
}

func (c *MoveCommand) Encode() []byte {
	data := make([]byte, MoveCommandSize)
	byteOrder.PutUint32(data[0:4], math.Float32bits(c.DX))
	byteOrder.PutUint32(data[4:8], math.Float32bits(c.DY))
	if c.HasAngle {
		data[8] |= moveFlagAngle
	}
	byteOrder.PutUint32(data[9:13], math.Float32bits(c.Angle))
	return data
}

func ParseDampingCommand(data []byte) (*DampingCommand, error) {
	if len(data) < DampingCommandSize {
		return nil, ErrInvalidDampingCommand
	}
	return &DampingCommand{Factor: math.Float32frombits(byteOrder.Uint32(data[0:4]))}, nil
}

func (c *DampingCommand) Encode() []byte {
	data := make([]byte, DampingCommandSize)
	byteOrder.PutUint32(data, math.Float32bits(c.Factor))
	return data
}

// readString は u8 長さ接頭辞付きの文字列を読み、消費したバイト数を返す
func readString(data []byte) (string, int, error) {
	if len(data) < 1 {
		return "", 0, ErrInvalidPayloadSize
	}
	n := int(data[0])
	if len(data) < 1+n {
		return "", 0, ErrInvalidPayloadSize
	}
	return string(data[1 : 1+n]), 1 + n, nil
}

// appendString は 255 バイトを超える部分を切り詰める
func appendString(dst []byte, s string) []byte {
	if len(s) > math.MaxUint8 {
		s = s[:math.MaxUint8]
	}
	dst = append(dst, byte(len(s)))
	return append(dst, s...)
}
