package application

import "arena/server/domain"

// BotAction はボットの 1 回分の行動を表します。
type BotAction struct {
	DX, DY float64
	// Aim が true のとき Angle の向きへ旋回します。
	Aim   bool
	Angle float64
	Fire  bool
}

// BotController はボットの意思決定インターフェースです。
type BotController interface {
	Decide(self Actor, actors []Actor, bolts []Bolt, available int) BotAction
}

// BotInstance はボットのインスタンスを表します。
type BotInstance struct {
	SessionID  domain.SessionID
	Field      *Field
	Controller BotController
}
