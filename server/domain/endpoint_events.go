package domain

type endpointEventKind uint8

const (
	// unknown
	unknown endpointEventKind = iota

	// I/O
	evPong       // pong を受信した
	evReadError  // 読み込みに失敗した
	evWriteError // 書き込みに失敗した

	// ctrl
	evClose // セッション終了
)

func (k endpointEventKind) String() string {
	switch k {
	case evPong:
		return "pong"
	case evReadError:
		return "read-error"
	case evWriteError:
		return "write-error"
	case evClose:
		return "close"
	default:
		return "unknown"
	}
}

type endpointEvent struct {
	kind   endpointEventKind
	reason IdleReason
	err    error
}
