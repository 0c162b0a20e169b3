package chat

import "net"

type Client struct {
	Conn net.Conn
	Nick string      // owned by the registry goroutine after registration
	Room string      // current room name, "" when detached; registry-owned
	Out  chan []byte // outbound payloads framed by the writer goroutine
}

type EventType int

const (
	EventRegister EventType = iota
	EventNick
	EventCreate
	EventJoin
	EventLeave
	EventRooms
	EventWho
	EventBroadcast
	EventUnregister
)

type Event struct {
	Type      EventType
	Client    *Client
	Name      string     // nickname or room name, depending on Type
	Text      string     // chat text for broadcasts
	ReplyChan chan error // used by register to ack success/failure
}

var (
	ErrNicknameInvalid = errorString("nickname_invalid")
	ErrFrameTooLarge   = errorString("frame_too_large")
	ErrProtocol        = errorString("protocol_error")
	ErrNotInRoom       = errorString("not_in_room")
)

type errorString string

func (e errorString) Error() string { return string(e) }
