package room

import "github.com/harshdev2909/Gorbagana-Trash-Royale/internal/game"

type Msg interface{ isRoomMsg() }

// FromClient carries one decoded game command from a connected socket.
type FromClient struct {
	Cmd game.Command
}

func (FromClient) isRoomMsg() {}

// Join registers a client outbox for this room's broadcasts.
type Join struct {
	ClientID string
	Outbox   chan Frame
}

func (Join) isRoomMsg() {}

type Leave struct{ ClientID string }

func (Leave) isRoomMsg() {}

// Chat relays a lobby chat line to every member.
type Chat struct {
	PlayerID string
	Message  string
}

func (Chat) isRoomMsg() {}

// Publish broadcasts an out-of-band frame, e.g. standings fetched off the
// actor loop after a match is recorded.
type Publish struct {
	Event   string
	Payload any
}

func (Publish) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

// GetState reflects internal state without data races; test and API use.
type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

// Frame is one outbound broadcast: an event name plus its payload. The ws
// layer encodes it into the wire envelope.
type Frame struct {
	Version int
	Event   string
	Payload any
}

type View struct {
	Version    int
	NumClients int
	State      game.Match
}
