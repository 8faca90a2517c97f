package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandCreateRoom creates a room and joins it as host.
	CommandCreateRoom CommandKind = iota
	// CommandJoinRoom joins an existing room.
	CommandJoinRoom
	// CommandLeaveRoom leaves the active room.
	CommandLeaveRoom
	// CommandUpdatePlayer merges a partial state into the caller's player.
	CommandUpdatePlayer
	// CommandReject answers the caller with Err. Transports use it for
	// messages they could not decode, so the reply keeps its place in line.
	CommandReject

	// commandDisconnect is queued by the hub when the transport closes.
	commandDisconnect
)

func (k CommandKind) String() string {
	switch k {
	case CommandCreateRoom:
		return "create_room"
	case CommandJoinRoom:
		return "join_room"
	case CommandLeaveRoom:
		return "leave_room"
	case CommandUpdatePlayer:
		return "player_update"
	case CommandReject:
		return "reject"
	case commandDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
type Command struct {
	Kind   CommandKind
	RoomID string
	Player PlayerInput
	Patch  map[string]any
	Err    *CoreError // CommandReject
}

// RejectCommand wraps err into a CommandReject.
func RejectCommand(err *CoreError) *Command {
	return &Command{Kind: CommandReject, Err: err}
}
