package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomCreated confirms a room creation to its creator.
	EventRoomCreated EventKind = iota
	// EventRoomJoined confirms membership to the joining connection.
	EventRoomJoined
	// EventRoomUpdate carries the latest room snapshot to every member.
	EventRoomUpdate
	// EventRoomClosed tells a connection its room no longer exists.
	EventRoomClosed
	// EventError notifies the initiator about a failed command.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Room     *RoomSnapshot
	RoomID   string // EventRoomClosed
	PlayerID string // EventRoomJoined
	Error    *CoreError
}
