package store

import (
	"context"
	"time"
)

// RoomEventKind names a step in a room's lifecycle.
type RoomEventKind string

const (
	RoomEventCreated     RoomEventKind = "created"
	RoomEventJoined      RoomEventKind = "joined"
	RoomEventLeft        RoomEventKind = "left"
	RoomEventHostChanged RoomEventKind = "host_changed"
	RoomEventClosed      RoomEventKind = "closed"
)

// RoomEvent is one entry of the room lifecycle log. Rooms themselves are
// never persisted; the log only records what happened to them.
type RoomEvent struct {
	ID           int64
	RoomID       string
	Kind         RoomEventKind
	ConnectionID string // empty for closed
	PlayerName   string // set for joined
	Members      int    // member count after the event
	CreatedAt    time.Time
}

// EventFilter narrows ListRoomEvents. Limit <= 0 means DefaultEventLimit.
type EventFilter struct {
	RoomID string
	Limit  int
}

// DefaultEventLimit caps ListRoomEvents when no limit is given.
const DefaultEventLimit = 100

// RoomEventStore persists lifecycle events.
type RoomEventStore interface {
	// InsertRoomEvent appends an event and fills in its ID.
	InsertRoomEvent(ctx context.Context, ev *RoomEvent) error
	// ListRoomEvents returns the newest events first.
	ListRoomEvents(ctx context.Context, filter EventFilter) ([]*RoomEvent, error)
}

// Store is the full storage surface used by the application.
type Store interface {
	RoomEventStore
	Close() error
}

// Recorder accepts lifecycle events without blocking the caller.
type Recorder interface {
	Record(ev RoomEvent)
}

// NopRecorder discards every event.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(RoomEvent) {}
