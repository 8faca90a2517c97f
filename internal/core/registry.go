package core

import (
	"sort"
	"sync"
	"time"

	"github.com/vovakirdan/roomsync-server/internal/validation"
)

// reservedPlayerFields cannot be changed through UpdatePlayer.
var reservedPlayerFields = map[string]struct{}{
	"id":       {},
	"isHost":   {},
	"joinedAt": {},
}

// Registry owns every active room. All methods are short, synchronous and
// serialized by a single mutex; rooms never leave the registry, callers only
// see snapshots.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	now   func() time.Time
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithClock replaces the time source used for createdAt/joinedAt.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		rooms: make(map[string]*Room),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) timestamp() int64 {
	return r.now().UnixMilli()
}

// CreateRoom registers an empty room with hostID as designated host.
// The host becomes a member only after a subsequent JoinRoom.
func (r *Registry) CreateRoom(roomID, hostID string) (RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[roomID]; exists {
		return RoomSnapshot{}, ErrRoomExists
	}
	room := NewRoom(roomID, hostID, r.timestamp())
	r.rooms[roomID] = room
	return room.Snapshot(), nil
}

// JoinRoom adds connID to the room. Joining a room the connection is already
// in returns the existing participant unchanged.
func (r *Registry) JoinRoom(roomID, connID string, player PlayerInput) (RoomSnapshot, PlayerState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return RoomSnapshot{}, PlayerState{}, ErrRoomNotFound
	}
	if existing, ok := room.Member(connID); ok {
		return room.Snapshot(), existing.clone(), nil
	}
	if room.Full() {
		return RoomSnapshot{}, PlayerState{}, ErrRoomFull
	}

	state := PlayerState{
		ID:       connID,
		Name:     validation.SanitizeDisplayName(player.Name),
		IsHost:   room.HostID == connID,
		JoinedAt: r.timestamp(),
	}
	room.AddMember(state)
	return room.Snapshot(), state.clone(), nil
}

// LeaveRoom removes connID from the room and returns the updated snapshot,
// or nil when the room does not exist afterwards. If the host leaves, the
// first remaining member in join order becomes host. The last departure
// deletes the room.
func (r *Registry) LeaveRoom(roomID, connID string) *RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	if !room.RemoveMember(connID) {
		snap := room.Snapshot()
		return &snap
	}
	if room.HostID == connID {
		room.PromoteFirst()
	}
	if room.Empty() {
		delete(r.rooms, roomID)
		return nil
	}
	snap := room.Snapshot()
	return &snap
}

// DestroyRoom removes the room regardless of membership.
func (r *Registry) DestroyRoom(roomID string) *RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	delete(r.rooms, roomID)
	snap := room.Snapshot()
	return &snap
}

// GetRoom returns a snapshot of the room if it exists.
func (r *Registry) GetRoom(roomID string) (RoomSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return RoomSnapshot{}, false
	}
	return room.Snapshot(), true
}

// UpdatePlayer shallow-merges patch into the participant's state. Returns
// false when the room is gone or connID is not a member.
func (r *Registry) UpdatePlayer(roomID, connID string, patch map[string]any) (RoomSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return RoomSnapshot{}, false
	}
	state, ok := room.Member(connID)
	if !ok {
		return RoomSnapshot{}, false
	}

	for key, value := range patch {
		if _, reserved := reservedPlayerFields[key]; reserved {
			continue
		}
		if key == "name" {
			if name, ok := value.(string); ok {
				state.Name = validation.SanitizeDisplayName(name)
			}
			continue
		}
		if state.Extra == nil {
			state.Extra = make(map[string]any, len(patch))
		}
		state.Extra[key] = value
	}
	return room.Snapshot(), true
}

// Rooms lists snapshots of every active room, oldest first.
func (r *Registry) Rooms() []RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RoomSnapshot, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of active rooms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
