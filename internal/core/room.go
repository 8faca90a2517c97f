package core

// MaxPlayers is the fixed capacity of every room.
const MaxPlayers = 4

// PlayerState is the display state of one participant. Extra holds fields
// contributed by player_update patches.
type PlayerState struct {
	ID       string
	Name     string
	IsHost   bool
	JoinedAt int64
	Extra    map[string]any
}

func (p PlayerState) clone() PlayerState {
	if p.Extra != nil {
		extra := make(map[string]any, len(p.Extra))
		for k, v := range p.Extra {
			extra[k] = v
		}
		p.Extra = extra
	}
	return p
}

// PlayerInput is what a client supplies about itself when joining.
type PlayerInput struct {
	Name string
}

// RoomSnapshot is a read-only copy of a room, safe to hand to other goroutines.
type RoomSnapshot struct {
	ID        string
	HostID    string
	CreatedAt int64
	Players   []PlayerState
}

// HasMember reports whether the snapshot lists the given connection.
func (s RoomSnapshot) HasMember(id string) bool {
	for _, p := range s.Players {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Room groups the participants of one session. Members keep insertion order,
// which decides the host on failover.
type Room struct {
	ID        string
	HostID    string
	CreatedAt int64
	members   map[string]*PlayerState
	order     []string
}

// NewRoom constructs a room with no members.
func NewRoom(id, hostID string, createdAt int64) *Room {
	return &Room{
		ID:        id,
		HostID:    hostID,
		CreatedAt: createdAt,
		members:   make(map[string]*PlayerState, MaxPlayers),
		order:     make([]string, 0, MaxPlayers),
	}
}

// Member returns the participant state for a connection.
func (r *Room) Member(id string) (*PlayerState, bool) {
	p, ok := r.members[id]
	return p, ok
}

// Size returns the number of members.
func (r *Room) Size() int {
	return len(r.order)
}

// Full reports whether the room reached MaxPlayers.
func (r *Room) Full() bool {
	return r.Size() >= MaxPlayers
}

// Empty returns true if no members are in the room.
func (r *Room) Empty() bool {
	return r.Size() == 0
}

// AddMember inserts a participant at the end. Returns false if already present.
func (r *Room) AddMember(p PlayerState) bool {
	if _, exists := r.members[p.ID]; exists {
		return false
	}
	r.members[p.ID] = &p
	r.order = append(r.order, p.ID)
	return true
}

// RemoveMember deletes a participant. Returns false if it was not a member.
func (r *Room) RemoveMember(id string) bool {
	if _, exists := r.members[id]; !exists {
		return false
	}
	delete(r.members, id)
	for i, memberID := range r.order {
		if memberID == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// PromoteFirst makes the earliest remaining member host and returns its id.
func (r *Room) PromoteFirst() (string, bool) {
	if r.Empty() {
		r.HostID = ""
		return "", false
	}
	next := r.members[r.order[0]]
	r.HostID = next.ID
	next.IsHost = true
	return next.ID, true
}

// Snapshot copies the room; players follow insertion order.
func (r *Room) Snapshot() RoomSnapshot {
	players := make([]PlayerState, 0, len(r.order))
	for _, id := range r.order {
		players = append(players, r.members[id].clone())
	}
	return RoomSnapshot{
		ID:        r.ID,
		HostID:    r.HostID,
		CreatedAt: r.CreatedAt,
		Players:   players,
	}
}
