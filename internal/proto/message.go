package proto

import (
	"encoding/json"
	"maps"
)

// Envelope wraps every message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	InboundTypeCreateRoom   = "create_room"
	InboundTypeJoinRoom     = "join_room"
	InboundTypeLeaveRoom    = "leave_room"
	InboundTypePlayerUpdate = "player_update"

	OutboundTypeRoomCreated = "room_created"
	OutboundTypeRoomJoined  = "room_joined"
	OutboundTypeRoomUpdate  = "room_update"
	OutboundTypeRoomClosed  = "room_closed"
	OutboundTypeRoomError   = "room_error"
)

// PlayerInfo is what a client tells about itself on create/join.
type PlayerInfo struct {
	Name string `json:"name"`
}

// RoomRequest is the payload of create_room and join_room.
type RoomRequest struct {
	RoomID string     `json:"roomId"`
	Player PlayerInfo `json:"player"`
}

// PlayerUpdate is the payload of player_update.
type PlayerUpdate struct {
	State map[string]any `json:"state"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Player is one entry of a room snapshot. Extra fields from player_update
// are flattened next to the fixed ones.
type Player struct {
	ID       string
	Name     string
	IsHost   bool
	JoinedAt int64
	Extra    map[string]any
}

// MarshalJSON flattens Extra; fixed fields win over extra keys of the same name.
func (p Player) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+4)
	maps.Copy(out, p.Extra)
	out["id"] = p.ID
	out["name"] = p.Name
	out["isHost"] = p.IsHost
	out["joinedAt"] = p.JoinedAt
	return json.Marshal(out)
}

// UnmarshalJSON splits fixed fields from extra ones.
func (p *Player) UnmarshalJSON(data []byte) error {
	var fixed struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		IsHost   bool   `json:"isHost"`
		JoinedAt int64  `json:"joinedAt"`
	}
	if err := json.Unmarshal(data, &fixed); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, key := range []string{"id", "name", "isHost", "joinedAt"} {
		delete(all, key)
	}
	p.ID = fixed.ID
	p.Name = fixed.Name
	p.IsHost = fixed.IsHost
	p.JoinedAt = fixed.JoinedAt
	p.Extra = nil
	if len(all) > 0 {
		p.Extra = all
	}
	return nil
}

// Room is the wire snapshot of a room.
type Room struct {
	ID        string   `json:"id"`
	HostID    string   `json:"hostId"`
	CreatedAt int64    `json:"createdAt"`
	Players   []Player `json:"players"`
}

// RoomPayload is carried by room_created and room_update.
type RoomPayload struct {
	Room Room `json:"room"`
}

// RoomJoinedPayload is sent to the joining connection only.
type RoomJoinedPayload struct {
	Room     Room   `json:"room"`
	PlayerID string `json:"playerId"`
}

// RoomClosedPayload tells a connection its room is gone.
type RoomClosedPayload struct {
	RoomID string `json:"roomId"`
}

// Error describes a room_error payload.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
