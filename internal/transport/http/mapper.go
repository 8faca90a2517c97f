package http

import (
	"encoding/json"
	"fmt"

	"github.com/vovakirdan/roomsync-server/internal/core"
	"github.com/vovakirdan/roomsync-server/internal/proto"
)

// inboundToCommand decodes one raw client message. Messages that cannot be
// decoded become reject commands, answered by the hub in arrival order.
func inboundToCommand(data []byte) *core.Command {
	var inbound proto.Envelope
	if err := json.Unmarshal(data, &inbound); err != nil {
		return core.RejectCommand(core.ErrBadPayload)
	}

	switch inbound.Type {
	case proto.InboundTypeCreateRoom, proto.InboundTypeJoinRoom:
		var req proto.RoomRequest
		if err := decodePayload(inbound.Payload, &req); err != nil {
			return core.RejectCommand(core.ErrBadPayload)
		}
		kind := core.CommandJoinRoom
		if inbound.Type == proto.InboundTypeCreateRoom {
			kind = core.CommandCreateRoom
		}
		return &core.Command{
			Kind:   kind,
			RoomID: req.RoomID,
			Player: core.PlayerInput{Name: req.Player.Name},
		}
	case proto.InboundTypeLeaveRoom:
		return &core.Command{Kind: core.CommandLeaveRoom}
	case proto.InboundTypePlayerUpdate:
		var update proto.PlayerUpdate
		if err := decodePayload(inbound.Payload, &update); err != nil {
			return core.RejectCommand(core.ErrBadPayload)
		}
		return &core.Command{
			Kind:  core.CommandUpdatePlayer,
			Patch: update.State,
		}
	default:
		return core.RejectCommand(core.NewError(core.ErrCodeUnknownEvent, fmt.Sprintf("Unknown event: %s", inbound.Type)))
	}
}

// decodePayload treats a missing or null payload as an empty object.
func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoomCreated:
		return proto.Outbound{
			Type:    proto.OutboundTypeRoomCreated,
			Payload: proto.RoomPayload{Room: roomToProto(event.Room)},
		}
	case core.EventRoomJoined:
		return proto.Outbound{
			Type: proto.OutboundTypeRoomJoined,
			Payload: proto.RoomJoinedPayload{
				Room:     roomToProto(event.Room),
				PlayerID: event.PlayerID,
			},
		}
	case core.EventRoomUpdate:
		return proto.Outbound{
			Type:    proto.OutboundTypeRoomUpdate,
			Payload: proto.RoomPayload{Room: roomToProto(event.Room)},
		}
	case core.EventRoomClosed:
		return proto.Outbound{
			Type:    proto.OutboundTypeRoomClosed,
			Payload: proto.RoomClosedPayload{RoomID: event.RoomID},
		}
	case core.EventError:
		if event.Error == nil {
			return errorOutbound(&proto.Error{Code: core.ErrCodeServerError, Message: core.ErrServer.Message})
		}
		return errorOutbound(&proto.Error{Code: event.Error.Code, Message: event.Error.Message})
	default:
		return errorOutbound(&proto.Error{Code: core.ErrCodeServerError, Message: core.ErrServer.Message})
	}
}

func errorOutbound(e *proto.Error) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeRoomError, Payload: e}
}

func roomToProto(room *core.RoomSnapshot) proto.Room {
	if room == nil {
		return proto.Room{Players: []proto.Player{}}
	}
	players := make([]proto.Player, 0, len(room.Players))
	for _, p := range room.Players {
		players = append(players, proto.Player{
			ID:       p.ID,
			Name:     p.Name,
			IsHost:   p.IsHost,
			JoinedAt: p.JoinedAt,
			Extra:    p.Extra,
		})
	}
	return proto.Room{
		ID:        room.ID,
		HostID:    room.HostID,
		CreatedAt: room.CreatedAt,
		Players:   players,
	}
}
