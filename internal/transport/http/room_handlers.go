package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomsync-server/internal/core"
	"github.com/vovakirdan/roomsync-server/internal/proto"
	"github.com/vovakirdan/roomsync-server/internal/store"
	"github.com/vovakirdan/roomsync-server/internal/validation"
)

const errCodeEventLogDisabled = "EVENT_LOG_DISABLED"

// RoomHandlers provides the lobby discovery and room administration endpoints.
type RoomHandlers struct {
	hub    *core.Hub
	events store.RoomEventStore
	log    *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub *core.Hub, events store.RoomEventStore, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub:    hub,
		events: events,
		log:    logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RoomEventResponse represents a lifecycle log entry in API responses.
type RoomEventResponse struct {
	ID           int64  `json:"id"`
	RoomID       string `json:"roomId"`
	Kind         string `json:"kind"`
	ConnectionID string `json:"connectionId,omitempty"`
	PlayerName   string `json:"playerName,omitempty"`
	Members      int    `json:"members"`
	CreatedAt    string `json:"createdAt"`
}

func roomIDParam(c *gin.Context) (string, bool) {
	roomID := validation.NormalizeRoomCode(c.Param("id"))
	if !validation.IsValidRoomCode(roomID) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: core.ErrBadRoomID.Code, Message: core.ErrBadRoomID.Message})
		return "", false
	}
	return roomID, true
}

// ListRooms returns every active room, oldest first.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	rooms := h.hub.Registry().Rooms()

	response := make([]proto.Room, 0, len(rooms))
	for i := range rooms {
		response = append(response, roomToProto(&rooms[i]))
	}

	h.log.Debug().Int("room_count", len(rooms)).Msg("rooms listed")
	c.JSON(http.StatusOK, response)
}

// GetRoom returns the snapshot of one room.
// GET /api/rooms/:id
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	room, ok := h.hub.Registry().GetRoom(roomID)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Code: core.ErrRoomNotFound.Code, Message: core.ErrRoomNotFound.Message})
		return
	}
	c.JSON(http.StatusOK, roomToProto(&room))
}

// DestroyRoom tears a room down and sends room_closed to its members.
// DELETE /api/rooms/:id
func (h *RoomHandlers) DestroyRoom(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	destroyed, err := h.hub.DestroyRoom(c.Request.Context(), roomID)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to destroy room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: core.ErrServer.Code, Message: core.ErrServer.Message})
		return
	}
	if !destroyed {
		c.JSON(http.StatusNotFound, ErrorResponse{Code: core.ErrRoomNotFound.Code, Message: core.ErrRoomNotFound.Message})
		return
	}

	h.log.Info().Str("room_id", roomID).Msg("room destroyed via api")
	c.Status(http.StatusNoContent)
}

// ListRoomEvents returns the lifecycle log of a room, newest first.
// GET /api/rooms/:id/events?limit=N
func (h *RoomHandlers) ListRoomEvents(c *gin.Context) {
	if h.events == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Code: errCodeEventLogDisabled, Message: "Room event log is disabled."})
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: core.ErrCodeBadPayload, Message: "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	events, err := h.events.ListRoomEvents(c.Request.Context(), store.EventFilter{RoomID: roomID, Limit: limit})
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to list room events")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: core.ErrServer.Code, Message: core.ErrServer.Message})
		return
	}

	response := make([]RoomEventResponse, 0, len(events))
	for _, ev := range events {
		response = append(response, RoomEventResponse{
			ID:           ev.ID,
			RoomID:       ev.RoomID,
			Kind:         string(ev.Kind),
			ConnectionID: ev.ConnectionID,
			PlayerName:   ev.PlayerName,
			Members:      ev.Members,
			CreatedAt:    ev.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	c.JSON(http.StatusOK, response)
}
