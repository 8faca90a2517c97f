package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomsync-server/internal/store"
	"github.com/vovakirdan/roomsync-server/internal/validation"
)

type request struct {
	client *Client
	cmd    *Command
}

// Hub dispatches client commands to the Registry and fans results out to
// connections. Everything that touches client state runs on the Run loop, so
// one command is fully handled (replies and broadcasts queued) before the
// next one starts.
type Hub struct {
	registry *Registry
	recorder store.Recorder
	log      *zerolog.Logger

	clients  map[string]*Client
	register chan *Client
	inbox    chan request
	calls    chan func()
	done     chan struct{}
}

// NewHub creates a hub around registry. A nil registry gets a fresh one, a
// nil recorder discards lifecycle events.
func NewHub(registry *Registry, recorder store.Recorder, logger *zerolog.Logger) *Hub {
	if registry == nil {
		registry = NewRegistry()
	}
	if recorder == nil {
		recorder = store.NopRecorder{}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		registry: registry,
		recorder: recorder,
		log:      logger,
		clients:  make(map[string]*Client),
		register: make(chan *Client),
		inbox:    make(chan request, 64),
		calls:    make(chan func()),
		done:     make(chan struct{}),
	}
}

// Registry exposes the underlying registry for read-only queries.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Done is closed once Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run processes registrations and commands until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c.ID] = c
			h.log.Debug().Str("client_id", c.ID).Int("clients", len(h.clients)).Msg("client registered")
			go h.pump(ctx, c)
		case req := <-h.inbox:
			h.handle(req.client, req.cmd)
		case fn := <-h.calls:
			fn()
		}
	}
}

// RegisterClient attaches a connection to the hub.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// UnregisterClient closes the client's command stream. The hub runs the
// disconnect path after every command sent before this call. It must be
// called once, by the goroutine that sends commands.
func (h *Hub) UnregisterClient(c *Client) {
	close(c.Commands)
}

// Submit queues a command for c, giving up when ctx ends or the hub stops.
func (h *Hub) Submit(ctx context.Context, c *Client, cmd *Command) error {
	select {
	case c.Commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return errHubStopped
	}
}

// DestroyRoom tears a room down regardless of membership and notifies every
// connection still attached to it. Returns false if the room did not exist.
func (h *Hub) DestroyRoom(ctx context.Context, roomID string) (bool, error) {
	var destroyed bool
	err := h.do(ctx, func() {
		if h.registry.DestroyRoom(roomID) == nil {
			return
		}
		destroyed = true
		h.closeRoom(roomID)
	})
	return destroyed, err
}

func (h *Hub) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case h.calls <- func() {
		defer close(finished)
		fn()
	}:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return errHubStopped
	}
	<-finished
	return nil
}

// pump forwards one client's commands in order, then queues its disconnect.
func (h *Hub) pump(ctx context.Context, c *Client) {
	for cmd := range c.Commands {
		if cmd == nil {
			continue
		}
		select {
		case h.inbox <- request{client: c, cmd: cmd}:
		case <-ctx.Done():
			return
		}
	}
	select {
	case h.inbox <- request{client: c, cmd: &Command{Kind: commandDisconnect}}:
	case <-ctx.Done():
	}
}

func (h *Hub) handle(c *Client, cmd *Command) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().
				Interface("panic", r).
				Str("client_id", c.ID).
				Stringer("command", cmd.Kind).
				Msg("command handler panicked")
			h.sendError(c, ErrServer)
		}
	}()

	var err error
	switch cmd.Kind {
	case CommandCreateRoom:
		err = h.createRoom(c, cmd)
	case CommandJoinRoom:
		err = h.joinRoom(c, cmd)
	case CommandLeaveRoom:
		h.leaveRoom(c)
	case CommandUpdatePlayer:
		h.updatePlayer(c, cmd)
	case CommandReject:
		if cmd.Err == nil {
			err = ErrServer
		} else {
			err = cmd.Err
		}
	case commandDisconnect:
		h.disconnect(c)
	default:
		err = NewError(ErrCodeUnknownEvent, fmt.Sprintf("Unknown event: %d", cmd.Kind))
	}
	if err != nil {
		h.replyError(c, cmd, err)
	}
}

func (h *Hub) replyError(c *Client, cmd *Command, err error) {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		h.log.Debug().
			Str("client_id", c.ID).
			Stringer("command", cmd.Kind).
			Str("code", coreErr.Code).
			Msg("command rejected")
		h.sendError(c, coreErr)
		return
	}
	h.log.Error().
		Err(err).
		Str("client_id", c.ID).
		Stringer("command", cmd.Kind).
		Msg("unexpected room error")
	h.sendError(c, ErrServer)
}

func ensureRoomID(raw string) (string, error) {
	roomID := validation.NormalizeRoomCode(raw)
	if !validation.IsValidRoomCode(roomID) {
		return "", ErrBadRoomID
	}
	return roomID, nil
}

func (h *Hub) createRoom(c *Client, cmd *Command) error {
	roomID, err := ensureRoomID(cmd.RoomID)
	if err != nil {
		return err
	}
	if c.activeRoom != "" {
		h.leaveRoom(c)
	}
	if _, err := h.registry.CreateRoom(roomID, c.ID); err != nil {
		return err
	}
	room, player, err := h.registry.JoinRoom(roomID, c.ID, cmd.Player)
	if err != nil {
		h.registry.DestroyRoom(roomID)
		return fmt.Errorf("join created room %s: %w", roomID, err)
	}
	c.activeRoom = roomID

	h.record(store.RoomEvent{Kind: store.RoomEventCreated, RoomID: roomID, ConnectionID: c.ID})
	h.record(store.RoomEvent{
		Kind:         store.RoomEventJoined,
		RoomID:       roomID,
		ConnectionID: c.ID,
		PlayerName:   player.Name,
		Members:      len(room.Players),
	})
	h.log.Info().Str("room_id", roomID).Str("host_id", c.ID).Msg("room created")

	h.send(c, &Event{Kind: EventRoomCreated, Room: &room})
	h.send(c, &Event{Kind: EventRoomJoined, Room: &room, PlayerID: player.ID})
	h.broadcast(&room)
	return nil
}

func (h *Hub) joinRoom(c *Client, cmd *Command) error {
	roomID, err := ensureRoomID(cmd.RoomID)
	if err != nil {
		return err
	}
	if c.activeRoom != "" && c.activeRoom != roomID {
		h.leaveRoom(c)
	}
	room, player, err := h.registry.JoinRoom(roomID, c.ID, cmd.Player)
	if err != nil {
		return err
	}
	if c.activeRoom != roomID {
		h.record(store.RoomEvent{
			Kind:         store.RoomEventJoined,
			RoomID:       roomID,
			ConnectionID: c.ID,
			PlayerName:   player.Name,
			Members:      len(room.Players),
		})
	}
	c.activeRoom = roomID

	h.send(c, &Event{Kind: EventRoomJoined, Room: &room, PlayerID: player.ID})
	h.broadcast(&room)
	return nil
}

func (h *Hub) leaveRoom(c *Client) {
	roomID := c.activeRoom
	if roomID == "" {
		return
	}
	before, existed := h.registry.GetRoom(roomID)
	room := h.registry.LeaveRoom(roomID, c.ID)
	c.activeRoom = ""

	if !existed {
		return
	}
	members := 0
	if room != nil {
		members = len(room.Players)
	}
	h.record(store.RoomEvent{Kind: store.RoomEventLeft, RoomID: roomID, ConnectionID: c.ID, Members: members})

	if room == nil {
		h.closeRoom(roomID)
		return
	}
	if before.HostID == c.ID && room.HostID != c.ID {
		h.record(store.RoomEvent{
			Kind:         store.RoomEventHostChanged,
			RoomID:       roomID,
			ConnectionID: room.HostID,
			Members:      members,
		})
		h.log.Info().Str("room_id", roomID).Str("host_id", room.HostID).Msg("host reassigned")
	}
	h.broadcast(room)
}

func (h *Hub) updatePlayer(c *Client, cmd *Command) {
	if c.activeRoom == "" {
		return
	}
	room, ok := h.registry.UpdatePlayer(c.activeRoom, c.ID, cmd.Patch)
	if !ok {
		return
	}
	h.broadcast(&room)
}

func (h *Hub) disconnect(c *Client) {
	roomID := c.activeRoom
	h.leaveRoom(c)
	if current, ok := h.clients[c.ID]; ok && current == c {
		delete(h.clients, c.ID)
		close(c.Events)
	}
	h.log.Debug().Str("client_id", c.ID).Int("clients", len(h.clients)).Msg("client disconnected")
	if roomID != "" {
		h.reap(roomID)
	}
}

// reap destroys a room whose remaining members are no longer connected.
func (h *Hub) reap(roomID string) {
	room, ok := h.registry.GetRoom(roomID)
	if !ok {
		return
	}
	for _, p := range room.Players {
		if _, live := h.clients[p.ID]; live {
			return
		}
	}
	if h.registry.DestroyRoom(roomID) != nil {
		h.log.Warn().Str("room_id", roomID).Int("stale_members", len(room.Players)).Msg("destroyed room without live members")
		h.closeRoom(roomID)
	}
}

// closeRoom notifies every connection still attached to a removed room.
func (h *Hub) closeRoom(roomID string) {
	h.record(store.RoomEvent{Kind: store.RoomEventClosed, RoomID: roomID})
	h.log.Info().Str("room_id", roomID).Msg("room closed")

	ev := &Event{Kind: EventRoomClosed, RoomID: roomID}
	for _, client := range h.clients {
		if client.activeRoom != roomID {
			continue
		}
		client.activeRoom = ""
		h.send(client, ev)
	}
}

// broadcast pushes the snapshot to every attached member. A failed delivery
// to one member does not affect the others.
func (h *Hub) broadcast(room *RoomSnapshot) {
	ev := &Event{Kind: EventRoomUpdate, Room: room}
	for _, p := range room.Players {
		if client, ok := h.clients[p.ID]; ok {
			h.send(client, ev)
		}
	}
}

func (h *Hub) sendError(c *Client, err *CoreError) {
	h.send(c, &Event{Kind: EventError, Error: err})
}

func (h *Hub) send(c *Client, ev *Event) {
	if current, ok := h.clients[c.ID]; !ok || current != c {
		return
	}
	select {
	case c.Events <- ev:
	default:
		// Drop if slow consumer.
		h.log.Warn().Str("client_id", c.ID).Int("kind", int(ev.Kind)).Msg("event dropped, client buffer full")
	}
}

func (h *Hub) record(ev store.RoomEvent) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = h.registry.now()
	}
	h.recorder.Record(ev)
}
