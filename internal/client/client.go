// Package client is a Go client for the room protocol. It keeps a local
// cache of the joined room that is updated from server messages.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/vovakirdan/roomsync-server/internal/proto"
	"github.com/vovakirdan/roomsync-server/internal/validation"
)

var (
	// ErrNotConnected is returned when a message is sent without an open connection.
	ErrNotConnected = errors.New("client: not connected")
	// ErrInvalidRoomCode is returned before anything is sent for a malformed code.
	ErrInvalidRoomCode = errors.New("client: invalid room code")
)

// Status is the lifecycle of the local room state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusJoining    Status = "joining"
	StatusJoined     Status = "joined"
	StatusError      Status = "error"
)

// State is a copy of the local room cache.
type State struct {
	Status        Status
	RoomID        string
	HostID        string
	Players       []proto.Player
	LocalPlayerID string
	LastError     *proto.Error
}

// IsHost reports whether the local player hosts the current room.
func (s State) IsHost() bool {
	return s.LocalPlayerID != "" && s.LocalPlayerID == s.HostID
}

func (s State) clone() State {
	out := s
	if s.Players != nil {
		out.Players = append([]proto.Player(nil), s.Players...)
	}
	if s.LastError != nil {
		e := *s.LastError
		out.LastError = &e
	}
	return out
}

// DefaultDialTimeout bounds the shared WebSocket handshake.
const DefaultDialTimeout = 10 * time.Second

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Client) { c.log = logger }
}

// WithHTTPClient sets the HTTP client used for the WebSocket handshake.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithDialTimeout bounds how long the shared handshake may take.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) { c.dialTimeout = d }
}

// Client talks to one server URL over a single WebSocket connection.
type Client struct {
	url         string
	httpClient  *http.Client
	dialTimeout time.Duration
	log        *zerolog.Logger
	dials      singleflight.Group

	mu          sync.Mutex
	conn        *websocket.Conn
	state       State
	nextID      int
	subscribers map[int]func(State)
	handlers    map[string]map[int]func(json.RawMessage)
}

// New creates a client for the given ws:// or wss:// URL. It does not dial.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:         url,
		dialTimeout: DefaultDialTimeout,
		state:       State{Status: StatusIdle},
		subscribers: make(map[int]func(State)),
		handlers:    make(map[string]map[int]func(json.RawMessage)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		nop := zerolog.Nop()
		c.log = &nop
	}
	return c
}

// State returns a copy of the local room cache.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe registers fn to receive every state change. The returned func
// removes it.
func (c *Client) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subscribers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// OnMessage registers fn for raw payloads of one server message type.
// Handlers run after the state cache has been updated.
func (c *Client) OnMessage(msgType string, fn func(payload json.RawMessage)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	if c.handlers[msgType] == nil {
		c.handlers[msgType] = make(map[int]func(json.RawMessage))
	}
	c.handlers[msgType][id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[msgType], id)
		if len(c.handlers[msgType]) == 0 {
			delete(c.handlers, msgType)
		}
	}
}

// Connect returns the open connection, dialing if needed. Concurrent callers
// share a single dial that does not depend on any caller's ctx; ctx only
// bounds how long this caller waits for it.
func (c *Client) Connect(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		return conn, nil
	}

	results := c.dials.DoChan("connect", func() (any, error) {
		c.mu.Lock()
		if c.conn != nil {
			conn := c.conn
			c.mu.Unlock()
			return conn, nil
		}
		c.mu.Unlock()

		c.update(func(s *State) { s.Status = StatusConnecting })
		dialCtx, cancel := context.WithTimeout(context.Background(), c.dialTimeout)
		defer cancel()
		conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{HTTPClient: c.httpClient})
		if err != nil {
			c.update(func(s *State) { s.Status = StatusIdle })
			return nil, fmt.Errorf("dial %s: %w", c.url, err)
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.update(func(s *State) { s.Status = StatusIdle })

		go c.readLoop(conn)
		c.log.Debug().Str("url", c.url).Msg("connected")
		return conn, nil
	})

	select {
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*websocket.Conn), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CreateRoom asks the server to create roomID with the local player as host.
func (c *Client) CreateRoom(ctx context.Context, roomID, name string) error {
	return c.enterRoom(ctx, proto.InboundTypeCreateRoom, roomID, name)
}

// JoinRoom asks the server to add the local player to roomID.
func (c *Client) JoinRoom(ctx context.Context, roomID, name string) error {
	return c.enterRoom(ctx, proto.InboundTypeJoinRoom, roomID, name)
}

func (c *Client) enterRoom(ctx context.Context, msgType, roomID, name string) error {
	code := validation.NormalizeRoomCode(roomID)
	if !validation.IsValidRoomCode(code) {
		return fmt.Errorf("%w: %q", ErrInvalidRoomCode, roomID)
	}
	if _, err := c.Connect(ctx); err != nil {
		return err
	}
	c.update(func(s *State) { s.Status = StatusJoining })
	return c.send(ctx, msgType, proto.RoomRequest{
		RoomID: code,
		Player: proto.PlayerInfo{Name: validation.SanitizeDisplayName(name)},
	})
}

// LeaveRoom leaves the current room. The server does not answer the leaver,
// so the local cache is reset right away. It is a no-op when not connected.
func (c *Client) LeaveRoom(ctx context.Context) error {
	if err := c.send(ctx, proto.InboundTypeLeaveRoom, nil); err != nil {
		if errors.Is(err, ErrNotConnected) {
			return nil
		}
		return err
	}
	c.update(resetRoom)
	return nil
}

// UpdatePlayer merges fields into the local player's state on the server.
func (c *Client) UpdatePlayer(ctx context.Context, fields map[string]any) error {
	return c.send(ctx, proto.InboundTypePlayerUpdate, proto.PlayerUpdate{State: fields})
}

// Close closes the connection; the read loop then moves the state to idle.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "client closing")
}

func (c *Client) send(ctx context.Context, msgType string, payload any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if err := wsjson.Write(ctx, conn, proto.Outbound{Type: msgType, Payload: payload}); err != nil {
		return fmt.Errorf("send %s: %w", msgType, err)
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	ctx := context.Background()
	for {
		var env proto.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			c.log.Debug().Err(err).Msg("connection closed")
			c.handleClose(conn)
			return
		}
		if err := c.apply(env); err != nil {
			c.log.Warn().Err(err).Str("type", env.Type).Msg("failed to apply server message")
		}
		c.dispatch(env)
	}
}

func (c *Client) apply(env proto.Envelope) error {
	switch env.Type {
	case proto.OutboundTypeRoomCreated, proto.OutboundTypeRoomUpdate:
		var payload proto.RoomPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return err
		}
		c.update(func(s *State) { applyRoom(s, payload.Room) })
	case proto.OutboundTypeRoomJoined:
		var payload proto.RoomJoinedPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return err
		}
		c.update(func(s *State) {
			applyRoom(s, payload.Room)
			s.LocalPlayerID = payload.PlayerID
			s.Status = StatusJoined
			s.LastError = nil
		})
	case proto.OutboundTypeRoomClosed:
		c.update(resetRoom)
	case proto.OutboundTypeRoomError:
		var payload proto.Error
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return err
		}
		c.update(func(s *State) {
			s.Status = StatusError
			s.LastError = &payload
		})
	}
	return nil
}

func (c *Client) handleClose(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	c.update(func(s *State) {
		if s.Status != StatusError {
			s.Status = StatusIdle
		}
	})
}

func (c *Client) dispatch(env proto.Envelope) {
	c.mu.Lock()
	handlers := make([]func(json.RawMessage), 0, len(c.handlers[env.Type]))
	for _, fn := range c.handlers[env.Type] {
		handlers = append(handlers, fn)
	}
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(env.Payload)
	}
}

// update mutates the cache and notifies subscribers outside the lock.
func (c *Client) update(fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	snapshot := c.state.clone()
	subscribers := make([]func(State), 0, len(c.subscribers))
	for _, sub := range c.subscribers {
		subscribers = append(subscribers, sub)
	}
	c.mu.Unlock()

	for _, sub := range subscribers {
		sub(snapshot)
	}
}

func applyRoom(s *State, room proto.Room) {
	s.RoomID = room.ID
	s.HostID = room.HostID
	s.Players = room.Players
}

func resetRoom(s *State) {
	*s = State{Status: StatusIdle}
}
