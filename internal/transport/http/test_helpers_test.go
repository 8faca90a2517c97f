package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/roomsync-server/internal/config"
	"github.com/vovakirdan/roomsync-server/internal/core"
	"github.com/vovakirdan/roomsync-server/internal/proto"
	"github.com/vovakirdan/roomsync-server/internal/store"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	return cfg
}

// startTestServer runs a hub and the HTTP router behind httptest.
func startTestServer(t *testing.T, cfg config.Config, events store.RoomEventStore, recorder store.Recorder) (*httptest.Server, *core.Hub) {
	t.Helper()

	logger := zerolog.Nop()
	hub := core.NewHub(core.NewRegistry(), recorder, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := NewServer(hub, events, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, hub
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, proto.Outbound{Type: typ, Payload: payload}))
}

func sendRaw(t *testing.T, conn *websocket.Conn, data string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(data)))
}

// read returns the next server message and checks its type.
func read(t *testing.T, conn *websocket.Conn, wantType string) proto.Envelope {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var env proto.Envelope
	require.NoError(t, wsjson.Read(ctx, conn, &env))
	require.Equal(t, wantType, env.Type, "payload: %s", env.Payload)
	return env
}

func readRoom(t *testing.T, conn *websocket.Conn, wantType string) proto.Room {
	t.Helper()

	var payload proto.RoomPayload
	require.NoError(t, json.Unmarshal(read(t, conn, wantType).Payload, &payload))
	return payload.Room
}

func readJoined(t *testing.T, conn *websocket.Conn) proto.RoomJoinedPayload {
	t.Helper()

	var payload proto.RoomJoinedPayload
	require.NoError(t, json.Unmarshal(read(t, conn, proto.OutboundTypeRoomJoined).Payload, &payload))
	return payload
}

func readError(t *testing.T, conn *websocket.Conn) proto.Error {
	t.Helper()

	var payload proto.Error
	require.NoError(t, json.Unmarshal(read(t, conn, proto.OutboundTypeRoomError).Payload, &payload))
	return payload
}

func roomRequest(roomID, name string) proto.RoomRequest {
	return proto.RoomRequest{RoomID: roomID, Player: proto.PlayerInfo{Name: name}}
}

// createRoom creates roomID over conn and consumes the creator's replies.
func createRoom(t *testing.T, conn *websocket.Conn, roomID, name string) proto.RoomJoinedPayload {
	t.Helper()

	send(t, conn, proto.InboundTypeCreateRoom, roomRequest(roomID, name))
	readRoom(t, conn, proto.OutboundTypeRoomCreated)
	joined := readJoined(t, conn)
	readRoom(t, conn, proto.OutboundTypeRoomUpdate)
	return joined
}

// joinRoom joins roomID over conn and consumes the joiner's replies.
func joinRoom(t *testing.T, conn *websocket.Conn, roomID, name string) proto.RoomJoinedPayload {
	t.Helper()

	send(t, conn, proto.InboundTypeJoinRoom, roomRequest(roomID, name))
	joined := readJoined(t, conn)
	readRoom(t, conn, proto.OutboundTypeRoomUpdate)
	return joined
}
