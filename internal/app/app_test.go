package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/roomsync-server/internal/client"
	"github.com/vovakirdan/roomsync-server/internal/config"
)

func TestNewWithoutEventLog(t *testing.T) {
	cfg := config.Default()
	logger := zerolog.Nop()

	a, err := New(&cfg, &logger)
	require.NoError(t, err)
	assert.Nil(t, a.store)
	assert.Nil(t, a.recorder)

	ts := httptest.NewServer(a.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/rooms/ABCD/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.ShutdownTimeout = time.Second
	cfg.DatabasePath = filepath.Join(t.TempDir(), "rooms.db")
	logger := zerolog.Nop()

	a, err := New(&cfg, &logger)
	require.NoError(t, err)
	require.NotNil(t, a.store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestHandlerServesWebSocket(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	logger := zerolog.Nop()

	a, err := New(&cfg, &logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	ts := httptest.NewServer(a.Handler())
	t.Cleanup(ts.Close)

	c := client.New(strings.Replace(ts.URL, "http", "ws", 1) + "/ws")
	t.Cleanup(func() { c.Close() })

	require.NoError(t, c.CreateRoom(context.Background(), "app1", "Alice"))
	require.Eventually(t, func() bool {
		st := c.State()
		return st.Status == client.StatusJoined && st.RoomID == "APP1"
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := ts.Client().Get(ts.URL + "/api/rooms/APP1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
