package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/roomsync-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndListRoomEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	seed := []store.RoomEvent{
		{RoomID: "ABCD", Kind: store.RoomEventCreated, ConnectionID: "c1", Members: 0},
		{RoomID: "ABCD", Kind: store.RoomEventJoined, ConnectionID: "c1", PlayerName: "Alice", Members: 1},
		{RoomID: "WXYZ", Kind: store.RoomEventCreated, ConnectionID: "c2", Members: 0},
		{RoomID: "ABCD", Kind: store.RoomEventClosed, Members: 0},
	}
	for i := range seed {
		seed[i].CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.InsertRoomEvent(ctx, &seed[i]))
		assert.NotZero(t, seed[i].ID)
	}

	events, err := s.ListRoomEvents(ctx, store.EventFilter{RoomID: "ABCD"})
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, store.RoomEventClosed, events[0].Kind)
	assert.Equal(t, store.RoomEventJoined, events[1].Kind)
	assert.Equal(t, "Alice", events[1].PlayerName)
	assert.Equal(t, 1, events[1].Members)
	assert.Equal(t, base.Add(time.Second).UnixMilli(), events[1].CreatedAt.UnixMilli())
	assert.Equal(t, store.RoomEventCreated, events[2].Kind)
}

func TestListRoomEventsLimitAndAllRooms(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"AAAA", "BBBB", "CCCC"} {
		require.NoError(t, s.InsertRoomEvent(ctx, &store.RoomEvent{RoomID: id, Kind: store.RoomEventCreated}))
	}

	events, err := s.ListRoomEvents(ctx, store.EventFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "CCCC", events[0].RoomID)
	assert.Equal(t, "BBBB", events[1].RoomID)
	assert.False(t, events[0].CreatedAt.IsZero())
}

func TestListRoomEventsUnknownRoom(t *testing.T) {
	s := newTestStore(t)

	events, err := s.ListRoomEvents(context.Background(), store.EventFilter{RoomID: "NOPE"})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestNewReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.db")
	ctx := context.Background()

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.InsertRoomEvent(ctx, &store.RoomEvent{RoomID: "ABCD", Kind: store.RoomEventCreated}))
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()

	events, err := s.ListRoomEvents(ctx, store.EventFilter{RoomID: "ABCD"})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
