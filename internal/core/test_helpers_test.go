package core

import (
	"context"
	"testing"
	"time"

	"github.com/vovakirdan/roomsync-server/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// nextEvent returns the next event without skipping any.
func nextEvent(t *testing.T, ch <-chan *Event) *Event {
	t.Helper()

	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("no event received")
		return nil
	}
}

// expectQuiet fails if ch delivers anything within a short window.
func expectQuiet(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

// waitClosed drains ch until the hub closes it.
func waitClosed(t *testing.T, ch <-chan *Event) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("events channel not closed")
		}
	}
}

// recordingRecorder collects lifecycle events synchronously.
type recordingRecorder struct {
	events chan string
}

func (r *recordingRecorder) Record(ev store.RoomEvent) {
	r.events <- string(ev.Kind) + ":" + ev.RoomID
}

func startHub(t *testing.T) (*Hub, *recordingRecorder) {
	t.Helper()

	rec := &recordingRecorder{events: make(chan string, 256)}
	hub := NewHub(NewRegistry(), rec, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return hub, rec
}

func connect(hub *Hub, id string) *Client {
	c := NewClient(id, 16)
	hub.RegisterClient(c)
	return c
}
