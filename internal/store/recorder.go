package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultRecorderBuffer is the queue length of an AsyncRecorder.
const DefaultRecorderBuffer = 256

const writeTimeout = 2 * time.Second

// AsyncRecorder queues lifecycle events and writes them from a single worker.
// Record never blocks: when the queue is full the event is dropped.
type AsyncRecorder struct {
	events RoomEventStore
	queue  chan RoomEvent
	log    *zerolog.Logger
}

// NewAsyncRecorder builds a recorder writing into events.
func NewAsyncRecorder(events RoomEventStore, buffer int, logger *zerolog.Logger) *AsyncRecorder {
	if buffer <= 0 {
		buffer = DefaultRecorderBuffer
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &AsyncRecorder{
		events: events,
		queue:  make(chan RoomEvent, buffer),
		log:    logger,
	}
}

// Record implements Recorder.
func (r *AsyncRecorder) Record(ev RoomEvent) {
	select {
	case r.queue <- ev:
	default:
		r.log.Warn().Str("room_id", ev.RoomID).Str("kind", string(ev.Kind)).Msg("room event queue full, dropping event")
	}
}

// Run writes queued events until ctx is cancelled, then flushes what is left.
func (r *AsyncRecorder) Run(ctx context.Context) {
	for {
		select {
		case ev := <-r.queue:
			r.write(ctx, ev)
		case <-ctx.Done():
			r.flush(ctx)
			return
		}
	}
}

func (r *AsyncRecorder) flush(ctx context.Context) {
	for {
		select {
		case ev := <-r.queue:
			r.write(ctx, ev)
		default:
			return
		}
	}
}

// write outlives cancellation of ctx so queued events still land during shutdown.
func (r *AsyncRecorder) write(ctx context.Context, ev RoomEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := r.events.InsertRoomEvent(ctx, &ev); err != nil {
		r.log.Error().Err(err).Str("room_id", ev.RoomID).Str("kind", string(ev.Kind)).Msg("failed to record room event")
	}
}
