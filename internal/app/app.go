package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomsync-server/internal/config"
	"github.com/vovakirdan/roomsync-server/internal/core"
	"github.com/vovakirdan/roomsync-server/internal/store"
	"github.com/vovakirdan/roomsync-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/roomsync-server/internal/transport/http"
)

// App wires together core, storage and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	recorder        *store.AsyncRecorder
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}

	var (
		events   store.RoomEventStore
		recorder store.Recorder = store.NopRecorder{}
	)
	if cfg.DatabasePath != "" {
		st, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("room event log enabled")

		a.store = st
		a.recorder = store.NewAsyncRecorder(st, store.DefaultRecorderBuffer, logger)
		events = st
		recorder = a.recorder
	} else {
		logger.Info().Msg("room event log disabled")
	}

	a.hub = core.NewHub(core.NewRegistry(), recorder, logger)
	a.server = transporthttp.NewServer(a.hub, events, cfg, logger)
	return a, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hub.Run(hubCtx)

	var workers sync.WaitGroup
	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	if a.recorder != nil {
		workers.Add(1)
		go func() {
			defer workers.Done()
			a.recorder.Run(recorderCtx)
		}()
	}
	defer func() {
		stopRecorder()
		workers.Wait()
		a.cleanup()
	}()

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		// Let the hub settle disconnects before the event log is flushed.
		stopHub()
		select {
		case <-a.hub.Done():
		case <-shutdownCtx.Done():
		}
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
