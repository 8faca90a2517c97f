package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomsync-server/internal/config"
	"github.com/vovakirdan/roomsync-server/internal/core"
	"github.com/vovakirdan/roomsync-server/internal/store"
)

// NewServer builds the HTTP server: the WebSocket endpoint on a plain mux,
// everything else on the gin router. events may be nil when the lifecycle
// log is disabled.
func NewServer(hub *core.Hub, events store.RoomEventStore, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	mux := stdhttp.NewServeMux()
	// gin's response writer cannot be hijacked by the WebSocket upgrade.
	mux.Handle("/ws", NewWSHandler(hub, cfg, logger))
	mux.Handle("/", newRouter(hub, events, cfg, logger))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func newRouter(hub *core.Hub, events store.RoomEventStore, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	rooms := NewRoomHandlers(hub, events, logger)
	api := router.Group("/api")
	{
		api.GET("/rooms", rooms.ListRooms)
		api.GET("/rooms/:id", rooms.GetRoom)
		api.GET("/rooms/:id/events", rooms.ListRoomEvents)
		if cfg.AdminAPI {
			api.DELETE("/rooms/:id", rooms.DestroyRoom)
		}
	}

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
