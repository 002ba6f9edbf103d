// Package api binds the relay's operations to an HTTP polling surface.
// It only parses requests, dispatches to the services, and maps errors to
// status codes; all room, presence, and mailbox semantics live below it.
package api

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"

	"signal-relay/errors"
	"signal-relay/services"

	"github.com/gin-gonic/gin"
)

type Server struct {
	registry services.IRoomRegistry
	presence services.IPresenceTracker
	mailbox  services.ISignalMailbox
	log      *slog.Logger
}

func NewServer(
	registry services.IRoomRegistry,
	presence services.IPresenceTracker,
	mailbox services.ISignalMailbox,
	log *slog.Logger,
) *Server {
	return &Server{registry: registry, presence: presence, mailbox: mailbox, log: log}
}

// Router builds the route table. The paths mirror the polling protocol the
// PWA client already speaks.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), cors())

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "P2P signaling relay is running.")
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/rooms", s.createRoom)
	rooms := router.Group("/rooms/:room_id")
	{
		rooms.POST("/join", s.joinRoom)
		rooms.POST("/signal", s.sendSignal)
		rooms.GET("/signal", s.fetchSignals)
		rooms.POST("/heartbeat", s.heartbeat)
		rooms.GET("/participants", s.listParticipants)
		rooms.POST("/close", s.closeRoom)
	}
	return router
}

// cors permits any origin: the relay fronts a public PWA and carries no
// browser-ambient credentials, capability tokens travel explicitly.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Header("Access-Control-Allow-Methods", "GET,PUT,POST,DELETE,OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// bearerToken extracts the capability token from the Authorization header.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	return strings.TrimPrefix(header, "Bearer ")
}

// fail maps the service error taxonomy onto HTTP statuses so clients can
// tell the classes apart programmatically.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case stderrors.Is(err, errors.ErrValidation), stderrors.Is(err, errors.ErrTokenMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case stderrors.Is(err, errors.ErrRoomNotFound), stderrors.Is(err, errors.ErrParticipantNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case stderrors.Is(err, errors.ErrMailboxFull):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case stderrors.Is(err, errors.ErrRoomCreationExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed on store error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
