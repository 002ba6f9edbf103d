package api

import (
	"net/http"
	"time"

	"signal-relay/domain"
	"signal-relay/services"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

func (s *Server) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id required"})
		return
	}

	created, err := s.registry.CreateRoom(req.DeviceID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, createRoomResponse{
		RoomID: created.RoomID,
		Token:  created.HostToken,
	})
}

func (s *Server) joinRoom(c *gin.Context) {
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id required"})
		return
	}

	joined, err := s.registry.JoinRoom(c.Param("room_id"), req.DeviceID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, joinRoomResponse{
		Token:  joined.PeerToken,
		HostID: joined.HostID,
	})
}

func (s *Server) sendSignal(c *gin.Context) {
	var req sendSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from, to, type and payload are required"})
		return
	}

	err := s.mailbox.Send(services.SendCommand{
		RoomID:     c.Param("room_id"),
		FromDevice: req.From,
		ToDevice:   req.To,
		Type:       req.Type,
		Payload:    req.Payload,
		Token:      bearerToken(c),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

func (s *Server) fetchSignals(c *gin.Context) {
	deviceID := c.Query("device_id")
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id query param required"})
		return
	}

	messages, err := s.mailbox.Fetch(c.Param("room_id"), deviceID)
	if err != nil {
		s.fail(c, err)
		return
	}
	// An idle poll yields [], never null.
	if messages == nil {
		messages = []domain.Message{}
	}
	c.JSON(http.StatusOK, messages)
}

func (s *Server) heartbeat(c *gin.Context) {
	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id required"})
		return
	}

	if err := s.presence.Heartbeat(c.Param("room_id"), req.DeviceID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) listParticipants(c *gin.Context) {
	participants, err := s.presence.ListPresent(c.Param("room_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(participants, func(p domain.Participant, _ int) participantResponse {
		return participantResponse{
			DeviceID: p.DeviceID,
			LastSeen: p.LastSeen.Format(time.RFC3339),
			Role:     string(p.Role),
		}
	}))
}

func (s *Server) closeRoom(c *gin.Context) {
	if err := s.registry.CloseRoom(c.Param("room_id"), bearerToken(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}
