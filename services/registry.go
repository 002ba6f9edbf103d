package services

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"signal-relay/auth"
	"signal-relay/domain"
	"signal-relay/errors"
	"signal-relay/repositories"
)

type IRoomRegistry interface {
	CreateRoom(hostDeviceID string) (CreatedRoom, error)
	JoinRoom(roomID, deviceID string) (JoinedRoom, error)
	CloseRoom(roomID, token string) error
	GetOpenRoom(roomID string) (domain.Room, error)
}

type CreatedRoom struct {
	RoomID    string
	HostToken string
}

type JoinedRoom struct {
	PeerToken string
	HostID    string
}

type RoomRegistry struct {
	rooms        repositories.IRoomRepository
	participants repositories.IParticipantRepository
	tokens       *auth.Tokens
	log          *slog.Logger
	codeAttempts int
	newCode      func() string
}

func NewRoomRegistry(
	rooms repositories.IRoomRepository,
	participants repositories.IParticipantRepository,
	tokens *auth.Tokens,
	log *slog.Logger,
	codeAttempts int,
) *RoomRegistry {
	return &RoomRegistry{
		rooms:        rooms,
		participants: participants,
		tokens:       tokens,
		log:          log,
		codeAttempts: codeAttempts,
		newCode:      newRoomCode,
	}
}

// newRoomCode draws a 6-digit numeric code. The code only needs to be short
// enough to read aloud or type; the capability token is the actual secret.
func newRoomCode() string {
	return fmt.Sprintf("%06d", rand.Intn(1_000_000))
}

// CreateRoom opens a new room and registers the caller as its host, then
// issues the host capability token. Code generation retries on collision up
// to codeAttempts times before giving up with ErrRoomCreationExhausted; the
// keyspace is a million codes, so repeated collisions mean the store is
// saturated with live rooms.
func (r *RoomRegistry) CreateRoom(hostDeviceID string) (CreatedRoom, error) {
	if err := validDeviceID(hostDeviceID); err != nil {
		return CreatedRoom{}, err
	}

	for attempt := 0; attempt < r.codeAttempts; attempt++ {
		code := r.newCode()
		now := time.Now().UTC()
		room := domain.Room{
			ID:        code,
			HostID:    hostDeviceID,
			Status:    domain.RoomOpen,
			CreatedAt: now,
		}
		host := domain.Participant{
			DeviceID: hostDeviceID,
			RoomID:   code,
			Role:     domain.RoleHost,
			LastSeen: now,
		}

		err := r.rooms.CreateRoom(room, host)
		if stderrors.Is(err, errors.ErrRoomCodeTaken) {
			r.log.Warn("room code collision", "attempt", attempt+1)
			continue
		}
		if err != nil {
			return CreatedRoom{}, err
		}

		token, err := r.tokens.Issue(domain.RoleHost, hostDeviceID, code)
		if err != nil {
			return CreatedRoom{}, fmt.Errorf("%w: %v", errors.ErrTokenGeneration, err)
		}
		return CreatedRoom{RoomID: code, HostToken: token}, nil
	}
	return CreatedRoom{}, errors.ErrRoomCreationExhausted
}

// JoinRoom registers the device as a peer of an open room and issues its
// capability token. The openness check and the registration share one store
// transaction, so a concurrent close cannot slip a participant row into a
// closed room. Re-joining refreshes LastSeen without touching the stored
// role, so a host calling join on its own room keeps the host role and gets
// a host token back.
func (r *RoomRegistry) JoinRoom(roomID, deviceID string) (JoinedRoom, error) {
	if err := validDeviceID(deviceID); err != nil {
		return JoinedRoom{}, err
	}

	stored, room, err := r.participants.UpsertInOpenRoom(domain.Participant{
		DeviceID: deviceID,
		RoomID:   roomID,
		Role:     domain.RolePeer,
		LastSeen: time.Now().UTC(),
	})
	if err != nil {
		return JoinedRoom{}, err
	}

	token, err := r.tokens.Issue(stored.Role, deviceID, roomID)
	if err != nil {
		return JoinedRoom{}, fmt.Errorf("%w: %v", errors.ErrTokenGeneration, err)
	}
	return JoinedRoom{PeerToken: token, HostID: room.HostID}, nil
}

// CloseRoom closes the room and drops all of its participants and pending
// signals. Only the holder of a host token for this room may close it.
// Idempotent: closing an unknown or already-closed room still succeeds.
func (r *RoomRegistry) CloseRoom(roomID, token string) error {
	claims, err := r.tokens.Parse(token)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	if claims.RoomID != roomID || claims.Role != string(domain.RoleHost) {
		return errors.ErrTokenMismatch
	}
	return r.rooms.CloseRoom(roomID, time.Now().UTC())
}

// GetOpenRoom returns the room when it exists and is still open. A closed
// room is reported exactly like a missing one; callers cannot distinguish
// them and do not need to.
func (r *RoomRegistry) GetOpenRoom(roomID string) (domain.Room, error) {
	room, err := r.rooms.GetRoom(roomID)
	if err != nil {
		return domain.Room{}, err
	}
	if !room.IsOpen() {
		return domain.Room{}, errors.ErrRoomNotFound
	}
	return room, nil
}
