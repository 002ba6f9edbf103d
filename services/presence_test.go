package services

import (
	"testing"
	"time"

	"signal-relay/domain"
	"signal-relay/errors"

	"github.com/stretchr/testify/require"
)

func Test_Heartbeat_Refreshes_Presence(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	created, err := stack.registry.CreateRoom("the-host")
	req.NoError(err)
	_, err = stack.registry.JoinRoom(created.RoomID, "the-peer")
	req.NoError(err)

	// Backdate the peer beyond the liveness window, then heartbeat.
	_, err = stack.participants.Upsert(domain.Participant{
		DeviceID: "the-peer", RoomID: created.RoomID,
		Role: domain.RolePeer, LastSeen: time.Now().UTC().Add(-5 * time.Minute),
	})
	req.NoError(err)

	present, err := stack.presence.ListPresent(created.RoomID)
	req.NoError(err)
	req.Len(present, 1) // only the host

	req.NoError(stack.presence.Heartbeat(created.RoomID, "the-peer"))

	present, err = stack.presence.ListPresent(created.RoomID)
	req.NoError(err)
	req.Len(present, 2)
}

func Test_Heartbeat_From_Unregistered_Device_Fails(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	created, err := stack.registry.CreateRoom("the-host")
	req.NoError(err)

	err = stack.presence.Heartbeat(created.RoomID, "never-joined")
	req.ErrorIs(err, errors.ErrParticipantNotFound)
}

func Test_Heartbeat_On_Closed_Room_Fails(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	created, err := stack.registry.CreateRoom("the-host")
	req.NoError(err)
	req.NoError(stack.registry.CloseRoom(created.RoomID, created.HostToken))

	err = stack.presence.Heartbeat(created.RoomID, "the-host")
	req.ErrorIs(err, errors.ErrRoomNotFound)
}

func Test_List_Present_Excludes_Silent_Participants(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	created, err := stack.registry.CreateRoom("the-host")
	req.NoError(err)

	// Registered two minutes ago: still a member, no longer present.
	_, err = stack.participants.Upsert(domain.Participant{
		DeviceID: "sleeper", RoomID: created.RoomID,
		Role: domain.RolePeer, LastSeen: time.Now().UTC().Add(-2 * time.Minute),
	})
	req.NoError(err)

	present, err := stack.presence.ListPresent(created.RoomID)
	req.NoError(err)
	req.Len(present, 1)
	req.Equal("the-host", present[0].DeviceID)

	// The row itself survives; only the derived view filters it.
	members, err := stack.participants.ListByRoom(created.RoomID)
	req.NoError(err)
	req.Len(members, 2)
}

func Test_List_Present_On_Unknown_Room_Is_Empty(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	present, err := stack.presence.ListPresent("000000")
	req.NoError(err)
	req.Empty(present)
}
