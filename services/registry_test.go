package services

import (
	"regexp"
	"testing"

	"signal-relay/errors"

	"github.com/stretchr/testify/require"
)

func Test_Create_Room_Returns_Distinct_Six_Digit_Codes(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	codePattern := regexp.MustCompile(`^\d{6}$`)
	seen := make(map[string]bool)
	for i := 0; i < 25; i++ {
		created, err := stack.registry.CreateRoom("host-device")
		req.NoError(err)
		req.Regexp(codePattern, created.RoomID)
		req.False(seen[created.RoomID], "room code %s issued twice", created.RoomID)
		seen[created.RoomID] = true
		req.NotEmpty(created.HostToken)
	}
}

func Test_Create_Room_Exhausts_After_Repeated_Collisions(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	// Force every attempt onto the same code.
	stack.registry.newCode = func() string { return "123456" }

	_, err := stack.registry.CreateRoom("first-host")
	req.NoError(err)

	_, err = stack.registry.CreateRoom("second-host")
	req.ErrorIs(err, errors.ErrRoomCreationExhausted)
}

func Test_Create_Room_Rejects_Invalid_Device_ID(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	_, err := stack.registry.CreateRoom("")
	req.ErrorIs(err, errors.ErrValidation)

	_, err = stack.registry.CreateRoom("has:separator")
	req.ErrorIs(err, errors.ErrValidation)
}

func Test_Join_Returns_Host_Identity(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	created, err := stack.registry.CreateRoom("the-host")
	req.NoError(err)

	joined, err := stack.registry.JoinRoom(created.RoomID, "the-peer")
	req.NoError(err)
	req.Equal("the-host", joined.HostID)
	req.NotEmpty(joined.PeerToken)
}

func Test_Join_Unknown_Room_Fails_Without_Side_Effects(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	_, err := stack.registry.JoinRoom("000000", "peer-device")
	req.ErrorIs(err, errors.ErrRoomNotFound)

	// A failed join must not leave a participant row behind.
	members, err := stack.participants.ListByRoom("000000")
	req.NoError(err)
	req.Empty(members)
}

func Test_Join_Closed_Room_Fails(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	created, err := stack.registry.CreateRoom("the-host")
	req.NoError(err)
	req.NoError(stack.registry.CloseRoom(created.RoomID, created.HostToken))

	_, err = stack.registry.JoinRoom(created.RoomID, "late-peer")
	req.ErrorIs(err, errors.ErrRoomNotFound)
}

func Test_Host_Rejoining_Keeps_Host_Role(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	created, err := stack.registry.CreateRoom("the-host")
	req.NoError(err)

	_, err = stack.registry.JoinRoom(created.RoomID, "the-host")
	req.NoError(err)

	members, err := stack.participants.ListByRoom(created.RoomID)
	req.NoError(err)
	req.Len(members, 1)
	req.Equal("host", string(members[0].Role))
}

func Test_Close_Requires_A_Host_Token_For_That_Room(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	created, err := stack.registry.CreateRoom("the-host")
	req.NoError(err)
	joined, err := stack.registry.JoinRoom(created.RoomID, "the-peer")
	req.NoError(err)

	// A peer token cannot close the room.
	err = stack.registry.CloseRoom(created.RoomID, joined.PeerToken)
	req.ErrorIs(err, errors.ErrTokenMismatch)

	// Neither can a host token for a different room.
	other, err := stack.registry.CreateRoom("other-host")
	req.NoError(err)
	err = stack.registry.CloseRoom(created.RoomID, other.HostToken)
	req.ErrorIs(err, errors.ErrTokenMismatch)

	// Garbage is a validation failure, not a crash.
	err = stack.registry.CloseRoom(created.RoomID, "not-a-token")
	req.ErrorIs(err, errors.ErrValidation)

	req.NoError(stack.registry.CloseRoom(created.RoomID, created.HostToken))
}
