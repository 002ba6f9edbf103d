package services

import (
	"encoding/json"
	"testing"
	"time"

	"signal-relay/domain"
	"signal-relay/errors"

	"github.com/stretchr/testify/require"
)

func Test_Sweep_Evicts_Expired_Signals_And_Abandoned_Participants(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	created, err := stack.registry.CreateRoom("host-dev")
	req.NoError(err)
	now := time.Now().UTC()

	// One signal well past the 10 minute retention, one fresh.
	req.NoError(stack.signals.Append(domain.Signal{
		RoomID: created.RoomID, FromDevice: "host-dev", ToDevice: "peer-dev",
		Type: "offer", Payload: json.RawMessage(`"old"`), CreatedAt: now.Add(-30 * time.Minute),
	}))
	req.NoError(stack.signals.Append(domain.Signal{
		RoomID: created.RoomID, FromDevice: "host-dev", ToDevice: "peer-dev",
		Type: "offer", Payload: json.RawMessage(`"fresh"`), CreatedAt: now,
	}))

	// One participant silent past the 1 hour abandonment window.
	_, err = stack.participants.Upsert(domain.Participant{
		DeviceID: "gone-dev", RoomID: created.RoomID,
		Role: domain.RolePeer, LastSeen: now.Add(-2 * time.Hour),
	})
	req.NoError(err)

	stack.sweeper.Sweep()

	pending, err := stack.signals.FetchAndDelete(created.RoomID, "peer-dev")
	req.NoError(err)
	req.Len(pending, 1)
	req.Equal(json.RawMessage(`"fresh"`), pending[0].Payload)

	members, err := stack.participants.ListByRoom(created.RoomID)
	req.NoError(err)
	req.Len(members, 1)
	req.Equal("host-dev", members[0].DeviceID)
}

func Test_Sweep_Drops_Long_Closed_Rooms(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	created, err := stack.registry.CreateRoom("host-dev")
	req.NoError(err)
	req.NoError(stack.rooms.CloseRoom(created.RoomID, time.Now().UTC().Add(-2*time.Hour)))

	stack.sweeper.Sweep()

	_, err = stack.rooms.GetRoom(created.RoomID)
	req.ErrorIs(err, errors.ErrRoomNotFound)
}

func Test_Sweep_Leaves_Live_State_Alone(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	created, err := stack.registry.CreateRoom("host-dev")
	req.NoError(err)
	_, err = stack.registry.JoinRoom(created.RoomID, "peer-dev")
	req.NoError(err)

	stack.sweeper.Sweep()

	room, err := stack.rooms.GetRoom(created.RoomID)
	req.NoError(err)
	req.True(room.IsOpen())

	members, err := stack.participants.ListByRoom(created.RoomID)
	req.NoError(err)
	req.Len(members, 2)
}
