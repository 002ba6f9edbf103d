// Package domain contains core concepts of the signaling relay.
// This file defines Room entities and their lifecycle invariants.
// No transport, storage, or scheduling logic should be added here.
package domain

import "time"

type RoomStatus string

const (
	RoomOpen   RoomStatus = "open"
	RoomClosed RoomStatus = "closed"
)

// Room is a rendezvous session identified by a short human-typable code.
// HostID never changes after creation. Open -> Closed is the only status
// transition and it is terminal.
type Room struct {
	ID        string
	HostID    string
	Status    RoomStatus
	CreatedAt time.Time
	ClosedAt  time.Time
}

func (r Room) IsOpen() bool {
	return r.Status == RoomOpen
}
