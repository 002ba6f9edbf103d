package domain

import "time"

type Role string

const (
	RoleHost Role = "host"
	RolePeer Role = "peer"
)

// Participant is a device registered in a room, keyed by (DeviceID, RoomID).
// Role is set at first registration and never changes. Presence is not a
// stored flag: it is derived from LastSeen recency at query time.
type Participant struct {
	DeviceID string
	RoomID   string
	Role     Role
	LastSeen time.Time
}
