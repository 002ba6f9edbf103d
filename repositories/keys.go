package repositories

import (
	"fmt"
	"time"
)

// Key layout in BadgerDB. All rows of one kind share a prefix so that a
// single prefix scan enumerates them:
//
//	room:{room_id}                                    -> room row
//	prt:{room_id}:{device_id}                         -> participant row
//	sig:{room_id}:{to_device}:{created_ns}:{seq}      -> signal row
//
// The signal key embeds the creation timestamp zero-padded to 19 digits so
// lexicographic order is chronological order, and a 12-digit monotonic
// sequence number as a tiebreaker, giving a deterministic total order even
// when two signals share a nanosecond. Device and room identifiers are
// validated upstream to exclude ':' so prefixes never bleed into each other.

func roomKey(roomID string) []byte {
	return []byte("room:" + roomID)
}

func roomScanPrefix() []byte {
	return []byte("room:")
}

func participantKey(roomID, deviceID string) []byte {
	return []byte("prt:" + roomID + ":" + deviceID)
}

func participantRoomPrefix(roomID string) []byte {
	return []byte("prt:" + roomID + ":")
}

func participantScanPrefix() []byte {
	return []byte("prt:")
}

func signalKey(roomID, toDevice string, at time.Time, seq uint64) []byte {
	return []byte(fmt.Sprintf("sig:%s:%s:%019d:%012d", roomID, toDevice, at.UnixNano(), seq))
}

func signalRecipientPrefix(roomID, toDevice string) []byte {
	return []byte("sig:" + roomID + ":" + toDevice + ":")
}

func signalRoomPrefix(roomID string) []byte {
	return []byte("sig:" + roomID + ":")
}

func signalScanPrefix() []byte {
	return []byte("sig:")
}
