package api

import "encoding/json"

// Request and response bodies for the HTTP surface. Binding tags reject
// malformed input before any store access; device identifiers exclude ':'
// because it separates store key segments.

type createRoomRequest struct {
	DeviceID string `json:"device_id" binding:"required,max=128,excludesall=:"`
}

type createRoomResponse struct {
	RoomID string `json:"room_id"`
	Token  string `json:"token"`
}

type joinRoomRequest struct {
	DeviceID string `json:"device_id" binding:"required,max=128,excludesall=:"`
}

type joinRoomResponse struct {
	Token  string `json:"token"`
	HostID string `json:"host_id"`
}

type sendSignalRequest struct {
	From    string          `json:"from" binding:"required,max=128,excludesall=:"`
	To      string          `json:"to" binding:"required,max=128,excludesall=:"`
	Type    string          `json:"type" binding:"required,max=64"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}

type heartbeatRequest struct {
	DeviceID string `json:"device_id" binding:"required,max=128,excludesall=:"`
}

type participantResponse struct {
	DeviceID string `json:"device_id"`
	LastSeen string `json:"last_seen"`
	Role     string `json:"role"`
}
