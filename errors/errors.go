package errors

import "fmt"

var (
	ErrRoomNotFound          = fmt.Errorf("room not found or closed")
	ErrRoomCodeTaken         = fmt.Errorf("room code already in use")
	ErrRoomCreationExhausted = fmt.Errorf("room code space exhausted")
	ErrParticipantNotFound   = fmt.Errorf("participant not registered in room")
	ErrMailboxFull           = fmt.Errorf("recipient mailbox is full")
	ErrValidation            = fmt.Errorf("invalid request")
	ErrTokenMismatch         = fmt.Errorf("token does not match claimed identity")
	ErrTokenGeneration       = fmt.Errorf("token generation failed")
)
