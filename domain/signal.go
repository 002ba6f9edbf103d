package domain

import (
	"encoding/json"
	"time"
)

// Signal is one opaque handshake message (offer, answer, candidate, ...)
// relayed from one device to another within a room. The relay never
// interprets Payload; it is stored and delivered verbatim.
type Signal struct {
	RoomID     string
	FromDevice string
	ToDevice   string
	Type       string
	Payload    json.RawMessage
	CreatedAt  time.Time
}

// Message is the delivered view of a signal, as returned to a polling
// recipient. Delivery consumes the underlying signal, so a Message exists
// for exactly one fetch result.
type Message struct {
	From    string          `json:"from"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
