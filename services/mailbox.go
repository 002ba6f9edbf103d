package services

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"signal-relay/auth"
	"signal-relay/domain"
	"signal-relay/errors"
	"signal-relay/repositories"

	"github.com/samber/lo"
)

type ISignalMailbox interface {
	Send(cmd SendCommand) error
	Fetch(roomID, deviceID string) ([]domain.Message, error)
}

type SendCommand struct {
	RoomID     string
	FromDevice string
	ToDevice   string
	Type       string
	Payload    json.RawMessage
	Token      string
}

// SignalMailbox owns the per-recipient queue of undelivered signals.
// Delivery is fire-and-forget: a fetched batch the caller drops is gone.
type SignalMailbox struct {
	signals    repositories.ISignalRepository
	registry   IRoomRegistry
	tokens     *auth.Tokens
	sweeper    Sweeper
	sendCount  atomic.Uint64
	sweepEvery uint64
}

// NewSignalMailbox wires the mailbox. sweepEvery > 0 triggers a best-effort
// eviction sweep after every Nth send, on top of whatever schedule drives
// the sweeper externally; 0 disables the inline trigger.
func NewSignalMailbox(
	signals repositories.ISignalRepository,
	registry IRoomRegistry,
	tokens *auth.Tokens,
	sweeper Sweeper,
	sweepEvery int,
) *SignalMailbox {
	return &SignalMailbox{
		signals:    signals,
		registry:   registry,
		tokens:     tokens,
		sweeper:    sweeper,
		sweepEvery: uint64(sweepEvery),
	}
}

// Send appends one signal to the recipient's mailbox. The sender must hold a
// capability token matching (FromDevice, RoomID), and the room must still be
// open. There is no delivery confirmation.
func (m *SignalMailbox) Send(cmd SendCommand) error {
	if err := validDeviceID(cmd.FromDevice); err != nil {
		return err
	}
	if err := validDeviceID(cmd.ToDevice); err != nil {
		return err
	}
	if cmd.Type == "" || len(cmd.Payload) == 0 {
		return fmt.Errorf("%w: type and payload are required", errors.ErrValidation)
	}

	claims, err := m.tokens.Parse(cmd.Token)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	if claims.DeviceID != cmd.FromDevice || claims.RoomID != cmd.RoomID {
		return errors.ErrTokenMismatch
	}

	if _, err := m.registry.GetOpenRoom(cmd.RoomID); err != nil {
		return err
	}

	err = m.signals.Append(domain.Signal{
		RoomID:     cmd.RoomID,
		FromDevice: cmd.FromDevice,
		ToDevice:   cmd.ToDevice,
		Type:       cmd.Type,
		Payload:    cmd.Payload,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if m.sweepEvery > 0 && m.sendCount.Add(1)%m.sweepEvery == 0 {
		m.sweeper.Sweep()
	}
	return nil
}

// Fetch drains the recipient's mailbox: every pending signal is returned in
// creation order and consumed in the same transaction. An immediate second
// fetch returns an empty list. Fetching from a closed or unknown room is not
// an error, just empty, since closing a room already purged its signals.
func (m *SignalMailbox) Fetch(roomID, deviceID string) ([]domain.Message, error) {
	if err := validDeviceID(deviceID); err != nil {
		return nil, err
	}
	signals, err := m.signals.FetchAndDelete(roomID, deviceID)
	if err != nil {
		return nil, err
	}
	return lo.Map(signals, func(signal domain.Signal, _ int) domain.Message {
		return domain.Message{
			From:    signal.FromDevice,
			Type:    signal.Type,
			Payload: signal.Payload,
		}
	}), nil
}
