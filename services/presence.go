package services

import (
	"time"

	"signal-relay/domain"
	"signal-relay/repositories"

	"github.com/samber/lo"
)

type IPresenceTracker interface {
	Heartbeat(roomID, deviceID string) error
	ListPresent(roomID string) ([]domain.Participant, error)
}

// PresenceTracker derives participant liveness from heartbeat recency.
// There is no disconnect signal in a polling protocol: a participant is
// "present" exactly when its last heartbeat falls within the liveness
// window, recomputed on every query.
type PresenceTracker struct {
	participants repositories.IParticipantRepository
	registry     IRoomRegistry
	window       time.Duration
}

// NewPresenceTracker wires the tracker. window must be larger than the
// client heartbeat cadence, or presence flaps on every missed poll.
func NewPresenceTracker(
	participants repositories.IParticipantRepository,
	registry IRoomRegistry,
	window time.Duration,
) *PresenceTracker {
	return &PresenceTracker{participants: participants, registry: registry, window: window}
}

// Heartbeat refreshes LastSeen for a registered participant of an open room.
// Unknown (room, device) pairs fail with ErrParticipantNotFound rather than
// silently succeeding, so an evicted device learns it must re-join.
func (p *PresenceTracker) Heartbeat(roomID, deviceID string) error {
	if err := validDeviceID(deviceID); err != nil {
		return err
	}
	if _, err := p.registry.GetOpenRoom(roomID); err != nil {
		return err
	}
	return p.participants.Touch(roomID, deviceID, time.Now().UTC())
}

// ListPresent returns the participants whose last heartbeat is within the
// liveness window. Registered-but-silent participants are filtered out here,
// not deleted; eviction handles deletion on its own, much longer, window.
func (p *PresenceTracker) ListPresent(roomID string) ([]domain.Participant, error) {
	participants, err := p.participants.ListByRoom(roomID)
	if err != nil {
		return nil, err
	}
	horizon := time.Now().UTC().Add(-p.window)
	return lo.Filter(participants, func(participant domain.Participant, _ int) bool {
		return participant.LastSeen.After(horizon)
	}), nil
}
