package services

import (
	"log/slog"
	"time"

	"signal-relay/repositories"
)

type Sweeper interface {
	Sweep()
}

// EvictionSweeper is the stateless housekeeping policy: drop signals past
// their retention window, participants silent past the abandonment window,
// and closed room rows past the same window. It is invoked both inline from
// the mailbox and on a schedule by the eviction worker.
type EvictionSweeper struct {
	signals         repositories.ISignalRepository
	participants    repositories.IParticipantRepository
	rooms           repositories.IRoomRepository
	signalRetention time.Duration
	abandonAfter    time.Duration
	log             *slog.Logger
}

func NewEvictionSweeper(
	signals repositories.ISignalRepository,
	participants repositories.IParticipantRepository,
	rooms repositories.IRoomRepository,
	signalRetention time.Duration,
	abandonAfter time.Duration,
	log *slog.Logger,
) *EvictionSweeper {
	return &EvictionSweeper{
		signals:         signals,
		participants:    participants,
		rooms:           rooms,
		signalRetention: signalRetention,
		abandonAfter:    abandonAfter,
		log:             log,
	}
}

// Sweep runs one eviction pass. Eviction is best-effort housekeeping: store
// errors are logged and swallowed, never surfaced, so a failing sweep can
// never break the request that happened to trigger it.
func (s *EvictionSweeper) Sweep() {
	now := time.Now().UTC()

	if deleted, err := s.signals.DeleteCreatedBefore(now.Add(-s.signalRetention)); err != nil {
		s.log.Error("signal eviction failed", "error", err)
	} else if deleted > 0 {
		s.log.Debug("evicted expired signals", "count", deleted)
	}

	if deleted, err := s.participants.DeleteLastSeenBefore(now.Add(-s.abandonAfter)); err != nil {
		s.log.Error("participant eviction failed", "error", err)
	} else if deleted > 0 {
		s.log.Debug("evicted abandoned participants", "count", deleted)
	}

	if deleted, err := s.rooms.DeleteClosedBefore(now.Add(-s.abandonAfter)); err != nil {
		s.log.Error("room eviction failed", "error", err)
	} else if deleted > 0 {
		s.log.Debug("evicted closed rooms", "count", deleted)
	}
}
