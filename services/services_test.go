package services

import (
	"log/slog"
	"testing"
	"time"

	"signal-relay/auth"
	"signal-relay/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

// testStack wires the full service stack over a throwaway Badger store,
// mirroring the production wiring in cmd/main.go.
type testStack struct {
	rooms        repositories.RoomRepository
	participants repositories.ParticipantRepository
	signals      repositories.SignalRepository
	tokens       *auth.Tokens
	registry     *RoomRegistry
	presence     *PresenceTracker
	mailbox      *SignalMailbox
	sweeper      *EvictionSweeper
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rooms := repositories.NewRoomRepository(db)
	participants := repositories.NewParticipantRepository(db)
	signals, err := repositories.NewSignalRepository(db, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = signals.Close() })

	log := slog.Default()
	tokens := auth.NewTokens([]byte("test-secret"), time.Hour)
	sweeper := NewEvictionSweeper(signals, participants, rooms, 10*time.Minute, time.Hour, log)
	registry := NewRoomRegistry(rooms, participants, tokens, log, 5)
	presence := NewPresenceTracker(participants, registry, 30*time.Second)
	mailbox := NewSignalMailbox(signals, registry, tokens, sweeper, 0)

	return &testStack{
		rooms:        rooms,
		participants: participants,
		signals:      signals,
		tokens:       tokens,
		registry:     registry,
		presence:     presence,
		mailbox:      mailbox,
		sweeper:      sweeper,
	}
}
