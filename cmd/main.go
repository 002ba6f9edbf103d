package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"signal-relay/api"
	"signal-relay/auth"
	"signal-relay/repositories"
	"signal-relay/services"
	"signal-relay/workers"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (the Badger close in
// particular) executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := newLogger(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Repositories & Services
	roomRepository := repositories.NewRoomRepository(db)
	participantRepository := repositories.NewParticipantRepository(db)
	signalRepository, err := repositories.NewSignalRepository(db, config.MailboxLimit)
	if err != nil {
		return err
	}
	defer func() { _ = signalRepository.Close() }()

	tokens := auth.NewTokens([]byte(config.TokenSecret), config.TokenTTL)
	sweeper := services.NewEvictionSweeper(
		signalRepository, participantRepository, roomRepository,
		config.SignalRetention, config.AbandonAfter, log,
	)
	registry := services.NewRoomRegistry(
		roomRepository, participantRepository, tokens, log, config.RoomCodeAttempts,
	)
	presence := services.NewPresenceTracker(participantRepository, registry, config.LivenessWindow)
	mailbox := services.NewSignalMailbox(
		signalRepository, registry, tokens, sweeper, config.SendSweepEvery,
	)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Background Eviction
	evictionWorker := workers.NewEvictionWorker(log, sweeper, config.SweepInterval)
	go func() {
		if err := evictionWorker.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("eviction worker stopped", "error", err)
		}
	}()

	// 6. HTTP Server Setup
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := api.NewServer(registry, presence, mailbox, log)
	httpServer := &http.Server{Addr: address, Handler: server.Router()}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	log.Info("Program stopped cleanly")

	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
