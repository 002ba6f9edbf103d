package main

import "time"

type Config struct {
	Host           string `env:"HOST,default=localhost"`
	Port           int    `env:"PORT,default=8080"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`

	TokenSecret string        `env:"TOKEN_SECRET,required=true"`
	TokenTTL    time.Duration `env:"TOKEN_TTL,default=24h"`

	// LivenessWindow must stay larger than the client heartbeat cadence or
	// presence flaps on missed polls.
	LivenessWindow  time.Duration `env:"LIVENESS_WINDOW,default=30s"`
	SignalRetention time.Duration `env:"SIGNAL_RETENTION,default=10m"`
	AbandonAfter    time.Duration `env:"PARTICIPANT_ABANDON_AFTER,default=1h"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL,default=1m"`

	// MailboxLimit caps undelivered signals per recipient; 0 disables.
	MailboxLimit int `env:"MAILBOX_LIMIT,default=256"`
	// SendSweepEvery triggers an inline eviction pass after every Nth send;
	// 0 leaves housekeeping to the scheduled worker alone.
	SendSweepEvery   int `env:"SEND_SWEEP_EVERY,default=10"`
	RoomCodeAttempts int `env:"ROOM_CODE_ATTEMPTS,default=5"`
}
