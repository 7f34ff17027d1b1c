package app

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

// Run is the CLI entrypoint used by cmd/fairdrop.
// It returns an error instead of calling os.Exit to keep defers effective and
// lint clean.
func Run() error {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := LoadConfig()
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	if err := ValidateSecurityConfig(cfg); err != nil {
		return err
	}

	a, err := New(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.Run(ctx)
}
