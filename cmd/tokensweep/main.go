// Command tokensweep deletes allowlist rows whose tokens have expired. It
// runs once and exits; schedule it daily.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-api/internal/infrastructure/config"
	"github.com/99minutos/accounts-api/internal/infrastructure/db/postgres"
	"github.com/99minutos/accounts-api/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Fatal().Err(err).Msg("tokensweep failed")
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadSweep(ctx)
	if err != nil {
		return err
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.Env != "production", Service: "tokensweep"})

	db, err := postgres.Connect(ctx, postgres.Config{URL: cfg.Postgres.URL})
	if err != nil {
		return err
	}
	defer db.Close()

	now := time.Now().UTC()
	purged, err := postgres.NewAllowlistRepository(db).PurgeExpired(ctx, now)
	if err != nil {
		return err
	}

	log.Info().Int64("purged", purged).Time("before", now).Msg("expired tokens removed from allowlist")
	return nil
}
