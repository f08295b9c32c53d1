package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-api/internal/api"
	"github.com/99minutos/accounts-api/internal/api/handler"
	"github.com/99minutos/accounts-api/internal/core/ports"
	"github.com/99minutos/accounts-api/internal/core/service"
	"github.com/99minutos/accounts-api/internal/infrastructure/config"
	mongostore "github.com/99minutos/accounts-api/internal/infrastructure/db/mongo"
	"github.com/99minutos/accounts-api/internal/infrastructure/db/postgres"
	redisstore "github.com/99minutos/accounts-api/internal/infrastructure/db/redis"
	"github.com/99minutos/accounts-api/internal/infrastructure/queue"
	"github.com/99minutos/accounts-api/internal/infrastructure/security"
	"github.com/99minutos/accounts-api/internal/infrastructure/storage/s3store"
	"github.com/99minutos/accounts-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Fatal().Err(err).Msg("accounts-api stopped")
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: !cfg.Production(), Service: "accounts-api"})

	// --- Stores ---
	db, err := postgres.Connect(ctx, postgres.Config{URL: cfg.Postgres.URL})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	checks := map[string]handler.DependencyCheck{
		"postgres": db.PingContext,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}

	storage, blobs, closeStorage, err := openAvatarStorage(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer closeStorage()

	hasher, err := security.NewHasher(cfg.PasswordHasher)
	if err != nil {
		return err
	}

	// --- Core services ---
	users := postgres.NewUserRepository(db)
	allowlist := postgres.NewAllowlistRepository(db)
	issuer := service.NewJWTIssuer(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Audience)

	variants := service.NewAvatarVariantService(users, storage, log)
	dispatcher := queue.NewDispatcher(cfg.Avatars.Workers, variants, log)
	dispatcher.Start(ctx)

	sessions := service.NewSessionService(users, allowlist, issuer, hasher, log)
	accounts := service.NewAccountService(users, sessions, hasher, storage, dispatcher, log)
	directory := service.NewDirectoryService(users, storage)
	passwords := service.NewPasswordService(
		users,
		redisstore.NewResetTokenStore(rdb, cfg.ResetTokenTTL),
		redisstore.NewResetNotifier(rdb),
		hasher,
		sessions,
		log,
	)

	e := api.NewRouter(api.Dependencies{
		Log:         log,
		Sessions:    sessions,
		Accounts:    accounts,
		Directory:   directory,
		Passwords:   passwords,
		Blobs:       blobs,
		Checks:      checks,
		PageSize:    cfg.PageSize,
		MaxPageSize: cfg.MaxPageSize,
	})

	// --- Serve ---
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("avatar_storage", cfg.Avatars.Storage).Msg("accounts-api listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openAvatarStorage selects the configured blob backend. blobs is non-nil
// only when the API itself must serve the files.
func openAvatarStorage(ctx context.Context, cfg *config.Config, checks map[string]handler.DependencyCheck) (storage, blobs ports.AvatarStorage, closeFn func(), err error) {
	if cfg.Avatars.Storage == config.AvatarStorageS3 {
		store, err := s3store.New(ctx, s3store.Config{
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			URLTTL:    cfg.Avatars.URLTTL,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, func() {}, nil
	}

	client, mdb, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn = func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = client.Disconnect(dctx)
	}

	bucket, err := mongostore.NewAvatarBucket(mdb)
	if err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	checks["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	return bucket, bucket, closeFn, nil
}
