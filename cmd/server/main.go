package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yangfam/familyhub/internal/config"
	"github.com/yangfam/familyhub/internal/database"
	"github.com/yangfam/familyhub/internal/migrations"
	"github.com/yangfam/familyhub/internal/notify"
	"github.com/yangfam/familyhub/internal/rtdb"
	"github.com/yangfam/familyhub/internal/server"
	"github.com/yangfam/familyhub/internal/upload"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- Tree store ---
	store, checks, cleanup, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	store = rtdb.WithMetrics(store, prometheus.DefaultRegisterer)

	// --- Uploads ---
	uploader, err := openUploader(ctx, cfg)
	if err != nil {
		return err
	}

	// --- Push notifications ---
	var notifier *notify.Client
	if cfg.PushEndpoint != "" {
		notifier = notify.New(cfg.PushEndpoint, store, logger)
	}

	// --- App ---
	app := server.NewApp(store, notifier, uploader)
	app.Connect()
	defer app.Close()

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, app, checks, cfg.SPADir)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

// openStore opens the configured tree store backend and returns it with
// the matching health checks and a cleanup func for the underlying
// connection.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (rtdb.Store, map[string]server.Checker, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		logger.Info("using in-memory store")
		store := rtdb.NewMemoryStore()
		return store, map[string]server.Checker{}, func() { store.Close() }, nil

	case "sqlite":
		db, err := database.Open(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connecting to sqlite: %w", err)
		}
		if err := migrations.Run(db); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("connected to sqlite", "path", cfg.DBPath)
		store := rtdb.NewSQLiteStore(db)
		checks := map[string]server.Checker{
			"sqlite": func(ctx context.Context) error { return db.PingContext(ctx) },
		}
		return store, checks, func() { store.Close(); db.Close() }, nil

	case "redis":
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parsing redis url: %w", err)
		}
		rdb := redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, nil, fmt.Errorf("pinging redis: %w", err)
		}
		logger.Info("connected to redis")
		store := rtdb.NewRedisStore(rdb)
		checks := map[string]server.Checker{
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}
		return store, checks, func() { store.Close(); rdb.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func openUploader(ctx context.Context, cfg *config.Config) (upload.Uploader, error) {
	switch cfg.UploadDriver {
	case "imagehost":
		if cfg.ImageHostKey == "" {
			return nil, nil
		}
		return upload.NewImageHost(cfg.ImageHostURL, cfg.ImageHostKey), nil

	case "s3":
		s3, err := upload.NewS3(ctx, upload.S3Config{
			Region:   cfg.S3Region,
			Bucket:   cfg.S3Bucket,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("configuring s3 uploads: %w", err)
		}
		return s3, nil

	default:
		return nil, fmt.Errorf("unknown upload driver %q", cfg.UploadDriver)
	}
}
