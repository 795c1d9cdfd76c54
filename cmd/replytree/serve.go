package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	commenthttp "github.com/MyNameIsWhaaat/replytree/internal/comment/handler/http"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/events"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/service"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/storage"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/storage/cache"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/storage/inmemory"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/storage/postgres"
	"github.com/MyNameIsWhaaat/replytree/internal/config"
	"github.com/MyNameIsWhaaat/replytree/internal/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the comments HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	log, closer, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	pub, err := openPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer pub.Close()

	svc := service.New(repo, pub, log)
	h := commenthttp.New(svc, log)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Str("storage", cfg.Storage.Driver).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return errors.Wrap(srv.Shutdown(shutdownCtx), "shutdown")
}

func openRepository(ctx context.Context, cfg config.Config, log zerolog.Logger) (storage.Repository, func(), error) {
	var (
		repo    storage.Repository
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Storage.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = db.Close() })

		pg := postgres.New(db)
		if err := pg.Migrate(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
		repo = pg
	default:
		repo = inmemory.New()
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = rdb.Close() })

		if err := rdb.Ping(ctx).Err(); err != nil {
			cleanup()
			return nil, nil, errors.Wrap(err, "ping redis")
		}
		repo = cache.New(repo, rdb, cfg.Redis.TTL, log)
	}

	return repo, cleanup, nil
}

func openPublisher(cfg config.Config, log zerolog.Logger) (events.Publisher, error) {
	if !cfg.AMQP.Enabled {
		return events.Noop{}, nil
	}
	pub, err := events.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
	if err != nil {
		return nil, err
	}
	log.Info().Str("exchange", cfg.AMQP.Exchange).Msg("publishing comment events")
	return pub, nil
}
