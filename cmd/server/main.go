package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/diewo77/invoice-totals/internal/cache"
	"github.com/diewo77/invoice-totals/internal/config"
	"github.com/diewo77/invoice-totals/internal/db"
	"github.com/diewo77/invoice-totals/internal/logging"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.App.LogLevel, cfg.App.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Open(cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}

	if *migrateOnlyFlag || cfg.App.Migrations {
		if err := db.Migrate(dbConn); err != nil {
			log.WithError(err).Fatal("migrate")
		}
		log.Info("migrations completed")
		if *migrateOnlyFlag {
			return
		}
	}

	store := cache.New(nil, cfg.Redis.TTL)
	if cfg.Redis.Enabled() {
		client, err := cache.Connect(ctx, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.WithError(err).Warn("redis unavailable, revenue is computed on every request")
		} else {
			defer client.Close()
			store = cache.New(client, cfg.Redis.TTL)
		}
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      NewApp(cfg, dbConn, store, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.WithFields(logrus.Fields{"addr": srv.Addr, "env": cfg.App.Env}).Info("server starting")
	if err := run(ctx, srv, cfg.Server.ShutdownTimeout, log); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
	log.Info("server stopped gracefully")
}

// run serves until ctx is canceled, then shuts srv down within timeout.
func run(ctx context.Context, srv *http.Server, timeout time.Duration, log logrus.FieldLogger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
