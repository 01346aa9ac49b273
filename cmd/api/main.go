package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/orbsphere/orbzy-backend/api/routes"
	"github.com/orbsphere/orbzy-backend/internal/bookings"
	"github.com/orbsphere/orbzy-backend/internal/escalation"
	"github.com/orbsphere/orbzy-backend/pkg/config"
	"github.com/orbsphere/orbzy-backend/pkg/db"
	"github.com/orbsphere/orbzy-backend/pkg/instance"
	"github.com/orbsphere/orbzy-backend/pkg/logger"
	"github.com/orbsphere/orbzy-backend/pkg/metrics"
	"github.com/orbsphere/orbzy-backend/pkg/migrate"
	"github.com/orbsphere/orbzy-backend/pkg/outbox"
	"github.com/orbsphere/orbzy-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		File: logger.FileOptions{
			Path:       cfg.App.LogFile,
			MaxSizeMB:  cfg.App.LogMaxSizeMB,
			MaxBackups: cfg.App.LogMaxBackups,
			MaxAgeDays: cfg.App.LogMaxAgeDays,
		},
	})
	defer logg.Close()

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := metrics.NewRegistry()

	bookingRepo := bookings.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	bookingService, err := bookings.NewService(bookingRepo, dbClient, outboxService, cfg.Escalation.ResponseWindow)
	if err != nil {
		logg.Error(context.Background(), "failed to create booking service", err)
		os.Exit(1)
	}

	engine, err := escalation.NewEngine(bookingRepo, dbClient, outboxService, logg, escalation.Config{
		ResponseWindow:        cfg.Escalation.ResponseWindow,
		SweepConcurrency:      cfg.Escalation.SweepConcurrency,
		ManualRequiresOverdue: cfg.Escalation.ManualRequiresOverdue,
	}, escalation.WithMetrics(metrics.NewEscalationMetrics(registry)))
	if err != nil {
		logg.Error(context.Background(), "failed to create escalation engine", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":             cfg.App.Env,
		"addr":            addr,
		"response_window": cfg.Escalation.ResponseWindow.String(),
		"instance":        instance.ID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:           cfg,
			Logger:           logg,
			DBPinger:         dbClient,
			RedisPinger:      redisClient,
			IdempotencyStore: redisClient,
			RateLimiter:      redisClient,
			Gatherer:         registry,
			Bookings:         bookingService,
			Escalator:        engine,
			Sweeper:          engine,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}
