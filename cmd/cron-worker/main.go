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

	"github.com/orbsphere/orbzy-backend/internal/bookings"
	"github.com/orbsphere/orbzy-backend/internal/cron"
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

const serviceName = "cron-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = serviceName

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
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
	outboxRepo := outbox.NewRepository(dbClient.DB())
	engine, err := escalation.NewEngine(
		bookings.NewRepository(dbClient.DB()),
		dbClient,
		outbox.NewService(outboxRepo, logg),
		logg,
		escalation.Config{
			ResponseWindow:        cfg.Escalation.ResponseWindow,
			SweepConcurrency:      cfg.Escalation.SweepConcurrency,
			ManualRequiresOverdue: cfg.Escalation.ManualRequiresOverdue,
		},
		escalation.WithMetrics(metrics.NewEscalationMetrics(registry)),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create escalation engine", err)
		os.Exit(1)
	}

	escalationJob, err := cron.NewBookingEscalationJob(cron.BookingEscalationJobParams{
		Logger:  logg,
		Sweeper: engine,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create booking escalation job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:        logg,
		DB:            dbClient,
		Repository:    outboxRepo,
		RetentionDays: cfg.Outbox.RetentionDays,
		DeadAttempts:  cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	jobs := cron.NewRegistry(escalationJob, retentionJob)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Escalation.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   jobs,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(registry),
		Schedule:   cfg.Escalation.SweepSchedule,
		RunOnStart: cfg.App.IsDev(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"schedule":    cfg.Escalation.SweepSchedule,
		"jobs":        jobs.Names(),
		"instance":    instance.ID(),
	})
	logg.Info(ctx, "starting cron worker")

	if addr := cfg.App.MetricsAddr; addr != "" {
		metricsServer := metrics.NewServer(addr, registry)
		go func() {
			logg.Info(logg.WithField(ctx, "addr", addr), "serving metrics")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logg.Error(ctx, "metrics server stopped", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logg.Error(context.Background(), "metrics server shutdown failed", err)
			}
		}()
	}

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
