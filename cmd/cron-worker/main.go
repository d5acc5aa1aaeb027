package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/cartwatch-backend/internal/bootstrap"
	"github.com/angelmondragon/cartwatch-backend/internal/cron"
	"github.com/angelmondragon/cartwatch-backend/pkg/config"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
	"github.com/angelmondragon/cartwatch-backend/pkg/metrics"
)

const lockName = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	only := flag.String("jobs", "", "comma-separated job names to run (default all)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	app, err := bootstrap.New(context.Background(), bootstrap.Params{
		Config:     cfg,
		Logger:     logg,
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap services", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}()

	var lock cron.Lock
	if app.Redis != nil {
		redisLock, err := cron.NewRedisLock(app.Redis, lockName, cfg.Cron.LockTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create cron lock", err)
			os.Exit(1)
		}
		lock = redisLock
	} else {
		logg.Warn(context.Background(), "redis not configured, cron lock is process local")
		lock = cron.NewLocalLock()
	}

	registry, err := buildRegistry(cfg, logg, app)
	if err == nil && *only != "" {
		registry, err = registry.Only(strings.Split(*only, ",")...)
	}
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
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
		"interval":    cfg.Cron.Interval.String(),
		"jobs":        registry.Names(),
	})

	if *once {
		logg.Info(ctx, "running single cron cycle")
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, app *bootstrap.App) (*cron.Registry, error) {
	sweep, err := cron.NewCartSweepJob(cron.CartSweepJobParams{Logger: logg, Sweeper: app.Tracker})
	if err != nil {
		return nil, err
	}
	archive, err := cron.NewCartArchiveJob(cron.CartArchiveJobParams{
		Logger:           logg,
		Archiver:         app.Carts,
		Analytics:        app.Analytics,
		ArchiveAfterDays: cfg.Retention.ArchiveAfterDays,
		PurgeAfterDays:   cfg.Retention.PurgeAfterDays,
	})
	if err != nil {
		return nil, err
	}
	dispatch, err := cron.NewExportDispatchJob(cron.ExportDispatchJobParams{Logger: logg, Dispatcher: app.Schedules})
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(sweep, archive, dispatch)
}
