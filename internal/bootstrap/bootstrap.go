// Package bootstrap assembles the shared service graph used by the api and
// cron-worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/cartwatch-backend/internal/analytics"
	"github.com/angelmondragon/cartwatch-backend/internal/cart"
	"github.com/angelmondragon/cartwatch-backend/internal/export"
	"github.com/angelmondragon/cartwatch-backend/internal/schedules"
	"github.com/angelmondragon/cartwatch-backend/pkg/cache"
	"github.com/angelmondragon/cartwatch-backend/pkg/config"
	"github.com/angelmondragon/cartwatch-backend/pkg/db"
	"github.com/angelmondragon/cartwatch-backend/pkg/kvstore"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
	"github.com/angelmondragon/cartwatch-backend/pkg/metrics"
	"github.com/angelmondragon/cartwatch-backend/pkg/migrate"
	"github.com/angelmondragon/cartwatch-backend/pkg/redis"
)

type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	Registerer prometheus.Registerer

	// DB and Redis are opened from Config when nil. Tests inject them.
	DB    *db.Client
	Redis *redis.Client
}

// App is the wired service graph. Redis is nil when no endpoint is
// configured; the in-memory cache is used instead.
type App struct {
	Config *config.Config
	Logger *logger.Logger

	DB    *db.Client
	Redis *redis.Client
	Cache cache.Store
	KV    kvstore.Store

	CartRepo  *cart.Repository
	Carts     *cart.Store
	Tracker   *cart.Tracker
	Analytics *analytics.Engine
	Exports   *export.Pipeline
	Schedules *schedules.Registry

	CartMetrics   *metrics.CartMetrics
	ExportMetrics *metrics.ExportMetrics

	closers []func() error
}

// New opens the backing stores and wires every service. On error anything
// already opened is closed.
func New(ctx context.Context, p Params) (app *App, err error) {
	if p.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	reg := p.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	cfg, logg := p.Config, p.Logger
	app = &App{Config: cfg, Logger: logg}
	defer func() {
		if err != nil {
			err = multierr.Append(err, app.Close())
			app = nil
		}
	}()

	app.DB = p.DB
	if app.DB == nil {
		app.DB, err = db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
		if err != nil {
			return app, fmt.Errorf("bootstrap database: %w", err)
		}
		app.closers = append(app.closers, app.DB.Close)
		if err = migrate.MaybeRunDev(ctx, cfg, logg, app.DB); err != nil {
			return app, fmt.Errorf("dev migrations: %w", err)
		}
	}

	app.Redis = p.Redis
	if app.Redis == nil && cfg.Redis.Enabled() {
		app.Redis, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return app, fmt.Errorf("bootstrap redis: %w", err)
		}
		app.closers = append(app.closers, app.Redis.Close)
	}
	if app.Redis != nil {
		app.Cache = app.Redis
	} else {
		logg.Warn(ctx, "redis not configured, using in-memory cache")
		app.Cache = cache.NewMemory()
	}
	app.KV = kvstore.NewGormStore(app.DB.DB())

	app.CartMetrics = metrics.NewCartMetrics(reg)
	app.ExportMetrics = metrics.NewExportMetrics(reg)

	app.CartRepo = cart.NewRepository(app.DB.DB())
	app.Carts = cart.NewStore(app.CartRepo, app.Cache, cfg.Cart.CacheTTL, logg)

	app.Analytics, err = analytics.NewEngine(analytics.EngineParams{
		Source: app.CartRepo,
		Cache:  app.Cache,
		TTL:    cfg.Analytics.CacheTTL,
		Logger: logg,
	})
	if err != nil {
		return app, err
	}

	var purchases cart.PurchaseCounter
	if cfg.Cart.LocalPurchaseCount {
		purchases = app.CartRepo
	}
	app.Tracker, err = cart.NewTracker(cart.TrackerParams{
		Store:     app.Carts,
		Purchases: purchases,
		Analytics: app.Analytics,
		Metrics:   app.CartMetrics,
		Logger:    logg,
	})
	if err != nil {
		return app, err
	}

	var mailer export.Mailer
	if cfg.Resend.APIKey != "" {
		resendMailer, mailErr := export.NewResendMailer(cfg.Resend.APIKey, cfg.Resend.FromEmail, cfg.Resend.FromName)
		if mailErr != nil {
			return app, mailErr
		}
		mailer = resendMailer
	} else {
		logg.Warn(ctx, "resend api key missing, email delivery disabled")
	}

	app.Exports, err = export.NewPipeline(export.PipelineParams{
		Source:         app.CartRepo,
		Analytics:      app.Analytics,
		Mailer:         mailer,
		Uploader:       export.NewFTPUploader(cfg.FTP.Timeout),
		TempDir:        cfg.Export.TempDir,
		SiteName:       cfg.Export.SiteName,
		DefaultSubject: cfg.Export.DefaultSubject,
		Metrics:        app.ExportMetrics,
		Logger:         logg,
	})
	if err != nil {
		return app, err
	}

	loc, err := loadLocation(cfg.Export.Timezone)
	if err != nil {
		return app, err
	}
	app.Schedules, err = schedules.NewRegistry(schedules.RegistryParams{
		Store:    app.KV,
		Runner:   app.Exports,
		Logger:   logg,
		Location: loc,
	})
	if err != nil {
		return app, err
	}
	return app, nil
}

// Close releases the stores opened by New, in reverse order.
func (a *App) Close() error {
	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, a.closers[i]())
	}
	a.closers = nil
	return errs
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("export timezone %q: %w", name, err)
	}
	return loc, nil
}
