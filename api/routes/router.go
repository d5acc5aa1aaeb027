package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/cartwatch-backend/api/controllers"
	admincontrollers "github.com/angelmondragon/cartwatch-backend/api/controllers/admin"
	storefrontcontrollers "github.com/angelmondragon/cartwatch-backend/api/controllers/storefront"
	"github.com/angelmondragon/cartwatch-backend/api/middleware"
	"github.com/angelmondragon/cartwatch-backend/pkg/config"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
)

type rateLimitStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// RouterParams groups everything the HTTP surface depends on.
type RouterParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	Readiness map[string]controllers.Pinger
	RateLimit rateLimitStore
	Gatherer  prometheus.Gatherer

	Tracker   storefrontcontrollers.EventTracker
	Carts     storefrontcontrollers.CartReader
	Analytics admincontrollers.AnalyticsService
	Exporter  admincontrollers.Exporter
	Schedules admincontrollers.ScheduleService
	Archive   admincontrollers.ArchiveRestorer
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	exportPolicy := middleware.NewRateLimitPolicy(
		"exports",
		cfg.RateLimit.ExportWindow,
		cfg.RateLimit.ExportIPLimit,
		cfg.RateLimit.ExportAdminLimit,
	)
	exportLimit := middleware.RateLimit(exportPolicy, p.RateLimit, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Readiness))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/storefront", func(r chi.Router) {
		for _, kind := range storefrontcontrollers.CartEventKinds {
			r.Post("/events/"+kind, storefrontcontrollers.CartEventHandler(kind, p.Tracker, logg))
		}
		for _, kind := range storefrontcontrollers.OrderEventKinds {
			r.Post("/orders/"+kind, storefrontcontrollers.OrderEventHandler(kind, p.Tracker, logg))
		}
		r.Get("/cart", storefrontcontrollers.CurrentCart(p.Carts, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminKey(cfg.Admin.APIKey, logg))

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/", admincontrollers.Analytics(p.Analytics, logg))
			r.Post("/cache/clear", admincontrollers.ClearAnalyticsCache(p.Analytics, logg))
		})

		r.Route("/exports", func(r chi.Router) {
			r.Get("/columns", admincontrollers.ColumnsList())
			r.With(exportLimit).Post("/", admincontrollers.AdHocExport(p.Exporter, logg))
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", admincontrollers.ScheduleList(p.Schedules, logg))
			r.Post("/", admincontrollers.ScheduleUpsert(p.Schedules, logg))
			r.Get("/{scheduleId}", admincontrollers.ScheduleGet(p.Schedules, logg))
			r.Delete("/{scheduleId}", admincontrollers.ScheduleDelete(p.Schedules, logg))
			r.With(exportLimit).Post("/{scheduleId}/run", admincontrollers.ScheduleRun(p.Schedules, logg))
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", admincontrollers.TemplateList(p.Schedules, logg))
			r.Post("/", admincontrollers.TemplateSave(p.Schedules, logg))
			r.Delete("/{templateId}", admincontrollers.TemplateDelete(p.Schedules, logg))
		})

		r.Post("/archive/restore", admincontrollers.ArchiveRestore(p.Archive, p.Analytics, logg))
	})

	return r
}
