package admin

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/cartwatch-backend/api/responses"
	"github.com/angelmondragon/cartwatch-backend/api/validators"
	"github.com/angelmondragon/cartwatch-backend/internal/analytics"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
)

// AnalyticsService computes and invalidates cached rollups.
type AnalyticsService interface {
	Compute(ctx context.Context, w analytics.Window) (*analytics.Snapshot, error)
	Invalidate(ctx context.Context, days *int) error
}

// Analytics serves ?days=N (default 30) or an inclusive ?from=&to= range.
func Analytics(service AnalyticsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		window, err := resolveWindow(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		snapshot, err := service.Compute(ctx, window)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// ClearAnalyticsCache drops one cached window with ?days=N, or every cached
// window when days is omitted.
func ClearAnalyticsCache(service AnalyticsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var days *int
		if strings.TrimSpace(r.URL.Query().Get("days")) != "" {
			d, err := validators.ParseQueryInt(r, "days", analytics.DefaultDays, 1, analytics.MaxWindowDays)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			days = &d
		}
		if err := service.Invalidate(ctx, days); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(logg.WithField(ctx, "days", days), "analytics.cache.cleared")
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

func resolveWindow(r *http.Request) (analytics.Window, error) {
	q := r.URL.Query()
	from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if from != "" || to != "" {
		return analytics.ParseRange(from, to)
	}
	days, err := validators.ParseQueryInt(r, "days", analytics.DefaultDays, 1, analytics.MaxWindowDays)
	if err != nil {
		return analytics.Window{}, err
	}
	return analytics.LastDays(days), nil
}
