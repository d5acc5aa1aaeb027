package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/cartwatch-backend/api/responses"
	"github.com/angelmondragon/cartwatch-backend/api/validators"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
)

const defaultRestoreDays = 7

// ArchiveRestorer moves archived carts back into the live table.
type ArchiveRestorer interface {
	RestoreArchivedSince(ctx context.Context, cutoff time.Time) (int64, error)
}

var timeNowUTC = func() time.Time { return time.Now().UTC() }

// ArchiveRestore restores carts archived within the last ?days=N days and
// drops cached analytics when anything came back.
func ArchiveRestore(restorer ArchiveRestorer, analytics AnalyticsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		days, err := validators.ParseQueryInt(r, "days", defaultRestoreDays, 1, 3650)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		cutoff := timeNowUTC().AddDate(0, 0, -days)
		restored, err := restorer.RestoreArchivedSince(ctx, cutoff)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if restored > 0 && analytics != nil {
			if err := analytics.Invalidate(ctx, nil); err != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "analytics.invalidate_failed")
			}
		}
		logg.Info(logg.WithFields(ctx, map[string]any{"days": days, "restored": restored}), "archive.restored")
		responses.WriteSuccess(w, map[string]any{"restored": restored, "since": cutoff})
	}
}
