package admin

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/cartwatch-backend/api/responses"
	"github.com/angelmondragon/cartwatch-backend/api/validators"
	"github.com/angelmondragon/cartwatch-backend/internal/schedules"
	pkgerrors "github.com/angelmondragon/cartwatch-backend/pkg/errors"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// ScheduleService manages scheduled exports and column templates.
type ScheduleService interface {
	List(ctx context.Context) ([]schedules.Schedule, error)
	Get(ctx context.Context, id string) (*schedules.Schedule, error)
	UpsertSchedule(ctx context.Context, s schedules.Schedule) (string, error)
	DeleteSchedule(ctx context.Context, id string) error
	RunNow(ctx context.Context, id string) (*schedules.Schedule, error)
	SaveTemplate(ctx context.Context, t schedules.Template) (*schedules.Template, error)
	DeleteTemplate(ctx context.Context, id string) error
	ListTemplates(ctx context.Context, userID int64) ([]schedules.Template, error)
}

func ScheduleList(service ScheduleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		all, err := service.List(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out := make([]schedules.Schedule, 0, len(all))
		for _, s := range all {
			out = append(out, redact(s))
		}
		responses.WriteSuccess(w, out)
	}
}

func ScheduleGet(service ScheduleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		s, err := service.Get(ctx, scheduleID(r))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, redact(*s))
	}
}

// ScheduleUpsert creates a schedule, or replaces one when the body carries an
// existing id. A redacted FTP password keeps the stored one.
func ScheduleUpsert(service ScheduleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body scheduleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		s := body.toSchedule()
		if s.Delivery.FTP != nil && s.Delivery.FTP.Password == redacted {
			s.Delivery.FTP.Password = ""
			if s.ID != "" {
				existing, err := service.Get(ctx, s.ID)
				if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
					responses.WriteError(ctx, logg, w, err)
					return
				}
				if existing != nil && existing.Delivery.FTP != nil {
					s.Delivery.FTP.Password = existing.Delivery.FTP.Password
				}
			}
		}

		id, err := service.UpsertSchedule(ctx, s)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		saved, err := service.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status := http.StatusCreated
		if body.ID != "" {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, redact(*saved))
	}
}

func ScheduleDelete(service ScheduleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := scheduleID(r)
		if err := service.DeleteSchedule(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(logg.WithScheduleID(ctx, id), "schedules.deleted")
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ScheduleRun runs the schedule now. The response carries the recorded
// outcome; a failed export is still a 200.
func ScheduleRun(service ScheduleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := scheduleID(r)
		ctx = logg.WithScheduleID(ctx, id)
		s, err := service.RunNow(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, redact(*s))
	}
}

func scheduleID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "scheduleId"))
}
