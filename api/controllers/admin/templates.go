package admin

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/cartwatch-backend/api/middleware"
	"github.com/angelmondragon/cartwatch-backend/api/responses"
	"github.com/angelmondragon/cartwatch-backend/api/validators"
	"github.com/angelmondragon/cartwatch-backend/internal/schedules"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// TemplateList returns global templates plus those owned by the acting admin.
func TemplateList(service ScheduleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		templates, err := service.ListTemplates(ctx, middleware.AdminUserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, templates)
	}
}

// TemplateSave stores a template owned by the acting admin unless global.
func TemplateSave(service ScheduleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body templateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		saved, err := service.SaveTemplate(ctx, schedules.Template{
			ID:      strings.TrimSpace(body.ID),
			Name:    body.Name,
			Columns: body.Columns,
			UserID:  middleware.AdminUserIDFromContext(ctx),
			Global:  body.Global,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, saved)
	}
}

func TemplateDelete(service ScheduleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := service.DeleteTemplate(ctx, strings.TrimSpace(chi.URLParam(r, "templateId"))); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
