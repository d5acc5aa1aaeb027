package admin

import (
	"context"
	"net/http"

	"github.com/angelmondragon/cartwatch-backend/api/responses"
	"github.com/angelmondragon/cartwatch-backend/api/validators"
	"github.com/angelmondragon/cartwatch-backend/internal/export"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
)

// Exporter renders ad-hoc downloads.
type Exporter interface {
	RunAdHoc(ctx context.Context, req export.Request) (*export.Download, error)
}

// ColumnsList exposes the exportable column registry.
func ColumnsList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{
			"columns": export.Columns(),
			"default": export.DefaultColumns,
		})
	}
}

// AdHocExport renders the requested export and returns it as an attachment.
func AdHocExport(exporter Exporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body exportRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		req := body.toRequest()
		ctx = logg.WithExport(ctx, string(req.Type), string(req.Format), "adhoc")

		download, err := exporter.RunAdHoc(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(logg.WithFields(ctx, map[string]any{
			"records":   download.Records,
			"file_name": download.FileName,
		}), "export.adhoc.served")
		responses.WriteFile(w, download.FileName, download.ContentType, download.Content)
	}
}
