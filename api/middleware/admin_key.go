package middleware

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/cartwatch-backend/api/responses"
	pkgerrors "github.com/angelmondragon/cartwatch-backend/pkg/errors"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
)

const (
	adminKeyHeader    = "X-Admin-Api-Key"
	adminUserIDHeader = "X-Admin-User-Id"
)

// AdminKey guards the admin surface with a static API key. The optional
// X-Admin-User-Id header identifies the acting admin for per-user data such
// as column templates.
func AdminKey(apiKey string, logg *logger.Logger) func(http.Handler) http.Handler {
	expected := []byte(strings.TrimSpace(apiKey))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			provided := []byte(strings.TrimSpace(r.Header.Get(adminKeyHeader)))
			if len(expected) == 0 || len(provided) == 0 || subtle.ConstantTimeCompare(expected, provided) != 1 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid admin api key"))
				return
			}

			if raw := strings.TrimSpace(r.Header.Get(adminUserIDHeader)); raw != "" {
				userID, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || userID <= 0 {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "admin user id must be a positive integer"))
					return
				}
				ctx = WithAdminUserID(ctx, userID)
				if logg != nil {
					ctx = logg.WithField(ctx, "admin_user_id", userID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
