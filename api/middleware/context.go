package middleware

import "context"

type contextKey string

const ctxAdminUserID contextKey = "admin_user_id"

// AdminUserIDFromContext returns the acting admin, or zero when the caller
// did not identify itself.
func AdminUserIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxAdminUserID).(int64); ok {
		return v
	}
	return 0
}

// WithAdminUserID injects the acting admin into the context.
func WithAdminUserID(ctx context.Context, userID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAdminUserID, userID)
}
