package authz

import (
	"context"
	"net/http"

	"github.com/streamlinehq/notify-api/internal/models"
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	userRolesKey contextKey = "user_roles"
)

// WithIdentity stores the authenticated user and role information on the
// context.
func WithIdentity(ctx context.Context, userID string, roles []models.UserRole) context.Context {
	if userID != "" {
		ctx = context.WithValue(ctx, userIDKey, userID)
	}
	if len(roles) == 0 {
		roles = []models.UserRole{models.RoleMember}
	}
	ctx = context.WithValue(ctx, userRolesKey, roles)
	return ctx
}

func UserIDFromRequest(r *http.Request) (string, bool) {
	uid, ok := r.Context().Value(userIDKey).(string)
	if !ok || uid == "" {
		return "", false
	}
	return uid, true
}

func RolesFromRequest(r *http.Request) ([]models.UserRole, bool) {
	roles, ok := r.Context().Value(userRolesKey).([]models.UserRole)
	if !ok || len(roles) == 0 {
		return nil, false
	}
	return roles, true
}
