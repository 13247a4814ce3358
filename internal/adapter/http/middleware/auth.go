package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
)

// Auth validates JWT, loads user and injects it into context.
// Requests without Authorization header continue as the anonymous user,
// protected routes reject them in RequireRoles.
func (h *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		header := r.Header.Get("Authorization")
		if header == "" {
			r = r.WithContext(models.WithUser(ctx, models.AnonymousUser()))
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(header)
		if err != nil {
			unauthorized(w, r, err.Error())
			return
		}

		user, err := h.auth.RoleCheck(ctx, token)
		if err != nil || user == nil {
			h.log.Debug(ctx, "failed to authenticate user", "error", fmt.Sprint(err))
			unauthorized(w, r, msgBadToken)
			return
		}

		ctx = wrap.WithUserID(ctx, user.ID.String())
		next.ServeHTTP(w, r.WithContext(models.WithUser(ctx, user)))
	})
}

// RequireRoles wraps a handler and allows only users with one of the given roles.
// Without roles any authenticated user passes.
// Usage: mux.Handle("GET /users", m.RequireRoles(routes.user.List, types.SupervisorRole))
func (h *Middleware) RequireRoles(next http.HandlerFunc, allowedRoles ...types.UserRole) http.Handler {
	allowed := make(map[types.UserRole]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := models.UserFromContext(r.Context())
		if user.IsAnonymous() {
			unauthorized(w, r, msgAuthRequired)
			return
		}
		if len(allowed) > 0 {
			if _, ok := allowed[user.Role]; !ok {
				reject(w, r, http.StatusForbidden, msgForbidden)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}
