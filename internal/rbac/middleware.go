package rbac

import (
	"log/slog"
	"net/http"
)

// RoleResolver extracts the caller's role from a request. The host's
// authentication layer decides how (session, token claim, trusted header).
type RoleResolver func(r *http.Request) (int64, bool)

// Middleware wires authorization guards for HTTP handlers. Any error while
// resolving permissions denies the request; a failed check is never an
// implicit allow.
type Middleware struct {
	Matcher *Matcher
	Resolve RoleResolver
	Logger  *slog.Logger
}

// RequireAny ensures the caller's role matches at least one of the
// required permission patterns.
func (m Middleware) RequireAny(patterns ...string) func(http.Handler) http.Handler {
	return m.guard(patterns, func(r *http.Request, roleID int64) (bool, error) {
		return m.Matcher.HasAnyPermission(r.Context(), roleID, patterns...)
	})
}

// RequireAll ensures the caller's role matches every required permission
// pattern.
func (m Middleware) RequireAll(patterns ...string) func(http.Handler) http.Handler {
	return m.guard(patterns, func(r *http.Request, roleID int64) (bool, error) {
		return m.Matcher.HasAllPermissions(r.Context(), roleID, patterns...)
	})
}

func (m Middleware) guard(patterns []string, check func(*http.Request, int64) (bool, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(patterns) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			roleID, ok := m.Resolve(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			granted, err := check(r, roleID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authorization check", slog.Int64("role_id", roleID), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !granted {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
