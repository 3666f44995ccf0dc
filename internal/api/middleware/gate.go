package middleware

import (
	"net/http"

	"github.com/pest-detectives/backend/internal/session"
)

// StateSource reports the session gate state.
type StateSource interface {
	State() session.State
}

// RequireSession rejects requests until the session gate is resolved to an
// authenticated profile.
func RequireSession(src StateSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch src.State() {
			case session.StateAuthenticated:
				next.ServeHTTP(w, r)
			case session.StateLoading:
				WriteError(w, http.StatusServiceUnavailable, ErrLoading, "Session is still loading")
			default:
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Please sign in first")
			}
		})
	}
}
