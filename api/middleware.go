package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/Polvory/Easy-Plan-back/ledger"
)

type contextKey string

const callerKey contextKey = "caller"

// callerFrom returns the authenticated caller placed by the auth middleware.
func callerFrom(ctx context.Context) (ledger.Caller, bool) {
	c, ok := ctx.Value(callerKey).(ledger.Caller)
	return c, ok
}

// Authenticate verifies the Bearer token and re-loads the user from the
// store, so a deleted user's still-valid token is rejected immediately.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token", nil)
			return
		}
		claims, err := h.tokens.VerifyAccess(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token", err)
			return
		}
		user, err := h.store.GetUser(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unknown user", err)
			return
		}
		caller := ledger.Caller{UserID: user.ID, Role: user.Role, Language: user.Language}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey, caller)))
	})
}

// RequireRole gates a subtree to one role.
func RequireRole(role ledger.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := callerFrom(r.Context())
			if !ok || caller.Role != role {
				writeError(w, http.StatusForbidden, "insufficient role", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
