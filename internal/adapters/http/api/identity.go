package api

import (
	"context"
	"net/http"
	"slices"
)

// Caller is the authenticated identity attached to every request. The
// gateway in front of this service performs authentication and forwards
// the result as trusted headers; token issuance is not this core's job.
type Caller struct {
	UserID string
	Role   string
}

type callerKey struct{}

// Identity extracts the gateway identity headers into the request context.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := Caller{
			UserID: r.Header.Get("X-User-ID"),
			Role:   r.Header.Get("X-User-Role"),
		}
		ctx := context.WithValue(r.Context(), callerKey{}, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerFrom returns the identity stored in ctx, if any.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok && c.UserID != ""
}

// RequireRole guards a route group behind the listed roles. The exact
// moderator role set is external policy and arrives via configuration.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "api.require_role"
			caller, ok := CallerFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthenticated", NewKind(op, ErrForbidden))
				return
			}
			if !slices.Contains(roles, caller.Role) {
				writeError(w, http.StatusForbidden, "forbidden", NewKind(op, ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
