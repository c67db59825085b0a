package middleware

import (
	"context"
	"net/http"

	"github.com/atinyakov/PartKeeper/internal/models"
)

type ctxKey string

const userKey ctxKey = "user"

// IdentityResolver reads the signed-in user from a request.
type IdentityResolver interface {
	Identity(r *http.Request) (models.Identity, bool)
}

// WithIdentity stores the resolved user, if any, in the request context.
func WithIdentity(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, ok := resolver.Identity(r); ok {
				r = r.WithContext(ContextWithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser redirects requests without a signed-in user to loginPath.
// It must run after WithIdentity.
func RequireUser(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := IdentityFromContext(r.Context()); !ok {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ContextWithIdentity returns a copy of ctx carrying id.
func ContextWithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, userKey, id)
}

// IdentityFromContext returns the user stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(userKey).(models.Identity)
	return id, ok
}
