package http

import (
	"context"
	"net/http"

	"github.com/ecowise/ecowise/internal/auth/domain"
	"github.com/ecowise/ecowise/internal/auth/service"
	"github.com/ecowise/ecowise/pkg/httpx"
	"github.com/ecowise/ecowise/pkg/slogx"
)

type userCtxKey struct{}

func userFromContext(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(domain.User)
	return u, ok
}

// RequireUser completes token verification after httpx.AuthnMiddleware: the
// subject must still exist, carry the current token version and be active.
// The loaded user is placed in the request context.
func RequireUser(users *service.UserService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			claims, ok := httpx.ClaimsFromContext(ctx)
			if !ok {
				httpx.WriteBearerError(w, "missing bearer token")
				return
			}

			u, err := users.Authenticate(ctx, claims)
			if err != nil {
				slogx.FromContext(ctx).Info("token rejected", "user_id", claims.Subject, "err", err)
				writeServiceError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userCtxKey{}, u)))
		})
	}
}
