package httpx

import (
	"net/http"
	"strings"

	"github.com/ecowise/ecowise/pkg/jwtx"
	"github.com/ecowise/ecowise/pkg/slogx"
)

// TokenCookieName is the cookie carrying the session token for browser
// clients that do not send an Authorization header.
const TokenCookieName = "token"

// MsgNotAuthorized is the body message for every token failure. The reason
// is logged, never returned.
const MsgNotAuthorized = "Not authorized to access this route"

// TokenFromRequest extracts the session token, preferring the bearer header
// over the cookie.
func TokenFromRequest(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		if raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer ")); raw != "" {
			return raw
		}
	}
	if c, err := r.Cookie(TokenCookieName); err == nil {
		return c.Value
	}
	return ""
}

// AuthnMiddleware verifies the session token and stores its claims in the
// request context. It only proves the token was issued by us and is within
// its lifetime; whether the user still exists and is active is decided by
// the caller.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := TokenFromRequest(r)
			if raw == "" {
				WriteBearerError(w, "missing bearer token")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("jwt verify failed", "err", err)
				WriteBearerError(w, "token verification failed")
				return
			}

			ctx = slogx.WithUserID(contextWithAuth(ctx, claims), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WriteBearerError writes an RFC 6750 challenge with the standard 401 body.
func WriteBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, MsgNotAuthorized)
}
