package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ecowise/ecowise/internal/auth/observability"
	"github.com/ecowise/ecowise/internal/auth/service"
	"github.com/ecowise/ecowise/internal/auth/store"
	"github.com/ecowise/ecowise/pkg/httpx"
	"github.com/ecowise/ecowise/pkg/jwtx"
	"github.com/ecowise/ecowise/pkg/slogx"

	_ "github.com/ecowise/ecowise/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Limits are the rate limit tiers applied per route.
type Limits struct {
	Strict   httpx.RateLimitConfig
	Moderate httpx.RateLimitConfig
	Lenient  httpx.RateLimitConfig
}

// DefaultLimits returns the tiers currently configured in httpx, including
// any RATELIMIT_* overrides loaded from the environment.
func DefaultLimits() Limits {
	return Limits{
		Strict:   httpx.StrictLimit,
		Moderate: httpx.ModerateLimit,
		Lenient:  httpx.LenientLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer       jwtx.Signer
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	UserService  *service.UserService
	Metrics      *observability.Metrics
	Limits       Limits
	CookieSecure bool
	CookieTTL    time.Duration
}

func NewRouter(
	signer jwtx.Signer,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		signer:       signer,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		Limits:       DefaultLimits(),
		CookieTTL:    jwtx.DefaultTokenTTL,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	if r.Metrics != nil {
		// Innermost, so the matched mux pattern is visible after serving.
		r.middlewares = append(r.middlewares, observability.HTTPMiddleware(r.Metrics))
		r.Mux.Handle("GET /metrics", r.Metrics.Handler())
	}

	r.registerAuth()
	r.registerProfile()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						EcoWise Authentication API
//	@version					1.0.0
//	@description				Account registration, login and profile management for EcoWise.
//	@description
//	@description				Session tokens are JWTs sent as "Authorization: Bearer {token}" or in the "token" cookie.
//
//	@contact.name				EcoWise Team
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:5000
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) handler() *AuthHandler {
	return &AuthHandler{
		Users:        r.UserService,
		Metrics:      r.Metrics,
		CookieSecure: r.CookieSecure,
		CookieTTL:    r.CookieTTL,
	}
}

func (r *Router) registerAuth() {
	h := r.handler()

	// Credential endpoints are limited per client IP and submitted email.
	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIPAndJSONField(r.Limits.Strict, "email"),
		),
	)
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(r.Limits.Strict, "email"),
		),
	)

	// Logout needs no valid token: the client is logging out either way.
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(r.Limits.Moderate),
		),
	)
}

func (r *Router) registerProfile() {
	h := r.handler()

	secured := func(next http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.verifier), // signature, issuer, expiry
			RequireUser(r.UserService),        // exists, token version, active
			httpx.RateLimitByUser(limit),
		)
	}

	r.Mux.Handle("GET /api/auth/profile", secured(h.HandleGetProfile, r.Limits.Lenient))
	r.Mux.Handle("PUT /api/auth/profile", secured(h.HandleUpdateProfile, r.Limits.Moderate))
	r.Mux.Handle("PUT /api/auth/change-password", secured(h.HandleChangePassword, r.Limits.Strict))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.signer),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)
}
