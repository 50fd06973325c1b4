package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpapi "github.com/ecowise/ecowise/internal/auth/http"
	"github.com/ecowise/ecowise/internal/auth/observability"
	"github.com/ecowise/ecowise/internal/auth/service"
	"github.com/ecowise/ecowise/internal/auth/store"
	"github.com/ecowise/ecowise/internal/auth/store/drivers/postgres"
	"github.com/ecowise/ecowise/internal/auth/store/drivers/sqlite"
	"github.com/ecowise/ecowise/pkg/cryptox"
	"github.com/ecowise/ecowise/pkg/httpx"
	"github.com/ecowise/ecowise/pkg/jwtx"
	"github.com/ecowise/ecowise/pkg/slogx"
)

// BuildVersion is overridden at build time via
// -ldflags "-X github.com/ecowise/ecowise/internal/auth/app.BuildVersion=...".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	signer   jwtx.Signer
	verifier jwtx.Verifier
	metrics  *observability.Metrics

	// Services
	tokenService        *service.TokenService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "ecowise-auth",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// New creates a new Application instance with all dependencies initialized
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg:     cfg,
		logger:  NewLogger(cfg),
		metrics: observability.NewMetrics(),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)
	httpx.LoadRateLimitsFromEnv()

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	signer, verifier, err := InitAuthKeys(app.cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.signer, app.verifier = signer, verifier

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until ctx is cancelled or the server
// fails. Cancellation triggers a graceful shutdown.
func (app *Application) Run(ctx context.Context) error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"driver", app.cfg.DBDriver,
		"alg", app.signer.Alg(),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		_ = app.db.Close()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		app.logger.Info("shutdown signal received", "cause", context.Cause(ctx))

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// OpenStore connects to the configured driver without migrating.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.DBDriver {
	case DriverSQLite:
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", cfg.DatabaseFile)
		return sqlite.NewStore(dsn)
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres driver")
		}
		return postgres.NewStore(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (want %s or %s)", cfg.DBDriver, DriverSQLite, DriverPostgres)
	}
}

// OpenMigratedStore opens the store and brings its schema up to date.
func OpenMigratedStore(ctx context.Context, cfg Config) (store.Store, error) {
	db, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	db, err := OpenMigratedStore(ctx, app.cfg)
	if err != nil {
		return err
	}
	app.db = db

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DBDriver)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Signer:   app.signer,
		Verifier: app.verifier,
		Issuer:   app.cfg.Issuer,
		TTL:      app.cfg.TokenTTL,
	}

	app.userService = &service.UserService{
		Store:            app.db,
		Tokens:           app.tokenService,
		Hasher:           cryptox.NewHasher(app.cfg.HashConcurrency),
		AllowAdminSignup: app.cfg.AllowAdminSignup,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeepingService.OnCleanup = func(cleared int64) {
		app.metrics.PasswordResetsCleared.Add(float64(cleared))
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.signer,
		app.tokenService,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.UserService = app.userService
	router.Metrics = app.metrics
	router.CookieSecure = app.cfg.CookieSecure
	router.CookieTTL = app.cfg.TokenTTL
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
