package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/conychips/auth/internal/auth/http"
	"github.com/conychips/auth/internal/auth/revocation"
	"github.com/conychips/auth/internal/auth/service"
	"github.com/conychips/auth/internal/auth/store"
	"github.com/conychips/auth/internal/auth/store/drivers/sqlite"
	"github.com/conychips/auth/pkg/slogx"
	"golang.org/x/sync/errgroup"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db    store.Store
	cache *revocation.Store

	// Services
	tokenService        *service.TokenService
	authService         *service.AuthService
	userService         *service.UserService
	rolesService        *service.RolesService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
// Redis is optional at startup; the database and the signing keys are not.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initCache(context.Background())

	if err := app.initServices(); err != nil {
		_ = app.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until a shutdown signal arrives or
// the server fails.
func (app *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.housekeepingService.Start()
	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		app.logger.Info("shutdown requested", "cause", context.Cause(ctx))
		return app.Shutdown()
	})

	return g.Wait()
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

	if err := app.Close(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// Close releases the database and Redis connections. Shutdown calls it;
// use it directly only when Run was never called.
func (app *Application) Close() error {
	if err := app.cache.Close(); err != nil {
		app.logger.Warn("error closing redis", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

// initDatabase opens the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	version, err := db.SchemaVersion()
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile, "schema_version", version)
	return nil
}

// initCache connects to Redis. A failed connection leaves the store degraded
// rather than stopping startup.
func (app *Application) initCache(ctx context.Context) {
	app.cache = revocation.New(ctx, revocation.Config{
		URL:             app.cfg.RedisURL,
		SessionPrefix:   app.cfg.SessionPrefix,
		BlacklistPrefix: app.cfg.BlacklistPrefix,
		CachePrefix:     app.cfg.CachePrefix,
	}, app.logger)
}

// initServices loads the signing keys and builds the use case services
func (app *Application) initServices() error {
	privatePEM, publicPEM, err := LoadKeyPair(app.cfg, app.logger)
	if err != nil {
		return fmt.Errorf("failed to load JWT keys: %w", err)
	}

	app.tokenService, err = service.NewTokenService(service.TokenConfig{
		Issuer:     app.cfg.Issuer,
		Audience:   app.cfg.Audience,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
		AppTTL:     app.cfg.AppTTL,
	}, privatePEM, publicPEM, app.cache, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	app.authService = &service.AuthService{
		Store:      app.db,
		Tokens:     app.tokenService,
		Sessions:   app.cache,
		Notifier:   service.LogNotifier{Logger: app.logger},
		Logger:     app.logger,
		BcryptCost: app.cfg.BcryptCost,
		ResetTTL:   app.cfg.PasswordResetTTL,
	}
	app.userService = &service.UserService{Store: app.db}
	app.rolesService = &service.RolesService{Store: app.db, Logger: app.logger}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	app.logger.Info("token service ready",
		"issuer", app.cfg.Issuer,
		"audience", app.cfg.Audience,
		"access_ttl", app.tokenService.AccessTTL(),
		"refresh_ttl", app.tokenService.RefreshTTL(),
		"app_ttl", app.tokenService.AppTTL(),
		"redis", app.cache.Available(),
	)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.tokenService,
		BuildVersion,
		app.db,
		app.cache,
		app.logger,
	)

	router.AuthService = app.authService
	router.UserService = app.userService
	router.RolesService = app.rolesService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Handler exposes the routed handler, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }
