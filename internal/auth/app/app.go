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

	"github.com/afci/trajet/internal/auth/domain"
	httpapi "github.com/afci/trajet/internal/auth/http"
	"github.com/afci/trajet/internal/auth/metrics"
	"github.com/afci/trajet/internal/auth/service"
	"github.com/afci/trajet/internal/auth/store"
	"github.com/afci/trajet/internal/auth/store/drivers/sqlite"
	"github.com/afci/trajet/pkg/cryptox"
	"github.com/afci/trajet/pkg/httpx"
	"github.com/afci/trajet/pkg/jwtx"
	"github.com/afci/trajet/pkg/slogx"
)

// BuildVersion is overridden at build time with
// -ldflags "-X github.com/afci/trajet/internal/auth/app.BuildVersion=...".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db        store.Store
	tokens    *jwtx.HS256
	passwords *cryptox.Passwords
	metrics   *metrics.Metrics

	// Services
	authService         *service.AuthService
	refreshService      *service.RefreshService
	accountService      *service.AccountService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "trajet-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metrics.New(nil),
	}

	passwords, err := cryptox.NewPasswords(cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to configure password hashing: %w", err)
	}
	app.passwords = passwords

	tokens, err := InitTokenService(cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.tokens = tokens

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()

	if err := app.bootstrapAdmin(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Handler exposes the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

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

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.refreshService = &service.RefreshService{
		Store:   app.db,
		Tokens:  app.tokens,
		TTL:     app.cfg.RefreshTokenTTL,
		Metrics: app.metrics,
	}
	app.authService = &service.AuthService{
		Store:           app.db,
		Tokens:          app.tokens,
		Passwords:       app.passwords,
		Refresh:         app.refreshService,
		Metrics:         app.metrics,
		MaxFailedLogins: app.cfg.MaxFailedLogins,
		LockoutDuration: app.cfg.LockoutDuration,
	}
	app.accountService = &service.AccountService{Store: app.db}
	app.bootstrapService = &service.BootstrapService{
		Store:     app.db,
		Passwords: app.passwords,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.refreshService,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// bootstrapAdmin creates the configured administrator on an empty database.
func (app *Application) bootstrapAdmin(ctx context.Context) error {
	if app.cfg.BootstrapAdminEmail == "" {
		return nil
	}

	ctx = slogx.WithContext(ctx, app.logger)
	_, err := app.bootstrapService.Bootstrap(ctx, domain.BootstrapAdmin{
		Email:    app.cfg.BootstrapAdminEmail,
		Password: app.cfg.BootstrapAdminPassword,
	})
	if errors.Is(err, service.ErrBootstrapAlready) {
		app.logger.Info("bootstrap admin skipped, users already exist")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.tokens,
		app.tokens,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AuthService = app.authService
	router.RefreshService = app.refreshService
	router.AccountService = app.accountService
	router.Metrics = app.metrics
	router.RateLimits = httpx.RateLimitProfilesFromEnv()
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
