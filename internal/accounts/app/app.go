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

	httpapi "github.com/aussiebroadwan/accounts/internal/accounts/http"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/postgres"
	redisstore "github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/redis"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/aussiebroadwan/accounts/pkg/clockx"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
	"github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	startupTimeout = 10 * time.Second
)

// Application encapsulates the accounts service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger
	clock  clockx.Clock

	// Core dependencies
	db       store.Store
	sessions store.Sessions
	rdb      redis.UniversalClient // nil unless sessions live in Redis

	// Services
	sessionService *service.SessionService
	accountService *service.AccountService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg:   cfg,
		clock: clockx.System{},
		logger: slogx.New(slogx.Config{
			Service: "accounts-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initSessions(ctx); err != nil {
		app.closeStores()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		app.closeStores()
		return nil, err
	}
	if err := app.initHTTP(); err != nil {
		app.closeStores()
		return nil, err
	}

	return app, nil
}

// Handler returns the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("accounts service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"database", app.cfg.DatabaseDriver,
		"sessions", app.cfg.SessionBackend,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.closeStores()
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
	app.logger.Info("shutting down accounts service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("accounts service stopped")
	return nil
}

func (app *Application) closeStores() error {
	var errs []error
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initDatabase opens the configured store and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.Open(ctx, app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		app.db = nil
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initSessions picks where refresh tokens are bound.
func (app *Application) initSessions(ctx context.Context) error {
	if app.cfg.SessionBackend != SessionsRedis {
		app.sessions = app.db.Sessions()
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("failed to connect to redis at %s: %w", app.cfg.RedisAddr, err)
	}
	app.rdb = rdb
	app.sessions = redisstore.NewSessions(rdb, app.clock)

	app.logger.Info("refresh tokens bound in redis", "addr", app.cfg.RedisAddr)
	return nil
}

// initServices builds the hasher, signers and services
func (app *Application) initServices() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}

	accessSigner, err := jwtx.NewSignerHS256([]byte(app.cfg.AccessTokenSecret))
	if err != nil {
		return fmt.Errorf("access token signer: %w", err)
	}
	refreshSigner, err := jwtx.NewSignerHS256([]byte(app.cfg.RefreshTokenSecret))
	if err != nil {
		return fmt.Errorf("refresh token signer: %w", err)
	}
	refreshVerifier, err := jwtx.NewVerifierHS256([]byte(app.cfg.RefreshTokenSecret), jwtx.VerifyOptions{
		Issuer: app.cfg.Issuer,
		Type:   jwtx.TypeRefresh,
		Now:    app.clock.Now,
	})
	if err != nil {
		return fmt.Errorf("refresh token verifier: %w", err)
	}

	credentials := &service.CredentialVerifier{Hasher: cryptox.NewArgon2Hasher(pepper)}

	app.sessionService = &service.SessionService{
		Store:    app.db,
		Sessions: app.sessions,
		Issuer: &service.TokenIssuer{
			AccessSigner:  accessSigner,
			RefreshSigner: refreshSigner,
			Issuer:        app.cfg.Issuer,
			AccessTTL:     app.cfg.AccessTokenTTL,
			RefreshTTL:    app.cfg.RefreshTokenTTL,
			Clock:         app.clock,
		},
		Credentials:     credentials,
		RefreshVerifier: refreshVerifier,
	}
	app.accountService = &service.AccountService{
		Store:       app.db,
		Sessions:    app.sessions,
		Credentials: credentials,
		Clock:       app.clock,
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() error {
	accessVerifier, err := jwtx.NewVerifierHS256([]byte(app.cfg.AccessTokenSecret), jwtx.VerifyOptions{
		Issuer: app.cfg.Issuer,
		Type:   jwtx.TypeAccess,
		Now:    app.clock.Now,
	})
	if err != nil {
		return fmt.Errorf("access token verifier: %w", err)
	}

	router := httpapi.NewRouter(
		accessVerifier,
		httpx.CookieConfig{Secure: app.cfg.CookieSecure, Domain: app.cfg.CookieDomain},
		BuildVersion,
		app.logger,
	)

	router.SessionService = app.sessionService
	router.AccountService = app.accountService
	router.Clock = app.clock
	router.Database = app.db
	if rs, ok := app.sessions.(*redisstore.Sessions); ok {
		router.Sessions = rs
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
