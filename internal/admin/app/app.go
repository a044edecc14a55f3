package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/backoffice/internal/admin/http"
	"github.com/aussiebroadwan/backoffice/internal/admin/service"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/aussiebroadwan/backoffice/internal/admin/store/drivers/sqlite"
	"github.com/aussiebroadwan/backoffice/pkg/cachex"
	"github.com/aussiebroadwan/backoffice/pkg/cryptox"
	"github.com/aussiebroadwan/backoffice/pkg/httpx"
	"github.com/aussiebroadwan/backoffice/pkg/jwtx"
	"github.com/aussiebroadwan/backoffice/pkg/metricsx"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application owns every long-lived dependency of the admin service.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      store.Store
	cache   cachex.Cache
	tokens  *jwtx.Service
	hasher  *cryptox.Hasher
	metrics *metricsx.Metrics

	// Services
	loginService        *service.LoginService
	userService         *service.UserService
	roleService         *service.RoleService
	menuService         *service.MenuService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService // nil unless the cache needs sweeping
	sweeping            atomic.Bool

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
// The super admin is created on first start.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "backoffice-admin",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.Log.Level,
			Format:  cfg.Log.Format,
		}),
		metrics: metricsx.New(),
	}

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewHasher(pepper)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initCache(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initTokens(); err != nil {
		app.closeStores()
		return nil, err
	}

	app.initServices()

	if err := app.bootstrap(ctx); err != nil {
		app.closeStores()
		return nil, err
	}

	app.initHTTP()
	return app, nil
}

// Handler returns the root HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	if app.housekeepingService != nil {
		app.housekeepingService.Start()
		app.sweeping.Store(true)
	}

	app.logger.Info("admin service starting", "addr", app.cfg.Addr, "version", BuildVersion, "cache", app.cfg.Cache.Type)

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
			app.stopHousekeeping()
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
	app.logger.Info("shutting down admin service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.stopHousekeeping()

	if err := app.cache.Close(); err != nil {
		app.logger.Error("error closing cache", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("admin service stopped")
	return nil
}

func (app *Application) stopHousekeeping() {
	if app.sweeping.CompareAndSwap(true, false) {
		app.housekeepingService.Stop()
	}
}

func (app *Application) closeStores() {
	if app.cache != nil {
		_ = app.cache.Close()
	}
	_ = app.db.Close()
}

// initDatabase opens the database and applies migrations
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.Database.File)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initCache(ctx context.Context) error {
	cache, err := cachex.New(ctx, cachex.Options{
		Kind:      app.cfg.CacheKind(),
		RedisURL:  app.cfg.Cache.RedisURL,
		BadgerDir: app.cfg.Cache.BadgerDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	app.cache = cache
	return nil
}

func (app *Application) initTokens() error {
	secret := app.cfg.JWT.Secret
	if secret == "" {
		// Only reachable in dev; tokens do not survive a restart.
		generated, err := cryptox.RandomString(32)
		if err != nil {
			return fmt.Errorf("failed to generate jwt secret: %w", err)
		}
		secret = generated
		app.logger.Warn("jwt.secret not set, using an ephemeral secret")
	}

	tokens, err := jwtx.NewService(jwtx.Config{
		Secret:           []byte(secret),
		TTL:              app.cfg.JWT.TTL,
		RefreshThreshold: app.cfg.JWT.RefreshThreshold,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	app.tokens = tokens
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	throttle := service.NewLoginThrottle(app.cache, service.ThrottleConfig{
		MaxAttempts: app.cfg.Login.FailRetry,
		Cooldown:    app.cfg.Login.FailRetryWait,
		CounterTTL:  app.cfg.Login.FailCounterTTL,
	})

	app.loginService = &service.LoginService{
		Store:       app.db,
		Hasher:      app.hasher,
		Tokens:      app.tokens,
		Throttle:    throttle,
		Permissions: &service.PermissionResolver{Store: app.db},
		Recorder:    app.metrics,
	}
	app.userService = &service.UserService{Store: app.db, Hasher: app.hasher}
	app.roleService = &service.RoleService{Store: app.db}
	app.menuService = &service.MenuService{Store: app.db}
	app.bootstrapService = &service.BootstrapService{Store: app.db, Hasher: app.hasher}

	if sweeper, ok := app.cache.(cachex.Sweeper); ok {
		app.housekeepingService = service.NewHousekeepingService(sweeper, app.logger, app.cfg.Cache.SweepInterval)
		app.housekeepingService.OnSweep = app.metrics.RecordSweep
	}
}

// bootstrap creates the super admin when the user table is empty. A
// generated password is logged exactly once.
func (app *Application) bootstrap(ctx context.Context) error {
	ctx = slogx.WithContext(ctx, app.logger)

	done, err := app.bootstrapService.IsBootstrapped(ctx)
	if err != nil {
		return fmt.Errorf("failed to check bootstrap state: %w", err)
	}
	if done {
		return nil
	}

	password, err := app.bootstrapService.Bootstrap(ctx, service.BootstrapRequest{
		Mobile:   app.cfg.Bootstrap.AdminMobile,
		UserName: app.cfg.Bootstrap.AdminName,
		Password: app.cfg.Bootstrap.AdminPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to bootstrap super admin: %w", err)
	}

	if app.cfg.Bootstrap.AdminPassword == "" {
		app.logger.Warn("super admin created with a generated password, change it after first login",
			"mobile", app.cfg.Bootstrap.AdminMobile,
			"password", password,
		)
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.tokens,
		app.db,
		app.cache,
		app.metrics,
		BuildVersion,
		app.logger,
	)

	// Validate has already accepted the list.
	proxies, _ := httpx.ParseTrustedProxies(app.cfg.RateLimit.TrustedProxies)
	clientIP := httpx.ProxyIPKeyExtractor(proxies)

	router.LoginPath = app.cfg.Login.Path
	router.LoginLimit = perMinute(app.cfg.RateLimit.LoginPerMinute, clientIP)
	router.APILimit = perMinute(app.cfg.RateLimit.APIPerMinute, clientIP)

	router.LoginService = app.loginService
	router.UserService = app.userService
	router.RoleService = app.roleService
	router.MenuService = app.menuService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              app.cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

func perMinute(n int, clientIP httpx.KeyExtractor) httpx.RateLimitConfig {
	return httpx.RateLimitConfig{RequestsPerWindow: n, Window: time.Minute, Burst: n, ClientIP: clientIP}
}
