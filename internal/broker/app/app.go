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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mona-chen/jean/internal/broker/cache"
	httpapi "github.com/mona-chen/jean/internal/broker/http"
	"github.com/mona-chen/jean/internal/broker/rooms"
	"github.com/mona-chen/jean/internal/broker/service"
	"github.com/mona-chen/jean/internal/broker/store"
	"github.com/mona-chen/jean/internal/broker/store/drivers/sqlite"
	"github.com/mona-chen/jean/pkg/breaker"
	"github.com/mona-chen/jean/pkg/cryptox"
	"github.com/mona-chen/jean/pkg/dasclient"
	"github.com/mona-chen/jean/pkg/jwtx"
	"github.com/mona-chen/jean/pkg/ledger"
	"github.com/mona-chen/jean/pkg/slogx"
)

// BuildVersion is overridden at build time with -ldflags "-X ...".
var BuildVersion = "v0.1.0"

// Application holds the broker's dependencies from startup to shutdown.
type Application struct {
	cfg    Config
	logger *slog.Logger

	registry *prometheus.Registry
	breakers *breaker.Registry

	db     store.Store
	kv     cache.KV
	keys   *jwtx.KeyStore
	codec  *jwtx.Codec
	hasher cryptox.SecretHasher

	das    *dasclient.Client
	ledger *ledger.Client
	rooms  *rooms.Client

	tokenService *service.TokenService
	reaper       *service.ExpiryReaper

	server *http.Server
	router *httpapi.Router
}

// New wires every dependency. Nothing is listening yet.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "tep-broker",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		registry: prometheus.NewRegistry(),
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx := context.Background()
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"database", app.initDatabase},
		{"cache", app.initCache},
		{"signing keys", app.initKeys},
		{"upstream clients", app.initClients},
		{"mini-app registrations", app.seedMiniApps},
		{"http", app.initHTTP},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			app.closeStores()
			return nil, fmt.Errorf("init %s: %w", step.name, err)
		}
	}
	return app, nil
}

// Run serves until SIGINT/SIGTERM, then shuts down gracefully.
func (app *Application) Run() error {
	if err := app.reaper.Start(); err != nil {
		return fmt.Errorf("start expiry reaper: %w", err)
	}

	app.logger.Info("tep broker starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"issuer", app.cfg.Issuer,
		"cache", cacheKind(app.cfg),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
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

// Shutdown drains HTTP, lets the reaper and background wallet
// registrations finish, then closes the stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down tep broker...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.reaper.Stop(ctx)

	done := make(chan struct{})
	go func() {
		app.tokenService.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		app.logger.Warn("wallet registrations still running at shutdown")
	}

	if err := app.closeStores(); err != nil {
		return err
	}
	app.logger.Info("tep broker stopped")
	return nil
}

func (app *Application) closeStores() error {
	var errs []error
	if app.kv != nil {
		if err := app.kv.Close(); err != nil {
			app.logger.Error("error closing cache", "error", err)
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

func (app *Application) initDatabase(context.Context) error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return err
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)

	pepper, err := cryptox.LoadPepper(app.cfg.PepperFile)
	if err != nil {
		return err
	}
	app.hasher = cryptox.SecretHasher{Pepper: pepper}
	return nil
}

func (app *Application) initCache(ctx context.Context) error {
	if app.cfg.RedisURL == "" {
		app.logger.Warn("REDIS_URL not set, using in-process cache; idempotency guards are not shared between instances")
		app.kv = cache.NewMemory()
		return nil
	}

	kv, err := cache.NewRedis(app.cfg.RedisURL, "")
	if err != nil {
		return err
	}
	app.kv = kv

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := kv.Ping(pingCtx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (app *Application) initKeys(context.Context) error {
	keys, err := InitSigningKeys(app.cfg, app.logger)
	if err != nil {
		return err
	}
	app.keys = keys
	app.codec = jwtx.NewCodec(keys, app.cfg.Issuer)
	return nil
}

func (app *Application) initClients(context.Context) error {
	breakers, err := breaker.NewRegistry(app.cfg.Breaker, app.registry)
	if err != nil {
		return err
	}
	app.breakers = breakers

	app.ledger, err = ledger.New(ledger.Config{
		BaseURL: app.cfg.WalletBaseURL,
		APIKey:  app.cfg.WalletAPIKey,
		Timeout: app.cfg.WalletTimeout,
	}, breakers)
	if err != nil {
		return err
	}

	app.das, err = dasclient.New(dasclient.Config{
		ClientID:         app.cfg.MASClientID,
		ClientSecret:     app.cfg.MASClientSecret,
		ClientSecretFile: app.cfg.MASClientSecretFile,
		TokenURL:         app.cfg.MASTokenURL,
		IntrospectionURL: app.cfg.MASIntrospectionURL,
		RevocationURL:    app.cfg.MASRevocationURL,
		Timeout:          app.cfg.MASTimeout,
	})
	if err != nil {
		return err
	}

	app.rooms = rooms.New(rooms.Config{
		BaseURL:     app.cfg.MatrixAPIURL,
		AccessToken: app.cfg.MatrixAccessToken,
	})
	if !app.rooms.Enabled() {
		app.logger.Warn("homeserver client not configured, room events are disabled",
			"allow_unverified_rooms", app.cfg.AllowUnverifiedRoom)
	}
	return nil
}

func (app *Application) seedMiniApps(ctx context.Context) error {
	if app.cfg.MiniAppsFile == "" {
		return nil
	}
	regs, err := service.LoadRegistrations(app.cfg.MiniAppsFile)
	if err != nil {
		return err
	}
	apps := &service.MiniAppService{Store: app.db, Hasher: app.hasher}
	if err := apps.Seed(ctx, regs); err != nil {
		return err
	}
	app.logger.Info("mini-app registrations loaded", "count", len(regs), "file", app.cfg.MiniAppsFile)
	return nil
}

func (app *Application) initHTTP(context.Context) error {
	users := &service.UserService{Store: app.db}
	consent := &service.ConsentResolver{
		Store:      app.db,
		Cache:      app.kv,
		SessionTTL: app.cfg.ConsentSessionTTL,
	}
	app.tokenService = &service.TokenService{
		Codec:   app.codec,
		Store:   app.db,
		Cache:   app.kv,
		DAS:     app.das,
		Wallets: app.ledger,
		Consent: consent,
		Users:   users,
		Hasher:  app.hasher,
	}

	app.reaper = service.NewExpiryReaper(app.ledger, app.rooms, app.logger, app.cfg.ReaperSchedule)
	if mem, ok := app.kv.(*cache.Memory); ok {
		app.reaper.Cache = mem
	}

	router, err := httpapi.NewRouter(
		app.keys,
		app.codec,
		BuildVersion,
		app.db,
		app.kv,
		app.cfg.RateLimits,
		app.registry,
		app.logger,
	)
	if err != nil {
		return err
	}

	router.TokenService = app.tokenService
	router.UserService = users
	router.Consent = consent
	router.Breakers = app.breakers
	router.AuthorizeService = &service.AuthorizeService{
		Store:      app.db,
		Cache:      app.kv,
		DASAuthURL: app.cfg.MASAuthURL,
		TTL:        app.cfg.AuthRequestTTL,
	}
	router.Transfers = &service.TransferService{
		Ledger:               app.ledger,
		Rooms:                app.rooms,
		Users:                users,
		Cache:                app.kv,
		AllowUnverifiedRooms: app.cfg.AllowUnverifiedRoom,
		InitiateGuardTTL:     app.cfg.InitiateGuardTTL,
		ConfirmGuardTTL:      app.cfg.ConfirmGuardTTL,
	}
	router.Wallet = &service.WalletService{Ledger: app.ledger}
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}

func cacheKind(cfg Config) string {
	if cfg.RedisURL == "" {
		return "memory"
	}
	return "redis"
}
