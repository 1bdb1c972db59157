// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sevler/gatehouse/internal/apitoken"
	"github.com/sevler/gatehouse/internal/config"
	"github.com/sevler/gatehouse/internal/directory"
	directorypostgres "github.com/sevler/gatehouse/internal/directory/postgres"
	"github.com/sevler/gatehouse/internal/gateway"
	"github.com/sevler/gatehouse/internal/pkg/ctxlog"
	"github.com/sevler/gatehouse/internal/pkg/httputil"
	"github.com/sevler/gatehouse/internal/pkg/metrics"
	"github.com/sevler/gatehouse/internal/pkg/postgres"
	"github.com/sevler/gatehouse/internal/queue"
	"github.com/sevler/gatehouse/internal/skiptoken"
	skiptokenpostgres "github.com/sevler/gatehouse/internal/skiptoken/postgres"
	"github.com/sevler/gatehouse/internal/telemetry"
	"github.com/sevler/gatehouse/internal/updates"
	"github.com/sevler/gatehouse/internal/version"
	"github.com/sevler/gatehouse/migrations"
)

// App represents the application instance.
type App struct {
	config    *config.Config
	cfgSource *config.Source
	logger    *slog.Logger
	db        *pgxpool.Pool

	scheduler     *queue.Scheduler
	janitor       *skiptoken.Janitor
	updateChecker *updates.Checker
	reporter      *telemetry.Reporter

	server        *http.Server
	metricsServer *http.Server
	bgCtx         context.Context
	bgCancel      context.CancelFunc
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	var db *pgxpool.Pool
	if needsDatabase(cfg) {
		connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
		defer connectCancel()

		var err error
		db, err = postgres.Connect(connectCtx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnectAttempts: cfg.Database.ConnectAttempts,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}

		if err := postgres.Migrate(cfg.Database.URL, migrations.FS, migrations.Dir); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	bgCtx, bgCancel := context.WithCancel(ctxlog.WithLogger(context.Background(), logger))

	app := &App{
		config:    cfg,
		cfgSource: config.NewSource(cfg.Snapshot()),
		logger:    logger,
		db:        db,
		bgCtx:     bgCtx,
		bgCancel:  bgCancel,
	}

	if db != nil {
		go app.collectDBMetrics(bgCtx)
	}

	router, err := app.setup()
	if err != nil {
		if db != nil {
			db.Close()
		}
		bgCancel()
		return nil, fmt.Errorf("setup application: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the background workers and HTTP servers.
func (a *App) Run() error {
	a.scheduler.Start(a.bgCtx)
	if a.janitor != nil {
		a.janitor.Start(a.bgCtx)
	}
	if a.updateChecker != nil {
		a.updateChecker.Start(a.bgCtx)
	}
	if a.reporter != nil {
		go a.reporter.Report(a.bgCtx, len(a.config.Queue.Targets))
	}

	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	// Start main server
	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.bgCancel()

	// Stop workers first so no dispatch races the server teardown
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.janitor != nil {
		a.janitor.Stop()
	}
	if a.updateChecker != nil {
		a.updateChecker.Stop()
	}

	// Shutdown both servers in parallel
	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	if a.db != nil {
		a.db.Close()
	}

	return errors.Join(errs...)
}

// Reload re-reads the configuration file and installs the queue-facing
// subset atomically. Server addresses, database settings and feature toggles
// need a restart; weights, targets, intervals and group names apply live.
func (a *App) Reload(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	a.cfgSource.Replace(cfg.Snapshot())
	a.logger.Info("configuration reloaded",
		"targets", cfg.Queue.Targets,
		"weights", fmt.Sprintf("%d/%d/%d",
			cfg.Queue.Weights.Premium, cfg.Queue.Weights.Vip, cfg.Queue.Weights.Default),
	)
	return nil
}

func (a *App) collectDBMetrics(ctx context.Context) {
	// Collect immediately on start
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Scheduler returns the queue scheduler instance. Used in tests.
func (a *App) Scheduler() *queue.Scheduler {
	return a.scheduler
}

func (a *App) setup() (*chi.Mux, error) {
	cfg := a.config

	tokens, err := apitoken.LoadOrCreate(tokenPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("load api token: %w", err)
	}

	proxy := gateway.NewClient(gateway.Config{
		BaseURL: cfg.Gateway.BaseURL,
		Token:   cfg.Gateway.AuthToken,
		Timeout: cfg.Gateway.Timeout,
	})

	policy, err := queue.NewWeightedPolicy(
		cfg.Queue.Weights.Premium,
		cfg.Queue.Weights.Vip,
		cfg.Queue.Weights.Default,
	)
	if err != nil {
		return nil, fmt.Errorf("create dequeue policy: %w", err)
	}

	var directoryService *directory.Service
	if cfg.Directory.Enabled {
		directoryService = directory.NewService(directorypostgres.NewRepository(a.db))
	}

	store := queue.NewStore()
	selector := queue.NewLeastRecentSelector(proxy)
	a.scheduler = queue.NewScheduler(a.cfgSource, store, policy, selector, directoryService, proxy)

	queueHandler := queue.NewHandler(a.scheduler)

	var skiptokenHandler *skiptoken.Handler
	if cfg.SkipTokens.Enabled {
		service := skiptoken.NewService(skiptokenpostgres.NewRepository(a.db), a.scheduler)
		a.janitor = skiptoken.NewJanitor(service, cfg.SkipTokens.PurgeInterval)
		skiptokenHandler = skiptoken.NewHandler(service)
	}

	if cfg.Updates.Enabled {
		a.updateChecker = updates.NewChecker(updates.Config{
			Endpoint: cfg.Updates.Endpoint,
			Interval: cfg.Updates.Interval,
		})
	}
	if cfg.Telemetry.Enabled {
		a.reporter = telemetry.NewReporter(telemetry.Config{
			Endpoint: cfg.Telemetry.Endpoint,
			DataDir:  cfg.DataDir,
		})
	}

	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httputil.BearerAuth(tokens.Authorize))

		queueHandler.RegisterRoutes(r)

		if skiptokenHandler != nil {
			r.Route("/skip-tokens", func(r chi.Router) {
				r.Use(httputil.RateLimit(cfg.SkipTokens.RateLimit, cfg.SkipTokens.RateBurst))
				skiptokenHandler.RegisterRoutes(r)
			})
		}

		if directoryService != nil {
			r.Route("/directory", func(r chi.Router) {
				directory.NewHandler(directoryService).RegisterRoutes(r)
			})
		}
	})

	return r, nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if a.db == nil {
		httputil.Text(w, http.StatusOK, "OK")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func needsDatabase(cfg *config.Config) bool {
	return cfg.Directory.Enabled || cfg.SkipTokens.Enabled
}

func tokenPath(cfg *config.Config) string {
	if filepath.IsAbs(cfg.Server.TokenFile) {
		return cfg.Server.TokenFile
	}
	return filepath.Join(cfg.DataDir, cfg.Server.TokenFile)
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
