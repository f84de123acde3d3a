package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/specd/internal/api"
	"github.com/eugenenazirov/specd/internal/config"
	"github.com/eugenenazirov/specd/internal/metrics"
	"github.com/eugenenazirov/specd/internal/storage"
	"github.com/eugenenazirov/specd/internal/watch"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	cfg     config.Config
	storage storage.Storage
	watcher *watch.Watcher
	metrics *metrics.Metrics
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// New initializes the application with all dependencies from the provided
// configuration. The spec file is loaded once here; a missing or malformed
// file is fatal.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	m := metrics.New()
	store := storage.NewMemoryStorage()

	watcher := watch.New(cfg.SpecFile, store, logger, watch.WithMetrics(m))
	if err := watcher.Load(); err != nil {
		return nil, fmt.Errorf("failed to load spec file: %w", err)
	}

	handlerOpts := []api.HandlerOption{api.WithMetrics(m)}
	if cfg.Persist {
		handlerOpts = append(handlerOpts, api.WithPersistPath(cfg.SpecFile))
	}
	handler := api.NewHandler(store, handlerOpts...)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithRequestMetrics(m),
	)

	return &App{
		cfg:     cfg,
		storage: store,
		watcher: watcher,
		metrics: m,
		handler: handler,
		router:  apiRouter,
		logger:  logger,
		server:  NewServer(cfg, BuildRootHandler(apiRouter, m.Handler())),
	}, nil
}

// BuildRootHandler routes API requests and the metrics endpoint.
func BuildRootHandler(apiHandler, metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the spec watcher (when enabled) and the HTTP server in a
// goroutine. The watcher stops when ctx is done.
func (a *App) Start(ctx context.Context) error {
	if a.cfg.Watch {
		if err := a.watcher.Start(ctx); err != nil {
			return fmt.Errorf("start spec watcher: %w", err)
		}
	}

	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}
