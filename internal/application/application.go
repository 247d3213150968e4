package application

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/smartpack/internal/api"
	"github.com/eugenenazirov/smartpack/internal/config"
	"github.com/eugenenazirov/smartpack/internal/metrics"
	"github.com/eugenenazirov/smartpack/internal/packing"
	"github.com/eugenenazirov/smartpack/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage storage.Storage
	planner packing.Planner
	metrics *metrics.Metrics
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// Option customises App construction.
type Option func(*options)

type options struct {
	version string
}

// WithVersion sets the build version reported by the health endpoint.
func WithVersion(version string) Option {
	return func(o *options) {
		o.version = version
	}
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	o := options{version: "dev"}
	for _, opt := range opts {
		opt(&o)
	}

	store, err := storage.NewMemoryStorage(cfg.Catalog, cfg.CustomMargin)
	if err != nil {
		return nil, fmt.Errorf("failed to apply box catalog: %w", err)
	}

	planner := NewPlanner(cfg)

	var m *metrics.Metrics
	if cfg.EnableMetrics {
		m = metrics.New()
	}

	handler := api.NewHandler(planner, store,
		api.WithMetrics(m),
		api.WithLogger(logger),
		api.WithVersion(o.version),
	)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithRouterMetrics(m),
	)

	return &App{
		storage: store,
		planner: planner,
		metrics: m,
		handler: handler,
		router:  apiRouter,
		logger:  logger,
		server:  NewServer(cfg, BuildRootHandler(apiRouter, m)),
	}, nil
}

// NewPlanner builds the packing planner from the packing section of cfg.
func NewPlanner(cfg config.Config) packing.Planner {
	return packing.New(
		packing.WithEnvelopePolicy(cfg.EnvelopePolicy),
		packing.WithMaxAnchors(cfg.MaxAnchors),
		packing.WithMaxInstances(cfg.MaxInstances),
		packing.WithCostBaseRate(cfg.CostBaseRate),
		packing.WithPackTimeout(cfg.PackTimeout),
	)
}

// BuildRootHandler mounts the API under /api/ and, when m is non-nil, the
// Prometheus endpoint under /metrics.
func BuildRootHandler(apiHandler http.Handler, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/api/health", http.StatusTemporaryRedirect)
	}))
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

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
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

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}
