package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/buildenv/internal/api"
	"github.com/eugenenazirov/buildenv/internal/buildcfg"
	"github.com/eugenenazirov/buildenv/internal/cache"
	"github.com/eugenenazirov/buildenv/internal/config"
	"github.com/eugenenazirov/buildenv/internal/pkgconfig"
)

// App encapsulates the resolver, its cache and the HTTP server.
type App struct {
	cfg      config.Config
	cache    *cache.MemoryCache
	resolver buildcfg.Resolver
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

type appOptions struct {
	lookup      pkgconfig.Lookup
	diagnostics io.Writer
}

// Option customises dependencies created by New.
type Option func(*appOptions)

// WithLookup replaces the pkg-config backed package lookup.
func WithLookup(lookup pkgconfig.Lookup) Option {
	return func(o *appOptions) {
		o.lookup = lookup
	}
}

// WithDiagnostics sets where option help text is written on validation failures.
func WithDiagnostics(w io.Writer) Option {
	return func(o *appOptions) {
		o.diagnostics = w
	}
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if len(cfg.Targets) == 0 {
		return nil, errors.New("no targets configured")
	}

	o := appOptions{diagnostics: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}
	if o.lookup == nil {
		o.lookup = pkgconfig.New(cfg.PkgConfig)
	}

	store := cache.NewMemoryCache()
	resolver := buildcfg.NewResolver(store, o.lookup,
		buildcfg.WithLogger(logger),
		buildcfg.WithDiagnostics(o.diagnostics),
		buildcfg.WithProfilerPackage(cfg.ProfilerPackage),
	)

	handler := api.NewHandler(resolver, store, cfg.Options)
	router := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		cfg:      cfg,
		cache:    store,
		resolver: resolver,
		handler:  handler,
		router:   router,
		logger:   logger,
		server:   NewServer(cfg, router),
	}, nil
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

// ResolveAll resolves every configured target for every selected flavor, in
// target order then flavor order. The first failure aborts the run.
func (a *App) ResolveAll(ctx context.Context) ([]buildcfg.BuildConfig, error) {
	flavors, err := buildcfg.Flavors(a.cfg.Options)
	if err != nil {
		return nil, err
	}

	out := make([]buildcfg.BuildConfig, 0, len(a.cfg.Targets)*len(flavors))
	for _, target := range a.cfg.Targets {
		for _, flavor := range flavors {
			cfg, err := a.resolver.Resolve(ctx, buildcfg.Target(target), flavor, a.cfg.Options)
			if err != nil {
				return nil, fmt.Errorf("resolve %s/%s: %w", target, flavor, err)
			}
			a.logger.Info("build config ready",
				zap.String("name", cfg.Name),
				zap.String("family", string(cfg.Family)),
			)
			out = append(out, cfg)
		}
	}
	return out, nil
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
