package app

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/chuckbuilds/ledmatrix/internal/api"
	"github.com/chuckbuilds/ledmatrix/internal/cache"
	"github.com/chuckbuilds/ledmatrix/internal/config"
	"github.com/chuckbuilds/ledmatrix/internal/display"
	"github.com/chuckbuilds/ledmatrix/internal/fetch"
	"github.com/chuckbuilds/ledmatrix/internal/httpclient"
	"github.com/chuckbuilds/ledmatrix/internal/logger"
	"github.com/chuckbuilds/ledmatrix/internal/provider"
	"github.com/chuckbuilds/ledmatrix/internal/providers/clock"
	"github.com/chuckbuilds/ledmatrix/internal/providers/scoreboard"
	"github.com/chuckbuilds/ledmatrix/internal/rotation"
	"github.com/chuckbuilds/ledmatrix/internal/telemetry"
	"github.com/chuckbuilds/ledmatrix/internal/versions"
)

const (
	serviceName = "ledmatrixd"

	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second
)

// DisplayAppOptions is a function that configures the app builder
type DisplayAppOptions func(*displayAppConfig) error

// displayAppConfig holds the builder state. It supports dependency
// injection for testing while providing production defaults.
type displayAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	client    httpclient.Client
	telemetry *telemetry.Telemetry

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration
}

func baseConfig(opts ...DisplayAppOptions) (*displayAppConfig, error) {
	cfg := &displayAppConfig{
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// NewDisplayApp creates the display daemon with the given options.
func NewDisplayApp(ctx context.Context, opts ...DisplayAppOptions) (*DisplayApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	if cfg.config == nil {
		cfg.config = config.Default()
	}
	if cfg.address == "" {
		cfg.address = cfg.config.HTTP.Address
	}

	if cfg.telemetry == nil {
		cfg.telemetry, err = telemetry.New(serviceName, versions.Version)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
	}

	components, err := buildComponents(cfg)
	if err != nil {
		return nil, err
	}

	httpServer := buildHTTPServer(cfg, components)

	appCtx, cancel := context.WithCancel(ctx)

	return &DisplayApp{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) DisplayAppOptions {
	return func(cfg *displayAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) DisplayAppOptions {
	return func(cfg *displayAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		parts := strings.SplitN(addr, ":", 2)
		if len(parts) != 2 || parts[1] == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		host := parts[0]
		port := parts[1]

		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) DisplayAppOptions {
	return func(cfg *displayAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithHTTPClient allows injecting a custom fetch client (for testing)
func WithHTTPClient(client httpclient.Client) DisplayAppOptions {
	return func(cfg *displayAppConfig) error {
		cfg.client = client
		return nil
	}
}

// WithTelemetry allows injecting a custom telemetry instance (for testing)
func WithTelemetry(t *telemetry.Telemetry) DisplayAppOptions {
	return func(cfg *displayAppConfig) error {
		cfg.telemetry = t
		return nil
	}
}

// buildComponents wires the cache, scheduler, providers, and controller
func buildComponents(b *displayAppConfig) (*Components, error) {
	logger.Infof("Initializing display components")

	c := cache.New()

	fetchMetrics, err := telemetry.NewFetchMetrics(b.telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch metrics: %w", err)
	}

	schedulerOpts := []fetch.SchedulerOption{fetch.WithMetrics(fetchMetrics)}
	if b.client != nil {
		schedulerOpts = append(schedulerOpts, fetch.WithClient(b.client))
	}

	sched := b.config.Scheduler
	scheduler := fetch.NewScheduler(fetch.Config{
		MaxWorkers:        sched.MaxWorkers,
		DefaultTimeout:    sched.RequestTimeout.Std(),
		DefaultMaxRetries: sched.MaxRetries,
		DefaultTTL:        sched.DefaultTTL.Std(),
		BackoffInitial:    sched.BackoffInitial.Std(),
		BackoffMax:        sched.BackoffMax.Std(),
	}, c, schedulerOpts...)

	registry := provider.NewRegistry()
	if err := registerProviders(b.config, registry, scheduler); err != nil {
		return nil, err
	}
	if registry.Len() == 0 {
		return nil, fmt.Errorf("no display providers enabled")
	}

	rotationMetrics, err := telemetry.NewRotationMetrics(b.telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create rotation metrics: %w", err)
	}

	surface := display.NewTextSurface(b.config.Display.Width, b.config.Display.Height)
	controller := rotation.NewController(
		registry,
		surface,
		b.config.Display.TickInterval.Std(),
		rotation.WithMetrics(rotationMetrics),
	)

	return &Components{
		Cache:      c,
		Scheduler:  scheduler,
		Registry:   registry,
		Surface:    surface,
		Controller: controller,
		Telemetry:  b.telemetry,
	}, nil
}

// registerProviders registers every enabled provider from the config
func registerProviders(cfg *config.Config, registry *provider.Registry, scheduler *fetch.Scheduler) error {
	if cc := cfg.Providers.Clock; cc != nil && cc.Enabled {
		p := clock.New(clock.Config{
			DisplayDuration: cc.DisplayDuration.Std(),
			TimeFormat:      cc.TimeFormat,
		})
		if err := registry.Register(p); err != nil {
			return fmt.Errorf("failed to register clock provider: %w", err)
		}
		logger.Infof("Registered provider %q", p.Name())
	}

	if sc := cfg.Providers.Scoreboard; sc != nil && sc.Enabled {
		p, err := scoreboard.New(scoreboard.Config{
			URL:             sc.URL,
			Team:            sc.Team,
			DisplayDuration: sc.DisplayDuration.Std(),
			RefreshInterval: sc.RefreshInterval.Std(),
			TTL:             sc.TTL.Std(),
			Priority:        sc.Priority,
		}, scheduler)
		if err != nil {
			return fmt.Errorf("failed to create scoreboard provider: %w", err)
		}

		var opts []provider.RegisterOption
		if sc.LivePriority {
			opts = append(opts, provider.WithLivePriority())
		}
		if err := registry.Register(p, opts...); err != nil {
			return fmt.Errorf("failed to register scoreboard provider: %w", err)
		}
		logger.Infof("Registered provider %q (live priority: %v)", p.Name(), sc.LivePriority)
	}

	return nil
}

// buildHTTPServer builds the HTTP server with router and middleware
func buildHTTPServer(b *displayAppConfig, components *Components) *http.Server {
	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	router := api.NewServer(
		components.Controller,
		components.Registry,
		api.WithMiddlewares(b.middlewares...),
		api.WithMetricsHandler(components.Telemetry.Handler()),
	)

	return &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}
}
