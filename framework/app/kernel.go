package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-container/framework/config"
	"github.com/km-arc/go-container/framework/container"
	"github.com/km-arc/go-container/framework/logging"
	"github.com/km-arc/go-container/framework/manifest"
	"github.com/km-arc/go-container/framework/metrics"
	"github.com/km-arc/go-container/framework/providers"
	"github.com/km-arc/go-container/routing"
)

// ShutdownTimeout bounds the graceful stop of the debug server.
const ShutdownTimeout = 10 * time.Second

// Application drives the container lifecycle, the way bootstrap/app.php
// drives Laravel's:
//
//	register providers → load manifest → compile → set synthetics → boot → warm
//
// User code registers providers (or catalog factories for the manifest)
// before Bootstrap; afterwards the container is immutable.
type Application struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Collector

	builder   *container.Builder
	providers *container.ProviderRegistry
	catalog   *manifest.Catalog
	names     map[string]string
	supplied  map[string]any
	supplyKey []string
	container *container.Container
	// setupErr is the first compile or Set failure; the container cannot be
	// rebuilt after it
	setupErr error
}

// New creates the application for cfg and registers the core providers.
// A nil cfg loads configuration from .env and the environment.
func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.Load()
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace)
	}

	b := container.NewBuilder()
	a := &Application{
		Config:    cfg,
		Logger:    logger,
		Metrics:   collector,
		builder:   b,
		providers: container.NewProviderRegistry(b),
		catalog:   manifest.NewCatalog(),
		names:     make(map[string]string),
		supplied:  make(map[string]any),
	}

	// core providers, in the order Laravel registers its own
	for _, p := range []container.ServiceProvider{
		&providers.ConfigServiceProvider{},
		&providers.LogServiceProvider{Logger: logger},
		&providers.MetricsServiceProvider{Collector: collector},
		&providers.RoutingServiceProvider{},
		&providers.DebugServiceProvider{FactoryNames: a.names},
	} {
		if err := a.providers.Register(p); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) error {
	return a.providers.Register(provider)
}

// Builder exposes the builder for direct registrations before Bootstrap.
func (a *Application) Builder() *container.Builder { return a.builder }

// Catalog holds the factories the manifest (CONTAINER_MANIFEST) refers to.
func (a *Application) Catalog() *manifest.Catalog { return a.catalog }

// Supply records the value of a synthetic key to Set right after compile.
// Keys are set in the order they were supplied.
func (a *Application) Supply(key string, value any) {
	if _, ok := a.supplied[key]; !ok {
		a.supplyKey = append(a.supplyKey, key)
	}
	a.supplied[key] = value
}

// Container returns the compiled container, or nil before Bootstrap.
func (a *Application) Container() *container.Container { return a.container }

// Bootstrap compiles the container and boots every provider. Calling it again
// after success returns the same container. A failed compile or synthetic Set
// is final and returned on every later call; a failed provider Boot is retried
// from that provider on.
func (a *Application) Bootstrap(ctx context.Context) (*container.Container, error) {
	if a.setupErr != nil {
		return nil, a.setupErr
	}
	if a.container != nil && a.providers.Booted() {
		return a.container, nil
	}
	start := time.Now()

	if a.container == nil {
		c, err := a.setup(start)
		if err != nil {
			a.setupErr = err
			return nil, err
		}
		a.container = c
	}

	if err := a.providers.Boot(ctx); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	if a.Config.Container.Warm {
		if err := a.container.Warm(ctx); err != nil {
			return nil, fmt.Errorf("app: warm: %w", err)
		}
	}

	a.Logger.Info("application booted",
		zap.String("container", a.container.ID()),
		zap.Int("services", len(a.container.Services())),
		zap.Duration("duration", time.Since(start)))
	return a.container, nil
}

// setup applies the manifest, compiles and sets the synthetic services.
func (a *Application) setup(start time.Time) (*container.Container, error) {
	if path := a.Config.Container.Manifest; path != "" {
		if err := a.applyManifest(path); err != nil {
			return nil, err
		}
	}

	opts := []container.Option{container.WithLogger(a.Logger.Named("container"))}
	if a.Metrics != nil {
		opts = append(opts, container.WithObserver(a.Metrics))
	}
	c, err := a.providers.Compile(opts...)
	if err != nil {
		return nil, fmt.Errorf("app: compile: %w", err)
	}

	// synthetics go in before any provider boots
	if err := c.Set(providers.ConfigKey, a.Config); err != nil {
		return nil, err
	}
	if err := c.Set(providers.BootTimeKey, start); err != nil {
		return nil, err
	}
	for _, key := range a.supplyKey {
		if err := c.Set(key, a.supplied[key]); err != nil {
			return nil, fmt.Errorf("app: supply: %w", err)
		}
	}
	return c, nil
}

func (a *Application) applyManifest(path string) error {
	m, err := manifest.LoadFile(path)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := m.Apply(a.builder, a.catalog); err != nil {
		return fmt.Errorf("app: manifest %s: %w", path, err)
	}
	for _, key := range m.ServiceKeys() {
		a.names[key] = m.Services[key].Factory
	}
	a.Logger.Debug("manifest applied", zap.String("path", path), zap.Int("services", len(m.Services)))
	return nil
}

// Router resolves the debug router from the container.
func (a *Application) Router() (*routing.Router, error) {
	if a.container == nil {
		return nil, errors.New("app: router requested before bootstrap")
	}
	return container.Resolve[*routing.Router](a.container, providers.RouterKey)
}

// Run bootstraps the application (if needed) and serves the debug router on
// App.DebugAddr until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if _, err := a.Bootstrap(ctx); err != nil {
		return err
	}
	router, err := a.Router()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.Config.App.DebugAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		a.Logger.Info("debug server listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	a.Logger.Info("debug server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("app: shutdown: %w", err)
	}
	_ = a.Logger.Sync()
	return nil
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.Config.App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config.App.Debug }
func (a *Application) Version() string     { return "0.1.0" }
