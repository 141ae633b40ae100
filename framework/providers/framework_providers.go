package providers

import (
	"context"

	"go.uber.org/zap"

	"github.com/km-arc/go-container/framework/container"
	"github.com/km-arc/go-container/framework/metrics"
	gohttp "github.com/km-arc/go-container/http"
	"github.com/km-arc/go-container/routing"
)

// Keys bound by the core providers.
const (
	ConfigKey   = "config"
	BootTimeKey = "kernel.boot_time"
	LoggerKey   = "logger"
	MetricsKey  = "metrics"
	RouterKey   = "router"
	DebugKey    = "debug.container"

	// RoutesTag marks services mounted under the debug prefix.
	RoutesTag = "debug.routes"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider declares the configuration as a synthetic service.
// The kernel loads it before the container exists and Sets it during
// bootstrap, together with the boot time.
//
// Bound keys:
//   - "config"           → *config.Config (synthetic)
//   - "configuration"    → alias of "config"
//   - "kernel.boot_time" → time.Time (synthetic)
type ConfigServiceProvider struct {
	container.BaseProvider
}

func (p *ConfigServiceProvider) Register(b *container.Builder) error {
	b.Synthetic(ConfigKey)
	b.Alias("configuration", ConfigKey)
	b.Synthetic(BootTimeKey)
	return nil
}

func (p *ConfigServiceProvider) Provides() []string {
	return []string{ConfigKey, BootTimeKey}
}

// ── LogServiceProvider ────────────────────────────────────────────────────────

// LogServiceProvider exposes the kernel's logger. The logger is built before
// compile so the container itself can log with it.
//
// Bound keys:
//   - "logger"                  → *zap.Logger
//   - "Psr\Log\LoggerInterface" → alias of "logger"
//   - "log"                     → private alias of "logger"
type LogServiceProvider struct {
	container.BaseProvider
	Logger *zap.Logger
}

func (p *LogServiceProvider) Register(b *container.Builder) error {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := b.Define(container.Definition{
		Key:         LoggerKey,
		Factory:     func(container.Resolver) (any, error) { return logger, nil },
		Tags:        []string{"kernel"},
		Description: "application logger",
	}); err != nil {
		return err
	}
	b.Alias(`Psr\Log\LoggerInterface`, LoggerKey)
	b.PrivateAlias("log", LoggerKey)
	return nil
}

func (p *LogServiceProvider) Provides() []string { return []string{LoggerKey} }

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider binds the Prometheus collector. With a nil
// Collector (metrics disabled) the key is recorded as removed so lookups
// fail with a clear reason.
//
// Bound keys:
//   - "metrics" → *metrics.Collector
type MetricsServiceProvider struct {
	container.BaseProvider
	Collector *metrics.Collector
}

func (p *MetricsServiceProvider) Register(b *container.Builder) error {
	if p.Collector == nil {
		b.Remove(MetricsKey, "disabled")
		return nil
	}
	collector := p.Collector
	return b.Define(container.Definition{
		Key:         MetricsKey,
		Factory:     func(container.Resolver) (any, error) { return collector, nil },
		Tags:        []string{"kernel"},
		Description: "prometheus collector",
	})
}

func (p *MetricsServiceProvider) Boot(_ context.Context, c *container.Container) error {
	if p.Collector != nil {
		p.Collector.Track(c)
	}
	return nil
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router of the debug server.
//
// Bound keys:
//   - "router" → *routing.Router
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(b *container.Builder) error {
	b.Singleton(RouterKey, func(r container.Resolver) (any, error) {
		logger, err := container.Resolve[*zap.Logger](r, "log")
		if err != nil {
			return nil, err
		}
		return routing.New(logger.Named("http")), nil
	}, "log")
	return nil
}

func (p *RoutingServiceProvider) Provides() []string { return []string{RouterKey} }

// ── DebugServiceProvider ──────────────────────────────────────────────────────

// DebugServiceProvider mounts the container debug endpoints and /metrics on
// the router during boot.
//
// Bound keys:
//   - "debug.container" → *gohttp.Debug (private)
type DebugServiceProvider struct {
	container.BaseProvider
	// Prefix defaults to "/_container".
	Prefix string
	// FactoryNames feeds the manifest dump.
	FactoryNames map[string]string
}

func (p *DebugServiceProvider) Register(b *container.Builder) error {
	names := p.FactoryNames
	b.Private(DebugKey, func(r container.Resolver) (any, error) {
		c, err := container.Resolve[*container.Container](r, container.SelfKey)
		if err != nil {
			return nil, err
		}
		logger, err := container.Resolve[*zap.Logger](r, "log")
		if err != nil {
			return nil, err
		}
		return gohttp.NewDebug(c, names, logger.Named("debug")), nil
	}, container.SelfKey, "log")
	b.Tag(DebugKey, RoutesTag)
	return nil
}

func (p *DebugServiceProvider) Boot(_ context.Context, c *container.Container) error {
	router, err := container.Resolve[*routing.Router](c, RouterKey)
	if err != nil {
		return err
	}
	prefix := p.Prefix
	if prefix == "" {
		prefix = "/_container"
	}
	// the debug handler is private; tagged lookups may reach it
	mounts, err := c.Tagged(RoutesTag)
	if err != nil {
		return err
	}
	router.Prefix(prefix, func(sub *routing.Router) {
		for _, m := range mounts {
			if rm, ok := m.(interface{ Routes(*routing.Router) }); ok {
				rm.Routes(sub)
			}
		}
	})

	if c.Has(MetricsKey) {
		collector, err := container.Resolve[*metrics.Collector](c, MetricsKey)
		if err != nil {
			return err
		}
		router.Mount("/metrics", collector.Handler())
	}
	return nil
}
