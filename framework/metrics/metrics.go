// Package metrics exports container resolution events to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-container/framework/container"
)

// Collector holds the Prometheus metrics for one container. It implements
// container.Observer.
type Collector struct {
	registry *prometheus.Registry

	Built      *prometheus.CounterVec
	Failed     *prometheus.CounterVec
	CacheHits  *prometheus.CounterVec
	BuildTime  *prometheus.HistogramVec
	Registered prometheus.Gauge
}

var _ container.Observer = (*Collector)(nil)

// NewCollector creates a collector backed by its own registry, so several
// containers in one process (or in tests) never clash on registration.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	built := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "services_built_total",
			Help:      "Total number of service instances constructed",
		},
		[]string{"service", "sharing"},
	)

	failed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_failures_total",
			Help:      "Total number of failed service constructions",
		},
		[]string{"service", "kind"},
	)

	hits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of requests served from the instance cache",
		},
		[]string{"service"},
	)

	buildTime := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "service_build_duration_seconds",
			Help:      "Service construction time in seconds, including decorators",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	registered := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "services_registered",
			Help:      "Number of service keys in the compiled container",
		},
	)

	registry.MustRegister(
		built,
		failed,
		hits,
		buildTime,
		registered,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{
		registry:   registry,
		Built:      built,
		Failed:     failed,
		CacheHits:  hits,
		BuildTime:  buildTime,
		Registered: registered,
	}
}

func (c *Collector) ServiceBuilt(key string, sharing container.Sharing, d time.Duration) {
	c.Built.WithLabelValues(key, sharing.String()).Inc()
	c.BuildTime.WithLabelValues(key).Observe(d.Seconds())
}

func (c *Collector) ServiceFailed(key string, err error) {
	c.Failed.WithLabelValues(key, container.KindName(err)).Inc()
}

func (c *Collector) CacheHit(key string) {
	c.CacheHits.WithLabelValues(key).Inc()
}

// Track records the size of a compiled container.
func (c *Collector) Track(ct *container.Container) {
	c.Registered.Set(float64(len(ct.Services())))
}

// Registry returns the Prometheus registry for this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
