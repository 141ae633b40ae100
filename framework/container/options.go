package container

import (
	"time"

	"go.uber.org/zap"
)

// Observer receives resolution events. Implementations must be safe for
// concurrent use and must not call back into the container.
type Observer interface {
	ServiceBuilt(key string, sharing Sharing, d time.Duration)
	ServiceFailed(key string, err error)
	CacheHit(key string)
}

type nopObserver struct{}

func (nopObserver) ServiceBuilt(string, Sharing, time.Duration) {}
func (nopObserver) ServiceFailed(string, error)                 {}
func (nopObserver) CacheHit(string)                             {}

// observers fans events out in registration order.
type observers []Observer

func (o observers) ServiceBuilt(key string, sharing Sharing, d time.Duration) {
	for _, ob := range o {
		ob.ServiceBuilt(key, sharing, d)
	}
}

func (o observers) ServiceFailed(key string, err error) {
	for _, ob := range o {
		ob.ServiceFailed(key, err)
	}
}

func (o observers) CacheHit(key string) {
	for _, ob := range o {
		ob.CacheHit(key)
	}
}

// Option configures a container at compile time.
type Option func(*options)

type options struct {
	id           string
	logger       *zap.Logger
	observers    observers
	maxAliasHops int
}

// WithLogger sets the logger used for build and failure events.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver adds an observer. May be given more than once.
func WithObserver(ob Observer) Option {
	return func(o *options) {
		if ob != nil {
			o.observers = append(o.observers, ob)
		}
	}
}

// WithMaxAliasHops bounds alias chains (default DefaultMaxAliasHops).
func WithMaxAliasHops(n int) Option {
	return func(o *options) { o.maxAliasHops = n }
}

// WithID overrides the generated container ID.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}
