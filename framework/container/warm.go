package container

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultWarmConcurrency bounds the goroutines Warm uses.
const DefaultWarmConcurrency = 8

// Warm builds the given keys eagerly and concurrently. With no keys it warms
// every shared and private service in build order. Failures do not stop the
// other builds; all of them are returned joined. ctx is checked before each
// build starts.
func (c *Container) Warm(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		for _, key := range c.order {
			if c.defs[key].Sharing.cached() {
				keys = append(keys, key)
			}
		}
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g := new(errgroup.Group)
	g.SetLimit(DefaultWarmConcurrency)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			// warm-up may reach private services
			if _, err := c.resolve(&resolver{c: c}, key); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		c.logger.Warn("container warm-up incomplete", zap.Int("failed", len(errs)), zap.Int("requested", len(keys)))
		return errors.Join(errs...)
	}
	c.logger.Info("container warmed", zap.Int("services", len(keys)))
	return nil
}
