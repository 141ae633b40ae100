package manifest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/km-arc/go-container/framework/container"
)

// ErrPlaceholder is returned by every factory and decorator of a
// Placeholders catalog.
var ErrPlaceholder = errors.New("manifest: placeholder factory")

// Catalog maps the names used in a manifest to Go factories and decorators.
type Catalog struct {
	mu         sync.RWMutex
	factories  map[string]container.Factory
	decorators map[string]container.Decorator
}

func NewCatalog() *Catalog {
	return &Catalog{
		factories:  make(map[string]container.Factory),
		decorators: make(map[string]container.Decorator),
	}
}

// RegisterFactory binds name to f, replacing any earlier binding.
func (c *Catalog) RegisterFactory(name string, f container.Factory) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = f
	return c
}

// RegisterDecorator binds name to d, replacing any earlier binding.
func (c *Catalog) RegisterDecorator(name string, d container.Decorator) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decorators[name] = d
	return c
}

func (c *Catalog) Factory(name string) (container.Factory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.factories[name]
	return f, ok
}

func (c *Catalog) Decorator(name string) (container.Decorator, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.decorators[name]
	return d, ok
}

// Placeholders returns a catalog with an entry for every name m refers to.
// The entries fail with ErrPlaceholder, so the graph compiles and can be
// inspected without the real code.
func Placeholders(m *Manifest) *Catalog {
	cat := NewCatalog()
	for _, svc := range m.Services {
		name := svc.Factory
		cat.RegisterFactory(name, func(container.Resolver) (any, error) {
			return nil, fmt.Errorf("%w %q", ErrPlaceholder, name)
		})
		for _, dn := range svc.Decorators {
			dn := dn
			cat.RegisterDecorator(dn, func(any, container.Resolver) (any, error) {
				return nil, fmt.Errorf("%w %q", ErrPlaceholder, dn)
			})
		}
	}
	return cat
}
