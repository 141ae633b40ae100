package container

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
)

// Resolver is what factories and application code use to pull services.
type Resolver interface {
	Get(key string) (any, error)
	Has(key string) bool
	Tagged(tag string) ([]any, error)
}

// resolver is one frame of a resolution chain. The root frame has no key and
// represents a caller outside the container; every factory call gets a child
// frame naming the key being built. Frames are immutable.
type resolver struct {
	c      *Container
	key    string
	parent *resolver
	public bool
}

func (r *resolver) child(key string) *resolver {
	return &resolver{c: r.c, key: key, parent: r}
}

// chain lists the keys being built, outermost first.
func (r *resolver) chain() []string {
	var keys []string
	for f := r; f != nil; f = f.parent {
		if f.key != "" {
			keys = append(keys, f.key)
		}
	}
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	return keys
}

func (r *resolver) inChain(key string) bool {
	for f := r; f != nil; f = f.parent {
		if f.key == key {
			return true
		}
	}
	return false
}

// descendsFrom reports whether x is r or one of its ancestors.
func (r *resolver) descendsFrom(x *resolver) bool {
	for f := r; f != nil; f = f.parent {
		if f == x {
			return true
		}
	}
	return false
}

func (r *resolver) Get(key string) (any, error) { return r.c.resolve(r, key) }

func (r *resolver) Has(key string) bool { return r.c.has(key, r.public) }

func (r *resolver) Tagged(tag string) ([]any, error) { return r.c.tagged(r, tag) }

// ── Resolution ────────────────────────────────────────────────────────────────

// resolve walks: contextual binding → alias chain → visibility → removed →
// synthetic → cache → factory.
func (c *Container) resolve(from *resolver, key string) (any, error) {
	if from.key != "" {
		if b, ok := c.contextual[from.key][key]; ok {
			if b.hasValue {
				return b.value, nil
			}
			key = b.target
		}
	}

	canonical, err := c.aliases.resolve(key)
	if err != nil {
		if se, ok := err.(*ServiceError); ok {
			se.Op = "get"
		}
		return nil, err
	}

	if reason, ok := c.removed[canonical]; ok {
		return nil, removedError(key, reason)
	}

	if c.synthetic[canonical] {
		if from.public && !c.reachable(key, nil) {
			return nil, removedError(key, ReasonPrivate)
		}
		if inst, ok := c.cache.getCached(canonical); ok {
			return inst, nil
		}
		return nil, syntheticError(key)
	}

	def, ok := c.defs[canonical]
	if !ok {
		e := newServiceError("get", key, ErrUnknownService)
		if s := suggest(key, c.publicKeys()); s != "" {
			e.Hint = fmt.Sprintf("did you mean %q?", s)
		}
		return nil, e
	}

	if from.public && !c.reachable(key, def) {
		return nil, removedError(key, ReasonPrivate)
	}

	if from.inChain(canonical) {
		return nil, newServiceError("get", canonical, ErrCircularReference).
			withChain(append(from.chain(), canonical))
	}

	frame := from.child(canonical)

	if !def.Sharing.cached() {
		return c.build(frame, def)
	}

	inst, hit, err := c.cache.acquire(canonical, from, frame)
	if err != nil {
		return nil, err
	}
	if hit {
		c.observer.CacheHit(canonical)
		return inst, nil
	}
	inst, err = c.build(frame, def)
	c.cache.release(canonical, inst, err)
	return inst, err
}

// reachable reports whether key may be requested from the public surface.
// A public alias exposes a private service; a private alias hides a public one.
func (c *Container) reachable(key string, def *Definition) bool {
	if c.aliases.isAlias(key) {
		for cur := key; c.aliases.isAlias(cur); cur = c.aliases.entries[cur].target {
			if c.aliases.isPrivate(cur) {
				return false
			}
		}
		return true
	}
	// synthetic keys have no definition and are always public
	return def == nil || def.Sharing != Private
}

// build runs the factory and the decorator fold for def in frame.
func (c *Container) build(frame *resolver, def *Definition) (instance any, err error) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			c.logger.Error("service factory panicked",
				zap.String("service", def.Key),
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()))
			instance, err = nil, fmt.Errorf("panic: %v", p)
		}
		if err != nil {
			err = c.failed(frame, def.Key, err)
		}
	}()

	instance, err = def.Factory(frame)
	if err != nil {
		return nil, err
	}
	for i, decorate := range def.Decorators {
		instance, err = decorate(instance, frame)
		if err != nil {
			return nil, fmt.Errorf("decorator %d: %w", i, err)
		}
	}

	d := time.Since(start)
	c.logger.Debug("service built",
		zap.String("service", def.Key),
		zap.Stringer("sharing", def.Sharing),
		zap.Duration("duration", d))
	c.observer.ServiceBuilt(def.Key, def.Sharing, d)
	return instance, nil
}

func (c *Container) failed(frame *resolver, key string, cause error) error {
	err := newServiceError("get", key, ErrFactoryFailed).
		withChain(frame.chain()).
		withCause(cause)
	log := c.logger.Warn
	var inner *ServiceError
	if errors.As(cause, &inner) {
		// already reported where it originated
		log = c.logger.Debug
	}
	log("service construction failed",
		zap.String("service", key),
		zap.Strings("chain", err.Chain),
		zap.Error(cause))
	c.observer.ServiceFailed(key, err)
	return err
}

func (c *Container) tagged(from *resolver, tag string) ([]any, error) {
	keys := c.tags[tag]
	out := make([]any, 0, len(keys))
	// tagged collections behave like a service locator: members may be private
	inner := from
	if from.public {
		inner = &resolver{c: c}
	}
	for _, key := range keys {
		inst, err := c.resolve(inner, key)
		if err != nil {
			return nil, fmt.Errorf("container: tagged %q: %w", tag, err)
		}
		out = append(out, inst)
	}
	return out, nil
}
