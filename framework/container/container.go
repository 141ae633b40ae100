package container

import (
	"fmt"
	"reflect"
	"sort"

	"go.uber.org/zap"
)

// SelfKey is the synthetic key under which every container exposes itself.
const SelfKey = "container"

// ── Container ─────────────────────────────────────────────────────────────────

// Container is a compiled, immutable service graph plus its instance cache.
//
// It is produced by Builder.Compile and supports:
//   - Get / Has / MustGet / Resolve[T] on the public surface
//   - Set for synthetic keys supplied during bootstrap
//   - Tagged collections in declaration order
//   - Inspect / Services / Aliases / RemovedIDs for diagnostics
//   - Warm for eager, concurrent instantiation
//
// All methods are safe for concurrent use.
type Container struct {
	id string

	defs       map[string]*Definition
	aliases    *aliasTable
	synthetic  map[string]bool
	removed    map[string]RemovalReason
	tags       map[string][]string
	contextual map[string]map[string]contextualBinding
	declared   []string
	order      []string

	cache *instanceCache

	logger   *zap.Logger
	observer Observer
}

// ID identifies this container instance in logs and metrics.
func (c *Container) ID() string { return c.id }

// ── Resolution ────────────────────────────────────────────────────────────────

// Get resolves a key (or alias) from the public surface.
//
//	logger, err := c.Get("logger")
func (c *Container) Get(key string) (any, error) {
	return c.resolve(c.root(), key)
}

// MustGet is like Get but panics on error. Meant for bootstrap code where a
// missing service is a programming error.
func (c *Container) MustGet(key string) any {
	inst, err := c.Get(key)
	if err != nil {
		panic(err)
	}
	return inst
}

// Has reports whether key can be requested from the public surface. Declared
// synthetic keys count even before they are set.
func (c *Container) Has(key string) bool { return c.has(key, true) }

// Tagged resolves every service carrying tag, in declaration order.
func (c *Container) Tagged(tag string) ([]any, error) {
	return c.tagged(c.root(), tag)
}

func (c *Container) root() *resolver {
	return &resolver{c: c, public: true}
}

func (c *Container) has(key string, public bool) bool {
	canonical, err := c.aliases.resolve(key)
	if err != nil {
		return false
	}
	if _, removed := c.removed[canonical]; removed {
		return false
	}
	if c.synthetic[canonical] {
		return !public || c.reachable(key, nil)
	}
	def, ok := c.defs[canonical]
	if !ok {
		return false
	}
	return !public || c.reachable(key, def)
}

// Set supplies the value of a synthetic key. Each synthetic key can be set
// exactly once.
//
//	c.Set("kernel.boot_time", time.Now())
func (c *Container) Set(key string, value any) error {
	if !c.synthetic[key] {
		if c.aliases.isAlias(key) || c.defs[key] != nil {
			return newServiceError("set", key, ErrNotSynthetic)
		}
		if reason, ok := c.removed[key]; ok {
			e := newServiceError("set", key, ErrRemovedService)
			e.Reason = reason
			return e
		}
		return newServiceError("set", key, ErrUnknownService)
	}
	if !c.cache.store(key, value) {
		return newServiceError("set", key, ErrSyntheticAlreadySet)
	}
	c.logger.Debug("synthetic service set", zap.String("service", key))
	return nil
}

// Initialized reports whether key (or its alias target) has a cached instance.
func (c *Container) Initialized(key string) bool {
	canonical, err := c.aliases.resolve(key)
	if err != nil {
		return false
	}
	_, ok := c.cache.getCached(canonical)
	return ok
}

// ── Diagnostics ───────────────────────────────────────────────────────────────

// Status returns the status of a canonical key or alias.
func (c *Container) Status(key string) (Status, bool) {
	canonical, err := c.aliases.resolve(key)
	if err != nil {
		return 0, false
	}
	if _, ok := c.removed[canonical]; ok {
		return Removed, true
	}
	switch {
	case c.synthetic[canonical]:
		return Synthetic, true
	case c.defs[canonical] != nil:
		return Constructible, true
	}
	return 0, false
}

// Inspect describes one key. Aliases are described by their canonical key.
func (c *Container) Inspect(key string) (ServiceInfo, bool) {
	canonical, err := c.aliases.resolve(key)
	if err != nil {
		return ServiceInfo{Key: key}, false
	}
	status, ok := c.Status(canonical)
	if !ok {
		return ServiceInfo{Key: key}, false
	}
	info := ServiceInfo{
		Key:     canonical,
		Status:  status.String(),
		Aliases: c.aliases.aliasesOf(canonical),
	}
	switch status {
	case Removed:
		info.RemovalReason = c.removed[canonical]
	case Synthetic:
		info.Public = true
	case Constructible:
		def := c.defs[canonical]
		info.Sharing = def.Sharing.String()
		info.Public = def.Sharing != Private
		info.Deps = def.Deps
		info.Tags = def.Tags
		info.Decorators = len(def.Decorators)
		info.Description = def.Description
	}
	if inst, ok := c.cache.getCached(canonical); ok {
		info.Initialized = true
		info.Type = fmt.Sprintf("%T", inst)
	}
	return info, true
}

// Services describes every canonical key, sorted by key.
func (c *Container) Services() []ServiceInfo {
	keys := make([]string, 0, len(c.defs)+len(c.synthetic)+len(c.removed))
	for k := range c.defs {
		keys = append(keys, k)
	}
	for k := range c.synthetic {
		keys = append(keys, k)
	}
	for k := range c.removed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ServiceInfo, 0, len(keys))
	for _, k := range keys {
		info, _ := c.Inspect(k)
		out = append(out, info)
	}
	return out
}

// Aliases returns a copy of the alias table.
func (c *Container) Aliases() map[string]string { return c.aliases.snapshot() }

// PrivateAliases lists aliases hidden from the public surface.
func (c *Container) PrivateAliases() []string {
	var out []string
	for alias, e := range c.aliases.entries {
		if e.private {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

// RemovedIDs returns a copy of the removed-key table.
func (c *Container) RemovedIDs() map[string]RemovalReason {
	out := make(map[string]RemovalReason, len(c.removed))
	for k, v := range c.removed {
		out[k] = v
	}
	return out
}

// Definition returns a copy of the recipe for key (aliases not followed).
func (c *Container) Definition(key string) (Definition, bool) {
	def, ok := c.defs[key]
	if !ok {
		return Definition{}, false
	}
	return *def.clone(), true
}

// BuildOrder lists constructible keys with dependencies before dependants.
func (c *Container) BuildOrder() []string {
	return append([]string(nil), c.order...)
}

// Declared lists the constructible keys in registration order.
func (c *Container) Declared() []string {
	return append([]string(nil), c.declared...)
}

// TagNames lists the tags in use, sorted.
func (c *Container) TagNames() []string {
	out := make([]string, 0, len(c.tags))
	for tag := range c.tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// TaggedKeys lists the keys carrying tag, in declaration order.
func (c *Container) TaggedKeys(tag string) []string {
	return append([]string(nil), c.tags[tag]...)
}

func (c *Container) publicKeys() []string {
	keys := make([]string, 0, len(c.defs)+len(c.aliases.entries))
	for k, def := range c.defs {
		if def.Sharing != Private {
			keys = append(keys, k)
		}
	}
	for k, e := range c.aliases.entries {
		if !e.private {
			keys = append(keys, k)
		}
	}
	for k := range c.synthetic {
		keys = append(keys, k)
	}
	return keys
}

// ── Reflect helpers ───────────────────────────────────────────────────────────

// TypeKey returns the package-qualified type name of v, useful as a stable
// key when working with interfaces.
//
//	key := container.TypeKey((*UserRepository)(nil))  // "main.UserRepository"
//	b.Singleton(key, factory)
//	repo, err := container.Resolve[UserRepository](c, key)
func TypeKey(v any) string {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() + "." + t.Name()
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve gets key from r and type-asserts the result.
//
//	// Instead of: raw, err := r.Get("db"); db := raw.(*sql.DB)
//	// Write:      db, err := container.Resolve[*sql.DB](r, "db")
func Resolve[T any](r Resolver, key string) (T, error) {
	var zero T
	instance, err := r.Get(key)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, &ServiceError{
			Op:   "resolve",
			Key:  key,
			Kind: ErrTypeMismatch,
			Hint: fmt.Sprintf("want %s, got %T", reflect.TypeOf((*T)(nil)).Elem(), instance),
		}
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](r Resolver, key string) T {
	typed, err := Resolve[T](r, key)
	if err != nil {
		panic(err)
	}
	return typed
}

// Suggest returns the public key closest to key by edit distance, or "".
func (c *Container) Suggest(key string) string {
	return suggest(key, c.publicKeys())
}
