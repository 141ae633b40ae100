package container

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Builder collects definitions, aliases, synthetic and removed keys and
// compiles them into an immutable Container.
//
//	b := container.NewBuilder()
//	b.Singleton("logger", newLogger, "config")
//	b.Alias("Psr\\Log\\LoggerInterface", "logger")
//	b.Synthetic("config")
//	c, err := b.Compile(container.WithLogger(log))
//
// Registration mistakes (duplicate or empty keys, nil factories) are recorded
// and reported together by Compile.
type Builder struct {
	mu sync.Mutex

	defs     map[string]*Definition
	defOrder []string

	aliases    map[string]aliasEntry
	aliasOrder []string

	synthetic      map[string]bool
	syntheticOrder []string

	removed map[string]RemovalReason

	decorators map[string][]Decorator
	tags       map[string][]string
	tagOrder   []string
	contextual map[string]map[string]contextualBinding

	// claimed maps every registered key to the table that owns it
	claimed map[string]string

	errs   []error
	sealed bool
}

// NewBuilder creates an empty builder. SelfKey is pre-declared as synthetic
// and filled with the compiled container.
func NewBuilder() *Builder {
	b := &Builder{
		defs:       make(map[string]*Definition),
		aliases:    make(map[string]aliasEntry),
		synthetic:  make(map[string]bool),
		removed:    make(map[string]RemovalReason),
		decorators: make(map[string][]Decorator),
		tags:       make(map[string][]string),
		contextual: make(map[string]map[string]contextualBinding),
		claimed:    make(map[string]string),
	}
	b.Synthetic(SelfKey)
	return b
}

// ── Registration ──────────────────────────────────────────────────────────────

// Define registers a full definition.
func (b *Builder) Define(def Definition) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.writable(); err != nil {
		return err
	}
	if err := def.validate(); err != nil {
		b.errs = append(b.errs, err)
		return err
	}
	if err := b.claim(def.Key, "service"); err != nil {
		return err
	}
	d := def.clone()
	b.defs[d.Key] = d
	b.defOrder = append(b.defOrder, d.Key)
	for _, tag := range d.Tags {
		b.addTag(tag, d.Key)
	}
	return nil
}

// Singleton registers a shared service.
func (b *Builder) Singleton(key string, factory Factory, deps ...string) *Builder {
	_ = b.Define(Definition{Key: key, Factory: factory, Sharing: Shared, Deps: deps})
	return b
}

// Private registers a cached service reachable only from other factories.
func (b *Builder) Private(key string, factory Factory, deps ...string) *Builder {
	_ = b.Define(Definition{Key: key, Factory: factory, Sharing: Private, Deps: deps})
	return b
}

// Prototype registers a service rebuilt on every request.
func (b *Builder) Prototype(key string, factory Factory, deps ...string) *Builder {
	_ = b.Define(Definition{Key: key, Factory: factory, Sharing: Prototype, Deps: deps})
	return b
}

// Instance registers a pre-built value as a shared service.
func (b *Builder) Instance(key string, value any) *Builder {
	return b.Singleton(key, func(Resolver) (any, error) { return value, nil })
}

// Alias registers a public alternative name for target.
//
//	b.Alias("Psr\\Log\\LoggerInterface", "logger")
func (b *Builder) Alias(alias, target string) *Builder {
	b.alias(alias, target, false)
	return b
}

// PrivateAlias registers an alias only usable from factories.
func (b *Builder) PrivateAlias(alias, target string) *Builder {
	b.alias(alias, target, true)
	return b
}

func (b *Builder) alias(alias, target string, private bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writable() != nil {
		return
	}
	if alias == target {
		b.errs = append(b.errs, &ServiceError{Op: "alias", Key: alias, Kind: ErrCircularReference, Chain: []string{alias, target}})
		return
	}
	if b.claim(alias, "alias") != nil {
		return
	}
	b.aliases[alias] = aliasEntry{target: target, private: private}
	b.aliasOrder = append(b.aliasOrder, alias)
}

// Synthetic declares a key whose value the application supplies with
// Container.Set during bootstrap.
func (b *Builder) Synthetic(key string) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writable() != nil || b.claim(key, "synthetic") != nil {
		return b
	}
	b.synthetic[key] = true
	b.syntheticOrder = append(b.syntheticOrder, key)
	return b
}

// Remove records a key that existed in configuration but must not be
// requested at runtime. An empty reason means ReasonRemoved.
func (b *Builder) Remove(key string, reason RemovalReason) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writable() != nil || b.claim(key, "removed") != nil {
		return b
	}
	if reason == "" {
		reason = ReasonRemoved
	}
	b.removed[key] = reason
	return b
}

// Decorate appends d to the decorator chain of key. Decorators run in the
// order they were added, after the definition's own decorators.
//
//	b.Decorate("http.handler", withRecovery)
//	b.Decorate("http.handler", withLogging) // wraps withRecovery's result
func (b *Builder) Decorate(key string, d Decorator) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writable() != nil {
		return b
	}
	if d == nil {
		b.errs = append(b.errs, fmt.Errorf("%w: nil decorator for %q", ErrInvalidDefinition, key))
		return b
	}
	b.decorators[key] = append(b.decorators[key], d)
	return b
}

// Tag associates key with one or more tags.
//
//	b.Tag("report.cpu", "reports")
//	b.Tag("report.memory", "reports")
//	reports, err := c.Tagged("reports") // cpu, memory
func (b *Builder) Tag(key string, tags ...string) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writable() != nil {
		return b
	}
	for _, tag := range tags {
		b.addTag(tag, key)
	}
	return b
}

func (b *Builder) addTag(tag, key string) {
	if _, ok := b.tags[tag]; !ok {
		b.tagOrder = append(b.tagOrder, tag)
	}
	if !contains(b.tags[tag], key) {
		b.tags[tag] = append(b.tags[tag], key)
	}
}

// Defined reports whether key has been registered in any table.
func (b *Builder) Defined(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.claimed[key]
	return ok
}

// writable must be called with mu held.
func (b *Builder) writable() error {
	if b.sealed {
		return ErrBuilderSealed
	}
	return nil
}

// claim must be called with mu held.
func (b *Builder) claim(key, kind string) error {
	if key == "" {
		err := fmt.Errorf("%w: empty %s key", ErrInvalidDefinition, kind)
		b.errs = append(b.errs, err)
		return err
	}
	if owner, ok := b.claimed[key]; ok {
		err := &ServiceError{Op: "register", Key: key, Kind: ErrDuplicateKey,
			Hint: fmt.Sprintf("already registered as %s", owner)}
		b.errs = append(b.errs, err)
		return err
	}
	b.claimed[key] = kind
	return nil
}

// ── Compile ───────────────────────────────────────────────────────────────────

// Compile validates the graph and returns the container. It checks alias
// targets and cycles, declared dependencies, dependency cycles, contextual
// bindings, decorated and tagged keys. All problems are reported at once.
// The builder cannot be modified afterwards.
func (b *Builder) Compile(opts ...Option) (*Container, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.writable(); err != nil {
		return nil, err
	}

	o := &options{maxAliasHops: DefaultMaxAliasHops}
	for _, opt := range opts {
		opt(o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	errs := append([]error(nil), b.errs...)

	aliases := newAliasTable(o.maxAliasHops)
	for _, alias := range b.aliasOrder {
		aliases.entries[alias] = b.aliases[alias]
	}
	errs = append(errs, b.checkAliases(aliases)...)

	defs := make(map[string]*Definition, len(b.defs))
	for key, def := range b.defs {
		d := def.clone()
		d.Decorators = append(d.Decorators, b.decorators[key]...)
		defs[key] = d
	}
	for key := range b.decorators {
		if _, ok := defs[key]; !ok {
			errs = append(errs, &ServiceError{Op: "compile", Key: key, Kind: ErrUnknownService,
				Hint: "decorated key is not a constructible service"})
		}
	}

	tags := make(map[string][]string, len(b.tags))
	for _, tag := range b.tagOrder {
		for _, key := range b.tags[tag] {
			if err := b.checkReference(aliases, key, "tag "+tag); err != nil {
				errs = append(errs, err)
				continue
			}
			tags[tag] = append(tags[tag], key)
			// Tag() memberships show up on the definition too
			if def, ok := defs[key]; ok && !contains(def.Tags, tag) {
				def.Tags = append(def.Tags, tag)
			}
		}
	}

	contextual := make(map[string]map[string]contextualBinding, len(b.contextual))
	for consumer, needs := range b.contextual {
		if _, ok := defs[consumer]; !ok {
			errs = append(errs, &ServiceError{Op: "compile", Key: consumer, Kind: ErrUnknownService,
				Hint: "contextual binding consumer is not a constructible service"})
			continue
		}
		contextual[consumer] = make(map[string]contextualBinding, len(needs))
		for dep, binding := range needs {
			if !binding.hasValue {
				if err := b.checkReference(aliases, binding.target, "contextual binding of "+consumer); err != nil {
					errs = append(errs, err)
					continue
				}
			}
			contextual[consumer][dep] = binding
		}
	}

	graph := newDependencyGraph()
	for _, key := range b.defOrder {
		deps := make([]string, 0, len(defs[key].Deps))
		for _, dep := range defs[key].Deps {
			if binding, ok := contextual[key][dep]; ok {
				if binding.hasValue {
					continue
				}
				dep = binding.target
			}
			if err := b.checkReference(aliases, dep, "dependency of "+key); err != nil {
				errs = append(errs, err)
				continue
			}
			canonical, _ := aliases.resolve(dep)
			deps = append(deps, canonical)
		}
		graph.addNode(key, deps)
	}
	order, err := graph.topologicalSort()
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		o.logger.Error("container compilation failed", zap.Int("errors", len(errs)))
		return nil, errors.Join(errs...)
	}

	c := &Container{
		id:         o.id,
		defs:       defs,
		aliases:    aliases,
		synthetic:  make(map[string]bool, len(b.synthetic)),
		removed:    make(map[string]RemovalReason, len(b.removed)),
		tags:       tags,
		contextual: contextual,
		declared:   append([]string(nil), b.defOrder...),
		order:      order,
		cache:      newInstanceCache(),
		logger:     o.logger.With(zap.String("container", o.id)),
		observer:   nopObserver{},
	}
	if len(o.observers) > 0 {
		c.observer = o.observers
	}
	for key := range b.synthetic {
		c.synthetic[key] = true
		c.cache.add(key, false)
	}
	for key, reason := range b.removed {
		c.removed[key] = reason
	}
	for key, def := range defs {
		if def.Sharing.cached() {
			c.cache.add(key, def.Sharing == Private)
		}
	}
	c.cache.store(SelfKey, c)

	b.sealed = true
	c.logger.Info("container compiled",
		zap.Int("services", len(defs)),
		zap.Int("aliases", len(aliases.entries)),
		zap.Int("synthetic", len(c.synthetic)),
		zap.Int("removed", len(c.removed)))
	return c, nil
}

func (b *Builder) checkAliases(aliases *aliasTable) []error {
	var errs []error
	for _, alias := range b.aliasOrder {
		canonical, err := aliases.resolve(alias)
		if err != nil {
			if se, ok := err.(*ServiceError); ok {
				se.Op = "compile"
			}
			errs = append(errs, err)
			continue
		}
		if !b.known(canonical) {
			errs = append(errs, &ServiceError{Op: "compile", Key: alias, Kind: ErrUnknownService,
				Hint: fmt.Sprintf("alias target %q does not exist", canonical)})
		}
	}
	return errs
}

// checkReference verifies that key resolves to something constructible or
// synthetic.
func (b *Builder) checkReference(aliases *aliasTable, key, context string) error {
	canonical, err := aliases.resolve(key)
	if err != nil {
		// alias cycles are reported by checkAliases
		return nil
	}
	if reason, ok := b.removed[canonical]; ok {
		return &ServiceError{Op: "compile", Key: key, Kind: ErrRemovedService, Reason: reason,
			Hint: context}
	}
	if b.defs[canonical] == nil && !b.synthetic[canonical] {
		e := &ServiceError{Op: "compile", Key: key, Kind: ErrUnknownService, Hint: context}
		if s := suggest(key, b.defOrder); s != "" {
			e.Hint += fmt.Sprintf("; did you mean %q?", s)
		}
		return e
	}
	return nil
}

func (b *Builder) known(key string) bool {
	_, ok := b.claimed[key]
	return ok
}
