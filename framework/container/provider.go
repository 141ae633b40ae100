package container

import (
	"context"
	"errors"
	"fmt"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups related registrations.
//
// Register runs before compilation and may only touch the Builder. Boot runs
// after the container is compiled and the application has set its synthetic
// services, so it may resolve anything.
//
//	type MailProvider struct{ container.BaseProvider }
//
//	func (p *MailProvider) Register(b *container.Builder) error {
//	    b.Singleton("mailer", newMailer, "config")
//	    return nil
//	}
//
//	func (p *MailProvider) Provides() []string { return []string{"mailer"} }
type ServiceProvider interface {
	// Register adds definitions to the builder. Do NOT resolve anything here.
	Register(b *Builder) error

	// Boot is called after compilation, in registration order.
	Boot(ctx context.Context, c *Container) error

	// Provides lists the keys this provider promises to register. Compile
	// fails if any of them is missing. Return nil to skip the check.
	Provides() []string
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct that provides no-op implementations
// of Boot() and Provides().
// Embed it in your provider and only override what you need.
//
//	type MyProvider struct{ container.BaseProvider }
//	func (p *MyProvider) Register(b *container.Builder) error { ... }
type BaseProvider struct{}

func (p *BaseProvider) Boot(context.Context, *Container) error { return nil }
func (p *BaseProvider) Provides() []string                     { return nil }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry registers providers into one Builder, compiles it and
// boots the providers against the resulting Container.
type ProviderRegistry struct {
	builder    *Builder
	container  *Container
	providers  []ServiceProvider
	registered map[ServiceProvider]bool
	// next is the index of the first provider not yet booted
	next   int
	booted bool
}

// NewProviderRegistry creates a registry bound to b.
func NewProviderRegistry(b *Builder) *ProviderRegistry {
	return &ProviderRegistry{
		builder:    b,
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register method. Registering the
// same provider twice is a no-op.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	if r.registered[provider] {
		return nil
	}
	if r.container != nil {
		return fmt.Errorf("container: register %T: %w", provider, ErrBuilderSealed)
	}
	if err := provider.Register(r.builder); err != nil {
		return fmt.Errorf("container: register %T: %w", provider, err)
	}
	r.registered[provider] = true
	r.providers = append(r.providers, provider)
	return nil
}

// Compile checks every provider's Provides list and compiles the builder.
func (r *ProviderRegistry) Compile(opts ...Option) (*Container, error) {
	if r.container != nil {
		return r.container, nil
	}
	var errs []error
	for _, p := range r.providers {
		for _, key := range p.Provides() {
			if !r.builder.Defined(key) {
				errs = append(errs, &ServiceError{Op: "compile", Key: key, Kind: ErrUnknownService,
					Hint: fmt.Sprintf("promised by %T but never registered", p)})
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	c, err := r.builder.Compile(opts...)
	if err != nil {
		return nil, err
	}
	r.container = c
	return c, nil
}

// Boot calls Boot on every provider once, in registration order. Compile
// must have succeeded first. After a failure, calling Boot again resumes at
// the provider that failed; providers that already booted are skipped.
func (r *ProviderRegistry) Boot(ctx context.Context) error {
	if r.booted {
		return nil
	}
	if r.container == nil {
		return errors.New("container: boot before compile")
	}
	for ; r.next < len(r.providers); r.next++ {
		p := r.providers[r.next]
		if err := p.Boot(ctx, r.container); err != nil {
			return fmt.Errorf("container: boot %T: %w", p, err)
		}
	}
	r.booted = true
	return nil
}

// Booted returns true if Boot() has succeeded.
func (r *ProviderRegistry) Booted() bool { return r.booted }

// Container returns the compiled container, or nil before Compile.
func (r *ProviderRegistry) Container() *Container { return r.container }

// Providers returns all registered providers in registration order.
func (r *ProviderRegistry) Providers() []ServiceProvider { return r.providers }
