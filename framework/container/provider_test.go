package container_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-container/framework/container"
)

// ── stub providers ────────────────────────────────────────────────────────────

type eagerProvider struct {
	container.BaseProvider
	registerCalls int
	bootCalls     int
}

func (p *eagerProvider) Register(b *container.Builder) error {
	p.registerCalls++
	b.Singleton("eager-svc", value("eager"))
	return nil
}

func (p *eagerProvider) Boot(_ context.Context, c *container.Container) error {
	p.bootCalls++
	_, err := c.Get("eager-svc")
	return err
}

// multiProvider registers multiple keys and promises them.
type multiProvider struct {
	container.BaseProvider
}

func (p *multiProvider) Register(b *container.Builder) error {
	b.Singleton("alpha", value("α"))
	b.Singleton("beta", value("β"))
	return nil
}

func (p *multiProvider) Provides() []string { return []string{"alpha", "beta"} }

// liarProvider promises a key it never registers.
type liarProvider struct {
	container.BaseProvider
}

func (p *liarProvider) Register(*container.Builder) error { return nil }
func (p *liarProvider) Provides() []string                { return []string{"cache"} }

type failingProvider struct {
	container.BaseProvider
	registerErr error
	bootErr     error
}

func (p *failingProvider) Register(*container.Builder) error { return p.registerErr }

func (p *failingProvider) Boot(context.Context, *container.Container) error { return p.bootErr }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

func TestRegistry_RegisterCalledImmediately(t *testing.T) {
	reg := container.NewProviderRegistry(container.NewBuilder())

	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))
	assert.Equal(t, 1, p.registerCalls)
	assert.Zero(t, p.bootCalls)
}

func TestRegistry_BootAfterCompile(t *testing.T) {
	reg := container.NewProviderRegistry(container.NewBuilder())
	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))

	assert.Error(t, reg.Boot(context.Background()), "boot before compile must fail")
	assert.False(t, reg.Booted())

	c, err := reg.Compile()
	require.NoError(t, err)
	assert.Same(t, c, reg.Container())

	require.NoError(t, reg.Boot(context.Background()))
	require.NoError(t, reg.Boot(context.Background()))
	assert.True(t, reg.Booted())
	assert.Equal(t, 1, p.bootCalls)

	got, err := container.Resolve[string](c, "eager-svc")
	require.NoError(t, err)
	assert.Equal(t, "eager", got)
}

func TestRegistry_DuplicateRegisterIgnored(t *testing.T) {
	reg := container.NewProviderRegistry(container.NewBuilder())
	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Register(p))

	assert.Equal(t, 1, p.registerCalls)
	assert.Len(t, reg.Providers(), 1)
}

func TestRegistry_MultipleProviders(t *testing.T) {
	reg := container.NewProviderRegistry(container.NewBuilder())
	require.NoError(t, reg.Register(&multiProvider{}))
	require.NoError(t, reg.Register(&eagerProvider{}))
	c, err := reg.Compile()
	require.NoError(t, err)

	assert.Equal(t, "α", container.MustResolve[string](c, "alpha"))
	assert.Equal(t, "β", container.MustResolve[string](c, "beta"))
	assert.Equal(t, "eager", container.MustResolve[string](c, "eager-svc"))
}

func TestRegistry_ProvidesIsChecked(t *testing.T) {
	reg := container.NewProviderRegistry(container.NewBuilder())
	require.NoError(t, reg.Register(&liarProvider{}))

	_, err := reg.Compile()
	require.ErrorIs(t, err, container.ErrUnknownService)
	assert.Contains(t, err.Error(), "promised by *container_test.liarProvider")
}

func TestRegistry_RegisterAfterCompileFails(t *testing.T) {
	reg := container.NewProviderRegistry(container.NewBuilder())
	_, err := reg.Compile()
	require.NoError(t, err)

	assert.ErrorIs(t, reg.Register(&eagerProvider{}), container.ErrBuilderSealed)
}

func TestRegistry_PropagatesProviderErrors(t *testing.T) {
	boom := errors.New("boom")

	reg := container.NewProviderRegistry(container.NewBuilder())
	assert.ErrorIs(t, reg.Register(&failingProvider{registerErr: boom}), boom)
	assert.Empty(t, reg.Providers())

	reg = container.NewProviderRegistry(container.NewBuilder())
	require.NoError(t, reg.Register(&failingProvider{bootErr: boom}))
	_, err := reg.Compile()
	require.NoError(t, err)
	assert.ErrorIs(t, reg.Boot(context.Background()), boom)
	assert.False(t, reg.Booted())
}

type countingProvider struct {
	container.BaseProvider
	boots int
	err   error
}

func (p *countingProvider) Register(*container.Builder) error { return nil }

func (p *countingProvider) Boot(context.Context, *container.Container) error {
	p.boots++
	return p.err
}

func TestRegistry_BootResumesAtFailedProvider(t *testing.T) {
	boom := errors.New("boom")
	first := &countingProvider{}
	flaky := &countingProvider{err: boom}
	last := &countingProvider{}

	reg := container.NewProviderRegistry(container.NewBuilder())
	for _, p := range []container.ServiceProvider{first, flaky, last} {
		require.NoError(t, reg.Register(p))
	}
	_, err := reg.Compile()
	require.NoError(t, err)

	require.ErrorIs(t, reg.Boot(context.Background()), boom)
	assert.Equal(t, []int{1, 1, 0}, []int{first.boots, flaky.boots, last.boots})

	flaky.err = nil
	require.NoError(t, reg.Boot(context.Background()))
	require.NoError(t, reg.Boot(context.Background()))
	assert.Equal(t, []int{1, 2, 1}, []int{first.boots, flaky.boots, last.boots})
	assert.True(t, reg.Booted())
}

// ── BaseProvider defaults ─────────────────────────────────────────────────────

func TestBaseProvider_Defaults(t *testing.T) {
	var p container.BaseProvider
	assert.NoError(t, p.Boot(context.Background(), nil))
	assert.Empty(t, p.Provides())
}
