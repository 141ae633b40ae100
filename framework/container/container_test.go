package container_test

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-container/framework/container"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

type logger struct{ name string }

type clock struct{ at time.Time }

type mailer struct{ log *logger }

func newLogger(container.Resolver) (any, error) { return &logger{name: "app"}, nil }

func newClock(container.Resolver) (any, error) { return &clock{at: time.Now()}, nil }

func compile(t *testing.T, b *container.Builder) *container.Container {
	t.Helper()
	c, err := b.Compile()
	require.NoError(t, err)
	return c
}

// ── Sharing ───────────────────────────────────────────────────────────────────

func TestGet_SharedReturnsSameInstance(t *testing.T) {
	b := container.NewBuilder()
	b.Singleton("Logger", newLogger)
	b.Alias("Psr\\Log\\LoggerInterface", "Logger")
	b.Prototype("Clock", newClock)
	c := compile(t, b)

	first, err := c.Get("Logger")
	require.NoError(t, err)
	viaAlias, err := c.Get("Psr\\Log\\LoggerInterface")
	require.NoError(t, err)
	assert.Same(t, first, viaAlias)

	again, err := c.Get("Logger")
	require.NoError(t, err)
	assert.Same(t, first, again)

	c1, err := c.Get("Clock")
	require.NoError(t, err)
	c2, err := c.Get("Clock")
	require.NoError(t, err)
	assert.NotSame(t, c1, c2)
}

func TestGet_FactoryRunsOncePerSharedKey(t *testing.T) {
	var calls int
	b := container.NewBuilder()
	b.Singleton("counter", func(container.Resolver) (any, error) {
		calls++
		return &struct{ n int }{calls}, nil
	})
	c := compile(t, b)

	for j := 0; j < 5; j++ {
		_, err := c.Get("counter")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls)
	assert.True(t, c.Initialized("counter"))
}

func TestGet_SiblingsShareDependency(t *testing.T) {
	b := container.NewBuilder()
	b.Singleton("logger", newLogger)
	newMailer := func(r container.Resolver) (any, error) {
		log, err := container.Resolve[*logger](r, "logger")
		if err != nil {
			return nil, err
		}
		return &mailer{log: log}, nil
	}
	b.Prototype("mailer.a", newMailer, "logger")
	b.Prototype("mailer.b", newMailer, "logger")
	c := compile(t, b)

	a := container.MustResolve[*mailer](c, "mailer.a")
	bm := container.MustResolve[*mailer](c, "mailer.b")
	assert.Same(t, a.log, bm.log)
}

// ── Private services ──────────────────────────────────────────────────────────

func TestGet_PrivateOnlyReachableFromFactories(t *testing.T) {
	b := container.NewBuilder()
	b.Private("encoder", func(container.Resolver) (any, error) { return "json", nil })
	b.Singleton("logger", func(r container.Resolver) (any, error) {
		enc, err := container.Resolve[string](r, "encoder")
		if err != nil {
			return nil, err
		}
		return &logger{name: enc}, nil
	}, "encoder")
	c := compile(t, b)

	_, err := c.Get("encoder")
	require.Error(t, err)
	assert.ErrorIs(t, err, container.ErrRemovedService)
	assert.False(t, c.Has("encoder"))

	log := container.MustResolve[*logger](c, "logger")
	assert.Equal(t, "json", log.name)
	assert.True(t, c.Initialized("encoder"))
}

func TestGet_PublicAliasExposesPrivateService(t *testing.T) {
	b := container.NewBuilder()
	b.Private("encoder", func(container.Resolver) (any, error) { return &logger{}, nil })
	b.Alias("public.encoder", "encoder")
	b.PrivateAlias("hidden", "encoder")
	c := compile(t, b)

	_, err := c.Get("public.encoder")
	require.NoError(t, err)
	assert.True(t, c.Has("public.encoder"))

	_, err = c.Get("hidden")
	assert.ErrorIs(t, err, container.ErrRemovedService)
}

// ── Failure kinds ─────────────────────────────────────────────────────────────

func TestGet_UnknownKey(t *testing.T) {
	b := container.NewBuilder()
	b.Singleton("logger", newLogger)
	c := compile(t, b)

	inst, err := c.Get("does.not.exist")
	assert.Nil(t, inst)
	require.ErrorIs(t, err, container.ErrUnknownService)
	assert.False(t, c.Has("does.not.exist"))

	_, err = c.Get("loger")
	require.ErrorIs(t, err, container.ErrUnknownService)
	assert.Contains(t, err.Error(), `did you mean "logger"?`)
}

func TestGet_RemovedKeyIsDistinctFromUnknown(t *testing.T) {
	b := container.NewBuilder()
	b.Remove("legacy.mailer", container.ReasonInlined)
	b.Remove("abstract.repo", container.ReasonAbstract)
	c := compile(t, b)

	_, err := c.Get("legacy.mailer")
	require.ErrorIs(t, err, container.ErrRemovedService)
	assert.NotErrorIs(t, err, container.ErrUnknownService)
	assert.Contains(t, err.Error(), "inlined")

	var se *container.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, container.ReasonInlined, se.Reason)

	_, err = c.Get("abstract.repo")
	assert.ErrorIs(t, err, container.ErrRemovedService)
	assert.False(t, c.Has("legacy.mailer"))
}

func TestSynthetic_GatedUntilSet(t *testing.T) {
	b := container.NewBuilder()
	b.Synthetic("kernel.boot_time")
	c := compile(t, b)

	assert.True(t, c.Has("kernel.boot_time"))
	_, err := c.Get("kernel.boot_time")
	require.ErrorIs(t, err, container.ErrSyntheticNotInitialized)

	now := time.Now()
	require.NoError(t, c.Set("kernel.boot_time", now))
	got, err := c.Get("kernel.boot_time")
	require.NoError(t, err)
	assert.Equal(t, now, got)

	err = c.Set("kernel.boot_time", time.Now())
	assert.ErrorIs(t, err, container.ErrSyntheticAlreadySet)
}

func TestSynthetic_PrivateAliasHidesIt(t *testing.T) {
	b := container.NewBuilder()
	b.Synthetic("config")
	b.PrivateAlias("internal.config", "config")
	b.Singleton("reader", func(r container.Resolver) (any, error) {
		return r.Get("internal.config")
	}, "internal.config")
	c := compile(t, b)
	require.NoError(t, c.Set("config", "cfg"))

	assert.True(t, c.Has("config"))
	assert.False(t, c.Has("internal.config"))
	_, err := c.Get("internal.config")
	require.ErrorIs(t, err, container.ErrRemovedService)
	assert.Contains(t, err.Error(), string(container.ReasonPrivate))

	got, err := c.Get("reader")
	require.NoError(t, err)
	assert.Equal(t, "cfg", got)
}

func TestSet_RejectsNonSyntheticKeys(t *testing.T) {
	b := container.NewBuilder()
	b.Singleton("logger", newLogger)
	b.Remove("gone", "")
	c := compile(t, b)

	assert.ErrorIs(t, c.Set("logger", &logger{}), container.ErrNotSynthetic)
	assert.ErrorIs(t, c.Set("gone", 1), container.ErrRemovedService)
	assert.ErrorIs(t, c.Set("nope", 1), container.ErrUnknownService)
}

func TestSelfKey_ResolvesToContainer(t *testing.T) {
	c := compile(t, container.NewBuilder())
	got, err := c.Get(container.SelfKey)
	require.NoError(t, err)
	assert.Same(t, c, got)
}

func TestGet_FactoryFailureLeavesNoCacheEntry(t *testing.T) {
	boom := errors.New("db down")
	var attempts int
	b := container.NewBuilder()
	b.Singleton("db", func(container.Resolver) (any, error) {
		attempts++
		if attempts == 1 {
			return nil, boom
		}
		return &struct{ ok bool }{true}, nil
	})
	c := compile(t, b)

	inst, err := c.Get("db")
	assert.Nil(t, inst)
	require.ErrorIs(t, err, container.ErrFactoryFailed)
	assert.ErrorIs(t, err, boom)
	assert.False(t, c.Initialized("db"))

	inst, err = c.Get("db")
	require.NoError(t, err)
	assert.NotNil(t, inst)
	assert.Equal(t, 2, attempts)
}

func TestGet_FactoryFailureWrapsInnerKind(t *testing.T) {
	b := container.NewBuilder()
	b.Singleton("mailer", func(r container.Resolver) (any, error) { return r.Get("transport") })
	c := compile(t, b)

	_, err := c.Get("mailer")
	require.ErrorIs(t, err, container.ErrFactoryFailed)
	assert.ErrorIs(t, err, container.ErrUnknownService)
	assert.Equal(t, "factory_failed", container.KindName(err))
}

func TestGet_FactoryPanicIsReported(t *testing.T) {
	b := container.NewBuilder()
	b.Singleton("fragile", func(container.Resolver) (any, error) { panic("nil config") })
	c := compile(t, b)

	_, err := c.Get("fragile")
	require.ErrorIs(t, err, container.ErrFactoryFailed)
	assert.Contains(t, err.Error(), "nil config")
	assert.False(t, c.Initialized("fragile"))
}

func TestGet_UndeclaredDependencyCycle(t *testing.T) {
	b := container.NewBuilder()
	b.Singleton("a", func(r container.Resolver) (any, error) { return r.Get("b") })
	b.Singleton("b", func(r container.Resolver) (any, error) { return r.Get("a") })
	c := compile(t, b)

	_, err := c.Get("a")
	require.ErrorIs(t, err, container.ErrCircularReference)
	assert.Contains(t, err.Error(), "a -> b -> a")
	assert.False(t, c.Initialized("a"))
	assert.False(t, c.Initialized("b"))
}

func TestResolve_TypeMismatch(t *testing.T) {
	b := container.NewBuilder()
	b.Instance("port", 8080)
	c := compile(t, b)

	_, err := container.Resolve[string](c, "port")
	assert.ErrorIs(t, err, container.ErrTypeMismatch)

	port, err := container.Resolve[int](c, "port")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)
}

// ── Decorators, tags, contextual ──────────────────────────────────────────────

func TestDecorate_AppliesInDeclarationOrder(t *testing.T) {
	b := container.NewBuilder()
	b.Singleton("handler", func(container.Resolver) (any, error) { return "core", nil })
	for _, name := range []string{"recover", "log", "auth"} {
		name := name
		b.Decorate("handler", func(inner any, _ container.Resolver) (any, error) {
			return fmt.Sprintf("%s(%s)", name, inner), nil
		})
	}
	c := compile(t, b)

	got := container.MustResolve[string](c, "handler")
	assert.Equal(t, "auth(log(recover(core)))", got)
}

func TestDecorate_FailureIsFactoryFailure(t *testing.T) {
	b := container.NewBuilder()
	b.Singleton("handler", func(container.Resolver) (any, error) { return "core", nil })
	b.Decorate("handler", func(any, container.Resolver) (any, error) { return nil, errors.New("bad wrap") })
	c := compile(t, b)

	_, err := c.Get("handler")
	assert.ErrorIs(t, err, container.ErrFactoryFailed)
	assert.False(t, c.Initialized("handler"))
}

func TestTagged_DeclarationOrder(t *testing.T) {
	b := container.NewBuilder()
	b.Singleton("report.memory", func(container.Resolver) (any, error) { return "memory", nil })
	b.Private("report.cpu", func(container.Resolver) (any, error) { return "cpu", nil })
	b.Define(container.Definition{
		Key:     "report.disk",
		Factory: func(container.Resolver) (any, error) { return "disk", nil },
		Tags:    []string{"reports"},
	})
	b.Tag("report.cpu", "reports")
	b.Tag("report.memory", "reports")
	c := compile(t, b)

	reports, err := c.Tagged("reports")
	require.NoError(t, err)
	assert.Equal(t, []any{"disk", "cpu", "memory"}, reports)
	assert.Equal(t, []string{"report.disk", "report.cpu", "report.memory"}, c.TaggedKeys("reports"))

	none, err := c.Tagged("missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestContextual_GiveAndGiveValue(t *testing.T) {
	b := container.NewBuilder()
	b.Singleton("fs.local", func(container.Resolver) (any, error) { return "local", nil })
	b.Singleton("fs.s3", func(container.Resolver) (any, error) { return "s3", nil })
	b.Alias("filesystem", "fs.local")
	photo := func(r container.Resolver) (any, error) {
		fs, err := container.Resolve[string](r, "filesystem")
		if err != nil {
			return nil, err
		}
		path, err := container.Resolve[string](r, "storage.path")
		if err != nil {
			return nil, err
		}
		return fs + ":" + path, nil
	}
	b.Singleton("photo.controller", photo, "filesystem", "storage.path")
	b.When("photo.controller").Needs("filesystem").Give("fs.s3")
	b.When("photo.controller").Needs("storage.path").GiveValue("/tmp/photos")
	c := compile(t, b)

	assert.Equal(t, "s3:/tmp/photos", container.MustResolve[string](c, "photo.controller"))
	assert.Equal(t, "local", container.MustResolve[string](c, "filesystem"))
}

// ── Concurrency ───────────────────────────────────────────────────────────────

func TestGet_ConcurrentFirstRequestsBuildOnce(t *testing.T) {
	var calls atomic.Int32
	b := container.NewBuilder()
	b.Singleton("slow", func(container.Resolver) (any, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return &logger{name: "slow"}, nil
	})
	c := compile(t, b)

	const n = 32
	results := make([]any, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			inst, err := c.Get("slow")
			assert.NoError(t, err)
			results[i] = inst
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestGet_CrossGoroutineCycleDoesNotDeadlock(t *testing.T) {
	aStarted := make(chan struct{})
	bStarted := make(chan struct{})
	var aOnce, bOnce sync.Once
	b := container.NewBuilder()
	b.Singleton("a", func(r container.Resolver) (any, error) {
		aOnce.Do(func() { close(aStarted) })
		<-bStarted
		return r.Get("b")
	})
	b.Singleton("b", func(r container.Resolver) (any, error) {
		bOnce.Do(func() { close(bStarted) })
		<-aStarted
		return r.Get("a")
	})
	c := compile(t, b)

	errs := make(chan error, 2)
	go func() { _, err := c.Get("a"); errs <- err }()
	go func() { _, err := c.Get("b"); errs <- err }()

	for j := 0; j < 2; j++ {
		select {
		case err := <-errs:
			assert.ErrorIs(t, err, container.ErrCircularReference)
		case <-time.After(5 * time.Second):
			t.Fatal("resolution deadlocked")
		}
	}
}

func TestGet_FanOutInsideFactoryWaitsInsteadOfFailing(t *testing.T) {
	var calls atomic.Int32
	b := container.NewBuilder()
	b.Singleton("dep", func(container.Resolver) (any, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return &logger{}, nil
	})
	b.Singleton("aggregate", func(r container.Resolver) (any, error) {
		var wg sync.WaitGroup
		errs := make([]error, 4)
		for i := 0; i < 4; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = r.Get("dep")
			}()
		}
		wg.Wait()
		return "ok", errors.Join(errs...)
	}, "dep")
	c := compile(t, b)

	got, err := c.Get("aggregate")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int32(1), calls.Load())
}
