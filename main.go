package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-container/framework/app"
	"github.com/km-arc/go-container/framework/container"
)

// Clock is rebuilt on every request.
type Clock struct{ At time.Time }

// Greeter depends on the shared logger through its interface alias.
type Greeter struct {
	log   *zap.Logger
	clock *container.Container
}

func (g *Greeter) Greet(name string) string {
	now := container.MustResolve[*Clock](g.clock, "clock")
	g.log.Info("greeting", zap.String("name", name), zap.Time("at", now.At))
	return fmt.Sprintf("hello %s, it is %s", name, now.At.Format(time.Kitchen))
}

// AppServiceProvider registers the example services.
type AppServiceProvider struct {
	container.BaseProvider
}

func (p *AppServiceProvider) Register(b *container.Builder) error {
	b.Prototype("clock", func(container.Resolver) (any, error) {
		return &Clock{At: time.Now()}, nil
	})
	b.Singleton("greeter", func(r container.Resolver) (any, error) {
		log, err := container.Resolve[*zap.Logger](r, `Psr\Log\LoggerInterface`)
		if err != nil {
			return nil, err
		}
		c, err := container.Resolve[*container.Container](r, container.SelfKey)
		if err != nil {
			return nil, err
		}
		return &Greeter{log: log.Named("greeter"), clock: c}, nil
	}, `Psr\Log\LoggerInterface`, container.SelfKey)
	b.Decorate("greeter", func(inner any, _ container.Resolver) (any, error) {
		g := inner.(*Greeter)
		g.log = g.log.With(zap.String("decorated", "yes"))
		return g, nil
	})
	b.Remove("legacy.mailer", container.ReasonInlined)
	return nil
}

func (p *AppServiceProvider) Boot(_ context.Context, c *container.Container) error {
	g, err := container.Resolve[*Greeter](c, "greeter")
	if err != nil {
		return err
	}
	_ = g.Greet("container")
	return nil
}

func (p *AppServiceProvider) Provides() []string { return []string{"clock", "greeter"} }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(nil) // loads .env automatically
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := application.Register(&AppServiceProvider{}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// GET /_container/services, /_container/services/greeter, /metrics …
	if err := application.Run(ctx); err != nil {
		application.Logger.Error("application stopped", zap.Error(err))
		os.Exit(1)
	}
}
