// Package container provides a compiled service container: a registry that
// maps string keys to lazily built services, with aliases, synthetic
// (externally supplied) keys and removed keys, fixed at compile time.
//
// # Container Lifecycle
//
//  1. Build: b := container.NewBuilder(), then register definitions or providers
//  2. Compile: c, err := b.Compile() validates the graph and seals the builder
//  3. Bootstrap: c.Set("config", cfg) fills synthetic keys
//  4. Boot providers, serve requests with c.Get / container.Resolve[T]
//
// Only the instance cache changes after step 2.
//
// # Sharing
//
//	// Shared: built once, same instance on every Get
//	b.Singleton("logger", newLogger, "config")
//
//	// Private: cached, but only reachable from other factories
//	b.Private("logger.encoder", newEncoder)
//
//	// Prototype: new instance on every Get
//	b.Prototype("clock", func(container.Resolver) (any, error) { return &Clock{}, nil })
//
// # Aliases
//
//	b.Alias("Psr\\Log\\LoggerInterface", "logger")   // same instance as "logger"
//	b.PrivateAlias("log.inner", "logger.encoder")
//
// Alias chains are bounded (WithMaxAliasHops); a cycle is a compile error and,
// if ever reached at runtime, ErrCircularReference.
//
// # Synthetic and removed keys
//
//	b.Synthetic("kernel.boot_time")       // Get fails with ErrSyntheticNotInitialized until Set
//	b.Remove("legacy.mailer", container.ReasonInlined) // Get fails with ErrRemovedService
//
// # Decorators and tags
//
//	b.Decorate("http.handler", withRecovery) // applied in declaration order
//	b.Tag("report.cpu", "reports")
//	reports, err := c.Tagged("reports")
//
// # Contextual Binding
//
//	b.When("photo.controller").Needs("filesystem").Give("filesystem.s3")
//
// # Errors
//
// Every failure is a *ServiceError matching one of ErrUnknownService,
// ErrRemovedService, ErrSyntheticNotInitialized, ErrCircularReference or
// ErrFactoryFailed with errors.Is. A failed factory leaves nothing in the
// cache; the next Get retries.
//
// # Concurrency
//
// Concurrent first requests for one shared key build it once; the other
// callers wait. Waiting that would deadlock two goroutines on each other is
// reported as ErrCircularReference.
package container
