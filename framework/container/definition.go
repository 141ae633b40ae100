package container

import (
	"fmt"
	"strings"
)

// ── Sharing policy ────────────────────────────────────────────────────────────

// Sharing controls whether a built instance is memoized.
type Sharing int

const (
	// Shared services are built once and cached for the container's lifetime.
	Shared Sharing = iota
	// Private services are cached like Shared ones but can only be reached
	// from other services' factories, never from Container.Get.
	Private
	// Prototype services are rebuilt on every request.
	Prototype
)

func (s Sharing) String() string {
	switch s {
	case Shared:
		return "shared"
	case Private:
		return "private"
	case Prototype:
		return "prototype"
	}
	return fmt.Sprintf("sharing(%d)", int(s))
}

// cached reports whether instances of this policy live in the instance cache.
func (s Sharing) cached() bool { return s == Shared || s == Private }

// ParseSharing parses the textual form used in manifests.
// The empty string means Shared.
func ParseSharing(s string) (Sharing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "shared", "singleton":
		return Shared, nil
	case "private":
		return Private, nil
	case "prototype", "transient", "non-shared":
		return Prototype, nil
	}
	return Shared, fmt.Errorf("container: unknown sharing policy %q", s)
}

// ── Key status ────────────────────────────────────────────────────────────────

// Status tags every key the container knows about.
type Status int

const (
	Constructible Status = iota
	Removed
	Synthetic
)

func (s Status) String() string {
	switch s {
	case Constructible:
		return "constructible"
	case Removed:
		return "removed"
	case Synthetic:
		return "synthetic"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// RemovalReason explains why a key was dropped at compile time.
type RemovalReason string

const (
	ReasonRemoved  RemovalReason = "removed"
	ReasonInlined  RemovalReason = "inlined"
	ReasonAbstract RemovalReason = "abstract"
	ReasonPrivate  RemovalReason = "private"
)

// ── Definitions ───────────────────────────────────────────────────────────────

// Factory builds a service. Dependencies must be pulled through r so that
// sharing is respected transitively.
//
//	b.Singleton("mailer", func(r container.Resolver) (any, error) {
//	    cfg, err := container.Resolve[*config.Config](r, "config")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return mail.NewSMTP(cfg.Mail), nil
//	}, "config")
type Factory func(r Resolver) (any, error)

// Decorator wraps an already-built instance. Decorators of one key run in
// declaration order, each receiving the previous result.
type Decorator func(inner any, r Resolver) (any, error)

// Definition is the compile-time recipe for one constructible key.
type Definition struct {
	Key     string
	Factory Factory
	Sharing Sharing

	// Deps lists the keys the factory is expected to request. They are
	// checked for existence and cycles at compile time.
	Deps []string

	Tags       []string
	Decorators []Decorator

	Description string
}

func (d *Definition) validate() error {
	if strings.TrimSpace(d.Key) == "" {
		return fmt.Errorf("%w: empty service key", ErrInvalidDefinition)
	}
	if d.Factory == nil {
		return fmt.Errorf("%w: service %q has no factory", ErrInvalidDefinition, d.Key)
	}
	if d.Sharing < Shared || d.Sharing > Prototype {
		return fmt.Errorf("%w: service %q has invalid sharing %d", ErrInvalidDefinition, d.Key, int(d.Sharing))
	}
	return nil
}

func (d *Definition) clone() *Definition {
	out := *d
	out.Deps = append([]string(nil), d.Deps...)
	out.Tags = append([]string(nil), d.Tags...)
	out.Decorators = append([]Decorator(nil), d.Decorators...)
	return &out
}

// ServiceInfo is a diagnostic snapshot of one key.
type ServiceInfo struct {
	Key           string        `json:"key" yaml:"key"`
	Status        string        `json:"status" yaml:"status"`
	Sharing       string        `json:"sharing,omitempty" yaml:"sharing,omitempty"`
	Public        bool          `json:"public" yaml:"public"`
	Deps          []string      `json:"deps,omitempty" yaml:"deps,omitempty"`
	Tags          []string      `json:"tags,omitempty" yaml:"tags,omitempty"`
	Aliases       []string      `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Decorators    int           `json:"decorators,omitempty" yaml:"decorators,omitempty"`
	Initialized   bool          `json:"initialized" yaml:"initialized"`
	RemovalReason RemovalReason `json:"removal_reason,omitempty" yaml:"removal_reason,omitempty"`
	Type          string        `json:"type,omitempty" yaml:"type,omitempty"`
	Description   string        `json:"description,omitempty" yaml:"description,omitempty"`
}
