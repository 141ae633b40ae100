package container

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every *ServiceError carries one Kind, which KindName reports.
// A FactoryFailed error also wraps the error its factory returned, so
// errors.Is can match an inner kind as well.
var (
	ErrUnknownService          = errors.New("unknown service")
	ErrRemovedService          = errors.New("service removed at compile time")
	ErrSyntheticNotInitialized = errors.New("synthetic service not initialized")
	ErrCircularReference       = errors.New("circular reference")
	ErrFactoryFailed           = errors.New("factory failed")

	ErrTypeMismatch        = errors.New("service type mismatch")
	ErrSyntheticAlreadySet = errors.New("synthetic service already set")
	ErrNotSynthetic        = errors.New("service is not synthetic")
	ErrDuplicateKey        = errors.New("duplicate service key")
	ErrBuilderSealed       = errors.New("builder already compiled")
	ErrInvalidDefinition   = errors.New("invalid service definition")
)

// ServiceError carries the failing key and, for resolution failures, the
// chain of keys being built when it happened.
type ServiceError struct {
	Key    string
	Op     string
	Kind   error
	Chain  []string
	Reason RemovalReason
	Hint   string
	Err    error
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "container: %s %q: %v", e.Op, e.Key, e.Kind)
	if e.Reason != "" {
		fmt.Fprintf(&b, " (%s)", e.Reason)
	}
	if len(e.Chain) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Chain, " -> "))
	}
	if e.Hint != "" {
		b.WriteString("; ")
		b.WriteString(e.Hint)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *ServiceError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func newServiceError(op, key string, kind error) *ServiceError {
	return &ServiceError{Op: op, Key: key, Kind: kind}
}

func (e *ServiceError) withChain(chain []string) *ServiceError {
	e.Chain = chain
	return e
}

func (e *ServiceError) withCause(err error) *ServiceError {
	e.Err = err
	return e
}

func removedError(key string, reason RemovalReason) *ServiceError {
	e := newServiceError("get", key, ErrRemovedService)
	e.Reason = reason
	if reason == ReasonPrivate {
		e.Hint = "private services are only reachable from other factories; add a public alias or make it shared"
	}
	return e
}

func syntheticError(key string) *ServiceError {
	e := newServiceError("get", key, ErrSyntheticNotInitialized)
	e.Hint = "the application must Set it during bootstrap before first use"
	return e
}

var kindNames = []struct {
	kind error
	name string
}{
	{ErrCircularReference, "circular_reference"},
	{ErrSyntheticNotInitialized, "synthetic_not_initialized"},
	{ErrRemovedService, "removed_service"},
	{ErrUnknownService, "unknown_service"},
	{ErrFactoryFailed, "factory_failed"},
	{ErrTypeMismatch, "type_mismatch"},
}

// KindName returns a stable label for err's outermost resolution kind, or
// "other". Used for metric labels and JSON error bodies.
func KindName(err error) string {
	var se *ServiceError
	if errors.As(err, &se) && se.Kind != nil {
		err = se.Kind
	}
	for _, k := range kindNames {
		if errors.Is(err, k.kind) {
			return k.name
		}
	}
	return "other"
}
