package ports

import (
	"fmt"

	"github.com/bft-labs/lazyload/internal/domain"
)

// Framework is the host dependency-injection framework as seen by the loader.
type Framework interface {
	// Module returns the definition registered under name.
	// Returns an error wrapping domain.ErrModuleNotFound when the host has
	// never heard of the module; any other error is a genuine fault.
	Module(name string) (ModuleDefinition, error)

	// Collaborators returns the fixed set of registration targets of the
	// running injector.
	Collaborators() Collaborators
}

// ModuleDefinition is a module declared to the host, linked or not.
type ModuleDefinition interface {
	// Name returns the module name.
	Name() string

	// Requires returns the module's requirements in declaration order.
	Requires() []domain.Ref

	// InvokeQueue returns the registrations recorded against the module.
	InvokeQueue() []domain.Declaration

	// RunBlocks returns callbacks to invoke once the module is registered.
	// The values are opaque to the loader and handed back to the Invoker.
	RunBlocks() []any
}

// Collaborator accepts replayed declarations for one provider key.
type Collaborator interface {
	// Apply performs the named registration method with the recorded arguments.
	Apply(method string, args ...any) error
}

// Invoker is the injector collaborator: it also runs functions with their
// dependencies resolved.
type Invoker interface {
	Collaborator

	// Invoke calls fn with its declared dependencies injected.
	Invoke(fn any) (any, error)
}

// Digester is optionally implemented by a Framework whose change detection
// should run once after a late registration, before the load completes.
type Digester interface {
	Digest() error
}

// Collaborators is the closed set of late-registration targets.
type Collaborators struct {
	Controllers Collaborator
	Provide     Collaborator
	Directives  Collaborator
	Filters     Collaborator
	Injector    Invoker
}

// For returns the collaborator serving key. Keys outside the fixed set yield
// an error wrapping domain.ErrUnsupportedProvider.
func (c Collaborators) For(key domain.ProviderKey) (Collaborator, error) {
	var target Collaborator
	switch key {
	case domain.ControllerProvider:
		target = c.Controllers
	case domain.Provide:
		target = c.Provide
	case domain.CompileProvider:
		target = c.Directives
	case domain.FilterProvider:
		target = c.Filters
	case domain.Injector:
		if c.Injector != nil {
			target = c.Injector
		}
	default:
		return nil, fmt.Errorf("%w %s", domain.ErrUnsupportedProvider, key)
	}
	if target == nil {
		return nil, fmt.Errorf("%w %s: no collaborator registered", domain.ErrUnsupportedProvider, key)
	}
	return target, nil
}

// Validate checks that every provider key has a collaborator.
func (c Collaborators) Validate() error {
	for _, key := range domain.ProviderKeys {
		if _, err := c.For(key); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
		}
	}
	return nil
}
