package host

import (
	"slices"
	"sync"

	"github.com/bft-labs/lazyload/internal/domain"
)

// Ref references a required module by name or inline configuration.
type Ref = domain.Ref

// ModuleConfig is the inline configuration a requirement may carry.
type ModuleConfig = domain.ModuleConfig

// Declaration is a queued registration call.
type Declaration = domain.Declaration

// Names turns module names into requirement references.
func Names(names ...string) []Ref {
	refs := make([]Ref, len(names))
	for i, n := range names {
		refs[i] = domain.NameRef(n)
	}
	return refs
}

// Inline turns a configuration into a requirement reference.
func Inline(cfg ModuleConfig) Ref {
	return domain.ConfigRef(cfg)
}

// Module is a named bundle of queued registrations. Builder methods return
// the module so calls can be chained. A Module is safe for concurrent use.
type Module struct {
	name     string
	requires []Ref

	mu        sync.RWMutex
	queue     []Declaration
	runBlocks []any
	invalid   string
}

func newModule(name string, requires []Ref) *Module {
	m := &Module{name: name, requires: slices.Clone(requires)}
	for _, r := range requires {
		if r.ModuleName() == "" {
			m.invalid = "requirement without a module name"
		}
	}
	return m
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Requires returns the module's requirements in declaration order.
func (m *Module) Requires() []Ref {
	return slices.Clone(m.requires)
}

// InvokeQueue returns a snapshot of the queued declarations.
func (m *Module) InvokeQueue() []Declaration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.queue)
}

// RunBlocks returns a snapshot of the queued run blocks.
func (m *Module) RunBlocks() []any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.runBlocks)
}

// Queue records an arbitrary declaration at the end of the invoke queue.
func (m *Module) Queue(d Declaration) *Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, d)
	return m
}

func (m *Module) queueFirst(d Declaration) *Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append([]Declaration{d}, m.queue...)
	return m
}

func (m *Module) later(key domain.ProviderKey, method string, args ...any) *Module {
	return m.Queue(Declaration{Provider: key, Method: method, Args: args})
}

// Controller registers a controller constructor.
func (m *Module) Controller(name string, fn Fn) *Module {
	return m.later(domain.ControllerProvider, "register", name, fn)
}

// Factory registers a service built by fn on first use.
func (m *Module) Factory(name string, fn Fn) *Module {
	return m.later(domain.Provide, "factory", name, fn)
}

// Service registers a service constructor. It behaves like Factory.
func (m *Module) Service(name string, fn Fn) *Module {
	return m.later(domain.Provide, "service", name, fn)
}

// Value registers a ready-made service instance.
func (m *Module) Value(name string, v any) *Module {
	return m.later(domain.Provide, "value", name, v)
}

// Constant registers a value that is applied before anything else in the module.
func (m *Module) Constant(name string, v any) *Module {
	return m.queueFirst(Declaration{Provider: domain.Provide, Method: "constant", Args: []any{name, v}})
}

// Directive registers a directive factory.
func (m *Module) Directive(name string, fn Fn) *Module {
	return m.later(domain.CompileProvider, "directive", name, fn)
}

// Filter registers a filter factory.
func (m *Module) Filter(name string, fn Fn) *Module {
	return m.later(domain.FilterProvider, "register", name, fn)
}

// Config queues fn to be invoked while the module's declarations are applied.
func (m *Module) Config(fn Fn) *Module {
	return m.later(domain.Injector, "invoke", fn)
}

// Run queues fn to be invoked once the module and its batch are registered.
func (m *Module) Run(fn Fn) *Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runBlocks = append(m.runBlocks, fn)
	return m
}
