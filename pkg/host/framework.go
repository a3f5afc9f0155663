package host

import (
	"fmt"
	"sync"

	"github.com/bft-labs/lazyload/internal/ports"
)

// CoreModule is the framework's own module, linked by every bootstrap.
const CoreModule = "ng"

// Framework is the module graph plus the injector modules are linked into.
type Framework struct {
	mu       sync.RWMutex
	modules  map[string]*Module
	linked   map[string]bool
	injector *Injector
	root     *Scope
}

// NewFramework creates a framework holding only the core module.
func NewFramework() *Framework {
	f := &Framework{
		modules: make(map[string]*Module),
		linked:  make(map[string]bool),
		root:    NewRootScope(),
	}
	f.injector = newInjector(map[string]any{"$rootScope": f.root})
	f.modules[CoreModule] = newModule(CoreModule, nil)
	return f
}

// Define creates (or replaces) the module called name.
func (f *Framework) Define(name string, requires ...Ref) *Module {
	m := newModule(name, requires)
	if name == "" {
		m.invalid = "empty module name"
	}
	f.mu.Lock()
	f.modules[name] = m
	f.mu.Unlock()
	return m
}

// Lookup returns the module called name. Unknown names yield a *ModuleError
// with CodeNoModule; malformed definitions yield CodeBadModule.
func (f *Framework) Lookup(name string) (*Module, error) {
	f.mu.RLock()
	m, ok := f.modules[name]
	f.mu.RUnlock()
	if !ok {
		return nil, &ModuleError{Code: CodeNoModule, Module: name}
	}
	if m.invalid != "" {
		return nil, &ModuleError{Code: CodeBadModule, Module: name, Reason: m.invalid}
	}
	return m, nil
}

// Module implements ports.Framework.
func (f *Framework) Module(name string) (ports.ModuleDefinition, error) {
	m, err := f.Lookup(name)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Injector returns the framework's injector.
func (f *Framework) Injector() *Injector {
	return f.injector
}

// RootScope returns the root of the scope tree.
func (f *Framework) RootScope() *Scope {
	return f.root
}

// Digest runs change detection on the whole scope tree.
func (f *Framework) Digest() error {
	return f.root.Digest()
}

// Linked reports whether Bootstrap linked the module into the injector.
func (f *Framework) Linked(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.linked[name]
}

// Collaborators implements ports.Framework.
func (f *Framework) Collaborators() ports.Collaborators {
	return f.injector.Collaborators()
}

// Bootstrap links the core module and the named modules, requirements
// first, then invokes every collected run block.
func (f *Framework) Bootstrap(names ...string) error {
	var runBlocks []any
	visiting := make(map[string]bool)

	var link func(name string) error
	link = func(name string) error {
		f.mu.RLock()
		done := f.linked[name]
		f.mu.RUnlock()
		if done || visiting[name] {
			return nil
		}
		visiting[name] = true

		m, err := f.Lookup(name)
		if err != nil {
			return err
		}
		for _, r := range m.Requires() {
			if err := link(r.ModuleName()); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
		for _, d := range m.InvokeQueue() {
			c, err := f.injector.Collaborators().For(d.Provider)
			if err != nil {
				return fmt.Errorf("module %s: %w", name, err)
			}
			if err := c.Apply(d.Method, d.Args...); err != nil {
				return fmt.Errorf("module %s: %w", name, err)
			}
		}
		runBlocks = append(runBlocks, m.RunBlocks()...)

		f.mu.Lock()
		f.linked[name] = true
		f.mu.Unlock()
		return nil
	}

	for _, name := range append([]string{CoreModule}, names...) {
		if err := link(name); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
	}
	for _, fn := range runBlocks {
		if _, err := f.injector.Invoke(fn); err != nil {
			return fmt.Errorf("bootstrap run block: %w", err)
		}
	}
	return nil
}

// Ensure Framework implements the loader ports.
var (
	_ ports.Framework = (*Framework)(nil)
	_ ports.Digester  = (*Framework)(nil)
)
