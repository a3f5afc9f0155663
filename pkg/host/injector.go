package host

import (
	"fmt"
	"slices"
	"sync"
)

// Injector resolves services by name and invokes functions with their
// dependencies. Services are singletons created on first use.
type Injector struct {
	mu          sync.RWMutex
	builtins    map[string]any
	factories   map[string]Fn
	instances   map[string]any
	controllers map[string]Fn
	directives  map[string][]Fn
}

func newInjector(builtins map[string]any) *Injector {
	inj := &Injector{
		builtins:    builtins,
		factories:   make(map[string]Fn),
		instances:   make(map[string]any),
		controllers: make(map[string]Fn),
		directives:  make(map[string][]Fn),
	}
	inj.builtins["$injector"] = inj
	return inj
}

// Has reports whether a service is registered under name.
func (i *Injector) Has(name string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if _, ok := i.builtins[name]; ok {
		return true
	}
	if _, ok := i.instances[name]; ok {
		return true
	}
	_, ok := i.factories[name]
	return ok
}

// Get returns the service registered under name, creating it if needed.
func (i *Injector) Get(name string) (any, error) {
	return i.get(name, nil)
}

// Invoke calls fn with its dependencies injected. fn may be an Fn, *Fn,
// func() or func() error.
func (i *Injector) Invoke(fn any) (any, error) {
	f, err := asFn(fn)
	if err != nil {
		return nil, err
	}
	return i.invoke(f, nil, nil)
}

// InvokeWith is Invoke with locals that take precedence over services.
func (i *Injector) InvokeWith(fn Fn, locals map[string]any) (any, error) {
	return i.invoke(fn, locals, nil)
}

// Controller instantiates the named controller with locals such as "$scope".
func (i *Injector) Controller(name string, locals map[string]any) (any, error) {
	i.mu.RLock()
	fn, ok := i.controllers[name]
	i.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: controller %s", ErrUnknownService, name)
	}
	return i.invoke(fn, locals, nil)
}

// Filter returns the named filter instance.
func (i *Injector) Filter(name string) (any, error) {
	return i.Get(name + "Filter")
}

// Directive instantiates every directive registered under name.
func (i *Injector) Directive(name string) ([]any, error) {
	i.mu.RLock()
	fns := slices.Clone(i.directives[name])
	i.mu.RUnlock()
	if len(fns) == 0 {
		return nil, fmt.Errorf("%w: directive %s", ErrUnknownService, name)
	}
	out := make([]any, 0, len(fns))
	for _, fn := range fns {
		v, err := i.invoke(fn, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("directive %s: %w", name, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (i *Injector) invoke(fn Fn, locals map[string]any, path []string) (any, error) {
	args := make([]any, len(fn.Deps))
	for n, dep := range fn.Deps {
		if v, ok := locals[dep]; ok {
			args[n] = v
			continue
		}
		v, err := i.get(dep, path)
		if err != nil {
			return nil, err
		}
		args[n] = v
	}
	return fn.Call(args)
}

func (i *Injector) get(name string, path []string) (any, error) {
	i.mu.RLock()
	if v, ok := i.builtins[name]; ok {
		i.mu.RUnlock()
		return v, nil
	}
	if v, ok := i.instances[name]; ok {
		i.mu.RUnlock()
		return v, nil
	}
	factory, ok := i.factories[name]
	i.mu.RUnlock()
	if !ok {
		if len(path) > 0 {
			return nil, fmt.Errorf("%w: %s <- %s", ErrUnknownService, name, path[len(path)-1])
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, name)
	}
	if slices.Contains(path, name) {
		return nil, circularError(path, name)
	}

	v, err := i.invoke(factory, nil, append(slices.Clone(path), name))
	if err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", name, err)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if existing, ok := i.instances[name]; ok {
		return existing, nil
	}
	i.instances[name] = v
	return v, nil
}

func (i *Injector) registerFactory(name string, fn Fn) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.factories[name] = fn
	delete(i.instances, name)
}

func (i *Injector) registerInstance(name string, v any) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.factories, name)
	i.instances[name] = v
}

func (i *Injector) registerController(name string, fn Fn) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.controllers[name] = fn
}

func (i *Injector) registerDirective(name string, fn Fn) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.directives[name] = append(i.directives[name], fn)
}
