package lazyload

import (
	"context"
	"fmt"
	"sync"

	"github.com/bft-labs/lazyload/internal/domain"
	"github.com/bft-labs/lazyload/internal/ports"
)

// Events emitted by an Outlet.
const (
	// ContentLoadedEvent is emitted on the child scope once a template is
	// linked. Its argument is the module name.
	ContentLoadedEvent = "$includeContentLoaded"

	// LoadErrorEvent is emitted on the outlet's scope when a load or template
	// fetch fails. Its arguments are the module name and the error.
	LoadErrorEvent = "$lazyLoadError"
)

// Outlet binds an expression to an element. Whenever the expression yields a
// module name or configuration, the module is loaded and its template, if
// any, is rendered into the element inside a fresh child scope. A falsy value
// destroys the child scope and clears the element.
type Outlet struct {
	loader   *Loader
	scope    Scope
	element  Element
	expr     string
	compiler Compiler
	logger   Logger

	ctx     context.Context
	cancel  context.CancelFunc
	unwatch func()

	mu    sync.Mutex
	gen   uint64
	child Scope
}

// OutletOption configures an Outlet.
type OutletOption func(*Outlet)

// WithCompiler sets the compiler templates are linked with. Without one the
// template body is rendered as is.
func WithCompiler(c Compiler) OutletOption {
	return func(o *Outlet) {
		o.compiler = c
	}
}

// NewOutlet watches expr on scope and renders loaded modules into element.
// ctx bounds every load the outlet starts; Close releases the outlet.
func NewOutlet(ctx context.Context, loader *Loader, scope Scope, element Element, expr string, opts ...OutletOption) (*Outlet, error) {
	if loader == nil || scope == nil || element == nil {
		return nil, fmt.Errorf("%w: outlet needs a loader, a scope and an element", ErrInvalidConfig)
	}
	o := &Outlet{
		loader:  loader,
		scope:   scope,
		element: element,
		expr:    expr,
		logger:  loader.logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.ctx, o.cancel = context.WithCancel(ctx)

	unwatch, err := scope.Watch(expr, o.changed)
	if err != nil {
		o.cancel()
		return nil, fmt.Errorf("outlet watch %q: %w", expr, err)
	}
	o.unwatch = unwatch
	return o, nil
}

// Close stops watching, abandons pending loads and clears the element.
func (o *Outlet) Close() {
	o.unwatch()
	o.cancel()
	o.clear()
}

func (o *Outlet) changed(value, _ any) {
	ref, ok, err := refFromValue(value)
	if err != nil {
		o.logger.Warn("outlet expression is not a module reference",
			ports.String("expr", o.expr),
			ports.Err(err))
		return
	}
	if !ok {
		o.clear()
		return
	}

	o.mu.Lock()
	o.gen++
	gen := o.gen
	o.mu.Unlock()

	go o.load(gen, ref)
}

// load runs off the digest; its outcome is applied on the next digest.
func (o *Outlet) load(gen uint64, ref Ref) {
	cfg, err := o.loader.LoadRef(o.ctx, ref)
	var body string
	if err == nil && cfg.Template != "" {
		body, err = o.loader.templates.get(o.ctx, cfg.Template)
	}
	if cfg.Name == "" {
		cfg.Name = ref.ModuleName()
	}

	o.scope.EvalAsync(func() { o.apply(gen, cfg, body, err) })
	o.digest()
}

func (o *Outlet) apply(gen uint64, cfg ModuleConfig, body string, err error) {
	o.mu.Lock()
	if gen != o.gen || o.ctx.Err() != nil {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	if err != nil {
		o.logger.Error("outlet load failed", ports.Module(cfg.Name), ports.Err(err))
		o.scope.Emit(LoadErrorEvent, cfg.Name, err)
		return
	}
	if cfg.Template == "" {
		return
	}

	o.clear()
	o.element.SetContent(body)
	child := o.scope.NewChild()
	if o.compiler != nil {
		link, err := o.compiler.Compile(body)
		if err == nil {
			err = link(child, o.element)
		}
		if err != nil {
			child.Destroy()
			o.logger.Error("outlet template link failed",
				ports.Module(cfg.Name),
				ports.String("template", cfg.Template),
				ports.Err(err))
			o.scope.Emit(LoadErrorEvent, cfg.Name, err)
			return
		}
	}

	o.mu.Lock()
	o.child = child
	o.mu.Unlock()

	child.Emit(ContentLoadedEvent, cfg.Name)
	if cfg.Onload != "" {
		if _, err := child.Eval(cfg.Onload); err != nil {
			o.logger.Warn("outlet onload failed",
				ports.Module(cfg.Name),
				ports.String("onload", cfg.Onload),
				ports.Err(err))
		}
	}
}

// clear destroys the child scope and empties the element. Pending loads
// started before the call are discarded.
func (o *Outlet) clear() {
	o.mu.Lock()
	o.gen++
	child := o.child
	o.child = nil
	o.mu.Unlock()

	if child != nil {
		child.Destroy()
	}
	o.element.SetContent("")
}

func (o *Outlet) digest() {
	var d Digester
	if sd, ok := o.scope.(Digester); ok {
		d = sd
	} else if fd, ok := o.loader.fw.(Digester); ok {
		d = fd
	}
	if d == nil {
		return
	}
	if err := d.Digest(); err != nil {
		o.logger.Debug("outlet digest deferred", ports.Err(err))
	}
}

// refFromValue interprets a watched value. Falsy values yield ok == false.
func refFromValue(v any) (Ref, bool, error) {
	switch x := v.(type) {
	case nil:
		return Ref{}, false, nil
	case bool:
		if !x {
			return Ref{}, false, nil
		}
	case string:
		if x == "" {
			return Ref{}, false, nil
		}
		return NameRef(x), true, nil
	case int64:
		if x == 0 {
			return Ref{}, false, nil
		}
	case float64:
		if x == 0 {
			return Ref{}, false, nil
		}
	case ModuleConfig:
		return ConfigRef(x), true, nil
	case map[string]any:
		cfg, err := domain.ConfigFromMap(x)
		if err != nil {
			return Ref{}, false, err
		}
		return ConfigRef(cfg), true, nil
	}
	return Ref{}, false, fmt.Errorf("%w: %T", ErrInvalidModuleRef, v)
}
