package lazyload

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bft-labs/lazyload/internal/domain"
	"github.com/bft-labs/lazyload/internal/ports"
)

// Loader loads host modules on demand: it fetches their files, discovers and
// fetches their requirements, then registers everything new into the running
// injector. Use New to create one. A Loader is safe for concurrent use.
type Loader struct {
	fw     Framework
	config Config
	opts   options
	logger Logger

	registry   *registry
	registered *moduleSet
	probe      prober
	bridge     *bridge
	walker     *walker
	registrar  *registrar
	templates  *templateCache
	flights    singleflight.Group

	activeMu sync.Mutex
	active   map[*batch]struct{}

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// batch tracks the modules one running load will register.
type batch struct {
	list  *domain.LoadList
	names []string // set once the walk finished; the registrar drains list
	done  chan struct{}
	err   error
}

func (b *batch) has(name string) bool {
	return b.list.Contains(name) || slices.Contains(b.names, name)
}

// Result is the outcome of LoadAsync.
type Result struct {
	Config ModuleConfig
	Err    error
}

// New creates a Loader for fw. It returns ErrNoAsyncLoader when
// cfg.AsyncLoader is nil.
func New(fw Framework, cfg Config, opts ...Option) (*Loader, error) {
	if fw == nil {
		return nil, fmt.Errorf("%w: nil framework", ErrInvalidConfig)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	l := &Loader{
		fw:         fw,
		config:     cfg,
		opts:       o,
		logger:     o.logger,
		registry:   newRegistry(),
		registered: newModuleSet(o.baseline...),
		probe:      prober{fw: fw},
		templates:  newTemplateCache(o.templateSource),
		active:     make(map[*batch]struct{}),
	}
	l.bridge = &bridge{loader: cfg.AsyncLoader, timeout: cfg.FetchTimeout, logger: l.logger}
	l.walker = &walker{
		fw:         fw,
		probe:      l.probe,
		registry:   l.registry,
		registered: l.registered,
		bridge:     l.bridge,
		logger:     l.logger,
	}
	l.registrar = &registrar{fw: fw, registered: l.registered, logger: l.logger}

	for _, m := range cfg.Modules {
		l.registry.Set(m)
	}
	if err := l.addBootstrapModules(cfg.Bootstrap); err != nil {
		return nil, err
	}
	return l, nil
}

// addBootstrapModules marks the bootstrap modules and everything they require
// as registered. Requirements the host does not know are ignored.
func (l *Loader) addBootstrapModules(names []string) error {
	var visit func(name string) error
	visit = func(name string) error {
		if name == "" || l.registered.Has(name) {
			return nil
		}
		def, err := l.fw.Module(name)
		if errors.Is(err, ErrModuleNotFound) {
			l.logger.Debug("bootstrap module unknown to host", ports.Module(name))
			return nil
		}
		if err != nil {
			return fmt.Errorf("bootstrap module %s: %w", name, err)
		}
		l.registered.Add(name)
		for _, r := range def.Requires() {
			if err := visit(r.ModuleName()); err != nil {
				return err
			}
		}
		return nil
	}
	for _, n := range names {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}

// Load loads the module called name. The module must either be known to the
// host already or have a registered configuration.
func (l *Loader) Load(ctx context.Context, name string) (ModuleConfig, error) {
	return l.LoadRef(ctx, NameRef(name))
}

// LoadConfig registers cfg and loads the module it describes.
func (l *Loader) LoadConfig(ctx context.Context, cfg ModuleConfig) (ModuleConfig, error) {
	return l.LoadRef(ctx, ConfigRef(cfg))
}

// LoadAsync runs LoadRef in a new goroutine. The channel receives exactly
// one Result and is then closed.
func (l *Loader) LoadAsync(ctx context.Context, ref Ref) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		cfg, err := l.LoadRef(ctx, ref)
		ch <- Result{Config: cfg, Err: err}
	}()
	return ch
}

// LoadRef loads the referenced module and returns its effective configuration.
// Modules the host already knows return immediately without fetching.
// Concurrent loads of the same module share one execution.
func (l *Loader) LoadRef(ctx context.Context, ref Ref) (ModuleConfig, error) {
	name := ref.ModuleName()
	if name == "" {
		return ModuleConfig{}, fmt.Errorf("%w: %s", ErrInvalidModuleRef, ref)
	}

	exists, err := l.probe.exists(name)
	if err != nil {
		l.logger.Error("module lookup failed", ports.Module(name), ports.Err(err))
		return ModuleConfig{}, fmt.Errorf("probe module %s: %w", name, err)
	}
	if exists && !l.registered.Has(name) {
		if err := l.awaitRegistration(ctx, name); err != nil {
			return ModuleConfig{}, err
		}
	}
	if exists {
		cfg, ok := l.registry.Get(name)
		if !ok {
			cfg = ModuleConfig{Name: name}
		}
		l.logger.Debug("module already loaded", ports.Module(name))
		return cfg, nil
	}

	var cfg ModuleConfig
	if ref.Inline() {
		cfg = l.registry.Set(*ref.Config)
	} else {
		known, ok := l.registry.Get(name)
		if !ok {
			err := fmt.Errorf("%w: %s", ErrModuleNotConfigured, name)
			l.logger.Error("module not configured", ports.Module(name))
			return ModuleConfig{}, err
		}
		cfg = known
	}

	v, err, shared := l.flights.Do(name, func() (any, error) {
		return cfg, l.run(ctx, cfg)
	})
	if shared {
		l.logger.Debug("joined in-flight load", ports.Module(name))
	}
	if err != nil {
		return ModuleConfig{}, err
	}
	return v.(ModuleConfig).Clone(), nil
}

// awaitRegistration waits for a running load whose batch contains name.
// The host knows a module as soon as its files are evaluated, which happens
// before its declarations are replayed.
func (l *Loader) awaitRegistration(ctx context.Context, name string) error {
	var pending *batch
	l.activeMu.Lock()
	for b := range l.active {
		if b.has(name) {
			pending = b
			break
		}
	}
	l.activeMu.Unlock()
	if pending == nil {
		return nil
	}

	l.logger.Debug("waiting for in-flight registration", ports.Module(name))
	select {
	case <-pending.done:
		if pending.err != nil {
			return fmt.Errorf("module %s: %w", name, pending.err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loader) beginBatch(root string) *batch {
	b := &batch{list: domain.NewLoadList(), done: make(chan struct{})}
	b.list.Push(root)
	l.activeMu.Lock()
	l.active[b] = struct{}{}
	l.activeMu.Unlock()
	return b
}

func (l *Loader) endBatch(b *batch, err error) {
	l.activeMu.Lock()
	delete(l.active, b)
	l.activeMu.Unlock()
	b.err = err
	close(b.done)
}

// run fetches the root files, walks the requirements and registers the batch.
func (l *Loader) run(ctx context.Context, cfg ModuleConfig) (err error) {
	start := time.Now()
	b := l.beginBatch(cfg.Name)
	defer func() { l.endBatch(b, err) }()
	list := b.list

	if err := l.bridge.fetch(ctx, cfg.Name, cfg.Files); err != nil {
		l.logger.Error("module load failed", ports.Module(cfg.Name), ports.Err(err))
		return err
	}

	if err := l.walker.walk(ctx, cfg.Name, list); err != nil {
		l.logger.Error("module load failed", ports.Module(cfg.Name), ports.Err(err))
		return err
	}
	discovered := list.Names()
	l.activeMu.Lock()
	b.names = discovered
	l.activeMu.Unlock()

	if err := l.registrar.register(list); err != nil {
		return err
	}

	if d, ok := l.fw.(Digester); ok {
		if err := d.Digest(); err != nil {
			l.logger.Warn("digest after load failed", ports.Module(cfg.Name), ports.Err(err))
		}
	}

	l.logger.Info("module loaded",
		ports.Module(cfg.Name),
		ports.Strings("discovered", discovered),
		ports.Duration("elapsed", time.Since(start)))
	return nil
}

// Modules returns the registered modules, baseline first, in registration order.
func (l *Loader) Modules() []string {
	return l.registered.Names()
}

// ModuleConfig returns the stored configuration for name.
func (l *Loader) ModuleConfig(name string) (ModuleConfig, bool) {
	return l.registry.Get(name)
}

// SetModuleConfig stores cfg, replacing any previous configuration of the
// same module. It does not load anything.
func (l *Loader) SetModuleConfig(cfg ModuleConfig) (ModuleConfig, error) {
	if err := cfg.Validate(); err != nil {
		return ModuleConfig{}, err
	}
	return l.registry.Set(cfg), nil
}

// ConfiguredModules returns the names of all stored configurations, sorted.
func (l *Loader) ConfiguredModules() []string {
	return l.registry.Names()
}

// Start initializes plugins in registration order. The context bounds the
// plugins' lifetime.
func (l *Loader) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	pluginCfg := PluginConfig{Registry: l, Logger: l.logger}
	for i, p := range l.opts.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			l.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			for j := i - 1; j >= 0; j-- {
				prev := l.opts.plugins[j]
				if serr := prev.Shutdown(context.Background()); serr != nil {
					l.logger.Error("plugin shutdown failed",
						ports.String("plugin", prev.Name()),
						ports.Err(serr))
				}
			}
			cancel()
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		l.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	l.cancel = cancel
	l.started = true
	return nil
}

// Stop shuts plugins down in reverse order. Shutdown errors are logged and
// the first one is returned.
func (l *Loader) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return ErrNotStarted
	}

	l.cancel()
	var first error
	for i := len(l.opts.plugins) - 1; i >= 0; i-- {
		p := l.opts.plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			l.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			if first == nil {
				first = fmt.Errorf("plugin %s: %w", p.Name(), err)
			}
			continue
		}
		l.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
	}
	l.started = false
	l.cancel = nil
	return first
}

var _ ConfigRegistry = (*Loader)(nil)
