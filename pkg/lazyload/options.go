package lazyload

import (
	"github.com/bft-labs/lazyload/internal/domain"
	"github.com/bft-labs/lazyload/internal/ports"
	"github.com/bft-labs/lazyload/pkg/log"
)

// Re-exported types so callers only need this package.
type (
	// ModuleConfig describes a module's name, files, template and onload expression.
	ModuleConfig = domain.ModuleConfig

	// Ref references a module by name or by inline configuration.
	Ref = domain.Ref

	// Declaration is a queued registration call.
	Declaration = domain.Declaration

	// ProviderKey names one of the fixed registration collaborators.
	ProviderKey = domain.ProviderKey

	// Framework is the host dependency-injection framework.
	Framework = ports.Framework

	// ModuleDefinition is a module as declared to the host.
	ModuleDefinition = ports.ModuleDefinition

	// Collaborators is the fixed set of late-registration targets.
	Collaborators = ports.Collaborators

	// Collaborator accepts replayed declarations.
	Collaborator = ports.Collaborator

	// Invoker invokes functions with dependency injection.
	Invoker = ports.Invoker

	// Digester is optionally implemented by hosts with change detection.
	Digester = ports.Digester

	// AsyncLoader makes module files available to the host.
	AsyncLoader = ports.AsyncLoader

	// AsyncLoaderFunc adapts a function to AsyncLoader.
	AsyncLoaderFunc = ports.AsyncLoaderFunc

	// Source fetches raw file contents.
	Source = ports.Source

	// Scope, Element, Compiler and Linker are the Outlet's view ports.
	Scope    = ports.Scope
	Element  = ports.Element
	Compiler = ports.Compiler
	Linker   = ports.Linker

	// Logger is the structured logging interface from pkg/log.
	Logger = log.Logger
)

// Provider keys.
const (
	ControllerProvider = domain.ControllerProvider
	Provide            = domain.Provide
	CompileProvider    = domain.CompileProvider
	FilterProvider     = domain.FilterProvider
	InjectorProvider   = domain.Injector
)

// NameRef references a module by name.
func NameRef(name string) Ref { return domain.NameRef(name) }

// ConfigRef references a module by inline configuration.
func ConfigRef(cfg ModuleConfig) Ref { return domain.ConfigRef(cfg) }

// Option configures optional behavior of a Loader.
type Option func(*options)

type options struct {
	logger         Logger
	plugins        []Plugin
	baseline       []string
	templateSource Source
}

func defaultOptions() options {
	return options{
		logger:   log.NewNoopLogger(),
		baseline: []string{"ng", "ngAnimate"},
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPlugin registers a plugin to be initialized when the Loader starts.
// Plugins are initialized in registration order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithBaseline replaces the built-in module names that are treated as
// already registered. The default is "ng" and "ngAnimate".
func WithBaseline(names ...string) Option {
	return func(o *options) {
		o.baseline = append([]string(nil), names...)
	}
}

// WithTemplateSource sets where Outlets fetch module templates from.
func WithTemplateSource(src Source) Option {
	return func(o *options) {
		o.templateSource = src
	}
}
