package lazyload

import "context"

// Plugin extends a Loader with background behavior.
type Plugin interface {
	// Name returns the plugin identifier.
	Name() string

	// Initialize starts the plugin. Returning an error aborts Loader.Start.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin.
	Shutdown(ctx context.Context) error
}

// ConfigRegistry is the part of the Loader plugins may update.
type ConfigRegistry interface {
	SetModuleConfig(cfg ModuleConfig) (ModuleConfig, error)
	ModuleConfig(name string) (ModuleConfig, bool)
}

// PluginConfig is handed to each plugin on Initialize.
type PluginConfig struct {
	Registry ConfigRegistry
	Logger   Logger
}
