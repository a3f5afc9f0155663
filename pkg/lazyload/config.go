package lazyload

import (
	"fmt"
	"time"
)

// DefaultFetchTimeout bounds a single AsyncLoader call when Config.FetchTimeout is unset.
const DefaultFetchTimeout = 30 * time.Second

// Config holds the loader's process-wide setup.
type Config struct {
	// AsyncLoader fetches module files. Required.
	AsyncLoader AsyncLoader

	// Modules are registered before any load.
	Modules []ModuleConfig

	// Bootstrap names the modules the host was bootstrapped with. They and
	// their transitive requirements are treated as already registered.
	Bootstrap []string

	// FetchTimeout bounds each AsyncLoader call. Default: 30s.
	FetchTimeout time.Duration
}

// SetDefaults fills zero fields with default values.
func (c *Config) SetDefaults() {
	if c.FetchTimeout == 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.AsyncLoader == nil {
		return ErrNoAsyncLoader
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("%w: negative fetch timeout %s", ErrInvalidConfig, c.FetchTimeout)
	}
	for i, m := range c.Modules {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("modules[%d]: %w", i, err)
		}
	}
	return nil
}
