package configwatcher

import "github.com/bft-labs/lazyload/pkg/lazyload"

// WithConfigWatcher returns a lazyload Option that keeps the loader's module
// registry in sync with a TOML file.
//
// Usage:
//
//	l, err := lazyload.New(fw, cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:          "modules.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) lazyload.Option {
	return lazyload.WithPlugin(New(cfg))
}
