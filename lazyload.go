// Package lazyload loads dependency-injection modules on demand from Lua
// scripts and HCL manifests kept in a directory.
//
// Example usage:
//
//	inst, err := lazyload.Open("static", lazyload.Config{
//	    Modules: []lazyload.ModuleConfig{
//	        {Name: "charts", Files: []string{"charts.lua"}},
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close()
//
//	if _, err := inst.Load(ctx, "charts"); err != nil {
//	    log.Fatal(err)
//	}
//
// The packages under pkg/ expose each piece on its own: pkg/lazyload for the
// loader, pkg/host for the host framework, pkg/script and pkg/source for
// evaluating and fetching files.
package lazyload

import (
	"fmt"
	"os"

	"github.com/bft-labs/lazyload/pkg/host"
	core "github.com/bft-labs/lazyload/pkg/lazyload"
	"github.com/bft-labs/lazyload/pkg/log"
	"github.com/bft-labs/lazyload/pkg/script"
	"github.com/bft-labs/lazyload/pkg/source"
)

// Config holds the loader configuration. AsyncLoader is filled in by Open.
type Config = core.Config

// ModuleConfig describes where a module's files live.
type ModuleConfig = core.ModuleConfig

// Option configures the loader.
type Option = core.Option

// Instance is a host framework with a loader reading from one directory.
type Instance struct {
	*core.Loader

	Framework *host.Framework
	Scripts   *script.Loader
}

// Open creates a bootstrapped host framework and a loader serving module
// files and templates from dir. Handlers referenced by manifests come from
// catalog, which may be nil.
func Open(dir string, cfg Config, catalog *script.Catalog, opts ...Option) (*Instance, error) {
	fw := host.NewFramework()
	if err := fw.Bootstrap(cfg.Bootstrap...); err != nil {
		return nil, fmt.Errorf("bootstrap host: %w", err)
	}

	src := source.NewDir(os.DirFS(dir))
	scripts := script.NewLoader(fw, src, script.WithCatalog(catalog))

	cfg.AsyncLoader = scripts
	loader, err := core.New(fw, cfg, append([]Option{core.WithTemplateSource(src)}, opts...)...)
	if err != nil {
		scripts.Close()
		return nil, err
	}
	return &Instance{Loader: loader, Framework: fw, Scripts: scripts}, nil
}

// Close releases the script runtime.
func (i *Instance) Close() error {
	return i.Scripts.Close()
}

// Logger returns a console logger on stderr at info level.
func Logger() log.Logger {
	return log.NewZerologAdapter()
}
