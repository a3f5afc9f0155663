// Package lazyload loads dependency-injection modules into a running host
// framework on demand.
//
// A Loader is given the host Framework and an AsyncLoader that knows how to
// make module files available (evaluate scripts, read manifests, inject
// script tags). Loading a module fetches its files, walks its requirements,
// fetches the files of every newly configured dependency, and finally replays
// the queued declarations of everything new against the host's collaborators,
// requirements first. Run blocks are invoked once the whole batch is in.
//
// # Basic Usage
//
//	fw := host.NewFramework()
//	loader, err := lazyload.New(fw, lazyload.Config{
//	    AsyncLoader: script.NewLoader(fw, source.NewDir(os.DirFS("modules"))),
//	    Modules: []lazyload.ModuleConfig{
//	        {Name: "charts", Files: []string{"charts.lua"}},
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg, err := loader.Load(ctx, "charts")
//
// Modules the host already knows return immediately. A bare name without a
// stored configuration fails with ErrModuleNotConfigured; LoadConfig stores
// the configuration it is given first.
//
// # Dependencies
//
// Requirements may be bare names or inline configurations. The first
// configuration seen for a name wins; later differing ones are logged as
// "dependency configuration redefined" and ignored. Bare names without a
// configuration are assumed to be provided some other way.
//
// # Outlets
//
// An Outlet watches an expression on a Scope. When it yields a module name or
// configuration the module is loaded and, if the configuration names a
// template, the template is fetched once, rendered into the Element and linked
// into a new child scope. ContentLoadedEvent is then emitted and the onload
// expression evaluated. A falsy value tears the child scope down.
//
// # Plugins
//
// Plugins registered with WithPlugin are initialized by Loader.Start and shut
// down in reverse order by Loader.Stop.
package lazyload
