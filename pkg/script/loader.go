package script

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/lazyload/internal/ports"
	"github.com/bft-labs/lazyload/pkg/host"
	"github.com/bft-labs/lazyload/pkg/log"
)

// DefaultConcurrency bounds parallel fetches within one Load.
const DefaultConcurrency = 4

// Loader is an async loader that fetches files from a Source and evaluates
// them: .lua with the Lua runtime, .hcl as manifests. Each file is evaluated
// at most once per Loader.
type Loader struct {
	src      ports.Source
	runtime  *Runtime
	manifest *Manifest
	logger   log.Logger
	limit    int

	mu        sync.Mutex
	evaluated map[string]bool
}

// Option configures a Loader.
type Option func(*loaderOptions)

type loaderOptions struct {
	logger  log.Logger
	catalog *Catalog
	limit   int
}

// WithLogger sets the logger. Lua print calls are logged at info level.
func WithLogger(l log.Logger) Option {
	return func(o *loaderOptions) {
		o.logger = l
	}
}

// WithCatalog sets the handlers manifests bind to.
func WithCatalog(c *Catalog) Option {
	return func(o *loaderOptions) {
		o.catalog = c
	}
}

// WithConcurrency bounds parallel fetches. Values below one mean unbounded.
func WithConcurrency(n int) Option {
	return func(o *loaderOptions) {
		o.limit = n
	}
}

// NewLoader creates a loader defining modules on fw. Close releases the Lua
// runtime.
func NewLoader(fw *host.Framework, src ports.Source, opts ...Option) *Loader {
	o := loaderOptions{
		logger: log.NewNoopLogger(),
		limit:  DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Loader{
		src:       src,
		runtime:   NewRuntime(fw, o.logger),
		manifest:  NewManifest(fw, o.catalog),
		logger:    o.logger,
		limit:     o.limit,
		evaluated: make(map[string]bool),
	}
}

// Load implements ports.AsyncLoader. Files are fetched concurrently and
// evaluated in list order; files already evaluated are skipped.
func (l *Loader) Load(ctx context.Context, files []string) error {
	pending := l.pending(files)
	if len(pending) == 0 {
		return nil
	}

	bodies := make([][]byte, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	if l.limit > 0 {
		g.SetLimit(l.limit)
	}
	for i, name := range pending {
		g.Go(func() error {
			body, err := l.src.Fetch(gctx, name)
			if err != nil {
				return err
			}
			bodies[i] = body
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for i, name := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.evaluated[name] {
			continue
		}
		modules, err := l.eval(name, bodies[i])
		if err != nil {
			return err
		}
		l.evaluated[name] = true
		l.logger.Debug("file evaluated",
			log.String("file", name),
			log.Strings("modules", modules))
	}
	return nil
}

// pending drops duplicates and files already evaluated, keeping order.
func (l *Loader) pending(files []string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := make(map[string]bool, len(files))
	var out []string
	for _, f := range files {
		if seen[f] || l.evaluated[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func (l *Loader) eval(name string, body []byte) ([]string, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".lua":
		return l.runtime.Exec(name, body)
	case ".hcl":
		return l.manifest.Exec(name, body)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, name)
	}
}

// Evaluated reports whether name has been evaluated.
func (l *Loader) Evaluated(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.evaluated[name]
}

// Close stops the Lua runtime.
func (l *Loader) Close() error {
	return l.runtime.Close()
}

var _ ports.AsyncLoader = (*Loader)(nil)
