package lazyload

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/bft-labs/lazyload/pkg/host"
	"github.com/bft-labs/lazyload/pkg/log"
)

// fakeScripts stands in for script evaluation: each file, when loaded,
// defines modules on the host framework.
type fakeScripts struct {
	mu      sync.Mutex
	calls   [][]string
	scripts map[string]func(fw *host.Framework)
	fail    map[string]error
	fw      *host.Framework
}

func newFakeScripts(fw *host.Framework) *fakeScripts {
	return &fakeScripts{
		fw:      fw,
		scripts: make(map[string]func(fw *host.Framework)),
		fail:    make(map[string]error),
	}
}

func (s *fakeScripts) define(file string, fn func(fw *host.Framework)) {
	s.scripts[file] = fn
}

func (s *fakeScripts) Load(ctx context.Context, files []string) error {
	s.mu.Lock()
	s.calls = append(s.calls, slices.Clone(files))
	s.mu.Unlock()

	for _, f := range files {
		if err := s.fail[f]; err != nil {
			return err
		}
		def, ok := s.scripts[f]
		if !ok {
			return fmt.Errorf("no such file %s", f)
		}
		def(s.fw)
	}
	return ctx.Err()
}

// fetched returns every file requested, sorted.
func (s *fakeScripts) fetched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.calls {
		out = append(out, c...)
	}
	slices.Sort(out)
	return out
}

// order records module names as their declarations are replayed.
type order struct {
	mu    sync.Mutex
	names []string
}

func (o *order) mark(name string) host.Fn {
	return host.Inject(nil, func([]any) (any, error) {
		o.mu.Lock()
		o.names = append(o.names, name)
		o.mu.Unlock()
		return nil, nil
	})
}

func (o *order) get() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.names)
}

type fixture struct {
	fw      *host.Framework
	scripts *fakeScripts
	logs    *log.Recorder
	loader  *Loader
}

func newFixture(t *testing.T, cfg Config, opts ...Option) *fixture {
	t.Helper()
	fw := host.NewFramework()
	if err := fw.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	scripts := newFakeScripts(fw)
	logs := log.NewRecorder()
	if cfg.AsyncLoader == nil {
		cfg.AsyncLoader = scripts
	}
	l, err := New(fw, cfg, append([]Option{WithLogger(logs)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &fixture{fw: fw, scripts: scripts, logs: logs, loader: l}
}

func inline(name string, files ...string) host.Ref {
	return host.Inline(ModuleConfig{Name: name, Files: files})
}
