package script

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/bft-labs/lazyload/internal/domain"
	"github.com/bft-labs/lazyload/pkg/host"
	"github.com/bft-labs/lazyload/pkg/log"
	"github.com/bft-labs/lazyload/pkg/source"
)

// countingSource records how often each file is fetched.
type countingSource struct {
	inner *source.Dir
	mu    sync.Mutex
	calls map[string]int
}

func newCountingSource(files fstest.MapFS) *countingSource {
	return &countingSource{inner: source.NewDir(files), calls: make(map[string]int)}
}

func (s *countingSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	s.calls[name]++
	s.mu.Unlock()
	return s.inner.Fetch(ctx, name)
}

func file(body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(body)}
}

func newTestLoader(t *testing.T, files fstest.MapFS, opts ...Option) (*host.Framework, *Loader) {
	t.Helper()
	fw := host.NewFramework()
	l := NewLoader(fw, source.NewDir(files), opts...)
	t.Cleanup(func() { _ = l.Close() })
	return fw, l
}

const chartsLua = `
lazy.module("charts", {"core", {name = "colors", files = {"colors.lua"}}})
  :value("palette", {"red", "blue"})
  :factory("chartService", {"palette"}, function(palette)
    return {count = #palette, first = palette[1]}
  end)
  :run({"chartService"}, function(svc)
    started = svc.count
  end)
`

func TestLuaModule(t *testing.T) {
	fw, l := newTestLoader(t, fstest.MapFS{"charts.lua": file(chartsLua)})
	if err := l.Load(context.Background(), []string{"charts.lua"}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	m, err := fw.Lookup("charts")
	if err != nil {
		t.Fatalf("Lookup(charts) error = %v", err)
	}
	want := []host.Ref{
		domain.NameRef("core"),
		domain.ConfigRef(domain.ModuleConfig{Name: "colors", Files: []string{"colors.lua"}}),
	}
	if diff := cmp.Diff(want, m.Requires()); diff != "" {
		t.Errorf("Requires() mismatch (-want +got):\n%s", diff)
	}

	fw.Define("core")
	fw.Define("colors")
	if err := fw.Bootstrap("charts"); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	svc, err := fw.Injector().Get("chartService")
	if err != nil {
		t.Fatalf("Get(chartService) error = %v", err)
	}
	if diff := cmp.Diff(map[string]any{"count": int64(2), "first": "red"}, svc); diff != "" {
		t.Errorf("chartService mismatch (-want +got):\n%s", diff)
	}
}

func TestLuaFunctionValues(t *testing.T) {
	fw, l := newTestLoader(t, fstest.MapFS{"greet.lua": file(`
lazy.module("greet")
  :constant("suffix", "!")
  :factory("greeter", {"suffix"}, function(suffix)
    return function(name) return "hello " .. name .. suffix end
  end)
`)})
	if err := l.Load(context.Background(), []string{"greet.lua"}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := fw.Bootstrap("greet"); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	v, err := fw.Injector().Get("greeter")
	if err != nil {
		t.Fatalf("Get(greeter) error = %v", err)
	}
	fn, ok := v.(*Function)
	if !ok {
		t.Fatalf("greeter is %T, want *Function", v)
	}
	got, err := fn.Call("lazy")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != "hello lazy!" {
		t.Errorf("Call() = %v, want %q", got, "hello lazy!")
	}
}

func TestLuaErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "syntax", body: `lazy.module("x"`},
		{name: "runtime", body: `error("boom")`},
		{name: "bad requires", body: `lazy.module("x", {42})`},
		{name: "bad deps", body: `lazy.module("x"):factory("f", {1}, function() end)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, l := newTestLoader(t, fstest.MapFS{"x.lua": file(tt.body)})
			err := l.Load(context.Background(), []string{"x.lua"})
			if !errors.Is(err, ErrScript) {
				t.Fatalf("Load() error = %v, want ErrScript", err)
			}
			if l.Evaluated("x.lua") {
				t.Error("failed file marked evaluated")
			}
		})
	}
}

func TestLuaPrintIsLogged(t *testing.T) {
	logs := log.NewRecorder()
	_, l := newTestLoader(t, fstest.MapFS{"p.lua": file(`print("a", 1)`)}, WithLogger(logs))
	if err := l.Load(context.Background(), []string{"p.lua"}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	entries := logs.Entries(log.LevelInfo)
	if len(entries) != 1 {
		t.Fatalf("info entries = %d, want 1", len(entries))
	}
	if msg, _ := entries[0].Field("message"); msg != "a\t1" {
		t.Errorf("message = %v, want %q", msg, "a\t1")
	}
	if script, _ := entries[0].Field("script"); script != "p.lua" {
		t.Errorf("script = %v, want p.lua", script)
	}
}

func TestLoadEvaluatesOnce(t *testing.T) {
	src := newCountingSource(fstest.MapFS{
		"a.lua": file(`lazy.module("a")`),
		"b.lua": file(`lazy.module("b")`),
	})
	fw := host.NewFramework()
	l := NewLoader(fw, src)
	defer l.Close()

	ctx := context.Background()
	if err := l.Load(ctx, []string{"a.lua", "b.lua", "a.lua"}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := l.Load(ctx, []string{"b.lua"}); err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if diff := cmp.Diff(map[string]int{"a.lua": 1, "b.lua": 1}, src.calls); diff != "" {
		t.Errorf("fetch counts mismatch (-want +got):\n%s", diff)
	}
	for _, name := range []string{"a", "b"} {
		if _, err := fw.Lookup(name); err != nil {
			t.Errorf("Lookup(%s) error = %v", name, err)
		}
	}
}

func TestLoadFailures(t *testing.T) {
	_, l := newTestLoader(t, fstest.MapFS{"notes.txt": file("hi")})
	ctx := context.Background()

	if err := l.Load(ctx, []string{"missing.lua"}); !errors.Is(err, source.ErrNotFound) {
		t.Errorf("Load(missing) error = %v, want ErrNotFound", err)
	}
	if err := l.Load(ctx, []string{"notes.txt"}); !errors.Is(err, ErrUnsupportedFile) {
		t.Errorf("Load(notes.txt) error = %v, want ErrUnsupportedFile", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := l.Load(cctx, []string{"notes.txt"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load(cancelled) error = %v, want context.Canceled", err)
	}
}

const chartsHCL = `
module "charts" {
  requires = ["core", { name = "colors", files = ["colors.hcl"] }]

  constant "title" { value = "Charts" }
  value "palette" { value = ["red", "blue"] }

  factory "chartService" {
    handler = "charts.service"
    deps    = ["palette", "title"]
  }

  run {
    handler = "charts.start"
    deps    = ["chartService"]
  }
}

module "core" {}
module "colors" {}
`

func TestManifest(t *testing.T) {
	var started any
	catalog := NewCatalog()
	catalog.Register("charts.service", func(args []any) (any, error) {
		return map[string]any{"title": args[1], "colors": len(args[0].([]any))}, nil
	})
	catalog.Register("charts.start", func(args []any) (any, error) {
		started = args[0]
		return nil, nil
	})

	fw, l := newTestLoader(t, fstest.MapFS{"charts.hcl": file(chartsHCL)}, WithCatalog(catalog))
	if err := l.Load(context.Background(), []string{"charts.hcl"}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	m, err := fw.Lookup("charts")
	if err != nil {
		t.Fatalf("Lookup(charts) error = %v", err)
	}
	wantRefs := []host.Ref{
		domain.NameRef("core"),
		domain.ConfigRef(domain.ModuleConfig{Name: "colors", Files: []string{"colors.hcl"}}),
	}
	if diff := cmp.Diff(wantRefs, m.Requires()); diff != "" {
		t.Errorf("Requires() mismatch (-want +got):\n%s", diff)
	}
	if q := m.InvokeQueue(); len(q) == 0 || q[0].Method != "constant" {
		t.Errorf("InvokeQueue()[0] = %+v, want constant first", q)
	}

	if err := fw.Bootstrap("charts"); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	want := map[string]any{"title": "Charts", "colors": 2}
	if diff := cmp.Diff(want, started); diff != "" {
		t.Errorf("run block saw (-want +got):\n%s", diff)
	}
}

func TestManifestErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "syntax", body: `module "x" {`, want: ErrManifest},
		{name: "unknown block", body: `widget "x" {}`, want: ErrManifest},
		{name: "unknown handler", body: `module "x" {
  factory "f" { handler = "nope" }
}`, want: ErrUnknownHandler},
		{name: "bad requires", body: `module "x" {
  requires = [1]
}`, want: domain.ErrInvalidModuleRef},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fw, l := newTestLoader(t, fstest.MapFS{"x.hcl": file(tt.body)})
			err := l.Load(context.Background(), []string{"x.hcl"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Load() error = %v, want %v", err, tt.want)
			}
			if _, err := fw.Lookup("x"); !errors.Is(err, domain.ErrModuleNotFound) {
				t.Errorf("module x defined after failure: %v", err)
			}
		})
	}
}

func TestCatalogDuplicatePanics(t *testing.T) {
	c := NewCatalog()
	c.Register("a", func([]any) (any, error) { return nil, nil })
	defer func() {
		if recover() == nil {
			t.Error("Register(a) twice did not panic")
		}
	}()
	c.Register("a", func([]any) (any, error) { return nil, nil })
}

func TestRuntimeClosed(t *testing.T) {
	r := NewRuntime(host.NewFramework(), nil)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := r.Exec("x.lua", []byte(`lazy.module("x")`)); !errors.Is(err, ErrClosed) {
		t.Errorf("Exec() after Close error = %v, want ErrClosed", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
