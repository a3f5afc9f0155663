package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDir_Fetch(t *testing.T) {
	fsys := fstest.MapFS{
		"mods/a.lua": {Data: []byte("lazy.module('a')")},
	}
	d := NewDir(fsys)
	ctx := context.Background()

	got, err := d.Fetch(ctx, "/mods/a.lua")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(got) != "lazy.module('a')" {
		t.Errorf("Fetch() = %q", got)
	}

	if _, err := d.Fetch(ctx, "mods/missing.lua"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Fetch(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := d.Fetch(ctx, "../escape.lua"); err == nil {
		t.Error("Fetch(../escape.lua) error = nil, want invalid path")
	}
}

func TestDir_FetchFromDisk(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "t.html"), []byte("<p>hi</p>"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewDir(os.DirFS(dir)).Fetch(context.Background(), "t.html")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(got) != "<p>hi</p>" {
		t.Errorf("Fetch() = %q", got)
	}
}

func TestDir_FetchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewDir(fstest.MapFS{}).Fetch(ctx, "a"); !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch() error = %v, want context.Canceled", err)
	}
}

func TestHTTP_Fetch(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		switch r.URL.Path {
		case "/modules/a.lua":
			_, _ = w.Write([]byte("module a"))
		case "/modules/boom.lua":
			http.Error(w, "exploded", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	src, err := NewHTTP(server.URL+"/modules/", server.Client(), nil, WithAuthToken("secret"))
	if err != nil {
		t.Fatalf("NewHTTP() error = %v", err)
	}
	ctx := context.Background()

	got, err := src.Fetch(ctx, "a.lua")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(got) != "module a" {
		t.Errorf("Fetch() = %q", got)
	}
	if gotPath != "/modules/a.lua" {
		t.Errorf("path = %q, want /modules/a.lua", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want Bearer secret", gotAuth)
	}

	if _, err := src.Fetch(ctx, "missing.lua"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Fetch(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := src.Fetch(ctx, "boom.lua"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Fetch(boom) error = %v, want a server error", err)
	}
}

func TestNewHTTP_RejectsBadBase(t *testing.T) {
	for _, base := range []string{"ftp://example.com", "::bad"} {
		if _, err := NewHTTP(base, nil, nil); err == nil {
			t.Errorf("NewHTTP(%q) error = nil", base)
		}
	}
}

func TestHTTP_FetchRetriesTransientFailures(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls[r.URL.Path]++
		n := calls[r.URL.Path]
		mu.Unlock()
		switch {
		case r.URL.Path == "/flaky.lua" && n < 3:
			http.Error(w, "busy", http.StatusServiceUnavailable)
		case r.URL.Path == "/flaky.lua":
			_, _ = w.Write([]byte("ok"))
		case r.URL.Path == "/denied.lua":
			http.Error(w, "no", http.StatusForbidden)
		default:
			http.Error(w, "down", http.StatusBadGateway)
		}
	}))
	defer server.Close()

	src, err := NewHTTP(server.URL+"/", server.Client(), nil, WithRetry(3, time.Millisecond, 2*time.Millisecond))
	if err != nil {
		t.Fatalf("NewHTTP() error = %v", err)
	}
	ctx := context.Background()

	got, err := src.Fetch(ctx, "flaky.lua")
	if err != nil {
		t.Fatalf("Fetch(flaky) error = %v", err)
	}
	if string(got) != "ok" {
		t.Errorf("Fetch(flaky) = %q, want ok", got)
	}
	if _, err := src.Fetch(ctx, "denied.lua"); err == nil {
		t.Error("Fetch(denied) error = nil")
	}
	if _, err := src.Fetch(ctx, "down.lua"); err == nil {
		t.Error("Fetch(down) error = nil")
	}

	mu.Lock()
	defer mu.Unlock()
	want := map[string]int{"/flaky.lua": 3, "/denied.lua": 1, "/down.lua": 3}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("request counts mismatch (-want +got):\n%s", diff)
	}
}

func TestBackoff(t *testing.T) {
	b := newBackoff(time.Millisecond, 3*time.Millisecond)
	ctx := context.Background()
	for _, want := range []time.Duration{2 * time.Millisecond, 3 * time.Millisecond, 3 * time.Millisecond} {
		if err := b.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		if b.Current() != want {
			t.Errorf("Current() = %v, want %v", b.Current(), want)
		}
	}
	b.Reset()
	if b.Current() != time.Millisecond {
		t.Errorf("Current() after Reset = %v, want 1ms", b.Current())
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := newBackoff(time.Hour, time.Hour).Wait(cctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait(cancelled) error = %v, want context.Canceled", err)
	}
}
