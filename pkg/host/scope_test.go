package host

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScopeEvalInheritsVariables(t *testing.T) {
	root := NewRootScope()
	if err := root.Set("user", "ada"); err != nil {
		t.Fatal(err)
	}
	child := root.Child()
	if err := child.Set("greeting", "hi"); err != nil {
		t.Fatal(err)
	}

	v, err := child.Eval(`"${greeting} ${upper(user)}"`)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if v != "hi ADA" {
		t.Errorf("Eval() = %v, want %q", v, "hi ADA")
	}

	if _, ok := root.Get("greeting"); ok {
		t.Error("root sees child variable")
	}
}

func TestScopeEvalMissingVariableIsNull(t *testing.T) {
	root := NewRootScope()
	v, err := root.Eval("nothing")
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if v != nil {
		t.Errorf("Eval() = %v, want nil", v)
	}
}

func TestScopeEvalObject(t *testing.T) {
	root := NewRootScope()
	v, err := root.Eval(`{ name = "a", files = ["a.lua"] }`)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	want := map[string]any{"name": "a", "files": []any{"a.lua"}}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("Eval() mismatch (-want +got):\n%s", diff)
	}
}

func TestScopeWatchFiresOnChange(t *testing.T) {
	root := NewRootScope()
	_ = root.Set("x", 1)

	type call struct{ New, Old any }
	var calls []call
	unwatch, err := root.Watch("x", func(n, o any) { calls = append(calls, call{n, o}) })
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	mustDigest(t, root)
	mustDigest(t, root)
	_ = root.Set("x", 2)
	mustDigest(t, root)
	unwatch()
	_ = root.Set("x", 3)
	mustDigest(t, root)

	want := []call{{int64(1), int64(1)}, {int64(2), int64(1)}}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("listener calls mismatch (-want +got):\n%s", diff)
	}
	if n := root.WatcherCount(); n != 0 {
		t.Errorf("WatcherCount() = %d, want 0", n)
	}
}

func TestScopeEvalAsyncRunsInDigest(t *testing.T) {
	root := NewRootScope()
	var seen any
	_, _ = root.Watch("x", func(n, _ any) { seen = n })
	root.EvalAsync(func() { _ = root.Set("x", "set later") })

	mustDigest(t, root)
	if seen != "set later" {
		t.Errorf("watcher saw %v, want %q", seen, "set later")
	}
}

func TestScopeDigestTTL(t *testing.T) {
	root := NewRootScope()
	n := 0
	_, _ = root.Watch("x", func(_, _ any) {
		n++
		_ = root.Set("x", n)
	})

	if err := root.Digest(); !errors.Is(err, ErrDigestTTL) {
		t.Fatalf("Digest() error = %v, want ErrDigestTTL", err)
	}
	if err := root.Digest(); errors.Is(err, ErrDigestInProgress) {
		t.Error("digest flag left set after TTL failure")
	}
}

func TestScopeNestedDigest(t *testing.T) {
	root := NewRootScope()
	var nested error
	_, _ = root.Watch("1", func(_, _ any) { nested = root.Digest() })
	mustDigest(t, root)
	if !errors.Is(nested, ErrDigestInProgress) {
		t.Errorf("nested Digest() error = %v, want ErrDigestInProgress", nested)
	}
}

func TestScopeWatchErrorReported(t *testing.T) {
	root := NewRootScope()
	_, _ = root.Watch(`upper(1, 2)`, func(_, _ any) {})
	if err := root.Digest(); err == nil {
		t.Fatal("Digest() error = nil, want evaluation error")
	}
}

func TestScopeDestroy(t *testing.T) {
	root := NewRootScope()
	child := root.Child()
	grandchild := child.Child()
	_, _ = child.Watch("a", func(_, _ any) {})
	_, _ = grandchild.Watch("b", func(_, _ any) {})

	var destroyed int
	child.On(DestroyEvent, func(...any) { destroyed++ })
	grandchild.On(DestroyEvent, func(...any) { destroyed++ })

	if n := root.WatcherCount(); n != 2 {
		t.Fatalf("WatcherCount() = %d, want 2", n)
	}
	child.Destroy()
	child.Destroy()

	if n := root.WatcherCount(); n != 0 {
		t.Errorf("WatcherCount() after Destroy = %d, want 0", n)
	}
	if destroyed != 2 {
		t.Errorf("destroy handlers ran %d times, want 2", destroyed)
	}
	if !grandchild.Destroyed() {
		t.Error("grandchild not marked destroyed")
	}
}

func TestScopeEmitBubblesUp(t *testing.T) {
	root := NewRootScope()
	child := root.Child()
	var got []string
	root.On("ping", func(args ...any) { got = append(got, "root:"+args[0].(string)) })
	child.On("ping", func(args ...any) { got = append(got, "child:"+args[0].(string)) })

	child.Emit("ping", "x")
	root.Emit("ping", "y")

	want := []string{"child:x", "root:x", "root:y"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Emit mismatch (-want +got):\n%s", diff)
	}
}

func mustDigest(t *testing.T, s *Scope) {
	t.Helper()
	if err := s.Digest(); err != nil {
		t.Fatalf("Digest() error = %v", err)
	}
}
