package host

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/bft-labs/lazyload/internal/ports"
)

// DigestTTL bounds the number of dirty passes a digest makes before it gives up.
const DigestTTL = 10

// DestroyEvent is emitted to a scope and its descendants when it is destroyed.
const DestroyEvent = "$destroy"

// tree is the state shared by every scope under one root.
type tree struct {
	mu        sync.Mutex
	digesting atomic.Bool
	async     []func()
}

// Scope holds variables that expressions are evaluated against, plus the
// watchers a digest checks. Child scopes see their ancestors' variables.
type Scope struct {
	tree     *tree
	parent   *Scope
	vars     map[string]cty.Value
	funcs    map[string]function.Function
	children []*Scope
	watchers []*watcher
	handlers map[string][]func(args ...any)

	destroyed bool
}

type watcher struct {
	scope    *Scope
	src      string
	expr     hcl.Expression
	listener func(newValue, oldValue any)
	last     cty.Value
	seen     bool
	removed  atomic.Bool
}

// NewRootScope creates the root of a new scope tree with the default
// function library.
func NewRootScope() *Scope {
	return &Scope{
		tree: &tree{},
		vars: make(map[string]cty.Value),
		funcs: map[string]function.Function{
			"upper":    stdlib.UpperFunc,
			"lower":    stdlib.LowerFunc,
			"join":     stdlib.JoinFunc,
			"format":   stdlib.FormatFunc,
			"length":   stdlib.LengthFunc,
			"concat":   stdlib.ConcatFunc,
			"coalesce": stdlib.CoalesceFunc,
		},
		handlers: make(map[string][]func(args ...any)),
	}
}

// Child creates a child scope.
func (s *Scope) Child() *Scope {
	c := &Scope{
		tree:     s.tree,
		parent:   s,
		vars:     make(map[string]cty.Value),
		funcs:    make(map[string]function.Function),
		handlers: make(map[string][]func(args ...any)),
	}
	s.tree.mu.Lock()
	s.children = append(s.children, c)
	s.tree.mu.Unlock()
	return c
}

// NewChild implements ports.Scope.
func (s *Scope) NewChild() ports.Scope {
	return s.Child()
}

// Parent returns the parent scope, nil for a root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Set assigns a variable on this scope.
func (s *Scope) Set(name string, v any) error {
	cv, err := ToValue(v)
	if err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	s.tree.mu.Lock()
	s.vars[name] = cv
	s.tree.mu.Unlock()
	return nil
}

// Get looks name up on this scope and its ancestors.
func (s *Scope) Get(name string) (any, bool) {
	s.tree.mu.Lock()
	var (
		v  cty.Value
		ok bool
	)
	for cur := s; cur != nil && !ok; cur = cur.parent {
		v, ok = cur.vars[name]
	}
	s.tree.mu.Unlock()
	if !ok {
		return nil, false
	}
	out, err := FromValue(v)
	if err != nil {
		return nil, false
	}
	return out, true
}

// SetFunc makes fn callable from expressions evaluated on this scope and its
// descendants.
func (s *Scope) SetFunc(name string, fn function.Function) {
	s.tree.mu.Lock()
	s.funcs[name] = fn
	s.tree.mu.Unlock()
}

// Eval implements ports.Scope.
func (s *Scope) Eval(src string) (any, error) {
	expr, err := parseExpression(src)
	if err != nil {
		return nil, err
	}
	v, err := s.evalExpr(expr)
	if err != nil {
		return nil, err
	}
	return FromValue(v)
}

// Watch implements ports.Scope. The listener first fires on the next digest
// with equal new and old values.
func (s *Scope) Watch(src string, listener func(newValue, oldValue any)) (func(), error) {
	expr, err := parseExpression(src)
	if err != nil {
		return nil, err
	}
	return s.watchExpr(src, expr, listener), nil
}

func (s *Scope) watchExpr(src string, expr hcl.Expression, listener func(newValue, oldValue any)) func() {
	w := &watcher{scope: s, src: src, expr: expr, listener: listener}

	s.tree.mu.Lock()
	if s.destroyed {
		s.tree.mu.Unlock()
		return func() {}
	}
	s.watchers = append(s.watchers, w)
	s.tree.mu.Unlock()

	return func() { s.unwatch(w) }
}

func (s *Scope) unwatch(w *watcher) {
	if w.removed.Swap(true) {
		return
	}
	s.tree.mu.Lock()
	s.watchers = slices.DeleteFunc(s.watchers, func(x *watcher) bool { return x == w })
	s.tree.mu.Unlock()
}

// WatcherCount returns the number of live watchers on this scope and its
// descendants.
func (s *Scope) WatcherCount() int {
	s.tree.mu.Lock()
	defer s.tree.mu.Unlock()
	return s.watcherCountLocked()
}

func (s *Scope) watcherCountLocked() int {
	n := len(s.watchers)
	for _, c := range s.children {
		n += c.watcherCountLocked()
	}
	return n
}

// EvalAsync implements ports.Scope. Queued functions run at the start of the
// next digest pass, including one that is currently running.
func (s *Scope) EvalAsync(fn func()) {
	s.tree.mu.Lock()
	s.tree.async = append(s.tree.async, fn)
	s.tree.mu.Unlock()
}

// On registers handler for event on this scope.
func (s *Scope) On(event string, handler func(args ...any)) {
	s.tree.mu.Lock()
	s.handlers[event] = append(s.handlers[event], handler)
	s.tree.mu.Unlock()
}

// Emit implements ports.Scope.
func (s *Scope) Emit(event string, args ...any) {
	s.tree.mu.Lock()
	var hs []func(args ...any)
	for cur := s; cur != nil; cur = cur.parent {
		hs = append(hs, cur.handlers[event]...)
	}
	s.tree.mu.Unlock()
	for _, h := range hs {
		h(args...)
	}
}

// Destroy implements ports.Scope.
func (s *Scope) Destroy() {
	s.tree.mu.Lock()
	if s.destroyed {
		s.tree.mu.Unlock()
		return
	}
	var hs []func(args ...any)
	var mark func(*Scope)
	mark = func(c *Scope) {
		c.destroyed = true
		hs = append(hs, c.handlers[DestroyEvent]...)
		for _, w := range c.watchers {
			w.removed.Store(true)
		}
		c.watchers = nil
		for _, gc := range c.children {
			mark(gc)
		}
		c.children = nil
	}
	mark(s)
	if s.parent != nil {
		s.parent.children = slices.DeleteFunc(s.parent.children, func(x *Scope) bool { return x == s })
	}
	s.tree.mu.Unlock()

	for _, h := range hs {
		h()
	}
}

// Destroyed reports whether Destroy was called on this scope or an ancestor.
func (s *Scope) Destroyed() bool {
	s.tree.mu.Lock()
	defer s.tree.mu.Unlock()
	return s.destroyed
}

// Digest runs queued async work and fires watchers whose value changed,
// repeating until nothing changes. It covers the whole tree s belongs to.
// Watch expressions that fail to evaluate are reported once each.
func (s *Scope) Digest() error {
	t := s.tree
	if !t.digesting.CompareAndSwap(false, true) {
		return ErrDigestInProgress
	}
	root := s
	for root.parent != nil {
		root = root.parent
	}

	failed := make(map[*watcher]error)
	for pass := 0; ; pass++ {
		t.mu.Lock()
		queue := t.async
		t.async = nil
		t.mu.Unlock()
		for _, fn := range queue {
			fn()
		}

		dirty := false
		for _, w := range root.allWatchers() {
			if w.removed.Load() {
				continue
			}
			v, err := w.scope.evalExpr(w.expr)
			if err != nil {
				if _, ok := failed[w]; !ok {
					failed[w] = fmt.Errorf("watch %q: %w", w.src, err)
				}
				continue
			}
			if w.seen && w.last.RawEquals(v) {
				continue
			}
			old := w.last
			if !w.seen {
				old = v
			}
			w.last, w.seen = v, true
			dirty = true

			nv, _ := FromValue(v)
			ov, _ := FromValue(old)
			if !w.removed.Load() {
				w.listener(nv, ov)
			}
		}

		t.mu.Lock()
		if !dirty && len(t.async) == 0 {
			t.digesting.Store(false)
			t.mu.Unlock()
			break
		}
		if pass+1 >= DigestTTL {
			t.digesting.Store(false)
			t.mu.Unlock()
			return fmt.Errorf("%w: %d", ErrDigestTTL, DigestTTL)
		}
		t.mu.Unlock()
	}

	if len(failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(failed))
	for _, err := range failed {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Scope) allWatchers() []*watcher {
	s.tree.mu.Lock()
	defer s.tree.mu.Unlock()
	var out []*watcher
	var walk func(*Scope)
	walk = func(c *Scope) {
		out = append(out, c.watchers...)
		for _, gc := range c.children {
			walk(gc)
		}
	}
	walk(s)
	return out
}

func (s *Scope) evalExpr(expr hcl.Expression) (cty.Value, error) {
	ctx := s.evalContext(expr.Variables())
	v, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	return v, nil
}

// evalContext flattens the scope chain into one context. Variables the
// expression references but no scope defines evaluate to null.
func (s *Scope) evalContext(refs []hcl.Traversal) *hcl.EvalContext {
	s.tree.mu.Lock()
	defer s.tree.mu.Unlock()

	var chain []*Scope
	for cur := s; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	ctx := &hcl.EvalContext{
		Variables: make(map[string]cty.Value),
		Functions: make(map[string]function.Function),
	}
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].vars {
			ctx.Variables[k] = v
		}
		for k, fn := range chain[i].funcs {
			ctx.Functions[k] = fn
		}
	}
	for _, ref := range refs {
		if _, ok := ctx.Variables[ref.RootName()]; !ok {
			ctx.Variables[ref.RootName()] = cty.NullVal(cty.DynamicPseudoType)
		}
	}
	return ctx
}

func parseExpression(src string) (hcl.Expression, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %q: %w", src, diags)
	}
	return expr, nil
}

var _ ports.Scope = (*Scope)(nil)
