package script

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/bft-labs/lazyload/internal/domain"
	"github.com/bft-labs/lazyload/pkg/host"
	"github.com/bft-labs/lazyload/pkg/log"
)

// ErrScript wraps errors raised while running Lua code.
var ErrScript = errors.New("script: lua error")

type workItem struct {
	fn     func() (any, error)
	result chan workResult
}

type workResult struct {
	value any
	err   error
}

// Runtime owns a single Lua state. All access to the state happens on one
// executor goroutine; Exec and the functions it registers queue work there.
type Runtime struct {
	fw     *host.Framework
	state  *lua.LState
	logger log.Logger

	work    chan workItem
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	// defined collects module names while a script runs. Executor only.
	defined []string
	current string
}

// NewRuntime creates a runtime defining modules on fw and starts its executor.
func NewRuntime(fw *host.Framework, logger log.Logger) *Runtime {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	r := &Runtime{
		fw:      fw,
		state:   L,
		logger:  logger,
		work:    make(chan workItem, 16),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	lazy := L.NewTable()
	L.SetField(lazy, "module", L.NewFunction(r.luaModule))
	L.SetGlobal("lazy", lazy)
	L.SetGlobal("print", L.NewFunction(r.luaPrint))

	r.startExecutor()
	return r
}

func (r *Runtime) startExecutor() {
	go func() {
		defer close(r.stopped)
		defer r.state.Close()
		for {
			select {
			case <-r.done:
				return
			case w := <-r.work:
				v, err := w.fn()
				w.result <- workResult{value: v, err: err}
			}
		}
	}()
}

// execute queues fn on the executor and blocks until it completes.
func (r *Runtime) execute(fn func() (any, error)) (any, error) {
	result := make(chan workResult, 1)
	select {
	case <-r.done:
		return nil, ErrClosed
	case r.work <- workItem{fn: fn, result: result}:
	}
	select {
	case res := <-result:
		return res.value, res.err
	case <-r.stopped:
		// The executor exited before picking the item up.
		select {
		case res := <-result:
			return res.value, res.err
		default:
			return nil, ErrClosed
		}
	}
}

// Close stops the executor and releases the Lua state. Pending calls fail
// with ErrClosed.
func (r *Runtime) Close() error {
	r.once.Do(func() { close(r.done) })
	<-r.stopped
	return nil
}

// Exec runs a chunk and returns the names of the modules it defined.
func (r *Runtime) Exec(name string, src []byte) ([]string, error) {
	v, err := r.execute(func() (any, error) {
		L := r.state
		r.defined = nil
		r.current = name
		defer func() { r.current = "" }()

		fn, err := L.Load(bytes.NewReader(src), name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrScript, name, err)
		}
		L.Push(fn)
		if err := L.PCall(0, lua.MultRet, nil); err != nil {
			L.SetTop(0)
			return slices.Clone(r.defined), fmt.Errorf("%w: %s: %w", ErrScript, name, err)
		}
		L.SetTop(0)
		return slices.Clone(r.defined), nil
	})
	names, _ := v.([]string)
	return names, err
}

// luaModule implements lazy.module(name [, requires]).
func (r *Runtime) luaModule(L *lua.LState) int {
	name := L.CheckString(1)
	var requires []host.Ref
	if L.GetTop() >= 2 && L.Get(2) != lua.LNil {
		refs, err := refsFromLua(L.CheckTable(2))
		if err != nil {
			L.ArgError(2, err.Error())
			return 0
		}
		requires = refs
	}

	m := r.fw.Define(name, requires...)
	r.defined = append(r.defined, name)
	r.logger.Debug("lua module defined",
		log.Module(name),
		log.String("script", r.current),
		log.Int("requires", len(requires)))

	L.Push(r.builder(L, m))
	return 1
}

// builder returns the table whose methods queue declarations on m.
func (r *Runtime) builder(L *lua.LState, m *host.Module) *lua.LTable {
	b := L.NewTable()
	named := map[string]func(string, host.Fn) *host.Module{
		"factory":    m.Factory,
		"service":    m.Service,
		"controller": m.Controller,
		"directive":  m.Directive,
		"filter":     m.Filter,
	}
	for method, register := range named {
		L.SetField(b, method, L.NewFunction(func(L *lua.LState) int {
			self := L.CheckTable(1)
			name := L.CheckString(2)
			register(name, r.injectable(L, 3))
			L.Push(self)
			return 1
		}))
	}

	valued := map[string]func(string, any) *host.Module{
		"value":    m.Value,
		"constant": m.Constant,
	}
	for method, register := range valued {
		L.SetField(b, method, L.NewFunction(func(L *lua.LState) int {
			self := L.CheckTable(1)
			name := L.CheckString(2)
			register(name, r.fromLua(L.CheckAny(3)))
			L.Push(self)
			return 1
		}))
	}

	blocks := map[string]func(host.Fn) *host.Module{
		"config": m.Config,
		"run":    m.Run,
	}
	for method, register := range blocks {
		L.SetField(b, method, L.NewFunction(func(L *lua.LState) int {
			self := L.CheckTable(1)
			register(r.injectable(L, 2))
			L.Push(self)
			return 1
		}))
	}
	return b
}

// injectable reads ([deps,] fn) starting at idx.
func (r *Runtime) injectable(L *lua.LState, idx int) host.Fn {
	var deps []string
	if fn, ok := L.Get(idx).(*lua.LFunction); ok {
		return r.bind(nil, fn)
	}
	tbl := L.CheckTable(idx)
	for i := 1; i <= tbl.Len(); i++ {
		s, ok := tbl.RawGetInt(i).(lua.LString)
		if !ok {
			L.ArgError(idx, fmt.Sprintf("dependency %d is not a string", i))
			return host.Fn{}
		}
		deps = append(deps, string(s))
	}
	return r.bind(deps, L.CheckFunction(idx+1))
}

func (r *Runtime) bind(deps []string, fn *lua.LFunction) host.Fn {
	return host.Inject(deps, func(args []any) (any, error) {
		return r.call(fn, args)
	})
}

// call runs fn on the executor with Go arguments and returns its first result.
func (r *Runtime) call(fn *lua.LFunction, args []any) (any, error) {
	return r.execute(func() (any, error) {
		L := r.state
		largs := make([]lua.LValue, len(args))
		for i, a := range args {
			largs[i] = r.toLua(L, a)
		}
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, largs...); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScript, err)
		}
		ret := L.Get(-1)
		L.Pop(1)
		return r.fromLua(ret), nil
	})
}

func (r *Runtime) luaPrint(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	r.logger.Info("lua print",
		log.String("script", r.current),
		log.String("message", strings.Join(parts, "\t")))
	return 0
}

// Function is a Lua function handed out to Go, for example a factory that
// returns a callable service.
type Function struct {
	rt *Runtime
	fn *lua.LFunction
}

// Call invokes the function on its runtime.
func (f *Function) Call(args ...any) (any, error) {
	return f.rt.call(f.fn, args)
}

// fromLua converts a Lua value to Go. Tables whose keys are exactly 1..n
// become []any, other tables map[string]any. Executor only.
func (r *Runtime) fromLua(lv lua.LValue) any {
	switch v := lv.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LString:
		return string(v)
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case *lua.LFunction:
		return &Function{rt: r, fn: v}
	case *lua.LUserData:
		return v.Value
	case *lua.LTable:
		n := v.Len()
		count := 0
		v.ForEach(func(lua.LValue, lua.LValue) { count++ })
		if count == n {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, r.fromLua(v.RawGetInt(i)))
			}
			return out
		}
		out := make(map[string]any, count)
		v.ForEach(func(k, val lua.LValue) {
			out[k.String()] = r.fromLua(val)
		})
		return out
	default:
		return lv.String()
	}
}

// toLua converts a Go value to Lua. Values without a Lua shape travel as
// userdata and come back unchanged. Executor only.
func (r *Runtime) toLua(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return x
	case bool:
		return lua.LBool(x)
	case string:
		return lua.LString(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case *Function:
		return x.fn
	case []string:
		t := L.NewTable()
		for _, s := range x {
			t.Append(lua.LString(s))
		}
		return t
	case []any:
		t := L.NewTable()
		for _, e := range x {
			t.Append(r.toLua(L, e))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, e := range x {
			t.RawSetString(k, r.toLua(L, e))
		}
		return t
	default:
		ud := L.NewUserData()
		ud.Value = v
		return ud
	}
}

// refsFromLua reads a requires list: strings and {name=..., files=...} tables.
func refsFromLua(tbl *lua.LTable) ([]host.Ref, error) {
	var refs []host.Ref
	for i := 1; i <= tbl.Len(); i++ {
		switch v := tbl.RawGetInt(i).(type) {
		case lua.LString:
			refs = append(refs, domain.NameRef(string(v)))
		case *lua.LTable:
			m := make(map[string]any)
			if name, ok := v.RawGetString("name").(lua.LString); ok {
				m["name"] = string(name)
			}
			if t, ok := v.RawGetString("template").(lua.LString); ok {
				m["template"] = string(t)
			}
			if o, ok := v.RawGetString("onload").(lua.LString); ok {
				m["onload"] = string(o)
			}
			if files, ok := v.RawGetString("files").(*lua.LTable); ok {
				var fs []any
				for j := 1; j <= files.Len(); j++ {
					fs = append(fs, files.RawGetInt(j).String())
				}
				m["files"] = fs
			}
			cfg, err := domain.ConfigFromMap(m)
			if err != nil {
				return nil, fmt.Errorf("requires[%d]: %w", i, err)
			}
			refs = append(refs, domain.ConfigRef(cfg))
		default:
			return nil, fmt.Errorf("requires[%d]: %w: %s", i, domain.ErrInvalidModuleRef, v.Type())
		}
	}
	return refs, nil
}
