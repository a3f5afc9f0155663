package host

import "fmt"

// Fn is an injectable function: the names of its dependencies plus the call
// that receives them, in the same order.
type Fn struct {
	Deps []string
	Call func(args []any) (any, error)
}

// Inject builds an Fn.
func Inject(deps []string, call func(args []any) (any, error)) Fn {
	return Fn{Deps: deps, Call: call}
}

// Static returns an Fn without dependencies that always yields v.
func Static(v any) Fn {
	return Fn{Call: func([]any) (any, error) { return v, nil }}
}

// asFn accepts the function shapes the injector knows how to invoke.
func asFn(v any) (Fn, error) {
	switch f := v.(type) {
	case Fn:
		if f.Call == nil {
			return Fn{}, fmt.Errorf("%w: Fn without Call", ErrBadArguments)
		}
		return f, nil
	case *Fn:
		if f == nil || f.Call == nil {
			return Fn{}, fmt.Errorf("%w: nil Fn", ErrBadArguments)
		}
		return *f, nil
	case func():
		return Fn{Call: func([]any) (any, error) { f(); return nil, nil }}, nil
	case func() error:
		return Fn{Call: func([]any) (any, error) { return nil, f() }}, nil
	default:
		return Fn{}, fmt.Errorf("%w: %T is not invokable", ErrBadArguments, v)
	}
}
