package host

import (
	"errors"
	"testing"
)

func TestInjectorFactorySingleton(t *testing.T) {
	inj := newInjector(map[string]any{})
	calls := 0
	inj.registerFactory("greeter", Inject(nil, func([]any) (any, error) {
		calls++
		return "hello", nil
	}))

	for range 3 {
		v, err := inj.Get("greeter")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if v != "hello" {
			t.Errorf("Get() = %v, want hello", v)
		}
	}
	if calls != 1 {
		t.Errorf("factory called %d times, want 1", calls)
	}
}

func TestInjectorResolvesDependencies(t *testing.T) {
	inj := newInjector(map[string]any{"$rootScope": "root"})
	inj.registerInstance("name", "lazy")
	inj.registerFactory("greeting", Inject([]string{"name", "$rootScope"}, func(args []any) (any, error) {
		return args[0].(string) + "@" + args[1].(string), nil
	}))

	v, err := inj.Get("greeting")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v != "lazy@root" {
		t.Errorf("Get() = %v, want lazy@root", v)
	}
}

func TestInjectorUnknownService(t *testing.T) {
	inj := newInjector(map[string]any{})
	inj.registerFactory("a", Inject([]string{"missing"}, func([]any) (any, error) { return nil, nil }))

	_, err := inj.Get("a")
	if !errors.Is(err, ErrUnknownService) {
		t.Fatalf("Get() error = %v, want ErrUnknownService", err)
	}
}

func TestInjectorCircularDependency(t *testing.T) {
	inj := newInjector(map[string]any{})
	inj.registerFactory("a", Inject([]string{"b"}, func([]any) (any, error) { return "a", nil }))
	inj.registerFactory("b", Inject([]string{"a"}, func([]any) (any, error) { return "b", nil }))

	_, err := inj.Get("a")
	if !errors.Is(err, ErrCircularDependency) {
		t.Fatalf("Get() error = %v, want ErrCircularDependency", err)
	}
}

func TestInjectorReRegisterDropsInstance(t *testing.T) {
	inj := newInjector(map[string]any{})
	inj.registerFactory("v", Static(1))
	if v, _ := inj.Get("v"); v != 1 {
		t.Fatalf("Get() = %v, want 1", v)
	}
	inj.registerFactory("v", Static(2))
	if v, _ := inj.Get("v"); v != 2 {
		t.Errorf("Get() after re-register = %v, want 2", v)
	}
}

func TestInjectorInvokeShapes(t *testing.T) {
	inj := newInjector(map[string]any{})
	ran := 0
	for _, fn := range []any{
		func() { ran++ },
		func() error { ran++; return nil },
		Inject(nil, func([]any) (any, error) { ran++; return nil, nil }),
	} {
		if _, err := inj.Invoke(fn); err != nil {
			t.Fatalf("Invoke(%T) error = %v", fn, err)
		}
	}
	if ran != 3 {
		t.Errorf("ran = %d, want 3", ran)
	}

	if _, err := inj.Invoke(42); !errors.Is(err, ErrBadArguments) {
		t.Errorf("Invoke(42) error = %v, want ErrBadArguments", err)
	}
}

func TestInjectorSelfIsBuiltin(t *testing.T) {
	inj := newInjector(map[string]any{})
	v, err := inj.Get("$injector")
	if err != nil {
		t.Fatalf("Get($injector) error = %v", err)
	}
	if v != inj {
		t.Errorf("Get($injector) = %v, want the injector", v)
	}
}

func TestCollaboratorsApply(t *testing.T) {
	inj := newInjector(map[string]any{})
	c := inj.Collaborators()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if err := c.Controllers.Apply("register", "MainCtrl", Inject([]string{"$scope"}, func(args []any) (any, error) {
		return args[0], nil
	})); err != nil {
		t.Fatalf("register controller: %v", err)
	}
	got, err := inj.Controller("MainCtrl", map[string]any{"$scope": "scope"})
	if err != nil || got != "scope" {
		t.Errorf("Controller() = %v, %v; want scope", got, err)
	}

	if err := c.Filters.Apply("register", "shout", Static("SHOUT")); err != nil {
		t.Fatalf("register filter: %v", err)
	}
	if f, err := inj.Filter("shout"); err != nil || f != "SHOUT" {
		t.Errorf("Filter() = %v, %v; want SHOUT", f, err)
	}

	if err := c.Directives.Apply("directive", "myDir", Static("d1")); err != nil {
		t.Fatalf("directive: %v", err)
	}
	if err := c.Directives.Apply("directive", "myDir", Static("d2")); err != nil {
		t.Fatalf("directive: %v", err)
	}
	ds, err := inj.Directive("myDir")
	if err != nil || len(ds) != 2 {
		t.Errorf("Directive() = %v, %v; want two instances", ds, err)
	}

	if err := c.Provide.Apply("value", "answer", 42); err != nil {
		t.Fatalf("value: %v", err)
	}
	if v, _ := inj.Get("answer"); v != 42 {
		t.Errorf("Get(answer) = %v, want 42", v)
	}
}

func TestCollaboratorsRejectBadCalls(t *testing.T) {
	inj := newInjector(map[string]any{})
	c := inj.Collaborators()

	tests := []struct {
		name string
		err  error
	}{
		{"unknown method", c.Provide.Apply("decorator", "x", Static(1))},
		{"missing args", c.Controllers.Apply("register", "x")},
		{"bad name", c.Filters.Apply("register", 7, Static(1))},
		{"bad fn", c.Directives.Apply("directive", "x", "not a function")},
		{"injector method", c.Injector.Apply("get", "x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, ErrBadArguments) {
				t.Errorf("error = %v, want ErrBadArguments", tt.err)
			}
		})
	}
}
