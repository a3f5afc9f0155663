package host

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFrameworkLookup(t *testing.T) {
	f := NewFramework()
	f.Define("app")
	f.Define("broken", Ref{})

	if _, err := f.Module("app"); err != nil {
		t.Errorf("Module(app) error = %v", err)
	}

	_, err := f.Module("missing")
	if !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("Module(missing) error = %v, want ErrModuleNotFound", err)
	}
	var me *ModuleError
	if !errors.As(err, &me) || me.Code != CodeNoModule {
		t.Errorf("Module(missing) error = %#v, want nomod ModuleError", err)
	}

	_, err = f.Module("broken")
	if err == nil || errors.Is(err, ErrModuleNotFound) {
		t.Errorf("Module(broken) error = %v, want a non-nomod fault", err)
	}
}

func TestFrameworkBootstrapOrder(t *testing.T) {
	f := NewFramework()
	var order []string
	record := func(s string) Fn {
		return Inject(nil, func([]any) (any, error) { order = append(order, s); return nil, nil })
	}

	f.Define("dep").Config(record("config dep")).Run(record("run dep"))
	f.Define("app", Names("dep")...).
		Value("greeting", "hi").
		Config(record("config app")).
		Run(Inject([]string{"greeting"}, func(args []any) (any, error) {
			order = append(order, "run app "+args[0].(string))
			return nil, nil
		}))

	if err := f.Bootstrap("app"); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}

	want := []string{"config dep", "config app", "run dep", "run app hi"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	for _, name := range []string{CoreModule, "dep", "app"} {
		if !f.Linked(name) {
			t.Errorf("Linked(%s) = false", name)
		}
	}
}

func TestFrameworkBootstrapMissingRequirement(t *testing.T) {
	f := NewFramework()
	f.Define("app", Names("ghost")...)

	err := f.Bootstrap("app")
	if !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("Bootstrap() error = %v, want ErrModuleNotFound", err)
	}
	if f.Linked("app") {
		t.Error("app linked despite missing requirement")
	}
}

func TestFrameworkConstantsFirst(t *testing.T) {
	f := NewFramework()
	m := f.Define("m").Value("v", 1).Constant("c", 2)
	q := m.InvokeQueue()
	if len(q) != 2 || q[0].Method != "constant" {
		t.Errorf("InvokeQueue() = %+v, want constant first", q)
	}
}

func TestFrameworkRootScopeIsInjectable(t *testing.T) {
	f := NewFramework()
	v, err := f.Injector().Get("$rootScope")
	if err != nil {
		t.Fatalf("Get($rootScope) error = %v", err)
	}
	if v != f.RootScope() {
		t.Error("$rootScope is not the framework root scope")
	}
}
