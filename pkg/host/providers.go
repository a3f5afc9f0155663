package host

import (
	"fmt"

	"github.com/bft-labs/lazyload/internal/ports"
)

// Collaborators returns the late-registration targets bound to this injector.
func (i *Injector) Collaborators() ports.Collaborators {
	return ports.Collaborators{
		Controllers: controllerProvider{i},
		Provide:     provide{i},
		Directives:  compileProvider{i},
		Filters:     filterProvider{i},
		Injector:    i,
	}
}

// Apply implements ports.Collaborator for "$injector". The only method is
// "invoke", used by configuration blocks.
func (i *Injector) Apply(method string, args ...any) error {
	if method != "invoke" {
		return unknownMethod("$injector", method)
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: $injector.invoke takes 1 argument, got %d", ErrBadArguments, len(args))
	}
	_, err := i.Invoke(args[0])
	return err
}

type controllerProvider struct{ inj *Injector }

func (p controllerProvider) Apply(method string, args ...any) error {
	if method != "register" {
		return unknownMethod("$controllerProvider", method)
	}
	name, fn, err := nameAndFn("$controllerProvider.register", args)
	if err != nil {
		return err
	}
	p.inj.registerController(name, fn)
	return nil
}

type provide struct{ inj *Injector }

func (p provide) Apply(method string, args ...any) error {
	switch method {
	case "factory", "service":
		name, fn, err := nameAndFn("$provide."+method, args)
		if err != nil {
			return err
		}
		p.inj.registerFactory(name, fn)
		return nil
	case "value", "constant":
		if len(args) != 2 {
			return fmt.Errorf("%w: $provide.%s takes 2 arguments, got %d", ErrBadArguments, method, len(args))
		}
		name, ok := args[0].(string)
		if !ok || name == "" {
			return fmt.Errorf("%w: $provide.%s name is %T", ErrBadArguments, method, args[0])
		}
		p.inj.registerInstance(name, args[1])
		return nil
	default:
		return unknownMethod("$provide", method)
	}
}

type compileProvider struct{ inj *Injector }

func (p compileProvider) Apply(method string, args ...any) error {
	if method != "directive" {
		return unknownMethod("$compileProvider", method)
	}
	name, fn, err := nameAndFn("$compileProvider.directive", args)
	if err != nil {
		return err
	}
	p.inj.registerDirective(name, fn)
	return nil
}

type filterProvider struct{ inj *Injector }

func (p filterProvider) Apply(method string, args ...any) error {
	if method != "register" {
		return unknownMethod("$filterProvider", method)
	}
	name, fn, err := nameAndFn("$filterProvider.register", args)
	if err != nil {
		return err
	}
	p.inj.registerFactory(name+"Filter", fn)
	return nil
}

func nameAndFn(call string, args []any) (string, Fn, error) {
	if len(args) != 2 {
		return "", Fn{}, fmt.Errorf("%w: %s takes 2 arguments, got %d", ErrBadArguments, call, len(args))
	}
	name, ok := args[0].(string)
	if !ok || name == "" {
		return "", Fn{}, fmt.Errorf("%w: %s name is %T", ErrBadArguments, call, args[0])
	}
	fn, err := asFn(args[1])
	if err != nil {
		return "", Fn{}, fmt.Errorf("%s %s: %w", call, name, err)
	}
	return name, fn, nil
}

func unknownMethod(provider, method string) error {
	return fmt.Errorf("%w: %s has no method %q", ErrBadArguments, provider, method)
}

var _ ports.Invoker = (*Injector)(nil)
