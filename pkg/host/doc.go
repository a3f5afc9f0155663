// Package host is an in-process dependency-injection framework that the
// lazyload core can extend at runtime.
//
// A Framework keeps a graph of named modules. Each module records the
// registrations made against it (controllers, services, directives, filters,
// constants, configuration blocks) in an invoke queue, plus run blocks to call
// once the module is linked. Bootstrap links modules into the framework's
// Injector bottom-up; lazyload links late-arriving modules through the same
// collaborators returned by Framework.Collaborators.
//
// # Modules
//
//	fw := host.NewFramework()
//	fw.Define("greetings").
//	    Value("salutation", "hello").
//	    Factory("greeter", host.Inject([]string{"salutation"}, func(args []any) (any, error) {
//	        return func(name string) string { return args[0].(string) + " " + name }, nil
//	    })).
//	    Run(host.Inject([]string{"greeter"}, func(args []any) (any, error) { return nil, nil }))
//
//	fw.Define("app", host.Names("greetings")...)
//	if err := fw.Bootstrap("app"); err != nil { ... }
//
// # Scopes
//
// Scopes hold variables as cty values and evaluate HCL expressions. Watchers
// registered with Scope.Watch run during Scope.Digest; EvalAsync queues work
// for the next digest. Templates use HCL template syntax (${expr}) and are
// linked into a scope by TemplateCompiler.
package host
