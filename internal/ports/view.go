package ports

// Scope is a node in the host's scope tree, as used by an Outlet.
type Scope interface {
	// Watch registers listener for changes of expr. The listener runs during
	// digests, once initially and then whenever the value changes.
	Watch(expr string, listener func(newValue, oldValue any)) (unwatch func(), err error)

	// NewChild creates a child scope inheriting this scope's variables.
	NewChild() Scope

	// Destroy detaches the scope and drops its watchers and children.
	Destroy()

	// Emit dispatches an event to this scope and its ancestors.
	Emit(event string, args ...any)

	// Eval evaluates expr against the scope.
	Eval(expr string) (any, error)

	// EvalAsync queues fn to run at the start of the next digest.
	EvalAsync(fn func())
}

// Element is the content holder an Outlet renders into.
type Element interface {
	SetContent(content string)
	Content() string
}

// Linker binds compiled content to a scope, rendering into element.
type Linker func(scope Scope, element Element) error

// Compiler turns raw template content into a Linker.
type Compiler interface {
	Compile(content string) (Linker, error)
}
