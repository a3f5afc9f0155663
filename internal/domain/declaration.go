package domain

// ProviderKey names one of the fixed host collaborators a declaration can
// target. The set is closed; anything else is a configuration error.
type ProviderKey string

const (
	// ControllerProvider accepts controller definitions.
	ControllerProvider ProviderKey = "$controllerProvider"

	// Provide accepts generic service definitions (factory, service, value, constant).
	Provide ProviderKey = "$provide"

	// CompileProvider accepts directive definitions.
	CompileProvider ProviderKey = "$compileProvider"

	// FilterProvider accepts filter definitions.
	FilterProvider ProviderKey = "$filterProvider"

	// Injector invokes arbitrary functions with dependency injection.
	Injector ProviderKey = "$injector"
)

// ProviderKeys lists every supported key in dispatch order.
var ProviderKeys = []ProviderKey{ControllerProvider, Provide, CompileProvider, FilterProvider, Injector}

// Known reports whether k belongs to the fixed collaborator set.
func (k ProviderKey) Known() bool {
	switch k {
	case ControllerProvider, Provide, CompileProvider, FilterProvider, Injector:
		return true
	default:
		return false
	}
}

// Declaration is one registration call recorded against a module before the
// host linked it: which collaborator, which method, which arguments.
type Declaration struct {
	Provider ProviderKey
	Method   string
	Args     []any
}
