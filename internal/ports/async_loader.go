package ports

import "context"

// AsyncLoader makes source files available to the host framework.
// After a nil return, every listed file has been evaluated and the modules
// it declares are visible through Framework.Module.
type AsyncLoader interface {
	Load(ctx context.Context, files []string) error
}

// AsyncLoaderFunc adapts a plain function to AsyncLoader.
type AsyncLoaderFunc func(ctx context.Context, files []string) error

// Load calls f.
func (f AsyncLoaderFunc) Load(ctx context.Context, files []string) error {
	return f(ctx, files)
}

// Source fetches the raw contents of a named file (script, manifest, template).
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}
