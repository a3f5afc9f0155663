package script

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bft-labs/lazyload/pkg/host"
)

// Handler is a Go implementation referenced from a manifest. It receives the
// dependencies the manifest lists, in order.
type Handler func(args []any) (any, error)

// Catalog maps handler names used in manifests to Go functions.
type Catalog struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{handlers: make(map[string]Handler)}
}

// Register adds a handler. Registering the same name twice is a programming
// error and panics.
func (c *Catalog) Register(name string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.handlers[name]; exists {
		panic(fmt.Sprintf("handler with name '%s' already registered", name))
	}
	c.handlers[name] = h
}

// Fn binds the named handler to deps.
func (c *Catalog) Fn(name string, deps []string) (host.Fn, error) {
	c.mu.RLock()
	h, ok := c.handlers[name]
	c.mu.RUnlock()
	if !ok {
		return host.Fn{}, fmt.Errorf("%w: %s", ErrUnknownHandler, name)
	}
	return host.Inject(deps, h), nil
}

// Names returns the registered handler names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.handlers))
	for n := range c.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
