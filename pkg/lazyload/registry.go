package lazyload

import (
	"slices"
	"sync"
)

// registry maps module names to their last known configuration.
// Set overwrites; Claim keeps the first configuration it saw.
type registry struct {
	mu      sync.RWMutex
	configs map[string]ModuleConfig
}

func newRegistry() *registry {
	return &registry{configs: make(map[string]ModuleConfig)}
}

func (r *registry) Get(name string) (ModuleConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[name]
	if !ok {
		return ModuleConfig{}, false
	}
	return cfg.Clone(), true
}

// Set stores cfg under its name, replacing any previous entry.
func (r *registry) Set(cfg ModuleConfig) ModuleConfig {
	cfg = cfg.Clone()
	r.mu.Lock()
	r.configs[cfg.Name] = cfg
	r.mu.Unlock()
	return cfg.Clone()
}

// Claim stores cfg unless its name is already taken. It returns the stored
// configuration and whether a different one was already present.
func (r *registry) Claim(cfg ModuleConfig) (ModuleConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.configs[cfg.Name]; ok {
		return existing.Clone(), !existing.Equal(cfg)
	}
	r.configs[cfg.Name] = cfg.Clone()
	return cfg.Clone(), false
}

func (r *registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.configs))
	for n := range r.configs {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// moduleSet is the set of modules whose declarations reached the injector.
// It only grows.
type moduleSet struct {
	mu    sync.RWMutex
	order []string
	index map[string]struct{}
}

func newModuleSet(names ...string) *moduleSet {
	s := &moduleSet{index: make(map[string]struct{})}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

func (s *moduleSet) Add(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[name]; ok {
		return
	}
	s.index[name] = struct{}{}
	s.order = append(s.order, name)
}

func (s *moduleSet) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[name]
	return ok
}

func (s *moduleSet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}
