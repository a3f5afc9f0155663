package domain

import (
	"slices"
	"sync"
)

// LoadList is the ordered set of module names accumulated by one load
// operation. Push is idempotent, so the list doubles as "already scheduled".
// It is safe for concurrent use.
type LoadList struct {
	mu    sync.Mutex
	names []string
	index map[string]struct{}
}

// NewLoadList creates an empty list.
func NewLoadList() *LoadList {
	return &LoadList{index: make(map[string]struct{})}
}

// Push appends name unless it is already present. It reports whether the
// name was inserted.
func (l *LoadList) Push(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.index[name]; ok {
		return false
	}
	l.index[name] = struct{}{}
	l.names = append(l.names, name)
	return true
}

// Contains reports whether name has been pushed.
func (l *LoadList) Contains(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.index[name]
	return ok
}

// Len returns the number of names in the list.
func (l *LoadList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.names)
}

// Names returns the names in discovery order.
func (l *LoadList) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.names)
}

// Pop removes and returns the most recently discovered name.
// The removed name can be pushed again afterwards.
func (l *LoadList) Pop() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.names) == 0 {
		return "", false
	}
	last := l.names[len(l.names)-1]
	l.names = l.names[:len(l.names)-1]
	delete(l.index, last)
	return last, true
}

// Last returns the most recently discovered name without removing it.
func (l *LoadList) Last() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.names) == 0 {
		return "", false
	}
	return l.names[len(l.names)-1], true
}
