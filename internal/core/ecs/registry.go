package ecs

import (
	"errors"
	"fmt"
	"sync"
)

// Registry tracks all component stores by name and supports bulk cleanup on entity
// destroy.
type Registry struct {
	mu     sync.RWMutex
	names  []string
	stores map[string]Store
}

func NewRegistry() *Registry {
	return &Registry{
		names:  make([]string, 0, 16),
		stores: make(map[string]Store, 16),
	}
}

// Register adds a component store under name.
func (r *Registry) Register(name string, store Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stores[name]; ok {
		return fmt.Errorf("register %q: %w", name, ErrPoolExists)
	}
	r.names = append(r.names, name)
	r.stores[name] = store
	return nil
}

func (r *Registry) Store(name string) (Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[name]
	return s, ok
}

// ComponentPool returns the named store if it is a ComponentPool.
func (r *Registry) ComponentPool(name string) (*ComponentPool, bool) {
	s, ok := r.Store(name)
	if !ok {
		return nil, false
	}
	cp, ok := s.(*ComponentPool)
	return cp, ok
}

// Names lists registered stores in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Each calls fn for every store in registration order.
func (r *Registry) Each(fn func(name string, s Store)) {
	for _, name := range r.Names() {
		if s, ok := r.Store(name); ok {
			fn(name, s)
		}
	}
}

// RemoveAll stages removal of id from every registered store.
func (r *Registry) RemoveAll(id ID) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.stores {
		s.Remove(id)
	}
}

// Maintain runs maintenance on every store in registration order. A failing store
// does not stop the others; all failures are returned joined.
func (r *Registry) Maintain() error {
	var errs []error
	r.Each(func(name string, s Store) {
		if err := s.Maintenance(); err != nil {
			errs = append(errs, fmt.Errorf("maintain %s: %w", name, err))
		}
	})
	return errors.Join(errs...)
}
