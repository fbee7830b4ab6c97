// Package registry provides a generic, thread-safe registry pattern
// for keyed lookup of pluggable implementations.
//
// It is specialized in this codebase for service drivers (keyed by driver
// key) and storage factories (keyed by backend type).
//
// Example usage:
//
//	registry := registry.New[service.Driver]()
//	registry.Register(driver)
//	driver, err := registry.Get("shipping.flatrate")
package registry

import (
	"fmt"
	"sync"

	"commerce-router/internal/common/errors"
)

// Keyed is implemented by anything that can be registered under a key.
type Keyed interface {
	// Key returns the registry key for this entry
	Key() string
}

// Registry provides a generic, thread-safe registry for entries of type T.
type Registry[T Keyed] struct {
	entries map[string]T
	mu      sync.RWMutex
}

// New creates a new empty registry for entries of type T.
func New[T Keyed]() *Registry[T] {
	return &Registry[T]{
		entries: make(map[string]T),
	}
}

// Register adds an entry under its key. An existing entry under the same
// key is replaced. The registration is thread-safe.
func (r *Registry[T]) Register(entry T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.Key()] = entry
}

// Get retrieves an entry by key.
// Returns a not-found error if nothing is registered under the key.
// The lookup is O(1) and thread-safe.
func (r *Registry[T]) Get(key string) (T, error) {
	r.mu.RLock()
	entry, exists := r.entries[key]
	r.mu.RUnlock()

	if !exists {
		var zero T
		return zero, errors.NotFoundError(fmt.Sprintf("registry entry %s", key))
	}

	return entry, nil
}

// Keys returns all registered keys.
// The returned slice is a copy and safe to modify.
func (r *Registry[T]) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	return keys
}

// IsRegistered checks if a key is present in the registry.
func (r *Registry[T]) IsRegistered(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.entries[key]
	return exists
}

// Count returns the number of registered entries.
func (r *Registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
