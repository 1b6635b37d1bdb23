// Package registry maps URL schemes to the [backend.Filesystem] serving them.
package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/elazar/flystream/internal/backend"
)

// Registry is a concurrency-safe scheme to [backend.Filesystem] table.
type Registry struct {
	mu          sync.RWMutex
	filesystems map[string]backend.Filesystem
}

// NewRegistry returns a pointer to a new, empty [Registry].
func NewRegistry() *Registry {
	return &Registry{
		filesystems: make(map[string]backend.Filesystem),
	}
}

// Register binds scheme to fsys. A scheme can only be bound once.
func (r *Registry) Register(scheme string, fsys backend.Filesystem) error {
	if err := validateScheme(scheme); err != nil {
		return err
	}
	if fsys == nil {
		return fmt.Errorf("(registry) %w: %s", ErrNilFilesystem, scheme)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.filesystems[scheme]; exists {
		return fmt.Errorf("(registry) %w: %s", ErrSchemeRegistered, scheme)
	}

	r.filesystems[scheme] = fsys

	return nil
}

// Unregister removes the binding of scheme.
func (r *Registry) Unregister(scheme string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.filesystems[scheme]; !exists {
		return fmt.Errorf("(registry) %w: %s", ErrSchemeNotRegistered, scheme)
	}

	delete(r.filesystems, scheme)

	return nil
}

// Resolve returns the [backend.Filesystem] bound to scheme.
func (r *Registry) Resolve(scheme string) (backend.Filesystem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fsys, exists := r.filesystems[scheme]
	if !exists {
		return nil, fmt.Errorf("(registry) %w: %s", ErrSchemeNotRegistered, scheme)
	}

	return fsys, nil
}

// Schemes returns the registered schemes in sorted order.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemes := make([]string, 0, len(r.filesystems))
	for scheme := range r.filesystems {
		schemes = append(schemes, scheme)
	}
	slices.Sort(schemes)

	return schemes
}

// validateScheme checks scheme against the URI scheme grammar: a letter
// followed by letters, digits, "+", "-" or ".".
func validateScheme(scheme string) error {
	if scheme == "" {
		return fmt.Errorf("(registry) %w: empty scheme", ErrInvalidScheme)
	}

	for i, c := range scheme {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return fmt.Errorf("(registry) %w: %q", ErrInvalidScheme, scheme)
		}
	}

	return nil
}
