// Package storelib resolves the indexstore library implementation a
// facade's store path should use.
package storelib

import (
	"fmt"
	"sync"

	"github.com/dreampiggy/indexstore-db/internal/indexsystem"
)

// Library is an opaque handle to a resolved indexstore library
// implementation. It satisfies indexsystem.StoreLibrary.
type Library struct {
	name string
}

// Name identifies the library, e.g. for logging.
func (l *Library) Name() string { return l.name }

// DefaultProvider resolves a single fixed library for every store path,
// registered at construction time. This is the degenerate case of the
// C++ original's plugin-resolving provider, appropriate for a process that
// links exactly one indexstore implementation.
type DefaultProvider struct {
	mu      sync.Mutex
	library *Library
}

// NewDefaultProvider returns a provider that always resolves name,
// regardless of storePath.
func NewDefaultProvider(name string) *DefaultProvider {
	return &DefaultProvider{library: &Library{name: name}}
}

// LibraryForStorePath resolves the library for storePath. DefaultProvider
// ignores storePath and always succeeds; a provider backed by a plugin
// registry would return an error here when no plugin claims the path, which
// indexsystem.New reports as errors.ErrorTypeNoStoreLibrary.
func (p *DefaultProvider) LibraryForStorePath(storePath string) (indexsystem.StoreLibrary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.library == nil {
		return nil, fmt.Errorf("no library registered for store path %q", storePath)
	}
	return p.library, nil
}
