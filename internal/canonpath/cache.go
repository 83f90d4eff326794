// Package canonpath mints and caches CanonicalPath values, the single
// identity every file-keyed query and mutation in the store is keyed by.
package canonpath

import (
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	ix "github.com/dreampiggy/indexstore-db/internal/ixtypes"
)

// Cache canonicalises raw file-system paths into ix.CanonicalPath values
// and caches the mapping so repeated lookups for the same path are O(1)
// after the first. It is the only place allowed to construct a
// CanonicalPath from a string.
type Cache struct {
	mu     sync.RWMutex
	byPath map[string]ix.CanonicalPath
	byHash map[uint64]ix.CanonicalPath
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		byPath: make(map[string]ix.CanonicalPath),
		byHash: make(map[uint64]ix.CanonicalPath),
	}
}

// Canonicalize resolves path to an absolute, cleaned form and returns its
// cached CanonicalPath, minting one if this is the first time path has been
// seen.
func (c *Cache) Canonicalize(path string) ix.CanonicalPath {
	c.mu.RLock()
	if cp, ok := c.byPath[path]; ok {
		c.mu.RUnlock()
		return cp
	}
	c.mu.RUnlock()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	cp := ix.CanonicalPath(abs)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byPath[path] = cp
	c.byHash[xxhash.Sum64String(string(cp))] = cp
	return cp
}

// Hash returns the content hash of a canonical path, for callers that key
// secondary structures (e.g. a dirty-file set) by hash rather than string.
func (c *Cache) Hash(cp ix.CanonicalPath) uint64 {
	return xxhash.Sum64String(string(cp))
}

// Lookup returns the canonical path already cached for path, if any,
// without minting a new one.
func (c *Cache) Lookup(path string) (ix.CanonicalPath, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp, ok := c.byPath[path]
	return cp, ok
}
