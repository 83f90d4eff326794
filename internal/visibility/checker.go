// Package visibility tracks which output units and main files the store
// currently considers live, gating what ingestion and queries should treat
// as part of the workspace.
package visibility

import (
	"sync"

	"github.com/dreampiggy/indexstore-db/internal/canonpath"
	"github.com/dreampiggy/indexstore-db/internal/database"
)

// Checker implements indexsystem.VisibilityChecker. When
// useExplicitOutputUnits is false, IsVisible reports every out-file path as
// visible, registered or not; when true, only paths registered through
// AddUnitOutFilePaths are visible. Main-file registrations do not affect
// IsVisible.
type Checker struct {
	db                     *database.DB
	paths                  *canonpath.Cache
	useExplicitOutputUnits bool

	mu        sync.RWMutex
	mainFiles map[string]map[string]bool // canonical path -> product names
	outFiles  map[string]bool            // canonical path -> registered
}

// New builds a Checker over db, sharing paths with the rest of the facade's
// collaborators.
func New(db *database.DB, paths *canonpath.Cache, useExplicitOutputUnits bool) *Checker {
	return &Checker{
		db:                     db,
		paths:                  paths,
		useExplicitOutputUnits: useExplicitOutputUnits,
		mainFiles:              make(map[string]map[string]bool),
		outFiles:               make(map[string]bool),
	}
}

// RegisterMainFiles marks paths as main files for productName.
func (c *Checker) RegisterMainFiles(paths []string, productName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range paths {
		cp := string(c.paths.Canonicalize(p))
		if c.mainFiles[cp] == nil {
			c.mainFiles[cp] = make(map[string]bool)
		}
		c.mainFiles[cp][productName] = true
	}
}

// UnregisterMainFiles removes productName's claim on paths; a path with no
// remaining product claims is dropped entirely.
func (c *Checker) UnregisterMainFiles(paths []string, productName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range paths {
		cp := string(c.paths.Canonicalize(p))
		products := c.mainFiles[cp]
		if products == nil {
			continue
		}
		delete(products, productName)
		if len(products) == 0 {
			delete(c.mainFiles, cp)
		}
	}
}

// AddUnitOutFilePaths registers paths as live unit output paths.
func (c *Checker) AddUnitOutFilePaths(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range paths {
		c.outFiles[string(c.paths.Canonicalize(p))] = true
	}
}

// RemoveUnitOutFilePaths un-registers paths as live unit output paths.
func (c *Checker) RemoveUnitOutFilePaths(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range paths {
		delete(c.outFiles, string(c.paths.Canonicalize(p)))
	}
}

// IsVisible reports whether a unit whose output path canonicalises to
// outPath should currently be treated as part of the workspace.
func (c *Checker) IsVisible(outPath string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.useExplicitOutputUnits {
		return true
	}
	return c.outFiles[outPath]
}

// ProductsForMainFile returns the product names a canonical main-file path
// is currently registered under.
func (c *Checker) ProductsForMainFile(canonicalPath string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	products := c.mainFiles[canonicalPath]
	if products == nil {
		return nil
	}
	names := make([]string, 0, len(products))
	for name := range products {
		names = append(names, name)
	}
	return names
}
