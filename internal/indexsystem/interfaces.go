package indexsystem

import (
	"time"

	ix "github.com/dreampiggy/indexstore-db/internal/ixtypes"
)

// SymbolIndex answers symbol- and occurrence-shaped queries. The facade
// never mutates through this interface; ingestion writes to it via the
// datastore, out of band.
type SymbolIndex interface {
	ForeachSymbolOccurrenceByUSR(usr ix.USR, roles ix.SymbolRole, fn func(ix.SymbolOccurrence) bool) bool
	ForeachRelatedSymbolOccurrenceByUSR(usr ix.USR, roles ix.SymbolRole, fn func(ix.SymbolOccurrence) bool) bool
	ForeachCanonicalSymbolOccurrenceByUSR(usr ix.USR, fn func(ix.SymbolOccurrence) bool) bool
	ForeachCanonicalSymbolOccurrenceByName(name string, fn func(ix.SymbolOccurrence) bool) bool
	ForeachCanonicalSymbolOccurrenceContainingPattern(pattern string, anchorStart, anchorEnd, subsequence, ignoreCase bool, fn func(ix.SymbolOccurrence) bool) bool
	ForeachCanonicalSymbolOccurrenceByKind(kind ix.SymbolKind, workspaceOnly bool, fn func(ix.SymbolOccurrence) bool) bool
	ForeachSymbolName(fn func(string) bool) bool
	CountOfCanonicalSymbolsWithKind(kind ix.SymbolKind, workspaceOnly bool) int
	ForeachUnitTestSymbolReferencedByOutputPaths(paths []ix.CanonicalPath, fn func(ix.SymbolOccurrence) bool) bool
}

// FilePathIndex answers path- and unit-shaped queries and mints canonical
// paths.
type FilePathIndex interface {
	CanonicalPath(path string) ix.CanonicalPath
	IsKnownFile(path ix.CanonicalPath) bool
	ForeachMainUnitContainingFile(path ix.CanonicalPath, fn func(ix.StoreUnitInfo) bool) bool
	ForeachFileOfUnit(unitName string, followDependencies bool, fn func(ix.CanonicalPath) bool) bool
	ForeachFilenameContainingPattern(pattern string, anchorStart, anchorEnd, subsequence, ignoreCase bool, fn func(ix.CanonicalPath) bool) bool
	ForeachFileIncludingFile(target ix.CanonicalPath, fn func(ix.CanonicalPath, int) bool) bool
	ForeachFileIncludedByFile(source ix.CanonicalPath, fn func(ix.CanonicalPath, int) bool) bool
	ForeachIncludeOfUnit(unitName string, fn func(ix.CanonicalPath, ix.CanonicalPath, int) bool) bool
}

// VisibilityChecker gates which output units and main files the store
// currently considers live.
type VisibilityChecker interface {
	RegisterMainFiles(paths []string, productName string)
	UnregisterMainFiles(paths []string, productName string)
	AddUnitOutFilePaths(paths []string)
	RemoveUnitOutFilePaths(paths []string)
}

// IndexDatastore runs the ingestion pipeline: discovering unit records,
// feeding SymbolIndex/FilePathIndex, and notifying the dispatcher.
type IndexDatastore interface {
	IsUnitOutOfDateByDirtyFiles(unitOutputPath string, dirtyFiles []string) bool
	IsUnitOutOfDateByModTime(unitOutputPath string, modTime time.Time) bool
	CheckUnitContainingFileIsOutOfDate(file string)
	AddUnitOutFilePaths(paths []string, waitForProcessing bool)
	RemoveUnitOutFilePaths(paths []string, waitForProcessing bool)
	PurgeStaleData()
	PollForUnitChangesAndWait()
	Close() error
}

// StoreLibrary is an opaque handle to a resolved indexstore library
// implementation, keyed by store path.
type StoreLibrary interface {
	Name() string
}

// StoreLibraryProvider resolves the indexstore library implementation for a
// given store path. The facade cannot proceed past construction step 2
// without one.
type StoreLibraryProvider interface {
	LibraryForStorePath(storePath string) (StoreLibrary, error)
}

// Database is the persisted-state collaborator opened at construction step
// 1. The facade treats it opaquely, forwarding only Close.
type Database interface {
	Close() error
}
