package indexsystem

import (
	ix "github.com/dreampiggy/indexstore-db/internal/ixtypes"
)

// ForeachSymbolOccurrenceByUSR forwards to SymbolIndex.
func (f *Facade) ForeachSymbolOccurrenceByUSR(usr ix.USR, roles ix.SymbolRole, fn func(ix.SymbolOccurrence) bool) bool {
	return f.symIndex.ForeachSymbolOccurrenceByUSR(usr, roles, fn)
}

// ForeachRelatedSymbolOccurrenceByUSR forwards to SymbolIndex.
func (f *Facade) ForeachRelatedSymbolOccurrenceByUSR(usr ix.USR, roles ix.SymbolRole, fn func(ix.SymbolOccurrence) bool) bool {
	return f.symIndex.ForeachRelatedSymbolOccurrenceByUSR(usr, roles, fn)
}

// ForeachCanonicalSymbolOccurrenceByUSR forwards to SymbolIndex.
func (f *Facade) ForeachCanonicalSymbolOccurrenceByUSR(usr ix.USR, fn func(ix.SymbolOccurrence) bool) bool {
	return f.symIndex.ForeachCanonicalSymbolOccurrenceByUSR(usr, fn)
}

// ForeachCanonicalSymbolOccurrenceByName forwards to SymbolIndex.
func (f *Facade) ForeachCanonicalSymbolOccurrenceByName(name string, fn func(ix.SymbolOccurrence) bool) bool {
	return f.symIndex.ForeachCanonicalSymbolOccurrenceByName(name, fn)
}

// ForeachCanonicalSymbolOccurrenceContainingPattern forwards to
// SymbolIndex.
func (f *Facade) ForeachCanonicalSymbolOccurrenceContainingPattern(pattern string, anchorStart, anchorEnd, subsequence, ignoreCase bool, fn func(ix.SymbolOccurrence) bool) bool {
	return f.symIndex.ForeachCanonicalSymbolOccurrenceContainingPattern(pattern, anchorStart, anchorEnd, subsequence, ignoreCase, fn)
}

// ForeachCanonicalSymbolOccurrenceByKind forwards to SymbolIndex.
func (f *Facade) ForeachCanonicalSymbolOccurrenceByKind(kind ix.SymbolKind, workspaceOnly bool, fn func(ix.SymbolOccurrence) bool) bool {
	return f.symIndex.ForeachCanonicalSymbolOccurrenceByKind(kind, workspaceOnly, fn)
}

// ForeachSymbolName forwards to SymbolIndex.
func (f *Facade) ForeachSymbolName(fn func(string) bool) bool {
	return f.symIndex.ForeachSymbolName(fn)
}

// CountOfCanonicalSymbolsWithKind forwards to SymbolIndex.
func (f *Facade) CountOfCanonicalSymbolsWithKind(kind ix.SymbolKind, workspaceOnly bool) int {
	return f.symIndex.CountOfCanonicalSymbolsWithKind(kind, workspaceOnly)
}

// ForeachUnitTestSymbolReferencedByOutputPaths canonicalises each path
// before forwarding to SymbolIndex.
func (f *Facade) ForeachUnitTestSymbolReferencedByOutputPaths(paths []string, fn func(ix.SymbolOccurrence) bool) bool {
	canon := make([]ix.CanonicalPath, len(paths))
	for i, p := range paths {
		canon[i] = f.pathIndex.CanonicalPath(p)
	}
	return f.symIndex.ForeachUnitTestSymbolReferencedByOutputPaths(canon, fn)
}

// ForeachSymbolCallOccurrence is the one piece of real logic the facade
// owns directly rather than forwarding: dynamic-dispatch-aware call
// occurrence resolution.
func (f *Facade) ForeachSymbolCallOccurrence(callee ix.SymbolOccurrence, receiver func(ix.SymbolOccurrence) bool) bool {
	return f.resolver.ForeachSymbolCallOccurrence(callee, receiver)
}

// GetBaseMethodsOrClasses exposes the resolver's hierarchy walk directly,
// matching the C++ original's public getBaseMethodsOrClasses query.
func (f *Facade) GetBaseMethodsOrClasses(sym ix.Symbol) []ix.Symbol {
	return f.resolver.baseMethodsOrClasses(sym)
}

// IsKnownFile canonicalises path before forwarding to FilePathIndex.
func (f *Facade) IsKnownFile(path string) bool {
	return f.pathIndex.IsKnownFile(f.pathIndex.CanonicalPath(path))
}

// ForeachMainUnitContainingFile canonicalises path before forwarding to
// FilePathIndex.
func (f *Facade) ForeachMainUnitContainingFile(path string, fn func(ix.StoreUnitInfo) bool) bool {
	return f.pathIndex.ForeachMainUnitContainingFile(f.pathIndex.CanonicalPath(path), fn)
}

// ForeachFileOfUnit forwards to FilePathIndex; unitName is not a file path
// so it is not canonicalised.
func (f *Facade) ForeachFileOfUnit(unitName string, followDependencies bool, fn func(ix.CanonicalPath) bool) bool {
	return f.pathIndex.ForeachFileOfUnit(unitName, followDependencies, fn)
}

// ForeachFilenameContainingPattern forwards to FilePathIndex.
func (f *Facade) ForeachFilenameContainingPattern(pattern string, anchorStart, anchorEnd, subsequence, ignoreCase bool, fn func(ix.CanonicalPath) bool) bool {
	return f.pathIndex.ForeachFilenameContainingPattern(pattern, anchorStart, anchorEnd, subsequence, ignoreCase, fn)
}

// ForeachFileIncludingFile canonicalises target before forwarding to
// FilePathIndex.
func (f *Facade) ForeachFileIncludingFile(target string, fn func(ix.CanonicalPath, int) bool) bool {
	return f.pathIndex.ForeachFileIncludingFile(f.pathIndex.CanonicalPath(target), fn)
}

// ForeachFileIncludedByFile canonicalises source before forwarding to
// FilePathIndex.
func (f *Facade) ForeachFileIncludedByFile(source string, fn func(ix.CanonicalPath, int) bool) bool {
	return f.pathIndex.ForeachFileIncludedByFile(f.pathIndex.CanonicalPath(source), fn)
}

// ForeachIncludeOfUnit forwards to FilePathIndex; unitName is not a file
// path so it is not canonicalised.
func (f *Facade) ForeachIncludeOfUnit(unitName string, fn func(ix.CanonicalPath, ix.CanonicalPath, int) bool) bool {
	return f.pathIndex.ForeachIncludeOfUnit(unitName, fn)
}
