package indexsystem

import (
	ix "github.com/dreampiggy/indexstore-db/internal/ixtypes"
)

// CallOccurrenceResolver implements ForeachSymbolCallOccurrence against a
// SymbolIndex, accounting for direct calls plus dynamic dispatch through
// protocol conformance and class/override hierarchies.
type CallOccurrenceResolver struct {
	Index callResolverIndex
}

// callResolverIndex is the subset of SymbolIndex the resolver composes,
// declared separately so the resolver can be unit-tested against a minimal
// fake rather than the full collaborator interface.
type callResolverIndex interface {
	ForeachSymbolOccurrenceByUSR(usr ix.USR, roles ix.SymbolRole, fn func(ix.SymbolOccurrence) bool) bool
	ForeachRelatedSymbolOccurrenceByUSR(usr ix.USR, roles ix.SymbolRole, fn func(ix.SymbolOccurrence) bool) bool
}

// NewCallOccurrenceResolver builds a resolver over index. Any SymbolIndex
// satisfies callResolverIndex.
func NewCallOccurrenceResolver(index callResolverIndex) *CallOccurrenceResolver {
	return &CallOccurrenceResolver{Index: index}
}

// containsUSR reports whether syms holds a symbol with usr.
func containsUSR(syms []ix.Symbol, usr ix.USR) bool {
	for _, s := range syms {
		if s.USR == usr {
			return true
		}
	}
	return false
}

// baseMethodsOrClasses walks the base/override hierarchy of sym and returns
// every distinct symbol reachable, keyed by USR. It is the iterative,
// work-list form of the C++ original's getBaseMethodsOrClassesImpl
// recursion: a seen-set keyed by USR stands in for the call stack, and new
// entries are pushed onto an explicit stack rather than recursed into
// immediately.
func (r *CallOccurrenceResolver) baseMethodsOrClasses(sym ix.Symbol) []ix.Symbol {
	var result []ix.Symbol
	seen := make(map[ix.USR]bool)
	stack := []ix.Symbol{sym}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var related []ix.Symbol
		if cur.Kind == ix.KindInstanceMethod {
			r.Index.ForeachSymbolOccurrenceByUSR(cur.USR, ix.RoleRelationOverrideOf, func(occ ix.SymbolOccurrence) bool {
				occ.ForeachRelatedSymbol(ix.RoleRelationOverrideOf, func(rel ix.Symbol) bool {
					related = append(related, rel)
					return true
				})
				return true
			})
		} else {
			r.Index.ForeachRelatedSymbolOccurrenceByUSR(cur.USR, ix.RoleRelationBaseOf, func(occ ix.SymbolOccurrence) bool {
				related = append(related, occ.Symbol)
				return true
			})
		}

		for _, rel := range related {
			if seen[rel.USR] {
				continue
			}
			seen[rel.USR] = true
			result = append(result, rel)
			stack = append(stack, rel)
		}
	}
	return result
}

// allRelatedOccurrences walks the transitive closure of related occurrences
// under role starting from sym, iteratively, deduped by USR. Grounds the
// protocol branch's override-of closure (the original's
// getAllRelatedOccursImpl).
func (r *CallOccurrenceResolver) allRelatedOccurrences(sym ix.Symbol, role ix.SymbolRole) []ix.SymbolOccurrence {
	var result []ix.SymbolOccurrence
	seen := make(map[ix.USR]bool)
	stack := []ix.Symbol{sym}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var found []ix.SymbolOccurrence
		r.Index.ForeachRelatedSymbolOccurrenceByUSR(cur.USR, role, func(occ ix.SymbolOccurrence) bool {
			found = append(found, occ)
			return true
		})

		for _, occ := range found {
			if seen[occ.Symbol.USR] {
				continue
			}
			seen[occ.Symbol.USR] = true
			result = append(result, occ)
			stack = append(stack, occ.Symbol)
		}
	}
	return result
}

// ForeachSymbolCallOccurrence enumerates the occurrences where callee is
// invoked, including calls reached only through dynamic dispatch. Returning
// false from receiver aborts enumeration; the overall result is false
// whenever receiver aborted or callee is not a callable kind.
//
// Two behaviors below are preserved exactly as observed rather than
// corrected: the extension-rewrite loop below stops at the first
// RelationExtendedBy match per class symbol, and the protocol/class branch
// choice looks only at clsSyms[0]'s kind, not every entry.
func (r *CallOccurrenceResolver) ForeachSymbolCallOccurrence(callee ix.SymbolOccurrence, receiver func(ix.SymbolOccurrence) bool) bool {
	sym := callee.Symbol
	if !sym.Callable() {
		return false
	}

	if !r.Index.ForeachSymbolOccurrenceByUSR(sym.USR, ix.RoleCall, receiver) {
		return false
	}

	if !callee.Roles.ContainsAny(ix.RoleDynamic) {
		return true
	}

	relationToUse := ix.RoleRelationChildOf
	if callee.Roles.ContainsAny(ix.RoleCall) {
		relationToUse = ix.RoleRelationReceivedBy
	}

	var clsSyms []ix.Symbol
	callee.ForeachRelatedSymbol(relationToUse, func(rel ix.Symbol) bool {
		clsSyms = append(clsSyms, rel)
		return true
	})

	// Replace extensions with the type they extend. Only the first
	// RelationExtendedBy occurrence found is applied, matching the source's
	// foreach loop that returns false (stop) on its first iteration.
	for i, clsSym := range clsSyms {
		if clsSym.Kind != ix.KindExtension {
			continue
		}
		r.Index.ForeachRelatedSymbolOccurrenceByUSR(clsSym.USR, ix.RoleRelationExtendedBy, func(occ ix.SymbolOccurrence) bool {
			clsSyms[i] = occ.Symbol
			return false
		})
	}

	if len(clsSyms) == 0 {
		return true
	}

	// Only clsSyms[0]'s kind decides the branch; remaining entries are
	// never inspected for kind.
	if clsSyms[0].Kind == ix.KindProtocol {
		overrideOccs := r.allRelatedOccurrences(sym, ix.RoleRelationOverrideOf)
		for _, occ := range overrideOccs {
			if !r.Index.ForeachSymbolOccurrenceByUSR(occ.Symbol.USR, ix.RoleCall, receiver) {
				return false
			}
		}
		return true
	}

	var classSyms []ix.Symbol
	for _, clsSym := range clsSyms {
		classSyms = append(classSyms, r.baseMethodsOrClasses(clsSym)...)
		classSyms = append(classSyms, clsSym)
	}

	baseMethodSyms := r.baseMethodsOrClasses(sym)

	for _, methodSym := range baseMethodSyms {
		cont := r.Index.ForeachSymbolOccurrenceByUSR(methodSym.USR, ix.RoleCall, func(occ ix.SymbolOccurrence) bool {
			if !occ.Roles.ContainsAny(ix.RoleDynamic) {
				return true
			}

			possiblyDispatched := false
			if !occ.Roles.Contains(ix.RoleRelationReceivedBy) {
				// Receiver role absent entirely: the receiver is an
				// unknown/any type ("id"), so the method's class is a
				// candidate regardless.
				possiblyDispatched = true
			} else {
				occ.ForeachRelatedSymbol(ix.RoleRelationReceivedBy, func(rel ix.Symbol) bool {
					if containsUSR(classSyms, rel.USR) {
						possiblyDispatched = true
					}
					return true
				})
			}
			if possiblyDispatched {
				return receiver(occ)
			}
			return true
		})
		if !cont {
			return false
		}
	}

	return true
}
