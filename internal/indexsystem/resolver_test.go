package indexsystem

import (
	"testing"

	ix "github.com/dreampiggy/indexstore-db/internal/ixtypes"
)

// fakeSymbolIndex is an in-memory SymbolIndex built directly from occurrence
// lists, for resolver unit tests.
type fakeSymbolIndex struct {
	byUSRRole map[ix.USR][]ix.SymbolOccurrence
}

func newFakeSymbolIndex() *fakeSymbolIndex {
	return &fakeSymbolIndex{byUSRRole: make(map[ix.USR][]ix.SymbolOccurrence)}
}

func (f *fakeSymbolIndex) add(occ ix.SymbolOccurrence) {
	f.byUSRRole[occ.Symbol.USR] = append(f.byUSRRole[occ.Symbol.USR], occ)
}

func (f *fakeSymbolIndex) ForeachSymbolOccurrenceByUSR(usr ix.USR, roles ix.SymbolRole, fn func(ix.SymbolOccurrence) bool) bool {
	for _, occ := range f.byUSRRole[usr] {
		if !occ.Roles.ContainsAny(roles) {
			continue
		}
		if !fn(occ) {
			return false
		}
	}
	return true
}

// ForeachRelatedSymbolOccurrenceByUSR finds occurrences of OTHER symbols
// that relate back to usr under role — i.e. it scans every occurrence
// looking for a relation pointing at usr, mirroring the store's "reverse
// relation" index.
func (f *fakeSymbolIndex) ForeachRelatedSymbolOccurrenceByUSR(usr ix.USR, role ix.SymbolRole, fn func(ix.SymbolOccurrence) bool) bool {
	for _, occs := range f.byUSRRole {
		for _, occ := range occs {
			for _, rel := range occ.Relations {
				if rel.Symbol.USR == usr && rel.Roles.ContainsAny(role) {
					if !fn(occ) {
						return false
					}
				}
			}
		}
	}
	return true
}

func sym(usr string, kind ix.SymbolKind) ix.Symbol {
	return ix.Symbol{USR: ix.USR(usr), Name: usr, Kind: kind}
}

func TestForeachSymbolCallOccurrence_DirectCall(t *testing.T) {
	idx := newFakeSymbolIndex()
	foo := sym("foo", ix.KindFunction)
	caller := ix.SymbolOccurrence{Symbol: foo, Roles: ix.RoleCall, Location: ix.Location{Line: 10}}
	idx.add(caller)

	r := NewCallOccurrenceResolver(idx)
	callee := ix.SymbolOccurrence{Symbol: foo, Roles: ix.RoleDefinition}

	var got []ix.SymbolOccurrence
	ok := r.ForeachSymbolCallOccurrence(callee, func(o ix.SymbolOccurrence) bool {
		got = append(got, o)
		return true
	})
	if !ok {
		t.Fatalf("expected true")
	}
	if len(got) != 1 || got[0].Location.Line != 10 {
		t.Fatalf("expected one occurrence at line 10, got %+v", got)
	}
}

func TestForeachSymbolCallOccurrence_NonCallable(t *testing.T) {
	idx := newFakeSymbolIndex()
	r := NewCallOccurrenceResolver(idx)
	callee := ix.SymbolOccurrence{Symbol: sym("v", ix.KindVariable), Roles: ix.RoleDefinition}

	called := false
	ok := r.ForeachSymbolCallOccurrence(callee, func(ix.SymbolOccurrence) bool { called = true; return true })
	if ok {
		t.Fatalf("expected false for non-callable symbol")
	}
	if called {
		t.Fatalf("receiver must not be invoked")
	}
}

// buildHierarchy wires A <- B (class A is the base of class B, and B.m
// overrides A.m) and returns the index plus B.m's symbol, for scenarios
// B/C/D.
func buildHierarchy(t *testing.T) (*fakeSymbolIndex, ix.Symbol) {
	t.Helper()
	idx := newFakeSymbolIndex()

	a := sym("A", ix.KindClass)
	b := sym("B", ix.KindClass)
	aMethod := sym("A.m", ix.KindInstanceMethod)
	bMethod := sym("B.m", ix.KindInstanceMethod)

	// B.m overrides A.m: an occurrence of B.m carrying RelationOverrideOf -> A.m.
	idx.add(ix.SymbolOccurrence{
		Symbol: bMethod, Roles: ix.RoleDefinition | ix.RoleRelationOverrideOf,
		Relations: []ix.RelatedSymbol{{Symbol: aMethod, Roles: ix.RoleRelationOverrideOf}},
	})
	// A is the base of B: an occurrence of A carrying RelationBaseOf -> B.
	idx.add(ix.SymbolOccurrence{
		Symbol: a, Roles: ix.RoleReference | ix.RoleRelationBaseOf,
		Relations: []ix.RelatedSymbol{{Symbol: b, Roles: ix.RoleRelationBaseOf}},
	})
	return idx, bMethod
}

func TestForeachSymbolCallOccurrence_DynamicViaClassHierarchy(t *testing.T) {
	idx, bMethod := buildHierarchy(t)
	a := sym("A", ix.KindClass)
	b := sym("B", ix.KindClass)
	aMethod := sym("A.m", ix.KindInstanceMethod)

	// Call site: a.m() with RelationReceivedBy = A.
	callSite := ix.SymbolOccurrence{
		Symbol: aMethod, Roles: ix.RoleCall | ix.RoleDynamic | ix.RoleRelationReceivedBy,
		Relations: []ix.RelatedSymbol{{Symbol: a, Roles: ix.RoleRelationReceivedBy}},
	}
	idx.add(callSite)

	r := NewCallOccurrenceResolver(idx)
	callee := ix.SymbolOccurrence{
		Symbol: bMethod, Roles: ix.RoleDefinition | ix.RoleDynamic,
		Relations: []ix.RelatedSymbol{{Symbol: b, Roles: ix.RoleRelationChildOf}},
	}

	var got []ix.SymbolOccurrence
	ok := r.ForeachSymbolCallOccurrence(callee, func(o ix.SymbolOccurrence) bool {
		got = append(got, o)
		return true
	})
	if !ok {
		t.Fatalf("expected true")
	}
	if len(got) != 1 {
		t.Fatalf("expected the dynamic call site to be reported, got %d", len(got))
	}
}

func TestForeachSymbolCallOccurrence_DynamicUnrelatedReceiver(t *testing.T) {
	idx, bMethod := buildHierarchy(t)
	b := sym("B", ix.KindClass)
	d := sym("D", ix.KindClass)
	aMethod := sym("A.m", ix.KindInstanceMethod)

	callSite := ix.SymbolOccurrence{
		Symbol: aMethod, Roles: ix.RoleCall | ix.RoleDynamic | ix.RoleRelationReceivedBy,
		Relations: []ix.RelatedSymbol{{Symbol: d, Roles: ix.RoleRelationReceivedBy}},
	}
	idx.add(callSite)

	r := NewCallOccurrenceResolver(idx)
	callee := ix.SymbolOccurrence{
		Symbol: bMethod, Roles: ix.RoleDefinition | ix.RoleDynamic,
		Relations: []ix.RelatedSymbol{{Symbol: b, Roles: ix.RoleRelationChildOf}},
	}

	var got []ix.SymbolOccurrence
	r.ForeachSymbolCallOccurrence(callee, func(o ix.SymbolOccurrence) bool {
		got = append(got, o)
		return true
	})
	if len(got) != 0 {
		t.Fatalf("expected no match for unrelated receiver, got %+v", got)
	}
}

func TestForeachSymbolCallOccurrence_AnyReceiverDynamic(t *testing.T) {
	idx, bMethod := buildHierarchy(t)
	b := sym("B", ix.KindClass)
	aMethod := sym("A.m", ix.KindInstanceMethod)

	// Dynamic call site with no RelationReceivedBy at all ("id" receiver).
	callSite := ix.SymbolOccurrence{Symbol: aMethod, Roles: ix.RoleCall | ix.RoleDynamic}
	idx.add(callSite)

	r := NewCallOccurrenceResolver(idx)
	callee := ix.SymbolOccurrence{
		Symbol: bMethod, Roles: ix.RoleDefinition | ix.RoleDynamic,
		Relations: []ix.RelatedSymbol{{Symbol: b, Roles: ix.RoleRelationChildOf}},
	}

	var got []ix.SymbolOccurrence
	r.ForeachSymbolCallOccurrence(callee, func(o ix.SymbolOccurrence) bool {
		got = append(got, o)
		return true
	})
	if len(got) != 1 {
		t.Fatalf("expected the any-receiver call site to be a candidate, got %d", len(got))
	}
}

func TestForeachSymbolCallOccurrence_ExtensionRewrite(t *testing.T) {
	idx := newFakeSymbolIndex()
	method := sym("T.m", ix.KindInstanceMethod)
	superMethod := sym("S.m", ix.KindInstanceMethod)
	ext := sym("Ext", ix.KindExtension)
	base := sym("T", ix.KindClass)

	// Ext extends T: an occurrence of T carrying RelationExtendedBy -> Ext.
	idx.add(ix.SymbolOccurrence{
		Symbol: base, Roles: ix.RoleDefinition,
		Relations: []ix.RelatedSymbol{{Symbol: ext, Roles: ix.RoleRelationExtendedBy}},
	})
	// T.m overrides S.m, so calls of S.m are dispatch candidates.
	idx.add(ix.SymbolOccurrence{
		Symbol: method, Roles: ix.RoleDefinition | ix.RoleRelationOverrideOf,
		Relations: []ix.RelatedSymbol{{Symbol: superMethod, Roles: ix.RoleRelationOverrideOf}},
	})

	// Call site: S.m called on a receiver of type T.
	callSite := ix.SymbolOccurrence{
		Symbol: superMethod, Roles: ix.RoleCall | ix.RoleDynamic | ix.RoleRelationReceivedBy,
		Relations: []ix.RelatedSymbol{{Symbol: base, Roles: ix.RoleRelationReceivedBy}},
	}
	idx.add(callSite)

	r := NewCallOccurrenceResolver(idx)
	callee := ix.SymbolOccurrence{
		Symbol: method, Roles: ix.RoleDefinition | ix.RoleDynamic,
		Relations: []ix.RelatedSymbol{{Symbol: ext, Roles: ix.RoleRelationChildOf}},
	}

	var got []ix.SymbolOccurrence
	ok := r.ForeachSymbolCallOccurrence(callee, func(o ix.SymbolOccurrence) bool {
		got = append(got, o)
		return true
	})
	if !ok || len(got) != 1 {
		t.Fatalf("expected the rewritten receiver to match, got ok=%v got=%+v", ok, got)
	}
}

func TestForeachSymbolCallOccurrence_ProtocolConformance(t *testing.T) {
	idx := newFakeSymbolIndex()
	protoMethod := sym("P.m", ix.KindInstanceMethod)
	proto := sym("P", ix.KindProtocol)
	xMethod := sym("X.m", ix.KindInstanceMethod)
	yMethod := sym("Y.m", ix.KindInstanceMethod)

	idx.add(ix.SymbolOccurrence{
		Symbol: xMethod, Roles: ix.RoleDefinition,
		Relations: []ix.RelatedSymbol{{Symbol: protoMethod, Roles: ix.RoleRelationOverrideOf}},
	})
	idx.add(ix.SymbolOccurrence{
		Symbol: yMethod, Roles: ix.RoleDefinition,
		Relations: []ix.RelatedSymbol{{Symbol: protoMethod, Roles: ix.RoleRelationOverrideOf}},
	})

	idx.add(ix.SymbolOccurrence{Symbol: protoMethod, Roles: ix.RoleCall, Location: ix.Location{Line: 1}})
	idx.add(ix.SymbolOccurrence{Symbol: xMethod, Roles: ix.RoleCall, Location: ix.Location{Line: 2}})
	idx.add(ix.SymbolOccurrence{Symbol: yMethod, Roles: ix.RoleCall, Location: ix.Location{Line: 3}})

	r := NewCallOccurrenceResolver(idx)
	callee := ix.SymbolOccurrence{
		Symbol: protoMethod, Roles: ix.RoleDefinition | ix.RoleDynamic,
		Relations: []ix.RelatedSymbol{{Symbol: proto, Roles: ix.RoleRelationChildOf}},
	}

	var lines []int
	ok := r.ForeachSymbolCallOccurrence(callee, func(o ix.SymbolOccurrence) bool {
		lines = append(lines, o.Location.Line)
		return true
	})
	if !ok {
		t.Fatalf("expected true")
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 call occurrences (proto + X + Y), got %v", lines)
	}
}

func TestForeachSymbolCallOccurrence_ReceiverAbort(t *testing.T) {
	idx := newFakeSymbolIndex()
	foo := sym("foo", ix.KindFunction)
	idx.add(ix.SymbolOccurrence{Symbol: foo, Roles: ix.RoleCall, Location: ix.Location{Line: 1}})
	idx.add(ix.SymbolOccurrence{Symbol: foo, Roles: ix.RoleCall, Location: ix.Location{Line: 2}})

	r := NewCallOccurrenceResolver(idx)
	callee := ix.SymbolOccurrence{Symbol: foo, Roles: ix.RoleDefinition}

	count := 0
	ok := r.ForeachSymbolCallOccurrence(callee, func(ix.SymbolOccurrence) bool {
		count++
		return false
	})
	if ok {
		t.Fatalf("expected false after receiver abort")
	}
	if count != 1 {
		t.Fatalf("expected exactly one receiver invocation before abort, got %d", count)
	}
}
