// Package ixtypes holds the data model shared by the index core and its
// storage collaborators: symbols, occurrences, roles, units, and paths.
package ixtypes

import (
	"fmt"
	"time"
)

// USR is a Unified Symbol Reference: a stable identity string for a symbol
// across translation units.
type USR string

// SymbolKind enumerates the program-entity kinds the call-occurrence
// resolver and the kind-filtered queries need to distinguish.
type SymbolKind uint8

const (
	KindUnknown SymbolKind = iota
	KindFunction
	KindInstanceMethod
	KindStaticMethod
	KindConstructor
	KindDestructor
	KindClass
	KindProtocol
	KindExtension
	KindModule
	KindInstanceProperty
	KindStaticProperty
	KindParameter
	KindVariable
	KindEnumConstant
	KindTypeAlias
)

func (k SymbolKind) String() string {
	switch k {
	case KindFunction:
		return "Function"
	case KindInstanceMethod:
		return "InstanceMethod"
	case KindStaticMethod:
		return "StaticMethod"
	case KindConstructor:
		return "Constructor"
	case KindDestructor:
		return "Destructor"
	case KindClass:
		return "Class"
	case KindProtocol:
		return "Protocol"
	case KindExtension:
		return "Extension"
	case KindModule:
		return "Module"
	case KindInstanceProperty:
		return "InstanceProperty"
	case KindStaticProperty:
		return "StaticProperty"
	case KindParameter:
		return "Parameter"
	case KindVariable:
		return "Variable"
	case KindEnumConstant:
		return "EnumConstant"
	case KindTypeAlias:
		return "TypeAlias"
	default:
		return "Unknown"
	}
}

// callableKinds are the kinds foreachSymbolCallOccurrence will accept.
var callableKinds = map[SymbolKind]bool{
	KindFunction:       true,
	KindInstanceMethod: true,
	KindStaticMethod:   true,
	KindConstructor:    true,
	KindDestructor:     true,
}

// SymbolRole is a bitset over the roles an occurrence can carry: what the
// occurrence is (Definition, Reference, Call, Dynamic, ...) or a relation
// it participates in (RelationOverrideOf, RelationBaseOf, ...).
type SymbolRole uint32

const (
	RoleDefinition SymbolRole = 1 << iota
	RoleReference
	RoleCall
	RoleDynamic
	RoleImplicit
	RoleTest
	RoleRelationOverrideOf
	RoleRelationBaseOf
	RoleRelationReceivedBy
	RoleRelationChildOf
	RoleRelationExtendedBy
)

// Contains reports whether every bit in other is set in r.
func (r SymbolRole) Contains(other SymbolRole) bool { return r&other == other }

// ContainsAny reports whether r shares at least one bit with other.
func (r SymbolRole) ContainsAny(other SymbolRole) bool { return r&other != 0 }

// Symbol is an identified program entity, keyed by USR.
type Symbol struct {
	USR  USR
	Name string
	Kind SymbolKind
}

// Callable reports whether the symbol can appear as a call occurrence's
// callee — the gate foreachSymbolCallOccurrence checks first.
func (s Symbol) Callable() bool { return callableKinds[s.Kind] }

// RelatedSymbol pairs a related symbol with the role(s) under which it is
// related to some occurrence.
type RelatedSymbol struct {
	Symbol Symbol
	Roles  SymbolRole
}

// Location pins an occurrence to a file and line.
type Location struct {
	Path CanonicalPath
	Line int
}

// SymbolOccurrence is a concrete appearance of a symbol in source. Its role
// set is fixed at construction and never mutated afterward.
type SymbolOccurrence struct {
	Symbol    Symbol
	Roles     SymbolRole
	Location  Location
	Relations []RelatedSymbol
}

// ForeachRelatedSymbol enumerates the occurrence's related symbols under the
// given role mask. Returning false from fn aborts enumeration.
func (o SymbolOccurrence) ForeachRelatedSymbol(role SymbolRole, fn func(Symbol) bool) bool {
	for _, rel := range o.Relations {
		if rel.Roles.ContainsAny(role) {
			if !fn(rel.Symbol) {
				return false
			}
		}
	}
	return true
}

// CanonicalPath is a file-system path normalised through the process-wide
// canonicalisation cache. It is the identity for all file-keyed queries.
// Only the cache is allowed to mint one — callers get one back from
// FilePathIndex.CanonicalPath, never by converting a string directly.
type CanonicalPath string

// UnitOutputPath identifies one compilation output; ingestion tracks a unit
// record on disk by this key.
type UnitOutputPath string

// StoreUnitInfo is the ingestion-status descriptor for a unit.
type StoreUnitInfo struct {
	Name              string
	OutputPath        UnitOutputPath
	DependencyModTime time.Time
	IsMain            bool
}

// OutOfDateTriggerHint is a closed sum type explaining why a unit was
// flagged out-of-date. It is sealed so the only implementations are the two
// below — switch on concrete type rather than adding virtual dispatch.
type OutOfDateTriggerHint interface {
	OriginalFileTrigger() string
	Description() string
	sealed()
}

// DependentFileTriggerHint means a unit is out of date because one of its
// direct source/dependency files changed.
type DependentFileTriggerHint struct {
	FilePath string
}

func (h DependentFileTriggerHint) OriginalFileTrigger() string { return h.FilePath }
func (h DependentFileTriggerHint) Description() string         { return h.FilePath }
func (DependentFileTriggerHint) sealed()                        {}

// DependentUnitTriggerHint means a unit is out of date transitively,
// because a unit it depends on is itself out of date for Inner's reason.
type DependentUnitTriggerHint struct {
	UnitName string
	Inner    OutOfDateTriggerHint
}

func (h DependentUnitTriggerHint) OriginalFileTrigger() string {
	return h.Inner.OriginalFileTrigger()
}

func (h DependentUnitTriggerHint) Description() string {
	return fmt.Sprintf("unit(%s) -> %s", h.UnitName, h.Inner.Description())
}

func (DependentUnitTriggerHint) sealed() {}

// ProductRegistration maps a product name to the set of main-file paths that
// define its visibility roots.
type ProductRegistration map[string][]string
