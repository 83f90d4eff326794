// Package symbolindex answers symbol- and occurrence-shaped queries against
// the persisted database, grounded on the query surface of
// internal/core/reference_tracker.go's ReferenceTracker in the teacher repo.
package symbolindex

import (
	"strings"

	"github.com/dreampiggy/indexstore-db/internal/database"
	ix "github.com/dreampiggy/indexstore-db/internal/ixtypes"
	"github.com/dreampiggy/indexstore-db/internal/matchpattern"
)

// Index implements indexsystem.SymbolIndex over a database.DB.
type Index struct {
	db *database.DB
}

// New builds an Index over db.
func New(db *database.DB) *Index {
	return &Index{db: db}
}

func (idx *Index) scanOccurrences(query string, args []any, fn func(ix.SymbolOccurrence) bool) bool {
	rows, err := idx.db.Conn().Query(query, args...)
	if err != nil {
		return true
	}
	defer rows.Close()

	var occIDs []int64
	occByID := make(map[int64]*ix.SymbolOccurrence)
	var order []int64

	for rows.Next() {
		var id int64
		var usr, name string
		var kind, roles int
		var path string
		var line int
		if err := rows.Scan(&id, &usr, &name, &kind, &roles, &path, &line); err != nil {
			continue
		}
		occByID[id] = &ix.SymbolOccurrence{
			Symbol:   ix.Symbol{USR: ix.USR(usr), Name: name, Kind: ix.SymbolKind(kind)},
			Roles:    ix.SymbolRole(roles),
			Location: ix.Location{Path: ix.CanonicalPath(path), Line: line},
		}
		occIDs = append(occIDs, id)
		order = append(order, id)
	}

	if len(occIDs) > 0 {
		idx.attachRelations(occIDs, occByID)
	}

	for _, id := range order {
		if !fn(*occByID[id]) {
			return false
		}
	}
	return true
}

func (idx *Index) attachRelations(occIDs []int64, occByID map[int64]*ix.SymbolOccurrence) {
	placeholders := strings.Repeat("?,", len(occIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(occIDs))
	for i, id := range occIDs {
		args[i] = id
	}
	query := `SELECT r.occurrence_id, r.related_usr, r.roles, s.name, s.kind
	          FROM relations r JOIN symbols s ON s.usr = r.related_usr
	          WHERE r.occurrence_id IN (` + placeholders + `)`
	rows, err := idx.db.Conn().Query(query, args...)
	if err != nil {
		return
	}
	defer rows.Close()
	for rows.Next() {
		var occID int64
		var relUSR, relName string
		var roles, kind int
		if err := rows.Scan(&occID, &relUSR, &roles, &relName, &kind); err != nil {
			continue
		}
		occ := occByID[occID]
		if occ == nil {
			continue
		}
		occ.Relations = append(occ.Relations, ix.RelatedSymbol{
			Symbol: ix.Symbol{USR: ix.USR(relUSR), Name: relName, Kind: ix.SymbolKind(kind)},
			Roles:  ix.SymbolRole(roles),
		})
	}
}

// ForeachSymbolOccurrenceByUSR enumerates occurrences of usr carrying any
// bit in roles.
func (idx *Index) ForeachSymbolOccurrenceByUSR(usr ix.USR, roles ix.SymbolRole, fn func(ix.SymbolOccurrence) bool) bool {
	query := `SELECT o.id, o.usr, s.name, s.kind, o.roles, f.canonical_path, o.line
	          FROM occurrences o JOIN symbols s ON s.usr = o.usr
	          JOIN files f ON f.id = o.file_id
	          WHERE o.usr = ? AND (o.roles & ?) != 0`
	return idx.scanOccurrences(query, []any{string(usr), int(roles)}, fn)
}

// ForeachRelatedSymbolOccurrenceByUSR enumerates occurrences of OTHER
// symbols that relate back to usr under role — the reverse-relation index
// the resolver's hierarchy walks depend on.
func (idx *Index) ForeachRelatedSymbolOccurrenceByUSR(usr ix.USR, role ix.SymbolRole, fn func(ix.SymbolOccurrence) bool) bool {
	query := `SELECT o.id, o.usr, s.name, s.kind, o.roles, f.canonical_path, o.line
	          FROM occurrences o JOIN symbols s ON s.usr = o.usr
	          JOIN files f ON f.id = o.file_id
	          WHERE o.id IN (
	            SELECT r.occurrence_id FROM relations r
	            WHERE r.related_usr = ? AND (r.roles & ?) != 0
	          )`
	return idx.scanOccurrences(query, []any{string(usr), int(role)}, fn)
}

// ForeachCanonicalSymbolOccurrenceByUSR enumerates usr's definition
// occurrence(s).
func (idx *Index) ForeachCanonicalSymbolOccurrenceByUSR(usr ix.USR, fn func(ix.SymbolOccurrence) bool) bool {
	return idx.ForeachSymbolOccurrenceByUSR(usr, ix.RoleDefinition, fn)
}

// ForeachCanonicalSymbolOccurrenceByName enumerates definition occurrences
// whose symbol name matches exactly.
func (idx *Index) ForeachCanonicalSymbolOccurrenceByName(name string, fn func(ix.SymbolOccurrence) bool) bool {
	query := `SELECT o.id, o.usr, s.name, s.kind, o.roles, f.canonical_path, o.line
	          FROM occurrences o JOIN symbols s ON s.usr = o.usr
	          JOIN files f ON f.id = o.file_id
	          WHERE s.name = ? AND (o.roles & ?) != 0`
	return idx.scanOccurrences(query, []any{name, int(ix.RoleDefinition)}, fn)
}

// ForeachCanonicalSymbolOccurrenceContainingPattern enumerates definition
// occurrences whose name matches pattern under the given anchoring rules.
func (idx *Index) ForeachCanonicalSymbolOccurrenceContainingPattern(pattern string, anchorStart, anchorEnd, subsequence, ignoreCase bool, fn func(ix.SymbolOccurrence) bool) bool {
	query := `SELECT o.id, o.usr, s.name, s.kind, o.roles, f.canonical_path, o.line
	          FROM occurrences o JOIN symbols s ON s.usr = o.usr
	          JOIN files f ON f.id = o.file_id
	          WHERE (o.roles & ?) != 0`
	return idx.scanFiltered(query, []any{int(ix.RoleDefinition)}, fn, func(name string) bool {
		return matchpattern.Matches(name, pattern, anchorStart, anchorEnd, subsequence, ignoreCase)
	})
}

// scanFiltered is scanOccurrences plus a post-scan name predicate, used by
// the pattern-matching queries so the SQL stays index-friendly and the
// fuzzy logic stays in Go.
func (idx *Index) scanFiltered(query string, args []any, fn func(ix.SymbolOccurrence) bool, keep func(name string) bool) bool {
	return idx.scanOccurrences(query, args, func(occ ix.SymbolOccurrence) bool {
		if !keep(occ.Symbol.Name) {
			return true
		}
		return fn(occ)
	})
}

// ForeachCanonicalSymbolOccurrenceByKind enumerates definition occurrences
// of a given kind. workspaceOnly is accepted for interface compatibility;
// this index has no build-system notion of "workspace vs. dependency" so it
// is a no-op filter here.
func (idx *Index) ForeachCanonicalSymbolOccurrenceByKind(kind ix.SymbolKind, workspaceOnly bool, fn func(ix.SymbolOccurrence) bool) bool {
	query := `SELECT o.id, o.usr, s.name, s.kind, o.roles, f.canonical_path, o.line
	          FROM occurrences o JOIN symbols s ON s.usr = o.usr
	          JOIN files f ON f.id = o.file_id
	          WHERE s.kind = ? AND (o.roles & ?) != 0`
	return idx.scanOccurrences(query, []any{int(kind), int(ix.RoleDefinition)}, fn)
}

// ForeachSymbolName enumerates every distinct symbol name known to the
// store.
func (idx *Index) ForeachSymbolName(fn func(string) bool) bool {
	rows, err := idx.db.Conn().Query(`SELECT DISTINCT name FROM symbols ORDER BY name`)
	if err != nil {
		return true
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		if !fn(name) {
			return false
		}
	}
	return true
}

// CountOfCanonicalSymbolsWithKind counts definition occurrences of kind.
func (idx *Index) CountOfCanonicalSymbolsWithKind(kind ix.SymbolKind, workspaceOnly bool) int {
	var count int
	row := idx.db.Conn().QueryRow(
		`SELECT COUNT(*) FROM occurrences o JOIN symbols s ON s.usr = o.usr
		 WHERE s.kind = ? AND (o.roles & ?) != 0`,
		int(kind), int(ix.RoleDefinition))
	if err := row.Scan(&count); err != nil {
		return 0
	}
	return count
}

// ForeachUnitTestSymbolReferencedByOutputPaths enumerates Test-role
// occurrences reachable from the given unit output paths.
func (idx *Index) ForeachUnitTestSymbolReferencedByOutputPaths(paths []ix.CanonicalPath, fn func(ix.SymbolOccurrence) bool) bool {
	if len(paths) == 0 {
		return true
	}
	placeholders := strings.Repeat("?,", len(paths))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(paths)+1)
	args = append(args, int(ix.RoleTest))
	for _, p := range paths {
		args = append(args, string(p))
	}
	query := `SELECT o.id, o.usr, s.name, s.kind, o.roles, f.canonical_path, o.line
	          FROM occurrences o JOIN symbols s ON s.usr = o.usr
	          JOIN files f ON f.id = o.file_id
	          JOIN units u ON u.id = o.unit_id
	          WHERE (o.roles & ?) != 0 AND u.output_path IN (` + placeholders + `)`
	return idx.scanOccurrences(query, args, fn)
}
