// Package filepathindex answers path- and unit-shaped queries and mints
// canonical paths through the shared canonpath cache.
package filepathindex

import (
	"strings"

	"github.com/dreampiggy/indexstore-db/internal/canonpath"
	"github.com/dreampiggy/indexstore-db/internal/database"
	ix "github.com/dreampiggy/indexstore-db/internal/ixtypes"
	"github.com/dreampiggy/indexstore-db/internal/matchpattern"
)

// Index implements indexsystem.FilePathIndex over a database.DB.
type Index struct {
	db    *database.DB
	paths *canonpath.Cache
}

// New builds an Index sharing paths with the rest of the facade's
// collaborators.
func New(db *database.DB, paths *canonpath.Cache) *Index {
	return &Index{db: db, paths: paths}
}

// CanonicalPath mints or returns the cached canonical form of path.
func (idx *Index) CanonicalPath(path string) ix.CanonicalPath {
	return idx.paths.Canonicalize(path)
}

// IsKnownFile reports whether path has ever been recorded by ingestion.
func (idx *Index) IsKnownFile(path ix.CanonicalPath) bool {
	var count int
	row := idx.db.Conn().QueryRow(`SELECT COUNT(*) FROM files WHERE canonical_path = ? AND is_known = 1`, string(path))
	if err := row.Scan(&count); err != nil {
		return false
	}
	return count > 0
}

// ForeachMainUnitContainingFile enumerates the main units that (directly or
// transitively) include path.
func (idx *Index) ForeachMainUnitContainingFile(path ix.CanonicalPath, fn func(ix.StoreUnitInfo) bool) bool {
	rows, err := idx.db.Conn().Query(
		`SELECT u.name, u.output_path, u.dependency_mod_time, u.is_main
		 FROM units u
		 JOIN unit_files uf ON uf.unit_id = u.id
		 JOIN files f ON f.id = uf.file_id
		 WHERE f.canonical_path = ? AND u.is_main = 1`, string(path))
	if err != nil {
		return true
	}
	defer rows.Close()
	for rows.Next() {
		var name, outPath string
		var modTime int64
		var isMain int
		if err := rows.Scan(&name, &outPath, &modTime, &isMain); err != nil {
			continue
		}
		info := ix.StoreUnitInfo{Name: name, OutputPath: ix.UnitOutputPath(outPath), IsMain: isMain != 0}
		if !fn(info) {
			return false
		}
	}
	return true
}

// ForeachFileOfUnit enumerates the files belonging to unitName; when
// followDependencies is false only its directly-named files are yielded.
func (idx *Index) ForeachFileOfUnit(unitName string, followDependencies bool, fn func(ix.CanonicalPath) bool) bool {
	query := `SELECT f.canonical_path FROM unit_files uf
	          JOIN files f ON f.id = uf.file_id
	          JOIN units u ON u.id = uf.unit_id
	          WHERE u.name = ?`
	if !followDependencies {
		query += ` AND uf.is_direct = 1`
	}
	rows, err := idx.db.Conn().Query(query, unitName)
	if err != nil {
		return true
	}
	defer rows.Close()
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			continue
		}
		if !fn(ix.CanonicalPath(path)) {
			return false
		}
	}
	return true
}

// ForeachFilenameContainingPattern enumerates known canonical paths whose
// basename matches pattern under the given anchoring rules.
func (idx *Index) ForeachFilenameContainingPattern(pattern string, anchorStart, anchorEnd, subsequence, ignoreCase bool, fn func(ix.CanonicalPath) bool) bool {
	rows, err := idx.db.Conn().Query(`SELECT canonical_path FROM files WHERE is_known = 1`)
	if err != nil {
		return true
	}
	defer rows.Close()
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			continue
		}
		base := path
		if i := strings.LastIndexByte(path, '/'); i >= 0 {
			base = path[i+1:]
		}
		if !matchpattern.Matches(base, pattern, anchorStart, anchorEnd, subsequence, ignoreCase) {
			continue
		}
		if !fn(ix.CanonicalPath(path)) {
			return false
		}
	}
	return true
}

// ForeachFileIncludingFile enumerates (sourcePath, line) pairs where
// sourcePath includes target.
func (idx *Index) ForeachFileIncludingFile(target ix.CanonicalPath, fn func(ix.CanonicalPath, int) bool) bool {
	rows, err := idx.db.Conn().Query(
		`SELECT sf.canonical_path, i.line FROM includes i
		 JOIN files sf ON sf.id = i.source_file_id
		 JOIN files tf ON tf.id = i.target_file_id
		 WHERE tf.canonical_path = ?`, string(target))
	if err != nil {
		return true
	}
	defer rows.Close()
	for rows.Next() {
		var path string
		var line int
		if err := rows.Scan(&path, &line); err != nil {
			continue
		}
		if !fn(ix.CanonicalPath(path), line) {
			return false
		}
	}
	return true
}

// ForeachFileIncludedByFile enumerates (targetPath, line) pairs for the
// files source includes.
func (idx *Index) ForeachFileIncludedByFile(source ix.CanonicalPath, fn func(ix.CanonicalPath, int) bool) bool {
	rows, err := idx.db.Conn().Query(
		`SELECT tf.canonical_path, i.line FROM includes i
		 JOIN files sf ON sf.id = i.source_file_id
		 JOIN files tf ON tf.id = i.target_file_id
		 WHERE sf.canonical_path = ?`, string(source))
	if err != nil {
		return true
	}
	defer rows.Close()
	for rows.Next() {
		var path string
		var line int
		if err := rows.Scan(&path, &line); err != nil {
			continue
		}
		if !fn(ix.CanonicalPath(path), line) {
			return false
		}
	}
	return true
}

// ForeachIncludeOfUnit enumerates every (source, target, line) include edge
// recorded for unitName.
func (idx *Index) ForeachIncludeOfUnit(unitName string, fn func(ix.CanonicalPath, ix.CanonicalPath, int) bool) bool {
	rows, err := idx.db.Conn().Query(
		`SELECT sf.canonical_path, tf.canonical_path, i.line FROM includes i
		 JOIN files sf ON sf.id = i.source_file_id
		 JOIN files tf ON tf.id = i.target_file_id
		 JOIN units u ON u.id = i.unit_id
		 WHERE u.name = ?`, unitName)
	if err != nil {
		return true
	}
	defer rows.Close()
	for rows.Next() {
		var src, dst string
		var line int
		if err := rows.Scan(&src, &dst, &line); err != nil {
			continue
		}
		if !fn(ix.CanonicalPath(src), ix.CanonicalPath(dst), line) {
			return false
		}
	}
	return true
}
