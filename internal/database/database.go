// Package database is the SQLite-backed persisted-state layer shared by the
// symbol index, file-path index, visibility checker, and ingestion
// datastore. The facade treats it opaquely past construction.
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB is the SQLite data access layer backing one IndexFacade instance.
type DB struct {
	conn     *sql.DB
	readonly bool
}

// Open opens (creating if absent) a SQLite database at basePath. initialSize
// is an optional hint in bytes for the initial page allocation; 0 means no
// hint. Readonly connections skip schema migration — the store must already
// exist.
func Open(basePath string, readonly bool, initialSize int64) (*DB, error) {
	// The "file:" form keeps the query string in the URI handed to SQLite, so
	// mode=ro below is honoured rather than stripped by the driver.
	dsn := "file:" + basePath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000"
	if readonly {
		dsn += "&mode=ro"
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{conn: conn, readonly: readonly}
	if !readonly {
		if err := db.migrate(); err != nil {
			conn.Close()
			return nil, err
		}
		if initialSize > 0 {
			// Best-effort page-count hint; failures here are not fatal to
			// construction.
			pageSize := int64(4096)
			pages := initialSize / pageSize
			_, _ = conn.Exec(fmt.Sprintf("PRAGMA page_count = %d", pages))
		}
	}
	return db, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying *sql.DB for collaborators that need direct
// query/exec access.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

func (d *DB) migrate() error {
	_, err := d.conn.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  canonical_path  TEXT NOT NULL UNIQUE,
  is_known        INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS main_files (
  file_id         INTEGER NOT NULL REFERENCES files(id),
  product_name    TEXT NOT NULL,
  PRIMARY KEY (file_id, product_name)
);

CREATE TABLE IF NOT EXISTS out_file_paths (
  file_id         INTEGER NOT NULL UNIQUE REFERENCES files(id)
);

CREATE TABLE IF NOT EXISTS units (
  id                  INTEGER PRIMARY KEY,
  name                TEXT NOT NULL,
  output_path         TEXT NOT NULL UNIQUE,
  is_main             INTEGER NOT NULL DEFAULT 0,
  dependency_mod_time INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS unit_files (
  unit_id         INTEGER NOT NULL REFERENCES units(id),
  file_id         INTEGER NOT NULL REFERENCES files(id),
  is_direct        INTEGER NOT NULL DEFAULT 1,
  PRIMARY KEY (unit_id, file_id)
);

CREATE TABLE IF NOT EXISTS includes (
  source_file_id  INTEGER NOT NULL REFERENCES files(id),
  target_file_id  INTEGER NOT NULL REFERENCES files(id),
  unit_id         INTEGER NOT NULL REFERENCES units(id),
  line            INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS symbols (
  usr             TEXT PRIMARY KEY,
  name            TEXT NOT NULL,
  kind            INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS occurrences (
  id              INTEGER PRIMARY KEY,
  usr             TEXT NOT NULL REFERENCES symbols(usr),
  roles           INTEGER NOT NULL,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  unit_id         INTEGER NOT NULL REFERENCES units(id),
  line            INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS relations (
  occurrence_id   INTEGER NOT NULL REFERENCES occurrences(id),
  related_usr     TEXT NOT NULL,
  roles           INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_occurrences_usr ON occurrences(usr);
CREATE INDEX IF NOT EXISTS idx_occurrences_unit ON occurrences(unit_id);
CREATE INDEX IF NOT EXISTS idx_relations_occurrence ON relations(occurrence_id);
CREATE INDEX IF NOT EXISTS idx_relations_related_usr ON relations(related_usr);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
`

// DeleteUnitData removes everything ingestion previously recorded for
// unitID — its occurrences, their relations, and its include edges — inside
// a single transaction, child rows first to respect the foreign keys above.
// Grounded on the canopy store's same-shaped multi-table delete.
func (d *DB) DeleteUnitData(unitID int64) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM relations WHERE occurrence_id IN (SELECT id FROM occurrences WHERE unit_id = ?)`, unitID); err != nil {
		return fmt.Errorf("delete relations: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM occurrences WHERE unit_id = ?`, unitID); err != nil {
		return fmt.Errorf("delete occurrences: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM includes WHERE unit_id = ?`, unitID); err != nil {
		return fmt.Errorf("delete includes: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM unit_files WHERE unit_id = ?`, unitID); err != nil {
		return fmt.Errorf("delete unit_files: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM units WHERE id = ?`, unitID); err != nil {
		return fmt.Errorf("delete unit: %w", err)
	}
	return tx.Commit()
}
