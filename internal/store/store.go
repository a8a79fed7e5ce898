package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for indexed units and their
// entries.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS units (
  id              INTEGER PRIMARY KEY,
  digest          TEXT NOT NULL UNIQUE,
  corpus          TEXT NOT NULL DEFAULT '',
  root            TEXT NOT NULL DEFAULT '',
  path            TEXT NOT NULL DEFAULT '',
  language        TEXT NOT NULL DEFAULT '',
  signature       TEXT NOT NULL DEFAULT '',
  run_id          TEXT,
  source_count    INTEGER NOT NULL DEFAULT 0,
  indexed_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS entries (
  id               INTEGER PRIMARY KEY,
  unit_id          INTEGER NOT NULL REFERENCES units(id),
  hash             TEXT NOT NULL,
  source_corpus    TEXT NOT NULL DEFAULT '',
  source_root      TEXT NOT NULL DEFAULT '',
  source_path      TEXT NOT NULL DEFAULT '',
  source_language  TEXT NOT NULL DEFAULT '',
  source_signature TEXT NOT NULL DEFAULT '',
  edge_kind        TEXT NOT NULL DEFAULT '',
  target_corpus    TEXT NOT NULL DEFAULT '',
  target_root      TEXT NOT NULL DEFAULT '',
  target_path      TEXT NOT NULL DEFAULT '',
  target_language  TEXT NOT NULL DEFAULT '',
  target_signature TEXT NOT NULL DEFAULT '',
  fact_name        TEXT NOT NULL DEFAULT '',
  fact_value       BLOB,
  UNIQUE(unit_id, hash)
);

CREATE INDEX IF NOT EXISTS idx_entries_unit ON entries(unit_id);
CREATE INDEX IF NOT EXISTS idx_entries_source ON entries(source_corpus, source_root, source_path, source_signature);
CREATE INDEX IF NOT EXISTS idx_entries_edge ON entries(edge_kind);
`

// DeleteUnit transactionally removes a unit and all of its entries.
func (s *Store) DeleteUnit(unitID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries WHERE unit_id = ?", unitID); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM units WHERE id = ?", unitID); err != nil {
		return fmt.Errorf("delete unit: %w", err)
	}
	return tx.Commit()
}
