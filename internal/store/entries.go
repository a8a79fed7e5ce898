package store

import (
	"database/sql"
	"fmt"

	"github.com/jward/keel/internal/manifest"
)

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

const insertEntrySQL = `INSERT OR IGNORE INTO entries (
  unit_id, hash,
  source_corpus, source_root, source_path, source_language, source_signature,
  edge_kind,
  target_corpus, target_root, target_path, target_language, target_signature,
  fact_name, fact_value
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func insertEntry(x execer, e *Entry) (int64, error) {
	res, err := x.Exec(insertEntrySQL,
		e.UnitID, EntryHash(e),
		e.Source.Corpus, e.Source.Root, e.Source.Path, e.Source.Language, e.Source.Signature,
		e.EdgeKind,
		e.Target.Corpus, e.Target.Root, e.Target.Path, e.Target.Language, e.Target.Signature,
		e.FactName, e.FactValue,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		// Duplicate of an entry already stored for the unit.
		return 0, nil
	}
	return res.LastInsertId()
}

// InsertEntry stores e and sets e.ID. A duplicate of an existing entry of
// the same unit is ignored and returns 0.
func (s *Store) InsertEntry(e *Entry) (int64, error) {
	id, err := insertEntry(s.db, e)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	e.ID = id
	return id, nil
}

const entryColumns = `id, unit_id,
  source_corpus, source_root, source_path, source_language, source_signature,
  edge_kind,
  target_corpus, target_root, target_path, target_language, target_signature,
  fact_name, fact_value`

func (s *Store) queryEntries(query string, args ...any) ([]*Entry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.UnitID,
			&e.Source.Corpus, &e.Source.Root, &e.Source.Path, &e.Source.Language, &e.Source.Signature,
			&e.EdgeKind,
			&e.Target.Corpus, &e.Target.Root, &e.Target.Path, &e.Target.Language, &e.Target.Signature,
			&e.FactName, &e.FactValue,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// EntriesForUnit returns a unit's entries in insertion order.
func (s *Store) EntriesForUnit(unitID int64) ([]*Entry, error) {
	entries, err := s.queryEntries("SELECT "+entryColumns+" FROM entries WHERE unit_id = ? ORDER BY id", unitID)
	if err != nil {
		return nil, fmt.Errorf("entries for unit: %w", err)
	}
	return entries, nil
}

// EntriesBySource returns every entry whose source is v, across units.
func (s *Store) EntriesBySource(v manifest.VName) ([]*Entry, error) {
	entries, err := s.queryEntries(
		"SELECT "+entryColumns+` FROM entries
		 WHERE source_corpus = ? AND source_root = ? AND source_path = ? AND source_language = ? AND source_signature = ?
		 ORDER BY id`,
		v.Corpus, v.Root, v.Path, v.Language, v.Signature,
	)
	if err != nil {
		return nil, fmt.Errorf("entries by source: %w", err)
	}
	return entries, nil
}

// EntryCount returns the number of entries stored for a unit.
func (s *Store) EntryCount(unitID int64) (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entries WHERE unit_id = ?", unitID).Scan(&n); err != nil {
		return 0, fmt.Errorf("entry count: %w", err)
	}
	return n, nil
}
