package store

import (
	"database/sql"
	"fmt"
	"time"
)

// RecordUnit inserts u, or replaces the row with the same digest. A
// replaced unit keeps its ID and loses its previous entries. Sets u.ID.
func (s *Store) RecordUnit(u *Unit) (int64, error) {
	if u.IndexedAt.IsZero() {
		u.IndexedAt = time.Now()
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("record unit: begin: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow("SELECT id FROM units WHERE digest = ?", u.Digest).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Exec(
			`INSERT INTO units (digest, corpus, root, path, language, signature, run_id, source_count, indexed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			u.Digest, u.VName.Corpus, u.VName.Root, u.VName.Path, u.VName.Language, u.VName.Signature,
			u.RunID, u.SourceCount, u.IndexedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("record unit: insert: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("record unit: last insert id: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("record unit: lookup: %w", err)
	default:
		if _, err := tx.Exec("DELETE FROM entries WHERE unit_id = ?", id); err != nil {
			return 0, fmt.Errorf("record unit: clear entries: %w", err)
		}
		if _, err := tx.Exec(
			`UPDATE units SET corpus = ?, root = ?, path = ?, language = ?, signature = ?,
			 run_id = ?, source_count = ?, indexed_at = ? WHERE id = ?`,
			u.VName.Corpus, u.VName.Root, u.VName.Path, u.VName.Language, u.VName.Signature,
			u.RunID, u.SourceCount, u.IndexedAt, id,
		); err != nil {
			return 0, fmt.Errorf("record unit: update: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("record unit: commit: %w", err)
	}
	u.ID = id
	return id, nil
}

const unitColumns = "id, digest, corpus, root, path, language, signature, run_id, source_count, indexed_at"

func scanUnit(scanner interface{ Scan(...any) error }) (*Unit, error) {
	u := &Unit{}
	var runID sql.NullString
	var indexedAt sql.NullTime
	err := scanner.Scan(&u.ID, &u.Digest,
		&u.VName.Corpus, &u.VName.Root, &u.VName.Path, &u.VName.Language, &u.VName.Signature,
		&runID, &u.SourceCount, &indexedAt)
	if err != nil {
		return nil, err
	}
	u.RunID = runID.String
	u.IndexedAt = indexedAt.Time
	return u, nil
}

// UnitByDigest returns the unit with digest, or nil if none is recorded.
func (s *Store) UnitByDigest(digest string) (*Unit, error) {
	u, err := scanUnit(s.db.QueryRow("SELECT "+unitColumns+" FROM units WHERE digest = ?", digest))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unit by digest: %w", err)
	}
	return u, nil
}

// Units returns every recorded unit ordered by ID.
func (s *Store) Units() ([]*Unit, error) {
	rows, err := s.db.Query("SELECT " + unitColumns + " FROM units ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("units: %w", err)
	}
	defer rows.Close()

	var units []*Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("units: scan: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}
