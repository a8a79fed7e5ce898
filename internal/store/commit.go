package store

import "fmt"

// CommitBatch inserts all buffered entries from a BatchedStore into SQLite
// within a single transaction, assigning each to unitID. Fake (negative)
// IDs are replaced by real ones. Returns the number of rows written;
// entries already stored for the unit are skipped.
func (s *Store) CommitBatch(unitID int64, batch *BatchedStore) (int, error) {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	written := 0
	for i := range batch.Entries {
		e := &batch.Entries[i]
		e.UnitID = unitID
		realID, err := insertEntry(tx, e)
		if err != nil {
			return 0, fmt.Errorf("commit batch: entry %s %s%s: %w", e.Source, e.FactName, e.EdgeKind, err)
		}
		if realID != 0 {
			written++
		}
		e.ID = realID
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: commit: %w", err)
	}
	return written, nil
}
