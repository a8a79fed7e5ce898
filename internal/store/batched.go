package store

import "sync"

// BatchedStore buffers one file's entries in memory using fake (negative)
// IDs. Nothing reaches SQLite until Store.CommitBatch, so a file whose
// emission fails can simply be discarded.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type BatchedStore struct {
	mu sync.Mutex

	Entries []Entry
	seen    map[string]bool

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies EntrySink.
var _ EntrySink = (*BatchedStore)(nil)

// NewBatchedStore creates an empty BatchedStore.
func NewBatchedStore() *BatchedStore {
	return &BatchedStore{
		seen:       make(map[string]bool),
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

// InsertEntry buffers e. Duplicates of a buffered entry are dropped and
// return 0.
func (b *BatchedStore) InsertEntry(e *Entry) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := EntryHash(e)
	if b.seen[key] {
		return 0, nil
	}
	b.seen[key] = true
	fakeID := b.allocFakeID()
	e.ID = fakeID
	b.Entries = append(b.Entries, *e)
	return fakeID, nil
}

// Len returns the number of buffered entries.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Entries)
}
