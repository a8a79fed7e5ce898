package store

// EntrySink receives emitted entries. Both Store (direct SQLite) and
// BatchedStore (per-file buffering) implement it.
type EntrySink interface {
	InsertEntry(e *Entry) (int64, error)
}

// Compile-time check: *Store satisfies EntrySink.
var _ EntrySink = (*Store)(nil)
