package store

import (
	"time"

	"github.com/jward/keel/internal/manifest"
)

// Unit is an indexed compilation unit.
type Unit struct {
	ID          int64
	Digest      string
	VName       manifest.VName
	RunID       string
	SourceCount int
	IndexedAt   time.Time
}

// Entry is one fact-graph entry. A node fact has an empty EdgeKind and a
// zero Target; an edge has both and an empty FactName.
type Entry struct {
	ID        int64
	UnitID    int64
	Source    manifest.VName
	EdgeKind  string
	Target    manifest.VName
	FactName  string
	FactValue []byte
}

// IsEdge reports whether e is an edge.
func (e *Entry) IsEdge() bool { return e.EdgeKind != "" }
