package store

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/jward/keel/internal/manifest"
)

// EntryHash computes a deterministic key for an entry's content. Identical
// entries emitted more than once for a unit share a hash and are stored
// once. The ID is not covered.
func EntryHash(e *Entry) string {
	h := sha256.New()
	writeVName(h, "source", e.Source)
	fmt.Fprintf(h, "edge:%s\n", e.EdgeKind)
	writeVName(h, "target", e.Target)
	fmt.Fprintf(h, "fact:%s\n", e.FactName)
	fmt.Fprintf(h, "value:%d:", len(e.FactValue))
	h.Write(e.FactValue)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func writeVName(w io.Writer, label string, v manifest.VName) {
	fmt.Fprintf(w, "%s:%d:%s%d:%s%d:%s%d:%s%d:%s\n", label,
		len(v.Corpus), v.Corpus,
		len(v.Root), v.Root,
		len(v.Path), v.Path,
		len(v.Language), v.Language,
		len(v.Signature), v.Signature)
}
