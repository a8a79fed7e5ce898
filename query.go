package keel

import (
	"fmt"
	"sort"

	"github.com/jward/keel/internal/store"
)

// QueryBuilder provides read access to indexed entries.
type QueryBuilder struct {
	store *store.Store
}

// Node is a graph node assembled from its entries.
type Node struct {
	VName VName
	Facts map[string]string
	Edges []Edge
}

// Edge is an outgoing edge of a Node.
type Edge struct {
	Kind   string
	Target VName
}

// Units returns every indexed unit.
func (q *QueryBuilder) Units() ([]*StoredUnit, error) {
	units, err := q.store.Units()
	if err != nil {
		return nil, fmt.Errorf("units: %w", err)
	}
	return units, nil
}

// Unit returns the unit with digest, or nil if it has not been indexed.
func (q *QueryBuilder) Unit(digest string) (*StoredUnit, error) {
	u, err := q.store.UnitByDigest(digest)
	if err != nil {
		return nil, fmt.Errorf("unit: %w", err)
	}
	return u, nil
}

// Node returns the facts and outgoing edges of v across all units, or nil
// if nothing names it.
func (q *QueryBuilder) Node(v VName) (*Node, error) {
	entries, err := q.store.EntriesBySource(v)
	if err != nil {
		return nil, fmt.Errorf("node: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	n := &Node{VName: v, Facts: make(map[string]string)}
	for _, e := range entries {
		if e.IsEdge() {
			n.Edges = append(n.Edges, Edge{Kind: e.EdgeKind, Target: e.Target})
			continue
		}
		n.Facts[e.FactName] = string(e.FactValue)
	}
	sort.Slice(n.Edges, func(i, j int) bool {
		if n.Edges[i].Kind != n.Edges[j].Kind {
			return n.Edges[i].Kind < n.Edges[j].Kind
		}
		return n.Edges[i].Target.String() < n.Edges[j].Target.String()
	})
	return n, nil
}

// Nodes returns every node of unitID whose /kind fact is kind, ordered by
// VName.
func (q *QueryBuilder) Nodes(unitID int64, kind string) ([]VName, error) {
	entries, err := q.store.EntriesForUnit(unitID)
	if err != nil {
		return nil, fmt.Errorf("nodes: %w", err)
	}
	var out []VName
	for _, e := range entries {
		if !e.IsEdge() && e.FactName == "/kind" && string(e.FactValue) == kind {
			out = append(out, e.Source)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}
