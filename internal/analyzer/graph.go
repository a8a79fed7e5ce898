package analyzer

import (
	"context"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/keel/internal/frontend"
)

// Graph is the read-only view of one file's analysis given to plugins. It
// holds a copy of the file's emission; later recording into the session
// does not change it.
type Graph struct {
	file      *frontend.File
	nodes     map[*sitter.Node]NodeHandle
	symbols   map[*frontend.Symbol]NodeHandle
	positions *Positions
}

func newGraph(file *frontend.File, em Emission, positions *Positions) *Graph {
	g := &Graph{
		file:      file,
		nodes:     make(map[*sitter.Node]NodeHandle, len(em.Nodes)),
		symbols:   make(map[*frontend.Symbol]NodeHandle, len(em.Symbols)),
		positions: positions,
	}
	for n, h := range em.Nodes {
		g.nodes[n] = h
	}
	for sym, h := range em.Symbols {
		g.symbols[sym] = h
	}
	return g
}

// File returns the file the view describes.
func (g *Graph) File() *frontend.File { return g.file }

// Node returns the handle of a syntax node in the file.
func (g *Graph) Node(n *sitter.Node) (NodeHandle, bool) {
	h, ok := g.nodes[n]
	return h, ok
}

// SymbolNode returns the handle of one of the file's symbols.
func (g *Graph) SymbolNode(sym *frontend.Symbol) (NodeHandle, bool) {
	h, ok := g.symbols[sym]
	return h, ok
}

// Symbols returns the file's symbols that have a handle, in source order.
func (g *Graph) Symbols() []*frontend.Symbol {
	out := make([]*frontend.Symbol, 0, len(g.symbols))
	for sym := range g.symbols {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Decl.StartByte() != out[j].Decl.StartByte() {
			return out[i].Decl.StartByte() < out[j].Decl.StartByte()
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Span returns the text span of a syntax node.
func (g *Graph) Span(n *sitter.Node) (Span, bool) {
	return g.positions.Span(n)
}

// FindIdentifier returns the span of name at or after offset start.
func (g *Graph) FindIdentifier(name string, start int) (Span, bool) {
	return g.positions.FindIdentifier(name, start)
}

// Plugin consumes a file's graph view after its emission succeeds.
type Plugin interface {
	Run(ctx context.Context, file *frontend.File, session *Session, graph *Graph) error
}

// PluginFactory creates a fresh Plugin for each file.
type PluginFactory func() Plugin

// PluginFunc adapts a function to Plugin.
type PluginFunc func(ctx context.Context, file *frontend.File, session *Session, graph *Graph) error

// Run implements Plugin.
func (f PluginFunc) Run(ctx context.Context, file *frontend.File, session *Session, graph *Graph) error {
	return f(ctx, file, session, graph)
}
