package analyzer

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/keel/internal/frontend"
	"github.com/jward/keel/internal/manifest"
)

// NodeHandle identifies a graph node. Handles are comparable and unique per
// compilation, position and kind.
type NodeHandle struct {
	vname manifest.VName
}

// NewNodeHandle wraps v.
func NewNodeHandle(v manifest.VName) NodeHandle { return NodeHandle{vname: v} }

// VName returns the node's name.
func (h NodeHandle) VName() manifest.VName { return h.vname }

// IsZero reports whether h is the zero handle.
func (h NodeHandle) IsZero() bool { return h.vname.IsZero() }

func (h NodeHandle) String() string { return h.vname.String() }

// Session is the state of one unit's analysis. It lives from Begin until
// End.
type Session struct {
	Unit *manifest.Unit
	// RunID correlates log lines and stored rows for one analysis.
	RunID string

	cfg     Config
	nodes   map[*sitter.Node]NodeHandle
	symbols map[*frontend.Symbol]NodeHandle
}

func newSession(unit *manifest.Unit, cfg Config, runID string) *Session {
	return &Session{
		Unit:    unit,
		RunID:   runID,
		cfg:     cfg,
		nodes:   make(map[*sitter.Node]NodeHandle),
		symbols: make(map[*frontend.Symbol]NodeHandle),
	}
}

// UnitVName returns the unit's identity.
func (s *Session) UnitVName() manifest.VName { return s.Unit.VName }

// RequiredInputs returns the unit's declared inputs.
func (s *Session) RequiredInputs() []manifest.FileInput { return s.Unit.RequiredInputs }

// FileVName names the file at path. A required input's own VName is used
// when present, with an empty corpus or root taken from the unit; otherwise
// the rewrite rules decide, defaulting to the unit's corpus and root. The
// ignore flags and corpus override apply last.
func (s *Session) FileVName(path string) manifest.VName {
	abs := s.Unit.AbsPath(path)
	v := manifest.VName{Corpus: s.Unit.VName.Corpus, Root: s.Unit.VName.Root, Path: abs}
	if in, ok := s.Unit.Input(path); ok && !in.VName.IsZero() {
		v = in.VName
		if v.Corpus == "" {
			v.Corpus = s.Unit.VName.Corpus
		}
		if v.Root == "" {
			v.Root = s.Unit.VName.Root
		}
	} else {
		v = s.cfg.Rules.ApplyDefault(abs, v)
	}
	if s.cfg.IgnoreVNamePaths || v.Path == "" {
		v.Path = abs
	}
	if s.cfg.IgnoreVNameRoots {
		v.Root = ""
	}
	if s.cfg.OverrideCorpus != "" {
		v.Corpus = s.cfg.OverrideCorpus
	}
	v.Signature = ""
	return v
}

// Handle returns the handle of a kind of node spanning span in the file at
// path.
func (s *Session) Handle(path, language, kind string, span Span) NodeHandle {
	v := s.FileVName(path)
	v.Language = language
	v.Signature = fmt.Sprintf("%s@%d:%d", kind, span.Start, span.End)
	return NodeHandle{vname: v}
}

// Record stores an emission's mappings.
func (s *Session) Record(e Emission) {
	for n, h := range e.Nodes {
		s.nodes[n] = h
	}
	for sym, h := range e.Symbols {
		s.symbols[sym] = h
	}
}

// Node returns the handle recorded for n.
func (s *Session) Node(n *sitter.Node) (NodeHandle, bool) {
	h, ok := s.nodes[n]
	return h, ok
}

// Symbol returns the handle recorded for sym.
func (s *Session) Symbol(sym *frontend.Symbol) (NodeHandle, bool) {
	h, ok := s.symbols[sym]
	return h, ok
}

// NodeCount returns the number of nodes recorded so far.
func (s *Session) NodeCount() int { return len(s.nodes) }
