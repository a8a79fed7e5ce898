package analyzer

import (
	"bytes"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/keel/internal/frontend"
)

// Span is a half-open byte range of a file.
type Span struct {
	Start int
	End   int
}

// Valid reports whether the span has non-negative offsets and Start <= End.
func (s Span) Valid() bool { return s.Start >= 0 && s.Start <= s.End }

// Positions indexes the spans of every node in one file.
type Positions struct {
	text  []byte
	spans map[*sitter.Node]Span
}

// NewPositions indexes f's tree.
func NewPositions(f *frontend.File) *Positions {
	p := &Positions{text: f.Source, spans: make(map[*sitter.Node]Span)}
	if f.Tree == nil {
		return p
	}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		p.spans[n] = Span{Start: int(n.StartByte()), End: int(n.EndByte())}
		for i := 0; i < int(n.ChildCount()); i++ {
			if child := n.Child(i); child != nil {
				walk(child)
			}
		}
	}
	walk(f.Tree.RootNode())
	return p
}

// Text returns the file's source.
func (p *Positions) Text() []byte { return p.text }

// Span returns the span of n. Unindexed nodes and invalid spans both report
// false.
func (p *Positions) Span(n *sitter.Node) (Span, bool) {
	s, ok := p.spans[n]
	if !ok || !s.Valid() || s.End > len(p.text) {
		return Span{}, false
	}
	return s, true
}

// FindIdentifier returns the span of the first whole-word occurrence of
// name at or after start.
func (p *Positions) FindIdentifier(name string, start int) (Span, bool) {
	if name == "" || start < 0 || start > len(p.text) {
		return Span{}, false
	}
	needle := []byte(name)
	for off := start; off <= len(p.text)-len(needle); {
		i := bytes.Index(p.text[off:], needle)
		if i < 0 {
			return Span{}, false
		}
		s := Span{Start: off + i, End: off + i + len(needle)}
		if p.boundary(s) {
			return s, true
		}
		off = s.Start + 1
	}
	return Span{}, false
}

func (p *Positions) boundary(s Span) bool {
	if s.Start > 0 {
		r, _ := utf8.DecodeLastRune(p.text[:s.Start])
		if isIdentRune(r) {
			return false
		}
	}
	if s.End < len(p.text) {
		r, _ := utf8.DecodeRune(p.text[s.End:])
		if isIdentRune(r) {
			return false
		}
	}
	return true
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
