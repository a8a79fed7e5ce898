package frontend

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/jward/keel/internal/vfs"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is a front-end report about one source location. Lines and
// columns are zero-based.
type Diagnostic struct {
	Path     string
	Line     uint32
	Column   uint32
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Path, d.Line+1, d.Column+1, d.Severity, d.Message)
}

// Symbol is a declaration found in a file.
type Symbol struct {
	Name     string
	Kind     string
	Decl     *sitter.Node
	NameNode *sitter.Node
}

// File is one parsed compilation input.
type File struct {
	Path        vfs.Path
	Language    string
	Source      []byte
	Tree        *sitter.Tree
	Symbols     []*Symbol
	Diagnostics []Diagnostic
}

// Root returns the root node of the file's tree.
func (f *File) Root() *sitter.Node { return f.Tree.RootNode() }

// Compilation is the front end's result for one unit.
type Compilation struct {
	Files []*File
	// Diagnostics holds reports not tied to a parsed file, such as sources
	// with no grammar.
	Diagnostics []Diagnostic
	// Locations is a snapshot of the file manager's bindings at compile time.
	Locations map[Location][]string
}

// AllDiagnostics returns unit-level diagnostics followed by every file's.
func (c *Compilation) AllDiagnostics() []Diagnostic {
	out := append([]Diagnostic(nil), c.Diagnostics...)
	for _, f := range c.Files {
		out = append(out, f.Diagnostics...)
	}
	return out
}

// Close releases every syntax tree.
func (c *Compilation) Close() {
	for _, f := range c.Files {
		if f.Tree != nil {
			f.Tree.Close()
			f.Tree = nil
		}
	}
}

// Compiler parses sources read through a file manager's paths.
type Compiler struct {
	log *zap.Logger
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithCompilerLogger sets the logger.
func WithCompilerLogger(log *zap.Logger) CompilerOption {
	return func(c *Compiler) {
		c.log = log
	}
}

// NewCompiler creates a Compiler.
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var standardLocations = []Location{ClassPath, ModulePath, SourcePath, PlatformClassPath, SystemModules}

// Compile parses every source. Syntax problems become diagnostics; only
// I/O and setup failures are returned as errors.
func (c *Compiler) Compile(ctx context.Context, fm StandardFileManager, sources []vfs.Path) (*Compilation, error) {
	if ops, ok := fm.(PathOps); ok && APIVersion(fm) >= PathOpsVersion {
		var err error
		if sources, err = ops.FilesFromPaths(sources); err != nil {
			return nil, fmt.Errorf("frontend: compile: %w", err)
		}
	}

	comp := &Compilation{Locations: make(map[Location][]string)}
	for _, loc := range standardLocations {
		if names := fm.Location(loc); len(names) > 0 {
			comp.Locations[loc] = names
		}
	}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			comp.Close()
			return nil, err
		}
		lang, ok := LanguageForFile(src.Name())
		if !ok {
			comp.Diagnostics = append(comp.Diagnostics, Diagnostic{
				Path:     src.Name(),
				Severity: SeverityWarning,
				Message:  "no grammar for file type; skipped",
			})
			continue
		}
		data, err := src.ReadFile(ctx)
		if err != nil {
			comp.Close()
			return nil, fmt.Errorf("frontend: read %s: %w", src, err)
		}
		f, err := c.parse(ctx, src, lang, data)
		if err != nil {
			comp.Close()
			return nil, err
		}
		c.log.Debug("parsed file",
			zap.String("path", src.Name()),
			zap.String("language", lang),
			zap.Int("symbols", len(f.Symbols)),
			zap.Int("diagnostics", len(f.Diagnostics)))
		comp.Files = append(comp.Files, f)
	}
	return comp, nil
}

func (c *Compiler) parse(ctx context.Context, path vfs.Path, lang string, src []byte) (*File, error) {
	grammar, ok := GrammarForLanguage(lang)
	if !ok {
		return nil, fmt.Errorf("frontend: unsupported language %q", lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("frontend: parse %s: %w", path, err)
	}

	f := &File{Path: path, Language: lang, Source: src, Tree: tree}
	f.Diagnostics = syntaxDiagnostics(path.Name(), tree.RootNode())

	symbols, err := declarations(tree.RootNode(), grammar, lang, src)
	if err != nil {
		tree.Close()
		return nil, fmt.Errorf("frontend: symbols for %s: %w", path, err)
	}
	f.Symbols = symbols
	return f, nil
}

// syntaxDiagnostics reports ERROR and missing nodes. Subtrees without
// errors are skipped.
func syntaxDiagnostics(path string, root *sitter.Node) []Diagnostic {
	var diags []Diagnostic
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch {
		case n.IsMissing():
			pt := n.StartPoint()
			diags = append(diags, Diagnostic{
				Path: path, Line: pt.Row, Column: pt.Column,
				Severity: SeverityError,
				Message:  fmt.Sprintf("missing %s", n.Type()),
			})
			return
		case n.Type() == "ERROR":
			pt := n.StartPoint()
			diags = append(diags, Diagnostic{
				Path: path, Line: pt.Row, Column: pt.Column,
				Severity: SeverityError,
				Message:  "syntax error",
			})
		}
		if !n.HasError() {
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if child := n.Child(i); child != nil {
				walk(child)
			}
		}
	}
	walk(root)
	return diags
}

var errNoDeclQuery = errors.New("no declaration query")

func declarations(root *sitter.Node, grammar *sitter.Language, lang string, src []byte) ([]*Symbol, error) {
	pattern, ok := declQueries[lang]
	if !ok {
		return nil, fmt.Errorf("%s: %w", lang, errNoDeclQuery)
	}
	q, err := sitter.NewQuery([]byte(pattern), grammar)
	if err != nil {
		return nil, fmt.Errorf("invalid declaration query: %w", err)
	}
	defer q.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, root)

	var symbols []*Symbol
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		match = cursor.FilterPredicates(match, src)
		sym := &Symbol{}
		for _, capture := range match.Captures {
			name := q.CaptureNameForId(capture.Index)
			if name == "name" {
				sym.NameNode = capture.Node
				sym.Name = capture.Node.Content(src)
				continue
			}
			sym.Kind = name
			sym.Decl = capture.Node
		}
		if sym.Decl == nil || sym.NameNode == nil {
			continue
		}
		symbols = append(symbols, sym)
	}
	return symbols, nil
}
