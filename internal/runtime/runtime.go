// Package runtime runs Risor emission scripts over parsed files. Scripts get
// syntax host functions (node_text, node_child, node_parent, query) and emission
// host functions (emit_node, emit_edge, emit_fact) that name graph nodes
// through the analysis session and buffer entries for the store.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"go.uber.org/zap"
)

// Runtime runs one emission script per file in a fresh Risor VM.
type Runtime struct {
	scriptsDir string
	fsys       fs.FS
	commit     CommitFunc
	log        *zap.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS loads scripts, and the modules they import, from fsys
// instead of the scripts directory.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithCommit sets the function that receives each file's entries after its
// script succeeds. Without one, entries are discarded.
func WithCommit(fn CommitFunc) RuntimeOption {
	return func(r *Runtime) {
		r.commit = fn
	}
}

// WithLogger sets the logger behind the scripts' log global.
func WithLogger(log *zap.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.log = log
	}
}

// NewRuntime creates a Runtime loading scripts from scriptsDir, or from
// the fs.FS given with WithRuntimeFS.
func NewRuntime(scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		scriptsDir: scriptsDir,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// eval runs source with the given globals. Import statements resolve
// against the script source, and imported modules see the same globals.
func (r *Runtime) eval(ctx context.Context, source, label string, globals map[string]any) error {
	opts := make([]risor.Option, 0, len(globals)+1)
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter resolves imports from wherever the scripts come from. It
// returns nil when the Runtime has no script source.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Strings(names)

	switch {
	case r.fsys != nil:
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: names,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	case r.scriptsDir != "":
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: names,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript returns the source of the named script. Names are relative to
// the script FS, or to the scripts directory unless absolute.
func (r *Runtime) LoadScript(name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if r.fsys != nil {
		name = strings.TrimPrefix(filepath.ToSlash(name), "/")
		data, err = fs.ReadFile(r.fsys, name)
	} else {
		if !filepath.IsAbs(name) {
			name = filepath.Join(r.scriptsDir, name)
		}
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", name, err)
	}
	return string(data), nil
}

// EmitScriptPath returns the path to a language's emission script.
func EmitScriptPath(language string) string {
	return filepath.Join("emit", language+".risor")
}

// DefaultEmitScript is used for languages without their own script.
var DefaultEmitScript = EmitScriptPath("default")
