package runtime

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/jward/keel/internal/analyzer"
	"github.com/jward/keel/internal/frontend"
	"github.com/jward/keel/internal/manifest"
	"github.com/jward/keel/internal/store"
)

// Fact names and edge kinds written by the emission host functions.
const (
	FactKind     = "/kind"
	FactText     = "/text"
	FactLocStart = "/loc/start"
	FactLocEnd   = "/loc/end"

	KindFile = "file"
)

// CommitFunc receives a file's buffered entries once its script succeeds.
type CommitFunc func(ctx context.Context, req analyzer.EmitRequest, batch *store.BatchedStore) error

var _ analyzer.Emitter = (*Runtime)(nil)

// Emit runs the file's emission script. The script names nodes with
// emit_node, which returns an opaque handle string for emit_edge and
// emit_fact. A declaration emitted with emit_node becomes its symbol's
// node.
func (r *Runtime) Emit(ctx context.Context, req analyzer.EmitRequest) (analyzer.Emission, error) {
	file := req.File
	lang, ok := frontend.GrammarForLanguage(file.Language)
	if !ok {
		return analyzer.Emission{}, fmt.Errorf("runtime: no grammar for language %q", file.Language)
	}
	syn := newSyntax(file, lang)
	defer syn.close()

	e := newEmission(req)
	if err := e.fileFacts(); err != nil {
		return analyzer.Emission{}, err
	}

	src, label, err := r.emitScript(file.Language)
	if err != nil {
		return analyzer.Emission{}, err
	}
	globals := e.globals()
	for name, fn := range syn.globals() {
		globals[name] = fn
	}
	logProxy, err := object.NewProxy(newScriptLog(r.log, e.path))
	if err != nil {
		return analyzer.Emission{}, fmt.Errorf("runtime: script log: %w", err)
	}
	globals["log"] = logProxy
	if err := r.eval(ctx, src, label, globals); err != nil {
		return analyzer.Emission{}, err
	}
	if e.err != nil {
		return analyzer.Emission{}, e.err
	}

	out := e.result()
	if r.commit != nil {
		if err := r.commit(ctx, req, e.batch); err != nil {
			return analyzer.Emission{}, fmt.Errorf("runtime: committing %s: %w", file.Path.Name(), err)
		}
	}
	r.log.Debug("emitted file",
		zap.String("file", file.Path.Name()),
		zap.Int("nodes", len(out.Nodes)),
		zap.Int("entries", e.batch.Len()))
	return out, nil
}

// emitScript loads the language's script, falling back to the default.
func (r *Runtime) emitScript(language string) (string, string, error) {
	path := EmitScriptPath(language)
	src, err := r.LoadScript(path)
	if errors.Is(err, fs.ErrNotExist) {
		path = DefaultEmitScript
		src, err = r.LoadScript(path)
	}
	if err != nil {
		return "", "", err
	}
	return src, path, nil
}

// emission is the per-file state behind the emission host functions.
type emission struct {
	req   analyzer.EmitRequest
	path  string
	fileV manifest.VName
	batch *store.BatchedStore

	mu      sync.Mutex
	nodes   map[*sitter.Node]analyzer.NodeHandle
	handles map[string]manifest.VName
	err     error
}

func newEmission(req analyzer.EmitRequest) *emission {
	path := req.File.Path.Name()
	return &emission{
		req:     req,
		path:    path,
		fileV:   req.Session.FileVName(path),
		batch:   store.NewBatchedStore(),
		nodes:   make(map[*sitter.Node]analyzer.NodeHandle),
		handles: make(map[string]manifest.VName),
	}
}

func (e *emission) fact(v manifest.VName, name string, value []byte) error {
	_, err := e.batch.InsertEntry(&store.Entry{Source: v, FactName: name, FactValue: value})
	return err
}

func (e *emission) fileFacts() error {
	if err := e.fact(e.fileV, FactKind, []byte(KindFile)); err != nil {
		return err
	}
	return e.fact(e.fileV, FactText, e.req.File.Source)
}

// fail records the first store error; Risor only sees a script error.
func (e *emission) fail(err error) object.Object {
	e.mu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.mu.Unlock()
	return object.Errorf("%v", err)
}

// resolve maps a script handle to a VName. The empty string is the file.
func (e *emission) resolve(handle string) (manifest.VName, bool) {
	if handle == "" {
		return e.fileV, true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.handles[handle]
	return v, ok
}

func (e *emission) result() analyzer.Emission {
	out := analyzer.Emission{
		Nodes:   e.nodes,
		Symbols: make(map[*frontend.Symbol]analyzer.NodeHandle),
	}
	for _, sym := range e.req.File.Symbols {
		if h, ok := e.nodes[sym.Decl]; ok {
			out.Symbols[sym] = h
		}
	}
	return out
}

func (e *emission) globals() map[string]any {
	var root object.Object = object.Nil
	if p, err := object.NewProxy(e.req.File.Root()); err == nil {
		root = p
	}
	return map[string]any{
		"file": object.NewMap(map[string]object.Object{
			"path":     object.NewString(e.path),
			"language": object.NewString(e.req.File.Language),
		}),
		"root":      root,
		"symbols":   e.symbolsFn(),
		"emit_node": e.emitNodeFn(),
		"emit_edge": e.emitEdgeFn(),
		"emit_fact": e.emitFactFn(),
	}
}

// symbols() → [{name, kind, decl, name_node}]
func (e *emission) symbolsFn() *object.Builtin {
	return object.NewBuiltin("symbols", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("symbols", 0, len(args))
		}
		items := make([]object.Object, 0, len(e.req.File.Symbols))
		for _, sym := range e.req.File.Symbols {
			m := map[string]object.Object{
				"name":      object.NewString(sym.Name),
				"kind":      object.NewString(sym.Kind),
				"decl":      object.Nil,
				"name_node": object.Nil,
			}
			if p, err := object.NewProxy(sym.Decl); err == nil {
				m["decl"] = p
			}
			if sym.NameNode != nil {
				if p, err := object.NewProxy(sym.NameNode); err == nil {
					m["name_node"] = p
				}
			}
			items = append(items, object.NewMap(m))
		}
		return object.NewList(items)
	})
}

// emit_node(node, kind) → handle
//
// Emitting the same node twice with the same kind returns the same handle.
func (e *emission) emitNodeFn() *object.Builtin {
	return object.NewBuiltin("emit_node", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("emit_node", 2, len(args))
		}
		proxy, ok := args[0].(*object.Proxy)
		if !ok {
			return object.Errorf("emit_node: expected proxy (Node), got %s", args[0].Type())
		}
		node, ok := proxy.Interface().(*sitter.Node)
		if !ok {
			return object.Errorf("emit_node: expected *sitter.Node, got %T", proxy.Interface())
		}
		kind, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("emit_node: kind must be a string, got %s", args[1].Type())
		}

		span, ok := e.req.Positions.Span(node)
		if !ok {
			return object.Errorf("emit_node: node has no span in %s", e.path)
		}
		h := e.req.Session.Handle(e.path, e.req.File.Language, kind.Value(), span)
		key := h.String()

		e.mu.Lock()
		e.nodes[node] = h
		e.handles[key] = h.VName()
		e.mu.Unlock()

		v := h.VName()
		if err := e.fact(v, FactKind, []byte(kind.Value())); err != nil {
			return e.fail(err)
		}
		if err := e.fact(v, FactLocStart, []byte(fmt.Sprint(span.Start))); err != nil {
			return e.fail(err)
		}
		if err := e.fact(v, FactLocEnd, []byte(fmt.Sprint(span.End))); err != nil {
			return e.fail(err)
		}
		return object.NewString(key)
	})
}

// emit_edge(source, kind, target)
func (e *emission) emitEdgeFn() *object.Builtin {
	return object.NewBuiltin("emit_edge", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return object.NewArgsError("emit_edge", 3, len(args))
		}
		var strs [3]string
		for i, a := range args {
			s, ok := a.(*object.String)
			if !ok {
				return object.Errorf("emit_edge: argument %d must be a string, got %s", i+1, a.Type())
			}
			strs[i] = s.Value()
		}
		if strs[1] == "" {
			return object.Errorf("emit_edge: edge kind is empty")
		}
		src, ok := e.resolve(strs[0])
		if !ok {
			return object.Errorf("emit_edge: unknown source %q", strs[0])
		}
		dst, ok := e.resolve(strs[2])
		if !ok {
			return object.Errorf("emit_edge: unknown target %q", strs[2])
		}
		if _, err := e.batch.InsertEntry(&store.Entry{Source: src, EdgeKind: strs[1], Target: dst}); err != nil {
			return e.fail(err)
		}
		return object.Nil
	})
}

// emit_fact(handle, name, value)
func (e *emission) emitFactFn() *object.Builtin {
	return object.NewBuiltin("emit_fact", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return object.NewArgsError("emit_fact", 3, len(args))
		}
		handle, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("emit_fact: handle must be a string, got %s", args[0].Type())
		}
		name, ok := args[1].(*object.String)
		if !ok || name.Value() == "" {
			return object.Errorf("emit_fact: name must be a non-empty string")
		}
		var value string
		switch val := args[2].(type) {
		case *object.String:
			value = val.Value()
		case *object.Int:
			value = fmt.Sprint(val.Value())
		default:
			return object.Errorf("emit_fact: value must be a string or int, got %s", args[2].Type())
		}
		v, ok := e.resolve(handle.Value())
		if !ok {
			return object.Errorf("emit_fact: unknown node %q", handle.Value())
		}
		if err := e.fact(v, name.Value(), []byte(value)); err != nil {
			return e.fail(err)
		}
		return object.Nil
	})
}
