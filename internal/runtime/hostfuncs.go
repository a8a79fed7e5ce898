package runtime

import (
	"context"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/jward/keel/internal/frontend"
)

// syntax gives a script read access to the tree of the file being emitted.
// Every node a script can reach belongs to that tree, so node text and
// queries resolve against the file's own source and grammar.
type syntax struct {
	file    *frontend.File
	lang    *sitter.Language
	queries map[string]*sitter.Query
}

func newSyntax(file *frontend.File, lang *sitter.Language) *syntax {
	return &syntax{file: file, lang: lang, queries: make(map[string]*sitter.Query)}
}

// close releases the compiled queries.
func (s *syntax) close() {
	for _, q := range s.queries {
		q.Close()
	}
	s.queries = nil
}

// compile returns the query for pattern, compiling it on first use.
func (s *syntax) compile(pattern string) (*sitter.Query, error) {
	if q, ok := s.queries[pattern]; ok {
		return q, nil
	}
	q, err := sitter.NewQuery([]byte(pattern), s.lang)
	if err != nil {
		return nil, err
	}
	s.queries[pattern] = q
	return q, nil
}

func (s *syntax) globals() map[string]any {
	return map[string]any{
		"node_text":   s.nodeTextFn(),
		"node_child":  s.nodeChildFn(),
		"node_parent": s.nodeParentFn(),
		"query":       s.queryFn(),
	}
}

// nodeArg unwraps a proxied syntax node.
func nodeArg(fn string, arg object.Object) (*sitter.Node, *object.Error) {
	proxy, ok := arg.(*object.Proxy)
	if !ok {
		return nil, object.Errorf("%s: expected a node, got %s", fn, arg.Type())
	}
	node, ok := proxy.Interface().(*sitter.Node)
	if !ok || node == nil {
		return nil, object.Errorf("%s: expected a node, got %T", fn, proxy.Interface())
	}
	return node, nil
}

// proxyOrNil maps a missing node to Risor nil.
func proxyOrNil(fn string, n *sitter.Node) object.Object {
	if n == nil {
		return object.Nil
	}
	p, err := object.NewProxy(n)
	if err != nil {
		return object.Errorf("%s: %v", fn, err)
	}
	return p
}

// node_text(node) → string
func (s *syntax) nodeTextFn() *object.Builtin {
	return object.NewBuiltin("node_text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_text", 1, len(args))
		}
		node, errObj := nodeArg("node_text", args[0])
		if errObj != nil {
			return errObj
		}
		if int(node.EndByte()) > len(s.file.Source) {
			return object.Errorf("node_text: node ends past %s", s.file.Path.Name())
		}
		return object.NewString(node.Content(s.file.Source))
	})
}

// node_child(node, field) → node or nil
func (s *syntax) nodeChildFn() *object.Builtin {
	return object.NewBuiltin("node_child", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("node_child", 2, len(args))
		}
		node, errObj := nodeArg("node_child", args[0])
		if errObj != nil {
			return errObj
		}
		field, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("node_child: field must be a string, got %s", args[1].Type())
		}
		return proxyOrNil("node_child", node.ChildByFieldName(field.Value()))
	})
}

// node_parent(node) → node, or nil at the root
func (s *syntax) nodeParentFn() *object.Builtin {
	return object.NewBuiltin("node_parent", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_parent", 1, len(args))
		}
		node, errObj := nodeArg("node_parent", args[0])
		if errObj != nil {
			return errObj
		}
		return proxyOrNil("node_parent", node.Parent())
	})
}

// query(pattern[, node]) → [{capture: node}]
//
// The search covers the whole file unless a node narrows it.
func (s *syntax) queryFn() *object.Builtin {
	return object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.NewArgsRangeError("query", 1, 2, len(args))
		}
		pattern, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("query: pattern must be a string, got %s", args[0].Type())
		}
		within := s.file.Root()
		if len(args) == 2 {
			n, errObj := nodeArg("query", args[1])
			if errObj != nil {
				return errObj
			}
			within = n
		}

		q, err := s.compile(pattern.Value())
		if err != nil {
			return object.Errorf("query: invalid pattern for %s: %v", s.file.Language, err)
		}
		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, within)

		results := []object.Object{}
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			match = cursor.FilterPredicates(match, s.file.Source)
			captures := make(map[string]object.Object, len(match.Captures))
			for _, c := range match.Captures {
				captures[q.CaptureNameForId(c.Index)] = proxyOrNil("query", c.Node)
			}
			results = append(results, object.NewMap(captures))
		}
		return object.NewList(results)
	})
}

// scriptLog backs the log global. Lines carry the file being emitted.
type scriptLog struct {
	log *zap.Logger
}

func newScriptLog(log *zap.Logger, file string) *scriptLog {
	return &scriptLog{log: log.With(zap.String("source", "script"), zap.String("file", file))}
}

func (l *scriptLog) Debug(msg string) { l.log.Debug(msg) }
func (l *scriptLog) Info(msg string)  { l.log.Info(msg) }
func (l *scriptLog) Warn(msg string)  { l.log.Warn(msg) }
func (l *scriptLog) Error(msg string) { l.log.Error(msg) }
