package emit_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/keel/internal/analyzer"
	"github.com/jward/keel/internal/frontend"
	"github.com/jward/keel/internal/manifest"
	"github.com/jward/keel/internal/runtime"
	"github.com/jward/keel/internal/store"
	"github.com/jward/keel/internal/vfs"
	"github.com/jward/keel/scripts"
)

// testEnv runs the bundled scripts over one unit and commits into a
// temporary store.
type testEnv struct {
	t     *testing.T
	store *store.Store
	unit  *store.Unit
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())

	u := &store.Unit{Digest: "digest", VName: manifest.VName{Corpus: "corpus"}}
	id, err := s.RecordUnit(u)
	require.NoError(t, err)
	u.ID = id
	return &testEnv{t: t, store: s, unit: u}
}

// index compiles path and runs its emission script, returning the
// file's entries.
func (e *testEnv) index(path, src string) []*store.Entry {
	t := e.t
	t.Helper()
	provider, inputs := vfs.Inputs(map[string][]byte{path: []byte(src)})
	unit := &manifest.Unit{
		VName:          e.unit.VName,
		RequiredInputs: inputs,
		SourceFiles:    []string{path},
	}
	fsys := vfs.New(unit, provider)
	dfm := frontend.NewDiskFileManager(nil)
	require.NoError(t, dfm.SetPathFactory(fsys.Path))
	comp, err := frontend.NewCompiler().Compile(context.Background(), dfm, []vfs.Path{fsys.Path(path)})
	require.NoError(t, err)
	defer comp.Close()

	rt := runtime.NewRuntime("", runtime.WithRuntimeFS(scripts.FS),
		runtime.WithCommit(func(_ context.Context, _ analyzer.EmitRequest, b *store.BatchedStore) error {
			_, err := e.store.CommitBatch(e.unit.ID, b)
			return err
		}))
	a, err := analyzer.New(analyzer.Config{}, rt)
	require.NoError(t, err)
	require.NoError(t, a.AnalyzeCompilation(context.Background(), unit, comp))

	entries, err := e.store.EntriesForUnit(e.unit.ID)
	require.NoError(t, err)
	return entries
}

// names maps each node's /name fact to its signature.
func names(entries []*store.Entry) map[string]string {
	out := make(map[string]string)
	for _, en := range entries {
		if en.FactName == "/name" {
			out[string(en.FactValue)] = en.Source.Signature
		}
	}
	return out
}

// edges returns "source -kind-> target" by signature, with the file node
// written as "file".
func edges(entries []*store.Entry, kind string) []string {
	sig := func(v manifest.VName) string {
		if v.Signature == "" {
			return "file"
		}
		return v.Signature
	}
	var out []string
	for _, en := range entries {
		if en.EdgeKind == kind {
			out = append(out, sig(en.Source)+" -> "+sig(en.Target))
		}
	}
	return out
}

// =============================================================================
// Go
// =============================================================================

const goSource = `package main

type Server struct{}

func (s *Server) Start() { helper() }

func helper() {}

func main() { helper() }
`

func TestGo_Declarations(t *testing.T) {
	env := newTestEnv(t)
	entries := env.index("/src/main.go", goSource)

	n := names(entries)
	require.Len(t, n, 4)
	assert.Contains(t, n["Server"], "type@")
	assert.Contains(t, n["Start"], "method@")
	assert.Contains(t, n["helper"], "function@")
	assert.Contains(t, n["main"], "function@")

	assert.Len(t, edges(entries, "/defines/binding"), 4)
}

func TestGo_MethodsBelongToReceiverType(t *testing.T) {
	env := newTestEnv(t)
	entries := env.index("/src/main.go", goSource)
	n := names(entries)

	childof := edges(entries, "/childof")
	assert.Contains(t, childof, n["Start"]+" -> "+n["Server"])
	assert.Contains(t, childof, n["helper"]+" -> file")
	assert.Contains(t, childof, n["Server"]+" -> file")
}

func TestGo_CallsReferenceLocalFunctions(t *testing.T) {
	env := newTestEnv(t)
	entries := env.index("/src/main.go", goSource)
	n := names(entries)

	calls := edges(entries, "/ref/call")
	require.Len(t, calls, 2)
	for _, c := range calls {
		assert.Contains(t, c, "anchor@")
		assert.Contains(t, c, " -> "+n["helper"])
	}
}

// =============================================================================
// Java
// =============================================================================

const javaSource = `class Outer {
    class Inner {
        void run() { go(); }
    }
    void go() { new Inner(); }
}
`

func TestJava_Nesting(t *testing.T) {
	env := newTestEnv(t)
	entries := env.index("/src/Outer.java", javaSource)
	n := names(entries)
	require.Len(t, n, 4)

	childof := edges(entries, "/childof")
	assert.Contains(t, childof, n["Outer"]+" -> file")
	assert.Contains(t, childof, n["Inner"]+" -> "+n["Outer"])
	assert.Contains(t, childof, n["run"]+" -> "+n["Inner"])
	assert.Contains(t, childof, n["go"]+" -> "+n["Outer"])
}

func TestJava_References(t *testing.T) {
	env := newTestEnv(t)
	entries := env.index("/src/Outer.java", javaSource)
	n := names(entries)

	calls := edges(entries, "/ref/call")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], " -> "+n["go"])

	refs := edges(entries, "/ref")
	require.Len(t, refs, 1)
	assert.Contains(t, refs[0], " -> "+n["Inner"])
}

// =============================================================================
// Default
// =============================================================================

func TestDefault_PythonDeclarations(t *testing.T) {
	env := newTestEnv(t)
	entries := env.index("/src/app.py", "class App:\n    pass\n\ndef run():\n    pass\n")
	n := names(entries)

	assert.Contains(t, n["App"], "class@")
	assert.Contains(t, n["run"], "function@")
	assert.ElementsMatch(t, []string{n["App"] + " -> file", n["run"] + " -> file"}, edges(entries, "/childof"))
}

func TestFileNodeCarriesText(t *testing.T) {
	env := newTestEnv(t)
	entries := env.index("/src/main.go", goSource)

	var text string
	for _, en := range entries {
		if en.FactName == runtime.FactText {
			text = string(en.FactValue)
			assert.Equal(t, "/src/main.go", en.Source.Path)
			assert.Empty(t, en.Source.Signature)
		}
	}
	assert.Equal(t, goSource, text)
}
