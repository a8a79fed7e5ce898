package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/keel/internal/manifest"
)

func TestSpan_Valid(t *testing.T) {
	t.Parallel()
	assert.True(t, Span{0, 0}.Valid())
	assert.True(t, Span{3, 9}.Valid())
	assert.False(t, Span{9, 3}.Valid())
	assert.False(t, Span{-1, 3}.Valid())
}

func TestPositions_NoSpanIsUniform(t *testing.T) {
	t.Parallel()
	_, comp := compileUnit(t, map[string]string{
		"/src/A.java": "class A { void a() {} }",
		"/src/B.java": "class B {}",
	}, "/src/A.java", "/src/B.java")
	a, b := comp.Files[0], comp.Files[1]
	pos := NewPositions(a)

	root, ok := pos.Span(a.Root())
	require.True(t, ok)
	assert.Equal(t, Span{0, len(a.Source)}, root)

	_, ok = pos.Span(b.Root())
	assert.False(t, ok, "node from another file")

	decl := a.Symbols[0].Decl
	pos.spans[decl] = Span{Start: 10, End: 4}
	_, ok = pos.Span(decl)
	assert.False(t, ok, "inverted span")

	pos.spans[decl] = Span{Start: -2, End: 4}
	_, ok = pos.Span(decl)
	assert.False(t, ok, "negative span")
}

func TestPositions_FindIdentifier(t *testing.T) {
	t.Parallel()
	pos := &Positions{text: []byte("foo foobar _foo foo")}

	s, ok := pos.FindIdentifier("foo", 0)
	require.True(t, ok)
	assert.Equal(t, Span{0, 3}, s)

	s, ok = pos.FindIdentifier("foo", 1)
	require.True(t, ok)
	assert.Equal(t, Span{16, 19}, s)

	_, ok = pos.FindIdentifier("foo", 17)
	assert.False(t, ok)
	_, ok = pos.FindIdentifier("", 0)
	assert.False(t, ok)
	_, ok = pos.FindIdentifier("foo", 100)
	assert.False(t, ok)
}

func TestSession_FileVName(t *testing.T) {
	t.Parallel()
	rules, err := manifest.ParseRules([]byte(`[{"pattern": "/gen/(.*)", "vname": {"corpus": "generated", "path": "@1@"}}]`))
	require.NoError(t, err)

	unit := &manifest.Unit{
		VName:            manifest.VName{Corpus: "main", Root: "r"},
		WorkingDirectory: "/work",
		RequiredInputs: []manifest.FileInput{{
			VName: manifest.VName{Corpus: "declared", Root: "dr", Path: "pkg/A.java"},
			Info:  manifest.FileInfo{Path: "src/A.java", Digest: "d"},
		}, {
			VName: manifest.VName{Path: "pkg/D.java"},
			Info:  manifest.FileInfo{Path: "src/D.java", Digest: "e"},
		}},
	}

	tests := []struct {
		name string
		cfg  Config
		path string
		want manifest.VName
	}{
		{"declared", Config{}, "src/A.java", manifest.VName{Corpus: "declared", Root: "dr", Path: "pkg/A.java"}},
		{"declared path only", Config{}, "src/D.java", manifest.VName{Corpus: "main", Root: "r", Path: "pkg/D.java"}},
		{"declared path only ignore roots", Config{IgnoreVNameRoots: true}, "src/D.java", manifest.VName{Corpus: "main", Path: "pkg/D.java"}},
		{"rule", Config{Rules: rules}, "/gen/B.java", manifest.VName{Corpus: "generated", Path: "B.java"}},
		{"default", Config{}, "/other/C.java", manifest.VName{Corpus: "main", Root: "r", Path: "/other/C.java"}},
		{"ignore paths", Config{IgnoreVNamePaths: true}, "src/A.java", manifest.VName{Corpus: "declared", Root: "dr", Path: "/work/src/A.java"}},
		{"ignore roots", Config{IgnoreVNameRoots: true}, "src/A.java", manifest.VName{Corpus: "declared", Path: "pkg/A.java"}},
		{"override corpus", Config{OverrideCorpus: "x"}, "/other/C.java", manifest.VName{Corpus: "x", Root: "r", Path: "/other/C.java"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sess := newSession(unit, tt.cfg, "run")
			assert.Equal(t, tt.want, sess.FileVName(tt.path))
		})
	}
}
