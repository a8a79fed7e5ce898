package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRules_FirstMatchWins(t *testing.T) {
	t.Parallel()
	rules, err := ParseRules([]byte(`[
	  {"pattern": "third_party/([^/]+)/(.*)", "vname": {"corpus": "@1@", "path": "@2@"}},
	  {"pattern": "(.*)", "vname": {"corpus": "main", "path": "@1@"}}
	]`))
	require.NoError(t, err)
	require.Len(t, rules, 2)

	v, ok := rules.Apply("third_party/guava/src/Lists.java")
	require.True(t, ok)
	assert.Equal(t, VName{Corpus: "guava", Path: "src/Lists.java"}, v)

	v, ok = rules.Apply("src/A.java")
	require.True(t, ok)
	assert.Equal(t, VName{Corpus: "main", Path: "src/A.java"}, v)
}

func TestRules_AnchoredPatterns(t *testing.T) {
	t.Parallel()
	rules, err := ParseRules([]byte(`[{"pattern": "^src/.*\\.go$", "vname": {"root": "go"}}]`))
	require.NoError(t, err)

	_, ok := rules.Apply("x/src/a.go")
	assert.False(t, ok)
	_, ok = rules.Apply("src/a.go.bak")
	assert.False(t, ok)
	v, ok := rules.Apply("src/a.go")
	require.True(t, ok)
	assert.Equal(t, "go", v.Root)
}

func TestRules_ApplyDefault(t *testing.T) {
	t.Parallel()
	var rules Rules
	def := VName{Corpus: "fallback"}
	assert.Equal(t, def, rules.ApplyDefault("anything", def))
}

func TestRules_LiteralDollar(t *testing.T) {
	t.Parallel()
	rule, err := CompileRule(RuleSpec{Pattern: "(.*)", VName: VName{Path: "$x/@1@"}})
	require.NoError(t, err)
	v, ok := rule.Apply("a")
	require.True(t, ok)
	assert.Equal(t, "$x/a", v.Path)
}

func TestParseRules_InvalidPattern(t *testing.T) {
	t.Parallel()
	_, err := ParseRules([]byte(`[{"pattern": "(", "vname": {}}]`))
	require.Error(t, err)
}

func TestLoadRules_EmptyPath(t *testing.T) {
	t.Parallel()
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Nil(t, rules)
}
