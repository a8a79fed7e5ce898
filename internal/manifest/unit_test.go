package manifest

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const unitJSON = `{
  "v_name": {"corpus": "example", "language": "java", "signature": "//pkg:lib"},
  "required_input": [
    {"v_name": {"path": "src/A.java"}, "info": {"path": "src/A.java", "digest": "abc"}},
    {"v_name": {"path": "/jdk/lib/jrt-fs.jar"}, "info": {"path": "/jdk/lib/jrt-fs.jar", "digest": "def"}}
  ],
  "source_file": ["src/A.java"],
  "argument": ["--system", "/jdk"],
  "working_directory": "/work",
  "details": [
    {"type_url": "keel.dev/proto/keel.PathDetails", "value": {"classpath": ["lib/dep.jar"]}}
  ]
}`

func TestReadUnit(t *testing.T) {
	t.Parallel()
	u, err := ReadUnit(strings.NewReader(unitJSON))
	require.NoError(t, err)

	assert.Equal(t, "example", u.VName.Corpus)
	assert.Equal(t, "//pkg:lib", u.VName.Signature)
	require.Len(t, u.RequiredInputs, 2)
	assert.Equal(t, "abc", u.RequiredInputs[0].Info.Digest)
	assert.Equal(t, []string{"--system", "/jdk"}, u.Arguments)
	assert.Equal(t, "/work", u.Root())
}

func TestReadUnit_RejectsUnknownFields(t *testing.T) {
	t.Parallel()
	_, err := ReadUnit(strings.NewReader(`{"v_name": {}, "bogus": 1}`))
	require.Error(t, err)
}

func TestUnit_WriteReadPreservesDigest(t *testing.T) {
	t.Parallel()
	u, err := ReadUnit(strings.NewReader(unitJSON))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteUnit(&buf, u))
	back, err := ReadUnit(&buf)
	require.NoError(t, err)
	assert.Equal(t, mustDigest(t, u), mustDigest(t, back))
}

func TestUnit_DigestRejectsInvalidDetail(t *testing.T) {
	t.Parallel()
	u := &Unit{Details: []Detail{{TypeURL: PathDetailsURL, Value: json.RawMessage(`{"classpath": [`)}}}

	_, err := u.Digest()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digest unit")

	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.AddUnit(u)
	require.Error(t, err)
}

func mustDigest(t *testing.T, u *Unit) string {
	t.Helper()
	d, err := u.Digest()
	require.NoError(t, err)
	return d
}

func TestUnit_AbsPathAndInput(t *testing.T) {
	t.Parallel()
	u, err := ReadUnit(strings.NewReader(unitJSON))
	require.NoError(t, err)

	assert.Equal(t, "/work/src/A.java", u.AbsPath("src/A.java"))
	assert.Equal(t, "/jdk/lib", u.AbsPath("/jdk/./lib/"))

	in, ok := u.Input("/work/src/A.java")
	require.True(t, ok)
	assert.Equal(t, "abc", in.Info.Digest)

	_, ok = u.Input("src/B.java")
	assert.False(t, ok)
}

func TestUnit_RootDefaultsToSlash(t *testing.T) {
	t.Parallel()
	u := &Unit{}
	assert.Equal(t, "/", u.Root())
	assert.Equal(t, "/a/b", u.AbsPath("a/b"))
}

// =============================================================================
// Details
// =============================================================================

func TestFindPathDetails_FirstMatch(t *testing.T) {
	t.Parallel()
	first, err := NewPathDetail(PathDetails{Classpath: []string{"one.jar"}})
	require.NoError(t, err)
	second, err := NewPathDetail(PathDetails{Classpath: []string{"two.jar"}})
	require.NoError(t, err)

	u := &Unit{Details: []Detail{
		{TypeURL: "example.com/Other", Value: json.RawMessage(`{}`)},
		first,
		second,
	}}
	pd, ok := FindPathDetails(u, nil)
	require.True(t, ok)
	assert.Equal(t, []string{"one.jar"}, pd.Classpath)
}

func TestFindPathDetails_LegacyTypeURL(t *testing.T) {
	t.Parallel()
	u := &Unit{Details: []Detail{{
		TypeURL: "kythe.io/proto/kythe.proto.JavaDetails",
		Value:   json.RawMessage(`{"sourcepath": ["src"], "bootclasspath": ["/jdk/rt.jar"]}`),
	}}}
	pd, ok := FindPathDetails(u, nil)
	require.True(t, ok)
	assert.Equal(t, []string{"src"}, pd.Sourcepath)
	assert.Equal(t, []string{"/jdk/rt.jar"}, pd.Bootclasspath)
}

func TestFindPathDetails_SkipsUndecodable(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.WarnLevel)
	good, err := NewPathDetail(PathDetails{Sourcepath: []string{"src"}})
	require.NoError(t, err)

	u := &Unit{Details: []Detail{
		{TypeURL: PathDetailsURL, Value: json.RawMessage(`{"classpath": 7}`)},
		good,
	}}
	pd, ok := FindPathDetails(u, zap.New(core))
	require.True(t, ok)
	assert.Equal(t, []string{"src"}, pd.Sourcepath)
	assert.Equal(t, 1, logs.FilterMessage("error unpacking path details").Len())
}

func TestFindPathDetails_Absent(t *testing.T) {
	t.Parallel()
	_, ok := FindPathDetails(&Unit{}, nil)
	assert.False(t, ok)
}
