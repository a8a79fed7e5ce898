package manifest

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildArchive writes files and a unit referencing them into an archive.
func buildArchive(t *testing.T, files map[string]string) ([]byte, *Unit) {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	u := &Unit{VName: VName{Corpus: "test", Signature: "unit"}}
	for p, content := range files {
		digest, err := w.AddFile(strings.NewReader(content))
		require.NoError(t, err)
		u.RequiredInputs = append(u.RequiredInputs, FileInput{
			VName: VName{Path: p},
			Info:  FileInfo{Path: p, Digest: digest},
		})
		u.SourceFiles = append(u.SourceFiles, p)
	}
	_, err = w.AddUnit(u)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes(), u
}

func TestArchive_RoundTrip(t *testing.T) {
	t.Parallel()
	data, want := buildArchive(t, map[string]string{"a.go": "package a\n"})

	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	units, err := r.Units()
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, mustDigest(t, want), units[0].Digest)
	if diff := cmp.Diff(want, units[0].Unit); diff != "" {
		t.Errorf("unit mismatch (-want +got):\n%s", diff)
	}

	content, err := r.Contents(context.Background(), "a.go", want.RequiredInputs[0].Info.Digest)
	require.NoError(t, err)
	assert.Equal(t, "package a\n", string(content))

	looked, err := r.Lookup(mustDigest(t, want))
	require.NoError(t, err)
	assert.Equal(t, want.VName, looked.Unit.VName)
}

func TestArchive_MissingDigest(t *testing.T) {
	t.Parallel()
	data, _ := buildArchive(t, map[string]string{"a.go": "package a\n"})
	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	_, err = r.ReadAll("0000")
	require.ErrorIs(t, err, ErrDigestNotFound)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = r.Lookup("0000")
	require.ErrorIs(t, err, ErrDigestNotFound)

	_, err = r.Contents(context.Background(), "a.go", "")
	require.ErrorIs(t, err, ErrDigestNotFound)
}

func TestWriter_DuplicateUnit(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	u := &Unit{VName: VName{Signature: "dup"}}
	_, err = w.AddUnit(u)
	require.NoError(t, err)
	_, err = w.AddUnit(u)
	require.ErrorIs(t, err, ErrUnitExists)
	require.NoError(t, w.Close())
}

func TestWriter_DeduplicatesFiles(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	d1, err := w.AddFile(strings.NewReader("same"))
	require.NoError(t, err)
	d2, err := w.AddFile(strings.NewReader("same"))
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Equal(t, ContentDigest([]byte("same")), d1)
	require.NoError(t, w.Close())
}

func TestNewReader_RejectsEmptyAndRootless(t *testing.T) {
	t.Parallel()

	var empty bytes.Buffer
	zw := zip.NewWriter(&empty)
	require.NoError(t, zw.Close())
	_, err := NewReader(bytes.NewReader(empty.Bytes()), int64(empty.Len()))
	require.ErrorContains(t, err, "empty")

	var rootless bytes.Buffer
	zw = zip.NewWriter(&rootless)
	f, err := zw.Create("units/x")
	require.NoError(t, err)
	_, err = f.Write([]byte("{}"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	_, err = NewReader(bytes.NewReader(rootless.Bytes()), int64(rootless.Len()))
	require.ErrorContains(t, err, "not a directory")
}

func TestOpenArchive(t *testing.T) {
	t.Parallel()
	data, _ := buildArchive(t, map[string]string{"a.go": "package a\n"})
	name := filepath.Join(t.TempDir(), "unit.kzip")
	require.NoError(t, os.WriteFile(name, data, 0o644))

	r, err := OpenArchive(name)
	require.NoError(t, err)
	units, err := r.Units()
	require.NoError(t, err)
	assert.Len(t, units, 1)
	require.NoError(t, r.Close())
}

// =============================================================================
// Validation
// =============================================================================

func TestValidate(t *testing.T) {
	t.Parallel()
	data, u := buildArchive(t, map[string]string{"a.go": "package a\n", "b.go": "package b\n"})
	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	require.NoError(t, Validate(context.Background(), u, r))
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Parallel()
	data, u := buildArchive(t, map[string]string{"a.go": "package a\n"})
	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	u.RequiredInputs = append(u.RequiredInputs,
		FileInput{Info: FileInfo{Path: "nodigest.go"}},
		FileInput{Info: FileInfo{Path: "missing.go", Digest: "feed"}},
	)
	u.SourceFiles = append(u.SourceFiles, "undeclared.go")

	err = Validate(context.Background(), u, r)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "nodigest.go has no digest")
	assert.Contains(t, msg, "missing.go")
	assert.Contains(t, msg, "undeclared.go is not a required input")
}
