package vfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath_JoinAndNormalize(t *testing.T) {
	t.Parallel()
	fsys := newTestFS(t, map[string]string{"/a/b/c": "x"})

	p := fsys.Path("/a").Join("b", "../b", "c")
	assert.Equal(t, "/a/b/c", p.Name())
	assert.True(t, p.Virtual())
	assert.True(t, p.Exists())

	r := RealPath("/tmp/./x/").Normalize()
	assert.Equal(t, "/tmp/x", r.Name())
	assert.False(t, r.Virtual())
}

func TestPath_Within(t *testing.T) {
	t.Parallel()
	dir := RealPath("/tmp/ws")
	assert.True(t, RealPath("/tmp/ws").Within(dir))
	assert.True(t, RealPath("/tmp/ws/system/lib").Within(dir))
	assert.False(t, RealPath("/tmp/wsx").Within(dir))
	assert.False(t, RealPath("/tmp").Within(dir))

	fsys := newTestFS(t, nil)
	assert.False(t, fsys.Path("/tmp/ws/x").Within(dir), "different filesystems never nest")
}

func TestPath_RealFilesystem(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	name := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(name, []byte("disk"), 0o644))

	p := RealPath(name)
	assert.True(t, p.Exists())
	assert.False(t, p.IsDir())
	assert.True(t, RealPath(dir).IsDir())
}

func TestPath_WalkVirtual(t *testing.T) {
	t.Parallel()
	fsys := newTestFS(t, map[string]string{
		"/jdk/lib/jrt-fs.jar": "jar",
		"/jdk/lib/modules":    "mods",
		"/jdk/lib/security/x": "sec",
		"/jdk/bin/java":       "bin",
	})

	var visited []string
	err := fsys.Path("/jdk/lib").Walk(func(p Path, d fs.DirEntry, err error) error {
		require.NoError(t, err)
		assert.True(t, p.Virtual())
		visited = append(visited, p.Name())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/jdk/lib",
		"/jdk/lib/jrt-fs.jar",
		"/jdk/lib/modules",
		"/jdk/lib/security",
		"/jdk/lib/security/x",
	}, visited)
}

func TestPath_Rel(t *testing.T) {
	t.Parallel()
	fsys := newTestFS(t, nil)
	rel, err := fsys.Path("/jdk/lib/a/b").Rel(fsys.Path("/jdk"))
	require.NoError(t, err)
	assert.Equal(t, "lib/a/b", rel)
}
