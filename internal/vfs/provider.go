package vfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jward/keel/internal/manifest"
)

// MapProvider serves content from memory, keyed by digest.
type MapProvider map[string][]byte

// Contents implements DataProvider.
func (m MapProvider) Contents(_ context.Context, path, digest string) ([]byte, error) {
	data, ok := m[digest]
	if !ok {
		return nil, fmt.Errorf("vfs: no content for %s (%s): %w", path, digest, ErrNotFound)
	}
	return data, nil
}

// Inputs builds a MapProvider and the matching required inputs for files,
// keyed by path. Inputs are ordered by path.
func Inputs(files map[string][]byte) (MapProvider, []manifest.FileInput) {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	provider := make(MapProvider, len(files))
	inputs := make([]manifest.FileInput, 0, len(files))
	for _, p := range paths {
		digest := manifest.ContentDigest(files[p])
		provider[digest] = files[p]
		inputs = append(inputs, manifest.FileInput{
			VName: manifest.VName{Path: p},
			Info:  manifest.FileInfo{Path: p, Digest: digest},
		})
	}
	return provider, inputs
}

// DirProvider serves content from files named by digest in a directory.
type DirProvider string

// Contents implements DataProvider.
func (d DirProvider) Contents(_ context.Context, path, digest string) ([]byte, error) {
	if digest == "" || filepath.Base(digest) != digest {
		return nil, fmt.Errorf("vfs: invalid digest %q for %s: %w", digest, path, ErrNotFound)
	}
	data, err := os.ReadFile(filepath.Join(string(d), digest))
	if err != nil {
		return nil, fmt.Errorf("vfs: content for %s: %w", path, err)
	}
	return data, nil
}
