package vfs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Path names a file either inside a manifest FileSystem or on the real disk.
// The zero Path is invalid.
type Path struct {
	name string
	fsys *FileSystem // nil for real-disk paths
}

// RealPath returns a path bound to the real filesystem.
func RealPath(name string) Path {
	return Path{name: name}
}

// Name returns the path as a string.
func (p Path) Name() string { return p.name }

func (p Path) String() string {
	if p.Virtual() {
		return "vfs:" + p.name
	}
	return p.name
}

// Virtual reports whether p is bound to a manifest FileSystem.
func (p Path) Virtual() bool { return p.fsys != nil }

// IsZero reports whether p is the zero Path.
func (p Path) IsZero() bool { return p.name == "" && p.fsys == nil }

// FS returns the FileSystem p belongs to, or nil for real-disk paths.
func (p Path) FS() *FileSystem { return p.fsys }

// FSName returns the fs.FS name of a virtual path.
func (p Path) FSName() string { return fsName(p.name) }

// Join appends elem to p in the same filesystem.
func (p Path) Join(elem ...string) Path {
	if p.Virtual() {
		return Path{name: path.Join(append([]string{p.name}, elem...)...), fsys: p.fsys}
	}
	return Path{name: filepath.Join(append([]string{p.name}, elem...)...)}
}

// Normalize returns p with redundant separators and dot segments removed.
func (p Path) Normalize() Path {
	if p.Virtual() {
		return Path{name: path.Clean(p.name), fsys: p.fsys}
	}
	return Path{name: filepath.Clean(p.name)}
}

// Abs returns the absolute form of p. Virtual paths are always absolute.
func (p Path) Abs() (Path, error) {
	if p.Virtual() {
		return p, nil
	}
	abs, err := filepath.Abs(p.name)
	if err != nil {
		return Path{}, fmt.Errorf("vfs: absolute path of %s: %w", p.name, err)
	}
	return Path{name: abs}, nil
}

// Within reports whether p equals dir or is nested under it. Both paths must
// be in the same filesystem and should be absolute.
func (p Path) Within(dir Path) bool {
	if p.fsys != dir.fsys {
		return false
	}
	rel, err := filepath.Rel(dir.name, p.name)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Rel returns p relative to base, using slash separators.
func (p Path) Rel(base Path) (string, error) {
	rel, err := filepath.Rel(base.name, p.name)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// Exists reports whether p names an existing file or directory.
func (p Path) Exists() bool {
	if p.Virtual() {
		return p.fsys.exists(p.name)
	}
	_, err := os.Stat(p.name)
	return err == nil
}

// IsDir reports whether p names an existing directory.
func (p Path) IsDir() bool {
	if p.Virtual() {
		return p.fsys.isDir(p.name)
	}
	info, err := os.Stat(p.name)
	return err == nil && info.IsDir()
}

// ReadFile returns the content of p.
func (p Path) ReadFile(ctx context.Context) ([]byte, error) {
	if p.Virtual() {
		return p.fsys.read(ctx, p.name)
	}
	return os.ReadFile(p.name)
}

// ReadDir lists the entries of directory p sorted by name.
func (p Path) ReadDir() ([]fs.DirEntry, error) {
	if p.Virtual() {
		return p.fsys.ReadDir(p.FSName())
	}
	return os.ReadDir(p.name)
}

// Walk calls fn for p and everything beneath it in lexical order, like
// fs.WalkDir. Paths passed to fn are in p's filesystem.
func (p Path) Walk(fn func(Path, fs.DirEntry, error) error) error {
	if p.Virtual() {
		return fs.WalkDir(p.fsys, p.FSName(), func(name string, d fs.DirEntry, err error) error {
			return fn(Path{name: "/" + strings.TrimPrefix(name, "/"), fsys: p.fsys}.Normalize(), d, err)
		})
	}
	return filepath.WalkDir(p.name, func(name string, d fs.DirEntry, err error) error {
		return fn(RealPath(name), d, err)
	})
}
