// Package vfs presents the inputs of a compilation manifest as a read-only
// filesystem. Only declared inputs (and their implicit parent directories)
// exist; nothing is ever read from the real disk through a virtual Path.
package vfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jward/keel/internal/manifest"
)

// ErrNotFound is returned by a DataProvider that has no content for a
// request. It is fs.ErrNotExist so callers can use either.
var ErrNotFound = fs.ErrNotExist

// DataProvider supplies the content of manifest inputs.
type DataProvider interface {
	Contents(ctx context.Context, path, digest string) ([]byte, error)
}

// FileSystem is a manifest-backed filesystem. It implements fs.FS with
// unrooted names ("a/b" is the absolute virtual path "/a/b").
type FileSystem struct {
	unit     *manifest.Unit
	provider DataProvider
	files    map[string]manifest.FileInput
	dirs     map[string]map[string]bool

	mu    sync.Mutex
	cache map[string][]byte
}

var (
	_ fs.FS         = (*FileSystem)(nil)
	_ fs.ReadDirFS  = (*FileSystem)(nil)
	_ fs.StatFS     = (*FileSystem)(nil)
	_ fs.ReadFileFS = (*FileSystem)(nil)
)

// New indexes the required inputs of unit. Relative input paths are resolved
// against the unit's working directory. Inputs with an empty path, or one
// naming the root, are skipped.
func New(unit *manifest.Unit, provider DataProvider) *FileSystem {
	f := &FileSystem{
		unit:     unit,
		provider: provider,
		files:    make(map[string]manifest.FileInput, len(unit.RequiredInputs)),
		dirs:     map[string]map[string]bool{"/": {}},
		cache:    make(map[string][]byte),
	}
	for _, in := range unit.RequiredInputs {
		if in.Info.Path == "" {
			continue
		}
		abs := unit.AbsPath(in.Info.Path)
		if abs == "/" {
			continue
		}
		f.files[abs] = in
		for child := abs; child != "/"; child = path.Dir(child) {
			parent := path.Dir(child)
			if f.dirs[parent] == nil {
				f.dirs[parent] = make(map[string]bool)
			}
			f.dirs[parent][path.Base(child)] = true
		}
	}
	return f
}

// Unit returns the manifest the filesystem was built from.
func (f *FileSystem) Unit() *manifest.Unit { return f.unit }

// Path returns the virtual path for name joined with rest. Relative names
// resolve against the unit's working directory. The path need not exist.
func (f *FileSystem) Path(name string, rest ...string) Path {
	return Path{name: f.unit.AbsPath(path.Join(append([]string{name}, rest...)...)), fsys: f}
}

func (f *FileSystem) isFile(abs string) bool {
	_, ok := f.files[abs]
	return ok
}

func (f *FileSystem) isDir(abs string) bool {
	_, ok := f.dirs[abs]
	return ok && !f.isFile(abs)
}

func (f *FileSystem) exists(abs string) bool {
	return f.isFile(abs) || f.isDir(abs)
}

// read returns the content of the input at abs, consulting the provider once.
func (f *FileSystem) read(ctx context.Context, abs string) ([]byte, error) {
	in, ok := f.files[abs]
	if !ok {
		if f.isDir(abs) {
			return nil, fmt.Errorf("vfs: %s is a directory", abs)
		}
		return nil, fmt.Errorf("vfs: %s: %w", abs, ErrNotFound)
	}

	f.mu.Lock()
	data, ok := f.cache[abs]
	f.mu.Unlock()
	if ok {
		return data, nil
	}

	data, err := f.provider.Contents(ctx, in.Info.Path, in.Info.Digest)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("vfs: %s: %w", abs, err)
		}
		return nil, fmt.Errorf("vfs: reading %s: %w", abs, err)
	}

	f.mu.Lock()
	f.cache[abs] = data
	f.mu.Unlock()
	return data, nil
}

func (f *FileSystem) entries(abs string) []fs.DirEntry {
	names := make([]string, 0, len(f.dirs[abs]))
	for name := range f.dirs[abs] {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]fs.DirEntry, 0, len(names))
	for _, name := range names {
		child := path.Join(abs, name)
		out = append(out, &dirEntry{fsys: f, abs: child, name: name, dir: f.isDir(child)})
	}
	return out
}

// absName converts an fs.FS name to an absolute virtual path.
func absName(op, name string) (string, error) {
	if !fs.ValidPath(name) {
		return "", &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		return "/", nil
	}
	return "/" + name, nil
}

// Open implements fs.FS.
func (f *FileSystem) Open(name string) (fs.File, error) {
	abs, err := absName("open", name)
	if err != nil {
		return nil, err
	}
	if f.isDir(abs) {
		return &dirFile{info: f.dirInfo(abs), entries: f.entries(abs)}, nil
	}
	data, err := f.read(context.Background(), abs)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return &file{Reader: bytes.NewReader(data), info: &fileInfo{name: path.Base(abs), size: int64(len(data))}}, nil
}

// ReadDir implements fs.ReadDirFS.
func (f *FileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	abs, err := absName("readdir", name)
	if err != nil {
		return nil, err
	}
	if !f.isDir(abs) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	return f.entries(abs), nil
}

// Stat implements fs.StatFS.
func (f *FileSystem) Stat(name string) (fs.FileInfo, error) {
	abs, err := absName("stat", name)
	if err != nil {
		return nil, err
	}
	if f.isDir(abs) {
		return f.dirInfo(abs), nil
	}
	data, err := f.read(context.Background(), abs)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	return &fileInfo{name: path.Base(abs), size: int64(len(data))}, nil
}

// ReadFile implements fs.ReadFileFS.
func (f *FileSystem) ReadFile(name string) ([]byte, error) {
	abs, err := absName("read", name)
	if err != nil {
		return nil, err
	}
	data, err := f.read(context.Background(), abs)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	return bytes.Clone(data), nil
}

func (f *FileSystem) dirInfo(abs string) *fileInfo {
	name := path.Base(abs)
	if abs == "/" {
		name = "."
	}
	return &fileInfo{name: name, dir: true}
}

// fsName converts an absolute virtual path to an fs.FS name.
func fsName(abs string) string {
	if abs == "/" {
		return "."
	}
	return strings.TrimPrefix(abs, "/")
}

// fileInfo is both fs.FileInfo and fs.DirEntry for virtual entries.
type fileInfo struct {
	name string
	dir  bool
	size int64
}

func (i *fileInfo) Name() string       { return i.name }
func (i *fileInfo) Size() int64        { return i.size }
func (i *fileInfo) ModTime() time.Time { return time.Time{} }
func (i *fileInfo) IsDir() bool        { return i.dir }
func (i *fileInfo) Sys() any           { return nil }

func (i *fileInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0o555
	}
	return 0o444
}

// dirEntry defers Stat until Info is called so listing a directory does not
// fetch content.
type dirEntry struct {
	fsys *FileSystem
	abs  string
	name string
	dir  bool
}

func (e *dirEntry) Name() string { return e.name }
func (e *dirEntry) IsDir() bool  { return e.dir }

func (e *dirEntry) Type() fs.FileMode {
	if e.dir {
		return fs.ModeDir
	}
	return 0
}

func (e *dirEntry) Info() (fs.FileInfo, error) { return e.fsys.Stat(fsName(e.abs)) }

type file struct {
	*bytes.Reader
	info *fileInfo
}

func (f *file) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *file) Close() error               { return nil }

type dirFile struct {
	info    *fileInfo
	entries []fs.DirEntry
	offset  int
}

func (d *dirFile) Stat() (fs.FileInfo, error) { return d.info, nil }
func (d *dirFile) Close() error               { return nil }

func (d *dirFile) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.info.name, Err: errors.New("is a directory")}
}

// ReadDir implements fs.ReadDirFile.
func (d *dirFile) ReadDir(n int) ([]fs.DirEntry, error) {
	rest := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	n = min(n, len(rest))
	d.offset += n
	return rest[:n], nil
}
