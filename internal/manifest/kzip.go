package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

var (
	// ErrDigestNotFound is returned when a requested unit or file digest is
	// not present in the archive.
	ErrDigestNotFound = fmt.Errorf("digest not found: %w", fs.ErrNotExist)

	// ErrUnitExists is returned by Writer.AddUnit for a duplicate unit.
	ErrUnitExists = errors.New("unit already exists")
)

// indexedUnit is the on-disk form of a unit inside an archive.
type indexedUnit struct {
	Unit *Unit `json:"unit"`
}

// ArchivedUnit is a unit read from an archive together with its digest.
type ArchivedUnit struct {
	Digest string
	Unit   *Unit
}

// Reader reads units and file contents from a kzip archive. Archives keep
// unit JSON under <root>/units/<digest> and content under
// <root>/files/<sha256>.
type Reader struct {
	zip    *zip.Reader
	root   string
	byName map[string]*zip.File
	closer io.Closer
}

// NewReader opens an archive over r. The first entry must be the root
// directory; its name is used as the root whatever it is called.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	archive, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("manifest: open archive: %w", err)
	}
	if len(archive.File) == 0 {
		return nil, errors.New("manifest: archive is empty")
	} else if fi := archive.File[0].FileInfo(); !fi.IsDir() {
		return nil, errors.New("manifest: archive root is not a directory")
	}
	byName := make(map[string]*zip.File, len(archive.File))
	for _, f := range archive.File {
		byName[f.Name] = f
	}
	return &Reader{
		zip:    archive,
		root:   strings.TrimSuffix(archive.File[0].Name, "/"),
		byName: byName,
	}, nil
}

// OpenArchive opens the archive file at name. The caller must Close it.
func OpenArchive(name string) (*Reader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("manifest: open archive: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("manifest: stat archive: %w", err)
	}
	r, err := NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Close releases the underlying file, if the Reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func (r *Reader) unitPath(digest string) string { return path.Join(r.root, "units", digest) }
func (r *Reader) filePath(digest string) string { return path.Join(r.root, "files", digest) }

// Lookup returns the unit with the given digest.
func (r *Reader) Lookup(digest string) (*ArchivedUnit, error) {
	f, ok := r.byName[r.unitPath(digest)]
	if !ok {
		return nil, fmt.Errorf("manifest: unit %s: %w", digest, ErrDigestNotFound)
	}
	return readUnit(digest, f)
}

// Units returns every unit in the archive ordered by digest.
func (r *Reader) Units() ([]*ArchivedUnit, error) {
	prefix := r.unitPath("") + "/"
	var digests []string
	for name, f := range r.byName {
		if strings.HasPrefix(name, prefix) && !f.FileInfo().IsDir() {
			digests = append(digests, strings.TrimPrefix(name, prefix))
		}
	}
	sort.Strings(digests)

	units := make([]*ArchivedUnit, 0, len(digests))
	for _, d := range digests {
		u, err := readUnit(d, r.byName[r.unitPath(d)])
		if err != nil {
			return nil, fmt.Errorf("manifest: unit %s: %w", d, err)
		}
		units = append(units, u)
	}
	return units, nil
}

func readUnit(digest string, f *zip.File) (*ArchivedUnit, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var msg indexedUnit
	if err := json.NewDecoder(rc).Decode(&msg); err != nil {
		return nil, fmt.Errorf("decode unit: %w", err)
	}
	if msg.Unit == nil {
		return nil, errors.New("archived unit has no body")
	}
	return &ArchivedUnit{Digest: digest, Unit: msg.Unit}, nil
}

// ReadAll returns the content stored under digest.
func (r *Reader) ReadAll(digest string) ([]byte, error) {
	f, ok := r.byName[r.filePath(digest)]
	if !ok {
		return nil, fmt.Errorf("manifest: file %s: %w", digest, ErrDigestNotFound)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("manifest: open file %s: %w", digest, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Contents returns the content for a required input. Archives address
// content by digest only, so path is used for error messages.
func (r *Reader) Contents(_ context.Context, p, digest string) ([]byte, error) {
	if digest == "" {
		return nil, fmt.Errorf("manifest: %s has no digest: %w", p, ErrDigestNotFound)
	}
	return r.ReadAll(digest)
}

// Writer builds a kzip archive.
type Writer struct {
	zip   *zip.Writer
	root  string
	files map[string]bool
	units map[string]bool
}

// NewWriter starts an archive on w with the conventional "root" directory.
func NewWriter(w io.Writer) (*Writer, error) {
	kw := &Writer{
		zip:   zip.NewWriter(w),
		root:  "root",
		files: make(map[string]bool),
		units: make(map[string]bool),
	}
	for _, dir := range []string{kw.root + "/", kw.root + "/units/", kw.root + "/files/"} {
		if _, err := kw.zip.CreateHeader(&zip.FileHeader{
			Name:     dir,
			Method:   zip.Store,
			Modified: time.Unix(0, 0),
		}); err != nil {
			return nil, fmt.Errorf("manifest: create %s: %w", dir, err)
		}
	}
	return kw, nil
}

// AddFile stores the content of r and returns its digest. Storing the same
// content twice is a no-op.
func (w *Writer) AddFile(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("manifest: read file: %w", err)
	}
	digest := ContentDigest(data)
	if w.files[digest] {
		return digest, nil
	}
	if err := w.write(path.Join(w.root, "files", digest), data); err != nil {
		return "", err
	}
	w.files[digest] = true
	return digest, nil
}

// AddUnit stores u and returns its digest.
func (w *Writer) AddUnit(u *Unit) (string, error) {
	digest, err := u.Digest()
	if err != nil {
		return "", err
	}
	if w.units[digest] {
		return digest, ErrUnitExists
	}
	data, err := json.Marshal(indexedUnit{Unit: u})
	if err != nil {
		return "", fmt.Errorf("manifest: encode unit: %w", err)
	}
	if err := w.write(path.Join(w.root, "units", digest), data); err != nil {
		return "", err
	}
	w.units[digest] = true
	return digest, nil
}

func (w *Writer) write(name string, data []byte) error {
	f, err := w.zip.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Unix(0, 0),
	})
	if err != nil {
		return fmt.Errorf("manifest: create %s: %w", name, err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("manifest: write %s: %w", name, err)
	}
	return nil
}

// Close finishes the archive. It does not close the underlying writer.
func (w *Writer) Close() error {
	return w.zip.Close()
}
