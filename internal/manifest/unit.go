// Package manifest describes one compilation's complete input closure: the
// unit identity, every required input with its content digest, the raw
// front-end arguments, and typed detail attachments. Units are read from the
// JSON unit format or from a kzip archive.
package manifest

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
)

// VName identifies a node in the fact graph. A unit's VName is its identity.
type VName struct {
	Corpus    string `json:"corpus,omitempty"`
	Root      string `json:"root,omitempty"`
	Path      string `json:"path,omitempty"`
	Language  string `json:"language,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// IsZero reports whether every field of v is empty.
func (v VName) IsZero() bool {
	return v == VName{}
}

func (v VName) String() string {
	return fmt.Sprintf("%s/%s/%s#%s[%s]", v.Corpus, v.Root, v.Path, v.Signature, v.Language)
}

// FileInfo locates one input's content.
type FileInfo struct {
	Path   string `json:"path"`
	Digest string `json:"digest,omitempty"`
}

// FileInput is one required input of a compilation.
type FileInput struct {
	VName VName    `json:"v_name"`
	Info  FileInfo `json:"info"`
}

// Detail is a typed attachment. Value holds the JSON encoding of the message
// named by TypeURL.
type Detail struct {
	TypeURL string          `json:"type_url"`
	Value   json.RawMessage `json:"value,omitempty"`
}

// Unit is a compilation manifest. A Unit is immutable once loaded; callers
// own it for the duration of one compilation.
type Unit struct {
	VName            VName       `json:"v_name"`
	RequiredInputs   []FileInput `json:"required_input,omitempty"`
	SourceFiles      []string    `json:"source_file,omitempty"`
	Arguments        []string    `json:"argument,omitempty"`
	WorkingDirectory string      `json:"working_directory,omitempty"`
	Details          []Detail    `json:"details,omitempty"`
}

// ReadUnit decodes a JSON-encoded Unit from r.
func ReadUnit(r io.Reader) (*Unit, error) {
	var u Unit
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&u); err != nil {
		return nil, fmt.Errorf("manifest: decode unit: %w", err)
	}
	return &u, nil
}

// LoadUnit reads a JSON-encoded Unit from the file at path.
func LoadUnit(path string) (*Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: open unit: %w", err)
	}
	defer f.Close()
	return ReadUnit(f)
}

// WriteUnit writes the JSON encoding of u to w.
func WriteUnit(w io.Writer, u *Unit) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(u); err != nil {
		return fmt.Errorf("manifest: encode unit: %w", err)
	}
	return nil
}

// Digest returns the hex SHA-256 of the unit's canonical JSON encoding. It
// fails when a detail value is not valid JSON.
func (u *Unit) Digest() (string, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(u); err != nil {
		return "", fmt.Errorf("manifest: digest unit: %w", err)
	}
	return fmt.Sprintf("%x", sha256.Sum256(buf.Bytes())), nil
}

// Root returns the directory relative input paths are resolved against.
func (u *Unit) Root() string {
	if u.WorkingDirectory == "" {
		return "/"
	}
	return path.Clean("/" + u.WorkingDirectory)
}

// Input returns the required input declared at p, matching either the
// declared path or its absolute form under the working directory.
func (u *Unit) Input(p string) (FileInput, bool) {
	want := u.AbsPath(p)
	for _, in := range u.RequiredInputs {
		if u.AbsPath(in.Info.Path) == want {
			return in, true
		}
	}
	return FileInput{}, false
}

// AbsPath cleans p and resolves it against the unit's working directory.
func (u *Unit) AbsPath(p string) string {
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join(u.Root(), p)
}

// ContentDigest returns the hex SHA-256 digest used to address file content.
func ContentDigest(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
