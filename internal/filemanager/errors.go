package filemanager

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTempDir is returned when a bundled system image must be
	// materialized but no temporary directory prefix was configured.
	ErrNoTempDir = errors.New("filemanager: temporary directory needed but not provided")
	// ErrWorkspaceExists is returned on a second attempt to create the
	// temporary workspace.
	ErrWorkspaceExists = errors.New("filemanager: temporary workspace already created")
	// ErrInvalidArgument classifies option values the file manager rejects.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnsupportedVersion classifies calls to operations the front end
	// does not provide.
	ErrUnsupportedVersion = errors.New("unsupported front-end version")
)

// InvalidSystemError reports a --system value that is neither a bundled
// nor an exploded system image.
type InvalidSystemError struct {
	Value string
}

func (e *InvalidSystemError) Error() string {
	return fmt.Sprintf("filemanager: --system %s: not a system image", e.Value)
}

func (e *InvalidSystemError) Unwrap() error { return ErrInvalidArgument }

// UnsupportedError reports an optional operation invoked against a front
// end whose API revision lacks it.
type UnsupportedError struct {
	Op      string
	Version int
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("filemanager: %s called by unsupported front-end version %d", e.Op, e.Version)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupportedVersion }
