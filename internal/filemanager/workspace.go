package filemanager

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// workspacePattern names the directory created under the temp prefix.
const workspacePattern = "keel_indexer"

// workspace is a temporary directory owned by one FileManager.
type workspace struct {
	root string
}

func createWorkspace(prefix string) (*workspace, error) {
	dir, err := os.MkdirTemp(prefix, workspacePattern)
	if err != nil {
		return nil, fmt.Errorf("filemanager: create workspace: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("filemanager: create workspace: %w", err), os.Remove(dir))
	}
	return &workspace{root: abs}, nil
}

// remove deletes the workspace bottom-up: each file as it is visited, each
// directory after its contents.
func (w *workspace) remove() error {
	var dirs []string
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, p)
			return nil
		}
		return os.Remove(p)
	})
	if err != nil {
		return fmt.Errorf("filemanager: remove workspace %s: %w", w.root, err)
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.Remove(dirs[i]); err != nil {
			return fmt.Errorf("filemanager: remove workspace %s: %w", w.root, err)
		}
	}
	return nil
}
