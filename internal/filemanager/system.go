package filemanager

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jward/keel/internal/frontend"
	"github.com/jward/keel/internal/vfs"
)

// bundledMarker identifies a bundled system image under <image>/lib.
const bundledMarker = "jrt-fs.jar"

// setSystem handles a --system value. A bundled image is copied into the
// workspace and handed to the delegate, which only accepts real-disk
// images. An exploded image binds SystemModules directly, skipping the
// delegate's validator.
func (fm *FileManager) setSystem(ctx context.Context, value string) error {
	sys := fm.fsys.Path(value).Normalize()
	switch {
	case sys.Join("lib", bundledMarker).Exists():
		systemRoot, err := fm.materialize(ctx, sys)
		if err != nil {
			return err
		}
		fm.log.Info("setting system path", zap.String("path", systemRoot))
		_, handled, err := fm.delegate.HandleOption("--system", []string{systemRoot})
		if err != nil {
			return err
		}
		if !handled {
			return fmt.Errorf("filemanager: front end does not accept --system")
		}
		return nil
	case sys.Join("modules").IsDir():
		return fm.caps.paths.SetLocationFromPaths(frontend.SystemModules, []vfs.Path{sys.Join("modules")})
	default:
		return &InvalidSystemError{Value: value}
	}
}

// materialize copies <sys>/lib into a fresh workspace as system/lib and
// returns the system directory.
func (fm *FileManager) materialize(ctx context.Context, sys vfs.Path) (string, error) {
	if fm.tempPrefix == "" {
		fm.log.Error("can't create temporary directory to store system modules because no temporary directory was provided")
		return "", ErrNoTempDir
	}
	if fm.workspace != nil {
		return "", ErrWorkspaceExists
	}
	ws, err := createWorkspace(fm.tempPrefix)
	if err != nil {
		return "", err
	}
	fm.workspace = ws

	systemRoot := filepath.Join(ws.root, "system")
	if err := os.Mkdir(systemRoot, 0o755); err != nil {
		return "", fmt.Errorf("filemanager: create system dir: %w", err)
	}

	err = sys.Join("lib").Walk(func(p vfs.Path, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := p.Rel(sys)
		if err != nil {
			return err
		}
		target := filepath.Join(systemRoot, filepath.FromSlash(rel))
		if d.IsDir() {
			return os.Mkdir(target, 0o755)
		}
		data, err := p.ReadFile(ctx)
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return err
		}
		fm.log.Debug("copied file", zap.String("path", target))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("filemanager: materialize system image %s: %w", sys.Name(), err)
	}
	return systemRoot, nil
}
