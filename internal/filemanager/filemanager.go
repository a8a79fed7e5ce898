// Package filemanager resolves a compilation's search-path locations from
// its manifest. A FileManager wraps the front end's own file manager: path
// lookups go to the manifest-backed VFS, with two escapes to the real disk
// (the temporary workspace and default boot-path entries the manifest does
// not provide). It also materializes bundled system images for the front
// end and shields callers from front-end API revisions that lack optional
// operations.
package filemanager

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jward/keel/internal/frontend"
	"github.com/jward/keel/internal/manifest"
	"github.com/jward/keel/internal/vfs"
)

// FileManager is a frontend.StandardFileManager serving one compilation.
// It is not safe for concurrent use.
type FileManager struct {
	delegate frontend.StandardFileManager
	caps     capabilities
	fsys     *vfs.FileSystem
	unit     *manifest.Unit

	// defaultBootPath holds the delegate's initial platform class path,
	// normalized.
	defaultBootPath map[string]bool

	tempPrefix string
	workspace  *workspace

	log *zap.Logger
}

var (
	_ frontend.StandardFileManager = (*FileManager)(nil)
	_ frontend.Versioned           = (*FileManager)(nil)
	_ frontend.PathOps             = (*FileManager)(nil)
	_ frontend.ModuleOps           = (*FileManager)(nil)
)

// Option configures a FileManager.
type Option func(*FileManager)

// WithTempDir sets the directory under which a system image may be
// materialized.
func WithTempDir(prefix string) Option {
	return func(fm *FileManager) {
		fm.tempPrefix = prefix
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(fm *FileManager) {
		fm.log = log
	}
}

// New creates a FileManager for unit. Content is read from provider;
// delegate is the front end's file manager.
func New(unit *manifest.Unit, provider vfs.DataProvider, delegate frontend.StandardFileManager, opts ...Option) (*FileManager, error) {
	fm := &FileManager{
		delegate:        delegate,
		caps:            negotiate(delegate),
		unit:            unit,
		defaultBootPath: make(map[string]bool),
		log:             zap.NewNop(),
	}
	for _, opt := range opts {
		opt(fm)
	}
	if fm.tempPrefix != "" {
		abs, err := filepath.Abs(fm.tempPrefix)
		if err != nil {
			return nil, fmt.Errorf("filemanager: temp dir %s: %w", fm.tempPrefix, err)
		}
		fm.tempPrefix = abs
	}

	for _, name := range delegate.Location(frontend.PlatformClassPath) {
		fm.defaultBootPath[filepath.Clean(name)] = true
	}

	fm.fsys = vfs.New(unit, provider)
	if err := fm.caps.paths.SetPathFactory(fm.Path); err != nil {
		fm.log.Warn("front end cannot resolve flag paths through the manifest",
			zap.Int("api_version", fm.caps.version), zap.Error(err))
	}

	details, ok := manifest.FindPathDetails(unit, fm.log)
	if !ok {
		fm.log.Info("compilation missing path details; falling back to flag parsing")
		return fm, nil
	}
	fm.setLocations(fm.locationMap(details))
	return fm, nil
}

type binding struct {
	loc   frontend.Location
	paths []vfs.Path
}

// locationMap translates path details into location bindings. The boot
// class path resolves through Path so it may fall back to the real disk;
// the others come only from the manifest. Empty bindings are dropped.
func (fm *FileManager) locationMap(d *manifest.PathDetails) []binding {
	all := []binding{
		{frontend.ClassPath, fm.toPaths(d.Classpath, fm.fsys.Path)},
		{frontend.ModulePath, fm.toPaths(d.Classpath, fm.fsys.Path)},
		{frontend.SourcePath, fm.toPaths(d.Sourcepath, fm.fsys.Path)},
		{frontend.PlatformClassPath, fm.toPaths(d.Bootclasspath, fm.Path)},
	}
	out := all[:0]
	for _, b := range all {
		if len(b.paths) > 0 {
			out = append(out, b)
		}
	}
	return out
}

func (fm *FileManager) toPaths(names []string, factory frontend.PathFactory) []vfs.Path {
	paths := make([]vfs.Path, 0, len(names))
	for _, n := range names {
		paths = append(paths, factory(n))
	}
	return paths
}

func (fm *FileManager) setLocations(bindings []binding) {
	for _, b := range bindings {
		if err := fm.caps.paths.SetLocationFromPaths(b.loc, b.paths); err != nil {
			fm.log.Warn("error setting location",
				zap.String("location", string(b.loc)), zap.Error(err))
		}
	}
}

// Path resolves a name for the front end. In order:
//  1. a path under the temporary workspace is a real path;
//  2. a path in the manifest, or one that is not a default boot-path
//     entry, is a virtual path;
//  3. anything else (a default boot-path entry the manifest lacks) is a
//     real path.
func (fm *FileManager) Path(name string, rest ...string) vfs.Path {
	joined := filepath.Join(append([]string{name}, rest...)...)
	if fm.workspace != nil {
		local, err := vfs.RealPath(joined).Abs()
		if err == nil && local.Within(vfs.RealPath(fm.workspace.root)) {
			fm.log.Info("using the filesystem for temporary path", zap.String("path", local.Name()))
			return local
		}
	}
	p := fm.fsys.Path(name, rest...)
	if p.Exists() || !fm.defaultBootPath[p.Normalize().Name()] {
		return p
	}
	fm.log.Debug("falling back to filesystem", zap.String("path", p.Name()))
	return vfs.RealPath(joined)
}

// FS returns the manifest-backed filesystem.
func (fm *FileManager) FS() *vfs.FileSystem { return fm.fsys }

// Sources returns the unit's source files as virtual paths.
func (fm *FileManager) Sources() []vfs.Path {
	paths := make([]vfs.Path, len(fm.unit.SourceFiles))
	for i, s := range fm.unit.SourceFiles {
		paths[i] = fm.fsys.Path(s)
	}
	return paths
}

// Workspace returns the temporary workspace directory, or "" when none was
// created.
func (fm *FileManager) Workspace() string {
	if fm.workspace == nil {
		return ""
	}
	return fm.workspace.root
}

// APIVersion implements frontend.Versioned with the delegate's revision.
func (fm *FileManager) APIVersion() int { return fm.caps.version }

// SupportsPaths reports whether the delegate provides frontend.PathOps.
func (fm *FileManager) SupportsPaths() bool { return fm.caps.supportsPaths() }

// SupportsModules reports whether the delegate provides frontend.ModuleOps.
func (fm *FileManager) SupportsModules() bool { return fm.caps.supportsModules() }

// HandleOption intercepts --system and forwards every other option.
func (fm *FileManager) HandleOption(opt string, remaining []string) (int, bool, error) {
	if opt == "--system" {
		if len(remaining) == 0 {
			return 0, true, fmt.Errorf("filemanager: --system: %w", frontend.ErrMissingArgument)
		}
		return 1, true, fm.setSystem(context.Background(), remaining[0])
	}
	if value, ok := strings.CutPrefix(opt, "--system="); ok {
		return 0, true, fm.setSystem(context.Background(), value)
	}
	return fm.delegate.HandleOption(opt, remaining)
}

// Location implements frontend.StandardFileManager.
func (fm *FileManager) Location(loc frontend.Location) []string {
	return fm.delegate.Location(loc)
}

// SetLocation implements frontend.StandardFileManager.
func (fm *FileManager) SetLocation(loc frontend.Location, names []string) error {
	return fm.delegate.SetLocation(loc, names)
}

// IsSameFile implements frontend.StandardFileManager.
func (fm *FileManager) IsSameFile(a, b vfs.Path) bool {
	return fm.delegate.IsSameFile(a, b)
}

// Close closes the delegate, then deletes the workspace if one was created.
func (fm *FileManager) Close() error {
	err := fm.delegate.Close()
	if fm.workspace != nil {
		if rmErr := fm.workspace.remove(); rmErr != nil {
			return errors.Join(err, rmErr)
		}
		fm.workspace = nil
	}
	return err
}

// SetLocationFromPaths implements frontend.PathOps.
func (fm *FileManager) SetLocationFromPaths(loc frontend.Location, paths []vfs.Path) error {
	return fm.caps.paths.SetLocationFromPaths(loc, paths)
}

// LocationAsPaths implements frontend.PathOps.
func (fm *FileManager) LocationAsPaths(loc frontend.Location) ([]vfs.Path, error) {
	return fm.caps.paths.LocationAsPaths(loc)
}

// AsPath implements frontend.PathOps.
func (fm *FileManager) AsPath(name string) (vfs.Path, error) {
	return fm.caps.paths.AsPath(name)
}

// FilesFromPaths implements frontend.PathOps.
func (fm *FileManager) FilesFromPaths(paths []vfs.Path) ([]vfs.Path, error) {
	return fm.caps.paths.FilesFromPaths(paths)
}

// SetPathFactory implements frontend.PathOps.
func (fm *FileManager) SetPathFactory(f frontend.PathFactory) error {
	return fm.caps.paths.SetPathFactory(f)
}

// LocationForModule implements frontend.ModuleOps.
func (fm *FileManager) LocationForModule(loc frontend.Location, module string) (frontend.Location, error) {
	return fm.caps.modules.LocationForModule(loc, module)
}

// InferModuleName implements frontend.ModuleOps.
func (fm *FileManager) InferModuleName(loc frontend.Location) (string, error) {
	return fm.caps.modules.InferModuleName(loc)
}

// ListLocationsForModules implements frontend.ModuleOps.
func (fm *FileManager) ListLocationsForModules(loc frontend.Location) ([][]frontend.Location, error) {
	return fm.caps.modules.ListLocationsForModules(loc)
}

// SetLocationForModule implements frontend.ModuleOps.
func (fm *FileManager) SetLocationForModule(loc frontend.Location, module string, paths []vfs.Path) error {
	return fm.caps.modules.SetLocationForModule(loc, module, paths)
}

// Contains implements frontend.ModuleOps.
func (fm *FileManager) Contains(loc frontend.Location, p vfs.Path) (bool, error) {
	return fm.caps.modules.Contains(loc, p)
}
