package frontend

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jward/keel/internal/vfs"
)

// ErrMissingArgument is returned when a flag that takes a value has none.
var ErrMissingArgument = errors.New("missing option argument")

// DiskFileManager is the front end's default file manager. It binds
// locations to real-disk paths unless a different PathFactory is installed.
type DiskFileManager struct {
	locations map[Location][]vfs.Path
	modules   map[Location][]vfs.Path
	factory   PathFactory
	log       *zap.Logger
	closed    bool
}

var (
	_ StandardFileManager = (*DiskFileManager)(nil)
	_ PathOps             = (*DiskFileManager)(nil)
	_ ModuleOps           = (*DiskFileManager)(nil)
	_ Versioned           = (*DiskFileManager)(nil)
)

// DiskOption configures a DiskFileManager.
type DiskOption func(*DiskFileManager)

// WithDiskLogger sets the logger.
func WithDiskLogger(log *zap.Logger) DiskOption {
	return func(d *DiskFileManager) {
		d.log = log
	}
}

// NewDiskFileManager creates a file manager whose default platform class
// path is bootPath.
func NewDiskFileManager(bootPath []string, opts ...DiskOption) *DiskFileManager {
	d := &DiskFileManager{
		locations: make(map[Location][]vfs.Path),
		modules:   make(map[Location][]vfs.Path),
		factory:   realPath,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	for _, p := range bootPath {
		d.locations[PlatformClassPath] = append(d.locations[PlatformClassPath], vfs.RealPath(p))
	}
	return d
}

func realPath(name string, rest ...string) vfs.Path {
	return vfs.RealPath(filepath.Join(append([]string{name}, rest...)...))
}

// APIVersion implements Versioned.
func (d *DiskFileManager) APIVersion() int { return 2 }

// Location implements StandardFileManager.
func (d *DiskFileManager) Location(loc Location) []string {
	paths := d.lookup(loc)
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = p.Name()
	}
	return names
}

func (d *DiskFileManager) lookup(loc Location) []vfs.Path {
	if _, _, ok := SplitModuleLocation(loc); ok {
		return d.modules[loc]
	}
	return d.locations[loc]
}

// SetLocation implements StandardFileManager.
func (d *DiskFileManager) SetLocation(loc Location, names []string) error {
	paths := make([]vfs.Path, len(names))
	for i, n := range names {
		paths[i] = d.factory(n)
	}
	return d.SetLocationFromPaths(loc, paths)
}

// SetLocationFromPaths implements PathOps. A nil or empty slice restores
// the location's default, which is empty for every location.
func (d *DiskFileManager) SetLocationFromPaths(loc Location, paths []vfs.Path) error {
	if d.closed {
		return errors.New("frontend: file manager is closed")
	}
	if _, _, ok := SplitModuleLocation(loc); ok {
		return fmt.Errorf("frontend: %s is a module location; use SetLocationForModule", loc)
	}
	if len(paths) == 0 {
		delete(d.locations, loc)
		return nil
	}
	d.locations[loc] = append([]vfs.Path(nil), paths...)
	d.log.Debug("set location", zap.String("location", string(loc)), zap.Int("paths", len(paths)))
	return nil
}

// LocationAsPaths implements PathOps.
func (d *DiskFileManager) LocationAsPaths(loc Location) ([]vfs.Path, error) {
	return append([]vfs.Path(nil), d.lookup(loc)...), nil
}

// SetPathFactory implements PathOps. Subsequent flag values and location
// names are converted with f.
func (d *DiskFileManager) SetPathFactory(f PathFactory) error {
	if f == nil {
		return errors.New("frontend: nil path factory")
	}
	d.factory = f
	return nil
}

// AsPath implements PathOps.
func (d *DiskFileManager) AsPath(name string) (vfs.Path, error) {
	if name == "" {
		return vfs.Path{}, errors.New("frontend: empty path name")
	}
	return d.factory(name), nil
}

// FilesFromPaths implements PathOps.
func (d *DiskFileManager) FilesFromPaths(paths []vfs.Path) ([]vfs.Path, error) {
	out := make([]vfs.Path, 0, len(paths))
	for _, p := range paths {
		if p.IsDir() {
			return nil, fmt.Errorf("frontend: source %s is a directory", p)
		}
		out = append(out, p)
	}
	return out, nil
}

// HandleOption implements StandardFileManager.
func (d *DiskFileManager) HandleOption(opt string, remaining []string) (int, bool, error) {
	var loc Location
	switch opt {
	case "-cp", "-classpath", "--class-path":
		loc = ClassPath
	case "-sourcepath", "--source-path":
		loc = SourcePath
	case "-bootclasspath", "--boot-class-path":
		loc = PlatformClassPath
	case "-p", "--module-path":
		loc = ModulePath
	case "--system":
		if len(remaining) == 0 {
			return 0, true, fmt.Errorf("frontend: %s: %w", opt, ErrMissingArgument)
		}
		return 1, true, d.setSystem(remaining[0])
	default:
		return 0, false, nil
	}
	if len(remaining) == 0 {
		return 0, true, fmt.Errorf("frontend: %s: %w", opt, ErrMissingArgument)
	}
	var names []string
	for _, n := range filepath.SplitList(remaining[0]) {
		if n != "" {
			names = append(names, n)
		}
	}
	return 1, true, d.SetLocation(loc, names)
}

// setSystem validates a --system value. The image must be on the real
// filesystem with a lib/modules file; "none" clears the location.
func (d *DiskFileManager) setSystem(value string) error {
	if value == "none" {
		delete(d.locations, SystemModules)
		return nil
	}
	sys := d.factory(value).Normalize()
	if sys.Virtual() {
		return fmt.Errorf("frontend: --system %s: system image must reside on the real filesystem", value)
	}
	info, err := os.Stat(filepath.Join(sys.Name(), "lib", "modules"))
	if err != nil || info.IsDir() {
		return fmt.Errorf("frontend: --system %s: not a valid system image", value)
	}
	d.locations[SystemModules] = []vfs.Path{sys}
	return nil
}

// IsSameFile implements StandardFileManager.
func (d *DiskFileManager) IsSameFile(a, b vfs.Path) bool {
	return a.Normalize() == b.Normalize()
}

// LocationForModule implements ModuleOps. Every directory directly under a
// path of loc is a module.
func (d *DiskFileManager) LocationForModule(loc Location, module string) (Location, error) {
	ml := ModuleLocation(loc, module)
	if _, ok := d.modules[ml]; ok {
		return ml, nil
	}
	for _, p := range d.locations[loc] {
		if dir := p.Join(module); dir.IsDir() {
			d.modules[ml] = []vfs.Path{dir}
			return ml, nil
		}
	}
	return "", fmt.Errorf("frontend: module %s not found in %s", module, loc)
}

// InferModuleName implements ModuleOps.
func (d *DiskFileManager) InferModuleName(loc Location) (string, error) {
	if _, module, ok := SplitModuleLocation(loc); ok {
		return module, nil
	}
	return "", fmt.Errorf("frontend: %s is not a module location", loc)
}

// ListLocationsForModules implements ModuleOps. Each path of loc
// contributes one set of module locations.
func (d *DiskFileManager) ListLocationsForModules(loc Location) ([][]Location, error) {
	var out [][]Location
	for _, p := range d.locations[loc] {
		entries, err := p.ReadDir()
		if err != nil {
			return nil, fmt.Errorf("frontend: list modules in %s: %w", p, err)
		}
		var set []Location
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			ml := ModuleLocation(loc, e.Name())
			d.modules[ml] = []vfs.Path{p.Join(e.Name())}
			set = append(set, ml)
		}
		out = append(out, set)
	}
	return out, nil
}

// SetLocationForModule implements ModuleOps.
func (d *DiskFileManager) SetLocationForModule(loc Location, module string, paths []vfs.Path) error {
	d.modules[ModuleLocation(loc, module)] = append([]vfs.Path(nil), paths...)
	return nil
}

// Contains implements ModuleOps.
func (d *DiskFileManager) Contains(loc Location, p vfs.Path) (bool, error) {
	target := p.Normalize()
	for _, root := range d.lookup(loc) {
		if target.Within(root.Normalize()) {
			return true, nil
		}
	}
	return false, nil
}

// Close implements StandardFileManager.
func (d *DiskFileManager) Close() error {
	d.closed = true
	return nil
}

// Locations returns every bound location in sorted order.
func (d *DiskFileManager) Locations() []Location {
	locs := make([]Location, 0, len(d.locations))
	for loc := range d.locations {
		locs = append(locs, loc)
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i] < locs[j] })
	return locs
}

// FormatLocation renders a location's names joined by the list separator.
func FormatLocation(fm StandardFileManager, loc Location) string {
	return strings.Join(fm.Location(loc), string(filepath.ListSeparator))
}
