// Package frontend drives the language front end: tree-sitter parsing, the
// per-file symbol table, and the search-path locations a compilation reads
// its inputs from.
//
// A StandardFileManager is the front end's view of the filesystem. The
// baseline interface is what every front-end API revision supports; PathOps
// and ModuleOps are optional groups introduced by later revisions. Callers
// discover them once, by type assertion and APIVersion, rather than per call.
package frontend

import (
	"fmt"
	"strings"

	"github.com/jward/keel/internal/vfs"
)

// Location is a named search-path category.
type Location string

const (
	ClassPath         Location = "CLASS_PATH"
	ModulePath        Location = "MODULE_PATH"
	SourcePath        Location = "SOURCE_PATH"
	PlatformClassPath Location = "PLATFORM_CLASS_PATH"
	SystemModules     Location = "SYSTEM_MODULES"
)

// ModuleLocation returns the location of one module within a
// module-oriented location.
func ModuleLocation(loc Location, module string) Location {
	return Location(fmt.Sprintf("%s[%s]", loc, module))
}

// SplitModuleLocation reverses ModuleLocation.
func SplitModuleLocation(loc Location) (Location, string, bool) {
	s := string(loc)
	i := strings.IndexByte(s, '[')
	if i < 0 || !strings.HasSuffix(s, "]") {
		return loc, "", false
	}
	return Location(s[:i]), s[i+1 : len(s)-1], true
}

// PathFactory converts a name from a flag or manifest into a Path.
type PathFactory func(name string, rest ...string) vfs.Path

// StandardFileManager is the baseline file manager API (revision 1).
type StandardFileManager interface {
	// Location returns the names bound to loc.
	Location(loc Location) []string
	// SetLocation binds loc to names.
	SetLocation(loc Location, names []string) error
	// HandleOption processes a command-line option. It reports whether the
	// option was recognized and how many of the remaining arguments it
	// consumed.
	HandleOption(opt string, remaining []string) (consumed int, handled bool, err error)
	// IsSameFile reports whether a and b name the same file.
	IsSameFile(a, b vfs.Path) bool
	Close() error
}

// Versioned reports the front-end API revision a file manager implements.
// File managers that do not implement it are revision 1.
type Versioned interface {
	APIVersion() int
}

// PathOps is the path-based API introduced in revision 2.
type PathOps interface {
	SetLocationFromPaths(loc Location, paths []vfs.Path) error
	LocationAsPaths(loc Location) ([]vfs.Path, error)
	// AsPath converts a name with the installed path factory.
	AsPath(name string) (vfs.Path, error)
	// FilesFromPaths returns the regular files among paths as compilation
	// inputs; a directory is an error.
	FilesFromPaths(paths []vfs.Path) ([]vfs.Path, error)
	SetPathFactory(f PathFactory) error
}

// ModuleOps is the module API introduced in revision 2.
type ModuleOps interface {
	LocationForModule(loc Location, module string) (Location, error)
	InferModuleName(loc Location) (string, error)
	ListLocationsForModules(loc Location) ([][]Location, error)
	SetLocationForModule(loc Location, module string, paths []vfs.Path) error
	Contains(loc Location, p vfs.Path) (bool, error)
}

const (
	// PathOpsVersion is the first revision providing PathOps.
	PathOpsVersion = 2
	// ModuleOpsVersion is the first revision providing ModuleOps.
	ModuleOpsVersion = 2
)

// APIVersion returns fm's reported revision, 1 when it does not say.
func APIVersion(fm StandardFileManager) int {
	if v, ok := fm.(Versioned); ok {
		return v.APIVersion()
	}
	return 1
}
