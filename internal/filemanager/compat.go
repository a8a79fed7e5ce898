package filemanager

import (
	"github.com/jward/keel/internal/frontend"
	"github.com/jward/keel/internal/vfs"
)

// capabilities holds the optional operation groups selected for a delegate.
type capabilities struct {
	version int
	paths   frontend.PathOps
	modules frontend.ModuleOps
}

// negotiate selects each optional group once. A group is used only when
// the delegate implements it and reports a revision that includes it;
// otherwise every call fails with *UnsupportedError.
func negotiate(delegate frontend.StandardFileManager) capabilities {
	caps := capabilities{version: frontend.APIVersion(delegate)}
	if ops, ok := delegate.(frontend.PathOps); ok && caps.version >= frontend.PathOpsVersion {
		caps.paths = ops
	} else {
		caps.paths = unsupportedPaths{version: caps.version}
	}
	if ops, ok := delegate.(frontend.ModuleOps); ok && caps.version >= frontend.ModuleOpsVersion {
		caps.modules = ops
	} else {
		caps.modules = unsupportedModules{version: caps.version}
	}
	return caps
}

func (c capabilities) supportsPaths() bool {
	_, missing := c.paths.(unsupportedPaths)
	return !missing
}

func (c capabilities) supportsModules() bool {
	_, missing := c.modules.(unsupportedModules)
	return !missing
}

type unsupportedPaths struct{ version int }

func (u unsupportedPaths) err(op string) error {
	return &UnsupportedError{Op: op, Version: u.version}
}

func (u unsupportedPaths) SetLocationFromPaths(frontend.Location, []vfs.Path) error {
	return u.err("SetLocationFromPaths")
}

func (u unsupportedPaths) LocationAsPaths(frontend.Location) ([]vfs.Path, error) {
	return nil, u.err("LocationAsPaths")
}

func (u unsupportedPaths) AsPath(string) (vfs.Path, error) {
	return vfs.Path{}, u.err("AsPath")
}

func (u unsupportedPaths) FilesFromPaths([]vfs.Path) ([]vfs.Path, error) {
	return nil, u.err("FilesFromPaths")
}

func (u unsupportedPaths) SetPathFactory(frontend.PathFactory) error {
	return u.err("SetPathFactory")
}

type unsupportedModules struct{ version int }

func (u unsupportedModules) err(op string) error {
	return &UnsupportedError{Op: op, Version: u.version}
}

func (u unsupportedModules) LocationForModule(frontend.Location, string) (frontend.Location, error) {
	return "", u.err("LocationForModule")
}

func (u unsupportedModules) InferModuleName(frontend.Location) (string, error) {
	return "", u.err("InferModuleName")
}

func (u unsupportedModules) ListLocationsForModules(frontend.Location) ([][]frontend.Location, error) {
	return nil, u.err("ListLocationsForModules")
}

func (u unsupportedModules) SetLocationForModule(frontend.Location, string, []vfs.Path) error {
	return u.err("SetLocationForModule")
}

func (u unsupportedModules) Contains(frontend.Location, vfs.Path) (bool, error) {
	return false, u.err("Contains")
}
