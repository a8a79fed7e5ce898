// Package keel is a hermetic compilation driver for a source indexer.
//
// A compilation is described by a unit: its inputs, source files, front-end
// arguments, and typed details. keel presents the inputs to the front end
// through a manifest-backed filesystem, binds search-path locations from the
// unit, materializes a runtime system image when asked to, parses every
// source with tree-sitter, and runs the per-unit analyzer. The analyzer
// calls a Risor emission script for each file and the resulting entries are
// written to SQLite.
//
// # Pipeline
//
// For each unit, [Driver.IndexUnit]:
//
//  1. records the unit in the store, replacing earlier entries for it;
//  2. builds a disk-backed front-end file manager and wraps it in the
//     manifest-backed location resolver;
//  3. applies the unit's arguments (-cp, --system, ...) through HandleOption;
//  4. compiles the unit's sources;
//  5. analyzes the compilation, committing each file's entries only when its
//     emission succeeds;
//  6. closes the resolver, removing any materialized workspace.
//
// [Driver.IndexArchive] does the same for every unit in a kzip archive, one
// unit at a time.
//
// # Usage
//
//	d, err := keel.New(cfg, keel.WithScriptsFS(scripts.FS))
//	if err != nil { ... }
//	defer d.Close()
//
//	results, err := d.IndexArchive(ctx, "build.kzip")
//
//	q := d.Query()
//	node, err := q.Node(vname)
//
// # Scripts
//
// Emission scripts live under emit/: emit/{language}.risor for one
// language and emit/default.risor for the rest. See the internal/runtime
// package for the globals exposed to scripts.
package keel
