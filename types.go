package keel

import (
	"github.com/jward/keel/internal/analyzer"
	"github.com/jward/keel/internal/frontend"
	"github.com/jward/keel/internal/manifest"
	"github.com/jward/keel/internal/store"
)

// Public type aliases for the internal types used in the Driver and
// QueryBuilder APIs.

type Unit = manifest.Unit
type VName = manifest.VName
type Store = store.Store
type StoredUnit = store.Unit
type Entry = store.Entry
type Diagnostic = frontend.Diagnostic
type PluginFactory = analyzer.PluginFactory
