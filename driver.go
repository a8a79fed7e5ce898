package keel

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jward/keel/internal/analyzer"
	"github.com/jward/keel/internal/config"
	"github.com/jward/keel/internal/filemanager"
	"github.com/jward/keel/internal/frontend"
	"github.com/jward/keel/internal/manifest"
	"github.com/jward/keel/internal/runtime"
	"github.com/jward/keel/internal/store"
	"github.com/jward/keel/internal/vfs"
)

// Driver runs units through the front end and analyzer into the store.
type Driver struct {
	cfg       *config.Config
	store     *store.Store
	rules     manifest.Rules
	scriptsFS fs.FS
	plugins   []analyzer.PluginFactory
	log       *zap.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithScriptsFS loads emission scripts from fsys instead of the configured
// scripts directory.
func WithScriptsFS(fsys fs.FS) Option {
	return func(d *Driver) {
		d.scriptsFS = fsys
	}
}

// WithPlugin registers an analysis plugin for every unit.
func WithPlugin(f analyzer.PluginFactory) Option {
	return func(d *Driver) {
		d.plugins = append(d.plugins, f)
	}
}

// WithLogger sets the Driver's logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Driver) {
		d.log = log
	}
}

// New opens the store named by cfg and loads its rewrite rules. Script
// loading priority:
//  1. If WithScriptsFS is set, use the provided fs.FS
//  2. Otherwise, use cfg.Scripts.Dir on disk
func New(cfg *config.Config, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Driver{cfg: cfg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	if d.scriptsFS == nil && cfg.Scripts.Dir == "" {
		return nil, errors.New("keel: no emission scripts configured")
	}

	if cfg.Analysis.RulesFile != "" {
		rules, err := manifest.LoadRules(cfg.Analysis.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("keel: load rules: %w", err)
		}
		d.rules = rules
	}

	s, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("keel: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("keel: migrate: %w", err)
	}
	d.store = s
	return d, nil
}

// Close releases the Driver's database resources.
func (d *Driver) Close() error {
	return d.store.Close()
}

// Store returns the underlying Store for direct access.
func (d *Driver) Store() *Store {
	return d.store
}

// Query returns a new QueryBuilder wrapping the Store.
func (d *Driver) Query() *QueryBuilder {
	return &QueryBuilder{store: d.store}
}

// Result summarizes one indexed unit.
type Result struct {
	Unit        *store.Unit
	Files       int
	Entries     int
	Diagnostics []frontend.Diagnostic
}

// IndexUnit indexes one unit whose inputs are served by provider. Files
// that fail analysis are reported in the returned error after every other
// file has been indexed; the Result is valid in that case too.
func (d *Driver) IndexUnit(ctx context.Context, unit *manifest.Unit, provider vfs.DataProvider) (*Result, error) {
	if err := manifest.Validate(ctx, unit, provider); err != nil {
		return nil, fmt.Errorf("keel: %w", err)
	}

	digest, err := unit.Digest()
	if err != nil {
		return nil, fmt.Errorf("keel: %w", err)
	}
	stored := &store.Unit{
		Digest:      digest,
		VName:       unit.VName,
		RunID:       uuid.NewString(),
		SourceCount: len(unit.SourceFiles),
	}
	a, err := d.newAnalyzer(stored)
	if err != nil {
		return nil, err
	}

	fm, err := d.newFileManager(unit, provider)
	if err != nil {
		return nil, err
	}
	res, indexErr := d.index(ctx, unit, fm, a, stored)
	if err := fm.Close(); err != nil {
		indexErr = errors.Join(indexErr, fmt.Errorf("keel: close file manager: %w", err))
	}
	return res, indexErr
}

func (d *Driver) newFileManager(unit *manifest.Unit, provider vfs.DataProvider) (*filemanager.FileManager, error) {
	log := d.log.With(zap.String("unit", unit.VName.String()))
	delegate := frontend.NewDiskFileManager(d.cfg.Frontend.BootPath, frontend.WithDiskLogger(log))
	opts := []filemanager.Option{filemanager.WithLogger(log)}
	if d.cfg.Frontend.TempDir != "" {
		opts = append(opts, filemanager.WithTempDir(d.cfg.Frontend.TempDir))
	}
	fm, err := filemanager.New(unit, provider, delegate, opts...)
	if err != nil {
		delegate.Close()
		return nil, fmt.Errorf("keel: file manager: %w", err)
	}
	return fm, nil
}

// newAnalyzer builds an analyzer whose emissions are committed under the
// stored unit's ID.
func (d *Driver) newAnalyzer(stored *store.Unit) (*analyzer.Analyzer, error) {
	rtOpts := []runtime.RuntimeOption{
		runtime.WithLogger(d.log),
		runtime.WithCommit(func(_ context.Context, req analyzer.EmitRequest, batch *store.BatchedStore) error {
			n, err := d.store.CommitBatch(stored.ID, batch)
			if err != nil {
				return err
			}
			d.log.Debug("committed entries", zap.String("file", req.File.Path.Name()), zap.Int("entries", n))
			return nil
		}),
	}
	if d.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(d.scriptsFS))
	}
	rt := runtime.NewRuntime(d.cfg.Scripts.Dir, rtOpts...)

	cfg := analyzer.Config{
		Verbose:          d.cfg.Analysis.Verbose,
		IgnoreVNamePaths: d.cfg.Analysis.IgnoreVNamePaths,
		IgnoreVNameRoots: d.cfg.Analysis.IgnoreVNameRoots,
		OverrideCorpus:   d.cfg.Analysis.OverrideCorpus,
		Rules:            d.rules,
	}
	a, err := analyzer.New(cfg, rt,
		analyzer.WithLogger(d.log),
		analyzer.WithPlugins(d.plugins...),
		analyzer.WithRunID(func() string { return stored.RunID }))
	if err != nil {
		return nil, fmt.Errorf("keel: analyzer: %w", err)
	}
	return a, nil
}

func (d *Driver) index(ctx context.Context, unit *manifest.Unit, fm *filemanager.FileManager, a *analyzer.Analyzer, stored *store.Unit) (*Result, error) {
	if err := applyArguments(fm, unit.Arguments, d.log); err != nil {
		return nil, fmt.Errorf("keel: arguments: %w", err)
	}

	comp, err := frontend.NewCompiler(frontend.WithCompilerLogger(d.log)).Compile(ctx, fm, fm.Sources())
	if err != nil {
		return nil, fmt.Errorf("keel: compile: %w", err)
	}
	defer comp.Close()

	id, err := d.store.RecordUnit(stored)
	if err != nil {
		return nil, fmt.Errorf("keel: record unit: %w", err)
	}
	stored.ID = id

	analyzeErr := a.AnalyzeCompilation(ctx, unit, comp)

	count, err := d.store.EntryCount(stored.ID)
	if err != nil {
		return nil, errors.Join(analyzeErr, fmt.Errorf("keel: count entries: %w", err))
	}
	res := &Result{
		Unit:        stored,
		Files:       len(comp.Files),
		Entries:     count,
		Diagnostics: comp.AllDiagnostics(),
	}
	d.log.Info("indexed unit",
		zap.String("unit", unit.VName.String()),
		zap.String("digest", stored.Digest),
		zap.Int("files", res.Files),
		zap.Int("entries", res.Entries))
	return res, analyzeErr
}

// applyArguments offers each argument to the file manager. Arguments it
// does not handle, such as source file names, are skipped.
func applyArguments(fm frontend.StandardFileManager, args []string, log *zap.Logger) error {
	for i := 0; i < len(args); i++ {
		n, handled, err := fm.HandleOption(args[i], args[i+1:])
		if err != nil {
			return fmt.Errorf("%s: %w", args[i], err)
		}
		if !handled {
			log.Debug("ignoring argument", zap.String("arg", args[i]))
			continue
		}
		i += n
	}
	return nil
}

// IndexArchive indexes every unit in the kzip archive at path, one at a
// time. A unit that fails does not stop the rest; all failures are joined.
func (d *Driver) IndexArchive(ctx context.Context, path string) ([]*Result, error) {
	r, err := manifest.OpenArchive(path)
	if err != nil {
		return nil, fmt.Errorf("keel: %w", err)
	}
	defer r.Close()

	units, err := r.Units()
	if err != nil {
		return nil, fmt.Errorf("keel: %w", err)
	}

	var results []*Result
	var errs []error
	for _, au := range units {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := d.IndexUnit(ctx, au.Unit, r)
		if err != nil {
			d.log.Error("unit failed", zap.String("digest", au.Digest), zap.Error(err))
			errs = append(errs, fmt.Errorf("unit %s: %w", au.Digest, err))
		}
		if res != nil {
			results = append(results, res)
		}
	}
	return results, errors.Join(errs...)
}
