// Package analyzer orchestrates the analysis of one compilation unit at a
// time. An Analyzer is Idle or Analyzing; Begin starts a Session, each file
// is handed to an Emitter whose node identities are recorded in the
// Session, registered plugins see a read-only Graph of every file whose
// emission succeeded, and End returns to Idle.
package analyzer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jward/keel/internal/frontend"
	"github.com/jward/keel/internal/manifest"
)

// Config controls how file identities are derived.
type Config struct {
	// Verbose logs every front-end diagnostic before analysis.
	Verbose bool
	// IgnoreVNamePaths names files by path instead of their declared VName
	// path.
	IgnoreVNamePaths bool
	// IgnoreVNameRoots drops the root from file names.
	IgnoreVNameRoots bool
	// OverrideCorpus replaces the corpus of every file name when set.
	OverrideCorpus string
	// Rules name files that have no declared VName.
	Rules manifest.Rules
}

// state is the analyzer's state machine. A nil session is Idle.
type state struct {
	session *Session
}

func (s *state) begin(sess *Session) error {
	if s.session != nil {
		return ErrAnalysisInProgress
	}
	s.session = sess
	return nil
}

func (s *state) current() (*Session, error) {
	if s.session == nil {
		return nil, ErrNotAnalyzing
	}
	return s.session, nil
}

func (s *state) end() { s.session = nil }

// Analyzer runs emission and plugins over compiled files. It holds at most
// one Session and is not safe for concurrent use; distinct Analyzers are
// independent.
type Analyzer struct {
	cfg     Config
	emitter Emitter
	plugins []PluginFactory
	st      state
	runID   func() string
	log     *zap.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Analyzer) {
		a.log = log
	}
}

// WithPlugins registers plugin factories.
func WithPlugins(factories ...PluginFactory) Option {
	return func(a *Analyzer) {
		a.plugins = append(a.plugins, factories...)
	}
}

// WithRunID sets the source of session run IDs. The default is a random
// UUID per session.
func WithRunID(gen func() string) Option {
	return func(a *Analyzer) {
		a.runID = gen
	}
}

// New creates an Analyzer.
func New(cfg Config, emitter Emitter, opts ...Option) (*Analyzer, error) {
	if emitter == nil {
		return nil, ErrNilEmitter
	}
	a := &Analyzer{cfg: cfg, emitter: emitter, runID: uuid.NewString, log: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// RegisterPlugin adds a plugin factory. Factories run in registration order.
func (a *Analyzer) RegisterPlugin(f PluginFactory) *Analyzer {
	a.plugins = append(a.plugins, f)
	return a
}

// Begin starts a Session for unit.
func (a *Analyzer) Begin(unit *manifest.Unit) (*Session, error) {
	if unit == nil {
		return nil, fmt.Errorf("analyzer: begin: nil unit")
	}
	sess := newSession(unit, a.cfg, a.runID())
	if err := a.st.begin(sess); err != nil {
		return nil, err
	}
	a.log.Debug("begin analysis",
		zap.String("unit", unit.VName.String()),
		zap.String("run_id", sess.RunID))
	return sess, nil
}

// Session returns the live session, if any.
func (a *Analyzer) Session() (*Session, bool) {
	s, err := a.st.current()
	return s, err == nil
}

// End returns the Analyzer to Idle. It is safe to call when already Idle.
func (a *Analyzer) End() { a.st.end() }

// AnalyzeFile emits facts for one file of comp and, on success, runs the
// registered plugins over it.
func (a *Analyzer) AnalyzeFile(ctx context.Context, comp *frontend.Compilation, file *frontend.File) error {
	sess, err := a.st.current()
	if err != nil {
		return err
	}
	positions := NewPositions(file)
	emission, err := a.emit(ctx, EmitRequest{
		Session:     sess,
		Compilation: comp,
		File:        file,
		Positions:   positions,
	})
	if err != nil {
		return &AnalysisError{File: file.Path.Name(), Err: err}
	}
	sess.Record(emission)

	if len(a.plugins) > 0 {
		a.runPlugins(ctx, file, sess, newGraph(file, emission, positions))
	}
	return nil
}

func (a *Analyzer) emit(ctx context.Context, req EmitRequest) (em Emission, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return a.emitter.Emit(ctx, req)
}

func (a *Analyzer) runPlugins(ctx context.Context, file *frontend.File, sess *Session, g *Graph) {
	for i, factory := range a.plugins {
		if err := runPlugin(ctx, factory, file, sess, g); err != nil {
			a.log.Warn("plugin failed",
				zap.Int("plugin", i),
				zap.String("file", file.Path.Name()),
				zap.String("run_id", sess.RunID),
				zap.Error(err))
		}
	}
}

func runPlugin(ctx context.Context, factory PluginFactory, file *frontend.File, sess *Session, g *Graph) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return factory().Run(ctx, file, sess, g)
}

// AnalyzeCompilation analyzes every file of comp in one Session. A file
// that fails does not stop its siblings; the failures are returned
// together. The Analyzer is Idle again when it returns.
func (a *Analyzer) AnalyzeCompilation(ctx context.Context, unit *manifest.Unit, comp *frontend.Compilation) error {
	sess, err := a.Begin(unit)
	if err != nil {
		return err
	}
	defer a.End()

	if a.cfg.Verbose {
		for _, d := range comp.AllDiagnostics() {
			a.log.Warn("diagnostic", zap.String("run_id", sess.RunID), zap.Stringer("diagnostic", d))
		}
	}

	var errs []error
	for _, f := range comp.Files {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := a.AnalyzeFile(ctx, comp, f); err != nil {
			a.log.Error("analysis failed", zap.String("file", f.Path.Name()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("analyzer: analysis had %d error(s): %w", len(errs), errors.Join(errs...))
	}
	return nil
}
