package analyzer

import (
	"errors"
	"fmt"
)

var (
	// ErrAnalysisInProgress is returned by Begin while a session is live.
	ErrAnalysisInProgress = errors.New("analyzer: analysis already in progress")
	// ErrNotAnalyzing is returned by per-file calls made outside a session.
	ErrNotAnalyzing = errors.New("analyzer: no analysis in progress")
	// ErrNilEmitter is returned by New without an emitter.
	ErrNilEmitter = errors.New("analyzer: nil emitter")
)

// AnalysisError wraps a failure to analyze one file.
type AnalysisError struct {
	File string
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analyzer: exception analyzing file %s: %v", e.File, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// panicError carries a recovered panic value.
type panicError struct {
	value any
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }
