package analyzer

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/keel/internal/frontend"
)

// EmitRequest is everything an Emitter needs for one file.
type EmitRequest struct {
	Session     *Session
	Compilation *frontend.Compilation
	File        *frontend.File
	Positions   *Positions
}

// Emission is the node and symbol identities assigned while emitting one
// file.
type Emission struct {
	Nodes   map[*sitter.Node]NodeHandle
	Symbols map[*frontend.Symbol]NodeHandle
}

// Emitter populates the fact graph for one file.
type Emitter interface {
	Emit(ctx context.Context, req EmitRequest) (Emission, error)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, req EmitRequest) (Emission, error)

// Emit implements Emitter.
func (f EmitterFunc) Emit(ctx context.Context, req EmitRequest) (Emission, error) {
	return f(ctx, req)
}
