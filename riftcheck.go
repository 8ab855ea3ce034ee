// Package riftcheck is the verification core of the Rift compiler: it
// checks that every function's declared side effects cover what it
// transitively does, and statically proves or refutes behavioral
// contracts to decide which runtime checks generated code may drop.
//
// The verify package is the programmatic entry point; this package
// re-exports its surface so embedders need a single import.
package riftcheck

import (
	"context"

	"go.uber.org/zap"

	"github.com/riftlang/riftcheck/internal/ir"
	"github.com/riftlang/riftcheck/internal/manifest"
	"github.com/riftlang/riftcheck/verify"
)

// Options configures a verification pass. See verify.Options.
type Options = verify.Options

// Report is the output of a verification pass. See verify.Report.
type Report = verify.Report

// Resolver maps qualified external names to effect sets.
type Resolver = manifest.Resolver

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return verify.DefaultOptions()
}

// DecodeSnapshot parses a JSON AST snapshot.
func DecodeSnapshot(data []byte) (*ir.Snapshot, error) {
	return ir.DecodeSnapshot(data)
}

// ParseManifest parses a JSON effect manifest.
func ParseManifest(data []byte) (Resolver, error) {
	return manifest.Parse(data)
}

// Verify runs one pass over a snapshot.
func Verify(ctx context.Context, logger *zap.Logger, snap *ir.Snapshot, resolver Resolver, opts Options) (*Report, error) {
	return verify.Run(ctx, logger, snap, resolver, opts)
}
