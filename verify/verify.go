// Package verify is the public entry point of the verification core. It
// wires the pipeline together: call graph, SCC schedule, effect
// propagation against the manifest, and optional static contract
// verification, producing one Report per pass.
package verify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/riftlang/riftcheck/internal/callgraph"
	"github.com/riftlang/riftcheck/internal/diag"
	"github.com/riftlang/riftcheck/internal/effects"
	"github.com/riftlang/riftcheck/internal/ir"
	"github.com/riftlang/riftcheck/internal/manifest"
	"github.com/riftlang/riftcheck/internal/propagate"
	"github.com/riftlang/riftcheck/internal/prove"
)

// Options configures one verification pass.
type Options struct {
	// Static enables contract verification on top of effect checking.
	Static bool
	// Strict makes unresolved external calls diagnostics instead of
	// assuming the full effect set.
	Strict bool
	// EnforceEffects makes effect findings error-severity.
	EnforceEffects bool
	// DenyDisproven upgrades contract disproofs to errors.
	DenyDisproven bool
	// SolverTimeout bounds solver work per function.
	SolverTimeout time.Duration
	// Workers bounds both worker pools; GOMAXPROCS-ish defaults apply
	// downstream when zero.
	Workers int
	// OnFunction observes contract-verification progress.
	OnFunction func(ir.FuncID)
}

// DefaultOptions returns the production defaults: everything on,
// effect enforcement fatal, disproofs warnings.
func DefaultOptions() Options {
	return Options{
		Static:         true,
		EnforceEffects: true,
		SolverTimeout:  prove.DefaultTimeout,
	}
}

// Report is the complete output of one pass.
type Report struct {
	// Effects is the computed transitive effect set per function.
	Effects map[ir.FuncID]effects.Set
	// Diagnostics holds every reportable finding, effects first.
	Diagnostics []diag.Diagnostic
	// Outcomes holds the per-contract verification verdicts.
	Outcomes []prove.Outcome
	// Elisions lists contracts whose runtime checks may be dropped.
	Elisions []prove.ContractID
	// Duration is wall-clock time for the whole pass.
	Duration time.Duration
}

// Failed reports whether the pass produced error-severity diagnostics.
func (r *Report) Failed() bool {
	return diag.HasErrors(r.Diagnostics)
}

// Run executes one verification pass over the snapshot. Recoverable
// findings land in the report; the returned error is reserved for
// malformed input and cancellation.
func Run(ctx context.Context, logger *zap.Logger, snap *ir.Snapshot, resolver manifest.Resolver, opts Options) (*Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()

	graph, err := callgraph.Build(snap)
	if err != nil {
		return nil, fmt.Errorf("building call graph: %w", err)
	}
	sccs := callgraph.Decompose(graph)
	logger.Debug("call graph ready",
		zap.Int("functions", snap.Len()),
		zap.Int("components", len(sccs)))

	mode := propagate.Permissive
	if opts.Strict {
		mode = propagate.Strict
	}
	propRes, err := propagate.Run(ctx, snap, graph, sccs, resolver, propagate.Options{
		Mode:    mode,
		Workers: opts.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("propagating effects: %w", err)
	}

	diagOpts := diag.Options{
		EnforceEffects: opts.EnforceEffects,
		DenyDisproven:  opts.DenyDisproven,
	}
	report := &Report{
		Effects:     propRes.Computed,
		Diagnostics: diag.FromEffects(propRes, diagOpts),
	}
	for _, v := range propRes.Violations {
		logger.Warn("effect violation",
			zap.String("func", string(v.Func)),
			zap.String("declared", v.Declared.String()),
			zap.String("computed", v.Computed.String()))
	}
	for _, u := range propRes.Unknowns {
		logger.Warn("unknown external effect",
			zap.String("func", string(u.Func)),
			zap.String("call", u.Qualified))
	}

	if opts.Static {
		verifier := &prove.Verifier{
			Timeout:    opts.SolverTimeout,
			Workers:    opts.Workers,
			OnFunction: opts.OnFunction,
		}
		outcomes, err := verifier.VerifyAll(ctx, snap)
		if err != nil {
			return nil, fmt.Errorf("verifying contracts: %w", err)
		}
		report.Outcomes = outcomes
		report.Elisions = diag.Elisions(outcomes)
		report.Diagnostics = append(report.Diagnostics, diag.FromOutcomes(outcomes, diagOpts)...)

		for _, o := range outcomes {
			switch o.Kind {
			case prove.Disproven:
				logger.Warn("contract disproven",
					zap.String("contract", o.Contract.String()),
					zap.Any("counterexample", o.Counterexample))
			case prove.Unproven:
				logger.Debug("contract unproven",
					zap.String("contract", o.Contract.String()),
					zap.String("reason", o.Reason.String()))
			case prove.Unsupported:
				logger.Debug("contract unsupported",
					zap.String("contract", o.Contract.String()),
					zap.String("construct", o.Construct))
			}
		}
	}

	report.Duration = time.Since(start)
	logger.Info("verification pass complete",
		zap.Int("diagnostics", len(report.Diagnostics)),
		zap.Int("elisions", len(report.Elisions)),
		zap.Duration("took", report.Duration))
	return report, nil
}
