// Package prove runs static contract verification: for every function
// postcondition it enumerates execution paths, asks the solver whether any
// path can violate the contract, and classifies the result four ways.
// The classification is conservative in both directions: Proven requires
// every path refuted, and Disproven requires a concrete counterexample
// that survives re-evaluation.
package prove

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/riftlang/riftcheck/internal/contract"
	"github.com/riftlang/riftcheck/internal/ir"
	"github.com/riftlang/riftcheck/internal/solver"
)

// Kind is the four-way verification outcome.
type Kind int

const (
	Proven Kind = iota
	Disproven
	Unproven
	Unsupported
)

func (k Kind) String() string {
	switch k {
	case Proven:
		return "proven"
	case Disproven:
		return "disproven"
	case Unproven:
		return "unproven"
	case Unsupported:
		return "unsupported"
	default:
		return "?"
	}
}

// UnprovenReason qualifies an Unproven outcome.
type UnprovenReason int

const (
	ReasonNone UnprovenReason = iota
	ReasonTimeout
	ReasonComplexity
)

func (r UnprovenReason) String() string {
	switch r {
	case ReasonNone:
		return ""
	case ReasonTimeout:
		return "timeout"
	case ReasonComplexity:
		return "complexity"
	default:
		return "?"
	}
}

// ContractID names one postcondition of one function.
type ContractID struct {
	Func  ir.FuncID
	Index int
}

func (c ContractID) String() string {
	return fmt.Sprintf("%s:post[%d]", c.Func, c.Index)
}

// Outcome is the verdict for a single contract. Counterexample is set
// only for Disproven: parameter values plus, when the failing path
// returns a value, the computed result under the key "result".
// Construct is set only for Unsupported; Reason only for Unproven.
type Outcome struct {
	Contract       ContractID
	Expr           ir.Expr
	Kind           Kind
	Counterexample map[string]int64
	Reason         UnprovenReason
	Construct      string
}

// Elidable reports whether the runtime check for this contract may be
// removed from generated code. Only a proof permits that: a disproof is a
// real bug the runtime check must still catch, and anything undecided
// keeps full runtime enforcement as the safety net.
func (o Outcome) Elidable() bool {
	return o.Kind == Proven
}

// DefaultTimeout is the per-function solver budget.
const DefaultTimeout = 5 * time.Second

// Verifier drives contract verification across a snapshot.
type Verifier struct {
	// Timeout bounds solver work per function; DefaultTimeout when zero.
	Timeout time.Duration
	// Workers bounds concurrent function verification; 1 when zero or
	// negative.
	Workers int
	// OnFunction, when non-nil, is invoked after each function finishes.
	// It must be safe for concurrent use.
	OnFunction func(ir.FuncID)
}

// VerifyAll verifies every postcondition in the snapshot. Functions are
// independent and run concurrently on a bounded pool; outcomes are
// returned in sorted function order regardless of completion order.
func (v *Verifier) VerifyAll(ctx context.Context, snap *ir.Snapshot) ([]Outcome, error) {
	workers := v.Workers
	if workers <= 0 {
		workers = 1
	}
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ids := snap.FuncIDs()
	perFunc := make([][]Outcome, len(ids))

	grp, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(workers))
	for i, id := range ids {
		i := i
		f, _ := snap.Function(id)
		if len(f.Postconditions) == 0 {
			continue
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		grp.Go(func() error {
			defer sem.Release(1)
			fctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()
			perFunc[i] = VerifyFunction(fctx, f)
			if v.OnFunction != nil {
				v.OnFunction(f.ID)
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []Outcome
	for _, outcomes := range perFunc {
		out = append(out, outcomes...)
	}
	return out, nil
}

// VerifyFunction classifies every postcondition of a single function.
func VerifyFunction(ctx context.Context, f *ir.Function) []Outcome {
	outcomes := make([]Outcome, 0, len(f.Postconditions))
	state := newFuncState(f)

	for i, post := range f.Postconditions {
		o := state.verifyPost(ctx, ContractID{Func: f.ID, Index: i}, post)
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// funcState caches the per-function work shared by all postconditions:
// the enumerated paths and the translated preconditions.
type funcState struct {
	fn     *ir.Function
	solver *solver.Solver

	paths    []contract.Path
	pathErr  error
	pres     []solver.Formula
	preErr   error
	preConds []ir.Expr
}

func newFuncState(f *ir.Function) *funcState {
	st := &funcState{fn: f, solver: solver.New(), preConds: f.Preconditions}
	st.paths, st.pathErr = contract.Enumerate(f)

	for _, pre := range f.Preconditions {
		formula, err := contract.Translate(pre)
		if err != nil {
			st.preErr = err
			break
		}
		st.pres = append(st.pres, formula)
	}
	return st
}

func (st *funcState) verifyPost(ctx context.Context, id ContractID, post ir.Expr) Outcome {
	out := Outcome{Contract: id, Expr: post}

	// Classification happens before any solver call: a contract outside
	// the grammar must never be partially encoded.
	if _, err := contract.Translate(post); err != nil {
		return classifyError(out, err)
	}
	if st.preErr != nil {
		return classifyError(out, st.preErr)
	}
	if st.pathErr != nil {
		return classifyError(out, st.pathErr)
	}

	needsResult := mentionsResult(post)
	worst := ReasonNone

	for _, path := range st.paths {
		if err := ctx.Err(); err != nil {
			return unproven(out, ReasonTimeout)
		}
		if needsResult && path.Return == nil {
			out.Kind = Unsupported
			out.Construct = "postcondition references result on a value-less path"
			return out
		}

		query, conds, substituted, err := st.pathQuery(path, post)
		if err != nil {
			return classifyError(out, err)
		}

		res := st.solver.Check(ctx, query)
		switch res.Status {
		case solver.StatusUnsat:
			continue
		case solver.StatusSat:
			cex, ok := st.confirm(res.Model, conds, substituted, path)
			if !ok {
				// The model did not survive concrete re-evaluation;
				// an unconfirmed disproof never ships.
				if worst != ReasonTimeout {
					worst = ReasonComplexity
				}
				continue
			}
			out.Kind = Disproven
			out.Counterexample = cex
			return out
		default:
			r := ReasonComplexity
			if res.Reason == solver.ReasonTimeout {
				r = ReasonTimeout
			}
			if worst != ReasonTimeout {
				worst = r
			}
		}
	}

	if worst != ReasonNone {
		return unproven(out, worst)
	}
	out.Kind = Proven
	return out
}

// pathQuery builds precondition && path condition && !postcondition for
// one path, with `result` replaced by the path's returned expression.
func (st *funcState) pathQuery(path contract.Path, post ir.Expr) (solver.Formula, []ir.Expr, ir.Expr, error) {
	parts := make([]solver.Formula, 0, len(st.pres)+len(path.Conds)+1)
	parts = append(parts, st.pres...)

	for _, cond := range path.Conds {
		formula, err := contract.Translate(cond)
		if err != nil {
			return nil, nil, nil, err
		}
		parts = append(parts, formula)
	}

	substituted := post
	if path.Return != nil {
		substituted = contract.SubstituteResult(post, path.Return)
	}
	negated, err := contract.Translate(substituted)
	if err != nil {
		return nil, nil, nil, err
	}
	parts = append(parts, solver.Negate(negated))

	return solver.Conj(parts...), path.Conds, substituted, nil
}

// confirm re-evaluates a candidate model concretely: every precondition
// and path condition must hold and the substituted postcondition must
// fail. On success it returns the reportable counterexample.
func (st *funcState) confirm(model solver.Model, conds []ir.Expr, substituted ir.Expr, path contract.Path) (map[string]int64, bool) {
	env := contract.Env{
		Ints:  make(map[string]int64),
		Bools: make(map[string]bool),
	}
	for name, val := range model {
		if val.IsBool {
			env.Bools[name] = val.Bool
		} else {
			env.Ints[name] = val.Int
		}
	}
	for _, p := range st.fn.Params {
		switch p.Type {
		case ir.TypeBool:
			if _, ok := env.Bools[p.Name]; !ok {
				env.Bools[p.Name] = false
			}
		default:
			if _, ok := env.Ints[p.Name]; !ok {
				env.Ints[p.Name] = 0
			}
		}
	}

	for _, pre := range st.preConds {
		ok, err := contract.EvalBool(pre, env)
		if err != nil || !ok {
			return nil, false
		}
	}
	for _, cond := range conds {
		ok, err := contract.EvalBool(cond, env)
		if err != nil || !ok {
			return nil, false
		}
	}
	holds, err := contract.EvalBool(substituted, env)
	if err != nil || holds {
		return nil, false
	}

	cex := make(map[string]int64, len(st.fn.Params)+1)
	for _, p := range st.fn.Params {
		if p.Type == ir.TypeBool {
			continue
		}
		cex[p.Name] = env.Ints[p.Name]
	}
	if path.Return != nil {
		if result, err := contract.EvalInt(path.Return, env); err == nil {
			cex[contract.ResultVar] = result
		}
	}
	return cex, true
}

func classifyError(out Outcome, err error) Outcome {
	switch e := err.(type) {
	case *contract.UnsupportedError:
		out.Kind = Unsupported
		out.Construct = e.Construct
	case *contract.PathExplosionError:
		out.Kind = Unproven
		out.Reason = ReasonComplexity
	default:
		out.Kind = Unproven
		out.Reason = ReasonComplexity
	}
	return out
}

func unproven(out Outcome, r UnprovenReason) Outcome {
	out.Kind = Unproven
	out.Reason = r
	return out
}

func mentionsResult(e ir.Expr) bool {
	found := false
	ir.WalkExpr(e, func(sub ir.Expr) {
		if _, ok := sub.(ir.ResultRef); ok {
			found = true
		}
	})
	return found
}
