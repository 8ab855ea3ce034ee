package contract

import (
	"fmt"

	"github.com/riftlang/riftcheck/internal/ir"
)

// MaxPaths bounds the number of execution paths enumerated per function.
// N independent branches yield up to 2^N paths, so the walk aborts once
// the bound is crossed rather than exhausting memory.
const MaxPaths = 1024

// PathExplosionError reports that a function body branches too much to
// enumerate. The verifier classifies affected contracts Unproven with a
// complexity reason.
type PathExplosionError struct {
	Func ir.FuncID
}

func (e *PathExplosionError) Error() string {
	return fmt.Sprintf("function %s exceeds %d execution paths", e.Func, MaxPaths)
}

// Path is one loop-free execution of a function body: the conjunction of
// branch conditions taken to reach a return point, and the returned
// expression with all local assignments substituted away. Return is nil
// for a bare return or for falling off the end of the body.
type Path struct {
	Conds  []ir.Expr
	Return ir.Expr
}

// Enumerate walks a branching, loop-free body and produces its
// (path condition, returned expression) pairs. Assignments are resolved
// by substitution so every returned expression and condition refers only
// to parameters. Loops classify the function Unsupported; syntactically
// contradictory paths are dropped, everything subtler is left to the
// solver.
func Enumerate(f *ir.Function) ([]Path, error) {
	w := &walker{fn: f.ID}
	var stmts []ir.Stmt
	if f.Body != nil {
		stmts = []ir.Stmt{f.Body}
	}
	if err := w.run(stmts, nil, nil); err != nil {
		return nil, err
	}
	return w.paths, nil
}

type walker struct {
	fn    ir.FuncID
	paths []Path
}

func (w *walker) run(stmts []ir.Stmt, conds []ir.Expr, env map[string]ir.Expr) error {
	if len(stmts) == 0 {
		return w.emit(conds, nil)
	}
	head, rest := stmts[0], stmts[1:]

	switch s := head.(type) {
	case ir.Block:
		merged := make([]ir.Stmt, 0, len(s.Stmts)+len(rest))
		merged = append(merged, s.Stmts...)
		merged = append(merged, rest...)
		return w.run(merged, conds, env)

	case ir.Assign:
		next := cloneEnv(env)
		next[s.Var] = Substitute(s.Value, env)
		return w.run(rest, conds, next)

	case ir.Return:
		var ret ir.Expr
		if s.Value != nil {
			ret = Substitute(s.Value, env)
		}
		return w.emit(conds, ret)

	case ir.If:
		cond := Substitute(s.Cond, env)

		thenStmts := []ir.Stmt{s.Then}
		merged := make([]ir.Stmt, 0, len(thenStmts)+len(rest))
		merged = append(merged, thenStmts...)
		merged = append(merged, rest...)
		if err := w.run(merged, appendCond(conds, cond), cloneEnv(env)); err != nil {
			return err
		}

		negated := ir.Unary{Op: ir.OpNot, Operand: cond}
		elseStmts := rest
		if s.Else != nil {
			elseStmts = make([]ir.Stmt, 0, len(rest)+1)
			elseStmts = append(elseStmts, s.Else)
			elseStmts = append(elseStmts, rest...)
		}
		return w.run(elseStmts, appendCond(conds, negated), cloneEnv(env))

	case ir.Loop:
		return unsupported("loop in function %s", w.fn)

	default:
		// ExprStmt and EffectOp do not touch control flow or locals.
		return w.run(rest, conds, env)
	}
}

func (w *walker) emit(conds []ir.Expr, ret ir.Expr) error {
	if contradictory(conds) {
		return nil
	}
	if len(w.paths) >= MaxPaths {
		return &PathExplosionError{Func: w.fn}
	}
	out := make([]ir.Expr, len(conds))
	copy(out, conds)
	w.paths = append(w.paths, Path{Conds: out, Return: ret})
	return nil
}

// contradictory applies the cheap syntactic checks: a literal false
// conjunct, or a condition appearing both plain and negated. The solver
// remains authoritative for everything else.
func contradictory(conds []ir.Expr) bool {
	seen := make(map[string]bool, len(conds))
	for _, c := range conds {
		if lit, ok := c.(ir.BoolLit); ok && !lit.Val {
			return true
		}
		seen[c.String()] = true
	}
	for _, c := range conds {
		if u, ok := c.(ir.Unary); ok && u.Op == ir.OpNot {
			if seen[u.Operand.String()] {
				return true
			}
		}
	}
	return false
}

func appendCond(conds []ir.Expr, c ir.Expr) []ir.Expr {
	out := make([]ir.Expr, 0, len(conds)+1)
	out = append(out, conds...)
	out = append(out, c)
	return out
}

func cloneEnv(env map[string]ir.Expr) map[string]ir.Expr {
	out := make(map[string]ir.Expr, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

// Substitute replaces variable references bound in env throughout an
// expression tree. Used for assignment resolution during path walking and
// for the `result` placeholder via SubstituteResult.
func Substitute(e ir.Expr, env map[string]ir.Expr) ir.Expr {
	if len(env) == 0 {
		return e
	}
	switch x := e.(type) {
	case ir.VarRef:
		if repl, ok := env[x.Name]; ok {
			return repl
		}
		return x
	case ir.Unary:
		return ir.Unary{Op: x.Op, Operand: Substitute(x.Operand, env)}
	case ir.Binary:
		return ir.Binary{
			Op:    x.Op,
			Left:  Substitute(x.Left, env),
			Right: Substitute(x.Right, env),
		}
	case ir.Implies:
		return ir.Implies{
			If:   Substitute(x.If, env),
			Then: Substitute(x.Then, env),
		}
	case ir.Quantified:
		// The quantifier variable shadows any outer binding.
		if _, shadowed := env[x.Var]; shadowed {
			inner := cloneEnv(env)
			delete(inner, x.Var)
			return ir.Quantified{Quant: x.Quant, Var: x.Var, Lo: x.Lo, Hi: x.Hi, Body: Substitute(x.Body, inner)}
		}
		return ir.Quantified{Quant: x.Quant, Var: x.Var, Lo: x.Lo, Hi: x.Hi, Body: Substitute(x.Body, env)}
	case ir.Call:
		args := make([]ir.Expr, len(x.Args))
		for i, a := range x.Args {
			args[i] = Substitute(a, env)
		}
		return ir.Call{Target: x.Target, Args: args, Span: x.Span}
	default:
		return e
	}
}

// SubstituteResult replaces the `result` placeholder in a postcondition
// with the path's returned expression.
func SubstituteResult(e ir.Expr, ret ir.Expr) ir.Expr {
	switch x := e.(type) {
	case ir.ResultRef:
		return ret
	case ir.Unary:
		return ir.Unary{Op: x.Op, Operand: SubstituteResult(x.Operand, ret)}
	case ir.Binary:
		return ir.Binary{
			Op:    x.Op,
			Left:  SubstituteResult(x.Left, ret),
			Right: SubstituteResult(x.Right, ret),
		}
	case ir.Implies:
		return ir.Implies{
			If:   SubstituteResult(x.If, ret),
			Then: SubstituteResult(x.Then, ret),
		}
	case ir.Quantified:
		return ir.Quantified{Quant: x.Quant, Var: x.Var, Lo: x.Lo, Hi: x.Hi, Body: SubstituteResult(x.Body, ret)}
	case ir.Call:
		args := make([]ir.Expr, len(x.Args))
		for i, a := range x.Args {
			args[i] = SubstituteResult(a, ret)
		}
		return ir.Call{Target: x.Target, Args: args, Span: x.Span}
	default:
		return e
	}
}
