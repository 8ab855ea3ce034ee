package contract

import (
	"fmt"

	"github.com/riftlang/riftcheck/internal/ir"
)

// Env supplies concrete values for evaluation.
type Env struct {
	Ints  map[string]int64
	Bools map[string]bool
}

func (env Env) child(name string, val int64) Env {
	ints := make(map[string]int64, len(env.Ints)+1)
	for k, v := range env.Ints {
		ints[k] = v
	}
	ints[name] = val
	return Env{Ints: ints, Bools: env.Bools}
}

// EvalBool evaluates a boolean-sorted expression under concrete values.
// It is used to re-check candidate counterexamples before a disproof is
// reported: a model the evaluator rejects is discarded.
func EvalBool(e ir.Expr, env Env) (bool, error) {
	switch x := e.(type) {
	case ir.BoolLit:
		return x.Val, nil
	case ir.VarRef:
		v, ok := env.Bools[x.Name]
		if !ok {
			return false, fmt.Errorf("unbound boolean %s", x.Name)
		}
		return v, nil
	case ir.Unary:
		if x.Op != ir.OpNot {
			return false, fmt.Errorf("unary %s is not boolean", x.Op)
		}
		v, err := EvalBool(x.Operand, env)
		if err != nil {
			return false, err
		}
		return !v, nil
	case ir.Implies:
		a, err := EvalBool(x.If, env)
		if err != nil {
			return false, err
		}
		if !a {
			return true, nil
		}
		return EvalBool(x.Then, env)
	case ir.Quantified:
		for i := x.Lo; i <= x.Hi; i++ {
			v, err := EvalBool(x.Body, env.child(x.Var, i))
			if err != nil {
				return false, err
			}
			if x.Quant == ir.ForAll && !v {
				return false, nil
			}
			if x.Quant == ir.Exists && v {
				return true, nil
			}
		}
		return x.Quant == ir.ForAll, nil
	case ir.Binary:
		switch x.Op {
		case ir.OpAnd:
			a, err := EvalBool(x.Left, env)
			if err != nil || !a {
				return false, err
			}
			return EvalBool(x.Right, env)
		case ir.OpOr:
			a, err := EvalBool(x.Left, env)
			if err != nil || a {
				return a, err
			}
			return EvalBool(x.Right, env)
		}
		if !x.Op.IsComparison() {
			return false, fmt.Errorf("%s is not boolean", x.Op)
		}
		l, err := EvalInt(x.Left, env)
		if err != nil {
			return false, err
		}
		r, err := EvalInt(x.Right, env)
		if err != nil {
			return false, err
		}
		switch x.Op {
		case ir.OpEq:
			return l == r, nil
		case ir.OpNeq:
			return l != r, nil
		case ir.OpLt:
			return l < r, nil
		case ir.OpLte:
			return l <= r, nil
		case ir.OpGt:
			return l > r, nil
		default: // OpGte
			return l >= r, nil
		}
	default:
		return false, fmt.Errorf("cannot evaluate %T as boolean", e)
	}
}

// EvalInt evaluates an integer-sorted expression under concrete values.
func EvalInt(e ir.Expr, env Env) (int64, error) {
	switch x := e.(type) {
	case ir.IntLit:
		return x.Val, nil
	case ir.VarRef:
		v, ok := env.Ints[x.Name]
		if !ok {
			return 0, fmt.Errorf("unbound integer %s", x.Name)
		}
		return v, nil
	case ir.ResultRef:
		v, ok := env.Ints[ResultVar]
		if !ok {
			return 0, fmt.Errorf("result is not bound")
		}
		return v, nil
	case ir.Unary:
		if x.Op != ir.OpNeg {
			return 0, fmt.Errorf("unary %s is not arithmetic", x.Op)
		}
		v, err := EvalInt(x.Operand, env)
		if err != nil {
			return 0, err
		}
		return -v, nil
	case ir.Binary:
		if !x.Op.IsArithmetic() {
			return 0, fmt.Errorf("%s is not arithmetic", x.Op)
		}
		l, err := EvalInt(x.Left, env)
		if err != nil {
			return 0, err
		}
		r, err := EvalInt(x.Right, env)
		if err != nil {
			return 0, err
		}
		switch x.Op {
		case ir.OpAdd:
			return l + r, nil
		case ir.OpSub:
			return l - r, nil
		case ir.OpMul:
			return l * r, nil
		case ir.OpDiv:
			if r == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return l / r, nil
		default: // OpMod
			if r == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			return l % r, nil
		}
	default:
		return 0, fmt.Errorf("cannot evaluate %T as integer", e)
	}
}
