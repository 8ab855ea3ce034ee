// Package contract lowers behavioral contracts and function bodies into the
// solver's formula language. The contract grammar is deliberately small:
// linear integer arithmetic, comparisons, boolean connectives, implication,
// and bounded quantifiers over statically known ranges. Anything outside it
// is rejected up front with UnsupportedError, never partially encoded.
package contract

import (
	"fmt"

	"github.com/riftlang/riftcheck/internal/ir"
	"github.com/riftlang/riftcheck/internal/solver"
)

// ResultVar is the solver variable standing for the function's return
// value when a contract's `result` placeholder survives substitution.
const ResultVar = "result"

// MaxQuantifierInstances bounds the total number of body instantiations
// produced while lowering bounded quantifiers, across nesting.
const MaxQuantifierInstances = 4096

// UnsupportedError marks a contract that falls outside the provable
// grammar. The verifier classifies the whole contract Unsupported without
// issuing a solver call.
type UnsupportedError struct {
	Construct string
}

func (e *UnsupportedError) Error() string {
	return "unsupported construct: " + e.Construct
}

func unsupported(format string, args ...any) error {
	return &UnsupportedError{Construct: fmt.Sprintf(format, args...)}
}

// Translate lowers a boolean-sorted contract expression into a solver
// formula. Bounded quantifiers are expanded to finite conjunctions or
// disjunctions; a surviving `result` placeholder becomes the ResultVar
// integer variable.
func Translate(e ir.Expr) (solver.Formula, error) {
	tr := &translator{
		bound:  make(map[string]int64),
		budget: MaxQuantifierInstances,
	}
	return tr.formula(e)
}

type translator struct {
	// bound holds the current instantiation value of each quantifier
	// variable in scope.
	bound  map[string]int64
	budget int
}

func (tr *translator) formula(e ir.Expr) (solver.Formula, error) {
	switch x := e.(type) {
	case ir.BoolLit:
		return solver.Bool{Val: x.Val}, nil
	case ir.VarRef:
		if _, ok := tr.bound[x.Name]; ok {
			return nil, unsupported("quantifier variable %s used as a condition", x.Name)
		}
		return solver.Lit{Var: x.Name}, nil
	case ir.Unary:
		if x.Op != ir.OpNot {
			return nil, unsupported("unary %s in boolean position", x.Op)
		}
		sub, err := tr.formula(x.Operand)
		if err != nil {
			return nil, err
		}
		return solver.Negate(sub), nil
	case ir.Binary:
		return tr.binaryFormula(x)
	case ir.Implies:
		antecedent, err := tr.formula(x.If)
		if err != nil {
			return nil, err
		}
		consequent, err := tr.formula(x.Then)
		if err != nil {
			return nil, err
		}
		return solver.Disj(solver.Negate(antecedent), consequent), nil
	case ir.Quantified:
		return tr.quantified(x)
	case ir.Call:
		return nil, unsupported("call to %s", x.Target)
	case ir.FloatLit:
		return nil, unsupported("floating-point literal")
	case ir.StringLit:
		return nil, unsupported("string literal")
	case ir.IntLit:
		return nil, unsupported("integer literal in boolean position")
	case ir.ResultRef:
		return nil, unsupported("result used as a condition")
	default:
		return nil, unsupported("%T node", e)
	}
}

func (tr *translator) binaryFormula(e ir.Binary) (solver.Formula, error) {
	switch e.Op {
	case ir.OpAnd, ir.OpOr:
		left, err := tr.formula(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := tr.formula(e.Right)
		if err != nil {
			return nil, err
		}
		if e.Op == ir.OpAnd {
			return solver.Conj(left, right), nil
		}
		return solver.Disj(left, right), nil
	}
	if !e.Op.IsComparison() {
		return nil, unsupported("arithmetic %s in boolean position", e.Op)
	}

	left, err := tr.term(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := tr.term(e.Right)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case ir.OpEq:
		return solver.EqF(left, right), nil
	case ir.OpNeq:
		return solver.NeF(left, right), nil
	case ir.OpLt:
		return solver.Lt(left, right), nil
	case ir.OpLte:
		return solver.Le(left, right), nil
	case ir.OpGt:
		return solver.Lt(right, left), nil
	default: // OpGte
		return solver.Le(right, left), nil
	}
}

// term lowers an integer-sorted expression into a linear term.
func (tr *translator) term(e ir.Expr) (solver.Term, error) {
	switch x := e.(type) {
	case ir.IntLit:
		return solver.ConstTerm(x.Val), nil
	case ir.VarRef:
		if v, ok := tr.bound[x.Name]; ok {
			return solver.ConstTerm(v), nil
		}
		return solver.VarTerm(x.Name), nil
	case ir.ResultRef:
		return solver.VarTerm(ResultVar), nil
	case ir.Unary:
		if x.Op != ir.OpNeg {
			return solver.Term{}, unsupported("unary %s in arithmetic position", x.Op)
		}
		sub, err := tr.term(x.Operand)
		if err != nil {
			return solver.Term{}, err
		}
		return sub.Scale(-1), nil
	case ir.Binary:
		return tr.binaryTerm(x)
	case ir.Call:
		return solver.Term{}, unsupported("call to %s", x.Target)
	case ir.FloatLit:
		return solver.Term{}, unsupported("floating-point literal")
	case ir.StringLit:
		return solver.Term{}, unsupported("string literal")
	case ir.BoolLit:
		return solver.Term{}, unsupported("boolean literal in arithmetic position")
	default:
		return solver.Term{}, unsupported("%T node", e)
	}
}

func (tr *translator) binaryTerm(e ir.Binary) (solver.Term, error) {
	if !e.Op.IsArithmetic() {
		return solver.Term{}, unsupported("%s in arithmetic position", e.Op)
	}
	switch e.Op {
	case ir.OpDiv:
		return solver.Term{}, unsupported("integer division")
	case ir.OpMod:
		return solver.Term{}, unsupported("modulo")
	}

	left, err := tr.term(e.Left)
	if err != nil {
		return solver.Term{}, err
	}
	right, err := tr.term(e.Right)
	if err != nil {
		return solver.Term{}, err
	}
	switch e.Op {
	case ir.OpAdd:
		return left.Add(right), nil
	case ir.OpSub:
		return left.Sub(right), nil
	default: // OpMul: linear arithmetic admits one constant factor only
		switch {
		case left.IsConst():
			return right.Scale(left.Const), nil
		case right.IsConst():
			return left.Scale(right.Const), nil
		default:
			return solver.Term{}, unsupported("non-linear multiplication")
		}
	}
}

// quantified lowers a bounded quantifier to an explicit finite
// conjunction or disjunction. An empty range is vacuously true for
// forall and false for exists.
func (tr *translator) quantified(e ir.Quantified) (solver.Formula, error) {
	if e.Hi < e.Lo {
		return solver.Bool{Val: e.Quant == ir.ForAll}, nil
	}
	count := e.Hi - e.Lo + 1
	if count > int64(tr.budget) {
		return nil, unsupported("quantifier range [%d, %d] exceeds %d instantiations", e.Lo, e.Hi, MaxQuantifierInstances)
	}
	tr.budget -= int(count)

	if _, shadows := tr.bound[e.Var]; shadows {
		return nil, unsupported("quantifier variable %s shadows an enclosing quantifier", e.Var)
	}

	instances := make([]solver.Formula, 0, count)
	for i := e.Lo; i <= e.Hi; i++ {
		tr.bound[e.Var] = i
		inst, err := tr.formula(e.Body)
		if err != nil {
			delete(tr.bound, e.Var)
			return nil, err
		}
		instances = append(instances, inst)
	}
	delete(tr.bound, e.Var)

	if e.Quant == ir.ForAll {
		return solver.Conj(instances...), nil
	}
	return solver.Disj(instances...), nil
}
