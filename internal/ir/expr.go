package ir

import (
	"fmt"
	"strings"
)

// Expr represents an expression in a function body or contract.
type Expr interface {
	isExpr()
	String() string
}

// IntLit is an integer literal.
type IntLit struct {
	Val int64
}

func (IntLit) isExpr() {}
func (e IntLit) String() string {
	return fmt.Sprintf("%d", e.Val)
}

// BoolLit is a boolean literal.
type BoolLit struct {
	Val bool
}

func (BoolLit) isExpr() {}
func (e BoolLit) String() string {
	return fmt.Sprintf("%t", e.Val)
}

// FloatLit is a floating-point literal. Floats may appear in bodies but are
// outside the statically provable contract grammar.
type FloatLit struct {
	Val float64
}

func (FloatLit) isExpr() {}
func (e FloatLit) String() string {
	return fmt.Sprintf("%g", e.Val)
}

// StringLit is a string literal.
type StringLit struct {
	Val string
}

func (StringLit) isExpr() {}
func (e StringLit) String() string {
	return fmt.Sprintf("%q", e.Val)
}

// VarRef references a parameter or local variable by name.
type VarRef struct {
	Name string
}

func (VarRef) isExpr() {}
func (e VarRef) String() string {
	return e.Name
}

// ResultRef is the `result` placeholder available in postconditions. It is
// substituted with the path's returned expression before translation.
type ResultRef struct{}

func (ResultRef) isExpr() {}
func (ResultRef) String() string {
	return "result"
}

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	_ BinaryOp = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	default:
		return "?"
	}
}

// IsComparison reports whether the operator relates two values.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// IsArithmetic reports whether the operator computes a numeric value.
func (op BinaryOp) IsArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	}
	return false
}

// Binary is a binary expression.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (Binary) isExpr() {}
func (e Binary) String() string {
	return "(" + e.Left.String() + " " + e.Op.String() + " " + e.Right.String() + ")"
}

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "!"
	case OpNeg:
		return "-"
	default:
		return "?"
	}
}

// Unary is a unary expression.
type Unary struct {
	Op      UnaryOp
	Operand Expr
}

func (Unary) isExpr() {}
func (e Unary) String() string {
	return "(" + e.Op.String() + e.Operand.String() + ")"
}

// Implies is logical implication, permitted in contracts only.
type Implies struct {
	If   Expr
	Then Expr
}

func (Implies) isExpr() {}
func (e Implies) String() string {
	return "(" + e.If.String() + " => " + e.Then.String() + ")"
}

// Quantifier distinguishes bounded universal and existential quantification.
type Quantifier int

const (
	ForAll Quantifier = iota
	Exists
)

func (q Quantifier) String() string {
	switch q {
	case ForAll:
		return "forall"
	case Exists:
		return "exists"
	default:
		return "?"
	}
}

// Quantified is a bounded quantifier over a statically known integer range
// [Lo, Hi], inclusive. Permitted in contracts only; it is lowered to a
// finite conjunction or disjunction before solving.
type Quantified struct {
	Quant Quantifier
	Var   string
	Lo    int64
	Hi    int64
	Body  Expr
}

func (Quantified) isExpr() {}
func (e Quantified) String() string {
	return fmt.Sprintf("(%s %s in [%d, %d]: %s)", e.Quant, e.Var, e.Lo, e.Hi, e.Body.String())
}

// TargetKind distinguishes internal from external call targets.
type TargetKind int

const (
	// TargetInternal calls a function defined in the compilation unit.
	TargetInternal TargetKind = iota
	// TargetExternal calls a qualified external member resolved through
	// the effect manifest.
	TargetExternal
)

// CallTarget identifies the callee of a call expression.
type CallTarget struct {
	Kind      TargetKind
	Func      FuncID // valid for TargetInternal
	Qualified string // valid for TargetExternal, e.g. "System.IO.File.ReadAllText"
}

func (t CallTarget) String() string {
	if t.Kind == TargetExternal {
		return t.Qualified
	}
	return string(t.Func)
}

// Call is a function call expression. Calls are legal in bodies; a contract
// containing a call is classified Unsupported.
type Call struct {
	Target CallTarget
	Args   []Expr
	Span   Span
}

func (Call) isExpr() {}
func (e Call) String() string {
	var b strings.Builder
	b.WriteString(e.Target.String())
	b.WriteString("(")
	for i, arg := range e.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(arg.String())
	}
	b.WriteString(")")
	return b.String()
}
