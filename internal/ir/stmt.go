package ir

import (
	"strings"

	"github.com/riftlang/riftcheck/internal/effects"
)

// Stmt represents a statement in a function body.
type Stmt interface {
	isStmt()
	String() string
}

// Block is a sequence of statements.
type Block struct {
	Stmts []Stmt
}

func (Block) isStmt() {}
func (s Block) String() string {
	if len(s.Stmts) == 0 {
		return "{}"
	}
	parts := make([]string, len(s.Stmts))
	for i, st := range s.Stmts {
		parts[i] = st.String()
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

// Assign assigns an expression to a local variable.
type Assign struct {
	Var   string
	Value Expr
}

func (Assign) isStmt() {}
func (s Assign) String() string {
	return s.Var + " = " + s.Value.String()
}

// If is a two-way branch. Else may be nil.
type If struct {
	Cond Expr
	Then Stmt
	Else Stmt
}

func (If) isStmt() {}
func (s If) String() string {
	out := "if " + s.Cond.String() + " " + s.Then.String()
	if s.Else != nil {
		out += " else " + s.Else.String()
	}
	return out
}

// Return exits the function. Value is nil for a bare return.
type Return struct {
	Value Expr
}

func (Return) isStmt() {}
func (s Return) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.String()
}

// Loop is a condition-controlled loop. Loop bodies put postconditions
// depending on loop-modified state out of static-proof scope, but they are
// still traversed by the call graph builder and the effect scanner.
type Loop struct {
	Cond Expr
	Body Stmt
}

func (Loop) isStmt() {}
func (s Loop) String() string {
	return "while " + s.Cond.String() + " " + s.Body.String()
}

// ExprStmt evaluates an expression for its side effects, typically a call.
type ExprStmt struct {
	X Expr
}

func (ExprStmt) isStmt() {}
func (s ExprStmt) String() string {
	return s.X.String()
}

// EffectOp is a primitive side-effecting operation, the source of a
// function's directly observed local effects.
type EffectOp struct {
	Effect effects.Code
	Args   []Expr
	Span   Span
}

func (EffectOp) isStmt() {}
func (s EffectOp) String() string {
	return "effect<" + string(s.Effect) + ">"
}
