// Package solver decides satisfiability of quantifier-free formulas over
// boolean variables and linear integer arithmetic, the exact fragment the
// contract translator emits. It follows the house pattern of a small,
// scope-limited symbolic engine: negation normal form, DNF cube
// enumeration, Fourier-Motzkin elimination over exact rationals for
// refutations, and integer witness extraction for satisfying assignments.
//
// Soundness discipline: Unsat is reported only when every cube is
// rationally infeasible (which implies integer infeasibility), and Sat is
// reported only with a concrete integer model that has been re-checked
// against the formula. Everything else is Unknown.
package solver

import (
	"fmt"
	"sort"
	"strings"
)

// Formula is a quantifier-free formula over boolean literals and linear
// integer atoms.
type Formula interface {
	isFormula()
	String() string
}

// Bool is a constant formula.
type Bool struct {
	Val bool
}

func (Bool) isFormula() {}
func (f Bool) String() string {
	return fmt.Sprintf("%t", f.Val)
}

// Lit is a possibly negated boolean variable.
type Lit struct {
	Var string
	Neg bool
}

func (Lit) isFormula() {}
func (f Lit) String() string {
	if f.Neg {
		return "!" + f.Var
	}
	return f.Var
}

// Atom is a linear constraint over integer variables:
//
//	sum(Coeffs[v] * v) <= K        when Eq is false
//	sum(Coeffs[v] * v) == K        when Eq is true
//
// All comparisons are normalized into this form by the translator;
// strict inequalities are tightened using integrality before they get
// here (a < b becomes a - b <= -1).
type Atom struct {
	Coeffs map[string]int64
	K      int64
	Eq     bool
}

func (Atom) isFormula() {}
func (f Atom) String() string {
	vars := make([]string, 0, len(f.Coeffs))
	for v := range f.Coeffs {
		vars = append(vars, v)
	}
	sort.Strings(vars)

	var b strings.Builder
	for i, v := range vars {
		c := f.Coeffs[v]
		if i > 0 {
			b.WriteString(" + ")
		}
		if c == 1 {
			b.WriteString(v)
		} else {
			fmt.Fprintf(&b, "%d*%s", c, v)
		}
	}
	if len(vars) == 0 {
		b.WriteString("0")
	}
	if f.Eq {
		fmt.Fprintf(&b, " == %d", f.K)
	} else {
		fmt.Fprintf(&b, " <= %d", f.K)
	}
	return b.String()
}

// Not negates a formula.
type Not struct {
	F Formula
}

func (Not) isFormula() {}
func (f Not) String() string {
	return "!(" + f.F.String() + ")"
}

// And is an n-ary conjunction.
type And struct {
	Fs []Formula
}

func (And) isFormula() {}
func (f And) String() string {
	return joinFormulas(f.Fs, " && ")
}

// Or is an n-ary disjunction.
type Or struct {
	Fs []Formula
}

func (Or) isFormula() {}
func (f Or) String() string {
	return joinFormulas(f.Fs, " || ")
}

func joinFormulas(fs []Formula, sep string) string {
	if len(fs) == 0 {
		return "()"
	}
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// Conj builds a conjunction, flattening trivial cases.
func Conj(fs ...Formula) Formula {
	out := make([]Formula, 0, len(fs))
	for _, f := range fs {
		if b, ok := f.(Bool); ok {
			if !b.Val {
				return Bool{Val: false}
			}
			continue
		}
		out = append(out, f)
	}
	switch len(out) {
	case 0:
		return Bool{Val: true}
	case 1:
		return out[0]
	}
	return And{Fs: out}
}

// Disj builds a disjunction, flattening trivial cases.
func Disj(fs ...Formula) Formula {
	out := make([]Formula, 0, len(fs))
	for _, f := range fs {
		if b, ok := f.(Bool); ok {
			if b.Val {
				return Bool{Val: true}
			}
			continue
		}
		out = append(out, f)
	}
	switch len(out) {
	case 0:
		return Bool{Val: false}
	case 1:
		return out[0]
	}
	return Or{Fs: out}
}

// Negate wraps a formula in a negation.
func Negate(f Formula) Formula {
	return Not{F: f}
}

// LowerLe builds the atom lhs - rhs <= bias, where lhs and rhs are linear
// terms. Used by the translator for every normalized comparison.
type Term struct {
	Coeffs map[string]int64
	Const  int64
}

// NewTerm returns the zero term.
func NewTerm() Term {
	return Term{Coeffs: make(map[string]int64)}
}

// ConstTerm returns a constant term.
func ConstTerm(k int64) Term {
	return Term{Coeffs: make(map[string]int64), Const: k}
}

// VarTerm returns the term for a single variable.
func VarTerm(name string) Term {
	return Term{Coeffs: map[string]int64{name: 1}, Const: 0}
}

// Add returns t + o.
func (t Term) Add(o Term) Term {
	out := t.clone()
	for v, c := range o.Coeffs {
		out.Coeffs[v] += c
		if out.Coeffs[v] == 0 {
			delete(out.Coeffs, v)
		}
	}
	out.Const += o.Const
	return out
}

// Sub returns t - o.
func (t Term) Sub(o Term) Term {
	return t.Add(o.Scale(-1))
}

// Scale returns t multiplied by the constant k.
func (t Term) Scale(k int64) Term {
	out := NewTerm()
	if k == 0 {
		return out
	}
	for v, c := range t.Coeffs {
		out.Coeffs[v] = c * k
	}
	out.Const = t.Const * k
	return out
}

// IsConst reports whether the term has no variables.
func (t Term) IsConst() bool {
	return len(t.Coeffs) == 0
}

func (t Term) clone() Term {
	out := Term{Coeffs: make(map[string]int64, len(t.Coeffs)), Const: t.Const}
	for v, c := range t.Coeffs {
		out.Coeffs[v] = c
	}
	return out
}

// Le builds the formula t <= o.
func Le(t, o Term) Formula {
	return atomFrom(t.Sub(o), 0, false)
}

// Lt builds t < o, tightened for integers to t <= o - 1.
func Lt(t, o Term) Formula {
	return atomFrom(t.Sub(o), -1, false)
}

// EqZero builds t == o.
func EqF(t, o Term) Formula {
	return atomFrom(t.Sub(o), 0, true)
}

// NeF builds t != o as a split disjunction.
func NeF(t, o Term) Formula {
	return Disj(Lt(t, o), Lt(o, t))
}

// atomFrom converts diff <= bound (or == bound) into a canonical Atom,
// folding the term's constant into K. A ground atom folds to a Bool.
func atomFrom(diff Term, bound int64, eq bool) Formula {
	k := bound - diff.Const
	if diff.IsConst() {
		if eq {
			return Bool{Val: k == 0}
		}
		return Bool{Val: 0 <= k}
	}
	coeffs := make(map[string]int64, len(diff.Coeffs))
	for v, c := range diff.Coeffs {
		coeffs[v] = c
	}
	return Atom{Coeffs: coeffs, K: k, Eq: eq}
}
