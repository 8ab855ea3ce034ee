package solver

import (
	"context"
	"sort"
)

// Status is the three-valued satisfiability verdict.
type Status int

const (
	StatusUnsat Status = iota
	StatusSat
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusUnsat:
		return "unsat"
	case StatusSat:
		return "sat"
	case StatusUnknown:
		return "unknown"
	default:
		return "?"
	}
}

// Reason qualifies a StatusUnknown result.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonTimeout
	ReasonComplexity
)

func (r Reason) String() string {
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

// Value is a model assignment for one variable.
type Value struct {
	IsBool bool
	Bool   bool
	Int    int64
}

// Model maps variable names to values. Variables the cube never
// constrained are assigned zero or false.
type Model map[string]Value

// Result is the outcome of one satisfiability check.
type Result struct {
	Status Status
	Model  Model
	Reason Reason
}

// Solver checks satisfiability of formulas. The zero value is not usable;
// construct with New.
type Solver struct {
	// MaxCubes bounds the number of DNF cubes examined before giving up
	// with ReasonComplexity.
	MaxCubes int
	// MaxConstraints bounds the intermediate constraint count during
	// variable elimination in a single cube.
	MaxConstraints int
}

const (
	defaultMaxCubes       = 4096
	defaultMaxConstraints = 8192
)

// New returns a solver with default resource caps.
func New() *Solver {
	return &Solver{
		MaxCubes:       defaultMaxCubes,
		MaxConstraints: defaultMaxConstraints,
	}
}

// Check decides satisfiability of f. The verdict is sound in both
// directions: StatusUnsat means no integer assignment satisfies f, and
// StatusSat carries a model that Check has re-evaluated against f.
// Cancellation and deadline expiry on ctx yield StatusUnknown with
// ReasonTimeout.
func (s *Solver) Check(ctx context.Context, f Formula) Result {
	nnf := toNNF(f, false)

	maxCubes := s.MaxCubes
	if maxCubes <= 0 {
		maxCubes = defaultMaxCubes
	}
	maxCons := s.MaxConstraints
	if maxCons <= 0 {
		maxCons = defaultMaxConstraints
	}

	var (
		found      Model
		sawUnknown bool
		timedOut   bool
		cubeCount  int
	)

	complete := enumCubes(nnf, func(cube []Formula) bool {
		if ctx.Err() != nil {
			timedOut = true
			return false
		}
		cubeCount++
		if cubeCount > maxCubes {
			sawUnknown = true
			return false
		}

		model, ok := s.checkCube(cube, maxCons)
		switch {
		case ok && model != nil:
			found = model
			return false
		case !ok:
			sawUnknown = true
		}
		return true
	})

	switch {
	case found != nil:
		completeModel(found, nnf)
		if !evaluate(nnf, found) {
			// The elimination engine produced a bogus witness; never
			// report Sat on an unverified model.
			return Result{Status: StatusUnknown, Reason: ReasonComplexity}
		}
		return Result{Status: StatusSat, Model: found}
	case timedOut:
		return Result{Status: StatusUnknown, Reason: ReasonTimeout}
	case sawUnknown || !complete:
		return Result{Status: StatusUnknown, Reason: ReasonComplexity}
	default:
		return Result{Status: StatusUnsat}
	}
}

// checkCube decides one conjunction of literals and atoms. It returns
// (model, true) when satisfiable, (nil, true) when definitely not, and
// (nil, false) when the answer could not be determined.
func (s *Solver) checkCube(cube []Formula, maxCons int) (Model, bool) {
	bools := make(map[string]bool)
	var atoms []Atom

	for _, leaf := range cube {
		switch x := leaf.(type) {
		case Lit:
			want := !x.Neg
			if have, ok := bools[x.Var]; ok && have != want {
				return nil, true
			}
			bools[x.Var] = want
		case Atom:
			atoms = append(atoms, x)
		}
	}

	intModel, feas := solveLinear(atoms, maxCons)
	switch feas {
	case linInfeasible:
		return nil, true
	case linTooLarge, linNoIntModel:
		return nil, false
	}

	model := make(Model, len(bools)+len(intModel))
	for v, b := range bools {
		model[v] = Value{IsBool: true, Bool: b}
	}
	for v, n := range intModel {
		model[v] = Value{Int: n}
	}
	return model, true
}

// completeModel assigns defaults to formula variables the chosen cube
// never mentioned.
func completeModel(m Model, f Formula) {
	ints, bools := collectVars(f)
	for _, v := range ints {
		if _, ok := m[v]; !ok {
			m[v] = Value{Int: 0}
		}
	}
	for _, v := range bools {
		if _, ok := m[v]; !ok {
			m[v] = Value{IsBool: true}
		}
	}
}

// collectVars returns the integer and boolean variables of f, sorted.
func collectVars(f Formula) (ints, bools []string) {
	intSet := make(map[string]bool)
	boolSet := make(map[string]bool)
	var walk func(Formula)
	walk = func(f Formula) {
		switch x := f.(type) {
		case Lit:
			boolSet[x.Var] = true
		case Atom:
			for v := range x.Coeffs {
				intSet[v] = true
			}
		case Not:
			walk(x.F)
		case And:
			for _, sub := range x.Fs {
				walk(sub)
			}
		case Or:
			for _, sub := range x.Fs {
				walk(sub)
			}
		}
	}
	walk(f)

	for v := range intSet {
		ints = append(ints, v)
	}
	for v := range boolSet {
		bools = append(bools, v)
	}
	sort.Strings(ints)
	sort.Strings(bools)
	return ints, bools
}

// evaluate computes the truth value of f under a total model.
func evaluate(f Formula, m Model) bool {
	switch x := f.(type) {
	case Bool:
		return x.Val
	case Lit:
		return m[x.Var].Bool != x.Neg
	case Atom:
		var sum int64
		for v, c := range x.Coeffs {
			sum += c * m[v].Int
		}
		if x.Eq {
			return sum == x.K
		}
		return sum <= x.K
	case Not:
		return !evaluate(x.F, m)
	case And:
		for _, sub := range x.Fs {
			if !evaluate(sub, m) {
				return false
			}
		}
		return true
	case Or:
		for _, sub := range x.Fs {
			if evaluate(sub, m) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
