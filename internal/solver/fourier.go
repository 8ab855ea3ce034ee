package solver

import (
	"math/big"
	"sort"
)

// constraint is a rational inequality sum(coeffs[v]*v) <= k.
type constraint struct {
	coeffs map[string]*big.Rat
	k      *big.Rat
}

func (c constraint) coeff(v string) *big.Rat {
	if r, ok := c.coeffs[v]; ok {
		return r
	}
	return new(big.Rat)
}

// linFeasibility classifies the outcome of Fourier-Motzkin elimination.
type linFeasibility int

const (
	linInfeasible linFeasibility = iota
	linIntModel                  // a verified integer model was found
	linNoIntModel                // rationally feasible, no integer point found
	linTooLarge                  // constraint blowup exceeded the cap
)

// stage records the constraints that mentioned a variable at the moment
// it was eliminated, for back-substitution.
type stage struct {
	variable    string
	constraints []constraint
}

// solveLinear runs Fourier-Motzkin elimination over the rationals and, if
// the system is feasible, attempts to extract an integer model by
// back-substitution. maxConstraints bounds the intermediate system size.
func solveLinear(atoms []Atom, maxConstraints int) (map[string]int64, linFeasibility) {
	cons := make([]constraint, 0, len(atoms)*2)
	varSet := make(map[string]bool)
	for _, a := range atoms {
		for v := range a.Coeffs {
			varSet[v] = true
		}
		// An equality contributes both directions.
		cons = append(cons, atomConstraint(a, false))
		if a.Eq {
			cons = append(cons, atomConstraint(a, true))
		}
	}

	vars := make([]string, 0, len(varSet))
	for v := range varSet {
		vars = append(vars, v)
	}
	sort.Strings(vars)

	stages := make([]stage, 0, len(vars))
	for _, v := range vars {
		var with, without []constraint
		for _, c := range cons {
			if c.coeff(v).Sign() != 0 {
				with = append(with, c)
			} else {
				without = append(without, c)
			}
		}
		stages = append(stages, stage{variable: v, constraints: with})

		// Pair every lower bound on v with every upper bound.
		var lowers, uppers []constraint
		for _, c := range with {
			if c.coeff(v).Sign() > 0 {
				uppers = append(uppers, c)
			} else {
				lowers = append(lowers, c)
			}
		}
		cons = without
		for _, lo := range lowers {
			for _, hi := range uppers {
				cons = append(cons, combine(lo, hi, v))
				if len(cons) > maxConstraints {
					return nil, linTooLarge
				}
			}
		}
	}

	// All variables eliminated: every residual constraint is ground.
	zero := new(big.Rat)
	for _, c := range cons {
		if c.k.Cmp(zero) < 0 {
			return nil, linInfeasible
		}
	}

	// Back-substitute in reverse elimination order. Divisibility can make
	// the first in-range integer a dead end, so a bounded backtracking
	// search tries a handful of candidates per variable.
	model := make(map[string]int64, len(vars))
	budget := backtrackBudget
	if assignStages(stages, len(stages)-1, model, &budget) {
		return model, linIntModel
	}
	return nil, linNoIntModel
}

const backtrackBudget = 4096

func assignStages(stages []stage, i int, model map[string]int64, budget *int) bool {
	if i < 0 {
		return true
	}
	st := stages[i]
	for _, cand := range candidates(st, model) {
		if *budget <= 0 {
			return false
		}
		*budget--
		model[st.variable] = cand
		if assignStages(stages, i-1, model, budget) {
			return true
		}
	}
	delete(model, st.variable)
	return false
}

func atomConstraint(a Atom, flip bool) constraint {
	c := constraint{coeffs: make(map[string]*big.Rat, len(a.Coeffs))}
	sign := int64(1)
	if flip {
		sign = -1
	}
	for v, co := range a.Coeffs {
		c.coeffs[v] = new(big.Rat).SetInt64(sign * co)
	}
	c.k = new(big.Rat).SetInt64(sign * a.K)
	return c
}

// combine eliminates v from a lower-bound and an upper-bound constraint.
// lo has coeff(v) < 0, hi has coeff(v) > 0; scaling each by the other's
// magnitude and adding cancels v exactly.
func combine(lo, hi constraint, v string) constraint {
	a := new(big.Rat).Neg(lo.coeff(v)) // > 0
	b := hi.coeff(v)                   // > 0

	out := constraint{coeffs: make(map[string]*big.Rat)}
	add := func(c constraint, scale *big.Rat) {
		for name, co := range c.coeffs {
			if name == v {
				continue
			}
			term := new(big.Rat).Mul(co, scale)
			if cur, ok := out.coeffs[name]; ok {
				cur.Add(cur, term)
				if cur.Sign() == 0 {
					delete(out.coeffs, name)
				}
			} else if term.Sign() != 0 {
				out.coeffs[name] = term
			}
		}
	}
	add(lo, b)
	add(hi, a)

	out.k = new(big.Rat).Add(
		new(big.Rat).Mul(lo.k, b),
		new(big.Rat).Mul(hi.k, a),
	)
	return out
}

// candidates returns integer values for the stage variable that satisfy
// every staged constraint under the partial model, ordered by preference:
// zero first when in range, then values walking inward from the bounds.
// Later-stage variables are already assigned, so each constraint reduces
// to a single bound on the variable.
func candidates(st stage, model map[string]int64) []int64 {
	var lo, hi *big.Rat
	for _, c := range st.constraints {
		cv := c.coeff(st.variable)
		rest := new(big.Rat).Set(c.k)
		for name, co := range c.coeffs {
			if name == st.variable {
				continue
			}
			val := new(big.Rat).SetInt64(model[name])
			rest.Sub(rest, new(big.Rat).Mul(co, val))
		}
		// cv * x <= rest
		bound := new(big.Rat).Quo(rest, cv)
		if cv.Sign() > 0 {
			if hi == nil || bound.Cmp(hi) < 0 {
				hi = bound
			}
		} else {
			if lo == nil || bound.Cmp(lo) > 0 {
				lo = bound
			}
		}
	}

	const width = 8
	var loInt, hiInt int64
	hasLo, hasHi := lo != nil, hi != nil
	if hasLo {
		loInt = ceilRat(lo)
	}
	if hasHi {
		hiInt = floorRat(hi)
	}
	if hasLo && hasHi && loInt > hiInt {
		return nil
	}

	inRange := func(v int64) bool {
		return (!hasLo || v >= loInt) && (!hasHi || v <= hiInt)
	}

	var out []int64
	seen := make(map[int64]bool)
	add := func(v int64) {
		if inRange(v) && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}

	add(0)
	for i := int64(0); i < width; i++ {
		if hasLo {
			add(loInt + i)
		}
		if hasHi {
			add(hiInt - i)
		}
		if !hasLo && !hasHi {
			add(i + 1)
			add(-(i + 1))
		}
	}
	return out
}

func ceilRat(r *big.Rat) int64 {
	q := new(big.Int).Quo(r.Num(), r.Denom())
	if !r.IsInt() && r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q.Int64()
}

func floorRat(r *big.Rat) int64 {
	q := new(big.Int).Quo(r.Num(), r.Denom())
	if !r.IsInt() && r.Sign() < 0 {
		q.Sub(q, big.NewInt(1))
	}
	return q.Int64()
}
