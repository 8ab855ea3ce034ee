package solver

// toNNF rewrites a formula into negation normal form: negations are
// pushed onto literals and linear atoms, which absorb them exactly.
//
//	!(t <= k)  becomes  -t <= -k-1      (integrality tightening)
//	!(t == k)  becomes  t <= k-1 || -t <= -k-1
func toNNF(f Formula, neg bool) Formula {
	switch x := f.(type) {
	case Bool:
		return Bool{Val: x.Val != neg}
	case Lit:
		if neg {
			return Lit{Var: x.Var, Neg: !x.Neg}
		}
		return x
	case Atom:
		if !neg {
			return x
		}
		return negateAtom(x)
	case Not:
		return toNNF(x.F, !neg)
	case And:
		out := make([]Formula, len(x.Fs))
		for i, sub := range x.Fs {
			out[i] = toNNF(sub, neg)
		}
		if neg {
			return Or{Fs: out}
		}
		return And{Fs: out}
	case Or:
		out := make([]Formula, len(x.Fs))
		for i, sub := range x.Fs {
			out[i] = toNNF(sub, neg)
		}
		if neg {
			return And{Fs: out}
		}
		return Or{Fs: out}
	default:
		// Unreachable for formulas built via this package.
		return Bool{Val: false}
	}
}

func negateAtom(a Atom) Formula {
	flipped := make(map[string]int64, len(a.Coeffs))
	for v, c := range a.Coeffs {
		flipped[v] = -c
	}
	if !a.Eq {
		return Atom{Coeffs: flipped, K: -a.K - 1}
	}
	lower := make(map[string]int64, len(a.Coeffs))
	for v, c := range a.Coeffs {
		lower[v] = c
	}
	return Or{Fs: []Formula{
		Atom{Coeffs: lower, K: a.K - 1},
		Atom{Coeffs: flipped, K: -a.K - 1},
	}}
}

// enumCubes walks an NNF formula and emits every DNF cube as a slice of
// leaves (Lit and Atom; constant-false cubes are skipped). The emit
// callback returns false to stop enumeration early; enumCubes reports
// whether the walk ran to completion.
func enumCubes(f Formula, emit func(cube []Formula) bool) bool {
	return expandCubes([]Formula{f}, nil, emit)
}

func expandCubes(conjuncts []Formula, acc []Formula, emit func([]Formula) bool) bool {
	if len(conjuncts) == 0 {
		cube := make([]Formula, len(acc))
		copy(cube, acc)
		return emit(cube)
	}
	head, rest := conjuncts[0], conjuncts[1:]

	switch x := head.(type) {
	case Bool:
		if !x.Val {
			return true
		}
		return expandCubes(rest, acc, emit)
	case Lit, Atom:
		next := make([]Formula, len(acc)+1)
		copy(next, acc)
		next[len(acc)] = head
		return expandCubes(rest, next, emit)
	case And:
		merged := make([]Formula, 0, len(x.Fs)+len(rest))
		merged = append(merged, x.Fs...)
		merged = append(merged, rest...)
		return expandCubes(merged, acc, emit)
	case Or:
		for _, branch := range x.Fs {
			merged := make([]Formula, 0, len(rest)+1)
			merged = append(merged, branch)
			merged = append(merged, rest...)
			if !expandCubes(merged, acc, emit) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
