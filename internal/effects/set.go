package effects

import (
	"sort"
	"strings"
)

// Set is an immutable-by-convention set of effect codes forming a
// join-semilattice under Join. The distinguished top element (All) stands
// for "every effect" and is used conservatively when an external call
// cannot be resolved in permissive mode.
type Set struct {
	all   bool
	codes map[Code]struct{}
}

// NewSet builds a set from the given codes.
func NewSet(codes ...Code) Set {
	s := Set{codes: make(map[Code]struct{}, len(codes))}
	for _, c := range codes {
		s.codes[c] = struct{}{}
	}
	return s
}

// Empty returns the bottom element of the lattice.
func Empty() Set {
	return Set{}
}

// All returns the lattice top: the set subsuming every effect code.
func All() Set {
	return Set{all: true}
}

// IsAll reports whether the set is the lattice top.
func (s Set) IsAll() bool { return s.all }

// IsEmpty reports whether the set carries no effects.
func (s Set) IsEmpty() bool { return !s.all && len(s.codes) == 0 }

// Len returns the number of explicit codes; the top element reports the
// size of the whole enumeration.
func (s Set) Len() int {
	if s.all {
		return len(Universe())
	}
	return len(s.codes)
}

// Contains reports exact membership of c, without subtyping.
func (s Set) Contains(c Code) bool {
	if s.all {
		return true
	}
	_, ok := s.codes[c]
	return ok
}

// CoversCode reports whether some member of s subsumes c.
func (s Set) CoversCode(c Code) bool {
	if s.all {
		return true
	}
	if _, ok := s.codes[c]; ok {
		return true
	}
	for m := range s.codes {
		if m.Subsumes(c) {
			return true
		}
	}
	return false
}

// Covers reports whether s is a supertype-or-equal cover of other: every
// code in other is subsumed by some code in s.
func (s Set) Covers(other Set) bool {
	if s.all {
		return true
	}
	if other.all {
		return false
	}
	for c := range other.codes {
		if !s.CoversCode(c) {
			return false
		}
	}
	return true
}

// Missing returns the codes of other not covered by s, sorted.
// The top element is reported as the full universe minus covered codes.
func (s Set) Missing(other Set) []Code {
	var candidates []Code
	if other.all {
		candidates = Universe()
	} else {
		candidates = other.Codes()
	}
	var out []Code
	for _, c := range candidates {
		if !s.CoversCode(c) {
			out = append(out, c)
		}
	}
	return out
}

// Join returns the least upper bound of s and other. Join is associative,
// commutative, and idempotent; the result shares no storage with either
// operand.
func (s Set) Join(other Set) Set {
	if s.all || other.all {
		return All()
	}
	out := Set{codes: make(map[Code]struct{}, len(s.codes)+len(other.codes))}
	for c := range s.codes {
		out.codes[c] = struct{}{}
	}
	for c := range other.codes {
		out.codes[c] = struct{}{}
	}
	return out
}

// Equal reports whether the two sets contain exactly the same codes.
func (s Set) Equal(other Set) bool {
	if s.all != other.all {
		return false
	}
	if len(s.codes) != len(other.codes) {
		return false
	}
	for c := range s.codes {
		if _, ok := other.codes[c]; !ok {
			return false
		}
	}
	return true
}

// Codes returns the explicit members sorted; the top element returns the
// full universe.
func (s Set) Codes() []Code {
	if s.all {
		return Universe()
	}
	out := make([]Code, 0, len(s.codes))
	for c := range s.codes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the sorted members as plain strings.
func (s Set) Strings() []string {
	codes := s.Codes()
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}

func (s Set) String() string {
	if s.all {
		return "{*}"
	}
	return "{" + strings.Join(s.Strings(), ", ") + "}"
}
