package solver

import (
	"context"
	"testing"
	"time"
)

func checkF(t *testing.T, f Formula) Result {
	t.Helper()
	return New().Check(context.Background(), f)
}

// =======================
// Linear Arithmetic Tests
// =======================

func TestUnsatContradiction(t *testing.T) {
	// x <= 0 && x >= 1
	x := VarTerm("x")
	f := Conj(Le(x, ConstTerm(0)), Le(ConstTerm(1), x))

	res := checkF(t, f)
	if res.Status != StatusUnsat {
		t.Errorf("Expected unsat, got %v", res.Status)
	}
}

func TestSatSingleBound(t *testing.T) {
	// x >= 5
	f := Le(ConstTerm(5), VarTerm("x"))

	res := checkF(t, f)
	if res.Status != StatusSat {
		t.Fatalf("Expected sat, got %v (%v)", res.Status, res.Reason)
	}
	if got := res.Model["x"].Int; got < 5 {
		t.Errorf("Model x = %d violates x >= 5", got)
	}
}

func TestSatPrefersZero(t *testing.T) {
	// -10 <= x <= 10: zero is in range and should be chosen.
	x := VarTerm("x")
	f := Conj(Le(ConstTerm(-10), x), Le(x, ConstTerm(10)))

	res := checkF(t, f)
	if res.Status != StatusSat {
		t.Fatalf("Expected sat, got %v", res.Status)
	}
	if res.Model["x"].Int != 0 {
		t.Errorf("Expected x = 0, got %d", res.Model["x"].Int)
	}
}

func TestStrictInequalityTightening(t *testing.T) {
	// x < 1 && x > -1 forces x = 0 over the integers.
	x := VarTerm("x")
	f := Conj(Lt(x, ConstTerm(1)), Lt(ConstTerm(-1), x))

	res := checkF(t, f)
	if res.Status != StatusSat {
		t.Fatalf("Expected sat, got %v", res.Status)
	}
	if res.Model["x"].Int != 0 {
		t.Errorf("Expected x = 0, got %d", res.Model["x"].Int)
	}
}

func TestIntegralGapUnsat(t *testing.T) {
	// 0 < x && x < 1 has a rational solution but no integer one;
	// tightening turns it into 1 <= x && x <= 0, a clean unsat.
	x := VarTerm("x")
	f := Conj(Lt(ConstTerm(0), x), Lt(x, ConstTerm(1)))

	res := checkF(t, f)
	if res.Status != StatusUnsat {
		t.Errorf("Expected unsat, got %v", res.Status)
	}
}

func TestTwoVariableChain(t *testing.T) {
	// x <= y && y <= z && z <= x - 1 is unsat.
	x, y, z := VarTerm("x"), VarTerm("y"), VarTerm("z")
	f := Conj(
		Le(x, y),
		Le(y, z),
		Le(z, x.Add(ConstTerm(-1))),
	)

	res := checkF(t, f)
	if res.Status != StatusUnsat {
		t.Errorf("Expected unsat, got %v", res.Status)
	}
}

func TestEqualityPropagation(t *testing.T) {
	// x == 3 && y == x + 2 && y <= 4 is unsat.
	x, y := VarTerm("x"), VarTerm("y")
	f := Conj(
		EqF(x, ConstTerm(3)),
		EqF(y, x.Add(ConstTerm(2))),
		Le(y, ConstTerm(4)),
	)

	res := checkF(t, f)
	if res.Status != StatusUnsat {
		t.Errorf("Expected unsat, got %v", res.Status)
	}
}

func TestEqualitySatModel(t *testing.T) {
	// x == 7 && y == 2*x
	x, y := VarTerm("x"), VarTerm("y")
	f := Conj(
		EqF(x, ConstTerm(7)),
		EqF(y, x.Scale(2)),
	)

	res := checkF(t, f)
	if res.Status != StatusSat {
		t.Fatalf("Expected sat, got %v (%v)", res.Status, res.Reason)
	}
	if res.Model["x"].Int != 7 || res.Model["y"].Int != 14 {
		t.Errorf("Bad model: x=%d y=%d", res.Model["x"].Int, res.Model["y"].Int)
	}
}

func TestDisequalitySplit(t *testing.T) {
	// x != 0 && x <= 0 forces x <= -1.
	x := VarTerm("x")
	f := Conj(NeF(x, ConstTerm(0)), Le(x, ConstTerm(0)))

	res := checkF(t, f)
	if res.Status != StatusSat {
		t.Fatalf("Expected sat, got %v", res.Status)
	}
	if res.Model["x"].Int > -1 {
		t.Errorf("Expected x <= -1, got %d", res.Model["x"].Int)
	}
}

// =======================
// Boolean Structure Tests
// =======================

func TestBooleanLiteralConflict(t *testing.T) {
	f := Conj(Lit{Var: "p"}, Lit{Var: "p", Neg: true})

	res := checkF(t, f)
	if res.Status != StatusUnsat {
		t.Errorf("Expected unsat, got %v", res.Status)
	}
}

func TestBooleanModel(t *testing.T) {
	f := Conj(Lit{Var: "p"}, Lit{Var: "q", Neg: true})

	res := checkF(t, f)
	if res.Status != StatusSat {
		t.Fatalf("Expected sat, got %v", res.Status)
	}
	if !res.Model["p"].Bool || res.Model["q"].Bool {
		t.Errorf("Bad model: p=%v q=%v", res.Model["p"].Bool, res.Model["q"].Bool)
	}
}

func TestNegationPushing(t *testing.T) {
	// !(x <= 5) is x >= 6.
	x := VarTerm("x")
	f := Negate(Le(x, ConstTerm(5)))

	res := checkF(t, f)
	if res.Status != StatusSat {
		t.Fatalf("Expected sat, got %v", res.Status)
	}
	if res.Model["x"].Int < 6 {
		t.Errorf("Expected x >= 6, got %d", res.Model["x"].Int)
	}
}

func TestNegatedEquality(t *testing.T) {
	// !(x == 0) && x >= 0 && x <= 1 forces x = 1.
	x := VarTerm("x")
	f := Conj(
		Negate(EqF(x, ConstTerm(0))),
		Le(ConstTerm(0), x),
		Le(x, ConstTerm(1)),
	)

	res := checkF(t, f)
	if res.Status != StatusSat {
		t.Fatalf("Expected sat, got %v", res.Status)
	}
	if res.Model["x"].Int != 1 {
		t.Errorf("Expected x = 1, got %d", res.Model["x"].Int)
	}
}

func TestDisjunctionFindsSatBranch(t *testing.T) {
	// (x <= -1 && x >= 1) || x == 4: first cube is unsat, second gives a model.
	x := VarTerm("x")
	f := Disj(
		Conj(Le(x, ConstTerm(-1)), Le(ConstTerm(1), x)),
		EqF(x, ConstTerm(4)),
	)

	res := checkF(t, f)
	if res.Status != StatusSat {
		t.Fatalf("Expected sat, got %v", res.Status)
	}
	if res.Model["x"].Int != 4 {
		t.Errorf("Expected x = 4, got %d", res.Model["x"].Int)
	}
}

func TestMixedBoolAndArith(t *testing.T) {
	// (p && x >= 1) || (!p && x <= -1), plus x == 0: both cubes unsat.
	x := VarTerm("x")
	f := Conj(
		Disj(
			Conj(Lit{Var: "p"}, Le(ConstTerm(1), x)),
			Conj(Lit{Var: "p", Neg: true}, Le(x, ConstTerm(-1))),
		),
		EqF(x, ConstTerm(0)),
	)

	res := checkF(t, f)
	if res.Status != StatusUnsat {
		t.Errorf("Expected unsat, got %v", res.Status)
	}
}

func TestConstantFolding(t *testing.T) {
	if res := checkF(t, Bool{Val: true}); res.Status != StatusSat {
		t.Errorf("true: expected sat, got %v", res.Status)
	}
	if res := checkF(t, Bool{Val: false}); res.Status != StatusUnsat {
		t.Errorf("false: expected unsat, got %v", res.Status)
	}
	// Ground atoms fold at construction.
	if f := Le(ConstTerm(3), ConstTerm(5)); f != (Bool{Val: true}) {
		t.Errorf("3 <= 5 should fold to true, got %v", f)
	}
}

// =======================
// Resource Limit Tests
// =======================

func TestCubeLimitReportsComplexity(t *testing.T) {
	// Conjunction of disjunctions blows up to 2^20 cubes, all unsat
	// detection would require visiting them; the cap must kick in.
	x := VarTerm("x")
	var parts []Formula
	for i := 0; i < 20; i++ {
		parts = append(parts, Disj(
			Le(x, ConstTerm(int64(i))),
			Le(ConstTerm(int64(i+100)), x),
		))
	}
	parts = append(parts, Conj(Le(ConstTerm(50), x), Le(x, ConstTerm(60))))

	s := New()
	s.MaxCubes = 16
	res := s.Check(context.Background(), Conj(parts...))
	if res.Status == StatusUnsat {
		t.Errorf("Cap of 16 cubes cannot justify unsat, got %v", res.Status)
	}
	if res.Status == StatusUnknown && res.Reason != ReasonComplexity {
		t.Errorf("Expected complexity reason, got %v", res.Reason)
	}
}

func TestExpiredContextReportsTimeout(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	x := VarTerm("x")
	res := New().Check(ctx, Le(x, ConstTerm(0)))
	if res.Status != StatusUnknown || res.Reason != ReasonTimeout {
		t.Errorf("Expected unknown/timeout, got %v/%v", res.Status, res.Reason)
	}
}

// =======================
// Soundness Tests
// =======================

func TestEveryModelVerifies(t *testing.T) {
	x, y := VarTerm("x"), VarTerm("y")
	formulas := []Formula{
		Le(ConstTerm(5), x),
		Conj(Le(x, y), Le(y, ConstTerm(-3))),
		Conj(EqF(x.Scale(2), y.Scale(3)), Le(ConstTerm(1), x)),
		Disj(Lit{Var: "p"}, Le(x, ConstTerm(0))),
		Conj(NeF(x, y), Le(x, ConstTerm(2)), Le(y, ConstTerm(2))),
	}

	for i, f := range formulas {
		res := checkF(t, f)
		if res.Status != StatusSat {
			t.Errorf("formula %d: expected sat, got %v (%v)", i, res.Status, res.Reason)
			continue
		}
		if !evaluate(toNNF(f, false), res.Model) {
			t.Errorf("formula %d: model %v does not satisfy %s", i, res.Model, f)
		}
	}
}
