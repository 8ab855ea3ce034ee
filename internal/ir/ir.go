// Package ir defines the read-only input model of the verification pass:
// functions with declared effect sets, contracts in the restricted
// expression grammar, and bodies made of straight-line statements,
// branching, and calls.
//
// The verification core never mutates this data; one Snapshot serves one
// pass and all results are produced as separate output maps.
package ir

import (
	"fmt"
	"sort"

	"github.com/riftlang/riftcheck/internal/effects"
)

// FuncID is the opaque stable identity of a function, assigned by the
// compilation unit.
type FuncID string

// Span locates a construct in the original source.
type Span struct {
	Line int
	Col  int
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Line, s.Col)
}

// Type enumerates the primitive types visible to the verification core.
type Type int

const (
	TypeVoid Type = iota
	TypeInt
	TypeBool
	TypeFloat
	TypeString
)

func (t Type) String() string {
	switch t {
	case TypeVoid:
		return "void"
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	default:
		return "?"
	}
}

// Param is a function parameter.
type Param struct {
	Name string
	Type Type
}

// Function is one function of the compilation unit. Immutable after parse.
type Function struct {
	ID              FuncID
	Name            string
	Params          []Param
	Result          Type
	DeclaredEffects effects.Set
	Preconditions   []Expr
	Postconditions  []Expr
	Body            Stmt
	Span            Span
}

// CallSite is one call expression inside a function body.
type CallSite struct {
	Caller FuncID
	Target CallTarget
	Args   []Expr
	Span   Span
}

func (cs CallSite) String() string {
	return fmt.Sprintf("%s -> %s @%s", cs.Caller, cs.Target, cs.Span)
}

// CallSites walks the body and returns every call expression as a call
// site, in deterministic body order. Every call expression contributes
// exactly one site.
func (f *Function) CallSites() []CallSite {
	var sites []CallSite
	walkStmt(f.Body, nil, func(e Expr) {
		if c, ok := e.(Call); ok {
			sites = append(sites, CallSite{Caller: f.ID, Target: c.Target, Args: c.Args, Span: c.Span})
		}
	})
	return sites
}

// LocalEffects returns the effects of primitive operations directly in the
// body, before any interprocedural propagation.
func (f *Function) LocalEffects() effects.Set {
	set := effects.Empty()
	walkStmt(f.Body, func(s Stmt) {
		if op, ok := s.(EffectOp); ok {
			set = set.Join(effects.NewSet(op.Effect))
		}
	}, nil)
	return set
}

// walkStmt visits every statement and every expression under s in body
// order. Either visitor may be nil.
func walkStmt(s Stmt, fs func(Stmt), fe func(Expr)) {
	if s == nil {
		return
	}
	if fs != nil {
		fs(s)
	}
	switch st := s.(type) {
	case Block:
		for _, sub := range st.Stmts {
			walkStmt(sub, fs, fe)
		}
	case Assign:
		walkExpr(st.Value, fe)
	case If:
		walkExpr(st.Cond, fe)
		walkStmt(st.Then, fs, fe)
		walkStmt(st.Else, fs, fe)
	case Return:
		walkExpr(st.Value, fe)
	case Loop:
		walkExpr(st.Cond, fe)
		walkStmt(st.Body, fs, fe)
	case ExprStmt:
		walkExpr(st.X, fe)
	case EffectOp:
		for _, a := range st.Args {
			walkExpr(a, fe)
		}
	}
}

// walkExpr visits every expression under e, including e itself.
func walkExpr(e Expr, fe func(Expr)) {
	if e == nil {
		return
	}
	if fe != nil {
		fe(e)
	}
	switch ex := e.(type) {
	case Binary:
		walkExpr(ex.Left, fe)
		walkExpr(ex.Right, fe)
	case Unary:
		walkExpr(ex.Operand, fe)
	case Implies:
		walkExpr(ex.If, fe)
		walkExpr(ex.Then, fe)
	case Quantified:
		walkExpr(ex.Body, fe)
	case Call:
		for _, a := range ex.Args {
			walkExpr(a, fe)
		}
	}
}

// WalkExpr exposes expression traversal to other packages.
func WalkExpr(e Expr, visit func(Expr)) {
	walkExpr(e, visit)
}

// Snapshot is the read-only function set of one verification pass.
type Snapshot struct {
	functions map[FuncID]*Function
	order     []FuncID
}

// NewSnapshot indexes the given functions. Duplicate identities are a
// structural input error.
func NewSnapshot(fns []*Function) (*Snapshot, error) {
	s := &Snapshot{functions: make(map[FuncID]*Function, len(fns))}
	for _, f := range fns {
		if f.ID == "" {
			return nil, fmt.Errorf("function %q has no identity", f.Name)
		}
		if _, dup := s.functions[f.ID]; dup {
			return nil, fmt.Errorf("duplicate function id %q", f.ID)
		}
		s.functions[f.ID] = f
		s.order = append(s.order, f.ID)
	}
	sort.Slice(s.order, func(i, j int) bool { return s.order[i] < s.order[j] })
	return s, nil
}

// Function looks up a function by identity.
func (s *Snapshot) Function(id FuncID) (*Function, bool) {
	f, ok := s.functions[id]
	return f, ok
}

// FuncIDs returns every function identity in sorted order.
func (s *Snapshot) FuncIDs() []FuncID {
	out := make([]FuncID, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of functions in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.functions)
}
