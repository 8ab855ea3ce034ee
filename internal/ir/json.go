package ir

import (
	"encoding/json"
	"fmt"

	"github.com/riftlang/riftcheck/internal/effects"
)

// The compiler front end hands the verification core its AST as a JSON
// document. Expression and statement nodes are tagged with a "kind" field;
// decoding is strict and fails on unknown kinds rather than guessing.

// DecodeSnapshot parses a JSON AST document into a Snapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var doc struct {
		Functions []json.RawMessage `json:"functions"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed AST document: %w", err)
	}
	fns := make([]*Function, 0, len(doc.Functions))
	for i, raw := range doc.Functions {
		f, err := decodeFunction(raw)
		if err != nil {
			return nil, fmt.Errorf("function %d: %w", i, err)
		}
		fns = append(fns, f)
	}
	return NewSnapshot(fns)
}

type jsonSpan struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

func (s jsonSpan) span() Span { return Span{Line: s.Line, Col: s.Col} }

type jsonParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func decodeFunction(raw json.RawMessage) (*Function, error) {
	var jf struct {
		ID      string            `json:"id"`
		Name    string            `json:"name"`
		Params  []jsonParam       `json:"params"`
		Result  string            `json:"result"`
		Effects []string          `json:"effects"`
		Pre     []json.RawMessage `json:"pre"`
		Post    []json.RawMessage `json:"post"`
		Body    json.RawMessage   `json:"body"`
		Span    jsonSpan          `json:"span"`
	}
	if err := json.Unmarshal(raw, &jf); err != nil {
		return nil, err
	}

	f := &Function{
		ID:   FuncID(jf.ID),
		Name: jf.Name,
		Span: jf.Span.span(),
	}

	for _, p := range jf.Params {
		typ, err := decodeType(p.Type)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", p.Name, err)
		}
		f.Params = append(f.Params, Param{Name: p.Name, Type: typ})
	}

	result := TypeVoid
	if jf.Result != "" {
		var err error
		result, err = decodeType(jf.Result)
		if err != nil {
			return nil, fmt.Errorf("result type: %w", err)
		}
	}
	f.Result = result

	codes, err := effects.ParseAll(jf.Effects)
	if err != nil {
		return nil, fmt.Errorf("declared effects: %w", err)
	}
	f.DeclaredEffects = effects.NewSet(codes...)

	for i, raw := range jf.Pre {
		e, err := DecodeExpr(raw)
		if err != nil {
			return nil, fmt.Errorf("precondition %d: %w", i, err)
		}
		f.Preconditions = append(f.Preconditions, e)
	}
	for i, raw := range jf.Post {
		e, err := DecodeExpr(raw)
		if err != nil {
			return nil, fmt.Errorf("postcondition %d: %w", i, err)
		}
		f.Postconditions = append(f.Postconditions, e)
	}

	if len(jf.Body) > 0 {
		body, err := DecodeStmt(jf.Body)
		if err != nil {
			return nil, fmt.Errorf("body: %w", err)
		}
		f.Body = body
	}

	return f, nil
}

func decodeType(s string) (Type, error) {
	switch s {
	case "void":
		return TypeVoid, nil
	case "int":
		return TypeInt, nil
	case "bool":
		return TypeBool, nil
	case "float":
		return TypeFloat, nil
	case "string":
		return TypeString, nil
	default:
		return TypeVoid, fmt.Errorf("unknown type %q", s)
	}
}

var binaryOps = map[string]BinaryOp{
	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv, "%": OpMod,
	"==": OpEq, "!=": OpNeq, "<": OpLt, "<=": OpLte, ">": OpGt, ">=": OpGte,
	"&&": OpAnd, "||": OpOr,
}

// DecodeExpr parses one kind-tagged expression node.
func DecodeExpr(raw json.RawMessage) (Expr, error) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}

	switch probe.Kind {
	case "int":
		var n struct {
			Value int64 `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return IntLit{Val: n.Value}, nil

	case "bool":
		var n struct {
			Value bool `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return BoolLit{Val: n.Value}, nil

	case "float":
		var n struct {
			Value float64 `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return FloatLit{Val: n.Value}, nil

	case "string":
		var n struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return StringLit{Val: n.Value}, nil

	case "var":
		var n struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return VarRef{Name: n.Name}, nil

	case "result":
		return ResultRef{}, nil

	case "binary":
		var n struct {
			Op    string          `json:"op"`
			Left  json.RawMessage `json:"left"`
			Right json.RawMessage `json:"right"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		op, ok := binaryOps[n.Op]
		if !ok {
			return nil, fmt.Errorf("unknown binary operator %q", n.Op)
		}
		left, err := DecodeExpr(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := DecodeExpr(n.Right)
		if err != nil {
			return nil, err
		}
		return Binary{Op: op, Left: left, Right: right}, nil

	case "unary":
		var n struct {
			Op      string          `json:"op"`
			Operand json.RawMessage `json:"operand"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		var op UnaryOp
		switch n.Op {
		case "!":
			op = OpNot
		case "-":
			op = OpNeg
		default:
			return nil, fmt.Errorf("unknown unary operator %q", n.Op)
		}
		operand, err := DecodeExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		return Unary{Op: op, Operand: operand}, nil

	case "implies":
		var n struct {
			If   json.RawMessage `json:"if"`
			Then json.RawMessage `json:"then"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		antecedent, err := DecodeExpr(n.If)
		if err != nil {
			return nil, err
		}
		consequent, err := DecodeExpr(n.Then)
		if err != nil {
			return nil, err
		}
		return Implies{If: antecedent, Then: consequent}, nil

	case "forall", "exists":
		var n struct {
			Var  string          `json:"var"`
			Lo   int64           `json:"lo"`
			Hi   int64           `json:"hi"`
			Body json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		body, err := DecodeExpr(n.Body)
		if err != nil {
			return nil, err
		}
		q := ForAll
		if probe.Kind == "exists" {
			q = Exists
		}
		return Quantified{Quant: q, Var: n.Var, Lo: n.Lo, Hi: n.Hi, Body: body}, nil

	case "call":
		return decodeCall(raw)

	default:
		return nil, fmt.Errorf("unknown expression kind %q", probe.Kind)
	}
}

func decodeCall(raw json.RawMessage) (Expr, error) {
	var n struct {
		Target struct {
			Internal string `json:"internal"`
			External string `json:"external"`
		} `json:"target"`
		Args []json.RawMessage `json:"args"`
		Span jsonSpan          `json:"span"`
	}
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, err
	}

	var target CallTarget
	switch {
	case n.Target.Internal != "" && n.Target.External != "":
		return nil, fmt.Errorf("call target is both internal and external")
	case n.Target.Internal != "":
		target = CallTarget{Kind: TargetInternal, Func: FuncID(n.Target.Internal)}
	case n.Target.External != "":
		target = CallTarget{Kind: TargetExternal, Qualified: n.Target.External}
	default:
		return nil, fmt.Errorf("call has no target")
	}

	args := make([]Expr, 0, len(n.Args))
	for _, rawArg := range n.Args {
		a, err := DecodeExpr(rawArg)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	return Call{Target: target, Args: args, Span: n.Span.span()}, nil
}

// DecodeStmt parses one kind-tagged statement node.
func DecodeStmt(raw json.RawMessage) (Stmt, error) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}

	switch probe.Kind {
	case "block":
		var n struct {
			Stmts []json.RawMessage `json:"stmts"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		stmts := make([]Stmt, 0, len(n.Stmts))
		for _, rawStmt := range n.Stmts {
			s, err := DecodeStmt(rawStmt)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, s)
		}
		return Block{Stmts: stmts}, nil

	case "assign":
		var n struct {
			Var   string          `json:"var"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		value, err := DecodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return Assign{Var: n.Var, Value: value}, nil

	case "if":
		var n struct {
			Cond json.RawMessage `json:"cond"`
			Then json.RawMessage `json:"then"`
			Else json.RawMessage `json:"else"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		cond, err := DecodeExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := DecodeStmt(n.Then)
		if err != nil {
			return nil, err
		}
		var els Stmt
		if len(n.Else) > 0 {
			els, err = DecodeStmt(n.Else)
			if err != nil {
				return nil, err
			}
		}
		return If{Cond: cond, Then: then, Else: els}, nil

	case "return":
		var n struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		if len(n.Value) == 0 {
			return Return{}, nil
		}
		value, err := DecodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return Return{Value: value}, nil

	case "while":
		var n struct {
			Cond json.RawMessage `json:"cond"`
			Body json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		cond, err := DecodeExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		body, err := DecodeStmt(n.Body)
		if err != nil {
			return nil, err
		}
		return Loop{Cond: cond, Body: body}, nil

	case "expr":
		var n struct {
			X json.RawMessage `json:"x"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		x, err := DecodeExpr(n.X)
		if err != nil {
			return nil, err
		}
		return ExprStmt{X: x}, nil

	case "effect":
		var n struct {
			Effect string            `json:"effect"`
			Args   []json.RawMessage `json:"args"`
			Span   jsonSpan          `json:"span"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		code, err := effects.Parse(n.Effect)
		if err != nil {
			return nil, err
		}
		args := make([]Expr, 0, len(n.Args))
		for _, rawArg := range n.Args {
			a, err := DecodeExpr(rawArg)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		return EffectOp{Effect: code, Args: args, Span: n.Span.span()}, nil

	default:
		return nil, fmt.Errorf("unknown statement kind %q", probe.Kind)
	}
}
