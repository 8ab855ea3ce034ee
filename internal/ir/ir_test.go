package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftlang/riftcheck/internal/effects"
)

func TestDecodeSnapshot(t *testing.T) {
	doc := `{
		"functions": [
			{
				"id": "f1",
				"name": "fetchAndStore",
				"params": [{"name": "x", "type": "int"}],
				"result": "int",
				"effects": ["db:rw", "net:r"],
				"pre": [{"kind": "binary", "op": ">=", "left": {"kind": "var", "name": "x"}, "right": {"kind": "int", "value": 0}}],
				"post": [{"kind": "binary", "op": ">=", "left": {"kind": "result"}, "right": {"kind": "int", "value": 0}}],
				"body": {
					"kind": "block",
					"stmts": [
						{"kind": "effect", "effect": "net:r", "span": {"line": 3, "col": 5}},
						{"kind": "expr", "x": {"kind": "call", "target": {"internal": "f2"}, "span": {"line": 4, "col": 5}}},
						{"kind": "return", "value": {"kind": "var", "name": "x"}}
					]
				}
			},
			{
				"id": "f2",
				"name": "persist",
				"effects": ["db:w"],
				"body": {"kind": "effect", "effect": "db:w", "span": {"line": 10, "col": 3}}
			}
		]
	}`

	snap, err := DecodeSnapshot([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, 2, snap.Len())

	f1, ok := snap.Function("f1")
	require.True(t, ok)
	assert.Equal(t, "fetchAndStore", f1.Name)
	assert.Equal(t, TypeInt, f1.Result)
	assert.True(t, f1.DeclaredEffects.Contains(effects.MustParse("db:rw")))
	assert.True(t, f1.DeclaredEffects.Contains(effects.MustParse("net:r")))
	require.Len(t, f1.Preconditions, 1)
	require.Len(t, f1.Postconditions, 1)

	sites := f1.CallSites()
	require.Len(t, sites, 1)
	assert.Equal(t, TargetInternal, sites[0].Target.Kind)
	assert.Equal(t, FuncID("f2"), sites[0].Target.Func)
	assert.Equal(t, 4, sites[0].Span.Line)

	local := f1.LocalEffects()
	assert.True(t, local.Contains(effects.MustParse("net:r")))
	assert.False(t, local.Contains(effects.MustParse("db:w")))
}

func TestDecodeSnapshotDuplicateID(t *testing.T) {
	doc := `{"functions": [{"id": "f1"}, {"id": "f1"}]}`
	_, err := DecodeSnapshot([]byte(doc))
	assert.ErrorContains(t, err, "duplicate function id")
}

func TestDecodeExprUnknownKind(t *testing.T) {
	_, err := DecodeExpr([]byte(`{"kind": "lambda"}`))
	assert.ErrorContains(t, err, "unknown expression kind")
}

func TestDecodeCallTargets(t *testing.T) {
	e, err := DecodeExpr([]byte(`{"kind": "call", "target": {"external": "System.IO.File.Delete"}}`))
	require.NoError(t, err)
	call, ok := e.(Call)
	require.True(t, ok)
	assert.Equal(t, TargetExternal, call.Target.Kind)
	assert.Equal(t, "System.IO.File.Delete", call.Target.Qualified)

	_, err = DecodeExpr([]byte(`{"kind": "call", "target": {}}`))
	assert.ErrorContains(t, err, "no target")
}

func TestDecodeQuantified(t *testing.T) {
	e, err := DecodeExpr([]byte(`{
		"kind": "forall", "var": "i", "lo": 0, "hi": 7,
		"body": {"kind": "binary", "op": "<=", "left": {"kind": "var", "name": "i"}, "right": {"kind": "int", "value": 7}}
	}`))
	require.NoError(t, err)
	q, ok := e.(Quantified)
	require.True(t, ok)
	assert.Equal(t, ForAll, q.Quant)
	assert.Equal(t, int64(0), q.Lo)
	assert.Equal(t, int64(7), q.Hi)
}

func TestCallSitesInsideBranchesAndLoops(t *testing.T) {
	body := Block{Stmts: []Stmt{
		If{
			Cond: BoolLit{Val: true},
			Then: ExprStmt{X: Call{Target: CallTarget{Kind: TargetInternal, Func: "g"}}},
			Else: ExprStmt{X: Call{Target: CallTarget{Kind: TargetExternal, Qualified: "Sys.Net.Http.Get"}}},
		},
		Loop{
			Cond: BoolLit{Val: true},
			Body: ExprStmt{X: Call{Target: CallTarget{Kind: TargetInternal, Func: "h"}}},
		},
		Assign{Var: "y", Value: Call{Target: CallTarget{Kind: TargetInternal, Func: "g"}}},
	}}
	f := &Function{ID: "f", Body: body}

	sites := f.CallSites()
	require.Len(t, sites, 4)
	assert.Equal(t, FuncID("g"), sites[0].Target.Func)
	assert.Equal(t, "Sys.Net.Http.Get", sites[1].Target.Qualified)
	assert.Equal(t, FuncID("h"), sites[2].Target.Func)
	assert.Equal(t, FuncID("g"), sites[3].Target.Func)
}
