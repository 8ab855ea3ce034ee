package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftlang/riftcheck/internal/ir"
)

func fn(id ir.FuncID, body ...ir.Stmt) *ir.Function {
	return &ir.Function{ID: id, Name: string(id), Body: ir.Block{Stmts: body}}
}

func callTo(id ir.FuncID) ir.Stmt {
	return ir.ExprStmt{X: ir.Call{Target: ir.CallTarget{Kind: ir.TargetInternal, Func: id}}}
}

func callExt(name string) ir.Stmt {
	return ir.ExprStmt{X: ir.Call{Target: ir.CallTarget{Kind: ir.TargetExternal, Qualified: name}}}
}

func snapshot(t *testing.T, fns ...*ir.Function) *ir.Snapshot {
	t.Helper()
	snap, err := ir.NewSnapshot(fns)
	require.NoError(t, err)
	return snap
}

func TestBuildEdges(t *testing.T) {
	snap := snapshot(t,
		fn("a", callTo("b"), callExt("Sys.IO.File.Read")),
		fn("b"),
	)

	g, err := Build(snap)
	require.NoError(t, err)

	edges := g.Edges("a")
	require.Len(t, edges, 2)
	assert.Equal(t, EdgeInternal, edges[0].Kind)
	assert.Equal(t, ir.FuncID("b"), edges[0].Callee)
	assert.Equal(t, EdgeExternal, edges[1].Kind)
	assert.Equal(t, "Sys.IO.File.Read", edges[1].Qualified)
	assert.Empty(t, g.Edges("b"))
}

func TestBuildMissingTarget(t *testing.T) {
	snap := snapshot(t, fn("a", callTo("ghost")))

	_, err := Build(snap)
	assert.ErrorContains(t, err, "missing function id")
}

func TestDecomposeAcyclic(t *testing.T) {
	// a -> b -> c, plus a -> c.
	snap := snapshot(t,
		fn("a", callTo("b"), callTo("c")),
		fn("b", callTo("c")),
		fn("c"),
	)
	g, err := Build(snap)
	require.NoError(t, err)

	sccs := Decompose(g)
	require.Len(t, sccs, 3)
	for _, s := range sccs {
		assert.Len(t, s.Members, 1)
		assert.False(t, s.Recursive)
	}
	assertCalleesFirst(t, g, sccs)
}

func TestDecomposeMutualRecursion(t *testing.T) {
	// f <-> g form one component; both call leaf h.
	snap := snapshot(t,
		fn("f", callTo("g"), callTo("h")),
		fn("g", callTo("f")),
		fn("h"),
	)
	g, err := Build(snap)
	require.NoError(t, err)

	sccs := Decompose(g)
	require.Len(t, sccs, 2)

	var cyclic *SCC
	for i := range sccs {
		if len(sccs[i].Members) == 2 {
			cyclic = &sccs[i]
		}
	}
	require.NotNil(t, cyclic)
	assert.True(t, cyclic.Recursive)
	assert.True(t, cyclic.Contains("f"))
	assert.True(t, cyclic.Contains("g"))
	assertCalleesFirst(t, g, sccs)
}

func TestDecomposeSelfRecursion(t *testing.T) {
	snap := snapshot(t, fn("f", callTo("f")))
	g, err := Build(snap)
	require.NoError(t, err)

	sccs := Decompose(g)
	require.Len(t, sccs, 1)
	assert.True(t, sccs[0].Recursive)
}

func TestEveryFunctionInExactlyOneSCC(t *testing.T) {
	snap := snapshot(t,
		fn("a", callTo("b")),
		fn("b", callTo("c"), callTo("d")),
		fn("c", callTo("b")),
		fn("d"),
		fn("e"),
	)
	g, err := Build(snap)
	require.NoError(t, err)

	seen := make(map[ir.FuncID]int)
	for _, s := range Decompose(g) {
		for _, m := range s.Members {
			seen[m]++
		}
	}
	for _, id := range g.Nodes() {
		assert.Equal(t, 1, seen[id], "function %s", id)
	}
}

// assertCalleesFirst checks that every internal edge from component A to a
// different component B has B positioned before A.
func assertCalleesFirst(t *testing.T, g *Graph, sccs []SCC) {
	t.Helper()
	position := make(map[ir.FuncID]int)
	for i, s := range sccs {
		for _, m := range s.Members {
			position[m] = i
		}
	}
	for _, id := range g.Nodes() {
		for _, callee := range g.InternalCallees(id) {
			if position[callee] != position[id] {
				assert.Less(t, position[callee], position[id],
					"callee %s must be ordered before caller %s", callee, id)
			}
		}
	}
}
