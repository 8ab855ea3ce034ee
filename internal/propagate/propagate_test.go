package propagate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftlang/riftcheck/internal/callgraph"
	"github.com/riftlang/riftcheck/internal/effects"
	"github.com/riftlang/riftcheck/internal/ir"
	"github.com/riftlang/riftcheck/internal/manifest"
)

type fnSpec struct {
	id       ir.FuncID
	declared []string
	local    []string
	calls    []ir.FuncID
	external []string
}

func build(t *testing.T, specs ...fnSpec) (*ir.Snapshot, *callgraph.Graph, []callgraph.SCC) {
	t.Helper()

	fns := make([]*ir.Function, 0, len(specs))
	for _, s := range specs {
		var stmts []ir.Stmt
		for i, code := range s.local {
			stmts = append(stmts, ir.EffectOp{
				Effect: effects.MustParse(code),
				Span:   ir.Span{Line: i + 1},
			})
		}
		for i, callee := range s.calls {
			stmts = append(stmts, ir.ExprStmt{X: ir.Call{
				Target: ir.CallTarget{Kind: ir.TargetInternal, Func: callee},
				Span:   ir.Span{Line: 100 + i},
			}})
		}
		for i, name := range s.external {
			stmts = append(stmts, ir.ExprStmt{X: ir.Call{
				Target: ir.CallTarget{Kind: ir.TargetExternal, Qualified: name},
				Span:   ir.Span{Line: 200 + i},
			}})
		}
		declared, err := effects.ParseAll(s.declared)
		require.NoError(t, err)
		fns = append(fns, &ir.Function{
			ID:              s.id,
			Name:            string(s.id),
			DeclaredEffects: effects.NewSet(declared...),
			Body:            ir.Block{Stmts: stmts},
		})
	}

	snap, err := ir.NewSnapshot(fns)
	require.NoError(t, err)
	g, err := callgraph.Build(snap)
	require.NoError(t, err)
	return snap, g, callgraph.Decompose(g)
}

func run(t *testing.T, resolver manifest.Resolver, opts Options, specs ...fnSpec) *Result {
	t.Helper()
	snap, g, sccs := build(t, specs...)
	if resolver == nil {
		resolver = manifest.Static{}
	}
	res, err := Run(context.Background(), snap, g, sccs, resolver, opts)
	require.NoError(t, err)
	return res
}

func TestAcyclicPropagation(t *testing.T) {
	// a -> b -> c: computed(a) must be the union of all direct effects
	// downstream, with no approximation loss.
	res := run(t, nil, Options{},
		fnSpec{id: "a", declared: []string{"fs:r", "db:w", "net:r"}, local: []string{"fs:r"}, calls: []ir.FuncID{"b"}},
		fnSpec{id: "b", declared: []string{"db:w", "net:r"}, local: []string{"db:w"}, calls: []ir.FuncID{"c"}},
		fnSpec{id: "c", declared: []string{"net:r"}, local: []string{"net:r"}},
	)

	assert.Empty(t, res.Violations)
	want := effects.NewSet(
		effects.MustParse("fs:r"),
		effects.MustParse("db:w"),
		effects.MustParse("net:r"),
	)
	assert.True(t, res.Computed["a"].Equal(want), "got %s", res.Computed["a"])
	assert.Equal(t, 2, res.Computed["b"].Len())
	assert.Equal(t, 1, res.Computed["c"].Len())
}

func TestCyclicPropagationConverges(t *testing.T) {
	// f and g are mutually recursive; both converge to {fs:r, db:w}.
	res := run(t, nil, Options{},
		fnSpec{id: "f", declared: []string{"fs:r", "db:w"}, local: []string{"fs:r"}, calls: []ir.FuncID{"g"}},
		fnSpec{id: "g", declared: []string{"fs:r", "db:w"}, local: []string{"db:w"}, calls: []ir.FuncID{"f"}},
	)

	assert.Empty(t, res.Violations)
	want := effects.NewSet(effects.MustParse("fs:r"), effects.MustParse("db:w"))
	assert.True(t, res.Computed["f"].Equal(want), "f computed %s", res.Computed["f"])
	assert.True(t, res.Computed["g"].Equal(want), "g computed %s", res.Computed["g"])
}

func TestExternalViolationChainLengthOne(t *testing.T) {
	resolver := manifest.Static{
		"Sys.Net.Http.Post": effects.NewSet(effects.MustParse("net:w")),
	}
	res := run(t, resolver, Options{},
		fnSpec{id: "f", declared: []string{"db:r"}, external: []string{"Sys.Net.Http.Post"}},
	)

	require.Len(t, res.Violations, 1)
	v := res.Violations[0]
	assert.Equal(t, ir.FuncID("f"), v.Func)
	assert.Equal(t, []effects.Code{"net:w"}, v.Missing)
	require.Len(t, v.Chain, 1)
	assert.Equal(t, callgraph.EdgeExternal, v.Chain[0].Kind)
	assert.Equal(t, "Sys.Net.Http.Post", v.Chain[0].Qualified)
}

func TestViolationChainNamesDeepLeaf(t *testing.T) {
	// a -> b -> c where only c touches the file system; a's declaration
	// is missing fs:w, so the chain must walk down to the b -> c edge.
	res := run(t, nil, Options{},
		fnSpec{id: "a", declared: []string{"db:r"}, local: []string{"db:r"}, calls: []ir.FuncID{"b"}},
		fnSpec{id: "b", declared: []string{"fs:w"}, calls: []ir.FuncID{"c"}},
		fnSpec{id: "c", declared: []string{"fs:w"}, local: []string{"fs:w"}},
	)

	require.Len(t, res.Violations, 1)
	v := res.Violations[0]
	assert.Equal(t, ir.FuncID("a"), v.Func)
	assert.Equal(t, []effects.Code{"fs:w"}, v.Missing)
	require.Len(t, v.Chain, 2)
	assert.Equal(t, ir.FuncID("b"), v.Chain[0].Callee)
	assert.Equal(t, ir.FuncID("c"), v.Chain[1].Callee)
}

func TestSubtypingCoversReadAndWrite(t *testing.T) {
	// Declaring fs:rw covers callees needing fs:r or fs:w.
	res := run(t, nil, Options{},
		fnSpec{id: "a", declared: []string{"fs:rw"}, calls: []ir.FuncID{"r", "w"}},
		fnSpec{id: "r", declared: []string{"fs:r"}, local: []string{"fs:r"}},
		fnSpec{id: "w", declared: []string{"fs:w"}, local: []string{"fs:w"}},
	)
	assert.Empty(t, res.Violations)
}

func TestSubtypingReadDoesNotCoverWrite(t *testing.T) {
	res := run(t, nil, Options{},
		fnSpec{id: "a", declared: []string{"fs:r"}, calls: []ir.FuncID{"w"}},
		fnSpec{id: "w", declared: []string{"fs:w"}, local: []string{"fs:w"}},
	)

	require.Len(t, res.Violations, 1)
	v := res.Violations[0]
	assert.Equal(t, ir.FuncID("a"), v.Func)
	assert.Equal(t, []effects.Code{"fs:w"}, v.Missing)
	require.Len(t, v.Chain, 1)
	assert.Equal(t, ir.FuncID("w"), v.Chain[0].Callee)
}

func TestDirectEffectHasEmptyChain(t *testing.T) {
	res := run(t, nil, Options{},
		fnSpec{id: "f", declared: []string{}, local: []string{"env:r"}},
	)

	require.Len(t, res.Violations, 1)
	assert.Empty(t, res.Violations[0].Chain)
}

func TestStrictModeReportsUnknownExternal(t *testing.T) {
	res := run(t, manifest.Static{}, Options{Mode: Strict},
		fnSpec{id: "f", declared: []string{"db:r"}, external: []string{"Mystery.Box.Open"}},
	)

	require.Len(t, res.Unknowns, 1)
	assert.Equal(t, ir.FuncID("f"), res.Unknowns[0].Func)
	assert.Equal(t, "Mystery.Box.Open", res.Unknowns[0].Qualified)
	// Strict mode does not charge assumed effects, so no violation.
	assert.Empty(t, res.Violations)
}

func TestPermissiveModeAssumesAllEffects(t *testing.T) {
	res := run(t, manifest.Static{}, Options{Mode: Permissive},
		fnSpec{id: "f", declared: []string{"db:r"}, external: []string{"Mystery.Box.Open"}},
	)

	assert.Empty(t, res.Unknowns)
	require.Len(t, res.Violations, 1)
	assert.True(t, res.Computed["f"].IsAll())
	require.Len(t, res.Violations[0].Chain, 1)
	assert.Equal(t, "Mystery.Box.Open", res.Violations[0].Chain[0].Qualified)
}

func TestRecursionThroughCleanDeclarations(t *testing.T) {
	// Deep chain with a cycle in the middle; everything declared.
	res := run(t, nil, Options{Workers: 4},
		fnSpec{id: "top", declared: []string{"fs:r", "net:w"}, calls: []ir.FuncID{"m1"}},
		fnSpec{id: "m1", declared: []string{"fs:r", "net:w"}, local: []string{"fs:r"}, calls: []ir.FuncID{"m2"}},
		fnSpec{id: "m2", declared: []string{"fs:r", "net:w"}, calls: []ir.FuncID{"m1", "leaf"}},
		fnSpec{id: "leaf", declared: []string{"net:w"}, local: []string{"net:w"}},
	)

	assert.Empty(t, res.Violations)
	want := effects.NewSet(effects.MustParse("fs:r"), effects.MustParse("net:w"))
	assert.True(t, res.Computed["top"].Equal(want))
	assert.True(t, res.Computed["m1"].Equal(want))
	assert.True(t, res.Computed["m2"].Equal(want))
}

func TestDeterministicViolationOrder(t *testing.T) {
	specs := []fnSpec{
		{id: "z", declared: []string{}, local: []string{"fs:w"}},
		{id: "a", declared: []string{}, local: []string{"db:w"}},
		{id: "m", declared: []string{}, local: []string{"net:r"}},
	}

	first := run(t, nil, Options{Workers: 8}, specs...)
	second := run(t, nil, Options{Workers: 1}, specs...)

	require.Len(t, first.Violations, 3)
	require.Len(t, second.Violations, 3)
	for i := range first.Violations {
		assert.Equal(t, first.Violations[i].Func, second.Violations[i].Func)
		assert.Equal(t, first.Violations[i].Missing, second.Violations[i].Missing)
	}
}

func TestCancelledContext(t *testing.T) {
	snap, g, sccs := build(t,
		fnSpec{id: "a", declared: []string{"fs:r"}, local: []string{"fs:r"}},
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, snap, g, sccs, manifest.Static{}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
