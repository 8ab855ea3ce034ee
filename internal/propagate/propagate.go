// Package propagate computes the transitive effect closure of every
// function by fixed-point iteration over the SCC DAG, compares computed
// sets against declarations under the effect subtyping relation, and
// explains each violation with a minimal call chain to the offending call.
package propagate

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/riftlang/riftcheck/internal/callgraph"
	"github.com/riftlang/riftcheck/internal/effects"
	"github.com/riftlang/riftcheck/internal/ir"
	"github.com/riftlang/riftcheck/internal/manifest"
)

// Mode controls the treatment of unresolved external calls.
type Mode int

const (
	// Permissive assumes the lattice top for unknown externals: the
	// caller is charged with every effect, never silently with none.
	Permissive Mode = iota
	// Strict records an unknown-external diagnostic instead of assuming.
	Strict
)

func (m Mode) String() string {
	switch m {
	case Permissive:
		return "permissive"
	case Strict:
		return "strict"
	default:
		return "?"
	}
}

// State is the per-function propagation state machine.
type State int

const (
	Pending State = iota
	Propagating
	Resolved
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Propagating:
		return "propagating"
	case Resolved:
		return "resolved"
	default:
		return "?"
	}
}

// Options configures one propagation pass.
type Options struct {
	Mode    Mode
	Workers int // defaults to GOMAXPROCS when zero
}

// Violation reports a function whose declared effects do not cover its
// computed effects. Chain is the shortest call path from the function to
// the call (or primitive operation, when Chain is empty) that introduces
// the first missing code.
type Violation struct {
	Func     ir.FuncID
	Declared effects.Set
	Computed effects.Set
	Missing  []effects.Code
	Chain    []callgraph.Edge
}

// UnknownExternal reports a manifest resolution failure under strict mode.
type UnknownExternal struct {
	Func      ir.FuncID
	Qualified string
	Site      ir.CallSite
}

// Result is the pass-scoped output of propagation. The input snapshot is
// never mutated.
type Result struct {
	Computed   map[ir.FuncID]effects.Set
	Violations []Violation
	Unknowns   []UnknownExternal
}

// Run computes the effect closure of every function in the snapshot.
//
// SCCs are processed callees first. Components whose dependencies are
// already resolved run concurrently on a bounded worker pool; each worker
// owns its intra-SCC iteration state and completed sets are merged into
// the shared map under a short lock.
func Run(ctx context.Context, snap *ir.Snapshot, g *callgraph.Graph, sccs []callgraph.SCC, resolver manifest.Resolver, opts Options) (*Result, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	p := &propagation{
		snap:     snap,
		graph:    g,
		sccs:     sccs,
		mode:     opts.Mode,
		base:     make(map[ir.FuncID]effects.Set, snap.Len()),
		resolved: make(map[ir.FuncID]effects.Set, snap.Len()),
		states:   make(map[ir.FuncID]State, snap.Len()),
		unknown:  make(map[siteKey]bool),
		external: make(map[siteKey]effects.Set),
	}

	// Base sets and unknown-external diagnostics are computed up front,
	// sequentially, so their order is deterministic.
	var unknowns []UnknownExternal
	for _, id := range snap.FuncIDs() {
		f, _ := snap.Function(id)
		base := f.LocalEffects()
		for _, edge := range g.ExternalEdges(id) {
			set, res := resolver.Resolve(edge.Qualified)
			if res == manifest.Unknown {
				p.unknown[keyOf(edge)] = true
				if opts.Mode == Strict {
					unknowns = append(unknowns, UnknownExternal{Func: id, Qualified: edge.Qualified, Site: edge.Site})
					continue
				}
				base = base.Join(effects.All())
				continue
			}
			p.external[keyOf(edge)] = set
			base = base.Join(set)
		}
		p.base[id] = base
		p.states[id] = Pending
	}

	if err := p.runPool(ctx, workers); err != nil {
		return nil, err
	}

	result := &Result{
		Computed: p.resolved,
		Unknowns: unknowns,
	}

	for _, id := range snap.FuncIDs() {
		f, _ := snap.Function(id)
		computed := p.resolved[id]
		if f.DeclaredEffects.Covers(computed) {
			continue
		}
		missing := f.DeclaredEffects.Missing(computed)
		result.Violations = append(result.Violations, Violation{
			Func:     id,
			Declared: f.DeclaredEffects,
			Computed: computed,
			Missing:  missing,
			Chain:    p.findChain(id, missing[0]),
		})
	}

	return result, nil
}

type siteKey struct {
	caller ir.FuncID
	span   ir.Span
	name   string
}

func keyOf(e callgraph.Edge) siteKey {
	return siteKey{caller: e.Caller, span: e.Site.Span, name: e.Qualified}
}

type propagation struct {
	snap  *ir.Snapshot
	graph *callgraph.Graph
	sccs  []callgraph.SCC
	mode  Mode

	base map[ir.FuncID]effects.Set
	// unknown marks external edges whose manifest resolution failed;
	// external holds the resolved set of every edge that did resolve.
	unknown  map[siteKey]bool
	external map[siteKey]effects.Set

	mu       sync.Mutex
	resolved map[ir.FuncID]effects.Set
	states   map[ir.FuncID]State
}

// runPool schedules SCCs over the component DAG: a component becomes ready
// once every distinct callee component is resolved.
func (p *propagation) runPool(ctx context.Context, workers int) error {
	n := len(p.sccs)
	if n == 0 {
		return nil
	}

	compOf := make(map[ir.FuncID]int, p.snap.Len())
	for i, scc := range p.sccs {
		for _, m := range scc.Members {
			compOf[m] = i
		}
	}

	pending := make([]int, n)
	dependents := make([][]int, n)
	for i, scc := range p.sccs {
		seen := make(map[int]bool)
		for _, m := range scc.Members {
			for _, callee := range p.graph.InternalCallees(m) {
				j := compOf[callee]
				if j == i || seen[j] {
					continue
				}
				seen[j] = true
				pending[i]++
				dependents[j] = append(dependents[j], i)
			}
		}
	}

	ready := make(chan int, n)
	var schedMu sync.Mutex
	remaining := n
	for i := 0; i < n; i++ {
		if pending[i] == 0 {
			ready <- i
		}
	}

	grp, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		grp.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case idx, ok := <-ready:
					if !ok {
						return nil
					}
					if err := ctx.Err(); err != nil {
						return err
					}
					if err := p.processSCC(idx); err != nil {
						return err
					}
					schedMu.Lock()
					for _, dep := range dependents[idx] {
						pending[dep]--
						if pending[dep] == 0 {
							ready <- dep
						}
					}
					remaining--
					if remaining == 0 {
						close(ready)
					}
					schedMu.Unlock()
				}
			}
		})
	}
	return grp.Wait()
}

// processSCC runs the intra-component fixed point. The iteration
// terminates because the lattice has finite height and every join is
// monotone non-decreasing.
func (p *propagation) processSCC(idx int) error {
	scc := p.sccs[idx]
	members := make(map[ir.FuncID]bool, len(scc.Members))
	for _, m := range scc.Members {
		members[m] = true
	}

	// Seed each member with its base set plus the final sets of
	// inter-SCC callees, which are resolved by schedule order.
	working := make(map[ir.FuncID]effects.Set, len(scc.Members))
	p.mu.Lock()
	for _, m := range scc.Members {
		if p.states[m] != Pending {
			p.mu.Unlock()
			return fmt.Errorf("internal: function %s entered component twice (state %s)", m, p.states[m])
		}
		p.states[m] = Propagating
	}
	for _, m := range scc.Members {
		set := p.base[m]
		for _, callee := range p.graph.InternalCallees(m) {
			if members[callee] {
				continue
			}
			final, ok := p.resolved[callee]
			if !ok {
				p.mu.Unlock()
				return fmt.Errorf("internal: callee %s of %s not resolved before its caller's component", callee, m)
			}
			set = set.Join(final)
		}
		working[m] = set
	}
	p.mu.Unlock()

	// Intra-SCC iteration until no member's set changes.
	for changed := true; changed; {
		changed = false
		for _, m := range scc.Members {
			set := working[m]
			for _, callee := range p.graph.InternalCallees(m) {
				if !members[callee] {
					continue
				}
				set = set.Join(working[callee])
			}
			if !set.Equal(working[m]) {
				working[m] = set
				changed = true
			}
		}
	}

	p.mu.Lock()
	for _, m := range scc.Members {
		p.resolved[m] = working[m]
		p.states[m] = Resolved
	}
	p.mu.Unlock()
	return nil
}

// findChain breadth-first searches from the violating function to the
// nearest call that introduces code. An empty chain means the function's
// own body performs the effect directly.
func (p *propagation) findChain(from ir.FuncID, code effects.Code) []callgraph.Edge {
	type item struct {
		id   ir.FuncID
		path []callgraph.Edge
	}

	visited := map[ir.FuncID]bool{from: true}
	queue := []item{{id: from}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		f, ok := p.snap.Function(cur.id)
		if !ok {
			continue
		}
		if f.LocalEffects().CoversCode(code) {
			return cur.path
		}

		for _, edge := range p.graph.Edges(cur.id) {
			if edge.Kind == callgraph.EdgeExternal {
				if p.externalIntroduces(edge, code) {
					return appendPath(cur.path, edge)
				}
				continue
			}
			callee, ok := p.snap.Function(edge.Callee)
			if ok && callee.LocalEffects().CoversCode(code) {
				return appendPath(cur.path, edge)
			}
			if !visited[edge.Callee] {
				visited[edge.Callee] = true
				queue = append(queue, item{id: edge.Callee, path: appendPath(cur.path, edge)})
			}
		}
	}
	return nil
}

// externalIntroduces reports whether an external edge charges the caller
// with code. Unresolved edges in permissive mode introduce everything.
func (p *propagation) externalIntroduces(edge callgraph.Edge, code effects.Code) bool {
	if p.unknown[keyOf(edge)] {
		return p.mode == Permissive
	}
	return p.external[keyOf(edge)].CoversCode(code)
}

func appendPath(path []callgraph.Edge, edge callgraph.Edge) []callgraph.Edge {
	out := make([]callgraph.Edge, 0, len(path)+1)
	out = append(out, path...)
	out = append(out, edge)
	return out
}
