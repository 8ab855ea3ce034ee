package callgraph

import "github.com/riftlang/riftcheck/internal/ir"

// SCC is one strongly connected component of the call graph restricted to
// internal edges. A non-recursive function is a singleton with Recursive
// false; a self-calling function is a singleton with Recursive true.
type SCC struct {
	Members   []ir.FuncID
	Recursive bool
}

// Contains reports whether id belongs to this component.
func (s SCC) Contains(id ir.FuncID) bool {
	for _, m := range s.Members {
		if m == id {
			return true
		}
	}
	return false
}

// Decompose partitions the graph into strongly connected components using
// an iterative Tarjan walk over internal edges. The returned order places
// callees before callers: every inter-component edge points from a later
// component to an earlier one, which is exactly the processing order the
// effect fixed point needs. Within the guarantees of Tarjan the order is
// deterministic because nodes are visited in sorted id order.
func Decompose(g *Graph) []SCC {
	t := &tarjan{
		g:       g,
		index:   make(map[ir.FuncID]int),
		lowlink: make(map[ir.FuncID]int),
		onStack: make(map[ir.FuncID]bool),
	}
	for _, id := range g.Nodes() {
		if _, seen := t.index[id]; !seen {
			t.strongConnect(id)
		}
	}
	return t.sccs
}

type tarjan struct {
	g       *Graph
	counter int
	index   map[ir.FuncID]int
	lowlink map[ir.FuncID]int
	stack   []ir.FuncID
	onStack map[ir.FuncID]bool
	sccs    []SCC
}

// frame is one suspended DFS visit. Tarjan is run iteratively so that
// arbitrarily deep call chains cannot exhaust the goroutine stack.
type frame struct {
	node    ir.FuncID
	callees []ir.FuncID
	next    int
}

func (t *tarjan) strongConnect(root ir.FuncID) {
	frames := []frame{t.push(root)}

	for len(frames) > 0 {
		f := &frames[len(frames)-1]

		advanced := false
		for f.next < len(f.callees) {
			callee := f.callees[f.next]
			f.next++
			if _, seen := t.index[callee]; !seen {
				frames = append(frames, t.push(callee))
				advanced = true
				break
			}
			if t.onStack[callee] {
				if t.index[callee] < t.lowlink[f.node] {
					t.lowlink[f.node] = t.index[callee]
				}
			}
		}
		if advanced {
			continue
		}

		// All callees explored.
		if t.lowlink[f.node] == t.index[f.node] {
			t.popComponent(f.node)
		}
		frames = frames[:len(frames)-1]
		if len(frames) > 0 {
			parent := &frames[len(frames)-1]
			if t.lowlink[f.node] < t.lowlink[parent.node] {
				t.lowlink[parent.node] = t.lowlink[f.node]
			}
		}
	}
}

func (t *tarjan) push(id ir.FuncID) frame {
	t.index[id] = t.counter
	t.lowlink[id] = t.counter
	t.counter++
	t.stack = append(t.stack, id)
	t.onStack[id] = true
	return frame{node: id, callees: t.g.InternalCallees(id)}
}

func (t *tarjan) popComponent(root ir.FuncID) {
	var members []ir.FuncID
	for {
		n := len(t.stack) - 1
		id := t.stack[n]
		t.stack = t.stack[:n]
		t.onStack[id] = false
		members = append(members, id)
		if id == root {
			break
		}
	}

	recursive := len(members) > 1
	if !recursive {
		for _, callee := range t.g.InternalCallees(members[0]) {
			if callee == members[0] {
				recursive = true
				break
			}
		}
	}

	// Tarjan emits components in reverse topological order already, so
	// appending yields the callee-first order the propagator consumes.
	t.sccs = append(t.sccs, SCC{Members: members, Recursive: recursive})
}
