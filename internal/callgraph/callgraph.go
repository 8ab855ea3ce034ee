// Package callgraph builds the directed function call graph of a snapshot
// and decomposes it into strongly connected components ordered callees
// first, the shape the effect propagator needs for a terminating fixed
// point over mutual recursion.
package callgraph

import (
	"fmt"

	"github.com/riftlang/riftcheck/internal/ir"
)

// EdgeKind distinguishes resolved internal edges from external edges that
// still need manifest resolution.
type EdgeKind int

const (
	EdgeInternal EdgeKind = iota
	EdgeExternal
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeInternal:
		return "internal"
	case EdgeExternal:
		return "external"
	default:
		return "?"
	}
}

// Edge is one caller-to-callee edge. Every call expression in every body
// yields exactly one edge.
type Edge struct {
	Caller    ir.FuncID
	Kind      EdgeKind
	Callee    ir.FuncID // valid for EdgeInternal
	Qualified string    // valid for EdgeExternal
	Site      ir.CallSite
}

func (e Edge) String() string {
	if e.Kind == EdgeExternal {
		return fmt.Sprintf("%s -> %s [external]", e.Caller, e.Qualified)
	}
	return fmt.Sprintf("%s -> %s", e.Caller, e.Callee)
}

// Graph is the adjacency-list call graph of one snapshot.
type Graph struct {
	nodes []ir.FuncID
	out   map[ir.FuncID][]Edge
}

// Build derives the call graph from the snapshot. An internal call target
// that does not exist in the snapshot is a structural input error, not a
// verification outcome.
func Build(snap *ir.Snapshot) (*Graph, error) {
	g := &Graph{
		nodes: snap.FuncIDs(),
		out:   make(map[ir.FuncID][]Edge, snap.Len()),
	}

	for _, id := range g.nodes {
		f, _ := snap.Function(id)
		for _, site := range f.CallSites() {
			switch site.Target.Kind {
			case ir.TargetInternal:
				if _, ok := snap.Function(site.Target.Func); !ok {
					return nil, fmt.Errorf("call site %s references missing function id %q", site, site.Target.Func)
				}
				g.out[id] = append(g.out[id], Edge{
					Caller: id,
					Kind:   EdgeInternal,
					Callee: site.Target.Func,
					Site:   site,
				})
			case ir.TargetExternal:
				if site.Target.Qualified == "" {
					return nil, fmt.Errorf("call site in %q has an empty external name", id)
				}
				g.out[id] = append(g.out[id], Edge{
					Caller:    id,
					Kind:      EdgeExternal,
					Qualified: site.Target.Qualified,
					Site:      site,
				})
			default:
				return nil, fmt.Errorf("call site in %q has unknown target kind", id)
			}
		}
	}

	return g, nil
}

// Nodes returns every function id in sorted order.
func (g *Graph) Nodes() []ir.FuncID {
	out := make([]ir.FuncID, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns the outgoing edges of id in body order.
func (g *Graph) Edges(id ir.FuncID) []Edge {
	return g.out[id]
}

// InternalCallees returns the internal callees of id, duplicates included.
func (g *Graph) InternalCallees(id ir.FuncID) []ir.FuncID {
	var out []ir.FuncID
	for _, e := range g.out[id] {
		if e.Kind == EdgeInternal {
			out = append(out, e.Callee)
		}
	}
	return out
}

// ExternalEdges returns the external edges of id in body order.
func (g *Graph) ExternalEdges(id ir.FuncID) []Edge {
	var out []Edge
	for _, e := range g.out[id] {
		if e.Kind == EdgeExternal {
			out = append(out, e)
		}
	}
	return out
}
