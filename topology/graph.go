package topology

import (
	"fmt"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/sarchlab/bridgesim/frame"
)

// connGraph is the fabric seen as an undirected graph. Graph node i is the
// device at index i of addrs.
type connGraph struct {
	g     *simple.UndirectedGraph
	addrs []frame.Address
	index map[frame.Address]int64
}

func (t *Topology) buildGraph() connGraph {
	cg := connGraph{
		g:     simple.NewUndirectedGraph(),
		index: make(map[frame.Address]int64),
	}

	for _, d := range t.Devices() {
		id := int64(len(cg.addrs))
		cg.addrs = append(cg.addrs, d.Address())
		cg.index[d.Address()] = id
		cg.g.AddNode(simple.Node(id))
	}

	for _, w := range t.Fabric.Wires() {
		from, okFrom := cg.index[w.Src()]
		to, okTo := cg.index[w.Dst()]

		if !okFrom || !okTo || cg.g.HasEdgeBetween(from, to) {
			continue
		}

		cg.g.SetEdge(cg.g.NewEdge(simple.Node(from), simple.Node(to)))
	}

	return cg
}

// Components returns the groups of devices that can reach each other.
func (t *Topology) Components() [][]frame.Address {
	cg := t.buildGraph()

	var groups [][]frame.Address

	for _, comp := range topo.ConnectedComponents(cg.g) {
		group := make([]frame.Address, 0, len(comp))
		for _, n := range comp {
			group = append(group, cg.addrs[n.ID()])
		}

		groups = append(groups, group)
	}

	return groups
}

// MustBeConnected panics if some device cannot reach all the others.
func (t *Topology) MustBeConnected() {
	groups := t.Components()
	if len(groups) > 1 {
		panic(fmt.Sprintf("topology is split into %d parts", len(groups)))
	}
}

// Hops returns the number of wires on the shortest path between two devices,
// or -1 if there is none.
func (t *Topology) Hops(from, to frame.Address) int {
	cg := t.buildGraph()

	src, ok := cg.index[from]
	if !ok {
		return -1
	}

	dst, ok := cg.index[to]
	if !ok {
		return -1
	}

	tree := path.DijkstraFrom(simple.Node(src), cg.g)

	nodes, _ := tree.To(dst)
	if len(nodes) == 0 {
		return -1
	}

	return len(nodes) - 1
}
