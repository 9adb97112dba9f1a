package transform

import "github.com/matzehuels/onnxgraph/pkg/dag"

// Subdivide replaces every edge spanning more than one row with a chain of
// single-row edges through dummy nodes. For example:
//
//	Before: 0 (row 0) -> 1 (row 3)
//	After:  0 -> d1 -> d2 -> 1
//
// Dummies get the next free IDs in edge order and carry the source of the
// split edge as Origin. It returns the number of dummies added.
func Subdivide(g *dag.DAG) int {
	added := 0
	for _, e := range g.Edges() {
		src, _ := g.Node(e.From)
		dst, _ := g.Node(e.To)
		if dst.Row <= src.Row+1 {
			continue
		}

		g.RemoveEdge(e.From, e.To)
		prev := src.ID
		for row := src.Row + 1; row < dst.Row; row++ {
			id := g.AddNode(dag.NodeKindDummy, row, src.ID)
			mustEdge(g, prev, id)
			prev = id
			added++
		}
		mustEdge(g, prev, dst.ID)
	}
	return added
}

func mustEdge(g *dag.DAG, from, to int) {
	if err := g.AddEdge(from, to); err != nil {
		panic(err)
	}
}
