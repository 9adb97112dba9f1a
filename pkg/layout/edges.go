package layout

import "github.com/matzehuels/onnxgraph/pkg/nodegraph"

// Edges lists the connections of g as index pairs.
//
// With reverse, index 0 is the most recently created vertex and each
// vertex emits (itself, predecessor) for every vertex connected to one of
// its input ports. Otherwise indices follow creation order and the pairs
// run (predecessor, itself).
func Edges(g *nodegraph.Graph, reverse bool) [][2]int {
	vertices := order(g, reverse)
	index := make(map[*nodegraph.Vertex]int, len(vertices))
	for i, v := range vertices {
		index[v] = i
	}

	var out [][2]int
	for i, v := range vertices {
		for _, p := range v.InputPorts() {
			for _, q := range p.Connections() {
				j := index[q.Vertex()]
				if reverse {
					out = append(out, [2]int{i, j})
				} else {
					out = append(out, [2]int{j, i})
				}
			}
		}
	}
	return out
}

// order returns the vertices of g in index order for the given direction.
func order(g *nodegraph.Graph, reverse bool) []*nodegraph.Vertex {
	vertices := g.Vertices()
	if reverse {
		for i, j := 0, len(vertices)-1; i < j; i, j = i+1, j-1 {
			vertices[i], vertices[j] = vertices[j], vertices[i]
		}
	}
	return vertices
}
