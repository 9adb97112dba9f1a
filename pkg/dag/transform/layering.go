package transform

import "github.com/matzehuels/onnxgraph/pkg/dag"

// AssignLayers assigns nodes to rows by longest path from the sources.
//
// Each node is placed one row below its deepest parent, so sources are at
// row 0 and every edge points strictly downward. Existing rows are
// overwritten. The graph must be acyclic; run [BreakCycles] first. Nodes on
// a remaining cycle stay at row 0.
//
// Time complexity is O(V + E).
func AssignLayers(g *dag.DAG) {
	n := g.NodeCount()
	inDegree := make([]int, n)
	rows := make(map[int]int, n)
	queue := make([]int, 0, n)

	for id := range n {
		inDegree[id] = g.InDegree(id)
		rows[id] = 0
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, child := range g.Children(curr) {
			if row := rows[curr] + 1; row > rows[child] {
				rows[child] = row
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	g.SetRows(rows)
}
