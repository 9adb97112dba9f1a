package transform

import "github.com/matzehuels/onnxgraph/pkg/dag"

// BreakCycles reverses back edges found by a depth-first search so that
// the graph becomes acyclic, and returns how many edges were reversed.
//
// The search starts from sources in ID order, then from any node still
// unvisited, so the result is deterministic. Reversed edges keep
// contributing to layering and ordering, pointing the other way.
func BreakCycles(g *dag.DAG) int {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, g.NodeCount())
	var backEdges [][2]int

	var dfs func(id int)
	dfs = func(id int) {
		color[id] = gray
		for _, child := range g.Children(id) {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				backEdges = append(backEdges, [2]int{id, child})
			}
		}
		color[id] = black
	}

	for _, id := range g.Sources() {
		if color[id] == white {
			dfs(id)
		}
	}
	for id := range g.NodeCount() {
		if color[id] == white {
			dfs(id)
		}
	}

	reversed := 0
	done := make(map[[2]int]bool)
	for _, e := range backEdges {
		if done[e] {
			continue
		}
		done[e] = true
		g.ReverseEdge(e[0], e[1])
		reversed++
	}
	return reversed
}
