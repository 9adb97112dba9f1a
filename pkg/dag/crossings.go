package dag

import "slices"

// CountCrossings returns the total number of edge crossings for the given
// row orderings. orders[r] lists the node IDs of row r from left to right.
func CountCrossings(g *DAG, orders [][]int) int {
	crossings := 0
	for r := 0; r+1 < len(orders); r++ {
		crossings += CountLayerCrossings(g, orders[r], orders[r+1])
	}
	return crossings
}

// CountLayerCrossings counts edge crossings between two adjacent rows.
//
// Two edges (u1,v1) and (u2,v2) cross if and only if:
//
//	pos(u1) < pos(u2) AND pos(v1) > pos(v2)
//
// This is the number of inversions in the sequence of target positions
// when edges are sorted by source position, counted with a Fenwick tree in
// O(E log V).
func CountLayerCrossings(g *DAG, upper, lower []int) int {
	if len(upper) == 0 || len(lower) == 0 {
		return 0
	}

	lowerPos := PosMap(lower)

	type edge struct{ upper, lower int }
	edges := make([]edge, 0, len(upper)*2)
	for i, id := range upper {
		for _, child := range g.Children(id) {
			if pos, ok := lowerPos[child]; ok {
				edges = append(edges, edge{i, pos})
			}
		}
	}
	if len(edges) < 2 {
		return 0
	}

	slices.SortFunc(edges, func(a, b edge) int {
		if a.upper != b.upper {
			return a.upper - b.upper
		}
		return a.lower - b.lower
	})

	fenwick := make([]int, len(lower)+1)
	crossings, total := 0, 0
	for _, e := range edges {
		// Edges seen so far with target <= e.lower.
		lessOrEqual := 0
		for q := e.lower + 1; q > 0; q -= q & (-q) {
			lessOrEqual += fenwick[q]
		}
		crossings += total - lessOrEqual

		total++
		for idx := e.lower + 1; idx < len(fenwick); idx += idx & (-idx) {
			fenwick[idx]++
		}
	}
	return crossings
}

// CountPairCrossings counts the crossings between the edges of two nodes
// of one row, left placed before right. With useParents it looks at the
// row above, otherwise at the row below. adjPos maps node IDs of that row
// to positions.
//
// Comparing CountPairCrossings(a, b) with CountPairCrossings(b, a) tells
// whether swapping two neighbours reduces crossings.
func CountPairCrossings(g *DAG, left, right int, adjPos map[int]int, useParents bool) int {
	var lnbr, rnbr []int
	if useParents {
		lnbr, rnbr = g.Parents(left), g.Parents(right)
	} else {
		lnbr, rnbr = g.Children(left), g.Children(right)
	}

	crossings := 0
	for _, ln := range lnbr {
		lp, ok := adjPos[ln]
		if !ok {
			continue
		}
		for _, rn := range rnbr {
			if rp, ok := adjPos[rn]; ok && lp > rp {
				crossings++
			}
		}
	}
	return crossings
}
