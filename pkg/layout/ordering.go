package layout

import (
	"cmp"
	"slices"

	"github.com/matzehuels/onnxgraph/pkg/dag"
)

// Orderer decides the left-to-right sequence of nodes in each row of a
// layered graph. The result has one entry per row of g.
type Orderer interface {
	OrderRows(g *dag.DAG) [][]int
}

// DefaultPasses is the number of sweeps used by a zero [Barycentric].
const DefaultPasses = 24

// Barycentric is the classic Sugiyama barycenter heuristic. Sweeps
// alternate top-down and bottom-up; each sweep sorts a row by the mean
// position of its neighbours in the previous row and then swaps adjacent
// nodes while that removes crossings. The ordering with the fewest
// crossings seen is returned.
type Barycentric struct {
	Passes int
}

// OrderRows implements [Orderer].
func (b Barycentric) OrderRows(g *dag.DAG) [][]int {
	passes := b.Passes
	if passes <= 0 {
		passes = DefaultPasses
	}

	rows := g.Rows()
	best := cloneRows(rows)
	bestCrossings := dag.CountCrossings(g, rows)

	for pass := 0; pass < passes && bestCrossings > 0; pass++ {
		if pass%2 == 0 {
			for r := 1; r < len(rows); r++ {
				sortByBarycenter(rows[r], dag.PosMap(rows[r-1]), g.Parents)
			}
		} else {
			for r := len(rows) - 2; r >= 0; r-- {
				sortByBarycenter(rows[r], dag.PosMap(rows[r+1]), g.Children)
			}
		}
		transpose(g, rows)

		if c := dag.CountCrossings(g, rows); c < bestCrossings {
			best, bestCrossings = cloneRows(rows), c
		}
	}
	return best
}

// sortByBarycenter reorders row by the mean position of each node's
// neighbours in the adjacent row. Nodes without neighbours keep their
// current position as key.
func sortByBarycenter(row []int, adjPos map[int]int, neighbours func(int) []int) {
	keys := make(map[int]float64, len(row))
	for i, id := range row {
		sum, n := 0, 0
		for _, nb := range neighbours(id) {
			if p, ok := adjPos[nb]; ok {
				sum += p
				n++
			}
		}
		if n == 0 {
			keys[id] = float64(i)
		} else {
			keys[id] = float64(sum) / float64(n)
		}
	}
	slices.SortStableFunc(row, func(a, b int) int { return cmp.Compare(keys[a], keys[b]) })
}

// transpose swaps adjacent nodes while the swap strictly reduces the
// crossings with both neighbouring rows.
func transpose(g *dag.DAG, rows [][]int) {
	for improved, rounds := true, 0; improved && rounds < len(rows)+4; rounds++ {
		improved = false
		for r, row := range rows {
			var above, below map[int]int
			if r > 0 {
				above = dag.PosMap(rows[r-1])
			}
			if r+1 < len(rows) {
				below = dag.PosMap(rows[r+1])
			}
			cost := func(left, right int) int {
				c := 0
				if above != nil {
					c += dag.CountPairCrossings(g, left, right, above, true)
				}
				if below != nil {
					c += dag.CountPairCrossings(g, left, right, below, false)
				}
				return c
			}
			for i := 0; i+1 < len(row); i++ {
				if cost(row[i+1], row[i]) < cost(row[i], row[i+1]) {
					row[i], row[i+1] = row[i+1], row[i]
					improved = true
				}
			}
		}
	}
}

func cloneRows(rows [][]int) [][]int {
	out := make([][]int, len(rows))
	for i, r := range rows {
		out[i] = slices.Clone(r)
	}
	return out
}
