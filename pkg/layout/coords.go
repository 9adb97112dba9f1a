package layout

import (
	"slices"

	"github.com/matzehuels/onnxgraph/pkg/dag"
)

const alignPasses = 4

// assignX places the nodes of each ordered row at least gap apart. Each
// pass pulls nodes towards the median x of their neighbours in the row
// swept before, alternating top-down and bottom-up. The leftmost node ends
// at x = 0.
func assignX(g *dag.DAG, rows [][]int, gap float64) []float64 {
	x := make([]float64, g.NodeCount())
	for _, row := range rows {
		for i, id := range row {
			x[id] = float64(i) * gap
		}
	}

	for pass := range alignPasses {
		if pass%2 == 0 {
			for r := 1; r < len(rows); r++ {
				align(rows[r], x, gap, g.Parents)
			}
		} else {
			for r := len(rows) - 2; r >= 0; r-- {
				align(rows[r], x, gap, g.Children)
			}
		}
	}

	lo := 0.0
	for i, v := range x {
		if i == 0 || v < lo {
			lo = v
		}
	}
	for i := range x {
		x[i] -= lo
	}
	return x
}

// align moves the nodes of row towards the median of their neighbours'
// x while keeping their order and minimum spacing. Packing from the left
// and from the right and averaging both keeps the spacing and centres
// unconstrained runs.
func align(row []int, x []float64, gap float64, neighbours func(int) []int) {
	n := len(row)
	if n == 0 {
		return
	}
	want := make([]float64, n)
	for i, id := range row {
		want[i] = x[id]
		if m, ok := median(neighbours(id), x); ok {
			want[i] = m
		}
	}

	left := make([]float64, n)
	for i := range n {
		left[i] = want[i]
		if i > 0 {
			left[i] = max(left[i], left[i-1]+gap)
		}
	}
	right := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		right[i] = want[i]
		if i < n-1 {
			right[i] = min(right[i], right[i+1]-gap)
		}
	}
	for i, id := range row {
		x[id] = (left[i] + right[i]) / 2
	}
}

func median(ids []int, x []float64) (float64, bool) {
	if len(ids) == 0 {
		return 0, false
	}
	vals := make([]float64, len(ids))
	for i, id := range ids {
		vals[i] = x[id]
	}
	slices.Sort(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid], true
	}
	return (vals[mid-1] + vals[mid]) / 2, true
}
