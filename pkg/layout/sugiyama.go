package layout

import (
	"errors"
	"fmt"

	"github.com/matzehuels/onnxgraph/pkg/dag"
	"github.com/matzehuels/onnxgraph/pkg/dag/transform"
	"github.com/matzehuels/onnxgraph/pkg/nodegraph"
)

// ErrEdgeIndex is returned by [Sugiyama] for edges outside [0, n).
var ErrEdgeIndex = errors.New("edge index out of range")

// Params configures [Sugiyama].
type Params struct {
	// HGap is the minimum horizontal distance between vertices of a layer.
	HGap float64
	// VGap is the distance between layers.
	VGap float64
	// Orderer orders the layers. Nil uses [Barycentric] with
	// [DefaultPasses].
	Orderer Orderer
}

// Result is a computed layout.
type Result struct {
	// Points holds one position per input vertex.
	Points []nodegraph.Point
	// Layers is the number of layers used.
	Layers int
	// Reversed counts edges turned around to break cycles.
	Reversed int
	// Dummies counts vertices inserted to split long edges.
	Dummies int
	// Crossings is the number of edge crossings of the final ordering,
	// counted on the subdivided graph.
	Crossings int
}

// Sugiyama computes a layered layout of n vertices connected by edges.
// Sources of the edge list end up in layer 0 at y = 0. Self loops are
// ignored.
func Sugiyama(n int, edges [][2]int, p Params) (Result, error) {
	g := dag.New(n)
	for _, e := range edges {
		if e[0] < 0 || e[0] >= n || e[1] < 0 || e[1] >= n {
			return Result{}, fmt.Errorf("%w: (%d, %d) with %d vertices", ErrEdgeIndex, e[0], e[1], n)
		}
		if e[0] == e[1] {
			continue
		}
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return Result{}, err
		}
	}

	res := Result{Reversed: transform.BreakCycles(g)}
	transform.AssignLayers(g)
	res.Dummies = transform.Subdivide(g)

	orderer := p.Orderer
	if orderer == nil {
		orderer = Barycentric{}
	}
	rows := orderer.OrderRows(g)
	res.Layers = len(rows)
	res.Crossings = dag.CountCrossings(g, rows)

	x := assignX(g, rows, p.HGap)
	res.Points = make([]nodegraph.Point, n)
	for id := range n {
		node, _ := g.Node(id)
		res.Points[id] = nodegraph.Point{X: x[id], Y: float64(node.Row) * p.VGap}
	}
	return res, nil
}
