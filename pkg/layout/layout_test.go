package layout

import (
	"errors"
	"slices"
	"testing"

	"github.com/matzehuels/onnxgraph/pkg/dag"
	"github.com/matzehuels/onnxgraph/pkg/nodegraph"
	"github.com/matzehuels/onnxgraph/pkg/tensor"
	"github.com/matzehuels/onnxgraph/pkg/undo"
)

// chain builds x -> relu -> y, created in the order x, y, relu.
func chain(t *testing.T, rec undo.Recorder) (*nodegraph.Graph, *nodegraph.Vertex, *nodegraph.Vertex, *nodegraph.Vertex) {
	t.Helper()
	g := nodegraph.New(rec)
	add := func(kind nodegraph.Kind, spec nodegraph.Spec) *nodegraph.Vertex {
		v, err := g.AddVertex(kind, spec, false)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}
	x := add(nodegraph.KindInput, nodegraph.Spec{Tensor: tensor.NewVariable("x", tensor.Float32, tensor.ShapeOf(1))})
	y := add(nodegraph.KindOutput, nodegraph.Spec{Tensor: tensor.NewVariable("y", tensor.Float32, tensor.ShapeOf(1))})
	r := add(nodegraph.KindOperator, nodegraph.Spec{Op: "Relu"})
	if err := g.Connect(x.OutputPort(0), r.InputPort(0), false); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect(r.OutputPort(0), y.InputPort(0), false); err != nil {
		t.Fatal(err)
	}
	return g, x, r, y
}

func TestEdges(t *testing.T) {
	g, _, _, _ := chain(t, nil)

	if got, want := Edges(g, true), [][2]int{{0, 2}, {1, 0}}; !slices.Equal(got, want) {
		t.Errorf("Edges(reverse) = %v, want %v", got, want)
	}
	if got, want := Edges(g, false), [][2]int{{2, 1}, {0, 2}}; !slices.Equal(got, want) {
		t.Errorf("Edges(forward) = %v, want %v", got, want)
	}
	if got := Edges(nodegraph.New(nil), true); len(got) != 0 {
		t.Errorf("Edges(empty) = %v", got)
	}
}

func TestSugiyama(t *testing.T) {
	p := Params{HGap: 2, VGap: 1}
	tests := []struct {
		name  string
		n     int
		edges [][2]int
		want  []nodegraph.Point
	}{
		{"chain", 3, [][2]int{{0, 1}, {1, 2}}, []nodegraph.Point{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: 2}}},
		{"fan-out", 3, [][2]int{{0, 1}, {0, 2}}, []nodegraph.Point{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: 2, Y: 1}}},
		{"self loop", 1, [][2]int{{0, 0}}, []nodegraph.Point{{X: 0, Y: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Sugiyama(tt.n, tt.edges, p)
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(res.Points, tt.want) {
				t.Errorf("points = %v, want %v", res.Points, tt.want)
			}
		})
	}
}

func TestSugiyamaRemovesCrossings(t *testing.T) {
	res, err := Sugiyama(4, [][2]int{{0, 3}, {1, 2}}, Params{HGap: 2, VGap: 1})
	if err != nil {
		t.Fatal(err)
	}
	if res.Crossings != 0 {
		t.Errorf("crossings = %d", res.Crossings)
	}
	if res.Points[3].X >= res.Points[2].X {
		t.Errorf("3 should sit left of 2: %v", res.Points)
	}
}

func TestSugiyamaLongEdgesAndCycles(t *testing.T) {
	res, err := Sugiyama(3, [][2]int{{0, 1}, {1, 2}, {0, 2}, {2, 0}}, Params{HGap: 1, VGap: 3})
	if err != nil {
		t.Fatal(err)
	}
	if res.Reversed != 1 {
		t.Errorf("reversed = %d, want 1", res.Reversed)
	}
	if res.Layers != 3 || res.Dummies != 2 {
		t.Errorf("layers = %d dummies = %d", res.Layers, res.Dummies)
	}
	if got := res.Points[2].Y; got != 6 {
		t.Errorf("y of deepest vertex = %g, want 6", got)
	}
}

func TestSugiyamaMinimumGap(t *testing.T) {
	edges := [][2]int{{0, 3}, {0, 4}, {1, 4}, {1, 5}, {2, 3}, {2, 6}, {3, 7}, {4, 7}, {5, 7}, {6, 7}}
	res, err := Sugiyama(8, edges, Params{HGap: 2, VGap: 1})
	if err != nil {
		t.Fatal(err)
	}
	byLayer := map[float64][]float64{}
	for _, p := range res.Points {
		byLayer[p.Y] = append(byLayer[p.Y], p.X)
	}
	for y, xs := range byLayer {
		slices.Sort(xs)
		for i := 1; i < len(xs); i++ {
			if xs[i]-xs[i-1] < 2-1e-9 {
				t.Errorf("layer %g: gap %g < 2 in %v", y, xs[i]-xs[i-1], xs)
			}
		}
	}
}

func TestSugiyamaDeterministic(t *testing.T) {
	edges := [][2]int{{0, 4}, {1, 4}, {2, 5}, {3, 5}, {0, 5}, {4, 6}, {5, 6}, {1, 6}, {6, 7}, {2, 7}}
	first, err := Sugiyama(8, edges, Params{HGap: 2, VGap: 1})
	if err != nil {
		t.Fatal(err)
	}
	for range 5 {
		again, _ := Sugiyama(8, edges, Params{HGap: 2, VGap: 1})
		if !slices.Equal(first.Points, again.Points) {
			t.Fatalf("layout changed: %v vs %v", first.Points, again.Points)
		}
	}
}

func TestSugiyamaEdgeIndex(t *testing.T) {
	if _, err := Sugiyama(2, [][2]int{{0, 5}}, Params{}); !errors.Is(err, ErrEdgeIndex) {
		t.Errorf("err = %v, want ErrEdgeIndex", err)
	}
}

func TestBarycentricKeepsRows(t *testing.T) {
	g := dag.New(5)
	g.SetRows(map[int]int{2: 1, 3: 1, 4: 1})
	_ = g.AddEdge(0, 4)
	_ = g.AddEdge(1, 2)
	_ = g.AddEdge(1, 3)

	rows := Barycentric{Passes: 4}.OrderRows(g)
	if len(rows) != 2 || len(rows[0]) != 2 || len(rows[1]) != 3 {
		t.Fatalf("rows = %v", rows)
	}
	if c := dag.CountCrossings(g, rows); c != 0 {
		t.Errorf("crossings = %d in %v", c, rows)
	}
}

func TestApply(t *testing.T) {
	rec := undo.NewStack()
	g, x, r, y := chain(t, rec)

	if err := Apply(g, Options{Reverse: true, Record: true}); err != nil {
		t.Fatal(err)
	}
	want := map[*nodegraph.Vertex]nodegraph.Point{
		y: {X: 0, Y: 0},
		r: {X: 0, Y: -120},
		x: {X: 0, Y: -240},
	}
	for v, p := range want {
		if v.Position() != p {
			t.Errorf("%s at %v, want %v", v.Name(), v.Position(), p)
		}
	}
	if rec.Len() != 1 || rec.UndoLabel() != GroupLabel {
		t.Fatalf("undo stack = %d %q", rec.Len(), rec.UndoLabel())
	}

	rec.Undo()
	for _, v := range []*nodegraph.Vertex{x, r, y} {
		if v.Position() != (nodegraph.Point{}) {
			t.Errorf("%s at %v after undo", v.Name(), v.Position())
		}
	}
}

func TestApplyWithoutEdges(t *testing.T) {
	rec := undo.NewStack()
	g := nodegraph.New(rec)
	v, err := g.AddVertex(nodegraph.KindInput, nodegraph.Spec{
		Tensor:   tensor.NewVariable("x", tensor.Float32, nil),
		Position: nodegraph.Point{X: 5, Y: 7},
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := Apply(g, DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	if v.Position() != (nodegraph.Point{X: 5, Y: 7}) {
		t.Errorf("position = %v", v.Position())
	}
	if rec.Len() != 0 {
		t.Errorf("undo stack = %d", rec.Len())
	}
}

func TestComputeForward(t *testing.T) {
	g, x, r, y := chain(t, nil)
	points, _, err := Compute(g, Options{ScaleX: 1, ScaleY: 1})
	if err != nil {
		t.Fatal(err)
	}
	// Creation order is x, y, relu.
	got := map[*nodegraph.Vertex]nodegraph.Point{x: points[0], y: points[1], r: points[2]}
	if got[x].Y != 0 || got[r].Y != 1 || got[y].Y != 2 {
		t.Errorf("points = %v", points)
	}
}
