// Package layout arranges the vertices of a visual graph in layers.
//
// # Overview
//
// [Edges] turns the port connections of a [nodegraph.Graph] into an index
// edge list. [Sugiyama] computes a layered drawing of any such list:
//
//  1. Reverse back edges until the graph is acyclic
//  2. Assign each vertex to a layer by longest path
//  3. Split edges spanning several layers with dummy vertices
//  4. Order each layer with alternating barycenter sweeps and neighbour
//     transposition, keeping the ordering with the fewest crossings
//  5. Place vertices horizontally at least HGap apart, pulled towards the
//     median of their neighbours, and vertically at layer × VGap
//
// [Apply] runs both steps on a graph and moves every vertex, scaled to
// canvas units, as one undoable action.
//
// All steps iterate in index order, so equal inputs give equal layouts.
//
// # Usage
//
//	if err := layout.Apply(g, layout.DefaultOptions()); err != nil {
//	    return err
//	}
//
// [nodegraph.Graph]: github.com/matzehuels/onnxgraph/pkg/nodegraph.Graph
package layout
