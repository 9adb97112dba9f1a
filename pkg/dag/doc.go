// Package dag provides the layered directed graph that backs automatic
// layout.
//
// # Overview
//
// A [DAG] holds integer-identified nodes, each assigned to a row (layer),
// and directed edges between them. Layout algorithms build one from the
// visual graph's edge list, make it acyclic, assign rows, split long edges
// with dummy nodes and then order each row to reduce crossings.
//
// Node IDs are dense: [New] creates nodes 0..n-1 and [DAG.AddNode] appends
// the next ID. Every accessor iterates in ID or insertion order, so the
// same input always yields the same layout.
//
//	g := dag.New(3)
//	g.AddEdge(0, 1)
//	g.AddEdge(1, 2)
//
// # Node Kinds
//
//   - [NodeKindRegular]: a vertex of the visual graph
//   - [NodeKindDummy]: a synthetic vertex on a long edge; Origin links it to
//     the source of that edge
//
// # Edge Crossings
//
// [CountCrossings] and [CountLayerCrossings] count inversions with a
// Fenwick tree in O(E log V). [CountPairCrossings] evaluates a single
// neighbour swap for local refinement.
//
// # Related Packages
//
// The [transform] subpackage provides cycle breaking, layer assignment and
// long-edge subdivision.
//
// [transform]: github.com/matzehuels/onnxgraph/pkg/dag/transform
package dag
