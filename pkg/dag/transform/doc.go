// Package transform prepares a [dag.DAG] for layered drawing.
//
// The layout pipeline applies, in order:
//
//   - [BreakCycles] reverses back edges so the graph becomes acyclic
//   - [AssignLayers] places each node one row below its deepest parent
//   - [Subdivide] splits long edges with dummy nodes so every edge joins
//     consecutive rows
//
// After these steps [dag.DAG.Validate] succeeds and each row can be
// ordered independently.
//
//	transform.BreakCycles(g)
//	transform.AssignLayers(g)
//	transform.Subdivide(g)
//
// [dag.DAG]: github.com/matzehuels/onnxgraph/pkg/dag.DAG
// [dag.DAG.Validate]: github.com/matzehuels/onnxgraph/pkg/dag.DAG.Validate
package transform
