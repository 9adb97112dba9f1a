// Package translate converts between the exchange-format graph
// ([dataflow.Graph]) and the visual graph ([nodegraph.Graph]).
//
// # Import
//
// [Import] validates the source first and then builds the visual graph:
// input and output vertices, operator vertices with classified port
// tensors, constant operators collapsed to {dtype, values} attributes and
// stripped of their input port, port-0 wiring derived from tensor names,
// and finally every port locked. A malformed source fails the whole import
// and no graph is returned. A tensor written by more than one producer is a
// TOPOLOGY_ERROR.
//
// # Export
//
// [Export] walks the operator vertices in dependency order and rebuilds a
// [dataflow.Graph]. Tensor references are resolved through one arena per
// call so that each tensor name maps to exactly one object. Constant
// operators are re-synthesized from their {dtype, values} attributes. Each
// ordinary operator is checked against the operator schema in isolation;
// violations are reported as warnings and do not stop the export.
//
// [ToModel] adds model stamping and a structural check and reports the
// outcome as a [Result] instead of failing. [Save] writes the model only
// when the outcome is [Success].
//
//	res := translate.ToModel(g, translate.ExportOptions{ProducerName: "onnxgraph"})
//	if res.Outcome == translate.Failure {
//	    return res.Reason
//	}
//	for _, w := range res.Warnings {
//	    logger.Warn("schema", "node", w.Node, "err", w.Err)
//	}
//
// [dataflow.Graph]: github.com/matzehuels/onnxgraph/pkg/dataflow.Graph
// [nodegraph.Graph]: github.com/matzehuels/onnxgraph/pkg/nodegraph.Graph
package translate
