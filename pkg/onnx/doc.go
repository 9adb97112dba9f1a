// Package onnx reads, writes and checks ONNX model files.
//
// The message structs in this package mirror the subset of onnx.proto that
// a graph editor needs: models, graphs, nodes, attributes, tensors and value
// infos. They are decoded from and encoded to the protobuf wire format with
// [google.golang.org/protobuf/encoding/protowire], so no generated code is
// required. Unknown fields are skipped on read.
//
// # Reading and Writing
//
//	model, err := onnx.ReadFile("model.onnx")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(model.Graph.Name, len(model.Graph.Nodes))
//
//	if err := onnx.WriteFile("copy.onnx", model); err != nil {
//	    return err
//	}
//
// # Tensor Payloads
//
// [DecodeTensor] turns a [TensorProto] (raw_data or typed repeated fields,
// packed or not) into a flat [tensor.Values]; [EncodeTensor] goes the other
// way and always writes little-endian raw_data. Half precision payloads are
// handled with [github.com/x448/float16].
//
// # Checking
//
// [Check] performs structural checks on a model (IR version, opset imports,
// single assignment of tensor names, topological node order). [CheckNode]
// validates one node against the built-in operator [Schema] registry; the
// registry covers common default-domain operators and reports
// [ErrUnknownOperator] for everything else.
//
// [tensor.Values]: github.com/matzehuels/onnxgraph/pkg/tensor.Values
package onnx
