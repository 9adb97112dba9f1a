// Package dataflow is the exchange-format graph that the translators consume
// and produce.
//
// A [Graph] holds ordered graph inputs and outputs, nodes in execution
// order, and the model metadata that travels with them (opset, import
// domains, producer and IR version). Tensors are shared by pointer: every
// use of one tensor name inside a graph refers to the same [Tensor], so
// producers and consumers can be traced by identity.
//
// [FromModel] builds a Graph from a decoded ONNX model: initializers become
// constant tensors, value_info entries fill in types, and attributes are
// converted into [tensor.Attributes]. [ToModel] turns a Graph back into a
// model, emitting constant node inputs as initializers.
//
// [tensor.Attributes]: github.com/matzehuels/onnxgraph/pkg/tensor.Attributes
package dataflow
