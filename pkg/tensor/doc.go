// Package tensor provides the value model shared by the dataflow and visual
// graphs: named tensor references, scalar element types, shapes and the
// typed attribute values carried by operators.
//
// # Tensor References
//
// A [TensorRef] names a tensor and optionally records its element type, its
// shape and an embedded constant payload. A reference without [Values] is a
// runtime variable; one with values is a compile-time constant:
//
//	x := tensor.NewVariable("x", tensor.Float32, tensor.ShapeOf(1, 3))
//	c, err := tensor.NewConstant("c", tensor.Int64, tensor.ShapeOf(3),
//	    &tensor.Values{Ints: []int64{1, 2, 3}})
//
// Unknown information is representable and propagates unchanged:
// [Undefined] is the unknown element type and a nil [Shape] is an unknown
// shape. An empty non-nil shape is a scalar.
//
// # Constant Shape Law
//
// A constant must carry a known element type and a fully concrete shape,
// and the number of stored values must equal the product of the shape (a
// scalar holds exactly one value). [NewConstant] and [TensorRef.Validate]
// fail with an INVALID_TENSOR_SHAPE error otherwise.
//
// # Attributes
//
// [Attribute] is a tagged union over the attribute kinds an operator can
// carry, and [Attributes] keeps them in insertion order so that exported
// nodes list their attributes the way they were imported.
package tensor
