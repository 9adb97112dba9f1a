package onnx

import (
	"errors"
	"fmt"
	"slices"

	"github.com/matzehuels/onnxgraph/pkg/tensor"
)

var (
	// ErrUnknownOperator is returned by [CheckNode] for default-domain
	// operators that have no registered schema.
	ErrUnknownOperator = errors.New("unknown operator")

	ErrInputArity      = errors.New("wrong number of inputs")
	ErrOutputArity     = errors.New("wrong number of outputs")
	ErrMissingAttr     = errors.New("missing required attribute")
	ErrAttrType        = errors.New("attribute has wrong type")
	ErrTypeMismatch    = errors.New("input element types differ")
	ErrIndexInputDType = errors.New("input must be an integer tensor")
)

// Variadic marks an unbounded arity.
const Variadic = -1

// Schema describes the static contract of one operator.
type Schema struct {
	Op         string
	MinInputs  int
	MaxInputs  int
	MinOutputs int
	MaxOutputs int
	// Required lists attributes that must be present.
	Required []string
	// Attrs constrains the type of attributes when present.
	Attrs map[string]AttributeType
	// SameType requires all typed inputs to share one element type.
	SameType bool
	// IndexInputs lists input positions that must be int32 or int64.
	IndexInputs []int
}

var schemas = map[string]*Schema{}

func register(s *Schema) {
	schemas[s.Op] = s
}

func unary(ops ...string) {
	for _, op := range ops {
		register(&Schema{Op: op, MinInputs: 1, MaxInputs: 1, MinOutputs: 1, MaxOutputs: 1})
	}
}

func binaryOp(same bool, ops ...string) {
	for _, op := range ops {
		register(&Schema{Op: op, MinInputs: 2, MaxInputs: 2, MinOutputs: 1, MaxOutputs: 1, SameType: same})
	}
}

func init() {
	unary("Abs", "Neg", "Relu", "Sigmoid", "Tanh", "Exp", "Log", "Sqrt", "Reciprocal",
		"Floor", "Ceil", "Round", "Erf", "Not", "Identity", "Softplus", "Softsign", "Sign",
		"Sin", "Cos", "Tan", "HardSwish", "Mish", "GlobalAveragePool", "GlobalMaxPool",
		"Shape", "Size", "NonZero", "IsNaN", "IsInf")
	binaryOp(true, "Add", "Sub", "Mul", "Div", "Equal", "Less", "Greater", "LessOrEqual",
		"GreaterOrEqual", "And", "Or", "Xor", "MatMul", "PRelu", "Mod")
	binaryOp(false, "Pow")

	for _, op := range []string{"Sum", "Max", "Min", "Mean"} {
		register(&Schema{Op: op, MinInputs: 1, MaxInputs: Variadic, MinOutputs: 1, MaxOutputs: 1, SameType: true})
	}
	for _, op := range []string{"Softmax", "LogSoftmax", "Hardmax"} {
		register(&Schema{Op: op, MinInputs: 1, MaxInputs: 1, MinOutputs: 1, MaxOutputs: 1,
			Attrs: map[string]AttributeType{"axis": AttributeInt}})
	}
	for _, op := range []string{"LeakyRelu", "Elu", "Selu", "HardSigmoid", "Celu", "ThresholdedRelu"} {
		register(&Schema{Op: op, MinInputs: 1, MaxInputs: 1, MinOutputs: 1, MaxOutputs: 1,
			Attrs: map[string]AttributeType{"alpha": AttributeFloat, "beta": AttributeFloat, "gamma": AttributeFloat}})
	}
	for _, op := range []string{"ReduceMean", "ReduceSum", "ReduceMax", "ReduceMin", "ReduceProd", "ReduceL2", "ReduceLogSumExp"} {
		register(&Schema{Op: op, MinInputs: 1, MaxInputs: 2, MinOutputs: 1, MaxOutputs: 1, IndexInputs: []int{1},
			Attrs: map[string]AttributeType{"axes": AttributeInts, "keepdims": AttributeInt}})
	}
	for _, op := range []string{"ArgMax", "ArgMin"} {
		register(&Schema{Op: op, MinInputs: 1, MaxInputs: 1, MinOutputs: 1, MaxOutputs: 1,
			Attrs: map[string]AttributeType{"axis": AttributeInt, "keepdims": AttributeInt}})
	}
	convAttrs := map[string]AttributeType{
		"auto_pad": AttributeString, "dilations": AttributeInts, "group": AttributeInt,
		"kernel_shape": AttributeInts, "pads": AttributeInts, "strides": AttributeInts,
	}
	for _, op := range []string{"Conv", "ConvTranspose"} {
		register(&Schema{Op: op, MinInputs: 2, MaxInputs: 3, MinOutputs: 1, MaxOutputs: 1, SameType: true, Attrs: convAttrs})
	}
	register(&Schema{Op: "MaxPool", MinInputs: 1, MaxInputs: 1, MinOutputs: 1, MaxOutputs: 2,
		Required: []string{"kernel_shape"}, Attrs: convAttrs})
	register(&Schema{Op: "AveragePool", MinInputs: 1, MaxInputs: 1, MinOutputs: 1, MaxOutputs: 1,
		Required: []string{"kernel_shape"}, Attrs: convAttrs})
	register(&Schema{Op: "Gemm", MinInputs: 2, MaxInputs: 3, MinOutputs: 1, MaxOutputs: 1, SameType: true,
		Attrs: map[string]AttributeType{"alpha": AttributeFloat, "beta": AttributeFloat, "transA": AttributeInt, "transB": AttributeInt}})
	register(&Schema{Op: "BatchNormalization", MinInputs: 5, MaxInputs: 5, MinOutputs: 1, MaxOutputs: 3,
		Attrs: map[string]AttributeType{"epsilon": AttributeFloat, "momentum": AttributeFloat}})
	register(&Schema{Op: "InstanceNormalization", MinInputs: 3, MaxInputs: 3, MinOutputs: 1, MaxOutputs: 1, SameType: true})
	register(&Schema{Op: "LayerNormalization", MinInputs: 2, MaxInputs: 3, MinOutputs: 1, MaxOutputs: 3,
		Attrs: map[string]AttributeType{"axis": AttributeInt, "epsilon": AttributeFloat}})
	register(&Schema{Op: "LRN", MinInputs: 1, MaxInputs: 1, MinOutputs: 1, MaxOutputs: 1, Required: []string{"size"}})
	register(&Schema{Op: "Dropout", MinInputs: 1, MaxInputs: 3, MinOutputs: 1, MaxOutputs: 2})
	register(&Schema{Op: "Clip", MinInputs: 1, MaxInputs: 3, MinOutputs: 1, MaxOutputs: 1, SameType: true})

	register(&Schema{Op: "Reshape", MinInputs: 2, MaxInputs: 2, MinOutputs: 1, MaxOutputs: 1, IndexInputs: []int{1}})
	register(&Schema{Op: "Expand", MinInputs: 2, MaxInputs: 2, MinOutputs: 1, MaxOutputs: 1, IndexInputs: []int{1}})
	register(&Schema{Op: "Tile", MinInputs: 2, MaxInputs: 2, MinOutputs: 1, MaxOutputs: 1, IndexInputs: []int{1}})
	register(&Schema{Op: "Transpose", MinInputs: 1, MaxInputs: 1, MinOutputs: 1, MaxOutputs: 1,
		Attrs: map[string]AttributeType{"perm": AttributeInts}})
	register(&Schema{Op: "Flatten", MinInputs: 1, MaxInputs: 1, MinOutputs: 1, MaxOutputs: 1,
		Attrs: map[string]AttributeType{"axis": AttributeInt}})
	for _, op := range []string{"Squeeze", "Unsqueeze"} {
		register(&Schema{Op: op, MinInputs: 1, MaxInputs: 2, MinOutputs: 1, MaxOutputs: 1, IndexInputs: []int{1},
			Attrs: map[string]AttributeType{"axes": AttributeInts}})
	}
	register(&Schema{Op: "Concat", MinInputs: 1, MaxInputs: Variadic, MinOutputs: 1, MaxOutputs: 1,
		Required: []string{"axis"}, SameType: true, Attrs: map[string]AttributeType{"axis": AttributeInt}})
	register(&Schema{Op: "Split", MinInputs: 1, MaxInputs: 2, MinOutputs: 1, MaxOutputs: Variadic, IndexInputs: []int{1},
		Attrs: map[string]AttributeType{"axis": AttributeInt, "split": AttributeInts}})
	register(&Schema{Op: "Slice", MinInputs: 3, MaxInputs: 5, MinOutputs: 1, MaxOutputs: 1, IndexInputs: []int{1, 2, 3, 4}})
	register(&Schema{Op: "Gather", MinInputs: 2, MaxInputs: 2, MinOutputs: 1, MaxOutputs: 1, IndexInputs: []int{1},
		Attrs: map[string]AttributeType{"axis": AttributeInt}})
	register(&Schema{Op: "GatherElements", MinInputs: 2, MaxInputs: 2, MinOutputs: 1, MaxOutputs: 1, IndexInputs: []int{1}})
	register(&Schema{Op: "GatherND", MinInputs: 2, MaxInputs: 2, MinOutputs: 1, MaxOutputs: 1, IndexInputs: []int{1}})
	register(&Schema{Op: "ScatterND", MinInputs: 3, MaxInputs: 3, MinOutputs: 1, MaxOutputs: 1, IndexInputs: []int{1}})
	register(&Schema{Op: "Pad", MinInputs: 1, MaxInputs: 4, MinOutputs: 1, MaxOutputs: 1, IndexInputs: []int{1},
		Attrs: map[string]AttributeType{"mode": AttributeString}})
	register(&Schema{Op: "Cast", MinInputs: 1, MaxInputs: 1, MinOutputs: 1, MaxOutputs: 1,
		Required: []string{"to"}, Attrs: map[string]AttributeType{"to": AttributeInt}})
	register(&Schema{Op: "CastLike", MinInputs: 2, MaxInputs: 2, MinOutputs: 1, MaxOutputs: 1})
	register(&Schema{Op: "Where", MinInputs: 3, MaxInputs: 3, MinOutputs: 1, MaxOutputs: 1})
	register(&Schema{Op: "Resize", MinInputs: 1, MaxInputs: 4, MinOutputs: 1, MaxOutputs: 1,
		Attrs: map[string]AttributeType{"mode": AttributeString}})
	register(&Schema{Op: "Upsample", MinInputs: 2, MaxInputs: 2, MinOutputs: 1, MaxOutputs: 1})
	register(&Schema{Op: "DepthToSpace", MinInputs: 1, MaxInputs: 1, MinOutputs: 1, MaxOutputs: 1, Required: []string{"blocksize"}})
	register(&Schema{Op: "SpaceToDepth", MinInputs: 1, MaxInputs: 1, MinOutputs: 1, MaxOutputs: 1, Required: []string{"blocksize"}})
	register(&Schema{Op: "Range", MinInputs: 3, MaxInputs: 3, MinOutputs: 1, MaxOutputs: 1, SameType: true})
	register(&Schema{Op: "TopK", MinInputs: 2, MaxInputs: 2, MinOutputs: 2, MaxOutputs: 2, IndexInputs: []int{1}})
	register(&Schema{Op: "CumSum", MinInputs: 2, MaxInputs: 2, MinOutputs: 1, MaxOutputs: 1, IndexInputs: []int{1}})
	register(&Schema{Op: "OneHot", MinInputs: 3, MaxInputs: 3, MinOutputs: 1, MaxOutputs: 1})
	register(&Schema{Op: "Einsum", MinInputs: 1, MaxInputs: Variadic, MinOutputs: 1, MaxOutputs: 1,
		Required: []string{"equation"}, SameType: true, Attrs: map[string]AttributeType{"equation": AttributeString}})
	register(&Schema{Op: "QuantizeLinear", MinInputs: 2, MaxInputs: 3, MinOutputs: 1, MaxOutputs: 1})
	register(&Schema{Op: "DequantizeLinear", MinInputs: 2, MaxInputs: 3, MinOutputs: 1, MaxOutputs: 1})
	register(&Schema{Op: "If", MinInputs: 1, MaxInputs: 1, MinOutputs: 1, MaxOutputs: Variadic,
		Required: []string{"then_branch", "else_branch"},
		Attrs:    map[string]AttributeType{"then_branch": AttributeGraph, "else_branch": AttributeGraph}})
	register(&Schema{Op: "Loop", MinInputs: 2, MaxInputs: Variadic, MinOutputs: 1, MaxOutputs: Variadic,
		Required: []string{"body"}, Attrs: map[string]AttributeType{"body": AttributeGraph}})
	for _, op := range []string{"LSTM", "GRU", "RNN"} {
		register(&Schema{Op: op, MinInputs: 3, MaxInputs: 8, MinOutputs: 0, MaxOutputs: 3,
			Attrs: map[string]AttributeType{"hidden_size": AttributeInt, "direction": AttributeString}})
	}
	register(&Schema{Op: "Constant", MinInputs: 0, MaxInputs: 0, MinOutputs: 1, MaxOutputs: 1})
	register(&Schema{Op: "ConstantOfShape", MinInputs: 1, MaxInputs: 1, MinOutputs: 1, MaxOutputs: 1, IndexInputs: []int{0},
		Attrs: map[string]AttributeType{"value": AttributeTensor}})
}

// Lookup returns the registered schema for a default-domain operator.
func Lookup(op string) (*Schema, bool) {
	s, ok := schemas[op]
	return s, ok
}

// Operators returns the registered operator names, sorted.
func Operators() []string {
	out := make([]string, 0, len(schemas))
	for op := range schemas {
		out = append(out, op)
	}
	slices.Sort(out)
	return out
}

// CheckNode validates n in isolation against its schema. elemTypes maps
// value names to their element type where known; unknown types are not
// checked. Operators outside the default domain are accepted unchecked.
// All violations are returned joined.
func CheckNode(n *NodeProto, elemTypes map[string]tensor.DType) error {
	if !isDefaultDomain(n.Domain) {
		return nil
	}
	s, ok := schemas[n.OpType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOperator, n.OpType)
	}

	var errs []error
	if !inRange(len(n.Inputs), s.MinInputs, s.MaxInputs) {
		errs = append(errs, fmt.Errorf("%w: %s takes %s, got %d", ErrInputArity, s.Op, arity(s.MinInputs, s.MaxInputs), len(n.Inputs)))
	}
	if !inRange(len(n.Outputs), s.MinOutputs, s.MaxOutputs) {
		errs = append(errs, fmt.Errorf("%w: %s produces %s, got %d", ErrOutputArity, s.Op, arity(s.MinOutputs, s.MaxOutputs), len(n.Outputs)))
	}
	for _, name := range s.Required {
		if n.Attribute(name) == nil {
			errs = append(errs, fmt.Errorf("%w: %q", ErrMissingAttr, name))
		}
	}
	for _, a := range n.Attributes {
		if want, ok := s.Attrs[a.Name]; ok && a.Type != want {
			errs = append(errs, fmt.Errorf("%w: %q is %s, want %s", ErrAttrType, a.Name, a.Type, want))
		}
	}

	typeOf := func(i int) tensor.DType {
		if i >= len(n.Inputs) || n.Inputs[i] == "" {
			return tensor.Undefined
		}
		return elemTypes[n.Inputs[i]]
	}
	for _, i := range s.IndexInputs {
		if dt := typeOf(i); dt.Known() && dt != tensor.Int64 && dt != tensor.Int32 {
			errs = append(errs, fmt.Errorf("%w: input %d is %s", ErrIndexInputDType, i, dt))
		}
	}
	if s.SameType {
		var first tensor.DType
		for i := range n.Inputs {
			dt := typeOf(i)
			if !dt.Known() {
				continue
			}
			if first == tensor.Undefined {
				first = dt
			} else if dt != first {
				errs = append(errs, fmt.Errorf("%w: %s and %s", ErrTypeMismatch, first, dt))
				break
			}
		}
	}
	return errors.Join(errs...)
}

func inRange(n, lo, hi int) bool {
	return n >= lo && (hi == Variadic || n <= hi)
}

func arity(lo, hi int) string {
	switch {
	case hi == Variadic:
		return fmt.Sprintf("at least %d", lo)
	case lo == hi:
		return fmt.Sprintf("%d", lo)
	default:
		return fmt.Sprintf("%d to %d", lo, hi)
	}
}
