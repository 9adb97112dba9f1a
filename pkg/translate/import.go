package translate

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/onnxgraph/pkg/dataflow"
	oerrors "github.com/matzehuels/onnxgraph/pkg/errors"
	"github.com/matzehuels/onnxgraph/pkg/nodegraph"
	"github.com/matzehuels/onnxgraph/pkg/tensor"
	"github.com/matzehuels/onnxgraph/pkg/undo"
)

// Attribute keys of a canonical constant operator.
const (
	AttrDType  = "dtype"
	AttrValues = "values"
)

// ImportOptions configures [Import].
type ImportOptions struct {
	// Recorder receives undoable edits of the new graph. Nil discards them.
	Recorder undo.Recorder
	// Record pushes the import itself as one undoable group.
	Record bool
	// Logger receives debug output. Nil discards it.
	Logger *log.Logger
}

func discardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// Import builds a visual graph from src.
func Import(src *dataflow.Graph, opts ImportOptions) (*nodegraph.Graph, error) {
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	if err := validate(src); err != nil {
		return nil, err
	}
	consts, err := canonicalConstants(src)
	if err != nil {
		return nil, err
	}

	g := nodegraph.New(opts.Recorder)
	if opts.Record {
		g.BeginGroup("Import Model")
		defer g.EndGroup()
	}
	g.Name = src.Name
	g.Opset = src.Opset
	g.DocString = src.DocString
	for _, d := range src.ImportDomains {
		g.ImportDomains = append(g.ImportDomains, nodegraph.Domain{Domain: d.Domain, Version: d.Version})
	}
	g.ProducerName = src.ProducerName
	g.ProducerVersion = src.ProducerVersion
	g.IRVersion = src.IRVersion
	g.ModelVersion = src.ModelVersion

	b := &builder{g: g, record: opts.Record, inputs: map[string]*nodegraph.Vertex{}, outputs: map[string]*nodegraph.Vertex{}}
	if err := b.addBoundary(src); err != nil {
		return nil, err
	}
	if err := b.addOperators(src, consts); err != nil {
		return nil, err
	}
	if err := b.wire(src); err != nil {
		return nil, err
	}
	if err := g.LockAll(opts.Record); err != nil {
		return nil, err
	}

	opts.Logger.Debug("imported graph",
		"name", g.Name,
		"vertices", g.Len(),
		"edges", len(g.Edges()))
	return g, nil
}

// validate rejects sources that cannot be wired consistently.
func validate(src *dataflow.Graph) error {
	if src == nil {
		return oerrors.New(oerrors.ErrCodeMalformedModel, "nil graph")
	}
	if _, err := src.Tensors(); err != nil {
		return oerrors.Wrap(oerrors.ErrCodeMalformedModel, err, "graph %q", src.Name)
	}
	for i, t := range src.Inputs {
		if t.IsEmpty() {
			return oerrors.New(oerrors.ErrCodeMalformedModel, "graph input %d has no name", i)
		}
	}
	for i, t := range src.Outputs {
		if t.IsEmpty() {
			return oerrors.New(oerrors.ErrCodeMalformedModel, "graph output %d has no name", i)
		}
	}
	for i, n := range src.Nodes {
		if n == nil || n.Op == "" {
			return oerrors.New(oerrors.ErrCodeMalformedModel, "node %d has no operator type", i)
		}
		for _, t := range append(append([]*dataflow.Tensor{}, n.Inputs...), n.Outputs...) {
			if t.IsConstant() {
				if err := t.Ref().Validate(); err != nil {
					return fmt.Errorf("node %q: %w", n.Name, err)
				}
			}
		}
	}

	declared := make(map[string]bool, len(src.Inputs))
	for _, t := range src.Inputs {
		declared[t.Name] = true
	}
	for name, producers := range src.Producers() {
		if len(producers) > 1 {
			return oerrors.New(oerrors.ErrCodeTopology,
				"tensor %q has %d producers (%s and %s)", name, len(producers),
				src.Nodes[producers[0]].Name, src.Nodes[producers[1]].Name)
		}
		if declared[name] {
			return oerrors.New(oerrors.ErrCodeTopology,
				"tensor %q is both a graph input and written by %s", name, src.Nodes[producers[0]].Name)
		}
	}
	return nil
}

// canonicalConstants computes the {dtype, values} attributes of every
// constant operator, keyed by node index.
func canonicalConstants(src *dataflow.Graph) (map[int]*tensor.Attributes, error) {
	out := make(map[int]*tensor.Attributes)
	for i, n := range src.Nodes {
		if !nodegraph.IsConstantOp(n.Op) {
			continue
		}
		attrs, err := CanonicalConstantAttrs(n.Op, n.Attrs)
		if err != nil {
			return nil, oerrors.Wrap(oerrors.ErrCodeMalformedModel, err, "node %q", n.Name)
		}
		out[i] = attrs
	}
	return out, nil
}

// ErrConstantValue is returned for constant operators whose value cannot be
// canonicalized.
var ErrConstantValue = errors.New("constant operator has no usable value")

// CanonicalConstantAttrs collapses the value attribute of a constant
// operator into {dtype: name, values: payload}. One-dimensional values
// become a list, scalars stay scalars and higher ranks keep their shape in
// a tensor payload. ConstantOfShape without a value defaults to float32 0.
func CanonicalConstantAttrs(op string, attrs *tensor.Attributes) (*tensor.Attributes, error) {
	dtype, shape, values, err := constantValue(op, attrs)
	if err != nil {
		return nil, err
	}
	out := tensor.NewAttributes()
	out.Set(AttrDType, tensor.StringAttr(dtype.String()))
	switch len(shape) {
	case 0:
		if dtype.IsFloat() {
			out.Set(AttrValues, tensor.FloatAttr(values.AsFloats()[0]))
		} else {
			out.Set(AttrValues, tensor.IntAttr(values.AsInts()[0]))
		}
	case 1:
		if dtype.IsFloat() {
			out.Set(AttrValues, tensor.FloatsAttr(values.AsFloats()...))
		} else {
			out.Set(AttrValues, tensor.IntsAttr(values.AsInts()...))
		}
	default:
		out.Set(AttrValues, tensor.TensorAttr(dtype, shape, values))
	}
	return out, nil
}

func constantValue(op string, attrs *tensor.Attributes) (tensor.DType, []int64, *tensor.Values, error) {
	if v, ok := attrs.Get("value"); ok {
		if v.Kind != tensor.AttrTensor || v.Tensor == nil {
			return 0, nil, nil, fmt.Errorf("%w: value is %s", ErrConstantValue, v.Kind)
		}
		if !v.Tensor.DType.Numeric() {
			return 0, nil, nil, fmt.Errorf("%w: dtype %s", ErrConstantValue, v.Tensor.DType)
		}
		if int64(v.Tensor.Values.Len()) != v.Tensor.Size() {
			return 0, nil, nil, fmt.Errorf("%w: %d values for shape %v", ErrConstantValue, v.Tensor.Values.Len(), v.Tensor.Shape)
		}
		return v.Tensor.DType, v.Tensor.Shape, v.Tensor.Values.Convert(v.Tensor.DType), nil
	}
	if v, ok := attrs.Get("value_float"); ok && v.Kind == tensor.AttrFloat {
		return tensor.Float32, nil, tensor.FloatValues(v.Float), nil
	}
	if v, ok := attrs.Get("value_floats"); ok && v.Kind == tensor.AttrFloats && len(v.Floats) > 0 {
		return tensor.Float32, []int64{int64(len(v.Floats))}, tensor.FloatValues(v.Floats...), nil
	}
	if v, ok := attrs.Get("value_int"); ok && v.Kind == tensor.AttrInt {
		return tensor.Int64, nil, tensor.IntValues(v.Int), nil
	}
	if v, ok := attrs.Get("value_ints"); ok && v.Kind == tensor.AttrInts && len(v.Ints) > 0 {
		return tensor.Int64, []int64{int64(len(v.Ints))}, tensor.IntValues(v.Ints...), nil
	}
	if op == "ConstantOfShape" {
		return tensor.Float32, []int64{1}, tensor.FloatValues(0), nil
	}
	return 0, nil, nil, ErrConstantValue
}

// classify turns a dataflow tensor into the port reference stored on an
// operator vertex.
func classify(t *dataflow.Tensor) *tensor.TensorRef {
	switch {
	case t.IsEmpty():
		return &tensor.TensorRef{}
	case t.IsConstant():
		return &tensor.TensorRef{Name: t.Name, DType: t.DType, Shape: t.Shape.Clone(), Values: t.Values.Clone()}
	case !t.DType.Known():
		return &tensor.TensorRef{Name: t.Name}
	default:
		return &tensor.TensorRef{Name: t.Name, DType: t.DType, Shape: t.Shape.Clone()}
	}
}

type builder struct {
	g       *nodegraph.Graph
	record  bool
	inputs  map[string]*nodegraph.Vertex
	outputs map[string]*nodegraph.Vertex
	ops     []*nodegraph.Vertex
}

func (b *builder) addBoundary(src *dataflow.Graph) error {
	for _, t := range src.Inputs {
		v, err := b.g.AddVertex(nodegraph.KindInput, nodegraph.Spec{
			Tensor: tensor.NewVariable(t.Name, t.DType, t.Shape),
		}, b.record)
		if err != nil {
			return oerrors.Wrap(oerrors.ErrCodeMalformedModel, err, "graph input %q", t.Name)
		}
		b.inputs[t.Name] = v
	}
	for _, t := range src.Outputs {
		v, err := b.g.AddVertex(nodegraph.KindOutput, nodegraph.Spec{
			Tensor: tensor.NewVariable(t.Name, t.DType, t.Shape),
		}, b.record)
		if err != nil {
			return oerrors.Wrap(oerrors.ErrCodeMalformedModel, err, "graph output %q", t.Name)
		}
		b.outputs[t.Name] = v
	}
	return nil
}

func (b *builder) addOperators(src *dataflow.Graph, consts map[int]*tensor.Attributes) error {
	for i, n := range src.Nodes {
		spec := nodegraph.Spec{Op: n.Op, OpName: n.Name, Domain: n.Domain}
		for _, t := range n.Inputs {
			spec.Inputs = append(spec.Inputs, classify(t))
		}
		for _, t := range n.Outputs {
			spec.Outputs = append(spec.Outputs, classify(t))
		}
		if attrs, ok := consts[i]; ok {
			spec.Attrs = attrs
		} else {
			spec.Attrs = n.Attrs.Clone()
		}
		v, err := b.g.AddVertex(nodegraph.KindOperator, spec, b.record)
		if err != nil {
			return oerrors.Wrap(oerrors.ErrCodeMalformedModel, err, "node %q", n.Name)
		}
		if v.IsConstant() {
			v.SetPortDeletionAllowed(true)
			err := b.g.DeleteInputPort(v, 0)
			v.SetPortDeletionAllowed(false)
			if err != nil {
				return oerrors.Wrap(oerrors.ErrCodeInternal, err, "node %q", n.Name)
			}
		}
		b.ops = append(b.ops, v)
	}
	return nil
}

// wire connects port 0 to port 0 for every dependency, visiting tensor
// names in first-use order.
func (b *builder) wire(src *dataflow.Graph) error {
	consumers := src.Consumers()
	producers := src.Producers()

	connect := func(from, to *nodegraph.Vertex, name string) error {
		src, dst := from.OutputPort(0), to.InputPort(0)
		if src == nil || dst == nil {
			// Constant operators have no input port to wire into.
			return nil
		}
		if err := b.g.Connect(src, dst, b.record); err != nil {
			return oerrors.Wrap(oerrors.ErrCodeTopology, err, "tensor %q: %s -> %s", name, from.Name(), to.Name())
		}
		return nil
	}

	for _, name := range tensorOrder(src) {
		if in, ok := b.inputs[name]; ok {
			for _, c := range consumers[name] {
				if err := connect(in, b.ops[c], name); err != nil {
					return err
				}
			}
		}
		if out, ok := b.outputs[name]; ok {
			for _, p := range producers[name] {
				if err := connect(b.ops[p], out, name); err != nil {
					return err
				}
			}
			if in, ok := b.inputs[name]; ok {
				if err := connect(in, out, name); err != nil {
					return err
				}
			}
		}
		for _, p := range producers[name] {
			for _, c := range consumers[name] {
				if err := connect(b.ops[p], b.ops[c], name); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// tensorOrder lists tensor names by first appearance: graph inputs, graph
// outputs, then node inputs and outputs in node order.
func tensorOrder(src *dataflow.Graph) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(t *dataflow.Tensor) {
		if !t.IsEmpty() && !seen[t.Name] {
			seen[t.Name] = true
			out = append(out, t.Name)
		}
	}
	for _, t := range src.Inputs {
		add(t)
	}
	for _, t := range src.Outputs {
		add(t)
	}
	for _, n := range src.Nodes {
		for _, t := range n.Inputs {
			add(t)
		}
		for _, t := range n.Outputs {
			add(t)
		}
	}
	return out
}
