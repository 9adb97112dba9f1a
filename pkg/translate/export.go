package translate

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/onnxgraph/pkg/dataflow"
	oerrors "github.com/matzehuels/onnxgraph/pkg/errors"
	"github.com/matzehuels/onnxgraph/pkg/nodegraph"
	"github.com/matzehuels/onnxgraph/pkg/onnx"
	"github.com/matzehuels/onnxgraph/pkg/tensor"
)

// Warning is a per-node schema violation found during export.
type Warning struct {
	Node string
	Op   string
	Err  error
}

func (w Warning) Error() string {
	return fmt.Sprintf("node %q (%s): %v", w.Node, w.Op, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }

// Export rebuilds a dataflow graph from g. Schema violations of individual
// operators are returned as warnings. A constant tensor whose values do not
// fit its shape aborts the export with an EXPORT_SHAPE_MISMATCH error naming
// the node.
func Export(g *nodegraph.Graph) (*dataflow.Graph, []Warning, error) {
	e := &exporter{tensors: make(map[string]*dataflow.Tensor)}
	out := &dataflow.Graph{
		Name:            g.Name,
		DocString:       g.DocString,
		Opset:           g.Opset,
		ProducerName:    g.ProducerName,
		ProducerVersion: g.ProducerVersion,
		IRVersion:       g.IRVersion,
		ModelVersion:    g.ModelVersion,
	}
	for _, d := range g.ImportDomains {
		out.ImportDomains = append(out.ImportDomains, dataflow.Domain{Domain: d.Domain, Version: d.Version})
	}

	for _, v := range g.VerticesOf(nodegraph.KindInput) {
		t, err := e.resolve(v.Tensor())
		if err != nil {
			return nil, nil, &oerrors.NodeError{Node: v.Name(), Op: "Input", Err: err}
		}
		out.Inputs = append(out.Inputs, t)
	}
	for _, v := range g.VerticesOf(nodegraph.KindOutput) {
		t, err := e.resolve(v.Tensor())
		if err != nil {
			return nil, nil, &oerrors.NodeError{Node: v.Name(), Op: "Output", Err: err}
		}
		out.Outputs = append(out.Outputs, t)
	}

	for _, v := range operatorOrder(g) {
		var (
			n   *dataflow.Node
			err error
		)
		if v.IsConstant() {
			n, err = e.constant(v)
		} else {
			n, err = e.operator(v)
		}
		if err != nil {
			return nil, nil, &oerrors.NodeError{Node: nodeName(v), Op: v.Op(), Err: err}
		}
		out.Nodes = append(out.Nodes, n)
	}
	return out, e.warnings, nil
}

// exporter resolves tensor references for one export call. Each tensor
// name maps to exactly one object.
type exporter struct {
	tensors  map[string]*dataflow.Tensor
	warnings []Warning
}

func (e *exporter) resolve(ref *tensor.TensorRef) (*dataflow.Tensor, error) {
	if ref == nil || ref.Name == "" {
		return &dataflow.Tensor{}, nil
	}
	if t, ok := e.tensors[ref.Name]; ok {
		return t, nil
	}
	t := &dataflow.Tensor{Name: ref.Name}
	switch {
	case !ref.DType.Known():
	case ref.Values == nil:
		t.DType, t.Shape = ref.DType, ref.Shape.Clone()
	default:
		c, err := tensor.NewConstant(ref.Name, ref.DType, ref.Shape, ref.Values)
		if err != nil {
			return nil, oerrors.Wrap(oerrors.ErrCodeExportShapeMismatch, err, "tensor %q", ref.Name)
		}
		t.DType, t.Shape, t.Values = c.DType, c.Shape, c.Values
	}
	e.tensors[ref.Name] = t
	return t, nil
}

func (e *exporter) resolveAll(refs []*tensor.TensorRef) ([]*dataflow.Tensor, error) {
	out := make([]*dataflow.Tensor, 0, len(refs))
	for _, ref := range refs {
		t, err := e.resolve(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (e *exporter) operator(v *nodegraph.Vertex) (*dataflow.Node, error) {
	inputs, err := e.resolveAll(v.Inputs())
	if err != nil {
		return nil, err
	}
	outputs, err := e.resolveAll(v.Outputs())
	if err != nil {
		return nil, err
	}
	n := &dataflow.Node{
		Op:      v.Op(),
		Name:    nodeName(v),
		Domain:  v.Domain(),
		Inputs:  inputs,
		Outputs: outputs,
		Attrs:   v.Attributes().Clone(),
	}
	e.check(n)
	return n, nil
}

// check validates n as a single-operator graph.
func (e *exporter) check(n *dataflow.Node) {
	warn := func(err error) {
		e.warnings = append(e.warnings, Warning{
			Node: n.Name,
			Op:   n.Op,
			Err:  oerrors.Wrap(oerrors.ErrCodeSchemaValidation, err, "schema check"),
		})
	}
	np, err := dataflow.NodeProto(n)
	if err != nil {
		warn(err)
		return
	}
	types := make(map[string]tensor.DType, len(n.Inputs))
	for _, t := range n.Inputs {
		if !t.IsEmpty() {
			types[t.Name] = t.DType
		}
	}
	if err := onnx.CheckNode(np, types); err != nil {
		warn(err)
	}
}

// constant synthesizes a constant operator from its {dtype, values}
// attributes.
func (e *exporter) constant(v *nodegraph.Vertex) (*dataflow.Node, error) {
	dtype, shape, values, err := ConstantPayload(v.Attributes())
	if err != nil {
		return nil, err
	}
	if len(v.Outputs()) == 0 {
		return nil, oerrors.New(oerrors.ErrCodeInvalidAttribute, "constant operator has no output tensor")
	}
	out, err := e.resolve(v.Outputs()[0])
	if err != nil {
		return nil, err
	}
	if out.IsEmpty() {
		return nil, oerrors.New(oerrors.ErrCodeInvalidAttribute, "constant operator output has no name")
	}

	attrs := tensor.NewAttributes()
	attrs.Set("value", tensor.TensorAttr(dtype, shape, values))
	n := &dataflow.Node{
		Op:      v.Op(),
		Name:    nodeName(v),
		Domain:  v.Domain(),
		Outputs: []*dataflow.Tensor{out},
		Attrs:   attrs,
	}
	if v.Op() == "ConstantOfShape" {
		// The shape operand is data, not a connection, so it survives the
		// removed input port.
		if n.Inputs, err = e.resolveAll(v.Inputs()); err != nil {
			return nil, err
		}
		return n, nil
	}
	if !out.DType.Known() {
		out.DType, out.Shape = dtype, tensor.ShapeOf(shape...)
	}
	return n, nil
}

// ConstantPayload reads the {dtype, values} attributes of a constant
// operator. A list yields shape [len], a tensor payload keeps its shape and
// a scalar is wrapped into shape [1].
func ConstantPayload(attrs *tensor.Attributes) (tensor.DType, []int64, *tensor.Values, error) {
	da, ok := attrs.Get(AttrDType)
	if !ok || da.Kind != tensor.AttrString {
		return 0, nil, nil, oerrors.New(oerrors.ErrCodeInvalidAttribute, "constant operator needs a string %q attribute", AttrDType)
	}
	dtype, err := tensor.ParseDType(da.String)
	if err != nil {
		return 0, nil, nil, oerrors.Wrap(oerrors.ErrCodeInvalidDType, err, "constant dtype")
	}
	va, ok := attrs.Get(AttrValues)
	if !ok {
		return 0, nil, nil, oerrors.New(oerrors.ErrCodeInvalidAttribute, "constant operator needs a %q attribute", AttrValues)
	}

	var (
		shape  []int64
		values *tensor.Values
	)
	switch va.Kind {
	case tensor.AttrFloats:
		shape, values = []int64{int64(len(va.Floats))}, tensor.FloatValues(va.Floats...)
	case tensor.AttrInts:
		shape, values = []int64{int64(len(va.Ints))}, tensor.IntValues(va.Ints...)
	case tensor.AttrFloat:
		shape, values = []int64{1}, tensor.FloatValues(va.Float)
	case tensor.AttrInt:
		shape, values = []int64{1}, tensor.IntValues(va.Int)
	case tensor.AttrBool:
		var b int64
		if va.Bool {
			b = 1
		}
		shape, values = []int64{1}, tensor.IntValues(b)
	case tensor.AttrTensor:
		if va.Tensor == nil {
			return 0, nil, nil, oerrors.New(oerrors.ErrCodeInvalidAttribute, "empty tensor payload")
		}
		shape, values = slices.Clone(va.Tensor.Shape), va.Tensor.Values
	default:
		return 0, nil, nil, oerrors.New(oerrors.ErrCodeInvalidAttribute, "constant values of kind %s", va.Kind)
	}

	ref, err := tensor.NewConstant("value", dtype, tensor.ShapeOf(shape...), values)
	if err != nil {
		return 0, nil, nil, oerrors.Wrap(oerrors.ErrCodeExportShapeMismatch, err, "constant payload")
	}
	return dtype, shape, ref.Values, nil
}

func nodeName(v *nodegraph.Vertex) string {
	if v.OpName() != "" {
		return v.OpName()
	}
	return v.Name()
}

// operatorOrder sorts operator vertices so that every tensor is written
// before it is read, keeping creation order among independent vertices.
// Vertices on a cycle are appended in creation order.
func operatorOrder(g *nodegraph.Graph) []*nodegraph.Vertex {
	ops := g.VerticesOf(nodegraph.KindOperator)
	producer := make(map[string]int)
	for i, v := range ops {
		for _, t := range v.Outputs() {
			if t.Name != "" {
				if _, ok := producer[t.Name]; !ok {
					producer[t.Name] = i
				}
			}
		}
	}

	indeg := make([]int, len(ops))
	succ := make([][]int, len(ops))
	for i, v := range ops {
		seen := make(map[int]bool)
		for _, t := range v.Inputs() {
			p, ok := producer[t.Name]
			if !ok || t.Name == "" || p == i || seen[p] {
				continue
			}
			seen[p] = true
			succ[p] = append(succ[p], i)
			indeg[i]++
		}
	}

	var ready, order []int
	for i := range ops {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}
	done := make([]bool, len(ops))
	for len(ready) > 0 {
		slices.SortFunc(ready, cmp.Compare[int])
		i := ready[0]
		ready = ready[1:]
		done[i] = true
		order = append(order, i)
		for _, s := range succ[i] {
			if indeg[s]--; indeg[s] == 0 {
				ready = append(ready, s)
			}
		}
	}
	for i := range ops {
		if !done[i] {
			order = append(order, i)
		}
	}

	out := make([]*nodegraph.Vertex, len(order))
	for k, i := range order {
		out[k] = ops[i]
	}
	return out
}

// Outcome discriminates export results.
type Outcome int

const (
	Success Outcome = iota
	Failure
)

func (o Outcome) String() string {
	if o == Success {
		return "success"
	}
	return "failure"
}

// DefaultIRVersion is stamped when neither the options nor the graph carry
// an IR version.
const DefaultIRVersion = 8

// ExportOptions configures [ToModel] and [Save]. Zero values keep the
// metadata the graph was imported with.
type ExportOptions struct {
	ProducerName    string
	ProducerVersion string
	IRVersion       int64
	ModelVersion    int64
	// Logger receives failures and warnings. Nil discards them.
	Logger *log.Logger
}

// Result is the outcome of [ToModel]. Model is set only on Success and
// Reason only on Failure.
type Result struct {
	Outcome  Outcome
	Model    *onnx.ModelProto
	Reason   error
	Warnings []Warning
}

// ToModel exports g into a model, stamps it and runs the structural
// checker. It never panics and never returns an error: every failure is
// reported through the result.
func ToModel(g *nodegraph.Graph, opts ExportOptions) (res Result) {
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	var name string
	if g != nil {
		name = g.Name
	}
	fail := func(err error) Result {
		if oerrors.GetCode(err) == "" {
			err = oerrors.Wrap(oerrors.ErrCodeExportFailed, err, "export %q", name)
		}
		opts.Logger.Error("export failed", "graph", name, "err", err)
		return Result{Outcome: Failure, Reason: err, Warnings: res.Warnings}
	}
	defer func() {
		if r := recover(); r != nil {
			res = fail(fmt.Errorf("panic: %v", r))
		}
	}()
	if g == nil {
		return fail(errors.New("nil graph"))
	}

	df, warnings, err := Export(g)
	res.Warnings = warnings
	for _, w := range warnings {
		opts.Logger.Warn("schema validation", "node", w.Node, "op", w.Op, "err", w.Err)
	}
	if err != nil {
		return fail(err)
	}

	if opts.ProducerName != "" {
		df.ProducerName = opts.ProducerName
	}
	if opts.ProducerVersion != "" {
		df.ProducerVersion = opts.ProducerVersion
	}
	if opts.IRVersion != 0 {
		df.IRVersion = opts.IRVersion
	}
	if df.IRVersion == 0 {
		df.IRVersion = DefaultIRVersion
	}
	if opts.ModelVersion != 0 {
		df.ModelVersion = opts.ModelVersion
	}

	m, err := dataflow.ToModel(df)
	if err != nil {
		return fail(err)
	}
	if err := onnx.Check(m); err != nil {
		return fail(oerrors.Wrap(oerrors.ErrCodeExportFailed, err, "check %q", name))
	}
	opts.Logger.Debug("exported graph",
		"name", g.Name,
		"nodes", len(df.Nodes),
		"warnings", len(warnings))
	return Result{Outcome: Success, Model: m, Warnings: warnings}
}

// ErrExport is returned by [Save] when the export outcome is Failure; the
// failure reason is wrapped.
var ErrExport = errors.New("export failed")

// Save exports g and writes the model to path. Nothing is written unless
// the export succeeds.
func Save(g *nodegraph.Graph, path string, opts ExportOptions) (Result, error) {
	res := ToModel(g, opts)
	if res.Outcome != Success {
		return res, fmt.Errorf("%w: %w", ErrExport, res.Reason)
	}
	if err := onnx.WriteFile(path, res.Model); err != nil {
		return res, err
	}
	return res, nil
}
