package translate

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/onnxgraph/pkg/dataflow"
	oerrors "github.com/matzehuels/onnxgraph/pkg/errors"
	"github.com/matzehuels/onnxgraph/pkg/nodegraph"
	"github.com/matzehuels/onnxgraph/pkg/onnx"
	"github.com/matzehuels/onnxgraph/pkg/tensor"
)

func mustExport(t *testing.T, g *nodegraph.Graph) (*dataflow.Graph, []Warning) {
	t.Helper()
	df, warnings, err := Export(g)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	return df, warnings
}

func TestExportRelu(t *testing.T) {
	df, warnings := mustExport(t, mustImport(t, reluGraph()))
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if df.Name != "relu" || df.Opset != 13 || df.IRVersion != 8 {
		t.Errorf("metadata = %q opset %d ir %d", df.Name, df.Opset, df.IRVersion)
	}
	if len(df.Nodes) != 1 || df.Nodes[0].Op != "Relu" || df.Nodes[0].Name != "relu0" {
		t.Fatalf("nodes = %v", df.Nodes)
	}
	n := df.Nodes[0]
	if n.Inputs[0] != df.Inputs[0] || n.Outputs[0] != df.Outputs[0] {
		t.Error("boundary tensors are not shared with the node")
	}
	if got := df.Inputs[0].Shape.String(); got != "[1, 3]" || df.Inputs[0].DType != tensor.Float32 {
		t.Errorf("input = %s", df.Inputs[0])
	}
}

func TestExportConstant(t *testing.T) {
	df, _ := mustExport(t, mustImport(t, constGraph()))
	if len(df.Nodes) != 2 {
		t.Fatalf("nodes = %d", len(df.Nodes))
	}
	k, add := df.Nodes[0], df.Nodes[1]
	if k.Op != "Constant" || len(k.Inputs) != 0 {
		t.Fatalf("constant node = %s with %d inputs", k.Op, len(k.Inputs))
	}
	v, ok := k.Attrs.Get("value")
	if !ok || v.Kind != tensor.AttrTensor {
		t.Fatalf("value attribute = %v", v)
	}
	if v.Tensor.DType != tensor.Int64 || !slices.Equal(v.Tensor.Shape, []int64{3}) || !slices.Equal(v.Tensor.Values.Ints, []int64{1, 2, 3}) {
		t.Errorf("value = %s", v.Format())
	}
	if k.Outputs[0] != add.Inputs[1] {
		t.Error("constant output is not the tensor read by its consumer")
	}
	if k.Outputs[0].IsConstant() {
		t.Error("constant node output must stay a variable")
	}
}

func TestExportScalarConstant(t *testing.T) {
	g := nodegraph.New(nil)
	attrs := tensor.NewAttributes()
	attrs.Set(AttrDType, tensor.StringAttr("float32"))
	attrs.Set(AttrValues, tensor.FloatAttr(0.5))
	mustAddVertex(t, g, nodegraph.KindOperator, nodegraph.Spec{
		Op: "Constant", OpName: "half", Attrs: attrs,
		Outputs: []*tensor.TensorRef{{Name: "h"}},
	})

	df, _ := mustExport(t, g)
	k := df.Nodes[0]
	v, _ := k.Attrs.Get("value")
	if !slices.Equal(v.Tensor.Shape, []int64{1}) || !slices.Equal(v.Tensor.Values.Floats, []float64{0.5}) {
		t.Errorf("value = %s", v.Format())
	}
	out := k.Outputs[0]
	if out.DType != tensor.Float32 || out.Shape.String() != "[1]" {
		t.Errorf("output = %s", out)
	}
}

func TestExportSharesTensorsByName(t *testing.T) {
	x := variable("x", tensor.Float32, 4)
	a := variable("a", tensor.Float32, 4)
	b := variable("b", tensor.Float32, 4)
	src := &dataflow.Graph{
		Opset:   13,
		Inputs:  []*dataflow.Tensor{x},
		Outputs: []*dataflow.Tensor{a, b},
		Nodes: []*dataflow.Node{
			{Op: "Relu", Name: "r", Inputs: []*dataflow.Tensor{x}, Outputs: []*dataflow.Tensor{a}},
			{Op: "Sigmoid", Name: "s", Inputs: []*dataflow.Tensor{x}, Outputs: []*dataflow.Tensor{b}},
		},
	}
	df, _ := mustExport(t, mustImport(t, src))
	tensors, err := df.Tensors()
	if err != nil {
		t.Fatalf("Tensors: %v", err)
	}
	if len(tensors) != 3 {
		t.Errorf("tensors = %d", len(tensors))
	}
	if df.Nodes[0].Inputs[0] != df.Nodes[1].Inputs[0] {
		t.Error("fan-out input not shared")
	}
}

func TestExportRoundTrip(t *testing.T) {
	for name, src := range map[string]*dataflow.Graph{
		"relu":     reluGraph(),
		"constant": constGraph(),
	} {
		t.Run(name, func(t *testing.T) {
			df, _ := mustExport(t, mustImport(t, src))
			if len(df.Nodes) != len(src.Nodes) {
				t.Fatalf("nodes = %d, want %d", len(df.Nodes), len(src.Nodes))
			}
			for i, n := range df.Nodes {
				want := src.Nodes[i]
				if n.Op != want.Op || n.Name != want.Name {
					t.Errorf("node %d = %s %q, want %s %q", i, n.Op, n.Name, want.Op, want.Name)
				}
				if !slices.EqualFunc(n.Inputs, want.Inputs, sameTensor) || !slices.EqualFunc(n.Outputs, want.Outputs, sameTensor) {
					t.Errorf("node %d tensors differ", i)
				}
			}
			if !slices.EqualFunc(df.Inputs, src.Inputs, sameTensor) || !slices.EqualFunc(df.Outputs, src.Outputs, sameTensor) {
				t.Error("boundary tensors differ")
			}
		})
	}
}

func sameTensor(a, b *dataflow.Tensor) bool {
	return a.Name == b.Name && a.DType == b.DType && a.Shape.Equal(b.Shape) && a.Values.Equal(b.Values)
}

func TestExportOrdersByDependency(t *testing.T) {
	g := nodegraph.New(nil)
	// Consumer created before its producer.
	mustAddVertex(t, g, nodegraph.KindOperator, nodegraph.Spec{
		Op: "Relu", OpName: "second",
		Inputs:  []*tensor.TensorRef{tensor.NewVariable("mid", tensor.Float32, tensor.ShapeOf(2))},
		Outputs: []*tensor.TensorRef{tensor.NewVariable("out", tensor.Float32, tensor.ShapeOf(2))},
	})
	mustAddVertex(t, g, nodegraph.KindOperator, nodegraph.Spec{
		Op: "Relu", OpName: "first",
		Inputs:  []*tensor.TensorRef{tensor.NewVariable("in", tensor.Float32, tensor.ShapeOf(2))},
		Outputs: []*tensor.TensorRef{tensor.NewVariable("mid", tensor.Float32, tensor.ShapeOf(2))},
	})
	df, _ := mustExport(t, g)
	if df.Nodes[0].Name != "first" || df.Nodes[1].Name != "second" {
		t.Errorf("order = %s, %s", df.Nodes[0].Name, df.Nodes[1].Name)
	}
}

func TestExportShapeMismatch(t *testing.T) {
	g := nodegraph.New(nil)
	mustAddVertex(t, g, nodegraph.KindOperator, nodegraph.Spec{
		Op: "Add", OpName: "bad",
		Inputs: []*tensor.TensorRef{
			tensor.NewVariable("x", tensor.Float32, tensor.ShapeOf(2, 2)),
			{Name: "w", DType: tensor.Float32, Shape: tensor.ShapeOf(2, 2), Values: tensor.FloatValues(1, 2, 3)},
		},
		Outputs: []*tensor.TensorRef{tensor.NewVariable("y", tensor.Float32, tensor.ShapeOf(2, 2))},
	})

	df, _, err := Export(g)
	if err == nil || df != nil {
		t.Fatalf("Export = %v, %v", df, err)
	}
	if !oerrors.Is(err, oerrors.ErrCodeExportShapeMismatch) {
		t.Errorf("err = %v, want EXPORT_SHAPE_MISMATCH", err)
	}
	var ne *oerrors.NodeError
	if !errors.As(err, &ne) || ne.Node != "bad" || ne.Op != "Add" {
		t.Errorf("err = %v, want node error for bad", err)
	}
}

func TestExportSchemaWarnings(t *testing.T) {
	g := nodegraph.New(nil)
	mustAddVertex(t, g, nodegraph.KindOperator, nodegraph.Spec{
		Op: "Relu", OpName: "two",
		Inputs: []*tensor.TensorRef{
			tensor.NewVariable("a", tensor.Float32, tensor.ShapeOf(1)),
			tensor.NewVariable("b", tensor.Float32, tensor.ShapeOf(1)),
		},
		Outputs: []*tensor.TensorRef{tensor.NewVariable("y", tensor.Float32, tensor.ShapeOf(1))},
	})
	mustAddVertex(t, g, nodegraph.KindOperator, nodegraph.Spec{
		Op: "Sigmoid", OpName: "fine",
		Inputs:  []*tensor.TensorRef{tensor.NewVariable("y", tensor.Float32, tensor.ShapeOf(1))},
		Outputs: []*tensor.TensorRef{tensor.NewVariable("z", tensor.Float32, tensor.ShapeOf(1))},
	})

	df, warnings := mustExport(t, g)
	if len(df.Nodes) != 2 {
		t.Errorf("nodes = %d, export must continue past warnings", len(df.Nodes))
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v", warnings)
	}
	w := warnings[0]
	if w.Node != "two" || !oerrors.Is(w.Err, oerrors.ErrCodeSchemaValidation) || !errors.Is(w, onnx.ErrInputArity) {
		t.Errorf("warning = %v", w)
	}
}

func TestExportDoesNotMutate(t *testing.T) {
	g := mustImport(t, constGraph())
	before := g.Data()
	if _, _, err := Export(g); err != nil {
		t.Fatal(err)
	}
	after := g.Data()
	if len(before.Operators) != len(after.Operators) {
		t.Fatal("operator count changed")
	}
	for i := range before.Operators {
		if !before.Operators[i].Attrs.Equal(after.Operators[i].Attrs) {
			t.Errorf("operator %d attributes changed", i)
		}
	}
	for _, v := range g.Vertices() {
		for _, p := range v.Ports() {
			if !p.Locked() {
				t.Errorf("port %s unlocked by export", p)
			}
		}
	}
}

func TestToModel(t *testing.T) {
	g := mustImport(t, reluGraph())
	res := ToModel(g, ExportOptions{ProducerName: "onnxgraph", ProducerVersion: "0.1.0", ModelVersion: 3})
	if res.Outcome != Success {
		t.Fatalf("outcome = %s: %v", res.Outcome, res.Reason)
	}
	m := res.Model
	if m.ProducerName != "onnxgraph" || m.ProducerVersion != "0.1.0" || m.ModelVersion != 3 || m.IRVersion != 8 {
		t.Errorf("stamp = %q %q %d %d", m.ProducerName, m.ProducerVersion, m.ModelVersion, m.IRVersion)
	}
	if m.Opset("") != 13 {
		t.Errorf("opset = %d", m.Opset(""))
	}

	back, err := dataflow.FromModel(m)
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Nodes) != 1 || back.Nodes[0].Op != "Relu" {
		t.Errorf("nodes = %v", back.Nodes)
	}
}

func TestToModelConstantRoundTrip(t *testing.T) {
	res := ToModel(mustImport(t, constGraph()), ExportOptions{})
	if res.Outcome != Success {
		t.Fatalf("outcome = %s: %v", res.Outcome, res.Reason)
	}
	if res.Model.IRVersion != DefaultIRVersion {
		t.Errorf("ir = %d", res.Model.IRVersion)
	}
	back, err := dataflow.FromModel(res.Model)
	if err != nil {
		t.Fatal(err)
	}
	g := mustImport(t, back)
	k := g.VerticesByOpName("k")[0]
	vals, _ := k.Attributes().Get(AttrValues)
	if !slices.Equal(vals.Ints, []int64{1, 2, 3}) {
		t.Errorf("values after round trip = %s", vals.Format())
	}
}

func TestToModelFailure(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T) *nodegraph.Graph
		code  oerrors.Code
	}{
		{
			name: "shape mismatch",
			build: func(t *testing.T) *nodegraph.Graph {
				g := nodegraph.New(nil)
				g.Opset = 13
				mustAddVertex(t, g, nodegraph.KindOperator, nodegraph.Spec{
					Op:      "Relu",
					Inputs:  []*tensor.TensorRef{{Name: "w", DType: tensor.Float32, Shape: tensor.ShapeOf(3), Values: tensor.FloatValues(1)}},
					Outputs: []*tensor.TensorRef{tensor.NewVariable("y", tensor.Float32, tensor.ShapeOf(3))},
				})
				return g
			},
			code: oerrors.ErrCodeExportShapeMismatch,
		},
		{
			name: "no opset",
			build: func(t *testing.T) *nodegraph.Graph {
				return mustImport(t, &dataflow.Graph{Inputs: []*dataflow.Tensor{variable("x", tensor.Float32, 1)}})
			},
			code: oerrors.ErrCodeExportFailed,
		},
		{
			name: "undefined value",
			build: func(t *testing.T) *nodegraph.Graph {
				g := nodegraph.New(nil)
				g.Opset = 13
				mustAddVertex(t, g, nodegraph.KindOperator, nodegraph.Spec{
					Op:      "Relu",
					Inputs:  []*tensor.TensorRef{tensor.NewVariable("ghost", tensor.Float32, tensor.ShapeOf(1))},
					Outputs: []*tensor.TensorRef{tensor.NewVariable("y", tensor.Float32, tensor.ShapeOf(1))},
				})
				return g
			},
			code: oerrors.ErrCodeExportFailed,
		},
		{
			name:  "nil graph",
			build: func(*testing.T) *nodegraph.Graph { return nil },
			code:  oerrors.ErrCodeExportFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ToModel(tt.build(t), ExportOptions{})
			if res.Outcome != Failure {
				t.Fatalf("outcome = %s", res.Outcome)
			}
			if res.Model != nil {
				t.Error("model set on failure")
			}
			if !oerrors.Is(res.Reason, tt.code) {
				t.Errorf("reason = %v, want %s", res.Reason, tt.code)
			}
		})
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "relu.onnx")
	res, err := Save(mustImport(t, reluGraph()), path, ExportOptions{ProducerName: "onnxgraph"})
	if err != nil || res.Outcome != Success {
		t.Fatalf("Save = %v, %v", res.Outcome, err)
	}
	m, err := onnx.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.ProducerName != "onnxgraph" || len(m.Graph.Nodes) != 1 {
		t.Errorf("saved model = %q with %d nodes", m.ProducerName, len(m.Graph.Nodes))
	}

	bad := filepath.Join(dir, "bad.onnx")
	empty := nodegraph.New(nil)
	if _, err := Save(empty, bad, ExportOptions{}); !errors.Is(err, ErrExport) {
		t.Errorf("err = %v, want ErrExport", err)
	}
	if _, err := os.Stat(bad); !os.IsNotExist(err) {
		t.Error("file written on failure")
	}
}

func mustAddVertex(t *testing.T, g *nodegraph.Graph, kind nodegraph.Kind, spec nodegraph.Spec) *nodegraph.Vertex {
	t.Helper()
	v, err := g.AddVertex(kind, spec, false)
	if err != nil {
		t.Fatalf("AddVertex: %v", err)
	}
	return v
}

func TestExportReimport(t *testing.T) {
	edgeNames := func(g *nodegraph.Graph) []string {
		var out []string
		for _, e := range g.Edges() {
			out = append(out, e.From.Name()+"."+e.FromPort.Name()+" -> "+e.To.Name()+"."+e.ToPort.Name())
		}
		return out
	}
	for name, src := range map[string]*dataflow.Graph{
		"relu":     reluGraph(),
		"constant": constGraph(),
	} {
		t.Run(name, func(t *testing.T) {
			g := mustImport(t, src)
			res := ToModel(g, ExportOptions{})
			if res.Outcome != Success {
				t.Fatalf("ToModel: %v", res.Reason)
			}
			m, err := onnx.Unmarshal(onnx.Marshal(res.Model))
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			df, err := dataflow.FromModel(m)
			if err != nil {
				t.Fatalf("FromModel: %v", err)
			}
			back := mustImport(t, df)

			if back.Len() != g.Len() {
				t.Errorf("vertices = %d, want %d", back.Len(), g.Len())
			}
			if got, want := edgeNames(back), edgeNames(g); !slices.Equal(got, want) {
				t.Errorf("edges = %v, want %v", got, want)
			}
		})
	}
}

func TestImportEmptyInitializer(t *testing.T) {
	roi, err := onnx.EncodeTensor("roi", tensor.Float32, []int64{0}, tensor.FloatValues())
	if err != nil {
		t.Fatal(err)
	}
	scales, err := onnx.EncodeTensor("scales", tensor.Float32, []int64{4}, tensor.FloatValues(1, 1, 2, 2))
	if err != nil {
		t.Fatal(err)
	}
	floatType := func(dims ...int64) *onnx.TypeProto {
		shape := &onnx.TensorShapeProto{}
		for _, d := range dims {
			shape.Dims = append(shape.Dims, &onnx.DimensionProto{DimValue: d, HasValue: true})
		}
		return &onnx.TypeProto{TensorType: &onnx.TensorTypeProto{ElemType: int32(tensor.Float32), Shape: shape}}
	}
	m := &onnx.ModelProto{
		IRVersion:   8,
		OpsetImport: []*onnx.OperatorSetID{{Version: 13}},
		Graph: &onnx.GraphProto{
			Name:         "upsample",
			Inputs:       []*onnx.ValueInfoProto{{Name: "x", Type: floatType(1, 1, 2, 2)}},
			Outputs:      []*onnx.ValueInfoProto{{Name: "y", Type: floatType(1, 1, 4, 4)}},
			Initializers: []*onnx.TensorProto{roi, scales},
			Nodes: []*onnx.NodeProto{
				{Name: "resize0", OpType: "Resize", Inputs: []string{"x", "roi", "scales"}, Outputs: []string{"y"}},
			},
		},
	}
	m, err = onnx.Unmarshal(onnx.Marshal(m))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	df, err := dataflow.FromModel(m)
	if err != nil {
		t.Fatalf("FromModel: %v", err)
	}
	g := mustImport(t, df)

	resize := g.VerticesByOpName("resize0")
	if len(resize) != 1 {
		t.Fatalf("resize vertices = %d", len(resize))
	}
	in := resize[0].Inputs()
	if len(in) != 3 {
		t.Fatalf("inputs = %d", len(in))
	}
	r := in[1]
	if !r.IsConstant() || r.Shape.String() != "[0]" || r.Values.Len() != 0 {
		t.Errorf("roi = %s", r)
	}
	if r.Shape.Size() != 0 || !r.Shape.Concrete() {
		t.Errorf("roi shape size %d concrete %t", r.Shape.Size(), r.Shape.Concrete())
	}

	res := ToModel(g, ExportOptions{})
	if res.Outcome != Success {
		t.Fatalf("ToModel: %v", res.Reason)
	}
	var found bool
	for _, init := range res.Model.Graph.Initializers {
		if init.Name == "roi" {
			found = true
			if !slices.Equal(init.Dims, []int64{0}) {
				t.Errorf("exported roi dims = %v", init.Dims)
			}
		}
	}
	if !found {
		t.Error("roi initializer not exported")
	}
}
