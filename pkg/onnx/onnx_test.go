package onnx

import (
	"errors"
	"math"
	"path/filepath"
	"slices"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/matzehuels/onnxgraph/pkg/tensor"
)

func tensorType(elem int32, dims ...int64) *TypeProto {
	shape := &TensorShapeProto{}
	for _, d := range dims {
		shape.Dims = append(shape.Dims, &DimensionProto{DimValue: d})
	}
	return &TypeProto{TensorType: &TensorTypeProto{ElemType: elem, Shape: shape}}
}

func reluModel() *ModelProto {
	return &ModelProto{
		IRVersion:    8,
		ProducerName: "test",
		OpsetImport:  []*OperatorSetID{{Version: 13}},
		Graph: &GraphProto{
			Name:    "relu",
			Inputs:  []*ValueInfoProto{{Name: "x", Type: tensorType(1, 1, 3)}},
			Outputs: []*ValueInfoProto{{Name: "y", Type: tensorType(1, 1, 3)}},
			Nodes: []*NodeProto{{
				Name: "relu0", OpType: "Relu", Inputs: []string{"x"}, Outputs: []string{"y"},
			}},
		},
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	m := reluModel()
	m.MetadataProps = []*StringStringEntry{{Key: "author", Value: "me"}}
	g := m.Graph
	g.Inputs[0].Type.TensorType.Shape.Dims[0] = &DimensionProto{DimParam: "batch"}
	w, err := EncodeTensor("w", tensor.Int64, []int64{3}, tensor.IntValues(1, -2, math.MaxInt64))
	if err != nil {
		t.Fatal(err)
	}
	g.Initializers = []*TensorProto{w}
	g.Nodes[0].Attributes = []*AttributeProto{
		{Name: "alpha", Type: AttributeFloat, F: 0.5},
		{Name: "axes", Type: AttributeInts, Ints: []int64{-1, 2}},
		{Name: "mode", Type: AttributeString, S: []byte("constant")},
		{Name: "scales", Type: AttributeFloats, Floats: []float32{1.5, 2}},
		{Name: "zero", Type: AttributeInt, I: 0},
	}

	back, err := Unmarshal(Marshal(m))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.IRVersion != 8 || back.ProducerName != "test" || back.Opset("") != 13 {
		t.Errorf("model header = %d %q opset %d", back.IRVersion, back.ProducerName, back.Opset(""))
	}
	if len(back.MetadataProps) != 1 || back.MetadataProps[0].Value != "me" {
		t.Errorf("metadata = %+v", back.MetadataProps)
	}
	bg := back.Graph
	if bg.Name != "relu" || len(bg.Nodes) != 1 || len(bg.Inputs) != 1 || len(bg.Outputs) != 1 {
		t.Fatalf("graph = %+v", bg)
	}
	if d := bg.Inputs[0].Shape().Dims; d[0].DimParam != "batch" || d[1].DimValue != 3 {
		t.Errorf("input dims = %+v %+v", d[0], d[1])
	}
	n := bg.Nodes[0]
	if n.OpType != "Relu" || n.Name != "relu0" || !slices.Equal(n.Inputs, []string{"x"}) {
		t.Errorf("node = %+v", n)
	}
	if a := n.Attribute("alpha"); a == nil || a.Type != AttributeFloat || a.F != 0.5 {
		t.Errorf("alpha = %+v", a)
	}
	if a := n.Attribute("axes"); a == nil || !slices.Equal(a.Ints, []int64{-1, 2}) {
		t.Errorf("axes = %+v", a)
	}
	if a := n.Attribute("mode"); a == nil || string(a.S) != "constant" {
		t.Errorf("mode = %+v", a)
	}
	if a := n.Attribute("scales"); a == nil || !slices.Equal(a.Floats, []float32{1.5, 2}) {
		t.Errorf("scales = %+v", a)
	}
	if a := n.Attribute("zero"); a == nil || a.Type != AttributeInt || a.I != 0 {
		t.Errorf("zero = %+v", a)
	}
	v, err := DecodeTensor(bg.Initializers[0])
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(v.Ints, []int64{1, -2, math.MaxInt64}) {
		t.Errorf("initializer = %v", v.Ints)
	}
}

func TestScalarShapeSurvives(t *testing.T) {
	m := reluModel()
	m.Graph.Inputs[0].Type = tensorType(1)
	m.Graph.Outputs[0].Type = &TypeProto{TensorType: &TensorTypeProto{ElemType: 1}}

	back, err := Unmarshal(Marshal(m))
	if err != nil {
		t.Fatal(err)
	}
	if s := back.Graph.Inputs[0].Shape(); s == nil || len(s.Dims) != 0 {
		t.Errorf("scalar input shape = %+v, want present and empty", s)
	}
	if s := back.Graph.Outputs[0].Shape(); s != nil {
		t.Errorf("unknown output shape = %+v, want nil", s)
	}
}

func TestZeroDimSurvives(t *testing.T) {
	m := reluModel()
	m.Graph.Inputs[0].Type = &TypeProto{TensorType: &TensorTypeProto{ElemType: 1, Shape: &TensorShapeProto{
		Dims: []*DimensionProto{{DimValue: 0, HasValue: true}, {}, {DimParam: "N"}},
	}}}

	back, err := Unmarshal(Marshal(m))
	if err != nil {
		t.Fatal(err)
	}
	s := back.Graph.Inputs[0].Shape()
	if s == nil || len(s.Dims) != 3 {
		t.Fatalf("shape = %+v", s)
	}
	tests := []struct {
		name     string
		dim      *DimensionProto
		hasValue bool
		param    string
	}{
		{"explicit zero", s.Dims[0], true, ""},
		{"unset", s.Dims[1], false, ""},
		{"symbolic", s.Dims[2], false, "N"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.dim.HasValue != tt.hasValue || tt.dim.DimValue != 0 || tt.dim.DimParam != tt.param {
				t.Errorf("dim = %+v", tt.dim)
			}
		})
	}
}

func TestDecodeUnpackedRepeated(t *testing.T) {
	var b []byte
	for _, d := range []int64{2, 3} {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(d))
	}
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(tensor.Float32))
	for _, f := range []float32{1, 2, 3, 4, 5, 6} {
		b = protowire.AppendTag(b, 4, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(f))
	}
	// An unknown field must be skipped.
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendString(b, "ignored")

	tp := &TensorProto{}
	if err := decodeTensor(b, tp); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(tp.Dims, []int64{2, 3}) {
		t.Errorf("dims = %v", tp.Dims)
	}
	v, err := DecodeTensor(tp)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(v.Floats, []float64{1, 2, 3, 4, 5, 6}) {
		t.Errorf("values = %v", v.Floats)
	}
}

func TestDecodeTruncated(t *testing.T) {
	data := Marshal(reluModel())
	if _, err := Unmarshal(data[:len(data)-3]); err == nil {
		t.Error("expected error for truncated input")
	}
}

func TestTensorPayloadCodec(t *testing.T) {
	tests := []struct {
		name  string
		dtype tensor.DType
		in    *tensor.Values
		want  *tensor.Values
	}{
		{"float32", tensor.Float32, tensor.FloatValues(1.5, -2), tensor.FloatValues(1.5, -2)},
		{"float64", tensor.Float64, tensor.FloatValues(0.1, 1e300), tensor.FloatValues(0.1, 1e300)},
		{"float16", tensor.Float16, tensor.FloatValues(0.5, -3), tensor.FloatValues(0.5, -3)},
		{"bfloat16", tensor.BFloat16, tensor.FloatValues(1, -0.5), tensor.FloatValues(1, -0.5)},
		{"int8", tensor.Int8, tensor.IntValues(-128, 127), tensor.IntValues(-128, 127)},
		{"uint8", tensor.Uint8, tensor.IntValues(0, 255), tensor.IntValues(0, 255)},
		{"int32", tensor.Int32, tensor.IntValues(-7, 1<<30), tensor.IntValues(-7, 1<<30)},
		{"int64", tensor.Int64, tensor.IntValues(math.MinInt64, 5), tensor.IntValues(math.MinInt64, 5)},
		{"bool", tensor.Bool, tensor.IntValues(1, 0), tensor.IntValues(1, 0)},
		{"ints into float", tensor.Float32, tensor.IntValues(3, 4), tensor.FloatValues(3, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp, err := EncodeTensor("t", tt.dtype, []int64{2}, tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if len(tp.RawData) != 2*elemSize(tt.dtype) {
				t.Errorf("raw length = %d", len(tp.RawData))
			}
			got, err := DecodeTensor(tp)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTensorPayloadErrors(t *testing.T) {
	if _, err := EncodeTensor("s", tensor.String, []int64{1}, tensor.IntValues(1)); !errors.Is(err, ErrUnsupportedDType) {
		t.Errorf("string: err = %v", err)
	}
	if _, err := EncodeTensor("t", tensor.Int64, []int64{2, 2}, tensor.IntValues(1)); !errors.Is(err, ErrPayloadSize) {
		t.Errorf("size: err = %v", err)
	}
	tp := &TensorProto{Name: "t", DataType: int32(tensor.Float32), Dims: []int64{2}, RawData: []byte{1, 2, 3}}
	if _, err := DecodeTensor(tp); !errors.Is(err, ErrPayloadSize) {
		t.Errorf("raw: err = %v", err)
	}
}

func TestTypedHalfPrecision(t *testing.T) {
	// 0x3C00 is 1.0 in IEEE half precision.
	tp := &TensorProto{DataType: int32(tensor.Float16), Dims: []int64{1}, Int32Data: []int32{0x3C00}}
	v, err := DecodeTensor(tp)
	if err != nil {
		t.Fatal(err)
	}
	if v.Floats[0] != 1 {
		t.Errorf("got %v, want 1", v.Floats[0])
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ModelProto)
		wantErr error
	}{
		{"valid", func(*ModelProto) {}, nil},
		{"no ir version", func(m *ModelProto) { m.IRVersion = 0 }, ErrIRVersion},
		{"no opset", func(m *ModelProto) { m.OpsetImport = nil }, ErrNoOpset},
		{"no graph", func(m *ModelProto) { m.Graph = nil }, ErrNoGraph},
		{"empty input name", func(m *ModelProto) { m.Graph.Inputs[0].Name = "" }, ErrEmptyValueName},
		{"undefined node input", func(m *ModelProto) { m.Graph.Nodes[0].Inputs = []string{"z"} }, ErrUndefinedValue},
		{"undefined graph output", func(m *ModelProto) { m.Graph.Outputs[0].Name = "q" }, ErrUndefinedValue},
		{"missing op type", func(m *ModelProto) { m.Graph.Nodes[0].OpType = "" }, ErrMissingOpType},
		{"two producers", func(m *ModelProto) {
			m.Graph.Nodes = append(m.Graph.Nodes, &NodeProto{OpType: "Relu", Inputs: []string{"x"}, Outputs: []string{"y"}})
		}, ErrDuplicateValueName},
		{"out of order", func(m *ModelProto) {
			m.Graph.Nodes[0].Outputs = []string{"h"}
			m.Graph.Nodes = append([]*NodeProto{{OpType: "Relu", Inputs: []string{"h"}, Outputs: []string{"y"}}}, m.Graph.Nodes...)
		}, ErrUndefinedValue},
		{"optional input", func(m *ModelProto) { m.Graph.Nodes[0].Inputs = []string{"x", ""} }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := reluModel()
			tt.mutate(m)
			err := Check(m)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Check() = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Check() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckNode(t *testing.T) {
	types := map[string]tensor.DType{
		"f": tensor.Float32, "g": tensor.Float32, "d": tensor.Float64,
		"i": tensor.Int64, "j": tensor.Int32,
	}
	tests := []struct {
		name    string
		node    *NodeProto
		wantErr []error
	}{
		{"relu", &NodeProto{OpType: "Relu", Inputs: []string{"f"}, Outputs: []string{"o"}}, nil},
		{"relu arity", &NodeProto{OpType: "Relu", Inputs: []string{"f", "g"}, Outputs: []string{"o"}}, []error{ErrInputArity}},
		{"add mismatch", &NodeProto{OpType: "Add", Inputs: []string{"f", "d"}, Outputs: []string{"o"}}, []error{ErrTypeMismatch}},
		{"add unknown types", &NodeProto{OpType: "Add", Inputs: []string{"f", "u"}, Outputs: []string{"o"}}, nil},
		{"reshape int shape", &NodeProto{OpType: "Reshape", Inputs: []string{"f", "i"}, Outputs: []string{"o"}}, nil},
		{"reshape float shape", &NodeProto{OpType: "Reshape", Inputs: []string{"f", "g"}, Outputs: []string{"o"}}, []error{ErrIndexInputDType}},
		{"slice int32", &NodeProto{OpType: "Slice", Inputs: []string{"f", "j", "j"}, Outputs: []string{"o"}}, nil},
		{"concat variadic", &NodeProto{OpType: "Concat", Inputs: []string{"f", "g", "f"}, Outputs: []string{"o"},
			Attributes: []*AttributeProto{{Name: "axis", Type: AttributeInt, I: 1}}}, nil},
		{"concat missing axis", &NodeProto{OpType: "Concat", Inputs: []string{"f"}, Outputs: []string{"o"}}, []error{ErrMissingAttr}},
		{"cast wrong attr type", &NodeProto{OpType: "Cast", Inputs: []string{"f"}, Outputs: []string{"o"},
			Attributes: []*AttributeProto{{Name: "to", Type: AttributeFloat, F: 1}}}, []error{ErrAttrType}},
		{"maxpool two problems", &NodeProto{OpType: "MaxPool", Inputs: []string{}, Outputs: []string{"o"}}, []error{ErrInputArity, ErrMissingAttr}},
		{"unknown", &NodeProto{OpType: "FancyOp", Inputs: []string{"f"}, Outputs: []string{"o"}}, []error{ErrUnknownOperator}},
		{"custom domain", &NodeProto{OpType: "FancyOp", Domain: "com.example", Inputs: []string{"f"}, Outputs: []string{"o"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckNode(tt.node, types)
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("CheckNode() = %v", err)
				}
				return
			}
			for _, want := range tt.wantErr {
				if !errors.Is(err, want) {
					t.Errorf("CheckNode() = %v, want %v", err, want)
				}
			}
		})
	}
}

func TestReadWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.onnx")
	if err := WriteFile(path, reluModel()); err != nil {
		t.Fatal(err)
	}
	m, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := Check(m); err != nil {
		t.Errorf("Check() = %v", err)
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.onnx")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestOperatorsSorted(t *testing.T) {
	ops := Operators()
	if !slices.IsSorted(ops) || len(ops) < 50 {
		t.Errorf("Operators() = %d entries, sorted=%v", len(ops), slices.IsSorted(ops))
	}
	if _, ok := Lookup("Conv"); !ok {
		t.Error("Conv not registered")
	}
}
