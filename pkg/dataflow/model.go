package dataflow

import (
	"errors"
	"fmt"
	"math"

	oerrors "github.com/matzehuels/onnxgraph/pkg/errors"
	"github.com/matzehuels/onnxgraph/pkg/onnx"
	"github.com/matzehuels/onnxgraph/pkg/tensor"
)

// ErrUnsupportedAttribute is returned for attribute kinds the value model
// cannot hold (lists of tensors or graphs).
var ErrUnsupportedAttribute = errors.New("unsupported attribute type")

// FromModel converts a decoded model into a Graph. Graph inputs that are
// also initializers are treated as constants and dropped from Inputs.
func FromModel(m *onnx.ModelProto) (*Graph, error) {
	if m.Graph == nil {
		return nil, oerrors.New(oerrors.ErrCodeMalformedModel, "model has no graph")
	}
	og := m.Graph
	g := &Graph{
		Name:            og.Name,
		DocString:       og.DocString,
		Opset:           m.Opset(""),
		ProducerName:    m.ProducerName,
		ProducerVersion: m.ProducerVersion,
		IRVersion:       m.IRVersion,
		ModelVersion:    m.ModelVersion,
	}
	for _, o := range m.OpsetImport {
		g.ImportDomains = append(g.ImportDomains, Domain{Domain: o.Domain, Version: o.Version})
	}

	tensors := make(map[string]*Tensor)
	get := func(name string) *Tensor {
		if name == "" {
			return &Tensor{}
		}
		t, ok := tensors[name]
		if !ok {
			t = &Tensor{Name: name}
			tensors[name] = t
		}
		return t
	}
	typed := func(vi *onnx.ValueInfoProto) *Tensor {
		t := get(vi.Name)
		if dt := vi.ElemType(); dt != 0 && !t.IsConstant() {
			t.DType = tensor.DType(dt)
		}
		if s := vi.Shape(); s != nil && !t.IsConstant() {
			t.Shape = shapeFromProto(s)
		}
		return t
	}

	for _, init := range og.Initializers {
		vals, err := onnx.DecodeTensor(init)
		if err != nil {
			return nil, oerrors.Wrap(oerrors.ErrCodeMalformedModel, err, "initializer %q", init.Name)
		}
		t := get(init.Name)
		t.DType = tensor.DType(init.DataType)
		t.Shape = tensor.ShapeOf(init.Dims...)
		t.Values = vals
	}
	for _, vi := range og.ValueInfo {
		typed(vi)
	}
	for _, vi := range og.Inputs {
		if t := typed(vi); !t.IsConstant() {
			g.Inputs = append(g.Inputs, t)
		}
	}
	for _, vi := range og.Outputs {
		g.Outputs = append(g.Outputs, typed(vi))
	}

	for i, on := range og.Nodes {
		n := &Node{
			Op:        on.OpType,
			Name:      on.Name,
			Domain:    on.Domain,
			DocString: on.DocString,
			Attrs:     tensor.NewAttributes(),
		}
		if n.Name == "" {
			n.Name = fmt.Sprintf("%s_%d", on.OpType, i)
		}
		for _, name := range on.Inputs {
			n.Inputs = append(n.Inputs, get(name))
		}
		for _, name := range on.Outputs {
			n.Outputs = append(n.Outputs, get(name))
		}
		for _, a := range on.Attributes {
			v, err := attributeFromProto(a)
			if err != nil {
				return nil, oerrors.Wrap(oerrors.ErrCodeMalformedModel, err, "node %q attribute %q", n.Name, a.Name)
			}
			n.Attrs.Set(a.Name, v)
		}
		g.Nodes = append(g.Nodes, n)
	}
	return g, nil
}

func shapeFromProto(s *onnx.TensorShapeProto) tensor.Shape {
	out := make(tensor.Shape, len(s.Dims))
	for i, d := range s.Dims {
		switch {
		case d.DimParam != "":
			out[i] = tensor.Dim{Param: d.DimParam}
		case d.HasValue || d.DimValue > 0:
			out[i] = tensor.Dim{Value: d.DimValue}
		default:
			out[i] = tensor.UnknownDim
		}
	}
	return out
}

func attributeFromProto(a *onnx.AttributeProto) (tensor.Attribute, error) {
	switch a.Type {
	case onnx.AttributeFloat:
		return tensor.FloatAttr(float64(a.F)), nil
	case onnx.AttributeInt:
		return tensor.IntAttr(a.I), nil
	case onnx.AttributeString:
		return tensor.StringAttr(string(a.S)), nil
	case onnx.AttributeFloats:
		fs := make([]float64, len(a.Floats))
		for i, f := range a.Floats {
			fs[i] = float64(f)
		}
		return tensor.FloatsAttr(fs...), nil
	case onnx.AttributeInts:
		return tensor.IntsAttr(append([]int64{}, a.Ints...)...), nil
	case onnx.AttributeStrings:
		ss := make([]string, len(a.Strings))
		for i, s := range a.Strings {
			ss[i] = string(s)
		}
		return tensor.StringsAttr(ss...), nil
	case onnx.AttributeTensor:
		if a.T == nil {
			return tensor.Attribute{}, errors.New("tensor attribute without tensor")
		}
		vals, err := onnx.DecodeTensor(a.T)
		if err != nil {
			return tensor.Attribute{}, err
		}
		return tensor.TensorAttr(tensor.DType(a.T.DataType), append([]int64{}, a.T.Dims...), vals), nil
	case onnx.AttributeGraph:
		if a.G == nil {
			return tensor.Attribute{}, errors.New("graph attribute without graph")
		}
		return tensor.GraphAttr(onnx.MarshalGraph(a.G)), nil
	}
	return tensor.Attribute{}, fmt.Errorf("%w: %s", ErrUnsupportedAttribute, a.Type)
}

// ToModel converts g into a model. Constant node inputs become
// initializers in first-use order, and typed intermediate variables are
// listed as value_info.
func ToModel(g *Graph) (*onnx.ModelProto, error) {
	og := &onnx.GraphProto{Name: g.Name, DocString: g.DocString}
	boundary := make(map[string]bool)
	for _, t := range g.Inputs {
		og.Inputs = append(og.Inputs, valueInfo(t))
		boundary[t.Name] = true
	}
	for _, t := range g.Outputs {
		og.Outputs = append(og.Outputs, valueInfo(t))
		boundary[t.Name] = true
	}

	seen := make(map[string]bool)
	for _, n := range g.Nodes {
		on := &onnx.NodeProto{Name: n.Name, OpType: n.Op, Domain: n.Domain, DocString: n.DocString}
		for _, t := range n.Inputs {
			on.Inputs = append(on.Inputs, t.Name)
			if t.IsConstant() && !seen[t.Name] {
				seen[t.Name] = true
				init, err := onnx.EncodeTensor(t.Name, t.DType, t.Shape.Dims(), t.Values)
				if err != nil {
					return nil, fmt.Errorf("node %q: %w", n.Name, err)
				}
				og.Initializers = append(og.Initializers, init)
			}
		}
		for _, t := range n.Outputs {
			on.Outputs = append(on.Outputs, t.Name)
			if !t.IsEmpty() && !boundary[t.Name] && !seen[t.Name] && t.DType.Known() {
				seen[t.Name] = true
				og.ValueInfo = append(og.ValueInfo, valueInfo(t))
			}
		}
		attrs, err := attributesToProto(n)
		if err != nil {
			return nil, err
		}
		on.Attributes = attrs
		og.Nodes = append(og.Nodes, on)
	}

	m := &onnx.ModelProto{
		IRVersion:       g.IRVersion,
		ProducerName:    g.ProducerName,
		ProducerVersion: g.ProducerVersion,
		ModelVersion:    g.ModelVersion,
		Graph:           og,
	}
	hasDefault := false
	for _, d := range g.ImportDomains {
		v := d.Version
		if d.Domain == "" || d.Domain == "ai.onnx" {
			hasDefault = true
			if g.Opset != 0 {
				v = g.Opset
			}
		}
		m.OpsetImport = append(m.OpsetImport, &onnx.OperatorSetID{Domain: d.Domain, Version: v})
	}
	if !hasDefault && g.Opset != 0 {
		m.OpsetImport = append([]*onnx.OperatorSetID{{Version: g.Opset}}, m.OpsetImport...)
	}
	return m, nil
}

// NodeProto converts a single node into its wire form, referencing its
// tensors by name.
func NodeProto(n *Node) (*onnx.NodeProto, error) {
	on := &onnx.NodeProto{Name: n.Name, OpType: n.Op, Domain: n.Domain, DocString: n.DocString}
	for _, t := range n.Inputs {
		on.Inputs = append(on.Inputs, t.Name)
	}
	for _, t := range n.Outputs {
		on.Outputs = append(on.Outputs, t.Name)
	}
	attrs, err := attributesToProto(n)
	if err != nil {
		return nil, err
	}
	on.Attributes = attrs
	return on, nil
}

func attributesToProto(n *Node) ([]*onnx.AttributeProto, error) {
	var out []*onnx.AttributeProto
	for name, v := range n.Attrs.All() {
		a, err := attributeToProto(name, v)
		if err != nil {
			return nil, fmt.Errorf("node %q attribute %q: %w", n.Name, name, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func valueInfo(t *Tensor) *onnx.ValueInfoProto {
	vi := &onnx.ValueInfoProto{Name: t.Name}
	if !t.DType.Known() && t.Shape == nil {
		return vi
	}
	tt := &onnx.TensorTypeProto{ElemType: int32(t.DType)}
	if t.Shape != nil {
		tt.Shape = &onnx.TensorShapeProto{}
		for _, d := range t.Shape {
			pd := &onnx.DimensionProto{DimParam: d.Param}
			if d.Concrete() {
				pd.DimValue, pd.HasValue = d.Value, true
			}
			tt.Shape.Dims = append(tt.Shape.Dims, pd)
		}
	}
	vi.Type = &onnx.TypeProto{TensorType: tt}
	return vi
}

func attributeToProto(name string, v tensor.Attribute) (*onnx.AttributeProto, error) {
	a := &onnx.AttributeProto{Name: name}
	switch v.Kind {
	case tensor.AttrFloat:
		a.Type, a.F = onnx.AttributeFloat, float32(v.Float)
	case tensor.AttrInt:
		a.Type, a.I = onnx.AttributeInt, v.Int
	case tensor.AttrBool:
		a.Type = onnx.AttributeInt
		if v.Bool {
			a.I = 1
		}
	case tensor.AttrString:
		a.Type, a.S = onnx.AttributeString, []byte(v.String)
	case tensor.AttrFloats:
		a.Type = onnx.AttributeFloats
		for _, f := range v.Floats {
			if math.Abs(f) > math.MaxFloat32 && !math.IsInf(f, 0) {
				return nil, fmt.Errorf("value %g overflows float32", f)
			}
			a.Floats = append(a.Floats, float32(f))
		}
	case tensor.AttrInts:
		a.Type, a.Ints = onnx.AttributeInts, append([]int64{}, v.Ints...)
	case tensor.AttrStrings:
		a.Type = onnx.AttributeStrings
		for _, s := range v.Strings {
			a.Strings = append(a.Strings, []byte(s))
		}
	case tensor.AttrTensor:
		if v.Tensor == nil {
			return nil, errors.New("tensor attribute without payload")
		}
		t, err := onnx.EncodeTensor(name, v.Tensor.DType, v.Tensor.Shape, v.Tensor.Values)
		if err != nil {
			return nil, err
		}
		a.Type, a.T = onnx.AttributeTensor, t
	case tensor.AttrGraph:
		sub, err := onnx.UnmarshalGraph(v.Graph)
		if err != nil {
			return nil, err
		}
		a.Type, a.G = onnx.AttributeGraph, sub
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAttribute, v.Kind)
	}
	return a, nil
}
