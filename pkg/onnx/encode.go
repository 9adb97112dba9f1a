package onnx

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Marshal encodes a ModelProto in the protobuf wire format. Repeated scalar
// fields are written packed.
func Marshal(m *ModelProto) []byte {
	return appendModel(nil, m)
}

// MarshalGraph encodes a GraphProto on its own.
func MarshalGraph(g *GraphProto) []byte {
	return appendGraph(nil, g)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendPackedVarints[T int64 | int32 | uint64](b []byte, num protowire.Number, vs []T) []byte {
	if len(vs) == 0 {
		return b
	}
	var buf []byte
	for _, v := range vs {
		buf = protowire.AppendVarint(buf, uint64(int64(v)))
	}
	return appendMessage(b, num, buf)
}

func appendModel(b []byte, m *ModelProto) []byte {
	b = appendInt64(b, 1, m.IRVersion)
	b = appendString(b, 2, m.ProducerName)
	b = appendString(b, 3, m.ProducerVersion)
	b = appendString(b, 4, m.Domain)
	b = appendInt64(b, 5, m.ModelVersion)
	b = appendString(b, 6, m.DocString)
	if m.Graph != nil {
		b = appendMessage(b, 7, appendGraph(nil, m.Graph))
	}
	for _, o := range m.OpsetImport {
		var buf []byte
		buf = appendString(buf, 1, o.Domain)
		buf = appendInt64(buf, 2, o.Version)
		b = appendMessage(b, 8, buf)
	}
	for _, e := range m.MetadataProps {
		var buf []byte
		buf = appendString(buf, 1, e.Key)
		buf = appendString(buf, 2, e.Value)
		b = appendMessage(b, 14, buf)
	}
	return b
}

func appendGraph(b []byte, g *GraphProto) []byte {
	for _, n := range g.Nodes {
		b = appendMessage(b, 1, appendNode(nil, n))
	}
	b = appendString(b, 2, g.Name)
	for _, t := range g.Initializers {
		b = appendMessage(b, 5, appendTensor(nil, t))
	}
	b = appendString(b, 10, g.DocString)
	for _, vi := range g.Inputs {
		b = appendMessage(b, 11, appendValueInfo(nil, vi))
	}
	for _, vi := range g.Outputs {
		b = appendMessage(b, 12, appendValueInfo(nil, vi))
	}
	for _, vi := range g.ValueInfo {
		b = appendMessage(b, 13, appendValueInfo(nil, vi))
	}
	return b
}

func appendNode(b []byte, n *NodeProto) []byte {
	// Empty names mark omitted optional inputs and must be kept.
	for _, s := range n.Inputs {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, s)
	}
	for _, s := range n.Outputs {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, s)
	}
	b = appendString(b, 3, n.Name)
	b = appendString(b, 4, n.OpType)
	for _, a := range n.Attributes {
		b = appendMessage(b, 5, appendAttribute(nil, a))
	}
	b = appendString(b, 6, n.DocString)
	b = appendString(b, 7, n.Domain)
	return b
}

func appendAttribute(b []byte, a *AttributeProto) []byte {
	b = appendString(b, 1, a.Name)
	switch a.Type {
	case AttributeFloat:
		b = protowire.AppendTag(b, 2, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(a.F))
	case AttributeInt:
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(a.I))
	case AttributeString:
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, a.S)
	case AttributeTensor:
		if a.T != nil {
			b = appendMessage(b, 5, appendTensor(nil, a.T))
		}
	case AttributeGraph:
		if a.G != nil {
			b = appendMessage(b, 6, appendGraph(nil, a.G))
		}
	case AttributeFloats:
		if len(a.Floats) > 0 {
			buf := make([]byte, 0, 4*len(a.Floats))
			for _, f := range a.Floats {
				buf = protowire.AppendFixed32(buf, math.Float32bits(f))
			}
			b = appendMessage(b, 7, buf)
		}
	case AttributeInts:
		b = appendPackedVarints(b, 8, a.Ints)
	case AttributeStrings:
		for _, s := range a.Strings {
			b = protowire.AppendTag(b, 9, protowire.BytesType)
			b = protowire.AppendBytes(b, s)
		}
	case AttributeTensors:
		for _, t := range a.Tensors {
			b = appendMessage(b, 10, appendTensor(nil, t))
		}
	case AttributeGraphs:
		for _, g := range a.Graphs {
			b = appendMessage(b, 11, appendGraph(nil, g))
		}
	}
	b = appendString(b, 13, a.DocString)
	b = protowire.AppendTag(b, 20, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(a.Type))
}

func appendTensor(b []byte, t *TensorProto) []byte {
	b = appendPackedVarints(b, 1, t.Dims)
	if t.DataType != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(t.DataType))
	}
	if len(t.FloatData) > 0 {
		buf := make([]byte, 0, 4*len(t.FloatData))
		for _, f := range t.FloatData {
			buf = protowire.AppendFixed32(buf, math.Float32bits(f))
		}
		b = appendMessage(b, 4, buf)
	}
	b = appendPackedVarints(b, 5, t.Int32Data)
	for _, s := range t.StringData {
		b = protowire.AppendTag(b, 6, protowire.BytesType)
		b = protowire.AppendBytes(b, s)
	}
	b = appendPackedVarints(b, 7, t.Int64Data)
	b = appendString(b, 8, t.Name)
	if t.RawData != nil {
		b = protowire.AppendTag(b, 9, protowire.BytesType)
		b = protowire.AppendBytes(b, t.RawData)
	}
	if len(t.DoubleData) > 0 {
		buf := make([]byte, 0, 8*len(t.DoubleData))
		for _, f := range t.DoubleData {
			buf = protowire.AppendFixed64(buf, math.Float64bits(f))
		}
		b = appendMessage(b, 10, buf)
	}
	b = appendPackedVarints(b, 11, t.Uint64Data)
	b = appendString(b, 12, t.DocString)
	return b
}

func appendValueInfo(b []byte, vi *ValueInfoProto) []byte {
	b = appendString(b, 1, vi.Name)
	if vi.Type != nil {
		var tb []byte
		if tt := vi.Type.TensorType; tt != nil {
			var ttb []byte
			ttb = appendInt64(ttb, 1, int64(tt.ElemType))
			if tt.Shape != nil {
				var sb []byte
				for _, d := range tt.Shape.Dims {
					var db []byte
					if d.DimParam != "" {
						db = appendString(db, 2, d.DimParam)
					} else if d.HasValue || d.DimValue != 0 {
						db = protowire.AppendTag(db, 1, protowire.VarintType)
						db = protowire.AppendVarint(db, uint64(d.DimValue))
					}
					sb = appendMessage(sb, 1, db)
				}
				ttb = appendMessage(ttb, 2, sb)
			}
			tb = appendMessage(tb, 1, ttb)
		}
		b = appendMessage(b, 2, tb)
	}
	b = appendString(b, 3, vi.DocString)
	return b
}
