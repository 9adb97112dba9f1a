package onnx

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrWireType is returned when a known field is encoded with an unexpected
// wire type.
var ErrWireType = errors.New("unexpected wire type")

// Unmarshal decodes a serialized ModelProto.
func Unmarshal(data []byte) (*ModelProto, error) {
	m := &ModelProto{}
	if err := decodeModel(data, m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return m, nil
}

// UnmarshalGraph decodes a serialized GraphProto, as stored in graph-valued
// attributes.
func UnmarshalGraph(data []byte) (*GraphProto, error) {
	g := &GraphProto{}
	if err := decodeGraph(data, g); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	return g, nil
}

// fieldFunc consumes the value of one field. It returns the number of bytes
// read, or 0 to let the caller skip an unknown field.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func decodeFields(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return protowire.ParseError(m)
			}
		}
		b = b[m:]
	}
	return nil
}

func consumeBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, ErrWireType
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeString(dst *string, typ protowire.Type, b []byte) (int, error) {
	v, n, err := consumeBytes(typ, b)
	*dst = string(v)
	return n, err
}

func consumeInt64(dst *int64, typ protowire.Type, b []byte) (int, error) {
	if typ != protowire.VarintType {
		return 0, ErrWireType
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = int64(v)
	return n, nil
}

func consumeInt32(dst *int32, typ protowire.Type, b []byte) (int, error) {
	var v int64
	n, err := consumeInt64(&v, typ, b)
	*dst = int32(v)
	return n, err
}

func consumeMessage(typ protowire.Type, b []byte, decode func([]byte) error) (int, error) {
	v, n, err := consumeBytes(typ, b)
	if err != nil {
		return 0, err
	}
	return n, decode(v)
}

// consumeVarints reads one element, or a packed run, of a repeated varint
// field.
func consumeVarints(typ protowire.Type, b []byte, add func(uint64)) (int, error) {
	switch typ {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		add(v)
		return n, nil
	case protowire.BytesType:
		buf, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		for len(buf) > 0 {
			v, m := protowire.ConsumeVarint(buf)
			if m < 0 {
				return 0, protowire.ParseError(m)
			}
			add(v)
			buf = buf[m:]
		}
		return n, nil
	}
	return 0, ErrWireType
}

func consumeFixed32s(typ protowire.Type, b []byte, add func(uint32)) (int, error) {
	switch typ {
	case protowire.Fixed32Type:
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		add(v)
		return n, nil
	case protowire.BytesType:
		buf, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		if len(buf)%4 != 0 {
			return 0, fmt.Errorf("packed fixed32 length %d", len(buf))
		}
		for i := 0; i < len(buf); i += 4 {
			v, _ := protowire.ConsumeFixed32(buf[i:])
			add(v)
		}
		return n, nil
	}
	return 0, ErrWireType
}

func consumeFixed64s(typ protowire.Type, b []byte, add func(uint64)) (int, error) {
	switch typ {
	case protowire.Fixed64Type:
		v, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		add(v)
		return n, nil
	case protowire.BytesType:
		buf, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		if len(buf)%8 != 0 {
			return 0, fmt.Errorf("packed fixed64 length %d", len(buf))
		}
		for i := 0; i < len(buf); i += 8 {
			v, _ := protowire.ConsumeFixed64(buf[i:])
			add(v)
		}
		return n, nil
	}
	return 0, ErrWireType
}

// =============================================================================
// Messages
// =============================================================================

func decodeModel(b []byte, m *ModelProto) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInt64(&m.IRVersion, typ, b)
		case 2:
			return consumeString(&m.ProducerName, typ, b)
		case 3:
			return consumeString(&m.ProducerVersion, typ, b)
		case 4:
			return consumeString(&m.Domain, typ, b)
		case 5:
			return consumeInt64(&m.ModelVersion, typ, b)
		case 6:
			return consumeString(&m.DocString, typ, b)
		case 7:
			m.Graph = &GraphProto{}
			return consumeMessage(typ, b, func(v []byte) error { return decodeGraph(v, m.Graph) })
		case 8:
			o := &OperatorSetID{}
			m.OpsetImport = append(m.OpsetImport, o)
			return consumeMessage(typ, b, func(v []byte) error { return decodeOperatorSetID(v, o) })
		case 14:
			e := &StringStringEntry{}
			m.MetadataProps = append(m.MetadataProps, e)
			return consumeMessage(typ, b, func(v []byte) error { return decodeStringStringEntry(v, e) })
		}
		return 0, nil
	})
}

func decodeGraph(b []byte, g *GraphProto) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			n := &NodeProto{}
			g.Nodes = append(g.Nodes, n)
			return consumeMessage(typ, b, func(v []byte) error { return decodeNode(v, n) })
		case 2:
			return consumeString(&g.Name, typ, b)
		case 5:
			t := &TensorProto{}
			g.Initializers = append(g.Initializers, t)
			return consumeMessage(typ, b, func(v []byte) error { return decodeTensor(v, t) })
		case 10:
			return consumeString(&g.DocString, typ, b)
		case 11, 12, 13:
			vi := &ValueInfoProto{}
			switch num {
			case 11:
				g.Inputs = append(g.Inputs, vi)
			case 12:
				g.Outputs = append(g.Outputs, vi)
			default:
				g.ValueInfo = append(g.ValueInfo, vi)
			}
			return consumeMessage(typ, b, func(v []byte) error { return decodeValueInfo(v, vi) })
		}
		return 0, nil
	})
}

func decodeNode(b []byte, n *NodeProto) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1, 2:
			var s string
			k, err := consumeString(&s, typ, b)
			if num == 1 {
				n.Inputs = append(n.Inputs, s)
			} else {
				n.Outputs = append(n.Outputs, s)
			}
			return k, err
		case 3:
			return consumeString(&n.Name, typ, b)
		case 4:
			return consumeString(&n.OpType, typ, b)
		case 5:
			a := &AttributeProto{}
			n.Attributes = append(n.Attributes, a)
			return consumeMessage(typ, b, func(v []byte) error { return decodeAttribute(v, a) })
		case 6:
			return consumeString(&n.DocString, typ, b)
		case 7:
			return consumeString(&n.Domain, typ, b)
		}
		return 0, nil
	})
}

func decodeAttribute(b []byte, a *AttributeProto) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(&a.Name, typ, b)
		case 2:
			if typ != protowire.Fixed32Type {
				return 0, ErrWireType
			}
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			a.F = math.Float32frombits(v)
			return n, nil
		case 3:
			return consumeInt64(&a.I, typ, b)
		case 4:
			v, n, err := consumeBytes(typ, b)
			a.S = append([]byte(nil), v...)
			return n, err
		case 5:
			a.T = &TensorProto{}
			return consumeMessage(typ, b, func(v []byte) error { return decodeTensor(v, a.T) })
		case 6:
			a.G = &GraphProto{}
			return consumeMessage(typ, b, func(v []byte) error { return decodeGraph(v, a.G) })
		case 7:
			return consumeFixed32s(typ, b, func(v uint32) { a.Floats = append(a.Floats, math.Float32frombits(v)) })
		case 8:
			return consumeVarints(typ, b, func(v uint64) { a.Ints = append(a.Ints, int64(v)) })
		case 9:
			v, n, err := consumeBytes(typ, b)
			a.Strings = append(a.Strings, append([]byte(nil), v...))
			return n, err
		case 10:
			t := &TensorProto{}
			a.Tensors = append(a.Tensors, t)
			return consumeMessage(typ, b, func(v []byte) error { return decodeTensor(v, t) })
		case 11:
			g := &GraphProto{}
			a.Graphs = append(a.Graphs, g)
			return consumeMessage(typ, b, func(v []byte) error { return decodeGraph(v, g) })
		case 13:
			return consumeString(&a.DocString, typ, b)
		case 20:
			var t int32
			n, err := consumeInt32(&t, typ, b)
			a.Type = AttributeType(t)
			return n, err
		}
		return 0, nil
	})
}

func decodeTensor(b []byte, t *TensorProto) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeVarints(typ, b, func(v uint64) { t.Dims = append(t.Dims, int64(v)) })
		case 2:
			return consumeInt32(&t.DataType, typ, b)
		case 4:
			return consumeFixed32s(typ, b, func(v uint32) { t.FloatData = append(t.FloatData, math.Float32frombits(v)) })
		case 5:
			return consumeVarints(typ, b, func(v uint64) { t.Int32Data = append(t.Int32Data, int32(v)) })
		case 6:
			v, n, err := consumeBytes(typ, b)
			t.StringData = append(t.StringData, append([]byte(nil), v...))
			return n, err
		case 7:
			return consumeVarints(typ, b, func(v uint64) { t.Int64Data = append(t.Int64Data, int64(v)) })
		case 8:
			return consumeString(&t.Name, typ, b)
		case 9:
			v, n, err := consumeBytes(typ, b)
			t.RawData = append([]byte(nil), v...)
			return n, err
		case 10:
			return consumeFixed64s(typ, b, func(v uint64) { t.DoubleData = append(t.DoubleData, math.Float64frombits(v)) })
		case 11:
			return consumeVarints(typ, b, func(v uint64) { t.Uint64Data = append(t.Uint64Data, v) })
		case 12:
			return consumeString(&t.DocString, typ, b)
		}
		return 0, nil
	})
}

func decodeValueInfo(b []byte, vi *ValueInfoProto) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(&vi.Name, typ, b)
		case 2:
			vi.Type = &TypeProto{}
			return consumeMessage(typ, b, func(v []byte) error { return decodeType(v, vi.Type) })
		case 3:
			return consumeString(&vi.DocString, typ, b)
		}
		return 0, nil
	})
}

func decodeType(b []byte, t *TypeProto) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}
		t.TensorType = &TensorTypeProto{}
		return consumeMessage(typ, b, func(v []byte) error {
			return decodeFields(v, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case 1:
					return consumeInt32(&t.TensorType.ElemType, typ, b)
				case 2:
					t.TensorType.Shape = &TensorShapeProto{}
					return consumeMessage(typ, b, func(v []byte) error { return decodeShape(v, t.TensorType.Shape) })
				}
				return 0, nil
			})
		})
	})
}

func decodeShape(b []byte, s *TensorShapeProto) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}
		d := &DimensionProto{}
		s.Dims = append(s.Dims, d)
		return consumeMessage(typ, b, func(v []byte) error {
			return decodeFields(v, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case 1:
					d.HasValue = true
					return consumeInt64(&d.DimValue, typ, b)
				case 2:
					return consumeString(&d.DimParam, typ, b)
				}
				return 0, nil
			})
		})
	})
}

func decodeOperatorSetID(b []byte, o *OperatorSetID) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(&o.Domain, typ, b)
		case 2:
			return consumeInt64(&o.Version, typ, b)
		}
		return 0, nil
	})
}

func decodeStringStringEntry(b []byte, e *StringStringEntry) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(&e.Key, typ, b)
		case 2:
			return consumeString(&e.Value, typ, b)
		}
		return 0, nil
	})
}
