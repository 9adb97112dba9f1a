package onnx

// ModelProto is the top-level model container.
type ModelProto struct {
	IRVersion       int64
	ProducerName    string
	ProducerVersion string
	Domain          string
	ModelVersion    int64
	DocString       string
	Graph           *GraphProto
	OpsetImport     []*OperatorSetID
	MetadataProps   []*StringStringEntry
}

// Opset returns the version imported for domain, or 0 when absent. The
// default domain may be written as "" or "ai.onnx".
func (m *ModelProto) Opset(domain string) int64 {
	for _, o := range m.OpsetImport {
		if o.Domain == domain || (isDefaultDomain(o.Domain) && isDefaultDomain(domain)) {
			return o.Version
		}
	}
	return 0
}

// GraphProto is a computation graph.
type GraphProto struct {
	Name         string
	DocString    string
	Nodes        []*NodeProto
	Initializers []*TensorProto
	Inputs       []*ValueInfoProto
	Outputs      []*ValueInfoProto
	ValueInfo    []*ValueInfoProto
}

// NodeProto is a single operator invocation. Empty input names denote
// omitted optional inputs.
type NodeProto struct {
	Inputs     []string
	Outputs    []string
	Name       string
	OpType     string
	Domain     string
	DocString  string
	Attributes []*AttributeProto
}

// Attribute returns the attribute called name, or nil.
func (n *NodeProto) Attribute(name string) *AttributeProto {
	for _, a := range n.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// AttributeType is AttributeProto.AttributeType.
type AttributeType int32

const (
	AttributeUndefined AttributeType = 0
	AttributeFloat     AttributeType = 1
	AttributeInt       AttributeType = 2
	AttributeString    AttributeType = 3
	AttributeTensor    AttributeType = 4
	AttributeGraph     AttributeType = 5
	AttributeFloats    AttributeType = 6
	AttributeInts      AttributeType = 7
	AttributeStrings   AttributeType = 8
	AttributeTensors   AttributeType = 9
	AttributeGraphs    AttributeType = 10
)

var attributeTypeNames = map[AttributeType]string{
	AttributeUndefined: "UNDEFINED",
	AttributeFloat:     "FLOAT",
	AttributeInt:       "INT",
	AttributeString:    "STRING",
	AttributeTensor:    "TENSOR",
	AttributeGraph:     "GRAPH",
	AttributeFloats:    "FLOATS",
	AttributeInts:      "INTS",
	AttributeStrings:   "STRINGS",
	AttributeTensors:   "TENSORS",
	AttributeGraphs:    "GRAPHS",
}

func (t AttributeType) String() string {
	if s, ok := attributeTypeNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// AttributeProto is a named operator attribute. Type selects the populated
// value field.
type AttributeProto struct {
	Name      string
	DocString string
	Type      AttributeType
	F         float32
	I         int64
	S         []byte
	T         *TensorProto
	G         *GraphProto
	Floats    []float32
	Ints      []int64
	Strings   [][]byte
	Tensors   []*TensorProto
	Graphs    []*GraphProto
}

// TensorProto is a serialized tensor. Payloads live either in RawData
// (little-endian) or in the typed field that matches DataType.
type TensorProto struct {
	Dims       []int64
	DataType   int32
	FloatData  []float32
	Int32Data  []int32
	StringData [][]byte
	Int64Data  []int64
	Name       string
	RawData    []byte
	DoubleData []float64
	Uint64Data []uint64
	DocString  string
}

// ValueInfoProto names a value and describes its type.
type ValueInfoProto struct {
	Name      string
	Type      *TypeProto
	DocString string
}

// ElemType returns the tensor element type, or 0 when unknown.
func (v *ValueInfoProto) ElemType() int32 {
	if v == nil || v.Type == nil || v.Type.TensorType == nil {
		return 0
	}
	return v.Type.TensorType.ElemType
}

// Shape returns the tensor shape, or nil when unknown.
func (v *ValueInfoProto) Shape() *TensorShapeProto {
	if v == nil || v.Type == nil || v.Type.TensorType == nil {
		return nil
	}
	return v.Type.TensorType.Shape
}

// TypeProto describes a value type. Only tensor types are modeled.
type TypeProto struct {
	TensorType *TensorTypeProto
}

// TensorTypeProto is TypeProto.Tensor.
type TensorTypeProto struct {
	ElemType int32
	Shape    *TensorShapeProto
}

// TensorShapeProto lists dimensions. A present shape with no dimensions is
// a scalar.
type TensorShapeProto struct {
	Dims []*DimensionProto
}

// DimensionProto is a fixed size or a named symbol. HasValue records that
// dim_value was present, so an explicit 0 differs from an unset dimension.
type DimensionProto struct {
	DimValue int64
	DimParam string
	HasValue bool
}

// OperatorSetID identifies an imported operator set.
type OperatorSetID struct {
	Domain  string
	Version int64
}

// StringStringEntry is a metadata key/value pair.
type StringStringEntry struct {
	Key   string
	Value string
}

func isDefaultDomain(d string) bool { return d == "" || d == "ai.onnx" }
