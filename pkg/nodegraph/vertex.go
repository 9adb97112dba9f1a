package nodegraph

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/matzehuels/onnxgraph/pkg/tensor"
)

// Kind is the variant of a vertex.
type Kind int

const (
	KindInput Kind = iota
	KindOutput
	KindOperator
)

var kindNames = [...]string{
	KindInput:    "input",
	KindOutput:   "output",
	KindOperator: "operator",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a kind name back to its value.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Port names used by the factory.
const (
	PortIn  = "in"
	PortOut = "out"
)

// IsConstantOp reports whether op produces a fixed value and takes no
// visual inputs.
func IsConstantOp(op string) bool {
	return op == "Constant" || op == "ConstantOfShape"
}

// Point is a position on the canvas.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Spec describes a vertex to create. Input and output vertices use Tensor;
// operator vertices use the remaining fields. Name defaults to the tensor
// name or the operator name.
type Spec struct {
	Name     string
	Position Point

	Tensor *tensor.TensorRef

	Op      string
	OpName  string
	Domain  string
	Attrs   *tensor.Attributes
	Inputs  []*tensor.TensorRef
	Outputs []*tensor.TensorRef
}

// Vertex is a node of the visual graph.
type Vertex struct {
	id       uuid.UUID
	name     string
	kind     Kind
	pos      Point
	selected bool

	tensor *tensor.TensorRef

	op      string
	opName  string
	domain  string
	attrs   *tensor.Attributes
	inputs  []*tensor.TensorRef
	outputs []*tensor.TensorRef

	in  []*Port
	out []*Port

	portDeletionAllowed bool
}

// factory builds the variant-specific part of a vertex.
type factory func(v *Vertex, spec Spec) error

var factories = map[Kind]factory{
	KindInput: func(v *Vertex, spec Spec) error {
		if spec.Tensor == nil {
			return fmt.Errorf("%w: input vertex needs a tensor", ErrInvalidSpec)
		}
		v.tensor = spec.Tensor.Clone()
		v.addPort(PortOut, Out)
		return nil
	},
	KindOutput: func(v *Vertex, spec Spec) error {
		if spec.Tensor == nil {
			return fmt.Errorf("%w: output vertex needs a tensor", ErrInvalidSpec)
		}
		v.tensor = spec.Tensor.Clone()
		v.addPort(PortIn, In)
		return nil
	},
	KindOperator: func(v *Vertex, spec Spec) error {
		if spec.Op == "" {
			return fmt.Errorf("%w: operator vertex needs an op", ErrInvalidSpec)
		}
		v.op = spec.Op
		v.opName = spec.OpName
		v.domain = spec.Domain
		v.attrs = spec.Attrs.Clone()
		v.inputs = cloneRefs(spec.Inputs)
		v.outputs = cloneRefs(spec.Outputs)
		v.addPort(PortIn, In)
		v.addPort(PortOut, Out)
		return nil
	},
}

func defaultName(kind Kind, spec Spec) string {
	switch {
	case spec.Name != "":
		return spec.Name
	case kind != KindOperator && spec.Tensor != nil:
		return spec.Tensor.Name
	case spec.OpName != "":
		return spec.OpName
	default:
		return spec.Op
	}
}

func cloneRefs(refs []*tensor.TensorRef) []*tensor.TensorRef {
	if refs == nil {
		return nil
	}
	out := make([]*tensor.TensorRef, len(refs))
	for i, r := range refs {
		out[i] = r.Clone()
	}
	return out
}

func (v *Vertex) addPort(name string, dir Direction) *Port {
	p := &Port{name: name, dir: dir, owner: v}
	if dir == In {
		v.in = append(v.in, p)
	} else {
		v.out = append(v.out, p)
	}
	return p
}

// ID returns the stable identity of the vertex.
func (v *Vertex) ID() uuid.UUID { return v.id }

// Name returns the graph-unique display name.
func (v *Vertex) Name() string { return v.name }

// Kind returns the vertex variant.
func (v *Vertex) Kind() Kind { return v.kind }

// Position returns the canvas position.
func (v *Vertex) Position() Point { return v.pos }

// Selected reports whether the vertex is selected.
func (v *Vertex) Selected() bool { return v.selected }

// Tensor returns the tensor of an input or output vertex, or nil for
// operators.
func (v *Vertex) Tensor() *tensor.TensorRef { return v.tensor }

// Op returns the operator type, or "" for input and output vertices.
func (v *Vertex) Op() string { return v.op }

// OpName returns the exchange-format node name of an operator.
func (v *Vertex) OpName() string { return v.opName }

// Domain returns the operator domain.
func (v *Vertex) Domain() string { return v.domain }

// Attributes returns the operator attributes. The returned mapping is owned
// by the vertex.
func (v *Vertex) Attributes() *tensor.Attributes { return v.attrs }

// Inputs returns the ordered operator input tensors.
func (v *Vertex) Inputs() []*tensor.TensorRef { return v.inputs }

// Outputs returns the ordered operator output tensors.
func (v *Vertex) Outputs() []*tensor.TensorRef { return v.outputs }

// IsConstant reports whether the vertex is a constant-producing operator.
func (v *Vertex) IsConstant() bool { return v.kind == KindOperator && IsConstantOp(v.op) }

// InputPorts returns the input ports in order.
func (v *Vertex) InputPorts() []*Port { return slices.Clone(v.in) }

// OutputPorts returns the output ports in order.
func (v *Vertex) OutputPorts() []*Port { return slices.Clone(v.out) }

// InputPort returns input port i, or nil when out of range.
func (v *Vertex) InputPort(i int) *Port {
	if i < 0 || i >= len(v.in) {
		return nil
	}
	return v.in[i]
}

// OutputPort returns output port i, or nil when out of range.
func (v *Vertex) OutputPort(i int) *Port {
	if i < 0 || i >= len(v.out) {
		return nil
	}
	return v.out[i]
}

// Ports returns all input ports followed by all output ports.
func (v *Vertex) Ports() []*Port {
	return append(slices.Clone(v.in), v.out...)
}

// PortDeletionAllowed reports whether input ports may be deleted.
func (v *Vertex) PortDeletionAllowed() bool { return v.portDeletionAllowed }

// SetPortDeletionAllowed opens or closes the port deletion window.
func (v *Vertex) SetPortDeletionAllowed(allowed bool) { v.portDeletionAllowed = allowed }

// ConnectedInputVertices returns the producers connected to each input
// port, keyed by port name. Each list follows connection order.
func (v *Vertex) ConnectedInputVertices() map[string][]*Vertex {
	return connected(v.in)
}

// ConnectedOutputVertices returns the consumers connected to each output
// port, keyed by port name.
func (v *Vertex) ConnectedOutputVertices() map[string][]*Vertex {
	return connected(v.out)
}

// Predecessors returns the distinct vertices feeding any input port, in
// port order then connection order.
func (v *Vertex) Predecessors() []*Vertex {
	return peers(v.in)
}

// Successors returns the distinct vertices fed by any output port.
func (v *Vertex) Successors() []*Vertex {
	return peers(v.out)
}

func connected(ports []*Port) map[string][]*Vertex {
	out := make(map[string][]*Vertex, len(ports))
	for _, p := range ports {
		vs := make([]*Vertex, 0, len(p.conns))
		for _, q := range p.conns {
			vs = append(vs, q.owner)
		}
		out[p.name] = vs
	}
	return out
}

func peers(ports []*Port) []*Vertex {
	var out []*Vertex
	for _, p := range ports {
		for _, q := range p.conns {
			if !slices.Contains(out, q.owner) {
				out = append(out, q.owner)
			}
		}
	}
	return out
}

func (v *Vertex) String() string {
	if v.kind == KindOperator {
		return fmt.Sprintf("%s (%s)", v.name, v.op)
	}
	return fmt.Sprintf("%s (%s)", v.name, v.kind)
}
