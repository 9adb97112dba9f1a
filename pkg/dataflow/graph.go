package dataflow

import (
	"errors"
	"fmt"

	"github.com/matzehuels/onnxgraph/pkg/tensor"
)

var (
	// ErrNilTensor is returned when a node lists a nil tensor.
	ErrNilTensor = errors.New("nil tensor")

	// ErrTensorConflict is returned by [Graph.Tensors] when two distinct
	// tensor objects share one name.
	ErrTensorConflict = errors.New("distinct tensors share a name")
)

// Tensor is a named value in a dataflow graph. It is a constant when Values
// is set and a variable otherwise. A tensor with an empty name stands for an
// omitted optional input.
type Tensor struct {
	Name   string
	DType  tensor.DType
	Shape  tensor.Shape
	Values *tensor.Values
}

// IsConstant reports whether t carries a payload.
func (t *Tensor) IsConstant() bool { return t.Values != nil }

// IsEmpty reports whether t marks an omitted optional input.
func (t *Tensor) IsEmpty() bool { return t.Name == "" }

// Ref converts t into a value-model reference (deep copy).
func (t *Tensor) Ref() *tensor.TensorRef {
	return &tensor.TensorRef{Name: t.Name, DType: t.DType, Shape: t.Shape.Clone(), Values: t.Values.Clone()}
}

func (t *Tensor) String() string {
	kind := "Variable"
	if t.IsConstant() {
		kind = "Constant"
	}
	return fmt.Sprintf("%s (%s): %s %s", kind, t.Name, t.DType, t.Shape)
}

// Node is one operator invocation with ordered inputs, outputs and
// attributes.
type Node struct {
	Op        string
	Name      string
	Domain    string
	DocString string
	Inputs    []*Tensor
	Outputs   []*Tensor
	Attrs     *tensor.Attributes
}

// Domain is an imported operator set.
type Domain struct {
	Domain  string
	Version int64
}

// Graph is an ordered dataflow graph plus the model metadata around it.
type Graph struct {
	Name          string
	DocString     string
	Opset         int64
	ImportDomains []Domain
	Inputs        []*Tensor
	Outputs       []*Tensor
	Nodes         []*Node

	ProducerName    string
	ProducerVersion string
	IRVersion       int64
	ModelVersion    int64
}

// Tensors indexes every named tensor of the graph. It fails when two
// different objects carry the same name.
func (g *Graph) Tensors() (map[string]*Tensor, error) {
	out := make(map[string]*Tensor)
	add := func(t *Tensor) error {
		if t == nil {
			return ErrNilTensor
		}
		if t.IsEmpty() {
			return nil
		}
		if prev, ok := out[t.Name]; ok && prev != t {
			return fmt.Errorf("%w: %q", ErrTensorConflict, t.Name)
		}
		out[t.Name] = t
		return nil
	}
	for _, t := range g.Inputs {
		if err := add(t); err != nil {
			return nil, err
		}
	}
	for _, t := range g.Outputs {
		if err := add(t); err != nil {
			return nil, err
		}
	}
	for _, n := range g.Nodes {
		for _, t := range n.Inputs {
			if err := add(t); err != nil {
				return nil, fmt.Errorf("node %q input: %w", n.Name, err)
			}
		}
		for _, t := range n.Outputs {
			if err := add(t); err != nil {
				return nil, fmt.Errorf("node %q output: %w", n.Name, err)
			}
		}
	}
	return out, nil
}

// Producers maps each tensor name to the indices of the nodes that write it.
func (g *Graph) Producers() map[string][]int {
	out := make(map[string][]int)
	for i, n := range g.Nodes {
		for _, t := range n.Outputs {
			if t != nil && !t.IsEmpty() {
				out[t.Name] = append(out[t.Name], i)
			}
		}
	}
	return out
}

// Consumers maps each tensor name to the indices of the nodes that read it.
// A node reading one tensor twice is listed once.
func (g *Graph) Consumers() map[string][]int {
	out := make(map[string][]int)
	for i, n := range g.Nodes {
		for _, t := range n.Inputs {
			if t == nil || t.IsEmpty() {
				continue
			}
			if idx := out[t.Name]; len(idx) > 0 && idx[len(idx)-1] == i {
				continue
			}
			out[t.Name] = append(out[t.Name], i)
		}
	}
	return out
}
