package onnx

import (
	"errors"
	"fmt"
)

var (
	ErrNoGraph            = errors.New("model has no graph")
	ErrIRVersion          = errors.New("model ir_version is not set")
	ErrNoOpset            = errors.New("model has no opset_import")
	ErrEmptyValueName     = errors.New("value name must not be empty")
	ErrDuplicateValueName = errors.New("value is assigned more than once")
	ErrUndefinedValue     = errors.New("value is used before it is defined")
	ErrMissingOpType      = errors.New("node has no op_type")
)

// Check runs structural checks on m: IR version and opset presence,
// non-empty graph input and output names, single assignment of every value
// name, topological node order and initializer payload sizes. It does not
// run shape inference and does not descend into sub-graphs.
func Check(m *ModelProto) error {
	if m.IRVersion <= 0 {
		return ErrIRVersion
	}
	if len(m.OpsetImport) == 0 {
		return ErrNoOpset
	}
	if m.Graph == nil {
		return ErrNoGraph
	}
	return CheckGraph(m.Graph)
}

// CheckGraph runs the graph-level part of [Check].
func CheckGraph(g *GraphProto) error {
	defined := make(map[string]bool)
	define := func(name, what string) error {
		if name == "" {
			return fmt.Errorf("%s: %w", what, ErrEmptyValueName)
		}
		if defined[name] {
			return fmt.Errorf("%s %q: %w", what, name, ErrDuplicateValueName)
		}
		defined[name] = true
		return nil
	}

	for _, vi := range g.Inputs {
		if err := define(vi.Name, "graph input"); err != nil {
			return err
		}
	}
	for _, t := range g.Initializers {
		// Initializers may shadow a graph input of the same name.
		if t.Name == "" {
			return fmt.Errorf("initializer: %w", ErrEmptyValueName)
		}
		if _, err := DecodeTensor(t); err != nil && !errors.Is(err, ErrUnsupportedDType) {
			return fmt.Errorf("initializer %q: %w", t.Name, err)
		}
		defined[t.Name] = true
	}
	for i, n := range g.Nodes {
		label := nodeLabel(i, n)
		if n.OpType == "" {
			return fmt.Errorf("%s: %w", label, ErrMissingOpType)
		}
		for _, in := range n.Inputs {
			if in != "" && !defined[in] {
				return fmt.Errorf("%s input %q: %w", label, in, ErrUndefinedValue)
			}
		}
		for _, out := range n.Outputs {
			if out == "" {
				continue
			}
			if err := define(out, label+" output"); err != nil {
				return err
			}
		}
	}
	for _, vi := range g.Outputs {
		if vi.Name == "" {
			return fmt.Errorf("graph output: %w", ErrEmptyValueName)
		}
		if !defined[vi.Name] {
			return fmt.Errorf("graph output %q: %w", vi.Name, ErrUndefinedValue)
		}
	}
	return nil
}

func nodeLabel(i int, n *NodeProto) string {
	if n.Name != "" {
		return fmt.Sprintf("node %q", n.Name)
	}
	return fmt.Sprintf("node #%d (%s)", i, n.OpType)
}
