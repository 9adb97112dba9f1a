package nodegraph

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/google/uuid"

	oerrors "github.com/matzehuels/onnxgraph/pkg/errors"
	"github.com/matzehuels/onnxgraph/pkg/tensor"
	"github.com/matzehuels/onnxgraph/pkg/undo"
)

var (
	// ErrPortLocked is returned when a structural change touches a locked
	// port. The graph is left unchanged.
	ErrPortLocked = oerrors.New(oerrors.ErrCodePortLocked, "port is locked")

	// ErrPortDeletionNotAllowed is returned by [Graph.DeleteInputPort] when
	// the vertex has not opened its port deletion window.
	ErrPortDeletionNotAllowed = errors.New("port deletion not allowed")

	// ErrPortConnected is returned when deleting a port that still has
	// connections.
	ErrPortConnected = errors.New("port has connections")

	// ErrPortDirection is returned when connecting anything other than an
	// output port to an input port.
	ErrPortDirection = errors.New("connection must run from an output port to an input port")

	// ErrSelfLoop is returned when connecting a vertex to itself.
	ErrSelfLoop = errors.New("cannot connect a vertex to itself")

	// ErrForeignVertex is returned for vertices or ports of another graph.
	ErrForeignVertex = errors.New("vertex does not belong to this graph")

	// ErrInvalidSpec is returned by [Graph.AddVertex] for incomplete specs.
	ErrInvalidSpec = errors.New("invalid vertex spec")

	// ErrUnknownKind is returned for vertex kinds without a factory.
	ErrUnknownKind = errors.New("unknown vertex kind")

	// ErrNoSuchPort is returned for out-of-range port indices.
	ErrNoSuchPort = errors.New("no such port")
)

// Domain is an imported operator set.
type Domain struct {
	Domain  string `json:"domain"`
	Version int64  `json:"version"`
}

// Graph is a visual graph plus the model metadata it round-trips.
type Graph struct {
	Name          string
	Opset         int64
	DocString     string
	ImportDomains []Domain

	ProducerName    string
	ProducerVersion string
	IRVersion       int64
	ModelVersion    int64

	vertices []*Vertex
	names    map[string]*Vertex
	rec      undo.Recorder
}

// New returns an empty graph that records undoable edits to rec. A nil
// recorder discards them.
func New(rec undo.Recorder) *Graph {
	if rec == nil {
		rec = undo.Nop()
	}
	return &Graph{names: make(map[string]*Vertex), rec: rec}
}

// Recorder returns the undo recorder.
func (g *Graph) Recorder() undo.Recorder { return g.rec }

// BeginGroup opens an undo group.
func (g *Graph) BeginGroup(label string) { g.rec.BeginGroup(label) }

// EndGroup closes the innermost undo group.
func (g *Graph) EndGroup() error { return g.rec.EndGroup() }

// Len returns the number of vertices.
func (g *Graph) Len() int { return len(g.vertices) }

// Vertices returns all vertices in creation order.
func (g *Graph) Vertices() []*Vertex { return slices.Clone(g.vertices) }

// VerticesOf returns the vertices of one kind in creation order.
func (g *Graph) VerticesOf(kind Kind) []*Vertex {
	var out []*Vertex
	for _, v := range g.vertices {
		if v.kind == kind {
			out = append(out, v)
		}
	}
	return out
}

// Vertex returns the vertex with the given display name, or nil.
func (g *Graph) Vertex(name string) *Vertex { return g.names[name] }

// VertexByID returns the vertex with the given identity, or nil.
func (g *Graph) VertexByID(id uuid.UUID) *Vertex {
	for _, v := range g.vertices {
		if v.id == id {
			return v
		}
	}
	return nil
}

// VerticesByOpName returns the vertices whose display name or operator node
// name equals name.
func (g *Graph) VerticesByOpName(name string) []*Vertex {
	var out []*Vertex
	for _, v := range g.vertices {
		if v.name == name || (v.kind == KindOperator && v.opName == name) {
			out = append(out, v)
		}
	}
	return out
}

// Index returns the creation-order position of v, or -1.
func (g *Graph) Index(v *Vertex) int { return slices.Index(g.vertices, v) }

func (g *Graph) owns(v *Vertex) bool {
	return v != nil && g.names[v.name] == v
}

// uniqueName returns name, or name with the smallest free " N" suffix.
func (g *Graph) uniqueName(name string) string {
	if _, taken := g.names[name]; !taken {
		return name
	}
	for i := 1; ; i++ {
		n := name + " " + strconv.Itoa(i)
		if _, taken := g.names[n]; !taken {
			return n
		}
	}
}

// AddVertex creates a vertex of the given kind from spec.
func (g *Graph) AddVertex(kind Kind, spec Spec, record bool) (*Vertex, error) {
	build, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
	v := &Vertex{id: uuid.New(), kind: kind, pos: spec.Position}
	if err := build(v, spec); err != nil {
		return nil, err
	}
	v.name = g.uniqueName(defaultName(kind, spec))
	g.insert(v, len(g.vertices))
	if record {
		g.rec.Push(undo.Command{
			Label: "Add " + v.name,
			Undo:  func() { g.detach(v) },
			Redo:  func() { g.insert(v, len(g.vertices)) },
		})
	}
	return v, nil
}

func (g *Graph) insert(v *Vertex, at int) {
	g.vertices = slices.Insert(g.vertices, at, v)
	g.names[v.name] = v
}

func (g *Graph) detach(v *Vertex) int {
	i := slices.Index(g.vertices, v)
	if i >= 0 {
		g.vertices = slices.Delete(g.vertices, i, i+1)
	}
	delete(g.names, v.name)
	return i
}

// Rename changes the display name of v, keeping names unique. It returns
// the name actually assigned.
func (g *Graph) Rename(v *Vertex, name string, record bool) (string, error) {
	if !g.owns(v) {
		return "", ErrForeignVertex
	}
	old := v.name
	if name == old {
		return old, nil
	}
	delete(g.names, old)
	v.name = g.uniqueName(name)
	g.names[v.name] = v
	if record {
		assigned := v.name
		g.rec.Push(undo.Command{
			Label: "Rename " + old,
			Undo:  func() { g.setName(v, old) },
			Redo:  func() { g.setName(v, assigned) },
		})
	}
	return v.name, nil
}

func (g *Graph) setName(v *Vertex, name string) {
	delete(g.names, v.name)
	v.name = name
	g.names[name] = v
}

// =============================================================================
// Connections
// =============================================================================

func (g *Graph) checkPorts(src, dst *Port) error {
	if src == nil || dst == nil {
		return ErrNoSuchPort
	}
	if !g.owns(src.owner) || !g.owns(dst.owner) {
		return ErrForeignVertex
	}
	if src.dir != Out || dst.dir != In {
		return ErrPortDirection
	}
	if src.owner == dst.owner {
		return ErrSelfLoop
	}
	if src.Locked() {
		return fmt.Errorf("%w: %s", ErrPortLocked, src)
	}
	if dst.Locked() {
		return fmt.Errorf("%w: %s", ErrPortLocked, dst)
	}
	return nil
}

// Connect links an output port to an input port. Connecting an existing
// pair is a no-op.
func (g *Graph) Connect(src, dst *Port, record bool) error {
	if err := g.checkPorts(src, dst); err != nil {
		return err
	}
	if src.ConnectedTo(dst) {
		return nil
	}
	src.link(dst)
	if record {
		g.rec.Push(undo.Command{
			Label: "Connect " + src.String() + " -> " + dst.String(),
			Undo:  func() { src.unlink(dst) },
			Redo:  func() { src.link(dst) },
		})
	}
	return nil
}

// Disconnect removes the link between an output port and an input port.
// Removing a missing link is a no-op.
func (g *Graph) Disconnect(src, dst *Port, record bool) error {
	if err := g.checkPorts(src, dst); err != nil {
		return err
	}
	if !src.ConnectedTo(dst) {
		return nil
	}
	src.unlink(dst)
	if record {
		g.rec.Push(undo.Command{
			Label: "Disconnect " + src.String() + " -> " + dst.String(),
			Undo:  func() { src.link(dst) },
			Redo:  func() { src.unlink(dst) },
		})
	}
	return nil
}

// ClearConnections removes every link of p. It fails without changes when p
// or any peer port is locked.
func (g *Graph) ClearConnections(p *Port, record bool) error {
	if p == nil {
		return ErrNoSuchPort
	}
	if !g.owns(p.owner) {
		return ErrForeignVertex
	}
	if p.Locked() {
		return fmt.Errorf("%w: %s", ErrPortLocked, p)
	}
	for _, q := range p.conns {
		if q.Locked() {
			return fmt.Errorf("%w: %s", ErrPortLocked, q)
		}
	}
	g.clear(p, record)
	return nil
}

func (g *Graph) clear(p *Port, record bool) {
	peers := slices.Clone(p.conns)
	for _, q := range peers {
		p.unlink(q)
	}
	if record && len(peers) > 0 {
		g.rec.Push(undo.Command{
			Label: "Clear " + p.String(),
			Undo: func() {
				for _, q := range peers {
					p.link(q)
				}
			},
			Redo: func() {
				for _, q := range peers {
					p.unlink(q)
				}
			},
		})
	}
}

// =============================================================================
// Locks
// =============================================================================

// SetLocked moves p to the given lock state.
func (g *Graph) SetLocked(p *Port, state LockState, record bool) error {
	if p == nil {
		return ErrNoSuchPort
	}
	if !g.owns(p.owner) {
		return ErrForeignVertex
	}
	prev := p.state
	if prev == state {
		return nil
	}
	p.state = state
	if record {
		g.rec.Push(undo.Command{
			Label: "Lock " + p.String(),
			Undo:  func() { p.state = prev },
			Redo:  func() { p.state = state },
		})
	}
	return nil
}

// LockAll locks every port of every vertex.
func (g *Graph) LockAll(record bool) error { return g.setAll(Locked, record) }

// UnlockAll unlocks every port of every vertex.
func (g *Graph) UnlockAll(record bool) error { return g.setAll(Unlocked, record) }

func (g *Graph) setAll(state LockState, record bool) error {
	if record {
		g.rec.BeginGroup("Set Port Locks")
		defer g.rec.EndGroup()
	}
	var errs []error
	for _, v := range g.vertices {
		for _, p := range v.Ports() {
			if err := g.SetLocked(p, state, record); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// Vertex structure
// =============================================================================

// DeleteInputPort removes input port i of v. The vertex must allow port
// deletion and the port must be unlocked and unconnected.
func (g *Graph) DeleteInputPort(v *Vertex, i int) error {
	if !g.owns(v) {
		return ErrForeignVertex
	}
	if !v.portDeletionAllowed {
		return fmt.Errorf("%w: %s", ErrPortDeletionNotAllowed, v.name)
	}
	p := v.InputPort(i)
	if p == nil {
		return fmt.Errorf("%w: %s input %d", ErrNoSuchPort, v.name, i)
	}
	if p.Locked() {
		return fmt.Errorf("%w: %s", ErrPortLocked, p)
	}
	if len(p.conns) > 0 {
		return fmt.Errorf("%w: %s", ErrPortConnected, p)
	}
	v.in = slices.Delete(v.in, i, i+1)
	return nil
}

// RemoveVertex releases every connection of v and removes it. It fails
// without changes when any port of v, or any peer port, is locked.
func (g *Graph) RemoveVertex(v *Vertex, record bool) error {
	if !g.owns(v) {
		return ErrForeignVertex
	}
	for _, p := range v.Ports() {
		if p.Locked() {
			return fmt.Errorf("%w: %s", ErrPortLocked, p)
		}
		for _, q := range p.conns {
			if q.Locked() {
				return fmt.Errorf("%w: %s", ErrPortLocked, q)
			}
		}
	}
	if record {
		g.rec.BeginGroup("Remove " + v.name)
		defer g.rec.EndGroup()
	}
	for _, p := range v.Ports() {
		g.clear(p, record)
	}
	at := g.detach(v)
	if record {
		g.rec.Push(undo.Command{
			Label: "Remove " + v.name,
			Undo:  func() { g.insert(v, at) },
			Redo:  func() { g.detach(v) },
		})
	}
	return nil
}

// RemoveAll unlocks every port and removes every vertex. Vertices that
// cannot be removed stay in the graph and their errors are joined.
func (g *Graph) RemoveAll(record bool) error {
	if record {
		g.rec.BeginGroup("Remove All Nodes")
		defer g.rec.EndGroup()
	}
	errs := []error{g.UnlockAll(record)}
	for _, v := range slices.Backward(slices.Clone(g.vertices)) {
		if err := g.RemoveVertex(v, record); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", v.name, err))
		}
	}
	return errors.Join(errs...)
}

// SetPosition moves v.
func (g *Graph) SetPosition(v *Vertex, pos Point, record bool) error {
	if !g.owns(v) {
		return ErrForeignVertex
	}
	prev := v.pos
	v.pos = pos
	if record && prev != pos {
		g.rec.Push(undo.Command{
			Label: "Move " + v.name,
			Undo:  func() { v.pos = prev },
			Redo:  func() { v.pos = pos },
		})
	}
	return nil
}

// =============================================================================
// Selection
// =============================================================================

// SetSelected marks v as selected or not.
func (g *Graph) SetSelected(v *Vertex, selected bool) { v.selected = selected }

// ResetSelection clears the selection.
func (g *Graph) ResetSelection() {
	for _, v := range g.vertices {
		v.selected = false
	}
}

// SelectedNames returns the display names of selected vertices in creation
// order.
func (g *Graph) SelectedNames() []string {
	var out []string
	for _, v := range g.vertices {
		if v.selected {
			out = append(out, v.name)
		}
	}
	return out
}

// =============================================================================
// Derived views
// =============================================================================

// Edge is a connection between two vertices.
type Edge struct {
	From, To         *Vertex
	FromPort, ToPort *Port
}

// Edges lists all connections ordered by consumer creation order, then
// input port, then connection order.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, v := range g.vertices {
		for _, p := range v.in {
			for _, q := range p.conns {
				out = append(out, Edge{From: q.owner, To: v, FromPort: q, ToPort: p})
			}
		}
	}
	return out
}

// OperatorData is the snapshot of one operator vertex.
type OperatorData struct {
	Name    string
	Op      string
	OpName  string
	Domain  string
	Attrs   *tensor.Attributes
	Inputs  []*tensor.TensorRef
	Outputs []*tensor.TensorRef
}

// Data is a detached snapshot of a graph grouped by vertex kind.
type Data struct {
	Name      string
	Opset     int64
	DocString string
	Inputs    []*tensor.TensorRef
	Outputs   []*tensor.TensorRef
	Operators []OperatorData
	// Consumers maps tensor names to the operators that read them.
	Consumers map[string][]string
}

// Data returns a deep-copied snapshot of the graph contents.
func (g *Graph) Data() Data {
	d := Data{Name: g.Name, Opset: g.Opset, DocString: g.DocString, Consumers: make(map[string][]string)}
	for _, v := range g.vertices {
		switch v.kind {
		case KindInput:
			d.Inputs = append(d.Inputs, v.tensor.Clone())
		case KindOutput:
			d.Outputs = append(d.Outputs, v.tensor.Clone())
		case KindOperator:
			d.Operators = append(d.Operators, OperatorData{
				Name: v.name, Op: v.op, OpName: v.opName, Domain: v.domain,
				Attrs: v.attrs.Clone(), Inputs: cloneRefs(v.inputs), Outputs: cloneRefs(v.outputs),
			})
			for _, t := range v.inputs {
				if t.Name != "" && !slices.Contains(d.Consumers[t.Name], v.name) {
					d.Consumers[t.Name] = append(d.Consumers[t.Name], v.name)
				}
			}
		}
	}
	return d
}
