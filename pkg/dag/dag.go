package dag

import (
	"errors"
	"slices"
)

var (
	// ErrUnknownNode is returned by [DAG.AddEdge] when an endpoint does not
	// exist.
	ErrUnknownNode = errors.New("unknown node")

	// ErrSelfEdge is returned by [DAG.AddEdge] for an edge from a node to
	// itself.
	ErrSelfEdge = errors.New("edge must connect two distinct nodes")

	// ErrNonConsecutiveRows is returned by [DAG.Validate] when an edge
	// connects nodes that are not in adjacent rows (From.Row+1 != To.Row).
	ErrNonConsecutiveRows = errors.New("edges must connect consecutive rows")

	// ErrGraphHasCycle is returned by [DAG.Validate] when a cycle is detected.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// NodeKind distinguishes original vertices from synthetic ones created
// during layering.
type NodeKind int

const (
	// NodeKindRegular is a vertex of the input graph.
	NodeKindRegular NodeKind = iota
	// NodeKindDummy is a synthetic vertex inserted to split a long edge.
	// Its Origin names the source of the split edge.
	NodeKindDummy
)

// Node is a vertex with an assigned row (layer). IDs are dense: the node
// with ID i is the i-th node added.
type Node struct {
	ID   int
	Row  int
	Kind NodeKind
	// Origin is the source vertex of the long edge a dummy belongs to, and
	// the node itself for regular nodes.
	Origin int
}

// IsDummy reports whether the node was inserted to split a long edge.
func (n Node) IsDummy() bool { return n.Kind == NodeKindDummy }

// Edge is a directed connection between two nodes.
type Edge struct {
	From int
	To   int
}

// DAG is a directed graph organised into rows for layered layouts. All
// iteration orders follow node IDs and edge insertion, so every algorithm
// running on a DAG is deterministic.
//
// The zero value is an empty graph. DAG is not safe for concurrent use.
type DAG struct {
	nodes    []*Node
	edges    []Edge
	outgoing [][]int
	incoming [][]int
}

// New creates a graph with n regular nodes in row 0.
func New(n int) *DAG {
	d := &DAG{}
	for range n {
		d.AddNode(NodeKindRegular, 0, -1)
	}
	return d
}

// AddNode appends a node and returns its ID. A negative origin makes the
// node its own origin.
func (d *DAG) AddNode(kind NodeKind, row, origin int) int {
	id := len(d.nodes)
	if origin < 0 {
		origin = id
	}
	d.nodes = append(d.nodes, &Node{ID: id, Row: row, Kind: kind, Origin: origin})
	d.outgoing = append(d.outgoing, nil)
	d.incoming = append(d.incoming, nil)
	return id
}

func (d *DAG) has(id int) bool { return id >= 0 && id < len(d.nodes) }

// AddEdge adds the edge from→to. Parallel edges are kept.
func (d *DAG) AddEdge(from, to int) error {
	if !d.has(from) || !d.has(to) {
		return ErrUnknownNode
	}
	if from == to {
		return ErrSelfEdge
	}
	d.edges = append(d.edges, Edge{From: from, To: to})
	d.outgoing[from] = append(d.outgoing[from], to)
	d.incoming[to] = append(d.incoming[to], from)
	return nil
}

// RemoveEdge removes every edge from→to.
func (d *DAG) RemoveEdge(from, to int) {
	if !d.has(from) || !d.has(to) {
		return
	}
	d.edges = slices.DeleteFunc(d.edges, func(e Edge) bool { return e.From == from && e.To == to })
	d.outgoing[from] = slices.DeleteFunc(d.outgoing[from], func(c int) bool { return c == to })
	d.incoming[to] = slices.DeleteFunc(d.incoming[to], func(p int) bool { return p == from })
}

// ReverseEdge turns every edge from→to into to→from.
func (d *DAG) ReverseEdge(from, to int) {
	n := 0
	for _, e := range d.edges {
		if e.From == from && e.To == to {
			n++
		}
	}
	d.RemoveEdge(from, to)
	for range n {
		_ = d.AddEdge(to, from)
	}
}

// Node returns the node with the given ID.
func (d *DAG) Node(id int) (*Node, bool) {
	if !d.has(id) {
		return nil, false
	}
	return d.nodes[id], true
}

// Nodes returns all nodes in ID order. The pointers refer to the graph's
// nodes.
func (d *DAG) Nodes() []*Node { return slices.Clone(d.nodes) }

// Edges returns a copy of all edges in insertion order.
func (d *DAG) Edges() []Edge { return slices.Clone(d.edges) }

// NodeCount returns the number of nodes.
func (d *DAG) NodeCount() int { return len(d.nodes) }

// EdgeCount returns the number of edges.
func (d *DAG) EdgeCount() int { return len(d.edges) }

// Children returns the targets of the node's outgoing edges. The slice is a
// read-only view.
func (d *DAG) Children(id int) []int {
	if !d.has(id) {
		return nil
	}
	return d.outgoing[id]
}

// Parents returns the sources of the node's incoming edges. The slice is a
// read-only view.
func (d *DAG) Parents(id int) []int {
	if !d.has(id) {
		return nil
	}
	return d.incoming[id]
}

// OutDegree returns the number of outgoing edges.
func (d *DAG) OutDegree(id int) int { return len(d.Children(id)) }

// InDegree returns the number of incoming edges.
func (d *DAG) InDegree(id int) int { return len(d.Parents(id)) }

// SetRows assigns rows by node ID. Nodes missing from rows keep theirs.
func (d *DAG) SetRows(rows map[int]int) {
	for id, r := range rows {
		if d.has(id) {
			d.nodes[id].Row = r
		}
	}
}

// MaxRow returns the highest row index, or 0 for an empty graph.
func (d *DAG) MaxRow() int {
	m := 0
	for _, n := range d.nodes {
		m = max(m, n.Row)
	}
	return m
}

// Rows groups node IDs by row in ID order. The result has MaxRow()+1
// entries for a non-empty graph.
func (d *DAG) Rows() [][]int {
	if len(d.nodes) == 0 {
		return nil
	}
	rows := make([][]int, d.MaxRow()+1)
	for _, n := range d.nodes {
		rows[n.Row] = append(rows[n.Row], n.ID)
	}
	return rows
}

// Sources returns the IDs of nodes without incoming edges.
func (d *DAG) Sources() []int {
	var out []int
	for id := range d.nodes {
		if len(d.incoming[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Validate checks that every edge joins consecutive rows and that the
// graph is acyclic.
func (d *DAG) Validate() error {
	for _, e := range d.edges {
		if d.nodes[e.To].Row != d.nodes[e.From].Row+1 {
			return ErrNonConsecutiveRows
		}
	}
	if d.HasCycle() {
		return ErrGraphHasCycle
	}
	return nil
}

// HasCycle reports whether the graph contains a directed cycle.
func (d *DAG) HasCycle() bool {
	indeg := make([]int, len(d.nodes))
	for id := range d.nodes {
		indeg[id] = len(d.incoming[id])
	}
	queue := d.Sources()
	seen := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		seen++
		for _, c := range d.outgoing[id] {
			if indeg[c]--; indeg[c] == 0 {
				queue = append(queue, c)
			}
		}
	}
	return seen != len(d.nodes)
}

// PosMap maps each ID to its index in ids.
func PosMap(ids []int) map[int]int {
	m := make(map[int]int, len(ids))
	for i, id := range ids {
		m[id] = i
	}
	return m
}
