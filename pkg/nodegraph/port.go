package nodegraph

import (
	"fmt"
	"slices"
)

// Direction tells whether a port receives or emits data.
type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

// LockState is the structural lock of a port.
type LockState int

const (
	Unlocked LockState = iota
	Locked
)

func (s LockState) String() string {
	if s == Locked {
		return "locked"
	}
	return "unlocked"
}

// Port is an attachment point on a vertex. A port may hold any number of
// connections to ports of the opposite direction.
type Port struct {
	name  string
	dir   Direction
	owner *Vertex
	state LockState
	conns []*Port
}

// Name returns the port name.
func (p *Port) Name() string { return p.name }

// Direction returns whether the port is an input or an output.
func (p *Port) Direction() Direction { return p.dir }

// Vertex returns the owning vertex.
func (p *Port) Vertex() *Vertex { return p.owner }

// State returns the current lock state.
func (p *Port) State() LockState { return p.state }

// Locked reports whether the port rejects structural changes.
func (p *Port) Locked() bool { return p.state == Locked }

// Connections returns the connected peer ports in connection order.
func (p *Port) Connections() []*Port { return slices.Clone(p.conns) }

// ConnectedTo reports whether p is connected to q.
func (p *Port) ConnectedTo(q *Port) bool { return slices.Contains(p.conns, q) }

func (p *Port) String() string {
	return fmt.Sprintf("%s.%s", p.owner.name, p.name)
}

func (p *Port) link(q *Port) {
	p.conns = append(p.conns, q)
	q.conns = append(q.conns, p)
}

func (p *Port) unlink(q *Port) {
	p.conns = slices.DeleteFunc(p.conns, func(x *Port) bool { return x == q })
	q.conns = slices.DeleteFunc(q.conns, func(x *Port) bool { return x == p })
}
