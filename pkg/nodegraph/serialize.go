package nodegraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/matzehuels/onnxgraph/pkg/tensor"
	"github.com/matzehuels/onnxgraph/pkg/undo"
)

// SessionVersion is the version of the JSON session format.
const SessionVersion = 1

// ErrSessionVersion is returned by [Unmarshal] for unsupported versions.
var ErrSessionVersion = errors.New("unsupported session version")

type sessionFile struct {
	Version     int              `json:"version"`
	Graph       graphRecord      `json:"graph"`
	Vertices    []vertexRecord   `json:"vertices"`
	Connections []connectionJSON `json:"connections"`
}

type graphRecord struct {
	Name            string   `json:"name"`
	Opset           int64    `json:"opset"`
	DocString       string   `json:"doc_string,omitempty"`
	ImportDomains   []Domain `json:"import_domains,omitempty"`
	ProducerName    string   `json:"producer_name,omitempty"`
	ProducerVersion string   `json:"producer_version,omitempty"`
	IRVersion       int64    `json:"ir_version,omitempty"`
	ModelVersion    int64    `json:"model_version,omitempty"`
}

type portRecord struct {
	Name   string `json:"name"`
	Locked bool   `json:"locked,omitempty"`
}

type vertexRecord struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Kind     Kind      `json:"kind"`
	Position Point     `json:"position"`

	Tensor *tensor.TensorRef `json:"tensor,omitempty"`

	Op      string                  `json:"op,omitempty"`
	OpName  string                  `json:"op_name,omitempty"`
	Domain  string                  `json:"domain,omitempty"`
	Attrs   []tensor.NamedAttribute `json:"attrs,omitempty"`
	Inputs  []*tensor.TensorRef     `json:"inputs,omitempty"`
	Outputs []*tensor.TensorRef     `json:"outputs,omitempty"`

	InPorts  []portRecord `json:"in_ports"`
	OutPorts []portRecord `json:"out_ports"`
}

type connectionJSON struct {
	From     uuid.UUID `json:"from"`
	FromPort string    `json:"from_port"`
	To       uuid.UUID `json:"to"`
	ToPort   string    `json:"to_port"`
}

// Marshal encodes g as an indented JSON session.
func Marshal(g *Graph) ([]byte, error) {
	f := sessionFile{
		Version: SessionVersion,
		Graph: graphRecord{
			Name:            g.Name,
			Opset:           g.Opset,
			DocString:       g.DocString,
			ImportDomains:   g.ImportDomains,
			ProducerName:    g.ProducerName,
			ProducerVersion: g.ProducerVersion,
			IRVersion:       g.IRVersion,
			ModelVersion:    g.ModelVersion,
		},
		Vertices:    make([]vertexRecord, 0, len(g.vertices)),
		Connections: []connectionJSON{},
	}
	for _, v := range g.vertices {
		r := vertexRecord{
			ID:       v.id,
			Name:     v.name,
			Kind:     v.kind,
			Position: v.pos,
			Tensor:   v.tensor,
			Op:       v.op,
			OpName:   v.opName,
			Domain:   v.domain,
			Inputs:   v.inputs,
			Outputs:  v.outputs,
			InPorts:  portRecords(v.in),
			OutPorts: portRecords(v.out),
		}
		if v.attrs != nil {
			r.Attrs = v.attrs.List()
		}
		f.Vertices = append(f.Vertices, r)
	}
	for _, e := range g.Edges() {
		f.Connections = append(f.Connections, connectionJSON{
			From: e.From.id, FromPort: e.FromPort.name,
			To: e.To.id, ToPort: e.ToPort.name,
		})
	}
	return json.MarshalIndent(f, "", "  ")
}

func portRecords(ports []*Port) []portRecord {
	out := make([]portRecord, len(ports))
	for i, p := range ports {
		out[i] = portRecord{Name: p.name, Locked: p.Locked()}
	}
	return out
}

// Unmarshal decodes a JSON session into a new graph that records to rec.
// Vertex identities, names, ports, connections and lock states are
// restored exactly.
func Unmarshal(data []byte, rec undo.Recorder) (*Graph, error) {
	var f sessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if f.Version != SessionVersion {
		return nil, fmt.Errorf("%w: %d", ErrSessionVersion, f.Version)
	}

	g := New(rec)
	g.Name = f.Graph.Name
	g.Opset = f.Graph.Opset
	g.DocString = f.Graph.DocString
	g.ImportDomains = f.Graph.ImportDomains
	g.ProducerName = f.Graph.ProducerName
	g.ProducerVersion = f.Graph.ProducerVersion
	g.IRVersion = f.Graph.IRVersion
	g.ModelVersion = f.Graph.ModelVersion

	byID := make(map[uuid.UUID]*Vertex, len(f.Vertices))
	for _, r := range f.Vertices {
		if _, dup := byID[r.ID]; dup {
			return nil, fmt.Errorf("decode session: duplicate vertex id %s", r.ID)
		}
		if _, dup := g.names[r.Name]; dup || r.Name == "" {
			return nil, fmt.Errorf("decode session: invalid or duplicate vertex name %q", r.Name)
		}
		build, ok := factories[r.Kind]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKind, r.Kind)
		}
		v := &Vertex{id: r.ID, name: r.Name, kind: r.Kind, pos: r.Position}
		spec := Spec{
			Tensor: r.Tensor, Op: r.Op, OpName: r.OpName, Domain: r.Domain,
			Attrs: tensor.AttributesFromList(r.Attrs), Inputs: r.Inputs, Outputs: r.Outputs,
		}
		if err := build(v, spec); err != nil {
			return nil, fmt.Errorf("decode session: vertex %q: %w", r.Name, err)
		}
		v.in = restorePorts(v, r.InPorts, In)
		v.out = restorePorts(v, r.OutPorts, Out)
		g.insert(v, len(g.vertices))
		byID[v.id] = v
	}

	for _, c := range f.Connections {
		src := findPort(byID[c.From], c.FromPort, Out)
		dst := findPort(byID[c.To], c.ToPort, In)
		if src == nil || dst == nil {
			return nil, fmt.Errorf("decode session: dangling connection %s.%s -> %s.%s", c.From, c.FromPort, c.To, c.ToPort)
		}
		if !src.ConnectedTo(dst) {
			src.link(dst)
		}
	}
	// Locks are applied last so that the links above are not rejected.
	for i, r := range f.Vertices {
		v := g.vertices[i]
		for j, pr := range r.InPorts {
			if pr.Locked {
				v.in[j].state = Locked
			}
		}
		for j, pr := range r.OutPorts {
			if pr.Locked {
				v.out[j].state = Locked
			}
		}
	}
	return g, nil
}

func restorePorts(v *Vertex, records []portRecord, dir Direction) []*Port {
	out := make([]*Port, len(records))
	for i, r := range records {
		out[i] = &Port{name: r.Name, dir: dir, owner: v}
	}
	return out
}

func findPort(v *Vertex, name string, dir Direction) *Port {
	if v == nil {
		return nil
	}
	ports := v.in
	if dir == Out {
		ports = v.out
	}
	for _, p := range ports {
		if p.name == name {
			return p
		}
	}
	return nil
}

// WriteFile writes g as a JSON session to path.
func WriteFile(path string, g *Graph) error {
	data, err := Marshal(g)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// ReadFile reads a JSON session from path.
func ReadFile(path string, rec undo.Recorder) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	return Unmarshal(data, rec)
}
