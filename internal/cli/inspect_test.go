package cli

import (
	"context"
	"io"
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/onnxgraph/pkg/cache"
	"github.com/matzehuels/onnxgraph/pkg/nodegraph"
	"github.com/matzehuels/onnxgraph/pkg/pipeline"
)

func loadChain(t *testing.T) *nodegraph.Graph {
	t.Helper()
	r := pipeline.NewRunner(cache.NewNullCache(), nil, log.NewWithOptions(io.Discard, log.Options{}))
	g, err := r.Load(context.Background(), writeModel(t, t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestSummarize(t *testing.T) {
	s := summarize(loadChain(t))

	if s.Name != "chain" || s.Opset != 13 || s.IRVersion != 8 {
		t.Errorf("metadata = %q opset %d ir %d", s.Name, s.Opset, s.IRVersion)
	}
	if s.Operators != 2 || s.Constants != 0 || s.Edges != 3 {
		t.Errorf("operators=%d constants=%d edges=%d, want 2 0 3", s.Operators, s.Constants, s.Edges)
	}
	if len(s.Inputs) != 1 || s.Inputs[0].Name != "X" {
		t.Errorf("inputs = %v", s.Inputs)
	}
	if len(s.Outputs) != 1 || s.Outputs[0].Name != "Y" {
		t.Errorf("outputs = %v", s.Outputs)
	}
	want := []opCount{{"Relu", 1}, {"Sigmoid", 1}}
	if !slices.Equal(s.Ops, want) {
		t.Errorf("ops = %v, want %v", s.Ops, want)
	}
}

func TestEdgeLabels(t *testing.T) {
	g := loadChain(t)
	for _, v := range g.Vertices() {
		labels := edgeLabels(v)
		switch v.Kind() {
		case nodegraph.KindInput:
			if !slices.Equal(labels, []string{"[1, 3]"}) {
				t.Errorf("input labels = %v", labels)
			}
		default:
			if labels != nil {
				t.Errorf("%s labels = %v, want none", v.Name(), labels)
			}
		}
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestVertexListModelNavigation(t *testing.T) {
	m := NewVertexListModel(loadChain(t))
	if len(m.Vertices) != 4 {
		t.Fatalf("vertices = %d, want 4", len(m.Vertices))
	}

	tests := []struct {
		key        string
		wantCursor int
		wantDetail bool
	}{
		{"up", 0, false},
		{"down", 1, false},
		{"j", 2, false},
		{"down", 3, false},
		{"down", 3, false},
		{"k", 2, false},
		{"enter", 2, true},
		{"esc", 2, false},
	}
	var model tea.Model = m
	for _, tt := range tests {
		model, _ = model.Update(key(tt.key))
		got := model.(VertexListModel)
		if got.Cursor != tt.wantCursor || got.Detail != tt.wantDetail {
			t.Fatalf("after %q: cursor=%d detail=%v, want %d %v",
				tt.key, got.Cursor, got.Detail, tt.wantCursor, tt.wantDetail)
		}
	}
}

func TestVertexListModelScroll(t *testing.T) {
	m := NewVertexListModel(loadChain(t))
	m.Height = 2

	var model tea.Model = m
	for range 3 {
		model, _ = model.Update(key("down"))
	}
	got := model.(VertexListModel)
	if got.Cursor != 3 || got.Offset != 2 {
		t.Errorf("cursor=%d offset=%d, want 3 2", got.Cursor, got.Offset)
	}

	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	if h := model.(VertexListModel).Height; h != 32 {
		t.Errorf("height = %d, want 32", h)
	}
}

func TestVertexListModelQuit(t *testing.T) {
	m := NewVertexListModel(loadChain(t))
	for _, k := range []string{"q", "esc"} {
		if _, cmd := m.Update(key(k)); cmd == nil {
			t.Errorf("%q should quit", k)
		}
	}
	if _, cmd := m.Update(key("down")); cmd != nil {
		t.Error("navigation should not return a command")
	}
}

func TestVertexListModelView(t *testing.T) {
	m := NewVertexListModel(loadChain(t))
	view := m.View()
	for _, want := range []string{"Vertices", "relu0", "sig0", "Relu", "operator", "[1/4]"} {
		if !strings.Contains(view, want) {
			t.Errorf("list view missing %q:\n%s", want, view)
		}
	}

	for i, v := range m.Vertices {
		if v.Name() == "relu0" {
			m.Cursor = i
		}
	}
	m.Detail = true
	view = m.View()
	for _, want := range []string{"relu0", "op", "Relu", "esc back"} {
		if !strings.Contains(view, want) {
			t.Errorf("detail view missing %q:\n%s", want, view)
		}
	}
}

func TestVertexListModelEmpty(t *testing.T) {
	m := VertexListModel{Height: 10}
	if _, cmd := m.Update(key("enter")); cmd != nil {
		t.Error("enter on empty list should do nothing")
	}
	if !strings.Contains(m.View(), "(empty graph)") {
		t.Error("empty view should say so")
	}
}
