package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/onnxgraph/pkg/nodegraph"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	detailKeyStyle    = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

// =============================================================================
// VertexListModel - Interactive vertex browser
// =============================================================================

// VertexListModel is the bubbletea model behind `inspect --interactive`.
type VertexListModel struct {
	Vertices []*nodegraph.Vertex
	Cursor   int
	Height   int
	Offset   int
	// Detail shows the selected vertex's tensors and attributes.
	Detail bool
}

// NewVertexListModel lists the vertices of g in creation order.
func NewVertexListModel(g *nodegraph.Graph) VertexListModel {
	return VertexListModel{
		Vertices: g.Vertices(),
		Height:   15,
	}
}

func (m VertexListModel) Init() tea.Cmd {
	return nil
}

func (m VertexListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.Detail {
				m.Detail = false
				return m, nil
			}
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Vertices)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Vertices) > 0 {
				m.Detail = !m.Detail
			}
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m VertexListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Vertices"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ details  q quit"))
	b.WriteString("\n\n")

	if len(m.Vertices) == 0 {
		b.WriteString(listDimStyle.Render("  (empty graph)"))
		return b.String()
	}
	if m.Detail {
		b.WriteString(vertexDetail(m.Vertices[m.Cursor]))
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Vertices))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		v := m.Vertices[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, v.Name(), v.Kind().String(), vertexType(v),
			fmt.Sprint(len(v.Predecessors())), fmt.Sprint(len(v.Successors()))})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Name", "Kind", "Type", "In", "Out").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			if col >= 4 {
				return listDimStyle
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Vertices))))

	return b.String()
}

// vertexType is the op for operators and "dtype shape" for boundaries.
func vertexType(v *nodegraph.Vertex) string {
	if v.Kind() == nodegraph.KindOperator {
		return v.Op()
	}
	t := v.Tensor()
	return fmt.Sprintf("%s %s", t.DType, t.Shape)
}

func vertexDetail(v *nodegraph.Vertex) string {
	var b strings.Builder
	line := func(k, val string) {
		b.WriteString(detailKeyStyle.Render(k) + " " + StyleValue.Render(val) + "\n")
	}

	line("name", v.Name())
	line("kind", v.Kind().String())
	line("position", fmt.Sprintf("(%g, %g)", v.Position().X, v.Position().Y))
	switch v.Kind() {
	case nodegraph.KindInput, nodegraph.KindOutput:
		line("tensor", v.Tensor().String())
	case nodegraph.KindOperator:
		line("op", v.Op())
		if v.OpName() != "" {
			line("onnx name", v.OpName())
		}
		if v.Domain() != "" {
			line("domain", v.Domain())
		}
		for i, t := range v.Inputs() {
			line(fmt.Sprintf("input %d", i), t.String())
		}
		for i, t := range v.Outputs() {
			line(fmt.Sprintf("output %d", i), t.String())
		}
		for name, a := range v.Attributes().All() {
			line("@"+name, a.Format())
		}
	}
	if labels := edgeLabels(v); len(labels) > 0 {
		line("edge label", strings.Join(labels, ", "))
	}
	for _, p := range v.Ports() {
		line("port "+p.Name(), fmt.Sprintf("%s, %s, %d connections", p.Direction(), p.State(), len(p.Connections())))
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("esc back"))
	return b.String()
}
