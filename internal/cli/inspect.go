package cli

import (
	"cmp"
	"fmt"
	"os"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matzehuels/onnxgraph/pkg/nodegraph"
	"github.com/matzehuels/onnxgraph/pkg/render/nodelink"
	"github.com/matzehuels/onnxgraph/pkg/tensor"
)

// opCount is one row of the operator histogram.
type opCount struct {
	Op    string
	Count int
}

// summary is what inspect reports about a graph.
type summary struct {
	Name      string
	Producer  string
	Opset     int64
	IRVersion int64
	FileSize  int64

	Inputs  []*tensor.TensorRef
	Outputs []*tensor.TensorRef

	Operators      int
	Constants      int
	ConstantValues int
	Edges          int
	Ops            []opCount
}

// summarize collects counts from g. Ops are sorted by count, then name.
func summarize(g *nodegraph.Graph) summary {
	s := summary{
		Name:      g.Name,
		Producer:  strings.TrimSpace(g.ProducerName + " " + g.ProducerVersion),
		Opset:     g.Opset,
		IRVersion: g.IRVersion,
		Edges:     len(g.Edges()),
	}

	counts := make(map[string]int)
	for _, v := range g.Vertices() {
		switch v.Kind() {
		case nodegraph.KindInput:
			s.Inputs = append(s.Inputs, v.Tensor())
		case nodegraph.KindOutput:
			s.Outputs = append(s.Outputs, v.Tensor())
		case nodegraph.KindOperator:
			s.Operators++
			counts[v.Op()]++
			if v.IsConstant() {
				s.Constants++
			}
			for _, t := range v.Inputs() {
				s.ConstantValues += t.Values.Len()
			}
			for _, t := range v.Outputs() {
				s.ConstantValues += t.Values.Len()
			}
		}
	}

	for op, n := range counts {
		s.Ops = append(s.Ops, opCount{Op: op, Count: n})
	}
	slices.SortFunc(s.Ops, func(a, b opCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Op, b.Op)
	})
	return s
}

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "inspect [model]",
		Short: "Summarize a model or session",
		Long: `Inspect loads an ONNX model (or a saved .json session), imports it and
prints its metadata, boundary tensors and operator histogram.

With --interactive, browse the vertices and their attributes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := c.newRunner()
			if err != nil {
				return err
			}
			defer runner.Close()

			g, err := runner.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if interactive {
				_, err := tea.NewProgram(NewVertexListModel(g), tea.WithContext(cmd.Context())).Run()
				return err
			}

			s := summarize(g)
			if info, err := os.Stat(args[0]); err == nil {
				s.FileSize = info.Size()
			}
			printSummary(s)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse vertices interactively")
	return cmd
}

func printSummary(s summary) {
	fmt.Fprintln(stdout, StyleTitle.Render(cmp.Or(s.Name, "(unnamed graph)")))
	printKeyValue("opset", fmt.Sprint(s.Opset))
	printKeyValue("ir version", fmt.Sprint(s.IRVersion))
	if s.Producer != "" {
		printKeyValue("producer", s.Producer)
	}
	if s.FileSize > 0 {
		printKeyValue("file size", humanize.Bytes(uint64(s.FileSize)))
	}
	printKeyValue("operators", StyleNumber.Render(humanize.Comma(int64(s.Operators))))
	printKeyValue("constants", fmt.Sprintf("%s (%s values)",
		humanize.Comma(int64(s.Constants)), humanize.Comma(int64(s.ConstantValues))))
	printKeyValue("connections", humanize.Comma(int64(s.Edges)))
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, tensorTable(s.Inputs, s.Outputs))
	if len(s.Ops) > 0 {
		fmt.Fprintln(stdout, opTable(s.Ops))
	}
}

var headerStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// tensorTable lists the graph boundary. Shapes use the edge-label text.
func tensorTable(inputs, outputs []*tensor.TensorRef) string {
	t := newTable("", "Tensor", "DType", "Shape")
	for _, in := range inputs {
		t.Row("in", in.Name, in.DType.String(), in.Shape.String())
	}
	for _, out := range outputs {
		t.Row("out", out.Name, out.DType.String(), out.Shape.String())
	}
	return t.Render()
}

func opTable(ops []opCount) string {
	t := newTable("Op", "Count")
	for _, o := range ops {
		t.Row(o.Op, humanize.Comma(int64(o.Count)))
	}
	return t.Render()
}

// edgeLabels lists the painted label of each connection leaving v.
func edgeLabels(v *nodegraph.Vertex) []string {
	label := nodelink.EdgeLabel(v)
	if label == "" {
		return nil
	}
	var out []string
	for _, p := range v.OutputPorts() {
		for range p.Connections() {
			out = append(out, label)
		}
	}
	return out
}
