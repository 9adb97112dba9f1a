package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/onnxgraph/pkg/nodegraph"
	"github.com/matzehuels/onnxgraph/pkg/render"
)

// pointsPerInch converts canvas units to Graphviz inches for pinned positions.
const pointsPerInch = 72.0

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the operator type, tensor type and attribute names to
	// node labels. When false, only the vertex name is shown.
	Detailed bool

	// Positions pins every vertex at its canvas position and switches the
	// engine to neato. When false, Graphviz computes its own layout.
	Positions bool
}

// EdgeLabel returns the text painted on connections leaving src: the shape
// of an input vertex's tensor, and nothing for every other vertex.
func EdgeLabel(src *nodegraph.Vertex) string {
	if src == nil || src.Kind() != nodegraph.KindInput || src.Tensor() == nil {
		return ""
	}
	return src.Tensor().Shape.String()
}

// ToDOT converts a visual graph to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG], [RenderPDF], or [RenderPNG].
//
// Input and output vertices are filled by kind. Constant operators are drawn
// dashed, like the placeholders they stand in for.
func ToDOT(g *nodegraph.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	if opts.Positions {
		buf.WriteString("  layout=neato;\n")
		buf.WriteString("  splines=true;\n")
	}
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=16];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, v := range g.Vertices() {
		attrs := fmtAttrs(v, fmtLabel(v, opts.Detailed))
		if opts.Positions {
			p := v.Position()
			attrs = append(attrs, fmt.Sprintf("pos=\"%s,%s!\"", fmtFloat(p.X/pointsPerInch), fmtFloat(p.Y/pointsPerInch)))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", v.Name(), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if label := EdgeLabel(e.From); label != "" {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.From.Name(), e.To.Name(), label)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From.Name(), e.To.Name())
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(v *nodegraph.Vertex, detailed bool) string {
	if !detailed {
		return v.Name()
	}

	var parts []string
	switch v.Kind() {
	case nodegraph.KindInput, nodegraph.KindOutput:
		t := v.Tensor()
		parts = append(parts, fmt.Sprintf("%s %s", t.DType, t.Shape))
	case nodegraph.KindOperator:
		parts = append(parts, "op: "+v.Op())
		if v.OpName() != "" && v.OpName() != v.Name() {
			parts = append(parts, "name: "+v.OpName())
		}
		if attrs := v.Attributes(); attrs != nil && attrs.Len() > 0 {
			parts = append(parts, "attrs: "+strings.Join(attrs.Keys(), ", "))
		}
	}

	return v.Name() + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(v *nodegraph.Vertex, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case v.Kind() == nodegraph.KindInput:
		attrs = append(attrs, "fillcolor=\"#dbeafe\"")
	case v.Kind() == nodegraph.KindOutput:
		attrs = append(attrs, "fillcolor=\"#dcfce7\"")
	case v.IsConstant():
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=black")
	}
	return attrs
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.-]+)\s+([0-9.-]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the Graphviz root element with one that has an
// origin-anchored viewBox and matching pixel size.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
// This is a convenience wrapper around [RenderSVG] and [render.ToPDF].
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// A scale of 2.0 produces a 2x resolution image.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
