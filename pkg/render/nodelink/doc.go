// Package nodelink renders visual node graphs as node-link diagrams.
//
// # Overview
//
// This package produces the drawing-side data for a [nodegraph.Graph]:
// the text painted on each connection ([EdgeLabel]) and a Graphviz
// rendering of the whole graph. Vertices are boxes filled by kind, and
// constant operators are drawn dashed.
//
// # Usage
//
// Convert a graph to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// To draw the graph where [layout.Apply] placed it, set Positions. The
// output then uses the neato engine with every vertex pinned:
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Positions: true})
//
// For PDF or PNG output:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0)  // 2x scale
//
// # Edge Labels
//
// Connections leaving an input vertex are labelled with the tensor shape,
// for example "[1, 3]". All other connections are unlabelled.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
//
// [nodegraph.Graph]: github.com/matzehuels/onnxgraph/pkg/nodegraph#Graph
// [layout.Apply]: github.com/matzehuels/onnxgraph/pkg/layout#Apply
package nodelink
