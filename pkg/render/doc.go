// Package render provides visualization output for visual node graphs.
//
// # Overview
//
// This package contains the pieces that turn a [nodegraph.Graph] into
// something a person can look at:
//
//   - Generic format conversion (SVG to PDF/PNG)
//   - Node-link diagrams (in [nodelink] subpackage)
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg). When the tool is missing
// they return [ErrConverterMissing].
//
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
//
// # Node-Link Diagrams
//
// The [nodelink] subpackage renders the visual graph using Graphviz, either
// with Graphviz's own layout or pinned at the positions computed by
// [layout.Apply].
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Positions: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [nodegraph.Graph]: github.com/matzehuels/onnxgraph/pkg/nodegraph#Graph
// [layout.Apply]: github.com/matzehuels/onnxgraph/pkg/layout#Apply
// [nodelink]: github.com/matzehuels/onnxgraph/pkg/render/nodelink
package render
