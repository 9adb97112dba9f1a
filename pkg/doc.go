// Package pkg provides the core libraries for onnxgraph.
//
// # Overview
//
// onnxgraph turns ONNX models into visual node graphs, where every operator is
// a vertex with typed ports, and translates edited graphs back into models
// that pass the checker. The pkg directory is organized into four areas:
//
//  1. Model plumbing: the ONNX wire format and its exchange-format graph
//  2. Visual graph: vertices, ports, connections and undoable edits
//  3. Layout and rendering: layered placement and node-link diagrams
//  4. Orchestration: caching, configuration and the load → layout → render
//     pipeline shared by the CLI and tests
//
// # Architecture
//
// The typical data flow through onnxgraph:
//
//	model.onnx
//	     ↓
//	[onnx] package (protobuf decode)
//	     ↓
//	[dataflow] package (named tensors and nodes)
//	     ↓
//	[translate] package (import)
//	     ↓
//	[nodegraph] package (vertices, ports, connections)
//	     ↓
//	[layout] package (Sugiyama positions)
//	     ↓
//	[render/nodelink] package (DOT, SVG, PDF, PNG)
//
// Export runs the middle of the chain backwards: [translate.ToModel]
// re-hydrates the visual graph, stamps producer metadata and runs
// [onnx.Check] before anything is written.
//
// # Quick Start
//
// Import a model, lay it out and render it:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/onnxgraph/pkg/dataflow"
//	    "github.com/matzehuels/onnxgraph/pkg/layout"
//	    "github.com/matzehuels/onnxgraph/pkg/onnx"
//	    "github.com/matzehuels/onnxgraph/pkg/render/nodelink"
//	    "github.com/matzehuels/onnxgraph/pkg/translate"
//	)
//
//	// 1. Decode the model
//	m, _ := onnx.ReadFile("model.onnx")
//	df, _ := dataflow.FromModel(m)
//
//	// 2. Build the visual graph
//	g, _ := translate.Import(df, translate.ImportOptions{})
//
//	// 3. Compute positions
//	_ = layout.Apply(g, layout.DefaultOptions())
//
//	// 4. Render to SVG
//	dot := nodelink.ToDOT(g, nodelink.Options{Positions: true})
//	svg, _ := nodelink.RenderSVG(context.Background(), dot)
//
// # Main Packages
//
// ## Model Plumbing
//
// [tensor] - Element types, shapes, typed constant payloads and operator
// attributes shared by both graph representations.
//
// [onnx] - ONNX protobuf messages encoded with protowire, file helpers,
// the operator schema table and the model checker.
//
// [dataflow] - The exchange-format graph: nodes referring to named tensors,
// with conversion to and from [onnx.ModelProto].
//
// ## Visual Graph
//
// [nodegraph] - Vertices with input and output ports, connections between
// them, port locking and the JSON session format.
//
// [undo] - Recorder and stack for undoable graph edits. Import records its
// vertex and connection creation as one group.
//
// [translate] - Import (dataflow → nodegraph) and export (nodegraph →
// checked model), including constant canonicalization.
//
// ## Layout and Rendering
//
// [dag] - Layered directed graph with dummy nodes and crossing counts.
//
// [dag/transform] - Cycle breaking, longest-path layering and edge
// subdivision.
//
// [layout] - Sugiyama placement of a visual graph: ordering, coordinates
// and scaling onto the canvas.
//
// [render/nodelink] - Graphviz DOT generation with shape edge labels, and
// SVG rendering through go-graphviz.
//
// [render] - Format conversion (SVG to PDF/PNG).
//
// ## Orchestration
//
// [pipeline] - Load → layout → render used by every CLI command. Layouts are
// cached by topology and renders by DOT source.
//
// [cache] - Cache interface with file and null implementations, key hashing
// and version scoping.
//
// [config] - TOML configuration for export metadata, layout and caching.
//
// [observability] - Pipeline and cache hooks with a logging implementation.
//
// [errors] - Coded errors with user-facing messages.
//
// [buildinfo] - Version information stamped at build time.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...              # All tests
//	go test ./pkg/translate/...    # Specific package
//	go test -run Example ./pkg/... # Examples only
//
// [tensor]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/tensor
// [onnx]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/onnx
// [dataflow]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/dataflow
// [nodegraph]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/nodegraph
// [undo]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/undo
// [translate]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/translate
// [dag]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/dag
// [dag/transform]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/dag/transform
// [layout]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/layout
// [render]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/render
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/render/nodelink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/buildinfo
// [translate.ToModel]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/translate#ToModel
// [onnx.Check]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/onnx#Check
// [onnx.ModelProto]: https://pkg.go.dev/github.com/matzehuels/onnxgraph/pkg/onnx#ModelProto
package pkg
