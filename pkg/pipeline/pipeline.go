// Package pipeline runs the model workflows shared by every onnxgraph
// command.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Load: Read an ONNX model (or a saved JSON session) and import it as a
//     visual node graph
//  2. Layout: Compute canvas positions for every vertex, cached by topology
//  3. Export: Translate the visual graph back to a checked ONNX model
//  4. Render: Draw the graph as SVG, PNG, PDF or DOT, cached by content
//
// Each stage can be run independently or as part of [Runner.Execute].
// Every stage reports to the hooks registered in [observability].
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Source:  "model.onnx",
//	    Layout:  layout.DefaultOptions(),
//	    Formats: []string{"svg"},
//	})
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	g, err := runner.Load(ctx, "model.onnx")
//	hit, err := runner.Layout(ctx, g, layout.DefaultOptions())
//	res := runner.Export(ctx, g, translate.ExportOptions{})
//
// [observability]: github.com/matzehuels/onnxgraph/pkg/observability
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/onnxgraph/pkg/cache"
	"github.com/matzehuels/onnxgraph/pkg/layout"
	"github.com/matzehuels/onnxgraph/pkg/nodegraph"
	"github.com/matzehuels/onnxgraph/pkg/render/nodelink"
	"github.com/matzehuels/onnxgraph/pkg/translate"
)

// Format constants for output formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatPDF = "pdf"
	FormatDOT = "dot"
)

// DefaultPNGScale is the PNG resolution multiplier.
const DefaultPNGScale = 2.0

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG: true,
	FormatPNG: true,
	FormatPDF: true,
	FormatDOT: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for [Runner.Execute].
type Options struct {
	// Source is the model or session file to load.
	Source string

	// Layout options. SkipLayout keeps the stored positions.
	Layout     layout.Options
	SkipLayout bool

	// Render options. No formats means no rendering.
	Formats  []string
	Detailed bool
	// Positions draws vertices at their layout positions instead of
	// letting Graphviz place them.
	Positions bool

	// Refresh ignores cached results but still stores fresh ones.
	Refresh bool

	// Logger receives progress messages. Nil uses the runner's logger.
	Logger *log.Logger `json:"-"`
}

// Validate checks the options before any stage runs.
func (o *Options) Validate() error {
	if o.Source == "" {
		return fmt.Errorf("source is required")
	}
	return ValidateFormats(o.Formats)
}

// LayoutKeyOpts returns cache key options for the layout stage.
func LayoutKeyOpts(opts layout.Options) cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Reverse: opts.Reverse,
		HGap:    opts.HGap,
		VGap:    opts.VGap,
		ScaleX:  opts.ScaleX,
		ScaleY:  opts.ScaleY,
	}
}

// RenderKeyOpts returns cache key options for one rendered format.
func (o *Options) RenderKeyOpts(format string) cache.RenderKeyOpts {
	return cache.RenderKeyOpts{
		Format:    format,
		Detailed:  o.Detailed,
		Positions: o.Positions,
	}
}

// DiagramOptions returns the node-link options for the render stage.
func (o *Options) DiagramOptions() nodelink.Options {
	return nodelink.Options{Detailed: o.Detailed, Positions: o.Positions}
}

// =============================================================================
// Result
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// Graph is the imported visual graph, positioned unless SkipLayout.
	Graph *nodegraph.Graph

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	VertexCount int
	EdgeCount   int
	LoadTime    time.Duration
	LayoutTime  time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether positions came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// ExportSummary is a loggable digest of a [translate.Result].
func ExportSummary(res translate.Result) []any {
	kv := []any{"outcome", res.Outcome, "warnings", len(res.Warnings)}
	if res.Reason != nil {
		kv = append(kv, "reason", res.Reason)
	}
	return kv
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: svg, png, pdf, dot)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ParseFormats splits a comma-separated format list, trimming blanks.
func ParseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
