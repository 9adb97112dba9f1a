package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/onnxgraph/pkg/cache"
	"github.com/matzehuels/onnxgraph/pkg/nodegraph"
	"github.com/matzehuels/onnxgraph/pkg/observability"
	"github.com/matzehuels/onnxgraph/pkg/render/nodelink"
)

// Render draws g in every format of opts.Formats, keyed by format.
func (r *Runner) Render(ctx context.Context, g *nodegraph.Graph, opts Options) (map[string][]byte, error) {
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, err
	}
	artifacts, _, err := r.render(ctx, g, opts)
	return artifacts, err
}

// render reports whether every artifact came from the cache. Artifacts
// are keyed by the DOT source, so any change to names, kinds, shapes or
// positions that shows in the drawing misses the cache.
func (r *Runner) render(ctx context.Context, g *nodegraph.Graph, opts Options) (map[string][]byte, bool, error) {
	dot := nodelink.ToDOT(g, opts.DiagramOptions())
	hash := cache.Hash([]byte(dot))

	artifacts := make(map[string][]byte, len(opts.Formats))
	allCached := true
	for _, format := range opts.Formats {
		key := r.Keyer.RenderKey(hash, opts.RenderKeyOpts(format))
		if !opts.Refresh {
			if data, ok := r.cacheGet(ctx, "render", key); ok {
				artifacts[format] = data
				continue
			}
		}
		allCached = false

		data, err := r.renderFormat(ctx, dot, format)
		if err != nil {
			return nil, false, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
		r.cacheSet(ctx, "render", key, data, cache.RenderTTL)
	}
	return artifacts, allCached, nil
}

func (r *Runner) renderFormat(ctx context.Context, dot, format string) (data []byte, err error) {
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, format)
	start := time.Now()
	defer func() {
		hooks.OnRenderComplete(ctx, format, len(data), time.Since(start), err)
	}()

	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		return nodelink.RenderSVG(ctx, dot)
	case FormatPNG:
		return nodelink.RenderPNG(ctx, dot, DefaultPNGScale)
	case FormatPDF:
		return nodelink.RenderPDF(ctx, dot)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
