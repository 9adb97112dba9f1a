package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/onnxgraph/pkg/cache"
	"github.com/matzehuels/onnxgraph/pkg/layout"
	"github.com/matzehuels/onnxgraph/pkg/nodegraph"
	"github.com/matzehuels/onnxgraph/pkg/observability"
)

// topology is the part of a graph a layout depends on.
type topology struct {
	Vertices int      `json:"vertices"`
	Edges    [][2]int `json:"edges"`
}

// TopologyHash hashes the vertex count and edge list that
// [layout.Compute] would see for g.
func TopologyHash(g *nodegraph.Graph, reverse bool) (string, error) {
	return cache.HashJSON(topology{Vertices: g.Len(), Edges: layout.Edges(g, reverse)})
}

// Layout positions every vertex of g, reusing cached positions for an
// identical topology. It reports whether the cache was hit. A graph
// without edges is left untouched.
func (r *Runner) Layout(ctx context.Context, g *nodegraph.Graph, opts layout.Options) (bool, error) {
	return r.layout(ctx, g, opts, false)
}

func (r *Runner) layout(ctx context.Context, g *nodegraph.Graph, opts layout.Options, refresh bool) (hit bool, err error) {
	hooks := observability.Pipeline()
	edges := layout.Edges(g, opts.Reverse)
	hooks.OnLayoutStart(ctx, g.Len(), len(edges))
	start := time.Now()
	defer func() {
		hooks.OnLayoutComplete(ctx, hit, time.Since(start), err)
	}()

	if len(edges) == 0 {
		return false, nil
	}
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}

	hash, err := cache.HashJSON(topology{Vertices: g.Len(), Edges: edges})
	if err != nil {
		return false, err
	}
	key := r.Keyer.LayoutKey(hash, LayoutKeyOpts(opts))

	if !refresh {
		if data, ok := r.cacheGet(ctx, "layout", key); ok {
			var points []nodegraph.Point
			if err := json.Unmarshal(data, &points); err == nil && len(points) == g.Len() {
				return true, layout.Place(g, points, opts.Record)
			}
			r.Logger.Debug("discarding unusable cached layout", "key", key)
		}
	}

	points, res, err := layout.Compute(g, opts)
	if err != nil {
		return false, err
	}
	if err := layout.Place(g, points, opts.Record); err != nil {
		return false, err
	}
	r.Logger.Debug("computed layout",
		"vertices", g.Len(),
		"layers", res.Layers,
		"reversed", res.Reversed,
		"dummies", res.Dummies,
		"crossings", res.Crossings)

	if data, err := json.Marshal(points); err == nil {
		r.cacheSet(ctx, "layout", key, data, cache.LayoutTTL)
	}
	return false, nil
}
