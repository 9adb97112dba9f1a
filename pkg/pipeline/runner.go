package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/onnxgraph/pkg/cache"
	"github.com/matzehuels/onnxgraph/pkg/nodegraph"
	"github.com/matzehuels/onnxgraph/pkg/observability"
)

// Runner executes pipeline stages with caching.
//
// The Runner is stateless except for the cache and logger. Graphs are not
// safe for concurrent use, so callers must not share one graph between
// concurrent stage calls.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs load → layout → render.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := r.logger(opts.Logger)
	result := &Result{Artifacts: make(map[string][]byte)}

	// Stage 1: Load
	start := time.Now()
	g, err := r.Load(ctx, opts.Source)
	if err != nil {
		return nil, err
	}
	result.Graph = g
	result.Stats.LoadTime = time.Since(start)
	result.Stats.VertexCount = g.Len()
	result.Stats.EdgeCount = len(g.Edges())

	logger.Info("loaded model",
		"vertices", result.Stats.VertexCount,
		"edges", result.Stats.EdgeCount,
		"duration", result.Stats.LoadTime)

	// Stage 2: Layout
	if !opts.SkipLayout {
		start = time.Now()
		hit, err := r.layout(ctx, g, opts.Layout, opts.Refresh)
		if err != nil {
			return nil, fmt.Errorf("layout: %w", err)
		}
		result.Stats.LayoutTime = time.Since(start)
		result.CacheInfo.LayoutHit = hit

		logger.Info("computed layout",
			"cached", hit,
			"duration", result.Stats.LayoutTime)
	}

	// Stage 3: Render
	if len(opts.Formats) > 0 {
		start = time.Now()
		artifacts, hit, err := r.render(ctx, g, opts)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		result.Artifacts = artifacts
		result.Stats.RenderTime = time.Since(start)
		result.CacheInfo.RenderHit = hit

		logger.Info("rendered outputs",
			"formats", opts.Formats,
			"duration", result.Stats.RenderTime)
	}

	return result, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) logger(l *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return r.Logger
}

// cacheGet reads key and reports the hit or miss to the cache hooks.
func (r *Runner) cacheGet(ctx context.Context, keyType, key string) ([]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "type", keyType, "err", err)
		hit = false
	}
	if hit {
		observability.Cache().OnCacheHit(ctx, keyType)
	} else {
		observability.Cache().OnCacheMiss(ctx, keyType)
	}
	return data, hit
}

// cacheSet writes key and reports it to the cache hooks. Failures are
// logged, never returned.
func (r *Runner) cacheSet(ctx context.Context, keyType, key string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "type", keyType, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// vertexCount reports the size of g, tolerating nil.
func vertexCount(g *nodegraph.Graph) int {
	if g == nil {
		return 0
	}
	return g.Len()
}
