// Package cache stores computed results keyed by content hashes.
//
// The only cached product today is a layout: the canvas positions that
// [layout.Compute] produces for a given edge list and spacing. Layouts of
// large models take long enough that re-running `onnxgraph layout` or
// `onnxgraph render` on an unchanged model should not recompute them.
//
// Two backends are provided: [FileCache] for the CLI, stored under the
// user's cache directory, and [NullCache] when caching is disabled.
// Keys come from a [Keyer], so callers can scope them (see [ScopedKeyer]).
//
// [layout.Compute]: github.com/matzehuels/onnxgraph/pkg/layout#Compute
package cache

import (
	"context"
	"time"
)

// Entry lifetimes.
const (
	LayoutTTL = 30 * 24 * time.Hour
	RenderTTL = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with expiration.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl <= 0 never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources held by the cache.
	Close() error
}

// LayoutKeyOpts are the layout parameters that change the result.
type LayoutKeyOpts struct {
	Reverse bool    `json:"reverse"`
	HGap    float64 `json:"hgap"`
	VGap    float64 `json:"vgap"`
	ScaleX  float64 `json:"scale_x"`
	ScaleY  float64 `json:"scale_y"`
}

// RenderKeyOpts are the rendering parameters that change an artifact.
type RenderKeyOpts struct {
	Format    string `json:"format"`
	Detailed  bool   `json:"detailed"`
	Positions bool   `json:"positions"`
}

// Keyer builds cache keys.
type Keyer interface {
	// LayoutKey keys the positions computed for a graph topology.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string
	// RenderKey keys a rendered diagram of a graph.
	RenderKey(graphHash string, opts RenderKeyOpts) string
}

// DefaultKeyer hashes the options into "kind:sha256" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey implements [Keyer].
func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", graphHash, opts)
}

// RenderKey implements [Keyer].
func (DefaultKeyer) RenderKey(graphHash string, opts RenderKeyOpts) string {
	return hashKey("render", graphHash, opts)
}
