package layout

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/onnxgraph/pkg/nodegraph"
)

// Defaults for [Options].
const (
	DefaultHGap   = 2.0
	DefaultVGap   = 1.0
	DefaultScaleX = -240.0
	DefaultScaleY = -120.0
)

// GroupLabel labels the undo group opened by [Apply].
const GroupLabel = "Auto Layout Nodes"

// Options configures [Apply]. Zero gaps and scales fall back to the
// defaults.
type Options struct {
	// Reverse indexes vertices from the most recently created one, so
	// consumers become layout sources.
	Reverse bool
	HGap    float64
	VGap    float64
	ScaleX  float64
	ScaleY  float64
	Orderer Orderer
	// Record pushes the moves as one undoable group.
	Record bool
	// Logger receives debug output. Nil discards it.
	Logger *log.Logger
}

// DefaultOptions returns the reversed layout with default spacing.
func DefaultOptions() Options {
	return Options{
		Reverse: true,
		HGap:    DefaultHGap,
		VGap:    DefaultVGap,
		ScaleX:  DefaultScaleX,
		ScaleY:  DefaultScaleY,
	}
}

func (o Options) withDefaults() Options {
	if o.HGap == 0 {
		o.HGap = DefaultHGap
	}
	if o.VGap == 0 {
		o.VGap = DefaultVGap
	}
	if o.ScaleX == 0 {
		o.ScaleX = DefaultScaleX
	}
	if o.ScaleY == 0 {
		o.ScaleY = DefaultScaleY
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return o
}

// Compute lays out g without moving anything. It returns the canvas
// position of every vertex in creation order, or nil when g has no edges.
func Compute(g *nodegraph.Graph, opts Options) ([]nodegraph.Point, Result, error) {
	opts = opts.withDefaults()
	edges := Edges(g, opts.Reverse)
	if len(edges) == 0 {
		return nil, Result{}, nil
	}
	res, err := Sugiyama(g.Len(), edges, Params{HGap: opts.HGap, VGap: opts.VGap, Orderer: opts.Orderer})
	if err != nil {
		return nil, Result{}, err
	}

	n := g.Len()
	out := make([]nodegraph.Point, n)
	for i, p := range res.Points {
		at := i
		if opts.Reverse {
			at = n - 1 - i
		}
		out[at] = nodegraph.Point{X: p.X * opts.ScaleX, Y: p.Y * opts.ScaleY}
	}
	return out, res, nil
}

// Apply lays out g and moves its vertices. A graph without edges is left
// untouched and no undo group is opened. Otherwise all moves form one
// group labelled [GroupLabel] when opts.Record is set.
func Apply(g *nodegraph.Graph, opts Options) error {
	opts = opts.withDefaults()
	start := time.Now()

	points, res, err := Compute(g, opts)
	if err != nil || points == nil {
		return err
	}
	if err := Place(g, points, opts.Record); err != nil {
		return err
	}
	opts.Logger.Debug("computed layout",
		"vertices", g.Len(),
		"layers", res.Layers,
		"crossings", res.Crossings,
		"duration", time.Since(start))
	return nil
}

// Place moves the vertices of g, in creation order, to points. Extra
// points or vertices are ignored. With record the moves form one undoable
// group labelled [GroupLabel].
func Place(g *nodegraph.Graph, points []nodegraph.Point, record bool) error {
	if len(points) == 0 {
		return nil
	}
	if record {
		g.BeginGroup(GroupLabel)
		defer g.EndGroup()
	}
	for i, v := range g.Vertices() {
		if i >= len(points) {
			break
		}
		if err := g.SetPosition(v, points[i], record); err != nil {
			return err
		}
	}
	return nil
}
