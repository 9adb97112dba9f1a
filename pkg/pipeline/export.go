package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/onnxgraph/pkg/nodegraph"
	"github.com/matzehuels/onnxgraph/pkg/observability"
	"github.com/matzehuels/onnxgraph/pkg/translate"
)

// Export translates g back into a checked model.
func (r *Runner) Export(ctx context.Context, g *nodegraph.Graph, opts translate.ExportOptions) translate.Result {
	hooks := observability.Pipeline()
	hooks.OnExportStart(ctx, g.Len())
	start := time.Now()

	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	res := translate.ToModel(g, opts)
	hooks.OnExportComplete(ctx, res.Outcome.String(), len(res.Warnings), time.Since(start), res.Reason)
	return res
}

// Save exports g and writes the model to path on success.
func (r *Runner) Save(ctx context.Context, g *nodegraph.Graph, path string, opts translate.ExportOptions) (translate.Result, error) {
	hooks := observability.Pipeline()
	hooks.OnExportStart(ctx, g.Len())
	start := time.Now()

	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	res, err := translate.Save(g, path, opts)
	hooks.OnExportComplete(ctx, res.Outcome.String(), len(res.Warnings), time.Since(start), err)
	return res, err
}
