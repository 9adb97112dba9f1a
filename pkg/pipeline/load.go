package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matzehuels/onnxgraph/pkg/dataflow"
	oerrors "github.com/matzehuels/onnxgraph/pkg/errors"
	"github.com/matzehuels/onnxgraph/pkg/nodegraph"
	"github.com/matzehuels/onnxgraph/pkg/observability"
	"github.com/matzehuels/onnxgraph/pkg/onnx"
	"github.com/matzehuels/onnxgraph/pkg/translate"
	"github.com/matzehuels/onnxgraph/pkg/undo"
)

// SessionExt marks files holding a saved visual graph rather than a model.
const SessionExt = ".json"

// Load reads path and returns its visual graph. Session files are restored
// as saved; anything else is decoded as an ONNX model and imported. The
// graph records edits on a fresh undo stack.
func (r *Runner) Load(ctx context.Context, path string) (g *nodegraph.Graph, err error) {
	hooks := observability.Pipeline()
	hooks.OnImportStart(ctx, path)
	start := time.Now()
	defer func() {
		hooks.OnImportComplete(ctx, path, vertexCount(g), time.Since(start), err)
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, oerrors.New(oerrors.ErrCodeFileNotFound, "%s does not exist", path)
		}
		return nil, oerrors.Wrap(oerrors.ErrCodeInvalidPath, err, "stat %s", path)
	}

	rec := undo.NewStack()
	if IsSession(path) {
		g, err = nodegraph.ReadFile(path, rec)
		if err != nil {
			return nil, err
		}
		r.Logger.Debug("restored session", "path", path, "vertices", g.Len())
		return g, nil
	}

	m, err := onnx.ReadFile(path)
	if err != nil {
		return nil, err
	}
	src, err := dataflow.FromModel(m)
	if err != nil {
		return nil, err
	}
	return translate.Import(src, translate.ImportOptions{Recorder: rec, Logger: r.Logger})
}

// IsSession reports whether path names a saved session.
func IsSession(path string) bool {
	return strings.EqualFold(filepath.Ext(path), SessionExt)
}
