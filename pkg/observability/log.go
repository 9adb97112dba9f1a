package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes pipeline and cache events to a logger at debug level.
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks returns hooks that log to l.
func NewLogHooks(l *log.Logger) *LogHooks {
	return &LogHooks{Logger: l}
}

func (h *LogHooks) done(msg string, d time.Duration, err error, kv ...any) {
	kv = append(kv, "took", d.Round(time.Millisecond))
	if err != nil {
		h.Logger.Debug(msg+" failed", append(kv, "err", err)...)
		return
	}
	h.Logger.Debug(msg, kv...)
}

func (h *LogHooks) OnImportStart(_ context.Context, source string) {
	h.Logger.Debug("import started", "source", source)
}

func (h *LogHooks) OnImportComplete(_ context.Context, source string, vertexCount int, d time.Duration, err error) {
	h.done("import", d, err, "source", source, "vertices", vertexCount)
}

func (h *LogHooks) OnLayoutStart(_ context.Context, vertexCount, edgeCount int) {
	h.Logger.Debug("layout started", "vertices", vertexCount, "edges", edgeCount)
}

func (h *LogHooks) OnLayoutComplete(_ context.Context, cached bool, d time.Duration, err error) {
	h.done("layout", d, err, "cached", cached)
}

func (h *LogHooks) OnExportStart(_ context.Context, vertexCount int) {
	h.Logger.Debug("export started", "vertices", vertexCount)
}

func (h *LogHooks) OnExportComplete(_ context.Context, outcome string, warnings int, d time.Duration, err error) {
	h.done("export", d, err, "outcome", outcome, "warnings", warnings)
}

func (h *LogHooks) OnRenderStart(_ context.Context, format string) {
	h.Logger.Debug("render started", "format", format)
}

func (h *LogHooks) OnRenderComplete(_ context.Context, format string, size int, d time.Duration, err error) {
	h.done("render", d, err, "format", format, "bytes", size)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "type", keyType, "bytes", size)
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
)
