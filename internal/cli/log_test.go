package cli

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name  string
		level log.Level
		emit  func(*log.Logger)
		want  bool
	}{
		{"info at info", log.InfoLevel, func(l *log.Logger) { l.Info("loaded model") }, true},
		{"debug at info", log.InfoLevel, func(l *log.Logger) { l.Debug("cache hit") }, false},
		{"debug at debug", log.DebugLevel, func(l *log.Logger) { l.Debug("cache hit") }, true},
		{"warn at info", log.InfoLevel, func(l *log.Logger) { l.Warn("schema warning") }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.emit(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.want {
				t.Errorf("wrote output = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewLoggerTimestamp(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, log.InfoLevel).Info("laid out", "vertices", 4)

	if !regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{2} `).Match(buf.Bytes()) {
		t.Errorf("missing HH:MM:SS.ms timestamp: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "vertices=4") {
		t.Errorf("missing key/value: %q", buf.String())
	}
}

func TestStepTimerDone(t *testing.T) {
	var buf bytes.Buffer
	step := startStep(newLogger(&buf, log.InfoLevel))
	time.Sleep(5 * time.Millisecond)
	step.done("exported model", "nodes", 3)

	out := buf.String()
	if !strings.Contains(out, "exported model") || !strings.Contains(out, "nodes=3") {
		t.Errorf("step line = %q", out)
	}
	if !regexp.MustCompile(`took=\d+(\.\d+)?m?s`).MatchString(out) {
		t.Errorf("step line has no duration: %q", out)
	}
}

func TestLoggerContext(t *testing.T) {
	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)

	tests := []struct {
		name string
		ctx  context.Context
		want *log.Logger
	}{
		{"attached", withLogger(context.Background(), custom), custom},
		{"missing", context.Background(), log.Default()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := loggerFromContext(tt.ctx); got != tt.want {
				t.Errorf("loggerFromContext() = %p, want %p", got, tt.want)
			}
		})
	}
}
