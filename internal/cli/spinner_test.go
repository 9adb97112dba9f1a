package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func quietSpinner(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	oldErr, oldOut := stderr, stdout
	stderr, stdout = &buf, io.Discard
	t.Cleanup(func() { stderr, stdout = oldErr, oldOut })
	return &buf
}

func TestSpinnerDraws(t *testing.T) {
	buf := quietSpinner(t)
	s := newSpinner("Rendering svg...")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if !strings.Contains(buf.String(), "Rendering svg...") {
		t.Errorf("spinner output missing message: %q", buf.String())
	}
	if s.Cancelled() {
		t.Error("Stop should not count as parent cancellation")
	}
}

func TestSpinnerUpdate(t *testing.T) {
	buf := quietSpinner(t)
	s := newSpinner("Loading...")
	s.Start()
	s.Update("Writing model.onnx...")
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if !strings.Contains(buf.String(), "Writing model.onnx...") {
		t.Errorf("spinner output missing updated message: %q", buf.String())
	}
}

func TestSpinnerContextCancel(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
	}{
		{"cancel", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, cancel
		}},
		{"timeout", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 20*time.Millisecond)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quietSpinner(t)
			ctx, cancel := tt.ctx()
			defer cancel()

			s := newSpinnerWithContext(ctx, "Working...")
			s.Start()
			time.Sleep(100 * time.Millisecond)
			if !s.Cancelled() {
				t.Error("spinner should report cancellation")
			}
			s.Stop()
		})
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	quietSpinner(t)
	s := newSpinner("Stopping...")
	s.Start()
	s.Stop()
	s.Stop()
	s.StopWithSuccess("Done")
	s.StopWithError("Failed")
	if s.Cancelled() {
		t.Error("repeated Stop reported as cancellation")
	}
}
