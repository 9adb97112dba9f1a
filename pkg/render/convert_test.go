package render

import (
	"context"
	"errors"
	"testing"
)

func TestConvertMissingTool(t *testing.T) {
	old := converter
	converter = "rsvg-convert-does-not-exist"
	t.Cleanup(func() { converter = old })

	tests := []struct {
		name string
		fn   func() ([]byte, error)
	}{
		{"pdf", func() ([]byte, error) { return ToPDF(context.Background(), []byte("<svg/>")) }},
		{"png", func() ([]byte, error) { return ToPNG(context.Background(), []byte("<svg/>"), 2) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.fn(); !errors.Is(err, ErrConverterMissing) {
				t.Errorf("err = %v, want ErrConverterMissing", err)
			}
		})
	}
}
