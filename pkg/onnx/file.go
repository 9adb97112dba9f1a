package onnx

import (
	"fmt"
	"os"
)

// ReadFile reads and decodes a model file.
func ReadFile(path string) (*ModelProto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return Unmarshal(data)
}

// WriteFile encodes m and writes it to path.
func WriteFile(path string, m *ModelProto) error {
	if err := os.WriteFile(path, Marshal(m), 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return nil
}
