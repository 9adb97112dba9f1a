package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidTensorShape, "tensor %q: %d values", "x", 5)
	if err.Code != ErrCodeInvalidTensorShape {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidTensorShape)
	}
	expected := `INVALID_TENSOR_SHAPE: tensor "x": 5 values`
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeExportFailed, cause, "check model %s", "m")

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	expected := "EXPORT_FAILED: check model m: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodePortLocked, "test"),
			code:     ErrCodePortLocked,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodePortLocked, "test"),
			code:     ErrCodeTopology,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeExportFailed, New(ErrCodeExportShapeMismatch, "inner"), "outer"),
			code:     ErrCodeExportShapeMismatch,
			expected: true,
		},
		{
			name:     "wrapped in fmt.Errorf",
			err:      fmt.Errorf("context: %w", New(ErrCodeMalformedModel, "inner")),
			code:     ErrCodeMalformedModel,
			expected: true,
		},
		{
			name:     "node error",
			err:      &NodeError{Node: "Conv_0", Op: "Conv", Err: New(ErrCodeSchemaValidation, "bad")},
			code:     ErrCodeSchemaValidation,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInternal,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInternal,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeTopology, "test"),
			expected: ErrCodeTopology,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidPath, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNodeError(t *testing.T) {
	t.Run("with op", func(t *testing.T) {
		err := &NodeError{Node: "a", Op: "Add", Err: errors.New("boom")}
		expected := `node "a" (Add): boom`
		if err.Error() != expected {
			t.Errorf("Error() = %v, want %v", err.Error(), expected)
		}
	})

	t.Run("without op", func(t *testing.T) {
		err := &NodeError{Node: "a", Err: errors.New("boom")}
		expected := `node "a": boom`
		if err.Error() != expected {
			t.Errorf("Error() = %v, want %v", err.Error(), expected)
		}
	})
}
