package tensor

import (
	"errors"
	"fmt"

	oerrors "github.com/matzehuels/onnxgraph/pkg/errors"
)

var (
	// ErrUnknownDType is returned by [ParseDType] for an unrecognized name.
	ErrUnknownDType = errors.New("unknown dtype")

	// ErrEmptyName is returned by [TensorRef.Validate] when the name is empty.
	ErrEmptyName = errors.New("tensor name must not be empty")
)

// TensorRef is a named reference to a tensor with an optional element type,
// shape and constant payload.
type TensorRef struct {
	Name   string  `json:"name"`
	DType  DType   `json:"dtype,omitempty"`
	Shape  Shape   `json:"shape"`
	Values *Values `json:"values,omitempty"`
}

// NewVariable returns a runtime variable reference. The shape is copied.
func NewVariable(name string, dtype DType, shape Shape) *TensorRef {
	return &TensorRef{Name: name, DType: dtype, Shape: shape.Clone()}
}

// NewConstant returns a constant reference after checking the constant
// shape law. The shape and values are copied.
func NewConstant(name string, dtype DType, shape Shape, values *Values) (*TensorRef, error) {
	if values == nil {
		return nil, oerrors.New(oerrors.ErrCodeInvalidTensorShape, "constant %q has no values", name)
	}
	t := &TensorRef{Name: name, DType: dtype, Shape: shape.Clone(), Values: values.Convert(dtype)}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// IsConstant reports whether the reference carries a constant payload.
func (t *TensorRef) IsConstant() bool { return t != nil && t.Values != nil }

// Validate checks the name and, for constants, the constant shape law.
func (t *TensorRef) Validate() error {
	if t.Name == "" {
		return ErrEmptyName
	}
	if !t.DType.Valid() {
		return oerrors.New(oerrors.ErrCodeInvalidDType, "tensor %q: invalid dtype code %d", t.Name, int32(t.DType))
	}
	if t.Values == nil {
		return nil
	}
	if !t.DType.Known() {
		return oerrors.New(oerrors.ErrCodeInvalidTensorShape, "constant %q has no dtype", t.Name)
	}
	if !t.Shape.Concrete() {
		return oerrors.New(oerrors.ErrCodeInvalidTensorShape, "constant %q has non-concrete shape %s", t.Name, t.Shape)
	}
	if n := int64(t.Values.Len()); n != t.Shape.Size() {
		return oerrors.New(oerrors.ErrCodeInvalidTensorShape,
			"constant %q: %d values for shape %s (want %d)", t.Name, n, t.Shape, t.Shape.Size())
	}
	return nil
}

// Clone returns a deep copy.
func (t *TensorRef) Clone() *TensorRef {
	if t == nil {
		return nil
	}
	return &TensorRef{Name: t.Name, DType: t.DType, Shape: t.Shape.Clone(), Values: t.Values.Clone()}
}

// String renders "name: dtype shape".
func (t *TensorRef) String() string {
	if t == nil {
		return "<nil>"
	}
	s := fmt.Sprintf("%s: %s %s", t.Name, t.DType, t.Shape)
	if t.Values != nil {
		s += " (const)"
	}
	return s
}
