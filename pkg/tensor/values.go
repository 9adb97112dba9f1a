package tensor

import "slices"

// Values is a flat, row-major constant payload. Floating element types use
// Floats; integer and boolean element types use Ints so 64-bit integers
// survive unchanged. Exactly one of the two slices is populated.
type Values struct {
	Floats []float64 `json:"floats,omitempty"`
	Ints   []int64   `json:"ints,omitempty"`
}

// FloatValues wraps a float payload.
func FloatValues(v ...float64) *Values { return &Values{Floats: v} }

// IntValues wraps an integer payload.
func IntValues(v ...int64) *Values { return &Values{Ints: v} }

// Len returns the number of stored elements.
func (v *Values) Len() int {
	if v == nil {
		return 0
	}
	if v.Floats != nil {
		return len(v.Floats)
	}
	return len(v.Ints)
}

// IsFloat reports whether the payload is stored as floats.
func (v *Values) IsFloat() bool { return v != nil && v.Floats != nil }

// Clone returns a deep copy, preserving nil.
func (v *Values) Clone() *Values {
	if v == nil {
		return nil
	}
	return &Values{Floats: slices.Clone(v.Floats), Ints: slices.Clone(v.Ints)}
}

// AsFloats returns the payload converted to float64.
func (v *Values) AsFloats() []float64 {
	if v == nil {
		return nil
	}
	if v.Floats != nil {
		return slices.Clone(v.Floats)
	}
	out := make([]float64, len(v.Ints))
	for i, x := range v.Ints {
		out[i] = float64(x)
	}
	return out
}

// AsInts returns the payload converted to int64, truncating floats.
func (v *Values) AsInts() []int64 {
	if v == nil {
		return nil
	}
	if v.Floats == nil {
		return slices.Clone(v.Ints)
	}
	out := make([]int64, len(v.Floats))
	for i, x := range v.Floats {
		out[i] = int64(x)
	}
	return out
}

// Convert returns a copy stored in the slice that matches dtype.
func (v *Values) Convert(dtype DType) *Values {
	if v == nil {
		return nil
	}
	if dtype.IsFloat() {
		return &Values{Floats: v.AsFloats()}
	}
	return &Values{Ints: v.AsInts()}
}

// Equal reports whether both payloads hold the same elements in the same
// representation.
func (v *Values) Equal(o *Values) bool {
	if v == nil || o == nil {
		return v == o
	}
	return slices.Equal(v.Floats, o.Floats) && slices.Equal(v.Ints, o.Ints) &&
		(v.Floats == nil) == (o.Floats == nil)
}
