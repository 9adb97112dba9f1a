package tensor

import (
	"strconv"
	"strings"
)

// Dim is one dimension of a shape: a size (zero included), a symbolic
// name, or [UnknownDim]. The zero Dim is a dimension of size 0.
type Dim struct {
	Value int64  `json:"value,omitempty"`
	Param string `json:"param,omitempty"`
}

// UnknownDim has neither a size nor a symbol.
var UnknownDim = Dim{Value: -1}

// Concrete reports whether the dimension has a known size. Empty
// dimensions of size 0 are concrete.
func (d Dim) Concrete() bool { return d.Param == "" && d.Value >= 0 }

// Symbolic reports whether the dimension is a named symbol such as "batch".
func (d Dim) Symbolic() bool { return d.Param != "" }

// String renders the symbol, the size, or "?" when unknown.
func (d Dim) String() string {
	switch {
	case d.Param != "":
		return d.Param
	case d.Value >= 0:
		return strconv.FormatInt(d.Value, 10)
	default:
		return "?"
	}
}

// Shape is an ordered list of dimensions. A nil Shape is unknown; an empty
// non-nil Shape is a scalar.
type Shape []Dim

// ShapeOf builds a shape from sizes. Negative sizes become [UnknownDim].
// ShapeOf() returns a scalar.
func ShapeOf(dims ...int64) Shape {
	s := make(Shape, len(dims))
	for i, d := range dims {
		if d < 0 {
			s[i] = UnknownDim
			continue
		}
		s[i] = Dim{Value: d}
	}
	return s
}

// Known reports whether the shape is present (possibly a scalar).
func (s Shape) Known() bool { return s != nil }

// Rank returns the number of dimensions, or -1 for an unknown shape.
func (s Shape) Rank() int {
	if s == nil {
		return -1
	}
	return len(s)
}

// Concrete reports whether the shape is known and every dimension has a
// size.
func (s Shape) Concrete() bool {
	if s == nil {
		return false
	}
	for _, d := range s {
		if !d.Concrete() {
			return false
		}
	}
	return true
}

// Size returns the number of elements of a concrete shape (1 for a scalar)
// and -1 otherwise.
func (s Shape) Size() int64 {
	if !s.Concrete() {
		return -1
	}
	n := int64(1)
	for _, d := range s {
		n *= d.Value
	}
	return n
}

// Dims returns the sizes of a concrete shape, or nil otherwise.
func (s Shape) Dims() []int64 {
	if !s.Concrete() {
		return nil
	}
	out := make([]int64, len(s))
	for i, d := range s {
		out[i] = d.Value
	}
	return out
}

// Clone returns a deep copy. The clone of a nil shape is nil and the clone
// of a scalar is a scalar.
func (s Shape) Clone() Shape {
	if s == nil {
		return nil
	}
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

// Equal reports whether both shapes have the same dimensions.
func (s Shape) Equal(o Shape) bool {
	if (s == nil) != (o == nil) || len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// String renders the shape as "[1, 3]", "[]" for a scalar and "?" when
// unknown.
func (s Shape) String() string {
	if s == nil {
		return "?"
	}
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = d.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
