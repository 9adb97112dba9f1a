package tensor

import (
	"fmt"
	"strings"
)

// DType is a tensor element type. Values match the exchange-format
// TensorProto.DataType codes so they can be written to a model unchanged.
type DType int32

const (
	Undefined  DType = 0
	Float32    DType = 1
	Uint8      DType = 2
	Int8       DType = 3
	Uint16     DType = 4
	Int16      DType = 5
	Int32      DType = 6
	Int64      DType = 7
	String     DType = 8
	Bool       DType = 9
	Float16    DType = 10
	Float64    DType = 11
	Uint32     DType = 12
	Uint64     DType = 13
	Complex64  DType = 14
	Complex128 DType = 15
	BFloat16   DType = 16
)

var dtypeNames = [...]string{
	Undefined:  "undefined",
	Float32:    "float32",
	Uint8:      "uint8",
	Int8:       "int8",
	Uint16:     "uint16",
	Int16:      "int16",
	Int32:      "int32",
	Int64:      "int64",
	String:     "string",
	Bool:       "bool",
	Float16:    "float16",
	Float64:    "float64",
	Uint32:     "uint32",
	Uint64:     "uint64",
	Complex64:  "complex64",
	Complex128: "complex128",
	BFloat16:   "bfloat16",
}

// aliases accepted by ParseDType in addition to the canonical names.
var dtypeAliases = map[string]DType{
	"float":  Float32,
	"double": Float64,
	"half":   Float16,
	"long":   Int64,
	"int":    Int32,
	"bool_":  Bool,
	"object": String,
	"str":    String,
}

// String returns the numpy-style name of the element type.
func (d DType) String() string {
	if d.Valid() {
		return dtypeNames[d]
	}
	return fmt.Sprintf("DType(%d)", int32(d))
}

// Valid reports whether d is a known code, including Undefined.
func (d DType) Valid() bool {
	return d >= 0 && int(d) < len(dtypeNames)
}

// Known reports whether d is a valid code other than Undefined.
func (d DType) Known() bool {
	return d != Undefined && d.Valid()
}

// IsFloat reports whether values of this type are stored in [Values.Floats].
func (d DType) IsFloat() bool {
	switch d {
	case Float32, Float64, Float16, BFloat16:
		return true
	}
	return false
}

// IsInteger reports whether values of this type are stored in
// [Values.Ints]. Booleans are stored as 0/1 integers.
func (d DType) IsInteger() bool {
	switch d {
	case Uint8, Int8, Uint16, Int16, Int32, Int64, Uint32, Uint64, Bool:
		return true
	}
	return false
}

// Numeric reports whether constant payloads of this type are supported.
func (d DType) Numeric() bool {
	return d.IsFloat() || d.IsInteger()
}

// ParseDType maps a numpy-style name (or the exchange-format upper-case
// name such as "FLOAT" or "INT64") back to its element type.
func ParseDType(name string) (DType, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range dtypeNames {
		if s == n {
			return DType(i), nil
		}
	}
	if d, ok := dtypeAliases[n]; ok {
		return d, nil
	}
	return Undefined, fmt.Errorf("%w: %q", ErrUnknownDType, name)
}
