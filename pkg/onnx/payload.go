package onnx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/x448/float16"

	"github.com/matzehuels/onnxgraph/pkg/tensor"
)

var (
	// ErrUnsupportedDType is returned for payloads that cannot be represented
	// as flat numeric values (strings, complex numbers).
	ErrUnsupportedDType = errors.New("unsupported tensor data type")

	// ErrPayloadSize is returned when a payload does not match its dims.
	ErrPayloadSize = errors.New("tensor payload size mismatch")
)

// elemSize returns the raw_data width of one element.
func elemSize(dt tensor.DType) int {
	switch dt {
	case tensor.Uint8, tensor.Int8, tensor.Bool:
		return 1
	case tensor.Uint16, tensor.Int16, tensor.Float16, tensor.BFloat16:
		return 2
	case tensor.Float32, tensor.Int32, tensor.Uint32:
		return 4
	case tensor.Float64, tensor.Int64, tensor.Uint64:
		return 8
	}
	return 0
}

// NumElements returns the product of the tensor dims (1 for a scalar).
func (t *TensorProto) NumElements() int64 {
	n := int64(1)
	for _, d := range t.Dims {
		n *= d
	}
	return n
}

// DecodeTensor flattens the payload of t. Floating types are returned in
// Values.Floats and integer or boolean types in Values.Ints.
func DecodeTensor(t *TensorProto) (*tensor.Values, error) {
	dt := tensor.DType(t.DataType)
	size := elemSize(dt)
	if size == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDType, dt)
	}
	var v *tensor.Values
	if t.RawData != nil {
		if len(t.RawData)%size != 0 {
			return nil, fmt.Errorf("%w: %d raw bytes for %s", ErrPayloadSize, len(t.RawData), dt)
		}
		v = decodeRaw(dt, t.RawData, size)
	} else {
		v = decodeTyped(dt, t)
	}
	if n := int64(v.Len()); n != t.NumElements() {
		return nil, fmt.Errorf("%w: tensor %q has %d values for dims %v", ErrPayloadSize, t.Name, n, t.Dims)
	}
	return v, nil
}

func decodeRaw(dt tensor.DType, raw []byte, size int) *tensor.Values {
	n := len(raw) / size
	le := binary.LittleEndian
	if dt.IsFloat() {
		out := make([]float64, n)
		for i := range out {
			p := raw[i*size:]
			switch dt {
			case tensor.Float32:
				out[i] = float64(math.Float32frombits(le.Uint32(p)))
			case tensor.Float64:
				out[i] = math.Float64frombits(le.Uint64(p))
			case tensor.Float16:
				out[i] = float64(float16.Frombits(le.Uint16(p)).Float32())
			case tensor.BFloat16:
				out[i] = float64(math.Float32frombits(uint32(le.Uint16(p)) << 16))
			}
		}
		return &tensor.Values{Floats: out}
	}
	out := make([]int64, n)
	for i := range out {
		p := raw[i*size:]
		switch dt {
		case tensor.Uint8, tensor.Bool:
			out[i] = int64(p[0])
		case tensor.Int8:
			out[i] = int64(int8(p[0]))
		case tensor.Uint16:
			out[i] = int64(le.Uint16(p))
		case tensor.Int16:
			out[i] = int64(int16(le.Uint16(p)))
		case tensor.Int32:
			out[i] = int64(int32(le.Uint32(p)))
		case tensor.Uint32:
			out[i] = int64(le.Uint32(p))
		case tensor.Int64, tensor.Uint64:
			out[i] = int64(le.Uint64(p))
		}
	}
	return &tensor.Values{Ints: out}
}

func decodeTyped(dt tensor.DType, t *TensorProto) *tensor.Values {
	switch dt {
	case tensor.Float32:
		out := make([]float64, len(t.FloatData))
		for i, f := range t.FloatData {
			out[i] = float64(f)
		}
		return &tensor.Values{Floats: out}
	case tensor.Float64:
		return &tensor.Values{Floats: append([]float64{}, t.DoubleData...)}
	case tensor.Float16, tensor.BFloat16:
		// Half precision bit patterns travel in int32_data.
		out := make([]float64, len(t.Int32Data))
		for i, bits := range t.Int32Data {
			if dt == tensor.Float16 {
				out[i] = float64(float16.Frombits(uint16(bits)).Float32())
			} else {
				out[i] = float64(math.Float32frombits(uint32(uint16(bits)) << 16))
			}
		}
		return &tensor.Values{Floats: out}
	case tensor.Int64:
		return &tensor.Values{Ints: append([]int64{}, t.Int64Data...)}
	case tensor.Uint32, tensor.Uint64:
		out := make([]int64, len(t.Uint64Data))
		for i, u := range t.Uint64Data {
			out[i] = int64(u)
		}
		return &tensor.Values{Ints: out}
	default:
		out := make([]int64, len(t.Int32Data))
		for i, x := range t.Int32Data {
			out[i] = int64(x)
		}
		return &tensor.Values{Ints: out}
	}
}

// EncodeTensor builds a TensorProto with little-endian raw_data.
func EncodeTensor(name string, dt tensor.DType, dims []int64, v *tensor.Values) (*TensorProto, error) {
	size := elemSize(dt)
	if size == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDType, dt)
	}
	t := &TensorProto{Name: name, DataType: int32(dt), Dims: append([]int64{}, dims...)}
	if n := int64(v.Len()); n != t.NumElements() {
		return nil, fmt.Errorf("%w: tensor %q has %d values for dims %v", ErrPayloadSize, name, n, dims)
	}
	raw := make([]byte, v.Len()*size)
	le := binary.LittleEndian
	if dt.IsFloat() {
		for i, f := range v.AsFloats() {
			p := raw[i*size:]
			switch dt {
			case tensor.Float32:
				le.PutUint32(p, math.Float32bits(float32(f)))
			case tensor.Float64:
				le.PutUint64(p, math.Float64bits(f))
			case tensor.Float16:
				le.PutUint16(p, float16.Fromfloat32(float32(f)).Bits())
			case tensor.BFloat16:
				le.PutUint16(p, uint16(math.Float32bits(float32(f))>>16))
			}
		}
	} else {
		for i, x := range v.AsInts() {
			p := raw[i*size:]
			switch size {
			case 1:
				p[0] = byte(x)
			case 2:
				le.PutUint16(p, uint16(x))
			case 4:
				le.PutUint32(p, uint32(x))
			case 8:
				le.PutUint64(p, uint64(x))
			}
		}
	}
	t.RawData = raw
	return t, nil
}
