package tensor

import (
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"
)

// AttrKind identifies the populated member of an [Attribute].
type AttrKind int

const (
	AttrUndefined AttrKind = iota
	AttrFloat
	AttrInt
	AttrString
	AttrBool
	AttrFloats
	AttrInts
	AttrStrings
	AttrTensor
	AttrGraph
)

var attrKindNames = [...]string{
	AttrUndefined: "undefined",
	AttrFloat:     "float",
	AttrInt:       "int",
	AttrString:    "string",
	AttrBool:      "bool",
	AttrFloats:    "floats",
	AttrInts:      "ints",
	AttrStrings:   "strings",
	AttrTensor:    "tensor",
	AttrGraph:     "graph",
}

func (k AttrKind) String() string {
	if k >= 0 && int(k) < len(attrKindNames) {
		return attrKindNames[k]
	}
	return "AttrKind(" + strconv.Itoa(int(k)) + ")"
}

// ParseAttrKind maps a kind name back to its value.
func ParseAttrKind(s string) (AttrKind, error) {
	for i, n := range attrKindNames {
		if n == s {
			return AttrKind(i), nil
		}
	}
	return AttrUndefined, fmt.Errorf("unknown attribute kind %q", s)
}

// TensorValue is the raw tensor payload of a tensor-valued attribute.
type TensorValue struct {
	DType  DType   `json:"dtype"`
	Shape  []int64 `json:"shape"`
	Values *Values `json:"values"`
}

// Size returns the product of Shape (1 for a scalar).
func (tv *TensorValue) Size() int64 {
	n := int64(1)
	for _, d := range tv.Shape {
		n *= d
	}
	return n
}

// Clone returns a deep copy.
func (tv *TensorValue) Clone() *TensorValue {
	if tv == nil {
		return nil
	}
	return &TensorValue{DType: tv.DType, Shape: slices.Clone(tv.Shape), Values: tv.Values.Clone()}
}

// Attribute is a tagged union over operator attribute values. Only the
// member selected by Kind is meaningful.
type Attribute struct {
	Kind    AttrKind     `json:"kind"`
	Float   float64      `json:"f,omitempty"`
	Int     int64        `json:"i,omitempty"`
	String  string       `json:"s,omitempty"`
	Bool    bool         `json:"b,omitempty"`
	Floats  []float64    `json:"floats,omitempty"`
	Ints    []int64      `json:"ints,omitempty"`
	Strings []string     `json:"strings,omitempty"`
	Tensor  *TensorValue `json:"t,omitempty"`
	Graph   []byte       `json:"g,omitempty"`
}

func FloatAttr(v float64) Attribute     { return Attribute{Kind: AttrFloat, Float: v} }
func IntAttr(v int64) Attribute         { return Attribute{Kind: AttrInt, Int: v} }
func StringAttr(v string) Attribute     { return Attribute{Kind: AttrString, String: v} }
func BoolAttr(v bool) Attribute         { return Attribute{Kind: AttrBool, Bool: v} }
func FloatsAttr(v ...float64) Attribute { return Attribute{Kind: AttrFloats, Floats: v} }
func IntsAttr(v ...int64) Attribute     { return Attribute{Kind: AttrInts, Ints: v} }
func StringsAttr(v ...string) Attribute { return Attribute{Kind: AttrStrings, Strings: v} }
func GraphAttr(raw []byte) Attribute    { return Attribute{Kind: AttrGraph, Graph: raw} }

// TensorAttr wraps a tensor payload.
func TensorAttr(dtype DType, shape []int64, values *Values) Attribute {
	return Attribute{Kind: AttrTensor, Tensor: &TensorValue{DType: dtype, Shape: shape, Values: values}}
}

// Clone returns a deep copy.
func (a Attribute) Clone() Attribute {
	a.Floats = slices.Clone(a.Floats)
	a.Ints = slices.Clone(a.Ints)
	a.Strings = slices.Clone(a.Strings)
	a.Tensor = a.Tensor.Clone()
	a.Graph = slices.Clone(a.Graph)
	return a
}

// Equal reports whether two attributes hold the same value.
func (a Attribute) Equal(b Attribute) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case AttrFloat:
		return a.Float == b.Float
	case AttrInt:
		return a.Int == b.Int
	case AttrString:
		return a.String == b.String
	case AttrBool:
		return a.Bool == b.Bool
	case AttrFloats:
		return slices.Equal(a.Floats, b.Floats)
	case AttrInts:
		return slices.Equal(a.Ints, b.Ints)
	case AttrStrings:
		return slices.Equal(a.Strings, b.Strings)
	case AttrTensor:
		if a.Tensor == nil || b.Tensor == nil {
			return a.Tensor == b.Tensor
		}
		return a.Tensor.DType == b.Tensor.DType &&
			slices.Equal(a.Tensor.Shape, b.Tensor.Shape) &&
			a.Tensor.Values.Equal(b.Tensor.Values)
	case AttrGraph:
		return slices.Equal(a.Graph, b.Graph)
	}
	return true
}

// Format renders the value for display.
func (a Attribute) Format() string {
	switch a.Kind {
	case AttrFloat:
		return strconv.FormatFloat(a.Float, 'g', -1, 64)
	case AttrInt:
		return strconv.FormatInt(a.Int, 10)
	case AttrString:
		return strconv.Quote(a.String)
	case AttrBool:
		return strconv.FormatBool(a.Bool)
	case AttrFloats:
		return fmt.Sprint(a.Floats)
	case AttrInts:
		return fmt.Sprint(a.Ints)
	case AttrStrings:
		return "[" + strings.Join(a.Strings, " ") + "]"
	case AttrTensor:
		if a.Tensor == nil {
			return "tensor<nil>"
		}
		return fmt.Sprintf("tensor<%s %v>", a.Tensor.DType, a.Tensor.Shape)
	case AttrGraph:
		return fmt.Sprintf("graph<%d bytes>", len(a.Graph))
	}
	return "undefined"
}

// Attributes is a name-to-value mapping that remembers insertion order.
// The zero value is empty and ready to use.
type Attributes struct {
	keys   []string
	values map[string]Attribute
}

// NewAttributes returns an empty mapping.
func NewAttributes() *Attributes { return &Attributes{} }

// Set stores v under name. An existing key keeps its position.
func (a *Attributes) Set(name string, v Attribute) {
	if a.values == nil {
		a.values = make(map[string]Attribute)
	}
	if _, ok := a.values[name]; !ok {
		a.keys = append(a.keys, name)
	}
	a.values[name] = v
}

// Get returns the value stored under name.
func (a *Attributes) Get(name string) (Attribute, bool) {
	if a == nil {
		return Attribute{}, false
	}
	v, ok := a.values[name]
	return v, ok
}

// Delete removes name if present.
func (a *Attributes) Delete(name string) {
	if a == nil {
		return
	}
	if _, ok := a.values[name]; !ok {
		return
	}
	delete(a.values, name)
	a.keys = slices.DeleteFunc(a.keys, func(k string) bool { return k == name })
}

// Len returns the number of entries.
func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// Keys returns the names in insertion order.
func (a *Attributes) Keys() []string {
	if a == nil {
		return nil
	}
	return slices.Clone(a.keys)
}

// All iterates over entries in insertion order.
func (a *Attributes) All() iter.Seq2[string, Attribute] {
	return func(yield func(string, Attribute) bool) {
		if a == nil {
			return
		}
		for _, k := range a.keys {
			if !yield(k, a.values[k]) {
				return
			}
		}
	}
}

// Clone returns a deep copy. Cloning nil yields an empty mapping.
func (a *Attributes) Clone() *Attributes {
	out := &Attributes{}
	for k, v := range a.All() {
		out.Set(k, v.Clone())
	}
	return out
}

// Equal reports whether both mappings hold equal values in the same order.
func (a *Attributes) Equal(b *Attributes) bool {
	if a.Len() != b.Len() {
		return false
	}
	bk := b.Keys()
	for i, k := range a.Keys() {
		if bk[i] != k {
			return false
		}
		av, _ := a.Get(k)
		bv, _ := b.Get(k)
		if !av.Equal(bv) {
			return false
		}
	}
	return true
}

// NamedAttribute is one entry of an [Attributes] mapping, used for
// serialization.
type NamedAttribute struct {
	Name string `json:"name"`
	Attribute
}

// List returns the entries in insertion order.
func (a *Attributes) List() []NamedAttribute {
	out := make([]NamedAttribute, 0, a.Len())
	for k, v := range a.All() {
		out = append(out, NamedAttribute{Name: k, Attribute: v})
	}
	return out
}

// AttributesFromList rebuilds a mapping from [Attributes.List] output.
func AttributesFromList(list []NamedAttribute) *Attributes {
	out := &Attributes{}
	for _, na := range list {
		out.Set(na.Name, na.Attribute)
	}
	return out
}
