package tensor

import (
	"slices"
	"testing"
)

func TestAttributesKeepOrder(t *testing.T) {
	a := NewAttributes()
	a.Set("pads", IntsAttr(0, 0, 1, 1))
	a.Set("auto_pad", StringAttr("NOTSET"))
	a.Set("alpha", FloatAttr(0.5))
	a.Set("pads", IntsAttr(1, 1, 1, 1))

	want := []string{"pads", "auto_pad", "alpha"}
	if got := a.Keys(); !slices.Equal(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if v, _ := a.Get("pads"); v.Ints[0] != 1 {
		t.Errorf("pads = %v, want overwritten value", v.Ints)
	}

	a.Delete("auto_pad")
	if got := a.Keys(); !slices.Equal(got, []string{"pads", "alpha"}) {
		t.Errorf("after Delete, Keys() = %v", got)
	}
}

func TestAttributesCloneIsDeep(t *testing.T) {
	a := NewAttributes()
	a.Set("value", TensorAttr(Int64, []int64{2}, IntValues(1, 2)))
	a.Set("ints", IntsAttr(1, 2))

	c := a.Clone()
	v, _ := c.Get("value")
	v.Tensor.Values.Ints[0] = 42
	v.Tensor.Shape[0] = 9
	ints, _ := c.Get("ints")
	ints.Ints[0] = 7

	orig, _ := a.Get("value")
	if orig.Tensor.Values.Ints[0] != 1 || orig.Tensor.Shape[0] != 2 {
		t.Error("tensor attribute shared with clone")
	}
	if oi, _ := a.Get("ints"); oi.Ints[0] != 1 {
		t.Error("ints attribute shared with clone")
	}
	if !a.Equal(a.Clone()) {
		t.Error("clone should be equal")
	}
}

func TestAttributesZeroValueAndNil(t *testing.T) {
	var a Attributes
	a.Set("x", IntAttr(1))
	if a.Len() != 1 {
		t.Errorf("Len() = %d", a.Len())
	}

	var n *Attributes
	if n.Len() != 0 || n.Keys() != nil {
		t.Error("nil mapping should be empty")
	}
	if _, ok := n.Get("x"); ok {
		t.Error("nil mapping returned a value")
	}
	if n.Clone().Len() != 0 {
		t.Error("clone of nil should be empty")
	}
}

func TestAttributeFormat(t *testing.T) {
	tests := []struct {
		attr Attribute
		want string
	}{
		{IntAttr(3), "3"},
		{FloatAttr(0.25), "0.25"},
		{StringAttr("SAME"), `"SAME"`},
		{BoolAttr(true), "true"},
		{IntsAttr(1, 2), "[1 2]"},
		{TensorAttr(Float32, []int64{2, 2}, FloatValues(1, 2, 3, 4)), "tensor<float32 [2 2]>"},
		{GraphAttr([]byte{1, 2, 3}), "graph<3 bytes>"},
	}

	for _, tt := range tests {
		t.Run(tt.attr.Kind.String(), func(t *testing.T) {
			if got := tt.attr.Format(); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAttributesListRoundTrip(t *testing.T) {
	a := NewAttributes()
	a.Set("b", IntAttr(1))
	a.Set("a", StringsAttr("x", "y"))
	back := AttributesFromList(a.List())
	if !a.Equal(back) {
		t.Errorf("round trip lost data: %v", back.Keys())
	}
}
