package reflection

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShift32AndMask32(t *testing.T) {
	tests := []struct {
		kind  Kind
		shift int
		mask  uint32
	}{
		{KindByte, 24, 0xff},
		{KindShort, 16, 0xffff},
		{KindInt, 0, 0xffffffff},
		{KindBool, 31, 0x1},
	}
	for _, tt := range tests {
		typ := &Type{Kind: tt.kind}
		require.Equal(t, tt.shift, typ.Shift32(), "Kind %v Shift32()", tt.kind)
		require.Equal(t, tt.mask, typ.Mask32(), "Kind %v Mask32()", tt.kind)
	}
}

func TestIsIntIsLongDependsOnPointerSize(t *testing.T) {
	uintptrT := Primitives["uintptr"]

	require.True(t, uintptrT.IsInt(4), "uintptr should be an i32 under a 4-byte pointer size")
	require.False(t, uintptrT.IsLong(4), "uintptr should not be an i64 under a 4-byte pointer size")
	require.False(t, uintptrT.IsInt(8), "uintptr should not be an i32 under an 8-byte pointer size")
	require.True(t, uintptrT.IsLong(8), "uintptr should be an i64 under an 8-byte pointer size")
}

func TestWasmValueTypePanicsOnVoid(t *testing.T) {
	require.Panics(t, func() { Void.WasmValueType(4) })
}

func TestEqual(t *testing.T) {
	a := NewClass("A")
	b := NewClass("B")

	require.True(t, Primitives["int"].Equal(Primitives["int"]), "int should equal int")
	require.False(t, Primitives["int"].Equal(Primitives["uint"]), "int should not equal uint")
	require.True(t, NewClassType(a).Equal(NewClassType(a)), "same class should be equal")
	require.False(t, NewClassType(a).Equal(NewClassType(b)), "distinct classes should not be equal")
}

func TestAddPropertyAccumulatesOffsetAndSize(t *testing.T) {
	c := NewClass("Point")
	x := c.AddProperty("x", Primitives["int"], 4)
	y := c.AddProperty("y", Primitives["double"], 4)

	require.Equal(t, uint32(0), x.Offset)
	require.Equal(t, uint32(4), y.Offset)
	require.Equal(t, uint32(12), c.Size)

	_, ok := c.Property("z")
	require.False(t, ok, `Property("z") should not be found`)

	got, ok := c.Property("y")
	require.True(t, ok)
	require.Equal(t, y, got, `Property("y") should return the registered property`)
}
