package typeresolve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ascwasm/asc/internal/diag"
	"github.com/ascwasm/asc/internal/ir"
	"github.com/ascwasm/asc/internal/reflection"
)

func newTestConverter(ptrSize int) (*Converter, *diag.Collector) {
	diags := diag.NewCollector(nil, true)
	return NewConverter(ptrSize, diags), diags
}

func hasCategory(diags *diag.Collector, cat diag.Category) bool {
	for _, d := range diags.All() {
		if d.Category == cat {
			return true
		}
	}
	return false
}

func TestConvertWideningIsSilent(t *testing.T) {
	c, diags := newTestConverter(4)
	b := ir.NewBuilder()

	c.Convert(b, nil, reflection.Primitives["byte"], reflection.Primitives["int"], false)

	require.False(t, diags.HasErrors(), "widening byte->int implicitly reported diagnostics: %v", diags.All())
	require.Zero(t, b.Len(), "widening within the same i32 register should emit no instructions")
}

func TestConvertNarrowingRequiresExplicit(t *testing.T) {
	c, diags := newTestConverter(4)
	b := ir.NewBuilder()

	c.Convert(b, nil, reflection.Primitives["int"], reflection.Primitives["byte"], false)

	require.True(t, diags.HasErrors(), "implicit narrowing int->byte should report a diagnostic")
}

func TestConvertNarrowingSignedEmitsShiftMaskPair(t *testing.T) {
	c, _ := newTestConverter(4)
	b := ir.NewBuilder()

	c.Convert(b, nil, reflection.Primitives["int"], reflection.Primitives["sbyte"], true)

	want := []byte{
		byte(ir.OpcodeI32Const), 24,
		byte(ir.OpcodeI32ShrS),
		byte(ir.OpcodeI32Const), 24,
		byte(ir.OpcodeI32Shl),
	}
	require.Equal(t, want, b.Bytes())
}

func TestConvertNarrowingUnsignedEmitsMask(t *testing.T) {
	c, _ := newTestConverter(4)
	b := ir.NewBuilder()

	c.Convert(b, nil, reflection.Primitives["uint"], reflection.Primitives["byte"], true)

	require.NotZero(t, b.Len(), "expected narrowing instructions to be emitted")
	require.Equal(t, byte(ir.OpcodeI32And), b.Bytes()[len(b.Bytes())-1], "unsigned narrowing should end with i32.and")
}

func TestConvertSameTypeIsNoop(t *testing.T) {
	c, diags := newTestConverter(4)
	b := ir.NewBuilder()

	c.Convert(b, nil, reflection.Primitives["int"], reflection.Primitives["int"], false)

	require.False(t, diags.HasErrors(), "converting a type to itself should never report a diagnostic")
	require.Zero(t, b.Len(), "converting a type to itself should emit nothing")
}

func TestConvertPointerSizeDependentWarnsButDoesNotError(t *testing.T) {
	c, diags := newTestConverter(4)
	b := ir.NewBuilder()

	c.Convert(b, nil, reflection.Primitives["uintptr"], reflection.Primitives["uint"], false)

	require.False(t, diags.HasErrors(), "uintptr->uint under a 4-byte pointer size should warn, not error")
	require.True(t, hasCategory(diags, diag.Warning), "uintptr->uint under a 4-byte pointer size should warn")
}

// TestConvertSignedIntToUlongExtendsUnsigned is the mismatched-signedness
// cell of spec.md §4.3's table: int-family signed -> ulong/uintptr64 must
// zero-extend (extend_u), not sign-extend, even though the source operand
// is signed.
func TestConvertSignedIntToUlongExtendsUnsigned(t *testing.T) {
	c, diags := newTestConverter(4)
	b := ir.NewBuilder()

	c.Convert(b, nil, reflection.Primitives["int"], reflection.Primitives["ulong"], false)

	require.NotZero(t, b.Len())
	require.Equal(t, byte(ir.OpcodeI64ExtendI32U), b.Bytes()[0], "signed int -> ulong must zero-extend")
	require.True(t, hasCategory(diags, diag.Warning), "signed->ulong is an implicit-warn cell")
}

// TestConvertUnsignedIntToLongExtendsUnsignedAndWarns is the other
// mismatched-signedness cell: int-family unsigned -> long extends
// unsigned and is implicit-warn.
func TestConvertUnsignedIntToLongExtendsUnsignedAndWarns(t *testing.T) {
	c, diags := newTestConverter(4)
	b := ir.NewBuilder()

	c.Convert(b, nil, reflection.Primitives["uint"], reflection.Primitives["long"], false)

	require.False(t, diags.HasErrors())
	require.True(t, hasCategory(diags, diag.Warning), "unsigned->long is an implicit-warn cell")
	require.NotZero(t, b.Len())
	require.Equal(t, byte(ir.OpcodeI64ExtendI32U), b.Bytes()[0])
}

// TestConvertMatchedSignednessIntToLongDoesNotWarn checks the two
// matched-signedness cells (unsigned->ulong, signed->long) are silent:
// only the mismatched cells warn.
func TestConvertMatchedSignednessIntToLongDoesNotWarn(t *testing.T) {
	c, diags := newTestConverter(4)
	b := ir.NewBuilder()
	c.Convert(b, nil, reflection.Primitives["int"], reflection.Primitives["long"], false)
	require.False(t, diags.HasErrors())
	require.False(t, hasCategory(diags, diag.Warning), "signed->long is matched-signedness, should not warn")
	require.Equal(t, byte(ir.OpcodeI64ExtendI32S), b.Bytes()[0])

	c2, diags2 := newTestConverter(4)
	b2 := ir.NewBuilder()
	c2.Convert(b2, nil, reflection.Primitives["uint"], reflection.Primitives["ulong"], false)
	require.False(t, diags2.HasErrors())
	require.False(t, hasCategory(diags2, diag.Warning), "unsigned->ulong is matched-signedness, should not warn")
	require.Equal(t, byte(ir.OpcodeI64ExtendI32U), b2.Bytes()[0])
}

// TestConvertLongToFloatOrDoubleAlwaysWarns covers the four long-family
// rows targeting float/double, all marked implicit-warn in spec.md
// §4.3's table regardless of signedness.
func TestConvertLongToFloatOrDoubleAlwaysWarns(t *testing.T) {
	cases := []struct {
		name     string
		from, to string
		wantOp   ir.Opcode
	}{
		{"long signed -> float", "long", "float", ir.OpcodeF32ConvertI64S},
		{"long signed -> double", "long", "double", ir.OpcodeF64ConvertI64S},
		{"long unsigned -> float", "ulong", "float", ir.OpcodeF32ConvertI64U},
		{"long unsigned -> double", "ulong", "double", ir.OpcodeF64ConvertI64U},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, diags := newTestConverter(4)
			b := ir.NewBuilder()
			c.Convert(b, nil, reflection.Primitives[tc.from], reflection.Primitives[tc.to], false)

			require.False(t, diags.HasErrors())
			require.True(t, hasCategory(diags, diag.Warning), "%s should warn", tc.name)
			require.NotZero(t, b.Len())
			require.Equal(t, byte(tc.wantOp), b.Bytes()[0])
		})
	}
}
