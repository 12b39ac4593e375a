package ir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestEncodeStartsWithWasmMagicAndVersion(t *testing.T) {
	m := NewModule()
	out := m.Encode()

	want := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	require.GreaterOrEqual(t, len(out), len(want))
	require.Equal(t, want, out[:len(want)])
}

func TestAddTypeDedupsBySignature(t *testing.T) {
	m := NewModule()
	ft := FunctionType{Params: []ValueType{ValueTypeI32}, Results: []ValueType{ValueTypeI32}}

	a := m.AddType(ft)
	b := m.AddType(ft)
	require.Equal(t, a.Index, b.Index, "identical signatures should share a type index")

	other := FunctionType{Params: []ValueType{ValueTypeI64}}
	c := m.AddType(other)
	require.NotEqual(t, a.Index, c.Index, "distinct signatures should not share a type index")
}

// TestEncodeDecodeRoundTrip uses go-cmp for the structural comparison: the
// decoded export table must be byte-for-byte identical in shape to what was
// declared, not just equal in length.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := NewModule()
	ft := FunctionType{Params: []ValueType{ValueTypeI32}, Results: []ValueType{ValueTypeI32}}
	idx, fn := m.AddFunction(ft, "double")
	b := NewBuilder()
	b.LocalGet(0)
	b.LocalGet(0)
	b.Op(OpcodeI32Add)
	fn.Body = b.Bytes()
	fn.ExportNames = []string{"double"}
	m.AddExport("double", ExternTypeFunc, idx)

	decoded, err := Decode(m.Encode())
	require.NoError(t, err)
	require.Len(t, decoded.Funcs, 1)

	wantExports := []Export{{Name: "double", Kind: ExternTypeFunc, Index: idx}}
	if diff := cmp.Diff(wantExports, decoded.Exports); diff != "" {
		t.Errorf("decoded export table diverged from what was declared (-want +got):\n%s", diff)
	}
}

func TestMergeOffsetsFunctionAndGlobalIndices(t *testing.T) {
	host := NewModule()
	host.AddFunction(FunctionType{}, "hostFn")

	other := NewModule()
	other.AddFunction(FunctionType{}, "otherFn")
	other.AddGlobal(ValueTypeI32, true, ConstI32(0))

	funcOffset, globalOffset := host.Merge(other)
	require.Equal(t, uint32(1), funcOffset, "one pre-existing host function")
	require.Equal(t, uint32(0), globalOffset, "no pre-existing host globals")
	require.Len(t, host.Funcs, 2)
	require.Len(t, host.Globals, 1)
}
