package startfn

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ascwasm/asc/internal/ir"
)

func TestSynthesizeNoopWhenNothingToChain(t *testing.T) {
	mod := ir.NewModule()
	Synthesize(mod, nil, nil, nil)

	require.False(t, mod.HasStart, "no allocator init, no global inits, no user start: module should have no start function")
	require.Empty(t, mod.Funcs, "expected no synthetic function to be created")
}

func TestSynthesizeUserStartDirectlyWhenNothingElseToChain(t *testing.T) {
	mod := ir.NewModule()
	userStart := uint32(3)
	Synthesize(mod, nil, nil, &userStart)

	require.True(t, mod.HasStart)
	require.Equal(t, userStart, mod.Start, "the user start function should run directly, with no synthetic wrapper")
	require.Empty(t, mod.Funcs, "expected no synthetic function when only a user start exists")
}

func TestSynthesizeChainsAllocatorInitsAndUserStart(t *testing.T) {
	mod := ir.NewModule()
	allocatorInit := []byte{0x01, 0x02}
	inits := []Init{
		{GlobalIndex: 0, Body: []byte{0x03}},
		{GlobalIndex: 1, Body: []byte{0x04}},
	}
	userStart := uint32(7)

	Synthesize(mod, allocatorInit, inits, &userStart)

	require.True(t, mod.HasStart)
	require.Len(t, mod.Funcs, 1, "expected exactly one synthetic start function")
	fn := mod.Funcs[mod.Start]
	require.False(t, fn.Import, "synthetic start function should not be an import")

	body := fn.Body
	wantPrefix := []byte{0x01, 0x02, 0x03, byte(ir.OpcodeGlobalSet)}
	require.GreaterOrEqual(t, len(body), len(wantPrefix))
	require.Equal(t, wantPrefix, body[:len(wantPrefix)])

	lastOp := body[len(body)-2]
	require.Equal(t, ir.OpcodeCall, ir.Opcode(lastOp), "expected the synthetic start to end with a call to the user start")
}

func TestSynthesizeWithoutUserStartStillRunsInits(t *testing.T) {
	mod := ir.NewModule()
	inits := []Init{{GlobalIndex: 0, Body: []byte{0x09}}}

	Synthesize(mod, nil, inits, nil)

	require.True(t, mod.HasStart, "expected a start function when global initializers exist")
	fn := mod.Funcs[mod.Start]
	want := []byte{0x09, byte(ir.OpcodeGlobalSet)}
	require.GreaterOrEqual(t, len(fn.Body), len(want))
	require.Equal(t, want, fn.Body[:len(want)], "expected the start function to run the global initializer")
}
