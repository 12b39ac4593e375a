package allocator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ascwasm/asc/internal/ir"
)

func TestLoadRoundTripsThroughEncoding(t *testing.T) {
	mod, err := Load()
	require.NoError(t, err)
	require.Len(t, mod.Funcs, 3, "expected 3 functions (init, malloc, free)")
	for _, f := range mod.Funcs {
		require.Empty(t, f.ExportNames, "decoded allocator function %q carries export names, want none pre-integration", f.DebugName)
	}
}

func TestIntegrateHidesRawAllocatorExportsAndAddsWrappers(t *testing.T) {
	host := ir.NewModule()
	host.ImportMemory("env", "memory", 1, 0, false)

	result, err := Integrate(host, 16)
	require.NoError(t, err)

	for _, e := range host.Exports {
		require.NotContains(t, []string{"mspace_init", "mspace_malloc", "mspace_free"}, e.Name,
			"raw allocator export %q should be hidden after integration", e.Name)
	}

	var sawMalloc, sawFree bool
	for _, e := range host.Exports {
		switch e.Name {
		case "malloc":
			sawMalloc = true
			require.Equal(t, result.MallocIndex, e.Index, "malloc export index")
		case "free":
			sawFree = true
			require.Equal(t, result.FreeIndex, e.Index, "free export index")
		}
	}
	require.True(t, sawMalloc, "expected a malloc export, got %v", host.Exports)
	require.True(t, sawFree, "expected a free export, got %v", host.Exports)

	require.NotEmpty(t, result.StartInit, "expected non-empty start-init bytes to bootstrap mspace_init")
}

func TestIntegrateIsIdempotentAcrossSeparateHosts(t *testing.T) {
	host1 := ir.NewModule()
	host1.ImportMemory("env", "memory", 1, 0, false)
	r1, err := Integrate(host1, 16)
	require.NoError(t, err)

	host2 := ir.NewModule()
	host2.ImportMemory("env", "memory", 1, 0, false)
	r2, err := Integrate(host2, 16)
	require.NoError(t, err)

	require.Equal(t, r1.MallocIndex, r2.MallocIndex, "two identically-shaped hosts should get the same malloc index")
}
