package asc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ascwasm/asc/internal/ir"
)

func TestCompileStringSimpleExportedFunction(t *testing.T) {
	mod, diags := CompileString(`
export function add(a: int, b: int): int {
  return a + b;
}
`, nil)

	require.False(t, diags.HasErrors(), "unexpected diagnostics: %v", diags.All())
	require.NotNil(t, mod)

	var found bool
	for _, f := range mod.Funcs {
		for _, name := range f.ExportNames {
			if name == "add" {
				found = true
			}
		}
	}
	require.True(t, found, `expected an export named "add"`)
	require.NotNil(t, mod.ImportedMemory, "non-freestanding compilation should import its memory")
	require.True(t, mod.HasStart, "non-freestanding compilation should always have a start function (for allocator bootstrap)")
}

func TestCompileStringFreestandingSkipsAllocator(t *testing.T) {
	cfg := NewCompilerConfig().WithNoLib(true)
	mod, diags := CompileString(`
export function answer(): int {
  return 42;
}
`, cfg)

	require.False(t, diags.HasErrors(), "unexpected diagnostics: %v", diags.All())
	require.Nil(t, mod.ImportedMemory, "freestanding compilation should not import memory")
	require.NotNil(t, mod.Memory, "freestanding compilation should declare its own memory")
	for _, f := range mod.Funcs {
		require.NotContains(t, []string{"malloc", "free"}, f.DebugName, "freestanding compilation should not integrate the allocator")
	}
}

func TestCompileStringUserStartRunsAfterGlobalInitializers(t *testing.T) {
	mod, diags := CompileString(`
let counter: int = sideEffect();
function sideEffect(): int { return 1; }
export function start(): void {}
`, nil)

	require.False(t, diags.HasErrors(), "unexpected diagnostics: %v", diags.All())
	require.True(t, mod.HasStart)

	userStart := -1
	for i, f := range mod.Funcs {
		for _, name := range f.ExportNames {
			if name == "start" {
				userStart = i
			}
		}
	}
	require.NotEqual(t, -1, userStart, `expected an export named "start"`)
	require.NotEqual(t, uint32(userStart), mod.Start, "the module start should be the synthesized wrapper, not the user start")
	body := mod.Funcs[mod.Start].Body
	require.Equal(t, []byte{byte(ir.OpcodeCall), byte(userStart)}, body[len(body)-2:], "the synthesized start should call the user start last")
}

func TestCompileStringUndefinedVariableIsDiagnosed(t *testing.T) {
	cfg := NewCompilerConfig().WithSilent(true)
	_, diags := CompileString(`
export function broken(): int {
  return missing;
}
`, cfg)

	require.True(t, diags.HasErrors(), "referencing an undefined identifier should report an error diagnostic")
}

func TestCompileStringFoldsNegatedLiteral(t *testing.T) {
	cfg := NewCompilerConfig().WithNoLib(true)
	mod, diags := CompileString(`
export function negFive(): int {
  return -5;
}
`, cfg)

	require.False(t, diags.HasErrors(), "unexpected diagnostics: %v", diags.All())

	var fn *ir.Func
	for _, f := range mod.Funcs {
		for _, name := range f.ExportNames {
			if name == "negFive" {
				fn = f
			}
		}
	}
	require.NotNil(t, fn, `expected an export named "negFive"`)

	want := []byte{byte(ir.OpcodeI32Const), 0x7b} // -5 as a signed LEB128 varint
	require.GreaterOrEqual(t, len(fn.Body), len(want))
	require.Equal(t, want, fn.Body[:len(want)], "expected folded constant prefix (no sub instruction)")
}

func TestWithUintptrSizeRejectsInvalidValue(t *testing.T) {
	require.Panics(t, func() { NewCompilerConfig().WithUintptrSize(5) })
}

func TestNewCompilerConfigDefaults(t *testing.T) {
	cfg := NewCompilerConfig()
	require.Equal(t, 4, cfg.uintptrSize, "default uintptrSize")
	require.False(t, cfg.noLib, "default noLib should be false")

	// WithUintptrSize must not mutate the receiver (immutable builder).
	cfg2 := cfg.WithUintptrSize(8)
	require.Equal(t, 4, cfg.uintptrSize, "WithUintptrSize mutated the original config")
	require.Equal(t, 8, cfg2.uintptrSize, "WithUintptrSize did not apply to the clone")
}
