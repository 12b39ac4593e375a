//go:build amd64 && cgo

// Package validate runs emitted modules through real wasm runtimes,
// grounded on wazero's own internal/integration_test/vs comparison
// harness: each runtime gets its own minimal adapter
// (engine/store/instantiate/call). Every scenario runs under wasmtime;
// TestAddExportedFunction additionally runs its module under wasmer and
// checks that both runtimes agree.
package validate

import (
	"testing"

	"github.com/bytecodealliance/wasmtime-go/v3"
	"github.com/stretchr/testify/require"
	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/ascwasm/asc"
)

// compile runs source through the compiler under cfg (or the default
// config if nil) and fails the test immediately on any diagnostic error.
func compile(t *testing.T, source string, cfg *asc.CompilerConfig) []byte {
	t.Helper()
	mod, diags := asc.CompileString(source, cfg)
	require.False(t, diags.HasErrors(), "unexpected diagnostics compiling %q: %v", source, diags.All())
	return mod.Encode()
}

// --- wasmtime side ---

// defineEnvImports registers every ambient "env" import a non-freestanding
// module can reference: the linear memory every such module imports, plus
// abort/trace/seed (assembly.d.ts). Freestanding modules import
// abort/trace/seed as well but not the memory, and an unused definition
// is harmless, so everything is defined unconditionally.
func defineEnvImports(t *testing.T, store *wasmtime.Store, linker *wasmtime.Linker) {
	t.Helper()
	memType := wasmtime.NewMemoryType(wasmtime.Limits{Min: 1}, false)
	memory := wasmtime.NewMemory(store, memType)
	require.NoError(t, linker.Define("env", "memory", memory))
	require.NoError(t, linker.DefineFunc(store, "env", "abort", func(message, fileName, line, column int32) {
		t.Fatalf("module called abort(%d, %d, %d, %d)", message, fileName, line, column)
	}))
	require.NoError(t, linker.DefineFunc(store, "env", "trace", func(message, n int32) {}))
	require.NoError(t, linker.DefineFunc(store, "env", "seed", func() float64 { return 0 }))
}

func instantiateWasmtime(t *testing.T, wasm []byte) (*wasmtime.Store, *wasmtime.Instance) {
	t.Helper()
	engine := wasmtime.NewEngine()
	store := wasmtime.NewStore(engine)
	m, err := wasmtime.NewModule(engine, wasm)
	require.NoError(t, err)

	linker := wasmtime.NewLinker(engine)
	defineEnvImports(t, store, linker)

	instance, err := linker.Instantiate(store, m)
	require.NoError(t, err)
	return store, instance
}

func callI32(t *testing.T, store *wasmtime.Store, instance *wasmtime.Instance, name string, args ...interface{}) int32 {
	t.Helper()
	fn := instance.GetFunc(store, name)
	require.NotNil(t, fn, "%s is not an exported function", name)
	result, err := fn.Call(store, args...)
	require.NoError(t, err, "calling %s", name)
	v, ok := result.(int32)
	require.True(t, ok, "%s did not return an i32, got %T", name, result)
	return v
}

// --- wasmer side ---

func instantiateWasmer(t *testing.T, wasm []byte) *wasmer.Instance {
	t.Helper()
	engine := wasmer.NewEngine()
	store := wasmer.NewStore(engine)
	m, err := wasmer.NewModule(store, wasm)
	require.NoError(t, err)

	importObject := wasmer.NewImportObject()
	importObject.Register("env", map[string]wasmer.IntoExtern{
		"abort": wasmer.NewFunction(
			store,
			wasmer.NewFunctionType(wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32), wasmer.NewValueTypes()),
			func(args []wasmer.Value) ([]wasmer.Value, error) {
				t.Fatalf("module called abort%v", args)
				return nil, nil
			},
		),
		"trace": wasmer.NewFunction(
			store,
			wasmer.NewFunctionType(wasmer.NewValueTypes(wasmer.I32, wasmer.I32), wasmer.NewValueTypes()),
			func(args []wasmer.Value) ([]wasmer.Value, error) { return nil, nil },
		),
		"seed": wasmer.NewFunction(
			store,
			wasmer.NewFunctionType(wasmer.NewValueTypes(), wasmer.NewValueTypes(wasmer.F64)),
			func(args []wasmer.Value) ([]wasmer.Value, error) {
				return []wasmer.Value{wasmer.NewF64(0)}, nil
			},
		),
	})

	instance, err := wasmer.NewInstance(m, importObject)
	require.NoError(t, err)
	return instance
}

func callWasmerI32(t *testing.T, instance *wasmer.Instance, name string, args ...interface{}) int32 {
	t.Helper()
	fn, err := instance.Exports.GetRawFunction(name)
	require.NoError(t, err, "%s is not an exported function", name)
	result, err := fn.Call(args...)
	require.NoError(t, err, "calling %s", name)
	v, ok := result.(int32)
	require.True(t, ok, "%s did not return an i32, got %T", name, result)
	return v
}

// TestAddExportedFunction is scenario S1: add(a, b) returns a+b, validated
// against both runtimes.
func TestAddExportedFunction(t *testing.T) {
	wasm := compile(t, `
export function add(a: int, b: int): int {
  return a + b;
}
`, nil)

	store, instance := instantiateWasmtime(t, wasm)
	require.Equal(t, int32(7), callI32(t, store, instance, "add", int32(3), int32(4)), "wasmtime: add(3, 4)")

	wasmerInstance := instantiateWasmer(t, wasm)
	require.Equal(t, int32(7), callWasmerI32(t, wasmerInstance, "add", int32(3), int32(4)), "wasmer: add(3, 4)")
}

// TestConstGlobalFreestandingHasNoStart is scenario S2: a const global
// with a literal initializer is folded into the global's own Init, and a
// freestanding module with no deferred initializers has no start function.
func TestConstGlobalFreestandingHasNoStart(t *testing.T) {
	cfg := asc.NewCompilerConfig().WithNoLib(true)
	mod, diags := asc.CompileString(`
const N: int = 7;
export function n(): int {
  return N;
}
`, cfg)
	require.False(t, diags.HasErrors(), "unexpected diagnostics: %v", diags.All())
	require.False(t, mod.HasStart, "a freestanding module with only a folded const initializer should have no start function")

	store, instance := instantiateWasmtime(t, mod.Encode())
	require.Equal(t, int32(7), callI32(t, store, instance, "n"))
}

// TestFloatTruncationWithExplicitCast is scenario S3: an explicit
// `as int` cast compiles cleanly. The implicit form (S4) is covered by
// TestImplicitFloatToIntNarrowingIsRejected.
func TestFloatTruncationWithExplicitCast(t *testing.T) {
	cfg := asc.NewCompilerConfig().WithNoLib(true)
	wasm := compile(t, `
export function f(x: float): int {
  return x as int;
}
`, cfg)

	store, instance := instantiateWasmtime(t, wasm)
	fn := instance.GetFunc(store, "f")
	require.NotNil(t, fn, "f is not an exported function")
	result, err := fn.Call(store, float32(3.9))
	require.NoError(t, err)
	require.Equal(t, int32(3), result.(int32), "f(3.9) should truncate toward zero")
}

func TestImplicitFloatToIntNarrowingIsRejected(t *testing.T) {
	cfg := asc.NewCompilerConfig().WithNoLib(true).WithSilent(true)
	_, diags := asc.CompileString(`
export function g(x: float): int {
  return x;
}
`, cfg)
	require.True(t, diags.HasErrors(), "implicit float->int narrowing should be rejected with an error diagnostic")
}

// TestLoopComputesExpectedValue is scenario S5: a while loop incrementing
// a local ten times.
func TestLoopComputesExpectedValue(t *testing.T) {
	cfg := asc.NewCompilerConfig().WithNoLib(true)
	wasm := compile(t, `
export function loop(): int {
  let i: int = 0;
  while (i < 10) {
    i++;
  }
  return i;
}
`, cfg)

	store, instance := instantiateWasmtime(t, wasm)
	require.Equal(t, int32(10), callI32(t, store, instance, "loop"))
}

// TestPostfixIncrementReturnsPreUpdateValue exercises lowerPostfixUnary:
// the expression's value is the value before the update, but the local
// is left incremented for whoever reads it next.
func TestPostfixIncrementReturnsPreUpdateValue(t *testing.T) {
	cfg := asc.NewCompilerConfig().WithNoLib(true)
	wasm := compile(t, `
export function f(): int {
  let i: int = 5;
  let old: int = i++;
  return old * 100 + i;
}
`, cfg)

	store, instance := instantiateWasmtime(t, wasm)
	require.Equal(t, int32(506), callI32(t, store, instance, "f"), "old=5, i=6")
}

// TestPrefixIncrementReturnsPostUpdateValue exercises lowerPrefixUnary's
// PrefixInc path: the expression's value already reflects the update.
func TestPrefixIncrementReturnsPostUpdateValue(t *testing.T) {
	cfg := asc.NewCompilerConfig().WithNoLib(true)
	wasm := compile(t, `
export function f(): int {
  let i: int = 5;
  return ++i;
}
`, cfg)

	store, instance := instantiateWasmtime(t, wasm)
	require.Equal(t, int32(6), callI32(t, store, instance, "f"))
}

// TestLogicalAndShortCircuitsRightOperand exercises lowerLogical: the
// right-hand call must never run once the left side is false.
func TestLogicalAndShortCircuitsRightOperand(t *testing.T) {
	cfg := asc.NewCompilerConfig().WithNoLib(true)
	wasm := compile(t, `
let calls: int = 0;
function bumpAndTrue(): bool {
  calls = calls + 1;
  return true;
}
export function f(): bool {
  return false && bumpAndTrue();
}
export function callCount(): int {
  return calls;
}
`, cfg)

	store, instance := instantiateWasmtime(t, wasm)
	fn := instance.GetFunc(store, "f")
	require.NotNil(t, fn, "f is not an exported function")
	_, err := fn.Call(store)
	require.NoError(t, err)
	require.Equal(t, int32(0), callI32(t, store, instance, "callCount"), "right operand must not have run")
}

// TestSwitchStatementSelectsMatchingCase exercises lowerSwitch's
// equality-chain encoding.
func TestSwitchStatementSelectsMatchingCase(t *testing.T) {
	cfg := asc.NewCompilerConfig().WithNoLib(true)
	wasm := compile(t, `
export function classify(x: int): int {
  switch (x) {
    case 1:
      return 10;
    case 2:
      return 20;
    default:
      return -1;
  }
  return -1;
}
`, cfg)

	store, instance := instantiateWasmtime(t, wasm)
	cases := map[int32]int32{1: 10, 2: 20, 3: -1}
	for in, want := range cases {
		require.Equal(t, want, callI32(t, store, instance, "classify", in), "classify(%d)", in)
	}
}

// TestSwitchStatementFallsThroughWithoutBreak exercises lowerSwitch's
// fall-through semantics: a case with no break/return must run straight
// into the following case's statements, not just its own.
func TestSwitchStatementFallsThroughWithoutBreak(t *testing.T) {
	cfg := asc.NewCompilerConfig().WithNoLib(true)
	wasm := compile(t, `
export function classify(x: int): int {
  let result: int = 0;
  switch (x) {
    case 1:
      result = result + 1;
    case 2:
      result = result + 10;
      break;
    case 3:
      result = result + 100;
    default:
      result = result + 1000;
  }
  return result;
}
`, cfg)

	store, instance := instantiateWasmtime(t, wasm)
	cases := map[int32]int32{
		1: 11,   // falls through case 1 into case 2, then breaks
		2: 10,   // matches case 2 directly, then breaks
		3: 1100, // falls through case 3 into default
		4: 1000, // matches default only
	}
	for in, want := range cases {
		require.Equal(t, want, callI32(t, store, instance, "classify", in), "classify(%d)", in)
	}
}

// TestTernaryConditionalSelectsBranch exercises lowerConditional.
func TestTernaryConditionalSelectsBranch(t *testing.T) {
	cfg := asc.NewCompilerConfig().WithNoLib(true)
	wasm := compile(t, `
export function max(a: int, b: int): int {
  return a > b ? a : b;
}
`, cfg)

	store, instance := instantiateWasmtime(t, wasm)
	require.Equal(t, int32(9), callI32(t, store, instance, "max", int32(3), int32(9)))
	require.Equal(t, int32(9), callI32(t, store, instance, "max", int32(9), int32(3)))
}

// TestClassConstructorAndPropertyAccess exercises lowerNew,
// lowerPropertyAssign (via the constructor's `this.x = x` assignments)
// and lowerPropertyAccess together: a fresh instance's fields are
// readable through an instance method after construction.
func TestClassConstructorAndPropertyAccess(t *testing.T) {
	wasm := compile(t, `
class Point {
  x: int;
  y: int;
  constructor(x: int, y: int) {
    this.x = x;
    this.y = y;
  }
  sum(): int {
    return this.x + this.y;
  }
}
export function makeAndSum(x: int, y: int): int {
  let p: Point = new Point(x, y);
  return p.sum();
}
`, nil)

	store, instance := instantiateWasmtime(t, wasm)
	require.Equal(t, int32(7), callI32(t, store, instance, "makeAndSum", int32(3), int32(4)))
}

// TestEnumMemberLowersToItsConstantValue exercises tryEnumMember.
func TestEnumMemberLowersToItsConstantValue(t *testing.T) {
	cfg := asc.NewCompilerConfig().WithNoLib(true)
	wasm := compile(t, `
enum Color {
  Red,
  Green,
  Blue,
}
export function blue(): int {
  return Color.Blue;
}
`, cfg)

	store, instance := instantiateWasmtime(t, wasm)
	require.Equal(t, int32(2), callI32(t, store, instance, "blue"))
}

// TestAllocatorExportsMallocAndFree is scenario S6: a non-freestanding
// build with no user code still exports a working malloc/free and runs
// mspace_init at start.
func TestAllocatorExportsMallocAndFree(t *testing.T) {
	wasm := compile(t, `
export function noop(): void {}
`, nil)

	store, instance := instantiateWasmtime(t, wasm)

	mallocFn := instance.GetFunc(store, "malloc")
	require.NotNil(t, mallocFn, "expected an exported malloc")
	freeFn := instance.GetFunc(store, "free")
	require.NotNil(t, freeFn, "expected an exported free")

	p1, err := mallocFn.Call(store, int32(8))
	require.NoError(t, err, "malloc(8)")
	p2, err := mallocFn.Call(store, int32(8))
	require.NoError(t, err, "malloc(8)")
	require.NotEqual(t, p1.(int32), p2.(int32), "two consecutive mallocs should not return the same address")
	require.NotZero(t, p1.(int32), "malloc should not return the null address after mspace_init ran")

	_, err = freeFn.Call(store, p1.(int32))
	require.NoError(t, err, "free(p1)")
}
