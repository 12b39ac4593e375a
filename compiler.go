package asc

import (
	"os"

	"github.com/ascwasm/asc/internal/allocator"
	"github.com/ascwasm/asc/internal/ast"
	"github.com/ascwasm/asc/internal/diag"
	"github.com/ascwasm/asc/internal/initialize"
	"github.com/ascwasm/asc/internal/ir"
	"github.com/ascwasm/asc/internal/lowering"
	"github.com/ascwasm/asc/internal/mangle"
	"github.com/ascwasm/asc/internal/reflection"
	"github.com/ascwasm/asc/internal/startfn"
	"github.com/ascwasm/asc/internal/typeresolve"
)

// libFile names the built-in declaration file every compilation sees
// without importing it, mirroring a host toolchain's bundled lib.d.ts
// (spec.md §6). It is never read from disk; libSource is compiled in.
const libFile = "assembly.d.ts"

// libSource declares the ambient host imports every non-freestanding
// program can call: abort (trap reporting), trace (debug logging) and
// seed (Math.random's entropy source), each named module$base per the
// function-import convention the parser applies by splitting on "$"
// (spec.md §6).
const libSource = `
function env$abort(message: uintptr, fileName: uintptr, line: int, column: int): void;
function env$trace(message: uintptr, n: int): void;
function env$seed(): double;
`

// heapBase is the linear-memory address the allocator's bump arena
// starts at, leaving a small reserved prefix below it so address 0
// remains recognizable as a null pointer, matching the low-memory
// reservation convention the teacher's runtime ABI follows.
const heapBase = 16

// CompileFile reads path from the host file system and compiles it
// alongside the built-in declaration file, per spec.md §6.
func CompileFile(path string, cfg *CompilerConfig) (*ir.Module, *diag.Collector) {
	if cfg == nil {
		cfg = NewCompilerConfig()
	}
	diags := diag.NewCollector(os.Stderr, cfg.silent)

	src, err := os.ReadFile(path)
	if err != nil {
		diags.Errorf(diag.UnresolvableType, nil, path, "cannot read %s: %v", path, err)
		return nil, diags
	}
	return compileSource(path, string(src), cfg, diags)
}

// CompileString synthesizes a two-file program from source — the
// built-in declaration file plus source under a fixed synthetic path —
// and compiles it, per spec.md §6.
func CompileString(source string, cfg *CompilerConfig) (*ir.Module, *diag.Collector) {
	if cfg == nil {
		cfg = NewCompilerConfig()
	}
	diags := diag.NewCollector(os.Stderr, cfg.silent)
	return compileSource("module.ts", source, cfg, diags)
}

// CompileProgram compiles an already-parsed Program directly, per
// spec.md §6. Diagnostics from earlier phases (parsing) are assumed
// already resolved by the caller; this entry point starts at the
// initialize phase.
func CompileProgram(program *ast.Program, cfg *CompilerConfig) (*ir.Module, *diag.Collector) {
	if cfg == nil {
		cfg = NewCompilerConfig()
	}
	diags := diag.NewCollector(os.Stderr, cfg.silent)
	return compile(program, cfg, diags)
}

// compileSource parses the built-in declaration file plus one entry
// file, then hands off to compile. A parse failure is reported through
// diags as an Error-category diagnostic rather than a bare Go error, so
// callers only ever need to consult the returned Collector (spec.md §4.9
// step (a): "surface PreEmit diagnostics, bail on error").
func compileSource(entryFile, entrySource string, cfg *CompilerConfig, diags *diag.Collector) (*ir.Module, *diag.Collector) {
	libSF, err := ast.Parse(libFile, libSource)
	if err != nil {
		diags.Errorf(diag.UnsupportedTopLevelStatement, nil, libFile, "parsing built-in declarations: %v", err)
		return nil, diags
	}
	entrySF, err := ast.Parse(entryFile, entrySource)
	if err != nil {
		diags.Errorf(diag.UnsupportedTopLevelStatement, nil, entryFile, "parsing %s: %v", entryFile, err)
		return nil, diags
	}

	program := &ast.Program{
		Files:     []*ast.SourceFile{libSF, entrySF},
		EntryFile: entryFile,
		LibFile:   libFile,
	}
	return compile(program, cfg, diags)
}

// compile runs the initialize and lowering phases over program and
// assembles the finished module, implementing spec.md §4.9's gating
// sequence: each phase runs to completion, diagnostics are checked, and
// compilation bails with a nil module the first time an Error-category
// diagnostic has been reported.
func compile(program *ast.Program, cfg *CompilerConfig, diags *diag.Collector) (*ir.Module, *diag.Collector) {
	logger := cfg.logger
	logger.Debug("initialize: declaring symbols and reflection shells")

	mod := ir.NewModule()
	builder := reflection.NewBuilder(cfg.uintptrSize, mod)
	symbols := ast.NewSymbolTable(program.LibFile)
	symbols.DeclareProgram(program)
	mangler := mangle.New(program.EntryFile, program.LibFile)
	resolver := typeresolve.New(builder, symbols, diags)
	resolver.Logger = logger
	converter := typeresolve.NewConverter(cfg.uintptrSize, diags)

	initPass := initialize.New(program, builder, symbols, mangler, resolver, diags)
	initPass.Run()
	if diags.HasErrors() {
		return nil, diags
	}

	logger.Debug("compile: lowering function bodies")
	lowerCtx := lowering.New(builder, resolver, converter, diags, mangler, symbols, cfg.uintptrSize)
	lowerCtx.Logger = logger

	if !cfg.noLib {
		mod.ImportMemory("env", "memory", 1, 0, false)
		result, err := allocator.Integrate(mod, heapBase)
		if err != nil {
			diags.Errorf(diag.UnsupportedTopLevelStatement, nil, "", "integrating allocator: %v", err)
			return nil, diags
		}
		lowerCtx.MallocIndex = result.MallocIndex
		lowerAllFunctions(program, builder, lowerCtx)
		if diags.HasErrors() {
			return nil, diags
		}
		synthesizeStart(mod, builder, lowerCtx, result.StartInit)
		return mod, diags
	}

	mod.SetMemory(1, 0, false)
	lowerAllFunctions(program, builder, lowerCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	synthesizeStart(mod, builder, lowerCtx, nil)
	return mod, diags
}

// lowerAllFunctions walks program.Files in declaration order, lowering
// every non-generic, non-import function and method body it finds. This
// fixed traversal order (rather than ranging over Builder.Functions, a
// map) keeps emitted function bodies, and hence the encoded module,
// stable across runs of the same input, consistent with the mangling
// stability spec.md §8 requires of every other derived name.
func lowerAllFunctions(program *ast.Program, builder *reflection.Builder, c *lowering.Context) {
	for _, f := range program.Files {
		for _, stmt := range f.Statements {
			switch s := stmt.(type) {
			case *ast.FunctionDeclaration:
				if s.IsGeneric() || s.Flags.Has(ast.FunctionFlagImport) {
					continue
				}
				lowerOne(f.Path, builder.NodeFunctions[s], c)
			case *ast.ClassDeclaration:
				if s.IsGeneric() {
					continue
				}
				for _, member := range s.Members {
					md, ok := member.(*ast.MethodDeclaration)
					if !ok {
						continue
					}
					lowerOne(f.Path, builder.NodeFunctions[md.FunctionDeclaration], c)
				}
			}
		}
	}
}

func lowerOne(file string, fn *reflection.Function, c *lowering.Context) {
	if fn == nil || fn.Body == nil {
		return
	}
	b := c.Reset(fn, file)
	c.LowerBlock(fn.Body)
	irFn := c.Builder.Mod.Funcs[fn.FuncIndex]
	irFn.Body = b.Bytes()
	irFn.Locals = fn.LocalTypes(c.PtrSize)
}

// synthesizeStart lowers every deferred global initializer into a
// startfn.Init and installs the module's start function, per spec.md
// §4.8. allocatorInit is the allocator's own bootstrap call, empty under
// WithNoLib.
func synthesizeStart(mod *ir.Module, builder *reflection.Builder, c *lowering.Context, allocatorInit []byte) {
	var inits []startfn.Init
	for _, gi := range builder.GlobalInitializers {
		expr, ok := gi.Expr.(ast.Expression)
		if !ok {
			continue
		}
		bytes := c.LowerGlobalInitializer(gi.Global.Type, gi.File, expr)
		inits = append(inits, startfn.Init{GlobalIndex: gi.Global.Index, Body: bytes})
	}

	var userStart *uint32
	if sym, ok := entryStartFunction(builder); ok {
		userStart = &sym
	}
	startfn.Synthesize(mod, allocatorInit, inits, userStart)
}

// entryStartFunction looks for a function literally named `start`,
// spec.md §6/§8's reserved name for the function the synthesized start
// function calls last, after every global initializer has run.
func entryStartFunction(builder *reflection.Builder) (uint32, bool) {
	fn, ok := builder.Functions["start"]
	if !ok || !fn.ReturnType.IsVoid() || len(fn.Params) != 0 {
		return 0, false
	}
	return fn.FuncIndex, true
}
