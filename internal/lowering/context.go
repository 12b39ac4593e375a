// Package lowering translates statement and expression AST nodes into
// WebAssembly instructions, per spec.md §4.4–4.5.
package lowering

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ascwasm/asc/internal/ast"
	"github.com/ascwasm/asc/internal/diag"
	"github.com/ascwasm/asc/internal/ir"
	"github.com/ascwasm/asc/internal/mangle"
	"github.com/ascwasm/asc/internal/reflection"
	"github.com/ascwasm/asc/internal/typeresolve"
)

// Context is the ambient, per-function lowering state spec.md §9 asks to
// be threaded explicitly rather than held as instance fields:
// currentFunction, currentLocals, and the break-context bookkeeping.
// One Context is reused across every function of a compilation via
// Reset, rather than reconstructed, since the symbol table, mangler,
// converter and reflection builder it wraps are compilation-wide.
type Context struct {
	Builder   *reflection.Builder
	Resolver  *typeresolve.Resolver
	Converter *typeresolve.Converter
	Diags     *diag.Collector
	Mangler   *mangle.Mangler
	Symbols   *ast.SymbolTable
	PtrSize   int

	// MallocIndex is the function index of the host module's `malloc`
	// wrapper, wired in by the driver once internal/allocator has
	// integrated the allocator module (spec.md §4.7). `new` lowers to a
	// call against this index.
	MallocIndex uint32

	// Logger, when set by the driver, receives a debug-level entry for
	// each function template monomorphized. Nil is safe; logging is
	// skipped.
	Logger *logrus.Logger

	File     string
	Function *reflection.Function

	b *ir.Builder

	locals    map[string]*reflection.Variable
	nameCount map[string]int

	// depth counts how many block/loop/if constructs enclose the
	// instruction currently being appended; breakTargets/continueTargets
	// record the depth value captured right after opening the block a
	// break/continue should branch to, so a break/continue site computes
	// its relative branch depth as depth-target. This has the same
	// observable effect as spec.md §9's named (number, depth) break
	// contexts, without needing textual labels: WebAssembly's binary
	// encoding addresses branch targets by relative block nesting, not by
	// name.
	depth           int
	breakTargets    []int
	continueTargets []int
}

// New returns a Context for one compilation.
func New(b *reflection.Builder, resolver *typeresolve.Resolver, converter *typeresolve.Converter, diags *diag.Collector, mangler *mangle.Mangler, symbols *ast.SymbolTable, ptrSize int) *Context {
	return &Context{Builder: b, Resolver: resolver, Converter: converter, Diags: diags, Mangler: mangler, Symbols: symbols, PtrSize: ptrSize}
}

// Reset prepares the Context to lower fn's body, declared in file. It
// seeds currentLocals with fn's parameters (this included) and returns a
// fresh instruction builder for the caller to install as fn's body once
// lowering completes.
func (c *Context) Reset(fn *reflection.Function, file string) *ir.Builder {
	c.File = file
	c.Function = fn
	c.b = ir.NewBuilder()
	c.locals = make(map[string]*reflection.Variable, len(fn.Params))
	c.nameCount = make(map[string]int)
	for _, p := range fn.Params {
		c.locals[p.Name] = p
		c.nameCount[p.Name] = 1
	}
	c.depth = 0
	c.breakTargets = nil
	c.continueTargets = nil
	return c.b
}

// declareLocal allocates a new local slot for name (suffixing name.2,
// name.3, … on redeclaration within the same function, per spec.md
// §4.5), registers it in currentLocals so subsequent identifier lookups
// find it, and returns the new Variable.
func (c *Context) declareLocal(name string, t *reflection.Type) *reflection.Variable {
	c.nameCount[name]++
	slotName := name
	if n := c.nameCount[name]; n > 1 {
		slotName = fmt.Sprintf("%s.%d", name, n)
	}
	v := c.Function.AddLocal(slotName, t)
	c.locals[name] = v
	return v
}

// captureExpr lowers e into an isolated instruction stream, returning its
// bytes and reflected type without appending to c.b. Used wherever a
// lowering needs to reorder an operand's instructions relative to others
// it emits around it (e.g. unary minus needs a 0 pushed before the
// operand).
func (c *Context) captureExpr(e ast.Expression) ([]byte, *reflection.Type) {
	saved := c.b
	c.b = ir.NewBuilder()
	t := c.lowerExprInner(e, nil)
	e.SetResolvedType(t)
	bytes := c.b.Bytes()
	c.b = saved
	return bytes, t
}

// LowerGlobalInitializer lowers expr (a deferred global initializer,
// spec.md §4.6) against t, returning its instruction bytes for the
// synthesized start function to append before a global.set. It runs
// outside of any function's locals, saving and restoring whatever
// function was mid-lowering around it exactly as instantiateFunctionTemplate
// does, since global initializers are compiled after every function body
// in this driver's pipeline but must not disturb Context's reusable state.
func (c *Context) LowerGlobalInitializer(t *reflection.Type, file string, expr ast.Expression) []byte {
	savedB, savedFn, savedFile := c.b, c.Function, c.File
	savedLocals, savedNameCount := c.locals, c.nameCount
	savedDepth, savedBreaks, savedConts := c.depth, c.breakTargets, c.continueTargets

	c.File = file
	c.b = ir.NewBuilder()
	c.locals = make(map[string]*reflection.Variable)
	c.nameCount = make(map[string]int)
	c.depth = 0
	c.breakTargets = nil
	c.continueTargets = nil

	c.LowerExprTyped(expr, t, false)
	bytes := c.b.Bytes()

	c.b, c.Function, c.File = savedB, savedFn, savedFile
	c.locals, c.nameCount = savedLocals, savedNameCount
	c.depth, c.breakTargets, c.continueTargets = savedDepth, savedBreaks, savedConts
	return bytes
}

// enterBlock/leaveBlock track nesting depth around every Block/Loop/If
// this package opens.
func (c *Context) enterBlock() { c.depth++ }
func (c *Context) leaveBlock() { c.depth-- }

func (c *Context) pushBreakTarget()    { c.breakTargets = append(c.breakTargets, c.depth) }
func (c *Context) popBreakTarget()     { c.breakTargets = c.breakTargets[:len(c.breakTargets)-1] }
func (c *Context) pushContinueTarget() { c.continueTargets = append(c.continueTargets, c.depth) }
func (c *Context) popContinueTarget()  { c.continueTargets = c.continueTargets[:len(c.continueTargets)-1] }

// breakDepth/continueDepth panic if called with no enclosing breakable
// construct: spec.md §4.5 calls this an internal invariant violation.
// The parser accepts break/continue wherever a statement may appear and no
// earlier phase rejects a misplaced one, so such a program reaches this
// panic.
func (c *Context) breakDepth() uint32 {
	if len(c.breakTargets) == 0 {
		panic("lowering: break outside any breakable construct")
	}
	return uint32(c.depth - c.breakTargets[len(c.breakTargets)-1])
}

func (c *Context) continueDepth() uint32 {
	if len(c.continueTargets) == 0 {
		panic("lowering: continue outside any loop")
	}
	return uint32(c.depth - c.continueTargets[len(c.continueTargets)-1])
}
