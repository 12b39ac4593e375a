package reflection

import (
	"github.com/ascwasm/asc/internal/ast"
	"github.com/ascwasm/asc/internal/ir"
)

// Function is a resolved (non-generic) function: its mangled name,
// ordered parameters (each a Variable, slot-indexed contiguously from 0,
// with an implicit `this` at slot 0 for instance methods preceding the
// declared parameters), return type, body AST reference, and the IR
// signature/function handles it was registered under.
type Function struct {
	Name       string
	File       string // source file this function is declared in, for resolving its body's type references
	Params     []*Variable // includes the synthetic `this` receiver first, when Instance
	ReturnType *Type
	Body       *ast.BlockStatement // nil for imports

	Import       bool
	Export       bool
	Instance     bool
	ImportModule string
	ImportName   string

	Signature ir.Type
	FuncIndex uint32

	// Locals holds every local slot in index order: this (if Instance),
	// then Params, then body-declared locals appended by the statement
	// lowerer as it encounters `let`/`const` statements.
	Locals []*Variable
}

// AddLocal appends a new local slot and returns it. Name collisions
// (shadowing) are resolved by the caller via a unique-name suffix before
// calling AddLocal, per spec.md §4.5.
func (f *Function) AddLocal(name string, t *Type) *Variable {
	v := &Variable{Name: name, Type: t, Index: uint32(len(f.Locals))}
	f.Locals = append(f.Locals, v)
	return v
}

// LocalTypes returns the wasm value types of every local slot beyond the
// first len(f.Params), which the IR function signature already accounts
// for as parameters — i.e. the types Module.AddFunction's caller must set
// as Func.Locals.
func (f *Function) LocalTypes(ptrSize int) []ir.ValueType {
	var out []ir.ValueType
	for _, v := range f.Locals[len(f.Params):] {
		out = append(out, v.Type.WasmValueType(ptrSize))
	}
	return out
}
