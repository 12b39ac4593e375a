package reflection

import (
	"github.com/ascwasm/asc/internal/ast"
	"github.com/ascwasm/asc/internal/ir"
)

// GlobalInitializer defers a global's non-literal initializer expression
// to be lowered into the synthesized start function, per spec.md §4.6.
type GlobalInitializer struct {
	Global *Variable
	File   string
	Expr   interface{} // ast.Expression; interface{} to avoid an import cycle with internal/ast
}

// Builder owns every module-level reflection map named in spec.md §3, all
// keyed by mangled global name, plus the pointer size in effect for this
// compilation and the IR module its globals/functions are registered
// into. One Builder is created per compilation and discarded afterward;
// it is never shared across compilations, consistent with this
// compiler's single-compiler-instance concurrency model.
type Builder struct {
	PtrSize int
	Mod     *ir.Module

	Globals           map[string]*Variable
	Functions         map[string]*Function
	Classes           map[string]*Class
	Enums             map[string]*Enum
	FunctionTemplates map[string]*FunctionTemplate
	ClassTemplates    map[string]*ClassTemplate
	Signatures        map[string]ir.Type

	GlobalInitializers []GlobalInitializer

	// NodeClasses and NodeEnums map a class/enum declaration's AST node to
	// its reflection shell, populated by the initialize pass's first
	// (shell-declaring) phase. The type resolver uses these to resolve a
	// type-reference's symbol straight to its reflection object without
	// re-deriving a mangled name, since a property or parameter type may
	// reference a class declared later in the same file or a sibling file.
	NodeClasses           map[ast.Node]*Class
	NodeEnums             map[ast.Node]*Enum
	NodeFunctions         map[ast.Node]*Function
	NodeGlobals           map[ast.Node]*Variable
	NodeClassTemplates    map[ast.Node]*ClassTemplate
	NodeFunctionTemplates map[ast.Node]*FunctionTemplate
}

// NewBuilder returns an empty Builder wired to mod.
func NewBuilder(ptrSize int, mod *ir.Module) *Builder {
	return &Builder{
		PtrSize:               ptrSize,
		Mod:                   mod,
		Globals:               make(map[string]*Variable),
		Functions:             make(map[string]*Function),
		Classes:               make(map[string]*Class),
		Enums:                 make(map[string]*Enum),
		FunctionTemplates:     make(map[string]*FunctionTemplate),
		ClassTemplates:        make(map[string]*ClassTemplate),
		Signatures:            make(map[string]ir.Type),
		NodeClasses:           make(map[ast.Node]*Class),
		NodeEnums:             make(map[ast.Node]*Enum),
		NodeFunctions:         make(map[ast.Node]*Function),
		NodeGlobals:           make(map[ast.Node]*Variable),
		NodeClassTemplates:    make(map[ast.Node]*ClassTemplate),
		NodeFunctionTemplates: make(map[ast.Node]*FunctionTemplate),
	}
}

// RegisterSignature dedups ft against both the reflection-level signature
// table and the IR module's own type section, satisfying the invariant
// that "every reachable Function has a signature registered in signatures
// before emission" (spec.md §3).
func (b *Builder) RegisterSignature(ft ir.FunctionType) ir.Type {
	key := ft.Key()
	if t, ok := b.Signatures[key]; ok {
		return t
	}
	t := b.Mod.AddType(ft)
	b.Signatures[key] = t
	return t
}

// UintptrType returns the shared Primitives["uintptr"] Type. Its size and
// wasm representation are not stored on it: they are computed from the
// pointer size passed to its methods, b.PtrSize for this compilation.
func (b *Builder) UintptrType() *Type { return Primitives["uintptr"] }
