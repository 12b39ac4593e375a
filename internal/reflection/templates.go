package reflection

import (
	"strings"

	"github.com/ascwasm/asc/internal/ast"
)

// FunctionTemplate carries a generic function's AST declaration and type
// parameter list. resolve(typeArgs) — TypeArgsKey plus the caller-held
// Instances map — yields a monomorphized Function, cached by a canonical
// tuple of type ids so the same instantiation is shared across call
// sites, per spec.md §9.
type FunctionTemplate struct {
	Name       string
	File       string
	Decl       *ast.FunctionDeclaration
	TypeParams []string
	Instances  map[string]*Function
}

// NewFunctionTemplate returns an empty template ready to cache instances.
func NewFunctionTemplate(name, file string, decl *ast.FunctionDeclaration) *FunctionTemplate {
	return &FunctionTemplate{
		Name:       name,
		File:       file,
		Decl:       decl,
		TypeParams: decl.TypeParameters,
		Instances:  make(map[string]*Function),
	}
}

// IsGeneric reports whether the template actually has type parameters;
// per spec.md §3, non-generic templates are eagerly instantiated during
// initialize rather than waiting for a call site.
func (t *FunctionTemplate) IsGeneric() bool { return len(t.TypeParams) > 0 }

// ClassTemplate is the class-declaration analogue of FunctionTemplate.
type ClassTemplate struct {
	Name       string
	File       string
	Decl       *ast.ClassDeclaration
	TypeParams []string
	Instances  map[string]*Class
}

func NewClassTemplate(name, file string, decl *ast.ClassDeclaration) *ClassTemplate {
	return &ClassTemplate{
		Name:       name,
		File:       file,
		Decl:       decl,
		TypeParams: decl.TypeParameters,
		Instances:  make(map[string]*Class),
	}
}

func (t *ClassTemplate) IsGeneric() bool { return len(t.TypeParams) > 0 }

// TypeArgsKey returns the canonical instance-cache key for a list of
// resolved type arguments, by joining each argument's stable identity
// string. Two calls with the same resolved types produce the same key
// regardless of how the type arguments were spelled at the call site.
func TypeArgsKey(typeArgs []*Type) string {
	ids := make([]string, len(typeArgs))
	for i, t := range typeArgs {
		ids[i] = typeID(t)
	}
	return strings.Join(ids, ",")
}

func typeID(t *Type) string {
	if t.Kind == KindClass {
		return "class:" + t.Class.Name
	}
	return kindName(t.Kind)
}

func kindName(k Kind) string {
	switch k {
	case KindVoid:
		return "void"
	case KindSByte:
		return "sbyte"
	case KindShort:
		return "short"
	case KindInt:
		return "int"
	case KindLong:
		return "long"
	case KindBool:
		return "bool"
	case KindByte:
		return "byte"
	case KindUShort:
		return "ushort"
	case KindUInt:
		return "uint"
	case KindULong:
		return "ulong"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindUintptr:
		return "uintptr"
	default:
		return "?"
	}
}
