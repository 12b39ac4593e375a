// Package typeresolve maps source type-nodes to reflection types and
// implements the implicit/explicit numeric conversion engine, per
// spec.md §4.2–4.3.
package typeresolve

import (
	"github.com/sirupsen/logrus"

	"github.com/ascwasm/asc/internal/ast"
	"github.com/ascwasm/asc/internal/diag"
	"github.com/ascwasm/asc/internal/reflection"
)

// Resolver resolves type-nodes against one compilation's symbol table and
// reflection builder.
type Resolver struct {
	Builder *reflection.Builder
	Symbols *ast.SymbolTable
	Diags   *diag.Collector

	// Logger, when set by the driver, receives a debug-level entry for
	// each class template monomorphized (SPEC_FULL.md §2.3's "monomorphization
	// events at debug level"). Nil is safe; logging is skipped.
	Logger *logrus.Logger

	// TypeParamOverrides binds a generic declaration's type-parameter
	// names to concrete types while its body is being resolved or
	// lowered for one instantiation (spec.md §9's monomorphization
	// design note: templates are instantiated per distinct type-argument
	// set on first reference). Callers set this for the duration of one
	// instantiation and restore the previous value afterward; Resolve
	// consults it before falling back to the symbol table.
	TypeParamOverrides map[string]*reflection.Type
}

// New returns a Resolver for one compilation.
func New(b *reflection.Builder, symbols *ast.SymbolTable, diags *diag.Collector) *Resolver {
	return &Resolver{Builder: b, Symbols: symbols, Diags: diags}
}

// Resolve maps a type-node, as referenced from file, to a reflection
// Type. acceptVoid controls whether the bare `void` keyword is legal here
// (it is for a function return type, not for a variable or parameter).
//
// Resolution order follows spec.md §4.2: void keyword; built-in primitive
// keywords (short-circuiting alias lookup entirely, since the keywords
// are reserved and cannot be shadowed); otherwise chase the symbol table,
// transitively following `type X = Y` aliases, to a class or enum;
// anything else is an Unresolvable/Unsupported type, recovered as void.
func (r *Resolver) Resolve(file string, tn ast.TypeNode, acceptVoid bool) *reflection.Type {
	nt, ok := tn.(*ast.NamedTypeNode)
	if !ok {
		r.Diags.Errorf(diag.UnsupportedType, tn, "", "unsupported type node")
		return reflection.Void
	}

	if nt.Name == "void" {
		if !acceptVoid {
			r.Diags.Errorf(diag.TypeExpected, tn, "", "void is not valid here")
		}
		return reflection.Void
	}
	if prim, ok := reflection.Primitives[nt.Name]; ok {
		return prim
	}
	if len(nt.TypeArgs) == 0 {
		if t, ok := r.TypeParamOverrides[nt.Name]; ok {
			return t
		}
	}

	name, curFile := nt.Name, file
	seen := map[string]bool{}
	for {
		key := curFile + "#" + name
		if seen[key] {
			r.Diags.Errorf(diag.UnresolvableType, tn, name, "circular type alias")
			return reflection.Void
		}
		seen[key] = true

		sym, ok := r.Symbols.Lookup(curFile, name)
		if !ok {
			r.Diags.Errorf(diag.UnresolvableType, tn, name, "unresolvable type %q", name)
			return reflection.Void
		}

		switch sym.Kind {
		case ast.SymbolClass:
			class, ok := r.Builder.NodeClasses[sym.Node]
			if !ok {
				r.Diags.Errorf(diag.UnresolvableType, tn, name, "class %q not yet declared", name)
				return reflection.Void
			}
			return reflection.NewClassType(class)

		case ast.SymbolClassTemplate:
			return r.resolveClassTemplateInstance(tn, nt, curFile, sym.Node)

		case ast.SymbolEnum:
			// Enum-typed values are represented as plain ints; the enum's
			// own reflection object only matters for resolving member
			// constants, not for typing a variable declared `let x: Status`.
			return reflection.Primitives["int"]

		case ast.SymbolTypeAlias:
			alias := sym.Node.(*ast.TypeAliasDeclaration)
			aliasNamed, ok := alias.Type.(*ast.NamedTypeNode)
			if !ok {
				r.Diags.Errorf(diag.UnsupportedType, tn, name, "unsupported alias target")
				return reflection.Void
			}
			if prim, ok := reflection.Primitives[aliasNamed.Name]; ok {
				return prim
			}
			name, curFile = aliasNamed.Name, alias.Pos.File
			continue

		default:
			r.Diags.Errorf(diag.UnresolvableType, tn, name, "%q does not name a type", name)
			return reflection.Void
		}
	}
}

// resolveClassTemplateInstance monomorphizes decl (a generic class
// declaration) for nt's type arguments, caching the result on the
// template so a second reference with the same arguments reuses it
// (spec.md §9: templates instantiate per distinct type-argument set on
// first reference).
func (r *Resolver) resolveClassTemplateInstance(tn ast.TypeNode, nt *ast.NamedTypeNode, refFile string, decl ast.Node) *reflection.Type {
	tmpl, ok := r.Builder.NodeClassTemplates[decl]
	if !ok {
		r.Diags.Errorf(diag.UnresolvableType, tn, nt.Name, "class template %q not yet declared", nt.Name)
		return reflection.Void
	}
	if len(nt.TypeArgs) != len(tmpl.TypeParams) {
		r.Diags.Errorf(diag.IllegalType, tn, nt.Name, "%q expects %d type argument(s), got %d", nt.Name, len(tmpl.TypeParams), len(nt.TypeArgs))
		return reflection.Void
	}

	args := make([]*reflection.Type, len(nt.TypeArgs))
	for i, argNode := range nt.TypeArgs {
		args[i] = r.Resolve(refFile, argNode, false)
	}
	key := reflection.TypeArgsKey(args)
	if class, ok := tmpl.Instances[key]; ok {
		return reflection.NewClassType(class)
	}

	saved := r.TypeParamOverrides
	overrides := make(map[string]*reflection.Type, len(tmpl.TypeParams))
	for i, p := range tmpl.TypeParams {
		overrides[p] = args[i]
	}
	r.TypeParamOverrides = overrides

	class := reflection.NewClass(tmpl.Name + "<" + key + ">")
	for _, member := range tmpl.Decl.Members {
		if prop, ok := member.(*ast.PropertyDeclaration); ok {
			t := r.Resolve(tmpl.File, prop.Type, false)
			class.AddProperty(prop.Name, t, r.Builder.PtrSize)
		}
	}
	tmpl.Instances[key] = class
	r.Builder.Classes[class.Name] = class

	r.TypeParamOverrides = saved
	if r.Logger != nil {
		r.Logger.WithField("template", tmpl.Name).Debugf("monomorphized class template into %s", class.Name)
	}
	return reflection.NewClassType(class)
}
