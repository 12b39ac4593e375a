// Package initialize walks a parsed program's top-level declarations,
// populating the reflection model and emitting global variable
// declarations and deferred global initializers, per spec.md §4.6.
package initialize

import (
	"github.com/ascwasm/asc/internal/ast"
	"github.com/ascwasm/asc/internal/diag"
	"github.com/ascwasm/asc/internal/ir"
	"github.com/ascwasm/asc/internal/mangle"
	"github.com/ascwasm/asc/internal/reflection"
	"github.com/ascwasm/asc/internal/typeresolve"
)

// Pass runs the initialize phase over one Program.
type Pass struct {
	Program  *ast.Program
	Builder  *reflection.Builder
	Symbols  *ast.SymbolTable
	Mangler  *mangle.Mangler
	Resolver *typeresolve.Resolver
	Diags    *diag.Collector
}

// New returns a Pass wired to run over program.
func New(program *ast.Program, b *reflection.Builder, symbols *ast.SymbolTable, m *mangle.Mangler, r *typeresolve.Resolver, diags *diag.Collector) *Pass {
	return &Pass{Program: program, Builder: b, Symbols: symbols, Mangler: m, Resolver: r, Diags: diags}
}

// Run executes the three sub-phases in order: shell declaration (so
// forward/cyclic class references resolve), property/enum-member
// resolution, then global and function declaration. This ordering is the
// two-phase answer spec.md §9 asks for to avoid relying on declaration
// order across files.
func (p *Pass) Run() {
	p.declareShells()
	p.resolveMembers()
	p.declareGlobalsAndFunctions()
}

func (p *Pass) declareShells() {
	for _, f := range p.Program.Files {
		for _, stmt := range f.Statements {
			switch s := stmt.(type) {
			case *ast.ClassDeclaration:
				mangled := p.Mangler.Mangle(s.Name, f.Path)
				if s.IsGeneric() {
					tmpl := reflection.NewClassTemplate(mangled, f.Path, s)
					p.Builder.ClassTemplates[mangled] = tmpl
					p.Builder.NodeClassTemplates[s] = tmpl
					continue
				}
				class := reflection.NewClass(mangled)
				p.Builder.Classes[mangled] = class
				p.Builder.NodeClasses[s] = class
			case *ast.EnumDeclaration:
				mangled := p.Mangler.Mangle(s.Name, f.Path)
				enum := reflection.NewEnum(mangled)
				p.Builder.Enums[mangled] = enum
				p.Builder.NodeEnums[s] = enum
			}
		}
	}
}

func (p *Pass) resolveMembers() {
	for _, f := range p.Program.Files {
		for _, stmt := range f.Statements {
			switch s := stmt.(type) {
			case *ast.ClassDeclaration:
				if s.IsGeneric() {
					continue // instantiated on first reference, see typeresolve/lowering
				}
				class := p.Builder.NodeClasses[s]
				for _, member := range s.Members {
					if prop, ok := member.(*ast.PropertyDeclaration); ok {
						t := p.Resolver.Resolve(f.Path, prop.Type, false)
						class.AddProperty(prop.Name, t, p.Builder.PtrSize)
					}
				}
			case *ast.EnumDeclaration:
				p.resolveEnum(f.Path, s)
			}
		}
	}
}

func (p *Pass) resolveEnum(file string, s *ast.EnumDeclaration) {
	enum := p.Builder.NodeEnums[s]
	folder := ast.NewConstantFolder()
	var prev int64 = -1
	for _, m := range s.Members {
		var v int64
		if m.Initializer != nil {
			val, ok := folder.EvalQualified(s.Name, m.Initializer)
			if !ok {
				p.Diags.Errorf(diag.UnsupportedGlobalConstantInitializer, m, m.Name,
					"enum member initializer must be a constant expression")
				val = prev + 1
			}
			v = val
		} else {
			v = prev + 1
		}
		enum.AddMember(m.Name, v)
		folder.Record(s.Name, m.Name, v)
		prev = v
	}
}

func (p *Pass) declareGlobalsAndFunctions() {
	for _, f := range p.Program.Files {
		for _, stmt := range f.Statements {
			switch s := stmt.(type) {
			case *ast.VariableStatement:
				for _, d := range s.Declarators {
					p.declareGlobal(f.Path, s, d)
				}
			case *ast.FunctionDeclaration:
				mangled := p.Mangler.Mangle(s.Name, f.Path)
				if s.IsGeneric() {
					tmpl := reflection.NewFunctionTemplate(mangled, f.Path, s)
					p.Builder.FunctionTemplates[mangled] = tmpl
					p.Builder.NodeFunctionTemplates[s] = tmpl
					continue
				}
				p.declareFunction(f.Path, s, mangled, nil, false)
			case *ast.ClassDeclaration:
				if s.IsGeneric() {
					continue
				}
				p.declareMethods(f.Path, s)
			case *ast.InterfaceDeclaration, *ast.TypeAliasDeclaration, *ast.ImportDeclaration:
				// accepted, no reflection object
			default:
				p.Diags.Errorf(diag.UnsupportedTopLevelStatement, stmt, "", "unsupported top-level statement")
			}
		}
	}
}

func (p *Pass) declareGlobal(file string, s *ast.VariableStatement, d *ast.VariableDeclarator) {
	t := p.globalType(file, d)
	mangled := p.Mangler.Mangle(d.Name, file)
	v := &reflection.Variable{Name: mangled, Type: t, Global: true, Constant: s.Kind == ast.VariableKindConst}

	lit, isLiteral := d.Initializer.(*ast.NumericLiteral)
	switch {
	case isLiteral:
		v.HasConstantValue = true
		v.ConstantValue = literalAsInt(lit)
		v.Index = p.Builder.Mod.AddGlobal(t.WasmValueType(p.Builder.PtrSize), !v.Constant, literalInit(t, lit, p.Builder.PtrSize))
	case d.Initializer != nil && s.Kind == ast.VariableKindConst:
		p.Diags.Errorf(diag.UnsupportedGlobalConstantInitializer, d, d.Name,
			"const global initializer must be a numeric literal")
		v.Index = p.Builder.Mod.AddGlobal(t.WasmValueType(p.Builder.PtrSize), false, zeroInit(t, p.Builder.PtrSize))
	case d.Initializer != nil:
		v.Index = p.Builder.Mod.AddGlobal(t.WasmValueType(p.Builder.PtrSize), true, zeroInit(t, p.Builder.PtrSize))
		p.Builder.GlobalInitializers = append(p.Builder.GlobalInitializers, reflection.GlobalInitializer{Global: v, File: file, Expr: d.Initializer})
	default:
		v.Index = p.Builder.Mod.AddGlobal(t.WasmValueType(p.Builder.PtrSize), !v.Constant, zeroInit(t, p.Builder.PtrSize))
	}

	p.Builder.Globals[mangled] = v
	p.Builder.NodeGlobals[d] = v
}

func (p *Pass) globalType(file string, d *ast.VariableDeclarator) *reflection.Type {
	if d.Type != nil {
		return p.Resolver.Resolve(file, d.Type, false)
	}
	switch lit := d.Initializer.(type) {
	case *ast.NumericLiteral:
		if lit.Kind == ast.NumericFloat {
			return reflection.Primitives["double"]
		}
		return reflection.Primitives["int"]
	case *ast.BooleanLiteral:
		return reflection.Primitives["bool"]
	default:
		p.Diags.Errorf(diag.TypeExpected, d, d.Name, "cannot infer a type for %q", d.Name)
		return reflection.Primitives["int"]
	}
}

func literalAsInt(lit *ast.NumericLiteral) int64 {
	if lit.Kind == ast.NumericFloat {
		return int64(lit.Float)
	}
	return lit.Int
}

func literalInit(t *reflection.Type, lit *ast.NumericLiteral, ptrSize int) []byte {
	switch {
	case t.IsFloat():
		if lit.Kind == ast.NumericFloat {
			return ir.ConstF32(float32(lit.Float))
		}
		return ir.ConstF32(float32(lit.Int))
	case t.IsDouble():
		if lit.Kind == ast.NumericFloat {
			return ir.ConstF64(lit.Float)
		}
		return ir.ConstF64(float64(lit.Int))
	case t.IsLong(ptrSize):
		if lit.Kind == ast.NumericFloat {
			return ir.ConstI64(int64(lit.Float))
		}
		return ir.ConstI64(lit.Int)
	default:
		if lit.Kind == ast.NumericFloat {
			return ir.ConstI32(int32(lit.Float))
		}
		return ir.ConstI32(int32(lit.Int))
	}
}

func zeroInit(t *reflection.Type, ptrSize int) []byte {
	switch {
	case t.IsFloat():
		return ir.ConstF32(0)
	case t.IsDouble():
		return ir.ConstF64(0)
	case t.IsLong(ptrSize):
		return ir.ConstI64(0)
	default:
		return ir.ConstI32(0)
	}
}

func (p *Pass) declareMethods(file string, s *ast.ClassDeclaration) {
	class := p.Builder.NodeClasses[s]
	for _, member := range s.Members {
		md, ok := member.(*ast.MethodDeclaration)
		if !ok {
			continue
		}
		instance := md.Flags.Has(ast.FunctionFlagInstance)
		var mangledKey string
		switch {
		case md.Flags.Has(ast.FunctionFlagConstructor):
			mangledKey = class.Name
		case instance:
			mangledKey = reflection.InstanceMethodName(class.Name, md.Name)
		default:
			mangledKey = reflection.StaticMethodName(class.Name, md.Name)
		}
		fn := p.declareFunction(file, md.FunctionDeclaration, mangledKey, class, instance)
		class.Methods[md.Name] = fn
	}
}

// declareFunction resolves fd's signature, registers its IR function or
// import, and records it under mangledKey in the Functions map. class and
// instance are non-nil/true for instance methods, which receive an
// implicit `this` as local slot 0.
func (p *Pass) declareFunction(file string, fd *ast.FunctionDeclaration, mangledKey string, class *reflection.Class, instance bool) *reflection.Function {
	ptrSize := p.Builder.PtrSize
	fn := &reflection.Function{
		Name:         mangledKey,
		File:         file,
		Import:       fd.Flags.Has(ast.FunctionFlagImport),
		Export:       fd.Flags.Has(ast.FunctionFlagExport),
		Instance:     instance,
		Body:         fd.Body,
		ImportModule: fd.ImportModule,
		ImportName:   fd.ImportName,
	}

	var paramTypes []ir.ValueType
	if instance {
		thisVar := &reflection.Variable{Name: "this", Type: reflection.NewClassType(class), Index: 0}
		fn.Params = append(fn.Params, thisVar)
		fn.Locals = append(fn.Locals, thisVar)
		paramTypes = append(paramTypes, thisVar.Type.WasmValueType(ptrSize))
	}
	for _, param := range fd.Parameters {
		t := p.Resolver.Resolve(file, param.Type, false)
		v := &reflection.Variable{Name: param.Name, Type: t, Index: uint32(len(fn.Params))}
		fn.Params = append(fn.Params, v)
		fn.Locals = append(fn.Locals, v)
		paramTypes = append(paramTypes, t.WasmValueType(ptrSize))
	}

	retType := reflection.Void
	if fd.ReturnType != nil {
		retType = p.Resolver.Resolve(file, fd.ReturnType, true)
	}
	fn.ReturnType = retType
	var results []ir.ValueType
	if !retType.IsVoid() {
		results = []ir.ValueType{retType.WasmValueType(ptrSize)}
	}

	ft := ir.FunctionType{Params: paramTypes, Results: results}
	fn.Signature = p.Builder.RegisterSignature(ft)

	if fn.Import {
		fn.FuncIndex = p.Builder.Mod.AddImportedFunction(fn.ImportModule, fn.ImportName, ft)
	} else {
		idx, irFn := p.Builder.Mod.AddFunction(ft, mangledKey)
		fn.FuncIndex = idx
		if fn.Export {
			irFn.ExportNames = append(irFn.ExportNames, fd.Name)
			p.Builder.Mod.AddExport(fd.Name, ir.ExternTypeFunc, idx)
		}
	}

	p.Builder.Functions[mangledKey] = fn
	p.Builder.NodeFunctions[fd] = fn
	return fn
}
