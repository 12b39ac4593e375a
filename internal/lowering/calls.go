package lowering

import (
	"github.com/ascwasm/asc/internal/ast"
	"github.com/ascwasm/asc/internal/diag"
	"github.com/ascwasm/asc/internal/ir"
	"github.com/ascwasm/asc/internal/reflection"
)

func (c *Context) lowerCall(ex *ast.CallExpression) *reflection.Type {
	switch callee := ex.Callee.(type) {
	case *ast.Identifier:
		return c.lowerFreeCall(ex, callee)
	case *ast.PropertyAccessExpression:
		return c.lowerMethodCall(ex, callee)
	default:
		c.Diags.Errorf(diag.UnsupportedExpression, ex, "", "unsupported call target")
		c.b.Op(ir.OpcodeUnreachable)
		return reflection.Void
	}
}

// lowerFreeCall resolves callee as a plain function name: an already
// non-generic function is called directly, while a generic one is
// monomorphized for ex's type arguments on this, its first call-site
// reference (spec.md §9).
func (c *Context) lowerFreeCall(ex *ast.CallExpression, callee *ast.Identifier) *reflection.Type {
	sym, ok := c.Symbols.Lookup(c.File, callee.Name)
	if !ok {
		c.Diags.Errorf(diag.UndefinedLocalVariable, callee, callee.Name, "undefined function %q", callee.Name)
		c.b.Op(ir.OpcodeUnreachable)
		return reflection.Void
	}

	var fn *reflection.Function
	switch sym.Kind {
	case ast.SymbolFunction:
		fn = c.Builder.NodeFunctions[sym.Node]
	case ast.SymbolFunctionTemplate:
		tmpl := c.Builder.NodeFunctionTemplates[sym.Node]
		typeArgs := make([]*reflection.Type, len(ex.TypeArgs))
		for i, tn := range ex.TypeArgs {
			typeArgs[i] = c.Resolver.Resolve(c.File, tn, false)
		}
		fn = c.instantiateFunctionTemplate(tmpl, typeArgs)
	default:
		c.Diags.Errorf(diag.UnsupportedExpression, callee, callee.Name, "%q does not name a function", callee.Name)
		c.b.Op(ir.OpcodeUnreachable)
		return reflection.Void
	}
	if fn == nil {
		c.b.Op(ir.OpcodeUnreachable)
		return reflection.Void
	}

	c.emitCallArgs(ex.Arguments, fn.Params)
	c.b.Call(fn.FuncIndex)
	return fn.ReturnType
}

// lowerMethodCall distinguishes a static call (`ClassName.method(...)`,
// callee.Expr names a class rather than a local/global) from an instance
// call, which lowers callee.Expr as a this-valued receiver first.
func (c *Context) lowerMethodCall(ex *ast.CallExpression, callee *ast.PropertyAccessExpression) *reflection.Type {
	if id, ok := callee.Expr.(*ast.Identifier); ok {
		if _, isLocal := c.locals[id.Name]; !isLocal {
			if sym, ok := c.Symbols.Lookup(c.File, id.Name); ok && sym.Kind == ast.SymbolClass {
				class := c.Builder.NodeClasses[sym.Node]
				return c.emitStaticCall(ex, class, callee.Name)
			}
		}
	}

	thisT := c.LowerExpr(callee.Expr)
	if thisT.Kind != reflection.KindClass {
		c.Diags.Errorf(diag.UnsupportedExpression, callee, callee.Name, "method call on a non-class value")
		c.b.Op(ir.OpcodeUnreachable)
		return reflection.Void
	}
	fn, ok := thisT.Class.Methods[callee.Name]
	if !ok {
		c.Diags.Errorf(diag.UnsupportedExpression, callee, callee.Name, "%q has no method %q", thisT.Class.Name, callee.Name)
		c.b.Op(ir.OpcodeUnreachable)
		return reflection.Void
	}
	c.emitCallArgs(ex.Arguments, fn.Params[1:])
	c.b.Call(fn.FuncIndex)
	return fn.ReturnType
}

func (c *Context) emitStaticCall(ex *ast.CallExpression, class *reflection.Class, name string) *reflection.Type {
	fn, ok := class.Methods[name]
	if !ok {
		c.Diags.Errorf(diag.UnsupportedExpression, ex, name, "%q has no static method %q", class.Name, name)
		c.b.Op(ir.OpcodeUnreachable)
		return reflection.Void
	}
	c.emitCallArgs(ex.Arguments, fn.Params)
	c.b.Call(fn.FuncIndex)
	return fn.ReturnType
}

// emitCallArgs lowers each argument against its matching parameter's
// declared type, left to right.
func (c *Context) emitCallArgs(args []ast.Expression, params []*reflection.Variable) {
	for i, arg := range args {
		if i >= len(params) {
			break
		}
		c.LowerExprTyped(arg, params[i].Type, false)
	}
}

// lowerNew allocates class's storage via the host module's malloc, then
// invokes its constructor (if any) with the fresh pointer as `this`,
// leaving the pointer on the stack as the expression's value.
func (c *Context) lowerNew(ex *ast.NewExpression) *reflection.Type {
	t := c.Resolver.Resolve(c.File, ex.Type, false)
	if t.Kind != reflection.KindClass {
		c.Diags.Errorf(diag.IllegalType, ex, ex.Type.Name, "new requires a class type")
		c.b.Op(ir.OpcodeUnreachable)
		return reflection.Void
	}
	class := t.Class

	c.b.I32Const(int32(class.Size))
	c.b.Call(c.MallocIndex)
	if t.WasmValueType(c.PtrSize) == ir.ValueTypeI64 {
		c.b.Op(ir.OpcodeI64ExtendI32U)
	}

	ctor, hasCtor := class.Methods["constructor"]
	if !hasCtor {
		return t
	}

	scratch := c.declareLocal(".new", t)
	c.b.LocalTee(scratch.Index)
	c.emitCallArgs(ex.Arguments, ctor.Params[1:])
	c.b.Call(ctor.FuncIndex)
	if !ctor.ReturnType.IsVoid() {
		c.b.Op(ir.OpcodeDrop)
	}
	c.b.LocalGet(scratch.Index)
	return t
}

// lowerPropertyAccess special-cases a bare `Enum.Member` reference to the
// member's resolved integer constant; otherwise it lowers expr as a class
// instance and loads the named property out of linear memory.
func (c *Context) lowerPropertyAccess(ex *ast.PropertyAccessExpression) *reflection.Type {
	if enumVal, ok := c.tryEnumMember(ex); ok {
		return enumVal
	}

	baseT := c.LowerExpr(ex.Expr)
	if baseT.Kind != reflection.KindClass {
		c.Diags.Errorf(diag.UnsupportedExpression, ex, ex.Name, "property access on a non-class value")
		c.b.Op(ir.OpcodeUnreachable)
		return reflection.Void
	}
	prop, ok := baseT.Class.Property(ex.Name)
	if !ok {
		c.Diags.Errorf(diag.UnsupportedExpression, ex, ex.Name, "%q has no property %q", baseT.Class.Name, ex.Name)
		c.b.Op(ir.OpcodeUnreachable)
		return reflection.Void
	}

	c.emitAddress(baseT)
	loadOp, _, align := memOp(prop.Type, c.PtrSize)
	c.b.Load(loadOp, align, prop.Offset)
	return prop.Type
}

// lowerPropertyAssign is the assignment-target analogue of
// lowerPropertyAccess. The rhs is lowered into a scratch local first so
// its value can both feed the store and remain as the expression's
// result, since wasm's store instructions consume their value operand.
func (c *Context) lowerPropertyAssign(target *ast.PropertyAccessExpression, rhs ast.Expression) *reflection.Type {
	baseBytes, baseT := c.captureExpr(target.Expr)
	if baseT.Kind != reflection.KindClass {
		c.Diags.Errorf(diag.UnsupportedExpression, target, target.Name, "property assignment on a non-class value")
		c.b.Op(ir.OpcodeUnreachable)
		return reflection.Void
	}
	prop, ok := baseT.Class.Property(target.Name)
	if !ok {
		c.Diags.Errorf(diag.UnsupportedExpression, target, target.Name, "%q has no property %q", baseT.Class.Name, target.Name)
		c.b.Op(ir.OpcodeUnreachable)
		return reflection.Void
	}

	c.LowerExprTyped(rhs, prop.Type, false)
	scratch := c.declareLocal(".store", prop.Type)
	c.b.LocalSet(scratch.Index)

	c.b.Append(baseBytes)
	c.emitAddress(baseT)
	c.b.LocalGet(scratch.Index)
	_, storeOp, align := memOp(prop.Type, c.PtrSize)
	c.b.Store(storeOp, align, prop.Offset)

	c.b.LocalGet(scratch.Index)
	return prop.Type
}

// tryEnumMember recognizes ex as `Identifier.Member` where Identifier
// names an enum rather than a local, global or class instance.
func (c *Context) tryEnumMember(ex *ast.PropertyAccessExpression) (*reflection.Type, bool) {
	id, ok := ex.Expr.(*ast.Identifier)
	if !ok {
		return nil, false
	}
	if _, isLocal := c.locals[id.Name]; isLocal {
		return nil, false
	}
	sym, ok := c.Symbols.Lookup(c.File, id.Name)
	if !ok || sym.Kind != ast.SymbolEnum {
		return nil, false
	}
	enum := c.Builder.NodeEnums[sym.Node]
	member, ok := enum.Members[ex.Name]
	if !ok {
		c.Diags.Errorf(diag.UnsupportedExpression, ex, ex.Name, "%q has no member %q", id.Name, ex.Name)
		c.b.Op(ir.OpcodeUnreachable)
		return reflection.Void, true
	}
	c.b.I32Const(int32(member.ConstantValue))
	return reflection.Primitives["int"], true
}

// emitAddress narrows a class/uintptr-typed pointer already on the stack
// to the i32 wasm memory instructions require, when this compilation's
// pointer size is 8 bytes. Call/local/global slots for a pointer-typed
// value always hold it in its native (possibly 64-bit) representation;
// only the Load/Store immediates themselves are always 32-bit, per
// spec.md §9's note that wasm32 memory addressing is independent of the
// configured uintptr width.
func (c *Context) emitAddress(t *reflection.Type) {
	if t.IsLong(c.PtrSize) {
		c.b.Op(ir.OpcodeI32WrapI64)
	}
}

// memOp picks the sized/signed load and store opcodes, and the natural
// (log2) alignment, for a property of type t.
func memOp(t *reflection.Type, ptrSize int) (loadOp, storeOp ir.Opcode, align uint32) {
	switch {
	case t.IsFloat():
		return ir.OpcodeF32Load, ir.OpcodeF32Store, 2
	case t.IsDouble():
		return ir.OpcodeF64Load, ir.OpcodeF64Store, 3
	case t.IsLong(ptrSize):
		return ir.OpcodeI64Load, ir.OpcodeI64Store, 3
	default:
		switch t.Size(ptrSize) {
		case 4:
			return ir.OpcodeI32Load, ir.OpcodeI32Store, 2
		case 2:
			if t.IsSigned() {
				return ir.OpcodeI32Load16S, ir.OpcodeI32Store16, 1
			}
			return ir.OpcodeI32Load16U, ir.OpcodeI32Store16, 1
		default:
			if t.IsSigned() {
				return ir.OpcodeI32Load8S, ir.OpcodeI32Store8, 0
			}
			return ir.OpcodeI32Load8U, ir.OpcodeI32Store8, 0
		}
	}
}

// instantiateFunctionTemplate monomorphizes tmpl for typeArgs, caching by
// reflection.TypeArgsKey exactly as the type resolver's class-template
// path does (spec.md §9): here the first reference is the first call
// site rather than the first type reference, since a free function's
// type parameters are spelled at its call (the call's TypeArgs), not at a
// standalone type position. They are not inferred from the arguments.
func (c *Context) instantiateFunctionTemplate(tmpl *reflection.FunctionTemplate, typeArgs []*reflection.Type) *reflection.Function {
	if len(typeArgs) != len(tmpl.TypeParams) {
		c.Diags.Errorf(diag.IllegalType, tmpl.Decl, tmpl.Name,
			"%q expects %d type argument(s), got %d", tmpl.Name, len(tmpl.TypeParams), len(typeArgs))
		return nil
	}
	key := reflection.TypeArgsKey(typeArgs)
	if fn, ok := tmpl.Instances[key]; ok {
		return fn
	}

	savedOverrides := c.Resolver.TypeParamOverrides
	overrides := make(map[string]*reflection.Type, len(tmpl.TypeParams))
	for i, p := range tmpl.TypeParams {
		overrides[p] = typeArgs[i]
	}
	c.Resolver.TypeParamOverrides = overrides

	decl := tmpl.Decl
	ptrSize := c.PtrSize
	fn := &reflection.Function{
		Name: tmpl.Name + "<" + key + ">",
		File: tmpl.File,
		Body: decl.Body,
	}

	var paramTypes []ir.ValueType
	for _, param := range decl.Parameters {
		pt := c.Resolver.Resolve(tmpl.File, param.Type, false)
		v := &reflection.Variable{Name: param.Name, Type: pt, Index: uint32(len(fn.Params))}
		fn.Params = append(fn.Params, v)
		fn.Locals = append(fn.Locals, v)
		paramTypes = append(paramTypes, pt.WasmValueType(ptrSize))
	}

	retType := reflection.Void
	if decl.ReturnType != nil {
		retType = c.Resolver.Resolve(tmpl.File, decl.ReturnType, true)
	}
	fn.ReturnType = retType
	var results []ir.ValueType
	if !retType.IsVoid() {
		results = []ir.ValueType{retType.WasmValueType(ptrSize)}
	}

	ft := ir.FunctionType{Params: paramTypes, Results: results}
	fn.Signature = c.Builder.RegisterSignature(ft)
	idx, irFn := c.Builder.Mod.AddFunction(ft, fn.Name)
	fn.FuncIndex = idx

	c.Builder.Functions[fn.Name] = fn
	tmpl.Instances[key] = fn

	if c.Logger != nil {
		c.Logger.WithField("template", tmpl.Name).Debugf("monomorphized function template into %s", fn.Name)
	}

	// This call site is itself mid-lowering of the enclosing function;
	// save every piece of per-function state Reset would otherwise
	// clobber, lower the instantiated body under a fresh one, then
	// restore it so the enclosing function's lowering resumes cleanly.
	savedB, savedFn, savedFile := c.b, c.Function, c.File
	savedLocals, savedNameCount := c.locals, c.nameCount
	savedDepth, savedBreaks, savedConts := c.depth, c.breakTargets, c.continueTargets

	c.Reset(fn, tmpl.File)
	c.LowerBlock(fn.Body)
	irFn.Body = c.b.Bytes()
	irFn.Locals = fn.LocalTypes(ptrSize)

	c.b, c.Function, c.File = savedB, savedFn, savedFile
	c.locals, c.nameCount = savedLocals, savedNameCount
	c.depth, c.breakTargets, c.continueTargets = savedDepth, savedBreaks, savedConts

	c.Resolver.TypeParamOverrides = savedOverrides
	return fn
}
