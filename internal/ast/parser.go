package ast

import "fmt"

// Parse parses one source file's text in the supported subset grammar.
// Parse errors are reported as a single Go error from the first malformed
// construct encountered: unlike the phases downstream of this package,
// which keep going after a bad construct by reporting a diagnostic and
// substituting a safe placeholder, this parser has no principled recovery
// strategy for arbitrary broken syntax and stops at the first one.
func Parse(path, src string) (sf *SourceFile, err error) {
	p := &parser{lex: newLexer(path, src), file: path}
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(parseError); ok {
				err = fmt.Errorf("%s", string(pe))
				return
			}
			panic(r)
		}
	}()
	if e := p.advance(); e != nil {
		return nil, e
	}
	sf = &SourceFile{Path: path}
	for p.tok.kind != tokEOF {
		sf.Statements = append(sf.Statements, p.parseTopLevel())
	}
	return sf, nil
}

type parseError string

func (p *parser) fail(format string, args ...interface{}) {
	panic(parseError(fmt.Sprintf("%s:%d:%d: %s", p.file, p.tok.line, p.tok.col, fmt.Sprintf(format, args...))))
}

type parser struct {
	lex *lexer
	tok token
	file string
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) mustAdvance() {
	if err := p.advance(); err != nil {
		panic(parseError(err.Error()))
	}
}

func (p *parser) pos() Pos { return Pos{File: p.file, Line: p.tok.line, Col: p.tok.col} }

func (p *parser) isPunct(s string) bool { return p.tok.kind == tokPunct && p.tok.text == s }
func (p *parser) isKeyword(s string) bool { return p.tok.kind == tokIdent && p.tok.text == s }

func (p *parser) expectPunct(s string) Pos {
	pos := p.pos()
	if !p.isPunct(s) {
		p.fail("expected %q, got %q", s, p.tok.text)
	}
	p.mustAdvance()
	return pos
}

func (p *parser) expectIdent() (string, Pos) {
	if p.tok.kind != tokIdent {
		p.fail("expected identifier, got %q", p.tok.text)
	}
	name, pos := p.tok.text, p.pos()
	p.mustAdvance()
	return name, pos
}

func (p *parser) tryConsumePunct(s string) bool {
	if p.isPunct(s) {
		p.mustAdvance()
		return true
	}
	return false
}

func (p *parser) tryConsumeKeyword(s string) bool {
	if p.isKeyword(s) {
		p.mustAdvance()
		return true
	}
	return false
}

// ---- top level ----

func (p *parser) parseTopLevel() Statement {
	flags := FunctionFlags(0)
	if p.tryConsumeKeyword("export") {
		flags |= FunctionFlagExport
	}
	switch {
	case p.isKeyword("declare"):
		p.mustAdvance()
		return p.parseTopLevel()
	case p.isKeyword("import"):
		return p.parseImport()
	case p.isKeyword("function"):
		return p.parseFunction(flags)
	case p.isKeyword("class"):
		return p.parseClass()
	case p.isKeyword("enum"):
		return p.parseEnum()
	case p.isKeyword("interface"):
		return p.parseInterface()
	case p.isKeyword("type"):
		return p.parseTypeAlias()
	case p.isKeyword("let") || p.isKeyword("const"):
		stmt := p.parseVariableStatement()
		p.tryConsumePunct(";")
		return stmt
	default:
		p.fail("unexpected top-level token %q", p.tok.text)
		return nil
	}
}

func (p *parser) parseImport() Statement {
	pos := p.pos()
	p.mustAdvance() // import
	for !p.isKeyword("from") && p.tok.kind != tokEOF {
		p.mustAdvance()
	}
	from := ""
	if p.tryConsumeKeyword("from") {
		from = p.tok.text
		p.mustAdvance()
	}
	p.tryConsumePunct(";")
	return &ImportDeclaration{Pos: pos, FromPath: from}
}

func (p *parser) parseTypeAlias() Statement {
	pos := p.pos()
	p.mustAdvance() // type
	name, _ := p.expectIdent()
	p.expectPunct("=")
	t := p.parseType()
	p.tryConsumePunct(";")
	return &TypeAliasDeclaration{Pos: pos, Name: name, Type: t}
}

func (p *parser) parseInterface() Statement {
	pos := p.pos()
	p.mustAdvance() // interface
	name, _ := p.expectIdent()
	// Skip an optional body; interfaces are accepted, never lowered.
	if p.isPunct("{") {
		depth := 0
		for {
			if p.isPunct("{") {
				depth++
			} else if p.isPunct("}") {
				depth--
			}
			p.mustAdvance()
			if depth == 0 {
				break
			}
		}
	} else {
		p.tryConsumePunct(";")
	}
	return &InterfaceDeclaration{Pos: pos, Name: name}
}

func (p *parser) parseTypeParameters() []string {
	var names []string
	if !p.tryConsumePunct("<") {
		return nil
	}
	for !p.isPunct(">") {
		name, _ := p.expectIdent()
		names = append(names, name)
		if !p.tryConsumePunct(",") {
			break
		}
	}
	p.expectPunct(">")
	return names
}

func (p *parser) parseFunction(flags FunctionFlags) *FunctionDeclaration {
	pos := p.pos()
	p.mustAdvance() // function
	name, _ := p.expectIdent()
	return p.parseFunctionRest(pos, name, flags)
}

func (p *parser) parseFunctionRest(pos Pos, name string, flags FunctionFlags) *FunctionDeclaration {
	typeParams := p.parseTypeParameters()
	params := p.parseParameterList()
	var ret TypeNode
	if p.tryConsumePunct(":") {
		ret = p.parseType()
	}

	fn := &FunctionDeclaration{Pos: pos, Name: name, TypeParameters: typeParams, Parameters: params, ReturnType: ret, Flags: flags}

	if p.isPunct("{") {
		fn.Body = p.parseBlock()
		return fn
	}
	// A bodyless function is an import: `foo(): i32; // @external("module", "name")`
	// handled purely by name splitting on "$", since this parser does not
	// model decorator comments.
	fn.Flags |= FunctionFlagImport
	p.tryConsumePunct(";")
	if idx := lastIndexByte(name, '$'); idx >= 0 {
		fn.ImportModule, fn.ImportName = name[:idx], name[idx+1:]
	} else {
		fn.ImportModule, fn.ImportName = "env", name
	}
	return fn
}

func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func (p *parser) parseParameterList() []*Parameter {
	p.expectPunct("(")
	var params []*Parameter
	for !p.isPunct(")") {
		pos := p.pos()
		name, _ := p.expectIdent()
		var t TypeNode
		if p.tryConsumePunct(":") {
			t = p.parseType()
		}
		params = append(params, &Parameter{Pos: pos, Name: name, Type: t})
		if !p.tryConsumePunct(",") {
			break
		}
	}
	p.expectPunct(")")
	return params
}

func (p *parser) parseClass() *ClassDeclaration {
	pos := p.pos()
	p.mustAdvance() // class
	name, _ := p.expectIdent()
	typeParams := p.parseTypeParameters()
	if p.tryConsumeKeyword("extends") {
		p.parseType()
	}
	if p.tryConsumeKeyword("implements") {
		p.parseType()
		for p.tryConsumePunct(",") {
			p.parseType()
		}
	}
	p.expectPunct("{")
	var members []ClassMember
	for !p.isPunct("}") {
		members = append(members, p.parseClassMember())
	}
	p.expectPunct("}")
	return &ClassDeclaration{Pos: pos, Name: name, TypeParameters: typeParams, Members: members}
}

func (p *parser) parseClassMember() ClassMember {
	flags := FunctionFlags(0)
	for {
		switch {
		case p.tryConsumeKeyword("public"), p.tryConsumeKeyword("private"), p.tryConsumeKeyword("protected"), p.tryConsumeKeyword("readonly"):
			continue
		case p.tryConsumeKeyword("static"):
			flags |= FunctionFlagStatic
			continue
		}
		break
	}
	if !flags.Has(FunctionFlagStatic) {
		flags |= FunctionFlagInstance
	}

	pos := p.pos()
	if p.isKeyword("constructor") {
		p.mustAdvance()
		fn := p.parseFunctionRest(pos, "constructor", flags|FunctionFlagConstructor)
		return &MethodDeclaration{FunctionDeclaration: fn}
	}

	name, _ := p.expectIdent()
	if p.isPunct("(") || p.isPunct("<") {
		fn := p.parseFunctionRest(pos, name, flags)
		return &MethodDeclaration{FunctionDeclaration: fn}
	}
	var t TypeNode
	if p.tryConsumePunct(":") {
		t = p.parseType()
	}
	if p.tryConsumePunct("=") {
		p.parseExpression() // default initializer; parsed and discarded, PropertyDeclaration does not keep it
	}
	p.tryConsumePunct(";")
	return &PropertyDeclaration{Pos: pos, Name: name, Type: t}
}

func (p *parser) parseEnum() *EnumDeclaration {
	pos := p.pos()
	p.mustAdvance() // enum
	name, _ := p.expectIdent()
	p.expectPunct("{")
	var members []*EnumMember
	for !p.isPunct("}") {
		mpos := p.pos()
		mname, _ := p.expectIdent()
		var init Expression
		if p.tryConsumePunct("=") {
			init = p.parseExpression()
		}
		members = append(members, &EnumMember{Pos: mpos, Name: mname, Initializer: init})
		if !p.tryConsumePunct(",") {
			break
		}
	}
	p.expectPunct("}")
	return &EnumDeclaration{Pos: pos, Name: name, Members: members}
}

// ---- types ----

func (p *parser) parseType() TypeNode {
	pos := p.pos()
	name, _ := p.expectIdent()
	nt := &NamedTypeNode{Pos: pos, Name: name}
	if p.tryConsumePunct("<") {
		for !p.isPunct(">") {
			nt.TypeArgs = append(nt.TypeArgs, p.parseType())
			if !p.tryConsumePunct(",") {
				break
			}
		}
		p.expectPunct(">")
	}
	for p.isPunct("[") {
		p.mustAdvance()
		p.expectPunct("]")
		wrapped := nt
		nt = &NamedTypeNode{Pos: pos, Name: "Array", TypeArgs: []TypeNode{wrapped}}
	}
	return nt
}

// ---- statements ----

func (p *parser) parseStatement() Statement {
	switch {
	case p.isPunct("{"):
		return p.parseBlock()
	case p.isKeyword("if"):
		return p.parseIf()
	case p.isKeyword("while"):
		return p.parseWhile()
	case p.isKeyword("do"):
		return p.parseDo()
	case p.isKeyword("for"):
		return p.parseFor()
	case p.isKeyword("switch"):
		return p.parseSwitch()
	case p.isKeyword("break"):
		pos := p.pos()
		p.mustAdvance()
		p.tryConsumePunct(";")
		return &BreakStatement{Pos: pos}
	case p.isKeyword("continue"):
		pos := p.pos()
		p.mustAdvance()
		p.tryConsumePunct(";")
		return &ContinueStatement{Pos: pos}
	case p.isKeyword("return"):
		pos := p.pos()
		p.mustAdvance()
		var v Expression
		if !p.isPunct(";") && !p.isPunct("}") {
			v = p.parseExpression()
		}
		p.tryConsumePunct(";")
		return &ReturnStatement{Pos: pos, Value: v}
	case p.isKeyword("let") || p.isKeyword("const"):
		stmt := p.parseVariableStatement()
		p.tryConsumePunct(";")
		return stmt
	case p.isPunct(";"):
		pos := p.pos()
		p.mustAdvance()
		return &BlockStatement{Pos: pos}
	default:
		pos := p.pos()
		e := p.parseExpression()
		p.tryConsumePunct(";")
		return &ExpressionStatement{Pos: pos, Expr: e}
	}
}

func (p *parser) parseBlock() *BlockStatement {
	pos := p.expectPunct("{")
	var stmts []Statement
	for !p.isPunct("}") {
		stmts = append(stmts, p.parseStatement())
	}
	p.expectPunct("}")
	return &BlockStatement{Pos: pos, Statements: stmts}
}

func (p *parser) parseVariableStatement() *VariableStatement {
	pos := p.pos()
	kind := VariableKindLet
	if p.isKeyword("const") {
		kind = VariableKindConst
	}
	p.mustAdvance() // let | const
	var decls []*VariableDeclarator
	for {
		dpos := p.pos()
		name, _ := p.expectIdent()
		var t TypeNode
		if p.tryConsumePunct(":") {
			t = p.parseType()
		}
		var init Expression
		if p.tryConsumePunct("=") {
			init = p.parseAssignment()
		}
		decls = append(decls, &VariableDeclarator{Pos: dpos, Name: name, Type: t, Initializer: init})
		if !p.tryConsumePunct(",") {
			break
		}
	}
	return &VariableStatement{Pos: pos, Kind: kind, Declarators: decls}
}

func (p *parser) parseIf() Statement {
	pos := p.pos()
	p.mustAdvance() // if
	p.expectPunct("(")
	cond := p.parseExpression()
	p.expectPunct(")")
	then := p.parseStatement()
	var els Statement
	if p.tryConsumeKeyword("else") {
		els = p.parseStatement()
	}
	return &IfStatement{Pos: pos, Cond: cond, Then: then, Else: els}
}

func (p *parser) parseWhile() Statement {
	pos := p.pos()
	p.mustAdvance() // while
	p.expectPunct("(")
	cond := p.parseExpression()
	p.expectPunct(")")
	body := p.parseStatement()
	return &WhileStatement{Pos: pos, Cond: cond, Body: body}
}

func (p *parser) parseDo() Statement {
	pos := p.pos()
	p.mustAdvance() // do
	body := p.parseStatement()
	if !p.tryConsumeKeyword("while") {
		p.fail("expected 'while' after do-block")
	}
	p.expectPunct("(")
	cond := p.parseExpression()
	p.expectPunct(")")
	p.tryConsumePunct(";")
	return &DoStatement{Pos: pos, Body: body, Cond: cond}
}

func (p *parser) parseFor() Statement {
	pos := p.pos()
	p.mustAdvance() // for
	p.expectPunct("(")
	var init Statement
	if !p.isPunct(";") {
		if p.isKeyword("let") || p.isKeyword("const") {
			init = p.parseVariableStatement()
		} else {
			epos := p.pos()
			init = &ExpressionStatement{Pos: epos, Expr: p.parseExpression()}
		}
	}
	p.expectPunct(";")
	var cond Expression
	if !p.isPunct(";") {
		cond = p.parseExpression()
	}
	p.expectPunct(";")
	var update Statement
	if !p.isPunct(")") {
		epos := p.pos()
		update = &ExpressionStatement{Pos: epos, Expr: p.parseExpression()}
	}
	p.expectPunct(")")
	body := p.parseStatement()
	return &ForStatement{Pos: pos, Init: init, Cond: cond, Update: update, Body: body}
}

func (p *parser) parseSwitch() Statement {
	pos := p.pos()
	p.mustAdvance() // switch
	p.expectPunct("(")
	tag := p.parseExpression()
	p.expectPunct(")")
	p.expectPunct("{")
	var cases []*SwitchCase
	for !p.isPunct("}") {
		cpos := p.pos()
		var test Expression
		if p.tryConsumeKeyword("case") {
			test = p.parseExpression()
		} else if !p.tryConsumeKeyword("default") {
			p.fail("expected 'case' or 'default'")
		}
		p.expectPunct(":")
		var stmts []Statement
		for !p.isKeyword("case") && !p.isKeyword("default") && !p.isPunct("}") {
			stmts = append(stmts, p.parseStatement())
		}
		cases = append(cases, &SwitchCase{Pos: cpos, Test: test, Statements: stmts})
	}
	p.expectPunct("}")
	return &SwitchStatement{Pos: pos, Tag: tag, Cases: cases}
}

// ---- expressions ----
//
// Precedence climbs from parseExpression (lowest: assignment, comma is not
// supported as an operator) down to parseUnary/parsePostfix/parsePrimary
// (highest). This mirrors the layering of a typical recursive-descent JS
// expression grammar; AssemblyScript's own grammar is TypeScript's.

func (p *parser) parseExpression() Expression {
	return p.parseAssignment()
}

func (p *parser) parseAssignment() Expression {
	left := p.parseConditional()
	if p.isPunct("=") {
		pos := p.pos()
		p.mustAdvance()
		right := p.parseAssignment()
		return &BinaryExpression{Pos: pos, Op: BinAssign, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseConditional() Expression {
	cond := p.parseLogicalOr()
	if p.isPunct("?") {
		pos := p.pos()
		p.mustAdvance()
		then := p.parseAssignment()
		p.expectPunct(":")
		els := p.parseAssignment()
		return &ConditionalExpression{Pos: pos, Cond: cond, Then: then, Else: els}
	}
	return cond
}

type binLevel struct {
	ops map[string]BinaryOp
	next func(*parser) Expression
}

func (p *parser) parseLogicalOr() Expression {
	return p.parseBinaryLevel(map[string]BinaryOp{"||": BinLogicalOr}, (*parser).parseLogicalAnd)
}
func (p *parser) parseLogicalAnd() Expression {
	return p.parseBinaryLevel(map[string]BinaryOp{"&&": BinLogicalAnd}, (*parser).parseBitOr)
}
func (p *parser) parseBitOr() Expression {
	return p.parseBinaryLevel(map[string]BinaryOp{"|": BinOr}, (*parser).parseBitXor)
}
func (p *parser) parseBitXor() Expression {
	return p.parseBinaryLevel(map[string]BinaryOp{"^": BinXor}, (*parser).parseBitAnd)
}
func (p *parser) parseBitAnd() Expression {
	return p.parseBinaryLevel(map[string]BinaryOp{"&": BinAnd}, (*parser).parseEquality)
}
func (p *parser) parseEquality() Expression {
	return p.parseBinaryLevel(map[string]BinaryOp{"==": BinEq, "!=": BinNe, "===": BinEq, "!==": BinNe}, (*parser).parseRelational)
}
func (p *parser) parseRelational() Expression {
	return p.parseBinaryLevel(map[string]BinaryOp{"<": BinLt, "<=": BinLe, ">": BinGt, ">=": BinGe}, (*parser).parseAsExpr)
}

func (p *parser) parseAsExpr() Expression {
	e := p.parseShift()
	for p.isKeyword("as") {
		pos := p.pos()
		p.mustAdvance()
		t := p.parseType()
		e = &AsExpression{Pos: pos, Expr: e, Type: t}
	}
	return e
}

func (p *parser) parseShift() Expression {
	return p.parseBinaryLevel(map[string]BinaryOp{"<<": BinShl, ">>": BinShr}, (*parser).parseAdditive)
}
func (p *parser) parseAdditive() Expression {
	return p.parseBinaryLevel(map[string]BinaryOp{"+": BinAdd, "-": BinSub}, (*parser).parseMultiplicative)
}
func (p *parser) parseMultiplicative() Expression {
	return p.parseBinaryLevel(map[string]BinaryOp{"*": BinMul, "/": BinDiv, "%": BinMod}, (*parser).parseUnary)
}

func (p *parser) parseBinaryLevel(ops map[string]BinaryOp, next func(*parser) Expression) Expression {
	left := next(p)
	for p.tok.kind == tokPunct {
		op, ok := ops[p.tok.text]
		if !ok {
			break
		}
		pos := p.pos()
		p.mustAdvance()
		right := next(p)
		left = &BinaryExpression{Pos: pos, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseUnary() Expression {
	pos := p.pos()
	switch {
	case p.isPunct("!"):
		p.mustAdvance()
		return &PrefixUnaryExpression{Pos: pos, Op: PrefixNot, Operand: p.parseUnary()}
	case p.isPunct("+"):
		p.mustAdvance()
		return &PrefixUnaryExpression{Pos: pos, Op: PrefixPlus, Operand: p.parseUnary()}
	case p.isPunct("-"):
		p.mustAdvance()
		return &PrefixUnaryExpression{Pos: pos, Op: PrefixMinus, Operand: p.parseUnary()}
	case p.isPunct("~"):
		p.mustAdvance()
		return &PrefixUnaryExpression{Pos: pos, Op: PrefixBitNot, Operand: p.parseUnary()}
	case p.isPunct("++"):
		p.mustAdvance()
		return &PrefixUnaryExpression{Pos: pos, Op: PrefixInc, Operand: p.parseUnary()}
	case p.isPunct("--"):
		p.mustAdvance()
		return &PrefixUnaryExpression{Pos: pos, Op: PrefixDec, Operand: p.parseUnary()}
	default:
		return p.parsePostfix()
	}
}

func (p *parser) parsePostfix() Expression {
	e := p.parseCallOrMember(p.parsePrimary())
	if p.isPunct("++") {
		pos := p.pos()
		p.mustAdvance()
		return &PostfixUnaryExpression{Pos: pos, Op: PostfixInc, Operand: e}
	}
	if p.isPunct("--") {
		pos := p.pos()
		p.mustAdvance()
		return &PostfixUnaryExpression{Pos: pos, Op: PostfixDec, Operand: e}
	}
	return e
}

func (p *parser) parseCallOrMember(e Expression) Expression {
	for {
		switch {
		case p.isPunct("."):
			pos := p.pos()
			p.mustAdvance()
			name, _ := p.expectIdent()
			e = &PropertyAccessExpression{Pos: pos, Expr: e, Name: name}
		case p.isPunct("["):
			pos := p.pos()
			p.mustAdvance()
			idx := p.parseExpression()
			p.expectPunct("]")
			e = &ElementAccessExpression{Pos: pos, Expr: e, Index: idx}
		case p.isPunct("("):
			pos := p.pos()
			args := p.parseArgumentList()
			e = &CallExpression{Pos: pos, Callee: e, Arguments: args}
		default:
			return e
		}
	}
}

func (p *parser) parseArgumentList() []Expression {
	p.expectPunct("(")
	var args []Expression
	for !p.isPunct(")") {
		args = append(args, p.parseAssignment())
		if !p.tryConsumePunct(",") {
			break
		}
	}
	p.expectPunct(")")
	return args
}

func (p *parser) parsePrimary() Expression {
	pos := p.pos()
	switch {
	case p.tok.kind == tokInt:
		v := p.tok.ival
		p.mustAdvance()
		return &NumericLiteral{Pos: pos, Kind: NumericInteger, Int: v}
	case p.tok.kind == tokFloat:
		v := p.tok.fval
		p.mustAdvance()
		return &NumericLiteral{Pos: pos, Kind: NumericFloat, Float: v}
	case p.isKeyword("true"):
		p.mustAdvance()
		return &BooleanLiteral{Pos: pos, Value: true}
	case p.isKeyword("false"):
		p.mustAdvance()
		return &BooleanLiteral{Pos: pos, Value: false}
	case p.isKeyword("null"):
		p.mustAdvance()
		return &NullLiteral{Pos: pos}
	case p.isKeyword("new"):
		p.mustAdvance()
		t := p.parseType()
		nt, ok := t.(*NamedTypeNode)
		if !ok {
			p.fail("expected class name after 'new'")
		}
		args := p.parseArgumentList()
		return &NewExpression{Pos: pos, Type: nt, Arguments: args}
	case p.isPunct("("):
		p.mustAdvance()
		e := p.parseExpression()
		p.expectPunct(")")
		return &ParenthesizedExpression{Pos: pos, Expr: e}
	case p.tok.kind == tokIdent:
		name := p.tok.text
		p.mustAdvance()
		return &Identifier{Pos: pos, Name: name}
	default:
		p.fail("unexpected token %q in expression", p.tok.text)
		return nil
	}
}
