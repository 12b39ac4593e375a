// Package ast is the factored-out boundary to the host parser: the surface
// language's AST shape, symbol table and constant-value oracle that
// spec.md's design notes call out as external collaborators ("the core
// depends on an external parser exposing...").
//
// A minimal, self-contained recursive-descent parser for the supported
// subset lives alongside these declarations (lexer.go, parser.go) so this
// module is buildable and testable without wiring in a real external
// parser, but nothing downstream depends on that parser's internals: the
// reflection, resolver, initialize and lowering packages consume only the
// interfaces and node types declared in this file.
package ast

import "fmt"

// Pos identifies a source location, embedded by every concrete Node.
type Pos struct {
	File string
	Line int
	Col  int
}

// Pos implements Node.
func (p Pos) Pos() (file string, line, col int) { return p.File, p.Line, p.Col }

func (p Pos) String() string { return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col) }

// Node is satisfied by every AST node and by diag.Node.
type Node interface {
	Pos() (file string, line, col int)
}

// Statement is satisfied by every statement-level node.
type Statement interface {
	Node
	stmtNode()
}

// Expression is satisfied by every expression-level node. Every Expression
// carries a mutable ResolvedType slot (an interface{} to avoid a dependency
// on the reflection package) that the type resolver fills in as it lowers,
// per the "every expression lowerer sets the node's reflected type before
// returning" rule in spec.md §4.4.
type Expression interface {
	Node
	exprNode()
	ResolvedType() interface{}
	SetResolvedType(interface{})
}

// TypeNode is satisfied by every type-annotation node.
type TypeNode interface {
	Node
	typeNode()
}

// exprBase factors the ResolvedType bookkeeping shared by all Expression
// implementations.
type exprBase struct {
	resolved interface{}
}

func (e *exprBase) ResolvedType() interface{}       { return e.resolved }
func (e *exprBase) SetResolvedType(t interface{})   { e.resolved = t }

// Program is a whole compilation unit: every source file plus which ones
// are the entry file and the built-in declaration file (mangle.go's two
// exemptions from mangling).
type Program struct {
	Files     []*SourceFile
	EntryFile string
	LibFile   string
}

// FileByPath returns the SourceFile at path, or nil.
func (p *Program) FileByPath(path string) *SourceFile {
	for _, f := range p.Files {
		if f.Path == path {
			return f
		}
	}
	return nil
}

// SourceFile is one parsed input file.
type SourceFile struct {
	Path       string
	Statements []Statement
}

// ---- Top-level / statement nodes ----

type VariableKind int

const (
	VariableKindLet VariableKind = iota
	VariableKindConst
)

// VariableDeclarator is one `name[: Type] [= Initializer]` entry of a
// variable statement; a statement may declare several, comma-separated.
type VariableDeclarator struct {
	Pos
	Name        string
	Type        TypeNode // nil if the type must be inferred from Initializer
	Initializer Expression
}

func (d *VariableDeclarator) stmtNode() {}

// VariableStatement declares one or more local or global variables.
type VariableStatement struct {
	Pos
	Kind         VariableKind
	Declarators  []*VariableDeclarator
}

func (*VariableStatement) stmtNode() {}

// Parameter is one function parameter.
type Parameter struct {
	Pos
	Name string
	Type TypeNode
}

// FunctionFlags are the modifiers recognized on a function declaration.
type FunctionFlags uint8

const (
	FunctionFlagExport FunctionFlags = 1 << iota
	FunctionFlagImport
	FunctionFlagInstance // implicit method receiver, see reflection.Function
	FunctionFlagStatic
	FunctionFlagConstructor
)

func (f FunctionFlags) Has(flag FunctionFlags) bool { return f&flag != 0 }

// FunctionDeclaration is a top-level or class-member function.
type FunctionDeclaration struct {
	Pos
	Name           string
	TypeParameters []string
	Parameters     []*Parameter
	ReturnType     TypeNode // nil means inferred void
	Body           *BlockStatement // nil for imports
	Flags          FunctionFlags

	// ImportModule/ImportName split a declared import name on "$", per
	// spec.md §6 ("Function import names"): "foo$bar" imports (module=foo,
	// base=bar); without "$", module defaults to "env".
	ImportModule, ImportName string
}

func (*FunctionDeclaration) stmtNode() {}

// IsGeneric reports whether this declaration has type parameters.
func (f *FunctionDeclaration) IsGeneric() bool { return len(f.TypeParameters) > 0 }

// ClassMember is satisfied by PropertyDeclaration and MethodDeclaration.
type ClassMember interface {
	Node
	classMemberNode()
}

// PropertyDeclaration is a class field.
type PropertyDeclaration struct {
	Pos
	Name string
	Type TypeNode
}

func (*PropertyDeclaration) classMemberNode() {}

// MethodDeclaration is a class method or constructor.
type MethodDeclaration struct {
	*FunctionDeclaration
}

func (*MethodDeclaration) classMemberNode() {}

// ClassDeclaration declares a class (or, with TypeParameters, a class
// template).
type ClassDeclaration struct {
	Pos
	Name           string
	TypeParameters []string
	Members        []ClassMember
}

func (*ClassDeclaration) stmtNode() {}

// IsGeneric reports whether this declaration has type parameters.
func (c *ClassDeclaration) IsGeneric() bool { return len(c.TypeParameters) > 0 }

// EnumMember is one `Name[ = Initializer]` entry of an enum.
type EnumMember struct {
	Pos
	Name        string
	Initializer Expression // nil means "previous value + 1, or 0 if first"
}

// EnumDeclaration declares an enum.
type EnumDeclaration struct {
	Pos
	Name    string
	Members []*EnumMember
}

func (*EnumDeclaration) stmtNode() {}

// InterfaceDeclaration is accepted and otherwise ignored, per spec.md §4.6.
type InterfaceDeclaration struct {
	Pos
	Name string
}

func (*InterfaceDeclaration) stmtNode() {}

// TypeAliasDeclaration is `type Name = Type`.
type TypeAliasDeclaration struct {
	Pos
	Name string
	Type TypeNode
}

func (*TypeAliasDeclaration) stmtNode() {}

// ImportDeclaration is accepted and otherwise ignored at the top level
// (cross-file resolution is a host-parser concern), per spec.md §4.6.
type ImportDeclaration struct {
	Pos
	FromPath string
}

func (*ImportDeclaration) stmtNode() {}

// BlockStatement is `{ ... }`.
type BlockStatement struct {
	Pos
	Statements []Statement
}

func (*BlockStatement) stmtNode() {}

// IfStatement is `if (Cond) Then [else Else]`.
type IfStatement struct {
	Pos
	Cond Expression
	Then Statement
	Else Statement // nil if absent
}

func (*IfStatement) stmtNode() {}

// WhileStatement is `while (Cond) Body`.
type WhileStatement struct {
	Pos
	Cond Expression
	Body Statement
}

func (*WhileStatement) stmtNode() {}

// DoStatement is `do Body while (Cond);`.
type DoStatement struct {
	Pos
	Body Statement
	Cond Expression
}

func (*DoStatement) stmtNode() {}

// ForStatement is `for (Init; Cond; Update) Body`; any clause may be nil.
type ForStatement struct {
	Pos
	Init   Statement
	Cond   Expression
	Update Statement
	Body   Statement
}

func (*ForStatement) stmtNode() {}

// SwitchCase is one `case Test:` (Test nil for `default:`) and its
// fall-through statement list.
type SwitchCase struct {
	Pos
	Test       Expression
	Statements []Statement
}

// SwitchStatement is `switch (Tag) { Cases }`.
type SwitchStatement struct {
	Pos
	Tag   Expression
	Cases []*SwitchCase
}

func (*SwitchStatement) stmtNode() {}

// BreakStatement is `break;`.
type BreakStatement struct{ Pos }

func (*BreakStatement) stmtNode() {}

// ContinueStatement is `continue;`.
type ContinueStatement struct{ Pos }

func (*ContinueStatement) stmtNode() {}

// ReturnStatement is `return [Value];`.
type ReturnStatement struct {
	Pos
	Value Expression // nil for a bare return
}

func (*ReturnStatement) stmtNode() {}

// ExpressionStatement is an expression used as a statement.
type ExpressionStatement struct {
	Pos
	Expr Expression
}

func (*ExpressionStatement) stmtNode() {}

// ---- Type nodes ----

// NamedTypeNode is a type reference, optionally generic (`Foo<Bar>`), or
// the `void` keyword (Name == "void").
type NamedTypeNode struct {
	Pos
	Name     string
	TypeArgs []TypeNode
}

func (*NamedTypeNode) typeNode() {}

// ---- Expression nodes ----

type Identifier struct {
	Pos
	exprBase
	Name string
}

func (*Identifier) exprNode() {}

type NumericLiteralKind int

const (
	NumericInteger NumericLiteralKind = iota
	NumericFloat
)

type NumericLiteral struct {
	Pos
	exprBase
	Kind    NumericLiteralKind
	Int     int64
	Float   float64
}

func (*NumericLiteral) exprNode() {}

type BooleanLiteral struct {
	Pos
	exprBase
	Value bool
}

func (*BooleanLiteral) exprNode() {}

type NullLiteral struct {
	Pos
	exprBase
}

func (*NullLiteral) exprNode() {}

type ParenthesizedExpression struct {
	Pos
	exprBase
	Expr Expression
}

func (*ParenthesizedExpression) exprNode() {}

// AsExpression is an explicit cast `Expr as Type`.
type AsExpression struct {
	Pos
	exprBase
	Expr Expression
	Type TypeNode
}

func (*AsExpression) exprNode() {}

// PrefixUnaryOp enumerates the supported prefix unary operators.
type PrefixUnaryOp int

const (
	PrefixNot    PrefixUnaryOp = iota // !
	PrefixPlus                        // +
	PrefixMinus                       // -
	PrefixBitNot                      // ~
	PrefixInc                         // ++x
	PrefixDec                         // --x
)

type PrefixUnaryExpression struct {
	Pos
	exprBase
	Op      PrefixUnaryOp
	Operand Expression
}

func (*PrefixUnaryExpression) exprNode() {}

// PostfixUnaryOp enumerates the supported postfix unary operators.
type PostfixUnaryOp int

const (
	PostfixInc PostfixUnaryOp = iota // x++
	PostfixDec                       // x--
)

type PostfixUnaryExpression struct {
	Pos
	exprBase
	Op      PostfixUnaryOp
	Operand Expression
}

func (*PostfixUnaryExpression) exprNode() {}

// BinaryOp enumerates the supported binary operators.
type BinaryOp int

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinAnd
	BinOr
	BinXor
	BinShl
	BinShr
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
	BinLogicalAnd
	BinLogicalOr
	BinAssign
)

type BinaryExpression struct {
	Pos
	exprBase
	Op    BinaryOp
	Left  Expression
	Right Expression
}

func (*BinaryExpression) exprNode() {}

type ConditionalExpression struct {
	Pos
	exprBase
	Cond, Then, Else Expression
}

func (*ConditionalExpression) exprNode() {}

type CallExpression struct {
	Pos
	exprBase
	Callee    Expression
	TypeArgs  []TypeNode
	Arguments []Expression
}

func (*CallExpression) exprNode() {}

type NewExpression struct {
	Pos
	exprBase
	Type      *NamedTypeNode
	Arguments []Expression
}

func (*NewExpression) exprNode() {}

type PropertyAccessExpression struct {
	Pos
	exprBase
	Expr Expression
	Name string
}

func (*PropertyAccessExpression) exprNode() {}

type ElementAccessExpression struct {
	Pos
	exprBase
	Expr  Expression
	Index Expression
}

func (*ElementAccessExpression) exprNode() {}
