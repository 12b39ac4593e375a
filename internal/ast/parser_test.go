package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFunctionDeclarationWithExportFlag(t *testing.T) {
	sf, err := Parse("t.ts", `
export function add(a: int, b: int): int {
  return a + b;
}
`)
	require.NoError(t, err)
	require.Len(t, sf.Statements, 1)
	fn, ok := sf.Statements[0].(*FunctionDeclaration)
	require.True(t, ok, "expected *FunctionDeclaration, got %T", sf.Statements[0])
	require.Equal(t, "add", fn.Name)
	require.True(t, fn.Flags.Has(FunctionFlagExport))
	require.Len(t, fn.Parameters, 2)
	require.NotNil(t, fn.Body)
	require.Len(t, fn.Body.Statements, 1)
}

func TestParseBodylessFunctionBecomesSplitImport(t *testing.T) {
	sf, err := Parse("t.ts", `declare function env$abort(message: uintptr, fileName: uintptr, line: int, column: int): void;`)
	require.NoError(t, err)
	fn := sf.Statements[0].(*FunctionDeclaration)
	require.True(t, fn.Flags.Has(FunctionFlagImport), "a bodyless function should be flagged as an import")
	require.Equal(t, "env", fn.ImportModule)
	require.Equal(t, "abort", fn.ImportName)
}

func TestParseClassDeclarationWithConstructorAndMethod(t *testing.T) {
	sf, err := Parse("t.ts", `
class Point {
  x: int;
  y: int;
  constructor(x: int, y: int) {
    this.x = x;
    this.y = y;
  }
  sum(): int {
    return this.x + this.y;
  }
}
`)
	require.NoError(t, err)
	cd, ok := sf.Statements[0].(*ClassDeclaration)
	require.True(t, ok, "expected *ClassDeclaration, got %T", sf.Statements[0])
	require.Equal(t, "Point", cd.Name)

	var properties, methods int
	var sawConstructor bool
	for _, m := range cd.Members {
		switch member := m.(type) {
		case *PropertyDeclaration:
			properties++
		case *MethodDeclaration:
			methods++
			if member.Flags.Has(FunctionFlagConstructor) {
				sawConstructor = true
			}
		}
	}
	require.Equal(t, 2, properties)
	require.Equal(t, 2, methods, "constructor + sum")
	require.True(t, sawConstructor, "expected one member flagged FunctionFlagConstructor")
}

func TestParseWhileAndIncrementStatement(t *testing.T) {
	sf, err := Parse("t.ts", `
function loop(): int {
  let i: int = 0;
  while (i < 10) {
    i++;
  }
  return i;
}
`)
	require.NoError(t, err)
	fn := sf.Statements[0].(*FunctionDeclaration)
	require.Len(t, fn.Body.Statements, 3, "let, while, return")

	ws, ok := fn.Body.Statements[1].(*WhileStatement)
	require.True(t, ok, "expected *WhileStatement, got %T", fn.Body.Statements[1])

	block, ok := ws.Body.(*BlockStatement)
	require.True(t, ok)
	require.Len(t, block.Statements, 1, "expected a single-statement while body")

	exprStmt, ok := block.Statements[0].(*ExpressionStatement)
	require.True(t, ok, "expected *ExpressionStatement, got %T", block.Statements[0])

	post, ok := exprStmt.Expr.(*PostfixUnaryExpression)
	require.True(t, ok, "expected *PostfixUnaryExpression for i++, got %T", exprStmt.Expr)
	require.Equal(t, PostfixInc, post.Op)
}

func TestParseAsExpressionCast(t *testing.T) {
	sf, err := Parse("t.ts", `
function f(x: float): int {
  return x as int;
}
`)
	require.NoError(t, err)
	fn := sf.Statements[0].(*FunctionDeclaration)
	ret := fn.Body.Statements[0].(*ReturnStatement)
	_, ok := ret.Value.(*AsExpression)
	require.True(t, ok, "expected *AsExpression, got %T", ret.Value)
}

func TestParseRejectsMalformedSource(t *testing.T) {
	_, err := Parse("t.ts", `function f(: int {`)
	require.Error(t, err, "expected a parse error for malformed source")
}
