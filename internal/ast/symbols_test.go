package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeclareProgramPopulatesEveryTopLevelKind(t *testing.T) {
	libSF, err := Parse("lib.ts", `function env$abort(message: uintptr): void;`)
	require.NoError(t, err, "Parse(lib)")
	entrySF, err := Parse("main.ts", `
let counter: int = 0;
function add(a: int, b: int): int { return a + b; }
class Point { x: int; }
enum Color { Red, Green, Blue }
type Alias = int;
`)
	require.NoError(t, err, "Parse(main)")

	table := NewSymbolTable("lib.ts")
	table.DeclareProgram(&Program{Files: []*SourceFile{libSF, entrySF}, EntryFile: "main.ts", LibFile: "lib.ts"})

	cases := []struct {
		name string
		kind SymbolKind
	}{
		{"counter", SymbolVariable},
		{"add", SymbolFunction},
		{"Point", SymbolClass},
		{"Color", SymbolEnum},
		{"Alias", SymbolTypeAlias},
	}
	for _, c := range cases {
		sym, ok := table.Lookup("main.ts", c.name)
		require.True(t, ok, "Lookup(%q) not found", c.name)
		require.Equal(t, c.kind, sym.Kind, "Lookup(%q).Kind", c.name)
	}
}

func TestLookupFallsBackToLibFileScope(t *testing.T) {
	table := NewSymbolTable("lib.ts")
	table.Declare("lib.ts", "env$abort", SymbolFunction, &FunctionDeclaration{Name: "env$abort"})

	sym, ok := table.Lookup("main.ts", "env$abort")
	require.True(t, ok, "expected lib.ts declarations to be visible from main.ts")
	require.Equal(t, "lib.ts", sym.File)

	_, ok = table.Lookup("main.ts", "nonexistent")
	require.False(t, ok, "expected lookup of an undeclared name to fail")
}

func TestDeclareOverwritesEarlierBindingInSameScope(t *testing.T) {
	table := NewSymbolTable("lib.ts")
	first := &FunctionDeclaration{Name: "f"}
	second := &FunctionDeclaration{Name: "f"}
	table.Declare("main.ts", "f", SymbolFunction, first)
	table.Declare("main.ts", "f", SymbolFunction, second)

	sym, ok := table.Lookup("main.ts", "f")
	require.True(t, ok, "expected f to be declared")
	require.Equal(t, Node(second), sym.Node, "expected the later Declare call to win")
}
