package ast

// SymbolKind classifies what a Symbol's Node declares.
type SymbolKind int

const (
	SymbolVariable SymbolKind = iota
	SymbolFunction
	SymbolFunctionTemplate
	SymbolClass
	SymbolClassTemplate
	SymbolEnum
	SymbolTypeAlias
)

// Symbol is one name bound in a SourceFile's top-level or the built-in
// declaration file's scope.
type Symbol struct {
	Name string
	Kind SymbolKind
	Node Node
	File string
}

// SymbolTable resolves an identifier used in File to the declaration site
// that name refers to, per spec.md's "the host parser exposes a symbol
// table mapping identifier to declaration site" design note. Lookup checks
// File's own scope first, then falls back to the built-in declaration
// file's scope (LibFile), mirroring how every source file sees the
// standard library's ambient declarations without importing them.
type SymbolTable struct {
	libFile string
	byFile  map[string]map[string]*Symbol
}

// NewSymbolTable returns an empty table. libFile names the built-in
// declaration file consulted as a fallback scope by Lookup.
func NewSymbolTable(libFile string) *SymbolTable {
	return &SymbolTable{libFile: libFile, byFile: make(map[string]map[string]*Symbol)}
}

// Declare binds name in file's scope. A later Declare of the same
// (file, name) pair overwrites the earlier binding, matching how a real
// checker would report a redeclaration diagnostic and keep the last one;
// this package leaves redeclaration diagnostics to its caller.
func (t *SymbolTable) Declare(file, name string, kind SymbolKind, node Node) {
	scope, ok := t.byFile[file]
	if !ok {
		scope = make(map[string]*Symbol)
		t.byFile[file] = scope
	}
	scope[name] = &Symbol{Name: name, Kind: kind, Node: node, File: file}
}

// Lookup resolves name as seen from file, checking file's own scope before
// falling back to the built-in declaration file's scope.
func (t *SymbolTable) Lookup(file, name string) (*Symbol, bool) {
	if scope, ok := t.byFile[file]; ok {
		if sym, ok := scope[name]; ok {
			return sym, true
		}
	}
	if file != t.libFile {
		if scope, ok := t.byFile[t.libFile]; ok {
			if sym, ok := scope[name]; ok {
				return sym, true
			}
		}
	}
	return nil, false
}

// DeclareProgram walks every top-level statement of every file in p and
// populates t. Class members and function parameters are not entered into
// t; reflection.Builder resolves those directly from the AST nodes it
// already holds.
func (t *SymbolTable) DeclareProgram(p *Program) {
	for _, f := range p.Files {
		for _, stmt := range f.Statements {
			t.declareTopLevel(f.Path, stmt)
		}
	}
}

func (t *SymbolTable) declareTopLevel(file string, stmt Statement) {
	switch s := stmt.(type) {
	case *VariableStatement:
		for _, d := range s.Declarators {
			t.Declare(file, d.Name, SymbolVariable, d)
		}
	case *FunctionDeclaration:
		kind := SymbolFunction
		if s.IsGeneric() {
			kind = SymbolFunctionTemplate
		}
		t.Declare(file, s.Name, kind, s)
	case *ClassDeclaration:
		kind := SymbolClass
		if s.IsGeneric() {
			kind = SymbolClassTemplate
		}
		t.Declare(file, s.Name, kind, s)
	case *EnumDeclaration:
		t.Declare(file, s.Name, SymbolEnum, s)
	case *TypeAliasDeclaration:
		t.Declare(file, s.Name, SymbolTypeAlias, s)
	}
}
