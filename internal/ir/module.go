package ir

// Global is a module-level global variable, imported or defined.
type Global struct {
	Type    ValueType
	Mutable bool

	// Import, if true, means ModuleName/Name identify the import and Init
	// is unused.
	Import            bool
	ModuleName, Name  string

	// Init is the constant initializer expression (a single const
	// instruction followed by OpcodeEnd), used only when !Import.
	Init []byte
}

// Func is a module-level function, imported or defined.
type Func struct {
	Type Type

	// Import, if true, means ModuleName/Name identify the import and Body
	// is unused.
	Import           bool
	ModuleName, Name string

	// DebugName is used in diagnostics and is not emitted to the binary.
	DebugName string

	// Locals are the value types of function-local variables beyond the
	// parameters, in slot order (parameter slots are implicit from Type).
	Locals []ValueType

	// Body is the already-encoded instruction stream for the function,
	// not including the terminating OpcodeEnd (added at Encode time) or
	// the locals declarations (computed from Locals at Encode time).
	Body []byte

	// ExportNames are the names, if any, under which this function is
	// exported. A function may be exported under more than one name.
	ExportNames []string
}

// Type is an index into a Module's type section, standing in for a
// *FunctionType once registered.
type Type struct {
	Index uint32
	*FunctionType
}

// Export describes one entry of the export section.
type Export struct {
	Name  string
	Kind  ExternType
	Index uint32
}

// Memory is a linear memory declaration (declared, not imported).
type Memory struct {
	Min uint32
	Max uint32
	HasMax bool
}

// ImportedMemory is a linear memory import.
type ImportedMemory struct {
	ModuleName, Name string
	Min              uint32
	Max              uint32
	HasMax           bool
}

// Module is the mutable WebAssembly module under construction. It is the
// "opaque module" collaborator this compiler lowers into: nothing outside
// this package knows or cares how instructions are encoded.
type Module struct {
	types     []*FunctionType
	typeIndex map[string]uint32

	Funcs   []*Func
	Globals []*Global
	Exports []Export

	Memory         *Memory
	ImportedMemory *ImportedMemory

	HasStart bool
	Start    uint32
}

// NewModule returns an empty module ready for population.
func NewModule() *Module {
	return &Module{typeIndex: map[string]uint32{}}
}

// AddType registers ft (if not already present) and returns its Type handle.
func (m *Module) AddType(ft FunctionType) Type {
	key := ft.Key()
	if idx, ok := m.typeIndex[key]; ok {
		return Type{Index: idx, FunctionType: m.types[idx]}
	}
	idx := uint32(len(m.types))
	stored := ft
	m.types = append(m.types, &stored)
	m.typeIndex[key] = idx
	return Type{Index: idx, FunctionType: &stored}
}

// LookupType returns a previously registered signature by its Key, or false.
func (m *Module) LookupType(key string) (Type, bool) {
	idx, ok := m.typeIndex[key]
	if !ok {
		return Type{}, false
	}
	return Type{Index: idx, FunctionType: m.types[idx]}, true
}

// AddImportedFunction appends a function import and returns its function
// index. All imported functions must be added before the first call to
// AddFunction: WebAssembly numbers imports before module-defined entries in
// every index space, and Module mirrors that by simply appending in call
// order.
func (m *Module) AddImportedFunction(moduleName, name string, ft FunctionType) uint32 {
	t := m.AddType(ft)
	idx := uint32(len(m.Funcs))
	m.Funcs = append(m.Funcs, &Func{
		Type: t, Import: true, ModuleName: moduleName, Name: name, DebugName: moduleName + "." + name,
	})
	return idx
}

// AddFunction appends a module-defined function and returns its function
// index together with the *Func to populate (Locals, Body, ExportNames).
func (m *Module) AddFunction(ft FunctionType, debugName string) (uint32, *Func) {
	t := m.AddType(ft)
	idx := uint32(len(m.Funcs))
	f := &Func{Type: t, DebugName: debugName}
	m.Funcs = append(m.Funcs, f)
	return idx, f
}

// AddGlobal appends a module-defined global and returns its global index.
func (m *Module) AddGlobal(t ValueType, mutable bool, init []byte) uint32 {
	idx := uint32(len(m.Globals))
	m.Globals = append(m.Globals, &Global{Type: t, Mutable: mutable, Init: init})
	return idx
}

// AddImportedGlobal appends a global import and returns its global index.
func (m *Module) AddImportedGlobal(moduleName, name string, t ValueType, mutable bool) uint32 {
	idx := uint32(len(m.Globals))
	m.Globals = append(m.Globals, &Global{Type: t, Mutable: mutable, Import: true, ModuleName: moduleName, Name: name})
	return idx
}

// SetMemory declares a module-owned linear memory (freestanding builds).
func (m *Module) SetMemory(min, max uint32, hasMax bool) {
	m.Memory = &Memory{Min: min, Max: max, HasMax: hasMax}
	m.ImportedMemory = nil
}

// ImportMemory imports a linear memory (non-freestanding builds).
func (m *Module) ImportMemory(moduleName, name string, min, max uint32, hasMax bool) {
	m.ImportedMemory = &ImportedMemory{ModuleName: moduleName, Name: name, Min: min, Max: max, HasMax: hasMax}
	m.Memory = nil
}

// AddExport appends an export entry.
func (m *Module) AddExport(name string, kind ExternType, index uint32) {
	m.Exports = append(m.Exports, Export{Name: name, Kind: kind, Index: index})
}

// RemoveExport deletes any export entry of the given name, used when
// allocator integration hides the allocator module's raw mspace_* exports.
func (m *Module) RemoveExport(name string) {
	kept := m.Exports[:0]
	for _, e := range m.Exports {
		if e.Name != name {
			kept = append(kept, e)
		}
	}
	m.Exports = kept
}

// SetStart marks funcIndex as the module's start function.
func (m *Module) SetStart(funcIndex uint32) {
	m.HasStart = true
	m.Start = funcIndex
}

// FuncCount returns the number of entries in the function index space,
// imports and definitions combined.
func (m *Module) FuncCount() uint32 { return uint32(len(m.Funcs)) }

// GlobalCount returns the number of entries in the global index space.
func (m *Module) GlobalCount() uint32 { return uint32(len(m.Globals)) }

// Merge appends all of other's types, functions and globals into m and
// returns the index offsets a caller must add to any function/global index
// that was valid in other, to make it valid in m. Memory, exports and start
// are deliberately not merged: allocator integration decides explicitly
// which of those to carry over (dropping mspace_init/malloc/free exports,
// for instance).
func (m *Module) Merge(other *Module) (funcOffset, globalOffset uint32) {
	funcOffset = uint32(len(m.Funcs))
	globalOffset = uint32(len(m.Globals))

	typeRemap := make([]uint32, len(other.types))
	for i, ft := range other.types {
		t := m.AddType(*ft)
		typeRemap[i] = t.Index
	}
	for _, f := range other.Funcs {
		cp := *f
		cp.Type = Type{Index: typeRemap[f.Type.Index], FunctionType: m.types[typeRemap[f.Type.Index]]}
		m.Funcs = append(m.Funcs, &cp)
	}
	for _, g := range other.Globals {
		cp := *g
		m.Globals = append(m.Globals, &cp)
	}
	return funcOffset, globalOffset
}
