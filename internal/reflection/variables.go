package reflection

// Variable is a local or global binding: name, type, mutability, and its
// allocation index (local slot index for locals, index into the IR
// module's global space for globals; 0 for a global is a valid index, so
// the Global flag — not a sentinel index — disambiguates).
type Variable struct {
	Name     string
	Type     *Type
	Global   bool
	Constant bool
	Index    uint32

	// ConstantValue holds the value of a numeric-literal global
	// initializer, valid only when HasConstantValue is set. Non-global
	// variables never set this; their initializer is lowered like any
	// other expression.
	ConstantValue    int64
	HasConstantValue bool
}
