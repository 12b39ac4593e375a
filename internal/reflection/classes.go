package reflection

// Property is a class field, or (when IsConstant) an enum member's
// resolved integer constant.
type Property struct {
	Name   string
	Type   *Type
	Offset uint32

	IsConstant    bool
	ConstantValue int64
}

// Class is a mangled class name plus its ordered properties and the flat
// method table methods are filed into under "Parent#method" (instance),
// "Parent.method" (static) or the bare parent name (constructor), per
// spec.md §3.
type Class struct {
	Name       string
	Properties []*Property
	Size       uint32
	Methods    map[string]*Function
}

// NewClass returns an empty class shell. Class shells are created for
// every class declaration before any property offsets are filled in, so
// that a property of type C can reference C itself or a class declared
// later in the same file without the initialize pass needing topological
// sorting (spec.md §9's two-phase answer to the cyclic-reference open
// question: declare all shells, then fill offsets).
func NewClass(name string) *Class {
	return &Class{Name: name, Methods: make(map[string]*Function)}
}

// AddProperty appends a property at the class's current running size and
// advances Size by the property's byte size.
func (c *Class) AddProperty(name string, t *Type, ptrSize int) *Property {
	p := &Property{Name: name, Type: t, Offset: c.Size}
	c.Properties = append(c.Properties, p)
	c.Size += uint32(t.Size(ptrSize))
	return p
}

// Property looks up a property by name.
func (c *Class) Property(name string) (*Property, bool) {
	for _, p := range c.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// InstanceMethodName is the flattened method-table key for an instance
// method.
func InstanceMethodName(class, method string) string { return class + "#" + method }

// StaticMethodName is the flattened method-table key for a static method.
func StaticMethodName(class, method string) string { return class + "." + method }
