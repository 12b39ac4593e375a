package reflection

// Enum is a mangled enum name plus its members, each carrying a resolved
// integer constant (Property.ConstantValue with IsConstant set).
type Enum struct {
	Name    string
	Members map[string]*Property
	Order   []string // declaration order, for start-function-free constant tables
}

// NewEnum returns an empty enum shell.
func NewEnum(name string) *Enum {
	return &Enum{Name: name, Members: make(map[string]*Property)}
}

// AddMember records member's resolved constant value.
func (e *Enum) AddMember(name string, value int64) *Property {
	p := &Property{Name: name, Type: Primitives["int"], IsConstant: true, ConstantValue: value}
	e.Members[name] = p
	e.Order = append(e.Order, name)
	return p
}
