package value

type Visibility uint8

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "public"
	}
}

type TypeFlags uint16

const (
	Abstract TypeFlags = 1 << iota
	Final
	Interface
	Trait
	Cloneable
	Iterable
	// Internal marks types that ship with the runtime rather than user code.
	Internal
)

type Constant struct {
	Name       string
	Value      Value
	DeclaredBy *TypeDescriptor
}

type Property struct {
	Name       string
	Visibility Visibility
	Static     bool
	DeclaredBy *TypeDescriptor
	Doc        string
}

type Param struct {
	Name string
	// Hint is the resolved type of the parameter when it names a known type.
	Hint     *TypeDescriptor
	HintName string
	ByRef    bool
	Variadic bool
	Optional bool
	Default  Value
	// DefaultConst names a constant default; it wins over Default.
	DefaultConst string
}

// Method describes a method or, with a nil DeclaredBy, a free function.
type Method struct {
	Name       string
	Visibility Visibility
	Static     bool
	Abstract   bool
	Final      bool
	ReturnsRef bool
	DeclaredBy *TypeDescriptor
	Prototype  *TypeDescriptor
	Params     []Param
	Doc        string
	File       string
	Line       int
	Package    string
	Internal   bool
	Link       string
}

type TypeDescriptor struct {
	Name       string
	Package    string
	Parent     *TypeDescriptor
	Interfaces []*TypeDescriptor
	Traits     []*TypeDescriptor
	// Constants, Properties and Methods hold the full visible member set,
	// inherited members included; DeclaredBy tells them apart.
	Constants  []Constant
	Properties []Property
	Methods    []Method
	Flags      TypeFlags
	Doc        string
	File       string
	Line       int
	Link       string
}

func (t *TypeDescriptor) Is(flag TypeFlags) bool { return t != nil && t.Flags&flag != 0 }
func (t *TypeDescriptor) IsInterface() bool      { return t.Is(Interface) }
func (t *TypeDescriptor) IsTrait() bool          { return t.Is(Trait) }
func (t *TypeDescriptor) IsInternal() bool       { return t.Is(Internal) }

// Lineage returns the ancestor chain root first, ending with t. A repeated
// ancestor stops the walk.
func (t *TypeDescriptor) Lineage() []*TypeDescriptor {
	var chain []*TypeDescriptor
	seen := make(map[*TypeDescriptor]bool)
	for cur := t; cur != nil && !seen[cur]; cur = cur.Parent {
		seen[cur] = true
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func (t *TypeDescriptor) Property(name string) (Property, bool) {
	if t == nil {
		return Property{}, false
	}
	for _, p := range t.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

func (t *TypeDescriptor) Method(name string) (*Method, bool) {
	if t == nil {
		return nil, false
	}
	for i := range t.Methods {
		if t.Methods[i].Name == name {
			return &t.Methods[i], true
		}
	}
	return nil, false
}

func (t *TypeDescriptor) HasConstant(name string) bool {
	for _, c := range t.Constants {
		if c.Name == name {
			return true
		}
	}
	return false
}

// LocalConstant reports whether t itself declares the constant.
func (t *TypeDescriptor) LocalConstant(name string) bool {
	for _, c := range t.Constants {
		if c.Name == name {
			return c.DeclaredBy == nil || c.DeclaredBy == t
		}
	}
	return false
}

// NewType starts a descriptor for hand-built or decoded values.
func NewType(name string) *TypeDescriptor {
	return &TypeDescriptor{Name: name}
}

// Extends sets the parent and copies its members in as inherited ones.
func (t *TypeDescriptor) Extends(parent *TypeDescriptor) *TypeDescriptor {
	t.Parent = parent
	for _, c := range parent.Constants {
		if c.DeclaredBy == nil {
			c.DeclaredBy = parent
		}
		t.Constants = append(t.Constants, c)
	}
	for _, p := range parent.Properties {
		if p.DeclaredBy == nil {
			p.DeclaredBy = parent
		}
		t.Properties = append(t.Properties, p)
	}
	for _, m := range parent.Methods {
		if m.DeclaredBy == nil {
			m.DeclaredBy = parent
		}
		t.Methods = append(t.Methods, m)
	}
	return t
}

func (t *TypeDescriptor) Implements(ifaces ...*TypeDescriptor) *TypeDescriptor {
	t.Interfaces = append(t.Interfaces, ifaces...)
	return t
}

func (t *TypeDescriptor) Uses(traits ...*TypeDescriptor) *TypeDescriptor {
	t.Traits = append(t.Traits, traits...)
	return t
}

func (t *TypeDescriptor) Const(name string, v Value) *TypeDescriptor {
	c := Constant{Name: name, Value: v, DeclaredBy: t}
	for i := range t.Constants {
		if t.Constants[i].Name == name {
			t.Constants[i] = c
			return t
		}
	}
	t.Constants = append(t.Constants, c)
	return t
}

func (t *TypeDescriptor) Prop(p Property) *TypeDescriptor {
	if p.DeclaredBy == nil {
		p.DeclaredBy = t
	}
	for i := range t.Properties {
		if t.Properties[i].Name == p.Name {
			t.Properties[i] = p
			return t
		}
	}
	t.Properties = append(t.Properties, p)
	return t
}

func (t *TypeDescriptor) Func(m Method) *TypeDescriptor {
	if m.DeclaredBy == nil {
		m.DeclaredBy = t
	}
	for i := range t.Methods {
		if t.Methods[i].Name == m.Name {
			t.Methods[i] = m
			return t
		}
	}
	t.Methods = append(t.Methods, m)
	return t
}

func (t *TypeDescriptor) With(flags TypeFlags) *TypeDescriptor {
	t.Flags |= flags
	return t
}
