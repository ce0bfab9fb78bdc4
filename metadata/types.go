package metadata

import (
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-resolver/abi"
)

// Kind classifies a library type.
type Kind int

const (
	KindWorld Kind = iota
	KindInterface
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindWorld:
		return "world"
	case KindInterface:
		return "interface"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

// MethodKind classifies a callable member.
type MethodKind int

const (
	MethodStatic MethodKind = iota
	MethodInstance
	MethodConstructor
	MethodDestructor
)

func (k MethodKind) String() string {
	switch k {
	case MethodStatic:
		return "static"
	case MethodInstance:
		return "method"
	case MethodConstructor:
		return "constructor"
	case MethodDestructor:
		return "destructor"
	default:
		return "unknown"
	}
}

// Param is a declared parameter or result. Type is nil when the declared
// WIT type cannot be passed by value; TypeText keeps the declaration.
type Param struct {
	Type     wit.Type
	Name     string
	TypeText string
	Handle   string
}

// TypeName returns the declared WIT type.
func (p Param) TypeName() string {
	if p.TypeText != "" {
		return p.TypeText
	}
	return abi.TypeName(p.Type)
}

// Method is a callable member backed by one core export.
type Method struct {
	Result      *Param
	Name        string
	Export      string
	Docs        string
	Params      []Param
	Gates       []Gate
	CoreParams  []api.ValueType
	CoreResults []api.ValueType
	Kind        MethodKind
}

// ParamTypes returns the WIT types of the declared parameters.
func (m *Method) ParamTypes() []wit.Type {
	types := make([]wit.Type, len(m.Params))
	for i, p := range m.Params {
		types[i] = p.Type
	}
	return types
}

// ResultType returns the WIT result type, or nil for no result.
func (m *Method) ResultType() wit.Type {
	if m.Result == nil {
		return nil
	}
	return m.Result.Type
}

// Accepts reports whether args match the parameter list exactly.
func (m *Method) Accepts(args []any) bool {
	if len(args) != len(m.Params) {
		return false
	}
	for i, p := range m.Params {
		if !abi.Accepts(p.Type, args[i]) {
			return false
		}
	}
	return true
}

// Unsupported reports whether any parameter or the result has a type that
// cannot be passed by value.
func (m *Method) Unsupported() bool {
	for _, p := range m.Params {
		if p.Type == nil {
			return true
		}
	}
	return m.Result != nil && m.Result.Type == nil
}

// Signature renders the method in WIT style: "plus(a: s32, b: s32) -> s32".
func (m *Method) Signature() string {
	var b strings.Builder
	b.WriteString(m.Name)
	b.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		b.WriteString(": ")
		b.WriteString(p.TypeName())
	}
	b.WriteByte(')')
	if m.Result != nil {
		b.WriteString(" -> ")
		b.WriteString(m.Result.TypeName())
	}
	return b.String()
}

// MemberKind classifies a type member.
type MemberKind int

const (
	MemberMethod MemberKind = iota
	MemberConstructor
	MemberDestructor
	MemberMemory
)

func (k MemberKind) String() string {
	switch k {
	case MemberMethod:
		return "method"
	case MemberConstructor:
		return "constructor"
	case MemberDestructor:
		return "destructor"
	case MemberMemory:
		return "memory"
	default:
		return "unknown"
	}
}

// Member is any declared member of a type. Method is nil for memories.
type Member struct {
	Method *Method
	Name   string
	Kind   MemberKind
}

// Attribute is a tag attached to a type: a derived tag such as "resource",
// or a WIT gate such as "since".
type Attribute struct {
	Name string
	Args string
}

func (a Attribute) String() string {
	if a.Args == "" {
		return a.Name
	}
	return a.Name + "(" + a.Args + ")"
}

// Type describes one type of a library.
type Type struct {
	Constructor *Method
	Destructor  *Method
	Name        string
	Namespace   string
	Base        string
	Docs        string
	Interfaces  []string
	Attributes  []Attribute
	methods     []*Method
	memories    []string
	Kind        Kind
}

// StaticOnly reports whether the type has no constructor.
func (t *Type) StaticOnly() bool {
	return t.Constructor == nil
}

// Methods returns static and instance methods in declaration order.
func (t *Type) Methods() []*Method {
	out := make([]*Method, len(t.methods))
	copy(out, t.methods)
	return out
}

// Members returns constructor, methods, destructor and memories.
func (t *Type) Members() []Member {
	var members []Member
	if t.Constructor != nil {
		members = append(members, Member{Name: t.Constructor.Name, Kind: MemberConstructor, Method: t.Constructor})
	}
	for _, m := range t.methods {
		members = append(members, Member{Name: m.Name, Kind: MemberMethod, Method: m})
	}
	if t.Destructor != nil {
		members = append(members, Member{Name: t.Destructor.Name, Kind: MemberDestructor, Method: t.Destructor})
	}
	for _, mem := range t.memories {
		members = append(members, Member{Name: mem, Kind: MemberMemory})
	}
	return members
}

// MethodsNamed returns the methods called name, in declaration order.
func (t *Type) MethodsNamed(name string) []*Method {
	var out []*Method
	for _, m := range t.methods {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// FindMethod returns the first method of the given kind called name whose
// parameters exactly match the dynamic types of args.
func (t *Type) FindMethod(name string, kind MethodKind, args []any) (*Method, bool) {
	for _, m := range t.methods {
		if m.Name == name && m.Kind == kind && m.Accepts(args) {
			return m, true
		}
	}
	return nil, false
}

// HasAttribute reports whether an attribute with this name is present.
// A leading "@" is ignored so both "since" and "@since" match gates.
func (t *Type) HasAttribute(name string) bool {
	name = strings.TrimPrefix(name, "@")
	for _, a := range t.Attributes {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Implements reports whether the type lists the interface, by full or short
// name.
func (t *Type) Implements(name string) bool {
	for _, iface := range t.Interfaces {
		if iface == name {
			return true
		}
		if _, short, _ := InterfaceParts(iface); short == name {
			return true
		}
	}
	return false
}
