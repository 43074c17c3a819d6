package types

import (
	"fmt"
	"strings"
)

// Field is a data member of a host type.
type Field struct {
	Name      string
	Declaring *Type
	Type      *Type
	Static    bool
	ReadOnly  bool
	Const     bool
	// Value holds the literal of a const field.
	Value   any
	Exposed bool
}

func (f *Field) String() string {
	return f.Declaring.DisplayName() + "." + f.Name
}

// Param is one formal parameter of a Method.
type Param struct {
	Name string
	Type *Type
	Out  bool
	// Variadic marks a trailing `params T[]` parameter.
	Variadic   bool
	HasDefault bool
	Default    any
}

// Method is a callable member. Constructors carry Name ".ctor" and return
// their declaring type.
type Method struct {
	Name         string
	Declaring    *Type
	Params       []Param
	Return       *Type
	Static       bool
	GenericArity int
	Exposed      bool

	order int
}

const CtorName = ".ctor"

func (m *Method) IsCtor() bool { return m.Name == CtorName }

func (m *Method) IsVoid() bool { return m.Return == nil || m.Return.Kind == KindVoid }

func (m *Method) IsGeneric() bool { return m.GenericArity > 0 }

// Order is the declaration index of the method within the catalog.
func (m *Method) Order() int { return m.order }

// RequiredParams counts parameters without defaults, excluding a trailing
// params array.
func (m *Method) RequiredParams() int {
	n := 0
	for _, p := range m.Params {
		if p.HasDefault || p.Variadic {
			continue
		}
		n++
	}
	return n
}

// HasVariadic reports whether the last parameter is a params array.
func (m *Method) HasVariadic() bool {
	return len(m.Params) > 0 && m.Params[len(m.Params)-1].Variadic
}

func (m *Method) String() string {
	var sb strings.Builder
	if m.Declaring != nil {
		sb.WriteString(m.Declaring.DisplayName())
		sb.WriteByte('.')
	}
	sb.WriteString(m.Name)
	sb.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		if p.Variadic {
			sb.WriteString("params ")
		}
		if p.Out {
			sb.WriteString("out ")
		}
		sb.WriteString(p.Type.DisplayName())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Property is an accessor pair. Getter/Setter are nil when the accessor is
// absent.
type Property struct {
	Name      string
	Declaring *Type
	Type      *Type
	Static    bool
	Getter    *Method
	Setter    *Method
}

func (p *Property) String() string {
	return p.Declaring.DisplayName() + "." + p.Name
}

// EnumValue is one named constant of an enum type.
type EnumValue struct {
	Name  string
	Value int64
}

// AddField declares a field on t. A second field with the same name on the
// same type is a catalog defect.
func (t *Type) AddField(f *Field) *Field {
	for _, existing := range t.fields {
		if existing.Name == f.Name {
			panic(fmt.Sprintf("types: duplicate field %s.%s", t.FullName(), f.Name))
		}
	}
	f.Declaring = t
	t.fields = append(t.fields, f)
	return f
}

// AddProperty declares a property and wires its accessors back to t.
func (t *Type) AddProperty(p *Property) *Property {
	for _, existing := range t.properties {
		if existing.Name == p.Name {
			panic(fmt.Sprintf("types: duplicate property %s.%s", t.FullName(), p.Name))
		}
	}
	p.Declaring = t
	if p.Getter != nil {
		p.Getter.Declaring = t
		p.Getter.Static = p.Static
	}
	if p.Setter != nil {
		p.Setter.Declaring = t
		p.Setter.Static = p.Static
	}
	t.properties = append(t.properties, p)
	return p
}

// AddMethod declares a method; overloads share a name.
func (t *Type) AddMethod(m *Method) *Method {
	m.Declaring = t
	if m.IsCtor() {
		m.Return = t
	}
	m.order = len(t.methods)
	t.methods = append(t.methods, m)
	return m
}

func (t *Type) AddNested(n *Type) *Type {
	n.Declaring = t
	t.nested = append(t.nested, n)
	return n
}

func (t *Type) AddEnumValue(name string, value int64) {
	t.enumValues = append(t.enumValues, EnumValue{Name: name, Value: value})
}

func (t *Type) Fields() []*Field { return t.fields }
func (t *Type) Properties() []*Property { return t.properties }
func (t *Type) DeclaredMethods() []*Method { return t.methods }
func (t *Type) NestedTypes() []*Type { return t.nested }
func (t *Type) EnumValues() []EnumValue { return t.enumValues }

// Field finds a field on t or its base chain, most derived first.
func (t *Type) Field(name string) *Field {
	for cur := t; cur != nil; cur = cur.Base {
		for _, f := range cur.fields {
			if f.Name == name {
				return f
			}
		}
	}
	return nil
}

// Property finds a property on t, its base chain, or its interfaces.
func (t *Type) Property(name string) *Property {
	for cur := t; cur != nil; cur = cur.Base {
		for _, p := range cur.properties {
			if p.Name == name {
				return p
			}
		}
	}
	var found *Property
	t.walkInterfaces(func(it *Type) bool {
		for _, p := range it.properties {
			if p.Name == name {
				found = p
				return false
			}
		}
		return true
	})
	return found
}

// Methods collects every method named name visible on t: the base chain
// most derived first, then interfaces. Ordering is stable.
func (t *Type) Methods(name string) []*Method {
	var out []*Method
	for cur := t; cur != nil; cur = cur.Base {
		for _, m := range cur.methods {
			if m.Name == name {
				out = append(out, m)
			}
		}
	}
	t.walkInterfaces(func(it *Type) bool {
		for _, m := range it.methods {
			if m.Name == name {
				out = append(out, m)
			}
		}
		return true
	})
	return out
}

// Nested finds a nested type declared directly on t.
func (t *Type) Nested(name string) *Type {
	for _, n := range t.nested {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// EnumValue looks up a named enum constant.
func (t *Type) EnumValue(name string) (int64, bool) {
	for _, v := range t.enumValues {
		if v.Name == name {
			return v.Value, true
		}
	}
	return 0, false
}

func (t *Type) walkInterfaces(visit func(*Type) bool) {
	seen := make(map[*Type]struct{})
	var walk func(*Type) bool
	walk = func(it *Type) bool {
		if _, ok := seen[it]; ok {
			return true
		}
		seen[it] = struct{}{}
		if !visit(it) {
			return false
		}
		for _, sub := range it.Interfaces {
			if !walk(sub) {
				return false
			}
		}
		return true
	}
	for cur := t; cur != nil; cur = cur.Base {
		for _, it := range cur.Interfaces {
			if !walk(it) {
				return
			}
		}
	}
}
