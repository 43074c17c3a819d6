package types

import (
	"fmt"
	"strings"
)

// Kind enumerates the shapes a host type can take.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindPrimitive
	KindString
	KindObject
	KindClass
	KindStruct
	KindInterface
	KindEnum
	KindArray
	KindByRef
	KindGenericParam
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVoid:
		return "void"
	case KindPrimitive:
		return "primitive"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindClass:
		return "class"
	case KindStruct:
		return "struct"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindArray:
		return "array"
	case KindByRef:
		return "byref"
	case KindGenericParam:
		return "generic"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Primitive identifies built-in value types.
type Primitive uint8

const (
	PrimNone Primitive = iota
	PrimBool
	PrimChar
	PrimSByte
	PrimByte
	PrimInt16
	PrimUInt16
	PrimInt32
	PrimUInt32
	PrimInt64
	PrimUInt64
	PrimSingle
	PrimDouble
	PrimDecimal
)

// Type describes a host type the compiler can reference. Types are
// identified by pointer: a Catalog hands out exactly one *Type per name, and
// array/by-ref types are interned.
type Type struct {
	Kind      Kind
	Namespace string
	Name      string
	Prim      Primitive

	Base       *Type
	Interfaces []*Type
	// Elem is the element of an array or the referent of a by-ref type.
	Elem *Type
	// Declaring is set for nested types.
	Declaring *Type
	// Underlying is the integral type of an enum.
	Underlying *Type
	// UserBehaviour marks behaviours compiled by udonsharp itself.
	UserBehaviour bool

	owner      *Catalog
	fields     []*Field
	properties []*Property
	methods    []*Method
	nested     []*Type
	enumValues []EnumValue
}

// FullName follows the reflection convention: Namespace.Outer+Inner, T[] for
// arrays and T& for by-ref.
func (t *Type) FullName() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KindArray:
		return t.Elem.FullName() + "[]"
	case KindByRef:
		return t.Elem.FullName() + "&"
	case KindGenericParam:
		return t.Name
	}
	if t.Declaring != nil {
		return t.Declaring.FullName() + "+" + t.Name
	}
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

func (t *Type) String() string {
	return t.FullName()
}

// DisplayName renders nested types with dots, the way source code names them.
func (t *Type) DisplayName() string {
	return strings.ReplaceAll(t.FullName(), "+", ".")
}

func (t *Type) IsValueType() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindPrimitive, KindStruct, KindEnum:
		return true
	}
	return false
}

func (t *Type) IsArray() bool { return t != nil && t.Kind == KindArray }
func (t *Type) IsByRef() bool { return t != nil && t.Kind == KindByRef }
func (t *Type) IsEnum() bool { return t != nil && t.Kind == KindEnum }
func (t *Type) IsVoid() bool { return t != nil && t.Kind == KindVoid }
func (t *Type) IsObject() bool { return t != nil && t.Kind == KindObject }
func (t *Type) IsString() bool { return t != nil && t.Kind == KindString }
func (t *Type) IsGenericParam() bool { return t != nil && t.Kind == KindGenericParam }

// IsNumeric reports integral and floating point primitives, char included.
func (t *Type) IsNumeric() bool {
	return t != nil && t.Kind == KindPrimitive && t.Prim >= PrimChar
}

// IsInteger reports integral primitives, char excluded.
func (t *Type) IsInteger() bool {
	return t != nil && t.Kind == KindPrimitive && t.Prim >= PrimSByte && t.Prim <= PrimUInt64
}

// IsBehaviourLike reports user behaviours and arrays of them; their storage
// type differs from their source type.
func (t *Type) IsBehaviourLike() bool {
	for t != nil && t.Kind == KindArray {
		t = t.Elem
	}
	return t != nil && t.UserBehaviour
}

// ContainsGenericParam reports whether substitution is needed.
func (t *Type) ContainsGenericParam() bool {
	for t != nil {
		if t.Kind == KindGenericParam {
			return true
		}
		if t.Kind != KindArray && t.Kind != KindByRef {
			return false
		}
		t = t.Elem
	}
	return false
}

// Derives reports whether base appears on t's base chain (t itself included).
func (t *Type) Derives(base *Type) bool {
	for cur := t; cur != nil; cur = cur.Base {
		if cur == base {
			return true
		}
	}
	return false
}

// Depth is the number of base hops to the root.
func (t *Type) Depth() int {
	n := 0
	for cur := t; cur != nil && cur.Base != nil; cur = cur.Base {
		n++
	}
	return n
}
