package compiler

import (
	"fmt"

	"udonsharp/internal/symbols"
	"udonsharp/internal/types"
)

// Archetype classifies what a capture scope currently refers to.
type Archetype uint8

const (
	ArchetypeUnknown Archetype = iota
	ArchetypeNamespace
	ArchetypeProperty
	ArchetypeField
	ArchetypeLocalSymbol
	ArchetypeMethod
	ArchetypeType
	ArchetypeArrayIndexer
	ArchetypeThis
	ArchetypeEnum
	ArchetypeLocalMethod
	ArchetypeExternUserField
	ArchetypeExternUserMethod
	ArchetypeInternalCompilerMethod
)

// Archetypes lists every archetype in declaration order.
var Archetypes = []Archetype{
	ArchetypeUnknown,
	ArchetypeNamespace,
	ArchetypeProperty,
	ArchetypeField,
	ArchetypeLocalSymbol,
	ArchetypeMethod,
	ArchetypeType,
	ArchetypeArrayIndexer,
	ArchetypeThis,
	ArchetypeEnum,
	ArchetypeLocalMethod,
	ArchetypeExternUserField,
	ArchetypeExternUserMethod,
	ArchetypeInternalCompilerMethod,
}

func (a Archetype) String() string {
	switch a {
	case ArchetypeUnknown:
		return "Unknown"
	case ArchetypeNamespace:
		return "Namespace"
	case ArchetypeProperty:
		return "Property"
	case ArchetypeField:
		return "Field"
	case ArchetypeLocalSymbol:
		return "LocalSymbol"
	case ArchetypeMethod:
		return "Method"
	case ArchetypeType:
		return "Type"
	case ArchetypeArrayIndexer:
		return "ArrayIndexer"
	case ArchetypeThis:
		return "This"
	case ArchetypeEnum:
		return "Enum"
	case ArchetypeLocalMethod:
		return "LocalMethod"
	case ArchetypeExternUserField:
		return "ExternUserField"
	case ArchetypeExternUserMethod:
		return "ExternUserMethod"
	case ArchetypeInternalCompilerMethod:
		return "InternalCompilerMethod"
	default:
		return fmt.Sprintf("Archetype(%d)", uint8(a))
	}
}

// IsMethod reports the archetypes that can only be invoked.
func (a Archetype) IsMethod() bool {
	switch a {
	case ArchetypeMethod, ArchetypeLocalMethod, ArchetypeExternUserMethod, ArchetypeInternalCompilerMethod:
		return true
	}
	return false
}

// IsValue reports the archetypes that denote a readable value whose members
// can be accessed.
func (a Archetype) IsValue() bool {
	switch a {
	case ArchetypeLocalSymbol, ArchetypeProperty, ArchetypeField, ArchetypeArrayIndexer, ArchetypeEnum, ArchetypeExternUserField:
		return true
	}
	return false
}

// hasMembers reports the archetypes whose value can be the receiver of a
// member access. Enum constants are values but expose no members.
func (a Archetype) hasMembers() bool {
	switch a {
	case ArchetypeLocalSymbol, ArchetypeProperty, ArchetypeField, ArchetypeArrayIndexer, ArchetypeExternUserField:
		return true
	}
	return false
}

// inheritable reports whether a parent scope may adopt a child's result.
func (a Archetype) inheritable() bool {
	switch a {
	case ArchetypeUnknown, ArchetypeThis, ArchetypeMethod, ArchetypeNamespace:
		return false
	}
	return true
}

// payload is the archetype-specific state of a capture scope. Each
// archetype has exactly one payload type.
type payload interface {
	archetype() Archetype
}

type namespacePayload struct{ name string }

type typePayload struct{ typ *types.Type }

type propertyPayload struct{ prop *types.Property }

type fieldPayload struct{ field *types.Field }

type localSymbolPayload struct{ sym *symbols.Symbol }

type methodPayload struct{ methods []*types.Method }

type arrayIndexerPayload struct{ index *symbols.Symbol }

type thisPayload struct{}

type enumPayload struct {
	typ   *types.Type
	name  string
	value int64
}

type localMethodPayload struct{ def *MethodDefinition }

type externUserFieldPayload struct{ field *ExternField }

type externUserMethodPayload struct{ method *ExternMethod }

type internalMethodPayload struct{ method *InternalMethod }

func (namespacePayload) archetype() Archetype { return ArchetypeNamespace }

func (typePayload) archetype() Archetype { return ArchetypeType }

func (propertyPayload) archetype() Archetype { return ArchetypeProperty }

func (fieldPayload) archetype() Archetype { return ArchetypeField }

func (localSymbolPayload) archetype() Archetype { return ArchetypeLocalSymbol }

func (methodPayload) archetype() Archetype { return ArchetypeMethod }

func (arrayIndexerPayload) archetype() Archetype { return ArchetypeArrayIndexer }

func (thisPayload) archetype() Archetype { return ArchetypeThis }

func (enumPayload) archetype() Archetype { return ArchetypeEnum }

func (localMethodPayload) archetype() Archetype { return ArchetypeLocalMethod }

func (externUserFieldPayload) archetype() Archetype { return ArchetypeExternUserField }

func (externUserMethodPayload) archetype() Archetype { return ArchetypeExternUserMethod }

func (internalMethodPayload) archetype() Archetype { return ArchetypeInternalCompilerMethod }

func archetypeOf(p payload) Archetype {
	if p == nil {
		return ArchetypeUnknown
	}
	return p.archetype()
}

// payloadAs returns the payload as P. A mismatch is a compiler bug.
func payloadAs[P payload](p payload) P {
	v, ok := p.(P)
	if !ok {
		var want P
		panic(fmt.Sprintf("compiler: %s payload requested on %s capture", want.archetype(), archetypeOf(p)))
	}
	return v
}
