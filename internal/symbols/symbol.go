package symbols

import (
	"strings"

	"udonsharp/internal/types"
)

// SymbolID is the ordinal of a symbol in its compilation unit's data
// section. Zero is reserved as the invalid sentinel.
type SymbolID uint32

const NoSymbolID SymbolID = 0

// DeclFlags describe how a symbol was declared.
type DeclFlags uint16

const (
	FlagConstant DeclFlags = 1 << iota
	FlagInternal
	FlagParameter
	FlagLocal
	FlagPublic
	FlagThis
	FlagReadOnly
	FlagField
	FlagReturn
)

var flagNames = []struct {
	flag DeclFlags
	name string
}{
	{FlagConstant, "const"},
	{FlagInternal, "internal"},
	{FlagParameter, "param"},
	{FlagLocal, "local"},
	{FlagPublic, "public"},
	{FlagThis, "this"},
	{FlagReadOnly, "readonly"},
	{FlagField, "field"},
	{FlagReturn, "return"},
}

func (f DeclFlags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// Addressable is a constant value that is only known once code addresses are
// fixed, such as the address of a jump label.
type Addressable interface {
	LabelName() string
}

// Symbol is one storage slot of the emitted program. Type is the
// source-level type; UdonType is what the VM stores.
type Symbol struct {
	ID       SymbolID
	Name     string
	Type     *types.Type
	UdonType *types.Type
	Flags    DeclFlags
	Value    any
	HasValue bool
}

func (s *Symbol) Has(flag DeclFlags) bool { return s != nil && s.Flags&flag != 0 }

func (s *Symbol) IsConstant() bool { return s.Has(FlagConstant) }
func (s *Symbol) IsThis() bool { return s.Has(FlagThis) }
func (s *Symbol) IsParameter() bool { return s.Has(FlagParameter) }
func (s *Symbol) IsPublic() bool { return s.Has(FlagPublic) }

// IsWritable reports whether user code may assign to the symbol.
func (s *Symbol) IsWritable() bool {
	return s != nil && s.Flags&(FlagConstant|FlagThis|FlagReadOnly) == 0
}

func (s *Symbol) String() string {
	if s == nil {
		return "<nil>"
	}
	return s.Name
}
