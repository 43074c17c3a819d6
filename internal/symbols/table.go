package symbols

import (
	"fmt"

	"fortio.org/safecast"

	"udonsharp/internal/types"
)

// TypeMapper maps source types to the types the VM stores and names them.
type TypeMapper interface {
	UdonType(t *types.Type) *types.Type
	UdonTypeName(t *types.Type) string
}

// ScopeKind enumerates table scope categories.
type ScopeKind uint8

const (
	ScopeUnit   ScopeKind = iota // behaviour-level: fields and constants
	ScopeMethod                  // parameters and return slot
	ScopeBlock                   // locals
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeUnit:
		return "unit"
	case ScopeMethod:
		return "method"
	case ScopeBlock:
		return "block"
	default:
		return "invalid"
	}
}

type constKey struct {
	udonType string
	value    string
}

// unit is the state shared by every scope of one compilation unit.
type unit struct {
	mapper  TypeMapper
	counter uint32
	all     []*Symbol
	consts  map[constKey]*Symbol
	this    map[*types.Type]*Symbol
}

// Table is one lexical scope. Scopes share a unit-wide counter and data
// section; popping a scope hides its names but keeps its symbols.
type Table struct {
	unit   *unit
	parent *Table
	kind   ScopeKind
	names  map[string]*Symbol
}

// NewTable returns the unit-level scope of a fresh compilation unit.
func NewTable(mapper TypeMapper) *Table {
	return &Table{
		unit: &unit{
			mapper: mapper,
			consts: make(map[constKey]*Symbol),
			this:   make(map[*types.Type]*Symbol),
		},
		kind:  ScopeUnit,
		names: make(map[string]*Symbol),
	}
}

// Push opens a nested scope.
func (t *Table) Push(kind ScopeKind) *Table {
	return &Table{unit: t.unit, parent: t, kind: kind, names: make(map[string]*Symbol)}
}

// Pop returns the enclosing scope. Popping the unit scope is a compiler bug.
func (t *Table) Pop() *Table {
	if t.parent == nil {
		panic("symbols: pop of unit scope")
	}
	return t.parent
}

func (t *Table) Kind() ScopeKind { return t.kind }
func (t *Table) Parent() *Table { return t.parent }
func (t *Table) IsRoot() bool { return t.parent == nil }
func (t *Table) Mapper() TypeMapper { return t.unit.mapper }

func (t *Table) root() *Table {
	cur := t
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Symbols lists every symbol of the unit in creation order.
func (t *Table) Symbols() []*Symbol {
	return t.unit.all
}

// Get returns a symbol by ID.
func (t *Table) Get(id SymbolID) *Symbol {
	if id == NoSymbolID || int(id) > len(t.unit.all) {
		return nil
	}
	return t.unit.all[id-1]
}

// Find looks a user-visible name up through the scope chain.
func (t *Table) Find(name string) *Symbol {
	for cur := t; cur != nil; cur = cur.parent {
		if sym, ok := cur.names[name]; ok {
			return sym
		}
	}
	return nil
}

// FindUserDefinedSymbol is Find restricted to symbols declared by user code:
// fields, parameters and locals.
func (t *Table) FindUserDefinedSymbol(name string) *Symbol {
	sym := t.Find(name)
	if sym == nil || sym.Has(FlagInternal) {
		return nil
	}
	return sym
}

// DeclaredHere reports whether name is bound in this exact scope.
func (t *Table) DeclaredHere(name string) bool {
	_, ok := t.names[name]
	return ok
}

func (t *Table) nextIndex() uint32 {
	n := t.unit.counter
	t.unit.counter++
	return n
}

func (t *Table) add(name string, typ *types.Type, flags DeclFlags) *Symbol {
	id, err := safecast.Conv[uint32](len(t.unit.all) + 1)
	if err != nil {
		panic(fmt.Errorf("symbol id overflow: %w", err))
	}
	sym := &Symbol{
		ID:       SymbolID(id),
		Name:     name,
		Type:     typ,
		UdonType: t.unit.mapper.UdonType(typ),
		Flags:    flags,
	}
	t.unit.all = append(t.unit.all, sym)
	return sym
}

func (t *Table) bind(source string, sym *Symbol) {
	if _, dup := t.names[source]; dup {
		panic(fmt.Sprintf("symbols: %q already declared in %s scope", source, t.kind))
	}
	t.names[source] = sym
}

// CreateField declares a behaviour field; fields keep their source name.
func (t *Table) CreateField(name string, typ *types.Type, public bool) *Symbol {
	flags := FlagField
	if public {
		flags |= FlagPublic
	}
	root := t.root()
	sym := root.add(name, typ, flags)
	root.bind(name, sym)
	return sym
}

// ParameterName is the data-section name of parameter param of method.
// Other behaviours set it as a program variable before calling method.
func ParameterName(method, param string) string {
	return fmt.Sprintf("__%s_%s__param", method, param)
}

// ReturnName is the data-section name of method's return slot.
func ReturnName(method string) string {
	return fmt.Sprintf("__%s__ret", method)
}

// CreateParameter declares a method parameter as __<method>_<name>__param.
func (t *Table) CreateParameter(method, name string, typ *types.Type) *Symbol {
	sym := t.add(ParameterName(method, name), typ, FlagParameter)
	t.bind(name, sym)
	return sym
}

// CreateReturn declares the return slot __<method>__ret. It has no source
// name.
func (t *Table) CreateReturn(method string, typ *types.Type) *Symbol {
	return t.add(ReturnName(method), typ, FlagReturn|FlagInternal)
}

// CreateLocal declares a block local as __<n>_<name>.
func (t *Table) CreateLocal(name string, typ *types.Type) *Symbol {
	sym := t.add(fmt.Sprintf("__%d_%s", t.nextIndex(), name), typ, FlagLocal)
	t.bind(name, sym)
	return sym
}

// CreateUnnamed allocates an internal temporary __<n>_intnl_<UdonType>.
func (t *Table) CreateUnnamed(typ *types.Type) *Symbol {
	name := fmt.Sprintf("__%d_intnl_%s", t.nextIndex(), t.unit.mapper.UdonTypeName(typ))
	return t.add(name, typ, FlagInternal)
}

// CreateNamedInternal declares a compiler-owned slot with a fixed name in
// the unit scope, reusing it when it already exists.
func (t *Table) CreateNamedInternal(name string, typ *types.Type) *Symbol {
	root := t.root()
	if sym, ok := root.names[name]; ok {
		return sym
	}
	sym := root.add(name, typ, FlagInternal)
	root.names[name] = sym
	return sym
}

// CreateNamedConst declares a fixed-name constant in the unit scope, such
// as the reflection constants every behaviour carries.
func (t *Table) CreateNamedConst(name string, typ *types.Type, value any) *Symbol {
	root := t.root()
	if sym, ok := root.names[name]; ok {
		return sym
	}
	sym := root.add(name, typ, FlagConstant|FlagInternal|FlagReadOnly)
	sym.Value, sym.HasValue = value, true
	root.names[name] = sym
	return sym
}

// CreateConst returns a constant __<n>_const_intnl_<UdonType> holding
// value. Constants live in the unit scope and are shared by type and value;
// label addresses are never shared.
func (t *Table) CreateConst(typ *types.Type, value any) *Symbol {
	root := t.root()
	udonName := t.unit.mapper.UdonTypeName(typ)
	var key constKey
	_, isAddr := value.(Addressable)
	if !isAddr {
		key = constKey{udonType: udonName + "|" + typ.FullName(), value: fmt.Sprintf("%T:%v", value, value)}
		if sym, ok := t.unit.consts[key]; ok {
			return sym
		}
	}
	sym := root.add(fmt.Sprintf("__%d_const_intnl_%s", t.nextIndex(), udonName), typ, FlagConstant|FlagInternal)
	sym.Value, sym.HasValue = value, true
	if !isAddr {
		t.unit.consts[key] = sym
	}
	return sym
}

// CreateThis returns the symbol the VM binds to the running behaviour (or
// its GameObject/Transform) for typ.
func (t *Table) CreateThis(typ *types.Type) *Symbol {
	if sym, ok := t.unit.this[typ]; ok {
		return sym
	}
	name := fmt.Sprintf("__%d_this_intnl_%s", t.nextIndex(), t.unit.mapper.UdonTypeName(typ))
	sym := t.root().add(name, typ, FlagThis|FlagInternal|FlagReadOnly)
	t.unit.this[typ] = sym
	return sym
}
