package compiler

import (
	"fmt"

	"udonsharp/internal/asm"
	"udonsharp/internal/diag"
	"udonsharp/internal/symbols"
	"udonsharp/internal/types"
)

// MethodDefinition is a method of the behaviour being compiled.
//
// Calling convention: the caller pushes the address of its return label and
// jumps to CallEntry. The method's epilogue pops that address into the
// return-jump slot and jumps through it. Return addresses of enclosing calls
// stay on the stack until their own epilogues, so the slot is only live
// between the pop and the jump. Exported entries push the halt address
// before falling into CallEntry.
type MethodDefinition struct {
	Name       string
	Public     bool
	Params     []*symbols.Symbol
	ReturnType *types.Type
	// Return is the return slot, nil for void methods.
	Return *symbols.Symbol

	// Entry is the exported event label, nil for private methods.
	Entry       *asm.Label
	CallEntry   *asm.Label
	ReturnLabel *asm.Label

	scope *symbols.Table
}

func (m *MethodDefinition) IsVoid() bool { return m.Return == nil }

// ParamDecl declares one method parameter.
type ParamDecl struct {
	Name string
	Type *types.Type
}

// unityEvents maps Unity message names to the entry names the VM raises.
var unityEvents = map[string]string{
	"Start":             "_start",
	"Update":            "_update",
	"LateUpdate":        "_lateUpdate",
	"FixedUpdate":       "_fixedUpdate",
	"OnEnable":          "_onEnable",
	"OnDisable":         "_onDisable",
	"Interact":          "_interact",
	"OnPickup":          "_onPickup",
	"OnDrop":            "_onDrop",
	"OnPickupUseDown":   "_onPickupUseDown",
	"OnPlayerJoined":    "_onPlayerJoined",
	"OnPlayerLeft":      "_onPlayerLeft",
	"OnDeserialization": "_onDeserialization",
}

// EventName is the exported entry name of a public method.
func EventName(method string) string {
	if name, ok := unityEvents[method]; ok {
		return name
	}
	return method
}

// DeclareMethod registers a method so calls can be resolved before its body
// is compiled.
func (c *Context) DeclareMethod(name string, params []ParamDecl, ret *types.Type, public bool) (*MethodDefinition, error) {
	if c.FindMethod(name) != nil {
		return nil, diag.Errorf(diag.SynDuplicateDecl, "method '%s' is already declared", name)
	}
	root := c.TopTable
	for !root.IsRoot() {
		root = root.Parent()
	}
	scope := root.Push(symbols.ScopeMethod)
	def := &MethodDefinition{
		Name:        name,
		Public:      public,
		ReturnType:  ret,
		CallEntry:   c.Labels.New("__call_" + name),
		ReturnLabel: c.Labels.New("__return_" + name),
		scope:       scope,
	}
	for _, p := range params {
		if scope.DeclaredHere(p.Name) {
			return nil, diag.Errorf(diag.SynDuplicateDecl, "parameter '%s' of '%s' is declared twice", p.Name, name)
		}
		def.Params = append(def.Params, scope.CreateParameter(name, p.Name, p.Type))
	}
	if ret != nil && !ret.IsVoid() {
		def.Return = scope.CreateReturn(name, ret)
	}
	if public {
		def.Entry = c.Labels.Named(EventName(name))
		c.entries = append(c.entries, asm.Entry{Name: def.Entry.LabelName(), Label: def.Entry})
	}
	c.DefinedMethods = append(c.DefinedMethods, def)
	return def, nil
}

// BeginMethod starts emitting def's body in a fresh block scope.
func (c *Context) BeginMethod(def *MethodDefinition) {
	if c.current != nil {
		panic(fmt.Sprintf("compiler: method %s begun inside %s", def.Name, c.current.Name))
	}
	c.current = def
	c.TopTable = def.scope.Push(symbols.ScopeBlock)
	if def.Entry != nil {
		c.Sink.AddJumpLabel(def.Entry)
		c.Sink.AddPush(c.haltAddress())
	}
	c.Sink.AddJumpLabel(def.CallEntry)
}

// EmitReturn stores value (nil for a bare return) and leaves the method.
func (c *Context) EmitReturn(value *symbols.Symbol) error {
	def := c.current
	if def == nil {
		return diag.Errorf(diag.SemaIllegalOperation, "return outside of a method")
	}
	switch {
	case def.Return == nil && value != nil:
		return diag.Errorf(diag.SemaIllegalOperation, "'%s' returns void, a return keyword must not be followed by an expression", def.Name)
	case def.Return != nil && value == nil:
		return diag.Errorf(diag.SemaIllegalOperation, "'%s' must return a value of type '%s'", def.Name, def.ReturnType.DisplayName())
	case value != nil:
		v, err := c.CastSymbolToType(value, def.ReturnType, false)
		if err != nil {
			return err
		}
		c.Sink.AddCopy(def.Return, v)
	}
	c.Sink.AddJump(def.ReturnLabel)
	return nil
}

// EndMethod emits the epilogue and returns to the unit scope.
func (c *Context) EndMethod() {
	def := c.current
	if def == nil {
		panic("compiler: EndMethod without BeginMethod")
	}
	c.Sink.AddJumpLabel(def.ReturnLabel)
	c.Sink.AddStore(c.ReturnJumpTarget)
	c.Sink.AddJumpIndirect(c.ReturnJumpTarget)
	for !c.TopTable.IsRoot() {
		c.PopTable()
	}
	c.current = nil
}

// CurrentMethod is the method whose body is being emitted, or nil.
func (c *Context) CurrentMethod() *MethodDefinition { return c.current }

// DeclareField adds a behaviour field. value, when hasValue is set, is the
// field's initial heap value.
func (c *Context) DeclareField(name string, typ *types.Type, public bool, value any, hasValue bool) (*symbols.Symbol, error) {
	root := c.TopTable
	for !root.IsRoot() {
		root = root.Parent()
	}
	if root.DeclaredHere(name) {
		return nil, diag.Errorf(diag.SynDuplicateDecl, "field '%s' is already declared", name)
	}
	sym := root.CreateField(name, typ, public)
	sym.Value, sym.HasValue = value, hasValue
	return sym, nil
}

// DeclareLocal adds a local to the innermost scope.
func (c *Context) DeclareLocal(name string, typ *types.Type) (*symbols.Symbol, error) {
	if c.TopTable.DeclaredHere(name) {
		return nil, diag.Errorf(diag.SynDuplicateDecl, "a local variable named '%s' is already defined in this scope", name)
	}
	return c.TopTable.CreateLocal(name, typ), nil
}

func (c *Context) haltAddress() *symbols.Symbol {
	if c.haltAddr == nil {
		c.haltAddr = c.TopTable.CreateNamedConst("__intnl_haltAddress_SystemUInt32", c.b.UInt32, asm.HaltAddress)
	}
	return c.haltAddr
}

// Program packages the unit for assembly. It fails when the sink does not
// retain code or a capture scope is still open.
func (c *Context) Program() (*asm.Program, error) {
	code, ok := c.Sink.(*asm.Builder)
	if !ok {
		return nil, fmt.Errorf("compiler: sink %T does not retain code", c.Sink)
	}
	if n := len(c.captures); n > 0 {
		return nil, fmt.Errorf("compiler: %d capture scopes still open", n)
	}
	if c.current != nil {
		return nil, fmt.Errorf("compiler: method %s was not ended", c.current.Name)
	}
	return &asm.Program{
		Name:    c.Behaviour.FullName(),
		Mapper:  c.Resolver,
		Data:    c.TopTable.Symbols(),
		Code:    code,
		Entries: c.entries,
	}, nil
}
