package compiler

import (
	"fortio.org/safecast"

	"udonsharp/internal/diag"
	"udonsharp/internal/resolver"
	"udonsharp/internal/symbols"
	"udonsharp/internal/types"
)

// ExecuteGet materializes the current value into a symbol. Local symbols are
// returned as they are; members are read into a fresh temporary.
func (s *CaptureScope) ExecuteGet() (*symbols.Symbol, error) {
	c := s.ctx
	switch p := s.payload.(type) {
	case localSymbolPayload:
		return p.sym, nil
	case propertyPayload:
		getter, name, err := s.propertyGetter(p.prop)
		if err != nil {
			return nil, err
		}
		if getter != nil && !c.Resolver.IsExposed(getter) {
			return nil, notExposed(name)
		}
		return s.emitRead(p.prop.Static, p.prop.Type, name), nil
	case fieldPayload:
		f := p.field
		if f.Const {
			return c.TopTable.CreateConst(f.Type, f.Value), nil
		}
		name := c.Resolver.FieldGetterName(f)
		if !f.Exposed {
			return nil, notExposed(name)
		}
		return s.emitRead(f.Static, f.Type, name), nil
	case externUserFieldPayload:
		obj := c.getProgramVariable(s.accessSymbol, p.field.Name)
		return c.retype(obj, p.field.Type)
	case arrayIndexerPayload:
		return s.readElement(p.index), nil
	case thisPayload:
		return s.accessSymbol, nil
	case enumPayload:
		v, err := enumValue(p.typ, p.value)
		if err != nil {
			return nil, err
		}
		return c.TopTable.CreateConst(p.typ, v), nil
	case nil:
		name := "<empty>"
		if len(s.chain) > 0 {
			name = s.chain[len(s.chain)-1]
		}
		return nil, diag.Errorf(diag.SemaUnresolvedName, "the name '%s' does not exist in the current context", name)
	}
	return nil, diag.Errorf(diag.SemaIllegalOperation, "Get is only valid on fields, properties, local symbols, array indexers, and this (got %s)", s.Archetype())
}

// propertyGetter picks the extern that reads prop. Proxy properties read
// through their UdonBehaviour substitute; Length of an array reads through
// the array's own accessor, which has no method behind it.
func (s *CaptureScope) propertyGetter(prop *types.Property) (*types.Method, string, error) {
	c := s.ctx
	if prop.Name == "Length" && prop.Declaring == c.b.Array && s.accessSymbol != nil && s.accessSymbol.Type.IsArray() {
		return nil, c.Resolver.ArrayLengthName(s.accessSymbol.Type), nil
	}
	getter := c.Resolver.UdonGetter(prop)
	if getter == nil {
		return nil, "", diag.Errorf(diag.SemaMemberAccess, "'%s.%s' cannot be read on Udon", prop.Declaring.DisplayName(), prop.Name)
	}
	return getter, c.Resolver.MethodName(getter), nil
}

// emitRead pushes the receiver (instance members only) and a fresh output
// slot, then calls extern.
func (s *CaptureScope) emitRead(static bool, typ *types.Type, extern string) *symbols.Symbol {
	c := s.ctx
	out := c.TopTable.CreateUnnamed(typ)
	if !static {
		c.Sink.AddPush(s.accessSymbol)
	}
	c.Sink.AddPush(out)
	c.Sink.AddExternCall(extern)
	s.backtrace = nil
	return out
}

func (s *CaptureScope) readElement(index *symbols.Symbol) *symbols.Symbol {
	c := s.ctx
	arr := s.accessSymbol
	var (
		out    *symbols.Symbol
		extern string
	)
	if arr.Type.IsString() {
		out = c.TopTable.CreateUnnamed(c.b.Char)
		extern = resolver.ExternStringGetChars
	} else {
		out = c.TopTable.CreateUnnamed(arr.Type.Elem)
		extern = c.Resolver.ArrayGetName(arr.Type)
	}
	c.Sink.AddPush(arr)
	c.Sink.AddPush(index)
	c.Sink.AddPush(out)
	c.Sink.AddExternCall(extern)
	s.backtrace = &arrayBacktrace{array: arr, index: index, element: out}
	return out
}

// ExecuteSet stores value into the current target, converting it to the
// target's type. Writability is checked before anything is emitted. A
// member write on a value-type array element is followed by storing the
// element back into its array.
func (s *CaptureScope) ExecuteSet(value *symbols.Symbol, explicit bool) error {
	c := s.ctx
	target, err := s.setTarget()
	if err != nil {
		return err
	}
	v, err := c.CastSymbolToType(value, target.typ, explicit)
	if err != nil {
		return err
	}
	switch p := s.payload.(type) {
	case localSymbolPayload:
		c.Sink.AddCopy(p.sym, v)
		return nil
	case externUserFieldPayload:
		c.setProgramVariable(s.accessSymbol, p.field.Name, v)
		return nil
	case arrayIndexerPayload:
		c.writeElement(s.accessSymbol, p.index, v)
		return nil
	}
	if !target.static {
		c.Sink.AddPush(s.accessSymbol)
	}
	c.Sink.AddPush(v)
	c.Sink.AddExternCall(target.extern)
	if bt := s.backtrace; bt != nil && !target.static && bt.element == s.accessSymbol && bt.element.Type.IsValueType() {
		c.writeElement(bt.array, bt.index, bt.element)
	}
	return nil
}

type setTarget struct {
	typ    *types.Type
	static bool
	extern string
}

func (s *CaptureScope) setTarget() (setTarget, error) {
	c := s.ctx
	switch p := s.payload.(type) {
	case localSymbolPayload:
		if !p.sym.IsWritable() {
			return setTarget{}, diag.Errorf(diag.SemaIllegalOperation, "cannot assign to '%s' because it is read-only", p.sym.Name)
		}
		return setTarget{typ: p.sym.Type}, nil
	case propertyPayload:
		prop := p.prop
		setter, quirk := c.Resolver.UdonSetter(prop)
		if setter == nil {
			return setTarget{}, diag.Errorf(diag.SemaMemberAccess, "property or indexer '%s.%s' cannot be assigned to -- it is read only", prop.Declaring.DisplayName(), prop.Name)
		}
		name := c.Resolver.MethodName(setter)
		if quirk {
			c.point("proxy-setter-quirk", prop.Name+" -> "+name)
		}
		if !c.Resolver.IsExposed(setter) {
			return setTarget{}, notExposed(name)
		}
		return setTarget{typ: prop.Type, static: prop.Static, extern: name}, nil
	case fieldPayload:
		f := p.field
		if f.ReadOnly || f.Const {
			return setTarget{}, diag.Errorf(diag.SemaIllegalOperation, "a readonly field '%s' cannot be assigned to", f)
		}
		name := c.Resolver.FieldSetterName(f)
		if !f.Exposed {
			return setTarget{}, notExposed(name)
		}
		return setTarget{typ: f.Type, static: f.Static, extern: name}, nil
	case externUserFieldPayload:
		return setTarget{typ: p.field.Type}, nil
	case arrayIndexerPayload:
		arr := s.accessSymbol.Type
		if arr.IsString() {
			return setTarget{}, diag.Errorf(diag.SemaIllegalOperation, "property or indexer 'string.this[int]' cannot be assigned to -- it is read only")
		}
		return setTarget{typ: arr.Elem}, nil
	case thisPayload:
		return setTarget{}, diag.Errorf(diag.SemaIllegalOperation, "cannot assign to 'this' because it is read-only")
	}
	return setTarget{}, diag.Errorf(diag.SemaIllegalOperation, "Set is only valid on fields, properties, local symbols, and array indexers (got %s)", s.Archetype())
}

func (c *Context) writeElement(arr, index, value *symbols.Symbol) {
	c.Sink.AddPush(arr)
	c.Sink.AddPush(index)
	c.Sink.AddPush(value)
	c.Sink.AddExternCall(c.Resolver.ArraySetName(arr.Type))
}

// getProgramVariable reads variable name of the behaviour in recv into a
// fresh object slot.
func (c *Context) getProgramVariable(recv *symbols.Symbol, name string) *symbols.Symbol {
	out := c.TopTable.CreateUnnamed(c.b.Object)
	c.Sink.AddPush(recv)
	c.Sink.AddPush(c.TopTable.CreateConst(c.b.String, name))
	c.Sink.AddPush(out)
	c.Sink.AddExternCall(resolver.ExternGetProgramVariable)
	return out
}

func (c *Context) setProgramVariable(recv *symbols.Symbol, name string, value *symbols.Symbol) {
	c.Sink.AddPush(recv)
	c.Sink.AddPush(c.TopTable.CreateConst(c.b.String, name))
	c.Sink.AddPush(value)
	c.Sink.AddExternCall(resolver.ExternSetProgramVariable)
}

// retype converts an untyped program variable to typ. A pass-through cast
// still lands in a slot of typ so later member accesses see the right type.
func (c *Context) retype(obj *symbols.Symbol, typ *types.Type) (*symbols.Symbol, error) {
	v, err := c.CastSymbolToType(obj, typ, true)
	if err != nil {
		return nil, err
	}
	if v == obj && typ != obj.Type {
		typed := c.TopTable.CreateUnnamed(typ)
		c.Sink.AddCopy(typed, obj)
		return typed, nil
	}
	return v, nil
}

// enumValue narrows an enum constant to its underlying storage width.
func enumValue(t *types.Type, v int64) (any, error) {
	if t.Underlying == nil || t.Underlying.Prim == types.PrimInt64 {
		return v, nil
	}
	n, err := safecast.Conv[int32](v)
	if err != nil {
		return nil, diag.Errorf(diag.SemaNoCast, "value %d of %s does not fit its underlying type", v, t.DisplayName())
	}
	if t.Underlying.Prim == types.PrimInt32 {
		return n, nil
	}
	return convertInt(n, t.Underlying.Prim)
}

func notExposed(extern string) error {
	return diag.Errorf(diag.SemaNotExposed, "method is not exposed to Udon: '%s'", extern)
}
