package types

// Builtins holds the well-known types the compiler refers to directly.
type Builtins struct {
	Void    *Type
	Object  *Type
	Bool    *Type
	Char    *Type
	SByte   *Type
	Byte    *Type
	Int16   *Type
	UInt16  *Type
	Int32   *Type
	UInt32  *Type
	Int64   *Type
	UInt64  *Type
	Single  *Type
	Double  *Type
	Decimal *Type
	String  *Type
	Type    *Type
	Array   *Type
	Convert *Type

	UnityObject   *Type
	Component     *Type
	Behaviour     *Type
	MonoBehaviour *Type
	Transform     *Type
	GameObject    *Type

	EventReceiver      *Type
	UdonBehaviour      *Type
	UdonSharpBehaviour *Type
}

// Primitives lists the primitive types in Primitive order.
func (b *Builtins) Primitives() []*Type {
	return []*Type{b.Bool, b.Char, b.SByte, b.Byte, b.Int16, b.UInt16, b.Int32, b.UInt32, b.Int64, b.UInt64, b.Single, b.Double, b.Decimal}
}

// Alias maps language keywords to their System types.
func (b *Builtins) Alias(name string) (*Type, bool) {
	var t *Type
	switch name {
	case "void":
		t = b.Void
	case "object":
		t = b.Object
	case "bool":
		t = b.Bool
	case "char":
		t = b.Char
	case "sbyte":
		t = b.SByte
	case "byte":
		t = b.Byte
	case "short":
		t = b.Int16
	case "ushort":
		t = b.UInt16
	case "int":
		t = b.Int32
	case "uint":
		t = b.UInt32
	case "long":
		t = b.Int64
	case "ulong":
		t = b.UInt64
	case "float":
		t = b.Single
	case "double":
		t = b.Double
	case "decimal":
		t = b.Decimal
	case "string":
		t = b.String
	}
	return t, t != nil
}

// builder is the small construction DSL used by the built-in catalog.
type builder struct {
	c *Catalog
	b *Builtins
}

func (bd builder) class(ns, name string, base *Type, ifaces ...*Type) *Type {
	if base == nil && bd.b.Object != nil {
		base = bd.b.Object
	}
	return bd.c.MustDefine(&Type{Kind: KindClass, Namespace: ns, Name: name, Base: base, Interfaces: ifaces})
}

func (bd builder) structType(ns, name string) *Type {
	return bd.c.MustDefine(&Type{Kind: KindStruct, Namespace: ns, Name: name})
}

func (bd builder) iface(ns, name string) *Type {
	return bd.c.MustDefine(&Type{Kind: KindInterface, Namespace: ns, Name: name})
}

func (bd builder) enum(ns, name string, values ...EnumValue) *Type {
	t := bd.c.MustDefine(&Type{Kind: KindEnum, Namespace: ns, Name: name, Underlying: bd.b.Int32})
	for _, v := range values {
		t.AddEnumValue(v.Name, v.Value)
	}
	return t
}

func arg(name string, t *Type) Param { return Param{Name: name, Type: t} }

func optional(name string, t *Type, def any) Param {
	return Param{Name: name, Type: t, HasDefault: true, Default: def}
}

func variadic(name string, arr *Type) Param { return Param{Name: name, Type: arr, Variadic: true} }

func instance(t *Type, name string, ret *Type, params ...Param) *Method {
	return t.AddMethod(&Method{Name: name, Return: ret, Params: params, Exposed: true})
}

func static(t *Type, name string, ret *Type, params ...Param) *Method {
	return t.AddMethod(&Method{Name: name, Return: ret, Params: params, Static: true, Exposed: true})
}

func ctor(t *Type, params ...Param) *Method {
	return t.AddMethod(&Method{Name: CtorName, Params: params, Exposed: true})
}

func (bd builder) getter(t *Type, name string, typ *Type) *Property {
	return t.AddProperty(&Property{
		Name:   name,
		Type:   typ,
		Getter: &Method{Name: "get_" + name, Return: typ, Exposed: true},
	})
}

func (bd builder) accessor(t *Type, name string, typ *Type) *Property {
	return t.AddProperty(&Property{
		Name:   name,
		Type:   typ,
		Getter: &Method{Name: "get_" + name, Return: typ, Exposed: true},
		Setter: &Method{Name: "set_" + name, Return: bd.b.Void, Params: []Param{arg("value", typ)}, Exposed: true},
	})
}

func (bd builder) staticGetter(t *Type, name string, typ *Type) *Property {
	return t.AddProperty(&Property{
		Name:   name,
		Type:   typ,
		Static: true,
		Getter: &Method{Name: "get_" + name, Return: typ, Exposed: true},
	})
}

func field(t *Type, name string, typ *Type) *Field {
	return t.AddField(&Field{Name: name, Type: typ, Exposed: true})
}

func constField(t *Type, name string, typ *Type, value any) *Field {
	return t.AddField(&Field{Name: name, Type: typ, Static: true, Const: true, ReadOnly: true, Value: value, Exposed: true})
}

func hidden(m *Method) *Method {
	m.Exposed = false
	return m
}

// seedCore defines the System types every catalog needs.
func seedCore(c *Catalog) *Builtins {
	b := &Builtins{}
	c.builtins = b
	bd := builder{c: c, b: b}

	b.Object = c.MustDefine(&Type{Kind: KindObject, Namespace: "System", Name: "Object"})
	b.Void = c.MustDefine(&Type{Kind: KindVoid, Namespace: "System", Name: "Void"})
	prim := func(name string, p Primitive) *Type {
		return c.MustDefine(&Type{Kind: KindPrimitive, Namespace: "System", Name: name, Prim: p})
	}
	b.Bool = prim("Boolean", PrimBool)
	b.Char = prim("Char", PrimChar)
	b.SByte = prim("SByte", PrimSByte)
	b.Byte = prim("Byte", PrimByte)
	b.Int16 = prim("Int16", PrimInt16)
	b.UInt16 = prim("UInt16", PrimUInt16)
	b.Int32 = prim("Int32", PrimInt32)
	b.UInt32 = prim("UInt32", PrimUInt32)
	b.Int64 = prim("Int64", PrimInt64)
	b.UInt64 = prim("UInt64", PrimUInt64)
	b.Single = prim("Single", PrimSingle)
	b.Double = prim("Double", PrimDouble)
	b.Decimal = prim("Decimal", PrimDecimal)
	b.String = c.MustDefine(&Type{Kind: KindString, Namespace: "System", Name: "String", Base: b.Object})
	b.Type = bd.class("System", "Type", nil)
	b.Array = bd.class("System", "Array", nil)
	b.Convert = bd.class("System", "Convert", nil)

	instance(b.Object, "Equals", b.Bool, arg("obj", b.Object))
	static(b.Object, "Equals", b.Bool, arg("objA", b.Object), arg("objB", b.Object))
	static(b.Object, "ReferenceEquals", b.Bool, arg("objA", b.Object), arg("objB", b.Object))
	instance(b.Object, "ToString", b.String)
	instance(b.Object, "GetType", b.Type)
	instance(b.Object, "GetHashCode", b.Int32)

	bd.seedPrimitiveOperators()
	bd.seedConvert()

	bd.getter(b.String, "Length", b.Int32)
	instance(b.String, "get_Chars", b.Char, arg("index", b.Int32))
	static(b.String, "Concat", b.String, arg("str0", b.String), arg("str1", b.String))
	static(b.String, "Concat", b.String, arg("arg0", b.Object), arg("arg1", b.Object))
	static(b.String, "Format", b.String, arg("format", b.String), variadic("args", c.ArrayOf(b.Object)))
	static(b.String, "IsNullOrEmpty", b.Bool, arg("value", b.String))
	static(b.String, "op_Equality", b.Bool, arg("a", b.String), arg("b", b.String))
	static(b.String, "op_Inequality", b.Bool, arg("a", b.String), arg("b", b.String))
	instance(b.String, "Contains", b.Bool, arg("value", b.String))
	instance(b.String, "Substring", b.String, arg("startIndex", b.Int32))
	instance(b.String, "Substring", b.String, arg("startIndex", b.Int32), arg("length", b.Int32))
	instance(b.String, "ToUpper", b.String)
	instance(b.String, "ToLower", b.String)
	instance(b.String, "Trim", b.String)

	bd.getter(b.Type, "Name", b.String)
	bd.getter(b.Type, "FullName", b.String)
	bd.getter(b.Array, "Length", b.Int32)
	return b
}

func (bd builder) seedPrimitiveOperators() {
	b := bd.b
	arith := []string{"op_Addition", "op_Subtraction", "op_Multiply", "op_Division", "op_Remainder"}
	compare := []string{"op_LessThan", "op_GreaterThan", "op_LessThanOrEqual", "op_GreaterThanOrEqual"}
	for _, t := range b.Primitives() {
		static(t, "op_Equality", b.Bool, arg("left", t), arg("right", t))
		static(t, "op_Inequality", b.Bool, arg("left", t), arg("right", t))
		instance(t, "ToString", b.String)
		if t.Prim == PrimBool || t.Prim == PrimChar {
			continue
		}
		for _, op := range compare {
			static(t, op, b.Bool, arg("left", t), arg("right", t))
		}
		switch t.Prim {
		case PrimInt32, PrimUInt32, PrimInt64, PrimUInt64, PrimSingle, PrimDouble, PrimDecimal:
			for _, op := range arith {
				static(t, op, t, arg("left", t), arg("right", t))
			}
			static(t, "op_UnaryMinus", t, arg("value", t))
		}
	}
	static(b.Bool, "op_LogicalAnd", b.Bool, arg("left", b.Bool), arg("right", b.Bool))
	static(b.Bool, "op_LogicalOr", b.Bool, arg("left", b.Bool), arg("right", b.Bool))
	static(b.Bool, "op_UnaryNegation", b.Bool, arg("value", b.Bool))

	constField(b.Int32, "MaxValue", b.Int32, int32(1<<31-1))
	constField(b.Int32, "MinValue", b.Int32, int32(-1<<31))
	constField(b.Single, "Epsilon", b.Single, float32(1.401298e-45))
}

// seedConvert declares System.Convert.To<T> for every primitive pair; the
// numeric conversion lookup relies on these.
func (bd builder) seedConvert() {
	b := bd.b
	sources := append(b.Primitives(), b.Object, b.String)
	for _, dst := range b.Primitives() {
		for _, src := range sources {
			static(b.Convert, "To"+dst.Name, dst, arg("value", src))
		}
	}
}
