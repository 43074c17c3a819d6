package types

// IsAssignableFrom reports whether a value of src can be stored in t without
// a conversion routine: identity, reference widening, interface
// implementation, boxing into System.Object and array covariance.
func (t *Type) IsAssignableFrom(src *Type) bool {
	if t == nil || src == nil {
		return false
	}
	if t == src {
		return true
	}
	if t.Kind == KindObject {
		return src.Kind != KindVoid && src.Kind != KindByRef
	}
	if t.Kind == KindByRef || src.Kind == KindByRef {
		return false
	}
	if t.Kind == KindInterface {
		return src.Implements(t)
	}
	if src.IsValueType() || t.IsValueType() {
		return false
	}
	if t.Kind == KindArray && src.Kind == KindArray {
		return !src.Elem.IsValueType() && t.Elem.IsAssignableFrom(src.Elem)
	}
	for cur := src.Base; cur != nil; cur = cur.Base {
		if cur == t {
			return true
		}
	}
	return false
}

// Implements reports whether iface is among the interfaces of t or any of its
// bases.
func (t *Type) Implements(iface *Type) bool {
	if t == iface {
		return true
	}
	found := false
	t.walkInterfaces(func(it *Type) bool {
		if it == iface {
			found = true
			return false
		}
		return true
	})
	return found
}

var numericWidening = map[Primitive][]Primitive{
	PrimSByte:  {PrimInt16, PrimInt32, PrimInt64, PrimSingle, PrimDouble, PrimDecimal},
	PrimByte:   {PrimInt16, PrimUInt16, PrimInt32, PrimUInt32, PrimInt64, PrimUInt64, PrimSingle, PrimDouble, PrimDecimal},
	PrimInt16:  {PrimInt32, PrimInt64, PrimSingle, PrimDouble, PrimDecimal},
	PrimUInt16: {PrimInt32, PrimUInt32, PrimInt64, PrimUInt64, PrimSingle, PrimDouble, PrimDecimal},
	PrimInt32:  {PrimInt64, PrimSingle, PrimDouble, PrimDecimal},
	PrimUInt32: {PrimInt64, PrimUInt64, PrimSingle, PrimDouble, PrimDecimal},
	PrimInt64:  {PrimSingle, PrimDouble, PrimDecimal},
	PrimUInt64: {PrimSingle, PrimDouble, PrimDecimal},
	PrimChar:   {PrimUInt16, PrimInt32, PrimUInt32, PrimInt64, PrimUInt64, PrimSingle, PrimDouble, PrimDecimal},
	PrimSingle: {PrimDouble},
}

// IsNumericWidening reports whether src converts implicitly to dst under the
// language's numeric promotion rules. Identity is not a widening.
func IsNumericWidening(src, dst *Type) bool {
	if src == nil || dst == nil || src.Kind != KindPrimitive || dst.Kind != KindPrimitive {
		return false
	}
	for _, p := range numericWidening[src.Prim] {
		if p == dst.Prim {
			return true
		}
	}
	return false
}
