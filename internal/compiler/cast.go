package compiler

import (
	"fortio.org/safecast"

	"udonsharp/internal/diag"
	"udonsharp/internal/symbols"
	"udonsharp/internal/types"
)

// CastSymbolToType converts src to target, emitting a conversion only when
// the VM needs one. The result is src itself for identity, reference and
// boxing conversions.
func (c *Context) CastSymbolToType(src *symbols.Symbol, target *types.Type, explicit bool) (*symbols.Symbol, error) {
	if target.IsByRef() {
		target = target.Elem
	}
	from := src.Type
	switch {
	case from.IsBehaviourLike() && (target.IsAssignableFrom(from) || target.IsAssignableFrom(c.Resolver.UdonType(from))):
		return src, nil
	case from.IsObject() && !target.IsValueType():
		// checked by the VM when the value is used
		return src, nil
	case from == target:
		return src, nil
	case target.IsAssignableFrom(from) && !(from.IsNumeric() && target.IsNumeric()):
		return src, nil
	}

	relaxed, relaxable := c.relaxConstant(src, target)
	applicable := explicit || relaxable || target.IsAssignableFrom(from) || types.IsNumericWidening(from, target)
	if !applicable {
		return nil, diag.Errorf(diag.SemaNoImplicitCast, "Cannot implicitly convert type '%s' to '%s'", from.DisplayName(), target.DisplayName())
	}
	if relaxable {
		return relaxed, nil
	}
	if m := c.Resolver.NumericConversion(from, target); m != nil {
		return c.emitConversion(src, target, m), nil
	}
	if m := c.Resolver.FindUserConversion(from, target, false); m != nil {
		return c.emitConversion(src, target, m), nil
	}
	if explicit {
		if m := c.Resolver.FindUserConversion(from, target, true); m != nil {
			return c.emitConversion(src, target, m), nil
		}
		if from.IsObject() {
			// unboxing; the VM checks the boxed value's type on copy
			out := c.TopTable.CreateUnnamed(target)
			c.Sink.AddCopy(out, src)
			return out, nil
		}
		if c.opts.ExplicitCastFallback {
			c.point("cast-fallback", from.FullName()+" -> "+target.FullName())
			out := c.TopTable.CreateUnnamed(target)
			c.Sink.AddCopy(out, src)
			return out, nil
		}
	}
	return nil, diag.Errorf(diag.SemaNoCast, "cannot find cast from '%s' to '%s'", from.DisplayName(), target.DisplayName())
}

func (c *Context) emitConversion(src *symbols.Symbol, target *types.Type, m *types.Method) *symbols.Symbol {
	out := c.TopTable.CreateUnnamed(target)
	c.Sink.AddPush(src)
	c.Sink.AddPush(out)
	c.Sink.AddExternCall(c.Resolver.MethodName(m))
	return out
}

// relaxConstant retypes an int constant into another integral or enum type
// when the value fits, the way integer literals adapt to their context.
func (c *Context) relaxConstant(src *symbols.Symbol, target *types.Type) (*symbols.Symbol, bool) {
	if !src.IsConstant() || src.Type != c.b.Int32 {
		return nil, false
	}
	v, ok := src.Value.(int32)
	if !ok {
		return nil, false
	}
	kind := target
	if target.IsEnum() {
		kind = target.Underlying
	}
	if !kind.IsInteger() {
		return nil, false
	}
	value, err := convertInt(v, kind.Prim)
	if err != nil {
		return nil, false
	}
	return c.TopTable.CreateConst(target, value), true
}

func convertInt(v int32, prim types.Primitive) (any, error) {
	switch prim {
	case types.PrimSByte:
		return safecast.Conv[int8](v)
	case types.PrimByte:
		return safecast.Conv[uint8](v)
	case types.PrimInt16:
		return safecast.Conv[int16](v)
	case types.PrimUInt16:
		return safecast.Conv[uint16](v)
	case types.PrimInt32:
		return v, nil
	case types.PrimUInt32:
		return safecast.Conv[uint32](v)
	case types.PrimInt64:
		return int64(v), nil
	case types.PrimUInt64:
		return safecast.Conv[uint64](v)
	}
	return nil, diag.Errorf(diag.SemaNoCast, "not an integral type")
}
