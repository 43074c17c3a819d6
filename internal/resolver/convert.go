package resolver

import (
	"udonsharp/internal/types"
)

// NumericConversion finds the exposed System.Convert routine turning src
// into dst, or nil. Enums convert through their underlying type.
func (r *Context) NumericConversion(src, dst *types.Type) *types.Method {
	if src.IsEnum() {
		src = src.Underlying
	}
	if src == nil || dst == nil || src.Kind != types.KindPrimitive || dst.Kind != types.KindPrimitive {
		return nil
	}
	for _, m := range r.b.Convert.Methods("To" + dst.Name) {
		if m.Static && len(m.Params) == 1 && m.Params[0].Type == src && m.Return == dst && r.IsExposed(m) {
			return m
		}
	}
	return nil
}

// FindUserConversion finds an exposed user-defined conversion operator from
// src to dst. op_Implicit is searched up src's base chain, then on dst's;
// explicit also accepts op_Explicit. The operator must return dst exactly
// and take either the type it is declared on (src for operators on dst) or
// UnityEngine.Object.
func (r *Context) FindUserConversion(src, dst *types.Type, explicit bool) *types.Method {
	if m := r.findOperator("op_Implicit", src, dst); m != nil {
		return m
	}
	if explicit {
		return r.findOperator("op_Explicit", src, dst)
	}
	return nil
}

func (r *Context) findOperator(name string, src, dst *types.Type) *types.Method {
	if src == nil || dst == nil || src.Kind == types.KindGenericParam {
		return nil
	}
	for cur := src; cur != nil; cur = cur.Base {
		if m := r.declaredOperator(cur, name, cur, dst); m != nil {
			return m
		}
	}
	for cur := dst; cur != nil; cur = cur.Base {
		if m := r.declaredOperator(cur, name, src, dst); m != nil {
			return m
		}
	}
	return nil
}

func (r *Context) declaredOperator(owner *types.Type, name string, param, dst *types.Type) *types.Method {
	for _, m := range owner.DeclaredMethods() {
		if m.Name != name || !m.Static || len(m.Params) != 1 || m.Return != dst {
			continue
		}
		p := m.Params[0].Type
		if (p == param || p == r.b.UnityObject) && r.IsExposed(m) {
			return m
		}
	}
	return nil
}
