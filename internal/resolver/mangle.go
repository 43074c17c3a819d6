package resolver

import (
	"strings"

	"udonsharp/internal/types"
)

var typeNameSanitizer = strings.NewReplacer(".", "", "+", "")

// SanitizeTypeName renders t the way extern signatures spell types: dots
// removed, arrays suffixed Array, by-ref suffixed Ref, generic parameters
// spelled T.
func SanitizeTypeName(t *types.Type) string {
	if t == nil {
		return "SystemVoid"
	}
	switch t.Kind {
	case types.KindArray:
		return SanitizeTypeName(t.Elem) + "Array"
	case types.KindByRef:
		return SanitizeTypeName(t.Elem) + "Ref"
	case types.KindGenericParam:
		return "T"
	}
	return typeNameSanitizer.Replace(t.FullName())
}

// Signature assembles <Type>.__<name>__<params>__<Return>; the params
// section is omitted when there are none.
func Signature(declaring, name string, params []string, ret string) string {
	var sb strings.Builder
	sb.WriteString(declaring)
	sb.WriteString(".__")
	sb.WriteString(name)
	if len(params) > 0 {
		sb.WriteString("__")
		sb.WriteString(strings.Join(params, "_"))
	}
	sb.WriteString("__")
	sb.WriteString(ret)
	return sb.String()
}

// declaringName is the VM type a method is invoked on. Members declared on
// the behaviour proxy resolve against the event receiver interface.
func (r *Context) declaringName(m *types.Method) string {
	if r.IsProxy(m.Declaring) {
		return SanitizeTypeName(r.b.EventReceiver)
	}
	return r.UdonTypeName(m.Declaring)
}

// MethodName is the extern signature of m.
func (r *Context) MethodName(m *types.Method) string {
	name := m.Name
	if m.IsCtor() {
		name = "ctor"
	}
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = r.UdonTypeName(p.Type)
	}
	ret := r.b.Void
	if !m.IsVoid() {
		ret = m.Return
	}
	return Signature(r.declaringName(m), name, params, r.UdonTypeName(ret))
}

// FieldGetterName is the accessor signature reading f.
func (r *Context) FieldGetterName(f *types.Field) string {
	return r.UdonTypeName(f.Declaring) + ".__get_" + f.Name + "__" + r.UdonTypeName(f.Type)
}

// FieldSetterName is the accessor signature writing f.
func (r *Context) FieldSetterName(f *types.Field) string {
	return r.UdonTypeName(f.Declaring) + ".__set_" + f.Name + "__" + r.UdonTypeName(f.Type)
}

// ArrayGetName reads one element of arr.
func (r *Context) ArrayGetName(arr *types.Type) string {
	vm := r.UdonType(arr)
	return Signature(SanitizeTypeName(vm), "Get", []string{"SystemInt32"}, SanitizeTypeName(vm.Elem))
}

// ArraySetName writes one element of arr.
func (r *Context) ArraySetName(arr *types.Type) string {
	vm := r.UdonType(arr)
	return Signature(SanitizeTypeName(vm), "Set", []string{"SystemInt32", SanitizeTypeName(vm.Elem)}, "SystemVoid")
}

// ArrayCtorName allocates an arr of a given length.
func (r *Context) ArrayCtorName(arr *types.Type) string {
	name := SanitizeTypeName(r.UdonType(arr))
	return Signature(name, "ctor", []string{"SystemInt32"}, name)
}

// ArrayLengthName reads the length of arr.
func (r *Context) ArrayLengthName(arr *types.Type) string {
	return Signature(SanitizeTypeName(r.UdonType(arr)), "get_Length", nil, "SystemInt32")
}
