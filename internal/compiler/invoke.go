package compiler

import (
	"strings"

	"udonsharp/internal/diag"
	"udonsharp/internal/resolver"
	"udonsharp/internal/symbols"
	"udonsharp/internal/types"
)

// Invoke calls the method the scope refers to with args. It returns nil for
// void calls.
func (s *CaptureScope) Invoke(args []*symbols.Symbol) (*symbols.Symbol, error) {
	switch p := s.payload.(type) {
	case methodPayload:
		return s.invokeExtern(p.methods, args)
	case localMethodPayload:
		return s.ctx.invokeLocal(p.def, args)
	case externUserMethodPayload:
		return s.ctx.invokeExternUser(s.accessSymbol, p.method, args)
	case internalMethodPayload:
		return s.ctx.Handler.Invoke(s.ctx, &IntrinsicCall{
			Method:      p.method,
			Receiver:    s.accessSymbol,
			Args:        args,
			GenericArgs: s.genericArgs,
		})
	}
	return nil, diag.Errorf(diag.SemaIllegalOperation, "cannot invoke %s", s.Archetype())
}

func symbolTypes(args []*symbols.Symbol) []*types.Type {
	out := make([]*types.Type, len(args))
	for i, a := range args {
		out[i] = a.Type
	}
	return out
}

func typeList(ts []*types.Type) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.DisplayName()
	}
	return strings.Join(names, ", ")
}

// isGetComponent reports the GetComponent family; plural reports the forms
// returning arrays.
func isGetComponent(name string) (ok, plural bool) {
	switch name {
	case "GetComponent", "GetComponentInChildren", "GetComponentInParent":
		return true, false
	case "GetComponents", "GetComponentsInChildren", "GetComponentsInParent":
		return true, true
	}
	return false, false
}

func (s *CaptureScope) invokeExtern(methods []*types.Method, args []*symbols.Symbol) (*symbols.Symbol, error) {
	c := s.ctx
	r := c.Resolver
	if len(methods) == 0 {
		return nil, diag.Errorf(diag.SemaNoOverload, "no candidate methods to invoke")
	}
	generic := s.genericArgs
	name := methods[0].Name
	candidates := make([]*types.Method, 0, len(methods))
	for _, m := range methods {
		if m.IsGeneric() == (len(generic) > 0) && (len(generic) == 0 || m.GenericArity == len(generic)) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return nil, diag.Errorf(diag.SemaNoOverload, "no overload of '%s' takes %d type arguments", name, len(generic))
	}

	recv := s.accessSymbol
	getComponent, _ := isGetComponent(name)
	if getComponent && recv != nil && c.Resolver.UdonType(recv.Type) == c.b.GameObject {
		recv = c.transformOf(recv)
		candidates = filterGeneric(instanceMethods(c.b.Component, name), len(generic) > 0)
	}
	if getComponent && len(generic) == 1 && generic[0].UserBehaviour {
		return c.expandGetComponent(name, recv, generic[0])
	}

	argTypes := symbolTypes(args)
	match, ok := r.FindBestOverload(candidates, argTypes, true)
	if !ok {
		return nil, c.overloadError(candidates, argTypes)
	}
	m := match.Method
	c.point("overload", r.MethodName(m))

	callArgs, err := c.bindArguments(match, args)
	if err != nil {
		return nil, err
	}
	if !m.Static {
		c.Sink.AddPush(recv)
	}
	for _, a := range callArgs {
		c.Sink.AddPush(a)
	}
	if len(generic) > 0 {
		c.Sink.AddPush(c.TopTable.CreateConst(c.b.Type, c.Resolver.UdonType(generic[0])))
	}
	var out *symbols.Symbol
	if !m.IsVoid() && !m.IsCtor() {
		out = c.TopTable.CreateUnnamed(c.substitute(m.Return, generic))
		c.Sink.AddPush(out)
	}
	c.Sink.AddExternCall(r.MethodName(m))
	return out, nil
}

// InvokeConstructor calls a constructor of t. Overloads are ranked the way
// method calls are.
func (c *Context) InvokeConstructor(t *types.Type, args []*symbols.Symbol) (*symbols.Symbol, error) {
	var ctors []*types.Method
	for _, m := range t.DeclaredMethods() {
		if m.IsCtor() {
			ctors = append(ctors, m)
		}
	}
	if len(ctors) == 0 {
		return nil, diag.Errorf(diag.SemaNoOverload, "'%s' does not have a constructor", t.DisplayName())
	}
	argTypes := symbolTypes(args)
	match, ok := c.Resolver.FindBestOverload(ctors, argTypes, true)
	if !ok {
		return nil, c.overloadError(ctors, argTypes)
	}
	callArgs, err := c.bindArguments(match, args)
	if err != nil {
		return nil, err
	}
	for _, a := range callArgs {
		c.Sink.AddPush(a)
	}
	out := c.TopTable.CreateUnnamed(t)
	c.Sink.AddPush(out)
	c.Sink.AddExternCall(c.Resolver.MethodName(match.Method))
	return out, nil
}

// NewArray allocates an array of elem with length elements.
func (c *Context) NewArray(elem *types.Type, length *symbols.Symbol) (*symbols.Symbol, error) {
	n, err := c.CastSymbolToType(length, c.b.Int32, false)
	if err != nil {
		return nil, err
	}
	return c.newArray(c.Resolver.Catalog().ArrayOf(elem), n), nil
}

func filterGeneric(methods []*types.Method, generic bool) []*types.Method {
	var out []*types.Method
	for _, m := range methods {
		if m.IsGeneric() == generic {
			out = append(out, m)
		}
	}
	return out
}

// overloadError explains why no candidate was callable: the right method
// exists but is hidden from the VM, some candidates have no VM counterpart at
// all, or the arguments simply do not fit.
func (c *Context) overloadError(candidates []*types.Method, argTypes []*types.Type) error {
	r := c.Resolver
	if match, ok := r.FindBestOverload(candidates, argTypes, false); ok {
		return notExposed(r.MethodName(match.Method))
	}
	var unknown []string
	for _, m := range candidates {
		if !r.IsExposed(m) {
			unknown = append(unknown, r.MethodName(m))
		}
	}
	if len(unknown) > 0 {
		err := diag.Errorf(diag.SemaNotSupportedByUdon, "'%s' is not supported by Udon", candidates[0].Name)
		for _, name := range unknown {
			err.WithNote("unsupported: %s", name)
		}
		return err
	}
	return diag.Errorf(diag.SemaNoOverload, "no overload for method '%s' takes arguments (%s)", candidates[0].Name, typeList(argTypes))
}

// bindArguments converts args to the parameter types of match, filling
// defaults and packing a params array when the call uses the expanded form.
func (c *Context) bindArguments(match resolver.Match, args []*symbols.Symbol) ([]*symbols.Symbol, error) {
	m := match.Method
	out := make([]*symbols.Symbol, 0, len(m.Params))
	for i, p := range m.Params {
		switch {
		case p.Variadic && match.Expanded:
			packed, err := c.packParams(p.Type, args[i:])
			if err != nil {
				return nil, err
			}
			out = append(out, packed)
		case i < len(args):
			v, err := c.castArgument(args[i], p)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		default:
			out = append(out, c.TopTable.CreateConst(p.Type, p.Default))
		}
	}
	return out, nil
}

func (c *Context) castArgument(arg *symbols.Symbol, p types.Param) (*symbols.Symbol, error) {
	if p.Out || p.Type.ContainsGenericParam() {
		return arg, nil
	}
	return c.CastSymbolToType(arg, p.Type, false)
}

// packParams allocates an array of arrType and stores each trailing argument
// in it.
func (c *Context) packParams(arrType *types.Type, args []*symbols.Symbol) (*symbols.Symbol, error) {
	arr := c.newArray(arrType, c.TopTable.CreateConst(c.b.Int32, int32(len(args))))
	for i, a := range args {
		v, err := c.CastSymbolToType(a, arrType.Elem, false)
		if err != nil {
			return nil, err
		}
		c.writeElement(arr, c.TopTable.CreateConst(c.b.Int32, int32(i)), v)
	}
	return arr, nil
}

// newArray allocates an array of arrType with length elements.
func (c *Context) newArray(arrType *types.Type, length *symbols.Symbol) *symbols.Symbol {
	arr := c.TopTable.CreateUnnamed(arrType)
	c.Sink.AddPush(length)
	c.Sink.AddPush(arr)
	c.Sink.AddExternCall(c.Resolver.ArrayCtorName(arrType))
	return arr
}

// substitute replaces generic parameters in t with the call's type argument.
func (c *Context) substitute(t *types.Type, generic []*types.Type) *types.Type {
	if len(generic) == 0 || !t.ContainsGenericParam() {
		return t
	}
	switch t.Kind {
	case types.KindArray:
		return c.Resolver.Catalog().ArrayOf(c.substitute(t.Elem, generic))
	case types.KindByRef:
		return c.Resolver.Catalog().ByRefOf(c.substitute(t.Elem, generic))
	}
	return generic[0]
}

// transformOf reads the transform of a GameObject; component lookups on a
// GameObject go through its transform.
func (c *Context) transformOf(gameObject *symbols.Symbol) *symbols.Symbol {
	out := c.TopTable.CreateUnnamed(c.b.Transform)
	c.Sink.AddPush(gameObject)
	c.Sink.AddPush(out)
	c.Sink.AddExternCall(resolver.ExternGameObjectGetTransform)
	return out
}

// invokeLocal calls a method of this behaviour. The caller's return address
// stays on the stack across the call and is restored afterwards.
func (c *Context) invokeLocal(def *MethodDefinition, args []*symbols.Symbol) (*symbols.Symbol, error) {
	if len(args) != len(def.Params) {
		return nil, diag.Errorf(diag.SemaArgumentCount, "method '%s' takes %d arguments, got %d", def.Name, len(def.Params), len(args))
	}
	for i, param := range def.Params {
		v, err := c.CastSymbolToType(args[i], param.Type, false)
		if err != nil {
			return nil, err
		}
		c.Sink.AddCopy(param, v)
	}
	ret := c.Labels.New("__ret_" + def.Name)
	c.Sink.AddPush(c.TopTable.CreateConst(c.b.UInt32, ret))
	c.Sink.AddJump(def.CallEntry)
	c.Sink.AddJumpLabel(ret)
	return c.copyOut(def.Return)
}

func (c *Context) copyOut(ret *symbols.Symbol) (*symbols.Symbol, error) {
	if ret == nil {
		return nil, nil
	}
	out := c.TopTable.CreateUnnamed(ret.Type)
	c.Sink.AddCopy(out, ret)
	return out, nil
}

// invokeExternUser calls a method of another behaviour: parameters are set
// as program variables, the method runs as a custom event and the result is
// read back from its return slot.
func (c *Context) invokeExternUser(recv *symbols.Symbol, m *ExternMethod, args []*symbols.Symbol) (*symbols.Symbol, error) {
	if recv == nil || !recv.Type.UserBehaviour {
		return nil, diag.Errorf(diag.SemaIllegalOperation, "'%s' can only be called on an instance of %s", m.Name, m.Owner.Type.DisplayName())
	}
	if len(args) != len(m.Params) {
		return nil, diag.Errorf(diag.SemaArgumentCount, "method '%s' takes %d arguments, got %d", m.Name, len(m.Params), len(args))
	}
	for i, p := range m.Params {
		v, err := c.CastSymbolToType(args[i], p.Type, false)
		if err != nil {
			return nil, err
		}
		c.setProgramVariable(recv, symbols.ParameterName(m.Name, p.Name), v)
	}
	c.Sink.AddPush(recv)
	c.Sink.AddPush(c.TopTable.CreateConst(c.b.String, m.Name))
	c.Sink.AddExternCall(resolver.ExternSendCustomEvent)
	if m.IsVoid() {
		return nil, nil
	}
	obj := c.getProgramVariable(recv, symbols.ReturnName(m.Name))
	return c.retype(obj, m.Return)
}
