package compiler

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"udonsharp/internal/diag"
	"udonsharp/internal/symbols"
	"udonsharp/internal/types"
)

// ResolveAccessToken advances the chain by one token. It reports true when
// the token was classified and false when it was only appended to the
// unresolved chain, which happens while a namespace or type name is still
// being spelled out.
func (s *CaptureScope) ResolveAccessToken(token string) (bool, error) {
	token = norm.NFC.String(token)
	before := s.Archetype()
	var (
		ok  bool
		err error
	)
	switch {
	case before == ArchetypeUnknown && len(s.chain) == 0:
		ok = s.resolveFirst(token)
	case before == ArchetypeUnknown:
		ok = s.resolveQualified(token)
	case before == ArchetypeNamespace:
		ok = s.resolveInNamespace(token)
	case before == ArchetypeThis:
		ok, err = s.resolveOnThis(token)
	case before == ArchetypeType:
		ok, err = s.resolveOnType(token)
	case before.IsValue():
		ok, err = s.accessValueMember(token)
	default:
		err = diag.Errorf(diag.SemaIllegalOperation, "cannot run an accessor on a method: '%s' on %s", token, before)
	}
	if err != nil {
		return false, err
	}
	if ok {
		s.ctx.point("resolve", token+" -> "+s.Archetype().String())
	}
	return ok, nil
}

// resolveFirst handles the first token of a chain.
func (s *CaptureScope) resolveFirst(token string) bool {
	c := s.ctx
	if token == "this" {
		s.set(thisPayload{}, c.ThisSymbol())
		return true
	}
	if sym := c.TopTable.FindUserDefinedSymbol(token); sym != nil {
		s.set(localSymbolPayload{sym: sym}, nil)
		return true
	}
	if def := c.FindMethod(token); def != nil {
		s.set(localMethodPayload{def: def}, nil)
		return true
	}
	if s.resolveBehaviourMember(token) {
		return true
	}
	if m, ok := c.Handler.Resolve(token, c.Behaviour, false); ok {
		s.set(internalMethodPayload{method: m}, c.ThisSymbol())
		return true
	}
	if t, ok := c.LookupType(token); ok {
		s.set(typePayload{typ: t}, nil)
		return true
	}
	if c.Resolver.Catalog().IsNamespace(token) {
		s.set(namespacePayload{name: token}, nil)
		return true
	}
	s.chain = append(s.chain, token)
	return false
}

// resolveBehaviourMember looks token up as an instance method or property of
// the behaviour being compiled, with this as the receiver.
func (s *CaptureScope) resolveBehaviourMember(token string) bool {
	c := s.ctx
	if methods := instanceMethods(c.Behaviour, token); len(methods) > 0 {
		s.set(methodPayload{methods: methods}, c.ThisSymbol())
		return true
	}
	if p := c.Behaviour.Property(token); p != nil && !p.Static {
		s.set(propertyPayload{prop: p}, c.ThisSymbol())
		return true
	}
	return false
}

func (s *CaptureScope) resolveQualified(token string) bool {
	qualified := strings.Join(s.chain, ".") + "." + token
	c := s.ctx
	if t, ok := c.Resolver.ResolveTypeName(qualified); ok {
		s.set(typePayload{typ: t}, nil)
		return true
	}
	if c.Resolver.Catalog().IsNamespace(qualified) {
		s.set(namespacePayload{name: qualified}, nil)
		return true
	}
	s.chain = append(s.chain, token)
	return false
}

func (s *CaptureScope) resolveInNamespace(token string) bool {
	ns := s.Namespace()
	qualified := ns + "." + token
	c := s.ctx
	if c.Resolver.Catalog().IsNamespace(qualified) {
		s.set(namespacePayload{name: qualified}, nil)
		return true
	}
	if t, ok := c.Resolver.Catalog().Lookup(qualified); ok {
		s.set(typePayload{typ: t}, nil)
		return true
	}
	s.payload = nil
	s.chain = append(strings.Split(ns, "."), token)
	return false
}

func (s *CaptureScope) resolveOnThis(token string) (bool, error) {
	c := s.ctx
	if sym := c.TopTable.FindUserDefinedSymbol(token); sym != nil {
		s.set(localSymbolPayload{sym: sym}, nil)
		return true, nil
	}
	if def := c.FindMethod(token); def != nil {
		s.set(localMethodPayload{def: def}, nil)
		return true, nil
	}
	if s.resolveBehaviourMember(token) {
		return true, nil
	}
	if m, ok := c.Handler.Resolve(token, c.Behaviour, false); ok {
		s.set(internalMethodPayload{method: m}, c.ThisSymbol())
		return true, nil
	}
	return false, memberError(c.Behaviour, token)
}

func (s *CaptureScope) resolveOnType(token string) (bool, error) {
	t := s.Type()
	if nested := t.Nested(token); nested != nil {
		s.set(typePayload{typ: nested}, nil)
		return true, nil
	}
	if t.IsEnum() {
		if v, ok := t.EnumValue(token); ok {
			s.set(enumPayload{typ: t, name: token, value: v}, nil)
			return true, nil
		}
	}
	if methods := staticMethods(t, token); len(methods) > 0 {
		s.set(methodPayload{methods: methods}, nil)
		return true, nil
	}
	prop, field := uniqueMember(t, token)
	if prop != nil && prop.Static {
		s.set(propertyPayload{prop: prop}, nil)
		return true, nil
	}
	if field != nil && field.Static {
		s.set(fieldPayload{field: field}, nil)
		return true, nil
	}
	if m, ok := s.ctx.Handler.Resolve(token, t, true); ok {
		s.set(internalMethodPayload{method: m}, nil)
		return true, nil
	}
	return false, memberError(t, token)
}

// accessValueMember applies token as a member of the current value. The
// value is materialized first and becomes the receiver of the member.
func (s *CaptureScope) accessValueMember(token string) (bool, error) {
	if !s.Archetype().hasMembers() {
		return false, diag.Errorf(diag.SemaIllegalOperation, "cannot access member '%s' on %s", token, s.Archetype())
	}
	c := s.ctx
	valueType := s.ValueType()
	var next payload
	if ext := c.ExternClass(valueType); ext != nil {
		if f := ext.Field(token); f != nil {
			next = externUserFieldPayload{field: f}
		} else if m := ext.Method(token); m != nil {
			next = externUserMethodPayload{method: m}
		}
	}
	if next == nil {
		if m, ok := c.Handler.Resolve(token, valueType, false); ok {
			next = internalMethodPayload{method: m}
		}
	}
	if next == nil {
		prop, field := uniqueMember(valueType, token)
		switch {
		case prop != nil && !prop.Static:
			next = propertyPayload{prop: prop}
		case field != nil && !field.Static:
			next = fieldPayload{field: field}
		}
	}
	if next == nil {
		if methods := instanceMethods(valueType, token); len(methods) > 0 {
			next = methodPayload{methods: methods}
		}
	}
	if next == nil {
		return false, memberError(valueType, token)
	}
	recv, err := s.ExecuteGet()
	if err != nil {
		return false, err
	}
	s.set(next, recv)
	return true, nil
}

// HandleArrayIndexerAccess indexes the current value, which must be an
// array or a string. The index is converted to System.Int32.
func (s *CaptureScope) HandleArrayIndexerAccess(index *symbols.Symbol) error {
	c := s.ctx
	valueType := s.ValueType()
	if valueType == nil {
		return diag.Errorf(diag.SemaIllegalOperation, "cannot index %s", s.Archetype())
	}
	if !valueType.IsArray() && !valueType.IsString() {
		return diag.Errorf(diag.SemaIllegalOperation, "cannot apply indexing with [] to an expression of type '%s'", valueType.DisplayName())
	}
	arr, err := s.ExecuteGet()
	if err != nil {
		return err
	}
	idx := index
	if index.Type != c.b.Int32 {
		idx, err = c.CastSymbolToType(index, c.b.Int32, index.Type.IsValueType())
		if err != nil {
			return err
		}
	}
	s.set(arrayIndexerPayload{index: idx}, arr)
	return nil
}

// HandleGenericAccess records type arguments for the pending call.
func (s *CaptureScope) HandleGenericAccess(args []*types.Type) error {
	switch s.Archetype() {
	case ArchetypeMethod, ArchetypeInternalCompilerMethod:
		s.genericArgs = args
		return nil
	}
	return diag.Errorf(diag.SemaIllegalOperation, "type arguments are not valid on %s", s.Archetype())
}

// LookupType resolves an unqualified type name: keyword aliases and full
// names first, then each using namespace in order.
func (c *Context) LookupType(name string) (*types.Type, bool) {
	if t, ok := c.Resolver.ResolveTypeName(name); ok {
		return t, true
	}
	for _, ns := range c.Usings {
		if t, ok := c.Resolver.Catalog().Lookup(ns + "." + name); ok {
			return t, true
		}
	}
	return nil, false
}

func instanceMethods(t *types.Type, name string) []*types.Method {
	return filterMethods(t.Methods(name), false)
}

func staticMethods(t *types.Type, name string) []*types.Method {
	return filterMethods(t.Methods(name), true)
}

func filterMethods(methods []*types.Method, static bool) []*types.Method {
	var out []*types.Method
	for _, m := range methods {
		if m.Static == static && !m.IsCtor() {
			out = append(out, m)
		}
	}
	return out
}

// uniqueMember finds the property or field called name. A type declaring
// both is malformed.
func uniqueMember(t *types.Type, name string) (*types.Property, *types.Field) {
	prop, field := t.Property(name), t.Field(name)
	if prop != nil && field != nil && prop.Declaring == field.Declaring {
		panic("compiler: " + t.FullName() + " declares both a property and a field named " + name)
	}
	return prop, field
}

func memberError(t *types.Type, member string) error {
	return diag.Errorf(diag.SemaMemberAccess, "'%s' does not contain a definition for '%s'", t.DisplayName(), member)
}
