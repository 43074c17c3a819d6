package compiler

import (
	"strings"

	"udonsharp/internal/symbols"
	"udonsharp/internal/types"
)

// arrayBacktrace remembers the last element read through an indexer so that
// a member write on a value-type element can be stored back.
type arrayBacktrace struct {
	array   *symbols.Symbol
	index   *symbols.Symbol
	element *symbols.Symbol
}

// CaptureScope resolves one access chain. It is single use: open it, feed
// tokens, finish with ExecuteGet, ExecuteSet or Invoke, then close it.
type CaptureScope struct {
	ctx    *Context
	parent *CaptureScope
	closed bool

	payload      payload
	chain        []string
	accessSymbol *symbols.Symbol
	genericArgs  []*types.Type
	backtrace    *arrayBacktrace
}

// Capture is the immutable result of a closed scope.
type Capture struct {
	payload      payload
	chain        string
	accessSymbol *symbols.Symbol
	genericArgs  []*types.Type
	backtrace    *arrayBacktrace
}

func (c Capture) Archetype() Archetype { return archetypeOf(c.payload) }

func (c Capture) AccessSymbol() *symbols.Symbol { return c.accessSymbol }

func (c Capture) UnresolvedChain() string { return c.chain }

func (s *CaptureScope) Context() *Context { return s.ctx }

func (s *CaptureScope) Parent() *CaptureScope { return s.parent }

func (s *CaptureScope) Archetype() Archetype { return archetypeOf(s.payload) }

// AccessSymbol is the value the next member, indexer or call applies to.
func (s *CaptureScope) AccessSymbol() *symbols.Symbol { return s.accessSymbol }

// UnresolvedChain is the dotted run of tokens not yet classified.
func (s *CaptureScope) UnresolvedChain() string { return strings.Join(s.chain, ".") }

func (s *CaptureScope) GenericArgs() []*types.Type { return s.genericArgs }

func (s *CaptureScope) IsUnknown() bool { return s.payload == nil }

func (s *CaptureScope) depth() int {
	n := 0
	for cur := s; cur != nil; cur = cur.parent {
		n++
	}
	return n
}

// Close pops the scope from the capture stack and returns its result. The
// parent adopts the result when it is still unresolved and the result is a
// value or type. Closing a scope that is not on top of the stack panics.
func (s *CaptureScope) Close() Capture {
	if s.closed {
		panic("compiler: capture scope closed twice")
	}
	s.ctx.popCapture(s)
	s.closed = true
	out := Capture{
		payload:      s.payload,
		chain:        s.UnresolvedChain(),
		accessSymbol: s.accessSymbol,
		genericArgs:  s.genericArgs,
		backtrace:    s.backtrace,
	}
	if s.parent != nil {
		s.parent.Adopt(out)
	}
	return out
}

// Adopt takes over a closed child's result. It is a no-op unless s is still
// Unknown and the result is inheritable.
func (s *CaptureScope) Adopt(c Capture) bool {
	if !s.IsUnknown() || len(s.chain) > 0 || !c.Archetype().inheritable() {
		return false
	}
	s.payload = c.payload
	s.accessSymbol = c.accessSymbol
	s.genericArgs = c.genericArgs
	s.backtrace = c.backtrace
	return true
}

func (s *CaptureScope) set(p payload, access *symbols.Symbol) {
	s.payload = p
	s.accessSymbol = access
	s.chain = nil
	s.genericArgs = nil
}

// SetToLocalSymbol makes the scope refer to sym, typically the result of a
// call that the chain continues from.
func (s *CaptureScope) SetToLocalSymbol(sym *symbols.Symbol) {
	s.set(localSymbolPayload{sym: sym}, nil)
}

// SetToType makes the scope refer to t.
func (s *CaptureScope) SetToType(t *types.Type) {
	s.set(typePayload{typ: t}, nil)
}

// SetToMethods makes the scope refer to a candidate set called on receiver
// (nil for static methods).
func (s *CaptureScope) SetToMethods(methods []*types.Method, receiver *symbols.Symbol) {
	s.set(methodPayload{methods: methods}, receiver)
}

// Typed payload accessors. Calling one on a scope of another archetype is a
// compiler bug and panics.

func (s *CaptureScope) Namespace() string { return payloadAs[namespacePayload](s.payload).name }

func (s *CaptureScope) Type() *types.Type { return payloadAs[typePayload](s.payload).typ }

func (s *CaptureScope) Property() *types.Property { return payloadAs[propertyPayload](s.payload).prop }

func (s *CaptureScope) Field() *types.Field { return payloadAs[fieldPayload](s.payload).field }

func (s *CaptureScope) LocalSymbol() *symbols.Symbol { return payloadAs[localSymbolPayload](s.payload).sym }

func (s *CaptureScope) Methods() []*types.Method { return payloadAs[methodPayload](s.payload).methods }

func (s *CaptureScope) ArrayIndex() *symbols.Symbol { return payloadAs[arrayIndexerPayload](s.payload).index }

func (s *CaptureScope) EnumMember() (*types.Type, string) {
	p := payloadAs[enumPayload](s.payload)
	return p.typ, p.name
}

func (s *CaptureScope) LocalMethod() *MethodDefinition {
	return payloadAs[localMethodPayload](s.payload).def
}

func (s *CaptureScope) ExternUserField() *ExternField {
	return payloadAs[externUserFieldPayload](s.payload).field
}

func (s *CaptureScope) ExternUserMethod() *ExternMethod {
	return payloadAs[externUserMethodPayload](s.payload).method
}

func (s *CaptureScope) InternalMethod() *InternalMethod {
	return payloadAs[internalMethodPayload](s.payload).method
}

// ValueType is the type ExecuteGet would produce, computed without emitting
// anything. It is nil for archetypes that are not values.
func (s *CaptureScope) ValueType() *types.Type {
	switch p := s.payload.(type) {
	case localSymbolPayload:
		return p.sym.Type
	case propertyPayload:
		return p.prop.Type
	case fieldPayload:
		return p.field.Type
	case arrayIndexerPayload:
		arr := s.accessSymbol.Type
		if arr.IsString() {
			return s.ctx.b.Char
		}
		return arr.Elem
	case thisPayload:
		return s.ctx.Behaviour
	case enumPayload:
		return p.typ
	case externUserFieldPayload:
		return p.field.Type
	}
	return nil
}
