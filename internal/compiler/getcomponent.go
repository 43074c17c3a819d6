package compiler

import (
	"strings"

	"udonsharp/internal/asm"
	"udonsharp/internal/diag"
	"udonsharp/internal/resolver"
	"udonsharp/internal/symbols"
	"udonsharp/internal/types"
)

// expandGetComponent lowers GetComponent<T> and its relatives for a user
// behaviour T. The VM only knows UdonBehaviour, so every UdonBehaviour
// component is fetched and filtered by the type tag stored in its
// __refl_const_intnl_udonTypeID variable.
func (c *Context) expandGetComponent(name string, recv *symbols.Symbol, target *types.Type) (*symbols.Symbol, error) {
	_, plural := isGetComponent(name)
	if recv == nil {
		return nil, diag.Errorf(diag.SemaIllegalOperation, "%s<%s> needs a receiver", name, target.DisplayName())
	}
	c.point("getcomponent", name+"<"+target.FullName()+">")
	components, err := c.fetchBehaviours(name, recv)
	if err != nil {
		return nil, err
	}
	loop := &tagLoop{c: c, components: components, tag: c.TopTable.CreateConst(c.b.Int64, types.TypeTag(target))}
	if plural {
		return c.collectMatches(loop, target), nil
	}
	return c.firstMatch(loop, target), nil
}

// firstMatch stores the first component carrying the tag, or null.
func (c *Context) firstMatch(loop *tagLoop, target *types.Type) *symbols.Symbol {
	result := c.TopTable.CreateUnnamed(target)
	c.Sink.AddCopy(result, c.TopTable.CreateConst(target, nil))
	loop.fetchCount()
	exit := c.Labels.New("__gc_exit")
	loop.scan(exit, func(element *symbols.Symbol) {
		c.Sink.AddCopy(result, element)
		c.Sink.AddJump(exit)
	})
	c.Sink.AddJumpLabel(exit)
	return result
}

// collectMatches counts the components carrying the tag, then allocates an
// array of exactly that size and fills it in a second pass. The second pass
// is skipped when nothing matched, leaving the zero-length array.
func (c *Context) collectMatches(loop *tagLoop, target *types.Type) *symbols.Symbol {
	b := c.b
	arrType := c.Resolver.Catalog().ArrayOf(target)
	zero := c.TopTable.CreateConst(b.Int32, int32(0))
	one := c.TopTable.CreateConst(b.Int32, int32(1))
	result := c.newArray(arrType, zero)
	loop.fetchCount()

	matched := c.TopTable.CreateUnnamed(b.Int32)
	c.Sink.AddCopy(matched, zero)
	countExit := c.Labels.New("__gc_exit")
	loop.scan(countExit, func(*symbols.Symbol) {
		c.increment(matched, one)
	})
	c.Sink.AddJumpLabel(countExit)

	done := c.Labels.New("__gc_done")
	anyMatched := c.TopTable.CreateUnnamed(b.Bool)
	c.Sink.AddPush(matched)
	c.Sink.AddPush(zero)
	c.Sink.AddPush(anyMatched)
	c.Sink.AddExternCall(resolver.ExternInt32GreaterThan)
	c.Sink.AddJumpIfFalse(done, anyMatched)

	c.Sink.AddPush(matched)
	c.Sink.AddPush(result)
	c.Sink.AddExternCall(c.Resolver.ArrayCtorName(arrType))
	slot := c.TopTable.CreateUnnamed(b.Int32)
	c.Sink.AddCopy(slot, zero)
	fillExit := c.Labels.New("__gc_exit")
	loop.scan(fillExit, func(element *symbols.Symbol) {
		c.writeElement(result, slot, element)
		c.increment(slot, one)
	})
	c.Sink.AddJumpLabel(fillExit)
	c.Sink.AddJumpLabel(done)
	return result
}

func (c *Context) increment(counter, step *symbols.Symbol) {
	c.Sink.AddPush(counter)
	c.Sink.AddPush(step)
	c.Sink.AddPush(counter)
	c.Sink.AddExternCall(resolver.ExternInt32Addition)
}

// fetchBehaviours calls the plural Type overload of name with
// typeof(UdonBehaviour).
func (c *Context) fetchBehaviours(name string, recv *symbols.Symbol) (*symbols.Symbol, error) {
	plural := name
	if !strings.HasPrefix(name, "GetComponents") {
		plural = strings.Replace(name, "GetComponent", "GetComponents", 1)
	}
	typeArg := c.TopTable.CreateConst(c.b.Type, c.b.UdonBehaviour)
	var fetch *types.Method
	for _, m := range instanceMethods(c.b.Component, plural) {
		if !m.IsGeneric() && len(m.Params) == 1 && m.Params[0].Type == c.b.Type {
			fetch = m
			break
		}
	}
	if fetch == nil {
		return nil, diag.Errorf(diag.SemaNotSupportedByUdon, "'%s' has no System.Type overload on Component", plural)
	}
	out := c.TopTable.CreateUnnamed(fetch.Return)
	c.Sink.AddPush(recv)
	c.Sink.AddPush(typeArg)
	c.Sink.AddPush(out)
	c.Sink.AddExternCall(c.Resolver.MethodName(fetch))
	return out, nil
}

// tagLoop emits a scan over components comparing each element's type tag
// with tag.
type tagLoop struct {
	c          *Context
	components *symbols.Symbol
	count      *symbols.Symbol
	tag        *symbols.Symbol
}

func (l *tagLoop) fetchCount() {
	c := l.c
	l.count = c.TopTable.CreateUnnamed(c.b.Int32)
	c.Sink.AddPush(l.components)
	c.Sink.AddPush(l.count)
	c.Sink.AddExternCall(c.Resolver.ArrayLengthName(l.components.Type))
}

// scan emits
//
//	index = 0
//	loop: if !(index < count) goto exit
//	      element = components[index]
//	      if !Equals(element.udonTypeID, tag) goto skip
//	      onMatch(element)
//	skip: index = index + 1
//	      goto loop
//
// The caller places exit.
func (l *tagLoop) scan(exit *asm.Label, onMatch func(element *symbols.Symbol)) {
	c := l.c
	b := c.b
	index := c.TopTable.CreateUnnamed(b.Int32)
	c.Sink.AddCopy(index, c.TopTable.CreateConst(b.Int32, int32(0)))

	loop := c.Labels.New("__gc_loop")
	skip := c.Labels.New("__gc_skip")
	c.Sink.AddJumpLabel(loop)
	inRange := c.TopTable.CreateUnnamed(b.Bool)
	c.Sink.AddPush(index)
	c.Sink.AddPush(l.count)
	c.Sink.AddPush(inRange)
	c.Sink.AddExternCall(resolver.ExternInt32LessThan)
	c.Sink.AddJumpIfFalse(exit, inRange)

	element := c.TopTable.CreateUnnamed(b.UdonBehaviour)
	c.Sink.AddPush(l.components)
	c.Sink.AddPush(index)
	c.Sink.AddPush(element)
	c.Sink.AddExternCall(c.Resolver.ArrayGetName(l.components.Type))

	elementTag := c.getProgramVariable(element, resolver.TypeIDSymbol)
	matches := c.TopTable.CreateUnnamed(b.Bool)
	c.Sink.AddPush(elementTag)
	c.Sink.AddPush(l.tag)
	c.Sink.AddPush(matches)
	c.Sink.AddExternCall(resolver.ExternObjectEquals)
	c.Sink.AddJumpIfFalse(skip, matches)

	onMatch(element)

	c.Sink.AddJumpLabel(skip)
	c.increment(index, c.TopTable.CreateConst(b.Int32, int32(1)))
	c.Sink.AddJump(loop)
}
