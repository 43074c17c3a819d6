// Package resolver maps host types and members onto the names the Udon VM
// knows them by, decides which members the VM exposes and ranks overloads.
package resolver

import (
	"sync"

	"udonsharp/internal/types"
)

// Options tune compatibility behaviour of the resolver.
type Options struct {
	// ProxySetterQuirk makes setters of proxy-declared properties resolve
	// to the substitute's getter, matching what deployed programs expect.
	ProxySetterQuirk bool
}

// Context is the per-unit resolver. It is not safe for concurrent use; the
// catalog it wraps is.
type Context struct {
	catalog *types.Catalog
	b       *types.Builtins
	opts    Options

	exposedOnce sync.Once
	exposed     map[string]struct{}
}

func New(c *types.Catalog, opts Options) *Context {
	return &Context{catalog: c, b: c.Builtins(), opts: opts}
}

func (r *Context) Catalog() *types.Catalog { return r.catalog }
func (r *Context) Builtins() *types.Builtins { return r.b }
func (r *Context) Options() Options { return r.opts }

// ResolveTypeName resolves a keyword alias or a full type name, with array
// suffixes.
func (r *Context) ResolveTypeName(name string) (*types.Type, bool) {
	base, dims := name, 0
	for len(base) > 2 && base[len(base)-2:] == "[]" {
		base = base[:len(base)-2]
		dims++
	}
	t, ok := r.b.Alias(base)
	if !ok {
		t, ok = r.catalog.ParseTypeName(base)
	}
	if !ok {
		return nil, false
	}
	for ; dims > 0; dims-- {
		t = r.catalog.ArrayOf(t)
	}
	return t, true
}

// IsProxy reports whether t is the behaviour proxy base class or a user
// behaviour; their members live on the VM's UdonBehaviour.
func (r *Context) IsProxy(t *types.Type) bool {
	return t != nil && (t == r.b.UdonSharpBehaviour || t.UserBehaviour)
}

// UdonType maps a source type to the type the VM stores: behaviours become
// UdonBehaviour and arrays of behaviours become Component arrays.
func (r *Context) UdonType(t *types.Type) *types.Type {
	if t == nil {
		return nil
	}
	switch {
	case r.IsProxy(t):
		return r.b.UdonBehaviour
	case t.Kind == types.KindArray:
		if t.Elem.IsBehaviourLike() && !t.Elem.IsArray() {
			return r.catalog.ArrayOf(r.b.Component)
		}
		if elem := r.UdonType(t.Elem); elem != t.Elem {
			return r.catalog.ArrayOf(elem)
		}
	case t.Kind == types.KindByRef:
		if elem := r.UdonType(t.Elem); elem != t.Elem {
			return r.catalog.ByRefOf(elem)
		}
	}
	return t
}

// UdonTypeName is the sanitized VM name of t's storage type.
func (r *Context) UdonTypeName(t *types.Type) string {
	return SanitizeTypeName(r.UdonType(t))
}
