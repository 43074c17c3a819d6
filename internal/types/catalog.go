package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrSealed is returned when a type is defined after the namespace index of
// the catalog has been built.
var ErrSealed = errors.New("catalog is sealed")

// Catalog owns the host types visible to a compilation. A base catalog is
// built once and shared; each compilation unit works on an Overlay so user
// behaviours never leak between units.
type Catalog struct {
	parent   *Catalog
	byName   map[string]*Type
	order    []*Type
	builtins *Builtins

	mu      sync.Mutex
	arrays  map[*Type]*Type
	byrefs  map[*Type]*Type
	generic map[string]*Type

	nsOnce     sync.Once
	namespaces map[string]struct{}
	sealed     bool
}

// NewCatalog returns an empty catalog seeded with the core System types.
func NewCatalog() *Catalog {
	c := newCatalog(nil)
	c.builtins = seedCore(c)
	return c
}

func newCatalog(parent *Catalog) *Catalog {
	return &Catalog{
		parent:  parent,
		byName:  make(map[string]*Type, 64),
		arrays:  make(map[*Type]*Type),
		byrefs:  make(map[*Type]*Type),
		generic: make(map[string]*Type),
	}
}

// Overlay returns a child catalog. Lookups fall through to c; definitions
// stay in the child.
func (c *Catalog) Overlay() *Catalog {
	o := newCatalog(c)
	o.builtins = c.builtins
	return o
}

// Builtins returns the well-known types shared by every overlay.
func (c *Catalog) Builtins() *Builtins {
	return c.builtins
}

// Define registers t under its full name.
func (c *Catalog) Define(t *Type) error {
	if t == nil || t.Name == "" {
		return errors.New("define: type without a name")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		return fmt.Errorf("define %s: %w", t.FullName(), ErrSealed)
	}
	name := t.FullName()
	if _, ok := c.lookup(name); ok {
		return fmt.Errorf("define %s: type already exists", name)
	}
	t.owner = c
	c.byName[name] = t
	if display := t.DisplayName(); display != name {
		c.byName[display] = t
	}
	c.order = append(c.order, t)
	return nil
}

// MustDefine is Define for catalog construction code.
func (c *Catalog) MustDefine(t *Type) *Type {
	if err := c.Define(t); err != nil {
		panic(err)
	}
	return t
}

// Lookup finds a type by full name ("System.Int32", "Outer+Inner" or
// "Outer.Inner").
func (c *Catalog) Lookup(name string) (*Type, bool) {
	return c.lookup(name)
}

func (c *Catalog) lookup(name string) (*Type, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		if t, ok := cur.byName[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// ParseTypeName resolves a full name with optional "[]" and "&" suffixes.
func (c *Catalog) ParseTypeName(name string) (*Type, bool) {
	name = strings.TrimSpace(name)
	switch {
	case strings.HasSuffix(name, "&"):
		elem, ok := c.ParseTypeName(strings.TrimSuffix(name, "&"))
		if !ok {
			return nil, false
		}
		return c.ByRefOf(elem), true
	case strings.HasSuffix(name, "[]"):
		elem, ok := c.ParseTypeName(strings.TrimSuffix(name, "[]"))
		if !ok {
			return nil, false
		}
		return c.ArrayOf(elem), true
	}
	if t, ok := c.lookup(name); ok {
		return t, true
	}
	if isGenericParamName(name) {
		return c.GenericParam(name), true
	}
	return nil, false
}

func isGenericParamName(name string) bool {
	return name == "T" || (len(name) > 1 && name[0] == 'T' && !strings.Contains(name, ".") && name[1] >= 'A' && name[1] <= 'Z')
}

// ArrayOf returns the interned single-dimension array of elem. The array is
// interned in the catalog that owns elem so base-catalog arrays stay shared.
func (c *Catalog) ArrayOf(elem *Type) *Type {
	home := c.home(elem)
	home.mu.Lock()
	defer home.mu.Unlock()
	if arr, ok := home.arrays[elem]; ok {
		return arr
	}
	arr := &Type{Kind: KindArray, Elem: elem, owner: home}
	if home.builtins != nil {
		arr.Base = home.builtins.Array
	}
	home.arrays[elem] = arr
	return arr
}

// ByRefOf returns the interned by-reference type of elem.
func (c *Catalog) ByRefOf(elem *Type) *Type {
	home := c.home(elem)
	home.mu.Lock()
	defer home.mu.Unlock()
	if ref, ok := home.byrefs[elem]; ok {
		return ref
	}
	ref := &Type{Kind: KindByRef, Elem: elem, owner: home}
	home.byrefs[elem] = ref
	return ref
}

// GenericParam returns the shared placeholder for a generic parameter.
func (c *Catalog) GenericParam(name string) *Type {
	root := c.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	if t, ok := root.generic[name]; ok {
		return t
	}
	t := &Type{Kind: KindGenericParam, Name: name, owner: root}
	root.generic[name] = t
	return t
}

func (c *Catalog) home(t *Type) *Catalog {
	for t != nil && (t.Kind == KindArray || t.Kind == KindByRef) && t.owner == nil {
		t = t.Elem
	}
	if t != nil && t.owner != nil {
		return t.owner
	}
	return c
}

func (c *Catalog) root() *Catalog {
	cur := c
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// IsNamespace reports whether ns (or a prefix chain ending at ns) is the
// namespace of some type in the catalog. The first call seals c.
func (c *Catalog) IsNamespace(ns string) bool {
	if ns == "" {
		return false
	}
	for cur := c; cur != nil; cur = cur.parent {
		if _, ok := cur.namespaceSet()[ns]; ok {
			return true
		}
	}
	return false
}

func (c *Catalog) namespaceSet() map[string]struct{} {
	c.nsOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.sealed = true
		set := make(map[string]struct{})
		for _, t := range c.order {
			ns := t.Namespace
			for ns != "" {
				set[ns] = struct{}{}
				idx := strings.LastIndexByte(ns, '.')
				if idx < 0 {
					break
				}
				ns = ns[:idx]
			}
		}
		c.namespaces = set
	})
	return c.namespaces
}

// Types lists every named type, parent catalogs first, in definition order.
func (c *Catalog) Types() []*Type {
	var out []*Type
	if c.parent != nil {
		out = c.parent.Types()
	}
	return append(out, c.order...)
}

// Namespaces lists the known namespaces in sorted order.
func (c *Catalog) Namespaces() []string {
	set := make(map[string]struct{})
	for cur := c; cur != nil; cur = cur.parent {
		for ns := range cur.namespaceSet() {
			set[ns] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for ns := range set {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Fingerprint digests every type and member signature. Cache keys include it
// so catalog edits invalidate compiled output.
func (c *Catalog) Fingerprint() string {
	h := sha256.New()
	for _, t := range c.Types() {
		fmt.Fprintf(h, "T %s %s\n", t.Kind, t.FullName())
		for _, f := range t.fields {
			fmt.Fprintf(h, "F %s %s %t %t\n", f.Name, f.Type.FullName(), f.Static, f.Exposed)
		}
		for _, p := range t.properties {
			fmt.Fprintf(h, "P %s %s %t %t\n", p.Name, p.Type.FullName(), p.Getter != nil, p.Setter != nil)
		}
		for _, m := range t.methods {
			fmt.Fprintf(h, "M %s %s %t %d\n", m.String(), m.Return.FullName(), m.Exposed, m.GenericArity)
		}
		for _, v := range t.enumValues {
			fmt.Fprintf(h, "E %s %d\n", v.Name, v.Value)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
