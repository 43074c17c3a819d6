package resolver

import (
	"strings"

	"udonsharp/internal/types"
)

// IsExposedName reports whether the VM knows extern name. Array accessors
// are synthesized by the VM for every exposed element type.
func (r *Context) IsExposedName(name string) bool {
	r.exposedOnce.Do(r.buildExposure)
	if _, ok := r.exposed[name]; ok {
		return true
	}
	typ, _, found := strings.Cut(name, ".")
	if !found || !strings.HasSuffix(typ, "Array") {
		return false
	}
	for _, op := range []string{".__Get__", ".__Set__", ".__ctor__", ".__get_Length__"} {
		if strings.Contains(name, op) {
			return true
		}
	}
	return false
}

// IsExposed reports whether m can be called on the VM.
func (r *Context) IsExposed(m *types.Method) bool {
	return m != nil && r.IsExposedName(r.MethodName(m))
}

// Exposed lists every known extern name; used by the catalog listing.
func (r *Context) Exposed() []string {
	r.exposedOnce.Do(r.buildExposure)
	out := make([]string, 0, len(r.exposed))
	for name := range r.exposed {
		out = append(out, name)
	}
	return out
}

func (r *Context) buildExposure() {
	set := make(map[string]struct{}, 1024)
	add := func(m *types.Method) {
		if m != nil && m.Exposed {
			set[r.MethodName(m)] = struct{}{}
		}
	}
	for _, t := range r.catalog.Types() {
		// proxy members only exist through their UdonBehaviour mapping
		if r.IsProxy(t) {
			continue
		}
		for _, m := range t.DeclaredMethods() {
			add(m)
		}
		for _, p := range t.Properties() {
			add(p.Getter)
			add(p.Setter)
		}
		for _, f := range t.Fields() {
			if !f.Exposed {
				continue
			}
			set[r.FieldGetterName(f)] = struct{}{}
			if !f.ReadOnly && !f.Const {
				set[r.FieldSetterName(f)] = struct{}{}
			}
		}
	}
	for _, name := range intrinsicExterns {
		set[name] = struct{}{}
	}
	r.exposed = set
}

// UdonGetter returns the accessor the VM reads p through. Properties on the
// behaviour proxy are looked up again on UdonBehaviour; nil means the VM
// cannot read p.
func (r *Context) UdonGetter(p *types.Property) *types.Method {
	if p.Declaring == r.b.UdonSharpBehaviour {
		sub := r.b.UdonBehaviour.Property(p.Name)
		if sub == nil {
			return nil
		}
		return sub.Getter
	}
	return p.Getter
}

// UdonSetter returns the accessor the VM writes p through. For proxy
// properties with ProxySetterQuirk enabled it returns the substitute's
// getter, and quirk reports that this happened.
func (r *Context) UdonSetter(p *types.Property) (m *types.Method, quirk bool) {
	if p.Declaring == r.b.UdonSharpBehaviour {
		sub := r.b.UdonBehaviour.Property(p.Name)
		if sub == nil {
			return nil, false
		}
		if r.opts.ProxySetterQuirk {
			return sub.Getter, sub.Getter != nil
		}
		return sub.Setter, false
	}
	return p.Setter, false
}
