package compiler

import (
	"errors"
	"strings"
	"testing"

	"udonsharp/internal/diag"
	"udonsharp/internal/resolver"
	"udonsharp/internal/symbols"
)

func TestThisTransformPositionX(t *testing.T) {
	u := newTestUnit(t)
	var got []Archetype
	err := u.ctx.WithCaptureScope(func(s *CaptureScope) error {
		for _, tok := range []string{"this", "transform", "position", "x"} {
			if _, err := s.ResolveAccessToken(tok); err != nil {
				return err
			}
			got = append(got, s.Archetype())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []Archetype{ArchetypeThis, ArchetypeProperty, ArchetypeProperty, ArchetypeField}
	if len(got) != len(want) {
		t.Fatalf("archetypes: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("archetype %d: got %s, want %s", i, got[i], want[i])
		}
	}
	externs := u.externs()
	wantExterns := []string{
		resolver.ExternComponentGetTransform,
		"UnityEngineTransform.__get_position__UnityEngineVector3",
	}
	if strings.Join(externs, ",") != strings.Join(wantExterns, ",") {
		t.Fatalf("externs: got %v, want %v", externs, wantExterns)
	}
	if !u.traced("resolve") {
		t.Fatalf("no resolve trace point recorded")
	}
}

func TestUnresolvedChainAccumulates(t *testing.T) {
	u := newTestUnit(t)
	s := u.ctx.OpenCaptureScope()
	defer s.Close()

	ok, err := s.ResolveAccessToken("Foo")
	if err != nil || ok {
		t.Fatalf("Foo: got (%v, %v), want (false, nil)", ok, err)
	}
	if s.Archetype() != ArchetypeUnknown || s.UnresolvedChain() != "Foo" {
		t.Fatalf("after Foo: got %s %q", s.Archetype(), s.UnresolvedChain())
	}
	if ok, err = s.ResolveAccessToken("Bar"); err != nil || ok {
		t.Fatalf("Bar: got (%v, %v), want (false, nil)", ok, err)
	}
	if s.UnresolvedChain() != "Foo.Bar" {
		t.Fatalf("chain: got %q, want Foo.Bar", s.UnresolvedChain())
	}
	_, err = s.ExecuteGet()
	wantCode(t, err, diag.SemaUnresolvedName)
	if !strings.Contains(err.Error(), "'Bar'") {
		t.Fatalf("error %q does not name Bar", err)
	}
}

func TestSetOnPropertyWithoutSetter(t *testing.T) {
	u := newTestUnit(t)
	u.local(t, "go", u.b.GameObject)
	tr := u.local(t, "tr", u.b.Transform)
	err := u.ctx.WithCaptureScope(func(s *CaptureScope) error {
		resolve(t, s, "go", "transform")
		return s.ExecuteSet(tr, false)
	})
	wantCode(t, err, diag.SemaMemberAccess)
	if !strings.Contains(err.Error(), "GameObject.transform") {
		t.Fatalf("error %q does not name GameObject.transform", err)
	}
	if n := u.code.Len(); n != 0 {
		t.Fatalf("instructions emitted: got %d, want 0", n)
	}
}

func TestLocalSymbolAliasing(t *testing.T) {
	u := newTestUnit(t)
	for _, typ := range []string{"int", "string", "UnityEngine.Vector3", "UnityEngine.Transform[]", "Door"} {
		sym := u.ctx.TopTable.CreateUnnamed(u.typ(t, typ))
		s := u.ctx.OpenCaptureScope()
		s.SetToLocalSymbol(sym)
		got, err := s.ExecuteGet()
		s.Close()
		if err != nil {
			t.Fatalf("%s: ExecuteGet: %v", typ, err)
		}
		if got != sym {
			t.Fatalf("%s: ExecuteGet returned %v, want %v", typ, got, sym)
		}
	}
	if u.code.Len() != 0 {
		t.Fatalf("aliasing emitted %d instructions", u.code.Len())
	}
}

func TestValueTypeElementWriteBack(t *testing.T) {
	u := newTestUnit(t)
	vecArr := u.typ(t, "UnityEngine.Vector3[]")
	pts := u.local(t, "pts", vecArr)
	zero := u.ctx.TopTable.CreateConst(u.b.Int32, int32(0))
	one := u.ctx.TopTable.CreateConst(u.b.Single, float32(1))
	err := u.ctx.WithCaptureScope(func(s *CaptureScope) error {
		resolve(t, s, "pts")
		if err := s.HandleArrayIndexerAccess(zero); err != nil {
			return err
		}
		resolve(t, s, "x")
		return s.ExecuteSet(one, false)
	})
	if err != nil {
		t.Fatalf("pts[0].x = 1: %v", err)
	}
	want := []string{
		u.r.ArrayGetName(vecArr),
		"UnityEngineVector3.__set_x__SystemSingle",
		u.r.ArraySetName(vecArr),
	}
	if got := u.externs(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("externs: got %v, want %v", got, want)
	}
	last := u.code.Instructions()
	n := len(last)
	if last[n-4].Symbol != pts || last[n-3].Symbol != zero {
		t.Fatalf("write-back targets %v[%v], want %v[%v]", last[n-4].Symbol, last[n-3].Symbol, pts, zero)
	}
}

func TestReferenceElementHasNoWriteBack(t *testing.T) {
	u := newTestUnit(t)
	trArr := u.typ(t, "UnityEngine.Transform[]")
	u.local(t, "trs", trArr)
	pos := u.local(t, "pos", u.typ(t, "UnityEngine.Vector3"))
	zero := u.ctx.TopTable.CreateConst(u.b.Int32, int32(0))
	err := u.ctx.WithCaptureScope(func(s *CaptureScope) error {
		resolve(t, s, "trs")
		if err := s.HandleArrayIndexerAccess(zero); err != nil {
			return err
		}
		resolve(t, s, "position")
		return s.ExecuteSet(pos, false)
	})
	if err != nil {
		t.Fatalf("trs[0].position = pos: %v", err)
	}
	if n := u.countExtern(u.r.ArraySetName(trArr)); n != 0 {
		t.Fatalf("reference element written back %d times", n)
	}
	if n := u.countExtern("UnityEngineTransform.__set_position__UnityEngineVector3"); n != 1 {
		t.Fatalf("position setter calls: got %d, want 1", n)
	}
}

func TestWriteBackClearedByMemberRead(t *testing.T) {
	u := newTestUnit(t)
	vecArr := u.typ(t, "UnityEngine.Vector3[]")
	u.local(t, "pts", vecArr)
	zero := u.ctx.TopTable.CreateConst(u.b.Int32, int32(0))
	err := u.ctx.WithCaptureScope(func(s *CaptureScope) error {
		resolve(t, s, "pts")
		if err := s.HandleArrayIndexerAccess(zero); err != nil {
			return err
		}
		// normalized is a fresh Vector3, not the element
		resolve(t, s, "normalized", "x")
		return s.ExecuteSet(u.ctx.TopTable.CreateConst(u.b.Single, float32(2)), false)
	})
	if err != nil {
		t.Fatalf("pts[0].normalized.x = 2: %v", err)
	}
	if n := u.countExtern(u.r.ArraySetName(vecArr)); n != 0 {
		t.Fatalf("write-back through a derived value: got %d", n)
	}
}

func TestMemberAccessOnlyOnMemberBearingArchetypes(t *testing.T) {
	u := newTestUnit(t)
	vec3 := u.typ(t, "UnityEngine.Vector3")
	space := u.typ(t, "UnityEngine.Space")
	def, err := u.ctx.DeclareMethod("Helper", nil, u.b.Void, false)
	if err != nil {
		t.Fatalf("DeclareMethod: %v", err)
	}
	ext := NewExternClass(u.door)
	payloads := map[Archetype]payload{
		ArchetypeUnknown:                nil,
		ArchetypeNamespace:              namespacePayload{name: "UnityEngine"},
		ArchetypeMethod:                 methodPayload{methods: vec3.Methods("Normalize")},
		ArchetypeType:                   typePayload{typ: vec3},
		ArchetypeThis:                   thisPayload{},
		ArchetypeEnum:                   enumPayload{typ: space, name: "World"},
		ArchetypeLocalMethod:            localMethodPayload{def: def},
		ArchetypeExternUserMethod:       externUserMethodPayload{method: ext.AddMethod("Open", nil, nil)},
		ArchetypeInternalCompilerMethod: internalMethodPayload{method: builtinIntrinsics[0]},
	}
	for _, a := range Archetypes {
		if a.hasMembers() {
			continue
		}
		p, ok := payloads[a]
		if !ok {
			t.Fatalf("no payload for %s", a)
		}
		s := u.ctx.OpenCaptureScope()
		s.payload = p
		_, err := s.accessValueMember("x")
		s.Close()
		wantCode(t, err, diag.SemaIllegalOperation)
	}
	if u.code.Len() != 0 {
		t.Fatalf("rejected accesses emitted %d instructions", u.code.Len())
	}
}

func TestMethodArchetypesRejectTokens(t *testing.T) {
	u := newTestUnit(t)
	if _, err := u.ctx.DeclareMethod("Helper", nil, u.b.Void, false); err != nil {
		t.Fatalf("DeclareMethod: %v", err)
	}
	cases := [][]string{
		{"GetComponent"},
		{"Helper"},
		{"this", "GetUdonTypeID"},
		{"UnityEngine", "Mathf", "Max"},
	}
	for _, chain := range cases {
		err := u.ctx.WithCaptureScope(func(s *CaptureScope) error {
			resolve(t, s, chain...)
			if !s.Archetype().IsMethod() {
				t.Fatalf("%v: got %s, want a method archetype", chain, s.Archetype())
			}
			_, err := s.ResolveAccessToken("x")
			return err
		})
		wantCode(t, err, diag.SemaIllegalOperation)
		if !strings.Contains(err.Error(), "cannot run an accessor on a method") {
			t.Fatalf("%v: error %q", chain, err)
		}
	}
}

func TestNamespaceTypeEnumChain(t *testing.T) {
	u := newTestUnit(t)
	err := u.ctx.WithCaptureScope(func(s *CaptureScope) error {
		resolve(t, s, "UnityEngine")
		if s.Archetype() != ArchetypeNamespace || s.Namespace() != "UnityEngine" {
			t.Fatalf("UnityEngine: got %s", s.Archetype())
		}
		resolve(t, s, "Space")
		if s.Archetype() != ArchetypeType || s.Type().Name != "Space" {
			t.Fatalf("Space: got %s", s.Archetype())
		}
		resolve(t, s, "Self")
		typ, name := s.EnumMember()
		if typ.Name != "Space" || name != "Self" {
			t.Fatalf("enum member: got %s.%s", typ.Name, name)
		}
		sym, err := s.ExecuteGet()
		if err != nil {
			return err
		}
		if !sym.IsConstant() || sym.Value != int32(1) {
			t.Fatalf("enum constant: got %v (%T)", sym.Value, sym.Value)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("UnityEngine.Space.Self: %v", err)
	}
}

func TestNamespaceFallsBackToChain(t *testing.T) {
	u := newTestUnit(t)
	s := u.ctx.OpenCaptureScope()
	defer s.Close()
	resolve(t, s, "UnityEngine", "Nope")
	if s.Archetype() != ArchetypeUnknown || s.UnresolvedChain() != "UnityEngine.Nope" {
		t.Fatalf("got %s %q, want Unknown UnityEngine.Nope", s.Archetype(), s.UnresolvedChain())
	}
}

func TestUsingsAndStaticMembers(t *testing.T) {
	u := newTestUnit(t)
	err := u.ctx.WithCaptureScope(func(s *CaptureScope) error {
		resolve(t, s, "Vector3", "zero")
		if s.Archetype() != ArchetypeProperty {
			t.Fatalf("Vector3.zero: got %s", s.Archetype())
		}
		_, err := s.ExecuteGet()
		return err
	})
	if err != nil {
		t.Fatalf("Vector3.zero: %v", err)
	}
	if got := u.externs(); len(got) != 1 || got[0] != "UnityEngineVector3.__get_zero__UnityEngineVector3" {
		t.Fatalf("externs: got %v", got)
	}
	if ops := u.ops(); len(ops) != 2 {
		t.Fatalf("static getter pushes a receiver: %v", ops)
	}

	var pi *symbols.Symbol
	err = u.ctx.WithCaptureScope(func(s *CaptureScope) error {
		resolve(t, s, "Mathf", "PI")
		var err error
		pi, err = s.ExecuteGet()
		return err
	})
	if err != nil {
		t.Fatalf("Mathf.PI: %v", err)
	}
	if !pi.IsConstant() || len(u.externs()) != 1 {
		t.Fatalf("const field read emitted an extern or produced %v", pi)
	}
}

func TestMemberAccessError(t *testing.T) {
	u := newTestUnit(t)
	err := u.ctx.WithCaptureScope(func(s *CaptureScope) error {
		resolve(t, s, "Vector3")
		_, err := s.ResolveAccessToken("nonexistent")
		return err
	})
	wantCode(t, err, diag.SemaMemberAccess)
	if !strings.Contains(err.Error(), "'UnityEngine.Vector3' does not contain a definition for 'nonexistent'") {
		t.Fatalf("error: %v", err)
	}
	err = u.ctx.WithCaptureScope(func(s *CaptureScope) error {
		resolve(t, s, "this")
		_, err := s.ResolveAccessToken("missing")
		return err
	})
	wantCode(t, err, diag.SemaMemberAccess)
}

func TestIndexerLegality(t *testing.T) {
	u := newTestUnit(t)
	u.local(t, "n", u.b.Int32)
	u.local(t, "name", u.b.String)
	big := u.local(t, "big", u.b.Int64)
	c := u.ctx.TopTable.CreateConst(u.b.Int32, int32(0))

	err := u.ctx.WithCaptureScope(func(s *CaptureScope) error {
		resolve(t, s, "n")
		return s.HandleArrayIndexerAccess(c)
	})
	wantCode(t, err, diag.SemaIllegalOperation)

	err = u.ctx.WithCaptureScope(func(s *CaptureScope) error {
		resolve(t, s, "name")
		if err := s.HandleArrayIndexerAccess(big); err != nil {
			return err
		}
		if s.ValueType() != u.b.Char {
			t.Fatalf("string element type: got %v", s.ValueType())
		}
		if _, err := s.ExecuteGet(); err != nil {
			return err
		}
		return s.ExecuteSet(u.ctx.TopTable.CreateConst(u.b.Char, 'a'), false)
	})
	wantCode(t, err, diag.SemaIllegalOperation)
	want := []string{"SystemConvert.__ToInt32__SystemInt64__SystemInt32", resolver.ExternStringGetChars}
	if got := u.externs(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("externs: got %v, want %v", got, want)
	}
}

func TestGenericAccessLegality(t *testing.T) {
	u := newTestUnit(t)
	u.local(t, "n", u.b.Int32)
	err := u.ctx.WithCaptureScope(func(s *CaptureScope) error {
		resolve(t, s, "n")
		return s.HandleGenericAccess(nil)
	})
	wantCode(t, err, diag.SemaIllegalOperation)

	err = u.ctx.WithCaptureScope(func(s *CaptureScope) error {
		resolve(t, s, "GetComponent")
		if err := s.HandleGenericAccess(nil); err != nil {
			return err
		}
		return s.HandleGenericAccess(nil)
	})
	if err != nil {
		t.Fatalf("generic access on a method: %v", err)
	}
}

func TestAssignToReadOnly(t *testing.T) {
	u := newTestUnit(t)
	v := u.ctx.TopTable.CreateConst(u.b.Int32, int32(3))
	cases := []struct {
		name  string
		setup func(s *CaptureScope)
	}{
		{"this", func(s *CaptureScope) { resolve(t, s, "this") }},
		{"constant", func(s *CaptureScope) { s.SetToLocalSymbol(v) }},
		{"const field", func(s *CaptureScope) { resolve(t, s, "System", "Int32", "MaxValue") }},
	}
	for _, tc := range cases {
		err := u.ctx.WithCaptureScope(func(s *CaptureScope) error {
			tc.setup(s)
			return s.ExecuteSet(v, false)
		})
		wantCode(t, err, diag.SemaIllegalOperation)
	}
	if u.code.Len() != 0 {
		t.Fatalf("rejected sets emitted %d instructions", u.code.Len())
	}
}

func TestCaptureScopeDiscipline(t *testing.T) {
	u := newTestUnit(t)
	outer := u.ctx.OpenCaptureScope()
	inner := u.ctx.OpenCaptureScope()
	if inner.Parent() != outer || u.ctx.TopCaptureScope() != inner {
		t.Fatalf("capture stack not nested")
	}
	mustPanic(t, "closing the outer scope first", func() { outer.Close() })
	inner.Close()
	mustPanic(t, "closing a scope twice", func() { inner.Close() })
	outer.Close()
	if u.ctx.TopCaptureScope() != nil {
		t.Fatalf("capture stack not empty")
	}
}

func TestWithCaptureScopeClosesOnEveryPath(t *testing.T) {
	u := newTestUnit(t)
	boom := errors.New("boom")
	if err := u.ctx.WithCaptureScope(func(*CaptureScope) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
	if u.ctx.TopCaptureScope() != nil {
		t.Fatalf("scope left open after an error")
	}
	mustPanic(t, "panicking body", func() {
		_ = u.ctx.WithCaptureScope(func(*CaptureScope) error { panic("bad") })
	})
	if u.ctx.TopCaptureScope() != nil {
		t.Fatalf("scope left open after a panic")
	}
}

func TestParentAdoptsInheritableResults(t *testing.T) {
	u := newTestUnit(t)
	sym := u.local(t, "hp", u.b.Int32)

	parent := u.ctx.OpenCaptureScope()
	child := u.ctx.OpenCaptureScope()
	child.SetToLocalSymbol(sym)
	got := child.Close()
	if got.Archetype() != ArchetypeLocalSymbol {
		t.Fatalf("capture: got %s", got.Archetype())
	}
	if parent.Archetype() != ArchetypeLocalSymbol || parent.LocalSymbol() != sym {
		t.Fatalf("parent did not adopt: %s", parent.Archetype())
	}
	parent.Close()

	for _, tokens := range [][]string{{"this"}, {"UnityEngine"}, {"GetComponent"}} {
		parent = u.ctx.OpenCaptureScope()
		child = u.ctx.OpenCaptureScope()
		resolve(t, child, tokens...)
		child.Close()
		if !parent.IsUnknown() {
			t.Fatalf("%v: parent adopted %s", tokens, parent.Archetype())
		}
		parent.Close()
	}

	parent = u.ctx.OpenCaptureScope()
	resolve(t, parent, "Foo")
	child = u.ctx.OpenCaptureScope()
	child.SetToLocalSymbol(sym)
	child.Close()
	if !parent.IsUnknown() || parent.UnresolvedChain() != "Foo" {
		t.Fatalf("parent with a pending chain adopted %s", parent.Archetype())
	}
	parent.Close()
}

func TestPayloadAccessorMismatchPanics(t *testing.T) {
	u := newTestUnit(t)
	s := u.ctx.OpenCaptureScope()
	defer s.Close()
	s.SetToType(u.b.String)
	if s.Type() != u.b.String {
		t.Fatalf("Type(): got %v", s.Type())
	}
	mustPanic(t, "Field() on a Type capture", func() { s.Field() })
	mustPanic(t, "Methods() on a Type capture", func() { s.Methods() })
	mustPanic(t, "LocalSymbol() on a Type capture", func() { s.LocalSymbol() })
}

func TestTokensAreNormalized(t *testing.T) {
	u := newTestUnit(t)
	sym := u.local(t, "caf\u00e9", u.b.Int32)
	err := u.ctx.WithCaptureScope(func(s *CaptureScope) error {
		resolve(t, s, "cafe\u0301")
		got, err := s.ExecuteGet()
		if got != sym {
			t.Fatalf("decomposed spelling resolved to %v", got)
		}
		return err
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
}

func TestProxySetterQuirk(t *testing.T) {
	cases := []struct {
		quirk  bool
		extern string
	}{
		{true, "VRCUdonUdonBehaviour.__get_DisableInteractive__SystemBoolean"},
		{false, "VRCUdonUdonBehaviour.__set_DisableInteractive__SystemBoolean__SystemVoid"},
	}
	for _, tc := range cases {
		u := newTestUnit(t, withProxyQuirk(tc.quirk))
		on := u.ctx.TopTable.CreateConst(u.b.Bool, true)
		err := u.ctx.WithCaptureScope(func(s *CaptureScope) error {
			resolve(t, s, "this", "DisableInteractive")
			return s.ExecuteSet(on, false)
		})
		if err != nil {
			t.Fatalf("quirk=%v: %v", tc.quirk, err)
		}
		if got := u.externs(); len(got) != 1 || got[0] != tc.extern {
			t.Fatalf("quirk=%v: externs %v, want [%s]", tc.quirk, got, tc.extern)
		}
		if got := u.traced("proxy-setter-quirk"); got != tc.quirk {
			t.Fatalf("quirk=%v: trace point recorded = %v", tc.quirk, got)
		}
	}
}
