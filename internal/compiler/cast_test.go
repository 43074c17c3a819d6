package compiler

import (
	"testing"

	"udonsharp/internal/asm"
	"udonsharp/internal/diag"
)

func TestCastIdentityAndReferenceEmitNothing(t *testing.T) {
	u := newTestUnit(t)
	n := u.local(t, "n", u.b.Int32)
	tr := u.local(t, "tr", u.b.Transform)
	door := u.local(t, "door", u.door)
	obj := u.local(t, "obj", u.b.Object)

	cases := []struct {
		name   string
		cast   func() (any, error)
		target any
	}{
		{"int to int", func() (any, error) { return u.ctx.CastSymbolToType(n, u.b.Int32, false) }, n},
		{"transform to component", func() (any, error) { return u.ctx.CastSymbolToType(tr, u.b.Component, false) }, tr},
		{"transform to object", func() (any, error) { return u.ctx.CastSymbolToType(tr, u.b.Object, false) }, tr},
		{"behaviour to component", func() (any, error) { return u.ctx.CastSymbolToType(door, u.b.Component, false) }, door},
		{"behaviour to UdonBehaviour", func() (any, error) { return u.ctx.CastSymbolToType(door, u.b.UdonBehaviour, false) }, door},
		{"object to transform", func() (any, error) { return u.ctx.CastSymbolToType(obj, u.b.Transform, true) }, obj},
	}
	for _, tc := range cases {
		got, err := tc.cast()
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.target {
			t.Fatalf("%s: got %v, want the source symbol", tc.name, got)
		}
	}
	if u.code.Len() != 0 {
		t.Fatalf("pass-through casts emitted %d instructions", u.code.Len())
	}
}

func TestCastNumeric(t *testing.T) {
	u := newTestUnit(t)
	n := u.local(t, "n", u.b.Int32)
	f := u.local(t, "f", u.b.Single)

	out, err := u.ctx.CastSymbolToType(n, u.b.Single, false)
	if err != nil {
		t.Fatalf("int to float: %v", err)
	}
	if out == n || out.Type != u.b.Single {
		t.Fatalf("int to float: got %v of %v", out, out.Type)
	}
	want := "SystemConvert.__ToSingle__SystemInt32__SystemSingle"
	if got := u.externs(); len(got) != 1 || got[0] != want {
		t.Fatalf("externs: got %v, want [%s]", got, want)
	}
	if ops := u.ops(); len(ops) != 3 || ops[0] != asm.OpPush || ops[2] != asm.OpExtern {
		t.Fatalf("conversion shape: %v", ops)
	}

	_, err = u.ctx.CastSymbolToType(f, u.b.Int32, false)
	wantCode(t, err, diag.SemaNoImplicitCast)

	if _, err := u.ctx.CastSymbolToType(f, u.b.Int32, true); err != nil {
		t.Fatalf("explicit float to int: %v", err)
	}
	if n := u.countExtern("SystemConvert.__ToInt32__SystemSingle__SystemInt32"); n != 1 {
		t.Fatalf("ToInt32 calls: got %d, want 1", n)
	}
}

func TestCastRelaxesIntConstants(t *testing.T) {
	u := newTestUnit(t)
	space := u.typ(t, "UnityEngine.Space")

	c := u.ctx.TopTable.CreateConst(u.b.Int32, int32(200))
	out, err := u.ctx.CastSymbolToType(c, u.b.Byte, false)
	if err != nil {
		t.Fatalf("200 to byte: %v", err)
	}
	if !out.IsConstant() || out.Type != u.b.Byte || out.Value != uint8(200) {
		t.Fatalf("200 to byte: got %v (%T %v)", out, out.Value, out.Value)
	}

	big := u.ctx.TopTable.CreateConst(u.b.Int32, int32(300))
	_, err = u.ctx.CastSymbolToType(big, u.b.Byte, false)
	wantCode(t, err, diag.SemaNoImplicitCast)

	neg := u.ctx.TopTable.CreateConst(u.b.Int32, int32(-1))
	if _, err := u.ctx.CastSymbolToType(neg, u.b.UInt32, false); err == nil {
		t.Fatalf("-1 to uint: got no error")
	}

	one := u.ctx.TopTable.CreateConst(u.b.Int32, int32(1))
	out, err = u.ctx.CastSymbolToType(one, space, false)
	if err != nil {
		t.Fatalf("1 to Space: %v", err)
	}
	if out.Type != space || out.Value != int32(1) {
		t.Fatalf("1 to Space: got %v of %v", out.Value, out.Type)
	}

	wide := u.ctx.TopTable.CreateConst(u.b.Int32, int32(7))
	out, err = u.ctx.CastSymbolToType(wide, u.b.Int64, false)
	if err != nil || out.Value != int64(7) {
		t.Fatalf("7 to long: got %v, %v", out, err)
	}
	if u.code.Len() != 0 {
		t.Fatalf("constant relaxation emitted %d instructions", u.code.Len())
	}
}

func TestCastUserConversion(t *testing.T) {
	u := newTestUnit(t)
	vec3 := u.typ(t, "UnityEngine.Vector3")
	vec2 := u.typ(t, "UnityEngine.Vector2")
	v := u.local(t, "v", vec3)
	w := u.local(t, "w", vec2)

	if _, err := u.ctx.CastSymbolToType(v, vec2, false); err != nil {
		t.Fatalf("Vector3 to Vector2: %v", err)
	}
	if _, err := u.ctx.CastSymbolToType(w, vec3, false); err != nil {
		t.Fatalf("Vector2 to Vector3: %v", err)
	}
	want := []string{
		"UnityEngineVector2.__op_Implicit__UnityEngineVector3__UnityEngineVector2",
		"UnityEngineVector2.__op_Implicit__UnityEngineVector2__UnityEngineVector3",
	}
	got := u.externs()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("externs: got %v, want %v", got, want)
	}
}

func TestCastUnboxesObjectWithoutFallback(t *testing.T) {
	u := newTestUnit(t, withOptions(Options{ExplicitCastFallback: false}))
	obj := u.local(t, "obj", u.b.Object)

	out, err := u.ctx.CastSymbolToType(obj, u.b.Int32, true)
	if err != nil {
		t.Fatalf("(int) obj: %v", err)
	}
	if out == obj || out.Type != u.b.Int32 {
		t.Fatalf("(int) obj: got %v of %v, want a fresh int slot", out, out.Type)
	}
	ins := u.code.Instructions()
	if len(ins) != 3 || ins[2].Op != asm.OpCopy || ins[0].Symbol != obj || ins[1].Symbol != out {
		t.Fatalf("unboxing copy: %v", ins)
	}
	if u.traced("cast-fallback") {
		t.Fatalf("unboxing went through the fallback")
	}

	_, err = u.ctx.CastSymbolToType(obj, u.b.Int32, false)
	wantCode(t, err, diag.SemaNoImplicitCast)
}

func TestCastExplicitFallback(t *testing.T) {
	for _, fallback := range []bool{true, false} {
		u := newTestUnit(t, withOptions(Options{ExplicitCastFallback: fallback}))
		vec3 := u.typ(t, "UnityEngine.Vector3")
		s := u.local(t, "s", u.b.String)

		out, err := u.ctx.CastSymbolToType(s, vec3, true)
		if !fallback {
			wantCode(t, err, diag.SemaNoCast)
			if u.code.Len() != 0 || u.traced("cast-fallback") {
				t.Fatalf("disabled fallback still emitted code")
			}
			continue
		}
		if err != nil {
			t.Fatalf("fallback: %v", err)
		}
		if out.Type != vec3 {
			t.Fatalf("fallback slot type: got %v", out.Type)
		}
		ins := u.code.Instructions()
		if len(ins) != 3 || ins[2].Op != asm.OpCopy || ins[0].Symbol != s || ins[1].Symbol != out {
			t.Fatalf("fallback copy: %v", ins)
		}
		if !u.traced("cast-fallback") {
			t.Fatalf("fallback not traced")
		}
	}

	u := newTestUnit(t)
	s := u.local(t, "s", u.b.String)
	_, err := u.ctx.CastSymbolToType(s, u.typ(t, "UnityEngine.Vector3"), false)
	wantCode(t, err, diag.SemaNoImplicitCast)
}
