package compiler

import (
	"errors"
	"testing"

	"udonsharp/internal/asm"
	"udonsharp/internal/diag"
	"udonsharp/internal/resolver"
	"udonsharp/internal/symbols"
	"udonsharp/internal/testkit"
	"udonsharp/internal/trace"
	"udonsharp/internal/types"
)

type testUnit struct {
	catalog *types.Catalog
	r       *resolver.Context
	b       *types.Builtins
	ctx     *Context
	code    *asm.Builder
	ring    *trace.RingTracer
	player  *types.Type
	door    *types.Type
}

type unitOption func(*Config, *resolver.Options)

func withOptions(o Options) unitOption {
	return func(cfg *Config, _ *resolver.Options) { cfg.Options = o }
}

func withProxyQuirk(on bool) unitOption {
	return func(_ *Config, ro *resolver.Options) { ro.ProxySetterQuirk = on }
}

func newTestUnit(t *testing.T, opts ...unitOption) *testUnit {
	t.Helper()
	cat := types.NewBuiltinCatalog().Overlay()
	player, err := DefineBehaviour(cat, "Player")
	if err != nil {
		t.Fatalf("DefineBehaviour(Player): %v", err)
	}
	door, err := DefineBehaviour(cat, "Door")
	if err != nil {
		t.Fatalf("DefineBehaviour(Door): %v", err)
	}
	ring := trace.NewRingTracer(256, trace.LevelDebug)
	cfg := Config{Behaviour: player, Tracer: ring, Options: DefaultOptions(), Usings: []string{"UnityEngine"}}
	ropts := resolver.Options{ProxySetterQuirk: true}
	for _, o := range opts {
		o(&cfg, &ropts)
	}
	r := resolver.New(cat, ropts)
	code := asm.NewBuilder()
	cfg.Resolver = r
	cfg.Sink = code
	ctx, err := NewContext(cfg)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return &testUnit{catalog: cat, r: r, b: r.Builtins(), ctx: ctx, code: code, ring: ring, player: player, door: door}
}

func (u *testUnit) typ(t *testing.T, name string) *types.Type {
	t.Helper()
	typ, ok := u.r.ResolveTypeName(name)
	if !ok {
		t.Fatalf("unknown type %s", name)
	}
	return typ
}

// resolve feeds tokens into s and fails on the first error.
func resolve(t *testing.T, s *CaptureScope, tokens ...string) {
	t.Helper()
	for _, tok := range tokens {
		if _, err := s.ResolveAccessToken(tok); err != nil {
			t.Fatalf("ResolveAccessToken(%q): %v", tok, err)
		}
	}
}

func (u *testUnit) externs() []string { return u.code.Externs() }

// traced reports whether a point event called name was recorded.
func (u *testUnit) traced(name string) bool {
	for _, ev := range u.ring.Snapshot() {
		if ev.Name == name {
			return true
		}
	}
	return false
}

func (u *testUnit) ops() []asm.Opcode {
	var out []asm.Opcode
	for _, in := range u.code.Instructions() {
		out = append(out, in.Op)
	}
	return out
}

func (u *testUnit) countExtern(name string) int {
	n := 0
	for _, e := range u.externs() {
		if e == name {
			n++
		}
	}
	return n
}

func (u *testUnit) local(t *testing.T, name string, typ *types.Type) *symbols.Symbol {
	t.Helper()
	sym, err := u.ctx.DeclareLocal(name, typ)
	if err != nil {
		t.Fatalf("DeclareLocal(%s): %v", name, err)
	}
	return sym
}

func wantCode(t *testing.T, err error, code diag.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("got no error, want %s", code.ID())
	}
	var de *diag.Error
	if !errors.As(err, &de) {
		t.Fatalf("got %T (%v), want *diag.Error", err, err)
	}
	if got := diag.CodeOf(err); got != code {
		t.Fatalf("got code %s (%v), want %s", got.ID(), err, code.ID())
	}
}

func mustPanic(t *testing.T, what string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s did not panic", what)
		}
	}()
	fn()
}

func (u *testUnit) method(t *testing.T, name string, params []ParamDecl, ret *types.Type, public bool) *MethodDefinition {
	t.Helper()
	def, err := u.ctx.DeclareMethod(name, params, ret, public)
	if err != nil {
		t.Fatalf("DeclareMethod(%s): %v", name, err)
	}
	return def
}

// call resolves tokens as a method and invokes it with args.
func (u *testUnit) call(t *testing.T, generic []*types.Type, tokens []string, args ...*symbols.Symbol) *symbols.Symbol {
	t.Helper()
	var out *symbols.Symbol
	err := u.ctx.WithCaptureScope(func(s *CaptureScope) error {
		resolve(t, s, tokens...)
		if generic != nil {
			if err := s.HandleGenericAccess(generic); err != nil {
				return err
			}
		}
		var err error
		out, err = s.Invoke(args)
		return err
	})
	if err != nil {
		t.Fatalf("call %v: %v", tokens, err)
	}
	return out
}

func (u *testUnit) constant(v any) *symbols.Symbol {
	switch v.(type) {
	case int32:
		return u.ctx.TopTable.CreateConst(u.b.Int32, v)
	case float32:
		return u.ctx.TopTable.CreateConst(u.b.Single, v)
	case string:
		return u.ctx.TopTable.CreateConst(u.b.String, v)
	case bool:
		return u.ctx.TopTable.CreateConst(u.b.Bool, v)
	}
	panic("unsupported constant")
}

// machine packages the unit and loads it with this bound.
func (u *testUnit) machine(t *testing.T, this any) *testkit.Machine {
	t.Helper()
	p, err := u.ctx.Program()
	if err != nil {
		t.Fatalf("Program: %v", err)
	}
	if err := testkit.CheckProgramInvariants(p); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	m, err := testkit.NewMachine(p, this)
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	return m
}

// lookup reads the value a single name refers to.
func (u *testUnit) lookup(t *testing.T, name string) *symbols.Symbol {
	t.Helper()
	var out *symbols.Symbol
	err := u.ctx.WithCaptureScope(func(s *CaptureScope) error {
		resolve(t, s, name)
		var err error
		out, err = s.ExecuteGet()
		return err
	})
	if err != nil {
		t.Fatalf("lookup %s: %v", name, err)
	}
	return out
}
