package script

import (
	"errors"

	"fortio.org/safecast"

	"udonsharp/internal/asm"
	"udonsharp/internal/compiler"
	"udonsharp/internal/diag"
	"udonsharp/internal/resolver"
	"udonsharp/internal/source"
	"udonsharp/internal/symbols"
	"udonsharp/internal/trace"
	"udonsharp/internal/types"
)

// Config is what a unit needs besides its parsed file.
type Config struct {
	// Catalog is the shared base catalog; every unit compiles against its
	// own overlay.
	Catalog  *types.Catalog
	Resolver resolver.Options
	Compiler compiler.Options
	Tracer   trace.Tracer
	// TraceParent is the span of the unit in the driver's trace.
	TraceParent uint64
	// Usings are searched before the file's own using lines.
	Usings []string
}

// Compile lowers f into a program. The first error aborts the unit; it is
// a *diag.Error carrying the span of the construct that failed.
func Compile(f *File, cfg Config) (*asm.Program, error) {
	u, err := newUnit(f, cfg)
	if err != nil {
		return nil, err
	}
	return u.compile()
}

type unit struct {
	file   *File
	cfg    Config
	ctx    *compiler.Context
	b      *types.Builtins
	defs   map[*MethodDecl]*compiler.MethodDefinition
	tracer trace.Tracer
}

func newUnit(f *File, cfg Config) (*unit, error) {
	if cfg.Catalog == nil {
		cfg.Catalog = types.NewBuiltinCatalog()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = trace.Nop
	}
	cat := cfg.Catalog.Overlay()
	behaviour, err := compiler.DefineBehaviour(cat, f.Behaviour)
	if err != nil {
		return nil, diag.Errorf(diag.SynDuplicateDecl, "cannot declare behaviour '%s': %v", f.Behaviour, err).At(f.BehaviourSpan)
	}
	externTypes := make([]*types.Type, len(f.Externs))
	for i, ext := range f.Externs {
		t, err := compiler.DefineBehaviour(cat, ext.Name)
		if err != nil {
			return nil, diag.Errorf(diag.SynDuplicateDecl, "cannot declare extern behaviour '%s': %v", ext.Name, err).At(ext.Span)
		}
		externTypes[i] = t
	}
	usings := make([]string, 0, len(cfg.Usings)+len(f.Usings))
	usings = append(usings, cfg.Usings...)
	usings = append(usings, f.Usings...)
	ctx, err := compiler.NewContext(compiler.Config{
		Behaviour:   behaviour,
		Resolver:    resolver.New(cat, cfg.Resolver),
		Tracer:      cfg.Tracer,
		TraceParent: cfg.TraceParent,
		Usings:      usings,
		Options:     cfg.Compiler,
	})
	if err != nil {
		return nil, err
	}
	u := &unit{
		file:   f,
		cfg:    cfg,
		ctx:    ctx,
		b:      ctx.Builtins(),
		defs:   make(map[*MethodDecl]*compiler.MethodDefinition, len(f.Methods)),
		tracer: cfg.Tracer,
	}
	for i, ext := range f.Externs {
		if err := u.declareExtern(ext, externTypes[i]); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (u *unit) compile() (*asm.Program, error) {
	for _, f := range u.file.Fields {
		if err := u.declareField(f); err != nil {
			return nil, err
		}
	}
	for _, m := range u.file.Methods {
		if err := u.declareMethod(m); err != nil {
			return nil, err
		}
	}
	for _, m := range u.file.Methods {
		if err := u.compileMethod(m); err != nil {
			return nil, err
		}
	}
	return u.ctx.Program()
}

// at pins err to sp unless a more precise span is already attached.
func at(err error, sp source.Span) error {
	var de *diag.Error
	if errors.As(err, &de) {
		de.At(sp)
	}
	return err
}

func (u *unit) resolveType(ref TypeRef) (*types.Type, error) {
	t, ok := u.ctx.LookupType(ref.Name)
	if !ok {
		return nil, diag.Errorf(diag.SynUnknownType, "the type or namespace name '%s' could not be found", ref.Name).At(ref.Span)
	}
	for range ref.Dims {
		t = u.ctx.Resolver.Catalog().ArrayOf(t)
	}
	return t, nil
}

func (u *unit) resolveTypes(refs []TypeRef) ([]*types.Type, error) {
	out := make([]*types.Type, len(refs))
	for i, ref := range refs {
		t, err := u.resolveType(ref)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func (u *unit) returnType(ref *TypeRef) (*types.Type, error) {
	if ref == nil {
		return nil, nil
	}
	t, err := u.resolveType(*ref)
	if err != nil || t.IsVoid() {
		return nil, err
	}
	return t, nil
}

func (u *unit) declareExtern(ext *ExternDecl, t *types.Type) error {
	def := compiler.NewExternClass(t)
	for _, f := range ext.Fields {
		if def.Field(f.Name) != nil {
			return diag.Errorf(diag.SynDuplicateDecl, "'%s' already declares a field named '%s'", ext.Name, f.Name).At(f.Span)
		}
		typ, err := u.resolveType(f.Type)
		if err != nil {
			return err
		}
		def.AddField(f.Name, typ)
	}
	for _, m := range ext.Methods {
		if def.Method(m.Name) != nil {
			return diag.Errorf(diag.SynDuplicateDecl, "'%s' already declares a method named '%s'", ext.Name, m.Name).At(m.Span)
		}
		params := make([]types.Param, len(m.Params))
		for i, p := range m.Params {
			typ, err := u.resolveType(p.Type)
			if err != nil {
				return err
			}
			params[i] = types.Param{Name: p.Name, Type: typ}
		}
		ret, err := u.returnType(m.Return)
		if err != nil {
			return err
		}
		def.AddMethod(m.Name, params, ret)
	}
	u.ctx.AddExternClass(def)
	return nil
}

func (u *unit) declareField(f *FieldDecl) error {
	typ, err := u.resolveType(f.Type)
	if err != nil {
		return err
	}
	var value any
	if f.Init != nil {
		if value, err = u.constantValue(f.Init, typ); err != nil {
			return at(err, f.Init.Span)
		}
	}
	_, err = u.ctx.DeclareField(f.Name, typ, f.Public, value, f.Init != nil)
	return at(err, f.Span)
}

func (u *unit) declareMethod(m *MethodDecl) error {
	params := make([]compiler.ParamDecl, len(m.Params))
	for i, p := range m.Params {
		typ, err := u.resolveType(p.Type)
		if err != nil {
			return err
		}
		params[i] = compiler.ParamDecl{Name: p.Name, Type: typ}
	}
	ret, err := u.returnType(m.Return)
	if err != nil {
		return err
	}
	public := m.Public || compiler.EventName(m.Name) != m.Name
	def, err := u.ctx.DeclareMethod(m.Name, params, ret, public)
	if err != nil {
		return at(err, m.Span)
	}
	u.defs[m] = def
	return nil
}

func (u *unit) compileMethod(m *MethodDecl) error {
	def := u.defs[m]
	span := trace.Begin(u.tracer, trace.ScopeMethod, "method "+m.Name, u.cfg.TraceParent)
	defer span.End("")
	u.ctx.BeginMethod(def)
	for _, st := range m.Body {
		if err := u.stmt(st); err != nil {
			return at(err, st.StmtSpan())
		}
	}
	if !def.IsVoid() && !endsInReturn(m.Body) {
		return diag.Errorf(diag.SemaIllegalOperation, "'%s': not all code paths return a value", m.Name).At(m.Span)
	}
	u.ctx.EndMethod()
	return nil
}

func endsInReturn(body []Stmt) bool {
	if len(body) == 0 {
		return false
	}
	_, ok := body[len(body)-1].(*ReturnStmt)
	return ok
}

func (u *unit) stmt(st Stmt) error {
	switch st := st.(type) {
	case *LocalStmt:
		typ, err := u.resolveType(st.Type)
		if err != nil {
			return err
		}
		var value *symbols.Symbol
		if st.Value != nil {
			if value, err = u.value(st.Value); err != nil {
				return err
			}
		}
		local, err := u.ctx.DeclareLocal(st.Name, typ)
		if err != nil || value == nil {
			return err
		}
		v, err := u.ctx.CastSymbolToType(value, typ, false)
		if err != nil {
			return at(err, st.Value.ExprSpan())
		}
		u.ctx.Sink.AddCopy(local, v)
		return nil

	case *LetStmt:
		value, err := u.value(st.Value)
		if err != nil {
			return err
		}
		if value.IsConstant() && value.Type.IsObject() && value.Value == nil {
			return diag.Errorf(diag.SemaIllegalOperation, "cannot assign null to an implicitly-typed variable").At(st.Value.ExprSpan())
		}
		local, err := u.ctx.DeclareLocal(st.Name, value.Type)
		if err != nil {
			return err
		}
		u.ctx.Sink.AddCopy(local, value)
		return nil

	case *SetStmt:
		value, err := u.value(st.Value)
		if err != nil {
			return err
		}
		return u.walk(st.Target, func(s *compiler.CaptureScope, _ *symbols.Symbol, _ bool) error {
			return at(s.ExecuteSet(value, false), st.Target.Span)
		})

	case *DoStmt:
		if !isCallExpr(st.Call) {
			return diag.Errorf(diag.SemaIllegalOperation, "only call and new expressions can be used as a statement").At(st.Call.ExprSpan())
		}
		_, err := u.expr(st.Call)
		return err

	case *ReturnStmt:
		var value *symbols.Symbol
		if st.Value != nil {
			var err error
			if value, err = u.value(st.Value); err != nil {
				return err
			}
		}
		return u.ctx.EmitReturn(value)
	}
	panic("script: unknown statement")
}

func isCallExpr(e Expr) bool {
	switch e := e.(type) {
	case *NewExpr:
		return true
	case *ChainExpr:
		return e.EndsInCall()
	}
	return false
}

// value evaluates e and requires it to produce something.
func (u *unit) value(e Expr) (*symbols.Symbol, error) {
	sym, err := u.expr(e)
	if err != nil {
		return nil, err
	}
	if sym == nil {
		return nil, diag.Errorf(diag.SemaIllegalOperation, "the expression does not produce a value").At(e.ExprSpan())
	}
	return sym, nil
}

func (u *unit) values(es []Expr) ([]*symbols.Symbol, error) {
	out := make([]*symbols.Symbol, len(es))
	for i, e := range es {
		v, err := u.value(e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (u *unit) expr(e Expr) (*symbols.Symbol, error) {
	switch e := e.(type) {
	case *Literal:
		return u.literal(e), nil

	case *CastExpr:
		typ, err := u.resolveType(e.Type)
		if err != nil {
			return nil, err
		}
		x, err := u.value(e.X)
		if err != nil {
			return nil, err
		}
		out, err := u.ctx.CastSymbolToType(x, typ, true)
		return out, at(err, e.Span)

	case *NewExpr:
		typ, err := u.resolveType(e.Type)
		if err != nil {
			return nil, err
		}
		args, err := u.values(e.Args)
		if err != nil {
			return nil, err
		}
		out, err := u.ctx.InvokeConstructor(typ, args)
		return out, at(err, e.Span)

	case *NewArrayExpr:
		elem, err := u.resolveType(e.Elem)
		if err != nil {
			return nil, err
		}
		length, err := u.value(e.Len)
		if err != nil {
			return nil, err
		}
		out, err := u.ctx.NewArray(elem, length)
		return out, at(err, e.Span)

	case *ChainExpr:
		var out *symbols.Symbol
		err := u.walk(e, func(s *compiler.CaptureScope, result *symbols.Symbol, called bool) error {
			if called {
				out = result
				return nil
			}
			v, err := s.ExecuteGet()
			out = v
			return at(err, e.Span)
		})
		return out, err
	}
	panic("script: unknown expression")
}

// walk feeds the links of e into a fresh capture scope and hands the scope
// to finish. called reports that the last link was a call whose value is
// result.
func (u *unit) walk(e *ChainExpr, finish func(s *compiler.CaptureScope, result *symbols.Symbol, called bool) error) error {
	return u.ctx.WithCaptureScope(func(s *compiler.CaptureScope) error {
		var (
			result *symbols.Symbol
			called bool
		)
		for _, link := range e.Links {
			if called {
				if result == nil {
					return diag.Errorf(diag.SemaIllegalOperation, "cannot access a member of a call that returns void").At(link.Span)
				}
				s.SetToLocalSymbol(result)
				called = false
			}
			if link.Kind != LinkName && s.IsUnknown() {
				_, err := s.ExecuteGet()
				return at(err, e.Span)
			}
			switch link.Kind {
			case LinkName:
				if _, err := s.ResolveAccessToken(link.Name); err != nil {
					return at(err, link.Span)
				}
				if len(link.Generic) == 0 {
					continue
				}
				if s.IsUnknown() {
					_, err := s.ExecuteGet()
					return at(err, link.Span)
				}
				args, err := u.resolveTypes(link.Generic)
				if err != nil {
					return err
				}
				if err := s.HandleGenericAccess(args); err != nil {
					return at(err, link.Span)
				}
			case LinkIndex:
				index, err := u.value(link.Index)
				if err != nil {
					return err
				}
				if err := s.HandleArrayIndexerAccess(index); err != nil {
					return at(err, link.Span)
				}
			case LinkCall:
				args, err := u.values(link.Args)
				if err != nil {
					return err
				}
				if result, err = s.Invoke(args); err != nil {
					return at(err, link.Span)
				}
				called = true
			}
		}
		return finish(s, result, called)
	})
}

func (u *unit) literalType(lit *Literal) *types.Type {
	switch lit.Kind {
	case LitInt:
		return u.b.Int32
	case LitFloat:
		return u.b.Single
	case LitDouble:
		return u.b.Double
	case LitLong:
		return u.b.Int64
	case LitString:
		return u.b.String
	case LitBool:
		return u.b.Bool
	}
	return u.b.Object
}

func (u *unit) literal(lit *Literal) *symbols.Symbol {
	return u.ctx.TopTable.CreateConst(u.literalType(lit), lit.Value)
}

// constantValue converts a field initializer to the field's type under the
// implicit constant conversions: exact type, boxing, null for references,
// in-range integers and widening to floating point.
func (u *unit) constantValue(lit *Literal, typ *types.Type) (any, error) {
	from := u.literalType(lit)
	if lit.Kind == LitNull {
		if typ.IsValueType() {
			return nil, diag.Errorf(diag.SemaNoImplicitCast, "cannot convert null to '%s' because it is a non-nullable value type", typ.DisplayName())
		}
		return nil, nil
	}
	if from == typ || typ.IsObject() {
		return lit.Value, nil
	}
	if v, ok := convertConstant(lit.Value, typ); ok {
		return v, nil
	}
	return nil, diag.Errorf(diag.SemaNoImplicitCast, "Cannot implicitly convert type '%s' to '%s'", from.DisplayName(), typ.DisplayName())
}

func convertConstant(v any, typ *types.Type) (any, bool) {
	if typ.Kind != types.KindPrimitive {
		return nil, false
	}
	switch v := v.(type) {
	case int32:
		return convertInteger(int64(v), typ.Prim, true)
	case int64:
		return convertInteger(v, typ.Prim, false)
	case float32:
		if typ.Prim == types.PrimDouble {
			return float64(v), true
		}
	}
	return nil, false
}

// convertInteger narrows only int literals; long literals widen to ulong
// and floating point.
func convertInteger(v int64, prim types.Primitive, narrow bool) (any, bool) {
	var (
		out any
		err error
	)
	switch prim {
	case types.PrimSingle:
		return float32(v), true
	case types.PrimDouble:
		return float64(v), true
	case types.PrimInt64:
		return v, true
	case types.PrimUInt64:
		out, err = safecast.Conv[uint64](v)
	case types.PrimSByte:
		out, err = safecast.Conv[int8](v)
	case types.PrimByte:
		out, err = safecast.Conv[uint8](v)
	case types.PrimInt16:
		out, err = safecast.Conv[int16](v)
	case types.PrimUInt16:
		out, err = safecast.Conv[uint16](v)
	case types.PrimInt32:
		out, err = safecast.Conv[int32](v)
	case types.PrimUInt32:
		out, err = safecast.Conv[uint32](v)
	default:
		return nil, false
	}
	if err != nil || (!narrow && prim != types.PrimUInt64) {
		return nil, false
	}
	return out, true
}
