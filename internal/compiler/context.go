package compiler

import (
	"fmt"

	"udonsharp/internal/asm"
	"udonsharp/internal/resolver"
	"udonsharp/internal/symbols"
	"udonsharp/internal/trace"
	"udonsharp/internal/types"
)

// Options are compatibility switches read from [compat] in udonsharp.toml.
type Options struct {
	// ExplicitCastFallback lets an explicit cast with no conversion routine
	// degrade to a plain copy into a temporary of the target type.
	ExplicitCastFallback bool
}

// DefaultOptions matches the behaviour deployed programs were built with.
func DefaultOptions() Options {
	return Options{ExplicitCastFallback: true}
}

// Config assembles a Context.
type Config struct {
	// Behaviour is the user behaviour being compiled.
	Behaviour *types.Type
	Resolver  *resolver.Context
	// Sink receives instructions; a fresh asm.Builder when nil.
	Sink    asm.Sink
	Handler InternalMethodHandler
	Tracer  trace.Tracer
	// TraceParent is the span node events are attached to.
	TraceParent uint64
	// Usings are namespaces searched for unqualified type names.
	Usings  []string
	Options Options
}

// Context is the visitor state of one compilation unit: its symbol table,
// labels, declared methods, known foreign behaviours and the capture stack.
// It is not safe for concurrent use.
type Context struct {
	Behaviour        *types.Type
	Resolver         *resolver.Context
	TopTable         *symbols.Table
	Labels           *asm.LabelTable
	Sink             asm.Sink
	Handler          InternalMethodHandler
	DefinedMethods   []*MethodDefinition
	ExternClasses    []*ExternClassDefinition
	ReturnJumpTarget *symbols.Symbol
	Usings           []string

	b           *types.Builtins
	opts        Options
	tracer      trace.Tracer
	traceParent uint64
	captures    []*CaptureScope
	entries     []asm.Entry
	current     *MethodDefinition
	haltAddr    *symbols.Symbol
}

// NewContext prepares a unit for cfg.Behaviour. The unit's data section
// starts with the return-jump slot and the reflection constants.
func NewContext(cfg Config) (*Context, error) {
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("compiler: missing resolver")
	}
	if cfg.Behaviour == nil || !cfg.Behaviour.UserBehaviour {
		return nil, fmt.Errorf("compiler: %v is not a user behaviour", cfg.Behaviour)
	}
	sink := cfg.Sink
	if sink == nil {
		sink = asm.NewBuilder()
	}
	handler := cfg.Handler
	if handler == nil {
		handler = BuiltinIntrinsics{}
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	b := cfg.Resolver.Builtins()
	c := &Context{
		Behaviour:   cfg.Behaviour,
		Resolver:    cfg.Resolver,
		TopTable:    symbols.NewTable(cfg.Resolver),
		Labels:      asm.NewLabelTable(),
		Sink:        sink,
		Handler:     handler,
		Usings:      cfg.Usings,
		b:           b,
		opts:        cfg.Options,
		tracer:      tracer,
		traceParent: cfg.TraceParent,
	}
	c.ReturnJumpTarget = c.TopTable.CreateNamedInternal("__intnl_returnJump_SystemUInt32", b.UInt32)
	c.TopTable.CreateNamedConst(resolver.TypeIDSymbol, b.Int64, types.TypeTag(cfg.Behaviour))
	c.TopTable.CreateNamedConst(resolver.TypeNameSymbol, b.String, cfg.Behaviour.FullName())
	return c, nil
}

func (c *Context) Builtins() *types.Builtins { return c.b }

func (c *Context) Options() Options { return c.opts }

// ThisSymbol is the slot the VM binds to the running behaviour.
func (c *Context) ThisSymbol() *symbols.Symbol {
	return c.TopTable.CreateThis(c.Behaviour)
}

// PushTable opens a nested symbol scope.
func (c *Context) PushTable(kind symbols.ScopeKind) {
	c.TopTable = c.TopTable.Push(kind)
}

// PopTable closes the innermost symbol scope.
func (c *Context) PopTable() {
	c.TopTable = c.TopTable.Pop()
}

// FindMethod returns the user method declared as name, or nil.
func (c *Context) FindMethod(name string) *MethodDefinition {
	for _, m := range c.DefinedMethods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// AddExternClass registers a behaviour whose members are reached through
// program variables and custom events.
func (c *Context) AddExternClass(def *ExternClassDefinition) {
	c.ExternClasses = append(c.ExternClasses, def)
}

// ExternClass returns the definition registered for t, or nil.
func (c *Context) ExternClass(t *types.Type) *ExternClassDefinition {
	for _, def := range c.ExternClasses {
		if def.Type == t {
			return def
		}
	}
	return nil
}

// TopCaptureScope is the innermost open capture scope, or nil.
func (c *Context) TopCaptureScope() *CaptureScope {
	if len(c.captures) == 0 {
		return nil
	}
	return c.captures[len(c.captures)-1]
}

// OpenCaptureScope pushes a fresh scope. The caller must Close it; prefer
// WithCaptureScope.
func (c *Context) OpenCaptureScope() *CaptureScope {
	s := &CaptureScope{ctx: c, parent: c.TopCaptureScope()}
	c.captures = append(c.captures, s)
	return s
}

// WithCaptureScope runs fn with a fresh scope and closes it on every exit
// path, including a panic inside fn.
func (c *Context) WithCaptureScope(fn func(s *CaptureScope) error) error {
	s := c.OpenCaptureScope()
	defer s.Close()
	return fn(s)
}

func (c *Context) popCapture(s *CaptureScope) {
	if c.TopCaptureScope() != s {
		panic(fmt.Sprintf("compiler: capture scope closed out of order (closing depth %d of %d)", s.depth(), len(c.captures)))
	}
	c.captures = c.captures[:len(c.captures)-1]
}

func (c *Context) point(name, detail string) {
	trace.Point(c.tracer, trace.ScopeNode, name, detail, c.traceParent)
}

// ExternClassDefinition describes another user behaviour as seen from this
// unit: the fields and methods reachable through program variables.
type ExternClassDefinition struct {
	Type    *types.Type
	Fields  []*ExternField
	Methods []*ExternMethod
}

// ExternField is a field of another behaviour.
type ExternField struct {
	Owner *ExternClassDefinition
	Name  string
	Type  *types.Type
}

// ExternMethod is a method of another behaviour, called by custom event.
type ExternMethod struct {
	Owner  *ExternClassDefinition
	Name   string
	Params []types.Param
	// Return is nil for void methods.
	Return *types.Type
}

func (m *ExternMethod) IsVoid() bool { return m.Return == nil || m.Return.IsVoid() }

// NewExternClass starts an empty definition for t.
func NewExternClass(t *types.Type) *ExternClassDefinition {
	return &ExternClassDefinition{Type: t}
}

// AddField declares a field of the foreign behaviour.
func (d *ExternClassDefinition) AddField(name string, typ *types.Type) *ExternField {
	f := &ExternField{Owner: d, Name: name, Type: typ}
	d.Fields = append(d.Fields, f)
	return f
}

// AddMethod declares a method of the foreign behaviour.
func (d *ExternClassDefinition) AddMethod(name string, params []types.Param, ret *types.Type) *ExternMethod {
	m := &ExternMethod{Owner: d, Name: name, Params: params, Return: ret}
	d.Methods = append(d.Methods, m)
	return m
}

func (d *ExternClassDefinition) Field(name string) *ExternField {
	if d == nil {
		return nil
	}
	for _, f := range d.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (d *ExternClassDefinition) Method(name string) *ExternMethod {
	if d == nil {
		return nil
	}
	for _, m := range d.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// DefineBehaviour declares a user behaviour type named name in c.
func DefineBehaviour(c *types.Catalog, name string) (*types.Type, error) {
	t := &types.Type{
		Kind:          types.KindClass,
		Name:          name,
		Base:          c.Builtins().UdonSharpBehaviour,
		UserBehaviour: true,
	}
	if err := c.Define(t); err != nil {
		return nil, err
	}
	return t, nil
}
