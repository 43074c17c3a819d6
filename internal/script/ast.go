package script

import (
	"strings"

	"udonsharp/internal/source"
)

// File is a parsed access script: one behaviour with its fields, methods
// and the foreign behaviours it talks to.
type File struct {
	Behaviour     string
	BehaviourSpan source.Span
	Usings        []string
	Externs       []*ExternDecl
	Fields        []*FieldDecl
	Methods       []*MethodDecl
}

// TypeRef is a type as spelled in source: a keyword or dotted name followed
// by zero or more "[]".
type TypeRef struct {
	Name string
	Dims int
	Span source.Span
}

func (t TypeRef) String() string {
	return t.Name + strings.Repeat("[]", t.Dims)
}

type ExternDecl struct {
	Name    string
	Span    source.Span
	Fields  []*FieldDecl
	Methods []*MethodDecl
}

type FieldDecl struct {
	Public bool
	Type   TypeRef
	Name   string
	// Init is the initial heap value; only literals are accepted.
	Init *Literal
	Span source.Span
}

type Param struct {
	Type TypeRef
	Name string
	Span source.Span
}

type MethodDecl struct {
	Public bool
	Name   string
	Params []Param
	// Return is nil for void methods.
	Return *TypeRef
	Body   []Stmt
	Span   source.Span
}

// Stmt is one line of a method body.
type Stmt interface {
	StmtSpan() source.Span
}

// LocalStmt declares a typed local: local T name [= value].
type LocalStmt struct {
	Type  TypeRef
	Name  string
	Value Expr
	Span  source.Span
}

// LetStmt declares a local typed after its value: let name = value.
type LetStmt struct {
	Name  string
	Value Expr
	Span  source.Span
}

// SetStmt assigns through a chain: set target = value.
type SetStmt struct {
	Target *ChainExpr
	Value  Expr
	Span   source.Span
}

// DoStmt evaluates a call for its effect.
type DoStmt struct {
	Call Expr
	Span source.Span
}

type ReturnStmt struct {
	Value Expr
	Span  source.Span
}

func (s *LocalStmt) StmtSpan() source.Span  { return s.Span }
func (s *LetStmt) StmtSpan() source.Span    { return s.Span }
func (s *SetStmt) StmtSpan() source.Span    { return s.Span }
func (s *DoStmt) StmtSpan() source.Span     { return s.Span }
func (s *ReturnStmt) StmtSpan() source.Span { return s.Span }

type Expr interface {
	ExprSpan() source.Span
}

type LiteralKind uint8

const (
	LitInt LiteralKind = iota
	LitFloat
	LitDouble
	LitLong
	LitString
	LitBool
	LitNull
)

// Literal holds its value as the matching Go type: int32, float32,
// float64, int64, string, bool or nil.
type Literal struct {
	Kind  LiteralKind
	Value any
	Span  source.Span
}

// CastExpr is (Type) X.
type CastExpr struct {
	Type TypeRef
	X    Expr
	Span source.Span
}

// NewExpr is new Type(args).
type NewExpr struct {
	Type TypeRef
	Args []Expr
	Span source.Span
}

// NewArrayExpr is new Elem[Len].
type NewArrayExpr struct {
	Elem TypeRef
	Len  Expr
	Span source.Span
}

type LinkKind uint8

const (
	LinkName LinkKind = iota
	LinkIndex
	LinkCall
)

// Link is one step of an access chain: a name (optionally with generic
// arguments), an indexer or a call.
type Link struct {
	Kind    LinkKind
	Name    string
	Generic []TypeRef
	Index   Expr
	Args    []Expr
	Span    source.Span
}

// ChainExpr is a.b<T>[i](args).c ...
type ChainExpr struct {
	Links []Link
	Span  source.Span
}

// EndsInCall reports whether the chain's last step is a call.
func (c *ChainExpr) EndsInCall() bool {
	return len(c.Links) > 0 && c.Links[len(c.Links)-1].Kind == LinkCall
}

func (e *Literal) ExprSpan() source.Span      { return e.Span }
func (e *CastExpr) ExprSpan() source.Span     { return e.Span }
func (e *NewExpr) ExprSpan() source.Span      { return e.Span }
func (e *NewArrayExpr) ExprSpan() source.Span { return e.Span }
func (e *ChainExpr) ExprSpan() source.Span    { return e.Span }
