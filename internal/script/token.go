package script

import (
	"fmt"

	"udonsharp/internal/source"
)

// Kind classifies a lexical token of an access script.
type Kind uint8

const (
	Invalid Kind = iota
	EOF
	Newline
	Ident
	IntLit
	FloatLit
	DoubleLit
	LongLit
	StringLit
	Dot
	Comma
	LParen
	RParen
	LBracket
	RBracket
	Lt
	Gt
	Assign
)

var kindNames = [...]string{
	Invalid:   "invalid",
	EOF:       "end of file",
	Newline:   "end of line",
	Ident:     "identifier",
	IntLit:    "int literal",
	FloatLit:  "float literal",
	DoubleLit: "double literal",
	LongLit:   "long literal",
	StringLit: "string literal",
	Dot:       "'.'",
	Comma:     "','",
	LParen:    "'('",
	RParen:    "')'",
	LBracket:  "'['",
	RBracket:  "']'",
	Lt:        "'<'",
	Gt:        "'>'",
	Assign:    "'='",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsLiteral reports the literal kinds that carry a value in Token.Text.
func (k Kind) IsLiteral() bool {
	return k >= IntLit && k <= StringLit
}

// Token is one lexeme. Text holds identifiers in NFC form and string
// literals already unescaped.
type Token struct {
	Kind Kind
	Span source.Span
	Text string
}

// Is reports whether t is the identifier word.
func (t Token) Is(word string) bool {
	return t.Kind == Ident && t.Text == word
}

func (t Token) String() string {
	switch t.Kind {
	case Ident:
		return fmt.Sprintf("'%s'", t.Text)
	case StringLit:
		return fmt.Sprintf("%q", t.Text)
	}
	if t.Kind.IsLiteral() {
		return t.Text
	}
	return t.Kind.String()
}

// keywords cannot be used as declared names.
var keywords = map[string]struct{}{
	"behaviour": {},
	"using":     {},
	"extern":    {},
	"field":     {},
	"method":    {},
	"returns":   {},
	"end":       {},
	"public":    {},
	"local":     {},
	"let":       {},
	"set":       {},
	"do":        {},
	"return":    {},
	"new":       {},
	"true":      {},
	"false":     {},
	"null":      {},
}

func isKeyword(word string) bool {
	_, ok := keywords[word]
	return ok
}
