package script

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"

	"udonsharp/internal/diag"
	"udonsharp/internal/source"
)

// Lexer splits an access script into tokens. Newlines are significant;
// '#' starts a comment that runs to the end of the line.
type Lexer struct {
	file  *source.File
	off   uint32
	limit uint32
	rep   diag.Reporter
}

func NewLexer(file *source.File, rep diag.Reporter) *Lexer {
	limit, err := safecast.Conv[uint32](len(file.Content))
	if err != nil {
		panic(fmt.Errorf("len file content overflow: %w", err))
	}
	if rep == nil {
		rep = diag.NopReporter{}
	}
	return &Lexer{file: file, limit: limit, rep: rep}
}

// Tokenize lexes the whole file. The result always ends with EOF.
func Tokenize(file *source.File, rep diag.Reporter) []Token {
	lx := NewLexer(file, rep)
	var out []Token
	for {
		tok := lx.Next()
		out = append(out, tok)
		if tok.Kind == EOF {
			return out
		}
	}
}

// Next returns the next token. After EOF it keeps returning EOF.
func (lx *Lexer) Next() Token {
	lx.skipBlanks()
	if lx.eof() {
		return Token{Kind: EOF, Span: lx.span(lx.off)}
	}
	start := lx.off
	ch := lx.peek()
	switch {
	case ch == '\n':
		lx.off++
		return Token{Kind: Newline, Span: lx.span(start), Text: "\n"}
	case ch == '"':
		return lx.scanString()
	case isDigit(ch), ch == '-' && isDigit(lx.peekAt(1)):
		return lx.scanNumber()
	case ch == '_' || ch >= utf8.RuneSelf || unicode.IsLetter(rune(ch)):
		return lx.scanIdent()
	}
	lx.off++
	kind := Invalid
	switch ch {
	case '.':
		kind = Dot
	case ',':
		kind = Comma
	case '(':
		kind = LParen
	case ')':
		kind = RParen
	case '[':
		kind = LBracket
	case ']':
		kind = RBracket
	case '<':
		kind = Lt
	case '>':
		kind = Gt
	case '=':
		kind = Assign
	}
	tok := Token{Kind: kind, Span: lx.span(start), Text: string(ch)}
	if kind == Invalid {
		diag.ReportError(lx.rep, diag.SynUnexpectedToken, tok.Span, fmt.Sprintf("unexpected character %q", ch))
	}
	return tok
}

func (lx *Lexer) eof() bool { return lx.off >= lx.limit }

func (lx *Lexer) peek() byte { return lx.peekAt(0) }

func (lx *Lexer) peekAt(n uint32) byte {
	if lx.off+n >= lx.limit {
		return 0
	}
	return lx.file.Content[lx.off+n]
}

func (lx *Lexer) span(start uint32) source.Span {
	return source.Span{File: lx.file.ID, Start: start, End: lx.off}
}

func (lx *Lexer) text(start uint32) string {
	return string(lx.file.Content[start:lx.off])
}

// skipBlanks consumes spaces, tabs and comments but stops at newlines.
func (lx *Lexer) skipBlanks() {
	for !lx.eof() {
		switch lx.peek() {
		case ' ', '\t', '\r', '\f', '\v':
			lx.off++
		case '#':
			for !lx.eof() && lx.peek() != '\n' {
				lx.off++
			}
		default:
			return
		}
	}
}

func (lx *Lexer) scanIdent() Token {
	start := lx.off
	for !lx.eof() {
		r, size := utf8.DecodeRune(lx.file.Content[lx.off:lx.limit])
		if r == utf8.RuneError && size <= 1 {
			if lx.off == start {
				lx.off++
				sp := lx.span(start)
				diag.ReportError(lx.rep, diag.SynUnexpectedToken, sp, "invalid UTF-8 sequence")
				return Token{Kind: Invalid, Span: sp, Text: lx.text(start)}
			}
			break
		}
		if !isIdentRune(r, lx.off == start) {
			break
		}
		lx.off += uint32(size) // #nosec G115 -- size is at most utf8.UTFMax
	}
	if lx.off == start {
		lx.off++
		sp := lx.span(start)
		diag.ReportError(lx.rep, diag.SynUnexpectedToken, sp, fmt.Sprintf("unexpected character %q", lx.text(start)))
		return Token{Kind: Invalid, Span: sp, Text: lx.text(start)}
	}
	return Token{Kind: Ident, Span: lx.span(start), Text: norm.NFC.String(lx.text(start))}
}

func isIdentRune(r rune, first bool) bool {
	if r == '_' || unicode.IsLetter(r) {
		return true
	}
	if first {
		return false
	}
	return unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// scanNumber reads [-]digits[.digits][e[+-]digits] with an optional f, d
// or L suffix. A fraction without a suffix is a float.
func (lx *Lexer) scanNumber() Token {
	start := lx.off
	if lx.peek() == '-' {
		lx.off++
	}
	lx.digits()
	kind := IntLit
	if lx.peek() == '.' && isDigit(lx.peekAt(1)) {
		lx.off++
		lx.digits()
		kind = FloatLit
	}
	if c := lx.peek(); c == 'e' || c == 'E' {
		next := lx.peekAt(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(lx.peekAt(2))) {
			lx.off += 2
			lx.digits()
			kind = FloatLit
		}
	}
	digitsEnd := lx.off
	switch lx.peek() {
	case 'f', 'F':
		lx.off++
		kind = FloatLit
	case 'd', 'D':
		lx.off++
		kind = DoubleLit
	case 'L', 'l':
		if kind != IntLit {
			lx.off++
			sp := lx.span(start)
			diag.ReportError(lx.rep, diag.SynBadLiteral, sp, "a long literal cannot have a fraction or exponent")
			return Token{Kind: Invalid, Span: sp, Text: lx.text(start)}
		}
		lx.off++
		kind = LongLit
	}
	if c := lx.peek(); c == '_' || unicode.IsLetter(rune(c)) || isDigit(c) {
		for !lx.eof() && (lx.peek() == '_' || unicode.IsLetter(rune(lx.peek())) || isDigit(lx.peek())) {
			lx.off++
		}
		sp := lx.span(start)
		diag.ReportError(lx.rep, diag.SynBadLiteral, sp, fmt.Sprintf("malformed number %q", lx.text(start)))
		return Token{Kind: Invalid, Span: sp, Text: lx.text(start)}
	}
	return Token{Kind: kind, Span: lx.span(start), Text: string(lx.file.Content[start:digitsEnd])}
}

func (lx *Lexer) digits() {
	for isDigit(lx.peek()) {
		lx.off++
	}
}

func (lx *Lexer) scanString() Token {
	start := lx.off
	lx.off++
	var sb strings.Builder
	for {
		if lx.eof() || lx.peek() == '\n' {
			sp := lx.span(start)
			diag.ReportError(lx.rep, diag.SynUnterminated, sp, "unterminated string literal")
			return Token{Kind: Invalid, Span: sp, Text: lx.text(start)}
		}
		ch := lx.peek()
		lx.off++
		switch ch {
		case '"':
			return Token{Kind: StringLit, Span: lx.span(start), Text: sb.String()}
		case '\\':
			esc := lx.peek()
			escStart := lx.off - 1
			if esc != '\n' && !lx.eof() {
				lx.off++
			}
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			case '"', '\\':
				sb.WriteByte(esc)
			default:
				diag.ReportError(lx.rep, diag.SynBadLiteral, lx.span(escStart), fmt.Sprintf("unknown escape sequence \\%c", esc))
			}
		default:
			sb.WriteByte(ch)
		}
	}
}
