package script

import (
	"fmt"
	"strconv"
	"strings"

	"udonsharp/internal/diag"
	"udonsharp/internal/source"
)

type Options struct {
	Reporter diag.Reporter
	// MaxErrors stops reporting after this many errors; zero means no limit.
	MaxErrors uint
}

// Parser holds the state of parsing one file.
type Parser struct {
	file     *source.File
	toks     []Token
	pos      int
	opts     Options
	errors   uint
	lastSpan source.Span
}

// Parse reads an access script. The returned file is usable only when ok
// is true; otherwise the reporter received at least one error.
func Parse(file *source.File, opts Options) (*File, bool) {
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	p := &Parser{file: file, opts: opts}
	p.toks = Tokenize(file, countingReporter{p})
	out := p.parseFile()
	return out, p.errors == 0
}

// countingReporter lets lexer errors count towards MaxErrors.
type countingReporter struct{ p *Parser }

func (r countingReporter) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note) {
	r.p.report(code, sev, primary, msg)
}

func (p *Parser) peek() Token { return p.peekAt(0) }

func (p *Parser) peekAt(n int) Token {
	if i := p.pos + n; i < len(p.toks) {
		return p.toks[i]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) at(k Kind) bool { return p.peek().Kind == k }

func (p *Parser) atWord(word string) bool { return p.peek().Is(word) }

func (p *Parser) advance() Token {
	tok := p.peek()
	if tok.Kind != EOF {
		p.pos++
		if tok.Kind != Newline {
			p.lastSpan = tok.Span
		}
	}
	return tok
}

func (p *Parser) report(code diag.Code, sev diag.Severity, sp source.Span, msg string) {
	if sev == diag.SevError {
		p.errors++
		if p.opts.MaxErrors != 0 && p.errors > p.opts.MaxErrors {
			return
		}
	}
	p.opts.Reporter.Report(code, sev, sp, msg, nil)
}

func (p *Parser) errAt(code diag.Code, sp source.Span, format string, args ...any) {
	p.report(code, diag.SevError, sp, fmt.Sprintf(format, args...))
}

// diagSpan points at the next token, or just past the last one when the
// next token is a line break.
func (p *Parser) diagSpan() source.Span {
	tok := p.peek()
	if (tok.Kind == Newline || tok.Kind == EOF) && p.lastSpan.End > 0 {
		return source.Span{File: p.lastSpan.File, Start: p.lastSpan.End, End: p.lastSpan.End}
	}
	return tok.Span
}

func (p *Parser) expect(k Kind, code diag.Code, what string) (Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	p.errAt(code, p.diagSpan(), "expected %s, found %s", what, p.peek())
	return Token{Kind: Invalid, Span: p.diagSpan()}, false
}

// expectName reads an identifier usable as a declared name.
func (p *Parser) expectName(what string) (Token, bool) {
	tok := p.peek()
	if tok.Kind != Ident {
		p.errAt(diag.SynExpectIdentifier, p.diagSpan(), "expected %s name, found %s", what, tok)
		return tok, false
	}
	if isKeyword(tok.Text) {
		p.errAt(diag.SynExpectIdentifier, tok.Span, "'%s' is a keyword and cannot be used as a %s name", tok.Text, what)
		return tok, false
	}
	return p.advance(), true
}

// endLine requires the current line to be finished.
func (p *Parser) endLine() bool {
	switch p.peek().Kind {
	case Newline:
		p.advance()
		return true
	case EOF:
		return true
	}
	p.errAt(diag.SynUnexpectedToken, p.peek().Span, "expected end of line, found %s", p.peek())
	p.skipLine()
	return false
}

// skipLine drops the rest of the current line, newline included.
func (p *Parser) skipLine() {
	for !p.at(EOF) {
		if p.advance().Kind == Newline {
			return
		}
	}
}

func (p *Parser) skipNewlines() {
	for p.at(Newline) {
		p.advance()
	}
}

func (p *Parser) spanFrom(start source.Span) source.Span {
	return start.Cover(p.lastSpan)
}

func (p *Parser) parseFile() *File {
	out := &File{}
	for {
		p.skipNewlines()
		if p.at(EOF) {
			break
		}
		tok := p.peek()
		switch {
		case tok.Is("using"):
			p.parseUsing(out)
		case tok.Is("behaviour"):
			p.parseBehaviour(out)
		case tok.Is("extern"):
			if ext, ok := p.parseExtern(); ok {
				out.Externs = append(out.Externs, ext)
			}
		case tok.Is("field"):
			if f, ok := p.parseField(true); ok {
				out.Fields = append(out.Fields, f)
			}
		case tok.Is("method"):
			if m, ok := p.parseMethod(true); ok {
				out.Methods = append(out.Methods, m)
			}
		case isStatementWord(tok):
			p.errAt(diag.SynStatementOutside, tok.Span, "'%s' statements are only valid inside a method body", tok.Text)
			p.skipLine()
		case tok.Is("end"):
			p.errAt(diag.SynUnexpectedToken, tok.Span, "'end' without an open block")
			p.skipLine()
		default:
			p.errAt(diag.SynUnexpectedToken, tok.Span, "expected a declaration, found %s", tok)
			p.skipLine()
		}
	}
	if out.Behaviour == "" {
		sp := source.Span{File: p.file.ID}
		p.errAt(diag.SynMissingBehaviour, sp, "script does not declare a behaviour")
	}
	return out
}

func isStatementWord(tok Token) bool {
	switch {
	case tok.Is("local"), tok.Is("let"), tok.Is("set"), tok.Is("do"), tok.Is("return"):
		return true
	}
	return false
}

func (p *Parser) parseUsing(out *File) {
	p.advance()
	name, ok := p.parseDotted()
	if !ok {
		p.skipLine()
		return
	}
	out.Usings = append(out.Usings, name)
	p.endLine()
}

func (p *Parser) parseDotted() (string, bool) {
	first, ok := p.expect(Ident, diag.SynExpectIdentifier, "a name")
	if !ok {
		return "", false
	}
	parts := []string{first.Text}
	for p.at(Dot) && p.peekAt(1).Kind == Ident {
		p.advance()
		parts = append(parts, p.advance().Text)
	}
	return strings.Join(parts, "."), true
}

func (p *Parser) parseBehaviour(out *File) {
	kw := p.advance()
	name, ok := p.expectName("behaviour")
	if !ok {
		p.skipLine()
		return
	}
	if out.Behaviour != "" {
		p.errAt(diag.SynDuplicateDecl, p.spanFrom(kw.Span), "behaviour '%s' is already declared; a script compiles exactly one behaviour", out.Behaviour)
		p.skipLine()
		return
	}
	out.Behaviour = name.Text
	out.BehaviourSpan = name.Span
	p.endLine()
}

func (p *Parser) parseExtern() (*ExternDecl, bool) {
	kw := p.advance()
	name, ok := p.expectName("behaviour")
	if !ok {
		p.skipLine()
		return nil, false
	}
	ext := &ExternDecl{Name: name.Text, Span: p.spanFrom(kw.Span)}
	p.endLine()
	for {
		p.skipNewlines()
		tok := p.peek()
		switch {
		case tok.Kind == EOF:
			p.errAt(diag.SynMissingEnd, ext.Span, "extern '%s' is missing 'end'", ext.Name)
			return ext, true
		case tok.Is("end"):
			p.advance()
			p.endLine()
			return ext, true
		case tok.Is("field"):
			if f, ok := p.parseField(false); ok {
				ext.Fields = append(ext.Fields, f)
			}
		case tok.Is("method"):
			if m, ok := p.parseMethod(false); ok {
				ext.Methods = append(ext.Methods, m)
			}
		case tok.Is("extern"), tok.Is("behaviour"):
			p.errAt(diag.SynMissingEnd, ext.Span, "extern '%s' is missing 'end'", ext.Name)
			return ext, true
		default:
			p.errAt(diag.SynUnexpectedToken, tok.Span, "expected 'field', 'method' or 'end' in extern '%s', found %s", ext.Name, tok)
			p.skipLine()
		}
	}
}

// parseField reads field [public] T name [= literal]. Extern fields take
// neither a modifier nor a value.
func (p *Parser) parseField(own bool) (*FieldDecl, bool) {
	kw := p.advance()
	f := &FieldDecl{}
	if own && p.atWord("public") {
		p.advance()
		f.Public = true
	}
	typ, ok := p.parseType()
	if !ok {
		p.skipLine()
		return nil, false
	}
	f.Type = typ
	name, ok := p.expectName("field")
	if !ok {
		p.skipLine()
		return nil, false
	}
	f.Name = name.Text
	if own && p.at(Assign) {
		p.advance()
		lit, ok := p.parseLiteral()
		if !ok {
			p.skipLine()
			return nil, false
		}
		f.Init = lit
	}
	f.Span = p.spanFrom(kw.Span)
	if !p.endLine() {
		return nil, false
	}
	return f, true
}

// parseMethod reads a method header and, for the behaviour's own methods,
// its body up to 'end'.
func (p *Parser) parseMethod(own bool) (*MethodDecl, bool) {
	kw := p.advance()
	m := &MethodDecl{}
	if own && p.atWord("public") {
		p.advance()
		m.Public = true
	}
	name, ok := p.expectName("method")
	if !ok {
		p.skipLine()
		return nil, false
	}
	m.Name = name.Text
	if !p.parseParams(m) {
		p.skipLine()
		return nil, false
	}
	if p.atWord("returns") {
		p.advance()
		ret, ok := p.parseType()
		if !ok {
			p.skipLine()
			return nil, false
		}
		m.Return = &ret
	}
	m.Span = p.spanFrom(kw.Span)
	if !p.endLine() {
		return nil, false
	}
	if own {
		p.parseBody(m)
	}
	return m, true
}

func (p *Parser) parseParams(m *MethodDecl) bool {
	if _, ok := p.expect(LParen, diag.SynUnexpectedToken, "'('"); !ok {
		return false
	}
	for !p.at(RParen) {
		if len(m.Params) > 0 {
			if _, ok := p.expect(Comma, diag.SynUnexpectedToken, "',' or ')'"); !ok {
				return false
			}
		}
		typ, ok := p.parseType()
		if !ok {
			return false
		}
		name, ok := p.expectName("parameter")
		if !ok {
			return false
		}
		m.Params = append(m.Params, Param{Type: typ, Name: name.Text, Span: typ.Span.Cover(name.Span)})
	}
	p.advance()
	return true
}

func (p *Parser) parseBody(m *MethodDecl) {
	for {
		p.skipNewlines()
		tok := p.peek()
		switch {
		case tok.Kind == EOF:
			p.errAt(diag.SynMissingEnd, m.Span, "method '%s' is missing 'end'", m.Name)
			return
		case tok.Is("end"):
			p.advance()
			p.endLine()
			return
		case tok.Is("method"), tok.Is("field"), tok.Is("extern"), tok.Is("behaviour"):
			p.errAt(diag.SynMissingEnd, m.Span, "method '%s' is missing 'end'", m.Name)
			return
		}
		if st, ok := p.parseStmt(); ok {
			m.Body = append(m.Body, st)
		}
	}
}

func (p *Parser) parseStmt() (Stmt, bool) {
	tok := p.peek()
	var (
		st Stmt
		ok bool
	)
	switch {
	case tok.Is("local"):
		st, ok = p.parseLocal()
	case tok.Is("let"):
		st, ok = p.parseLet()
	case tok.Is("set"):
		st, ok = p.parseSet()
	case tok.Is("do"):
		p.advance()
		var call Expr
		if call, ok = p.parseExpr(); ok {
			st = &DoStmt{Call: call, Span: p.spanFrom(tok.Span)}
		}
	case tok.Is("return"):
		p.advance()
		ret := &ReturnStmt{}
		ok = true
		if !p.at(Newline) && !p.at(EOF) {
			ret.Value, ok = p.parseExpr()
		}
		ret.Span = p.spanFrom(tok.Span)
		st = ret
	default:
		p.errAt(diag.SynUnknownStatement, tok.Span, "expected a statement (local, let, set, do, return), found %s", tok)
	}
	if !ok {
		p.skipLine()
		return nil, false
	}
	if !p.endLine() {
		return nil, false
	}
	return st, true
}

func (p *Parser) parseLocal() (Stmt, bool) {
	kw := p.advance()
	typ, ok := p.parseType()
	if !ok {
		return nil, false
	}
	name, ok := p.expectName("local")
	if !ok {
		return nil, false
	}
	st := &LocalStmt{Type: typ, Name: name.Text}
	if p.at(Assign) {
		p.advance()
		if st.Value, ok = p.parseExpr(); !ok {
			return nil, false
		}
	}
	st.Span = p.spanFrom(kw.Span)
	return st, true
}

func (p *Parser) parseLet() (Stmt, bool) {
	kw := p.advance()
	name, ok := p.expectName("local")
	if !ok {
		return nil, false
	}
	if _, ok := p.expect(Assign, diag.SynUnexpectedToken, "'='"); !ok {
		return nil, false
	}
	value, ok := p.parseExpr()
	if !ok {
		return nil, false
	}
	return &LetStmt{Name: name.Text, Value: value, Span: p.spanFrom(kw.Span)}, true
}

func (p *Parser) parseSet() (Stmt, bool) {
	kw := p.advance()
	if !p.at(Ident) || isKeyword(p.peek().Text) {
		p.errAt(diag.SynExpectIdentifier, p.diagSpan(), "expected an assignment target, found %s", p.peek())
		return nil, false
	}
	target, ok := p.parseChain()
	if !ok {
		return nil, false
	}
	if target.EndsInCall() {
		p.errAt(diag.SynUnexpectedToken, target.Span, "the left-hand side of an assignment must be a variable, property or indexer")
		return nil, false
	}
	if _, ok := p.expect(Assign, diag.SynUnexpectedToken, "'='"); !ok {
		return nil, false
	}
	value, ok := p.parseExpr()
	if !ok {
		return nil, false
	}
	return &SetStmt{Target: target, Value: value, Span: p.spanFrom(kw.Span)}, true
}

// parseType reads keyword or dotted names with "[]" suffixes. A '[' that is
// not immediately closed is left for the caller.
func (p *Parser) parseType() (TypeRef, bool) {
	tok := p.peek()
	if tok.Kind != Ident || isKeyword(tok.Text) {
		p.errAt(diag.SynExpectType, p.diagSpan(), "expected a type, found %s", tok)
		return TypeRef{}, false
	}
	name, _ := p.parseDotted()
	ref := TypeRef{Name: name}
	for p.at(LBracket) && p.peekAt(1).Kind == RBracket {
		p.advance()
		p.advance()
		ref.Dims++
	}
	ref.Span = p.spanFrom(tok.Span)
	return ref, true
}

func (p *Parser) parseTypeArgs() ([]TypeRef, bool) {
	p.advance()
	var out []TypeRef
	for {
		t, ok := p.parseType()
		if !ok {
			return nil, false
		}
		out = append(out, t)
		if !p.at(Comma) {
			break
		}
		p.advance()
	}
	if _, ok := p.expect(Gt, diag.SynUnexpectedToken, "'>'"); !ok {
		return nil, false
	}
	return out, true
}

func (p *Parser) parseExpr() (Expr, bool) {
	tok := p.peek()
	switch {
	case tok.Kind.IsLiteral(), tok.Is("true"), tok.Is("false"), tok.Is("null"):
		return p.parseLiteral()
	case tok.Is("new"):
		return p.parseNew()
	case tok.Kind == LParen:
		return p.parseCast()
	case tok.Kind == Ident && !isKeyword(tok.Text):
		return p.parseChain()
	}
	p.errAt(diag.SynExpectExpression, p.diagSpan(), "expected an expression, found %s", tok)
	return nil, false
}

func (p *Parser) parseLiteral() (*Literal, bool) {
	tok := p.peek()
	lit := &Literal{Span: tok.Span}
	var err error
	switch {
	case tok.Kind == IntLit:
		var v int64
		v, err = strconv.ParseInt(tok.Text, 10, 32)
		lit.Kind, lit.Value = LitInt, int32(v) // #nosec G115 -- parsed with bitSize 32
	case tok.Kind == LongLit:
		var v int64
		v, err = strconv.ParseInt(tok.Text, 10, 64)
		lit.Kind, lit.Value = LitLong, v
	case tok.Kind == FloatLit:
		var v float64
		v, err = strconv.ParseFloat(tok.Text, 32)
		lit.Kind, lit.Value = LitFloat, float32(v)
	case tok.Kind == DoubleLit:
		var v float64
		v, err = strconv.ParseFloat(tok.Text, 64)
		lit.Kind, lit.Value = LitDouble, v
	case tok.Kind == StringLit:
		lit.Kind, lit.Value = LitString, tok.Text
	case tok.Is("true"), tok.Is("false"):
		lit.Kind, lit.Value = LitBool, tok.Text == "true"
	case tok.Is("null"):
		lit.Kind, lit.Value = LitNull, nil
	default:
		p.errAt(diag.SynExpectExpression, p.diagSpan(), "expected a literal, found %s", tok)
		return nil, false
	}
	p.advance()
	if err != nil {
		p.errAt(diag.SynBadLiteral, tok.Span, "%s %s is out of range", tok.Kind, tok.Text)
		return nil, false
	}
	return lit, true
}

func (p *Parser) parseNew() (Expr, bool) {
	kw := p.advance()
	typ, ok := p.parseType()
	if !ok {
		return nil, false
	}
	switch p.peek().Kind {
	case LParen:
		args, ok := p.parseArgs()
		if !ok {
			return nil, false
		}
		return &NewExpr{Type: typ, Args: args, Span: p.spanFrom(kw.Span)}, true
	case LBracket:
		p.advance()
		length, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		if _, ok := p.expect(RBracket, diag.SynUnexpectedToken, "']'"); !ok {
			return nil, false
		}
		return &NewArrayExpr{Elem: typ, Len: length, Span: p.spanFrom(kw.Span)}, true
	}
	p.errAt(diag.SynUnexpectedToken, p.diagSpan(), "expected '(' or '[' after 'new %s', found %s", typ, p.peek())
	return nil, false
}

func (p *Parser) parseCast() (Expr, bool) {
	open := p.advance()
	typ, ok := p.parseType()
	if !ok {
		return nil, false
	}
	if _, ok := p.expect(RParen, diag.SynUnexpectedToken, "')'"); !ok {
		return nil, false
	}
	x, ok := p.parseExpr()
	if !ok {
		return nil, false
	}
	return &CastExpr{Type: typ, X: x, Span: p.spanFrom(open.Span)}, true
}

func (p *Parser) parseArgs() ([]Expr, bool) {
	p.advance()
	var args []Expr
	for !p.at(RParen) {
		if len(args) > 0 {
			if _, ok := p.expect(Comma, diag.SynUnexpectedToken, "',' or ')'"); !ok {
				return nil, false
			}
		}
		arg, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		args = append(args, arg)
	}
	p.advance()
	return args, true
}

func (p *Parser) parseChain() (*ChainExpr, bool) {
	first := p.advance()
	chain := &ChainExpr{Links: []Link{{Kind: LinkName, Name: first.Text, Span: first.Span}}}
	if !p.parseGeneric(chain) {
		return nil, false
	}
	for {
		switch p.peek().Kind {
		case Dot:
			p.advance()
			name, ok := p.expect(Ident, diag.SynExpectIdentifier, "a member name")
			if !ok {
				return nil, false
			}
			chain.Links = append(chain.Links, Link{Kind: LinkName, Name: name.Text, Span: name.Span})
			if !p.parseGeneric(chain) {
				return nil, false
			}
		case LBracket:
			open := p.advance()
			index, ok := p.parseExpr()
			if !ok {
				return nil, false
			}
			if _, ok := p.expect(RBracket, diag.SynUnexpectedToken, "']'"); !ok {
				return nil, false
			}
			chain.Links = append(chain.Links, Link{Kind: LinkIndex, Index: index, Span: p.spanFrom(open.Span)})
		case LParen:
			open := p.peek()
			args, ok := p.parseArgs()
			if !ok {
				return nil, false
			}
			chain.Links = append(chain.Links, Link{Kind: LinkCall, Args: args, Span: p.spanFrom(open.Span)})
		default:
			chain.Span = p.spanFrom(first.Span)
			return chain, true
		}
	}
}

// parseGeneric attaches <T, ...> to the last name of the chain.
func (p *Parser) parseGeneric(chain *ChainExpr) bool {
	if !p.at(Lt) {
		return true
	}
	args, ok := p.parseTypeArgs()
	if !ok {
		return false
	}
	last := &chain.Links[len(chain.Links)-1]
	last.Generic = args
	last.Span = p.spanFrom(last.Span)
	return true
}
