package parser

import (
	"slices"

	"baml/internal/ast"
	"baml/internal/diag"
	"baml/internal/lexer"
	"baml/internal/source"
	"baml/internal/token"
)

type Options struct {
	MaxErrors     uint
	CurrentErrors uint
	Reporter      diag.Reporter
}

// Enough reports whether the error limit has been reached.
func (o *Options) Enough() bool {
	if o.MaxErrors == 0 {
		return false
	}
	return o.CurrentErrors >= o.MaxErrors
}

// Parser holds the state for one file.
type Parser struct {
	lx       *lexer.Lexer
	file     *source.File
	buf      []token.Token // lookahead window
	opts     Options
	lastSpan source.Span
}

// ParseFile parses one file. Diagnostics go to opts.Reporter; the returned
// tree is always non-nil and contains every item that could be recovered.
func ParseFile(file *source.File, opts Options) *ast.File {
	p := &Parser{
		lx:   lexer.New(file, lexer.Options{Reporter: opts.Reporter}),
		file: file,
		opts: opts,
	}
	out := &ast.File{ID: file.ID}
	start := p.peek().Span
	for !p.at(token.EOF) {
		if p.opts.Enough() {
			break
		}
		item, ok := p.parseItem()
		if !ok {
			p.resyncTop()
			continue
		}
		out.Items = append(out.Items, item)
	}
	out.Span = start.Cover(p.peek().Span)
	return out
}

func (p *Parser) peekN(n int) token.Token {
	for len(p.buf) <= n {
		t := p.lx.Next()
		p.buf = append(p.buf, t)
		if t.Kind == token.EOF {
			for len(p.buf) <= n {
				p.buf = append(p.buf, t)
			}
		}
	}
	return p.buf[n]
}

func (p *Parser) peek() token.Token {
	return p.peekN(0)
}

func (p *Parser) at(k token.Kind) bool {
	return p.peek().Kind == k
}

func (p *Parser) atOr(kinds ...token.Kind) bool {
	return slices.Contains(kinds, p.peek().Kind)
}

// advance consumes the next token.
func (p *Parser) advance() token.Token {
	t := p.peek()
	if t.Kind != token.EOF {
		p.buf = p.buf[1:]
	}
	if t.Kind != token.EOF && t.Kind != token.Invalid {
		p.lastSpan = t.Span
	}
	return t
}

func (p *Parser) eat(k token.Kind) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) diagSpan() source.Span {
	t := p.peek()
	if t.Kind == token.EOF && p.lastSpan.End > 0 {
		return source.Span{File: p.lastSpan.File, Start: p.lastSpan.End, End: p.lastSpan.End}
	}
	return t.Span
}

// expect consumes k or reports code and returns false.
func (p *Parser) expect(k token.Kind, code diag.Code, msg string) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	sp := p.diagSpan()
	p.report(code, sp, msg)
	return token.Token{Kind: token.Invalid, Span: sp}, false
}

func (p *Parser) err(code diag.Code, msg string) {
	p.report(code, p.diagSpan(), msg)
}

func (p *Parser) report(code diag.Code, sp source.Span, msg string) {
	p.opts.CurrentErrors++
	if p.opts.Reporter == nil || (p.opts.MaxErrors > 0 && p.opts.CurrentErrors > p.opts.MaxErrors) {
		return
	}
	diag.ReportError(p.opts.Reporter, code, sp, msg).Emit()
}

func (p *Parser) spanFrom(start source.Span) source.Span {
	return start.Cover(p.lastSpan)
}

// resyncTop skips to the next top-level starter.
func (p *Parser) resyncTop() {
	for !p.at(token.EOF) {
		switch p.peek().Kind {
		case token.KwClass, token.KwEnum, token.KwFunction:
			return
		}
		p.advance()
	}
}

// resyncStmt skips to the end of the current statement inside a block.
func (p *Parser) resyncStmt() {
	depth := 0
	for !p.at(token.EOF) {
		switch p.peek().Kind {
		case token.Semicolon:
			if depth == 0 {
				p.advance()
				return
			}
		case token.LBrace, token.LParen, token.LBracket:
			depth++
		case token.RParen, token.RBracket:
			if depth > 0 {
				depth--
			}
		case token.RBrace:
			if depth == 0 {
				return
			}
			depth--
		case token.KwLet, token.KwWatch, token.KwReturn, token.KwWhile, token.KwFor:
			if depth == 0 {
				return
			}
		}
		p.advance()
	}
}

func (p *Parser) parseIdent() (token.Token, bool) {
	if p.at(token.Ident) {
		return p.advance(), true
	}
	p.err(diag.SynExpectIdentifier, "expected identifier, got \""+p.peek().Kind.String()+"\"")
	return token.Token{Kind: token.Invalid, Span: p.diagSpan()}, false
}

// takeHeaders returns header comments leading the next token and detaches
// them so they are reported once.
func (p *Parser) takeHeaders() []*ast.Stmt {
	p.peek()
	t := &p.buf[0]
	var out []*ast.Stmt
	for _, tr := range t.Leading {
		if tr.Kind != token.TriviaHeader {
			continue
		}
		level, title := tr.HeaderLevel()
		out = append(out, &ast.Stmt{
			Kind: ast.StmtHeader,
			Span: tr.Span,
			Data: &ast.HeaderData{Level: level, Title: title},
		})
	}
	t.Leading = nil
	return out
}
