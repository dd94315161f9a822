package parser

import (
	"baml/internal/ast"
	"baml/internal/diag"
	"baml/internal/lexer"
	"baml/internal/source"
	"baml/internal/token"
)

// parseType parses a type expression:
//
//	union    := postfix ('|' postfix)*
//	postfix  := primary ('[]' | '?')*
//	primary  := name ('.' name)* ('<' type (',' type)* '>')? | '(' type ')' | '(' params ')' '->' type | "lit"
func (p *Parser) parseType() *ast.TypeExpr {
	start := p.peek().Span
	first := p.parseTypePostfix()
	if !p.at(token.Pipe) {
		return first
	}
	members := []*ast.TypeExpr{first}
	for p.eat(token.Pipe) {
		members = append(members, p.parseTypePostfix())
	}
	return &ast.TypeExpr{Kind: ast.TypeUnion, Args: members, Span: p.spanFrom(start)}
}

func (p *Parser) parseTypePostfix() *ast.TypeExpr {
	start := p.peek().Span
	t := p.parseTypePrimary()
	for {
		switch {
		case p.at(token.LBracket) && p.peekN(1).Kind == token.RBracket:
			p.advance()
			p.advance()
			t = &ast.TypeExpr{Kind: ast.TypeList, Args: []*ast.TypeExpr{t}, Span: p.spanFrom(start)}
		case p.at(token.Question):
			p.advance()
			t = &ast.TypeExpr{Kind: ast.TypeOptional, Args: []*ast.TypeExpr{t}, Span: p.spanFrom(start)}
		default:
			return t
		}
	}
}

func (p *Parser) parseTypePrimary() *ast.TypeExpr {
	start := p.peek().Span
	switch t := p.peek(); t.Kind {
	case token.KwNull:
		p.advance()
		return &ast.TypeExpr{Kind: ast.TypeNamed, Name: "null", Span: t.Span}
	case token.StringLit:
		p.advance()
		s, _ := lexer.Unquote(t.Text)
		return &ast.TypeExpr{Kind: ast.TypeStringLit, Name: s, Span: t.Span}
	case token.LParen:
		p.advance()
		var params []*ast.TypeExpr
		for !p.atOr(token.RParen, token.EOF) {
			// named arrow params: (x: int) -> bool
			if p.at(token.Ident) && p.peekN(1).Kind == token.Colon {
				p.advance()
				p.advance()
			}
			params = append(params, p.parseType())
			if !p.eat(token.Comma) {
				break
			}
		}
		p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' in type")
		if p.eat(token.Arrow) {
			ret := p.parseType()
			return &ast.TypeExpr{Kind: ast.TypeArrow, Args: params, Ret: ret, Span: p.spanFrom(start)}
		}
		if len(params) == 1 {
			return params[0]
		}
		p.report(diag.SynExpectType, p.spanFrom(start), "expected '->' after parameter types")
		return &ast.TypeExpr{Kind: ast.TypeNamed, Name: "<error>", Span: p.spanFrom(start)}
	case token.Ident:
		p.advance()
		name := t.Text
		for p.at(token.Dot) && p.peekN(1).Kind == token.Ident {
			p.advance()
			name += "." + p.advance().Text
		}
		te := &ast.TypeExpr{Kind: ast.TypeNamed, Name: name}
		if p.at(token.Lt) {
			p.advance()
			for !p.atOr(token.Gt, token.Shr, token.EOF) {
				te.Args = append(te.Args, p.parseType())
				if !p.eat(token.Comma) {
					break
				}
			}
			p.closeAngle()
		}
		te.Span = p.spanFrom(start)
		return te
	default:
		p.err(diag.SynExpectType, "expected type")
		return &ast.TypeExpr{Kind: ast.TypeNamed, Name: "<error>", Span: p.diagSpan()}
	}
}

// closeAngle consumes '>' splitting a '>>' token in two when needed.
func (p *Parser) closeAngle() bool {
	t := p.peek()
	switch t.Kind {
	case token.Gt:
		p.advance()
		return true
	case token.Shr:
		p.lastSpan = source.Span{File: t.Span.File, Start: t.Span.Start, End: t.Span.Start + 1}
		p.buf[0] = token.Token{
			Kind: token.Gt,
			Span: source.Span{File: t.Span.File, Start: t.Span.Start + 1, End: t.Span.End},
			Text: ">",
		}
		return true
	}
	p.err(diag.SynUnclosedDelimiter, "expected '>'")
	return false
}

// looksLikeTypeArgs scans ahead from '<' and reports whether it closes with
// '>' immediately followed by '('.
func (p *Parser) looksLikeTypeArgs() bool {
	if !p.at(token.Lt) {
		return false
	}
	depth := 0
	for i := 0; i < 64; i++ {
		switch p.peekN(i).Kind {
		case token.Lt:
			depth++
		case token.Gt:
			depth--
		case token.Shr:
			depth -= 2
		case token.Ident, token.Dot, token.Comma, token.LBracket, token.RBracket,
			token.Question, token.Pipe, token.KwNull, token.StringLit:
		default:
			return false
		}
		if depth <= 0 {
			return depth == 0 && p.peekN(i+1).Kind == token.LParen
		}
	}
	return false
}
