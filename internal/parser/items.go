package parser

import (
	"baml/internal/ast"
	"baml/internal/diag"
	"baml/internal/lexer"
	"baml/internal/token"
)

func (p *Parser) parseItem() (*ast.Item, bool) {
	switch p.peek().Kind {
	case token.KwClass:
		return p.parseClass()
	case token.KwEnum:
		return p.parseEnum()
	case token.KwFunction:
		fn, ok := p.parseFunction(false)
		if !ok {
			return nil, false
		}
		return &ast.Item{Kind: ast.ItemFunction, Name: fn.Name, NameSpan: fn.NameSpan, Span: fn.Span, Data: fn}, true
	default:
		p.err(diag.SynUnexpectedTopLevel, "expected class, enum or function")
		p.advance()
		return nil, false
	}
}

// class Name { field Type  function m(self) -> T { ... } }
func (p *Parser) parseClass() (*ast.Item, bool) {
	start := p.advance().Span
	name, ok := p.parseIdent()
	if !ok {
		return nil, false
	}
	if _, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{' after class name"); !ok {
		return nil, false
	}
	data := &ast.ClassData{}
	for !p.atOr(token.RBrace, token.EOF) {
		if p.at(token.KwFunction) {
			fn, ok := p.parseFunction(true)
			if !ok {
				p.resyncStmt()
				continue
			}
			data.Methods = append(data.Methods, fn)
			continue
		}
		fname, ok := p.parseIdent()
		if !ok {
			p.advance()
			continue
		}
		p.eat(token.Colon)
		typ := p.parseType()
		data.Fields = append(data.Fields, ast.FieldDecl{Name: fname.Text, Type: typ, Span: p.spanFrom(fname.Span)})
		p.skipAttributes()
		p.eat(token.Comma)
	}
	p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' to close class")
	return &ast.Item{Kind: ast.ItemClass, Name: name.Text, NameSpan: name.Span, Span: p.spanFrom(start), Data: data}, true
}

// skipAttributes drops @description("...") style field attributes.
func (p *Parser) skipAttributes() {
	for p.at(token.At) {
		p.advance()
		p.eat(token.At)
		p.parseIdent()
		if p.at(token.LParen) {
			depth := 0
			for !p.at(token.EOF) {
				t := p.advance()
				if t.Kind == token.LParen {
					depth++
				} else if t.Kind == token.RParen {
					depth--
					if depth == 0 {
						break
					}
				}
			}
		}
	}
}

func (p *Parser) parseEnum() (*ast.Item, bool) {
	start := p.advance().Span
	name, ok := p.parseIdent()
	if !ok {
		return nil, false
	}
	if _, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{' after enum name"); !ok {
		return nil, false
	}
	data := &ast.EnumData{}
	for !p.atOr(token.RBrace, token.EOF) {
		v, ok := p.parseIdent()
		if !ok {
			p.advance()
			continue
		}
		data.Variants = append(data.Variants, ast.Variant{Name: v.Text, Span: v.Span})
		p.skipAttributes()
		p.eat(token.Comma)
	}
	p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' to close enum")
	return &ast.Item{Kind: ast.ItemEnum, Name: name.Text, NameSpan: name.Span, Span: p.spanFrom(start), Data: data}, true
}

// function name(p: T, ...) -> R { body }
func (p *Parser) parseFunction(method bool) (*ast.FuncDecl, bool) {
	start := p.advance().Span
	name, ok := p.parseIdent()
	if !ok {
		return nil, false
	}
	fn := &ast.FuncDecl{Name: name.Text, NameSpan: name.Span}
	if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken, "expected '(' after function name"); !ok {
		return nil, false
	}
	for !p.atOr(token.RParen, token.EOF) {
		pname, ok := p.parseIdent()
		if !ok {
			return nil, false
		}
		if method && pname.Text == "self" && len(fn.Params) == 0 && !fn.HasSelf && !p.at(token.Colon) {
			fn.HasSelf = true
		} else {
			p.expect(token.Colon, diag.SynExpectColon, "expected ':' after parameter name")
			typ := p.parseType()
			fn.Params = append(fn.Params, ast.Param{Name: pname.Text, Type: typ, Span: p.spanFrom(pname.Span)})
		}
		if !p.eat(token.Comma) {
			break
		}
	}
	if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' after parameters"); !ok {
		return nil, false
	}
	if p.eat(token.Arrow) {
		fn.Result = p.parseType()
	}
	if !p.at(token.LBrace) {
		p.err(diag.SynUnexpectedToken, "expected function body")
		return nil, false
	}
	if p.peekN(1).Kind == token.KwClient {
		fn.Llm = p.parseLlmBody()
	} else {
		fn.Body = p.parseBlock()
	}
	fn.Span = p.spanFrom(start)
	return fn, true
}

// { client "provider/model" prompt #"..."# }
func (p *Parser) parseLlmBody() *ast.LlmBody {
	start := p.advance().Span // {
	p.advance()               // client
	body := &ast.LlmBody{}
	p.eat(token.Lt) // client<llm>
	if p.at(token.Ident) && p.peekN(1).Kind == token.Gt {
		p.advance()
		p.advance()
	}
	switch t := p.peek(); t.Kind {
	case token.StringLit:
		p.advance()
		body.Client, _ = lexer.Unquote(t.Text)
	case token.Ident:
		var path string
		for {
			id, _ := p.parseIdent()
			path += id.Text
			if !p.eat(token.Slash) && !p.eat(token.Dot) {
				break
			}
			path += "/"
		}
		body.Client = path
	default:
		p.err(diag.SynBadLlmBody, "expected client name")
	}
	if _, ok := p.expect(token.KwPrompt, diag.SynBadLlmBody, "expected 'prompt' after client"); ok {
		switch t := p.peek(); t.Kind {
		case token.RawStringLit:
			p.advance()
			body.Prompt = lexer.RawContent(t.Text)
		case token.StringLit:
			p.advance()
			body.Prompt, _ = lexer.Unquote(t.Text)
		default:
			p.err(diag.SynBadLlmBody, "expected prompt string")
		}
	}
	for !p.atOr(token.RBrace, token.EOF) {
		p.advance()
	}
	p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' to close function body")
	body.Span = p.spanFrom(start)
	return body
}
