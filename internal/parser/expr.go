package parser

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"baml/internal/ast"
	"baml/internal/diag"
	"baml/internal/lexer"
	"baml/internal/token"
)

// Binary operator precedence, higher binds tighter.
const (
	precOr             = 1 // ||
	precAnd            = 2 // &&
	precEquality       = 3 // == !=
	precComparison     = 4 // < <= > >= instanceof
	precBitwiseOr      = 5 // |
	precBitwiseXor     = 6 // ^
	precBitwiseAnd     = 7 // &
	precShift          = 8 // << >>
	precAdditive       = 9 // + -
	precMultiplicative = 10
)

func binaryPrec(k token.Kind) int {
	switch k {
	case token.OrOr:
		return precOr
	case token.AndAnd:
		return precAnd
	case token.EqEq, token.BangEq:
		return precEquality
	case token.Lt, token.LtEq, token.Gt, token.GtEq, token.KwInstanceof:
		return precComparison
	case token.Pipe:
		return precBitwiseOr
	case token.Caret:
		return precBitwiseXor
	case token.Amp:
		return precBitwiseAnd
	case token.Shl, token.Shr:
		return precShift
	case token.Plus, token.Minus:
		return precAdditive
	case token.Star, token.Slash, token.Percent:
		return precMultiplicative
	}
	return 0
}

func isBinaryOp(k token.Kind) bool {
	return binaryPrec(k) > 0
}

func (p *Parser) parseExpr() *ast.Expr {
	return p.parseBinaryRHS(p.parseUnary(), precOr)
}

// parseBinaryRHS is precedence climbing over left-associative operators.
func (p *Parser) parseBinaryRHS(lhs *ast.Expr, minPrec int) *ast.Expr {
	for {
		op := p.peek().Kind
		prec := binaryPrec(op)
		if prec == 0 || prec < minPrec {
			return lhs
		}
		p.advance()

		if op == token.KwInstanceof {
			name, _ := p.parseIdent()
			lhs = &ast.Expr{
				Kind: ast.ExprInstanceof,
				Span: lhs.Span.Cover(name.Span),
				Data: &ast.InstanceofData{X: lhs, Class: name.Text, ClassSpan: name.Span},
			}
			continue
		}

		rhs := p.parseUnary()
		for next := binaryPrec(p.peek().Kind); next > prec; next = binaryPrec(p.peek().Kind) {
			rhs = p.parseBinaryRHS(rhs, prec+1)
		}
		lhs = &ast.Expr{
			Kind: ast.ExprBinary,
			Span: lhs.Span.Cover(rhs.Span),
			Data: &ast.BinaryData{Op: op, X: lhs, Y: rhs},
		}
	}
}

func (p *Parser) parseUnary() *ast.Expr {
	if p.atOr(token.Bang, token.Minus) {
		op := p.advance()
		x := p.parseUnary()
		return &ast.Expr{Kind: ast.ExprUnary, Span: op.Span.Cover(x.Span), Data: &ast.UnaryData{Op: op.Kind, X: x}}
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *Parser) parsePostfix(x *ast.Expr) *ast.Expr {
	for {
		switch {
		case p.at(token.Dot) && p.peekN(1).Kind == token.Dollar:
			x = p.parseWatchCall(x)
		case p.at(token.Dot):
			p.advance()
			name, ok := p.parseIdent()
			if !ok {
				return x
			}
			x = &ast.Expr{Kind: ast.ExprField, Span: x.Span.Cover(name.Span), Data: &ast.FieldData{X: x, Name: name.Text, NameSpan: name.Span}}
		case p.at(token.LBracket):
			p.advance()
			idx := p.parseExpr()
			p.expect(token.RBracket, diag.SynUnclosedDelimiter, "expected ']'")
			x = &ast.Expr{Kind: ast.ExprIndex, Span: p.spanFrom(x.Span), Data: &ast.IndexData{X: x, Index: idx}}
		case p.at(token.LParen):
			args := p.parseArgs()
			x = &ast.Expr{Kind: ast.ExprCall, Span: p.spanFrom(x.Span), Data: &ast.CallData{Callee: x, Args: args}}
		case p.at(token.Lt) && isPath(x) && p.looksLikeTypeArgs():
			p.advance()
			var targs []*ast.TypeExpr
			for !p.atOr(token.Gt, token.Shr, token.EOF) {
				targs = append(targs, p.parseType())
				if !p.eat(token.Comma) {
					break
				}
			}
			p.closeAngle()
			args := p.parseArgs()
			x = &ast.Expr{Kind: ast.ExprCall, Span: p.spanFrom(x.Span), Data: &ast.CallData{Callee: x, TypeArgs: targs, Args: args}}
		case p.at(token.LBrace) && isClassPath(x):
			x = p.parseClassLit(x)
		default:
			return x
		}
	}
}

func (p *Parser) parseArgs() []*ast.Expr {
	p.advance() // (
	var args []*ast.Expr
	for !p.atOr(token.RParen, token.EOF) {
		args = append(args, p.parseExpr())
		if !p.eat(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' after arguments")
	return args
}

// x.$watch.options(...) / x.$watch.notify()
func (p *Parser) parseWatchCall(x *ast.Expr) *ast.Expr {
	p.advance() // .
	p.advance() // $
	if _, ok := p.expect(token.KwWatch, diag.SynBadWatchCall, "expected 'watch' after '$'"); !ok {
		return x
	}
	p.expect(token.Dot, diag.SynBadWatchCall, "expected '.' after $watch")
	method, ok := p.parseIdent()
	if !ok {
		return x
	}
	var args []*ast.Expr
	if p.at(token.LParen) {
		args = p.parseArgs()
	} else {
		p.err(diag.SynBadWatchCall, "expected '(' after $watch."+method.Text)
	}
	return &ast.Expr{Kind: ast.ExprWatch, Span: p.spanFrom(x.Span), Data: &ast.WatchData{X: x, Method: method.Text, Args: args}}
}

func isPath(x *ast.Expr) bool {
	_, ok := ast.PathOf(x)
	return ok
}

// isClassPath reports a path whose last segment starts with an upper case letter.
func isClassPath(x *ast.Expr) bool {
	path, ok := ast.PathOf(x)
	if !ok {
		return false
	}
	last := path[strings.LastIndexByte(path, '.')+1:]
	r, _ := utf8.DecodeRuneInString(last)
	return unicode.IsUpper(r)
}

// Name { field: expr, ...spread }
func (p *Parser) parseClassLit(name *ast.Expr) *ast.Expr {
	path, _ := ast.PathOf(name)
	p.advance() // {
	d := &ast.ClassLitData{Name: path, NameSpan: name.Span}
	for !p.atOr(token.RBrace, token.EOF) {
		start := p.peek().Span
		if p.eat(token.DotDotDot) {
			v := p.parseExpr()
			d.Fields = append(d.Fields, ast.FieldInit{Value: v, Spread: true, Span: p.spanFrom(start)})
		} else {
			fname, ok := p.parseIdent()
			if !ok {
				p.advance()
				continue
			}
			p.expect(token.Colon, diag.SynExpectColon, "expected ':' after field name")
			v := p.parseExpr()
			d.Fields = append(d.Fields, ast.FieldInit{Name: fname.Text, Value: v, Span: p.spanFrom(start)})
		}
		if !p.eat(token.Comma) {
			break
		}
	}
	p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' to close class literal")
	return &ast.Expr{Kind: ast.ExprClassLit, Span: p.spanFrom(name.Span), Data: d}
}

func (p *Parser) parsePrimary() *ast.Expr {
	t := p.peek()
	switch t.Kind {
	case token.IntLit:
		p.advance()
		v, err := strconv.ParseInt(strings.ReplaceAll(t.Text, "_", ""), 10, 64)
		if err != nil {
			p.report(diag.LexBadNumber, t.Span, "integer literal out of range")
		}
		return lit(t, &ast.LitData{Kind: ast.LitInt, Int: v})
	case token.FloatLit:
		p.advance()
		v, err := strconv.ParseFloat(strings.ReplaceAll(t.Text, "_", ""), 64)
		if err != nil {
			p.report(diag.LexBadNumber, t.Span, "invalid float literal")
		}
		return lit(t, &ast.LitData{Kind: ast.LitFloat, Float: v})
	case token.StringLit:
		p.advance()
		s, _ := lexer.Unquote(t.Text)
		return lit(t, &ast.LitData{Kind: ast.LitString, String: s})
	case token.RawStringLit:
		p.advance()
		return lit(t, &ast.LitData{Kind: ast.LitString, String: lexer.RawContent(t.Text), Raw: true})
	case token.KwTrue, token.KwFalse:
		p.advance()
		return lit(t, &ast.LitData{Kind: ast.LitBool, Bool: t.Kind == token.KwTrue})
	case token.KwNull:
		p.advance()
		return lit(t, &ast.LitData{Kind: ast.LitNull})
	case token.Ident:
		p.advance()
		return &ast.Expr{Kind: ast.ExprIdent, Span: t.Span, Data: &ast.IdentData{Name: t.Text}}
	case token.LParen:
		p.advance()
		x := p.parseExpr()
		p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')'")
		return x
	case token.LBracket:
		p.advance()
		d := &ast.ArrayData{}
		for !p.atOr(token.RBracket, token.EOF) {
			d.Elems = append(d.Elems, p.parseExpr())
			if !p.eat(token.Comma) {
				break
			}
		}
		p.expect(token.RBracket, diag.SynUnclosedDelimiter, "expected ']' to close array")
		return &ast.Expr{Kind: ast.ExprArray, Span: p.spanFrom(t.Span), Data: d}
	case token.LBrace:
		if p.isMapStart() {
			return p.parseMap()
		}
		return blockExpr(p.parseBlock())
	case token.KwIf:
		return p.parseIf()
	}
	p.err(diag.SynExpectExpression, "expected expression, got \""+t.Kind.String()+"\"")
	return &ast.Expr{Kind: ast.ExprLit, Span: p.diagSpan(), Data: &ast.LitData{Kind: ast.LitNull}}
}

func lit(t token.Token, d *ast.LitData) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprLit, Span: t.Span, Data: d}
}

// isMapStart decides whether '{' in expression position opens a map literal.
// Maps are `{}`, `{ key: v }`, `{ "key": v }` and `{ key value }`.
func (p *Parser) isMapStart() bool {
	k1 := p.peekN(1)
	switch k1.Kind {
	case token.RBrace:
		return true
	case token.Ident, token.StringLit:
	default:
		return false
	}
	k2 := p.peekN(2).Kind
	switch k2 {
	case token.Colon:
		return true
	case token.IntLit, token.FloatLit, token.StringLit, token.RawStringLit,
		token.KwTrue, token.KwFalse, token.KwNull, token.Ident:
		return true
	case token.LBrace:
		// `{ Foo { ... } }` is a block holding a class literal
		return k1.Kind == token.StringLit || !isClassPath(&ast.Expr{Kind: ast.ExprIdent, Data: &ast.IdentData{Name: k1.Text}})
	case token.LBracket:
		return k1.Kind == token.StringLit
	}
	return false
}

func (p *Parser) parseMap() *ast.Expr {
	start := p.advance().Span // {
	d := &ast.MapData{}
	for !p.atOr(token.RBrace, token.EOF) {
		kt := p.advance()
		var key string
		switch kt.Kind {
		case token.Ident:
			key = kt.Text
		case token.StringLit:
			key, _ = lexer.Unquote(kt.Text)
		default:
			p.report(diag.SynExpectIdentifier, kt.Span, "expected map key")
			continue
		}
		p.eat(token.Colon)
		v := p.parseExpr()
		d.Entries = append(d.Entries, ast.MapEntry{Key: key, KeySpan: kt.Span, Value: v})
		p.eat(token.Comma)
	}
	p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' to close map")
	return &ast.Expr{Kind: ast.ExprMap, Span: p.spanFrom(start), Data: d}
}
