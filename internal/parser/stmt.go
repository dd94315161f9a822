package parser

import (
	"baml/internal/ast"
	"baml/internal/diag"
	"baml/internal/token"
)

// parseBlock parses `{ stmt* tail? }`.
func (p *Parser) parseBlock() *ast.Block {
	open, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{'")
	if !ok {
		return &ast.Block{Span: open.Span}
	}
	b := &ast.Block{}
	for {
		if hdrs := p.takeHeaders(); b.Tail == nil {
			b.Stmts = append(b.Stmts, hdrs...)
		}
		if p.atOr(token.RBrace, token.EOF) {
			break
		}
		beforeSpan := p.peek().Span
		stmt, tail := p.parseStmt()
		switch {
		case tail != nil:
			b.Tail = tail
		case stmt != nil:
			b.Stmts = append(b.Stmts, stmt)
		default:
			p.resyncStmt()
		}
		if p.peek().Span == beforeSpan && !p.atOr(token.RBrace, token.EOF) {
			p.advance()
		}
	}
	p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}'")
	b.Span = p.spanFrom(open.Span)
	return b
}

// parseStmt returns either a statement or, when an expression ends the
// block without a semicolon, that trailing expression.
func (p *Parser) parseStmt() (*ast.Stmt, *ast.Expr) {
	start := p.peek().Span
	switch p.peek().Kind {
	case token.KwLet:
		s := p.parseLet(false)
		p.eat(token.Semicolon)
		return s, nil
	case token.KwWatch:
		p.advance()
		if !p.at(token.KwLet) {
			p.err(diag.SynUnexpectedToken, "expected 'let' after 'watch'")
			return nil, nil
		}
		s := p.parseLet(true)
		if s != nil {
			s.Span = p.spanFrom(start)
		}
		p.eat(token.Semicolon)
		return s, nil
	case token.KwReturn:
		p.advance()
		d := &ast.ReturnData{}
		if !p.atOr(token.Semicolon, token.RBrace) {
			d.Value = p.parseExpr()
		}
		p.eat(token.Semicolon)
		return &ast.Stmt{Kind: ast.StmtReturn, Span: p.spanFrom(start), Data: d}, nil
	case token.KwBreak:
		p.advance()
		p.eat(token.Semicolon)
		return &ast.Stmt{Kind: ast.StmtBreak, Span: start}, nil
	case token.KwContinue:
		p.advance()
		p.eat(token.Semicolon)
		return &ast.Stmt{Kind: ast.StmtContinue, Span: start}, nil
	case token.KwAssert:
		p.advance()
		cond := p.parseExpr()
		p.eat(token.Semicolon)
		return &ast.Stmt{Kind: ast.StmtAssert, Span: p.spanFrom(start), Data: &ast.AssertData{Cond: cond}}, nil
	case token.KwWhile:
		return p.parseWhile(), nil
	case token.KwFor:
		return p.parseFor(), nil
	case token.KwIf, token.LBrace:
		var x *ast.Expr
		if p.at(token.KwIf) {
			x = p.parseIf()
		} else {
			blk := p.parseBlock()
			x = &ast.Expr{Kind: ast.ExprBlock, Span: blk.Span, Data: &ast.BlockData{Block: blk}}
		}
		// `if` and blocks used as values may continue as an expression: `if (a) {1} else {2} + 3`
		if !p.atOr(token.Semicolon, token.RBrace) && isBinaryOp(p.peek().Kind) {
			x = p.parseBinaryRHS(x, 0)
		}
		if p.eat(token.Semicolon) {
			return &ast.Stmt{Kind: ast.StmtExpr, Span: x.Span, Data: &ast.ExprStmtData{X: x}}, nil
		}
		if p.at(token.RBrace) {
			return nil, x
		}
		return &ast.Stmt{Kind: ast.StmtExpr, Span: x.Span, Data: &ast.ExprStmtData{X: x}}, nil
	}
	return p.parseSimpleStmt(true)
}

// parseSimpleStmt parses an assignment or expression statement. With
// allowTail, an expression directly before '}' is returned as a tail.
func (p *Parser) parseSimpleStmt(allowTail bool) (*ast.Stmt, *ast.Expr) {
	start := p.peek().Span
	x := p.parseExpr()
	if x == nil {
		return nil, nil
	}
	if p.peek().IsAssignOp() {
		op := p.advance().Kind
		switch x.Kind {
		case ast.ExprIdent, ast.ExprField, ast.ExprIndex:
		default:
			p.report(diag.SynBadAssignTarget, x.Span, "invalid assignment target")
		}
		value := p.parseExpr()
		if allowTail {
			p.expectSemi()
		}
		return &ast.Stmt{Kind: ast.StmtAssign, Span: p.spanFrom(start), Data: &ast.AssignData{Target: x, Op: op, Value: value}}, nil
	}
	if allowTail && p.at(token.RBrace) {
		return nil, x
	}
	if allowTail {
		p.expectSemi()
	}
	return &ast.Stmt{Kind: ast.StmtExpr, Span: x.Span, Data: &ast.ExprStmtData{X: x}}, nil
}

func (p *Parser) expectSemi() {
	if p.eat(token.Semicolon) || p.at(token.RBrace) {
		return
	}
	p.err(diag.SynExpectSemicolon, "expected ';'")
}

// let name (: Type)? = expr
func (p *Parser) parseLet(watch bool) *ast.Stmt {
	start := p.advance().Span // let
	name, ok := p.parseIdent()
	if !ok {
		return nil
	}
	d := &ast.LetData{Name: name.Text, NameSpan: name.Span, Watch: watch}
	if p.eat(token.Colon) {
		d.Type = p.parseType()
	}
	if _, ok := p.expect(token.Assign, diag.SynUnexpectedToken, "expected '=' in let"); !ok {
		return nil
	}
	d.Value = p.parseExpr()
	if d.Value == nil {
		return nil
	}
	return &ast.Stmt{Kind: ast.StmtLet, Span: p.spanFrom(start), Data: d}
}

func (p *Parser) parseParenCond() *ast.Expr {
	if !p.eat(token.LParen) {
		p.err(diag.SynUnexpectedToken, "expected '(' before condition")
		return p.parseExpr()
	}
	cond := p.parseExpr()
	p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' after condition")
	return cond
}

func (p *Parser) parseWhile() *ast.Stmt {
	start := p.advance().Span
	cond := p.parseParenCond()
	body := p.parseBlock()
	return &ast.Stmt{Kind: ast.StmtWhile, Span: p.spanFrom(start), Data: &ast.WhileData{Cond: cond, Body: body}}
}

// for (let x in xs) {} | for (x in xs) {} | for (init; cond; step) {}
func (p *Parser) parseFor() *ast.Stmt {
	start := p.advance().Span
	if _, ok := p.expect(token.LParen, diag.SynForBadHeader, "expected '(' after 'for'"); !ok {
		return nil
	}

	off := 0
	if p.at(token.KwLet) {
		off = 1
	}
	if p.peekN(off).Kind == token.Ident && p.peekN(off+1).Kind == token.KwIn {
		if off == 1 {
			p.advance()
		}
		name := p.advance()
		p.advance() // in
		iter := p.parseExpr()
		p.expect(token.RParen, diag.SynForBadHeader, "expected ')' after for-in header")
		body := p.parseBlock()
		return &ast.Stmt{Kind: ast.StmtForIn, Span: p.spanFrom(start), Data: &ast.ForInData{
			Name: name.Text, NameSpan: name.Span, Iter: iter, Body: body,
		}}
	}

	d := &ast.ForCData{}
	if !p.at(token.Semicolon) {
		if p.at(token.KwLet) {
			d.Init = p.parseLet(false)
		} else {
			d.Init, _ = p.parseSimpleStmt(false)
		}
	}
	p.expect(token.Semicolon, diag.SynForBadHeader, "expected ';' in for header")
	if !p.at(token.Semicolon) {
		d.Cond = p.parseExpr()
	}
	p.expect(token.Semicolon, diag.SynForBadHeader, "expected ';' in for header")
	if !p.at(token.RParen) {
		d.Step, _ = p.parseSimpleStmt(false)
	}
	p.expect(token.RParen, diag.SynForBadHeader, "expected ')' after for header")
	d.Body = p.parseBlock()
	return &ast.Stmt{Kind: ast.StmtForC, Span: p.spanFrom(start), Data: d}
}

func blockExpr(b *ast.Block) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprBlock, Span: b.Span, Data: &ast.BlockData{Block: b}}
}

func (p *Parser) parseIf() *ast.Expr {
	start := p.advance().Span // if
	cond := p.parseParenCond()
	then := p.parseBlock()
	d := &ast.IfData{Cond: cond, Then: then}
	if p.eat(token.KwElse) {
		if p.at(token.KwIf) {
			d.Else = p.parseIf()
		} else {
			d.Else = blockExpr(p.parseBlock())
		}
	}
	return &ast.Expr{Kind: ast.ExprIf, Span: p.spanFrom(start), Data: d}
}
