package lexer

import (
	"baml/internal/diag"
	"baml/internal/token"
)

// Supported: 0, 123, 1_000, 1.5, 1e-3, 2.5E+10.
// "1." is not a float: the dot stays a separate token so 1.toString() style
// access and ranges keep lexing.
func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Mark()
	kind := token.IntLit

	for isDec(lx.cursor.Peek()) || lx.cursor.Peek() == '_' {
		lx.cursor.Bump()
	}

	if b0, b1, ok := lx.cursor.Peek2(); ok && b0 == '.' && isDec(b1) {
		kind = token.FloatLit
		lx.cursor.Bump()
		for isDec(lx.cursor.Peek()) || lx.cursor.Peek() == '_' {
			lx.cursor.Bump()
		}
	}

	if b := lx.cursor.Peek(); b == 'e' || b == 'E' {
		save := lx.cursor.Mark()
		lx.cursor.Bump()
		if lx.cursor.Peek() == '+' || lx.cursor.Peek() == '-' {
			lx.cursor.Bump()
		}
		if !isDec(lx.cursor.Peek()) {
			sp := lx.cursor.SpanFrom(start)
			if lx.cursor.Off-uint32(save) > 1 {
				lx.errLex(diag.LexBadNumber, sp, "expected digit after exponent")
				return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
			}
			// "1e" followed by something else: let the suffix check report it
			lx.cursor.Reset(save)
			goto emit
		}
		kind = token.FloatLit
		for isDec(lx.cursor.Peek()) || lx.cursor.Peek() == '_' {
			lx.cursor.Bump()
		}
	}

emit:
	sp := lx.cursor.SpanFrom(start)
	if isIdentStartByte(lx.cursor.Peek()) {
		for isIdentContinueByte(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}
		sp = lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexBadNumber, sp, "invalid suffix on number literal")
		return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
	}
	return token.Token{Kind: kind, Span: sp, Text: lx.text(sp)}
}
