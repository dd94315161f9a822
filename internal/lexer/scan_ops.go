package lexer

import (
	"baml/internal/diag"
	"baml/internal/token"
)

// pairOps are the two-byte operators, keyed by their bytes.
var pairOps = map[[2]byte]token.Kind{
	{'-', '>'}: token.Arrow,
	{'&', '&'}: token.AndAnd,
	{'|', '|'}: token.OrOr,
	{'=', '='}: token.EqEq,
	{'!', '='}: token.BangEq,
	{'<', '='}: token.LtEq,
	{'>', '='}: token.GtEq,
	{'<', '<'}: token.Shl,
	{'>', '>'}: token.Shr,
	{'+', '='}: token.PlusAssign,
	{'-', '='}: token.MinusAssign,
	{'*', '='}: token.StarAssign,
	{'/', '='}: token.SlashAssign,
	{'%', '='}: token.PercentAssign,
}

// byteOps maps single ASCII bytes; token.Invalid marks a byte that starts
// nothing.
var byteOps = [utf8RuneSelf]token.Kind{
	'+': token.Plus,
	'-': token.Minus,
	'*': token.Star,
	'/': token.Slash,
	'%': token.Percent,
	'=': token.Assign,
	'!': token.Bang,
	'<': token.Lt,
	'>': token.Gt,
	'&': token.Amp,
	'|': token.Pipe,
	'^': token.Caret,
	'?': token.Question,
	':': token.Colon,
	';': token.Semicolon,
	',': token.Comma,
	'.': token.Dot,
	'(': token.LParen,
	')': token.RParen,
	'{': token.LBrace,
	'}': token.RBrace,
	'[': token.LBracket,
	']': token.RBracket,
	'@': token.At,
	'$': token.Dollar,
}

// scanOperatorOrPunct takes the longest operator at the cursor: the spread
// `...`, then a pair, then a single byte.
func (lx *Lexer) scanOperatorOrPunct() token.Token {
	start := lx.cursor.Mark()
	emit := func(k token.Kind) token.Token {
		sp := lx.cursor.SpanFrom(start)
		return token.Token{Kind: k, Span: sp, Text: lx.text(sp)}
	}

	if lx.try3('.', '.', '.') {
		return emit(token.DotDotDot)
	}
	if b0, b1, ok := lx.cursor.Peek2(); ok {
		if k, ok := pairOps[[2]byte{b0, b1}]; ok {
			lx.cursor.Off += 2
			return emit(k)
		}
	}

	ch := lx.cursor.Bump()
	if ch < utf8RuneSelf && byteOps[ch] != token.Invalid {
		return emit(byteOps[ch])
	}
	if ch >= utf8RuneSelf {
		lx.cursor.Reset(start)
		lx.bumpRune()
	}
	sp := lx.cursor.SpanFrom(start)
	lx.errLex(diag.LexUnknownChar, sp, "unknown character")
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
}
