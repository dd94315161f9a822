package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"baml/internal/diag"
	"baml/internal/token"
)

// scanString scans "..." with escapes \" \\ \n \t \r \0 \u{...}.
// Newlines inside quoted strings are allowed.
func (lx *Lexer) scanString() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump() // opening '"'
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		if b == '"' {
			lx.cursor.Bump()
			sp := lx.cursor.SpanFrom(start)
			text := lx.text(sp)
			if _, err := Unquote(text); err != nil {
				lx.errLex(diag.LexBadEscape, sp, err.Error())
			}
			return token.Token{Kind: token.StringLit, Span: sp, Text: text}
		}
		if b == '\\' {
			lx.cursor.Bump()
			if lx.cursor.EOF() {
				break
			}
		}
		lx.cursor.Bump()
	}
	sp := lx.cursor.SpanFrom(start)
	lx.errLex(diag.LexUnterminatedString, sp, "unterminated string literal")
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
}

func (lx *Lexer) isRawStringStart() bool {
	var n uint32
	for lx.cursor.PeekAt(n) == '#' {
		n++
	}
	return n > 0 && lx.cursor.PeekAt(n) == '"'
}

// scanRawString scans #"..."#, ##"..."## and so on. No escapes are processed.
func (lx *Lexer) scanRawString() token.Token {
	start := lx.cursor.Mark()
	hashes := 0
	for lx.cursor.Eat('#') {
		hashes++
	}
	lx.cursor.Bump() // '"'
	for !lx.cursor.EOF() {
		if lx.cursor.Bump() != '"' {
			continue
		}
		n := 0
		for n < hashes && lx.cursor.Peek() == '#' {
			lx.cursor.Bump()
			n++
		}
		if n == hashes {
			sp := lx.cursor.SpanFrom(start)
			return token.Token{Kind: token.RawStringLit, Span: sp, Text: lx.text(sp)}
		}
	}
	sp := lx.cursor.SpanFrom(start)
	lx.errLex(diag.LexUnterminatedRawString, sp, "unterminated raw string literal")
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
}

// Unquote decodes the text of a StringLit token.
func Unquote(text string) (string, error) {
	if len(text) < 2 || text[0] != '"' || text[len(text)-1] != '"' {
		return "", fmt.Errorf("malformed string literal")
	}
	body := text[1 : len(text)-1]
	if !strings.Contains(body, `\`) {
		return body, nil
	}
	var sb strings.Builder
	sb.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("dangling escape")
		}
		switch body[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '0':
			sb.WriteByte(0)
		case '\\', '"', '\'':
			sb.WriteByte(body[i])
		case 'u':
			if i+1 >= len(body) || body[i+1] != '{' {
				return "", fmt.Errorf(`expected '{' after \u`)
			}
			end := strings.IndexByte(body[i:], '}')
			if end < 0 {
				return "", fmt.Errorf(`unterminated \u{...} escape`)
			}
			hex := body[i+2 : i+end]
			code, err := strconv.ParseUint(hex, 16, 32)
			if err != nil || code > 0x10FFFF {
				return "", fmt.Errorf("invalid unicode escape %q", hex)
			}
			sb.WriteRune(rune(code))
			i += end
		default:
			return "", fmt.Errorf(`unknown escape \%c`, body[i])
		}
	}
	return sb.String(), nil
}

// RawContent strips the #" and "# delimiters of a RawStringLit token.
func RawContent(text string) string {
	hashes := 0
	for hashes < len(text) && text[hashes] == '#' {
		hashes++
	}
	if len(text) < 2*hashes+2 {
		return ""
	}
	return text[hashes+1 : len(text)-hashes-1]
}
