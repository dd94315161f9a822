package lexer_test

import (
	"testing"

	"baml/internal/diag"
	"baml/internal/lexer"
	"baml/internal/source"
	"baml/internal/token"
)

func makeTestLexer(input string) (*lexer.Lexer, *diag.Bag) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test.baml", []byte(input))
	bag := diag.NewBag(0)
	lx := lexer.New(fs.Get(fileID), lexer.Options{Reporter: diag.BagReporter{Bag: bag}})
	return lx, bag
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, 0, len(toks))
	for _, t := range toks {
		if t.Kind == token.EOF {
			break
		}
		out = append(out, t.Kind)
	}
	return out
}

func expectTokens(t *testing.T, input string, expected ...token.Kind) []token.Token {
	t.Helper()
	lx, bag := makeTestLexer(input)
	toks := lx.All()
	got := kinds(toks)
	if len(got) != len(expected) {
		t.Fatalf("expected %d tokens, got %d\ninput: %q\ntokens: %v\ndiags: %v", len(expected), len(got), input, got, bag.Items())
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Errorf("token %d: expected %v, got %v (text %q)", i, expected[i], got[i], toks[i].Text)
		}
	}
	return toks
}

func TestLexer_Function(t *testing.T) {
	expectTokens(t, `function fib(n: int) -> int { if (n <= 1) { n } else { fib(n - 1) + fib(n - 2) } }`,
		token.KwFunction, token.Ident, token.LParen, token.Ident, token.Colon, token.Ident, token.RParen,
		token.Arrow, token.Ident, token.LBrace,
		token.KwIf, token.LParen, token.Ident, token.LtEq, token.IntLit, token.RParen,
		token.LBrace, token.Ident, token.RBrace, token.KwElse, token.LBrace,
		token.Ident, token.LParen, token.Ident, token.Minus, token.IntLit, token.RParen, token.Plus,
		token.Ident, token.LParen, token.Ident, token.Minus, token.IntLit, token.RParen,
		token.RBrace, token.RBrace,
	)
}

func TestLexer_Operators(t *testing.T) {
	tests := []struct {
		input string
		kinds []token.Kind
	}{
		{"a += 1", []token.Kind{token.Ident, token.PlusAssign, token.IntLit}},
		{"a && b || !c", []token.Kind{token.Ident, token.AndAnd, token.Ident, token.OrOr, token.Bang, token.Ident}},
		{"x << 2 >> 1", []token.Kind{token.Ident, token.Shl, token.IntLit, token.Shr, token.IntLit}},
		{"P { ...d() }", []token.Kind{token.Ident, token.LBrace, token.DotDotDot, token.Ident, token.LParen, token.RParen, token.RBrace}},
		{"v.$watch.notify()", []token.Kind{token.Ident, token.Dot, token.Dollar, token.KwWatch, token.Dot, token.Ident, token.LParen, token.RParen}},
		{"x instanceof Foo", []token.Kind{token.Ident, token.KwInstanceof, token.Ident}},
		{"1.5 2e3 10", []token.Kind{token.FloatLit, token.FloatLit, token.IntLit}},
		{"string[] | null", []token.Kind{token.Ident, token.LBracket, token.RBracket, token.Pipe, token.KwNull}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expectTokens(t, tt.input, tt.kinds...)
		})
	}
}

func TestLexer_Strings(t *testing.T) {
	toks := expectTokens(t, `"a\n\"b\"\u{48}" #"raw "quoted" {{ x }}"# ##"with "# inside"##`,
		token.StringLit, token.RawStringLit, token.RawStringLit)

	s, err := lexer.Unquote(toks[0].Text)
	if err != nil {
		t.Fatalf("Unquote: %v", err)
	}
	if s != "a\n\"b\"H" {
		t.Fatalf("Unquote = %q", s)
	}
	if got := lexer.RawContent(toks[1].Text); got != `raw "quoted" {{ x }}` {
		t.Fatalf("RawContent = %q", got)
	}
	if got := lexer.RawContent(toks[2].Text); got != `with "# inside` {
		t.Fatalf("RawContent = %q", got)
	}
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		input string
		code  diag.Code
	}{
		{`"open`, diag.LexUnterminatedString},
		{`#"open`, diag.LexUnterminatedRawString},
		{`/* open`, diag.LexUnterminatedBlockComment},
		{"let a = `", diag.LexUnknownChar},
		{`"\q"`, diag.LexBadEscape},
		{"12abc", diag.LexBadNumber},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lx, bag := makeTestLexer(tt.input)
			lx.All()
			if bag.Len() != 1 || bag.Items()[0].Code != tt.code {
				t.Fatalf("expected one %s, got %v", tt.code.ID(), bag.Items())
			}
		})
	}
}

func TestLexer_HeaderTrivia(t *testing.T) {
	lx, _ := makeTestLexer("//# Load\n// plain\n//## Parse step\nlet x = 1;\n//# tail\n")
	let := lx.Next()
	if let.Kind != token.KwLet {
		t.Fatalf("expected let, got %v", let.Kind)
	}
	headers := let.Headers()
	if len(headers) != 2 {
		t.Fatalf("expected 2 headers, got %d", len(headers))
	}
	if lvl, title := headers[1].HeaderLevel(); lvl != 2 || title != "Parse step" {
		t.Fatalf("second header = (%d, %q)", lvl, title)
	}

	for tok := lx.Next(); ; tok = lx.Next() {
		if tok.Kind == token.EOF {
			if len(tok.Headers()) != 1 {
				t.Fatalf("trailing header must stay on EOF, got %v", tok.Leading)
			}
			break
		}
	}
}

func TestLexer_PeekDoesNotConsume(t *testing.T) {
	lx, _ := makeTestLexer("a b")
	if p := lx.Peek(); p.Text != "a" {
		t.Fatalf("Peek = %q", p.Text)
	}
	if p := lx.Peek(); p.Text != "a" {
		t.Fatalf("second Peek = %q", p.Text)
	}
	if n := lx.Next(); n.Text != "a" {
		t.Fatalf("Next = %q", n.Text)
	}
	if n := lx.Next(); n.Text != "b" {
		t.Fatalf("Next = %q", n.Text)
	}
}
