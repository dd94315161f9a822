package token

// Kind represents the category of a source token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF

	// Ident represents an identifier token.
	Ident
	KwFunction   // function
	KwClass      // class
	KwEnum       // enum
	KwLet        // let
	KwWatch      // watch
	KwIf         // if
	KwElse       // else
	KwWhile      // while
	KwFor        // for
	KwIn         // in
	KwBreak      // break
	KwContinue   // continue
	KwReturn     // return
	KwAssert     // assert
	KwTrue       // true
	KwFalse      // false
	KwNull       // null
	KwInstanceof // instanceof
	KwClient     // client
	KwPrompt     // prompt

	// IntLit represents the integer literal token.
	IntLit
	// FloatLit represents the float literal token.
	FloatLit
	// StringLit is a quoted string with escapes.
	StringLit
	// RawStringLit is #"..."# (any number of #).
	RawStringLit

	Plus          // +
	Minus         // -
	Star          // *
	Slash         // /
	Percent       // %
	Assign        // =
	PlusAssign    // +=
	MinusAssign   // -=
	StarAssign    // *=
	SlashAssign   // /=
	PercentAssign // %=
	EqEq          // ==
	Bang          // !
	BangEq        // !=
	Lt            // <
	LtEq          // <=
	Gt            // >
	GtEq          // >=
	Shl           // <<
	Shr           // >>
	Amp           // &
	Pipe          // |
	Caret         // ^
	AndAnd        // &&
	OrOr          // ||
	Question      // ?
	Colon         // :
	Semicolon     // ;
	Comma         // ,
	Dot           // .
	DotDotDot     // ...
	Arrow         // ->
	LParen        // (
	RParen        // )
	LBrace        // {
	RBrace        // }
	LBracket      // [
	RBracket      // ]
	At            // @
	Dollar        // $
)

var kindNames = [...]string{
	Invalid:      "Invalid",
	EOF:          "EOF",
	Ident:        "Ident",
	KwFunction:   "function",
	KwClass:      "class",
	KwEnum:       "enum",
	KwLet:        "let",
	KwWatch:      "watch",
	KwIf:         "if",
	KwElse:       "else",
	KwWhile:      "while",
	KwFor:        "for",
	KwIn:         "in",
	KwBreak:      "break",
	KwContinue:   "continue",
	KwReturn:     "return",
	KwAssert:     "assert",
	KwTrue:       "true",
	KwFalse:      "false",
	KwNull:       "null",
	KwInstanceof: "instanceof",
	KwClient:     "client",
	KwPrompt:     "prompt",

	IntLit:       "IntLit",
	FloatLit:     "FloatLit",
	StringLit:    "StringLit",
	RawStringLit: "RawStringLit",

	Plus:          "+",
	Minus:         "-",
	Star:          "*",
	Slash:         "/",
	Percent:       "%",
	Assign:        "=",
	PlusAssign:    "+=",
	MinusAssign:   "-=",
	StarAssign:    "*=",
	SlashAssign:   "/=",
	PercentAssign: "%=",
	EqEq:          "==",
	Bang:          "!",
	BangEq:        "!=",
	Lt:            "<",
	LtEq:          "<=",
	Gt:            ">",
	GtEq:          ">=",
	Shl:           "<<",
	Shr:           ">>",
	Amp:           "&",
	Pipe:          "|",
	Caret:         "^",
	AndAnd:        "&&",
	OrOr:          "||",
	Question:      "?",
	Colon:         ":",
	Semicolon:     ";",
	Comma:         ",",
	Dot:           ".",
	DotDotDot:     "...",
	Arrow:         "->",
	LParen:        "(",
	RParen:        ")",
	LBrace:        "{",
	RBrace:        "}",
	LBracket:      "[",
	RBracket:      "]",
	At:            "@",
	Dollar:        "$",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Kind(?)"
}
