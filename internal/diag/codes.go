package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Лексические
	LexInfo                     Code = 1000
	LexUnknownChar              Code = 1001
	LexUnterminatedString       Code = 1002
	LexUnterminatedBlockComment Code = 1003
	LexBadNumber                Code = 1004
	LexUnterminatedRawString    Code = 1005
	LexBadEscape                Code = 1006

	// Парсерные
	SynInfo               Code = 2000
	SynUnexpectedToken    Code = 2001
	SynUnclosedDelimiter  Code = 2002
	SynExpectSemicolon    Code = 2003
	SynExpectIdentifier   Code = 2004
	SynExpectType         Code = 2005
	SynExpectExpression   Code = 2006
	SynExpectColon        Code = 2007
	SynUnexpectedTopLevel Code = 2008
	SynForBadHeader       Code = 2009
	SynBadWatchCall       Code = 2010
	SynBadAssignTarget    Code = 2011
	SynBadLlmBody         Code = 2012

	// Семантические
	SemaInfo              Code = 3000
	SemaError             Code = 3001
	SemaDuplicateSymbol   Code = 3002
	SemaUndefinedVariable Code = 3003
	SemaUndefinedFunction Code = 3004
	SemaUndefinedClass    Code = 3005
	SemaUndefinedEnum     Code = 3006
	SemaUndefinedField    Code = 3007
	SemaUndefinedVariant  Code = 3008
	SemaSpreadNotClass    Code = 3009
	SemaArgumentCount     Code = 3010
	SemaUnknownMethod     Code = 3011
	SemaBreakOutsideLoop  Code = 3012
	SemaContinueOutside   Code = 3013
	SemaTypeMismatch      Code = 3014
	SemaAssignUndeclared  Code = 3015
	SemaNotCallable       Code = 3016
	SemaWatchNotLocal     Code = 3017
	SemaDuplicateField    Code = 3018
	SemaMissingReturn     Code = 3019

	// Генерация байткода
	GenInfo           Code = 4000
	GenArrowType      Code = 4001
	GenImpossible     Code = 4002
	GenTooManyLocals  Code = 4003
	GenJumpOutOfRange Code = 4004

	// Проект и IO
	PrjInfo          Code = 5000
	PrjManifest      Code = 5001
	PrjReadFailed    Code = 5002
	PrjEntryNotFound Code = 5003
)

var codeDescription = map[Code]string{
	UnknownCode:                 "Unknown error",
	LexInfo:                     "Lexical information",
	LexUnknownChar:              "Unknown character",
	LexUnterminatedString:       "Unterminated string literal",
	LexUnterminatedBlockComment: "Unterminated block comment",
	LexBadNumber:                "Invalid number literal",
	LexUnterminatedRawString:    "Unterminated raw string literal",
	LexBadEscape:                "Invalid escape sequence",

	SynInfo:               "Syntax information",
	SynUnexpectedToken:    "Unexpected token",
	SynUnclosedDelimiter:  "Unclosed delimiter",
	SynExpectSemicolon:    "Expected semicolon",
	SynExpectIdentifier:   "Expected identifier",
	SynExpectType:         "Expected type",
	SynExpectExpression:   "Expected expression",
	SynExpectColon:        "Expected colon",
	SynUnexpectedTopLevel: "Unexpected top-level item",
	SynForBadHeader:       "Malformed for loop header",
	SynBadWatchCall:       "Unknown $watch operation",
	SynBadAssignTarget:    "Invalid assignment target",
	SynBadLlmBody:         "Malformed LLM function body",

	SemaInfo:              "Semantic information",
	SemaError:             "Semantic error",
	SemaDuplicateSymbol:   "Duplicate symbol",
	SemaUndefinedVariable: "Undefined variable",
	SemaUndefinedFunction: "Undefined function",
	SemaUndefinedClass:    "Undefined class",
	SemaUndefinedEnum:     "Undefined enum",
	SemaUndefinedField:    "Undefined field",
	SemaUndefinedVariant:  "Undefined enum variant",
	SemaSpreadNotClass:    "Spread of a non-class value",
	SemaArgumentCount:     "Wrong number of arguments",
	SemaUnknownMethod:     "Unknown builtin method",
	SemaBreakOutsideLoop:  "break outside of a loop",
	SemaContinueOutside:   "continue outside of a loop",
	SemaTypeMismatch:      "Type mismatch",
	SemaAssignUndeclared:  "Assignment to undeclared variable",
	SemaNotCallable:       "Value is not callable",
	SemaWatchNotLocal:     "Only local variables can be watched",
	SemaDuplicateField:    "Field initialized twice",
	SemaMissingReturn:     "Function body produces no value",

	GenInfo:           "Codegen information",
	GenArrowType:      "Function-typed value has no lowering",
	GenImpossible:     "Internal compiler error",
	GenTooManyLocals:  "Too many locals",
	GenJumpOutOfRange: "Jump target out of range",

	PrjInfo:          "Project information",
	PrjManifest:      "Invalid baml.toml",
	PrjReadFailed:    "Failed to read source",
	PrjEntryNotFound: "Entry function not found",
}

// ID returns the stable textual identifier, e.g. "SEM3003".
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("GEN%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
