package token

var keywords = map[string]Kind{
	"function":   KwFunction,
	"class":      KwClass,
	"enum":       KwEnum,
	"let":        KwLet,
	"watch":      KwWatch,
	"if":         KwIf,
	"else":       KwElse,
	"while":      KwWhile,
	"for":        KwFor,
	"in":         KwIn,
	"break":      KwBreak,
	"continue":   KwContinue,
	"return":     KwReturn,
	"assert":     KwAssert,
	"true":       KwTrue,
	"false":      KwFalse,
	"null":       KwNull,
	"instanceof": KwInstanceof,
	"client":     KwClient,
	"prompt":     KwPrompt,
}

// LookupKeyword reports whether ident is a keyword. Keywords are case sensitive.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}
