package token

import (
	"strings"

	"baml/internal/source"
)

type TriviaKind uint8

const (
	TriviaSpace TriviaKind = iota
	TriviaNewline
	TriviaLineComment
	TriviaBlockComment
	// TriviaHeader is a "//# Title" comment; the number of '#' is its level.
	TriviaHeader
)

type Trivia struct {
	Kind TriviaKind
	Span source.Span
	Text string
}

// HeaderLevel returns the nesting level and title of a header comment.
// For any other trivia it returns 0 and "".
func (t Trivia) HeaderLevel() (level int, title string) {
	if t.Kind != TriviaHeader {
		return 0, ""
	}
	rest := strings.TrimPrefix(t.Text, "//")
	for strings.HasPrefix(rest, "#") {
		level++
		rest = rest[1:]
	}
	return level, strings.TrimSpace(rest)
}
