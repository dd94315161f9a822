// Package token defines lexical token kinds and trivia for BAML sources.
// Invariants:
//   - Token.Text is a slice of the original source.
//   - Token.Span matches Text exactly.
//   - Header comments (//# Title) are kept as TriviaHeader so the parser can
//     turn them into header statements; other comments are plain trivia.
//   - Type names (int, string, map, ...) are identifiers resolved by sema.
package token
