// Package diag defines the diagnostic model shared by the lexer, parser,
// semantic analysis and code generation.
//
// Diagnostic is the central record: a Severity, a stable numeric Code, a short
// Message, the Primary span and optional Notes. Phases emit diagnostics through
// a Reporter so they never depend on storage; BagReporter collects them into a
// Bag that the driver sorts, deduplicates and hands to internal/diagfmt.
//
// Code ranges:
//
//   - 1000-1999 lexical (LEX)
//   - 2000-2999 syntax (SYN)
//   - 3000-3999 semantic (SEM)
//   - 4000-4999 code generation (GEN)
//   - 5000-5999 project and IO (PRJ)
//
// Compile diagnostics never panic the process. Internal invariant violations
// in the compiler are reported as GEN codes when they are recoverable and panic
// otherwise.
package diag
