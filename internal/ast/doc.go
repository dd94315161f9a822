// Package ast holds the untyped syntax tree produced by the parser.
//
// Nodes follow one layout: a Kind, a Span and a Kind specific Data payload.
// Names stay as plain strings; resolution happens in sema.
package ast
