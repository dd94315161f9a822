// Package hir is the typed intermediate representation consumed by the
// bytecode compiler.
//
// Sema produces one Module per program. Every expression carries the TypeID
// inferred for it; names are resolved (locals by name, globals by their
// qualified name such as "Point.len2" or "baml.Array.length") so the compiler
// never consults a symbol table. Method-call syntax, env access and
// $watch calls are already desugared.
package hir
