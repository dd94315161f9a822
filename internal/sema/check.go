// Package sema resolves names and infers types over the parsed files and
// produces the typed hir.Module the compiler consumes.
package sema

import (
	"baml/internal/ast"
	"baml/internal/diag"
	"baml/internal/hir"
	"baml/internal/source"
	"baml/internal/types"
)

// Options configure a semantic pass.
type Options struct {
	Reporter diag.Reporter
	Types    *types.Interner
}

// Check analyses files as one program. The returned module is always
// non-nil; callers consult the reporter's bag before compiling it.
func Check(files []*ast.File, opts Options) *hir.Module {
	in := opts.Types
	if in == nil {
		in = types.NewInterner()
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	tc := &typeChecker{
		reporter: reporter,
		types:    in,
		b:        in.Builtins(),
		classes:  make(map[string]*hir.Class),
		enums:    make(map[string]*hir.Enum),
		funcs:    make(map[string]*funcSig),
		module:   &hir.Module{Types: in},
	}
	tc.registerBuiltins()
	tc.collect(files)
	tc.lowerBodies(files)
	return tc.module
}

type typeChecker struct {
	reporter diag.Reporter
	types    *types.Interner
	b        types.Builtins

	classes map[string]*hir.Class
	enums   map[string]*hir.Enum
	funcs   map[string]*funcSig
	module  *hir.Module

	// per function state
	fn        *hir.Func
	scopes    scopeStack
	loopDepth int
}

// funcSig is the callable view of a user function or method.
type funcSig struct {
	name   string
	params []types.TypeID
	result types.TypeID
	llm    bool
	decl   *ast.FuncDecl
	hir    *hir.Func
}

func (tc *typeChecker) errorf(code diag.Code, sp source.Span, format string, args ...any) {
	diag.ReportErrorf(tc.reporter, code, sp, format, args...).Emit()
}

func (tc *typeChecker) label(id types.TypeID) string {
	return types.Label(tc.types, id)
}
