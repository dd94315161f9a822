package sema

import (
	"strings"

	"baml/internal/ast"
	"baml/internal/builtin"
	"baml/internal/diag"
	"baml/internal/hir"
	"baml/internal/source"
	"baml/internal/types"
)

func (tc *typeChecker) lowerArgs(args []*ast.Expr) []*hir.Expr {
	out := make([]*hir.Expr, len(args))
	for i, a := range args {
		out[i] = tc.lowerExpr(a)
	}
	return out
}

func (tc *typeChecker) global(name string, t types.TypeID, sp source.Span) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprGlobal, Type: t, Span: sp, Data: hir.GlobalData{Name: name}}
}

func (tc *typeChecker) builtinCall(name string, args []*hir.Expr, result types.TypeID, sp source.Span) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprCall, Type: result, Span: sp, Data: hir.CallData{
		Callee: tc.global(name, tc.b.Top, sp),
		Args:   args,
	}}
}

func (tc *typeChecker) lowerCall(e *ast.Expr) *hir.Expr {
	d := e.Data.(*ast.CallData)

	switch d.Callee.Kind {
	case ast.ExprIdent:
		name := d.Callee.Data.(*ast.IdentData).Name
		if l := tc.scopes.lookup(name); l != nil {
			tc.errorf(diag.SemaNotCallable, d.Callee.Span, "%q is a %s, not a function", name, tc.label(l.typ))
			tc.lowerArgs(d.Args)
			return tc.invalid(e.Span)
		}
		if sig, ok := tc.funcs[name]; ok {
			return tc.userCall(sig, nil, d.Args, e.Span)
		}
		tc.errorf(diag.SemaUndefinedFunction, d.Callee.Span, "undefined function %q", name)
		tc.lowerArgs(d.Args)
		return tc.invalid(e.Span)

	case ast.ExprField:
		if path, ok := ast.PathOf(d.Callee); ok {
			root, _, _ := strings.Cut(path, ".")
			if tc.scopes.lookup(root) == nil {
				if path == builtin.FetchAs {
					return tc.lowerFetchAs(e)
				}
				if _, ok := builtin.Lookup(path); ok {
					return tc.freeBuiltinCall(path, d.Args, e.Span)
				}
				if sig, ok := tc.funcs[path]; ok {
					return tc.userCall(sig, nil, d.Args, e.Span)
				}
				if root == "baml" || root == "env" {
					tc.errorf(diag.SemaUndefinedFunction, d.Callee.Span, "unknown builtin %q", path)
					tc.lowerArgs(d.Args)
					return tc.invalid(e.Span)
				}
			}
		}
		return tc.lowerMethodCall(e)
	}

	tc.errorf(diag.SemaNotCallable, d.Callee.Span, "expression is not callable")
	tc.lowerArgs(d.Args)
	return tc.invalid(e.Span)
}

// userCall calls a user function or method; recv is prepended for methods.
func (tc *typeChecker) userCall(sig *funcSig, recv *hir.Expr, astArgs []*ast.Expr, sp source.Span) *hir.Expr {
	args := tc.lowerArgs(astArgs)
	if recv != nil {
		args = append([]*hir.Expr{recv}, args...)
	}
	tc.checkArgs(sig.name, sig.params, args, sp)
	out := hir.CallData{
		Callee: tc.global(sig.name, tc.types.Arrow(sig.params, sig.result), sp),
		Args:   args,
	}
	if sig.llm {
		out.Async = true
		out.ResultType = sig.result
	}
	return &hir.Expr{Kind: hir.ExprCall, Type: sig.result, Span: sp, Data: out}
}

func (tc *typeChecker) checkArgs(name string, params []types.TypeID, args []*hir.Expr, sp source.Span) {
	if len(params) != len(args) {
		tc.errorf(diag.SemaArgumentCount, sp, "%s expects %d argument(s), got %d", name, len(params), len(args))
		return
	}
	for i, a := range args {
		if !tc.types.Assignable(a.Type, params[i]) {
			tc.errorf(diag.SemaTypeMismatch, a.Span, "argument %d of %s must be %s, found %s",
				i+1, name, tc.label(params[i]), tc.label(a.Type))
		}
	}
}

func (tc *typeChecker) freeBuiltinCall(name string, astArgs []*ast.Expr, sp source.Span) *hir.Expr {
	args := tc.lowerArgs(astArgs)
	sig, ok := tc.freeBuiltinSig(name, args)
	if !ok {
		tc.errorf(diag.SemaUndefinedFunction, sp, "unknown builtin %q", name)
		return tc.invalid(sp)
	}
	tc.checkArgs(name, sig.params, args, sp)
	out := tc.builtinCall(name, args, sig.result, sp)
	if f, _ := builtin.Lookup(name); f.Kind == builtin.KindFuture {
		cd := out.Data.(hir.CallData)
		cd.Async = true
		cd.ResultType = sig.result
		out.Data = cd
	}
	return out
}

func (tc *typeChecker) lowerMethodCall(e *ast.Expr) *hir.Expr {
	d := e.Data.(*ast.CallData)
	fd := d.Callee.Data.(*ast.FieldData)
	recv := tc.lowerExpr(fd.X)
	rt := tc.types.MustLookup(tc.types.StripOptional(recv.Type))

	switch rt.Kind {
	case types.KindInvalid:
		tc.lowerArgs(d.Args)
		return tc.invalid(e.Span)
	case types.KindClass:
		sig, ok := tc.funcs[rt.Name+"."+fd.Name]
		if !ok || !sig.decl.HasSelf {
			tc.errorf(diag.SemaUnknownMethod, fd.NameSpan, "class %s has no method %q", rt.Name, fd.Name)
			tc.lowerArgs(d.Args)
			return tc.invalid(e.Span)
		}
		return tc.userCall(sig, recv, d.Args, e.Span)
	}

	sig, ok := tc.methodSig(recv.Type, fd.Name)
	if !ok {
		tc.errorf(diag.SemaUnknownMethod, fd.NameSpan, "%s has no method %q", tc.label(recv.Type), fd.Name)
		tc.lowerArgs(d.Args)
		return tc.invalid(e.Span)
	}
	args := tc.lowerArgs(d.Args)
	tc.checkArgs(fd.Name, sig.params, args, e.Span)
	return tc.builtinCall(sig.name, append([]*hir.Expr{recv}, args...), sig.result, e.Span)
}

// lowerFetchAs lowers baml.fetch_as<T>(request). The future resolves to T.
func (tc *typeChecker) lowerFetchAs(e *ast.Expr) *hir.Expr {
	d := e.Data.(*ast.CallData)
	args := tc.lowerArgs(d.Args)
	if len(d.TypeArgs) != 1 {
		tc.errorf(diag.SemaArgumentCount, e.Span, "%s expects exactly one type argument", builtin.FetchAs)
		return tc.invalid(e.Span)
	}
	result := tc.resolveType(d.TypeArgs[0])
	tc.checkArgs(builtin.FetchAs, []types.TypeID{tc.fetchArgType()}, args, e.Span)
	return &hir.Expr{Kind: hir.ExprCall, Type: result, Span: e.Span, Data: hir.CallData{
		Callee:     tc.global(builtin.FetchAs, tc.b.Top, d.Callee.Span),
		Args:       args,
		Async:      true,
		TypeArg:    true,
		ResultType: result,
	}}
}
