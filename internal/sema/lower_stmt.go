package sema

import (
	"baml/internal/ast"
	"baml/internal/builtin"
	"baml/internal/diag"
	"baml/internal/hir"
	"baml/internal/token"
	"baml/internal/types"
)

func (tc *typeChecker) lowerBodies(files []*ast.File) {
	for _, f := range files {
		for _, it := range f.Items {
			switch it.Kind {
			case ast.ItemFunction:
				tc.lowerFunc(it.Name, it.Data.(*ast.FuncDecl))
			case ast.ItemClass:
				for _, m := range it.Data.(*ast.ClassData).Methods {
					tc.lowerFunc(it.Name+"."+m.Name, m)
				}
			}
		}
	}
}

func (tc *typeChecker) lowerFunc(name string, decl *ast.FuncDecl) {
	sig, ok := tc.funcs[name]
	if !ok || sig.decl != decl || decl.Body == nil {
		return
	}
	fn := sig.hir
	tc.fn = fn
	tc.scopes = nil
	tc.loopDepth = 0

	tc.scopes.push()
	for _, p := range fn.Params {
		tc.scopes.declare(&local{name: p.Name, typ: p.Type, span: p.Span})
	}
	body := tc.lowerBlock(decl.Body)
	tc.scopes.pop()

	switch {
	case body.Tail != nil:
		if !tc.types.Assignable(body.Tail.Type, fn.Result) {
			tc.errorf(diag.SemaTypeMismatch, body.Tail.Span, "function %s returns %s, found %s",
				fn.Name, tc.label(fn.Result), tc.label(body.Tail.Type))
		}
	case !endsWithReturn(body) && !tc.types.Assignable(tc.b.Null, fn.Result):
		tc.errorf(diag.SemaMissingReturn, decl.NameSpan, "function %s must return %s", fn.Name, tc.label(fn.Result))
	}
	fn.Body = body
	tc.fn = nil
}

func endsWithReturn(b *hir.Block) bool {
	for i := len(b.Stmts) - 1; i >= 0; i-- {
		switch b.Stmts[i].Kind {
		case hir.StmtHeader:
			continue
		case hir.StmtReturn:
			return true
		}
		return false
	}
	return false
}

func (tc *typeChecker) lowerBlock(b *ast.Block) *hir.Block {
	out := &hir.Block{Span: b.Span}
	tc.scopes.push()
	for _, s := range b.Stmts {
		if hs := tc.lowerStmt(s); hs != nil {
			out.Stmts = append(out.Stmts, hs)
		}
	}
	if b.Tail != nil {
		out.Tail = tc.lowerExpr(b.Tail)
	}
	tc.scopes.pop()
	return out
}

func (tc *typeChecker) lowerStmt(s *ast.Stmt) *hir.Stmt {
	switch s.Kind {
	case ast.StmtLet:
		return tc.lowerLet(s)
	case ast.StmtAssign:
		return tc.lowerAssign(s)
	case ast.StmtExpr:
		x := s.Data.(*ast.ExprStmtData).X
		if x.Kind == ast.ExprWatch {
			return tc.lowerWatchCall(x)
		}
		return &hir.Stmt{Kind: hir.StmtExpr, Span: s.Span, Data: hir.ExprStmtData{Expr: tc.lowerExpr(x)}}
	case ast.StmtReturn:
		d := s.Data.(*ast.ReturnData)
		out := hir.ReturnData{}
		valueType := tc.b.Null
		if d.Value != nil {
			out.Value = tc.lowerExpr(d.Value)
			valueType = out.Value.Type
		}
		if tc.fn != nil && !tc.types.Assignable(valueType, tc.fn.Result) {
			tc.errorf(diag.SemaTypeMismatch, s.Span, "cannot return %s from function returning %s",
				tc.label(valueType), tc.label(tc.fn.Result))
		}
		return &hir.Stmt{Kind: hir.StmtReturn, Span: s.Span, Data: out}
	case ast.StmtBreak, ast.StmtContinue:
		if tc.loopDepth == 0 {
			if s.Kind == ast.StmtBreak {
				tc.errorf(diag.SemaBreakOutsideLoop, s.Span, "break outside of a loop")
			} else {
				tc.errorf(diag.SemaContinueOutside, s.Span, "continue outside of a loop")
			}
		}
		if s.Kind == ast.StmtBreak {
			return &hir.Stmt{Kind: hir.StmtBreak, Span: s.Span}
		}
		return &hir.Stmt{Kind: hir.StmtContinue, Span: s.Span}
	case ast.StmtWhile:
		d := s.Data.(*ast.WhileData)
		cond := tc.lowerCond(d.Cond)
		tc.loopDepth++
		body := tc.lowerBlock(d.Body)
		tc.loopDepth--
		return &hir.Stmt{Kind: hir.StmtWhile, Span: s.Span, Data: hir.WhileData{Cond: cond, Body: body}}
	case ast.StmtForIn:
		return tc.lowerForIn(s)
	case ast.StmtForC:
		d := s.Data.(*ast.ForCData)
		out := hir.ForCData{}
		tc.scopes.push()
		if d.Init != nil {
			out.Init = tc.lowerStmt(d.Init)
		}
		if d.Cond != nil {
			out.Cond = tc.lowerCond(d.Cond)
		}
		tc.loopDepth++
		out.Body = tc.lowerBlock(d.Body)
		tc.loopDepth--
		if d.Step != nil {
			out.Step = tc.lowerStmt(d.Step)
		}
		tc.scopes.pop()
		return &hir.Stmt{Kind: hir.StmtForC, Span: s.Span, Data: out}
	case ast.StmtAssert:
		cond := tc.lowerCond(s.Data.(*ast.AssertData).Cond)
		return &hir.Stmt{Kind: hir.StmtAssert, Span: s.Span, Data: hir.AssertData{Cond: cond}}
	case ast.StmtHeader:
		d := s.Data.(*ast.HeaderData)
		return &hir.Stmt{Kind: hir.StmtHeader, Span: s.Span, Data: hir.HeaderData{Level: d.Level, Title: d.Title}}
	}
	return nil
}

func (tc *typeChecker) lowerLet(s *ast.Stmt) *hir.Stmt {
	d := s.Data.(*ast.LetData)
	value := tc.lowerExpr(d.Value)
	typ := value.Type
	if d.Type != nil {
		declared := tc.resolveType(d.Type)
		if !tc.types.Assignable(value.Type, declared) {
			tc.errorf(diag.SemaTypeMismatch, d.Value.Span, "cannot assign %s to %s of type %s",
				tc.label(value.Type), d.Name, tc.label(declared))
		}
		typ = declared
	}
	tc.scopes.declare(&local{name: d.Name, typ: typ, span: d.NameSpan, watched: d.Watch})
	return &hir.Stmt{Kind: hir.StmtLet, Span: s.Span, Data: hir.LetData{
		Name:  d.Name,
		Type:  typ,
		Value: value,
		Watch: d.Watch,
	}}
}

var compoundOps = map[token.Kind]hir.BinaryOp{
	token.PlusAssign:    hir.BinAdd,
	token.MinusAssign:   hir.BinSub,
	token.StarAssign:    hir.BinMul,
	token.SlashAssign:   hir.BinDiv,
	token.PercentAssign: hir.BinMod,
}

func (tc *typeChecker) lowerAssign(s *ast.Stmt) *hir.Stmt {
	d := s.Data.(*ast.AssignData)
	var target *hir.Expr
	if d.Target.Kind == ast.ExprIdent {
		name := d.Target.Data.(*ast.IdentData).Name
		l := tc.scopes.lookup(name)
		if l == nil {
			tc.errorf(diag.SemaAssignUndeclared, d.Target.Span, "assignment to undeclared variable %q", name)
			target = tc.invalid(d.Target.Span)
		} else {
			target = &hir.Expr{Kind: hir.ExprLocal, Type: l.typ, Span: d.Target.Span, Data: hir.LocalData{Name: name}}
		}
	} else {
		target = tc.lowerExpr(d.Target)
		switch target.Kind {
		case hir.ExprField, hir.ExprIndex, hir.ExprLiteral:
		default:
			tc.errorf(diag.SynBadAssignTarget, d.Target.Span, "cannot assign to this expression")
		}
	}
	value := tc.lowerExpr(d.Value)
	out := hir.AssignData{Target: target, Value: value}
	valueType := value.Type
	if op, ok := compoundOps[d.Op]; ok {
		out.Compound = true
		out.Op = op
		valueType = tc.binaryType(op, target, value, s.Span)
	}
	if !tc.types.Assignable(valueType, target.Type) {
		tc.errorf(diag.SemaTypeMismatch, d.Value.Span, "cannot assign %s to %s", tc.label(valueType), tc.label(target.Type))
	}
	return &hir.Stmt{Kind: hir.StmtAssign, Span: s.Span, Data: out}
}

func (tc *typeChecker) lowerForIn(s *ast.Stmt) *hir.Stmt {
	d := s.Data.(*ast.ForInData)
	iter := tc.lowerExpr(d.Iter)
	elem := tc.b.Top
	switch t := tc.types.MustLookup(iter.Type); t.Kind {
	case types.KindList:
		elem = t.Elem
	case types.KindTop, types.KindUnknown:
	case types.KindInvalid:
		elem = tc.b.Invalid
	default:
		tc.errorf(diag.SemaTypeMismatch, d.Iter.Span, "cannot iterate over %s", tc.label(iter.Type))
		elem = tc.b.Invalid
	}
	tc.scopes.push()
	tc.scopes.declare(&local{name: d.Name, typ: elem, span: d.NameSpan})
	tc.loopDepth++
	body := tc.lowerBlock(d.Body)
	tc.loopDepth--
	tc.scopes.pop()
	return &hir.Stmt{Kind: hir.StmtForIn, Span: s.Span, Data: hir.ForInData{
		Name: d.Name, ElemType: elem, Iter: iter, Body: body,
	}}
}

// lowerWatchCall handles x.$watch.options(...) and x.$watch.notify().
func (tc *typeChecker) lowerWatchCall(e *ast.Expr) *hir.Stmt {
	d := e.Data.(*ast.WatchData)
	if d.X.Kind != ast.ExprIdent {
		tc.errorf(diag.SemaWatchNotLocal, d.X.Span, "$watch is only available on local variables")
		return nil
	}
	name := d.X.Data.(*ast.IdentData).Name
	l := tc.scopes.lookup(name)
	if l == nil {
		tc.errorf(diag.SemaUndefinedVariable, d.X.Span, "undefined variable %q", name)
		return nil
	}

	switch d.Method {
	case "notify":
		if len(d.Args) != 0 {
			tc.errorf(diag.SemaArgumentCount, e.Span, "$watch.notify takes no arguments")
		}
		if !l.watched {
			tc.errorf(diag.SemaWatchNotLocal, d.X.Span, "%q is not watched", name)
		}
		return &hir.Stmt{Kind: hir.StmtNotify, Span: e.Span, Data: hir.NotifyData{Name: name}}
	case "options":
		if len(d.Args) != 1 {
			tc.errorf(diag.SemaArgumentCount, e.Span, "$watch.options takes one argument")
			return nil
		}
		arg := d.Args[0]
		lit, ok := arg.Data.(*ast.ClassLitData)
		if !ok || lit.Name != builtin.WatchOptions {
			tc.errorf(diag.SemaTypeMismatch, arg.Span, "$watch.options expects a %s literal", builtin.WatchOptions)
			return nil
		}
		out := hir.WatchData{Name: name}
		for _, f := range lit.Fields {
			if f.Spread {
				tc.errorf(diag.SemaTypeMismatch, f.Span, "spread is not supported in watch options")
				continue
			}
			switch f.Name {
			case "channel":
				out.Channel = tc.lowerExpr(f.Value)
				if !tc.types.Assignable(out.Channel.Type, tc.types.Optional(tc.b.String)) {
					tc.errorf(diag.SemaTypeMismatch, f.Value.Span, "watch channel must be a string")
				}
			case "when":
				out.Filter = tc.lowerWatchFilter(f.Value)
			default:
				tc.errorf(diag.SemaUndefinedField, f.Span, "%s has no field %q", builtin.WatchOptions, f.Name)
			}
		}
		l.watched = true
		return &hir.Stmt{Kind: hir.StmtWatch, Span: e.Span, Data: out}
	}
	tc.errorf(diag.SemaUnknownMethod, e.Span, "unknown $watch method %q", d.Method)
	return nil
}

func (tc *typeChecker) lowerWatchFilter(e *ast.Expr) *hir.Expr {
	f := tc.lowerExpr(e)
	switch {
	case f.Kind == hir.ExprLiteral:
		lit := f.Data.(hir.LiteralData)
		if lit.Kind == hir.LiteralNull {
			return f
		}
		if lit.Kind == hir.LiteralString && (lit.String == builtin.FilterManual || lit.String == builtin.FilterNever) {
			return f
		}
	case tc.types.KindOf(f.Type) == types.KindArrow:
		t := tc.types.MustLookup(f.Type)
		if len(t.Members) != 1 || !tc.types.Assignable(t.Elem, tc.b.Bool) {
			tc.errorf(diag.SemaTypeMismatch, e.Span, "watch filter must take one argument and return bool")
		}
		return f
	case tc.types.KindOf(f.Type) == types.KindInvalid:
		return f
	}
	tc.errorf(diag.SemaTypeMismatch, e.Span, "watch filter must be a function, %q or %q", builtin.FilterManual, builtin.FilterNever)
	return f
}

// lowerCond lowers a condition and requires it to be a bool.
func (tc *typeChecker) lowerCond(e *ast.Expr) *hir.Expr {
	c := tc.lowerExpr(e)
	switch tc.types.KindOf(c.Type) {
	case types.KindBool, types.KindTop, types.KindUnknown, types.KindInvalid:
	default:
		tc.errorf(diag.SemaTypeMismatch, e.Span, "condition must be bool, found %s", tc.label(c.Type))
	}
	return c
}
