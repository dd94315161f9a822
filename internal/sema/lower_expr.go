package sema

import (
	"strings"

	"baml/internal/ast"
	"baml/internal/builtin"
	"baml/internal/diag"
	"baml/internal/hir"
	"baml/internal/source"
	"baml/internal/token"
	"baml/internal/types"
)

// invalid is the placeholder for expressions that failed to check.
func (tc *typeChecker) invalid(sp source.Span) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprLiteral, Type: tc.b.Invalid, Span: sp, Data: hir.LiteralData{Kind: hir.LiteralNull}}
}

func (tc *typeChecker) literal(sp source.Span, d hir.LiteralData) *hir.Expr {
	var t types.TypeID
	switch d.Kind {
	case hir.LiteralInt:
		t = tc.b.Int
	case hir.LiteralFloat:
		t = tc.b.Float
	case hir.LiteralBool:
		t = tc.b.Bool
	case hir.LiteralString:
		t = tc.b.String
	default:
		t = tc.b.Null
	}
	return &hir.Expr{Kind: hir.ExprLiteral, Type: t, Span: sp, Data: d}
}

func (tc *typeChecker) lowerExpr(e *ast.Expr) *hir.Expr {
	if e == nil {
		return tc.literal(source.Span{}, hir.LiteralData{Kind: hir.LiteralNull})
	}
	switch e.Kind {
	case ast.ExprLit:
		d := e.Data.(*ast.LitData)
		switch d.Kind {
		case ast.LitInt:
			return tc.literal(e.Span, hir.LiteralData{Kind: hir.LiteralInt, Int: d.Int})
		case ast.LitFloat:
			return tc.literal(e.Span, hir.LiteralData{Kind: hir.LiteralFloat, Float: d.Float})
		case ast.LitString:
			return tc.literal(e.Span, hir.LiteralData{Kind: hir.LiteralString, String: d.String})
		case ast.LitBool:
			return tc.literal(e.Span, hir.LiteralData{Kind: hir.LiteralBool, Bool: d.Bool})
		}
		return tc.literal(e.Span, hir.LiteralData{Kind: hir.LiteralNull})
	case ast.ExprIdent:
		return tc.lowerIdent(e)
	case ast.ExprArray:
		d := e.Data.(*ast.ArrayData)
		out := hir.ArrayData{Elems: make([]*hir.Expr, len(d.Elems))}
		elem := tc.b.Unknown
		for i, x := range d.Elems {
			out.Elems[i] = tc.lowerExpr(x)
			elem = tc.types.Join(elem, out.Elems[i].Type)
		}
		return &hir.Expr{Kind: hir.ExprArray, Type: tc.types.List(elem), Span: e.Span, Data: out}
	case ast.ExprMap:
		d := e.Data.(*ast.MapData)
		out := hir.MapData{Entries: make([]hir.MapEntry, 0, len(d.Entries))}
		value := tc.b.Unknown
		for _, ent := range d.Entries {
			v := tc.lowerExpr(ent.Value)
			value = tc.types.Join(value, v.Type)
			out.Entries = append(out.Entries, hir.MapEntry{Key: ent.Key, Value: v, Span: ent.KeySpan})
		}
		return &hir.Expr{Kind: hir.ExprMap, Type: tc.types.Map(tc.b.String, value), Span: e.Span, Data: out}
	case ast.ExprClassLit:
		return tc.lowerClassLit(e)
	case ast.ExprField:
		return tc.lowerField(e)
	case ast.ExprIndex:
		return tc.lowerIndex(e)
	case ast.ExprCall:
		return tc.lowerCall(e)
	case ast.ExprUnary:
		d := e.Data.(*ast.UnaryData)
		x := tc.lowerExpr(d.X)
		if d.Op == token.Bang {
			if k := tc.types.KindOf(x.Type); k != types.KindBool && !tc.isDynamic(x.Type) {
				tc.errorf(diag.SemaTypeMismatch, e.Span, "operator ! needs bool, found %s", tc.label(x.Type))
			}
			return &hir.Expr{Kind: hir.ExprUnary, Type: tc.b.Bool, Span: e.Span, Data: hir.UnaryData{Op: hir.UnaryNot, Operand: x}}
		}
		if !tc.types.IsNumeric(x.Type) && !tc.isDynamic(x.Type) {
			tc.errorf(diag.SemaTypeMismatch, e.Span, "operator - needs a number, found %s", tc.label(x.Type))
		}
		return &hir.Expr{Kind: hir.ExprUnary, Type: x.Type, Span: e.Span, Data: hir.UnaryData{Op: hir.UnaryNeg, Operand: x}}
	case ast.ExprBinary:
		d := e.Data.(*ast.BinaryData)
		op := binaryOps[d.Op]
		l := tc.lowerExpr(d.X)
		r := tc.lowerExpr(d.Y)
		t := tc.binaryType(op, l, r, e.Span)
		return &hir.Expr{Kind: hir.ExprBinary, Type: t, Span: e.Span, Data: hir.BinaryData{Op: op, Left: l, Right: r}}
	case ast.ExprInstanceof:
		d := e.Data.(*ast.InstanceofData)
		x := tc.lowerExpr(d.X)
		if _, ok := tc.classes[d.Class]; !ok {
			tc.errorf(diag.SemaUndefinedClass, d.ClassSpan, "undefined class %q", d.Class)
		}
		return &hir.Expr{Kind: hir.ExprInstanceof, Type: tc.b.Bool, Span: e.Span, Data: hir.InstanceofData{Value: x, Class: d.Class}}
	case ast.ExprIf:
		return tc.lowerIf(e)
	case ast.ExprBlock:
		b := tc.lowerBlock(e.Data.(*ast.BlockData).Block)
		return &hir.Expr{Kind: hir.ExprBlock, Type: tc.blockType(b), Span: e.Span, Data: hir.BlockData{Block: b}}
	case ast.ExprWatch:
		tc.errorf(diag.SynBadWatchCall, e.Span, "$watch calls are statements and produce no value")
		return tc.invalid(e.Span)
	}
	return tc.invalid(e.Span)
}

func (tc *typeChecker) blockType(b *hir.Block) types.TypeID {
	if b.Tail == nil {
		return tc.b.Null
	}
	return b.Tail.Type
}

// isDynamic reports types whose operations are checked at run time.
func (tc *typeChecker) isDynamic(id types.TypeID) bool {
	switch tc.types.KindOf(id) {
	case types.KindTop, types.KindUnknown, types.KindInvalid:
		return true
	}
	return false
}

func (tc *typeChecker) lowerIdent(e *ast.Expr) *hir.Expr {
	name := e.Data.(*ast.IdentData).Name
	if l := tc.scopes.lookup(name); l != nil {
		return &hir.Expr{Kind: hir.ExprLocal, Type: l.typ, Span: e.Span, Data: hir.LocalData{Name: name}}
	}
	if sig, ok := tc.funcs[name]; ok {
		return &hir.Expr{Kind: hir.ExprGlobal, Type: tc.types.Arrow(sig.params, sig.result), Span: e.Span, Data: hir.GlobalData{Name: name}}
	}
	tc.errorf(diag.SemaUndefinedVariable, e.Span, "undefined variable %q", name)
	return tc.invalid(e.Span)
}

var binaryOps = map[token.Kind]hir.BinaryOp{
	token.Plus:    hir.BinAdd,
	token.Minus:   hir.BinSub,
	token.Star:    hir.BinMul,
	token.Slash:   hir.BinDiv,
	token.Percent: hir.BinMod,
	token.Amp:     hir.BinBitAnd,
	token.Pipe:    hir.BinBitOr,
	token.Caret:   hir.BinBitXor,
	token.Shl:     hir.BinShl,
	token.Shr:     hir.BinShr,
	token.EqEq:    hir.BinEq,
	token.BangEq:  hir.BinNotEq,
	token.Lt:      hir.BinLt,
	token.LtEq:    hir.BinLtEq,
	token.Gt:      hir.BinGt,
	token.GtEq:    hir.BinGtEq,
	token.AndAnd:  hir.BinAnd,
	token.OrOr:    hir.BinOr,
}

func (tc *typeChecker) binaryType(op hir.BinaryOp, l, r *hir.Expr, sp source.Span) types.TypeID {
	lk, rk := tc.types.KindOf(l.Type), tc.types.KindOf(r.Type)
	if lk == types.KindInvalid || rk == types.KindInvalid {
		return tc.b.Invalid
	}
	dynamic := tc.isDynamic(l.Type) || tc.isDynamic(r.Type)
	mismatch := func() types.TypeID {
		tc.errorf(diag.SemaTypeMismatch, sp, "operator %s cannot be applied to %s and %s", op, tc.label(l.Type), tc.label(r.Type))
		return tc.b.Invalid
	}

	switch {
	case op.IsLogical():
		if !dynamic && (lk != types.KindBool || rk != types.KindBool) {
			return mismatch()
		}
		return tc.b.Bool
	case op == hir.BinEq || op == hir.BinNotEq:
		return tc.b.Bool
	case op.IsComparison():
		numeric := tc.types.IsNumeric(l.Type) && tc.types.IsNumeric(r.Type)
		strs := lk == types.KindString && rk == types.KindString
		if !dynamic && !numeric && !strs {
			return mismatch()
		}
		return tc.b.Bool
	case op == hir.BinAdd && (lk == types.KindString || rk == types.KindString):
		return tc.b.String
	case op >= hir.BinBitAnd && op <= hir.BinShr:
		if !dynamic && (lk != types.KindInt || rk != types.KindInt) {
			return mismatch()
		}
		return tc.b.Int
	}

	// arithmetic
	if dynamic {
		if tc.types.IsNumeric(l.Type) && tc.types.IsNumeric(r.Type) {
			return tc.types.Join(l.Type, r.Type)
		}
		return tc.b.Top
	}
	if !tc.types.IsNumeric(l.Type) || !tc.types.IsNumeric(r.Type) {
		return mismatch()
	}
	if lk == types.KindFloat || rk == types.KindFloat {
		return tc.b.Float
	}
	return tc.b.Int
}

func (tc *typeChecker) lowerIf(e *ast.Expr) *hir.Expr {
	d := e.Data.(*ast.IfData)
	cond := tc.lowerCond(d.Cond)
	then := tc.lowerBlock(d.Then)
	out := hir.IfData{Cond: cond, Then: then}
	t := tc.blockType(then)
	if d.Else != nil {
		out.Else = tc.lowerExpr(d.Else)
		t = tc.types.Join(t, out.Else.Type)
	} else {
		t = tc.types.Join(t, tc.b.Null)
	}
	return &hir.Expr{Kind: hir.ExprIf, Type: t, Span: e.Span, Data: out}
}

func (tc *typeChecker) lowerIndex(e *ast.Expr) *hir.Expr {
	d := e.Data.(*ast.IndexData)
	obj := tc.lowerExpr(d.X)
	idx := tc.lowerExpr(d.Index)
	out := hir.IndexData{Object: obj, Index: idx}
	t := tc.b.Top
	switch ot := tc.types.MustLookup(tc.types.StripOptional(obj.Type)); ot.Kind {
	case types.KindList:
		t = ot.Elem
		if k := tc.types.KindOf(idx.Type); k != types.KindInt && !tc.isDynamic(idx.Type) {
			tc.errorf(diag.SemaTypeMismatch, d.Index.Span, "array index must be int, found %s", tc.label(idx.Type))
		}
	case types.KindMap:
		t = ot.Elem
		out.IsMap = true
		if !tc.types.Assignable(idx.Type, ot.Key) {
			tc.errorf(diag.SemaTypeMismatch, d.Index.Span, "map key must be %s, found %s", tc.label(ot.Key), tc.label(idx.Type))
		}
	case types.KindTop, types.KindUnknown:
		out.IsMap = tc.types.KindOf(idx.Type) == types.KindString
	case types.KindInvalid:
		t = tc.b.Invalid
	default:
		tc.errorf(diag.SemaTypeMismatch, e.Span, "cannot index %s", tc.label(obj.Type))
		t = tc.b.Invalid
	}
	return &hir.Expr{Kind: hir.ExprIndex, Type: t, Span: e.Span, Data: out}
}

// lowerField resolves enum variants, env.NAME and global paths before
// falling back to instance field access.
func (tc *typeChecker) lowerField(e *ast.Expr) *hir.Expr {
	if path, ok := ast.PathOf(e); ok {
		root, _, _ := strings.Cut(path, ".")
		if tc.scopes.lookup(root) == nil {
			if g := tc.resolveGlobalPath(path, e.Span); g != nil {
				return g
			}
		}
	}

	d := e.Data.(*ast.FieldData)
	obj := tc.lowerExpr(d.X)
	t := tc.types.MustLookup(tc.types.StripOptional(obj.Type))
	switch t.Kind {
	case types.KindClass:
		cls := tc.classes[t.Name]
		idx := -1
		if cls != nil {
			idx = cls.FieldIndex(d.Name)
		}
		if idx < 0 {
			tc.errorf(diag.SemaUndefinedField, d.NameSpan, "class %s has no field %q", t.Name, d.Name)
			return tc.invalid(e.Span)
		}
		return &hir.Expr{Kind: hir.ExprField, Type: cls.Fields[idx].Type, Span: e.Span, Data: hir.FieldData{
			Object: obj, Class: cls.Name, Name: d.Name, Index: idx,
		}}
	case types.KindInvalid:
		return tc.invalid(e.Span)
	}
	tc.errorf(diag.SemaUndefinedField, d.NameSpan, "%s has no field %q", tc.label(obj.Type), d.Name)
	return tc.invalid(e.Span)
}

// resolveGlobalPath returns nil when path names nothing global.
func (tc *typeChecker) resolveGlobalPath(path string, sp source.Span) *hir.Expr {
	if i := strings.LastIndexByte(path, '.'); i > 0 {
		enumName, variant := path[:i], path[i+1:]
		if en, ok := tc.enums[enumName]; ok {
			idx := en.VariantIndex(variant)
			if idx < 0 {
				tc.errorf(diag.SemaUndefinedVariant, sp, "enum %s has no variant %q", enumName, variant)
				return tc.invalid(sp)
			}
			return &hir.Expr{Kind: hir.ExprVariant, Type: tc.types.Enum(enumName), Span: sp, Data: hir.VariantData{
				Enum: enumName, Variant: variant, Index: idx,
			}}
		}
	}

	root, rest, _ := strings.Cut(path, ".")
	if root == "env" && rest != "" && !strings.Contains(rest, ".") && rest != "get" {
		key := tc.literal(sp, hir.LiteralData{Kind: hir.LiteralString, String: rest})
		return tc.builtinCall(builtin.EnvGet, []*hir.Expr{key}, tc.b.String, sp)
	}
	if sig, ok := tc.funcs[path]; ok {
		return &hir.Expr{Kind: hir.ExprGlobal, Type: tc.types.Arrow(sig.params, sig.result), Span: sp, Data: hir.GlobalData{Name: path}}
	}
	if _, ok := builtin.Lookup(path); ok {
		return &hir.Expr{Kind: hir.ExprGlobal, Type: tc.b.Top, Span: sp, Data: hir.GlobalData{Name: path}}
	}
	if root == "baml" || root == "env" {
		tc.errorf(diag.SemaUndefinedFunction, sp, "unknown builtin %q", path)
		return tc.invalid(sp)
	}
	return nil
}

func (tc *typeChecker) lowerClassLit(e *ast.Expr) *hir.Expr {
	d := e.Data.(*ast.ClassLitData)
	cls, ok := tc.classes[d.Name]
	if !ok {
		tc.errorf(diag.SemaUndefinedClass, d.NameSpan, "undefined class %q", d.Name)
		for _, f := range d.Fields {
			tc.lowerExpr(f.Value)
		}
		return tc.invalid(e.Span)
	}
	classType := tc.types.Class(cls.Name)
	out := hir.ClassLitData{Class: cls.Name, NumFields: len(cls.Fields)}
	set := make([]bool, len(cls.Fields))
	hasSpread := false

	for _, f := range d.Fields {
		v := tc.lowerExpr(f.Value)
		if f.Spread {
			hasSpread = true
			if vt := tc.types.StripOptional(v.Type); vt != classType && !tc.isDynamic(vt) {
				tc.errorf(diag.SemaSpreadNotClass, f.Span, "cannot spread %s into %s", tc.label(v.Type), cls.Name)
			}
			out.Inits = append(out.Inits, hir.ClassInit{Spread: true, Value: v, Span: f.Span})
			continue
		}
		idx := cls.FieldIndex(f.Name)
		if idx < 0 {
			tc.errorf(diag.SemaUndefinedField, f.Span, "class %s has no field %q", cls.Name, f.Name)
			continue
		}
		if set[idx] {
			tc.errorf(diag.SemaDuplicateField, f.Span, "field %q is initialized twice", f.Name)
			continue
		}
		set[idx] = true
		if !tc.types.Assignable(v.Type, cls.Fields[idx].Type) {
			tc.errorf(diag.SemaTypeMismatch, f.Value.Span, "field %s.%s has type %s, found %s",
				cls.Name, f.Name, tc.label(cls.Fields[idx].Type), tc.label(v.Type))
		}
		out.Inits = append(out.Inits, hir.ClassInit{Name: f.Name, Index: idx, Value: v, Span: f.Span})
	}

	if !hasSpread && !cls.Builtin {
		for i, f := range cls.Fields {
			if !set[i] && !tc.types.Assignable(tc.b.Null, f.Type) {
				tc.errorf(diag.SemaUndefinedField, e.Span, "missing field %q in %s", f.Name, cls.Name)
			}
		}
	}
	return &hir.Expr{Kind: hir.ExprClassLit, Type: classType, Span: e.Span, Data: out}
}
