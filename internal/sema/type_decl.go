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

func (tc *typeChecker) registerBuiltins() {
	str := tc.b.String
	strMap := tc.types.Optional(tc.types.Map(str, str))

	method := &hir.Enum{Name: builtin.HttpMethod, Variants: builtin.HttpMethods, Builtin: true}
	tc.enums[method.Name] = method
	tc.module.Enums = append(tc.module.Enums, method)

	request := &hir.Class{Name: builtin.HttpRequest, Builtin: true, Fields: []hir.Field{
		{Name: "url", Type: str},
		{Name: "method", Type: tc.types.Enum(builtin.HttpMethod)},
		{Name: "headers", Type: strMap},
		{Name: "query_params", Type: strMap},
		{Name: "json", Type: tc.types.Optional(tc.b.Top)},
	}}
	filter := tc.types.Union(str, tc.types.Arrow([]types.TypeID{tc.b.Top}, tc.b.Bool))
	options := &hir.Class{Name: builtin.WatchOptions, Builtin: true, Fields: []hir.Field{
		{Name: "channel", Type: tc.types.Optional(str)},
		{Name: "when", Type: tc.types.Optional(filter)},
	}}
	for _, c := range []*hir.Class{request, options} {
		tc.classes[c.Name] = c
		tc.module.Classes = append(tc.module.Classes, c)
	}
}

// collect registers every declaration before any body is checked so items
// may reference each other in any order.
func (tc *typeChecker) collect(files []*ast.File) {
	seen := map[string]source.Span{}
	declare := func(name string, sp source.Span) bool {
		if builtin.IsReserved(name) {
			tc.errorf(diag.SemaDuplicateSymbol, sp, "%q is reserved for builtins", name)
			return false
		}
		if prev, ok := seen[name]; ok {
			diag.ReportErrorf(tc.reporter, diag.SemaDuplicateSymbol, sp, "%q is declared more than once", name).
				WithNote(prev, "previous declaration").
				Emit()
			return false
		}
		seen[name] = sp
		return true
	}

	// names first
	var classItems []*ast.Item
	for _, f := range files {
		for _, it := range f.Items {
			switch it.Kind {
			case ast.ItemClass:
				if !declare(it.Name, it.NameSpan) {
					continue
				}
				c := &hir.Class{Name: it.Name, Span: it.Span}
				tc.classes[c.Name] = c
				tc.module.Classes = append(tc.module.Classes, c)
				classItems = append(classItems, it)
			case ast.ItemEnum:
				if !declare(it.Name, it.NameSpan) {
					continue
				}
				e := &hir.Enum{Name: it.Name, Span: it.Span}
				for _, v := range it.Data.(*ast.EnumData).Variants {
					if e.VariantIndex(v.Name) >= 0 {
						tc.errorf(diag.SemaDuplicateSymbol, v.Span, "duplicate variant %s.%s", it.Name, v.Name)
						continue
					}
					e.Variants = append(e.Variants, v.Name)
				}
				tc.enums[e.Name] = e
				tc.module.Enums = append(tc.module.Enums, e)
			}
		}
	}

	for _, it := range classItems {
		c := tc.classes[it.Name]
		data := it.Data.(*ast.ClassData)
		for _, fd := range data.Fields {
			if c.FieldIndex(fd.Name) >= 0 {
				tc.errorf(diag.SemaDuplicateField, fd.Span, "duplicate field %s.%s", c.Name, fd.Name)
				continue
			}
			c.Fields = append(c.Fields, hir.Field{Name: fd.Name, Type: tc.resolveType(fd.Type), Span: fd.Span})
		}
		for _, m := range data.Methods {
			name := c.Name + "." + m.Name
			if !declare(name, m.NameSpan) {
				continue
			}
			tc.declareFunc(name, m, tc.types.Class(c.Name))
		}
	}

	for _, f := range files {
		for _, it := range f.Items {
			if it.Kind != ast.ItemFunction {
				continue
			}
			if !declare(it.Name, it.NameSpan) {
				continue
			}
			tc.declareFunc(it.Name, it.Data.(*ast.FuncDecl), types.NoTypeID)
		}
	}
}

// declareFunc builds the signature and the hir.Func shell. self is the
// receiver type for methods and NoTypeID otherwise.
func (tc *typeChecker) declareFunc(name string, decl *ast.FuncDecl, self types.TypeID) {
	fn := &hir.Func{Name: name, Span: decl.Span, Result: tc.b.Null}
	sig := &funcSig{name: name, decl: decl, hir: fn}
	if self != types.NoTypeID && decl.HasSelf {
		fn.Params = append(fn.Params, hir.Param{Name: "self", Type: self, Span: decl.NameSpan})
	}
	for _, p := range decl.Params {
		for _, prev := range fn.Params {
			if prev.Name == p.Name {
				tc.errorf(diag.SemaDuplicateSymbol, p.Span, "duplicate parameter %q", p.Name)
			}
		}
		fn.Params = append(fn.Params, hir.Param{Name: p.Name, Type: tc.resolveType(p.Type), Span: p.Span})
	}
	if decl.Result != nil {
		fn.Result = tc.resolveType(decl.Result)
	}
	if decl.Llm != nil {
		fn.Kind = hir.FuncLlm
		fn.Llm = &hir.LlmSpec{Client: decl.Llm.Client, Prompt: decl.Llm.Prompt}
		sig.llm = true
	}
	for _, p := range fn.Params {
		sig.params = append(sig.params, p.Type)
	}
	sig.result = fn.Result
	tc.funcs[name] = sig
	tc.module.Funcs = append(tc.module.Funcs, fn)
}

func (tc *typeChecker) resolveType(te *ast.TypeExpr) types.TypeID {
	if te == nil {
		return tc.b.Unknown
	}
	switch te.Kind {
	case ast.TypeList:
		return tc.types.List(tc.resolveType(te.Args[0]))
	case ast.TypeOptional:
		return tc.types.Optional(tc.resolveType(te.Args[0]))
	case ast.TypeUnion:
		members := make([]types.TypeID, len(te.Args))
		for i, a := range te.Args {
			members[i] = tc.resolveType(a)
		}
		return tc.types.Union(members...)
	case ast.TypeArrow:
		params := make([]types.TypeID, len(te.Args))
		for i, a := range te.Args {
			params[i] = tc.resolveType(a)
		}
		return tc.types.Arrow(params, tc.resolveType(te.Ret))
	case ast.TypeStringLit:
		return tc.b.String
	}

	switch te.Name {
	case "int":
		return tc.b.Int
	case "float":
		return tc.b.Float
	case "bool":
		return tc.b.Bool
	case "string":
		return tc.b.String
	case "null":
		return tc.b.Null
	case "any", "json":
		return tc.b.Top
	case "image", "audio", "video", "pdf":
		return tc.types.Media(te.Name)
	case "map":
		if len(te.Args) != 2 {
			tc.errorf(diag.SemaTypeMismatch, te.Span, "map expects two type arguments")
			return tc.b.Invalid
		}
		return tc.types.Map(tc.resolveType(te.Args[0]), tc.resolveType(te.Args[1]))
	}
	if _, ok := tc.classes[te.Name]; ok {
		return tc.types.Class(te.Name)
	}
	if _, ok := tc.enums[te.Name]; ok {
		return tc.types.Enum(te.Name)
	}
	code := diag.SemaUndefinedClass
	if !strings.Contains(te.Name, ".") && len(te.Name) > 0 && te.Name[0] >= 'a' && te.Name[0] <= 'z' {
		code = diag.SemaError
	}
	tc.errorf(code, te.Span, "unknown type %q", te.Name)
	return tc.b.Invalid
}
