// Package compiler lowers a checked hir.Module into a bytecode.Program.
//
// Every exec function becomes one bytecode.Function whose locals live on the
// VM stack: slot 0 is the function itself, parameters follow, and each let
// binding occupies the stack position its value was computed into. Control
// flow uses relative jumps patched once their target is known. Unless
// disabled, codegen also builds the visualization nodes of each function and
// brackets the corresponding regions with VizEnter/VizExit.
package compiler

import (
	"context"
	"errors"
	"fmt"

	"baml/internal/builtin"
	"baml/internal/bytecode"
	"baml/internal/diag"
	"baml/internal/hir"
	"baml/internal/source"
	"baml/internal/trace"
	"baml/internal/types"
)

// ErrCompile is returned when code generation reported diagnostics.
var ErrCompile = errors.New("compilation failed")

// Options configure code generation.
type Options struct {
	// Files resolves spans to source lines; nil leaves every line at 0.
	Files    *source.FileSet
	Reporter diag.Reporter
	// NoViz skips visualization nodes and VizEnter/VizExit instructions.
	NoViz bool
}

type compiler struct {
	mod      *hir.Module
	opts     Options
	reporter diag.Reporter
	prog     *bytecode.Program
	errors   int

	globals map[string]int
	strings map[string]bytecode.ObjectIndex
	shapes  map[string]bytecode.ObjectIndex
}

// Compile generates bytecode for every function of mod. The program is
// returned even when diagnostics were reported so tooling can inspect the
// functions that did compile; the error is then ErrCompile.
func Compile(ctx context.Context, mod *hir.Module, opts Options) (*bytecode.Program, error) {
	_, span := trace.Start(ctx, trace.ScopePass, "compile")
	defer span.End("")

	c := &compiler{
		mod:      mod,
		opts:     opts,
		reporter: opts.Reporter,
		prog:     bytecode.NewProgram(),
		globals:  make(map[string]int),
		strings:  make(map[string]bytecode.ObjectIndex),
		shapes:   make(map[string]bytecode.ObjectIndex),
	}
	if c.reporter == nil {
		c.reporter = diag.NopReporter{}
	}

	c.declare()
	for _, hfn := range mod.Funcs {
		if hfn.Kind != hir.FuncExec {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fnSpan := span.Child(trace.ScopeFunction, "codegen").Attr("func", hfn.Name)
		c.compileFunc(hfn)
		fnSpan.End("")
	}

	span.Attr("objects", fmt.Sprint(len(c.prog.Objects)))
	if c.errors > 0 {
		return c.prog, ErrCompile
	}
	if err := c.prog.Validate(); err != nil {
		panic(fmt.Errorf("compiler produced an invalid program: %w", err))
	}
	return c.prog, nil
}

// declare lays out the static region: classes, enums, user functions and
// then builtins. Functions are registered as globals in that order.
func (c *compiler) declare() {
	p := c.prog
	for _, cls := range c.mod.Classes {
		names := make([]string, len(cls.Fields))
		shapes := make([]*types.Shape, len(cls.Fields))
		for i, f := range cls.Fields {
			names[i] = f.Name
			shapes[i] = c.mod.Types.Reify(f.Type)
		}
		p.Classes[cls.Name] = p.Add(&bytecode.Class{Name: cls.Name, FieldNames: names, FieldTypes: shapes})
	}
	for _, en := range c.mod.Enums {
		p.Enums[en.Name] = p.Add(&bytecode.Enum{Name: en.Name, Variants: append([]string(nil), en.Variants...)})
	}

	for _, hfn := range c.mod.Funcs {
		fn := &bytecode.Function{
			Name:       hfn.Name,
			Arity:      len(hfn.Params),
			Span:       hfn.Span,
			ReturnType: c.mod.Types.Reify(hfn.Result),
			Params:     make([]string, len(hfn.Params)),
		}
		for i, prm := range hfn.Params {
			fn.Params[i] = prm.Name
		}
		if hfn.Kind == hir.FuncLlm {
			fn.Kind = bytecode.FuncLlm
			if hfn.Llm != nil {
				fn.Llm = &bytecode.LlmSpec{Client: hfn.Llm.Client, Prompt: hfn.Llm.Prompt}
			}
		}
		c.addGlobal(hfn.Name, fn)
	}

	for _, b := range builtin.All() {
		fn := &bytecode.Function{Name: b.Name, Arity: b.Arity, Kind: bytecode.FuncNative}
		if b.Kind == builtin.KindFuture {
			fn.Kind = bytecode.FuncFuture
			fn.ReturnType = &types.Shape{Kind: types.KindTop}
		}
		c.addGlobal(b.Name, fn)
	}
}

func (c *compiler) addGlobal(name string, fn *bytecode.Function) {
	idx := c.prog.Add(fn)
	g := len(c.prog.Globals)
	c.prog.Globals = append(c.prog.Globals, bytecode.Obj(idx))
	c.prog.Functions[name] = bytecode.GlobalRef{Global: g, Object: idx}
	c.globals[name] = g
}

// stringObject interns a string constant in the static region.
func (c *compiler) stringObject(s string) bytecode.ObjectIndex {
	if idx, ok := c.strings[s]; ok {
		return idx
	}
	idx := c.prog.Add(&bytecode.String{Value: s})
	c.strings[s] = idx
	return idx
}

// typeObject interns a reified type constant.
func (c *compiler) typeObject(id types.TypeID) bytecode.ObjectIndex {
	shape := c.mod.Types.Reify(id)
	key := shape.String()
	if idx, ok := c.shapes[key]; ok {
		return idx
	}
	idx := c.prog.Add(&bytecode.BamlType{Type: shape})
	c.shapes[key] = idx
	return idx
}

func (c *compiler) errorf(code diag.Code, sp source.Span, format string, args ...any) {
	c.errors++
	diag.ReportErrorf(c.reporter, code, sp, format, args...).Emit()
}

func (c *compiler) line(sp source.Span) int {
	if c.opts.Files == nil {
		return 0
	}
	f := c.opts.Files.Get(sp.File)
	if f == nil {
		return 0
	}
	return int(f.LineOf(sp.Start))
}

func (c *compiler) compileFunc(hfn *hir.Func) {
	ref := c.prog.Functions[hfn.Name]
	fn := c.prog.Objects[ref.Object].(*bytecode.Function)
	fc := newFuncCompiler(c, hfn, fn)
	fc.body()
}
