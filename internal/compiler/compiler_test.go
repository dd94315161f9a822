package compiler_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"baml/internal/ast"
	"baml/internal/bytecode"
	"baml/internal/compiler"
	"baml/internal/diag"
	"baml/internal/hir"
	"baml/internal/parser"
	"baml/internal/sema"
	"baml/internal/source"
	"baml/internal/types"
	"baml/internal/viz"
)

func checkSource(t *testing.T, src string) (*hir.Module, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.baml", []byte(src))
	bag := diag.NewBag(0)
	rep := diag.BagReporter{Bag: bag}
	file := parser.ParseFile(fs.Get(id), parser.Options{Reporter: rep})
	mod := sema.Check([]*ast.File{file}, sema.Options{Reporter: rep, Types: types.NewInterner()})
	if bag.HasErrors() {
		t.Fatalf("front-end diagnostics: %v", bag.Items())
	}
	return mod, fs
}

func compileSource(t *testing.T, src string, noViz bool) *bytecode.Program {
	t.Helper()
	mod, fs := checkSource(t, src)
	bag := diag.NewBag(0)
	prog, err := compiler.Compile(context.Background(), mod, compiler.Options{
		Files:    fs,
		Reporter: diag.BagReporter{Bag: bag},
		NoViz:    noViz,
	})
	if err != nil {
		t.Fatalf("compile: %v (%v)", err, bag.Items())
	}
	return prog
}

func listing(t *testing.T, prog *bytecode.Program, name string) []string {
	t.Helper()
	fn, _, ok := prog.Function(name)
	if !ok {
		t.Fatalf("function %s not found", name)
	}
	return prog.RenderAll(fn)
}

func expectListing(t *testing.T, src, name string, want []string) {
	t.Helper()
	got := listing(t, compileSource(t, src, true), name)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("listing of %s:\n got: %s\nwant: %s", name, strings.Join(got, "\n      "), strings.Join(want, "\n      "))
	}
}

func TestCompileLocals(t *testing.T) {
	expectListing(t, `
function main() -> int {
  let a = 1;
  let b = 2;
  a + b
}`, "main", []string{
		"LOAD_CONST 1",
		"LOAD_CONST 2",
		"LOAD_VAR a",
		"LOAD_VAR b",
		"BIN_OP +",
		"RETURN",
	})
}

func TestCompileFib(t *testing.T) {
	expectListing(t, `
function fib(n: int) -> int {
  if (n <= 1) { n } else { fib(n - 1) + fib(n - 2) }
}`, "fib", []string{
		"LOAD_VAR n",
		"LOAD_CONST 1",
		"CMP_OP <=",
		"JUMP_IF_FALSE +4",
		"POP 1",
		"LOAD_VAR n",
		"JUMP +13",
		"POP 1",
		"LOAD_GLOBAL fib",
		"LOAD_VAR n",
		"LOAD_CONST 1",
		"BIN_OP -",
		"CALL 1",
		"LOAD_GLOBAL fib",
		"LOAD_VAR n",
		"LOAD_CONST 2",
		"BIN_OP -",
		"CALL 1",
		"BIN_OP +",
		"RETURN",
	})
}

const pointClass = `
class Point {
  x int
  y int
}
`

func TestCompileClassSpreads(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "explicit fields",
			body: "Point { x: 1, y: 2 }",
			want: []string{
				"ALLOC_INSTANCE Point",
				"COPY 0", "LOAD_CONST 1", "STORE_FIELD 0",
				"COPY 0", "LOAD_CONST 2", "STORE_FIELD 1",
				"RETURN",
			},
		},
		{
			name: "spread then override",
			body: "Point { ...p, y: 3 }",
			want: []string{
				"ALLOC_INSTANCE Point",
				"LOAD_VAR p",
				"COPY 1", "COPY 1", "LOAD_FIELD 0", "STORE_FIELD 0",
				"COPY 1", "COPY 1", "LOAD_FIELD 1", "STORE_FIELD 1",
				"POP 1",
				"COPY 0", "LOAD_CONST 3", "STORE_FIELD 1",
				"RETURN",
			},
		},
		{
			name: "spread after field overwrites it",
			body: "Point { x: 5, ...p }",
			want: []string{
				"ALLOC_INSTANCE Point",
				"COPY 0", "LOAD_CONST 5", "STORE_FIELD 0",
				"LOAD_VAR p",
				"COPY 1", "COPY 1", "LOAD_FIELD 0", "STORE_FIELD 0",
				"COPY 1", "COPY 1", "LOAD_FIELD 1", "STORE_FIELD 1",
				"POP 1",
				"RETURN",
			},
		},
		{
			name: "every spread is evaluated in order",
			body: "Point { ...q, ...p }",
			want: []string{
				"ALLOC_INSTANCE Point",
				"LOAD_VAR q",
				"COPY 1", "COPY 1", "LOAD_FIELD 0", "STORE_FIELD 0",
				"COPY 1", "COPY 1", "LOAD_FIELD 1", "STORE_FIELD 1",
				"POP 1",
				"LOAD_VAR p",
				"COPY 1", "COPY 1", "LOAD_FIELD 0", "STORE_FIELD 0",
				"COPY 1", "COPY 1", "LOAD_FIELD 1", "STORE_FIELD 1",
				"POP 1",
				"RETURN",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectListing(t, pointClass+`
function make(p: Point, q: Point) -> Point {
  `+tt.body+`
}`, "make", tt.want)
		})
	}
}

func TestCompileNestedClassLiteral(t *testing.T) {
	expectListing(t, `
class Inner {
  v int
}
class Outer {
  inner Inner
}
function main() -> Outer {
  Outer { inner: Inner { v: 42 } }
}`, "main", []string{
		"ALLOC_INSTANCE Outer",
		"COPY 0",
		"ALLOC_INSTANCE Inner",
		"COPY 0",
		"LOAD_CONST 42",
		"STORE_FIELD 0",
		"STORE_FIELD 0",
		"RETURN",
	})
}

func TestCompileMapCompoundAssign(t *testing.T) {
	expectListing(t, `
function main() -> int {
  let m = { "hi": 1, "yo": 2 };
  m["hi"] += 4;
  m["hi"]
}`, "main", []string{
		"LOAD_CONST 1",
		"LOAD_CONST 2",
		`LOAD_CONST "hi"`,
		`LOAD_CONST "yo"`,
		"ALLOC_MAP 2",
		"LOAD_VAR m",
		`LOAD_CONST "hi"`,
		"COPY 1",
		"COPY 1",
		"LOAD_MAP_ELEMENT",
		"LOAD_CONST 4",
		"BIN_OP +",
		"STORE_MAP_ELEMENT",
		"LOAD_VAR m",
		`LOAD_CONST "hi"`,
		"LOAD_MAP_ELEMENT",
		"RETURN",
	})
}

func TestCompileFieldCompoundAssign(t *testing.T) {
	expectListing(t, `
class Counter {
  v int
}
function bump(c: Counter) -> int {
  c.v += 10;
  c.v
}`, "bump", []string{
		"LOAD_VAR c",
		"COPY 0",
		"LOAD_FIELD 0",
		"LOAD_CONST 10",
		"BIN_OP +",
		"STORE_FIELD 0",
		"LOAD_VAR c",
		"LOAD_FIELD 0",
		"RETURN",
	})
}

func TestCompileWhileBreakContinue(t *testing.T) {
	expectListing(t, `
function main() -> int {
  let i = 0;
  while (i < 10) {
    i += 1;
    if (i == 2) { continue; }
    if (i == 5) { break; }
  }
  i
}`, "main", []string{
		"LOAD_CONST 0",
		"LOAD_VAR i",
		"LOAD_CONST 10",
		"CMP_OP <",
		"JUMP_IF_FALSE +23",
		"POP 1",
		"LOAD_VAR i",
		"LOAD_CONST 1",
		"BIN_OP +",
		"STORE_VAR i",
		"LOAD_VAR i",
		"LOAD_CONST 2",
		"CMP_OP ==",
		"JUMP_IF_FALSE +4",
		"POP 1",
		"JUMP +11",
		"JUMP +2",
		"POP 1",
		"LOAD_VAR i",
		"LOAD_CONST 5",
		"CMP_OP ==",
		"JUMP_IF_FALSE +4",
		"POP 1",
		"JUMP +5",
		"JUMP +2",
		"POP 1",
		"JUMP -25",
		"POP 1",
		"LOAD_VAR i",
		"RETURN",
	})
}

func TestCompileForIn(t *testing.T) {
	expectListing(t, `
function main() -> int {
  let s = 0;
  for (let x in [1, 2]) {
    s += x;
  }
  s
}`, "main", []string{
		"LOAD_CONST 0",
		"LOAD_CONST 1",
		"LOAD_CONST 2",
		"ALLOC_ARRAY 2",
		"LOAD_GLOBAL baml.Array.length",
		"LOAD_VAR __baml for loop iterated array 0",
		"CALL 1",
		"LOAD_CONST 0",
		"LOAD_VAR __baml for loop index 0",
		"LOAD_VAR __baml for loop array length 0",
		"CMP_OP <",
		"JUMP_IF_FALSE +15",
		"POP 1",
		"LOAD_VAR __baml for loop iterated array 0",
		"LOAD_VAR __baml for loop index 0",
		"LOAD_ARRAY_ELEMENT",
		"LOAD_VAR __baml for loop index 0",
		"LOAD_CONST 1",
		"BIN_OP +",
		"STORE_VAR __baml for loop index 0",
		"LOAD_VAR s",
		"LOAD_VAR x",
		"BIN_OP +",
		"STORE_VAR s",
		"POP 1",
		"JUMP -17",
		"POP 1",
		"POP 3",
		"LOAD_VAR s",
		"RETURN",
	})
}

func TestCompileForInBreak(t *testing.T) {
	got := listing(t, compileSource(t, `
function main(xs: int[]) -> int {
  for (let x in xs) {
    break;
  }
  0
}`, true), "main")
	// the element is popped before leaving, the exit skips the cond Pop
	idx := indexOf(got, "LOAD_ARRAY_ELEMENT")
	if idx < 0 {
		t.Fatalf("no element load in %v", got)
	}
	tail := got[idx+5:]
	want := []string{"POP 1", "JUMP +4", "POP 1", "JUMP -15", "POP 1", "POP 3", "LOAD_CONST 0", "RETURN"}
	if !reflect.DeepEqual(tail, want) {
		t.Errorf("loop tail:\n got %v\nwant %v", tail, want)
	}
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func TestCompileCStyleFor(t *testing.T) {
	expectListing(t, `
function main() -> int {
  let s = 0;
  for (let i = 0; i < 3; i += 1) {
    if (i == 1) { continue; }
    s += i;
  }
  s
}`, "main", []string{
		"LOAD_CONST 0",
		"LOAD_CONST 0",
		"LOAD_VAR i",
		"LOAD_CONST 3",
		"CMP_OP <",
		"JUMP_IF_FALSE +19",
		"POP 1",
		"LOAD_VAR i",
		"LOAD_CONST 1",
		"CMP_OP ==",
		"JUMP_IF_FALSE +4",
		"POP 1",
		"JUMP +7",
		"JUMP +2",
		"POP 1",
		"LOAD_VAR s",
		"LOAD_VAR i",
		"BIN_OP +",
		"STORE_VAR s",
		"LOAD_VAR i",
		"LOAD_CONST 1",
		"BIN_OP +",
		"STORE_VAR i",
		"JUMP -21",
		"POP 1",
		"POP 1",
		"LOAD_VAR s",
		"RETURN",
	})
}

func TestCompileShortCircuit(t *testing.T) {
	expectListing(t, `
function main(a: bool, b: bool) -> bool {
  a && b || a
}`, "main", []string{
		"LOAD_VAR a",
		"JUMP_IF_FALSE +3",
		"POP 1",
		"LOAD_VAR b",
		"JUMP_IF_FALSE +2",
		"JUMP +3",
		"POP 1",
		"LOAD_VAR a",
		"RETURN",
	})
}

func TestCompileBlockValue(t *testing.T) {
	expectListing(t, `
function main() -> int {
  let a = {
    let b = 1;
    b + 1
  };
  a
}`, "main", []string{
		"LOAD_CONST 1",
		"LOAD_VAR b",
		"LOAD_CONST 1",
		"BIN_OP +",
		"POP_REPLACE 1",
		"LOAD_VAR a",
		"RETURN",
	})
}

func TestCompileBlockInOperandUsesStackSlot(t *testing.T) {
	prog := compileSource(t, `
function main() -> int {
  let a = 10;
  a + { let b = 2; b }
}`, true)
	fn, _, _ := prog.Function("main")
	want := []string{
		"LOAD_CONST 10",
		"LOAD_VAR a",
		"LOAD_CONST 2",
		"LOAD_VAR b",
		"POP_REPLACE 1",
		"BIN_OP +",
		"RETURN",
	}
	if got := prog.RenderAll(fn); !reflect.DeepEqual(got, want) {
		t.Fatalf("listing:\n got %v\nwant %v", got, want)
	}
	// a sits in slot 1 and the operand copy in slot 2, so b lands in 3
	if arg := fn.Bytecode.Instructions[3].Arg; arg != 3 {
		t.Errorf("b slot = %d, want 3", arg)
	}
}

func TestCompileWatch(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "default options",
			src: `
function main() -> int {
  watch let value = 0;
  value = 1;
  value.$watch.notify();
  value
}`,
			want: []string{
				"LOAD_CONST 0",
				`LOAD_CONST "value"`,
				"LOAD_CONST null",
				"WATCH value",
				"LOAD_CONST 1",
				"STORE_VAR value",
				"NOTIFY value",
				"LOAD_VAR value",
				"RETURN",
			},
		},
		{
			name: "options fold into the let",
			src: `
function main() -> int {
  watch let x = 0;
  x.$watch.options(baml.WatchOptions { channel: "ch", when: "manual" });
  x
}`,
			want: []string{
				"LOAD_CONST 0",
				`LOAD_CONST "ch"`,
				`LOAD_CONST "manual"`,
				"WATCH x",
				"LOAD_VAR x",
				"RETURN",
			},
		},
		{
			name: "function filter",
			src: `
function isEven(v: int) -> bool { v % 2 == 0 }
function main() -> int {
  watch let x = 0;
  x = 2;
  x.$watch.options(baml.WatchOptions { when: isEven });
  x
}`,
			want: []string{
				"LOAD_CONST 0",
				`LOAD_CONST "x"`,
				"LOAD_CONST null",
				"WATCH x",
				"LOAD_CONST 2",
				"STORE_VAR x",
				`LOAD_CONST "x"`,
				"LOAD_GLOBAL isEven",
				"WATCH x",
				"LOAD_VAR x",
				"RETURN",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectListing(t, tt.src, "main", tt.want)
		})
	}
}

func TestCompileFetchAs(t *testing.T) {
	expectListing(t, `
class Todo {
  id int
}
function main() -> Todo {
  baml.fetch_as<Todo>("https://example.com/todo/1")
}`, "main", []string{
		"LOAD_GLOBAL baml.fetch_as",
		`LOAD_CONST "https://example.com/todo/1"`,
		"LOAD_CONST <type Todo>",
		"DISPATCH_FUTURE 2",
		"AWAIT",
		"RETURN",
	})
}

func TestCompileLlmCallIsAwaited(t *testing.T) {
	src := `
function Summarize(text: string) -> string {
  client "openai/gpt-4o"
  prompt #"Summarize {{ text }}"#
}
function main() -> string {
  Summarize("hello")
}`
	expectListing(t, src, "main", []string{
		"LOAD_GLOBAL Summarize",
		`LOAD_CONST "hello"`,
		"DISPATCH_FUTURE 1",
		"AWAIT",
		"RETURN",
	})
	prog := compileSource(t, src, true)
	fn, _, _ := prog.Function("Summarize")
	if fn.Kind != bytecode.FuncLlm || fn.Llm == nil || fn.Llm.Client != "openai/gpt-4o" {
		t.Fatalf("bad llm function: %+v", fn)
	}
	if fn.ReturnType == nil || fn.ReturnType.Kind != types.KindString {
		t.Errorf("return type = %v", fn.ReturnType)
	}
}

func TestCompileEnumAndInstanceof(t *testing.T) {
	expectListing(t, `
enum Color {
  Red
  Green
}
function main() -> Color {
  Color.Green
}`, "main", []string{
		"LOAD_CONST 1",
		"ALLOC_VARIANT Color",
		"RETURN",
	})
	expectListing(t, pointClass+`
function isPoint(p: Point) -> bool {
  p instanceof Point
}`, "isPoint", []string{
		"LOAD_VAR p",
		"LOAD_CONST Point",
		"CMP_OP instanceof",
		"RETURN",
	})
}

func TestCompileConstantsAreDeduplicated(t *testing.T) {
	prog := compileSource(t, `
function main() -> string {
  let a = 7;
  let b = 7;
  let s = "x";
  let t = "x";
  s
}`, true)
	fn, _, _ := prog.Function("main")
	if n := len(fn.Bytecode.Constants); n != 2 {
		t.Errorf("constants = %d, want 2", n)
	}
}

func TestCompileMetadataIsParallel(t *testing.T) {
	prog := compileSource(t, `
function main() -> int {
  let a = 1;
  if (a > 0) {
    let b = 2;
    a = b;
  }
  a
}`, false)
	fn, _, _ := prog.Function("main")
	bc := fn.Bytecode
	if len(bc.SourceLines) != len(bc.Instructions) || len(bc.Scopes) != len(bc.Instructions) {
		t.Fatalf("metadata lengths %d/%d for %d instructions", len(bc.SourceLines), len(bc.Scopes), len(bc.Instructions))
	}
	rendered := prog.RenderAll(fn)
	last := -1
	for i, r := range rendered {
		if r == "LOAD_VAR a" {
			last = i
		}
	}
	if last < 0 || bc.SourceLines[last] != 8 {
		t.Errorf("tail load at %d has line %v, want 8", last, bc.SourceLines)
	}
	if got := fn.LocalsInScope[0][0]; got != "<main>" {
		t.Errorf("slot 0 = %q", got)
	}
	if err := prog.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestCompileVizNodes(t *testing.T) {
	src := `
function main() -> int {
  //# Setup
  let a = 1;
  if (a > 0) {
    a = 2;
  } else {
    a = 3;
  }
  a
}`
	prog := compileSource(t, src, false)
	fn, _, _ := prog.Function("main")

	wantNodes := []struct {
		typ    viz.NodeType
		key    string
		parent string
		label  string
	}{
		{viz.NodeFunctionRoot, "main|root:0", "", "main"},
		{viz.NodeHeader, "main|root:0|hdr:setup:0", "main|root:0", "Setup"},
		{viz.NodeBranchGroup, "main|root:0|hdr:setup:0|bg:if-a-0:0", "main|root:0|hdr:setup:0", "if (a > 0)"},
		{viz.NodeBranchArm, "main|root:0|hdr:setup:0|bg:if-a-0:0|arm:if-a-0:0", "main|root:0|hdr:setup:0|bg:if-a-0:0", "if (a > 0)"},
		{viz.NodeBranchArm, "main|root:0|hdr:setup:0|bg:if-a-0:0|arm:else:1", "main|root:0|hdr:setup:0|bg:if-a-0:0", "else"},
	}
	if len(fn.VizNodes) != len(wantNodes) {
		t.Fatalf("got %d nodes: %+v", len(fn.VizNodes), fn.VizNodes)
	}
	for i, w := range wantNodes {
		n := fn.VizNodes[i]
		if n.NodeID != uint32(i) || n.Type != w.typ || n.LogFilterKey != w.key || n.ParentLogFilterKey != w.parent || n.Label != w.label {
			t.Errorf("node %d = %+v, want %+v", i, n, w)
		}
	}
	if fn.VizNodes[1].HeaderLevel != 1 {
		t.Errorf("header level = %d", fn.VizNodes[1].HeaderLevel)
	}

	var events []string
	for _, in := range fn.Bytecode.Instructions {
		if in.Op.IsViz() {
			events = append(events, in.String())
		}
	}
	want := []string{
		"VIZ_ENTER 0", "VIZ_ENTER 1", "VIZ_ENTER 2", "VIZ_ENTER 3", "VIZ_EXIT 3",
		"VIZ_ENTER 4", "VIZ_EXIT 4", "VIZ_EXIT 2", "VIZ_EXIT 1", "VIZ_EXIT 0",
	}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("viz events:\n got %v\nwant %v", events, want)
	}
}

func TestCompileVizLoopsAndScopes(t *testing.T) {
	prog := compileSource(t, `
function main() -> int {
  let total = {
    let s = 0;
    while (s < 3) { s += 1; }
    s
  };
  for (let x in [1]) { total += x; }
  total
}`, false)
	fn, _, _ := prog.Function("main")
	var keys []string
	for _, n := range fn.VizNodes {
		keys = append(keys, n.LogFilterKey)
	}
	want := []string{
		"main|root:0",
		"main|root:0|scope:let-total:0",
		"main|root:0|scope:let-total:0|loop:while-s-3:0",
		"main|root:0|loop:for-x-in-1:0",
	}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("keys:\n got %v\nwant %v", keys, want)
	}
}

func TestCompileStripVizMatchesPlainBuild(t *testing.T) {
	sources := []string{
		`
function main() -> int {
  //# One
  let a = 0;
  //## Two
  while (a < 5) {
    if (a == 3) { break; }
    a += 1;
  }
  //# Three
  let b = if (a > 2) { 1 } else if (a > 1) { 2 } else { 3 };
  for (let i = 0; i < 2; i += 1) { if (i == 0) { continue; } b += i; }
  for (let x in [1, 2]) { if (x == 1) { continue; } b += x; }
  b
}`,
		pointClass + `
function main() -> int {
  let p = Point { x: 1, y: 2 };
  let q = { let r = Point { ...p, y: 5 }; r };
  if (q.y > 1) { return q.y; }
  q.x
}`,
	}
	for i, src := range sources {
		withViz := compileSource(t, src, false)
		plain := compileSource(t, src, true)
		withViz.StripVizAll()
		for _, fn := range plain.ExecFunctions() {
			stripped, _, _ := withViz.Function(fn.Name)
			if !reflect.DeepEqual(stripped.Bytecode, fn.Bytecode) {
				t.Errorf("source %d, %s: stripped bytecode differs\nstripped: %v\n   plain: %v",
					i, fn.Name, withViz.RenderAll(stripped), plain.RenderAll(fn))
			}
		}
	}
}

func TestCompileArrowValueIsRejected(t *testing.T) {
	mod, fs := checkSource(t, `
function helper() -> int { 1 }
function main() -> int {
  let f = helper;
  1
}`)
	bag := diag.NewBag(0)
	_, err := compiler.Compile(context.Background(), mod, compiler.Options{Files: fs, Reporter: diag.BagReporter{Bag: bag}})
	if !errors.Is(err, compiler.ErrCompile) {
		t.Fatalf("err = %v, want ErrCompile", err)
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.GenArrowType {
			found = true
		}
	}
	if !found {
		t.Errorf("expected GenArrowType, got %v", bag.Items())
	}
}

func TestCompileGlobalsTable(t *testing.T) {
	prog := compileSource(t, pointClass+`
function main() -> int { 1 }`, true)
	ref, ok := prog.Functions["main"]
	if !ok {
		t.Fatal("main not registered")
	}
	if prog.Globals[ref.Global] != bytecode.Obj(ref.Object) {
		t.Errorf("global %d does not point at object %d", ref.Global, ref.Object)
	}
	for _, name := range []string{"baml.fetch_as", "baml.Array.length", "env.get"} {
		ref, ok := prog.Functions[name]
		if !ok {
			t.Errorf("builtin %s missing", name)
			continue
		}
		fn := prog.Objects[ref.Object].(*bytecode.Function)
		if fn.Kind != bytecode.FuncNative && fn.Kind != bytecode.FuncFuture {
			t.Errorf("%s kind = %s", name, fn.Kind)
		}
	}
	if _, ok := prog.Classes["Point"]; !ok {
		t.Error("class Point missing")
	}
	if _, ok := prog.Enums["baml.HttpMethod"]; !ok {
		t.Error("builtin enum missing")
	}
}
