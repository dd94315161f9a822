package parser_test

import (
	"testing"

	"baml/internal/ast"
	"baml/internal/diag"
	"baml/internal/parser"
	"baml/internal/source"
	"baml/internal/token"
)

func parseSource(t *testing.T, input string) (*ast.File, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.baml", []byte(input))
	bag := diag.NewBag(0)
	file := parser.ParseFile(fs.Get(id), parser.Options{Reporter: diag.BagReporter{Bag: bag}})
	return file, bag
}

func mustParse(t *testing.T, input string) *ast.File {
	t.Helper()
	file, bag := parseSource(t, input)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	return file
}

func funcBody(t *testing.T, file *ast.File, name string) *ast.Block {
	t.Helper()
	for _, it := range file.Items {
		if it.Kind == ast.ItemFunction && it.Name == name {
			return it.Data.(*ast.FuncDecl).Body
		}
	}
	t.Fatalf("function %s not found", name)
	return nil
}

func TestParseFib(t *testing.T) {
	file := mustParse(t, `
function fib(n: int) -> int {
  if (n <= 1) { n } else { fib(n - 1) + fib(n - 2) }
}
`)
	if len(file.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(file.Items))
	}
	fn := file.Items[0].Data.(*ast.FuncDecl)
	if len(fn.Params) != 1 || fn.Params[0].Name != "n" || fn.Result.String() != "int" {
		t.Fatalf("bad signature: %+v", fn)
	}
	if fn.Body.Tail == nil || fn.Body.Tail.Kind != ast.ExprIf {
		t.Fatalf("expected if tail, got %+v", fn.Body.Tail)
	}
	ifd := fn.Body.Tail.Data.(*ast.IfData)
	els := ifd.Else.Data.(*ast.BlockData).Block
	bin, ok := els.Tail.Data.(*ast.BinaryData)
	if !ok || bin.Op != token.Plus {
		t.Fatalf("expected '+' in else branch, got %+v", els.Tail)
	}
	if bin.X.Kind != ast.ExprCall || bin.Y.Kind != ast.ExprCall {
		t.Fatalf("expected calls on both sides")
	}
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		name string
		src  string
		op   token.Kind
	}{
		{"mul binds tighter", "1 + 2 * 3", token.Plus},
		{"and over or", "a || b && c", token.OrOr},
		{"comparison over and", "a < b && c", token.AndAnd},
		{"left assoc", "a - b - c", token.Minus},
		{"shift under add", "1 << 2 + 3", token.Shl},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := mustParse(t, "function f() -> int { "+tt.src+" }")
			tail := funcBody(t, file, "f").Tail
			d, ok := tail.Data.(*ast.BinaryData)
			if !ok {
				t.Fatalf("expected binary, got %v", tail.Kind)
			}
			if d.Op != tt.op {
				t.Errorf("root op = %v, want %v", d.Op, tt.op)
			}
		})
	}

	file := mustParse(t, "function f() -> int { a - b - c }")
	root := funcBody(t, file, "f").Tail.Data.(*ast.BinaryData)
	if root.X.Kind != ast.ExprBinary || root.Y.Kind != ast.ExprIdent {
		t.Fatal("subtraction must be left associative")
	}
}

func TestParseClassAndConstructor(t *testing.T) {
	file := mustParse(t, `
class Point {
  x int
  y int @description("vertical")
  function len2(self) -> int { self.x * self.x + self.y * self.y }
}

function main() -> int {
  let base = Point { x: 1, y: 2 };
  let p = Point { ...base, y: 5 };
  p.len2()
}
`)
	cls := file.Items[0].Data.(*ast.ClassData)
	if len(cls.Fields) != 2 || cls.Fields[1].Name != "y" {
		t.Fatalf("bad fields: %+v", cls.Fields)
	}
	if len(cls.Methods) != 1 || !cls.Methods[0].HasSelf {
		t.Fatalf("expected method with self")
	}

	body := funcBody(t, file, "main")
	if len(body.Stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(body.Stmts))
	}
	lit := body.Stmts[1].Data.(*ast.LetData).Value
	if lit.Kind != ast.ExprClassLit {
		t.Fatalf("expected class literal, got %v", lit.Kind)
	}
	fields := lit.Data.(*ast.ClassLitData).Fields
	if len(fields) != 2 || !fields[0].Spread || fields[1].Name != "y" {
		t.Fatalf("bad field inits: %+v", fields)
	}
	if body.Tail.Kind != ast.ExprCall {
		t.Fatalf("expected method call tail")
	}
}

func TestParseMapVsBlock(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want ast.ExprKind
	}{
		{"empty map", "let m = {};", ast.ExprMap},
		{"colon entries", `let m = { a: 1, "b": 2 };`, ast.ExprMap},
		{"space entries", `let m = { hello "world" };`, ast.ExprMap},
		{"nested map value", `let m = { inner { x 1 } };`, ast.ExprMap},
		{"block with call", "let m = { f(1) };", ast.ExprBlock},
		{"block with binary", "let m = { a + 1 };", ast.ExprBlock},
		{"block with ident", "let m = { a };", ast.ExprBlock},
		{"block with class literal", "let m = { Point { x: 1 } };", ast.ExprBlock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := mustParse(t, "function f() -> int { "+tt.src+" 0 }")
			let := funcBody(t, file, "f").Stmts[0].Data.(*ast.LetData)
			if let.Value.Kind != tt.want {
				t.Errorf("got %v, want %v", let.Value.Kind, tt.want)
			}
		})
	}
}

func TestParseWatch(t *testing.T) {
	file := mustParse(t, `
function main() -> int {
  watch let x = 1;
  x.$watch.options(baml.WatchOptions { channel: "c" });
  x.$watch.notify();
  x = 2;
  x
}
`)
	body := funcBody(t, file, "main")
	let := body.Stmts[0].Data.(*ast.LetData)
	if !let.Watch || let.Name != "x" {
		t.Fatalf("expected watched let, got %+v", let)
	}
	opts := body.Stmts[1].Data.(*ast.ExprStmtData).X
	if opts.Kind != ast.ExprWatch {
		t.Fatalf("expected watch call, got %v", opts.Kind)
	}
	wd := opts.Data.(*ast.WatchData)
	if wd.Method != "options" || len(wd.Args) != 1 || wd.Args[0].Kind != ast.ExprClassLit {
		t.Fatalf("bad options call: %+v", wd)
	}
	if name := wd.Args[0].Data.(*ast.ClassLitData).Name; name != "baml.WatchOptions" {
		t.Errorf("class name = %q", name)
	}
	if body.Stmts[2].Data.(*ast.ExprStmtData).X.Data.(*ast.WatchData).Method != "notify" {
		t.Error("expected notify")
	}
	if body.Stmts[3].Kind != ast.StmtAssign {
		t.Errorf("expected assignment, got %v", body.Stmts[3].Kind)
	}
}

func TestParseLoops(t *testing.T) {
	file := mustParse(t, `
function main() -> int {
  let s = 0;
  for (let x in [1, 2, 3]) { s += x; }
  for (i in xs) { continue; }
  for (let i = 0; i < 10; i += 1) { if (i == 5) { break; } }
  while (s > 0) { s -= 1; }
  s
}
`)
	body := funcBody(t, file, "main")
	kinds := []ast.StmtKind{ast.StmtLet, ast.StmtForIn, ast.StmtForIn, ast.StmtForC, ast.StmtWhile}
	if len(body.Stmts) != len(kinds) {
		t.Fatalf("expected %d statements, got %d", len(kinds), len(body.Stmts))
	}
	for i, k := range kinds {
		if body.Stmts[i].Kind != k {
			t.Errorf("stmt %d: got %v, want %v", i, body.Stmts[i].Kind, k)
		}
	}
	fc := body.Stmts[3].Data.(*ast.ForCData)
	if fc.Init == nil || fc.Cond == nil || fc.Step == nil || fc.Step.Kind != ast.StmtAssign {
		t.Fatalf("bad C-style header: %+v", fc)
	}
}

func TestParseHeaders(t *testing.T) {
	file := mustParse(t, `
function main() -> int {
  //# Load
  let a = 1;
  //## Detail
  let b = 2;
  a + b
}
`)
	body := funcBody(t, file, "main")
	var headers []*ast.HeaderData
	for _, s := range body.Stmts {
		if s.Kind == ast.StmtHeader {
			headers = append(headers, s.Data.(*ast.HeaderData))
		}
	}
	if len(headers) != 2 {
		t.Fatalf("expected 2 headers, got %d", len(headers))
	}
	if headers[0].Level != 1 || headers[0].Title != "Load" || headers[1].Level != 2 {
		t.Errorf("bad headers: %+v %+v", headers[0], headers[1])
	}
}

func TestParseFetchAsTypeArgs(t *testing.T) {
	file := mustParse(t, `
function main() -> Todo {
  baml.fetch_as<Todo>("https://example.com/todo/1")
}
function cmp(a: int, b: int) -> bool { a < b }
`)
	call := funcBody(t, file, "main").Tail.Data.(*ast.CallData)
	if len(call.TypeArgs) != 1 || call.TypeArgs[0].Name != "Todo" {
		t.Fatalf("expected one type arg, got %+v", call.TypeArgs)
	}
	if funcBody(t, file, "cmp").Tail.Kind != ast.ExprBinary {
		t.Fatal("a < b must stay a comparison")
	}
}

func TestParseLlmFunction(t *testing.T) {
	file := mustParse(t, `
function Summarize(text: string) -> string {
  client "openai/gpt-4o"
  prompt #"
    Summarize {{ text }}
  "#
}
`)
	fn := file.Items[0].Data.(*ast.FuncDecl)
	if fn.Llm == nil || fn.Body != nil {
		t.Fatal("expected llm body")
	}
	if fn.Llm.Client != "openai/gpt-4o" {
		t.Errorf("client = %q", fn.Llm.Client)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
	}{
		{"missing semicolon", "function f() -> int { let a = 1 a + 1 2 }", diag.SynExpectSemicolon},
		{"bad top level", "let x = 1;", diag.SynUnexpectedTopLevel},
		{"missing expression", "function f() -> int { let a = ; 1 }", diag.SynExpectExpression},
		{"bad assign target", "function f() -> int { 1 = 2; 0 }", diag.SynBadAssignTarget},
		{"bad watch call", "function f() -> int { x.$foo.notify(); 0 }", diag.SynBadWatchCall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, bag := parseSource(t, tt.src)
			found := false
			for _, d := range bag.Items() {
				if d.Code == tt.code {
					found = true
				}
			}
			if !found {
				t.Errorf("expected %v, got %v", tt.code, bag.Items())
			}
		})
	}
}

func TestParseRecoversItems(t *testing.T) {
	file, bag := parseSource(t, `
function broken( -> int { 1 }
class Ok { a int }
function fine() -> int { 1 }
`)
	if !bag.HasErrors() {
		t.Fatal("expected errors")
	}
	names := map[string]bool{}
	for _, it := range file.Items {
		names[it.Name] = true
	}
	if !names["Ok"] || !names["fine"] {
		t.Errorf("items after error must be recovered, got %v", names)
	}
}
