package vm_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"baml/internal/ast"
	"baml/internal/bytecode"
	"baml/internal/compiler"
	"baml/internal/diag"
	"baml/internal/parser"
	"baml/internal/sema"
	"baml/internal/source"
	"baml/internal/types"
	"baml/internal/viz"
	"baml/internal/vm"
)

func compileSource(t *testing.T, src string, noViz bool) *bytecode.Program {
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
	prog, err := compiler.Compile(context.Background(), mod, compiler.Options{Files: fs, Reporter: rep, NoViz: noViz})
	if err != nil {
		t.Fatalf("compile: %v (%v)", err, bag.Items())
	}
	return prog
}

// resolveFunc fulfils a scheduled future synchronously.
type resolveFunc func(m *vm.VM, fut *bytecode.Future) (bytecode.Value, error)

type run struct {
	vm        *vm.VM
	value     bytecode.Value
	variables []vm.VariableInfo
	viz       []viz.ExecEvent
}

func start(t *testing.T, prog *bytecode.Program, opts vm.Options, name string, args ...bytecode.Value) *vm.VM {
	t.Helper()
	_, idx, ok := prog.Function(name)
	if !ok {
		t.Fatalf("function %s not found", name)
	}
	m := vm.New(prog, opts)
	if err := m.SetEntryPoint(idx, args); err != nil {
		t.Fatalf("entry point: %v", err)
	}
	return m
}

func drive(m *vm.VM, resolve resolveFunc) (*run, error) {
	r := &run{vm: m}
	for {
		st, err := m.Exec()
		if err != nil {
			return r, err
		}
		switch st.Kind {
		case vm.StateComplete:
			r.value = st.Value
			return r, nil
		case vm.StateNotify:
			n := st.Notification
			if n.Kind == vm.NotifyViz {
				r.viz = append(r.viz, n.Event)
				continue
			}
			for _, root := range n.Roots {
				info, ok := m.WatchedVariable(root)
				if !ok {
					return r, errors.New("notification for an unknown root")
				}
				r.variables = append(r.variables, info)
			}
		case vm.StateScheduleFuture:
			if resolve == nil {
				return r, errors.New("unexpected future")
			}
			fut, err := m.PendingFuture(st.Future)
			if err != nil {
				return r, err
			}
			v, err := resolve(m, fut)
			if err != nil {
				return r, m.FailFuture(st.Future, err)
			}
			if err := m.FulfilFuture(st.Future, v); err != nil {
				return r, err
			}
		case vm.StateAwait:
			return r, errors.New("awaited a future nobody resolves")
		}
	}
}

func runMain(t *testing.T, src string, args ...bytecode.Value) *run {
	t.Helper()
	prog := compileSource(t, src, true)
	r, err := drive(start(t, prog, vm.Options{}, "main", args...), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return r
}

func runError(t *testing.T, src string, args ...bytecode.Value) (*vm.VM, error) {
	t.Helper()
	prog := compileSource(t, src, true)
	m := start(t, prog, vm.Options{}, "main", args...)
	_, err := drive(m, nil)
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	return m, err
}

func expectInt(t *testing.T, v bytecode.Value, want int64) {
	t.Helper()
	got, ok := v.AsInt()
	if !ok || got != want {
		t.Errorf("result = %s, want %d", v, want)
	}
}

func expectString(t *testing.T, r *run, want string) {
	t.Helper()
	got, ok := r.vm.StringValue(r.value)
	if !ok {
		t.Fatalf("result %s is not a string", r.value)
	}
	if got != want {
		t.Errorf("result = %q, want %q", got, want)
	}
}

const fibSource = `
function fib(n: int) -> int {
  if (n <= 1) { n } else { fib(n - 1) + fib(n - 2) }
}
function main() -> int {
  fib(10)
}`

func TestExecFib(t *testing.T) {
	expectInt(t, runMain(t, fibSource).value, 55)
}

func TestExecVizDoesNotChangeResults(t *testing.T) {
	prog := compileSource(t, fibSource, false)
	r, err := drive(start(t, prog, vm.Options{}, "main"), nil)
	if err != nil {
		t.Fatal(err)
	}
	expectInt(t, r.value, 55)
	if len(r.viz) == 0 {
		t.Fatal("no viz events")
	}
	var enters, exits int
	for _, ev := range r.viz {
		if ev.Event == viz.Enter {
			enters++
		} else {
			exits++
		}
	}
	if enters != exits {
		t.Errorf("%d enters, %d exits", enters, exits)
	}

	stripped := compileSource(t, fibSource, false)
	stripped.StripVizAll()
	r, err = drive(start(t, stripped, vm.Options{}, "main"), nil)
	if err != nil {
		t.Fatal(err)
	}
	expectInt(t, r.value, 55)
	if len(r.viz) != 0 {
		t.Errorf("stripped program emitted %d viz events", len(r.viz))
	}
}

// jumpySource leaves loops and branches through break, continue and return.
const jumpySource = `
function find(xs: int[], want: int) -> int {
  for (let x in xs) {
    if (x == want) {
      return x;
    }
  }
  -1
}
function main() -> int {
  watch let total = 0;
  let i = 0;
  while (i < 6) {
    i += 1;
    if (i % 2 == 0) { continue; }
    if (i == 5) { break; }
    total += i;
  }
  for (let j = 0; j < 3; j += 1) {
    if (j == 1) { continue; }
    total += find([1, 2, 3], j);
  }
  total
}`

func TestExecVizEventsBalanced(t *testing.T) {
	r, err := drive(start(t, compileSource(t, jumpySource, false), vm.Options{}, "main"), nil)
	if err != nil {
		t.Fatal(err)
	}
	expectInt(t, r.value, 5)
	var open []uint32
	for i, ev := range r.viz {
		if ev.Event == viz.Enter {
			open = append(open, ev.NodeID)
			continue
		}
		if len(open) == 0 || open[len(open)-1] != ev.NodeID {
			t.Fatalf("event %d exits node %d, open %v", i, ev.NodeID, open)
		}
		open = open[:len(open)-1]
	}
	if len(open) != 0 {
		t.Errorf("nodes left open: %v", open)
	}
}

func TestExecStripKeepsWatchNotifications(t *testing.T) {
	type note struct {
		name  string
		value int64
	}
	notes := func(r *run) []note {
		out := make([]note, len(r.variables))
		for i, v := range r.variables {
			n, _ := v.Value.AsInt()
			out[i] = note{v.Name, n}
		}
		return out
	}

	withViz, err := drive(start(t, compileSource(t, jumpySource, false), vm.Options{}, "main"), nil)
	if err != nil {
		t.Fatal(err)
	}
	strippedProg := compileSource(t, jumpySource, false)
	strippedProg.StripVizAll()
	stripped, err := drive(start(t, strippedProg, vm.Options{}, "main"), nil)
	if err != nil {
		t.Fatal(err)
	}
	plain, err := drive(start(t, compileSource(t, jumpySource, true), vm.Options{}, "main"), nil)
	if err != nil {
		t.Fatal(err)
	}

	want := []note{{"total", 1}, {"total", 4}, {"total", 3}, {"total", 5}}
	for name, r := range map[string]*run{"viz": withViz, "stripped": stripped, "plain": plain} {
		expectInt(t, r.value, 5)
		if got := notes(r); !slices.Equal(got, want) {
			t.Errorf("%s notifications = %+v, want %+v", name, got, want)
		}
	}
	if len(stripped.viz) != 0 || len(plain.viz) != 0 {
		t.Errorf("viz events without instrumentation: %d, %d", len(stripped.viz), len(plain.viz))
	}
}

func TestExecControlFlow(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int64
	}{
		{
			name: "while with break and continue",
			src: `
function main() -> int {
  let i = 0;
  let s = 0;
  while (i < 10) {
    i += 1;
    if (i == 2) { continue; }
    if (i == 5) { break; }
    s += i;
  }
  s
}`,
			want: 8,
		},
		{
			name: "for in",
			src: `
function main() -> int {
  let total = 0;
  for (let x in [1, 2, 3]) {
    total += x;
  }
  total
}`,
			want: 6,
		},
		{
			name: "c style for with continue",
			src: `
function main() -> int {
  let total = 0;
  for (let i = 0; i < 5; i += 1) {
    if (i == 1) { continue; }
    total += i;
  }
  total
}`,
			want: 9,
		},
		{
			name: "block value",
			src: `
function main() -> int {
  let a = {
    let b = 1;
    b + 1
  };
  a * 10
}`,
			want: 20,
		},
		{
			name: "early return",
			src: `
function pick(n: int) -> int {
  if (n > 3) { return 1; }
  2
}
function main() -> int {
  pick(5) * 10 + pick(1)
}`,
			want: 12,
		},
		{
			name: "bit operators",
			src: `
function main() -> int {
  (6 & 3) + (1 << 4) + (5 ^ 1) - (8 >> 2)
}`,
			want: 2 + 16 + 4 - 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectInt(t, runMain(t, tt.src).value, tt.want)
		})
	}
}

const pointClass = `
class Point {
  x int
  y int
  function sum(self) -> int { self.x + self.y }
}
`

func TestExecObjects(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int64
	}{
		{
			name: "fields and methods",
			src: pointClass + `
function main() -> int {
  let p = Point { x: 1, y: 2 };
  p.x = 5;
  p.sum()
}`,
			want: 7,
		},
		{
			name: "arrays alias",
			src: `
function main() -> int {
  let a = [1, 2];
  let b = a;
  b[0] = 10;
  a[0] / 5
}`,
			want: 2,
		},
		{
			name: "instances alias",
			src: `
class Foo {
  inner int
}
function main() -> int {
  let a = Foo { inner: 1 };
  let b = a;
  b.inner = 2;
  a.inner
}`,
			want: 2,
		},
		{
			name: "map compound assign",
			src: `
function main() -> int {
  let m = { "hi": 1, "yo": 2 };
  m["hi"] += 4;
  m["hi"]
}`,
			want: 5,
		},
		{
			name: "map insert",
			src: `
function main() -> int {
  let m = { "a": 1 };
  m["b"] = 2;
  m.length()
}`,
			want: 2,
		},
		{
			name: "push and length",
			src: `
function main() -> int {
  let xs = [1];
  xs.push(2);
  xs.push(3);
  xs.length()
}`,
			want: 3,
		},
		{
			name: "string natives",
			src: `
function main() -> int {
  let s = "  Hello, World  ".trim().toLowerCase();
  s.split(", ").length() + s.length()
}`,
			want: 2 + 12,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectInt(t, runMain(t, tt.src).value, tt.want)
		})
	}
}

func TestExecSpreadOrder(t *testing.T) {
	r := runMain(t, `
class Point {
  x int
  y int
  z int
  w int
}
function default_point() -> Point {
  Point { x: 0, y: 0, z: 0, w: 0 }
}
function main() -> string {
  let a = Point { x: 1, y: 2, ...default_point() };
  let b = Point { ...default_point(), x: 1, y: 2 };
  baml.unstable.string([a.x, a.y, a.z, a.w, b.x, b.y, b.z, b.w])
}`)
	expectString(t, r, "[0, 0, 0, 0, 1, 2, 0, 0]")
}

func TestExecSpreadEvaluatesEveryInitializer(t *testing.T) {
	r := runMain(t, pointClass+`
function mk(log: int[]) -> Point {
  log.push(1);
  Point { x: 7, y: 8 }
}
function side(log: int[]) -> int {
  log.push(2);
  3
}
function main() -> int {
  let log = [0];
  let a = Point { ...mk(log), x: 1, y: 2 };
  let b = Point { x: side(log), ...mk(log) };
  log.length() * 1000 + log[2] * 100 + a.x * 10 + b.x
}`)
	// log is [0, 1, 2, 1]: both spreads and the overridden field ran, in
	// source order
	expectInt(t, r.value, 4217)
}

func TestExecShortCircuitSkipsCalls(t *testing.T) {
	r := runMain(t, `
function bump(xs: int[]) -> bool {
  xs.push(1);
  true
}
function main() -> int {
  let xs = [0];
  let a = false && bump(xs);
  let b = true || bump(xs);
  let c = true && bump(xs);
  xs.length()
}`)
	expectInt(t, r.value, 2)
}

func TestExecInstanceofAndEnums(t *testing.T) {
	r := runMain(t, pointClass+`
enum Color {
  Red
  Green
}
function main() -> string {
  let p = Point { x: 1, y: 2 };
  if (p instanceof Point) {
    baml.unstable.string(Color.Green)
  } else {
    "no"
  }
}`)
	expectString(t, r, "Green")
}

func TestExecUnstableString(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"int", "42", "42"},
		{"float", "2.5", "2.5"},
		{"whole float", "2.0", "2"},
		{"string", `"hi"`, `"hi"`},
		{"array", "[1, 2, 3]", "[1, 2, 3]"},
		{"instance", "Point { x: 1, y: 2 }", "Point {\n    x: 1\n    y: 2\n}"},
		{"map", `{ "a": 1 }`, "{\n    \"a\": 1\n}"},
		{"nested", `[{ "a": [true] }]`, "[{\n    \"a\": [true]\n}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runMain(t, pointClass+`
function main() -> string {
  baml.unstable.string(`+tt.expr+`)
}`)
			expectString(t, r, tt.want)
		})
	}
}

func TestExecDeepCopyAndEquals(t *testing.T) {
	r := runMain(t, `
function main() -> bool {
  let a = [1, 2, 3];
  let b = baml.deep_copy(a);
  b[0] = 9;
  baml.deep_equals(a, [1, 2, 3]) && !baml.deep_equals(a, b)
}`)
	if b, ok := r.value.AsBool(); !ok || !b {
		t.Errorf("result = %s", r.value)
	}
}

func TestExecDeepCopyIsIndependent(t *testing.T) {
	r := runMain(t, pointClass+`
function main() -> string {
  let a = [Point { x: 1, y: 2 }];
  let b = baml.deep_copy(a);
  a[0].x = 10;
  a.push(Point { x: 3, y: 4 });
  baml.unstable.string([b.length(), b[0].x, a[0].x])
}`)
	expectString(t, r, "[1, 1, 10]")
}

func TestExecEnv(t *testing.T) {
	src := `
function main() -> string {
  env.get("GREETING") + env.NAME
}`
	prog := compileSource(t, src, true)
	r, err := drive(start(t, prog, vm.Options{Env: map[string]string{"GREETING": "hi ", "NAME": "bob"}}, "main"), nil)
	if err != nil {
		t.Fatal(err)
	}
	expectString(t, r, "hi bob")

	_, err = drive(start(t, prog, vm.Options{Env: map[string]string{"GREETING": "hi "}}, "main"), nil)
	if !vm.IsCode(err, vm.CodeOther) || !strings.Contains(err.Error(), "Environment variable 'NAME' not found") {
		t.Errorf("err = %v", err)
	}
}

func TestExecErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		args []bytecode.Value
		code vm.Code
	}{
		{"division by zero", "function main(a: int) -> int { 10 / a }", []bytecode.Value{bytecode.Int(0)}, vm.CodeDivisionByZero},
		{"modulo by zero", "function main(a: int) -> int { 10 % a }", []bytecode.Value{bytecode.Int(0)}, vm.CodeDivisionByZero},
		{"float division by zero", "function main(a: float) -> float { 1.5 / a }", []bytecode.Value{bytecode.Float(0)}, vm.CodeDivisionByZero},
		{"assert", "function main() -> int { assert 1 == 2; 0 }", nil, vm.CodeAssertion},
		{"missing key", `function main() -> int { let m = { "a": 1 }; m["b"] }`, nil, vm.CodeNoSuchKey},
		{"index out of bounds", "function main() -> int { let xs = [1, 2]; xs[5] }", nil, vm.CodeIndexOutOfBounds},
		{"negative index", "function main() -> int { let xs = [1, 2]; xs[-1] }", nil, vm.CodeNegativeIndex},
		{"stack overflow", "function f(n: int) -> int { f(n + 1) }\nfunction main() -> int { f(0) }", nil, vm.CodeStackOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runError(t, tt.src, tt.args...)
			if !vm.IsCode(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestExecStackTrace(t *testing.T) {
	src := `
function inner(a: int) -> int {
  10 / a
}
function main() -> int {
  inner(0)
}`
	m, err := runError(t, src)
	st := m.StackTrace(err)
	if len(st.Trace) != 2 {
		t.Fatalf("trace = %+v", st.Trace)
	}
	if st.Trace[0].FunctionName != "main" || st.Trace[1].FunctionName != "inner" {
		t.Errorf("frames = %+v", st.Trace)
	}
	if st.Trace[1].Line != 3 {
		t.Errorf("inner failed at line %d, want 3", st.Trace[1].Line)
	}
	if out := st.FormatWithFiles(nil); !strings.Contains(out, "division by zero") || !strings.Contains(out, "1: inner at line 3") {
		t.Errorf("formatted:\n%s", out)
	}
}

func TestExecWatch(t *testing.T) {
	type note struct {
		name    string
		channel string
		value   int64
	}
	tests := []struct {
		name  string
		src   string
		notes []note
	}{
		{
			name: "assignment and manual notify",
			src: `
function main() -> int {
  watch let value = 0;
  value = 1;
  value.$watch.notify();
  value
}`,
			notes: []note{{"value", "value", 1}, {"value", "value", 1}},
		},
		{
			name: "unchanged assignment is silent",
			src: `
function main() -> int {
  watch let value = 0;
  value = 0;
  value = 3;
  value
}`,
			notes: []note{{"value", "value", 3}},
		},
		{
			name: "manual filter",
			src: `
function main() -> int {
  watch let x = 0;
  x.$watch.options(baml.WatchOptions { channel: "ch", when: "manual" });
  x = 5;
  x.$watch.notify();
  x
}`,
			notes: []note{{"x", "ch", 5}},
		},
		{
			name: "never filter",
			src: `
function main() -> int {
  watch let x = 0;
  x.$watch.options(baml.WatchOptions { when: "never" });
  x = 5;
  x
}`,
		},
		{
			name: "function filter",
			src: `
function isEven(v: int) -> bool { v % 2 == 0 }
function main() -> int {
  watch let x = 0;
  x.$watch.options(baml.WatchOptions { when: isEven });
  x = 1;
  x = 2;
  x = 3;
  x = 4;
  x
}`,
			notes: []note{{"x", "x", 2}, {"x", "x", 4}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runMain(t, tt.src)
			if len(r.variables) != len(tt.notes) {
				t.Fatalf("got %d notifications %+v, want %d", len(r.variables), r.variables, len(tt.notes))
			}
			for i, want := range tt.notes {
				got := r.variables[i]
				if got.Name != want.name || got.Channel != want.channel || got.Function != "main" {
					t.Errorf("notification %d = %+v, want %+v", i, got, want)
				}
				expectInt(t, got.Value, want.value)
			}
		})
	}
}

func TestExecWatchNestedMutation(t *testing.T) {
	r := runMain(t, pointClass+`
function main() -> int {
  watch let p = Point { x: 1, y: 2 };
  p.x = 10;
  p.x = 10;
  let xs = [p];
  xs[0].y = 3;
  p.y
}`)
	expectInt(t, r.value, 3)
	if len(r.variables) != 2 {
		t.Fatalf("got %d notifications, want 2: %+v", len(r.variables), r.variables)
	}
	for _, v := range r.variables {
		if v.Name != "p" {
			t.Errorf("notified %q", v.Name)
		}
	}
}

func TestExecWatchPush(t *testing.T) {
	r := runMain(t, `
function main() -> int {
  watch let xs = [1];
  xs.push(2);
  xs.length()
}`)
	expectInt(t, r.value, 2)
	if len(r.variables) != 1 || r.variables[0].Name != "xs" {
		t.Errorf("notifications = %+v", r.variables)
	}
}

func TestExecWatchEndsWithScope(t *testing.T) {
	r := runMain(t, `
function helper() -> int {
  watch let local = 1;
  local = 2;
  local
}
function main() -> int {
  let a = helper();
  let b = 0;
  b = a;
  b
}`)
	expectInt(t, r.value, 2)
	if len(r.variables) != 1 || r.variables[0].Function != "helper" {
		t.Errorf("notifications = %+v", r.variables)
	}
}

const todoSource = `
class Todo {
  id int
  title string
  tags string[]
}
function main() -> string {
  let t = baml.fetch_as<Todo>("https://example.com/todo/1");
  t.title + ":" + baml.unstable.string(t.tags.length())
}`

func TestExecFetchAs(t *testing.T) {
	prog := compileSource(t, todoSource, true)
	var seen []string
	resolve := func(m *vm.VM, fut *bytecode.Future) (bytecode.Value, error) {
		seen = append(seen, fut.Function)
		if fut.Kind != bytecode.FutureNet || len(fut.Args) != 2 {
			t.Fatalf("future = %+v", fut)
		}
		url, _ := m.StringValue(fut.Args[0])
		if url != "https://example.com/todo/1" {
			t.Errorf("url = %q", url)
		}
		idx, _ := fut.Args[1].AsObject()
		obj, _ := m.Object(idx)
		typ, ok := obj.(*bytecode.BamlType)
		if !ok {
			t.Fatalf("type argument is %T", obj)
		}
		return m.DecodeJSON([]byte(`{"id": 1, "title": "buy milk", "tags": ["home", "food"]}`), typ.Type)
	}
	r, err := drive(start(t, prog, vm.Options{}, "main"), resolve)
	if err != nil {
		t.Fatal(err)
	}
	expectString(t, r, "buy milk:2")
	if len(seen) != 1 || seen[0] != "baml.fetch_as" {
		t.Errorf("futures = %v", seen)
	}
}

func TestExecFulfilBeforeAwait(t *testing.T) {
	prog := compileSource(t, `
class Todo {
  id int
}
function main() -> int {
  let t = baml.fetch_as<Todo>("u");
  t.id + 1
}`, true)
	m := start(t, prog, vm.Options{}, "main")

	st, err := m.Exec()
	if err != nil || st.Kind != vm.StateScheduleFuture {
		t.Fatalf("first state = %s, %v", st, err)
	}
	fut, err := m.PendingFuture(st.Future)
	if err != nil {
		t.Fatal(err)
	}
	idx, _ := fut.Args[1].AsObject()
	obj, _ := m.Object(idx)
	v, err := m.DecodeJSON([]byte(`{"id": 41}`), obj.(*bytecode.BamlType).Type)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.FulfilFuture(st.Future, v); err != nil {
		t.Fatal(err)
	}

	done, err := m.Exec()
	if err != nil || done.Kind != vm.StateComplete {
		t.Fatalf("final state = %s, %v", done, err)
	}
	if n, ok := done.Value.AsInt(); !ok || n != 42 {
		t.Errorf("result = %v", done.Value)
	}
}

func TestExecFutureFailure(t *testing.T) {
	prog := compileSource(t, todoSource, true)
	boom := errors.New("connection refused")
	_, err := drive(start(t, prog, vm.Options{}, "main"), func(*vm.VM, *bytecode.Future) (bytecode.Value, error) {
		return bytecode.Null, boom
	})
	if !vm.IsCode(err, vm.CodeFutureFailed) || !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestExecAwaitSuspends(t *testing.T) {
	prog := compileSource(t, `
function Summarize(text: string) -> string {
  client "openai/gpt-4o"
  prompt #"Summarize {{ text }}"#
}
function main() -> string {
  Summarize("hello")
}`, true)
	m := start(t, prog, vm.Options{}, "main")

	st, err := m.Exec()
	if err != nil || st.Kind != vm.StateScheduleFuture {
		t.Fatalf("first state = %s, %v", st, err)
	}
	fut, err := m.PendingFuture(st.Future)
	if err != nil {
		t.Fatal(err)
	}
	if fut.Kind != bytecode.FutureLlm || fut.Function != "Summarize" {
		t.Errorf("future = %+v", fut)
	}
	if s, _ := m.StringValue(fut.Args[0]); s != "hello" {
		t.Errorf("argument = %q", s)
	}

	awaited, err := m.Exec()
	if err != nil || awaited.Kind != vm.StateAwait || awaited.Future != st.Future {
		t.Fatalf("second state = %s, %v", awaited, err)
	}
	again, err := m.Exec()
	if err != nil || again.Kind != vm.StateAwait || again.Future != st.Future {
		t.Fatalf("resumed before fulfil = %s, %v", again, err)
	}
	if err := m.FulfilFuture(st.Future, m.AllocString("short")); err != nil {
		t.Fatal(err)
	}
	done, err := m.Exec()
	if err != nil || done.Kind != vm.StateComplete {
		t.Fatalf("final state = %s, %v", done, err)
	}
	if s, _ := m.StringValue(done.Value); s != "short" {
		t.Errorf("result = %q", s)
	}
	if _, err := m.PendingFuture(st.Future); err == nil {
		t.Error("fulfilled future still pending")
	}
}

func TestExecFinalizeReusesVM(t *testing.T) {
	prog := compileSource(t, `
function main(n: int) -> string {
  baml.unstable.string([n, n])
}`, true)
	_, idx, _ := prog.Function("main")
	m := vm.New(prog, vm.Options{})
	for _, n := range []int64{1, 2} {
		if err := m.SetEntryPoint(idx, []bytecode.Value{bytecode.Int(n)}); err != nil {
			t.Fatal(err)
		}
		r, err := drive(m, nil)
		if err != nil {
			t.Fatal(err)
		}
		expectString(t, r, fmt.Sprintf("[%d, %d]", n, n))
		m.Finalize()
		if _, ok := m.Object(bytecode.ObjectIndex(len(prog.Objects))); ok {
			t.Error("runtime objects survived Finalize")
		}
		if m.Depth() != 0 {
			t.Errorf("depth = %d", m.Depth())
		}
	}
}

func TestSetEntryPointChecksArity(t *testing.T) {
	prog := compileSource(t, fibSource, true)
	_, idx, _ := prog.Function("fib")
	err := vm.New(prog, vm.Options{}).SetEntryPoint(idx, nil)
	if !vm.IsCode(err, vm.CodeArgumentCount) {
		t.Errorf("err = %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	r := runMain(t, pointClass+`
function main() -> map<string, Point[]> {
  let m = { "b": [Point { x: 1, y: 2 }], "a": [Point { x: 3, y: 4 }] };
  m
}`)
	x, err := r.vm.Export(r.value)
	if err != nil {
		t.Fatal(err)
	}
	out, err := json.Marshal(x)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(out), `{"b":[{"x":1,"y":2}],"a":[{"x":3,"y":4}]}`; got != want {
		t.Errorf("json = %s, want %s", got, want)
	}
}

func TestDecodeJSON(t *testing.T) {
	prog := compileSource(t, pointClass+`
enum Color {
  Red
  Green
}
class Shape {
  color Color
  origin Point?
  label string | int
}
function main() -> int { 0 }`, true)
	m := vm.New(prog, vm.Options{})
	shape := &types.Shape{Kind: types.KindClass, Name: "Shape"}

	tests := []struct {
		name    string
		data    string
		want    string
		wantErr bool
	}{
		{"full", `{"color": "Green", "origin": {"x": 1, "y": 2}, "label": "a"}`, "Shape {\n    color: Green\n    origin: Point {\n        x: 1\n        y: 2\n    }\n    label: \"a\"\n}", false},
		{"optional omitted", `{"color": "Red", "label": 7}`, "Shape {\n    color: Red\n    origin: null\n    label: 7\n}", false},
		{"unknown variant", `{"color": "Blue", "label": 7}`, "", true},
		{"missing required", `{"color": "Red"}`, "", true},
		{"wrong type", `{"color": "Red", "label": true}`, "", true},
		{"not json", `{`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := m.DecodeJSON([]byte(tt.data), shape)
			if tt.wantErr {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			got, err := m.Format(v)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("decoded:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}
