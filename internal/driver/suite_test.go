package driver

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"baml/internal/asyncrt"
)

const counterSuite = `function Add(a: int, b: int) -> int {
  a + b
}

function Count() -> int {
  watch let n = 0;
  n = n + 1;
  n = n + 1;
  n
}

//> Add(1, 2)
// 3

//> Count()
// [watch] n = 1
// [watch] n = 2
//
// 2

//> [Add(1, 1), Add(2, 2)]
// [2, 4]
`

func TestParseSuite(t *testing.T) {
	s, err := ParseSuite("counter.baml", []byte(counterSuite))
	if err != nil {
		t.Fatal(err)
	}
	want := []SuiteCase{
		{Line: 12, Expr: "Add(1, 2)", Expected: "3"},
		{Line: 15, Expr: "Count()", Expected: "[watch] n = 1\n[watch] n = 2\n\n2"},
		{Line: 21, Expr: "[Add(1, 1), Add(2, 2)]", Expected: "[2, 4]"},
	}
	if len(s.Cases) != len(want) {
		t.Fatalf("cases = %+v", s.Cases)
	}
	for i, c := range s.Cases {
		w := want[i]
		if c.Line != w.Line || c.Expr != w.Expr || c.Expected != w.Expected {
			t.Errorf("case %d = %+v, want %+v", i, c, w)
		}
	}

	src := string(s.Source)
	if strings.Contains(src, "//") {
		t.Errorf("case comments left in source:\n%s", src)
	}
	lines := strings.Split(src, "\n")
	if lines[5] != "  watch let n = 0;" {
		t.Errorf("line 6 = %q", lines[5])
	}
	if !strings.Contains(src, "function "+suiteEntryPrefix+"2() -> any {\n  [Add(1, 1), Add(2, 2)]\n}") {
		t.Errorf("missing case wrapper:\n%s", src)
	}
}

func TestParseSuiteRejectsEmptyExpression(t *testing.T) {
	if _, err := ParseSuite("x.baml", []byte("//>\n// 1\n")); err == nil {
		t.Error("expected an error")
	}
}

func TestRunSuite(t *testing.T) {
	dir := t.TempDir()
	pass := writeFile(t, dir, "counter.baml", counterSuite)
	fail := writeFile(t, dir, "fail.baml", "function One() -> int { 1 }\n\n//> One()\n// 2\n")
	broken := writeFile(t, dir, "broken.baml", "function One() -> int { let = 1 }\n\n//> One()\n// 1\n")

	var (
		mu     sync.Mutex
		events []Event
	)
	results, err := RunSuite(context.Background(), []string{pass, fail, broken}, SuiteOptions{
		Jobs: 2,
		Progress: func(ev Event) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}

	if r := results[0]; !r.Passed() || len(r.Cases) != 3 {
		for _, c := range r.Cases {
			if !c.Passed {
				t.Errorf("%s: %s\nwant:\n%s\ngot:\n%s", r.Path, c.Case.Expr, c.Case.Expected, c.Actual)
			}
		}
		t.Errorf("counter suite failed: %+v", r)
	}

	if r := results[1]; r.Passed() || len(r.Cases) != 1 || r.Cases[0].Actual != "1" {
		t.Errorf("fail suite = %+v", r)
	}

	if r := results[2]; r.Passed() || r.Build == nil || !r.Build.Bag.HasErrors() || len(r.Cases) != 0 {
		t.Errorf("broken suite = %+v", r)
	}

	final := map[string]Status{}
	for _, ev := range events {
		if ev.Stage == StageRun && ev.Status != StatusWorking {
			final[ev.File] = ev.Status
		}
	}
	if final[pass] != StatusDone || final[fail] != StatusError || final[broken] != StatusError {
		t.Errorf("final statuses = %v", final)
	}
}

func TestRunSuiteFutures(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "llm.baml", `function Summarize(text: string) -> string {
  client "openai/gpt-4o"
  prompt #"Summarize {{ text }}"#
}

//> Summarize("a long text")
// "short"
`)
	mock := &asyncrt.MockResolver{LLM: map[string]string{"Summarize": "short"}}
	results, err := RunSuite(context.Background(), []string{path}, SuiteOptions{Resolver: mock})
	if err != nil {
		t.Fatal(err)
	}
	if !results[0].Passed() {
		t.Errorf("result = %+v", results[0].Cases)
	}
	if calls := mock.Calls(); len(calls) != 1 || calls[0].Function != "Summarize" {
		t.Errorf("calls = %v", calls)
	}

	results, err = RunSuite(context.Background(), []string{path}, SuiteOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if got := results[0].Cases[0].Actual; !strings.HasPrefix(got, "error: ") {
		t.Errorf("without a resolver got %q", got)
	}
}

func TestRunSuiteCancelled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.baml", "function One() -> int { 1 }\n//> One()\n// 1\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := RunSuite(ctx, []string{path}, SuiteOptions{}); err == nil {
		t.Error("expected a cancellation error")
	}
}

func TestConformanceSuites(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "testdata", "suites", "*.baml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Skip("no suites")
	}
	results, err := RunSuite(context.Background(), paths, SuiteOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Build != nil && r.Build.Bag.HasErrors() {
			t.Errorf("%s: %d diagnostics", r.Path, r.Build.Bag.Len())
			continue
		}
		for _, c := range r.Cases {
			if !c.Passed {
				t.Errorf("%s:%d: %s\nwant:\n%s\ngot:\n%s", r.Path, c.Case.Line, c.Case.Expr, c.Case.Expected, c.Actual)
			}
		}
	}
}
