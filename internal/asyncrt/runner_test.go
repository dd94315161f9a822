package asyncrt_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"baml/internal/asyncrt"
	"baml/internal/ast"
	"baml/internal/builtin"
	"baml/internal/bytecode"
	"baml/internal/compiler"
	"baml/internal/diag"
	"baml/internal/parser"
	"baml/internal/sema"
	"baml/internal/source"
	"baml/internal/types"
	"baml/internal/vm"
)

func compileSource(t *testing.T, src string) *bytecode.Program {
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
	prog, err := compiler.Compile(context.Background(), mod, compiler.Options{Files: fs, Reporter: rep, NoViz: true})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return prog
}

const todoSource = `
class Todo {
  id int
  title string
  tags string[]
}
function main(url: string) -> string {
  let t = baml.fetch_as<Todo>(url);
  t.title + ":" + baml.unstable.string(t.tags.length())
}`

const summarizeSource = `
function Summarize(text: string) -> string {
  client "openai/gpt-4o"
  prompt #"Summarize {{ text }}"#
}
function main() -> string {
  Summarize("hello")
}`

func TestRunFetchAsOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/todo/1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id": 1, "title": "buy milk", "tags": ["home", "food"]}`)
	}))
	defer srv.Close()

	r := &asyncrt.Runner{Program: compileSource(t, todoSource), Resolver: &asyncrt.HTTPResolver{Client: srv.Client()}}
	res, err := r.Run(context.Background(), "main", []any{srv.URL + "/todo/1"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Value != "buy milk:2" || res.Calls != 1 {
		t.Errorf("result = %+v", res)
	}

	_, err = r.Run(context.Background(), "main", []any{srv.URL + "/missing"})
	var status *asyncrt.HTTPStatusError
	if !vm.IsCode(err, vm.CodeFutureFailed) || !errors.As(err, &status) || status.Status != http.StatusNotFound {
		t.Errorf("err = %v", err)
	}
}

func TestRunLLMWithMock(t *testing.T) {
	mock := &asyncrt.MockResolver{LLM: map[string]string{"Summarize": "short"}}
	r := &asyncrt.Runner{Program: compileSource(t, summarizeSource), Resolver: mock}
	res, err := r.Run(context.Background(), "main", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Value != "short" {
		t.Errorf("value = %v", res.Value)
	}
	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d", len(calls))
	}
	prompt, err := asyncrt.RenderPrompt(calls[0])
	if err != nil {
		t.Fatal(err)
	}
	if prompt != "Summarize hello" {
		t.Errorf("prompt = %q", prompt)
	}
	if calls[0].Llm.Client != "openai/gpt-4o" || calls[0].Result.Kind != types.KindString {
		t.Errorf("call = %+v", calls[0])
	}
}

func TestRunMissingResponseFailsFuture(t *testing.T) {
	r := &asyncrt.Runner{Program: compileSource(t, summarizeSource), Resolver: &asyncrt.MockResolver{}}
	_, err := r.Run(context.Background(), "main", nil)
	if !vm.IsCode(err, vm.CodeFutureFailed) || !strings.Contains(err.Error(), "no canned response for Summarize") {
		t.Errorf("err = %v", err)
	}

	r.Resolver = asyncrt.Split{}
	if _, err := r.Run(context.Background(), "main", nil); !errors.Is(err, asyncrt.ErrNoResolver) {
		t.Errorf("err = %v", err)
	}
}

func TestRunDeliversNotifications(t *testing.T) {
	prog := compileSource(t, `
function main() -> int {
  watch let total = 0;
  total.$watch.options(baml.WatchOptions { channel: "progress" });
  for (let x in [1, 2, 3]) {
    total += x;
  }
  total
}`)
	var got []asyncrt.Notification
	r := &asyncrt.Runner{
		Program: prog,
		Handler: asyncrt.HandlerFunc(func(_ context.Context, n asyncrt.Notification) error {
			got = append(got, n)
			return nil
		}),
	}
	res, err := r.Run(context.Background(), "main", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Value != int64(6) {
		t.Errorf("value = %#v", res.Value)
	}
	want := []int64{1, 3, 6}
	if len(got) != len(want) {
		t.Fatalf("notifications = %v", got)
	}
	for i, n := range got {
		if n.Kind != asyncrt.NotifyVariable || n.Variable != "total" || n.Channel != "progress" || n.Function != "main" || n.Value != want[i] {
			t.Errorf("notification %d = %s", i, n)
		}
	}
}

func TestRunHandlerErrorAborts(t *testing.T) {
	prog := compileSource(t, `
function main() -> int {
  watch let x = 0;
  x = 1;
  x
}`)
	stop := errors.New("stop")
	r := &asyncrt.Runner{
		Program: prog,
		Handler: asyncrt.HandlerFunc(func(context.Context, asyncrt.Notification) error { return stop }),
	}
	if _, err := r.Run(context.Background(), "main", nil); !errors.Is(err, stop) {
		t.Errorf("err = %v", err)
	}
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &asyncrt.Runner{
		Program: compileSource(t, summarizeSource),
		Resolver: asyncrt.ResolverFunc(func(ctx context.Context, _ *asyncrt.Call) (asyncrt.Response, error) {
			cancel()
			<-ctx.Done()
			return asyncrt.Response{}, ctx.Err()
		}),
	}
	if _, err := r.Run(ctx, "main", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestRunTimeout(t *testing.T) {
	r := &asyncrt.Runner{
		Program: compileSource(t, summarizeSource),
		Timeout: 10 * time.Millisecond,
		Resolver: asyncrt.ResolverFunc(func(ctx context.Context, _ *asyncrt.Call) (asyncrt.Response, error) {
			<-ctx.Done()
			return asyncrt.Response{}, ctx.Err()
		}),
	}
	_, err := r.Run(context.Background(), "main", nil)
	if !vm.IsCode(err, vm.CodeFutureFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
}

func TestRunConcurrentRuns(t *testing.T) {
	var served atomic.Int32
	r := &asyncrt.Runner{
		Program: compileSource(t, summarizeSource),
		Resolver: asyncrt.ResolverFunc(func(_ context.Context, call *asyncrt.Call) (asyncrt.Response, error) {
			served.Add(1)
			return asyncrt.Response{Value: strings.ToUpper(call.Args[0].(string))}, nil
		}),
	}
	errs := make(chan error, 8)
	for range 8 {
		go func() {
			res, err := r.Run(context.Background(), "main", nil)
			if err == nil && res.Value != "HELLO" {
				err = errors.New("wrong value")
			}
			errs <- err
		}()
	}
	for range 8 {
		if err := <-errs; err != nil {
			t.Error(err)
		}
	}
	if served.Load() != 8 {
		t.Errorf("served %d calls", served.Load())
	}
}

func TestRunUnknownFunction(t *testing.T) {
	r := &asyncrt.Runner{Program: compileSource(t, summarizeSource)}
	if _, err := r.Run(context.Background(), "nope", nil); err == nil || !strings.Contains(err.Error(), `"nope" not found`) {
		t.Errorf("err = %v", err)
	}
	if _, err := r.Run(context.Background(), "main", []any{1}); !vm.IsCode(err, vm.CodeArgumentCount) {
		t.Errorf("err = %v", err)
	}
}

func TestHTTPResolverRequest(t *testing.T) {
	var gotMethod, gotQuery, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		io.WriteString(w, `{"ok": true}`)
	}))
	defer srv.Close()

	req := &vm.Instance{Class: builtin.HttpRequest, Fields: vm.Map{
		{Key: "url", Value: srv.URL + "/items"},
		{Key: "method", Value: vm.Variant{Enum: builtin.HttpMethod, Name: "Post"}},
		{Key: "headers", Value: vm.Map{{Key: "Authorization", Value: "Bearer t"}}},
		{Key: "query_params", Value: vm.Map{{Key: "page", Value: "2"}}},
		{Key: "json", Value: vm.Map{{Key: "name", Value: "milk"}, {Key: "qty", Value: int64(2)}}},
	}}
	h := &asyncrt.HTTPResolver{Client: srv.Client()}
	resp, err := h.ResolveNet(context.Background(), &asyncrt.Call{Function: builtin.FetchValue, Args: []any{req}})
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != `{"ok": true}` {
		t.Errorf("body = %q", resp.Body)
	}
	if gotMethod != http.MethodPost || gotQuery != "page=2" || gotAuth != "Bearer t" || gotBody != `{"name":"milk","qty":2}` {
		t.Errorf("request = %s ?%s auth=%q body=%s", gotMethod, gotQuery, gotAuth, gotBody)
	}

	tests := []struct {
		name string
		arg  any
		want string
	}{
		{"wrong class", &vm.Instance{Class: "Todo"}, "cannot fetch a Todo"},
		{"no url", &vm.Instance{Class: builtin.HttpRequest}, "request has no url"},
		{"bad headers", &vm.Instance{Class: builtin.HttpRequest, Fields: vm.Map{
			{Key: "url", Value: srv.URL},
			{Key: "headers", Value: vm.Map{{Key: "X", Value: int64(1)}}},
		}}, `headers["X"] must be a string`},
		{"int", int64(3), "cannot fetch int64"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.ResolveNet(context.Background(), &asyncrt.Call{Function: builtin.FetchValue, Args: []any{tt.arg}})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}

	if _, err := h.ResolveLLM(context.Background(), &asyncrt.Call{}); !errors.Is(err, asyncrt.ErrLLMUnsupported) {
		t.Errorf("err = %v", err)
	}
}

func TestMockResolverNet(t *testing.T) {
	prog := compileSource(t, `
function main() -> int {
  let v = baml.fetch_value("https://example.com/n");
  v["count"]
}`)
	mock := &asyncrt.MockResolver{Net: map[string]string{"https://example.com/n": `{"count": 7}`}}
	r := &asyncrt.Runner{Program: prog, Resolver: asyncrt.Split{Net: mock}}
	res, err := r.Run(context.Background(), "main", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Value != int64(7) {
		t.Errorf("value = %#v", res.Value)
	}
}
