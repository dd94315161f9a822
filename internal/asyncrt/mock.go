package asyncrt

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"baml/internal/types"
)

// MockResolver answers futures from canned responses, the [llm.responses]
// and [net.responses] tables of baml.toml. LLM responses are keyed by
// function name, network responses by URL. A response is plain text for
// string results and JSON otherwise.
type MockResolver struct {
	LLM map[string]string
	Net map[string]string

	mu    sync.Mutex
	calls []*Call
}

// Calls returns the calls served so far, in completion order.
func (m *MockResolver) Calls() []*Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Call(nil), m.calls...)
}

func (m *MockResolver) record(call *Call) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *MockResolver) ResolveLLM(ctx context.Context, call *Call) (Response, error) {
	m.record(call)
	text, ok := m.LLM[call.Function]
	if !ok {
		return Response{}, fmt.Errorf("no canned response for %s", call.Function)
	}
	if call.Result != nil && call.Result.Kind == types.KindString {
		return Response{Value: text}, nil
	}
	return Response{Body: []byte(text)}, nil
}

func (m *MockResolver) ResolveNet(ctx context.Context, call *Call) (Response, error) {
	m.record(call)
	if len(call.Args) != 1 {
		return Response{}, fmt.Errorf("%s expects one request, got %d arguments", call.Function, len(call.Args))
	}
	req, err := (&HTTPResolver{}).request(ctx, call.Args[0])
	if err != nil {
		return Response{}, err
	}
	key := req.URL.String()
	body, ok := m.Net[key]
	if !ok {
		return Response{}, &HTTPStatusError{URL: key, Status: 404}
	}
	return Response{Body: []byte(body)}, nil
}

var promptVar = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// RenderPrompt substitutes {{ param }} placeholders in the prompt of an LLM
// call with its arguments. Strings are inserted as is, other values as
// JSON. Unknown names are left untouched.
func RenderPrompt(call *Call) (string, error) {
	if call.Llm == nil {
		return "", fmt.Errorf("%s is not an LLM function", call.Function)
	}
	args := make(map[string]any, len(call.Params))
	for i, p := range call.Params {
		if i < len(call.Args) {
			args[p] = call.Args[i]
		}
	}
	var firstErr error
	out := promptVar.ReplaceAllStringFunc(call.Llm.Prompt, func(match string) string {
		name := promptVar.FindStringSubmatch(match)[1]
		v, ok := args[name]
		if !ok {
			return match
		}
		if s, ok := v.(string); ok {
			return s
		}
		data, err := json.Marshal(v)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return match
		}
		return string(data)
	})
	return strings.TrimSpace(out), firstErr
}
