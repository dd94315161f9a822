package asyncrt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"baml/internal/builtin"
	"baml/internal/vm"
)

// maxBody caps the size of a fetched response.
const maxBody = 32 << 20

// ErrLLMUnsupported is returned by HTTPResolver for LLM calls.
var ErrLLMUnsupported = errors.New("LLM calls are not served over plain HTTP")

// HTTPStatusError reports a non-2xx response.
type HTTPStatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.URL, e.Status, e.Body)
}

// HTTPResolver fetches baml.fetch_as and baml.fetch_value targets. The
// argument is either a URL string or a baml.HttpRequest instance.
type HTTPResolver struct {
	// Client defaults to http.DefaultClient.
	Client *http.Client
	// Header is added to every request.
	Header http.Header
}

func (h *HTTPResolver) ResolveLLM(context.Context, *Call) (Response, error) {
	return Response{}, ErrLLMUnsupported
}

func (h *HTTPResolver) ResolveNet(ctx context.Context, call *Call) (Response, error) {
	if len(call.Args) != 1 {
		return Response{}, fmt.Errorf("%s expects one request, got %d arguments", call.Function, len(call.Args))
	}
	req, err := h.request(ctx, call.Args[0])
	if err != nil {
		return Response{}, err
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Response{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, &HTTPStatusError{URL: req.URL.String(), Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return Response{Body: body}, nil
}

func (h *HTTPResolver) request(ctx context.Context, arg any) (*http.Request, error) {
	var (
		target = ""
		method = http.MethodGet
		header = http.Header{}
		query  = url.Values{}
		body   io.Reader
	)
	switch a := arg.(type) {
	case string:
		target = a
	case *vm.Instance:
		if a.Class != builtin.HttpRequest {
			return nil, fmt.Errorf("cannot fetch a %s", a.Class)
		}
		if u, ok := a.Fields.Get("url"); ok {
			target, _ = u.(string)
		}
		if m, ok := a.Fields.Get("method"); ok {
			if v, ok := m.(vm.Variant); ok {
				method = strings.ToUpper(v.Name)
			}
		}
		if hs, ok := a.Fields.Get("headers"); ok {
			if err := eachString(hs, "headers", header.Add); err != nil {
				return nil, err
			}
		}
		if qs, ok := a.Fields.Get("query_params"); ok {
			if err := eachString(qs, "query_params", query.Add); err != nil {
				return nil, err
			}
		}
		if js, ok := a.Fields.Get("json"); ok && js != nil {
			data, err := json.Marshal(js)
			if err != nil {
				return nil, fmt.Errorf("encoding request body: %w", err)
			}
			body = bytes.NewReader(data)
			header.Set("Content-Type", "application/json")
		}
	default:
		return nil, fmt.Errorf("cannot fetch %T", arg)
	}
	if target == "" {
		return nil, errors.New("request has no url")
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range h.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	return req, nil
}

func eachString(x any, what string, add func(k, v string)) error {
	if x == nil {
		return nil
	}
	m, ok := x.(vm.Map)
	if !ok {
		return fmt.Errorf("%s must be a map, got %T", what, x)
	}
	for _, e := range m {
		s, ok := e.Value.(string)
		if !ok {
			return fmt.Errorf("%s[%q] must be a string, got %T", what, e.Key, e.Value)
		}
		add(e.Key, s)
	}
	return nil
}
