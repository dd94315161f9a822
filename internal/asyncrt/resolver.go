package asyncrt

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"baml/internal/bytecode"
	"baml/internal/types"
)

// ErrNoResolver is returned for futures whose kind has no resolver.
var ErrNoResolver = errors.New("no resolver for future")

// Call is one scheduled future handed to a Resolver. Args are exported
// host values; the reified result type of fetch_as is moved to Result.
type Call struct {
	ID       uuid.UUID
	Function string
	Kind     bytecode.FutureKind
	Args     []any
	// Params names Args for LLM functions.
	Params []string
	// Result is the expected type of the response, nil when the response is
	// decoded dynamically.
	Result *types.Shape
	Llm    *bytecode.LlmSpec
}

// Response is the outcome of a resolved call. When Body is set it is
// decoded as JSON against the call's result type, otherwise Value is
// imported as is.
type Response struct {
	Body  []byte
	Value any
}

// Resolver serves the futures a program schedules. Resolvers are called
// from their own goroutines and must be safe for concurrent use.
type Resolver interface {
	ResolveLLM(ctx context.Context, call *Call) (Response, error)
	ResolveNet(ctx context.Context, call *Call) (Response, error)
}

// ResolverFunc serves both kinds of futures with one function.
type ResolverFunc func(ctx context.Context, call *Call) (Response, error)

func (f ResolverFunc) ResolveLLM(ctx context.Context, call *Call) (Response, error) {
	return f(ctx, call)
}

func (f ResolverFunc) ResolveNet(ctx context.Context, call *Call) (Response, error) {
	return f(ctx, call)
}

// Split routes LLM and network futures to different resolvers. A nil half
// fails its calls with ErrNoResolver.
type Split struct {
	LLM Resolver
	Net Resolver
}

func (s Split) ResolveLLM(ctx context.Context, call *Call) (Response, error) {
	if s.LLM == nil {
		return Response{}, ErrNoResolver
	}
	return s.LLM.ResolveLLM(ctx, call)
}

func (s Split) ResolveNet(ctx context.Context, call *Call) (Response, error) {
	if s.Net == nil {
		return Response{}, ErrNoResolver
	}
	return s.Net.ResolveNet(ctx, call)
}

func resolve(ctx context.Context, r Resolver, call *Call) (Response, error) {
	if r == nil {
		return Response{}, ErrNoResolver
	}
	if call.Kind == bytecode.FutureNet {
		return r.ResolveNet(ctx, call)
	}
	return r.ResolveLLM(ctx, call)
}
